package layout

import (
	"fmt"
	"iter"
	"sync/atomic"

	"github.com/jaedson-barbosa/thermo-print-studio/document"
	"github.com/jaedson-barbosa/thermo-print-studio/raster"
)

// 该文件定义合成结果：页面规划、按需拼装的页面位图，以及逐段落的错误。

// Result 保存一次合成的页面规划与段落位图。
type Result struct {
	Plan     Plan            `json:"plan"`
	Failures []*SectionError `json:"-"`

	grids    []*raster.BitGrid // 按段落下标，跳过的段落为 nil
	consumed atomic.Bool
}

// Plan 描述每一页的高度以及每个段落的摆放位置（单位：px）。
type Plan struct {
	Document        string     `json:"document"`
	PageWidthPx     int        `json:"pageWidthPx"`
	MaxPageHeightPx int        `json:"maxPageHeightPx,omitempty"`
	MarginPx        int        `json:"marginPx"`
	MmToPx          float64    `json:"mmToPx"`
	Pages           []PagePlan `json:"pages"`
}

// PagePlan 是单页的规划。
type PagePlan struct {
	Index      int         `json:"index"`
	HeightPx   int         `json:"heightPx"`
	Oversize   bool        `json:"oversize,omitempty"` // 单个段落高于页高上限，独占一页
	Placements []Placement `json:"placements"`
}

// Placement 记录段落在页面中的位置。
type Placement struct {
	SectionIndex int           `json:"sectionIndex"`
	SectionID    string        `json:"sectionId"`
	Kind         document.Kind `json:"kind"`
	X            int           `json:"x"`
	Y            int           `json:"y"`
	WidthPx      int           `json:"widthPx"`
	HeightPx     int           `json:"heightPx"`
	Method       raster.Method `json:"method,omitempty"`
}

// PageCount returns the number of pages Pages will yield.
func (r *Result) PageCount() int { return len(r.Plan.Pages) }

// Pages 按需拼装每一页的位图。序列只能消费一次，再次调用得到空序列。
func (r *Result) Pages() iter.Seq[*raster.BitGrid] {
	return func(yield func(*raster.BitGrid) bool) {
		if !r.consumed.CompareAndSwap(false, true) {
			return
		}
		for _, page := range r.Plan.Pages {
			if !yield(r.assemble(page)) {
				return
			}
		}
	}
}

func (r *Result) assemble(page PagePlan) *raster.BitGrid {
	out := raster.NewBitGrid(r.Plan.PageWidthPx, page.HeightPx)
	for _, p := range page.Placements {
		out.Blit(r.grids[p.SectionIndex], p.X, p.Y)
	}
	return out
}

// SectionError 表示某个段落的输入错误（图片损坏、宽度越界等）。
type SectionError struct {
	Index     int
	SectionID string
	Err       error
}

func (e *SectionError) Error() string {
	return fmt.Sprintf("section %d (%s): %v", e.Index, e.SectionID, e.Err)
}

func (e *SectionError) Unwrap() error { return e.Err }
