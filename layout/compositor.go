package layout

import (
	"errors"
	"fmt"
	"math"
	"runtime"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jaedson-barbosa/thermo-print-studio/document"
	"github.com/jaedson-barbosa/thermo-print-studio/raster"
	"github.com/jaedson-barbosa/thermo-print-studio/text"
	"github.com/jaedson-barbosa/thermo-print-studio/units"
)

// Compositor 将文档的段落逐个光栅化，再按文档顺序纵向堆叠成页面。
// Compositor 不保存任何渲染状态，可被多个 goroutine 同时使用。
type Compositor struct {
	opts   Options
	device units.Device
	text   TextRenderer
	logger *zap.Logger
}

// NewCompositor 创建合成器；未设置的依赖使用默认实现。
func NewCompositor(opts Options) *Compositor {
	device := units.NewDevice(opts.MmToPx)
	opts.MmToPx = device.MmToPx
	if opts.MarginPx < 0 {
		opts.MarginPx = 0
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = runtime.GOMAXPROCS(0)
	}
	c := &Compositor{
		opts:   opts,
		device: device,
		text:   opts.TextRenderer,
		logger: opts.Logger,
	}
	if c.text == nil {
		c.text = text.NewRasterizer(device.MmToPx)
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}
	return c
}

// Compose 渲染文档。maxPageHeightPx <= 0 表示不分页，整个文档落在一页上。
//
// 文档头非法时返回 document.ErrInvalidDocument；未知的光栅化方式总是令整个调用失败。
// 其余段落级错误以 *SectionError 报告：SkipInvalidSections 为 true 时记录到
// Result.Failures 并继续，否则用 errors.Join 合并后返回。
func (c *Compositor) Compose(doc *document.Document, maxPageHeightPx int) (*Result, error) {
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	if maxPageHeightPx < 0 {
		maxPageHeightPx = 0
	}
	pageWidthPx := c.device.MmToPxRound(doc.WidthMm)
	log := c.logger.With(zap.String("document", doc.ID))

	grids := make([]*raster.BitGrid, len(doc.Sections))
	failures := make([]*SectionError, len(doc.Sections))

	var g errgroup.Group
	g.SetLimit(c.opts.Concurrency)
	for i, s := range doc.Sections {
		g.Go(func() error {
			start := time.Now()
			grid, err := c.rasterize(s, doc.WidthMm, pageWidthPx)
			if err != nil {
				if errors.Is(err, raster.ErrUnsupportedMethod) {
					return fmt.Errorf("section %d (%s): %w", i, s.SectionID(), err)
				}
				failures[i] = &SectionError{Index: i, SectionID: s.SectionID(), Err: err}
				return nil
			}
			grids[i] = grid
			log.Debug("section rasterized",
				zap.Int("index", i),
				zap.String("id", s.SectionID()),
				zap.String("kind", string(s.Kind())),
				zap.Int("width", grid.Width()),
				zap.Int("height", grid.Height()),
				zap.Duration("took", time.Since(start)),
			)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var sectionErrs []*SectionError
	for _, f := range failures {
		if f != nil {
			sectionErrs = append(sectionErrs, f)
		}
	}
	if len(sectionErrs) > 0 {
		if !c.opts.SkipInvalidSections {
			errs := make([]error, len(sectionErrs))
			for i, f := range sectionErrs {
				errs[i] = f
			}
			return nil, errors.Join(errs...)
		}
		for _, f := range sectionErrs {
			log.Warn("section skipped", zap.Int("index", f.Index), zap.String("id", f.SectionID), zap.Error(f.Err))
		}
	}

	collector := newPageCollector(maxPageHeightPx, c.opts.MarginPx)
	for i, grid := range grids {
		if grid == nil || grid.Height() == 0 {
			continue
		}
		s := doc.Sections[i]
		p := Placement{
			SectionIndex: i,
			SectionID:    s.SectionID(),
			Kind:         s.Kind(),
			X:            (pageWidthPx - grid.Width()) / 2,
			WidthPx:      grid.Width(),
			HeightPx:     grid.Height(),
		}
		if img, ok := s.(*document.ImageSection); ok {
			p.Method = img.Rasterization
		}
		if collector.place(p) {
			log.Warn("section taller than page, placed on its own page",
				zap.Int("index", i),
				zap.Int("height", grid.Height()),
				zap.Int("maxPageHeight", maxPageHeightPx),
			)
		}
	}

	res := &Result{
		Plan: Plan{
			Document:        doc.Name,
			PageWidthPx:     pageWidthPx,
			MaxPageHeightPx: maxPageHeightPx,
			MarginPx:        c.opts.MarginPx,
			MmToPx:          c.device.MmToPx,
			Pages:           collector.pages,
		},
		Failures: sectionErrs,
		grids:    grids,
	}
	log.Debug("document composed", zap.Int("pages", res.PageCount()), zap.Int("skipped", len(sectionErrs)))
	return res, nil
}

// rasterize 对单个段落做穷举的类型分派。
func (c *Compositor) rasterize(s document.Section, docWidthMm float64, pageWidthPx int) (*raster.BitGrid, error) {
	if err := s.Validate(docWidthMm); err != nil {
		return nil, err
	}
	switch s := s.(type) {
	case *document.TextSection:
		return c.text.Render(s.Content, s.Style(), pageWidthPx)
	case *document.ImageSection:
		widthPx := c.device.MmToPxRound(math.Min(s.WidthMm, docWidthMm))
		if widthPx > pageWidthPx {
			widthPx = pageWidthPx
		}
		grid, err := raster.Sample(s.Image, widthPx)
		if err != nil {
			return nil, err
		}
		return raster.Dither(grid, s.Rasterization, raster.DitherOptions{MatrixSize: c.opts.DitherMatrixSize})
	default:
		return nil, fmt.Errorf("%w: unknown section type %T", document.ErrInvalidSection, s)
	}
}

// pageCollector 负责纵向堆叠与分页：放不下时在段落之前换页，段落从不被拆分。
type pageCollector struct {
	maxHeightPx int
	marginPx    int
	pages       []PagePlan
}

func newPageCollector(maxHeightPx, marginPx int) *pageCollector {
	pc := &pageCollector{maxHeightPx: maxHeightPx, marginPx: marginPx}
	pc.newPage()
	return pc
}

func (pc *pageCollector) newPage() *PagePlan {
	pc.pages = append(pc.pages, PagePlan{Index: len(pc.pages)})
	return &pc.pages[len(pc.pages)-1]
}

func (pc *pageCollector) curr() *PagePlan {
	return &pc.pages[len(pc.pages)-1]
}

// ensureSpace 在当前页放不下 height 时换页，返回当前页与段落前的间距。
func (pc *pageCollector) ensureSpace(height int) (*PagePlan, int) {
	page := pc.curr()
	if len(page.Placements) == 0 {
		return page, 0
	}
	if pc.maxHeightPx <= 0 || page.HeightPx+pc.marginPx+height <= pc.maxHeightPx {
		return page, pc.marginPx
	}
	return pc.newPage(), 0
}

// place 摆放一个段落，返回该段落是否超过页高上限。
func (pc *pageCollector) place(p Placement) bool {
	page, gap := pc.ensureSpace(p.HeightPx)
	p.Y = page.HeightPx + gap
	page.Placements = append(page.Placements, p)
	page.HeightPx = p.Y + p.HeightPx
	oversize := pc.maxHeightPx > 0 && p.HeightPx > pc.maxHeightPx
	if oversize {
		page.Oversize = true
	}
	return oversize
}
