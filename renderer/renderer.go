// Package renderer 定义把合成结果编码为文件的输出后端。
package renderer

import (
	"errors"

	"github.com/jaedson-barbosa/thermo-print-studio/layout"
	"github.com/jaedson-barbosa/thermo-print-studio/raster"
)

// ErrNoPages 表示合成结果中没有可输出的页面（或页面序列已被消费）。
var ErrNoPages = errors.New("renderer: no pages to render")

// Renderer 将合成结果输出为单个文件，例如 PDF 或长条 PNG。
// Render 会消费 result.Pages()，同一个结果只能渲染一次。
type Renderer interface {
	Render(result *layout.Result) ([]byte, error)
}

// PageRenderer 为每一页生成一个独立的文件。
type PageRenderer interface {
	RenderPages(result *layout.Result) ([][]byte, error)
}

// CollectPages drains the lazy page sequence.
func CollectPages(result *layout.Result) ([]*raster.BitGrid, error) {
	if result == nil {
		return nil, ErrNoPages
	}
	var pages []*raster.BitGrid
	for p := range result.Pages() {
		pages = append(pages, p)
	}
	if len(pages) == 0 {
		return nil, ErrNoPages
	}
	return pages, nil
}
