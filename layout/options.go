package layout

import (
	"go.uber.org/zap"

	"github.com/jaedson-barbosa/thermo-print-studio/raster"
	"github.com/jaedson-barbosa/thermo-print-studio/text"
	"github.com/jaedson-barbosa/thermo-print-studio/units"
)

// DefaultMarginPx 是段落之间的固定间距（约 2mm @ 3.78 px/mm）。
const DefaultMarginPx = 8

// Options 配置合成阶段所需的依赖与常量。
type Options struct {
	// MmToPx 是文本与图片共用的 mm→px 换算系数，<=0 时取 units.DefaultMmToPx。
	MmToPx float64
	// MarginPx 为同一页内相邻非空段落之间的间距，0 表示紧贴。
	MarginPx int
	// DitherMatrixSize 为有序抖动的 Bayer 矩阵边长（4 或 8）。
	DitherMatrixSize int
	// SkipInvalidSections 为 true 时，输入错误的段落被跳过并记录在 Result.Failures 中。
	SkipInvalidSections bool
	// Concurrency 限制并行光栅化的段落数，<=0 表示 GOMAXPROCS。
	Concurrency int
	// TextRenderer 负责文本段落；为 nil 时使用 text.Rasterizer。
	TextRenderer TextRenderer
	Logger       *zap.Logger
}

// DefaultOptions returns the stock configuration: 3.78 px/mm, 8px margin, 4×4 Bayer.
func DefaultOptions() Options {
	return Options{
		MmToPx:           units.DefaultMmToPx,
		MarginPx:         DefaultMarginPx,
		DitherMatrixSize: raster.DefaultMatrixSize,
	}
}

// TextRenderer 将一段文本渲染为指定宽度的位图。
type TextRenderer interface {
	Render(content string, style text.Style, widthPx int) (*raster.BitGrid, error)
}
