// Package canvasrenderer writes composed receipt pages as a PDF at physical
// paper size via github.com/tdewolff/canvas.
package canvasrenderer

import (
	"bytes"
	"fmt"

	"github.com/tdewolff/canvas"
	"github.com/tdewolff/canvas/renderers/pdf"

	"github.com/jaedson-barbosa/thermo-print-studio/layout"
	"github.com/jaedson-barbosa/thermo-print-studio/raster"
	"github.com/jaedson-barbosa/thermo-print-studio/renderer"
	"github.com/jaedson-barbosa/thermo-print-studio/units"
)

// Renderer 将页面位图以 1:1 的物理尺寸嵌入 PDF，每页一张。
type Renderer struct {
	creator string
}

var _ renderer.Renderer = (*Renderer)(nil)

// Options configures the PDF renderer.
type Options struct {
	// Creator is written into the PDF info dictionary.
	Creator string
}

// NewRenderer creates a PDF renderer.
func NewRenderer(opts Options) *Renderer {
	if opts.Creator == "" {
		opts.Creator = "thermo-print-studio"
	}
	return &Renderer{creator: opts.Creator}
}

// Render renders every page into a PDF byte slice.
func (r *Renderer) Render(result *layout.Result) ([]byte, error) {
	pages, err := renderer.CollectPages(result)
	if err != nil {
		return nil, err
	}
	device := units.NewDevice(result.Plan.MmToPx)
	widthMm := device.PxToMm(float64(result.Plan.PageWidthPx))

	var buf bytes.Buffer
	var writer *pdf.PDF
	for i, page := range pages {
		// 零高度的页面在 PDF 中仍占 1px，避免生成无效的 MediaBox
		heightMm := device.PxToMm(float64(max(page.Height(), 1)))
		if i == 0 {
			writer = pdf.New(&buf, widthMm, heightMm, nil)
			writer.SetInfo(result.Plan.Document, "", "", "", r.creator)
		} else {
			writer.NewPage(widthMm, heightMm)
		}
		c := canvas.New(widthMm, heightMm)
		drawPage(canvas.NewContext(c), page, device)
		c.RenderTo(writer)
	}

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("写入 PDF 失败: %w", err)
	}
	return buf.Bytes(), nil
}

// drawPage 以左下角为原点放置整页位图，图片与页面同尺寸。
func drawPage(ctx *canvas.Context, page *raster.BitGrid, device units.Device) {
	if page.Height() == 0 {
		return
	}
	ctx.DrawImage(0, 0, page.Paletted(), canvas.DPMM(device.MmToPx))
}
