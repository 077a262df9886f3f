// Package bitmap 将页面位图编码为 PNG 或 PBM（P4）。
package bitmap

import (
	"bytes"
	"fmt"
	"image/png"
	"strings"

	"github.com/jaedson-barbosa/thermo-print-studio/layout"
	"github.com/jaedson-barbosa/thermo-print-studio/raster"
	"github.com/jaedson-barbosa/thermo-print-studio/renderer"
)

// Format 是位图输出格式。
type Format string

const (
	PNG Format = "png"
	PBM Format = "pbm"
)

// ParseFormat maps a file extension (with or without the dot) to a Format.
func ParseFormat(ext string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(ext, ".")) {
	case "png":
		return PNG, nil
	case "pbm":
		return PBM, nil
	}
	return "", fmt.Errorf("bitmap: unsupported format %q", ext)
}

// Renderer 输出 1-bit 位图。
//   - Render：PNG 把所有页面按顺序拼成一条长纸；PBM 则按 netpbm 约定把多张 P4 依次写入同一流。
//   - RenderPages：每页单独编码。
type Renderer struct {
	format Format
}

var (
	_ renderer.Renderer     = (*Renderer)(nil)
	_ renderer.PageRenderer = (*Renderer)(nil)
)

// NewRenderer creates a renderer for the given format.
func NewRenderer(format Format) *Renderer { return &Renderer{format: format} }

// Render encodes all pages as a single file.
func (r *Renderer) Render(result *layout.Result) ([]byte, error) {
	pages, err := renderer.CollectPages(result)
	if err != nil {
		return nil, err
	}
	switch r.format {
	case PBM:
		var buf bytes.Buffer
		for _, p := range pages {
			writePBM(&buf, p)
		}
		return buf.Bytes(), nil
	case PNG:
		return encodePNG(strip(pages))
	}
	return nil, fmt.Errorf("bitmap: unsupported format %q", r.format)
}

// RenderPages encodes each page separately.
func (r *Renderer) RenderPages(result *layout.Result) ([][]byte, error) {
	pages, err := renderer.CollectPages(result)
	if err != nil {
		return nil, err
	}
	out := make([][]byte, 0, len(pages))
	for i, p := range pages {
		var (
			data []byte
			err  error
		)
		switch r.format {
		case PBM:
			var buf bytes.Buffer
			writePBM(&buf, p)
			data = buf.Bytes()
		case PNG:
			data, err = encodePNG(p)
		default:
			err = fmt.Errorf("bitmap: unsupported format %q", r.format)
		}
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", i+1, err)
		}
		out = append(out, data)
	}
	return out, nil
}

// writePBM 写出二进制 PBM：头部之后正是 MSB 在左、按字节补齐的打包行。
func writePBM(buf *bytes.Buffer, g *raster.BitGrid) {
	packed := g.Packed()
	fmt.Fprintf(buf, "P4\n%d %d\n", packed.Width, packed.Height)
	buf.Write(packed.Data)
}

// encodePNG 把零高度的页面（空文档）编码为一行白色像素，与 PDF 渲染器一致。
func encodePNG(g *raster.BitGrid) ([]byte, error) {
	if g.Height() == 0 || g.Width() == 0 {
		g = raster.NewBitGrid(max(g.Width(), 1), 1)
	}
	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: png.BestCompression}
	if err := enc.Encode(&buf, g.Paletted()); err != nil {
		return nil, fmt.Errorf("PNG 编码失败: %w", err)
	}
	return buf.Bytes(), nil
}

// strip stacks pages top to bottom with no gap, like continuous paper.
func strip(pages []*raster.BitGrid) *raster.BitGrid {
	if len(pages) == 1 {
		return pages[0]
	}
	width, height := 0, 0
	for _, p := range pages {
		width = max(width, p.Width())
		height += p.Height()
	}
	out := raster.NewBitGrid(width, height)
	y := 0
	for _, p := range pages {
		out.Blit(p, 0, y)
		y += p.Height()
	}
	return out
}
