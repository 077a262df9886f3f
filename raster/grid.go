package raster

import (
	"fmt"
	"image"
	"image/color"

	"github.com/bits-and-blooms/bitset"
)

// IntensityGrid 保存 [0,255] 的灰度采样，行优先存储。
// 它只属于创建它的那次渲染调用，抖动完成后即可丢弃。
type IntensityGrid struct {
	Width  int
	Height int
	Pix    []uint8
}

// NewIntensityGrid 分配一个全白（255）的灰度网格。
func NewIntensityGrid(width, height int) *IntensityGrid {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	pix := make([]uint8, width*height)
	for i := range pix {
		pix[i] = 255
	}
	return &IntensityGrid{Width: width, Height: height, Pix: pix}
}

// At returns the sample at (x, y). Out-of-range coordinates read as white.
func (g *IntensityGrid) At(x, y int) uint8 {
	if x < 0 || y < 0 || x >= g.Width || y >= g.Height {
		return 255
	}
	return g.Pix[y*g.Width+x]
}

// Set stores v at (x, y); out-of-range writes are ignored.
func (g *IntensityGrid) Set(x, y int, v uint8) {
	if x < 0 || y < 0 || x >= g.Width || y >= g.Height {
		return
	}
	g.Pix[y*g.Width+x] = v
}

var bitPalette = color.Palette{color.White, color.Black}

// BitGrid 是 width×height 的单色位图，true 表示打印黑点。
// BitGrid 实现了 image.Image，可直接交给 PNG/PDF 编码器。
type BitGrid struct {
	width  int
	height int
	bits   *bitset.BitSet
}

var _ image.Image = (*BitGrid)(nil)

// NewBitGrid 创建一个全白的位图；负尺寸按 0 处理。
func NewBitGrid(width, height int) *BitGrid {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	return &BitGrid{
		width:  width,
		height: height,
		bits:   bitset.New(uint(width * height)),
	}
}

func (g *BitGrid) Width() int  { return g.width }
func (g *BitGrid) Height() int { return g.height }

// BitAt reports whether the pixel at (x, y) is black.
func (g *BitGrid) BitAt(x, y int) bool {
	if x < 0 || y < 0 || x >= g.width || y >= g.height {
		return false
	}
	return g.bits.Test(uint(y*g.width + x))
}

// Set marks (x, y) black or white. Out-of-range writes are ignored.
func (g *BitGrid) Set(x, y int, black bool) {
	if x < 0 || y < 0 || x >= g.width || y >= g.height {
		return
	}
	g.bits.SetTo(uint(y*g.width+x), black)
}

// Count returns the number of black pixels.
func (g *BitGrid) Count() int { return int(g.bits.Count()) }

// Equal reports whether both grids have the same size and pixels.
func (g *BitGrid) Equal(o *BitGrid) bool {
	if g == nil || o == nil {
		return g == o
	}
	return g.width == o.width && g.height == o.height && g.bits.Equal(o.bits)
}

// Blit 将 src 的黑点以 (x0, y0) 为左上角叠加到 g 上，超出部分被裁掉。
func (g *BitGrid) Blit(src *BitGrid, x0, y0 int) {
	if src == nil {
		return
	}
	for y := 0; y < src.height; y++ {
		ty := y0 + y
		if ty < 0 || ty >= g.height {
			continue
		}
		for x := 0; x < src.width; x++ {
			if src.BitAt(x, y) {
				g.Set(x0+x, ty, true)
			}
		}
	}
}

// ColorModel implements image.Image.
func (g *BitGrid) ColorModel() color.Model { return bitPalette }

// Bounds implements image.Image.
func (g *BitGrid) Bounds() image.Rectangle { return image.Rect(0, 0, g.width, g.height) }

// At implements image.Image.
func (g *BitGrid) At(x, y int) color.Color {
	if g.BitAt(x, y) {
		return color.Black
	}
	return color.White
}

// Paletted converts the grid into a two-colour paletted image (index 1 = black).
func (g *BitGrid) Paletted() *image.Paletted {
	img := image.NewPaletted(g.Bounds(), bitPalette)
	for y := 0; y < g.height; y++ {
		row := img.Pix[y*img.Stride : y*img.Stride+g.width]
		for x := range row {
			if g.BitAt(x, y) {
				row[x] = 1
			}
		}
	}
	return img
}

func (g *BitGrid) String() string {
	return fmt.Sprintf("BitGrid(%d,%d)", g.width, g.height)
}

// Packed 是位图的规范线上格式：行优先、每像素 1 bit、MSB 为最左像素，
// 每行补齐到整字节。
type Packed struct {
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Stride int    `json:"stride"`
	Data   []byte `json:"data"`
}

// Packed returns the canonical packed form of g.
func (g *BitGrid) Packed() Packed {
	stride := (g.width + 7) / 8
	data := make([]byte, stride*g.height)
	for y := 0; y < g.height; y++ {
		line := data[y*stride : (y+1)*stride]
		for x := 0; x < g.width; x++ {
			if g.BitAt(x, y) {
				line[x/8] |= 0x80 >> uint(x%8)
			}
		}
	}
	return Packed{Width: g.width, Height: g.height, Stride: stride, Data: data}
}

// Chunk returns rows [start, start+height) sharing the underlying data, for
// printers that accept the raster in bands.
func (p Packed) Chunk(start, height int) Packed {
	if start < 0 {
		start = 0
	}
	if start > p.Height {
		start = p.Height
	}
	if start+height > p.Height {
		height = p.Height - start
	}
	return Packed{
		Width:  p.Width,
		Height: height,
		Stride: p.Stride,
		Data:   p.Data[p.Stride*start : p.Stride*(start+height)],
	}
}

// Unpack rebuilds a BitGrid from its packed form.
func Unpack(p Packed) (*BitGrid, error) {
	if p.Width < 0 || p.Height < 0 || p.Stride != (p.Width+7)/8 {
		return nil, fmt.Errorf("raster: invalid packed geometry %dx%d stride %d", p.Width, p.Height, p.Stride)
	}
	if len(p.Data) != p.Stride*p.Height {
		return nil, fmt.Errorf("raster: packed data length %d, want %d", len(p.Data), p.Stride*p.Height)
	}
	g := NewBitGrid(p.Width, p.Height)
	for y := 0; y < p.Height; y++ {
		for x := 0; x < p.Width; x++ {
			if p.Data[y*p.Stride+x/8]&(0x80>>uint(x%8)) != 0 {
				g.Set(x, y, true)
			}
		}
	}
	return g, nil
}
