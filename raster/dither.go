package raster

import (
	"errors"
	"fmt"
	"strings"

	"github.com/makeworld-the-better-one/dither/v2"
)

// ErrUnsupportedMethod 表示调用方传入了未知的光栅化方式，属于契约错误。
var ErrUnsupportedMethod = errors.New("raster: unsupported rasterization method")

// Method 是图片的光栅化（抖动）方式。
type Method string

const (
	Threshold      Method = "threshold"
	FloydSteinberg Method = "floyd-steinberg"
	Atkinson       Method = "atkinson"
	Ordered        Method = "ordered"
)

// Methods lists every supported method in a stable order.
var Methods = []Method{Threshold, FloydSteinberg, Atkinson, Ordered}

// ParseMethod 将字符串映射到封闭的 Method 枚举，大小写与首尾空白不敏感。
func ParseMethod(s string) (Method, error) {
	m := Method(strings.ToLower(strings.TrimSpace(s)))
	if !m.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedMethod, s)
	}
	return m, nil
}

// Valid reports whether m is one of the supported methods.
func (m Method) Valid() bool {
	switch m {
	case Threshold, FloydSteinberg, Atkinson, Ordered:
		return true
	}
	return false
}

// DefaultMatrixSize is the Bayer matrix edge used when none is configured.
const DefaultMatrixSize = 4

// DitherOptions 配置抖动阶段。
type DitherOptions struct {
	// MatrixSize 为有序抖动的 Bayer 矩阵边长，4 或 8；0 表示默认值 4。
	MatrixSize int
}

// thresholdLevel is the black/white decision point.
const thresholdLevel = 128

// Dither 将灰度网格转换为 1-bit 位图。相同输入总是得到相同输出；
// 输入网格不会被修改。
func Dither(grid *IntensityGrid, method Method, opts DitherOptions) (*BitGrid, error) {
	if grid == nil {
		return nil, fmt.Errorf("%w: nil grid", ErrInvalidImage)
	}
	switch method {
	case Threshold:
		return threshold(grid), nil
	case FloydSteinberg:
		return newDiffuser(dither.FloydSteinberg).run(grid), nil
	case Atkinson:
		return newDiffuser(dither.Atkinson).run(grid), nil
	case Ordered:
		matrix, err := bayerMatrix(opts.MatrixSize)
		if err != nil {
			return nil, err
		}
		return ordered(grid, matrix), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedMethod, string(method))
	}
}

func threshold(g *IntensityGrid) *BitGrid {
	out := NewBitGrid(g.Width, g.Height)
	for y := 0; y < g.Height; y++ {
		row := g.Pix[y*g.Width : (y+1)*g.Width]
		for x, v := range row {
			if v < thresholdLevel {
				out.Set(x, y, true)
			}
		}
	}
	return out
}

func ordered(g *IntensityGrid, m [][]float64) *BitGrid {
	n := len(m)
	out := NewBitGrid(g.Width, g.Height)
	for y := 0; y < g.Height; y++ {
		row := g.Pix[y*g.Width : (y+1)*g.Width]
		thresholds := m[y%n]
		for x, v := range row {
			if float64(v) < thresholds[x%n] {
				out.Set(x, y, true)
			}
		}
	}
	return out
}

// tap is one neighbour of an error-diffusion kernel, relative to the
// current pixel.
type tap struct {
	dx, dy int
	weight float32
}

// diffuser runs a row-major error diffusion with the given taps. Taps that
// fall outside the grid are dropped, not redistributed.
type diffuser struct {
	taps []tap

	// trace, when set, receives per-row totals of generated and distributed
	// error magnitudes. Only tests use it.
	trace func(y int, generated, distributed float64)
}

// newDiffuser flattens a dither/v2 kernel into taps. The current pixel is
// the cell just before the first non-zero weight of the top row.
func newDiffuser(kernel dither.ErrorDiffusionMatrix) *diffuser {
	cur := 0
	for i, w := range kernel[0] {
		if w != 0 {
			cur = i - 1
			break
		}
	}
	var taps []tap
	for dy, row := range kernel {
		for j, w := range row {
			if w == 0 {
				continue
			}
			dx := j - cur
			if dy == 0 && dx <= 0 {
				continue
			}
			taps = append(taps, tap{dx: dx, dy: dy, weight: float32(w)})
		}
	}
	return &diffuser{taps: taps}
}

func (d *diffuser) run(g *IntensityGrid) *BitGrid {
	out := NewBitGrid(g.Width, g.Height)
	work := make([]float32, len(g.Pix))
	for i, v := range g.Pix {
		work[i] = float32(v)
	}

	for y := 0; y < g.Height; y++ {
		var generated, distributed float64
		for x := 0; x < g.Width; x++ {
			old := work[y*g.Width+x]
			quantized := float32(255)
			if old < thresholdLevel {
				quantized = 0
				out.Set(x, y, true)
			}
			e := old - quantized
			if e == 0 {
				continue
			}
			generated += abs64(float64(e))
			for _, t := range d.taps {
				nx, ny := x+t.dx, y+t.dy
				if nx < 0 || nx >= g.Width || ny >= g.Height {
					continue
				}
				share := e * t.weight
				distributed += abs64(float64(share))
				idx := ny*g.Width + nx
				work[idx] = clamp255(work[idx] + share)
			}
		}
		if d.trace != nil {
			d.trace(y, generated, distributed)
		}
	}
	return out
}

func clamp255(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return v
}

func abs64(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
