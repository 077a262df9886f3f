package text

import (
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/tdewolff/canvas"
	"github.com/tdewolff/canvas/renderers/rasterizer"

	"github.com/jaedson-barbosa/thermo-print-studio/fonts"
	"github.com/jaedson-barbosa/thermo-print-studio/raster"
	"github.com/jaedson-barbosa/thermo-print-studio/units"
)

// Align 是行内水平对齐方式。
type Align string

const (
	AlignLeft   Align = "left"
	AlignCenter Align = "center"
	AlignRight  Align = "right"
)

// ParseAlign 解析对齐方式，支持 start/end 别名，空串视为 left。
func ParseAlign(s string) (Align, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "left", "start":
		return AlignLeft, nil
	case "center", "centre":
		return AlignCenter, nil
	case "right", "end":
		return AlignRight, nil
	}
	return "", fmt.Errorf("unknown text align %q", s)
}

// Offset returns the horizontal position of a line of lineWidthPx inside widthPx.
func (a Align) Offset(widthPx, lineWidthPx int) int {
	free := widthPx - lineWidthPx
	if free <= 0 {
		return 0
	}
	switch a {
	case AlignCenter:
		return free / 2
	case AlignRight:
		return free
	default:
		return 0
	}
}

// Style 描述文本段落的字体与对齐。
type Style struct {
	Family fonts.Family
	SizePt float64
	Bold   bool
	Align  Align
}

// Line 是排版后的一行：内容、像素宽度与对齐后的水平偏移。
type Line struct {
	Content  string `json:"content"`
	WidthPx  int    `json:"widthPx"`
	OffsetPx int    `json:"offsetPx"`
}

// coverageThreshold: a pixel is black when at least half of it is covered.
const coverageThreshold = 128

// Rasterizer lays out and rasterizes text blocks with github.com/tdewolff/canvas.
// Font families are loaded lazily and cached under a mutex; layout and drawing
// only read the resulting faces, so a Rasterizer is safe for concurrent use.
type Rasterizer struct {
	device units.Device

	mu       sync.Mutex
	families map[fonts.Family]*canvas.FontFamily
}

// NewRasterizer creates a rasterizer for the given mm→px factor.
func NewRasterizer(mmToPx float64) *Rasterizer {
	return &Rasterizer{
		device:   units.NewDevice(mmToPx),
		families: map[fonts.Family]*canvas.FontFamily{},
	}
}

// Device returns the mm/pt→px mapping used by the rasterizer.
func (r *Rasterizer) Device() units.Device { return r.device }

// LineHeightPx returns the line height for a style.
func (r *Rasterizer) LineHeightPx(style Style) int {
	return r.device.LineHeightPx(style.SizePt)
}

// Layout 贪心折行并计算每行宽度与对齐偏移；空文本返回 nil。
func (r *Rasterizer) Layout(content string, style Style, widthPx int) ([]Line, error) {
	face, err := r.fontFace(style)
	if err != nil {
		return nil, err
	}
	return r.layout(content, style, widthPx, face)
}

// Render 将文本渲染为 widthPx 宽的位图，高度为行数 × 行高。
// 空文本得到零高度的位图（空段落不占纵向空间）。
func (r *Rasterizer) Render(content string, style Style, widthPx int) (*raster.BitGrid, error) {
	if widthPx <= 0 {
		return nil, fmt.Errorf("text: width must be positive, got %d", widthPx)
	}
	face, err := r.fontFace(style)
	if err != nil {
		return nil, err
	}
	lines, err := r.layout(content, style, widthPx, face)
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return raster.NewBitGrid(widthPx, 0), nil
	}

	lineHeight := r.device.LineHeightPx(style.SizePt)
	height := lineHeight * len(lines)

	c := canvas.New(r.device.PxToMm(float64(widthPx)), r.device.PxToMm(float64(height)))
	ctx := canvas.NewContext(c)
	ctx.SetCoordSystem(canvas.CartesianIV) // 左上角为原点，与位图坐标一致

	metrics := face.Metrics()
	ascent := metrics.Ascent * r.device.MmToPx
	descent := math.Abs(metrics.Descent) * r.device.MmToPx
	halfLeading := (float64(lineHeight) - ascent - descent) / 2

	for i, line := range lines {
		if strings.TrimSpace(line.Content) == "" {
			continue
		}
		baseline := float64(i*lineHeight) + halfLeading + ascent
		textLine := canvas.NewTextLine(face, line.Content, canvas.Left)
		ctx.DrawText(r.device.PxToMm(float64(line.OffsetPx)), r.device.PxToMm(baseline), textLine)
	}

	img := rasterizer.Draw(c, canvas.DPMM(r.device.MmToPx), canvas.DefaultColorSpace)
	bounds := img.Bounds()
	grid := raster.NewBitGrid(widthPx, height)
	for y := 0; y < height && y < bounds.Dy(); y++ {
		for x := 0; x < widthPx && x < bounds.Dx(); x++ {
			if img.RGBAAt(bounds.Min.X+x, bounds.Min.Y+y).A >= coverageThreshold {
				grid.Set(x, y, true)
			}
		}
	}
	return grid, nil
}

func (r *Rasterizer) layout(content string, style Style, widthPx int, face *canvas.FontFace) ([]Line, error) {
	if widthPx <= 0 {
		return nil, fmt.Errorf("text: width must be positive, got %d", widthPx)
	}
	measure := func(s string) float64 {
		return face.TextWidth(s) * r.device.MmToPx
	}
	wrapped := greedyWrap(content, float64(widthPx), measure)
	lines := make([]Line, 0, len(wrapped))
	for _, s := range wrapped {
		w := ceilPx(measure(s))
		if w > widthPx {
			w = widthPx
		}
		if w < 0 {
			w = 0
		}
		lines = append(lines, Line{
			Content:  s,
			WidthPx:  w,
			OffsetPx: style.Align.Offset(widthPx, w),
		})
	}
	return lines, nil
}

// fontFace 只在查找或加载字体族时持锁。
func (r *Rasterizer) fontFace(style Style) (*canvas.FontFace, error) {
	if style.SizePt <= 0 {
		return nil, fmt.Errorf("text: font size must be positive, got %g", style.SizePt)
	}
	r.mu.Lock()
	family, err := r.ensureFontFamily(style.Family)
	r.mu.Unlock()
	if err != nil {
		return nil, err
	}
	fontStyle := canvas.FontRegular
	if style.Bold {
		fontStyle = canvas.FontBold
	}
	return family.Face(style.SizePt, canvas.Black, fontStyle, canvas.FontNormal), nil
}

// ensureFontFamily must be called with r.mu held.
func (r *Rasterizer) ensureFontFamily(family fonts.Family) (*canvas.FontFamily, error) {
	if f, ok := r.families[family]; ok {
		return f, nil
	}
	regular, err := fonts.Load(family, false)
	if err != nil {
		return nil, err
	}
	bold, err := fonts.Load(family, true)
	if err != nil {
		return nil, err
	}
	f := canvas.NewFontFamily(string(family))
	if err := f.LoadFont(regular, 0, canvas.FontRegular); err != nil {
		return nil, fmt.Errorf("加载字体 %s 失败: %w", family, err)
	}
	if err := f.LoadFont(bold, 0, canvas.FontBold); err != nil {
		return nil, fmt.Errorf("加载字体 %s bold 失败: %w", family, err)
	}
	r.families[family] = f
	return f, nil
}
