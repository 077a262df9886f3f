package layout

import (
	"bytes"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jaedson-barbosa/thermo-print-studio/document"
	"github.com/jaedson-barbosa/thermo-print-studio/fonts"
	"github.com/jaedson-barbosa/thermo-print-studio/raster"
	"github.com/jaedson-barbosa/thermo-print-studio/text"
)

// stubText 是测试用的文本后端：高度等于内容的字节数，整块涂黑。
type stubText struct{}

func (stubText) Render(content string, _ text.Style, widthPx int) (*raster.BitGrid, error) {
	g := raster.NewBitGrid(widthPx, len(content))
	for y := 0; y < g.Height(); y++ {
		for x := 0; x < widthPx; x++ {
			g.Set(x, y, true)
		}
	}
	return g, nil
}

func stubCompositor(margin int) *Compositor {
	opts := DefaultOptions()
	opts.MarginPx = margin
	opts.TextRenderer = stubText{}
	return NewCompositor(opts)
}

func blocks(heights ...int) *document.Document {
	doc := document.New("stub", 58)
	for _, h := range heights {
		doc.Append(document.NewTextSection(string(bytes.Repeat([]byte{'x'}, h))))
	}
	return doc
}

func pageHeights(res *Result) []int {
	var out []int
	for _, p := range res.Plan.Pages {
		out = append(out, p.HeightPx)
	}
	return out
}

func checkerboard() image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.Black)
	img.Set(1, 0, color.White)
	img.Set(0, 1, color.White)
	img.Set(1, 1, color.Black)
	return img
}

func TestComposeTextAndCheckerboard(t *testing.T) {
	doc := document.New("scenario", 58)
	ts := document.NewTextSection("Total: $10")
	ts.FontFamily = fonts.Monospace
	is := document.NewImageSection(checkerboard(), 58)
	is.WidthMm = 40
	is.Rasterization = raster.Atkinson
	doc.Append(ts, is)

	res, err := NewCompositor(DefaultOptions()).Compose(doc, 0)
	require.NoError(t, err)
	require.Equal(t, 1, res.PageCount())

	const lineHeight, margin, imageSide, pageWidth = 22, 8, 151, 219
	assert.Equal(t, pageWidth, res.Plan.PageWidthPx)
	assert.Equal(t, []int{lineHeight + margin + imageSide}, pageHeights(res))

	img := res.Plan.Pages[0].Placements[1]
	assert.Equal(t, (pageWidth-imageSide)/2, img.X)
	assert.Equal(t, lineHeight+margin, img.Y)
	assert.Equal(t, imageSide, img.WidthPx)

	pages := slices.Collect(res.Pages())
	require.Len(t, pages, 1)
	page := pages[0]
	assert.Equal(t, pageWidth, page.Width())

	at := func(x, y int) bool { return page.BitAt(img.X+x, img.Y+y) }
	assert.True(t, at(2, 2), "top-left quadrant is black")
	assert.False(t, at(imageSide-3, 2), "top-right quadrant is white")
	assert.False(t, at(2, imageSide-3), "bottom-left quadrant is white")
	assert.True(t, at(imageSide-3, imageSide-3), "bottom-right quadrant is black")

	// 间距行保持空白。
	for y := lineHeight; y < lineHeight+margin; y++ {
		for x := 0; x < pageWidth; x++ {
			require.False(t, page.BitAt(x, y))
		}
	}
}

func TestComposeImageWiderThanPage(t *testing.T) {
	doc := document.New("overflow", 40)
	wide := document.NewImageSection(checkerboard(), 40)
	wide.WidthMm = 45
	doc.Append(wide)

	_, err := NewCompositor(DefaultOptions()).Compose(doc, 0)
	require.Error(t, err)
	assert.ErrorIs(t, err, document.ErrSectionWidthExceedsPage)
	var se *SectionError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, 0, se.Index)
	assert.Equal(t, wide.ID, se.SectionID)

	opts := DefaultOptions()
	opts.SkipInvalidSections = true
	res, err := NewCompositor(opts).Compose(doc, 0)
	require.NoError(t, err)
	require.Len(t, res.Failures, 1)
	assert.ErrorIs(t, res.Failures[0], document.ErrSectionWidthExceedsPage)
	assert.Empty(t, res.Plan.Pages[0].Placements)
}

func TestComposeSkipsInvalidAndKeepsRest(t *testing.T) {
	doc := blocks(10)
	doc.Append(document.NewImageSection(nil, 58))
	doc.Append(document.NewTextSection("yyyyy"))

	c := stubCompositor(8)
	_, err := c.Compose(doc, 0)
	assert.ErrorIs(t, err, raster.ErrInvalidImage)

	c.opts.SkipInvalidSections = true
	res, err := c.Compose(doc, 0)
	require.NoError(t, err)
	require.Len(t, res.Failures, 1)
	assert.Equal(t, 1, res.Failures[0].Index)
	assert.Equal(t, []int{10 + 8 + 5}, pageHeights(res))
}

func TestComposeUnsupportedMethodIsFatal(t *testing.T) {
	doc := blocks(10)
	bad := document.NewImageSection(checkerboard(), 58)
	bad.Rasterization = "sepia"
	doc.Append(bad)

	opts := DefaultOptions()
	opts.SkipInvalidSections = true
	opts.TextRenderer = stubText{}
	_, err := NewCompositor(opts).Compose(doc, 0)
	assert.ErrorIs(t, err, raster.ErrUnsupportedMethod)
}

func TestComposeInvalidDocument(t *testing.T) {
	doc := blocks(10)
	doc.WidthMm = 30
	_, err := stubCompositor(8).Compose(doc, 0)
	assert.ErrorIs(t, err, document.ErrInvalidDocument)

	_, err = stubCompositor(8).Compose(nil, 0)
	assert.ErrorIs(t, err, document.ErrInvalidDocument)
}

func TestComposePagination(t *testing.T) {
	cases := []struct {
		name    string
		heights []int
		max     int
		want    []int
	}{
		{"unlimited is one page", []int{10, 10, 10}, 0, []int{46}},
		{"break before overflowing section", []int{10, 10, 10}, 30, []int{28, 10}},
		{"exact fit", []int{10, 12}, 30, []int{30}},
		{"oversize alone", []int{10, 50, 10}, 30, []int{10, 50, 10}},
		{"zero height takes no space", []int{10, 0, 10}, 0, []int{28}},
		{"empty document", nil, 0, []int{0}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res, err := stubCompositor(8).Compose(blocks(tc.heights...), tc.max)
			require.NoError(t, err)
			assert.Equal(t, tc.want, pageHeights(res))
			for _, p := range res.Plan.Pages {
				if tc.max > 0 && !p.Oversize {
					assert.LessOrEqual(t, p.HeightPx, tc.max)
				}
			}
		})
	}
}

func TestComposeMarksOversizePage(t *testing.T) {
	res, err := stubCompositor(8).Compose(blocks(10, 50), 30)
	require.NoError(t, err)
	require.Len(t, res.Plan.Pages, 2)
	assert.False(t, res.Plan.Pages[0].Oversize)
	assert.True(t, res.Plan.Pages[1].Oversize)
}

func TestComposePreservesDocumentOrder(t *testing.T) {
	opts := DefaultOptions()
	opts.TextRenderer = stubText{}
	opts.Concurrency = 4
	res, err := NewCompositor(opts).Compose(blocks(5, 1, 9, 3, 7, 2), 0)
	require.NoError(t, err)

	var idx, ys []int
	for _, p := range res.Plan.Pages[0].Placements {
		idx = append(idx, p.SectionIndex)
		ys = append(ys, p.Y)
	}
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5}, idx)
	assert.Equal(t, []int{0, 13, 22, 39, 50, 65}, ys)
}

func TestComposeIsDeterministic(t *testing.T) {
	doc := document.New("det", 58)
	ts := document.NewTextSection("Café 12,50\nObrigado!")
	ts.Align = text.AlignCenter
	img := image.NewGray(image.Rect(0, 0, 16, 16))
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			img.SetGray(x, y, color.Gray{Y: uint8(x * 16)})
		}
	}
	doc.Append(ts)
	for _, m := range raster.Methods {
		s := document.NewImageSection(img, 30)
		s.Rasterization = m
		doc.Append(s)
	}

	c := NewCompositor(DefaultOptions())
	first, err := c.Compose(doc, 200)
	require.NoError(t, err)
	second, err := c.Compose(doc, 200)
	require.NoError(t, err)

	a := slices.Collect(first.Pages())
	b := slices.Collect(second.Pages())
	require.Equal(t, len(a), len(b))
	for i := range a {
		assert.Equal(t, a[i].Packed(), b[i].Packed())
	}
}

func TestPagesIsSingleUse(t *testing.T) {
	res, err := stubCompositor(8).Compose(blocks(10, 10), 15)
	require.NoError(t, err)
	assert.Len(t, slices.Collect(res.Pages()), 2)
	assert.Empty(t, slices.Collect(res.Pages()))
}

func TestWidthInvariant(t *testing.T) {
	doc := document.New("w", 80)
	doc.Append(document.NewTextSection("abc"), document.NewImageSection(checkerboard(), 30))
	res, err := stubCompositor(8).Compose(doc, 0)
	require.NoError(t, err)
	want := 302 // round(80 × 3.78)
	for _, p := range res.Plan.Pages[0].Placements {
		switch p.Kind {
		case document.KindText:
			assert.Equal(t, want, p.WidthPx)
		case document.KindImage:
			assert.LessOrEqual(t, p.WidthPx, want)
			assert.Equal(t, 113, p.WidthPx) // round(30 × 3.78)
		}
	}
}

func TestEncodeDebugJSON(t *testing.T) {
	doc := blocks(10)
	doc.Append(document.NewImageSection(nil, 58))
	c := stubCompositor(8)
	c.opts.SkipInvalidSections = true
	res, err := c.Compose(doc, 0)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, EncodeDebugJSON(&buf, res))
	var dump struct {
		Plan     Plan `json:"plan"`
		Failures []struct {
			Index int `json:"index"`
		} `json:"failures"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &dump))
	assert.Equal(t, 219, dump.Plan.PageWidthPx)
	require.Len(t, dump.Failures, 1)
	assert.Equal(t, 1, dump.Failures[0].Index)
}
