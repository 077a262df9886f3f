package bitmap

import (
	"bytes"
	"fmt"
	"image/png"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jaedson-barbosa/thermo-print-studio/document"
	"github.com/jaedson-barbosa/thermo-print-studio/layout"
	"github.com/jaedson-barbosa/thermo-print-studio/raster"
	"github.com/jaedson-barbosa/thermo-print-studio/renderer"
	"github.com/jaedson-barbosa/thermo-print-studio/text"
)

// bars 渲染高度等于内容长度、左半边涂黑的文本块。
type bars struct{}

func (bars) Render(content string, _ text.Style, widthPx int) (*raster.BitGrid, error) {
	g := raster.NewBitGrid(widthPx, len(content))
	for y := 0; y < g.Height(); y++ {
		for x := 0; x < widthPx/2; x++ {
			g.Set(x, y, true)
		}
	}
	return g, nil
}

func compose(t *testing.T, maxHeight int, heights ...int) *layout.Result {
	t.Helper()
	doc := document.New("bars", 40)
	for _, h := range heights {
		doc.Append(document.NewTextSection(strings.Repeat("x", h)))
	}
	opts := layout.DefaultOptions()
	opts.TextRenderer = bars{}
	res, err := layout.NewCompositor(opts).Compose(doc, maxHeight)
	require.NoError(t, err)
	return res
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat(".PNG")
	require.NoError(t, err)
	assert.Equal(t, PNG, f)
	f, err = ParseFormat("pbm")
	require.NoError(t, err)
	assert.Equal(t, PBM, f)
	_, err = ParseFormat(".bmp")
	assert.Error(t, err)
}

func TestPBMIsPackedForm(t *testing.T) {
	res := compose(t, 0, 3)
	data, err := NewRenderer(PBM).Render(res)
	require.NoError(t, err)

	// 40mm → 151px，每行 19 字节
	header := fmt.Sprintf("P4\n%d %d\n", 151, 3)
	require.True(t, bytes.HasPrefix(data, []byte(header)))
	body := data[len(header):]
	require.Len(t, body, 19*3)
	assert.Equal(t, byte(0xff), body[0])
	assert.Equal(t, byte(0xe0), body[9]) // 像素 72..79：72..74 为黑
	assert.Equal(t, byte(0x00), body[18])
}

func TestPBMConcatenatesPages(t *testing.T) {
	res := compose(t, 10, 5, 5)
	data, err := NewRenderer(PBM).Render(res)
	require.NoError(t, err)
	assert.Equal(t, 2, bytes.Count(data, []byte("P4\n")))
}

func TestPNGStripsPagesTogether(t *testing.T) {
	res := compose(t, 10, 5, 7)
	data, err := NewRenderer(PNG).Render(res)
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 151, img.Bounds().Dx())
	assert.Equal(t, 12, img.Bounds().Dy())
	r, _, _, _ := img.At(0, 11).RGBA()
	assert.Equal(t, uint32(0), r)
	r, _, _, _ = img.At(150, 11).RGBA()
	assert.Equal(t, uint32(0xffff), r)
}

func TestPNGEmptyDocument(t *testing.T) {
	res := compose(t, 0, 0)
	require.Equal(t, 1, res.PageCount())
	require.Equal(t, 0, res.Plan.Pages[0].HeightPx)

	data, err := NewRenderer(PNG).Render(res)
	require.NoError(t, err)
	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 151, img.Bounds().Dx())
	assert.Equal(t, 1, img.Bounds().Dy())
	r, _, _, _ := img.At(0, 0).RGBA()
	assert.Equal(t, uint32(0xffff), r)

	files, err := NewRenderer(PNG).RenderPages(compose(t, 0))
	require.NoError(t, err)
	require.Len(t, files, 1)
	img, err = png.Decode(bytes.NewReader(files[0]))
	require.NoError(t, err)
	assert.Equal(t, 1, img.Bounds().Dy())
}

func TestRenderPagesOneFilePerPage(t *testing.T) {
	res := compose(t, 10, 5, 7, 3)
	files, err := NewRenderer(PNG).RenderPages(res)
	require.NoError(t, err)
	require.Len(t, files, 3)

	img, err := png.Decode(bytes.NewReader(files[1]))
	require.NoError(t, err)
	assert.Equal(t, 7, img.Bounds().Dy())
}

func TestRenderConsumesResult(t *testing.T) {
	res := compose(t, 0, 4)
	_, err := NewRenderer(PBM).Render(res)
	require.NoError(t, err)
	_, err = NewRenderer(PBM).Render(res)
	assert.ErrorIs(t, err, renderer.ErrNoPages)
}
