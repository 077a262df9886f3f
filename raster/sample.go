package raster

import (
	"errors"
	"fmt"
	"image"
	"math"

	"golang.org/x/image/draw"
)

// ErrInvalidImage 表示源图片为空或尺寸为零。
var ErrInvalidImage = errors.New("raster: invalid image")

// boxFilter averages every source pixel under the destination pixel. The
// x/image/draw scaler widens a kernel's support by the scale factor when
// downscaling, so a 0.5 support box becomes an area average.
var boxFilter = &draw.Kernel{
	Support: 0.5,
	At: func(t float64) float64 {
		return 1
	},
}

// Luminance weights (ITU-R BT.601).
const (
	lumR = 0.299
	lumG = 0.587
	lumB = 0.114
)

// Sample 将任意图片重采样到 targetWidthPx 宽并转换为灰度网格。
// 缩小时使用面积平均（box），放大时使用双线性插值，保持宽高比；
// 亮度在重采样后的颜色上计算，避免逐源像素计算带来的混叠。
// 透明像素按白纸处理。
func Sample(src image.Image, targetWidthPx int) (*IntensityGrid, error) {
	if src == nil {
		return nil, fmt.Errorf("%w: no image", ErrInvalidImage)
	}
	b := src.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, fmt.Errorf("%w: zero dimensions %dx%d", ErrInvalidImage, b.Dx(), b.Dy())
	}
	if err := checkBuffer(src); err != nil {
		return nil, err
	}
	if targetWidthPx <= 0 {
		return nil, fmt.Errorf("%w: target width %d", ErrInvalidImage, targetWidthPx)
	}

	targetHeightPx := int(math.Round(float64(targetWidthPx) * float64(b.Dy()) / float64(b.Dx())))
	if targetHeightPx < 1 {
		targetHeightPx = 1
	}

	dst, err := resample(src, targetWidthPx, targetHeightPx)
	if err != nil {
		return nil, err
	}

	grid := &IntensityGrid{
		Width:  targetWidthPx,
		Height: targetHeightPx,
		Pix:    make([]uint8, targetWidthPx*targetHeightPx),
	}
	for y := 0; y < targetHeightPx; y++ {
		for x := 0; x < targetWidthPx; x++ {
			c := dst.RGBAAt(x, y)
			lum := lumR*float64(c.R) + lumG*float64(c.G) + lumB*float64(c.B)
			grid.Pix[y*targetWidthPx+x] = clampByte(math.Round(lum))
		}
	}
	return grid, nil
}

// resample 把 src 缩放到白底的 RGBA 上。无法预先检查的图片类型在读取像素时
// 仍可能越界，这里把 panic 转成 ErrInvalidImage，避免拖垮调用方。
func resample(src image.Image, w, h int) (dst *image.RGBA, err error) {
	defer func() {
		if r := recover(); r != nil {
			dst, err = nil, fmt.Errorf("%w: unreadable pixels: %v", ErrInvalidImage, r)
		}
	}()
	dst = image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), image.White, image.Point{}, draw.Src)

	kernel := boxFilter
	if w > src.Bounds().Dx() {
		kernel = draw.BiLinear
	}
	kernel.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Over, nil)
	return dst, nil
}

// checkBuffer 检查标准库图片类型的像素切片是否覆盖整个 Rect。
func checkBuffer(src image.Image) error {
	r := src.Bounds()
	ok := true
	switch img := src.(type) {
	case *image.RGBA:
		ok = covers(len(img.Pix), img.PixOffset, r, 4)
	case *image.RGBA64:
		ok = covers(len(img.Pix), img.PixOffset, r, 8)
	case *image.NRGBA:
		ok = covers(len(img.Pix), img.PixOffset, r, 4)
	case *image.NRGBA64:
		ok = covers(len(img.Pix), img.PixOffset, r, 8)
	case *image.Gray:
		ok = covers(len(img.Pix), img.PixOffset, r, 1)
	case *image.Gray16:
		ok = covers(len(img.Pix), img.PixOffset, r, 2)
	case *image.Alpha:
		ok = covers(len(img.Pix), img.PixOffset, r, 1)
	case *image.Alpha16:
		ok = covers(len(img.Pix), img.PixOffset, r, 2)
	case *image.CMYK:
		ok = covers(len(img.Pix), img.PixOffset, r, 4)
	case *image.Paletted:
		ok = len(img.Palette) > 0 && covers(len(img.Pix), img.PixOffset, r, 1)
	case *image.NYCbCrA:
		ok = covers(len(img.A), img.AOffset, r, 1) && ycbcrCovers(&img.YCbCr)
	case *image.YCbCr:
		ok = ycbcrCovers(img)
	}
	if !ok {
		return fmt.Errorf("%w: pixel buffer smaller than %dx%d", ErrInvalidImage, r.Dx(), r.Dy())
	}
	return nil
}

// covers reports whether a buffer of length n holds every pixel of r, given
// the image's offset function and bytes per pixel.
func covers(n int, offset func(x, y int) int, r image.Rectangle, bpp int) bool {
	first := offset(r.Min.X, r.Min.Y)
	last := offset(r.Max.X-1, r.Max.Y-1)
	return first >= 0 && last >= first && last+bpp <= n
}

func ycbcrCovers(img *image.YCbCr) bool {
	r := img.Rect
	return covers(len(img.Y), img.YOffset, r, 1) &&
		covers(len(img.Cb), img.COffset, r, 1) &&
		covers(len(img.Cr), img.COffset, r, 1)
}

func clampByte(v float64) uint8 {
	switch {
	case v <= 0:
		return 0
	case v >= 255:
		return 255
	default:
		return uint8(v)
	}
}
