// Package document 定义小票文档模型：有序的文本/图片段落及其校验规则。
package document

import (
	"errors"
	"fmt"
	"image"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/jaedson-barbosa/thermo-print-studio/fonts"
	"github.com/jaedson-barbosa/thermo-print-studio/raster"
	"github.com/jaedson-barbosa/thermo-print-studio/text"
)

var (
	// ErrInvalidDocument 表示文档头（宽度、ID 等）不合法，整个渲染无法进行。
	ErrInvalidDocument = errors.New("document: invalid document")
	// ErrInvalidSection 表示单个段落的字段不合法。
	ErrInvalidSection = errors.New("document: invalid section")
	// ErrSectionWidthExceedsPage 表示图片段落宽于纸张。
	ErrSectionWidthExceedsPage = errors.New("document: section width exceeds page width")
)

// Paper and section limits, in millimetres and points.
const (
	MinWidthMm     = 40.0
	MaxWidthMm     = 80.0
	DefaultWidthMm = 58.0

	MinImageWidthMm = 10.0
	MaxImageWidthMm = 80.0

	MinFontSizePt     = 8.0
	MaxFontSizePt     = 72.0
	DefaultFontSizePt = 14.0
)

// Kind 区分段落类型，同时是 JSON 中的 "type" 字段。
type Kind string

const (
	KindText  Kind = "text"
	KindImage Kind = "image"
)

// Section 是封闭的和类型：只有 *TextSection 与 *ImageSection 实现它。
type Section interface {
	SectionID() string
	Kind() Kind
	// Validate 检查段落自身的字段，以及与纸张宽度的关系。
	Validate(docWidthMm float64) error
	isSection()
}

// TextSection 是一段可折行的文本。
type TextSection struct {
	ID         string       `json:"id" validate:"required"`
	Content    string       `json:"content"`
	FontFamily fonts.Family `json:"fontFamily" validate:"required"`
	FontSizePt float64      `json:"fontSize" validate:"gte=8,lte=72"`
	Bold       bool         `json:"bold"`
	Align      text.Align   `json:"align" validate:"oneof=left center right"`
}

// ImageSection 是一张需要抖动为 1-bit 的图片。
type ImageSection struct {
	ID            string        `json:"id" validate:"required"`
	Image         image.Image   `json:"-" validate:"-"`
	WidthMm       float64       `json:"width" validate:"gte=10,lte=80"`
	Rasterization raster.Method `json:"rasterization" validate:"required"`

	// decodeErr keeps an image payload failure from Decode so it surfaces
	// as a per-section error at render time.
	decodeErr error
}

func (s *TextSection) SectionID() string  { return s.ID }
func (s *TextSection) Kind() Kind         { return KindText }
func (*TextSection) isSection()           {}
func (s *ImageSection) SectionID() string { return s.ID }
func (s *ImageSection) Kind() Kind        { return KindImage }
func (*ImageSection) isSection()          {}

// Style converts the section's typography into a text.Style.
func (s *TextSection) Style() text.Style {
	return text.Style{
		Family: s.FontFamily,
		SizePt: s.FontSizePt,
		Bold:   s.Bold,
		Align:  s.Align,
	}
}

// Document 是一张小票：名称、纸宽与按打印顺序排列的段落。
type Document struct {
	ID        string    `json:"id" validate:"required"`
	Name      string    `json:"name" validate:"max=200"`
	WidthMm   float64   `json:"width" validate:"gte=40,lte=80"`
	Sections  []Section `json:"-" validate:"-"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ClampWidth 将纸宽限制在 [40, 80] mm；NaN 视为默认宽度。
func ClampWidth(mm float64) float64 {
	if math.IsNaN(mm) {
		return DefaultWidthMm
	}
	return math.Max(MinWidthMm, math.Min(MaxWidthMm, mm))
}

// New 创建空文档，纸宽被钳制到合法范围。
func New(name string, widthMm float64) *Document {
	now := time.Now().UTC()
	return &Document{
		ID:        uuid.NewString(),
		Name:      name,
		WidthMm:   ClampWidth(widthMm),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// NewTextSection 返回编辑器默认的文本段落：monospace 14pt 左对齐。
func NewTextSection(content string) *TextSection {
	return &TextSection{
		ID:         uuid.NewString(),
		Content:    content,
		FontFamily: fonts.Monospace,
		FontSizePt: DefaultFontSizePt,
		Align:      text.AlignLeft,
	}
}

// NewImageSection 返回与纸同宽、使用 Floyd–Steinberg 的图片段落。
func NewImageSection(img image.Image, docWidthMm float64) *ImageSection {
	return &ImageSection{
		ID:            uuid.NewString(),
		Image:         img,
		WidthMm:       docWidthMm,
		Rasterization: raster.FloydSteinberg,
	}
}

// Touch 更新修改时间。
func (d *Document) Touch() { d.UpdatedAt = time.Now().UTC() }

// Append adds sections at the end of the print order.
func (d *Document) Append(sections ...Section) {
	d.Sections = append(d.Sections, sections...)
	d.Touch()
}

// SetWidth changes the paper width, clamped to the supported range.
func (d *Document) SetWidth(mm float64) {
	d.WidthMm = ClampWidth(mm)
	d.Touch()
}

// Rename 修改文档名称。
func (d *Document) Rename(name string) {
	d.Name = name
	d.Touch()
}

// Remove deletes the section with the given ID and reports whether it existed.
func (d *Document) Remove(id string) bool {
	for i, s := range d.Sections {
		if s.SectionID() == id {
			d.Sections = append(d.Sections[:i], d.Sections[i+1:]...)
			d.Touch()
			return true
		}
	}
	return false
}

// Move 将段落从 from 移到 to（均为下标），越界时返回错误。
func (d *Document) Move(from, to int) error {
	n := len(d.Sections)
	if from < 0 || from >= n || to < 0 || to >= n {
		return fmt.Errorf("document: move %d→%d out of range [0,%d)", from, to, n)
	}
	s := d.Sections[from]
	d.Sections = append(d.Sections[:from], d.Sections[from+1:]...)
	d.Sections = append(d.Sections[:to], append([]Section{s}, d.Sections[to:]...)...)
	d.Touch()
	return nil
}
