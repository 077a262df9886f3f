package document

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/jaedson-barbosa/thermo-print-studio/raster"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// 错误信息使用 JSON 字段名，与存储格式一致
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks the document header and section ID uniqueness. It does not
// look inside sections; see ValidateAll.
func (d *Document) Validate() error {
	if d == nil {
		return fmt.Errorf("%w: nil document", ErrInvalidDocument)
	}
	if err := validate.Struct(d); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidDocument, describe(err))
	}
	seen := make(map[string]int, len(d.Sections))
	for i, s := range d.Sections {
		if s == nil {
			return fmt.Errorf("%w: section %d is nil", ErrInvalidDocument, i)
		}
		if prev, dup := seen[s.SectionID()]; dup {
			return fmt.Errorf("%w: sections %d and %d share id %q", ErrInvalidDocument, prev, i, s.SectionID())
		}
		seen[s.SectionID()] = i
	}
	return nil
}

// ValidateAll 校验文档头与全部段落，返回 errors.Join 后的结果。
func (d *Document) ValidateAll() error {
	if err := d.Validate(); err != nil {
		return err
	}
	var errs []error
	for i, s := range d.Sections {
		if err := s.Validate(d.WidthMm); err != nil {
			errs = append(errs, fmt.Errorf("section %d (%s): %w", i, s.SectionID(), err))
		}
	}
	return errors.Join(errs...)
}

// Validate 检查字体类别、字号与对齐方式。
func (s *TextSection) Validate(float64) error {
	if err := validate.Struct(s); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidSection, describe(err))
	}
	if !s.FontFamily.Valid() {
		return fmt.Errorf("%w: unsupported font family %q", ErrInvalidSection, s.FontFamily)
	}
	return nil
}

// Validate 检查图片数据、宽度与光栅化方式。未知的光栅化方式返回
// raster.ErrUnsupportedMethod，调用方应将其视为致命错误。
func (s *ImageSection) Validate(docWidthMm float64) error {
	if !s.Rasterization.Valid() {
		return fmt.Errorf("%w: %q", raster.ErrUnsupportedMethod, s.Rasterization)
	}
	if err := validate.Struct(s); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidSection, describe(err))
	}
	if s.WidthMm > docWidthMm {
		return fmt.Errorf("%w: image is %gmm, paper is %gmm", ErrSectionWidthExceedsPage, s.WidthMm, docWidthMm)
	}
	if s.decodeErr != nil {
		return fmt.Errorf("%w: %v", raster.ErrInvalidImage, s.decodeErr)
	}
	if s.Image == nil {
		return fmt.Errorf("%w: no image data", raster.ErrInvalidImage)
	}
	return nil
}

// describe flattens validator errors into "field: rule" pairs.
func describe(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, e := range verrs {
		parts = append(parts, fmt.Sprintf("%s %s", e.Field(), rule(e)))
	}
	return strings.Join(parts, "; ")
}

func rule(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "gte":
		return "must be >= " + e.Param()
	case "lte":
		return "must be <= " + e.Param()
	case "max":
		return "must be at most " + e.Param() + " characters"
	case "oneof":
		return "must be one of: " + e.Param()
	default:
		return "is invalid"
	}
}
