package dsl

import (
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/jaedson-barbosa/thermo-print-studio/binding"
	"github.com/jaedson-barbosa/thermo-print-studio/document"
	"github.com/jaedson-barbosa/thermo-print-studio/fonts"
	"github.com/jaedson-barbosa/thermo-print-studio/raster"
	"github.com/jaedson-barbosa/thermo-print-studio/text"
	"github.com/jaedson-barbosa/thermo-print-studio/units"
)

// ErrBuild 表示 AST 无法转换为文档（未知命令、参数缺失等）。
var ErrBuild = errors.New("dsl: build failed")

// ImageLoader 读取图片段落引用的文件。
type ImageLoader func(path string) (image.Image, error)

// BuildOptions 配置 AST → 文档的转换。
type BuildOptions struct {
	// BaseDir 是相对图片路径的基准目录。
	BaseDir string
	// LoadImage 为 nil 时从 BaseDir 读取文件；"data:" 开头的路径总是按 data URL 解码。
	LoadImage ImageLoader
}

// Build 将 receipt AST 转为文档，并用 data 填充文本中的 ${path} 占位符。
func Build(r *Receipt, data any, opts BuildOptions) (*document.Document, error) {
	if r == nil || r.Body == nil {
		return nil, fmt.Errorf("%w: empty receipt", ErrBuild)
	}
	load := opts.LoadImage
	if load == nil {
		load = fileLoader(opts.BaseDir)
	}

	widthMm := document.DefaultWidthMm
	for _, o := range r.Options {
		if o.Setting == nil || o.Setting.Key != "width" {
			return nil, fmt.Errorf("%w: %s: unknown receipt option %s", ErrBuild, o.Pos, o.describe())
		}
		mm, err := lengthMM(o.Setting.Value)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: receipt width: %v", ErrBuild, o.Pos, err)
		}
		widthMm = mm
	}
	doc := document.New(binding.Interpolate(string(r.Name), data), widthMm)

	for _, st := range r.Body.Statements {
		var (
			s   document.Section
			err error
		)
		switch {
		case st.Text != nil:
			s = document.NewTextSection(binding.Interpolate(string(st.Text.Value), data))
		case st.Command != nil:
			switch st.Command.Name {
			case "text":
				s, err = buildText(st.Command, data)
			case "image":
				s, err = buildImage(st.Command, doc.WidthMm, load)
			default:
				err = fmt.Errorf("%w: %s: unknown command %q", ErrBuild, st.Command.Pos, st.Command.Name)
			}
		}
		if err != nil {
			return nil, err
		}
		if s != nil {
			doc.Sections = append(doc.Sections, s)
		}
	}
	return doc, nil
}

func buildText(cmd *Command, data any) (*document.TextSection, error) {
	s := document.NewTextSection("")
	var parts []string
	for _, o := range cmd.Options {
		switch {
		case o.Text != nil:
			parts = append(parts, string(*o.Text))
		case o.Flag == "bold":
			s.Bold = true
		case o.Flag == "regular":
			s.Bold = false
		case o.Flag != "":
			fam, err := fonts.ParseFamily(o.Flag)
			if err != nil {
				return nil, fmt.Errorf("%w: %s: unknown text option %q", ErrBuild, o.Pos, o.Flag)
			}
			s.FontFamily = fam
		default:
			if err := applyTextSetting(s, o.Setting); err != nil {
				return nil, fmt.Errorf("%w: %s: %s: %v", ErrBuild, o.Pos, o.Setting.Key, err)
			}
		}
	}
	if cmd.Block != nil {
		for _, st := range cmd.Block.Statements {
			if st.Text == nil {
				return nil, fmt.Errorf("%w: %s: text block may only contain strings", ErrBuild, cmd.Pos)
			}
			parts = append(parts, string(st.Text.Value))
		}
	}
	s.Content = binding.Interpolate(strings.Join(parts, "\n"), data)
	return s, nil
}

func applyTextSetting(s *document.TextSection, set *Setting) error {
	switch set.Key {
	case "size":
		if set.Value.Length == nil {
			return fmt.Errorf("expected a size, got %q", set.Value)
		}
		pt, err := units.Length(*set.Value.Length).ToPT()
		if err != nil {
			return err
		}
		s.FontSizePt = pt
	case "align":
		align, err := text.ParseAlign(set.Value.String())
		if err != nil {
			return err
		}
		s.Align = align
	case "font":
		fam, err := fonts.ParseFamily(set.Value.String())
		if err != nil {
			return err
		}
		s.FontFamily = fam
	default:
		return fmt.Errorf("not a text option")
	}
	return nil
}

func buildImage(cmd *Command, docWidthMm float64, load ImageLoader) (*document.ImageSection, error) {
	s := document.NewImageSection(nil, docWidthMm)
	var src string
	for _, o := range cmd.Options {
		switch {
		case o.Text != nil && src == "":
			src = string(*o.Text)
		case o.Setting != nil && o.Setting.Key == "width":
			mm, err := lengthMM(o.Setting.Value)
			if err != nil {
				return nil, fmt.Errorf("%w: %s: image width: %v", ErrBuild, o.Pos, err)
			}
			s.WidthMm = mm
		case o.Setting != nil && o.Setting.Key == "dither":
			m, err := raster.ParseMethod(o.Setting.Value.String())
			if err != nil {
				return nil, fmt.Errorf("%s: %w", o.Pos, err)
			}
			s.Rasterization = m
		default:
			return nil, fmt.Errorf("%w: %s: unexpected image option %s", ErrBuild, o.Pos, o.describe())
		}
	}
	if src == "" {
		return nil, fmt.Errorf("%w: %s: image needs a source path", ErrBuild, cmd.Pos)
	}
	if cmd.Block != nil {
		return nil, fmt.Errorf("%w: %s: image takes no block", ErrBuild, cmd.Pos)
	}

	var (
		img image.Image
		err error
	)
	if strings.HasPrefix(src, "data:") {
		img, err = document.DecodeDataURL(src)
	} else {
		img, err = load(src)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: 读取图片 %q 失败: %w", cmd.Pos, src, err)
	}
	s.Image = img
	return s, nil
}

func fileLoader(baseDir string) ImageLoader {
	return func(path string) (image.Image, error) {
		if !filepath.IsAbs(path) {
			path = filepath.Join(baseDir, path)
		}
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		img, _, err := image.Decode(f)
		return img, err
	}
}

// lengthMM 把数值参数换算为毫米；不带单位的数按毫米处理。
func lengthMM(v *Value) (float64, error) {
	if v == nil || v.Length == nil {
		return 0, fmt.Errorf("expected a length, got %q", v)
	}
	return units.Length(*v.Length).ToMM()
}

func (o *Option) describe() string {
	switch {
	case o.Setting != nil:
		return fmt.Sprintf("%q", o.Setting.Key+" "+o.Setting.Value.String())
	case o.Text != nil:
		return strconv.Quote(string(*o.Text))
	}
	return fmt.Sprintf("%q", o.Flag)
}
