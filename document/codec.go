package document

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"github.com/jaedson-barbosa/thermo-print-studio/fonts"
	"github.com/jaedson-barbosa/thermo-print-studio/raster"
	"github.com/jaedson-barbosa/thermo-print-studio/text"
)

// 该文件实现编辑器存储格式的 JSON 编解码：图片以 base64 data URL 内嵌。

type wireDocument struct {
	ID        string        `json:"id"`
	Name      string        `json:"name"`
	Width     float64       `json:"width"`
	Sections  []wireSection `json:"sections"`
	CreatedAt string        `json:"createdAt,omitempty"`
	UpdatedAt string        `json:"updatedAt,omitempty"`
}

type wireSection struct {
	ID   string `json:"id"`
	Type Kind   `json:"type"`

	Content    string  `json:"content,omitempty"`
	FontFamily string  `json:"fontFamily,omitempty"`
	FontSize   float64 `json:"fontSize,omitempty"`
	Bold       bool    `json:"bold,omitempty"`
	Align      string  `json:"align,omitempty"`

	ImageData     string  `json:"imageData,omitempty"`
	Width         float64 `json:"width,omitempty"`
	Rasterization string  `json:"rasterization,omitempty"`
}

// Decode 读取编辑器存储格式的文档。
// 缺省字段取编辑器默认值；单个段落的非法取值保留下来，留给 Validate 按段落报告。
func Decode(r io.Reader) (*Document, error) {
	var w wireDocument
	dec := json.NewDecoder(r)
	if err := dec.Decode(&w); err != nil {
		return nil, fmt.Errorf("解析文档 JSON 失败: %w", err)
	}

	doc := &Document{
		ID:      w.ID,
		Name:    w.Name,
		WidthMm: w.Width,
	}
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	if doc.WidthMm == 0 {
		doc.WidthMm = DefaultWidthMm
	}
	var err error
	if doc.CreatedAt, err = parseTime(w.CreatedAt); err != nil {
		return nil, fmt.Errorf("%w: createdAt: %v", ErrInvalidDocument, err)
	}
	if doc.UpdatedAt, err = parseTime(w.UpdatedAt); err != nil {
		return nil, fmt.Errorf("%w: updatedAt: %v", ErrInvalidDocument, err)
	}

	for i, ws := range w.Sections {
		s, err := decodeSection(ws, doc.WidthMm)
		if err != nil {
			return nil, fmt.Errorf("section %d: %w", i, err)
		}
		doc.Sections = append(doc.Sections, s)
	}
	return doc, nil
}

func decodeSection(ws wireSection, docWidthMm float64) (Section, error) {
	id := ws.ID
	if id == "" {
		id = uuid.NewString()
	}
	switch ws.Type {
	case KindText:
		s := NewTextSection(ws.Content)
		s.ID = id
		s.Bold = ws.Bold
		if ws.FontFamily != "" {
			fam, err := fonts.ParseFamily(ws.FontFamily)
			if err != nil {
				fam = fonts.Family(ws.FontFamily)
			}
			s.FontFamily = fam
		}
		if ws.FontSize != 0 {
			s.FontSizePt = ws.FontSize
		}
		if ws.Align != "" {
			align, err := text.ParseAlign(ws.Align)
			if err != nil {
				align = text.Align(ws.Align)
			}
			s.Align = align
		}
		return s, nil

	case KindImage:
		s := NewImageSection(nil, docWidthMm)
		s.ID = id
		if ws.Width != 0 {
			s.WidthMm = ws.Width
		}
		if ws.Rasterization != "" {
			s.Rasterization = raster.Method(strings.ToLower(strings.TrimSpace(ws.Rasterization)))
		}
		if ws.ImageData != "" {
			s.Image, s.decodeErr = DecodeDataURL(ws.ImageData)
		}
		return s, nil
	}
	return nil, fmt.Errorf("%w: unknown section type %q", ErrInvalidSection, ws.Type)
}

// Encode writes the document in the storage shape; images are re-encoded as PNG data URLs.
func Encode(w io.Writer, doc *Document) error {
	if doc == nil {
		return fmt.Errorf("%w: nil document", ErrInvalidDocument)
	}
	out := wireDocument{
		ID:       doc.ID,
		Name:     doc.Name,
		Width:    doc.WidthMm,
		Sections: make([]wireSection, 0, len(doc.Sections)),
	}
	if !doc.CreatedAt.IsZero() {
		out.CreatedAt = doc.CreatedAt.Format(time.RFC3339Nano)
	}
	if !doc.UpdatedAt.IsZero() {
		out.UpdatedAt = doc.UpdatedAt.Format(time.RFC3339Nano)
	}

	for _, s := range doc.Sections {
		switch s := s.(type) {
		case *TextSection:
			out.Sections = append(out.Sections, wireSection{
				ID:         s.ID,
				Type:       KindText,
				Content:    s.Content,
				FontFamily: string(s.FontFamily),
				FontSize:   s.FontSizePt,
				Bold:       s.Bold,
				Align:      string(s.Align),
			})
		case *ImageSection:
			ws := wireSection{
				ID:            s.ID,
				Type:          KindImage,
				Width:         s.WidthMm,
				Rasterization: string(s.Rasterization),
			}
			if s.Image != nil {
				data, err := EncodeDataURL(s.Image)
				if err != nil {
					return fmt.Errorf("section %s: %w", s.ID, err)
				}
				ws.ImageData = data
			}
			out.Sections = append(out.Sections, ws)
		default:
			return fmt.Errorf("%w: unknown section %T", ErrInvalidSection, s)
		}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// DecodeDataURL 解码 "data:image/...;base64,..." 或裸 base64 图片数据。
// 支持 PNG、JPEG、GIF、BMP 与 WebP。
func DecodeDataURL(s string) (image.Image, error) {
	payload := strings.TrimSpace(s)
	if strings.HasPrefix(payload, "data:") {
		header, data, ok := strings.Cut(payload, ",")
		if !ok {
			return nil, errors.New("malformed data URL")
		}
		if !strings.HasSuffix(header, ";base64") {
			return nil, fmt.Errorf("data URL %q is not base64 encoded", header)
		}
		payload = data
	}
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("base64 解码失败: %w", err)
	}
	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("图片解码失败: %w", err)
	}
	return img, nil
}

// EncodeDataURL encodes img as a PNG data URL.
func EncodeDataURL(img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", fmt.Errorf("PNG 编码失败: %w", err)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339Nano, s)
}
