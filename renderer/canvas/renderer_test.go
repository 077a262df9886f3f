package canvasrenderer

import (
	"bytes"
	"testing"

	"github.com/jaedson-barbosa/thermo-print-studio/document"
	"github.com/jaedson-barbosa/thermo-print-studio/layout"
	"github.com/jaedson-barbosa/thermo-print-studio/renderer"
)

func TestRenderPDF(t *testing.T) {
	doc := document.New("Recibo", 58)
	doc.Append(document.NewTextSection("Hello\nWorld"), document.NewTextSection("Obrigado"))

	res, err := layout.NewCompositor(layout.DefaultOptions()).Compose(doc, 30)
	if err != nil {
		t.Fatalf("compose: %v", err)
	}
	if res.PageCount() != 2 {
		t.Fatalf("expected 2 pages, got %d", res.PageCount())
	}

	data, err := NewRenderer(Options{}).Render(res)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF")) {
		t.Fatalf("output is not a PDF: %q", data[:min(len(data), 16)])
	}
}

func TestRenderEmptyDocument(t *testing.T) {
	res, err := layout.NewCompositor(layout.DefaultOptions()).Compose(document.New("empty", 58), 0)
	if err != nil {
		t.Fatalf("compose: %v", err)
	}
	data, err := NewRenderer(Options{}).Render(res)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF")) {
		t.Fatalf("output is not a PDF")
	}
	if _, err := NewRenderer(Options{}).Render(res); err != renderer.ErrNoPages {
		t.Fatalf("expected ErrNoPages on second render, got %v", err)
	}
}
