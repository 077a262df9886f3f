package main

import (
	"bytes"
	"encoding/json"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jaedson-barbosa/thermo-print-studio/config"
)

const receiptDSL = `receipt "Pedido ${id}" width 58mm {
  "Primeira linha"
  text monospace bold { "Total: ${total}" }
}`

func loadConfig(t *testing.T) *config.Config {
	t.Helper()
	t.Chdir(t.TempDir())
	cfg, err := config.Load("")
	require.NoError(t, err)
	return cfg
}

func writeInput(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestRunWritesPDFAndDebug(t *testing.T) {
	cfg := loadConfig(t)
	in := writeInput(t, "pedido.thermo", receiptDSL)
	out := filepath.Join(t.TempDir(), "out", "pedido.pdf")
	dbg := filepath.Join(t.TempDir(), "debug", "plan.json")

	files, err := run(job{
		Input:  in,
		Output: out,
		Debug:  dbg,
		Data:   map[string]any{"id": "42", "total": "9,90"},
		Config: cfg,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{out}, files)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF")))

	raw, err := os.ReadFile(dbg)
	require.NoError(t, err)
	var dump struct {
		Plan struct {
			Document    string `json:"document"`
			PageWidthPx int    `json:"pageWidthPx"`
		} `json:"plan"`
	}
	require.NoError(t, json.Unmarshal(raw, &dump))
	assert.Equal(t, 219, dump.Plan.PageWidthPx)
	assert.Equal(t, "Pedido 42", dump.Plan.Document)
}

func TestRunSplitsBitmapPages(t *testing.T) {
	cfg := loadConfig(t)
	cfg.Render.MaxPageHeightPx = 30
	in := writeInput(t, "pedido.thermo", receiptDSL)
	out := filepath.Join(t.TempDir(), "pedido.png")

	files, err := run(job{Input: in, Output: out, Config: cfg})
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, filepath.Join(filepath.Dir(out), "pedido-001.png"), files[0])
	assert.Equal(t, filepath.Join(filepath.Dir(out), "pedido-002.png"), files[1])

	f, err := os.Open(files[1])
	require.NoError(t, err)
	defer f.Close()
	img, err := png.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, 219, img.Bounds().Dx())
	assert.Equal(t, 22, img.Bounds().Dy())
}

func TestRunReadsJSONDocument(t *testing.T) {
	cfg := loadConfig(t)
	in := writeInput(t, "doc.json", `{
  "id": "doc-1",
  "name": "Etiqueta",
  "width": 40,
  "sections": [{"id": "s1", "type": "text", "content": "Hi"}]
}`)
	out := filepath.Join(t.TempDir(), "doc.pbm")

	files, err := run(job{Input: in, Output: out, Config: cfg})
	require.NoError(t, err)
	require.Equal(t, []string{out}, files)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("P4\n151 22\n")))
}

func TestRunErrors(t *testing.T) {
	cfg := loadConfig(t)

	_, err := run(job{Input: filepath.Join(t.TempDir(), "missing.thermo"), Output: "x.pdf", Config: cfg})
	assert.ErrorIs(t, err, os.ErrNotExist)

	in := writeInput(t, "pedido.thermo", receiptDSL)
	_, err = run(job{Input: in, Output: filepath.Join(t.TempDir(), "out.bmp"), Config: cfg})
	assert.Error(t, err)

	_, err = run(job{Input: in, Output: "x.pdf"})
	assert.Error(t, err)
}
