package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/jaedson-barbosa/thermo-print-studio/config"
	"github.com/jaedson-barbosa/thermo-print-studio/document"
	"github.com/jaedson-barbosa/thermo-print-studio/dsl"
	"github.com/jaedson-barbosa/thermo-print-studio/layout"
	"github.com/jaedson-barbosa/thermo-print-studio/logger"
	"github.com/jaedson-barbosa/thermo-print-studio/renderer/bitmap"
	canvasrenderer "github.com/jaedson-barbosa/thermo-print-studio/renderer/canvas"
)

func main() {
	input := flag.String("in", "examples/receipt.thermo", "receipt DSL 或 JSON 文档路径")
	output := flag.String("out", "output/receipt.pdf", "输出路径（.pdf / .png / .pbm）")
	debug := flag.String("debug", "", "布局调试 JSON 输出路径")
	dataJSON := flag.String("data", "", "绑定到 DSL 的 JSON 数据")
	configPath := flag.String("config", "", "配置文件路径（默认读取 ./thermo.*）")
	maxHeight := flag.Int("max-height", -1, "单页最大高度（px），<0 时使用配置，0 表示不分页")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}
	if *maxHeight >= 0 {
		cfg.Render.MaxPageHeightPx = *maxHeight
	}
	zl, err := logger.New(cfg.LoggerConfig())
	if err != nil {
		log.Fatalf("初始化日志失败: %v", err)
	}
	defer zl.Sync() //nolint:errcheck

	var inputData any
	if *dataJSON != "" {
		if err := json.Unmarshal([]byte(*dataJSON), &inputData); err != nil {
			zl.Fatal("解析 data JSON 失败", zap.Error(err))
		}
	}

	files, err := run(job{
		Input:  *input,
		Output: *output,
		Debug:  *debug,
		Data:   inputData,
		Config: cfg,
		Logger: zl,
	})
	if err != nil {
		zl.Fatal("生成失败", zap.Error(err))
	}
	for _, f := range files {
		fmt.Printf("已生成：%s\n", f)
	}
}

// job 描述一次 CLI 调用。
type job struct {
	Input  string
	Output string
	Debug  string
	Data   any
	Config *config.Config
	Logger *zap.Logger
}

// run 串联读取、合成与渲染，返回写出的文件列表。
func run(j job) ([]string, error) {
	if j.Config == nil {
		return nil, fmt.Errorf("config 不能为空")
	}
	if j.Logger == nil {
		j.Logger = zap.NewNop()
	}

	doc, err := loadDocument(j.Input, j.Data)
	if err != nil {
		return nil, err
	}
	j.Logger.Info("document loaded",
		zap.String("name", doc.Name),
		zap.Float64("widthMm", doc.WidthMm),
		zap.Int("sections", len(doc.Sections)))

	comp := layout.NewCompositor(j.Config.LayoutOptions(j.Logger))
	res, err := comp.Compose(doc, j.Config.Render.MaxPageHeightPx)
	if err != nil {
		return nil, fmt.Errorf("布局计算失败: %w", err)
	}
	j.Logger.Info("document composed", zap.Int("pages", res.PageCount()), zap.Int("skipped", len(res.Failures)))

	if j.Debug != "" {
		if err := writeDebug(res, j.Debug); err != nil {
			return nil, err
		}
	}
	return writeOutput(res, j.Output)
}

// loadDocument 按扩展名选择 JSON 存储格式或 receipt DSL。
func loadDocument(path string, data any) (*document.Document, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("无法打开文件 %s: %w", path, err)
	}
	defer file.Close()

	if strings.EqualFold(filepath.Ext(path), ".json") {
		doc, err := document.Decode(file)
		if err != nil {
			return nil, fmt.Errorf("解析 JSON 文档失败: %w", err)
		}
		return doc, nil
	}

	receipt, err := dsl.Parse(file)
	if err != nil {
		return nil, fmt.Errorf("解析 DSL 失败: %w", err)
	}
	doc, err := dsl.Build(receipt, data, dsl.BuildOptions{BaseDir: filepath.Dir(path)})
	if err != nil {
		return nil, fmt.Errorf("构建文档失败: %w", err)
	}
	return doc, nil
}

// writeOutput 写出 PDF，或 PNG/PBM；位图多页时写成 name-001.png、name-002.png ……
func writeOutput(res *layout.Result, path string) ([]string, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("创建输出目录失败: %w", err)
	}
	ext := filepath.Ext(path)
	if strings.EqualFold(ext, ".pdf") {
		data, err := canvasrenderer.NewRenderer(canvasrenderer.Options{}).Render(res)
		if err != nil {
			return nil, fmt.Errorf("渲染 PDF 失败: %w", err)
		}
		return []string{path}, writeFile(path, data)
	}

	format, err := bitmap.ParseFormat(ext)
	if err != nil {
		return nil, err
	}
	r := bitmap.NewRenderer(format)
	if res.PageCount() <= 1 {
		data, err := r.Render(res)
		if err != nil {
			return nil, fmt.Errorf("渲染位图失败: %w", err)
		}
		return []string{path}, writeFile(path, data)
	}

	pages, err := r.RenderPages(res)
	if err != nil {
		return nil, fmt.Errorf("渲染位图失败: %w", err)
	}
	base := strings.TrimSuffix(path, ext)
	written := make([]string, 0, len(pages))
	for i, data := range pages {
		name := fmt.Sprintf("%s-%03d%s", base, i+1, ext)
		if err := writeFile(name, data); err != nil {
			return written, err
		}
		written = append(written, name)
	}
	return written, nil
}

func writeFile(path string, data []byte) error {
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("写入文件 %s 失败: %w", path, err)
	}
	return nil
}

func writeDebug(res *layout.Result, debugPath string) error {
	if err := os.MkdirAll(filepath.Dir(debugPath), 0o755); err != nil {
		return fmt.Errorf("创建调试目录失败: %w", err)
	}
	if err := layout.WriteDebugJSON(res, debugPath); err != nil {
		return fmt.Errorf("输出调试 JSON 失败: %w", err)
	}
	return nil
}
