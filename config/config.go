// Package config loads rendering and logging settings.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/jaedson-barbosa/thermo-print-studio/layout"
	"github.com/jaedson-barbosa/thermo-print-studio/logger"
	"github.com/jaedson-barbosa/thermo-print-studio/raster"
	"github.com/jaedson-barbosa/thermo-print-studio/units"
)

// EnvPrefix 是环境变量前缀，例如 THERMO_RENDER_MM_TO_PX。
const EnvPrefix = "THERMO"

// Config holds all configuration
type Config struct {
	Render RenderConfig `validate:"required"`
	Log    LogConfig    `validate:"required"`
}

// RenderConfig holds rasterization and pagination settings
type RenderConfig struct {
	MmToPx              float64 `validate:"gt=0"`
	MarginPx            int     `validate:"gte=0"`
	MaxPageHeightPx     int     `validate:"gte=0"` // 0 = unlimited
	DitherMatrixSize    int     `validate:"oneof=4 8"`
	SkipInvalidSections bool
	Concurrency         int `validate:"gte=0"` // 0 = GOMAXPROCS
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `validate:"oneof=debug info warn warning error"`
	Format string `validate:"oneof=json console"`
	Output string `validate:"required"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Load loads configuration.
// Priority (highest to lowest):
// 1. Environment variables with THERMO_ prefix (e.g., THERMO_LOG_LEVEL)
// 2. The file at path, or an optional thermo.{toml,yaml,json} in the working directory
// 3. Built-in defaults
func Load(path string) (*Config, error) {
	v := viper.New()
	applyDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("thermo")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		Render: RenderConfig{
			MmToPx:              v.GetFloat64("render.mm_to_px"),
			MarginPx:            v.GetInt("render.margin_px"),
			MaxPageHeightPx:     v.GetInt("render.max_page_height_px"),
			DitherMatrixSize:    v.GetInt("render.dither_matrix_size"),
			SkipInvalidSections: v.GetBool("render.skip_invalid_sections"),
			Concurrency:         v.GetInt("render.concurrency"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyDefaults(v *viper.Viper) {
	v.SetDefault("render.mm_to_px", units.DefaultMmToPx)
	v.SetDefault("render.margin_px", layout.DefaultMarginPx)
	v.SetDefault("render.max_page_height_px", 0)
	v.SetDefault("render.dither_matrix_size", raster.DefaultMatrixSize)
	v.SetDefault("render.skip_invalid_sections", false)
	v.SetDefault("render.concurrency", 0)

	def := logger.DefaultConfig()
	v.SetDefault("log.level", def.Level)
	v.SetDefault("log.format", def.Format)
	v.SetDefault("log.output", def.Output)
}

// Validate checks every field against its tag.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("配置无效: %w", err)
	}
	return nil
}

// LayoutOptions converts the render section into compositor options.
func (c *Config) LayoutOptions(log *zap.Logger) layout.Options {
	opts := layout.DefaultOptions()
	opts.MmToPx = c.Render.MmToPx
	opts.MarginPx = c.Render.MarginPx
	opts.DitherMatrixSize = c.Render.DitherMatrixSize
	opts.SkipInvalidSections = c.Render.SkipInvalidSections
	opts.Concurrency = c.Render.Concurrency
	opts.Logger = log
	return opts
}

// LoggerConfig converts the log section for logger.New.
func (c *Config) LoggerConfig() logger.Config {
	return logger.Config{Level: c.Log.Level, Format: c.Log.Format, Output: c.Log.Output}
}
