// Package config loads docconv settings from an optional YAML file, DOCCONV_*
// environment variables and built-in defaults, in that order of precedence
// from lowest to highest: defaults < file < environment.
package config

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/nicholasgasior/docconv-go"
)

// EnvPrefix prefixes every environment override, e.g. DOCCONV_SERVER_ADDR.
const EnvPrefix = "DOCCONV"

type (
	Config struct {
		Log       Log       `mapstructure:"log" yaml:"log"`
		Server    Server    `mapstructure:"server" yaml:"server"`
		Scratch   Scratch   `mapstructure:"scratch" yaml:"scratch"`
		Output    Output    `mapstructure:"output" yaml:"output"`
		Timeouts  Timeouts  `mapstructure:"timeouts" yaml:"timeouts"`
		Gotenberg Gotenberg `mapstructure:"gotenberg" yaml:"gotenberg"`
		Soffice   Soffice   `mapstructure:"soffice" yaml:"soffice"`
		Chromium  Chromium  `mapstructure:"chromium" yaml:"chromium"`
	}

	Log struct {
		Level  string `mapstructure:"level" yaml:"level"`
		Format string `mapstructure:"format" yaml:"format"` // json or console
	}
	Server struct {
		Addr            string        `mapstructure:"addr" yaml:"addr"`
		MaxUploadBytes  int64         `mapstructure:"max_upload_bytes" yaml:"max_upload_bytes"`
		ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	}
	Scratch struct {
		Dir string `mapstructure:"dir" yaml:"dir"` // empty: $TMPDIR/docconv
	}
	Output struct {
		ImageEncoding string  `mapstructure:"image_encoding" yaml:"image_encoding"` // empty: images pass through as is
		DPI           float64 `mapstructure:"dpi" yaml:"dpi"`
		Attribution   string  `mapstructure:"attribution" yaml:"attribution"`
		MaxInputBytes int64   `mapstructure:"max_input_bytes" yaml:"max_input_bytes"`
	}
	Timeouts struct {
		Remote   time.Duration `mapstructure:"remote" yaml:"remote"`
		Local    time.Duration `mapstructure:"local" yaml:"local"`
		Fallback time.Duration `mapstructure:"fallback" yaml:"fallback"`
	}
	Gotenberg struct {
		URL string `mapstructure:"url" yaml:"url"` // empty disables
	}
	Soffice struct {
		Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
		Binary  string `mapstructure:"binary" yaml:"binary"`
	}
	Chromium struct {
		Enabled    bool   `mapstructure:"enabled" yaml:"enabled"`
		ControlURL string `mapstructure:"control_url" yaml:"control_url"`
	}
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.max_upload_bytes", 50<<20)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("scratch.dir", "")
	v.SetDefault("output.image_encoding", "")
	v.SetDefault("output.dpi", 110)
	v.SetDefault("output.attribution", "Converted by docconv")
	v.SetDefault("output.max_input_bytes", 50<<20)
	v.SetDefault("timeouts.remote", 15*time.Second)
	v.SetDefault("timeouts.local", 60*time.Second)
	v.SetDefault("timeouts.fallback", 30*time.Second)
	v.SetDefault("gotenberg.url", "")
	v.SetDefault("soffice.enabled", false)
	v.SetDefault("soffice.binary", "")
	v.SetDefault("chromium.enabled", false)
	v.SetDefault("chromium.control_url", "")
}

// Load reads the configuration. path may be empty to use defaults and the
// environment only.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values that would otherwise fail late.
func (c *Config) Validate() error {
	var errs []error
	if _, err := docconv.ParseImageEncoding(c.Output.ImageEncoding); err != nil {
		errs = append(errs, fmt.Errorf("output.image_encoding: %w", err))
	}
	if c.Output.DPI < 0 || c.Output.DPI > 600 {
		errs = append(errs, fmt.Errorf("output.dpi: %v out of range (0-600)", c.Output.DPI))
	}
	if c.Output.MaxInputBytes < 0 {
		errs = append(errs, errors.New("output.max_input_bytes: must not be negative"))
	}
	for name, d := range map[string]time.Duration{
		"timeouts.remote": c.Timeouts.Remote, "timeouts.local": c.Timeouts.Local, "timeouts.fallback": c.Timeouts.Fallback,
	} {
		if d < 0 {
			errs = append(errs, fmt.Errorf("%s: must not be negative", name))
		}
	}
	if c.Gotenberg.URL != "" && !strings.HasPrefix(c.Gotenberg.URL, "http://") && !strings.HasPrefix(c.Gotenberg.URL, "https://") {
		errs = append(errs, fmt.Errorf("gotenberg.url: %q is not an http(s) URL", c.Gotenberg.URL))
	}
	return errors.Join(errs...)
}

// PipelineOptions maps the configuration onto pipeline options.
func (c *Config) PipelineOptions(logger zerolog.Logger) []docconv.Option {
	opts := []docconv.Option{
		docconv.WithLogger(logger),
		docconv.WithScratchDir(c.Scratch.Dir),
		docconv.WithDPI(c.Output.DPI),
		docconv.WithAttribution(c.Output.Attribution),
		docconv.WithMaxInputSize(c.Output.MaxInputBytes),
	}
	if c.Output.ImageEncoding != "" {
		enc, _ := docconv.ParseImageEncoding(c.Output.ImageEncoding)
		opts = append(opts, docconv.WithImageEncoding(enc))
	}
	if c.Timeouts.Remote > 0 {
		opts = append(opts, docconv.WithRemoteTimeout(c.Timeouts.Remote))
	}
	if c.Timeouts.Local > 0 {
		opts = append(opts, docconv.WithLocalTimeout(c.Timeouts.Local))
	}
	if c.Timeouts.Fallback > 0 {
		opts = append(opts, docconv.WithFallbackTimeout(c.Timeouts.Fallback))
	}
	if c.Gotenberg.URL != "" {
		opts = append(opts,
			docconv.WithGotenberg(c.Gotenberg.URL),
			docconv.WithHTTPClient(&http.Client{Transport: http.DefaultTransport}),
		)
	}
	if c.Soffice.Enabled {
		opts = append(opts, docconv.WithSoffice(c.Soffice.Binary))
	}
	if c.Chromium.Enabled {
		opts = append(opts, docconv.WithChromium(c.Chromium.ControlURL))
	}
	return opts
}
