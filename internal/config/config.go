package config

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/danmuck/edgexchange/internal/logging"
	"github.com/danmuck/edgexchange/internal/render"
)

const (
	DefaultAddr   = "127.0.0.1:7100"
	DefaultLevel  = "info"
	DefaultFormat = string(render.FormatText)
)

// Config is the edgectl tool configuration.
type Config struct {
	Log      LogConfig
	Serve    ServeConfig
	Output   OutputConfig
	Metadata map[string]string
}

type LogConfig struct {
	Level     string
	Timestamp bool
	NoColor   bool
}

type ServeConfig struct {
	Addr        string
	CorsOrigins []string
	Token       string
	TLSCert     string
	TLSKey      string
}

type OutputConfig struct {
	Format string
}

type fileConfig struct {
	Log struct {
		Level     string `toml:"level"`
		Timestamp bool   `toml:"timestamp"`
		NoColor   bool   `toml:"no_color"`
	} `toml:"log"`
	Serve struct {
		Addr        string   `toml:"addr"`
		CorsOrigins []string `toml:"cors_origins"`
		Token       string   `toml:"token"`
		TLSCert     string   `toml:"tls_cert"`
		TLSKey      string   `toml:"tls_key"`
	} `toml:"serve"`
	Output struct {
		Format string `toml:"format"`
	} `toml:"output"`
	Metadata map[string]string `toml:"metadata"`
}

func Default() Config {
	return Config{
		Log: LogConfig{
			Level:     DefaultLevel,
			Timestamp: true,
		},
		Serve: ServeConfig{
			Addr:        DefaultAddr,
			CorsOrigins: []string{"http://localhost:3000"},
		},
		Output: OutputConfig{
			Format: DefaultFormat,
		},
		Metadata: map[string]string{},
	}
}

// Load reads path over the defaults. Keys absent from the file keep their
// default value.
func Load(path string) (Config, error) {
	cfg := Default()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("config load failed (%s): %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return Config{}, fmt.Errorf("config parse failed (%s): unknown key %q", path, undecoded[0].String())
	}

	if meta.IsDefined("log", "level") {
		cfg.Log.Level = strings.TrimSpace(raw.Log.Level)
	}
	if meta.IsDefined("log", "timestamp") {
		cfg.Log.Timestamp = raw.Log.Timestamp
	}
	if meta.IsDefined("log", "no_color") {
		cfg.Log.NoColor = raw.Log.NoColor
	}
	if meta.IsDefined("serve", "addr") {
		cfg.Serve.Addr = strings.TrimSpace(raw.Serve.Addr)
	}
	if meta.IsDefined("serve", "cors_origins") {
		cfg.Serve.CorsOrigins = normalizeList(raw.Serve.CorsOrigins)
	}
	if meta.IsDefined("serve", "token") {
		cfg.Serve.Token = strings.TrimSpace(raw.Serve.Token)
	}
	if meta.IsDefined("serve", "tls_cert") {
		cfg.Serve.TLSCert = strings.TrimSpace(raw.Serve.TLSCert)
	}
	if meta.IsDefined("serve", "tls_key") {
		cfg.Serve.TLSKey = strings.TrimSpace(raw.Serve.TLSKey)
	}
	if meta.IsDefined("output", "format") {
		cfg.Output.Format = strings.TrimSpace(raw.Output.Format)
	}
	if meta.IsDefined("metadata") {
		for k, v := range raw.Metadata {
			cfg.Metadata[k] = v
		}
	}

	if err := Validate(cfg); err != nil {
		return Config{}, fmt.Errorf("config invalid (%s): %w", path, err)
	}
	return cfg, nil
}

func Validate(cfg Config) error {
	if _, ok := logging.ParseLevel(cfg.Log.Level); !ok {
		return fmt.Errorf("log.level %q is not a known level", cfg.Log.Level)
	}
	if strings.TrimSpace(cfg.Serve.Addr) == "" {
		return fmt.Errorf("serve.addr is required")
	}
	for _, origin := range cfg.Serve.CorsOrigins {
		if !validOrigin(origin) {
			return fmt.Errorf("serve.cors_origins: %q must be \"*\" or start with http:// or https://", origin)
		}
	}
	if (cfg.Serve.TLSCert == "") != (cfg.Serve.TLSKey == "") {
		return fmt.Errorf("serve.tls_cert and serve.tls_key must be set together")
	}
	if _, err := render.ParseFormat(cfg.Output.Format); err != nil {
		return fmt.Errorf("output.format: %w", err)
	}
	for k, v := range cfg.Metadata {
		if strings.TrimSpace(k) == "" {
			return fmt.Errorf("metadata key is required")
		}
		if v == "" {
			return fmt.Errorf("metadata %q has an empty value", k)
		}
	}
	return nil
}

func validOrigin(origin string) bool {
	return origin == "*" ||
		strings.HasPrefix(origin, "http://") ||
		strings.HasPrefix(origin, "https://")
}

func normalizeList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, v := range in {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
