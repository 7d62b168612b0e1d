package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/okian/sibrol/internal/domain/terminology"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "SIBROL_"

// LoadOption tweaks Load.
type LoadOption func(*loadOptions)

type loadOptions struct {
	path string
}

// WithFile loads the given YAML file instead of the one named by SIBROL_CONFIG.
func WithFile(path string) LoadOption {
	return func(o *loadOptions) {
		if path != "" {
			o.path = path
		}
	}
}

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) from WithFile or SIBROL_CONFIG
//  3. env (prefix SIBROL_); a double underscore reaches nested keys,
//     e.g. SIBROL_EVENT_COLUMNS__PROCEDURE_CODE -> event_columns.procedure_code
func Load(_ context.Context, opts ...LoadOption) (*Config, error) {
	o := loadOptions{path: os.Getenv(EnvPrefix + "CONFIG")}
	for _, opt := range opts {
		opt(&o)
	}

	base := New()
	k := koanf.New(".")

	if o.path != "" {
		if err := k.Load(file.Provider(o.path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrLoadConfig, o.path, err)
		}
	}

	envProvider := env.Provider(EnvPrefix, ".", func(s string) string {
		s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
		return strings.ReplaceAll(s, "__", ".")
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %w", ErrLoadConfig, err)
	}
	// the selector itself is not a setting
	k.Delete("config")

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}
	if len(cfg.Affirmative) == 0 {
		cfg.Affirmative = append([]string(nil), terminology.DefaultAffirmative...)
	}

	if err := cfg.check(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
