package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	envPrefix        = "TALLY_"
	envConfigFile    = "TALLY_CONFIG"
	envDotEnvFile    = "TALLY_ENV_FILE"
	defaultDotEnv    = ".env"
	envPlainPort     = "PORT"
	listSeparator    = ","
	keyJudges        = "judges"
	keyCORSOrigins   = "cors_origins"
	keyMetricsLabels = "metrics_labels"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. .env file (TALLY_ENV_FILE, default .env) exported into the environment
//  3. file (YAML) if TALLY_CONFIG is set
//  4. PORT
//  5. env (prefix TALLY_)
func Load(_ context.Context) (*Config, error) {
	base := New()

	dotenv := os.Getenv(envDotEnvFile)
	if dotenv == "" {
		dotenv = defaultDotEnv
	}
	if err := godotenv.Load(dotenv); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s: %w", ErrLoadConfig, dotenv, err)
	}

	k := koanf.New(".")

	if path := os.Getenv(envConfigFile); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrLoadConfig, path, err)
		}
	}

	// Hosting platforms hand the port over as a bare PORT variable.
	plainPort := env.ProviderWithValue(envPlainPort, ".", func(key, value string) (string, interface{}) {
		if key != envPlainPort {
			return "", nil
		}
		return "port", value
	})
	if err := k.Load(plainPort, nil); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	// TALLY_DATA_FILE -> data_file; list keys are comma separated.
	envProvider := env.ProviderWithValue(envPrefix, ".", func(key, value string) (string, interface{}) {
		key = strings.ToLower(strings.TrimPrefix(key, envPrefix))
		if key == keyJudges || key == keyCORSOrigins || key == keyMetricsLabels {
			return key, splitList(value)
		}
		return key, value
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	// Lists are decoded into empty slices so a shorter override does not
	// keep trailing defaults.
	cfg := *base
	cfg.Judges, cfg.CORSOrigins, cfg.MetricsLabels = nil, nil, nil
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}
	if !k.Exists(keyJudges) {
		cfg.Judges = base.Judges
	}
	if cfg.CORSOrigins == nil {
		cfg.CORSOrigins = []string{}
	}
	if cfg.MetricsLabels == nil {
		cfg.MetricsLabels = []string{}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func splitList(s string) []string {
	parts := strings.Split(s, listSeparator)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
