// Package config loads a gelf.TargetConfig from a YAML file and the
// environment.
package config

import (
	"fmt"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/grafana/gelfsend/gelf"
)

// EnvPrefix starts every environment variable Load reads, e.g.
// GELF_HOST or GELF_CHUNK_SIZE.
const EnvPrefix = "GELF_"

// Load returns the defaults overridden by the YAML file at path (if
// path is not empty) and then by the environment.  The result is
// validated.
func Load(path string) (gelf.TargetConfig, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return gelf.TargetConfig{}, fmt.Errorf("loading %s: %w", path, err)
		}
	}

	err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	}), nil)
	if err != nil {
		return gelf.TargetConfig{}, fmt.Errorf("loading environment: %w", err)
	}

	cfg := gelf.DefaultTargetConfig()
	if err := k.Unmarshal("", &cfg); err != nil {
		return gelf.TargetConfig{}, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return gelf.TargetConfig{}, err
	}
	return cfg, nil
}
