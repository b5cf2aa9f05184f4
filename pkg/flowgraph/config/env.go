package config

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/joho/godotenv"

	"github.com/randalmurphal/interviewflow/pkg/flowgraph/template"
)

// DefaultEnvFiles are loaded by LoadDotEnv when no paths are given.
var DefaultEnvFiles = []string{".env.local", ".env"}

// LoadDotEnv loads variables from .env files into the process environment.
// Missing files are skipped. Variables already set are not overridden, so
// earlier files win over later ones.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = DefaultEnvFiles
	}
	for _, path := range paths {
		if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", path, err)
		}
	}
	return nil
}

var envExpander = template.NewExpander(
	template.WithEnvLookup(),
	template.WithDollarStyle(false),
)

// ExpandEnv returns a copy of cfg with ${VAR} and ${VAR:-default}
// references in string values resolved from the environment. Unset
// variables without a default are left as-is.
func ExpandEnv(cfg Config) Config {
	expanded, _ := envExpander.ExpandMap(cfg.Raw(), nil)
	return New(expanded)
}
