package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Load reads the config file, fills defaults, expands paths and validates
// the result. It also returns the file it chose and whether that file
// exists; a missing file yields pure defaults.
//
// An empty path searches ~/.config/scenecast/config.toml, then
// ./scenecast.toml. A .env file in the working directory is applied first
// without overriding variables already set.
func Load(path string) (*Config, string, bool, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, "", false, fmt.Errorf("load .env: %w", err)
	}

	file, found, err := locate(path)
	if err != nil {
		return nil, "", false, err
	}
	cfg := Default()
	if found {
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, "", false, fmt.Errorf("read config: %w", err)
		}
		if err := toml.NewDecoder(bytes.NewReader(data)).Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config %s: %w", file, err)
		}
	}
	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}
	return &cfg, file, found, nil
}

// locate resolves the config file. An explicit path is returned even when
// missing so `config init` can create it.
func locate(path string) (string, bool, error) {
	candidates := []string{path}
	if path == "" {
		candidates = []string{defaultConfigPath, "scenecast.toml"}
	}
	var first string
	for _, candidate := range candidates {
		abs, err := expandPath(candidate)
		if err != nil {
			return "", false, err
		}
		if first == "" {
			first = abs
		}
		info, err := os.Stat(abs)
		switch {
		case err == nil && !info.IsDir():
			return abs, true, nil
		case err != nil && !errors.Is(err, fs.ErrNotExist):
			return "", false, fmt.Errorf("stat config: %w", err)
		}
	}
	return first, false, nil
}

// DefaultConfigPath is where `config init` writes without --path.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// ExpandPath makes path absolute, replacing a leading "~" with the home
// directory.
func ExpandPath(path string) (string, error) {
	return expandPath(path)
}

func expandPath(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	if path == "~" || strings.HasPrefix(path, "~/") || strings.HasPrefix(path, `~\`) {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		path = filepath.Join(home, path[1:])
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve %q: %w", path, err)
	}
	return abs, nil
}

// EnsureDirectories creates the work, output and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.WorkDir, c.Paths.OutputDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// CreateSample writes the annotated sample config to path, creating its
// directory.
func CreateSample(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
