package app

import (
	"fmt"
	"os"
	"path/filepath"
)

// GetDefaults returns the default config path, base directory and log
// directory. Lookup order for each:
//
//	config_path: $VOCAB_CONFIG_PATH, $XDG_CONFIG_HOME/vocab.toml, ~/.config/vocab.toml
//	base_dir:    $VOCAB_HOME, $XDG_DATA_HOME/vocab, ~/.local/share/vocab
func GetDefaults() (map[string]string, error) {
	configPath, err := resolvePath("VOCAB_CONFIG_PATH", "XDG_CONFIG_HOME", "vocab.toml", ".config")
	if err != nil {
		return nil, err
	}
	baseDir, err := resolvePath("VOCAB_HOME", "XDG_DATA_HOME", "vocab", ".local", "share")
	if err != nil {
		return nil, err
	}

	return map[string]string{
		"config_path": configPath,
		"base_dir":    baseDir,
		"log_dir":     filepath.Join(baseDir, "log"),
	}, nil
}

// resolvePath picks the explicit override, then name under the XDG
// directory, then name under the home-relative fallback.
func resolvePath(override, xdg, name string, homeRel ...string) (string, error) {
	if p := os.Getenv(override); p != "" {
		return p, nil
	}
	if dir := os.Getenv(xdg); dir != "" {
		return filepath.Join(dir, name), nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	parts := append([]string{home}, homeRel...)
	return filepath.Join(append(parts, name)...), nil
}
