// ABOUTME: XDG-based config and state directory resolution for the console.
// ABOUTME: Checks XDG_CONFIG_HOME / XDG_STATE_HOME, falls back to ~/.config/crystalens and ~/.local/state/crystalens.
package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const appDir = "crystalens"

// DefaultConfigDir returns the directory holding config.yaml.
func DefaultConfigDir() (string, error) {
	return xdgDir("XDG_CONFIG_HOME", ".config")
}

// DefaultStateDir returns the directory for logs and other runtime state.
func DefaultStateDir() (string, error) {
	return xdgDir("XDG_STATE_HOME", filepath.Join(".local", "state"))
}

// DefaultConfigPath returns the default config.yaml location.
func DefaultConfigPath() (string, error) {
	dir, err := DefaultConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// DefaultLogPath returns where the terminal UI writes its log.
func DefaultLogPath() (string, error) {
	dir, err := DefaultStateDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "console.log"), nil
}

func xdgDir(env, fallback string) (string, error) {
	if xdg := os.Getenv(env); xdg != "" {
		return filepath.Join(xdg, appDir), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, fallback, appDir), nil
}
