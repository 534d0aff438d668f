package config

import (
	"os"
	"path/filepath"
)

// DefaultPath returns ~/.config/dmxctl/config.json (or a cwd fallback).
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err == nil && home != "" {
		return filepath.Join(home, ".config", "dmxctl", "config.json")
	}
	cwd, _ := os.Getwd()
	return filepath.Join(cwd, "dmxctl-config.json")
}
