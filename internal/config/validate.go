package config

import (
	"fmt"
	"strings"
	"time"
)

// Normalize rejects values no session could run with.
func Normalize(cfg Config) (Config, error) {
	cfg.ControllerURL = strings.TrimSpace(cfg.ControllerURL)
	if cfg.ControllerURL == "" {
		return cfg, fmt.Errorf("controllerUrl is required")
	}
	if !strings.HasPrefix(cfg.SocketPath, "/") {
		return cfg, fmt.Errorf("socketPath must start with /")
	}
	if cfg.MaxReconnectAttempts < 1 || cfg.MaxReconnectAttempts > DefaultMaxReconnectAttempts {
		return cfg, fmt.Errorf("maxReconnectAttempts must be between 1 and %d", DefaultMaxReconnectAttempts)
	}
	if cfg.ReconnectInterval < 10*time.Millisecond {
		return cfg, fmt.Errorf("reconnectInterval must be >=10ms")
	}
	if cfg.MaxReconnectInterval < cfg.ReconnectInterval {
		return cfg, fmt.Errorf("maxReconnectInterval must be >= reconnectInterval")
	}
	if cfg.DialTimeout <= 0 || cfg.CommandTimeout <= 0 {
		return cfg, fmt.Errorf("timeouts must be positive")
	}
	if cfg.DefaultBeatMs <= 0 {
		return cfg, fmt.Errorf("defaultBeatMs must be >0")
	}
	if cfg.FaderBase < 1 || cfg.FaderBase > 512 {
		return cfg, fmt.Errorf("faderBase must be between 1 and 512")
	}
	return cfg, nil
}
