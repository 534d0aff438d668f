package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Config holds the console settings shared by every command.
type Config struct {
	ControllerURL        string        `json:"controllerUrl"`
	SocketPath           string        `json:"socketPath"`
	MaxReconnectAttempts int           `json:"maxReconnectAttempts"`
	ReconnectInterval    time.Duration `json:"reconnectInterval"`
	MaxReconnectInterval time.Duration `json:"maxReconnectInterval"`
	DialTimeout          time.Duration `json:"dialTimeout"`
	CommandTimeout       time.Duration `json:"commandTimeout"`
	DefaultBeatMs        int           `json:"defaultBeatMs"`
	WebAddr              string        `json:"webAddr"`
	MIDIPort             string        `json:"midiPort"`
	FaderBase            int           `json:"faderBase"`
}

var (
	DefaultControllerURL        = "http://localhost:8080"
	DefaultSocketPath           = "/ws/control"
	// DefaultMaxReconnectAttempts is also the upper bound.
	DefaultMaxReconnectAttempts = 10
	DefaultReconnectInterval    = time.Second
	DefaultMaxReconnectInterval = 30 * time.Second
	DefaultDialTimeout          = 5 * time.Second
	DefaultCommandTimeout       = 5 * time.Second
	DefaultBeatMs               = 1000
	DefaultWebAddr              = "127.0.0.1:8090"
	DefaultFaderBase            = 1
)

// DefaultConfig returns the initial configuration.
func DefaultConfig() Config {
	return Config{
		ControllerURL:        DefaultControllerURL,
		SocketPath:           DefaultSocketPath,
		MaxReconnectAttempts: DefaultMaxReconnectAttempts,
		ReconnectInterval:    DefaultReconnectInterval,
		MaxReconnectInterval: DefaultMaxReconnectInterval,
		DialTimeout:          DefaultDialTimeout,
		CommandTimeout:       DefaultCommandTimeout,
		DefaultBeatMs:        DefaultBeatMs,
		WebAddr:              DefaultWebAddr,
		FaderBase:            DefaultFaderBase,
	}
}

// Store persists configuration so the CLI, shell and HTTP API share it.
type Store interface {
	Load() (Config, error)
	Save(Config) error
}

// FileStore implements Store using a JSON file.
type FileStore struct {
	path string
	mu   sync.Mutex
}

// NewFileStore creates a store under the supplied path. Parent directories are created automatically.
func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		return nil, errors.New("path is required")
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create config dir: %w", err)
	}
	return &FileStore{path: path}, nil
}

// Path returns the backing file.
func (s *FileStore) Path() string { return s.path }

// Load reads the configuration file or returns defaults if it does not exist.
// Missing fields keep their defaults.
func (s *FileStore) Load() (Config, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return DefaultConfig(), nil
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	cfg := DefaultConfig()
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	return fillDefaults(cfg), nil
}

// Save writes the configuration to disk atomically.
func (s *FileStore) Save(cfg Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tmp := s.path + ".tmp"
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write tmp: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("rename tmp: %w", err)
	}
	return nil
}

func fillDefaults(cfg Config) Config {
	def := DefaultConfig()
	if cfg.ControllerURL == "" {
		cfg.ControllerURL = def.ControllerURL
	}
	if cfg.SocketPath == "" {
		cfg.SocketPath = def.SocketPath
	}
	if cfg.MaxReconnectAttempts <= 0 {
		cfg.MaxReconnectAttempts = def.MaxReconnectAttempts
	}
	if cfg.ReconnectInterval <= 0 {
		cfg.ReconnectInterval = def.ReconnectInterval
	}
	if cfg.MaxReconnectInterval <= 0 {
		cfg.MaxReconnectInterval = def.MaxReconnectInterval
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = def.DialTimeout
	}
	if cfg.CommandTimeout <= 0 {
		cfg.CommandTimeout = def.CommandTimeout
	}
	if cfg.DefaultBeatMs <= 0 {
		cfg.DefaultBeatMs = def.DefaultBeatMs
	}
	if cfg.WebAddr == "" {
		cfg.WebAddr = def.WebAddr
	}
	if cfg.FaderBase <= 0 {
		cfg.FaderBase = def.FaderBase
	}
	return cfg
}
