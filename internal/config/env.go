package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// ApplyEnv overlays DMXCTL_* variables, reading a .env file in the working
// directory first when one exists.
func ApplyEnv(cfg Config) Config {
	_ = godotenv.Load()

	cfg.ControllerURL = getEnv("DMXCTL_URL", cfg.ControllerURL)
	cfg.SocketPath = getEnv("DMXCTL_SOCKET_PATH", cfg.SocketPath)
	cfg.MaxReconnectAttempts = getEnvAsInt("DMXCTL_RECONNECT_ATTEMPTS", cfg.MaxReconnectAttempts)
	cfg.ReconnectInterval = getEnvAsDuration("DMXCTL_RECONNECT_INTERVAL", cfg.ReconnectInterval)
	cfg.MaxReconnectInterval = getEnvAsDuration("DMXCTL_MAX_RECONNECT_INTERVAL", cfg.MaxReconnectInterval)
	cfg.DialTimeout = getEnvAsDuration("DMXCTL_DIAL_TIMEOUT", cfg.DialTimeout)
	cfg.CommandTimeout = getEnvAsDuration("DMXCTL_COMMAND_TIMEOUT", cfg.CommandTimeout)
	cfg.DefaultBeatMs = getEnvAsInt("DMXCTL_BEAT_MS", cfg.DefaultBeatMs)
	cfg.WebAddr = getEnv("DMXCTL_WEB_ADDR", cfg.WebAddr)
	cfg.MIDIPort = getEnv("DMXCTL_MIDI_PORT", cfg.MIDIPort)
	cfg.FaderBase = getEnvAsInt("DMXCTL_FADER_BASE", cfg.FaderBase)
	return cfg
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if value, err := time.ParseDuration(strValue); err == nil {
		return value
	}
	return defaultValue
}
