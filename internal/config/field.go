package config

import (
	"fmt"
	"strconv"
	"time"
)

// Keys lists the names accepted by Get and Set, in display order.
var Keys = []string{
	"url",
	"socket_path",
	"reconnect_attempts",
	"reconnect_interval",
	"max_reconnect_interval",
	"dial_timeout",
	"command_timeout",
	"beat_ms",
	"web_addr",
	"midi_port",
	"fader_base",
}

// Get returns one setting formatted for display.
func (c Config) Get(key string) (string, error) {
	switch key {
	case "url":
		return c.ControllerURL, nil
	case "socket_path":
		return c.SocketPath, nil
	case "reconnect_attempts":
		return strconv.Itoa(c.MaxReconnectAttempts), nil
	case "reconnect_interval":
		return c.ReconnectInterval.String(), nil
	case "max_reconnect_interval":
		return c.MaxReconnectInterval.String(), nil
	case "dial_timeout":
		return c.DialTimeout.String(), nil
	case "command_timeout":
		return c.CommandTimeout.String(), nil
	case "beat_ms":
		return strconv.Itoa(c.DefaultBeatMs), nil
	case "web_addr":
		return c.WebAddr, nil
	case "midi_port":
		return c.MIDIPort, nil
	case "fader_base":
		return strconv.Itoa(c.FaderBase), nil
	}
	return "", fmt.Errorf("unknown key %q", key)
}

// Set parses value into the named setting.
func (c *Config) Set(key, value string) error {
	switch key {
	case "url":
		c.ControllerURL = value
	case "socket_path":
		c.SocketPath = value
	case "reconnect_attempts":
		return setInt(&c.MaxReconnectAttempts, key, value)
	case "reconnect_interval":
		return setDuration(&c.ReconnectInterval, key, value)
	case "max_reconnect_interval":
		return setDuration(&c.MaxReconnectInterval, key, value)
	case "dial_timeout":
		return setDuration(&c.DialTimeout, key, value)
	case "command_timeout":
		return setDuration(&c.CommandTimeout, key, value)
	case "beat_ms":
		return setInt(&c.DefaultBeatMs, key, value)
	case "web_addr":
		c.WebAddr = value
	case "midi_port":
		c.MIDIPort = value
	case "fader_base":
		return setInt(&c.FaderBase, key, value)
	default:
		return fmt.Errorf("unknown key %q", key)
	}
	return nil
}

func setInt(dst *int, key, value string) error {
	n, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = n
	return nil
}

func setDuration(dst *time.Duration, key, value string) error {
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = d
	return nil
}
