package logging

import (
	"bytes"
	"os"
	"strings"
	"testing"
)

func TestVerbosityGatesOutput(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	t.Cleanup(func() {
		SetOutput(os.Stderr)
		SetVerbosity(0)
	})

	SetVerbosity(0)
	Infof("hidden")
	Warnf("shown %d", 1)
	if strings.Contains(buf.String(), "hidden") {
		t.Error("info printed at verbosity 0")
	}
	if !strings.Contains(buf.String(), "[WARN] shown 1") {
		t.Errorf("got %q", buf.String())
	}

	buf.Reset()
	SetVerbosity(2)
	Debugf("dbg line")
	Tracef("trace line")
	if !strings.Contains(buf.String(), "[DBG] dbg line") {
		t.Errorf("got %q", buf.String())
	}
	if strings.Contains(buf.String(), "trace line") {
		t.Error("trace printed at verbosity 2")
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want Level
		v    int
	}{
		{"error", LevelError, 0},
		{"WARNING", LevelWarn, 0},
		{"info", LevelInfo, 1},
		{"debug", LevelDebug, 2},
		{"trace", LevelTrace, 4},
	}
	for _, tt := range tests {
		l, v, err := ParseLevel(tt.in)
		if err != nil {
			t.Fatalf("%s: %v", tt.in, err)
		}
		if l != tt.want || v != tt.v {
			t.Errorf("%s: got %s/%d, want %s/%d", tt.in, LevelToString(l), v, LevelToString(tt.want), tt.v)
		}
	}
	if _, _, err := ParseLevel("loud"); err == nil {
		t.Error("expected error for unknown level")
	}
}
