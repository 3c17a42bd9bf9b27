package logging

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]zapcore.Level{
		"debug": zapcore.DebugLevel,
		"INFO":  zapcore.InfoLevel,
		"":      zapcore.InfoLevel,
		"warn":  zapcore.WarnLevel,
		"error": zapcore.ErrorLevel,
	}
	for in, want := range cases {
		got, err := ParseLevel(in)
		if err != nil || got != want {
			t.Fatalf("ParseLevel(%q) = %s, %v", in, got, err)
		}
	}
	if _, err := ParseLevel("verbose"); err == nil {
		t.Fatal("expected unsupported level error")
	}
}

func TestNew(t *testing.T) {
	for _, format := range []string{"console", "json"} {
		log, err := New("warn", format)
		if err != nil {
			t.Fatalf("New(%s) failed: %v", format, err)
		}
		if log.Core().Enabled(zapcore.InfoLevel) {
			t.Fatalf("expected info to be disabled at warn level for %s", format)
		}
	}
	if _, err := New("info", "xml"); err == nil {
		t.Fatal("expected unsupported format error")
	}
}
