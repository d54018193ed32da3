package logging

import (
	"log/slog"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"Error", slog.LevelError},
	}
	for _, c := range cases {
		got, err := ParseLevel(c.in)
		if err != nil {
			t.Errorf("ParseLevel(%q): %v", c.in, err)
			continue
		}
		if got != c.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", c.in, got, c.want)
		}
	}

	if _, err := ParseLevel("verbose"); err == nil {
		t.Error("ParseLevel(\"verbose\"): expected error")
	}
}

func TestApplyLevelOverrides(t *testing.T) {
	h := NewComponentFilterHandler(nil, slog.LevelInfo)

	if err := ApplyLevelOverrides(h, []string{"storage=debug", "gateway=error"}); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if got := h.Level("storage"); got != slog.LevelDebug {
		t.Errorf("storage level = %v, want debug", got)
	}
	if got := h.Level("gateway"); got != slog.LevelError {
		t.Errorf("gateway level = %v, want error", got)
	}
	if got := h.Level("metadata"); got != slog.LevelInfo {
		t.Errorf("metadata level = %v, want the %v default", got, slog.LevelInfo)
	}
}

func TestApplyLevelOverridesRejectsBadSpecs(t *testing.T) {
	h := NewComponentFilterHandler(nil, slog.LevelInfo)
	for _, spec := range []string{"storage", "=debug", "storage=", "storage=loud"} {
		if err := ApplyLevelOverrides(h, []string{spec}); err == nil {
			t.Errorf("spec %q: expected error", spec)
		}
	}
}
