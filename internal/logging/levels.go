package logging

import (
	"fmt"
	"log/slog"
	"strings"
)

// ParseLevel parses a textual log level ("debug", "info", "warn", "error").
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("unknown log level %q", s)
}

// ApplyLevelOverrides applies "component=level" specs from a command-line
// flag to a ComponentFilterHandler, so one component's verbosity can be
// raised without turning up everything:
//
//	--log-level storage=debug --log-level gateway=warn
func ApplyLevelOverrides(h *ComponentFilterHandler, specs []string) error {
	for _, spec := range specs {
		component, levelStr, ok := strings.Cut(spec, "=")
		if !ok || component == "" || levelStr == "" {
			return fmt.Errorf("invalid log level override %q (expected component=level)", spec)
		}
		level, err := ParseLevel(levelStr)
		if err != nil {
			return fmt.Errorf("log level override %q: %w", spec, err)
		}
		h.SetLevel(component, level)
	}
	return nil
}
