package util

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestNewLoggerLevel(t *testing.T) {
	logger := NewLogger("debug")
	if logger.GetLevel() != zerolog.DebugLevel {
		t.Fatalf("expected debug level, got %s", logger.GetLevel())
	}

	logger = NewLogger("invalid")
	if logger.GetLevel() != zerolog.InfoLevel {
		t.Fatalf("expected info fallback, got %s", logger.GetLevel())
	}
}

func TestNamedTagsComponent(t *testing.T) {
	var buf bytes.Buffer
	base := zerolog.New(&buf)

	named := Named(base, "guard")
	named.Info().Msg("hello")
	if !strings.Contains(buf.String(), `"component":"guard"`) {
		t.Fatalf("missing component field: %s", buf.String())
	}
}
