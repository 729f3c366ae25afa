package logger

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestLevels(t *testing.T) {
	var tests = []struct {
		in    string
		level zerolog.Level
	}{
		{"", zerolog.InfoLevel},
		{"debug", zerolog.DebugLevel},
		{"WARN", zerolog.WarnLevel},
		{"loud", zerolog.InfoLevel},
	}

	for _, test := range tests {
		t.Run(test.in, func(t *testing.T) {
			l := NewWithWriter(&bytes.Buffer{}, test.in)
			if l.GetLevel() != test.level {
				t.Fatalf("Expected %s, got %s", test.level, l.GetLevel())
			}
		})
	}
}

func TestOutput(t *testing.T) {
	var b bytes.Buffer

	l := NewWithWriter(&b, "info")
	l.Debug().Msg("hidden")
	l.Info().Str("draft", "abc").Msg("shown")

	out := b.String()
	if strings.Contains(out, "hidden") {
		t.Fatal("Debug message logged at info level")
	}
	if !strings.Contains(out, "shown") || !strings.Contains(out, "abc") {
		t.Fatal("Info message missing:", out)
	}
}
