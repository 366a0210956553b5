package logger

import (
	"bytes"
	"strings"
	"testing"

	"github.com/spf13/viper"
)

func TestStdLoggerFiltersBelowLevel(t *testing.T) {
	viper.Set("Logger.Level", "warning")
	viper.Set("Logger.Colors", false)
	defer viper.Reset()

	var buf bytes.Buffer
	log := NewWriterLogger(&buf, "instance", "")

	log.Trace(Info, "test", "dropped message")
	log.Trace(Error, "test", "kept message")
	log.Release()

	out := buf.String()
	if strings.Contains(out, "dropped message") {
		t.Fatalf("expected info message to be filtered, got %q", out)
	}
	if !strings.Contains(out, "[error] [test] kept message") {
		t.Fatalf("expected error message in output, got %q", out)
	}
	if !strings.Contains(out, "[instance]") {
		t.Fatalf("expected instance id in output, got %q", out)
	}
}

func TestStdLoggerReleaseTwice(t *testing.T) {
	var buf bytes.Buffer
	log := NewWriterLogger(&buf, "", "")

	log.Release()
	log.Release()

	// Tracing after release must not panic.
	log.Trace(Fatal, "test", "late")
}

func TestParseSeverity(t *testing.T) {
	cases := map[string]Severity{
		"DeBug":    Debug,
		"warn":     Warning,
		" error ":  Error,
		"critical": Critical,
		"nonsense": Verbose,
	}

	for in, want := range cases {
		if got := ParseSeverity(in); got != want {
			t.Errorf("ParseSeverity(%q) = %v, want %v", in, got.Name(), want.Name())
		}
	}
}
