package arguments

import (
	"errors"
	"os"
	"testing"

	"github.com/spf13/viper"
)

func TestParseWithoutFileUsesDefaults(t *testing.T) {
	viper.Reset()
	defer viper.Reset()

	meta, err := Parse("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if meta.Port != 3000 {
		t.Errorf("expected default port 3000, got %d", meta.Port)
	}
	if meta.Environment != "unknown" {
		t.Errorf("expected unknown environment, got %q", meta.Environment)
	}
	if len(meta.InstanceID) == 0 {
		t.Errorf("expected a generated instance id")
	}
}

func TestParseReadsEnvironment(t *testing.T) {
	viper.Reset()
	defer viper.Reset()

	os.Setenv("ENV_APP_PORT", "4100")
	defer os.Unsetenv("ENV_APP_PORT")

	meta, err := Parse("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if meta.Port != 4100 {
		t.Errorf("expected port from environment, got %d", meta.Port)
	}
}

func TestParseMissingFile(t *testing.T) {
	viper.Reset()
	defer viper.Reset()

	_, err := Parse("does-not-exist")
	if !errors.Is(err, ErrInvalidConfiguration) {
		t.Fatalf("expected ErrInvalidConfiguration, got %v", err)
	}
}
