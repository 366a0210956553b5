package duration

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestMarshalAsSeconds(t *testing.T) {
	out, err := json.Marshal(NewDuration(90*time.Second + 400*time.Millisecond))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(out) != "90" {
		t.Fatalf("expected 90, got %s", out)
	}
}

func TestUnmarshalForms(t *testing.T) {
	cases := []struct {
		in   string
		want time.Duration
	}{
		{`120`, 2 * time.Minute},
		{`"1h30m"`, 90 * time.Minute},
		{`0.5`, 500 * time.Millisecond},
	}

	for _, c := range cases {
		var d Duration
		if err := json.Unmarshal([]byte(c.in), &d); err != nil {
			t.Fatalf("unmarshal %s: %v", c.in, err)
		}
		if d.Duration != c.want {
			t.Errorf("unmarshal %s: got %v, want %v", c.in, d.Duration, c.want)
		}
	}

	var d Duration
	if err := json.Unmarshal([]byte(`true`), &d); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
	if err := json.Unmarshal([]byte(`"soon"`), &d); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}
