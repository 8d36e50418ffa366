package doublet

import (
	"errors"
	"strings"
	"testing"

	"github.com/spf13/afero"
)

func TestOpenValidatesConfig(t *testing.T) {
	testCases := []struct {
		name     string
		options  []Option
		wantErrs int
	}{
		{name: "defaults", options: nil, wantErrs: 0},
		{name: "negative max entries", options: []Option{WithMaxDiagnosticEntries(-1)}, wantErrs: 1},
		{name: "empty override entry", options: []Option{WithSearchPathOverride("/lib/a.jar", " ")}, wantErrs: 1},
		{
			name:     "accumulates problems",
			options:  []Option{WithMaxDiagnosticEntries(-5), WithSearchPathOverride("", "")},
			wantErrs: 3,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			options := append([]Option{WithFs(afero.NewMemMapFs()), WithExecutor(inlineExecutor())}, tc.options...)
			_, err := Open(options...)

			if tc.wantErrs == 0 {
				if err != nil {
					t.Fatalf("Open failed: %v", err)
				}
				return
			}

			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("Expected *ValidationError, got %v", err)
			}
			if len(ve.Errors) != tc.wantErrs {
				t.Errorf("Got %d validation errors, want %d: %v", len(ve.Errors), tc.wantErrs, ve)
			}
		})
	}
}

func TestValidationErrorMessage(t *testing.T) {
	single := newValidationError([]error{errors.New("bad")})
	if !strings.Contains(single.Error(), "bad") {
		t.Errorf("Unexpected message %q", single.Error())
	}

	sentinel := errors.New("sentinel")
	multi := newValidationError([]error{errors.New("first"), sentinel})
	if !errors.Is(multi, sentinel) {
		t.Error("Expected errors.Is to find a wrapped validation error")
	}
	if newValidationError(nil) != nil {
		t.Error("Expected nil for no errors")
	}
}

func TestConfigOptions(t *testing.T) {
	cfg := Config{SearchPathOverride: []string{"/a"}, MultiThreadingEnabled: true, MaxDiagnosticEntries: 10}
	m := newTestMonitor(t, afero.NewMemMapFs(), WithConfig(cfg))

	got := m.Config()
	if !got.MultiThreadingEnabled || got.MaxDiagnosticEntries != 10 || len(got.SearchPathOverride) != 1 {
		t.Errorf("Config = %+v", got)
	}

	got.SearchPathOverride[0] = "/changed"
	if m.Config().SearchPathOverride[0] != "/a" {
		t.Error("Config must return a copy of the override list")
	}
}

func TestCapped(t *testing.T) {
	list := []string{"a", "b", "c"}

	if got := (Config{}).capped(list); len(got) != 3 {
		t.Errorf("Unlimited cap returned %v", got)
	}
	if got := (Config{MaxDiagnosticEntries: 2}).capped(list); len(got) != 2 {
		t.Errorf("Cap of 2 returned %v", got)
	}
	if got := (Config{MaxDiagnosticEntries: 5}).capped(list); len(got) != 3 {
		t.Errorf("Cap above length returned %v", got)
	}
}
