package shared

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/charmbracelet/log"
)

func TestParseLogLevel(t *testing.T) {
	tc := []struct {
		input string
		want  log.Level
	}{
		{input: "debug", want: log.DebugLevel},
		{input: " WARN ", want: log.WarnLevel},
		{input: "error", want: log.ErrorLevel},
		{input: "", want: log.InfoLevel},
		{input: "verbose", want: log.InfoLevel},
	}

	for _, tt := range tc {
		t.Run(tt.input, func(t *testing.T) {
			if got := ParseLogLevel(tt.input); got != tt.want {
				t.Errorf("ParseLogLevel(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestGenerateState(t *testing.T) {
	a, err := GenerateState()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, _ := GenerateState()
	if a == "" || a == b {
		t.Errorf("expected distinct non-empty states, got %q and %q", a, b)
	}
}

func TestWriteFileAtomic(t *testing.T) {
	t.Run("creates and replaces", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "entry.json")

		if err := WriteFileAtomic(path, []byte("first"), 0o644); err != nil {
			t.Fatalf("first write failed: %v", err)
		}
		if err := WriteFileAtomic(path, []byte("second"), 0o644); err != nil {
			t.Fatalf("second write failed: %v", err)
		}

		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("failed to read file: %v", err)
		}
		if string(data) != "second" {
			t.Errorf("expected second, got %s", data)
		}

		entries, _ := os.ReadDir(filepath.Dir(path))
		if len(entries) != 1 {
			t.Errorf("expected only the target file, got %d entries", len(entries))
		}
	})

	t.Run("missing directory", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "missing", "entry.json")
		if err := WriteFileAtomic(path, []byte("x"), 0o644); err == nil {
			t.Error("expected error for missing directory")
		}
	})
}

func TestBrowserCommand(t *testing.T) {
	original := getRuntime
	t.Cleanup(func() { getRuntime = original })

	for rt, want := range map[string]string{"darwin": "open", "linux": "xdg-open", "windows": "rundll32"} {
		getRuntime = func() string { return rt }
		cmd, err := browserCommand("https://example.com")
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", rt, err)
		}
		if filepath.Base(cmd.Args[0]) != want {
			t.Errorf("%s: expected %s, got %s", rt, want, cmd.Args[0])
		}
	}

	getRuntime = func() string { return "plan9" }
	if _, err := browserCommand("https://example.com"); err == nil {
		t.Error("expected error for unsupported platform")
	}
}
