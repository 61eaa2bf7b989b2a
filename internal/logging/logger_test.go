package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestInitializeWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "dashboard.log")
	if err := Initialize("debug", path); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	t.Cleanup(func() { _ = Initialize("info", "") })

	Warnf("upstream %s unreachable", "jobs")
	_ = Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), "upstream jobs unreachable") || !strings.Contains(string(data), "WARN") {
		t.Fatalf("unexpected log contents: %q", string(data))
	}
}

func TestInitializeRejectsUnknownLevel(t *testing.T) {
	if err := Initialize("chatty", ""); err == nil {
		t.Fatalf("expected error for unknown level")
	}
}
