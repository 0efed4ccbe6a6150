package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDropDatabaseRemovesSidecars(t *testing.T) {
	path := filepath.Join(t.TempDir(), "metrics.db")
	for _, f := range []string{path, path + "-wal"} {
		if err := os.WriteFile(f, nil, 0o600); err != nil {
			t.Fatal(err)
		}
	}

	var buf bytes.Buffer
	if err := dropDatabase(&buf, path); err != nil {
		t.Fatalf("dropDatabase: %v", err)
	}
	for _, f := range dbFiles(path) {
		if _, err := os.Stat(f); !os.IsNotExist(err) {
			t.Errorf("%s still exists", f)
		}
	}
	if got := strings.Count(buf.String(), "Removed"); got != 2 {
		t.Errorf("want 2 removals reported, got %d:\n%s", got, buf.String())
	}

	buf.Reset()
	if err := dropDatabase(&buf, path); err != nil {
		t.Fatalf("second drop: %v", err)
	}
	if !strings.HasPrefix(buf.String(), "No database") {
		t.Errorf("second drop: got %q", buf.String())
	}
}
