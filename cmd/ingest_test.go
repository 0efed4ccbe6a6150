package cmd

import (
	"compress/gzip"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zstd"
)

const streamLine = `{"type":"stop","time":1}` + "\n"

func TestOpenStreamDecompresses(t *testing.T) {
	dir := t.TempDir()

	plain := filepath.Join(dir, "events.jsonl")
	if err := os.WriteFile(plain, []byte(streamLine), 0o600); err != nil {
		t.Fatal(err)
	}

	zst := filepath.Join(dir, "events.jsonl.zst")
	f, err := os.Create(zst)
	if err != nil {
		t.Fatal(err)
	}
	enc, err := zstd.NewWriter(f)
	if err != nil {
		t.Fatal(err)
	}
	io.WriteString(enc, streamLine)
	enc.Close()
	f.Close()

	gzPath := filepath.Join(dir, "events.jsonl.gz")
	g, err := os.Create(gzPath)
	if err != nil {
		t.Fatal(err)
	}
	gw := gzip.NewWriter(g)
	io.WriteString(gw, streamLine)
	gw.Close()
	g.Close()

	for _, path := range []string{plain, zst, gzPath} {
		rc, err := openStream(path)
		if err != nil {
			t.Fatalf("openStream(%s): %v", filepath.Base(path), err)
		}
		got, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			t.Fatalf("read %s: %v", filepath.Base(path), err)
		}
		if string(got) != streamLine {
			t.Errorf("%s: got %q", filepath.Base(path), got)
		}
	}
}

func TestOpenStreamMissingFile(t *testing.T) {
	if _, err := openStream(filepath.Join(t.TempDir(), "nope.jsonl")); err == nil {
		t.Error("expected an error for a missing file")
	}
}
