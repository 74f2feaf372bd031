package bundle

import (
	"archive/zip"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestBundle(t *testing.T) {
	dir := t.TempDir()
	docx := writeFile(t, dir, "report.docx", "doc-bytes")
	txt := writeFile(t, dir, "report.txt", "text-bytes")

	path, err := Bundle("job-1", []string{docx, txt}, dir)
	if err != nil {
		t.Fatalf("bundle: %v", err)
	}
	if filepath.Base(path) != "job-1_export.zip" {
		t.Fatalf("unexpected bundle name %q", path)
	}

	zr, err := zip.OpenReader(path)
	if err != nil {
		t.Fatalf("open bundle: %v", err)
	}
	defer zr.Close()

	entries := make(map[string]string)
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("open entry %s: %v", f.Name, err)
		}
		raw, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			t.Fatalf("read entry %s: %v", f.Name, err)
		}
		entries[f.Name] = string(raw)
	}

	if entries["report.docx"] != "doc-bytes" {
		t.Fatalf("docx entry corrupted: %q", entries["report.docx"])
	}
	if entries["report.txt"] != "text-bytes" {
		t.Fatalf("txt entry corrupted: %q", entries["report.txt"])
	}

	manifestRaw, ok := entries[ManifestName]
	if !ok {
		t.Fatal("manifest missing from bundle")
	}
	var manifest Manifest
	if err := json.Unmarshal([]byte(manifestRaw), &manifest); err != nil {
		t.Fatalf("decode manifest: %v", err)
	}
	if manifest.JobID != "job-1" {
		t.Fatalf("unexpected manifest job id %q", manifest.JobID)
	}
	if len(manifest.Files) != 2 {
		t.Fatalf("expected 2 manifest entries, got %d", len(manifest.Files))
	}
	if manifest.Files[0].Filename != "report.docx" || manifest.Files[0].Size != int64(len("doc-bytes")) {
		t.Fatalf("unexpected first manifest entry: %+v", manifest.Files[0])
	}
}

func TestBundleMissingFile(t *testing.T) {
	dir := t.TempDir()
	if _, err := Bundle("job-1", []string{filepath.Join(dir, "absent.docx")}, dir); err == nil {
		t.Fatal("expected error for missing input file")
	}
}
