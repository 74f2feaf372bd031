// Package bundle packages artifacts plus a manifest into one zip archive.
package bundle

import (
	"archive/zip"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

// ManifestName is the manifest entry name inside the archive.
const ManifestName = "manifest.json"

// ManifestEntry describes one bundled artifact.
type ManifestEntry struct {
	Filename    string `json:"filename"`
	Size        int64  `json:"size"`
	GeneratedAt string `json:"generated_at"`
}

// Manifest is the archive's table of contents.
type Manifest struct {
	JobID string          `json:"job_id"`
	Files []ManifestEntry `json:"files"`
}

// Bundle writes the given files plus a manifest into <jobID>_export.zip under
// outputDir and returns the archive path.
func Bundle(jobID string, files []string, outputDir string) (string, error) {
	manifest := Manifest{JobID: jobID, Files: []ManifestEntry{}}
	now := time.Now().UTC().Format(time.RFC3339)

	for _, file := range files {
		info, err := os.Stat(file)
		if err != nil {
			return "", fmt.Errorf("bundle: failed to stat %s: %w", file, err)
		}
		manifest.Files = append(manifest.Files, ManifestEntry{
			Filename:    filepath.Base(file),
			Size:        info.Size(),
			GeneratedAt: now,
		})
	}

	manifestJSON, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return "", fmt.Errorf("bundle: failed to encode manifest: %w", err)
	}

	zipPath := filepath.Join(outputDir, jobID+"_export.zip")
	f, err := os.Create(zipPath)
	if err != nil {
		return "", fmt.Errorf("bundle: failed to create archive: %w", err)
	}
	defer f.Close()

	w := zip.NewWriter(f)
	for _, file := range files {
		if err := addFile(w, file); err != nil {
			w.Close()
			return "", err
		}
	}

	entry, err := w.Create(ManifestName)
	if err != nil {
		w.Close()
		return "", fmt.Errorf("bundle: failed to add manifest: %w", err)
	}
	if _, err := entry.Write(manifestJSON); err != nil {
		w.Close()
		return "", fmt.Errorf("bundle: failed to write manifest: %w", err)
	}

	if err := w.Close(); err != nil {
		return "", fmt.Errorf("bundle: failed to finish archive: %w", err)
	}
	return zipPath, nil
}

func addFile(w *zip.Writer, file string) error {
	src, err := os.Open(file)
	if err != nil {
		return fmt.Errorf("bundle: failed to open %s: %w", file, err)
	}
	defer src.Close()

	entry, err := w.Create(filepath.Base(file))
	if err != nil {
		return fmt.Errorf("bundle: failed to add %s: %w", file, err)
	}
	if _, err := io.Copy(entry, src); err != nil {
		return fmt.Errorf("bundle: failed to write %s: %w", file, err)
	}
	return nil
}
