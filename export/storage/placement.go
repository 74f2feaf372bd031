package storage

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/ncobase/docport/export/structs"
)

// Placement moves finished artifacts into managed storage under a unique
// file id and resolves ids back to files for download.
type Placement struct {
	fs FileSystem
}

// NewPlacement creates a placement over the given file system.
func NewPlacement(fs FileSystem) *Placement {
	return &Placement{fs: fs}
}

// Save copies the artifact at source into managed storage and returns its
// stored descriptor. The stored name is "<file id>_<original name>" so the
// original filename survives for download while the id keeps it unique.
// With no TTL configured the expiry stays absent and the artifact never
// expires.
func (p *Placement) Save(source string, ttlHours int) (*structs.StoredArtifact, error) {
	src, err := os.Open(source)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open artifact")
	}
	defer src.Close()

	fileID := uuid.NewString()
	stored := fileID + "_" + filepath.Base(source)
	obj, err := p.fs.Put(stored, src)
	if err != nil {
		return nil, errors.Wrap(err, "failed to store artifact")
	}

	artifact := &structs.StoredArtifact{
		FileID: fileID,
		Path:   p.fs.GetFullPath(obj.Path),
	}
	if ttlHours > 0 {
		expires := time.Now().Add(time.Duration(ttlHours) * time.Hour)
		artifact.ExpiresAt = &expires
	}
	return artifact, nil
}

// Resolve finds the stored file for a file id. It returns nil with no error
// when nothing matches, which callers treat as expired or removed.
func (p *Placement) Resolve(fileID string) (*structs.StoredArtifact, error) {
	objects, err := p.fs.List(fileID + "_")
	if err != nil {
		return nil, err
	}
	if len(objects) == 0 {
		return nil, nil
	}
	obj := objects[0]
	return &structs.StoredArtifact{
		FileID: fileID,
		Path:   p.fs.GetFullPath(obj.Path),
	}, nil
}

// Remove deletes the stored file for a file id if present.
func (p *Placement) Remove(fileID string) error {
	objects, err := p.fs.List(fileID + "_")
	if err != nil {
		return err
	}
	for _, obj := range objects {
		if err := p.fs.Delete(obj.Path); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}

// DownloadName strips the file id prefix from a stored path, recovering the
// artifact's original filename.
func DownloadName(path string) string {
	base := filepath.Base(path)
	if i := strings.Index(base, "_"); i > 0 && i == 36 {
		return base[i+1:]
	}
	return base
}
