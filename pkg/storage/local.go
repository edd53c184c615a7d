package storage

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/autoparts-market/backend/pkg/apperr"
)

// Local stores advertising images on the local filesystem under <root>/advertising.
type Local struct {
	dir       string
	urlPrefix string
	logger    *zap.Logger
}

// NewLocal creates a filesystem image store. urlPrefix is where the directory is served statically
// (e.g. /images). The directory is created lazily on the first write.
func NewLocal(root, urlPrefix string, logger *zap.Logger) *Local {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Local{
		dir:       filepath.Join(root, FolderAdvertising),
		urlPrefix: urlPrefix,
		logger:    logger,
	}
}

// Dir returns the directory images are written to.
func (l *Local) Dir() string { return l.dir }

// Store decodes a data URI into a new file. URLs and existing filenames pass through.
func (l *Local) Store(_ context.Context, payload, discriminator string) (string, error) {
	if IsExternal(payload) {
		return payload, nil
	}
	if !IsDataURI(payload) {
		if err := checkOpaqueName(payload); err != nil {
			return "", err
		}
		return payload, nil
	}
	ext, data, err := ParseDataURI(payload)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(l.dir, 0o755); err != nil {
		return "", apperr.IO("create image directory", err)
	}
	name := GenerateFilename(discriminator, ext)
	if err := writeFileAtomic(l.dir, name, data); err != nil {
		return "", apperr.IO("write image", err)
	}
	l.logger.Debug("image stored", zap.String("file", name), zap.Int("bytes", len(data)))
	return name, nil
}

// Remove deletes a stored file. External URLs, empty values and missing files are no-ops.
func (l *Local) Remove(_ context.Context, stored string) error {
	if !IsLocallyOwned(stored) {
		return nil
	}
	p := filepath.Join(l.dir, filepath.Base(stored))
	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return apperr.Cleanup("remove image "+stored, err)
	}
	return nil
}

// URL returns the public path of a stored file.
func (l *Local) URL(stored string) string {
	if stored == "" || IsExternal(stored) || IsDataURI(stored) {
		return stored
	}
	return path.Join(l.urlPrefix, FolderAdvertising, stored)
}

func writeFileAtomic(dir, name string, data []byte) error {
	tmp, err := os.CreateTemp(dir, ".upload-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, filepath.Join(dir, name)); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}
