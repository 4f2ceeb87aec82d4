package local

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"path"
	"strings"

	"github.com/Abdurahmanit/GroupProject/places-service/internal/listing/domain"
	"github.com/google/uuid"
	"github.com/spf13/afero"
)

// Storage keeps images as files under one directory. References are the
// slash-separated relative paths, e.g. uploads/images/<uuid>.png.
type Storage struct {
	fs  afero.Fs
	dir string
}

var _ domain.ArtifactStore = (*Storage)(nil)

func NewStorage(fsys afero.Fs, dir string) (*Storage, error) {
	dir = path.Clean(strings.TrimSuffix(dir, "/"))
	if err := fsys.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload dir %s: %w", dir, err)
	}
	return &Storage{fs: fsys, dir: dir}, nil
}

func (s *Storage) Put(ctx context.Context, blob domain.Blob) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	ext, ok := domain.ImageExtension(blob.ContentType)
	if !ok {
		return "", fmt.Errorf("unsupported content type %q: %w", blob.ContentType, domain.ErrInvalidInput)
	}
	ref := path.Join(s.dir, uuid.NewString()+"."+ext)
	if err := afero.WriteFile(s.fs, ref, blob.Data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", ref, err)
	}
	return ref, nil
}

// Delete removes the file behind ref. A missing file is not an error.
func (s *Storage) Delete(ctx context.Context, ref string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	clean := path.Clean(ref)
	if path.Dir(clean) != s.dir {
		return fmt.Errorf("reference %q is outside %s", ref, s.dir)
	}
	if err := s.fs.Remove(clean); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove %s: %w", clean, err)
	}
	return nil
}

// Prefix is the URL path under which FileServer serves stored images.
func (s *Storage) Prefix() string {
	return "/" + s.dir + "/"
}

// FileServer serves stored images read-only, so a reference returned by Put
// is also its URL path.
func (s *Storage) FileServer() http.Handler {
	return http.StripPrefix(s.Prefix(), http.FileServer(afero.NewHttpFs(s.fs).Dir(s.dir)))
}
