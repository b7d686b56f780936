package storage

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	apperrors "coinlecture/internal/errors"
)

// PublicPrefix is the URL path cover images are served under.
const PublicPrefix = "/images/books"

const maxImageSize = 5 << 20

var allowedExt = map[string]bool{"png": true, "jpg": true, "jpeg": true, "gif": true, "webp": true}

// ImageStore writes book cover images to a directory served statically.
type ImageStore struct {
	dir string
}

// NewImageStore returns a store rooted at dir. The directory is created on first write.
func NewImageStore(dir string) *ImageStore {
	return &ImageStore{dir: dir}
}

// Dir returns the directory images are written to.
func (s *ImageStore) Dir() string {
	return s.dir
}

// IsDataURI reports whether v looks like an inline base64 image.
func IsDataURI(v string) bool {
	return strings.HasPrefix(v, "data:image/")
}

// StageDataURI decodes a data URI into a temporary file next to the final
// cover. Nothing visible changes until Commit; Discard drops the file.
func (s *ImageStore) StageDataURI(bookID uint, uri string) (*StagedImage, error) {
	header, payload, ok := strings.Cut(uri, ",")
	if !ok || !IsDataURI(header) || !strings.HasSuffix(header, ";base64") {
		return nil, fmt.Errorf("%w: malformed data uri", apperrors.ErrInvalidImage)
	}
	ext := strings.ToLower(strings.TrimSuffix(strings.TrimPrefix(header, "data:image/"), ";base64"))
	if ext == "svg+xml" || !allowedExt[ext] {
		return nil, fmt.Errorf("%w: unsupported type %q", apperrors.ErrInvalidImage, ext)
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrInvalidImage, err)
	}
	return s.stage(bookID, ext, data)
}

// StagedImage is a cover written under a temporary name.
type StagedImage struct {
	// Path is the public path the cover will have once committed.
	Path  string
	tmp   string
	final string
}

// Commit moves the staged file to its final name, replacing any previous
// cover with the same name.
func (si *StagedImage) Commit() error {
	if err := os.Rename(si.tmp, si.final); err != nil {
		_ = os.Remove(si.tmp)
		return fmt.Errorf("commit image: %w", err)
	}
	return nil
}

// Discard removes the staged file. It is safe to call after Commit.
func (si *StagedImage) Discard() {
	_ = os.Remove(si.tmp)
}

// Save stores r as the cover of bookID, picking the extension from the content.
func (s *ImageStore) Save(bookID uint, r io.Reader) (string, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxImageSize+1))
	if err != nil {
		return "", fmt.Errorf("read image: %w", err)
	}
	if len(data) > maxImageSize {
		return "", fmt.Errorf("%w: larger than %d bytes", apperrors.ErrInvalidImage, maxImageSize)
	}
	mt := mimetype.Detect(data)
	if !strings.HasPrefix(mt.String(), "image/") {
		return "", fmt.Errorf("%w: detected %s", apperrors.ErrInvalidImage, mt.String())
	}
	ext := strings.TrimPrefix(mt.Extension(), ".")
	if !allowedExt[ext] {
		return "", fmt.Errorf("%w: unsupported type %s", apperrors.ErrInvalidImage, mt.String())
	}
	return s.write(bookID, ext, data)
}

// Remove deletes the file behind a public path previously returned by the
// store. The default cover and paths outside the store are left alone.
func (s *ImageStore) Remove(publicPath string) error {
	name, ok := strings.CutPrefix(publicPath, PublicPrefix+"/")
	if !ok || name == "" || strings.ContainsAny(name, `/\`) || !strings.HasPrefix(name, "book") {
		return nil
	}
	err := os.Remove(filepath.Join(s.dir, name))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove image: %w", err)
	}
	return nil
}

func (s *ImageStore) write(bookID uint, ext string, data []byte) (string, error) {
	staged, err := s.stage(bookID, ext, data)
	if err != nil {
		return "", err
	}
	if err := staged.Commit(); err != nil {
		return "", err
	}
	return staged.Path, nil
}

func (s *ImageStore) stage(bookID uint, ext string, data []byte) (*StagedImage, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	name := fmt.Sprintf("book%d.%s", bookID, ext)
	f, err := os.CreateTemp(s.dir, "."+name+".tmp-*")
	if err != nil {
		return nil, fmt.Errorf("write image: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(f.Name())
		return nil, fmt.Errorf("write image: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return nil, fmt.Errorf("write image: %w", err)
	}
	if err := os.Chmod(f.Name(), 0o644); err != nil {
		os.Remove(f.Name())
		return nil, fmt.Errorf("write image: %w", err)
	}
	return &StagedImage{
		Path:  PublicPrefix + "/" + name,
		tmp:   f.Name(),
		final: filepath.Join(s.dir, name),
	}, nil
}
