// Package storage keeps annotated images and zip bundles in a flat directory.
// Artifacts are written once under unique names and never removed; the
// directory grows without bound.
package storage

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"image"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"github.com/klauspost/compress/zip"
)

var (
	ErrNotFound    = errors.New("artifact not found")
	ErrInvalidName = errors.New("invalid artifact name")
)

const maxOriginalLen = 100

// FileStore is a flat artifact directory opened as an os.Root, so no name can
// resolve outside of it.
type FileStore struct {
	dir  string
	root *os.Root
}

// Artifact is an open stored file. The caller closes File.
type Artifact struct {
	Name        string
	Size        int64
	ModTime     time.Time
	ContentType string
	File        *os.File
}

func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	root, err := os.OpenRoot(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to open storage directory: %w", err)
	}
	return &FileStore{dir: dir, root: root}, nil
}

func (s *FileStore) Dir() string { return s.dir }

func (s *FileStore) Close() error {
	return s.root.Close()
}

// SaveImage stores img as PNG under "<token>_<original>.png" and returns that name.
func (s *FileStore) SaveImage(ctx context.Context, original string, img image.Image) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	name := uniqueName(sanitize(original) + ".png")
	err := s.create(name, func(w io.Writer) error {
		return imaging.Encode(w, img, imaging.PNG)
	})
	if err != nil {
		return "", fmt.Errorf("save %s: %w", original, err)
	}
	return name, nil
}

// Bundle writes the named artifacts into a new zip and returns its name.
func (s *FileStore) Bundle(ctx context.Context, names []string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	for _, n := range names {
		if err := validName(n); err != nil {
			return "", err
		}
	}

	name := uniqueName("annotated.zip")
	err := s.create(name, func(w io.Writer) error {
		zw := zip.NewWriter(w)
		for _, n := range names {
			if err := s.addToZip(zw, n); err != nil {
				return err
			}
		}
		return zw.Close()
	})
	if err != nil {
		return "", fmt.Errorf("bundle: %w", err)
	}
	return name, nil
}

func (s *FileStore) addToZip(zw *zip.Writer, name string) error {
	src, err := s.root.Open(name)
	if err != nil {
		return fmt.Errorf("open %s: %w", name, err)
	}
	defer src.Close()

	info, err := src.Stat()
	if err != nil {
		return fmt.Errorf("stat %s: %w", name, err)
	}
	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return fmt.Errorf("zip header %s: %w", name, err)
	}
	header.Name = name
	// PNG is already compressed
	header.Method = zip.Store

	entry, err := zw.CreateHeader(header)
	if err != nil {
		return fmt.Errorf("zip entry %s: %w", name, err)
	}
	if _, err := io.Copy(entry, src); err != nil {
		return fmt.Errorf("zip copy %s: %w", name, err)
	}
	return nil
}

// Open looks up an artifact by exact name.
func (s *FileStore) Open(name string) (*Artifact, error) {
	if err := validName(name); err != nil {
		return nil, err
	}

	f, err := s.root.Open(name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return nil, fmt.Errorf("failed to open artifact: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to stat artifact: %w", err)
	}
	if !info.Mode().IsRegular() {
		f.Close()
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}

	return &Artifact{
		Name:        name,
		Size:        info.Size(),
		ModTime:     info.ModTime(),
		ContentType: ContentType(name),
		File:        f,
	}, nil
}

// create writes a new file with O_EXCL and removes it if write fails.
func (s *FileStore) create(name string, write func(io.Writer) error) error {
	f, err := s.root.OpenFile(name, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		_ = s.root.Remove(name)
		return err
	}
	if err := f.Close(); err != nil {
		_ = s.root.Remove(name)
		return err
	}
	return nil
}

// ContentType maps an artifact name to its media type.
func ContentType(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".png":
		return "image/png"
	case ".zip":
		return "application/zip"
	default:
		return "application/octet-stream"
	}
}

func uniqueName(suffix string) string {
	id := uuid.New()
	return hex.EncodeToString(id[:]) + "_" + suffix
}

// validName accepts only a single plain path element.
func validName(name string) error {
	switch {
	case name == "",
		strings.ContainsAny(name, `/\`),
		strings.HasPrefix(name, "."),
		strings.ContainsRune(name, 0),
		filepath.Base(name) != name:
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

// sanitize reduces an uploaded filename to a safe single path element.
func sanitize(original string) string {
	base := original
	if i := strings.LastIndexAny(base, `/\`); i >= 0 {
		base = base[i+1:]
	}

	var b strings.Builder
	for _, r := range base {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}

	out := strings.TrimLeft(b.String(), ".")
	if len(out) > maxOriginalLen {
		out = out[len(out)-maxOriginalLen:]
	}
	if out == "" {
		return "image"
	}
	return out
}
