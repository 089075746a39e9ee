package capture

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/exp/mmap"
)

var (
	// ErrNotFound is returned when a source has no object under the key.
	ErrNotFound = errors.New("capture not found")
	// ErrInvalidKey is returned for keys that escape the source root.
	ErrInvalidKey = errors.New("invalid capture key")
)

// Source serves capture files and summary documents by key.
type Source interface {
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	// List returns the keys under prefix, sorted.
	List(ctx context.Context, prefix string) ([]string, error)
}

// FileSource serves files from a local directory through read-only
// memory maps.
type FileSource struct {
	root string
}

// NewFileSource creates a source rooted at dir.
func NewFileSource(dir string) (*FileSource, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("open capture dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("open capture dir: %s is not a directory", dir)
	}
	return &FileSource{root: dir}, nil
}

// Root returns the directory backing the source.
func (s *FileSource) Root() string {
	return s.root
}

func (s *FileSource) resolve(key string) (string, error) {
	if key == "" || !filepath.IsLocal(filepath.FromSlash(key)) {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return filepath.Join(s.root, filepath.FromSlash(key)), nil
}

// Open maps the file under key. The mapping is released on Close.
func (s *FileSource) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := s.resolve(key)
	if err != nil {
		return nil, err
	}

	reader, err := mmap.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return nil, fmt.Errorf("mmap %s: %w", key, err)
	}
	return &mappedFile{
		SectionReader: io.NewSectionReader(reader, 0, int64(reader.Len())),
		mapping:       reader,
	}, nil
}

// List walks the directory and returns slash-separated keys.
func (s *FileSource) List(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(s.root, path)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list captures: %w", err)
	}
	sort.Strings(keys)
	return keys, nil
}

type mappedFile struct {
	*io.SectionReader
	mapping *mmap.ReaderAt
}

func (f *mappedFile) Close() error {
	return f.mapping.Close()
}
