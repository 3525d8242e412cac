package recipe

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aristath/ecowash/internal/clients/objectstore"
)

// Source is where recipe files (and the tolerance file) live.
type Source interface {
	// List returns the keys of every file in the source.
	List(ctx context.Context) ([]string, error)
	// Open returns the content stored under key. Missing keys yield ErrRecipeNotFound.
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	// Describe returns a human-readable location for logs.
	Describe() string
}

// DirSource reads recipes from a local directory (the "recette" folder).
type DirSource struct {
	dir string
}

// NewDirSource creates a source rooted at dir.
func NewDirSource(dir string) *DirSource {
	return &DirSource{dir: dir}
}

// Dir returns the watched directory.
func (s *DirSource) Dir() string {
	return s.dir
}

// List returns the regular files in the directory. A missing directory lists as empty.
func (s *DirSource) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to read recipe directory %s: %w", s.dir, err)
	}

	keys := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Type().IsRegular() {
			keys = append(keys, e.Name())
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// Open opens key inside the directory.
func (s *DirSource) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	if err := ValidateSelector(key); err != nil {
		return nil, err
	}
	f, err := os.Open(filepath.Join(s.dir, key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrRecipeNotFound, key)
		}
		return nil, fmt.Errorf("failed to open %s: %w", key, err)
	}
	return f, nil
}

// Describe implements Source.
func (s *DirSource) Describe() string {
	return "dir:" + s.dir
}

// ObjectStore is the subset of the bucket client used by ObjectSource.
type ObjectStore interface {
	List(ctx context.Context, prefix string) ([]string, error)
	Get(ctx context.Context, key string) (io.ReadCloser, error)
}

// ObjectSource reads recipes published to an object storage prefix.
type ObjectSource struct {
	store  ObjectStore
	prefix string
}

// NewObjectSource creates a source for the objects directly under prefix.
func NewObjectSource(store ObjectStore, prefix string) *ObjectSource {
	return &ObjectSource{store: store, prefix: strings.Trim(prefix, "/")}
}

// List returns object names relative to the prefix. Nested keys are ignored.
func (s *ObjectSource) List(ctx context.Context) ([]string, error) {
	listPrefix := s.prefix
	if listPrefix != "" {
		listPrefix += "/"
	}
	keys, err := s.store.List(ctx, listPrefix)
	if err != nil {
		return nil, err
	}

	out := make([]string, 0, len(keys))
	for _, k := range keys {
		rel := strings.TrimPrefix(k, listPrefix)
		if rel == "" || strings.Contains(rel, "/") {
			continue
		}
		out = append(out, rel)
	}
	sort.Strings(out)
	return out, nil
}

// Open fetches key from the bucket.
func (s *ObjectSource) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	if err := ValidateSelector(key); err != nil {
		return nil, err
	}
	body, err := s.store.Get(ctx, objectstore.JoinKey(s.prefix, key))
	if err != nil {
		if errors.Is(err, objectstore.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrRecipeNotFound, key)
		}
		return nil, err
	}
	return body, nil
}

// Describe implements Source.
func (s *ObjectSource) Describe() string {
	return "objectstore:" + s.prefix
}

// ValidateSelector rejects selectors that are empty or could escape the source root.
func ValidateSelector(selector string) error {
	s := strings.TrimSpace(selector)
	if s == "" {
		return fmt.Errorf("%w: selector is empty", ErrInvalidSelector)
	}
	if strings.ContainsAny(s, `/\`) || strings.Contains(s, "..") || strings.HasPrefix(s, ".") {
		return fmt.Errorf("%w: %q", ErrInvalidSelector, selector)
	}
	return nil
}
