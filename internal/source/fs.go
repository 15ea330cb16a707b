package source

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	domainerr "folio/internal/domain/errors"
)

var DefaultExtensions = []string{".md", ".mdx", ".markdown"}

// FS reads documents from one directory. The id of a document is its file
// name without the extension.
type FS struct {
	Root       string
	Extensions []string
}

func NewFS(root string, extensions ...string) *FS {
	if len(extensions) == 0 {
		extensions = DefaultExtensions
	}
	return &FS{Root: root, Extensions: extensions}
}

// List reads the root. A missing root is created so a fresh site starts empty.
func (s *FS) List(ctx context.Context) ([]string, error) {
	if err := s.ensureRoot(); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(s.Root)
	if err != nil {
		return nil, &domainerr.StoreUnavailableError{Op: "list", Err: err}
	}

	ids := make([]string, 0, len(entries))
	seen := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		ext := s.matchExt(e.Name())
		if ext == "" {
			continue
		}
		id := strings.TrimSuffix(e.Name(), ext)
		if _, dup := seen[id]; dup {
			// hello.md and hello.mdx share an id; Read prefers the first extension
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *FS) Read(ctx context.Context, id string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if id == "" || strings.ContainsAny(id, `/\`) || strings.Contains(id, "..") {
		return nil, fmt.Errorf("read %q: %w", id, domainerr.ErrNotFound)
	}
	base := filepath.Join(s.Root, id)
	for _, ext := range s.Extensions {
		raw, err := os.ReadFile(base + ext)
		if err == nil {
			return raw, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read %q: %w", id, err)
		}
	}
	return nil, fmt.Errorf("read %q: %w", id, domainerr.ErrNotFound)
}

func (s *FS) ensureRoot() error {
	info, err := os.Stat(s.Root)
	switch {
	case err == nil && info.IsDir():
		return nil
	case err == nil:
		return &domainerr.StoreUnavailableError{Op: "stat", Err: fmt.Errorf("%s is not a directory", s.Root)}
	case errors.Is(err, fs.ErrNotExist):
		if mkErr := os.MkdirAll(s.Root, 0o755); mkErr != nil {
			return &domainerr.StoreUnavailableError{Op: "provision", Err: mkErr}
		}
		return nil
	default:
		return &domainerr.StoreUnavailableError{Op: "stat", Err: err}
	}
}

func (s *FS) matchExt(name string) string {
	lower := strings.ToLower(name)
	for _, ext := range s.Extensions {
		if strings.HasSuffix(lower, strings.ToLower(ext)) {
			return name[len(name)-len(ext):]
		}
	}
	return ""
}
