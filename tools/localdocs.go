package tools

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	research "github.com/armatrix/deep-research-go"
)

const (
	defaultMaxResults = 200
	maxFileBytes      = 2 << 20
)

// LocalDocs exposes a directory tree of documents to researchers. All paths
// are relative to the root; nothing outside it is reachable.
type LocalDocs struct {
	root       string
	fsys       fs.FS
	maxResults int
}

var _ research.ToolSource = (*LocalDocs)(nil)

// LocalDocsOption configures LocalDocs.
type LocalDocsOption func(*LocalDocs)

// WithMaxResults caps the entries returned by listing and search.
func WithMaxResults(n int) LocalDocsOption {
	return func(d *LocalDocs) {
		if n > 0 {
			d.maxResults = n
		}
	}
}

// NewLocalDocs serves the directory at root.
func NewLocalDocs(root string, opts ...LocalDocsOption) (*LocalDocs, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("docs root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("docs root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("docs root %s is not a directory", abs)
	}
	return NewLocalDocsFS(abs, os.DirFS(abs), opts...), nil
}

// NewLocalDocsFS serves fsys. root is used for display only.
func NewLocalDocsFS(root string, fsys fs.FS, opts ...LocalDocsOption) *LocalDocs {
	d := &LocalDocs{root: root, fsys: fsys, maxResults: defaultMaxResults}
	for _, fn := range opts {
		fn(d)
	}
	return d
}

// Root returns the served directory.
func (d *LocalDocs) Root() string { return d.root }

// Tools returns list_documents, read_document and search_documents.
func (d *LocalDocs) Tools(context.Context) ([]research.Tool, error) {
	return []research.Tool{
		research.NewTool[ListInput](&ListTool{docs: d}),
		research.NewTool[ReadInput](&ReadTool{docs: d}),
		research.NewTool[SearchInput](&SearchTool{docs: d}),
	}, nil
}

// cleanPath validates a model-supplied relative path.
func cleanPath(p string) (string, error) {
	p = filepath.ToSlash(filepath.Clean(p))
	if p == "" || p == "/" {
		return ".", nil
	}
	if len(p) > 0 && p[0] == '/' {
		p = p[1:]
	}
	if !fs.ValidPath(p) {
		return "", fmt.Errorf("path %q is outside the document root", p)
	}
	return p, nil
}
