package tools

import (
	"context"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	research "github.com/armatrix/deep-research-go"
)

// ListInput defines the input for list_documents.
type ListInput struct {
	Pattern string `json:"pattern,omitempty" jsonschema:"description=Glob pattern relative to the document root (e.g. **/*.md). Defaults to all files."`
}

// ListTool lists documents matching a glob pattern.
type ListTool struct {
	docs *LocalDocs
}

var _ research.TypedTool[ListInput] = (*ListTool)(nil)

func (t *ListTool) Name() string { return "list_documents" }
func (t *ListTool) Description() string {
	return "List documents in the research directory. Supports ** glob patterns."
}

func (t *ListTool) Execute(_ context.Context, input ListInput) (*research.ToolResult, error) {
	pattern := input.Pattern
	if pattern == "" {
		pattern = "**/*"
	}
	pattern = strings.TrimPrefix(pattern, "/")
	if !doublestar.ValidatePattern(pattern) {
		return research.ErrorResult(fmt.Sprintf("invalid pattern %q", input.Pattern)), nil
	}

	files, err := matchFiles(t.docs.fsys, pattern)
	if err != nil {
		return research.ErrorResult(fmt.Sprintf("glob error: %s", err)), nil
	}
	if len(files) == 0 {
		return research.TextResult("No documents matched the pattern."), nil
	}

	var b strings.Builder
	for i, f := range files {
		if i == t.docs.maxResults {
			fmt.Fprintf(&b, "... %d more\n", len(files)-i)
			break
		}
		b.WriteString(f)
		b.WriteByte('\n')
	}
	return research.TextResult(b.String()), nil
}

// matchFiles returns regular files matching pattern, sorted by path.
func matchFiles(fsys fs.FS, pattern string) ([]string, error) {
	matches, err := doublestar.Glob(fsys, pattern)
	if err != nil {
		return nil, err
	}
	files := matches[:0]
	for _, m := range matches {
		info, err := fs.Stat(fsys, m)
		if err != nil || info.IsDir() {
			continue
		}
		files = append(files, m)
	}
	sort.Strings(files)
	return files, nil
}
