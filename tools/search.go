package tools

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"regexp"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	research "github.com/armatrix/deep-research-go"
)

// SearchInput defines the input for search_documents.
type SearchInput struct {
	Pattern         string `json:"pattern" jsonschema:"required,description=Regular expression to search for"`
	Glob            string `json:"glob,omitempty" jsonschema:"description=Only search documents matching this glob (e.g. **/*.md)"`
	CaseInsensitive bool   `json:"case_insensitive,omitempty" jsonschema:"description=Case insensitive search"`
}

// SearchTool searches document contents line by line.
type SearchTool struct {
	docs *LocalDocs
}

var _ research.TypedTool[SearchInput] = (*SearchTool)(nil)

func (t *SearchTool) Name() string { return "search_documents" }
func (t *SearchTool) Description() string {
	return "Search document contents with a regular expression. Returns path:line: text for each match."
}

func (t *SearchTool) Execute(ctx context.Context, input SearchInput) (*research.ToolResult, error) {
	if input.Pattern == "" {
		return research.ErrorResult("pattern is required"), nil
	}
	expr := input.Pattern
	if input.CaseInsensitive {
		expr = "(?i)" + expr
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return research.ErrorResult(fmt.Sprintf("invalid pattern: %s", err)), nil
	}

	glob := strings.TrimPrefix(input.Glob, "/")
	if glob == "" {
		glob = "**/*"
	}
	if !doublestar.ValidatePattern(glob) {
		return research.ErrorResult(fmt.Sprintf("invalid glob %q", input.Glob)), nil
	}
	files, err := matchFiles(t.docs.fsys, glob)
	if err != nil {
		return research.ErrorResult(fmt.Sprintf("glob error: %s", err)), nil
	}

	var (
		b       strings.Builder
		matches int
	)
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		n := searchFile(t.docs.fsys, path, re, t.docs.maxResults-matches, &b)
		matches += n
		if matches >= t.docs.maxResults {
			b.WriteString("... [match limit reached]\n")
			break
		}
	}

	if matches == 0 {
		return research.TextResult("No matches found."), nil
	}
	return research.TextResult(b.String()), nil
}

// searchFile writes up to limit matching lines of path to b. Binary and
// oversized files are skipped.
func searchFile(fsys fs.FS, path string, re *regexp.Regexp, limit int, b *strings.Builder) int {
	data, err := fs.ReadFile(fsys, path)
	if err != nil || len(data) > maxFileBytes || bytes.IndexByte(data, 0) >= 0 {
		return 0
	}

	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	found, line := 0, 0
	for scanner.Scan() && found < limit {
		line++
		text := scanner.Text()
		if !re.MatchString(text) {
			continue
		}
		if len(text) > maxLineLength {
			text = text[:maxLineLength-len(truncationSuffix)] + truncationSuffix
		}
		fmt.Fprintf(b, "%s:%d: %s\n", path, line, text)
		found++
	}
	return found
}
