package tools

import (
	"bufio"
	"context"
	"fmt"
	"strings"

	research "github.com/armatrix/deep-research-go"
)

const (
	defaultReadLimit   = 2000
	maxLineLength      = 2000
	truncationSuffix   = "... [truncated]"
	lineNumberTabWidth = 6
)

// ReadInput defines the input for read_document.
type ReadInput struct {
	Path   string `json:"path" jsonschema:"required,description=Document path relative to the research directory"`
	Offset *int   `json:"offset,omitempty" jsonschema:"description=The line number to start reading from (1-based)"`
	Limit  *int   `json:"limit,omitempty" jsonschema:"description=The number of lines to read"`
}

// ReadTool reads a document with line numbers.
type ReadTool struct {
	docs *LocalDocs
}

var _ research.TypedTool[ReadInput] = (*ReadTool)(nil)

func (t *ReadTool) Name() string        { return "read_document" }
func (t *ReadTool) Description() string { return "Read a document from the research directory" }

func (t *ReadTool) Execute(_ context.Context, input ReadInput) (*research.ToolResult, error) {
	if input.Path == "" {
		return research.ErrorResult("path is required"), nil
	}
	path, err := cleanPath(input.Path)
	if err != nil {
		return research.ErrorResult(err.Error()), nil
	}

	f, err := t.docs.fsys.Open(path)
	if err != nil {
		return research.ErrorResult(fmt.Sprintf("failed to open document: %s", err)), nil
	}
	defer f.Close()

	limit := defaultReadLimit
	if input.Limit != nil && *input.Limit > 0 {
		limit = *input.Limit
	}
	offset := 1
	if input.Offset != nil && *input.Offset > 0 {
		offset = *input.Offset
	}

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var b strings.Builder
	lineNum, written := 0, 0
	for scanner.Scan() {
		lineNum++
		if lineNum < offset {
			continue
		}
		if written >= limit {
			fmt.Fprintf(&b, "... [more lines; continue with offset %d]\n", lineNum)
			break
		}
		line := scanner.Text()
		if len(line) > maxLineLength {
			line = line[:maxLineLength-len(truncationSuffix)] + truncationSuffix
		}
		fmt.Fprintf(&b, "%*d\t%s\n", lineNumberTabWidth, lineNum, line)
		written++
	}
	if err := scanner.Err(); err != nil {
		return research.ErrorResult(fmt.Sprintf("error reading document: %s", err)), nil
	}

	if b.Len() == 0 {
		return research.TextResult("(empty document)"), nil
	}
	return research.TextResult(b.String()), nil
}
