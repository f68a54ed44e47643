package tools

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	research "github.com/armatrix/deep-research-go"
)

func testDocs(opts ...LocalDocsOption) *LocalDocs {
	fsys := fstest.MapFS{
		"coffee/ethiopia.md":  {Data: []byte("# Ethiopia\nYirgacheffe is floral.\nSidamo is fruity.\n")},
		"coffee/colombia.md":  {Data: []byte("# Colombia\nHuila beans are sweet.\n")},
		"notes.txt":           {Data: []byte("shopping list\n")},
		"empty.md":            {Data: []byte("")},
		"images/logo.bin":     {Data: []byte{0x89, 'P', 'N', 'G', 0x00, 0x01}},
		"archive/old/2019.md": {Data: []byte("Roasting notes from 2019\n")},
	}
	return NewLocalDocsFS("/docs", fsys, opts...)
}

func invoke(t *testing.T, docs *LocalDocs, name string, input string) *research.ToolResult {
	t.Helper()
	tools, err := docs.Tools(context.Background())
	require.NoError(t, err)
	for _, tool := range tools {
		if tool.Name() == name {
			res, err := tool.Invoke(context.Background(), json.RawMessage(input))
			require.NoError(t, err)
			return res
		}
	}
	t.Fatalf("tool %s not found", name)
	return nil
}

func TestLocalDocs_ToolSet(t *testing.T) {
	tools, err := testDocs().Tools(context.Background())
	require.NoError(t, err)

	var names []string
	for _, tool := range tools {
		names = append(names, tool.Name())
		assert.NotEmpty(t, tool.Description())
	}
	assert.Equal(t, []string{"list_documents", "read_document", "search_documents"}, names)
}

func TestNewLocalDocs_RequiresDirectory(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "f.txt")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))

	_, err := NewLocalDocs(file)
	assert.Error(t, err)

	_, err = NewLocalDocs(filepath.Join(dir, "missing"))
	assert.Error(t, err)

	docs, err := NewLocalDocs(dir)
	require.NoError(t, err)
	assert.Equal(t, dir, docs.Root())
}

func TestListDocuments_Default(t *testing.T) {
	res := invoke(t, testDocs(), "list_documents", `{}`)
	require.False(t, res.IsError)

	lines := strings.Split(strings.TrimSpace(res.Content), "\n")
	assert.Equal(t, []string{
		"archive/old/2019.md",
		"coffee/colombia.md",
		"coffee/ethiopia.md",
		"empty.md",
		"images/logo.bin",
		"notes.txt",
	}, lines)
}

func TestListDocuments_Pattern(t *testing.T) {
	res := invoke(t, testDocs(), "list_documents", `{"pattern":"coffee/*.md"}`)
	assert.Equal(t, "coffee/colombia.md\ncoffee/ethiopia.md\n", res.Content)

	res = invoke(t, testDocs(), "list_documents", `{"pattern":"**/*.pdf"}`)
	assert.Contains(t, res.Content, "No documents matched")
}

func TestListDocuments_InvalidPattern(t *testing.T) {
	res := invoke(t, testDocs(), "list_documents", `{"pattern":"[unclosed"}`)
	assert.True(t, res.IsError)
}

func TestListDocuments_MaxResults(t *testing.T) {
	res := invoke(t, testDocs(WithMaxResults(2)), "list_documents", `{}`)
	assert.Contains(t, res.Content, "... 4 more")
}

func TestReadDocument(t *testing.T) {
	res := invoke(t, testDocs(), "read_document", `{"path":"coffee/ethiopia.md"}`)
	require.False(t, res.IsError)
	assert.Contains(t, res.Content, "1\t# Ethiopia")
	assert.Contains(t, res.Content, "3\tSidamo is fruity.")
}

func TestReadDocument_OffsetLimit(t *testing.T) {
	res := invoke(t, testDocs(), "read_document", `{"path":"coffee/ethiopia.md","offset":2,"limit":1}`)
	require.False(t, res.IsError)
	assert.NotContains(t, res.Content, "# Ethiopia")
	assert.Contains(t, res.Content, "2\tYirgacheffe is floral.")
	assert.NotContains(t, res.Content, "Sidamo")
	assert.Contains(t, res.Content, "continue with offset 3")
}

func TestReadDocument_Empty(t *testing.T) {
	res := invoke(t, testDocs(), "read_document", `{"path":"empty.md"}`)
	assert.Equal(t, "(empty document)", res.Content)
}

func TestReadDocument_Errors(t *testing.T) {
	docs := testDocs()

	res := invoke(t, docs, "read_document", `{}`)
	assert.True(t, res.IsError)

	res = invoke(t, docs, "read_document", `{"path":"missing.md"}`)
	assert.True(t, res.IsError)

	res = invoke(t, docs, "read_document", `{"path":"../etc/passwd"}`)
	assert.True(t, res.IsError)
	assert.Contains(t, res.Content, "outside the document root")
}

func TestReadDocument_LeadingSlashIsRelative(t *testing.T) {
	res := invoke(t, testDocs(), "read_document", `{"path":"/notes.txt"}`)
	require.False(t, res.IsError)
	assert.Contains(t, res.Content, "shopping list")
}

func TestSearchDocuments(t *testing.T) {
	res := invoke(t, testDocs(), "search_documents", `{"pattern":"is (floral|fruity)"}`)
	require.False(t, res.IsError)
	assert.Equal(t,
		"coffee/ethiopia.md:2: Yirgacheffe is floral.\ncoffee/ethiopia.md:3: Sidamo is fruity.\n",
		res.Content)
}

func TestSearchDocuments_CaseInsensitiveAndGlob(t *testing.T) {
	res := invoke(t, testDocs(), "search_documents", `{"pattern":"roasting","case_insensitive":true,"glob":"archive/**"}`)
	assert.Equal(t, "archive/old/2019.md:1: Roasting notes from 2019\n", res.Content)

	res = invoke(t, testDocs(), "search_documents", `{"pattern":"roasting"}`)
	assert.Equal(t, "No matches found.", res.Content)
}

func TestSearchDocuments_SkipsBinary(t *testing.T) {
	res := invoke(t, testDocs(), "search_documents", `{"pattern":"PNG"}`)
	assert.Equal(t, "No matches found.", res.Content)
}

func TestSearchDocuments_Limit(t *testing.T) {
	res := invoke(t, testDocs(WithMaxResults(1)), "search_documents", `{"pattern":"is"}`)
	assert.Contains(t, res.Content, "match limit reached")
	assert.Equal(t, 1, strings.Count(res.Content, ".md:"))
}

func TestSearchDocuments_InvalidRegex(t *testing.T) {
	res := invoke(t, testDocs(), "search_documents", `{"pattern":"(unclosed"}`)
	assert.True(t, res.IsError)
	assert.Contains(t, res.Content, "invalid pattern")
}

func TestLocalDocs_InCatalog(t *testing.T) {
	cat, err := research.FetchCatalog(context.Background(), []research.ToolSource{testDocs()})
	require.NoError(t, err)
	assert.Equal(t,
		[]string{research.ThinkToolName, "list_documents", "read_document", "search_documents"},
		cat.Names())
}
