package tools

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func staticSearch(results ...SearchResult) SearchFunc {
	return func(context.Context, string, int) ([]SearchResult, error) {
		return results, nil
	}
}

func TestWebSearchTool_Execute(t *testing.T) {
	var gotQuery string
	var gotMax int
	tool := &WebSearchTool{Search: func(_ context.Context, q string, n int) ([]SearchResult, error) {
		gotQuery, gotMax = q, n
		return []SearchResult{
			{Title: "Espresso", URL: "https://example.com/espresso", Snippet: " Nine bar. "},
			{Title: "Crema", URL: "https://coffee.test/crema", Snippet: "Foam."},
		}, nil
	}}

	res, err := tool.Execute(context.Background(), WebSearchInput{Query: " espresso "})
	require.NoError(t, err)
	require.False(t, res.IsError)
	assert.Equal(t, "espresso", gotQuery)
	assert.Equal(t, defaultSearchResults, gotMax)
	assert.Equal(t,
		"1. [Espresso](https://example.com/espresso)\n   Nine bar.\n\n2. [Crema](https://coffee.test/crema)\n   Foam.\n\n",
		res.Content)
}

func TestWebSearchTool_Errors(t *testing.T) {
	res, err := (&WebSearchTool{Search: staticSearch()}).Execute(context.Background(), WebSearchInput{})
	require.NoError(t, err)
	assert.True(t, res.IsError)

	res, err = (&WebSearchTool{}).Execute(context.Background(), WebSearchInput{Query: "q"})
	require.NoError(t, err)
	assert.Contains(t, res.Content, "not configured")

	failing := &WebSearchTool{Search: func(context.Context, string, int) ([]SearchResult, error) {
		return nil, errors.New("quota exceeded")
	}}
	res, err = failing.Execute(context.Background(), WebSearchInput{Query: "q"})
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, res.Content, "quota exceeded")

	res, err = (&WebSearchTool{Search: staticSearch()}).Execute(context.Background(), WebSearchInput{Query: "q"})
	require.NoError(t, err)
	assert.Equal(t, "No results found.", res.Content)
}

func TestFilterResults(t *testing.T) {
	results := []SearchResult{
		{URL: "https://www.example.com/a"},
		{URL: "https://blog.test/b"},
		{URL: "http://spam.test/c"},
	}

	assert.Len(t, filterResults(results, nil, nil), 3)
	assert.Equal(t, results[:1], filterResults(results, []string{"Example.com"}, nil))
	assert.Equal(t, results[:2], filterResults(results, nil, []string{"spam.test"}))
}

func TestTavilySearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer tvly-key", r.Header.Get("Authorization"))

		var req tavilyRequest
		if !assert.NoError(t, json.NewDecoder(r.Body).Decode(&req)) || req.Query == "fail" {
			http.Error(w, "bad key", http.StatusUnauthorized)
			return
		}
		assert.Equal(t, 3, req.MaxResults)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"results": []map[string]string{
				{"title": "Roasting", "url": "https://example.com/roast", "content": "Light vs dark"},
			},
		})
	}))
	defer srv.Close()

	search := tavily{apiKey: "tvly-key", endpoint: srv.URL, client: srv.Client()}.search

	results, err := search(context.Background(), "roasting", 3)
	require.NoError(t, err)
	assert.Equal(t, []SearchResult{{Title: "Roasting", URL: "https://example.com/roast", Snippet: "Light vs dark"}}, results)

	_, err = search(context.Background(), "fail", 3)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
	assert.Contains(t, err.Error(), "bad key")
}

func TestWebSearchTool_AsToolSource(t *testing.T) {
	tools, err := (&WebSearchTool{}).Tools(context.Background())
	require.NoError(t, err)
	require.Len(t, tools, 1)
	assert.Equal(t, "web_search", tools[0].Name())
	assert.Contains(t, tools[0].Schema().Required, "query")
}
