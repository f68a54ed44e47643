package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	research "github.com/armatrix/deep-research-go"
)

const (
	defaultSearchResults = 5
	tavilyEndpoint       = "https://api.tavily.com/search"
)

// SearchResult is a single hit returned by a search backend.
type SearchResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"content"`
}

// SearchFunc is a pluggable search backend.
type SearchFunc func(ctx context.Context, query string, maxResults int) ([]SearchResult, error)

// WebSearchInput defines the input for web_search.
type WebSearchInput struct {
	Query          string   `json:"query" jsonschema:"required,description=The search query"`
	MaxResults     int      `json:"max_results,omitempty" jsonschema:"description=Maximum number of results (default 5)"`
	AllowedDomains []string `json:"allowed_domains,omitempty" jsonschema:"description=Only include results from these domains"`
	BlockedDomains []string `json:"blocked_domains,omitempty" jsonschema:"description=Exclude results from these domains"`
}

// WebSearchTool searches the web through Search.
type WebSearchTool struct {
	Search SearchFunc
}

var _ research.TypedTool[WebSearchInput] = (*WebSearchTool)(nil)

func (t *WebSearchTool) Name() string { return "web_search" }
func (t *WebSearchTool) Description() string {
	return "Search the web. Returns titles, URLs and snippets; use fetch_url to read a page in full."
}

func (t *WebSearchTool) Execute(ctx context.Context, input WebSearchInput) (*research.ToolResult, error) {
	query := strings.TrimSpace(input.Query)
	if query == "" {
		return research.ErrorResult("query is required"), nil
	}
	if t.Search == nil {
		return research.ErrorResult("search backend not configured"), nil
	}
	n := input.MaxResults
	if n <= 0 {
		n = defaultSearchResults
	}

	results, err := t.Search(ctx, query, n)
	if err != nil {
		return research.ErrorResult(fmt.Sprintf("search failed: %s", err)), nil
	}
	results = filterResults(results, input.AllowedDomains, input.BlockedDomains)
	if len(results) == 0 {
		return research.TextResult("No results found."), nil
	}

	var sb strings.Builder
	for i, r := range results {
		fmt.Fprintf(&sb, "%d. [%s](%s)\n   %s\n\n", i+1, r.Title, r.URL, strings.TrimSpace(r.Snippet))
	}
	return research.TextResult(sb.String()), nil
}

// Tools makes a WebSearchTool usable as a research.ToolSource.
func (t *WebSearchTool) Tools(context.Context) ([]research.Tool, error) {
	return []research.Tool{research.NewTool[WebSearchInput](t)}, nil
}

func filterResults(results []SearchResult, allowed, blocked []string) []SearchResult {
	if len(allowed) == 0 && len(blocked) == 0 {
		return results
	}
	allowSet := domainSet(allowed)
	blockSet := domainSet(blocked)

	var out []SearchResult
	for _, r := range results {
		d := domainOf(r.URL)
		if len(allowSet) > 0 && !allowSet[d] {
			continue
		}
		if blockSet[d] {
			continue
		}
		out = append(out, r)
	}
	return out
}

func domainSet(domains []string) map[string]bool {
	set := make(map[string]bool, len(domains))
	for _, d := range domains {
		set[strings.TrimPrefix(strings.ToLower(d), "www.")] = true
	}
	return set
}

func domainOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
}

// TavilySearch returns a SearchFunc backed by the Tavily search API. A nil
// client uses one with the default fetch timeout.
func TavilySearch(apiKey string, client *http.Client) SearchFunc {
	return tavily{apiKey: apiKey, endpoint: tavilyEndpoint, client: client}.search
}

type tavily struct {
	apiKey   string
	endpoint string
	client   *http.Client
}

type tavilyRequest struct {
	Query      string `json:"query"`
	MaxResults int    `json:"max_results"`
}

type tavilyResponse struct {
	Results []SearchResult `json:"results"`
}

func (t tavily) search(ctx context.Context, query string, maxResults int) ([]SearchResult, error) {
	body, err := json.Marshal(tavilyRequest{Query: query, MaxResults: maxResults})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+t.apiKey)

	client := t.client
	if client == nil {
		client = &http.Client{Timeout: fetchTimeout}
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("HTTP %s: %s", resp.Status, strings.TrimSpace(string(msg)))
	}
	var out tavilyResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}
	return out.Results, nil
}
