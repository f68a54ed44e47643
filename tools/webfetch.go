package tools

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/html"

	research "github.com/armatrix/deep-research-go"
)

const (
	maxFetchBytes = 512_000
	fetchTimeout  = 30 * time.Second
)

// WebFetchInput defines the input for fetch_url.
type WebFetchInput struct {
	URL string `json:"url" jsonschema:"required,description=The http or https URL to fetch"`
}

// FetchFunc retrieves the body of url.
type FetchFunc func(ctx context.Context, url string) (string, error)

// WebFetchTool fetches a web page and returns its visible text.
type WebFetchTool struct {
	// Fetcher overrides the HTTP client; nil uses a default client.
	Fetcher FetchFunc

	// UserAgent is sent by the default fetcher.
	UserAgent string
}

var _ research.TypedTool[WebFetchInput] = (*WebFetchTool)(nil)

func (t *WebFetchTool) Name() string        { return "fetch_url" }
func (t *WebFetchTool) Description() string { return "Fetch a web page and return its text content" }

func (t *WebFetchTool) Execute(ctx context.Context, input WebFetchInput) (*research.ToolResult, error) {
	url := strings.TrimSpace(input.URL)
	if url == "" {
		return research.ErrorResult("url is required"), nil
	}
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		return research.ErrorResult(fmt.Sprintf("unsupported url %q: only http and https are allowed", url)), nil
	}

	fetch := t.Fetcher
	if fetch == nil {
		fetch = t.defaultFetch
	}
	body, err := fetch(ctx, url)
	if err != nil {
		return research.ErrorResult(fmt.Sprintf("fetch failed: %s", err)), nil
	}

	text := htmlText(body)
	if len(text) > maxFetchBytes {
		text = text[:maxFetchBytes] + "\n... [content truncated]"
	}
	return research.TextResult(fmt.Sprintf("URL: %s\n\n%s", url, text)), nil
}

// Tools makes a single WebFetchTool usable as a research.ToolSource.
func (t *WebFetchTool) Tools(context.Context) ([]research.Tool, error) {
	return []research.Tool{research.NewTool[WebFetchInput](t)}, nil
}

func (t *WebFetchTool) defaultFetch(ctx context.Context, url string) (string, error) {
	client := &http.Client{Timeout: fetchTimeout}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	ua := t.UserAgent
	if ua == "" {
		ua = "deep-research/1.0"
	}
	req.Header.Set("User-Agent", ua)

	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("HTTP %s", resp.Status)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFetchBytes+1))
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// htmlText extracts visible text from an HTML document, dropping script and
// style content. Plain text passes through unchanged apart from whitespace.
func htmlText(doc string) string {
	z := html.NewTokenizer(strings.NewReader(doc))
	var (
		b    strings.Builder
		skip int
	)
	for {
		switch z.Next() {
		case html.ErrorToken:
			return strings.Join(strings.Fields(b.String()), " ")
		case html.StartTagToken:
			if name, _ := z.TagName(); isHiddenTag(name) {
				skip++
			}
		case html.EndTagToken:
			if name, _ := z.TagName(); isHiddenTag(name) && skip > 0 {
				skip--
			}
		case html.TextToken:
			if skip == 0 {
				b.Write(z.Text())
				b.WriteByte(' ')
			}
		}
	}
}

func isHiddenTag(name []byte) bool {
	switch string(name) {
	case "script", "style", "noscript", "template":
		return true
	}
	return false
}
