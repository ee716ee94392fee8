// Package sefaria fetches Likutei Halachot texts from the Sefaria API.
package sefaria

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"halacha-yomi-bot/internal/domain"
	"halacha-yomi-bot/internal/infra/metrics"
)

const userAgent = "LikuteiHalachotYomiBot/1.0"

var htmlTags = regexp.MustCompile(`<[^>]*>`)

type Client struct {
	baseURL    *url.URL
	webBase    string
	catalog    *domain.Catalog
	httpClient *http.Client
}

var _ domain.CorpusClient = (*Client)(nil)

type Option func(*Client)

func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithWebBase overrides the base of the reader links put into messages.
func WithWebBase(base string) Option {
	return func(c *Client) {
		c.webBase = strings.TrimRight(base, "/")
	}
}

func New(baseURL string, catalog *domain.Catalog, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("baseURL is required")
	}
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	client := &Client{
		baseURL:    parsed,
		webBase:    "https://www.sefaria.org",
		catalog:    catalog,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// apiResponse follows the texts endpoint shape. The he and text fields are a
// string, an array of strings, or nested arrays depending on the reference
// depth, so they stay raw until flattening.
type apiResponse struct {
	Ref   string          `json:"ref"`
	HeRef string          `json:"heRef"`
	He    json.RawMessage `json:"he"`
	Text  json.RawMessage `json:"text"`
	Error string          `json:"error"`
}

// Fetch retrieves the text of one excerpt. A reference Sefaria does not know
// yields domain.ErrNotFound; transport and server failures come back as
// UpstreamError so the caller can retry them.
func (c *Client) Fetch(ctx context.Context, excerpt domain.Excerpt) (domain.FetchedText, error) {
	ref := excerpt.Ref(c.catalog)
	if ref == "" {
		return domain.FetchedText{}, fmt.Errorf("excerpt %s/%d: %w", excerpt.SectionID, excerpt.Chapter, domain.ErrNotFound)
	}
	ref = strings.ReplaceAll(ref, " ", "_")

	endpoint := *c.baseURL
	endpoint.Path = strings.TrimRight(endpoint.Path, "/") + "/texts/" + ref
	endpoint.RawQuery = "context=0"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return domain.FetchedText{}, &domain.UpstreamError{Op: "sefaria request", Err: err}
	}
	req.Header.Set("User-Agent", userAgent)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	metrics.ObserveNetworkRequest("sefaria", "get_text", ref, start, err)
	if err != nil {
		return domain.FetchedText{}, &domain.UpstreamError{Op: "sefaria get_text", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return domain.FetchedText{}, fmt.Errorf("%s: %w", ref, domain.ErrNotFound)
	}
	if resp.StatusCode != http.StatusOK {
		return domain.FetchedText{}, &domain.UpstreamError{Op: "sefaria get_text", Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}

	var data apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return domain.FetchedText{}, &domain.UpstreamError{Op: "sefaria decode", Err: err}
	}
	// Sefaria reports unknown references inside a 200 response.
	if data.Error != "" {
		return domain.FetchedText{}, fmt.Errorf("%s: %s: %w", ref, data.Error, domain.ErrNotFound)
	}

	hebrew := strings.Join(flatten(data.He), "\n\n")
	if hebrew == "" {
		return domain.FetchedText{}, fmt.Errorf("%s has no hebrew text: %w", ref, domain.ErrNotFound)
	}

	return domain.FetchedText{
		Hebrew:  hebrew,
		English: strings.Join(flatten(data.Text), "\n\n"),
		URL:     c.webBase + "/" + ref,
	}, nil
}

// flatten walks the possibly nested text value and returns the cleaned
// non-empty segments in reading order.
func flatten(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		s = strings.TrimSpace(htmlTags.ReplaceAllString(s, ""))
		if s == "" {
			return nil
		}
		return []string{s}
	}

	var nested []json.RawMessage
	if err := json.Unmarshal(raw, &nested); err != nil {
		return nil
	}
	var out []string
	for _, item := range nested {
		out = append(out, flatten(item)...)
	}
	return out
}
