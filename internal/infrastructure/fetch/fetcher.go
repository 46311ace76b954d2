// Package fetch downloads candidate pages, extracts their main text and
// resolves redirect chains.
package fetch

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"

	"SEOPilot/internal/config"
	"SEOPilot/internal/ports"
)

const (
	defaultUserAgent    = "Mozilla/5.0 (compatible; SEOPilot/1.0)"
	defaultMaxBodyBytes = 5 << 20
)

// noiseSelectors are stripped before the fallback extraction.
const noiseSelectors = "script, style, noscript, nav, header, footer, aside, form, iframe"

// Fetcher implements ports.ContentFetcher with readability and a goquery fallback.
type Fetcher struct {
	client       *http.Client
	userAgent    string
	maxBodyBytes int64
}

var _ ports.ContentFetcher = (*Fetcher)(nil)

// NewFetcher wires an HTTP client; a nil client gets the configured timeout.
func NewFetcher(cfg config.FetcherConfig, client *http.Client) *Fetcher {
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 20 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	maxBody := cfg.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = defaultMaxBodyBytes
	}
	return &Fetcher{client: client, userAgent: userAgent, maxBodyBytes: maxBody}
}

// Fetch downloads rawURL and returns its main text. Non-HTML responses yield an
// empty page rather than an error.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (ports.Page, error) {
	pageURL, err := url.Parse(rawURL)
	if err != nil {
		return ports.Page{}, fmt.Errorf("invalid url %s: %w", rawURL, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return ports.Page{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := f.client.Do(req)
	if err != nil {
		return ports.Page{}, fmt.Errorf("request page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return ports.Page{}, fmt.Errorf("page returned %s", resp.Status)
	}

	page := ports.Page{URL: rawURL}
	if ct := resp.Header.Get("Content-Type"); ct != "" && !strings.Contains(ct, "html") {
		return page, nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodyBytes))
	if err != nil {
		return ports.Page{}, fmt.Errorf("read page: %w", err)
	}

	page.Title, page.Text = extract(body, pageURL)
	return page, nil
}

// extract tries readability first and falls back to the article or body element.
func extract(body []byte, pageURL *url.URL) (title, text string) {
	if article, err := readability.FromReader(bytes.NewReader(body), pageURL); err == nil {
		title = strings.TrimSpace(article.Title)
		text = normalizeText(article.TextContent)
		if text != "" {
			return title, text
		}
	}

	fallbackTitle, text := fallbackExtract(body)
	if title == "" {
		title = fallbackTitle
	}
	return title, text
}

func fallbackExtract(body []byte) (title, text string) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return "", ""
	}
	title = strings.TrimSpace(doc.Find("title").First().Text())

	doc.Find(noiseSelectors).Remove()
	root := doc.Find("article").First()
	if root.Length() == 0 {
		root = doc.Find("body").First()
	}
	return title, normalizeText(root.Text())
}

// normalizeText trims every line and drops blank ones.
func normalizeText(raw string) string {
	lines := strings.Split(raw, "\n")
	kept := lines[:0]
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}
