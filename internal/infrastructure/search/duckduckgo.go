package search

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"SEOPilot/internal/config"
)

const (
	defaultDuckDuckGoEndpoint = "https://html.duckduckgo.com/html/"
	defaultUserAgent          = "Mozilla/5.0 (compatible; SEOPilot/1.0)"
)

// DuckDuckGo scrapes the HTML endpoint of DuckDuckGo.
type DuckDuckGo struct {
	client      *http.Client
	endpoint    string
	region      string
	querySuffix string
	userAgent   string
}

// NewDuckDuckGo wires an HTTP client; a nil client gets the configured timeout.
func NewDuckDuckGo(cfg config.SearchConfig, client *http.Client) *DuckDuckGo {
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 15 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		endpoint = defaultDuckDuckGoEndpoint
	}
	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	return &DuckDuckGo{
		client:      client,
		endpoint:    endpoint,
		region:      cfg.Region,
		querySuffix: strings.TrimSpace(cfg.QuerySuffix),
		userAgent:   userAgent,
	}
}

// Name identifies the provider inside the registry.
func (d *DuckDuckGo) Name() string {
	return "duckduckgo"
}

// Search returns result URLs in ranking order, skipping ads.
func (d *DuckDuckGo) Search(ctx context.Context, query string, limit int) ([]string, error) {
	pageURL, err := d.buildURL(query)
	if err != nil {
		return nil, err
	}

	doc, err := d.fetchDocument(ctx, pageURL)
	if err != nil {
		return nil, err
	}

	var urls []string
	doc.Find(".result").Each(func(_ int, result *goquery.Selection) {
		if result.HasClass("result--ad") {
			return
		}
		link := result.Find("a.result__a").First()
		if link.Length() == 0 {
			link = result.Find("a.result__url").First()
		}
		href, ok := link.Attr("href")
		if !ok {
			return
		}
		if target := decodeResultLink(href); target != "" {
			urls = append(urls, target)
		}
	})

	return limitURLs(urls, limit), nil
}

func (d *DuckDuckGo) buildURL(query string) (string, error) {
	parsed, err := url.Parse(d.endpoint)
	if err != nil {
		return "", fmt.Errorf("invalid search endpoint %s: %w", d.endpoint, err)
	}

	q := strings.TrimSpace(query)
	if d.querySuffix != "" {
		q += " " + d.querySuffix
	}

	values := parsed.Query()
	values.Set("q", q)
	if d.region != "" {
		values.Set("kl", d.region)
	}
	parsed.RawQuery = values.Encode()
	return parsed.String(), nil
}

func (d *DuckDuckGo) fetchDocument(ctx context.Context, pageURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", d.userAgent)

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request search page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("duckduckgo returned %s", resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse search page: %w", err)
	}
	return doc, nil
}

// decodeResultLink unwraps the /l/?uddg= redirect used on result anchors.
func decodeResultLink(href string) string {
	href = strings.TrimSpace(href)
	if strings.HasPrefix(href, "//") {
		href = "https:" + href
	}
	parsed, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if target := parsed.Query().Get("uddg"); target != "" {
		return target
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return ""
	}
	if strings.HasSuffix(parsed.Hostname(), "duckduckgo.com") {
		return ""
	}
	return parsed.String()
}
