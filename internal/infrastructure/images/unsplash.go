// Package images finds stock illustrations for generated articles.
package images

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"SEOPilot/internal/config"
	"SEOPilot/internal/domain"
	"SEOPilot/internal/ports"
)

const (
	defaultEndpoint = "https://api.unsplash.com"
	unsplashLicense = "Unsplash License"
	maxPerPage      = 30
)

// Unsplash implements ports.ImageFinder with the Unsplash search API.
type Unsplash struct {
	endpoint  string
	accessKey string
	http      *http.Client
}

var _ ports.ImageFinder = (*Unsplash)(nil)

// NewUnsplash creates a reusable HTTP client.
func NewUnsplash(cfg config.ImagesConfig) *Unsplash {
	endpoint := strings.TrimRight(strings.TrimSpace(cfg.Endpoint), "/")
	if endpoint == "" {
		endpoint = defaultEndpoint
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Unsplash{
		endpoint:  endpoint,
		accessKey: cfg.AccessKey,
		http:      &http.Client{Timeout: timeout},
	}
}

type searchResponse struct {
	Results []photo `json:"results"`
}

type photo struct {
	ID             string `json:"id"`
	Description    string `json:"description"`
	AltDescription string `json:"alt_description"`
	URLs           struct {
		Regular string `json:"regular"`
	} `json:"urls"`
	Links struct {
		HTML string `json:"html"`
	} `json:"links"`
	User struct {
		Name  string `json:"name"`
		Links struct {
			HTML string `json:"html"`
		} `json:"links"`
	} `json:"user"`
}

// FindImages returns up to count landscape photos for query in ranking order.
func (u *Unsplash) FindImages(ctx context.Context, query string, count int) ([]domain.ImageRecord, error) {
	if count <= 0 {
		return []domain.ImageRecord{}, nil
	}
	if u.accessKey == "" {
		return nil, fmt.Errorf("unsplash access key is not configured")
	}
	if count > maxPerPage {
		count = maxPerPage
	}

	params := url.Values{}
	params.Set("query", query)
	params.Set("per_page", strconv.Itoa(count))
	params.Set("orientation", "landscape")

	var resp searchResponse
	if err := u.get(ctx, "/search/photos", params, &resp); err != nil {
		return nil, err
	}

	records := make([]domain.ImageRecord, 0, len(resp.Results))
	for _, p := range resp.Results {
		if p.URLs.Regular == "" {
			continue
		}
		records = append(records, toImageRecord(p))
		if len(records) == count {
			break
		}
	}
	return records, nil
}

func toImageRecord(p photo) domain.ImageRecord {
	alt := strings.TrimSpace(p.AltDescription)
	if alt == "" {
		alt = strings.TrimSpace(p.Description)
	}
	caption := strings.TrimSpace(p.Description)
	if caption == "" && p.User.Name != "" {
		caption = fmt.Sprintf("Photo by %s on Unsplash", p.User.Name)
	}
	return domain.ImageRecord{
		URL:           p.URLs.Regular,
		AltText:       alt,
		Caption:       caption,
		License:       unsplashLicense,
		Author:        p.User.Name,
		AuthorURL:     p.User.Links.HTML,
		SourcePageURL: p.Links.HTML,
	}
}

func (u *Unsplash) get(ctx context.Context, path string, params url.Values, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.endpoint+path+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Accept-Version", "v1")
	req.Header.Set("Authorization", "Client-ID "+u.accessKey)

	resp, err := u.http.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		closeErr := resp.Body.Close()
		if closeErr != nil {
			return fmt.Errorf("unexpected status %s, close body: %v", resp.Status, closeErr)
		}
		return fmt.Errorf("unexpected status %s", resp.Status)
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		_ = resp.Body.Close()
		return fmt.Errorf("decode response: %w", err)
	}

	if err := resp.Body.Close(); err != nil {
		return fmt.Errorf("close response body: %w", err)
	}
	return nil
}
