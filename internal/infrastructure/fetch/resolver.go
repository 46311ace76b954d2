package fetch

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/chromedp/chromedp"

	"SEOPilot/internal/config"
	"SEOPilot/internal/ports"
	"SEOPilot/pkg/logger"
)

// HTTPResolver follows redirects with a HEAD request, falling back to GET for
// servers that reject HEAD.
type HTTPResolver struct {
	client    *http.Client
	userAgent string
}

var _ ports.URLResolver = (*HTTPResolver)(nil)

// NewHTTPResolver wires an HTTP client; a nil client gets the resolver timeout.
func NewHTTPResolver(cfg config.FetcherConfig, client *http.Client) *HTTPResolver {
	if client == nil {
		timeout := cfg.ResolverTimeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	return &HTTPResolver{client: client, userAgent: userAgent}
}

// Resolve returns the URL reached after all redirects.
func (r *HTTPResolver) Resolve(ctx context.Context, rawURL string) (string, error) {
	final, headErr := r.follow(ctx, http.MethodHead, rawURL)
	if headErr == nil {
		return final, nil
	}
	final, err := r.follow(ctx, http.MethodGet, rawURL)
	if err != nil {
		return "", fmt.Errorf("resolve %s: head: %v, get: %w", rawURL, headErr, err)
	}
	return final, nil
}

func (r *HTTPResolver) follow(ctx context.Context, method, rawURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", r.userAgent)

	resp, err := r.client.Do(req)
	if err != nil {
		return "", err
	}
	if err := resp.Body.Close(); err != nil {
		return "", fmt.Errorf("close response body: %w", err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return "", fmt.Errorf("unexpected status %s", resp.Status)
	}
	return resp.Request.URL.String(), nil
}

// BrowserResolver loads the page in headless Chrome so script-driven redirects
// are followed too.
type BrowserResolver struct {
	timeout time.Duration
	logf    *logger.Printf
	options []chromedp.ExecAllocatorOption
}

var _ ports.URLResolver = (*BrowserResolver)(nil)

// NewBrowserResolver configures a headless allocator; Chrome starts per call.
func NewBrowserResolver(cfg config.FetcherConfig, log *slog.Logger) *BrowserResolver {
	timeout := cfg.ResolverTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
	)
	if cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(cfg.UserAgent))
	}
	return &BrowserResolver{
		timeout: timeout,
		logf:    logger.New(log, "resolver.browser", slog.LevelDebug),
		options: opts,
	}
}

// Resolve navigates to rawURL and reports the location the browser ends on.
func (r *BrowserResolver) Resolve(ctx context.Context, rawURL string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, r.options...)
	defer allocCancel()

	browserCtx, browserCancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(r.logf.Logf),
		chromedp.WithErrorf(r.logf.Logf),
	)
	defer browserCancel()

	var final string
	if err := chromedp.Run(browserCtx,
		chromedp.Navigate(rawURL),
		chromedp.Location(&final),
	); err != nil {
		return "", fmt.Errorf("browser resolve %s: %w", rawURL, err)
	}
	if strings.TrimSpace(final) == "" {
		return rawURL, nil
	}
	return final, nil
}

// NewResolver picks the resolver named in cfg.Resolver. "none" disables resolution.
func NewResolver(cfg config.FetcherConfig, log *slog.Logger) (ports.URLResolver, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Resolver)) {
	case "", "http":
		return NewHTTPResolver(cfg, nil), nil
	case "browser", "chromedp":
		return NewBrowserResolver(cfg, log), nil
	case "none":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown resolver %q", cfg.Resolver)
	}
}
