// Package telegram tells reviewers about new drafts through a bot.
package telegram

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"SEOPilot/internal/config"
	"SEOPilot/internal/domain"
	"SEOPilot/internal/ports"
)

const defaultEndpoint = "https://api.telegram.org"

// Notifier sends draft-ready messages to a Telegram chat via bot API.
type Notifier struct {
	endpoint string
	botToken string
	chatID   string
	client   *http.Client
}

var _ ports.Notifier = (*Notifier)(nil)

// NewNotifier registers bot token and chat identifier.
func NewNotifier(cfg config.TelegramConfig) *Notifier {
	endpoint := strings.TrimRight(strings.TrimSpace(cfg.Endpoint), "/")
	if endpoint == "" {
		endpoint = defaultEndpoint
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Notifier{
		endpoint: endpoint,
		botToken: cfg.BotToken,
		chatID:   cfg.ChatID,
		client:   &http.Client{Timeout: timeout},
	}
}

// NotifyDraft posts a short text message describing the generated article.
func (n *Notifier) NotifyDraft(ctx context.Context, article domain.GeneratedArticle) error {
	if n.botToken == "" || n.chatID == "" || n.client == nil {
		return fmt.Errorf("telegram notifier misconfigured")
	}

	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", n.endpoint, n.botToken)
	form := url.Values{}
	form.Set("chat_id", n.chatID)
	form.Set("text", draftMessage(article))
	form.Set("disable_web_page_preview", "true")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram error: %s", resp.Status)
	}
	return nil
}

func draftMessage(a domain.GeneratedArticle) string {
	var b strings.Builder
	fmt.Fprintf(&b, "New draft #%d ready for review\n", a.ID)
	fmt.Fprintf(&b, "Topic: %s\n", a.Topic)
	fmt.Fprintf(&b, "Title: %s\n", a.Title)
	if a.AverageSourceScore != nil {
		fmt.Fprintf(&b, "Average source score: %.1f\n", *a.AverageSourceScore)
	}
	if len(a.Tags) > 0 {
		fmt.Fprintf(&b, "Tags: %s\n", strings.Join(a.Tags, ", "))
	}
	return strings.TrimRight(b.String(), "\n")
}
