package llm

import (
	"fmt"
	"strings"

	"SEOPilot/internal/config"
	"SEOPilot/internal/ports"
)

// New returns the completer named by cfg.Provider.
func New(cfg config.LLMConfig) (ports.Completer, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "", "openai":
		return NewOpenAIClient(cfg), nil
	case "anthropic":
		return NewAnthropicClient(cfg), nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
}
