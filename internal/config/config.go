package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"SEOPilot/internal/domain"
)

const (
	defaultTimezone = "UTC"

	configPathEnv       = "SEOPILOT_CONFIG"
	envFileEnv          = "ENV_FILE"
	logLevelEnv         = "LOG_LEVEL"
	databaseDriverEnv   = "DATABASE_DRIVER"
	databaseDSNEnv      = "DATABASE_DSN"
	serverAddrEnv       = "SERVER_ADDR"
	llmProviderEnv      = "LLM_PROVIDER"
	llmAPIKeyEnv        = "LLM_API_KEY"
	llmModelEnv         = "LLM_MODEL"
	openAIAPIKeyEnv     = "OPENAI_API_KEY"
	anthropicAPIKeyEnv  = "ANTHROPIC_API_KEY"
	unsplashKeyEnv      = "UNSPLASH_ACCESS_KEY"
	telegramTokenEnv    = "TELEGRAM_BOT_TOKEN"
	telegramChatIDEnv   = "TELEGRAM_CHAT_ID"
	maxConcurrentRunEnv = "MAX_CONCURRENT_RUNS"
)

// Config holds high-level settings required across the application.
type Config struct {
	Logging       LoggingConfig           `yaml:"logging"`
	Database      DatabaseConfig          `yaml:"database"`
	Server        ServerConfig            `yaml:"server"`
	Search        SearchConfig            `yaml:"search"`
	Fetcher       FetcherConfig           `yaml:"fetcher"`
	LLM           LLMConfig               `yaml:"llm"`
	Images        ImagesConfig            `yaml:"images"`
	Prompts       PromptsConfig           `yaml:"prompts"`
	Defaults      domain.GenerationParams `yaml:"defaults"`
	Scheduler     SchedulerConfig         `yaml:"scheduler"`
	Notifications NotificationConfig      `yaml:"notifications"`
	Workers       WorkersConfig           `yaml:"workers"`
}

// LoggingConfig controls the slog handler.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// DatabaseConfig selects the SQL backend.
type DatabaseConfig struct {
	Driver       string `yaml:"driver"`
	DSN          string `yaml:"dsn"`
	MaxOpenConns int    `yaml:"maxOpenConns"`
}

// ServerConfig describes the HTTP listener.
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
}

// SearchConfig picks and tunes the search provider.
type SearchConfig struct {
	Provider    string              `yaml:"provider"`
	Endpoint    string              `yaml:"endpoint"`
	Region      string              `yaml:"region"`
	QuerySuffix string              `yaml:"querySuffix"`
	UserAgent   string              `yaml:"userAgent"`
	Timeout     time.Duration       `yaml:"timeout"`
	Static      map[string][]string `yaml:"static"`
}

// FetcherConfig tunes page download, redirect resolution and extraction.
type FetcherConfig struct {
	Resolver        string        `yaml:"resolver"`
	UserAgent       string        `yaml:"userAgent"`
	Timeout         time.Duration `yaml:"timeout"`
	ResolverTimeout time.Duration `yaml:"resolverTimeout"`
	MinContentChars int           `yaml:"minContentChars"`
	MaxBodyBytes    int64         `yaml:"maxBodyBytes"`
	Concurrency     int           `yaml:"concurrency"`
}

// LLMConfig defines how to contact the completion provider.
type LLMConfig struct {
	Provider     string        `yaml:"provider"`
	Endpoint     string        `yaml:"endpoint"`
	Model        string        `yaml:"model"`
	APIKey       string        `yaml:"apiKey"`
	SystemPrompt string        `yaml:"systemPrompt"`
	MaxTokens    int           `yaml:"maxTokens"`
	Timeout      time.Duration `yaml:"timeout"`
}

// ImagesConfig defines the stock image provider.
type ImagesConfig struct {
	Endpoint  string        `yaml:"endpoint"`
	AccessKey string        `yaml:"accessKey"`
	Timeout   time.Duration `yaml:"timeout"`
}

// PromptsConfig points at template files replacing the built-in prompts.
type PromptsConfig struct {
	Scoring      string `yaml:"scoring"`
	Synthesis    string `yaml:"synthesis"`
	Modification string `yaml:"modification"`
	Suggestions  string `yaml:"suggestions"`
}

// SchedulerConfig defines when scheduled generation runs and for which topics.
type SchedulerConfig struct {
	Enabled        bool           `yaml:"enabled"`
	CronExpression string         `yaml:"cronExpression"`
	Timezone       string         `yaml:"timezone"`
	Topics         []string       `yaml:"topics"`
	location       *time.Location `yaml:"-"`
}

// Location resolves the scheduler timezone string to a time.Location.
func (s SchedulerConfig) Location() *time.Location {
	if s.location != nil {
		return s.location
	}
	loc, _ := time.LoadLocation(defaultTimezone)
	return loc
}

// NotificationConfig encapsulates outbound channels.
type NotificationConfig struct {
	Telegram TelegramConfig `yaml:"telegram"`
}

// TelegramConfig wires all data required to send messages.
type TelegramConfig struct {
	Endpoint string        `yaml:"endpoint"`
	BotToken string        `yaml:"botToken"`
	ChatID   string        `yaml:"chatId"`
	Timeout  time.Duration `yaml:"timeout"`
}

// Enabled reports whether both credentials are present.
func (t TelegramConfig) Enabled() bool {
	return t.BotToken != "" && t.ChatID != ""
}

// WorkersConfig bounds off-request execution.
type WorkersConfig struct {
	MaxConcurrentRuns int `yaml:"maxConcurrentRuns"`
}

// Load reads .env files, the YAML configuration (if present) and applies
// environment overrides. An empty path falls back to SEOPILOT_CONFIG.
func Load(path string) Config {
	loadEnvFiles()

	cfg := defaultConfig()

	if path == "" {
		path = os.Getenv(configPathEnv)
	}
	if path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else {
			var fileCfg Config
			if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
				log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
			} else {
				cfg = mergeConfig(cfg, fileCfg)
			}
		}
	}

	cfg.applyEnvOverrides()
	cfg.bindTimezone()
	return cfg
}

func loadEnvFiles() {
	if envFile := os.Getenv(envFileEnv); envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
			log.Printf("config: cannot load %s: %v", envFile, err)
		}
		return
	}
	for _, file := range []string{".env.local", ".env"} {
		if err := godotenv.Load(file); err != nil && !os.IsNotExist(err) {
			log.Printf("config: cannot load %s: %v", file, err)
		}
	}
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(logLevelEnv); v != "" {
		c.Logging.Level = v
	}

	if v := os.Getenv(databaseDriverEnv); v != "" {
		c.Database.Driver = v
	}
	if v := os.Getenv(databaseDSNEnv); v != "" {
		c.Database.DSN = v
	}

	if v := os.Getenv(serverAddrEnv); v != "" {
		c.Server.Addr = v
	}

	if v := os.Getenv(llmProviderEnv); v != "" {
		c.LLM.Provider = v
	}
	if v := os.Getenv(llmModelEnv); v != "" {
		c.LLM.Model = v
	}
	switch {
	case os.Getenv(llmAPIKeyEnv) != "":
		c.LLM.APIKey = os.Getenv(llmAPIKeyEnv)
	case c.LLM.Provider == "anthropic" && os.Getenv(anthropicAPIKeyEnv) != "":
		c.LLM.APIKey = os.Getenv(anthropicAPIKeyEnv)
	case c.LLM.Provider != "anthropic" && os.Getenv(openAIAPIKeyEnv) != "":
		c.LLM.APIKey = os.Getenv(openAIAPIKeyEnv)
	}

	if v := os.Getenv(unsplashKeyEnv); v != "" {
		c.Images.AccessKey = v
	}

	if v := os.Getenv(telegramTokenEnv); v != "" {
		c.Notifications.Telegram.BotToken = v
	}
	if v := os.Getenv(telegramChatIDEnv); v != "" {
		c.Notifications.Telegram.ChatID = v
	}

	if v := os.Getenv(maxConcurrentRunEnv); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Workers.MaxConcurrentRuns = n
		} else {
			log.Printf("config: ignoring %s=%q", maxConcurrentRunEnv, v)
		}
	}
}

func (c *Config) bindTimezone() {
	tz := c.Scheduler.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		log.Printf("config: unknown timezone %s, reverting to %s", tz, defaultTimezone)
		loc, _ = time.LoadLocation(defaultTimezone)
	}
	c.Scheduler.location = loc
}

// Validate reports settings that make the service unusable.
func (c Config) Validate() error {
	var problems []string
	if strings.TrimSpace(c.Database.DSN) == "" {
		problems = append(problems, "database.dsn is required")
	}
	switch c.LLM.Provider {
	case "openai", "anthropic":
	default:
		problems = append(problems, fmt.Sprintf("llm.provider %q is not supported", c.LLM.Provider))
	}
	if c.Scheduler.Enabled && len(c.Scheduler.Topics) == 0 {
		problems = append(problems, "scheduler.topics must list at least one topic")
	}
	defaults := c.Defaults
	defaults.Topic = "defaults"
	if err := defaults.Validate(); err != nil {
		problems = append(problems, "defaults: "+err.Error())
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

func mergeConfig(base, override Config) Config {
	if override.Logging.Level != "" {
		base.Logging.Level = override.Logging.Level
	}
	if override.Logging.Format != "" {
		base.Logging.Format = override.Logging.Format
	}

	if override.Database.Driver != "" {
		base.Database.Driver = override.Database.Driver
	}
	if override.Database.DSN != "" {
		base.Database.DSN = override.Database.DSN
	}
	if override.Database.MaxOpenConns > 0 {
		base.Database.MaxOpenConns = override.Database.MaxOpenConns
	}

	if override.Server.Addr != "" {
		base.Server.Addr = override.Server.Addr
	}
	if override.Server.ShutdownTimeout > 0 {
		base.Server.ShutdownTimeout = override.Server.ShutdownTimeout
	}

	if override.Search.Provider != "" {
		base.Search.Provider = override.Search.Provider
	}
	if override.Search.Endpoint != "" {
		base.Search.Endpoint = override.Search.Endpoint
	}
	if override.Search.Region != "" {
		base.Search.Region = override.Search.Region
	}
	if override.Search.QuerySuffix != "" {
		base.Search.QuerySuffix = override.Search.QuerySuffix
	}
	if override.Search.UserAgent != "" {
		base.Search.UserAgent = override.Search.UserAgent
	}
	if override.Search.Timeout > 0 {
		base.Search.Timeout = override.Search.Timeout
	}
	if len(override.Search.Static) > 0 {
		base.Search.Static = override.Search.Static
	}

	if override.Fetcher.Resolver != "" {
		base.Fetcher.Resolver = override.Fetcher.Resolver
	}
	if override.Fetcher.UserAgent != "" {
		base.Fetcher.UserAgent = override.Fetcher.UserAgent
	}
	if override.Fetcher.Timeout > 0 {
		base.Fetcher.Timeout = override.Fetcher.Timeout
	}
	if override.Fetcher.ResolverTimeout > 0 {
		base.Fetcher.ResolverTimeout = override.Fetcher.ResolverTimeout
	}
	if override.Fetcher.MinContentChars > 0 {
		base.Fetcher.MinContentChars = override.Fetcher.MinContentChars
	}
	if override.Fetcher.MaxBodyBytes > 0 {
		base.Fetcher.MaxBodyBytes = override.Fetcher.MaxBodyBytes
	}
	if override.Fetcher.Concurrency > 0 {
		base.Fetcher.Concurrency = override.Fetcher.Concurrency
	}

	if override.LLM.Provider != "" {
		base.LLM.Provider = override.LLM.Provider
	}
	if override.LLM.Endpoint != "" {
		base.LLM.Endpoint = override.LLM.Endpoint
	}
	if override.LLM.Model != "" {
		base.LLM.Model = override.LLM.Model
	}
	if override.LLM.APIKey != "" {
		base.LLM.APIKey = override.LLM.APIKey
	}
	if override.LLM.SystemPrompt != "" {
		base.LLM.SystemPrompt = override.LLM.SystemPrompt
	}
	if override.LLM.MaxTokens > 0 {
		base.LLM.MaxTokens = override.LLM.MaxTokens
	}
	if override.LLM.Timeout > 0 {
		base.LLM.Timeout = override.LLM.Timeout
	}

	if override.Images.Endpoint != "" {
		base.Images.Endpoint = override.Images.Endpoint
	}
	if override.Images.AccessKey != "" {
		base.Images.AccessKey = override.Images.AccessKey
	}
	if override.Images.Timeout > 0 {
		base.Images.Timeout = override.Images.Timeout
	}

	if override.Prompts.Scoring != "" {
		base.Prompts.Scoring = override.Prompts.Scoring
	}
	if override.Prompts.Synthesis != "" {
		base.Prompts.Synthesis = override.Prompts.Synthesis
	}
	if override.Prompts.Modification != "" {
		base.Prompts.Modification = override.Prompts.Modification
	}
	if override.Prompts.Suggestions != "" {
		base.Prompts.Suggestions = override.Prompts.Suggestions
	}

	imageCount := base.Defaults.ImageCount
	if override.Defaults.ImageCount > 0 {
		imageCount = override.Defaults.ImageCount
	}
	base.Defaults = override.Defaults.WithDefaults(base.Defaults)
	base.Defaults.ImageCount = imageCount

	if override.Scheduler.Enabled {
		base.Scheduler.Enabled = true
	}
	if override.Scheduler.CronExpression != "" {
		base.Scheduler.CronExpression = override.Scheduler.CronExpression
	}
	if override.Scheduler.Timezone != "" {
		base.Scheduler.Timezone = override.Scheduler.Timezone
	}
	if len(override.Scheduler.Topics) > 0 {
		base.Scheduler.Topics = override.Scheduler.Topics
	}

	if override.Notifications.Telegram.Endpoint != "" {
		base.Notifications.Telegram.Endpoint = override.Notifications.Telegram.Endpoint
	}
	if override.Notifications.Telegram.BotToken != "" {
		base.Notifications.Telegram.BotToken = override.Notifications.Telegram.BotToken
	}
	if override.Notifications.Telegram.ChatID != "" {
		base.Notifications.Telegram.ChatID = override.Notifications.Telegram.ChatID
	}
	if override.Notifications.Telegram.Timeout > 0 {
		base.Notifications.Telegram.Timeout = override.Notifications.Telegram.Timeout
	}

	if override.Workers.MaxConcurrentRuns > 0 {
		base.Workers.MaxConcurrentRuns = override.Workers.MaxConcurrentRuns
	}

	return base
}

func defaultConfig() Config {
	tz, _ := time.LoadLocation(defaultTimezone)
	return Config{
		Logging:  LoggingConfig{Level: "info", Format: "text"},
		Database: DatabaseConfig{Driver: "sqlite3", DSN: "data/seopilot.db"},
		Server:   ServerConfig{Addr: ":8080", ShutdownTimeout: 10 * time.Second},
		Search: SearchConfig{
			Provider:  "duckduckgo",
			Endpoint:  "https://html.duckduckgo.com/html/",
			Region:    "wt-wt",
			UserAgent: "Mozilla/5.0 (compatible; SEOPilot/1.0)",
			Timeout:   15 * time.Second,
		},
		Fetcher: FetcherConfig{
			Resolver:        "http",
			UserAgent:       "Mozilla/5.0 (compatible; SEOPilot/1.0)",
			Timeout:         20 * time.Second,
			ResolverTimeout: 10 * time.Second,
			MinContentChars: 200,
			MaxBodyBytes:    5 << 20,
			Concurrency:     1,
		},
		LLM: LLMConfig{
			Provider:     "openai",
			Model:        "gpt-4o-mini",
			SystemPrompt: "You are an expert SEO content writer and analyst.",
			MaxTokens:    4096,
			Timeout:      120 * time.Second,
		},
		Images: ImagesConfig{
			Endpoint: "https://api.unsplash.com",
			Timeout:  15 * time.Second,
		},
		Defaults:  domain.DefaultParams(""),
		Scheduler: SchedulerConfig{CronExpression: "0 6 * * *", Timezone: defaultTimezone, location: tz},
		Notifications: NotificationConfig{
			Telegram: TelegramConfig{Endpoint: "https://api.telegram.org", Timeout: 5 * time.Second},
		},
		Workers: WorkersConfig{MaxConcurrentRuns: 2},
	}
}
