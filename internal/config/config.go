package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Provider  string          `mapstructure:"provider"`
	Anthropic AnthropicConfig `mapstructure:"anthropic"`
	OpenAI    OpenAIConfig    `mapstructure:"openai"`
	Engine    EngineConfig    `mapstructure:"engine"`
	Server    ServerConfig    `mapstructure:"server"`
	Calendar  CalendarConfig  `mapstructure:"calendar"`
	Store     StoreConfig     `mapstructure:"store"`
	Telegram  TelegramConfig  `mapstructure:"telegram"`
	Mail      MailConfig      `mapstructure:"mail"`
	Verify    VerifyConfig    `mapstructure:"verify"`
}

type AnthropicConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

type OpenAIConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
	Model   string `mapstructure:"model"`
}

// EngineConfig bounds the conversation loop and external calls.
type EngineConfig struct {
	MaxTurns        int `mapstructure:"max_turns"`
	ToolTimeoutSecs int `mapstructure:"tool_timeout_secs"`
}

type ServerConfig struct {
	Host        string   `mapstructure:"host"`
	Port        int      `mapstructure:"port"`
	CORSOrigins []string `mapstructure:"cors_origins"`
	RequireAuth bool     `mapstructure:"require_auth"`
	Token       string   `mapstructure:"token"`
}

// CalendarConfig shapes the generated demo-slot window.
type CalendarConfig struct {
	Timezone    string `mapstructure:"timezone"`     // Default slot timezone when the request has none
	DaysAhead   int    `mapstructure:"days_ahead"`   // Business days to offer
	SlotMinutes int    `mapstructure:"slot_minutes"` // Demo duration
	StartHour   int    `mapstructure:"start_hour"`   // First slot of the day (24h)
	EndHour     int    `mapstructure:"end_hour"`     // Slots end before this hour
}

type StoreConfig struct {
	Path string `mapstructure:"path"` // SQLite database path
}

// TelegramConfig configures sales-team booking notifications.
type TelegramConfig struct {
	Token  string `mapstructure:"token"`
	ChatID int64  `mapstructure:"chat_id"`
}

// MailConfig configures confirmation email dispatch via SMTP.
type MailConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
}

// VerifyConfig enables bot verification of chat requests when Secret is set.
type VerifyConfig struct {
	Secret string `mapstructure:"secret"`
	URL    string `mapstructure:"url"`
}

func configDir() string {
	if dir := os.Getenv("SALESLINE_CONFIG_DIR"); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "salesline")
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configDir())
	viper.AddConfigPath(".")

	viper.SetDefault("provider", "anthropic")
	viper.SetDefault("anthropic.model", "claude-sonnet-4-5")
	viper.SetDefault("openai.model", "gpt-5.2")
	viper.SetDefault("engine.max_turns", 8)
	viper.SetDefault("engine.tool_timeout_secs", 30)
	viper.SetDefault("server.host", "127.0.0.1")
	viper.SetDefault("server.port", 8787)
	viper.SetDefault("calendar.timezone", "America/New_York")
	viper.SetDefault("calendar.days_ahead", 5)
	viper.SetDefault("calendar.slot_minutes", 30)
	viper.SetDefault("calendar.start_hour", 9)
	viper.SetDefault("calendar.end_hour", 17)
	viper.SetDefault("store.path", filepath.Join(configDir(), "salesline.db"))
	viper.SetDefault("verify.url", "https://challenges.cloudflare.com/turnstile/v0/siteverify")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	resolveCredentials(&cfg)
	return &cfg, nil
}

// resolveCredentials fills API keys and tokens from the environment when the
// config file leaves them empty.
func resolveCredentials(cfg *Config) {
	cfg.Anthropic.APIKey = expandEnv(cfg.Anthropic.APIKey)
	if cfg.Anthropic.APIKey == "" {
		cfg.Anthropic.APIKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	cfg.OpenAI.APIKey = expandEnv(cfg.OpenAI.APIKey)
	if cfg.OpenAI.APIKey == "" {
		cfg.OpenAI.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	cfg.Telegram.Token = expandEnv(cfg.Telegram.Token)
	if cfg.Telegram.Token == "" {
		cfg.Telegram.Token = os.Getenv("TELEGRAM_BOT_TOKEN")
	}
	cfg.Verify.Secret = expandEnv(cfg.Verify.Secret)
	if cfg.Verify.Secret == "" {
		cfg.Verify.Secret = os.Getenv("TURNSTILE_SECRET_KEY")
	}
	cfg.Mail.Password = expandEnv(cfg.Mail.Password)
}

// expandEnv resolves $VAR / ${VAR} references in config values.
func expandEnv(value string) string {
	if strings.Contains(value, "$") {
		return os.ExpandEnv(value)
	}
	return value
}
