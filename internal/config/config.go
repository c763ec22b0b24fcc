package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	v *viper.Viper
}

// New creates a new configuration instance
func New() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("/etc/mail-sentinel/")
	v.AddConfigPath("$HOME/.mail-sentinel")
	v.AddConfigPath("./configs")
	v.AddConfigPath(".")

	// Set defaults
	setDefaults(v)

	// Environment variables
	v.AutomaticEnv()
	v.SetEnvPrefix("MAIL_SENTINEL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found, using defaults
	}

	return &Config{v: v}, nil
}

// NewFromViper creates a new configuration instance from an existing Viper instance
func NewFromViper(v *viper.Viper) *Config {
	return &Config{v: v}
}

// NewEmptyViper creates a new Viper instance with defaults
func NewEmptyViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	return v
}

// setDefaults sets the default configuration values
func setDefaults(v *viper.Viper) {
	// Mailbox defaults
	v.SetDefault("mailbox.server", "")
	v.SetDefault("mailbox.username", "")
	v.SetDefault("mailbox.password", "")
	v.SetDefault("mailbox.folder", "INBOX")
	v.SetDefault("mailbox.dial_timeout", "30s")

	// Telegram defaults
	v.SetDefault("telegram.token", "")
	v.SetDefault("telegram.chat_id", "")

	// LLM provider defaults
	v.SetDefault("llm.provider", "openai")
	v.SetDefault("llm.threshold", 0.5)
	v.SetDefault("llm.timeout", "30s")

	// Bedrock defaults
	v.SetDefault("bedrock.region", "us-east-1")
	v.SetDefault("bedrock.model_id", "anthropic.claude-v2")
	v.SetDefault("bedrock.max_tokens", 1000)
	v.SetDefault("bedrock.temperature", 0.1)
	v.SetDefault("bedrock.top_p", 0.9)
	v.SetDefault("bedrock.max_body_size", 4096)

	// Gemini defaults
	v.SetDefault("gemini.api_key", "")
	v.SetDefault("gemini.model_name", "gemini-pro")
	v.SetDefault("gemini.max_tokens", 1000)
	v.SetDefault("gemini.temperature", 0.1)
	v.SetDefault("gemini.top_p", 0.9)
	v.SetDefault("gemini.max_body_size", 4096)

	// OpenAI defaults
	v.SetDefault("openai.api_key", "")
	v.SetDefault("openai.model_name", "gpt-4")
	v.SetDefault("openai.max_tokens", 1000)
	v.SetDefault("openai.temperature", 0.1)
	v.SetDefault("openai.top_p", 0.9)
	v.SetDefault("openai.max_body_size", 4096)

	// Classification fallback defaults
	v.SetDefault("classify.urgent_keywords", []string{
		"urgente", "emergency", "critical", "critico", "inmediato", "importante",
	})
	v.SetDefault("classify.important_keywords", []string{
		"factura", "invoice", "payment", "pago", "vencimiento", "deadline",
	})

	// Notification defaults
	v.SetDefault("notify.domains", []string{})
	v.SetDefault("notify.keywords", []string{
		"urgente", "problema", "factura", "fallo", "error grave",
	})
	v.SetDefault("notify.precedence", []string{
		"domain", "group", "classification", "keyword",
	})
	v.SetDefault("notify.min_dispatch_interval", "1s")

	// Sender groups (group name -> member addresses)
	v.SetDefault("groups", map[string][]string{})

	// Message decoding defaults
	v.SetDefault("message.snippet_max_length", 200)

	// Scheduler defaults
	v.SetDefault("scheduler.poll_interval", "2m")
	v.SetDefault("scheduler.flush_check_interval", "1m")
	v.SetDefault("scheduler.summary_time", "21:00")
	v.SetDefault("scheduler.retention_days", 30)
	v.SetDefault("scheduler.top_senders", 5)

	// History defaults
	v.SetDefault("history.type", "memory")
	v.SetDefault("history.enabled", true)
	v.SetDefault("history.sqlite_path", "/data/mail_history.db")
	v.SetDefault("history.mysql_dsn", "user:password@tcp(localhost:3306)/mail_sentinel")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// Validate checks the settings that must be present before any scheduling begins
func (c *Config) Validate() error {
	required := []string{
		"mailbox.server",
		"mailbox.username",
		"mailbox.password",
		"telegram.token",
		"telegram.chat_id",
	}

	var missing []string
	for _, key := range required {
		if c.GetString(key) == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}
	return nil
}

// GetString gets a string value from the configuration
func (c *Config) GetString(key string) string {
	return c.v.GetString(key)
}

// GetInt gets an integer value from the configuration
func (c *Config) GetInt(key string) int {
	return c.v.GetInt(key)
}

// GetFloat64 gets a float64 value from the configuration
func (c *Config) GetFloat64(key string) float64 {
	return c.v.GetFloat64(key)
}

// GetBool gets a boolean value from the configuration
func (c *Config) GetBool(key string) bool {
	return c.v.GetBool(key)
}

// GetStringSlice gets a string slice value from the configuration
func (c *Config) GetStringSlice(key string) []string {
	return c.v.GetStringSlice(key)
}

// GetStringMapStringSlice gets a map of string slices from the configuration
func (c *Config) GetStringMapStringSlice(key string) map[string][]string {
	return c.v.GetStringMapStringSlice(key)
}

// GetDuration gets a duration value from the configuration
func (c *Config) GetDuration(key string) (time.Duration, error) {
	return time.ParseDuration(c.GetString(key))
}

// GetViper returns the underlying Viper instance
func (c *Config) GetViper() *viper.Viper {
	return c.v
}
