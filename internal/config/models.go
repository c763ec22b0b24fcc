package config

import "time"

// MailboxConfig represents the configuration for the IMAP mailbox
type MailboxConfig struct {
	Server      string
	Username    string
	Password    string
	Folder      string
	DialTimeout time.Duration
}

// TelegramConfig represents the configuration for the Telegram channel
type TelegramConfig struct {
	Token  string
	ChatID string
}

// LLMConfig represents the configuration for the LLM provider
type LLMConfig struct {
	Provider  string
	Threshold float64
	Timeout   time.Duration
}

// BedrockConfig represents the configuration for Amazon Bedrock
type BedrockConfig struct {
	Region      string
	ModelID     string
	MaxTokens   int
	Temperature float32
	TopP        float32
	MaxBodySize int
}

// GeminiConfig represents the configuration for Google Gemini
type GeminiConfig struct {
	APIKey      string
	ModelName   string
	MaxTokens   int
	Temperature float32
	TopP        float32
	MaxBodySize int
}

// OpenAIConfig represents the configuration for OpenAI
type OpenAIConfig struct {
	APIKey      string
	ModelName   string
	MaxTokens   int
	Temperature float32
	TopP        float32
	MaxBodySize int
}

// SchedulerConfig represents the configuration for the ingestion scheduler
type SchedulerConfig struct {
	PollInterval       time.Duration
	FlushCheckInterval time.Duration
	SummaryTime        string
	RetentionDays      int
	TopSenders         int
}

// GetMailbox returns the mailbox configuration
func (c *Config) GetMailbox() MailboxConfig {
	dialTimeout, err := c.GetDuration("mailbox.dial_timeout")
	if err != nil {
		dialTimeout = 30 * time.Second
	}
	return MailboxConfig{
		Server:      c.GetString("mailbox.server"),
		Username:    c.GetString("mailbox.username"),
		Password:    c.GetString("mailbox.password"),
		Folder:      c.GetString("mailbox.folder"),
		DialTimeout: dialTimeout,
	}
}

// GetTelegram returns the Telegram configuration
func (c *Config) GetTelegram() TelegramConfig {
	return TelegramConfig{
		Token:  c.GetString("telegram.token"),
		ChatID: c.GetString("telegram.chat_id"),
	}
}

// GetLLM returns the LLM configuration
func (c *Config) GetLLM() LLMConfig {
	timeout, err := c.GetDuration("llm.timeout")
	if err != nil {
		timeout = 30 * time.Second
	}
	return LLMConfig{
		Provider:  c.GetString("llm.provider"),
		Threshold: c.GetFloat64("llm.threshold"),
		Timeout:   timeout,
	}
}

// GetBedrock returns the Bedrock configuration
func (c *Config) GetBedrock() BedrockConfig {
	return BedrockConfig{
		Region:      c.GetString("bedrock.region"),
		ModelID:     c.GetString("bedrock.model_id"),
		MaxTokens:   c.GetInt("bedrock.max_tokens"),
		Temperature: float32(c.GetFloat64("bedrock.temperature")),
		TopP:        float32(c.GetFloat64("bedrock.top_p")),
		MaxBodySize: c.GetInt("bedrock.max_body_size"),
	}
}

// GetGemini returns the Gemini configuration
func (c *Config) GetGemini() GeminiConfig {
	return GeminiConfig{
		APIKey:      c.GetString("gemini.api_key"),
		ModelName:   c.GetString("gemini.model_name"),
		MaxTokens:   c.GetInt("gemini.max_tokens"),
		Temperature: float32(c.GetFloat64("gemini.temperature")),
		TopP:        float32(c.GetFloat64("gemini.top_p")),
		MaxBodySize: c.GetInt("gemini.max_body_size"),
	}
}

// GetOpenAI returns the OpenAI configuration
func (c *Config) GetOpenAI() OpenAIConfig {
	return OpenAIConfig{
		APIKey:      c.GetString("openai.api_key"),
		ModelName:   c.GetString("openai.model_name"),
		MaxTokens:   c.GetInt("openai.max_tokens"),
		Temperature: float32(c.GetFloat64("openai.temperature")),
		TopP:        float32(c.GetFloat64("openai.top_p")),
		MaxBodySize: c.GetInt("openai.max_body_size"),
	}
}

// GetScheduler returns the scheduler configuration
func (c *Config) GetScheduler() SchedulerConfig {
	pollInterval, err := c.GetDuration("scheduler.poll_interval")
	if err != nil {
		pollInterval = 2 * time.Minute
	}
	flushCheck, err := c.GetDuration("scheduler.flush_check_interval")
	if err != nil {
		flushCheck = time.Minute
	}
	return SchedulerConfig{
		PollInterval:       pollInterval,
		FlushCheckInterval: flushCheck,
		SummaryTime:        c.GetString("scheduler.summary_time"),
		RetentionDays:      c.GetInt("scheduler.retention_days"),
		TopSenders:         c.GetInt("scheduler.top_senders"),
	}
}
