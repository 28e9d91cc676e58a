package config

import (
	"time"
)

// LLMConfig represents the provider independent model settings
type LLMConfig struct {
	Provider         string
	Timeout          time.Duration
	MaxPromptSize    int
	StructuredOutput bool
}

// BedrockConfig represents the configuration for Amazon Bedrock
type BedrockConfig struct {
	Region      string
	ModelID     string
	MaxTokens   int
	Temperature float32
	TopP        float32
}

// GeminiConfig represents the configuration for Google Gemini
type GeminiConfig struct {
	APIKey      string
	ModelName   string
	MaxTokens   int
	Temperature float32
	TopP        float32
}

// GenAIConfig represents the configuration for the unified Google GenAI SDK
type GenAIConfig struct {
	APIKey      string
	Backend     string
	Project     string
	Location    string
	ModelName   string
	MaxTokens   int
	Temperature float32
	TopP        float32
}

// OpenAIConfig represents the configuration for OpenAI
type OpenAIConfig struct {
	APIKey      string
	BaseURL     string
	ModelName   string
	MaxTokens   int
	Temperature float32
	TopP        float32
}

// SMTPConfig represents the outbound mail settings for notifications
type SMTPConfig struct {
	Address  string
	Port     int
	Username string
	Password string
	From     string
	To       []string
}

// RedisConfig represents a Redis connection
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// GetLLM returns the LLM configuration
func (c *Config) GetLLM() (LLMConfig, error) {
	timeout, err := c.GetDuration("llm.timeout")
	if err != nil {
		return LLMConfig{}, err
	}
	return LLMConfig{
		Provider:         c.GetString("llm.provider"),
		Timeout:          timeout,
		MaxPromptSize:    c.GetInt("llm.max_prompt_size"),
		StructuredOutput: c.GetBool("llm.structured_output"),
	}, nil
}

// GetBedrock returns the Bedrock configuration
func (c *Config) GetBedrock() BedrockConfig {
	return BedrockConfig{
		Region:      c.GetString("bedrock.region"),
		ModelID:     c.GetString("bedrock.model_id"),
		MaxTokens:   c.GetInt("bedrock.max_tokens"),
		Temperature: float32(c.GetFloat64("bedrock.temperature")),
		TopP:        float32(c.GetFloat64("bedrock.top_p")),
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
	}
}

// GetGenAI returns the GenAI configuration
func (c *Config) GetGenAI() GenAIConfig {
	return GenAIConfig{
		APIKey:      c.GetString("genai.api_key"),
		Backend:     c.GetString("genai.backend"),
		Project:     c.GetString("genai.project"),
		Location:    c.GetString("genai.location"),
		ModelName:   c.GetString("genai.model_name"),
		MaxTokens:   c.GetInt("genai.max_tokens"),
		Temperature: float32(c.GetFloat64("genai.temperature")),
		TopP:        float32(c.GetFloat64("genai.top_p")),
	}
}

// GetOpenAI returns the OpenAI configuration
func (c *Config) GetOpenAI() OpenAIConfig {
	return OpenAIConfig{
		APIKey:      c.GetString("openai.api_key"),
		BaseURL:     c.GetString("openai.base_url"),
		ModelName:   c.GetString("openai.model_name"),
		MaxTokens:   c.GetInt("openai.max_tokens"),
		Temperature: float32(c.GetFloat64("openai.temperature")),
		TopP:        float32(c.GetFloat64("openai.top_p")),
	}
}

// GetSMTP returns the SMTP notification configuration
func (c *Config) GetSMTP() SMTPConfig {
	return SMTPConfig{
		Address:  c.GetString("notify.smtp.address"),
		Port:     c.GetInt("notify.smtp.port"),
		Username: c.GetString("notify.smtp.username"),
		Password: c.GetString("notify.smtp.password"),
		From:     c.GetString("notify.smtp.from"),
		To:       c.GetStringSlice("notify.smtp.to"),
	}
}

// GetCacheRedis returns the Redis cache connection
func (c *Config) GetCacheRedis() RedisConfig {
	return RedisConfig{
		Addr:     c.GetString("cache.redis_addr"),
		Password: c.GetString("cache.redis_password"),
		DB:       c.GetInt("cache.redis_db"),
	}
}

// GetNotifyRedis returns the Redis notification connection
func (c *Config) GetNotifyRedis() RedisConfig {
	return RedisConfig{
		Addr:     c.GetString("notify.redis.addr"),
		Password: c.GetString("notify.redis.password"),
		DB:       c.GetInt("notify.redis.db"),
	}
}
