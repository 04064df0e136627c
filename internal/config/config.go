// Package config loads the application configuration.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Conf holds the configuration loaded by Init.
var Conf Config

// Config mirrors the layout of configs/config.yaml.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	Log      LogConfig      `mapstructure:"log"`
	LLM      LLMConfig      `mapstructure:"llm"`
	Chat     ChatConfig     `mapstructure:"chat"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

// DatabaseConfig groups the storage connections.
type DatabaseConfig struct {
	MySQL MySQLConfig `mapstructure:"mysql"`
	Redis RedisConfig `mapstructure:"redis"`
}

type MySQLConfig struct {
	DSN string `mapstructure:"dsn"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// JWTConfig holds token signing settings.
type JWTConfig struct {
	Secret                 string `mapstructure:"secret"`
	AccessTokenExpireHours int    `mapstructure:"access_token_expire_hours"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}

// LLMConfig configures the completion backend.
type LLMConfig struct {
	APIKey           string              `mapstructure:"api_key"`
	BaseURL          string              `mapstructure:"base_url"`
	Model            string              `mapstructure:"model"`
	TimeoutSeconds   int                 `mapstructure:"timeout_seconds"`
	RateLimitPerHour int                 `mapstructure:"rate_limit_per_hour"`
	Generation       LLMGenerationConfig `mapstructure:"generation"`
}

// LLMGenerationConfig holds default generation parameters used when a call
// does not set its own.
type LLMGenerationConfig struct {
	Temperature float64 `mapstructure:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens"`
}

// ChatConfig holds the conversation policy.
type ChatConfig struct {
	ResumeWindow        time.Duration `mapstructure:"resume_window"`
	ConversationTimeout time.Duration `mapstructure:"conversation_timeout"`
	HistoryTurns        int           `mapstructure:"history_turns"`
	HistoryLimit        int           `mapstructure:"history_limit"`
	IntentCacheAITTL    time.Duration `mapstructure:"intent_cache_ai_ttl"`
	IntentCacheRuleTTL  time.Duration `mapstructure:"intent_cache_rule_ttl"`
}

// DefaultChatConfig returns the built-in conversation policy.
func DefaultChatConfig() ChatConfig {
	return ChatConfig{
		ResumeWindow:        2 * time.Hour,
		ConversationTimeout: 24 * time.Hour,
		HistoryTurns:        6,
		HistoryLimit:        50,
		IntentCacheAITTL:    time.Hour,
		IntentCacheRuleTTL:  30 * time.Minute,
	}
}

func setDefaults(v *viper.Viper) {
	chat := DefaultChatConfig()
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "release")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("llm.model", "gpt-3.5-turbo")
	v.SetDefault("llm.timeout_seconds", 30)
	v.SetDefault("llm.rate_limit_per_hour", 50)
	v.SetDefault("llm.generation.temperature", 0.7)
	v.SetDefault("llm.generation.max_tokens", 800)
	v.SetDefault("chat.resume_window", chat.ResumeWindow)
	v.SetDefault("chat.conversation_timeout", chat.ConversationTimeout)
	v.SetDefault("chat.history_turns", chat.HistoryTurns)
	v.SetDefault("chat.history_limit", chat.HistoryLimit)
	v.SetDefault("chat.intent_cache_ai_ttl", chat.IntentCacheAITTL)
	v.SetDefault("chat.intent_cache_rule_ttl", chat.IntentCacheRuleTTL)
}

// Load reads the YAML file at configPath. Values can be overridden with
// FITCOACH_ prefixed environment variables, e.g. FITCOACH_LLM_API_KEY.
func Load(configPath string) (Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("FITCOACH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.ReadInConfig(); err != nil {
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("failed to decode config: %w", err)
	}
	return cfg, nil
}

// Init loads configPath into Conf and panics if it cannot.
func Init(configPath string) {
	cfg, err := Load(configPath)
	if err != nil {
		panic(err)
	}
	Conf = cfg
}
