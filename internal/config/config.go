package config

import (
	"encoding/json"
	"fmt"
)

// Config represents the main Lapak configuration
type Config struct {
	// Server holds HTTP gateway settings
	Server ServerConfig `json:"server" mapstructure:"server"`

	// Database holds persistence settings
	Database DatabaseConfig `json:"database" mapstructure:"database"`

	// AI holds language-model provider settings
	AI AIConfig `json:"ai" mapstructure:"ai"`

	// Chat holds conversation orchestration settings
	Chat ChatConfig `json:"chat" mapstructure:"chat"`

	// Logging
	Logging LoggingConfig `json:"logging" mapstructure:"logging"`

	// Data directory
	DataDir string `json:"data_dir" mapstructure:"data_dir"`
}

// ServerConfig holds HTTP gateway configuration
type ServerConfig struct {
	Host string `json:"host" mapstructure:"host"`
	Port int    `json:"port" mapstructure:"port"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path string `json:"path" mapstructure:"path"`
}

// AIConfig holds language-model provider configuration
type AIConfig struct {
	Provider       string  `json:"provider" mapstructure:"provider"` // openai, anthropic
	APIKey         string  `json:"api_key" mapstructure:"api_key"`
	Model          string  `json:"model" mapstructure:"model"`
	Temperature    float64 `json:"temperature" mapstructure:"temperature"`
	MaxTokens      int     `json:"max_tokens" mapstructure:"max_tokens"`
	TimeoutSeconds int     `json:"timeout_seconds" mapstructure:"timeout_seconds"`
}

// ChatConfig holds conversation orchestration configuration
type ChatConfig struct {
	// RecoveryWindow is how many recent messages the order-status tool
	// scans when reconstructing missing parameters.
	RecoveryWindow int `json:"recovery_window" mapstructure:"recovery_window"`

	// SessionIdleMinutes is how long an active session may stay idle
	// before the sweeper closes it.
	SessionIdleMinutes int `json:"session_idle_minutes" mapstructure:"session_idle_minutes"`

	// SweepSchedule is the cron schedule for the stale-session sweeper.
	SweepSchedule string `json:"sweep_schedule" mapstructure:"sweep_schedule"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level     string `json:"level" mapstructure:"level"`
	File      string `json:"file" mapstructure:"file"`
	Pretty    bool   `json:"pretty" mapstructure:"pretty"`
	Redaction bool   `json:"redaction" mapstructure:"redaction"`
}

// DefaultConfig returns a config with default values
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Database: DatabaseConfig{
			Path: "",
		},
		AI: AIConfig{
			Provider:       "openai",
			Model:          "gpt-4o-mini",
			Temperature:    0.7,
			MaxTokens:      1024,
			TimeoutSeconds: 60,
		},
		Chat: ChatConfig{
			RecoveryWindow:     20,
			SessionIdleMinutes: 720,
			SweepSchedule:      "@hourly",
		},
		Logging: LoggingConfig{
			Level:     "info",
			Pretty:    true,
			Redaction: true,
		},
		DataDir: "",
	}
}

// String returns a JSON representation of the config
func (c *Config) String() string {
	data, _ := json.MarshalIndent(c, "", "  ")
	return string(data)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.AI.APIKey == "" {
		return fmt.Errorf("ai.api_key is required")
	}
	if c.AI.Provider != "openai" && c.AI.Provider != "anthropic" {
		return fmt.Errorf("invalid ai.provider %s (must be: openai, anthropic)", c.AI.Provider)
	}
	if c.AI.Model == "" {
		return fmt.Errorf("ai.model is required")
	}
	if c.AI.Temperature < 0 || c.AI.Temperature > 1 {
		return fmt.Errorf("ai.temperature must be between 0 and 1")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port %d", c.Server.Port)
	}
	if c.Chat.RecoveryWindow <= 0 {
		return fmt.Errorf("chat.recovery_window must be positive")
	}
	if c.Chat.SessionIdleMinutes <= 0 {
		return fmt.Errorf("chat.session_idle_minutes must be positive")
	}
	return nil
}
