package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// ScannerConfig tunes the live decode session loop.
type ScannerConfig struct {
	SampleIntervalMs int `yaml:"sample_interval_ms"`
	ProcessWidth     int `yaml:"process_width"`
	HintTimeoutMs    int `yaml:"hint_timeout_ms"`
	ConfirmDelayMs   int `yaml:"confirm_delay_ms"`
}

// ClassifierConfig points at the external reasoning service. The API key is
// read from the environment variable named by APIKeyEnv, never from the file.
type ClassifierConfig struct {
	Endpoint  string `yaml:"endpoint"`
	Model     string `yaml:"model"`
	APIKeyEnv string `yaml:"api_key_env"`
	Prompt    string `yaml:"prompt"`
	TimeoutMs int    `yaml:"timeout_ms"`
}

// HistoryConfig caps the stored scan history. Non-positive limits fall back
// to the default of 50 at the server layer.
type HistoryConfig struct {
	Limit int `yaml:"limit"`
}

type ReportsConfig struct {
	Directory string `yaml:"directory"`
	FontPath  string `yaml:"font_path"`
}

type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Scanner    ScannerConfig    `yaml:"scanner"`
	Classifier ClassifierConfig `yaml:"classifier"`
	History    HistoryConfig    `yaml:"history"`
	Reports    ReportsConfig    `yaml:"reports"`
}

func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "127.0.0.1",
			Port: 8080,
		},
		Database: DatabaseConfig{
			Path: "qrsentry.db",
		},
		Scanner: ScannerConfig{
			SampleIntervalMs: 150,
			ProcessWidth:     480,
			HintTimeoutMs:    4000,
			ConfirmDelayMs:   500,
		},
		Classifier: ClassifierConfig{
			Endpoint:  "https://api.openai.com/v1/chat/completions",
			Model:     "gpt-4o-mini",
			APIKeyEnv: "QRSENTRY_API_KEY",
			Prompt:    "balanced",
			TimeoutMs: 15000,
		},
		History: HistoryConfig{
			Limit: 50,
		},
		Reports: ReportsConfig{
			Directory: "./reports",
		},
	}
}

func Load(path string) (*Config, error) {
	cfg := defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	return cfg, nil
}

// APIKey resolves the classifier API key from the environment.
func (c *ClassifierConfig) APIKey() string {
	if c.APIKeyEnv == "" {
		return ""
	}
	return os.Getenv(c.APIKeyEnv)
}
