package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	configPathEnv   = "NEWSFLASH_CONFIG"
	dbHostEnv       = "NEWSFLASH_DB_HOST"
	dbUserEnv       = "NEWSFLASH_DB_USER"
	dbPasswordEnv   = "NEWSFLASH_DB_PASSWORD"
	dbNameEnv       = "NEWSFLASH_DB_NAME"
	ollamaURLEnv    = "NEWSFLASH_OLLAMA_URL"
	ollamaModelEnv  = "NEWSFLASH_OLLAMA_MODEL"
	telegramTokEnv  = "TELEGRAM_BOT_TOKEN"
	telegramChatEnv = "TELEGRAM_CHAT_ID"

	defaultOllamaURL   = "http://localhost:11434/api/generate"
	defaultOllamaModel = "llama2"
)

// Config holds all settings required across the application.
type Config struct {
	Logging       LoggingConfig      `yaml:"logging"`
	Database      DatabaseConfig     `yaml:"database"`
	Ollama        OllamaConfig       `yaml:"ollama"`
	Scheduler     SchedulerConfig    `yaml:"scheduler"`
	Notifications NotificationConfig `yaml:"notifications"`
	Sites         []SiteConfig       `yaml:"sites"`
}

// LoggingConfig controls the slog level.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// DatabaseConfig describes the MySQL connection. Host, user, password and
// database are required; loading fails without them.
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
}

// OllamaConfig defines how to contact the generation endpoint.
type OllamaConfig struct {
	APIURL string `yaml:"apiUrl"`
	Model  string `yaml:"model"`
}

// SchedulerConfig defines the batch cadence. IntervalMinutes of 0 means a
// single batch run.
type SchedulerConfig struct {
	IntervalMinutes int `yaml:"intervalMinutes"`
}

// NotificationConfig encapsulates outbound channels.
type NotificationConfig struct {
	Telegram TelegramConfig `yaml:"telegram"`
}

// TelegramConfig wires the digest bot; an empty token disables the channel.
type TelegramConfig struct {
	BotToken string `yaml:"botToken"`
	ChatID   string `yaml:"chatId"`
}

// SiteConfig describes a single flash source with its scanner strategy.
type SiteConfig struct {
	Name          string `yaml:"name"`
	Scanner       string `yaml:"scanner"`
	URL           string `yaml:"url"`
	WindowMinutes int    `yaml:"windowMinutes"`
}

// Load reads YAML configuration (if present), applies environment overrides,
// and validates the database section. The model endpoint falls back to
// documented defaults; an incomplete database section is an error.
func Load() (Config, error) {
	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.applyEnvOverrides()
	cfg.applyDefaults()

	if err := cfg.Database.validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(dbHostEnv); v != "" {
		c.Database.Host = v
	}
	if v := os.Getenv(dbUserEnv); v != "" {
		c.Database.User = v
	}
	if v := os.Getenv(dbPasswordEnv); v != "" {
		c.Database.Password = v
	}
	if v := os.Getenv(dbNameEnv); v != "" {
		c.Database.Database = v
	}
	if v := os.Getenv(ollamaURLEnv); v != "" {
		c.Ollama.APIURL = v
	}
	if v := os.Getenv(ollamaModelEnv); v != "" {
		c.Ollama.Model = v
	}
	if v := os.Getenv(telegramTokEnv); v != "" {
		c.Notifications.Telegram.BotToken = v
	}
	if v := os.Getenv(telegramChatEnv); v != "" {
		c.Notifications.Telegram.ChatID = v
	}
}

func (c *Config) applyDefaults() {
	if c.Ollama.APIURL == "" {
		c.Ollama.APIURL = defaultOllamaURL
	}
	if c.Ollama.Model == "" {
		c.Ollama.Model = defaultOllamaModel
	}
	if c.Database.Port == 0 {
		c.Database.Port = 3306
	}
	if len(c.Sites) == 0 {
		c.Sites = defaultConfig().Sites
	}
}

func (d DatabaseConfig) validate() error {
	missing := ""
	switch {
	case d.Host == "":
		missing = "host"
	case d.User == "":
		missing = "user"
	case d.Password == "":
		missing = "password"
	case d.Database == "":
		missing = "database"
	}
	if missing != "" {
		return fmt.Errorf("config: database %s is required", missing)
	}
	return nil
}

func defaultConfig() Config {
	return Config{
		Logging: LoggingConfig{Level: "info"},
		Ollama: OllamaConfig{
			APIURL: defaultOllamaURL,
			Model:  defaultOllamaModel,
		},
		Scheduler: SchedulerConfig{IntervalMinutes: 30},
		Sites: []SiteConfig{
			{
				Name:          "jin10",
				Scanner:       "jin10",
				URL:           "https://www.jin10.com/",
				WindowMinutes: 30,
			},
		},
	}
}
