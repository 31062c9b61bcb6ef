// Package config содержит логику чтения конфигурации бота учёта сделок.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const (
	defaultRunAddress     = "localhost:8080"
	defaultTelegramAPIURL = "https://api.telegram.org"
	defaultSchedule       = "@every 24h"
	defaultLogLevel       = "info"
)

// Config содержит параметры конфигурации бота и административного API.
type Config struct {
	RunAddress       string `env:"RUN_ADDRESS"`
	DatabaseURI      string `env:"DATABASE_URI"`
	BotToken         string `env:"BOT_TOKEN"`
	AdminChatID      int64  `env:"ADMIN_CHAT_ID"`
	APIToken         string `env:"API_TOKEN"`
	TelegramAPIURL   string `env:"TELEGRAM_API_URL"`
	ReminderSchedule string `env:"REMINDER_SCHEDULE"`
	LogLevel         string `env:"LOG_LEVEL"`
}

// Parse считывает конфигурацию из файла .env, переменных окружения и флагов командной строки.
// Переменные окружения имеют приоритет над флагами.
func Parse() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	envCfg := *cfg

	flag.StringVar(&cfg.RunAddress, "a", defaultRunAddress, "address and port for HTTP server")
	flag.StringVar(&cfg.DatabaseURI, "d", "", "database URI")
	flag.StringVar(&cfg.BotToken, "t", "", "telegram bot token")
	flag.Int64Var(&cfg.AdminChatID, "c", 0, "admin chat id for reminders")
	flag.StringVar(&cfg.APIToken, "k", "", "bearer token for admin API")
	flag.StringVar(&cfg.ReminderSchedule, "s", defaultSchedule, "reminder sweep schedule (cron spec)")

	flag.Parse()

	if envCfg.RunAddress != "" {
		cfg.RunAddress = envCfg.RunAddress
	}
	if envCfg.DatabaseURI != "" {
		cfg.DatabaseURI = envCfg.DatabaseURI
	}
	if envCfg.BotToken != "" {
		cfg.BotToken = envCfg.BotToken
	}
	if envCfg.AdminChatID != 0 {
		cfg.AdminChatID = envCfg.AdminChatID
	}
	if envCfg.APIToken != "" {
		cfg.APIToken = envCfg.APIToken
	}
	if envCfg.ReminderSchedule != "" {
		cfg.ReminderSchedule = envCfg.ReminderSchedule
	}

	cfg.TelegramAPIURL = envCfg.TelegramAPIURL
	cfg.LogLevel = envCfg.LogLevel

	if cfg.RunAddress == "" {
		cfg.RunAddress = defaultRunAddress
	}
	if cfg.TelegramAPIURL == "" {
		cfg.TelegramAPIURL = defaultTelegramAPIURL
	}
	if cfg.ReminderSchedule == "" {
		cfg.ReminderSchedule = defaultSchedule
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = defaultLogLevel
	}

	return cfg, nil
}
