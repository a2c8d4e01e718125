package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Env  string `env:"STARS_ENV" envDefault:"dev"`
	Port int    `env:"STARS_PORT" envDefault:"5000"`

	BotToken           string `env:"TELEGRAM_BOT_TOKEN"`
	AdminChatID        int64  `env:"TELEGRAM_ADMIN_CHAT_ID"`
	LogsChannelID      string `env:"LOGS_CHANNEL_ID"`
	AdminSecretCommand string `env:"ADMIN_SECRET_COMMAND" envDefault:"/getadmin111"`

	AdminPassword string `env:"ADMIN_PASSWORD"`
	JWTSecret     string `env:"STARS_JWT_SECRET"`

	FragmentAPIKey string `env:"FRAGMENT_API_KEY"`
	FragmentAPIURL string `env:"FRAGMENT_API_URL" envDefault:"https://fragment.com/api/v1"`

	DatabaseURL string `env:"STARS_DATABASE_URL"`
	LogJSON     bool   `env:"STARS_LOG_JSON" envDefault:"true"`
}

func FromEnv() (Config, error) {
	var c Config
	if err := env.Parse(&c); err != nil {
		return c, fmt.Errorf("parse env: %w", err)
	}
	return c, nil
}

// Validate rejects configurations the service cannot safely run with.
// A missing bot credential is a startup error, not a per-call one.
func (c Config) Validate() error {
	if c.BotToken == "" {
		return fmt.Errorf("TELEGRAM_BOT_TOKEN is required")
	}
	if c.AdminChatID == 0 {
		return fmt.Errorf("TELEGRAM_ADMIN_CHAT_ID is required")
	}
	if c.AdminPassword == "" && c.Env != "dev" {
		return fmt.Errorf("ADMIN_PASSWORD is required outside dev")
	}
	return nil
}
