package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type Config struct {
	Server struct {
		Port            string        `env:"PORT" envDefault:"8000"`
		GinMode         string        `env:"GIN_MODE" envDefault:"release"`
		AllowedOrigins  []string      `env:"ALLOWED_ORIGINS" envSeparator:"," envDefault:"*"`
		ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`

		// Prefix for the shareable bidder links, e.g. https://tefi.example.no
		PublicBaseURL string `env:"PUBLIC_BASE_URL" envDefault:"http://localhost:8000"`
	}

	Database struct {
		// "sqlite" or "postgres"
		Driver string `env:"DB_DRIVER" envDefault:"sqlite"`
		Path   string `env:"DB_PATH" envDefault:"tefi.db"`
		DSN    string `env:"DB_DSN"`

		// Attempts at generating a code that is not already taken
		CodeMaxAttempts int `env:"CODE_MAX_ATTEMPTS" envDefault:"5"`
	}

	Storage struct {
		StaticDir  string `env:"STATIC_DIR" envDefault:"static"`
		UploadsDir string `env:"UPLOADS_DIR" envDefault:"uploads"`
	}

	Queue struct {
		Size int `env:"QUEUE_SIZE" envDefault:"100"`
	}

	Geocoding struct {
		Enabled  bool   `env:"GEOCODING_ENABLED" envDefault:"false"`
		URL      string `env:"GEOCODING_URL" envDefault:"https://nominatim.openstreetmap.org/search"`
		CacheDir string `env:"GEOCODING_CACHE_DIR"`
		Country  string `env:"GEOCODING_COUNTRY" envDefault:"no"`
	}

	Telegram struct {
		BotToken string `env:"TELEGRAM_BOT_TOKEN"`
		ChatID   string `env:"TELEGRAM_CHAT_ID"`
		APIURL   string `env:"TELEGRAM_API_URL" envDefault:"https://api.telegram.org"`
	}

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

// LoadConfig reads an optional .env file and then the process environment.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverSQLite:
		if c.Database.Path == "" {
			return errors.New("DB_PATH must be set for the sqlite driver")
		}
	case DriverPostgres:
		if c.Database.DSN == "" {
			return errors.New("DB_DSN must be set for the postgres driver")
		}
	default:
		return fmt.Errorf("unsupported DB_DRIVER: %q", c.Database.Driver)
	}

	if c.Database.CodeMaxAttempts < 1 {
		return fmt.Errorf("CODE_MAX_ATTEMPTS must be at least 1, got %d", c.Database.CodeMaxAttempts)
	}
	if c.Queue.Size < 1 {
		return fmt.Errorf("QUEUE_SIZE must be at least 1, got %d", c.Queue.Size)
	}
	return nil
}

// TelegramEnabled reports whether both Telegram credentials are configured.
func (c *Config) TelegramEnabled() bool {
	return c.Telegram.BotToken != "" && c.Telegram.ChatID != ""
}
