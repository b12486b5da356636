package config

import (
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const (
	TransportWebsocket = "websocket"
	TransportPolling   = "polling"
)

// Config конфигурация сервиса. Транспорт задаётся явно и передаётся
// в конструкторы, а не читается из глобального состояния.
type Config struct {
	Port        string `envconfig:"PORT" default:"8080"`
	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`
	RedisURL    string `envconfig:"REDIS_URL" required:"true"`

	JWTSecret string        `envconfig:"JWT_SECRET" required:"true"`
	TokenTTL  time.Duration `envconfig:"TOKEN_TTL" default:"24h"`

	// Transport: websocket или polling
	Transport       string        `envconfig:"CHAT_TRANSPORT" default:"websocket"`
	PollInterval    time.Duration `envconfig:"POLL_INTERVAL" default:"3s"`
	UpdatesPageSize int           `envconfig:"UPDATES_PAGE_SIZE" default:"200"`
}

// Load читает .env.local, затем .env, затем окружение
func Load() (*Config, error) {
	if err := godotenv.Load(".env.local"); err != nil {
		if err := godotenv.Load(); err != nil {
			log.Println(".env not found, using environment variables")
		}
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
