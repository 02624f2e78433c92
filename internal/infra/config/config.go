package config

import (
	"log"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// AppConfig описывает конфигурацию сервиса воронки.
type AppConfig struct {
	AppEnv string `envconfig:"APP_ENV" default:"dev"`
	Port   int    `envconfig:"PORT" default:"8080"`

	RedisAddr string `envconfig:"REDIS_ADDR" default:"localhost:6379"`

	GazelAPI struct {
		BaseURL string        `envconfig:"GAZEL_API_BASE_URL" default:"https://api.gazel.ai"`
		Timeout time.Duration `envconfig:"GAZEL_API_TIMEOUT" default:"20s"`
	} `envconfig:""`

	Checkout struct {
		BaseURL string `envconfig:"CHECKOUT_URL" default:"https://buy.stripe.com/eVqeVd2R75Pj4t0eWNeUU02"`
	} `envconfig:""`

	Funnel struct {
		MinLoadingTime time.Duration `envconfig:"MIN_LOADING_TIME" default:"5s"`
		SessionTTL     time.Duration `envconfig:"SESSION_TTL" default:"30m"`
		IdentityPolicy string        `envconfig:"IDENTITY_POLICY" default:"stable"`
	} `envconfig:""`
}

// Load загружает конфиг из окружения.
func Load() AppConfig {
	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		log.Fatalf("не удалось загрузить конфиг: %v", err)
	}
	return cfg
}
