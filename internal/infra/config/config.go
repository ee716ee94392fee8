package config

import (
	"log"

	"github.com/kelseyhightower/envconfig"
)

// AppConfig holds the configuration of every service.
type AppConfig struct {
	AppEnv string `envconfig:"APP_ENV" default:"dev"`
	TZ     string `envconfig:"TZ" default:"Asia/Jerusalem"`
	Port   int    `envconfig:"PORT" default:"8080"`

	Telegram struct {
		Token         string `envconfig:"TG_BOT_TOKEN"`
		WebhookURL    string `envconfig:"TG_WEBHOOK_URL"`
		PrimaryChatID int64  `envconfig:"TG_PRIMARY_CHAT_ID"`
	} `envconfig:""`

	Sefaria struct {
		BaseURL        string `envconfig:"SEFARIA_BASE_URL" default:"https://www.sefaria.org/api"`
		WebBase        string `envconfig:"SEFARIA_WEB_BASE" default:"https://www.sefaria.org"`
		TimeoutSeconds int    `envconfig:"SEFARIA_TIMEOUT_SECONDS" default:"30"`
	} `envconfig:""`

	PGDSN string `envconfig:"PG_DSN"`

	RedisAddr string `envconfig:"REDIS_ADDR"`

	Schedule struct {
		Strategy string `envconfig:"SELECTION_STRATEGY" default:"random"`
		Path     string `envconfig:"SCHEDULE_PATH"`
	} `envconfig:""`

	Delivery struct {
		MessageLimit  int  `envconfig:"MESSAGE_LIMIT" default:"4096"`
		MaxRetries    int  `envconfig:"FETCH_MAX_RETRIES" default:"3"`
		CacheTTLHours int  `envconfig:"TEXT_CACHE_TTL_HOURS" default:"48"`
		LookbackYears int  `envconfig:"LOOKBACK_YEARS" default:"3"`
		IncludeFooter bool `envconfig:"INCLUDE_FOOTER" default:"true"`
	} `envconfig:""`

	TTS struct {
		Enabled   bool   `envconfig:"TTS_ENABLED" default:"false"`
		OpenAIKey string `envconfig:"OPENAI_API_KEY"`
		Voice     string `envconfig:"TTS_VOICE" default:"onyx"`
	} `envconfig:""`

	MetricsAddr string `envconfig:"METRICS_ADDR" default:":9090"`
}

// Load reads the config from the environment.
func Load() AppConfig {
	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		log.Fatalf("loading config: %v", err)
	}
	return cfg
}
