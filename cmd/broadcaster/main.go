// The broadcaster runs one daily broadcast and exits. It is meant to be
// invoked by cron or a scheduler; a Redis guard keeps a retriggered run from
// sending the same day twice.
package main

import (
	"context"
	"os"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"halacha-yomi-bot/internal/adapters/repo"
	"halacha-yomi-bot/internal/adapters/sefaria"
	"halacha-yomi-bot/internal/adapters/telegram"
	"halacha-yomi-bot/internal/adapters/tts"
	"halacha-yomi-bot/internal/domain"
	"halacha-yomi-bot/internal/infra/cache"
	"halacha-yomi-bot/internal/infra/config"
	"halacha-yomi-bot/internal/infra/db"
	"halacha-yomi-bot/internal/infra/log"
	"halacha-yomi-bot/internal/infra/metrics"
	"halacha-yomi-bot/internal/usecase/delivery"
	"halacha-yomi-bot/internal/usecase/schedule"
	"halacha-yomi-bot/internal/usecase/selection"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	logger := log.NewLogger(cfg.AppEnv)
	metrics.MustRegister(prometheus.DefaultRegisterer)

	loc, err := time.LoadLocation(cfg.TZ)
	if err != nil {
		logger.Fatal().Err(err).Str("tz", cfg.TZ).Msg("unknown timezone")
	}
	today := time.Now().In(loc)

	catalog := domain.DefaultCatalog()
	selector, err := buildSelector(cfg, catalog, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("building the selector")
	}

	pool, err := db.Connect(cfg.PGDSN)
	if err != nil {
		logger.Fatal().Err(err).Msg("connecting to postgres")
	}
	defer pool.Close()
	store := repo.NewPostgres(pool)

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer redisClient.Close()
	redisCache := cache.NewRedis(redisClient)

	corpus, err := sefaria.New(cfg.Sefaria.BaseURL, catalog,
		sefaria.WithWebBase(cfg.Sefaria.WebBase),
		sefaria.WithTimeout(time.Duration(cfg.Sefaria.TimeoutSeconds)*time.Second))
	if err != nil {
		logger.Fatal().Err(err).Msg("building the sefaria client")
	}

	botAPI, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
	if err != nil {
		logger.Fatal().Err(err).Msg("creating the bot")
	}
	transport := telegram.NewSender(botAPI, logger)

	var synth domain.SpeechSynthesizer
	if cfg.TTS.Enabled {
		synth = tts.New(cfg.TTS.OpenAIKey, cfg.TTS.Voice, logger)
	}

	formatter := delivery.NewFormatter(catalog, cfg.Delivery.MessageLimit, cfg.Delivery.IncludeFooter)
	service := delivery.NewService(
		selector,
		corpus,
		formatter,
		transport,
		store,
		synth,
		store,
		redisCache,
		logger,
		delivery.Config{
			PrimaryChatID: cfg.Telegram.PrimaryChatID,
			MaxRetries:    uint64(cfg.Delivery.MaxRetries),
			CacheTTL:      time.Duration(cfg.Delivery.CacheTTLHours) * time.Hour,
		},
	)

	guardKey := "broadcast:" + today.Format("2006-01-02")
	start := time.Now()
	ran, err := redisCache.Once(guardKey, 26*time.Hour, func() error {
		report, err := service.RunDailyBroadcast(context.Background(), today)
		if err != nil {
			return err
		}
		if !report.Ok() {
			logger.Warn().
				Str("report_id", report.ID).
				Int("failed", len(report.Failed)).
				Msg("broadcast finished with failures")
		}
		return nil
	})
	metrics.BroadcastRunSeconds.Observe(time.Since(start).Seconds())
	if err != nil {
		logger.Error().Err(err).Msg("broadcast failed")
		os.Exit(1)
	}
	if !ran {
		logger.Info().Str("key", guardKey).Msg("broadcast already sent today, nothing to do")
	}
}

// buildSelector assembles the configured selection strategy. The calendar
// strategy always gets the random one underneath as its fallback.
func buildSelector(cfg config.AppConfig, catalog *domain.Catalog, logger zerolog.Logger) (domain.Selector, error) {
	random, err := selection.NewRandom(catalog, cfg.Delivery.LookbackYears)
	if err != nil {
		return nil, err
	}
	if cfg.Schedule.Strategy != "calendar" {
		return random, nil
	}

	table, err := schedule.Load(cfg.Schedule.Path)
	if err != nil {
		return nil, err
	}
	if problems := table.Validate(catalog); len(problems) > 0 {
		// Gaps fall back to the random strategy at selection time, so they
		// are worth a warning but not a refusal to start.
		for _, p := range problems {
			logger.Warn().Str("date_key", p.DateKey).Str("reason", p.Reason).Msg("schedule problem")
		}
		logger.Warn().Int("problems", len(problems)).Msg("schedule table has problems")
	}
	return selection.NewCalendar(catalog, table, random, logger)
}
