// The bot gateway serves the Telegram webhook and answers user commands.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	chi "github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"halacha-yomi-bot/internal/adapters/bot"
	"halacha-yomi-bot/internal/adapters/repo"
	"halacha-yomi-bot/internal/adapters/sefaria"
	"halacha-yomi-bot/internal/adapters/telegram"
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

	formatter := delivery.NewFormatter(catalog, cfg.Delivery.MessageLimit, cfg.Delivery.IncludeFooter)
	service := delivery.NewService(
		selector,
		corpus,
		formatter,
		transport,
		store,
		nil,
		store,
		redisCache,
		logger,
		delivery.Config{
			PrimaryChatID: cfg.Telegram.PrimaryChatID,
			MaxRetries:    uint64(cfg.Delivery.MaxRetries),
			CacheTTL:      time.Duration(cfg.Delivery.CacheTTLHours) * time.Hour,
		},
	)

	handler := bot.NewHandler(transport, store, service, loc, logger)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Post("/bot/webhook", func(w http.ResponseWriter, r *http.Request) {
		var update tgbotapi.Update
		if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		handler.HandleUpdate(r.Context(), update)
		w.WriteHeader(http.StatusOK)
	})

	metrics.StartServer(context.Background(), logger, cfg.MetricsAddr)

	srv := &http.Server{Addr: fmt.Sprintf(":%d", cfg.Port), Handler: r}
	go func() {
		logger.Info().Int("port", cfg.Port).Msg("bot gateway started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("HTTP server stopped")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGTERM, syscall.SIGINT)
	<-stop
	logger.Info().Msg("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
}

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
		logger.Warn().Int("problems", len(problems)).Msg("schedule table has problems")
	}
	return selection.NewCalendar(catalog, table, random, logger)
}
