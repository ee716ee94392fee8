package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

var (
	BroadcastDelivered = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "broadcast_delivered_total",
		Help: "Recipients that received the daily broadcast",
	})
	BroadcastFailed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "broadcast_failed_total",
		Help: "Recipients the daily broadcast could not be delivered to",
	})
	BroadcastRunSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "broadcast_run_seconds",
		Help:    "Duration of a full daily broadcast run",
		Buckets: prometheus.DefBuckets,
	})
	SynthesisFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "synthesis_failures_total",
		Help: "Voice note synthesis failures",
	})
	BotSendErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "bot_send_errors_total",
		Help: "Errors while sending bot replies",
	})
	BotCommandsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bot_commands_total",
		Help: "Bot commands received, by command",
	}, []string{"command"})

	NetworkRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "network_request_duration_seconds",
		Help:    "Duration of outbound network requests",
		Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 20, 30, 60},
	}, []string{"component", "operation", "target", "status"})

	NetworkRequestTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "network_request_total",
		Help: "Outbound network request count",
	}, []string{"component", "operation", "target", "status"})
)

// MustRegister registers every metric of the application.
func MustRegister(registerer prometheus.Registerer) {
	registerer.MustRegister(
		BroadcastDelivered,
		BroadcastFailed,
		BroadcastRunSeconds,
		SynthesisFailures,
		BotSendErrors,
		BotCommandsTotal,
		NetworkRequestDuration,
		NetworkRequestTotal,
	)
}

// StartServer runs the /metrics HTTP endpoint until the context is done.
func StartServer(ctx context.Context, logger zerolog.Logger, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}

	shutdownCtx, cancel := context.WithCancel(context.Background())
	go func() {
		select {
		case <-ctx.Done():
		case <-shutdownCtx.Done():
		}
		shutdownTimeout, timeoutCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer timeoutCancel()
		if err := srv.Shutdown(shutdownTimeout); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("metrics: graceful shutdown failed")
		}
	}()

	go func() {
		logger.Info().Str("addr", addr).Msg("metrics: server started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("metrics: server stopped")
		}
		cancel()
	}()
}

// ObserveNetworkRequest records the duration and status of one outbound call.
func ObserveNetworkRequest(component, operation, target string, start time.Time, err error) {
	if component == "" {
		component = "unknown"
	}
	if operation == "" {
		operation = "unknown"
	}
	if target == "" {
		target = "unknown"
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	duration := time.Since(start).Seconds()
	NetworkRequestDuration.WithLabelValues(component, operation, target, status).Observe(duration)
	NetworkRequestTotal.WithLabelValues(component, operation, target, status).Inc()
}

// IncBroadcastDelivered counts one recipient delivered.
func IncBroadcastDelivered() {
	BroadcastDelivered.Inc()
}

// IncBroadcastFailed counts one recipient that could not be reached.
func IncBroadcastFailed() {
	BroadcastFailed.Inc()
}

// IncSynthesisFailure counts one failed voice synthesis.
func IncSynthesisFailure() {
	SynthesisFailures.Inc()
}

// IncBotCommand counts one received bot command.
func IncBotCommand(command string) {
	if command == "" {
		command = "unknown"
	}
	BotCommandsTotal.WithLabelValues(command).Inc()
}
