package main

import (
	"context"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"gazel-funnel/internal/adapters/gazelapi"
	"gazel-funnel/internal/adapters/session"
	"gazel-funnel/internal/adapters/web"
	"gazel-funnel/internal/identity"
	"gazel-funnel/internal/infra/config"
	httpinfra "gazel-funnel/internal/infra/http"
	applog "gazel-funnel/internal/infra/log"
	"gazel-funnel/internal/infra/metrics"
	"gazel-funnel/internal/usecase/analysis"
)

func main() {
	cfg := config.Load()
	logger := applog.NewLogger(cfg.AppEnv)

	metrics.MustRegister(prometheus.DefaultRegisterer)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Fatal().Err(err).Str("addr", cfg.RedisAddr).Msg("funnel: нет подключения к Redis")
	}
	defer redisClient.Close()

	store := session.NewRedisStore(redisClient, cfg.Funnel.SessionTTL)

	apiClient, err := gazelapi.New(cfg.GazelAPI.BaseURL, gazelapi.WithTimeout(cfg.GazelAPI.Timeout))
	if err != nil {
		logger.Fatal().Err(err).Msg("funnel: некорректный адрес API")
	}

	ids := identity.NewProvider(store, identity.Policy(cfg.Funnel.IdentityPolicy), logger.With().Str("component", "identity").Logger())
	analysisUC := analysis.NewService(
		apiClient,
		store,
		ids,
		cfg.Checkout.BaseURL,
		cfg.Funnel.MinLoadingTime,
		logger.With().Str("component", "analysis").Logger(),
	)

	server := httpinfra.NewServer(logger)
	handler := web.NewHandler(analysisUC, store, logger.With().Str("component", "web").Logger())
	handler.Register(server.Router)

	go func() {
		if err := server.Start(":" + strconv.Itoa(cfg.Port)); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("funnel: HTTP сервер остановился с ошибкой")
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("funnel: ошибка при остановке сервера")
	}
	logger.Info().Msg("funnel: сервис остановлен")
}
