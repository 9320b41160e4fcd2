package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/valkey-io/valkey-go"

	"github.com/yanqian/stylecast/internal/domain/session"
	"github.com/yanqian/stylecast/internal/domain/stylist"
	"github.com/yanqian/stylecast/internal/infra/config"
	"github.com/yanqian/stylecast/internal/infra/imagestore"
	"github.com/yanqian/stylecast/internal/infra/llm/gemini"
	"github.com/yanqian/stylecast/internal/infra/openmeteo"
	"github.com/yanqian/stylecast/internal/infra/sessionstore"
	"github.com/yanqian/stylecast/pkg/metrics"
)

func provideGeocodingClient(cfg *config.Config) *openmeteo.GeocodingClient {
	return openmeteo.NewGeocodingClient(openmeteo.Options{
		GeocodingURL: cfg.Weather.GeocodingURL,
		Timeout:      cfg.Weather.Timeout,
	})
}

func provideForecastClient(cfg *config.Config) *openmeteo.ForecastClient {
	return openmeteo.NewForecastClient(openmeteo.Options{
		ForecastURL: cfg.Weather.ForecastURL,
		Timeout:     cfg.Weather.Timeout,
	})
}

func provideStylistConfig(cfg *config.Config) stylist.Config {
	return stylist.Config{
		TextModel:   cfg.LLM.TextModel,
		ImageModel:  cfg.LLM.ImageModel,
		Temperature: cfg.LLM.Temperature,
	}
}

func provideTokenEstimator(cfg *config.Config) metrics.TokenEstimator {
	if !cfg.LLM.EstimateTokens {
		return nil
	}
	return metrics.NewTiktokenEstimator("")
}

// The text and image models get separate clients so each carries its own timeout.
func provideRecommender(cfg *config.Config, stylistCfg stylist.Config, estimator metrics.TokenEstimator, logger *slog.Logger) stylist.Recommender {
	if strings.TrimSpace(cfg.LLM.APIKey) == "" {
		logger.Warn("GEMINI_API_KEY not set, recommendations will report a configuration error")
	}
	client := gemini.NewClient(gemini.Options{
		APIKey:  cfg.LLM.APIKey,
		BaseURL: cfg.LLM.BaseURL,
		Timeout: cfg.LLM.TextTimeout,
	})
	return stylist.NewRecommender(stylistCfg, client, estimator, logger)
}

func provideVisualizer(cfg *config.Config, stylistCfg stylist.Config, logger *slog.Logger) stylist.Visualizer {
	client := gemini.NewClient(gemini.Options{
		APIKey:  cfg.LLM.APIKey,
		BaseURL: cfg.LLM.BaseURL,
		Timeout: cfg.LLM.ImageTimeout,
	})
	return stylist.NewVisualizer(stylistCfg, client, logger)
}

func provideSessionConfig(cfg *config.Config) session.Config {
	return session.Config{
		TTL:           cfg.Session.TTL,
		MaxImageBytes: cfg.Session.MaxImageBytes,
		SweepInterval: cfg.Session.SweepInterval,
	}
}

func provideTokenIssuer(cfg *config.Config, logger *slog.Logger) *session.TokenIssuer {
	secret := strings.TrimSpace(cfg.Session.Secret)
	if secret == "" {
		buf := make([]byte, 32)
		_, _ = rand.Read(buf)
		secret = hex.EncodeToString(buf)
		logger.Warn("SESSION_SECRET not set, using an ephemeral secret; sessions will not survive restarts")
	}
	return session.NewTokenIssuer(secret)
}

func provideSessionStore(cfg *config.Config, logger *slog.Logger) (session.Store, func()) {
	switch cfg.Session.Backend {
	case config.BackendValkey:
		client, err := newValkeyClient(cfg.Session.Valkey.Addr)
		if err != nil {
			logger.Error("failed to create valkey client, falling back to memory store", "error", err)
			break
		}
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := client.Do(ctx, client.B().Ping().Build()).Error(); err != nil {
			logger.Error("valkey ping failed, falling back to memory store", "error", err)
			client.Close()
			break
		}
		logger.Info("session valkey store enabled", "addr", cfg.Session.Valkey.Addr)
		return sessionstore.NewValkeyStore(client, cfg.Session.Valkey.Prefix), client.Close
	case config.BackendPostgres:
		pool, err := newPostgresPool(cfg.Session.Postgres, logger)
		if err != nil {
			logger.Error("postgres unavailable, falling back to memory store", "error", err)
			break
		}
		store := sessionstore.NewPostgresStore(pool)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := store.EnsureSchema(ctx); err != nil {
			logger.Error("failed to prepare sessions table, falling back to memory store", "error", err)
			pool.Close()
			break
		}
		logger.Info("session postgres store enabled")
		return store, pool.Close
	}
	logger.Info("using in-memory session store")
	return sessionstore.NewMemoryStore(), func() {}
}

func provideImageStore(cfg *config.Config, logger *slog.Logger) session.ImageStore {
	if cfg.Storage.Backend == config.BackendR2 {
		r2 := cfg.Storage.R2
		store, err := imagestore.NewR2Storage(r2.Endpoint, r2.AccessKey, r2.SecretKey, r2.Bucket, r2.Region, logger)
		if err == nil {
			logger.Info("r2 image store enabled", "bucket", r2.Bucket)
			return store
		}
		logger.Error("failed to init r2 storage, falling back to memory", "error", err)
	}
	return imagestore.NewMemoryStorage()
}

func newValkeyClient(addr string) (valkey.Client, error) {
	var (
		opt valkey.ClientOption
		err error
	)
	if strings.Contains(addr, "://") {
		opt, err = valkey.ParseURL(addr)
	} else {
		opt = valkey.ClientOption{InitAddress: []string{addr}}
	}
	if err != nil {
		return nil, err
	}
	return valkey.NewClient(opt)
}

func newPostgresPool(cfg config.PostgresConfig, logger *slog.Logger) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(strings.TrimSpace(cfg.DSN))
	if err != nil {
		return nil, err
	}
	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolConfig.MinConns = cfg.MinConns
	}
	pool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	logger.Info("postgres pool ready", "max_conns", poolConfig.MaxConns)
	return pool, nil
}
