package main

import (
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"

	"github.com/mcamposv/metrica/internal/cache"
	"github.com/mcamposv/metrica/internal/config"
	"github.com/mcamposv/metrica/internal/httpx"
	"github.com/mcamposv/metrica/internal/service"
	"github.com/mcamposv/metrica/internal/source"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config error", slog.String("err", err.Error()))
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)

	var st cache.Store
	if cfg.Cache.Path != "" {
		opts := badger.DefaultOptions(cfg.Cache.Path)
		opts.Logger = nil
		db, err := badger.Open(opts)
		if err != nil {
			logger.Error("open cache", slog.String("err", err.Error()))
			os.Exit(1)
		}
		defer db.Close()
		st = cache.NewBadgerStore(db, nil)
		logger.Info("cache: badger", slog.String("path", cfg.Cache.Path))
	} else {
		st = cache.NewMemoryStore(nil)
		logger.Info("cache: in-memory")
	}

	cl := source.NewHTTPClient(cfg.Server.HTTPTimeout)
	// throttle por fuente: un 429 del email no debe frenar a ads
	retryFor := func() source.Retryer {
		return source.Retryer{
			MaxRetries: cfg.Retry.MaxRetries,
			Base:       cfg.Retry.BaseBackoff,
			Throttle:   source.NewThrottle(),
		}
	}

	sources := []service.Source{
		source.NewEmailClient(cl, source.EmailConfig{
			URL:               cfg.Email.URL,
			APIKey:            cfg.Email.APIKey,
			Tag:               cfg.Email.Tag,
			RequestsPerSecond: cfg.Email.RequestsPerSecond,
		}, retryFor(), logger),
		source.NewSalesClient(cl, source.SalesConfig{
			URL: cfg.Sales.URL,
		}, retryFor(), logger),
		source.NewAdsClient(cl, source.AdsConfig{
			URL:         cfg.Ads.URL,
			AccountID:   cfg.Ads.AccountID,
			AccessToken: cfg.Ads.AccessToken,
		}, retryFor(), logger),
	}

	svc := service.New(st, sources, cfg.TTLs(), logger)
	r := httpx.NewRouter(logger, svc)

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("starting server", slog.String("port", cfg.Server.Port))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server error", slog.String("err", err.Error()))
		os.Exit(1)
	}
}
