package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/agrokasa/advert_market/internal/config"
	"github.com/agrokasa/advert_market/internal/db"
	"github.com/agrokasa/advert_market/internal/es"
	"github.com/agrokasa/advert_market/internal/genai"
	"github.com/agrokasa/advert_market/internal/httpserver"
	"github.com/agrokasa/advert_market/internal/logging"
	"github.com/agrokasa/advert_market/internal/media"
	authmw "github.com/agrokasa/advert_market/internal/middleware/auth"
	"github.com/agrokasa/advert_market/internal/mykafka"
	"github.com/agrokasa/advert_market/internal/repo"
	"github.com/agrokasa/advert_market/internal/search"
	"github.com/agrokasa/advert_market/internal/service"
	"github.com/agrokasa/advert_market/internal/tokens"
)

func main() {
	cfg := config.MustLoad()

	logger := logging.New(cfg.LogLevel).With("service", cfg.ServiceName)
	slog.SetDefault(logger)

	openCtx, cancelOpen := context.WithTimeout(context.Background(), 10*time.Second)
	gdb, err := db.Open(openCtx, cfg.DatabaseURL)
	cancelOpen()
	if err != nil {
		logger.Error("db_init_failed", "error", err)
		os.Exit(1)
	}
	if err := db.Migrate(gdb, cfg.UniqueAdvertTitles); err != nil {
		logger.Error("db_migrate_failed", "error", err)
		os.Exit(1)
	}
	store := &repo.GormRepo{DB: gdb}

	uploader, err := media.NewS3Uploader(context.Background(), cfg.S3)
	if err != nil {
		logger.Error("s3_init_failed", "error", err)
		os.Exit(1)
	}
	hf := genai.NewHFClient(cfg.HF, cfg.GatewayTimeout)

	var publisher mykafka.Publisher = mykafka.Noop{}
	var producer *mykafka.Producer
	if len(cfg.KafkaBrokers) > 0 {
		producer, err = mykafka.NewProducer(cfg.KafkaBrokers)
		if err != nil {
			logger.Error("kafka_init_failed", "error", err)
			os.Exit(1)
		}
		publisher = producer
	} else {
		logger.Info("kafka_disabled", "reason", "KAFKA_BROKERS is empty")
	}

	adverts := &service.AdvertService{
		Store:          store,
		Media:          uploader,
		Images:         hf,
		Events:         publisher,
		UniqueTitles:   cfg.UniqueAdvertTitles,
		GatewayTimeout: cfg.GatewayTimeout,
	}
	if cfg.ES.URL != "" {
		esCtx, cancelES := context.WithTimeout(context.Background(), 5*time.Second)
		esClient, err := es.NewClient(esCtx, cfg.ES, logger)
		cancelES()
		if err != nil {
			logger.Warn("es_unavailable", "reason", "search falls back to the database", "error", err)
		} else {
			adverts.Index = &search.AdvertIndex{ES: esClient, Index: cfg.ES.Index}
		}
	}

	auth := &service.AuthService{
		Users:  store,
		Tokens: tokens.NewIssuer(cfg.JWTSecret, cfg.TokenTTL),
		Events: publisher,
	}

	e := httpserver.New(logger)
	httpserver.Register(e, &httpserver.Deps{
		DB:            gdb,
		Guard:         &authmw.Guard{Resolver: auth},
		UserHandler:   &httpserver.UserHTTP{Svc: auth},
		AdvertHandler: &httpserver.AdvertHTTP{Svc: adverts},
		AIHandler:     &httpserver.AIHTTP{Svc: &service.AIService{Gen: hf, Timeout: cfg.GatewayTimeout}},
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      e,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.GatewayTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		logger.Info("http_server_started", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http_server_error", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	go func() {
		<-quit
		logger.Warn("force_exit")
		os.Exit(1)
	}()

	logger.Info("shutting_down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server_shutdown_error", "error", err)
	}
	if producer != nil {
		if err := producer.Close(); err != nil {
			logger.Error("kafka_close_error", "error", err)
		}
	}
	if err := db.Close(gdb); err != nil {
		logger.Error("db_close_error", "error", err)
	}

	logger.Info("shutdown_complete")
}
