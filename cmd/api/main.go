package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"

	"notevault.org/internal/auth"
	"notevault.org/internal/config"
	"notevault.org/internal/events"
	"notevault.org/internal/httpapi"
	"notevault.org/internal/notes"
	"notevault.org/internal/obs"
)

var (
	version = "dev"
	commit  = "none"
)

func main() {
	logger := obs.Logger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf(`{"level":"fatal","msg":"config","err":%q}`, err.Error())
	}

	obs.Init()
	obs.InitBuildInfo(version, commit)

	db, err := sql.Open("pgx", cfg.PostgresDSN)
	if err != nil {
		logger.Fatalf(`{"level":"fatal","msg":"open postgres","err":%q}`, err.Error())
	}
	defer db.Close()
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := db.PingContext(pingCtx); err != nil {
		cancel()
		logger.Fatalf(`{"level":"fatal","msg":"ping postgres","err":%q}`, err.Error())
	}
	cancel()

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, DB: cfg.RedisDB})
	defer rdb.Close()

	var publisher events.Publisher = events.NopPublisher{}
	if len(cfg.KafkaBrokers) > 0 {
		publisher = events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
	}
	defer publisher.Close()

	identities := auth.NewPGIdentityStore(db)
	outstanding := auth.NewPGOutstandingStore(db)
	revocations := auth.NewRedisRevocationStore(rdb)

	authSvc, err := auth.NewService([]byte(cfg.TokenSecret), identities, outstanding, revocations,
		auth.WithIssuerName(cfg.TokenIssuer),
		auth.WithAccessTTL(cfg.AccessTTL),
		auth.WithRefreshTTL(cfg.RefreshTTL),
	)
	if err != nil {
		logger.Fatalf(`{"level":"fatal","msg":"auth service","err":%q}`, err.Error())
	}

	notesSvc, err := notes.NewService(notes.NewPGStore(db))
	if err != nil {
		logger.Fatalf(`{"level":"fatal","msg":"notes service","err":%q}`, err.Error())
	}

	api := httpapi.New(httpapi.Options{
		Auth:          authSvc,
		Notes:         notesSvc,
		Events:        publisher,
		ReadyProbe:    httpapi.ReadyProbe{DB: db},
		Version:       version,
		RatePerSecond: cfg.RateLimitPerSecond,
		RateBurst:     cfg.RateLimitBurst,
	})

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Printf(`{"level":"info","msg":"listening","addr":%q,"version":%q}`, cfg.Addr, version)
		errCh <- srv.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-stop:
		logger.Printf(`{"level":"info","msg":"shutting down","signal":%q}`, sig.String())
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf(`{"level":"fatal","msg":"serve","err":%q}`, err.Error())
		}
		return
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Printf(`{"level":"error","msg":"shutdown","err":%q}`, err.Error())
	}
	logger.Printf(`{"level":"info","msg":"stopped"}`)
}
