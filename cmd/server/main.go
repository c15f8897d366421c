package main // Entry point package

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/user-service/internal/config"
	"github.com/iliyamo/user-service/internal/database"
	"github.com/iliyamo/user-service/internal/handler"
	"github.com/iliyamo/user-service/internal/logging"
	"github.com/iliyamo/user-service/internal/mail"
	"github.com/iliyamo/user-service/internal/middleware"
	"github.com/iliyamo/user-service/internal/queue"
	"github.com/iliyamo/user-service/internal/repository"
	"github.com/iliyamo/user-service/internal/router"
	"github.com/iliyamo/user-service/internal/service"
	"github.com/iliyamo/user-service/internal/utils"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "user-service:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	debug := cfg.IsDevelopment()
	log := logging.New(debug, os.Stdout)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, db, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	if db != nil {
		defer func() { _ = db.Close() }()
	}

	rdb := config.NewRedisClient(cfg.Redis)
	if rdb == nil {
		log.Warn("redis unavailable; rate limiting and caching disabled", "addr", cfg.Redis.Address())
	} else {
		defer func() { _ = rdb.Close() }()
	}

	sender := newSender(cfg, log)
	consumerDone := make(chan struct{})
	if cfg.Mail.Transport == config.MailAMQP {
		go func() {
			defer close(consumerDone)
			smtp := mail.NewSMTPSender(smtpConfig(cfg.Mail))
			if err := queue.StartMailConsumer(ctx, cfg.AMQPURL, smtp, cfg.Mail.Timeout, log); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("mail consumer stopped", "err", err)
			}
		}()
	} else {
		close(consumerDone)
	}

	tokens := utils.NewTokenService(cfg.JWTSecret, cfg.JWTExpire, nil)
	verification := service.NewVerificationService(store, sender, service.VerificationConfig{
		TTL:         cfg.VerificationTTL,
		MailTimeout: cfg.Mail.Timeout,
		Link:        cfg.VerificationLink,
	}, log)
	credentials := service.NewCredentialService(store, utils.NewBcryptHasher(cfg.BcryptCost), tokens, verification,
		service.CredentialConfig{VerifyPasswordFirst: cfg.VerifyPasswordFirst, MailTimeout: cfg.Mail.Timeout}, log)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = handler.ErrorHandler(debug, log)
	middleware.Standard(e, log, cfg.AllowedOrigins)

	deps := router.Deps{
		Auth: handler.NewAuthHandler(&service.AuthFacade{
			Credentials: credentials, Verification: verification, Store: store, Log: log, Debug: debug,
		}),
		Profiles:  handler.NewProfileHandler(&service.ProfileService{Store: store, Log: log, Debug: debug}, evictor(cfg, rdb, log)),
		Tokens:    tokens,
		RateLimit: middleware.NewTokenBucket(cfg.RateLimit, rdb, log),
		Cache:     middleware.NewRedisCache(cfg.Cache, rdb, log),
	}
	if db != nil {
		deps.DB = db
	}
	router.Register(e, deps)

	addr := ":" + cfg.Port
	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", "addr", addr, "env", cfg.Env, "store", cfg.StoreDriver, "mail", cfg.Mail.Transport)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown", "err", err)
	}
	credentials.Wait()
	<-consumerDone
	return nil
}

// openStore returns the account store selected by STORE_DRIVER. The *sql.DB
// is nil for the in-memory store.
func openStore(ctx context.Context, cfg config.Config, log *slog.Logger) (service.AccountStore, *sql.DB, error) {
	if cfg.StoreDriver == config.StoreMemory {
		log.Warn("using in-memory account store; data is lost on restart")
		return repository.NewMemoryAccountRepo(), nil, nil
	}

	db, err := database.Open(ctx, database.Config{
		User: cfg.DBUser, Pass: cfg.DBPass, Host: cfg.DBHost, Port: cfg.DBPort, Name: cfg.DBName,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}
	if err := database.Migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	return repository.NewAccountRepo(db), db, nil
}

func newSender(cfg config.Config, log *slog.Logger) mail.Sender {
	switch cfg.Mail.Transport {
	case config.MailSMTP:
		return mail.NewSMTPSender(smtpConfig(cfg.Mail))
	case config.MailAMQP:
		return queue.NewPublisher(cfg.AMQPURL)
	default:
		return mail.LogSender{Log: log}
	}
}

func smtpConfig(m config.MailConfig) mail.SMTPConfig {
	return mail.SMTPConfig{Host: m.Host, Port: m.Port, User: m.User, Password: m.Password, From: m.From}
}

// evictor drops the cached public profile after an owner edits it.
func evictor(cfg config.Config, rdb *redis.Client, log *slog.Logger) func(ctx context.Context, accountID string) {
	return func(ctx context.Context, accountID string) {
		if err := middleware.Evict(ctx, cfg.Cache, rdb, "/api/users/"+accountID); err != nil {
			log.WarnContext(ctx, "cache eviction failed", "account_id", accountID, "err", err)
		}
	}
}
