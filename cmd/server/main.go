// Warsjawa conference backend: attendee registration, workshop email relay,
// and the NFC badge directory.
//
// @title Warsjawa API
// @version 1.0
// @description Registration, workshop mailing lists with backlog replay, and badge endpoints for the Warsjawa conference.
// @BasePath /
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

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"warsjawa/config"
	"warsjawa/internal/adapters/email"
	"warsjawa/internal/adapters/ratelimit"
	httpdelivery "warsjawa/internal/delivery/http"
	"warsjawa/internal/delivery/http/controllers"
	"warsjawa/internal/delivery/http/middleware"
	"warsjawa/internal/domain"
	"warsjawa/internal/repository/postgres"
	"warsjawa/internal/seed"
	"warsjawa/internal/services"
)

// Badge scanners may resolve up to this many tags per window before 429s.
const (
	tagLookupLimit  = 50
	tagLookupWindow = time.Hour
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}
	logger := config.NewLogger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := sql.Open("postgres", cfg.DBUrl)
	if err != nil {
		logger.Error("opening database failed", "err", err)
		os.Exit(1)
	}
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		logger.Error("database unreachable", "err", err)
		os.Exit(1)
	}
	if err := postgres.Migrate(ctx, db, logger); err != nil {
		logger.Error("migrations failed", "err", err)
		os.Exit(1)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	defer redisClient.Close()

	mailer, err := email.NewMailer(email.MailerConfig{
		Provider: cfg.MailProvider,
		Mailgun: email.MailgunConfig{
			APIKey:  cfg.MailgunAPIKey,
			Domain:  cfg.MailDomain,
			BaseURL: cfg.MailgunBaseURL,
		},
		SES: email.SESConfig{
			Region:             cfg.SESRegion,
			AccessKeyID:        cfg.SESAccessKeyID,
			SecretAccessKey:    cfg.SESSecretAccessKey,
			InsecureSkipVerify: cfg.SESInsecureTLS,
		},
	})
	if err != nil {
		logger.Error("creating mailer failed", "err", err)
		os.Exit(1)
	}

	userRepo := postgres.NewUserRepository(db)
	workshopRepo := postgres.NewWorkshopRepository(db)
	mailErrorRepo := postgres.NewMailErrorRepository(db)
	voteRepo := postgres.NewVoteRepository(db)
	sellDataRepo := postgres.NewSellDataRepository(db)

	codec := domain.NewAliasCodec(cfg.MailDomain)
	emailService := services.NewEmailService(logger, mailer, email.NewTemplateRenderer(), mailErrorRepo, codec, cfg.SystemSender)
	tracker := services.NewDeliveryTracker(logger, userRepo, emailService)
	workshopService := services.NewWorkshopService(logger, codec, workshopRepo, userRepo, tracker, emailService, cfg.SystemSender)
	userService := services.NewUserService(logger, userRepo, workshopRepo, emailService)
	limiter := ratelimit.NewRedisLimiter(redisClient, tagLookupLimit, tagLookupWindow)
	contactService := services.NewContactService(logger, userRepo, voteRepo, sellDataRepo, limiter)

	if cfg.WorkshopsFile != "" {
		seeds, err := seed.LoadWorkshops(cfg.WorkshopsFile)
		if err != nil {
			logger.Error("loading workshops file failed", "path", cfg.WorkshopsFile, "err", err)
			os.Exit(1)
		}
		if err := seed.ApplyWorkshops(ctx, logger, seeds, workshopRepo, emailService); err != nil {
			logger.Error("seeding workshops failed", "err", err)
			os.Exit(1)
		}
	}

	mux := httpdelivery.NewRouter(
		controllers.NewUserController(logger, userService),
		controllers.NewWorkshopController(logger, workshopService),
		controllers.NewInboundController(logger, workshopService),
		controllers.NewContactController(logger, contactService),
	)
	var handler http.Handler = middleware.LoggingMiddleware(logger, mux)
	if len(cfg.AllowedOrigins) > 0 {
		handler = middleware.CORS(cfg.AllowedOrigins, handler)
	}

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown failed", "err", err)
		}
	}()

	logger.Info("server listening", "port", cfg.Port, "env", cfg.Environment, "mail_provider", cfg.MailProvider)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server failed", "err", err)
		os.Exit(1)
	}
}
