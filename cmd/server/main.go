package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/pinsync/pinsync-server/internal/api"
	"github.com/pinsync/pinsync-server/internal/core/domain"
	"github.com/pinsync/pinsync-server/internal/core/service"
	"github.com/pinsync/pinsync-server/internal/infrastructure/db/mongo"
	"github.com/pinsync/pinsync-server/internal/infrastructure/db/redis"
	"github.com/pinsync/pinsync-server/internal/infrastructure/mail"
	"github.com/pinsync/pinsync-server/internal/infrastructure/queue"
	"github.com/pinsync/pinsync-server/internal/infrastructure/storage"
	"github.com/pinsync/pinsync-server/internal/pkg/config"
	"github.com/pinsync/pinsync-server/pkg/logger"
)

func main() {
	// A missing .env is fine outside development.
	_ = godotenv.Load()

	cfg := config.Load()
	log := logger.Init(logger.Options{
		Level:  cfg.LogLevel,
		Pretty: cfg.Env == "development",
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client, db, err := mongo.Connect(ctx, mongo.Config{
		URI:      cfg.Mongo.URI,
		Database: cfg.Mongo.Database,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("mongodb connection failed")
	}
	defer func() {
		_ = client.Disconnect(context.Background())
	}()

	userRepo := mongo.NewUserRepository(db)
	uploadRepo := mongo.NewUploadRepository(db)
	if err := userRepo.EnsureIndexes(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to create user indexes")
	}
	if err := uploadRepo.EnsureIndexes(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to create upload indexes")
	}

	rdb, err := redis.Connect(ctx, redis.Config{
		Addr: cfg.Redis.Addr,
		DB:   cfg.Redis.DB,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("redis connection failed")
	}
	defer rdb.Close()

	blobs, err := storage.NewDiskStore(cfg.UploadDir)
	if err != nil {
		log.Fatal().Err(err).Msg("blob store init failed")
	}

	mailer := mail.NewMailer(mail.Config{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		Username: cfg.SMTP.Username,
		Password: cfg.SMTP.Password,
		From:     cfg.SMTP.From,
	})

	dispatcher := queue.NewDispatcher(cfg.NotifyWorkers, mailer, redis.NewNotifyDedup(rdb), log)
	dispatcher.Start(ctx)

	if err := bootstrapAdmin(ctx, userRepo, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("admin bootstrap failed")
	}

	e := api.NewRouter(api.Deps{
		Identity:   service.NewIdentityService(userRepo, blobs, cfg.JWTSecret, 24*time.Hour, log),
		Approval:   service.NewApprovalService(userRepo, dispatcher, log),
		Engagement: service.NewEngagementService(uploadRepo, log),
		Uploads:    service.NewUploadService(uploadRepo, blobs, log),
		DB:         db,
		RDB:        rdb,
		UploadDir:  cfg.UploadDir,
		JWTSecret:  cfg.JWTSecret,
		Log:        log,
	})

	go func() {
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server start failed")
		}
	}()
	log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("server started")

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown failed")
		os.Exit(1)
	}
	log.Info().Msg("server stopped")
}

// bootstrapAdmin provisions the admin account from environment credentials.
// This is the only path that creates an admin; public registration is
// restricted to normal and artist roles.
func bootstrapAdmin(ctx context.Context, repo *mongo.UserRepository, cfg *config.Config, log zerolog.Logger) error {
	if cfg.Admin.Username == "" || cfg.Admin.Password == "" {
		log.Warn().Msg("no admin credentials configured, skipping bootstrap")
		return nil
	}

	if _, err := repo.FindByUsername(ctx, cfg.Admin.Username); err == nil {
		return nil
	} else if !errors.Is(err, domain.ErrUserNotFound) {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(cfg.Admin.Password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	_, err = repo.Create(ctx, &domain.User{
		Username:     cfg.Admin.Username,
		PasswordHash: string(hash),
		Role:         domain.RoleAdmin,
		Approved:     true,
		LikedImages:  []string{},
		CreatedAt:    time.Now().UTC(),
	})
	if errors.Is(err, domain.ErrUserExists) {
		// lost a race with another instance bootstrapping the same admin
		return nil
	}
	if err == nil {
		log.Info().Str("username", cfg.Admin.Username).Msg("admin account provisioned")
	}
	return err
}
