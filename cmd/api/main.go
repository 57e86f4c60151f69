// @title eventhub API
// @version 1.0
// @description Event discovery backend: events feed, participation and interest, profiles.
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"eventhub/config"
	_ "eventhub/docs"
	authadapter "eventhub/internal/adapters/auth"
	"eventhub/internal/adapters/email"
	"eventhub/internal/adapters/storage"
	deliveryhttp "eventhub/internal/delivery/http"
	"eventhub/internal/delivery/http/controllers"
	"eventhub/internal/delivery/http/middleware"
	"eventhub/internal/delivery/ws"
	"eventhub/internal/domain"
	"eventhub/internal/eventbus"
	"eventhub/internal/migrations"
	"eventhub/internal/repository/postgres"
	"eventhub/internal/services"

	"github.com/gorilla/handlers"
	_ "github.com/lib/pq"
)

func main() {
	logger := config.NewLogger()
	if err := run(logger); err != nil {
		logger.Error("server exited", "err", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	db, err := sql.Open("postgres", cfg.DBUrl)
	if err != nil {
		return err
	}
	defer db.Close()

	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		return err
	}
	logger.Info("connected to database")

	if cfg.RunMigrations {
		if err := migrations.Up(db, logger); err != nil {
			return err
		}
	}

	objects, err := storage.NewS3Store(storage.S3Config{
		Region:             cfg.Storage.Region,
		Endpoint:           cfg.Storage.Endpoint,
		AccessKeyID:        cfg.Storage.AccessKeyID,
		SecretAccessKey:    cfg.Storage.SecretAccessKey,
		PublicBaseURL:      cfg.Storage.PublicBaseURL,
		InsecureSkipVerify: cfg.Storage.InsecureSkipVerify,
		Buckets: map[string]string{
			domain.BucketEventBanners: cfg.Storage.BannerBucket,
			domain.BucketAvatars:      cfg.Storage.AvatarBucket,
		},
	}, logger)
	if err != nil {
		return err
	}

	mailer, err := email.NewMailer(email.MailerConfig{
		Provider:    cfg.Email.Provider,
		FromAddress: cfg.Email.FromAddress,
		FromName:    cfg.Email.FromName,
		SES: email.SESConfig{
			Region:             cfg.Email.SESRegion,
			AccessKeyID:        cfg.Email.SESAccessKeyID,
			SecretAccessKey:    cfg.Email.SESSecretAccessKey,
			InsecureSkipVerify: cfg.Email.SESInsecureSkipVerify,
		},
	}, logger)
	if err != nil {
		return err
	}

	// Repositories
	accountRepo := postgres.NewAccountRepository(db)
	otpRepo := postgres.NewOTPCodeRepository(db)
	sessionRepo := postgres.NewAuthSessionRepository(db)
	profileRepo := postgres.NewProfileRepository(db)
	eventRepo := postgres.NewEventRepository(db)
	participantRepo := postgres.NewParticipantRepository(db)
	interestRepo := postgres.NewInterestRepository(db)

	// Services
	timeout := cfg.RequestTimeout
	renderer, err := email.NewTemplateRenderer()
	if err != nil {
		return err
	}
	emailService := services.NewEmailService(mailer, renderer, logger)
	profileService := services.NewProfileService(profileRepo, timeout)
	authService := services.NewAuthService(accountRepo, otpRepo, sessionRepo,
		authadapter.NewBcryptHasher(cfg.BcryptCost, cfg.PasswordPepper),
		authadapter.NewJWTCodec(cfg.JWTSecret, cfg.JWTIssuer),
		emailService, profileService, logger,
		services.AuthConfig{TokenExpiry: cfg.TokenExpiry, OTPExpiry: cfg.OTPExpiry},
	)
	eventService := services.NewEventService(eventRepo, profileRepo, participantRepo, objects, logger, timeout)
	participationService := services.NewParticipationService(participantRepo, interestRepo, eventbus.Default, timeout)
	mediaService := services.NewMediaService(eventRepo, authService, objects, storage.NewJPEGProcessor(), logger, timeout)

	origins := middleware.ParseOrigins(cfg.CORSAllowedOrigins)
	relay := ws.NewRelay(eventbus.Default, origins, logger)
	defer relay.Close()

	router := deliveryhttp.NewRouter(authService, logger, deliveryhttp.Controllers{
		Auth:          controllers.NewAuthController(logger, authService),
		Profiles:      controllers.NewProfileController(logger, profileService, mediaService),
		Events:        controllers.NewEventController(logger, eventService, participationService, mediaService),
		Participation: controllers.NewParticipationController(logger, participationService),
	}, relay)

	var h http.Handler = router
	h = middleware.CORS(origins, h)
	h = middleware.LoggingMiddleware(logger, h)
	h = handlers.RecoveryHandler(
		handlers.RecoveryLogger(slog.NewLogLogger(logger.Handler(), slog.LevelError)),
		handlers.PrintRecoveryStack(cfg.Environment != "production"),
	)(h)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server", "addr", srv.Addr, "env", cfg.Environment)
		errCh <- srv.ListenAndServe()
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigs:
		logger.Info("received signal", "signal", sig.String())
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	logger.Info("server stopped")
	return nil
}
