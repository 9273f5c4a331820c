// @title Recontab API
// @version 1.0
// @description Reconciles accountants' reference files against the IVA and Modelo 10 records held for each client.
// @BasePath /api/v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the access token.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"recontab/internal/config"
	"recontab/internal/email/noop"
	"recontab/internal/email/ses"
	"recontab/internal/handler"
	"recontab/internal/importer"
	"recontab/internal/logger"
	"recontab/internal/port"
	"recontab/internal/reconcile"
	"recontab/internal/repository/postgres"
	"recontab/internal/router"
	"recontab/internal/service"
	s3storage "recontab/internal/storage/s3"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	zl, err := logger.New(cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer func() { _ = zl.Sync() }()

	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := postgres.NewDB(&cfg.DB)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	// Initialize repositories
	tenantRepo := postgres.NewTenantRepo(db)
	userRepo := postgres.NewUserRepo(db)
	clientRepo := postgres.NewClientRepo(db)
	fileRepo := postgres.NewFileMetaRepo(db)
	runRepo := postgres.NewRunRepo(db)
	sourceRepo := postgres.NewSourceRecordRepo(db)

	// Initialize storage
	s3Client, err := s3storage.NewS3Client(&cfg.S3)
	if err != nil {
		return fmt.Errorf("failed to initialize S3 client: %w", err)
	}

	emailSender, err := newEmailSender(cfg.Email, zl)
	if err != nil {
		return err
	}

	// Reconciliation engine
	catalog, err := reconcile.NewCatalog(reconcile.Region(cfg.Recon.Region))
	if err != nil {
		return fmt.Errorf("invalid reconciliation region: %w", err)
	}
	engine, err := reconcile.NewEngine(reconcile.Options{
		Tolerance:         cfg.Recon.Tolerance,
		CriticalThreshold: cfg.Recon.CriticalThreshold,
		Catalog:           catalog,
	})
	if err != nil {
		return fmt.Errorf("invalid reconciliation thresholds: %w", err)
	}

	// Initialize services
	authSvc := service.NewAuthService(userRepo, tenantRepo, cfg.JWT, zl.Named("auth"))
	clientSvc := service.NewClientService(clientRepo, zl.Named("clients"))
	reconSvc := service.NewReconciliationService(
		clientRepo, userRepo, fileRepo, runRepo, sourceRepo,
		s3Client, emailSender,
		importer.New(catalog), engine,
		&cfg.S3, cfg.Recon,
		zl.Named("reconciliation"),
	)

	// Initialize handlers
	authH := handler.NewAuthHandler(authSvc)
	clientH := handler.NewClientHandler(clientSvc)
	reconH := handler.NewReconciliationHandler(reconSvc)
	healthH := handler.NewHealthHandler(db)

	// Setup router
	r := router.Setup(zl.Named("http"), cfg.CORS.AllowedOrigins, authSvc, authH, clientH, reconH, healthH)

	srv := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		zl.Info("server starting",
			zap.String("addr", cfg.Server.Port),
			zap.String("environment", cfg.Server.Environment),
			zap.String("region", string(catalog.Region())),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	zl.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}

func newEmailSender(cfg config.EmailConfig, zl *zap.Logger) (port.EmailSender, error) {
	switch cfg.Provider {
	case "ses":
		sender, err := ses.NewSESSender(cfg.Region, cfg.FromAddress, cfg.FromName, cfg.FrontendURL)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SES sender: %w", err)
		}
		return sender, nil
	case "", "noop":
		return noop.NewNoopSender(cfg.FrontendURL, zl.Named("email")), nil
	default:
		return nil, fmt.Errorf("unknown email provider %q", cfg.Provider)
	}
}
