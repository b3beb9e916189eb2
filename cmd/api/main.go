package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/LeHuyTuong/Carbon-Credit-Marketplace-sub000/internal/accounts"
	"github.com/LeHuyTuong/Carbon-Credit-Marketplace-sub000/internal/auth"
	"github.com/LeHuyTuong/Carbon-Credit-Marketplace-sub000/internal/certificates"
	"github.com/LeHuyTuong/Carbon-Credit-Marketplace-sub000/internal/config"
	"github.com/LeHuyTuong/Carbon-Credit-Marketplace-sub000/internal/credits"
	"github.com/LeHuyTuong/Carbon-Credit-Marketplace-sub000/internal/distribution"
	"github.com/LeHuyTuong/Carbon-Credit-Marketplace-sub000/internal/ledger"
	"github.com/LeHuyTuong/Carbon-Credit-Marketplace-sub000/internal/notifications"
	nws "github.com/LeHuyTuong/Carbon-Credit-Marketplace-sub000/internal/notifications/websocket"
	"github.com/LeHuyTuong/Carbon-Credit-Marketplace-sub000/internal/projects"
	"github.com/LeHuyTuong/Carbon-Credit-Marketplace-sub000/internal/reports"
	"github.com/LeHuyTuong/Carbon-Credit-Marketplace-sub000/internal/vehicles"
	"github.com/LeHuyTuong/Carbon-Credit-Marketplace-sub000/pkg/async"
	"github.com/LeHuyTuong/Carbon-Credit-Marketplace-sub000/pkg/storage"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.LoadConfig(os.Getenv("CONFIG_PATH"))
	if err != nil {
		log.Fatal("failed to load config:", err)
	}

	logger := newLogger(cfg.Logging.Level)
	defer logger.Sync()

	dsn := cfg.Database.GetDatabaseURL()
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	if err := db.AutoMigrate(
		&accounts.Company{},
		&accounts.User{},
		&projects.Project{},
		&vehicles.Vehicle{},
		&reports.EmissionReport{},
		&reports.VehicleContribution{},
		&credits.CreditBatch{},
		&credits.CarbonCredit{},
		&credits.SerialCounter{},
		&distribution.ProfitDistribution{},
		&distribution.ProfitDistributionDetail{},
		&ledger.Wallet{},
		&ledger.WalletTransaction{},
		&notifications.Notification{},
	); err != nil {
		logger.Fatal("failed to migrate database", zap.Error(err))
	}

	sqlxDB, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		logger.Fatal("failed to connect ledger store", zap.Error(err))
	}
	defer sqlxDB.Close()

	ctx := context.Background()

	s3Client, err := storage.NewS3Client(ctx, cfg.AWS.Region)
	if err != nil {
		logger.Warn("S3 unavailable, certificates disabled", zap.Error(err))
	}
	var emailSender notifications.EmailSender
	if cfg.AWS.SenderEmail != "" {
		emailSender, err = notifications.NewSESSender(ctx, cfg.AWS.Region, cfg.AWS.SenderEmail)
		if err != nil {
			logger.Warn("SES unavailable, email disabled", zap.Error(err))
		}
	}

	wsManager := nws.NewManager(logger)
	defer wsManager.Close()

	pool := async.NewPool(cfg.Engine.SideEffectWorkers, 256, time.Minute, logger)
	defer pool.Close()

	// Repositories
	accountRepo := accounts.NewRepository(db)
	projectRepo := projects.NewRepository(db)
	reportRepo := reports.NewRepository(db)
	creditRepo := credits.NewRepository(db)
	distRepo := distribution.NewRepository(db)
	vehicleResolver := vehicles.NewResolver(db)
	ledgerRepo := ledger.NewPostgresRepository(sqlxDB)

	// Services
	ledgerService := ledger.NewService(ledgerRepo, logger)
	notifyService := notifications.NewService(db, wsManager, emailSender, logger)

	var certGen credits.CertificateGenerator
	if s3Client != nil {
		certGen = certificates.NewGenerator(s3Client, cfg.AWS.CertificateBucket, logger)
	}

	issuer := credits.NewIssuer(
		reportRepo, creditRepo, accountRepo, projectRepo,
		credits.NewFormula(cfg.Engine.CreditUnitKg),
		pool, certGen, notifyService, logger,
	)
	coordinator := distribution.NewCoordinator(
		distRepo, reportRepo, vehicleResolver, ledgerService,
		accountRepo, notifyService,
		cfg.Engine.DistributionWorkers, cfg.Engine.PayoutTimeout, logger,
	)
	defer coordinator.Wait()

	// HTTP surface
	r := gin.Default()
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "API alive!"})
	})
	r.GET("/ws", func(c *gin.Context) {
		userID := int64(0)
		if identity, ok := auth.FromContext(c); ok {
			userID = identity.UserID
		}
		if _, err := wsManager.HandleConnection(c.Writer, c.Request, userID); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "websocket upgrade failed"})
		}
	})

	v1 := r.Group("/api/v1", auth.Middleware(cfg.Security.JWTSecret))
	credits.RegisterRoutes(v1.Group("/credits"), credits.NewHandler(issuer))
	distribution.RegisterRoutes(v1.Group("/distributions"), distribution.NewHandler(coordinator))
	ledger.RegisterRoutes(v1.Group("/wallets"), ledger.NewHandler(ledgerService))

	server := &http.Server{
		Addr:         cfg.Server.GetServerAddr(),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logger.Info("server starting", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", zap.Error(err))
	}
}

func newLogger(level string) *zap.Logger {
	cfg := zap.NewProductionConfig()
	if level != "" {
		if parsed, err := zap.ParseAtomicLevel(level); err == nil {
			cfg.Level = parsed
		}
	}
	logger, err := cfg.Build()
	if err != nil {
		log.Fatal("failed to build logger:", err)
	}
	return logger
}
