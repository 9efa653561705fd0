package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"github.com/rentfolio/rentfolio-backend/api/routes"
	"github.com/rentfolio/rentfolio-backend/internal/auth"
	"github.com/rentfolio/rentfolio-backend/internal/billing"
	"github.com/rentfolio/rentfolio-backend/internal/documents"
	"github.com/rentfolio/rentfolio-backend/internal/inquiries"
	"github.com/rentfolio/rentfolio-backend/internal/notifications"
	"github.com/rentfolio/rentfolio-backend/internal/properties"
	"github.com/rentfolio/rentfolio-backend/internal/subscriptions"
	"github.com/rentfolio/rentfolio-backend/internal/tenancy"
	"github.com/rentfolio/rentfolio-backend/internal/users"
	"github.com/rentfolio/rentfolio-backend/pkg/config"
	"github.com/rentfolio/rentfolio-backend/pkg/db"
	"github.com/rentfolio/rentfolio-backend/pkg/logger"
	"github.com/rentfolio/rentfolio-backend/pkg/mailer"
	"github.com/rentfolio/rentfolio-backend/pkg/migrate"
	"github.com/rentfolio/rentfolio-backend/pkg/outbox"
	"github.com/rentfolio/rentfolio-backend/pkg/portal"
	"github.com/rentfolio/rentfolio-backend/pkg/redis"
	"github.com/rentfolio/rentfolio-backend/pkg/storage/local"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	mailClient, err := mailer.NewClient(cfg.Mail)
	if err != nil {
		logg.Error(context.Background(), "failed to create mail client", err)
		os.Exit(1)
	}

	portalClient, err := portal.NewClient(cfg.Portal)
	if err != nil {
		logg.Error(context.Background(), "failed to create portal client", err)
		os.Exit(1)
	}

	store, err := local.NewStore(cfg.Uploads)
	if err != nil {
		logg.Error(context.Background(), "failed to prepare upload storage", err)
		os.Exit(1)
	}

	blacklistRepo := auth.NewBlacklistRepository(dbClient.DB())
	outboxService := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)

	authService, err := auth.NewService(auth.ServiceParams{
		UserRepo:  users.NewRepository(dbClient.DB()),
		Blacklist: blacklistRepo,
		Mailer:    mailClient,
		JWTConfig: cfg.JWT,
		Lockout:   cfg.Lockout,
		TwoFactor: cfg.TwoFactor,
		Logger:    logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create auth service", err)
		os.Exit(1)
	}

	registerService, err := auth.NewRegisterService(auth.RegisterServiceParams{
		DB:             dbClient,
		PasswordConfig: cfg.Password,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create register service", err)
		os.Exit(1)
	}

	propertyService, err := properties.NewService(properties.ServiceParams{
		Repo:   properties.NewRepository(dbClient.DB()),
		DB:     dbClient,
		Outbox: outboxService,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create property service", err)
		os.Exit(1)
	}

	inquiryService, err := inquiries.NewService(inquiries.ServiceParams{
		Repo:       inquiries.NewRepository(dbClient.DB()),
		Properties: properties.NewRepository(dbClient.DB()),
		Users:      users.NewRepository(dbClient.DB()),
		DB:         dbClient,
		Outbox:     outboxService,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create inquiry service", err)
		os.Exit(1)
	}

	tenancyService, err := tenancy.NewService(tenancy.ServiceParams{
		Repo:        tenancy.NewRepository(dbClient.DB()),
		DB:          dbClient,
		Outbox:      outboxService,
		Portal:      portalClient,
		PasswordCfg: cfg.Password,
		LeaseCfg:    cfg.Lease,
		Logger:      logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create tenancy service", err)
		os.Exit(1)
	}

	billingService, err := billing.NewService(billing.ServiceParams{
		Repo:   billing.NewRepository(dbClient.DB()),
		DB:     dbClient,
		Outbox: outboxService,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create billing service", err)
		os.Exit(1)
	}

	subscriptionService, err := subscriptions.NewService(subscriptions.ServiceParams{
		Repo:   subscriptions.NewRepository(dbClient.DB()),
		DB:     dbClient,
		Outbox: outboxService,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create subscription service", err)
		os.Exit(1)
	}

	notificationService, err := notifications.NewService(notifications.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create notification service", err)
		os.Exit(1)
	}

	documentService, err := documents.NewService(documents.NewRepository(dbClient.DB()), store)
	if err != nil {
		logg.Error(context.Background(), "failed to create document service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(cfg, logg, dbClient, redisClient, blacklistRepo, routes.Services{
			Auth:          authService,
			Register:      registerService,
			Properties:    propertyService,
			Inquiries:     inquiryService,
			Tenancy:       tenancyService,
			Billing:       billingService,
			Subscriptions: subscriptionService,
			Notifications: notificationService,
			Documents:     documentService,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
