package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"order-settlement/internal/core/auth"
	"order-settlement/internal/core/cache"
	"order-settlement/internal/core/config"
	"order-settlement/internal/core/database"
	"order-settlement/internal/core/identity"
	"order-settlement/internal/core/logger"
	"order-settlement/internal/core/proxy"
	"order-settlement/internal/core/server"
	catalogadapter "order-settlement/internal/features/catalog/adapters"
	cataloghandler "order-settlement/internal/features/catalog/handler"
	catalogports "order-settlement/internal/features/catalog/ports"
	catalogservice "order-settlement/internal/features/catalog/service"
	orderadapter "order-settlement/internal/features/orders/adapters"
	orderhandler "order-settlement/internal/features/orders/handler"
	orderservice "order-settlement/internal/features/orders/service"
	payoutadapter "order-settlement/internal/features/payouts/adapters"
	payoutdomain "order-settlement/internal/features/payouts/domain"
	payouthandler "order-settlement/internal/features/payouts/handler"
	payoutports "order-settlement/internal/features/payouts/ports"
	payoutservice "order-settlement/internal/features/payouts/service"
	refundadapter "order-settlement/internal/features/refunds/adapters"
	refundhandler "order-settlement/internal/features/refunds/handler"
	refundservice "order-settlement/internal/features/refunds/service"
	settlementadapter "order-settlement/internal/features/settlements/adapters"
	settlementhandler "order-settlement/internal/features/settlements/handler"
	settlementports "order-settlement/internal/features/settlements/ports"
	settlementservice "order-settlement/internal/features/settlements/service"
	shipmentadapter "order-settlement/internal/features/shipments/adapters"
	shipmenthandler "order-settlement/internal/features/shipments/handler"
	shipmentports "order-settlement/internal/features/shipments/ports"
	shipmentservice "order-settlement/internal/features/shipments/service"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// @title Order Settlement API
// @version 1.0
// @description Order lifecycle, refunds and multi-seller settlement for the bookstore marketplace.
// @contact.name API Support
// @license.name MIT
// @host localhost:8080
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg, err := config.Load(".")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := logger.Init(cfg.Environment, cfg.LogLevel); err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer logger.Sync()

	l := logger.Get()
	l.Info("Application starting",
		zap.String("environment", cfg.Environment),
		zap.String("log_level", cfg.LogLevel),
		zap.String("db_driver", cfg.Database.Driver),
	)

	db, err := database.Open(cfg.Database, cfg.LogLevel)
	if err != nil {
		l.Fatal("Database connection failed", zap.Error(err))
	}
	if err := migrate(db); err != nil {
		l.Fatal("Database migration failed", zap.Error(err))
	}
	tx := database.NewTxManager(db)

	// Summary cache
	var summaries settlementports.SummaryCache = settlementadapter.NopSummaryCache{}
	var redisCache cache.Cache
	if cfg.Redis.URL != "" {
		redisCache, err = cache.NewRedisAdapter(cfg.Redis.URL)
		if err != nil {
			l.Fatal("Redis configuration invalid", zap.Error(err))
		}
		defer redisCache.Close()
		summaries = settlementadapter.NewRedisSummaryCache(redisCache, cfg.Redis.SummaryTTL)
		l.Info("Summary cache enabled", zap.Duration("ttl", cfg.Redis.SummaryTTL))
	} else {
		l.Warn("REDIS_URL not set, monthly summaries are computed on every request")
	}

	// Catalog events
	var publisher catalogports.Publisher = catalogadapter.LogPublisher{}
	if len(cfg.Kafka.Brokers) > 0 {
		kp, err := catalogadapter.NewKafkaPublisher(cfg.Kafka.Brokers)
		if err != nil {
			l.Fatal("Kafka configuration invalid", zap.Error(err))
		}
		publisher = kp
		l.Info("Kafka publisher enabled", zap.Strings("brokers", cfg.Kafka.Brokers))
	} else {
		l.Warn("KAFKA_BROKERS not set, catalog events are written to the log")
	}
	defer publisher.Close()

	stockRelay := catalogservice.NewStockRelay(
		catalogadapter.NewGormOutboxRepository(db), publisher, cfg.Kafka.StockTopic, catalogservice.DefaultBatchSize)

	// Payouts
	policy, err := payoutdomain.PolicyByName(cfg.Settlement.ShippingAllocation)
	if err != nil {
		l.Fatal("Invalid shipping allocation policy", zap.Error(err))
	}
	calc := payoutdomain.NewCalculator(payoutdomain.Config{
		CommissionRate:  decimal.NewFromFloat(cfg.Settlement.CommissionRate),
		Policy:          policy,
		PlatformPayeeID: cfg.Settlement.PlatformPayeeID,
	})

	var sellers payoutports.SellerDirectory = payoutadapter.StaticSellerDirectory{}
	if cfg.Collaborators.SellerDirectoryURL != "" {
		sellers = payoutadapter.NewHTTPSellerDirectory(cfg.Collaborators.SellerDirectoryURL)
	}

	orderRepo := orderadapter.NewGormRepository(db)
	payoutRepo := payoutadapter.NewGormRepository(db)
	payoutSvc := payoutservice.NewPayoutService(payoutRepo, orderRepo, tx, sellers, summaries, calc)

	// Orders and refunds
	writer := orderservice.NewOrderWriter(orderRepo, tx, cfg.Orders.WriteRetries)
	refundSvc := refundservice.NewRefundService(refundadapter.NewGormRepository(db), orderRepo, writer)
	orderSvc := orderservice.NewOrderService(orderRepo, writer, refundSvc, payoutSvc, stockRelay)

	// Settlement reports
	settlementSvc := settlementservice.NewSettlementService(
		payoutRepo, tx, summaries, settlementadapter.NewExcelExporter(), cfg.Orders.PageSize)

	// Shipment tracking
	var providers []shipmentports.TrackingProvider
	if cfg.Collaborators.CourierAPIURL != "" {
		providers = append(providers, shipmentadapter.NewRESTCourierAdapter(
			cfg.Collaborators.CourierAPIURL, cfg.Collaborators.CourierAPICouriers))
	}
	if cfg.Collaborators.CourierBrowserURL != "" {
		providers = append(providers, shipmentadapter.NewBrowserCourierAdapter(shipmentadapter.BrowserCourierConfig{
			Courier:    cfg.Collaborators.CourierBrowserName,
			PageURL:    cfg.Collaborators.CourierBrowserURL,
			XHRPattern: cfg.Collaborators.CourierBrowserXHR,
			Proxy:      proxy.FromConfig(cfg.Collaborators.CourierProxy),
		}))
	}
	trackingSvc := shipmentservice.NewTrackingService(orderRepo, providers)

	// Handlers
	orderHdl := orderhandler.NewOrderHandler(orderSvc)
	refundHdl := refundhandler.NewRefundHandler(refundSvc)
	payoutHdl := payouthandler.NewPayoutHandler(payoutSvc)
	settlementHdl := settlementhandler.NewSettlementHandler(settlementSvc)
	trackingHdl := shipmenthandler.NewTrackingHandler(trackingSvc)
	outboxHdl := cataloghandler.NewOutboxHandler(stockRelay)

	srv := server.New(cfg)
	srv.AddHealthCheck("database", func(ctx context.Context) error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.PingContext(ctx)
	})
	if redisCache != nil {
		srv.AddHealthCheck("redis", redisCache.Ping)
	}

	admin := auth.RequireRole(identity.RoleAdmin)
	customer := auth.RequireRole(identity.RoleCustomer)
	seller := auth.RequireRole(identity.RoleSeller)

	// Register Routes
	api := srv.App.Group("/", auth.New(cfg.Auth.JWTSecret))

	api.Post("/orders", customer, orderHdl.PlaceOrder)
	api.Get("/orders/:id", orderHdl.GetOrder)
	api.Get("/orders/:id/history", orderHdl.GetHistory)
	api.Patch("/orders/:id/status", admin, orderHdl.UpdateStatus)
	api.Patch("/orders/:id/cancel", auth.RequireRole(identity.RoleCustomer, identity.RoleAdmin), orderHdl.CancelOrder)
	api.Patch("/orders/:id/payment", admin, orderHdl.UpdatePayment)
	api.Post("/orders/:id/refund", admin, refundHdl.RecordRefund)
	api.Get("/orders/:id/refunds", admin, refundHdl.ListRefunds)
	api.Post("/orders/:id/settle", admin, payoutHdl.Settle)
	api.Get("/orders/:id/tracking", trackingHdl.TrackOrder)

	api.Get("/seller/payments", seller, settlementHdl.SellerPayments)
	api.Get("/seller/payments/summary", seller, settlementHdl.Summary)
	api.Get("/seller/payments/export", seller, settlementHdl.Export)

	api.Get("/admin/payouts", admin, settlementHdl.AdminPayouts)
	api.Patch("/admin/payouts/:id/paid", admin, settlementHdl.MarkPaid)
	api.Post("/admin/outbox/flush", admin, outboxHdl.Flush)

	// Relay events left pending by a previous run.
	if err := stockRelay.Relay(context.Background()); err != nil {
		l.Warn("Initial outbox relay failed", zap.Error(err))
	}

	go func() {
		if err := srv.Run(); err != nil {
			l.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	l.Info("Shutting down")
	if err := srv.Shutdown(10 * time.Second); err != nil {
		l.Error("Graceful shutdown failed", zap.Error(err))
	}
}

func migrate(db *gorm.DB) error {
	for _, m := range []func(*gorm.DB) error{
		orderadapter.Migrate,
		refundadapter.Migrate,
		payoutadapter.Migrate,
		catalogadapter.Migrate,
	} {
		if err := m(db); err != nil {
			return err
		}
	}
	return nil
}
