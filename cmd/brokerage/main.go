package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	accountapp "github.com/wyfcoding/paperbroker/internal/account/application"
	accountdomain "github.com/wyfcoding/paperbroker/internal/account/domain"
	accountmysql "github.com/wyfcoding/paperbroker/internal/account/infrastructure/persistence/mysql"
	accountredis "github.com/wyfcoding/paperbroker/internal/account/infrastructure/persistence/redis"
	accounthttp "github.com/wyfcoding/paperbroker/internal/account/interfaces/http"
	ledgerdomain "github.com/wyfcoding/paperbroker/internal/ledger/domain"
	ledgermysql "github.com/wyfcoding/paperbroker/internal/ledger/infrastructure/persistence/mysql"
	marketapp "github.com/wyfcoding/paperbroker/internal/marketdata/application"
	marketdomain "github.com/wyfcoding/paperbroker/internal/marketdata/domain"
	"github.com/wyfcoding/paperbroker/internal/marketdata/infrastructure/iex"
	"github.com/wyfcoding/paperbroker/internal/marketdata/infrastructure/yahoo"
	markethttp "github.com/wyfcoding/paperbroker/internal/marketdata/interfaces/http"
	portfolioapp "github.com/wyfcoding/paperbroker/internal/portfolio/application"
	portfoliohttp "github.com/wyfcoding/paperbroker/internal/portfolio/interfaces/http"
	tradingapp "github.com/wyfcoding/paperbroker/internal/trading/application"
	"github.com/wyfcoding/paperbroker/internal/trading/infrastructure/messaging"
	tradinghttp "github.com/wyfcoding/paperbroker/internal/trading/interfaces/http"
	"github.com/wyfcoding/paperbroker/pkg/cache"
	"github.com/wyfcoding/paperbroker/pkg/config"
	"github.com/wyfcoding/paperbroker/pkg/db"
	"github.com/wyfcoding/paperbroker/pkg/logger"
	"github.com/wyfcoding/paperbroker/pkg/metrics"
	"github.com/wyfcoding/paperbroker/pkg/middleware"
	"github.com/wyfcoding/paperbroker/pkg/mq"
)

var configPath = flag.String("config", "configs/config.toml", "config file path")

func main() {
	flag.Parse()

	// 1. 初始化配置
	cfg, err := config.Load(*configPath)
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	// 2. 初始化日志
	if err := logger.Init(cfg.Logger); err != nil {
		panic(fmt.Sprintf("failed to init logger: %v", err))
	}

	// 3. 初始化指标
	metricsImpl := metrics.New(cfg.ServiceName)

	// 4. 初始化基础设施
	database, err := db.Init(db.Config{
		DSN:                cfg.Database.DSN,
		MaxOpenConns:       cfg.Database.MaxOpenConns,
		MaxIdleConns:       cfg.Database.MaxIdleConns,
		ConnMaxLifetime:    cfg.Database.ConnMaxLifetime,
		LogEnabled:         cfg.Database.LogEnabled,
		SlowQueryThreshold: cfg.Database.SlowQueryThreshold,
	})
	if err != nil {
		slog.Error("failed to connect database", "error", err)
		os.Exit(1)
	}
	defer database.Close()

	// Auto Migrate (仅用于开发方便)
	if cfg.Environment == "dev" {
		if err := database.AutoMigrate(
			&accountdomain.User{},
			&ledgerdomain.Transaction{},
			&messaging.OutboxMessage{},
		); err != nil {
			slog.Error("failed to migrate database", "error", err)
		}
	}

	redisCache, err := cache.New(cache.Config{
		Host:         cfg.Redis.Host,
		Port:         cfg.Redis.Port,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		MaxPoolSize:  cfg.Redis.MaxPoolSize,
		ReadTimeout:  cfg.Redis.ReadTimeout,
		WriteTimeout: cfg.Redis.WriteTimeout,
	})
	if err != nil {
		slog.Error("failed to init redis", "error", err)
		os.Exit(1)
	}
	defer redisCache.Close()

	// 5. 初始化仓储与行情源
	userRepo := accountmysql.NewUserRepository(database.DB)
	sessionRepo := accountredis.NewSessionRepository(redisCache)
	ledgerRepo := ledgermysql.NewLedgerRepository(database.DB)

	var oracle marketdomain.Oracle
	switch cfg.Oracle.Provider {
	case "iex":
		oracle = iex.NewClient(iex.Config{
			BaseURL: cfg.Oracle.BaseURL,
			Token:   cfg.Oracle.Token,
			Timeout: time.Duration(cfg.Oracle.Timeout) * time.Second,
		})
	default:
		oracle = yahoo.NewClient(time.Duration(cfg.Oracle.Timeout) * time.Second)
	}
	quoteSvc := marketapp.NewQuoteService(oracle, metricsImpl)

	// 6. 初始化应用服务
	outboxPub := messaging.NewOutboxEventPublisher(database.DB)
	accountSvc := accountapp.NewAccountService(userRepo, sessionRepo, time.Duration(cfg.Session.TTL)*time.Second)
	tradeSvc := tradingapp.NewTradeService(userRepo, ledgerRepo, quoteSvc, database, outboxPub, metricsImpl)
	portfolioSvc := portfolioapp.NewPortfolioService(userRepo, ledgerRepo, quoteSvc, database)

	// 7. 初始化接口层
	gin.SetMode(gin.ReleaseMode)
	if cfg.Environment == "dev" {
		gin.SetMode(gin.DebugMode)
	}
	r := gin.New()
	r.Use(middleware.Logging(), middleware.Recovery(), middleware.Metrics(metricsImpl), middleware.CORS())

	if cfg.Metrics.Enabled {
		r.GET(cfg.Metrics.Path, metricsImpl.Handler())
	}
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	auth := accounthttp.AuthRequired(accountSvc)
	accounthttp.NewAccountHandler(accountSvc).RegisterRoutes(r)
	markethttp.NewQuoteHandler(quoteSvc).RegisterRoutes(r, auth)
	tradinghttp.NewTradeHandler(tradeSvc).RegisterRoutes(r, auth)
	portfoliohttp.NewPortfolioHandler(portfolioSvc).RegisterRoutes(r, auth)

	// 8. 启动服务
	g, ctx := errgroup.WithContext(context.Background())

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeout) * time.Second,
	}

	g.Go(func() error {
		slog.Info("HTTP server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	// Outbox 中继：仅在配置了 Kafka broker 时启动
	if len(cfg.Kafka.Brokers) > 0 {
		producer := mq.NewProducer(mq.KafkaConfig{
			Brokers: cfg.Kafka.Brokers,
			Topic:   cfg.Kafka.Topic,
		})
		defer producer.Close()

		relay := messaging.NewRelay(database.DB, producer, time.Duration(cfg.Kafka.RelayInterval)*time.Second)
		g.Go(func() error {
			relay.Run(ctx)
			return nil
		})
	}

	// 9. 优雅关闭
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		select {
		case <-quit:
			slog.Info("shutting down server...")
		case <-ctx.Done():
			slog.Info("context cancelled, shutting down...")
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		slog.Error("server exited with error", "error", err)
	}
}
