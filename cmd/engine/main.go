package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"autotrader/internal/config"
	cronrunner "autotrader/internal/cron"
	"autotrader/internal/db"
	"autotrader/internal/dispatch"
	"autotrader/internal/engine"
	"autotrader/internal/event"
	"autotrader/internal/facts"
	"autotrader/internal/handler"
	"autotrader/internal/ingest"
	"autotrader/internal/logger"
	gormrepository "autotrader/internal/repository/gorm"
	"autotrader/internal/store"
)

func main() {
	cfgPath := os.Getenv("AT_CONFIG")
	if cfgPath == "" {
		cfgPath = "config/config.yaml"
	}

	envOnly := false
	if envOnlyRaw := os.Getenv("AT_ENV_ONLY"); envOnlyRaw != "" {
		envOnly = strings.EqualFold(envOnlyRaw, "true") || envOnlyRaw == "1"
	}

	cfg, err := config.Load(cfgPath, envOnly)
	if err != nil {
		panic(err)
	}

	logger, err := logger.New(cfg.Log)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	dbConn, err := db.Open(cfg.DB)
	if err != nil {
		logger.Fatal("db open failed", zap.Error(err))
	}
	defer db.Close(dbConn)

	if err := db.SetTimezone(dbConn, cfg.DB.Timezone); err != nil {
		logger.Warn("failed to set timezone", zap.Error(err))
	}
	if err := db.AutoMigrate(dbConn); err != nil {
		logger.Fatal("auto-migrate failed", zap.Error(err))
	}

	repo := gormrepository.New(dbConn.Gorm)

	profileStore := store.New(repo, logger)
	if err := profileStore.Load(context.Background()); err != nil {
		logger.Fatal("profile load failed", zap.Error(err))
	}

	balances := staticBalances(cfg.Executor.Balances)
	tracker := facts.NewTracker(time.Duration(cfg.Facts.MaxWindowMin)*time.Minute, balances)

	eng := engine.New(profileStore, tracker, nil, balances, logger, cfg.Engine.QueueSize)
	executor := dispatch.NewPaperExecutor(repo, logger, cfg.Executor.FillDelay, eng.Outcomes())
	eng.Dispatcher = executor

	if strings.EqualFold(cfg.App.Env, "dev") {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())

	healthHandler := &handler.HealthHandler{DB: dbConn}
	healthHandler.Register(router)
	profileHandler := &handler.ProfileHandler{Store: profileStore}
	profileHandler.Register(router)
	watchlistHandler := &handler.WatchlistHandler{Store: profileStore}
	watchlistHandler.Register(router)
	snapshotHandler := &handler.SnapshotHandler{Store: profileStore}
	snapshotHandler.Register(router)
	previewHandler := &handler.PreviewHandler{Engine: eng}
	previewHandler.Register(router)
	dispatchHandler := &handler.DispatchHandler{Repo: repo}
	dispatchHandler.Register(router)

	srv := &http.Server{
		Addr:    cfg.Server.HTTPAddr,
		Handler: router,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := eng.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Warn("engine stopped", zap.Error(err))
		}
	}()

	if cfg.Ingest.Enabled {
		stream := ingest.NewStream(ingest.StreamOptions{
			URL:        cfg.Ingest.URL,
			BackoffMin: cfg.Ingest.BackoffMin,
			BackoffMax: cfg.Ingest.BackoffMax,
			Logger:     logger,
		})
		go func() {
			err := stream.Run(ctx, func(ev event.Event) {
				if err := eng.Submit(ctx, ev); err != nil && !errors.Is(err, context.Canceled) {
					logger.Warn("event submit failed", zap.Error(err))
				}
			})
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Warn("ingest stream stopped", zap.Error(err))
			}
		}()
	}

	cronRunner := cronrunner.New(logger, ctx)
	if cfg.Cron.Enabled {
		_, err = cronRunner.Add(cfg.Cron.FlushStore, func(ctx context.Context) {
			if err := profileStore.Flush(ctx); err != nil {
				logger.Warn("store flush failed", zap.Error(err))
			}
		})
		if err != nil {
			logger.Warn("cron register store flush failed", zap.Error(err))
		}
		_, err = cronRunner.Add(cfg.Cron.PruneLog, func(ctx context.Context) {
			n, err := repo.PruneDispatches(ctx, db.NowUTC().Add(-cfg.Cron.LogRetention))
			if err != nil {
				logger.Warn("dispatch log prune failed", zap.Error(err))
				return
			}
			if n > 0 {
				logger.Info("pruned dispatch log", zap.Int64("count", n))
			}
		})
		if err != nil {
			logger.Warn("cron register dispatch prune failed", zap.Error(err))
		}
		cronRunner.Start()
		defer cronRunner.Stop()
	}

	errCh := make(chan error, 2)

	go func() {
		logger.Info("http server starting", zap.String("addr", cfg.Server.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown requested")
	case err := <-errCh:
		logger.Error("server error", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)

	// Final flush so in-memory edits survive restarts.
	flushCtx, cancelFlush := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelFlush()
	if err := profileStore.Flush(flushCtx); err != nil {
		logger.Warn("final store flush failed", zap.Error(err))
	}
}

type balanceMap map[string]decimal.Decimal

func (m balanceMap) Balance(wallet string) (decimal.Decimal, bool) {
	v, ok := m[strings.ToLower(strings.TrimSpace(wallet))]
	return v, ok
}

func staticBalances(raw map[string]float64) facts.BalanceSource {
	m := balanceMap{}
	for wallet, bal := range raw {
		m[strings.ToLower(strings.TrimSpace(wallet))] = decimal.NewFromFloat(bal)
	}
	return m
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type,Authorization")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}
