package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/DonTee-Why/algo-drill-sub000/internal/common/cache"
	"github.com/DonTee-Why/algo-drill-sub000/internal/common/db"
	commonmw "github.com/DonTee-Why/algo-drill-sub000/internal/common/http/middleware"
	"github.com/DonTee-Why/algo-drill-sub000/internal/common/mq"
	"github.com/DonTee-Why/algo-drill-sub000/internal/common/storage"
	"github.com/DonTee-Why/algo-drill-sub000/internal/drill/controller"
	"github.com/DonTee-Why/algo-drill-sub000/internal/drill/engine"
	"github.com/DonTee-Why/algo-drill-sub000/internal/drill/event"
	"github.com/DonTee-Why/algo-drill-sub000/internal/drill/harness"
	drillRepo "github.com/DonTee-Why/algo-drill-sub000/internal/drill/repository"
	"github.com/DonTee-Why/algo-drill-sub000/internal/drill/service"
	problemRepo "github.com/DonTee-Why/algo-drill-sub000/internal/problem/repository"
	"github.com/DonTee-Why/algo-drill-sub000/pkg/utils/logger"
)

const defaultConfigPath = "configs/drill_service.yaml"

func main() {
	configPath := flag.String("config", defaultConfigPath, "Path to config file")
	flag.Parse()

	appCfg, err := loadAppConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load app config failed: %v\n", err)
		return
	}

	if err := logger.Init(appCfg.Logger); err != nil {
		fmt.Fprintf(os.Stderr, "init logger failed: %v\n", err)
		return
	}
	defer func() {
		_ = logger.Sync()
	}()

	mysqlDB, err := db.NewMySQLWithConfig(&appCfg.Database)
	if err != nil {
		logger.Error(context.Background(), "init database failed", zap.Error(err))
		return
	}
	defer func() {
		_ = mysqlDB.Close()
	}()

	redisCache, err := cache.NewRedisCacheWithConfig(&appCfg.Redis)
	if err != nil {
		logger.Error(context.Background(), "init redis failed", zap.Error(err))
		return
	}
	defer func() {
		_ = redisCache.Close()
	}()

	var events event.Publisher
	if len(appCfg.Kafka.Brokers) > 0 {
		producer, err := mq.NewKafkaProducer(appCfg.Kafka)
		if err != nil {
			logger.Error(context.Background(), "init kafka failed", zap.Error(err))
			return
		}
		defer func() {
			_ = producer.Close()
		}()
		events = event.NewMQPublisher(producer, appCfg.Drill.StageAdvancedTopic)
	} else {
		logger.Warn(context.Background(), "kafka brokers not configured, stage events disabled")
	}

	var archive storage.ObjectStorage
	if appCfg.MinIO.Endpoint != "" {
		objStorage, err := storage.NewMinIOStorage(appCfg.MinIO)
		if err != nil {
			logger.Error(context.Background(), "init minio failed", zap.Error(err))
			return
		}
		archive = objStorage
	} else {
		logger.Warn(context.Background(), "minio not configured, source archival disabled")
	}

	sandboxClient, err := harness.NewHTTPSandboxClient(appCfg.Harness.Sandbox)
	if err != nil {
		logger.Error(context.Background(), "init sandbox client failed", zap.Error(err))
		return
	}

	problems := problemRepo.NewProblemRepositoryWithTTL(mysqlDB, redisCache, appCfg.Drill.ProblemCacheTTL, appCfg.Drill.ProblemEmptyTTL)
	sessions := drillRepo.NewSessionRepositoryWithTTL(mysqlDB, redisCache, appCfg.Drill.SessionCacheTTL, appCfg.Drill.SessionEmptyTTL)
	attempts := drillRepo.NewAttemptRepository(mysqlDB)
	testRuns := drillRepo.NewTestRunRepository(mysqlDB)

	runner, err := harness.NewHarness(sandboxClient, problems, testRuns, archive, appCfg.Harness)
	if err != nil {
		logger.Error(context.Background(), "init harness failed", zap.Error(err))
		return
	}

	machine, err := engine.NewMachine(mysqlDB, sessions, attempts, engine.NewFactory(runner), events)
	if err != nil {
		logger.Error(context.Background(), "init stage machine failed", zap.Error(err))
		return
	}

	drillService, err := service.NewDrillService(service.Config{
		Machine:      machine,
		Runner:       runner,
		SessionRepo:  sessions,
		AttemptRepo:  attempts,
		TestRunRepo:  testRuns,
		ProblemRepo:  problems,
		Cache:        redisCache,
		Languages:    appCfg.Drill.Languages,
		RunInterval:  appCfg.Drill.RunInterval,
		MaxCodeBytes: appCfg.Drill.MaxCodeBytes,
	})
	if err != nil {
		logger.Error(context.Background(), "init drill service failed", zap.Error(err))
		return
	}

	httpServer := buildHTTPServer(appCfg.Server, drillService)
	listener, err := net.Listen("tcp", appCfg.Server.Addr)
	if err != nil {
		logger.Error(context.Background(), "init http listener failed", zap.Error(err))
		return
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info(context.Background(), "drill http server started", zap.String("addr", appCfg.Server.Addr))
		errCh <- httpServer.Serve(listener)
	}()

	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error(context.Background(), "http server stopped", zap.Error(err))
		}
	case <-shutdownCtx.Done():
		logger.Info(context.Background(), "shutdown signal received")
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error(context.Background(), "http server shutdown failed", zap.Error(err))
	}
}

func buildHTTPServer(cfg ServerConfig, drillService *service.DrillService) *http.Server {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(commonmw.TraceContextMiddleware())
	router.Use(requestLogger())

	api := router.Group("/api/v1/drill")
	drillController := controller.NewDrillController(drillService)
	drillController.RegisterRoutes(api)

	return &http.Server{
		Addr:         cfg.Addr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		logger.Info(
			c.Request.Context(),
			"request completed",
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}
