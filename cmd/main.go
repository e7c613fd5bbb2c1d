package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fyerfyer/doc-context/api"
	"github.com/fyerfyer/doc-context/api/handler"
	"github.com/fyerfyer/doc-context/api/middleware"
	appconfig "github.com/fyerfyer/doc-context/config"
	"github.com/fyerfyer/doc-context/internal/cache"
	"github.com/fyerfyer/doc-context/internal/llm"
	"github.com/fyerfyer/doc-context/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

func main() {
	configFile := flag.String("config", "", "Path to config file")
	port := flag.Int("port", 0, "Server port (overrides config)")
	mode := flag.String("mode", "", "Run mode debug/release (overrides config)")
	logLevel := flag.String("log-level", "", "Log level (overrides config)")
	flag.Parse()

	cfg, err := appconfig.Load(*configFile)
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}

	// 命令行参数优先于配置文件
	if *port != 0 {
		cfg.Server.Port = *port
	}
	if *mode != "" {
		cfg.Server.Mode = *mode
	}
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}

	gin.SetMode(cfg.Server.Mode)

	logger := setupLogger(cfg.Log)
	logger.Info("Starting context serialization service...")

	cacheService, err := setupCache(cfg)
	if err != nil {
		logger.Fatalf("Failed to initialize cache: %v", err)
	}

	contextService := services.NewContextService(cacheService,
		services.WithContextCacheTTL(cfg.CacheTTL()),
		services.WithContextLogger(logger),
	)

	qaService, err := setupQA(cfg, cacheService, logger)
	if err != nil {
		logger.Fatalf("Failed to initialize LLM client: %v", err)
	}

	var extra []gin.HandlerFunc
	if cfg.Server.EnableCors {
		extra = append(extra, api.Cors())
	}

	r := api.SetupRouter(
		handler.NewContextHandler(contextService),
		handler.NewQAHandler(qaService),
		extra...,
	)

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Infof("Server is running on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	// 等待终止信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatalf("Server forced to shutdown: %v", err)
	}

	logger.Info("Server exited")
}

// setupLogger 设置日志系统
// 配置了日志文件时同时写入标准输出和按大小轮转的文件
func setupLogger(cfg appconfig.LogConfig) *logrus.Logger {
	logger := middleware.GetLogger()

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if cfg.File != "" {
		logger.SetOutput(io.MultiWriter(os.Stdout, &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   cfg.Compress,
		}))
	}

	return logger
}

// setupCache 设置缓存服务，未启用时返回nil
func setupCache(cfg *appconfig.Config) (cache.Cache, error) {
	if !cfg.Cache.Enable {
		return nil, nil
	}

	return cache.NewCache(cache.Config{
		Type:            cfg.Cache.Type,
		KeyPrefix:       cfg.Cache.KeyPrefix,
		RedisAddr:       cfg.Cache.Address,
		RedisPassword:   cfg.Cache.Password,
		RedisDB:         cfg.Cache.DB,
		DefaultTTL:      cfg.CacheTTL(),
		CleanupInterval: 10 * time.Minute,
	})
}

// setupQA 设置问答服务，未配置API密钥时返回nil
func setupQA(cfg *appconfig.Config, c cache.Cache, logger *logrus.Logger) (*services.QAService, error) {
	if cfg.LLM.APIKey == "" {
		logger.Warn("LLM API key not configured, /api/qa is disabled")
		return nil, nil
	}

	client, err := llm.NewClient(cfg.LLM.Provider,
		llm.WithAPIKey(cfg.LLM.APIKey),
		llm.WithBaseURL(cfg.LLM.Endpoint),
		llm.WithModel(cfg.LLM.Model),
		llm.WithMaxTokens(cfg.LLM.MaxTokens),
		llm.WithTemperature(cfg.LLM.Temperature),
		llm.WithTimeout(cfg.LLM.Timeout),
	)
	if err != nil {
		return nil, err
	}

	rag := llm.NewRAG(client,
		llm.WithRAGMaxTokens(cfg.LLM.MaxTokens),
		llm.WithRAGTemperature(cfg.LLM.Temperature),
		llm.WithRAGTimeout(cfg.LLM.Timeout),
	)

	return services.NewQAService(rag, c,
		services.WithCacheTTL(cfg.CacheTTL()),
		services.WithLogger(logger),
	), nil
}
