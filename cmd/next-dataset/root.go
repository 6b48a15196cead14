package main

import (
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ashwinyue/next-dataset/internal/config"
	"github.com/ashwinyue/next-dataset/internal/database"
	"github.com/ashwinyue/next-dataset/internal/logger"
	"github.com/ashwinyue/next-dataset/internal/repository"
	"github.com/ashwinyue/next-dataset/internal/service"
)

func newRootCmd() *cobra.Command {
	var cfgFile string

	rootCmd := &cobra.Command{
		Use:   "next-dataset",
		Short: "Multimodal JSONL dataset catalog",
		Long: `next-dataset imports conversation-style JSONL datasets, classifies every
record by modality (text, image, multi-image, video), keeps per-dataset
metadata and serves paginated previews, tags and dataset groups over HTTP.`,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $CONFIG_PATH)")

	rootCmd.AddCommand(
		newServeCmd(&cfgFile),
		newImportCmd(&cfgFile),
		newBatchImportCmd(&cfgFile),
	)
	return rootCmd
}

// app 命令运行所需的全部依赖
type app struct {
	cfg      *config.Config
	logger   *zap.Logger
	db       *database.DB
	redis    *redis.Client
	services *service.Services
}

// newApp 按配置依次初始化日志、数据库、Redis 和服务层
func newApp(cfgFile string) (*app, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("failed to init logger: %w", err)
	}

	db, err := database.New(cfg, log.Named("database"))
	if err != nil {
		return nil, fmt.Errorf("failed to init database: %w", err)
	}

	a := &app{cfg: cfg, logger: log, db: db}
	if cfg.Redis.Enabled {
		a.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.GetAddr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}

	repos := repository.NewRepositories(db.DB)
	a.services, err = service.NewServices(repos, cfg, a.redis, log)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to init services: %w", err)
	}
	return a, nil
}

// Close 释放连接
func (a *app) Close() {
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if err := a.db.Close(); err != nil {
		a.logger.Warn("failed to close database", zap.Error(err))
	}
	_ = a.logger.Sync()
}
