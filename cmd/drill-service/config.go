package main

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/DonTee-Why/algo-drill-sub000/internal/common/cache"
	"github.com/DonTee-Why/algo-drill-sub000/internal/common/db"
	"github.com/DonTee-Why/algo-drill-sub000/internal/common/mq"
	"github.com/DonTee-Why/algo-drill-sub000/internal/common/storage"
	"github.com/DonTee-Why/algo-drill-sub000/internal/drill/harness"
	"github.com/DonTee-Why/algo-drill-sub000/pkg/utils/logger"
)

const (
	defaultHTTPAddr        = "0.0.0.0:8090"
	defaultReadTimeout     = 5 * time.Second
	defaultWriteTimeout    = 30 * time.Second
	defaultIdleTimeout     = 60 * time.Second
	defaultShutdownTimeout = 10 * time.Second
)

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr         string        `yaml:"addr"`
	ReadTimeout  time.Duration `yaml:"readTimeout"`
	WriteTimeout time.Duration `yaml:"writeTimeout"`
	IdleTimeout  time.Duration `yaml:"idleTimeout"`
}

// DrillConfig holds session and run settings.
type DrillConfig struct {
	Languages          []string      `yaml:"languages"`
	RunInterval        time.Duration `yaml:"runInterval"`
	MaxCodeBytes       int           `yaml:"maxCodeBytes"`
	StageAdvancedTopic string        `yaml:"stageAdvancedTopic"`
	SessionCacheTTL    time.Duration `yaml:"sessionCacheTTL"`
	SessionEmptyTTL    time.Duration `yaml:"sessionEmptyTTL"`
	ProblemCacheTTL    time.Duration `yaml:"problemCacheTTL"`
	ProblemEmptyTTL    time.Duration `yaml:"problemEmptyTTL"`
}

// AppConfig holds drill-service configuration.
type AppConfig struct {
	Server   ServerConfig        `yaml:"server"`
	Logger   logger.Config       `yaml:"logger"`
	Database db.MySQLConfig      `yaml:"database"`
	Redis    cache.RedisConfig   `yaml:"redis"`
	Kafka    mq.KafkaConfig      `yaml:"kafka"`
	MinIO    storage.MinIOConfig `yaml:"minio"`
	Harness  harness.Config      `yaml:"harness"`
	Drill    DrillConfig         `yaml:"drill"`
}

func loadYAML(path string, out interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file failed: %w", err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parse config file failed: %w", err)
	}
	return nil
}

func loadAppConfig(path string) (*AppConfig, error) {
	var cfg AppConfig
	if err := loadYAML(path, &cfg); err != nil {
		return nil, err
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = defaultHTTPAddr
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = defaultReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = defaultWriteTimeout
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = defaultIdleTimeout
	}

	if len(cfg.Drill.Languages) == 0 {
		cfg.Drill.Languages = []string{"python", "javascript", "go", "java"}
	}
	if cfg.Drill.RunInterval == 0 {
		cfg.Drill.RunInterval = 3 * time.Second
	}
	if cfg.Drill.MaxCodeBytes == 0 {
		cfg.Drill.MaxCodeBytes = 64 * 1024
	}
	if cfg.Drill.SessionCacheTTL == 0 {
		cfg.Drill.SessionCacheTTL = 10 * time.Minute
	}
	if cfg.Drill.SessionEmptyTTL == 0 {
		cfg.Drill.SessionEmptyTTL = time.Minute
	}
	if cfg.Drill.ProblemCacheTTL == 0 {
		cfg.Drill.ProblemCacheTTL = 30 * time.Minute
	}
	if cfg.Drill.ProblemEmptyTTL == 0 {
		cfg.Drill.ProblemEmptyTTL = 5 * time.Minute
	}

	cfg.Harness.Sandbox.SetDefaults()
	if cfg.Harness.ArchiveBucket == "" {
		cfg.Harness.ArchiveBucket = cfg.MinIO.Bucket
	}
	return &cfg, nil
}
