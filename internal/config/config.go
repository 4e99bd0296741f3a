// Package config 负责加载和管理 stagectl 的配置。
// 配置来源优先级（从高到低）：
// 1. CLI flags（--base-url 等，由 cmd 层应用）
// 2. 环境变量（STAGE_BASE_URL, STAGE_DB_PATH, STAGE_LOG_LEVEL）
// 3. --config flag 指定的配置文件路径
// 4. ~/.config/stagectl/config.yaml
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultBaseURL 未配置时指向本地后端。
const DefaultBaseURL = "http://localhost:3000"

// Config 是 stagectl 的完整配置结构
type Config struct {
	// BaseURL 后端 API 地址
	BaseURL string `yaml:"base_url"`

	// DBPath 本地凭据数据库路径（空则使用默认 ~/.local/share/stagectl/stagectl.db）
	DBPath string `yaml:"db_path"`

	// LogLevel zap 日志级别（"debug", "info", "warn", "error"；默认 "warn"）
	LogLevel string `yaml:"log_level"`
}

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		BaseURL:  DefaultBaseURL,
		LogLevel: "warn",
	}
}

// Load 加载配置文件，合并 .env 与环境变量覆盖
func Load(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	// 确定配置文件路径
	if configPath == "" {
		home, err := os.UserHomeDir()
		if err == nil {
			configPath = filepath.Join(home, ".config", "stagectl", "config.yaml")
		}
	}

	// 读取配置文件（不存在时使用默认配置）
	if data, err := os.ReadFile(configPath); err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("invalid config file %s: %w", configPath, err)
		}
	}

	// .env 文件（可选），然后环境变量覆盖
	_ = godotenv.Load()
	applyEnvOverrides(cfg)

	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	return cfg, nil
}

// applyEnvOverrides 将环境变量覆盖到配置中
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("STAGE_BASE_URL"); v != "" {
		cfg.BaseURL = v
	}
	if v := os.Getenv("STAGE_DB_PATH"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv("STAGE_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
}
