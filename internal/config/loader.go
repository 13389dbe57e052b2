package config

import (
	"os"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
	"golang.org/x/xerrors"
)

const (
	defaultConfigPath = "configs/config.toml" // 默认配置文件路径
	legacyConfigPath  = "config.toml"         // 旧版配置文件路径
	dotEnvPath        = ".env"

	// ConfigPathEnv 指定配置文件路径
	ConfigPathEnv = "SAFE_CONFIG"
)

// Load 加载配置
// 顺序：默认值 -> TOML 配置文件 -> .env -> 环境变量
func Load() (*Config, error) {
	return LoadFrom(ResolveConfigPath())
}

// LoadFrom 从指定路径加载配置，path 为空时跳过配置文件
func LoadFrom(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, xerrors.Errorf("decode %s: %w", path, err)
		}
	}

	if fileExists(dotEnvPath) {
		if err := godotenv.Load(dotEnvPath); err != nil {
			return nil, xerrors.Errorf("load %s: %w", dotEnvPath, err)
		}
	}

	if err := env.Parse(cfg); err != nil {
		return nil, xerrors.Errorf("parse environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ResolveConfigPath 解析配置文件路径
// 按优先级查找：环境变量 SAFE_CONFIG，默认路径，旧版路径
func ResolveConfigPath() string {
	if p := os.Getenv(ConfigPathEnv); p != "" {
		return p
	}
	if fileExists(defaultConfigPath) {
		return defaultConfigPath
	}
	if fileExists(legacyConfigPath) {
		return legacyConfigPath
	}
	return ""
}

// fileExists 检查文件是否存在
// 返回 true 表示文件存在且不是目录
func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}
