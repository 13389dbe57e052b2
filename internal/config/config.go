package config

import (
	"os"
	"path/filepath"
	"time"

	"golang.org/x/xerrors"
)

// Config 应用程序配置
// 先读取 TOML 配置文件，再由环境变量覆盖
type Config struct {
	Database  Database
	Security  Security
	Service   Service
	Metrics   Metrics
	Reconcile Reconcile
	Log       Log
	Chains    []Chain
}

// Database 数据库配置
type Database struct {
	Path string `env:"SAFE_DB_PATH"` // SQLite 数据库路径
}

// Security 安全相关配置
type Security struct {
	Seed string `env:"SAFE_SEED"` // 私钥加密种子
}

// Service 多签服务参数
type Service struct {
	ChainTimeout    time.Duration `env:"SAFE_CHAIN_TIMEOUT"`     // 链上查询与广播超时
	RosterCacheTTL  time.Duration `env:"SAFE_ROSTER_CACHE_TTL"`  // 成员缓存过期时间
	RosterCacheSize int           `env:"SAFE_ROSTER_CACHE_SIZE"` // 成员缓存容量
	LockStripes     int           `env:"SAFE_LOCK_STRIPES"`      // 交易锁分片数
}

// Metrics Prometheus 指标配置
type Metrics struct {
	Listen string `env:"SAFE_METRICS_LISTEN"` // 为空时不启动
}

// Reconcile 链上结果同步配置
type Reconcile struct {
	Interval  time.Duration `env:"SAFE_RECONCILE_INTERVAL"` // 轮询间隔
	Attempts  uint          `env:"SAFE_RECONCILE_ATTEMPTS"` // 单笔交易查询次数
	Delay     time.Duration `env:"SAFE_RECONCILE_DELAY"`    // 查询重试间隔
	BatchSize int           `env:"SAFE_RECONCILE_BATCH"`    // 每轮处理数量
}

// Log 日志级别配置
type Log struct {
	Level      string            `env:"SAFE_LOG_LEVEL"`
	Subsystems map[string]string // 按子系统覆盖级别
}

// Chain 链配置
type Chain struct {
	ChainID      string
	Prefix       string // bech32 地址前缀
	Denom        string // 最小单位
	Symbol       string // 展示单位
	CoinDecimals int32
	LCD          string // REST 接口地址
	GasPrice     string
}

// Default 默认配置
func Default() *Config {
	return &Config{
		Service: Service{
			ChainTimeout:    15 * time.Second,
			RosterCacheTTL:  30 * time.Second,
			RosterCacheSize: 1024,
			LockStripes:     64,
		},
		Reconcile: Reconcile{
			Interval:  30 * time.Second,
			Attempts:  3,
			Delay:     2 * time.Second,
			BatchSize: 100,
		},
		Log: Log{Level: "info"},
		Chains: []Chain{{
			ChainID:      "aura-testnet-2",
			Prefix:       "aura",
			Denom:        "utaura",
			Symbol:       "TAURA",
			CoinDecimals: 6,
			LCD:          "https://lcd.dev.aura.network/",
			GasPrice:     "0.0002",
		}},
	}
}

// Validate 检查配置是否完整
func (c *Config) Validate() error {
	if c.Service.ChainTimeout <= 0 {
		return xerrors.New("Service.ChainTimeout must be positive")
	}
	if c.Service.LockStripes <= 0 {
		return xerrors.New("Service.LockStripes must be positive")
	}
	if c.Service.RosterCacheSize <= 0 {
		return xerrors.New("Service.RosterCacheSize must be positive")
	}
	if c.Reconcile.Attempts == 0 || c.Reconcile.BatchSize <= 0 {
		return xerrors.New("Reconcile.Attempts and Reconcile.BatchSize must be positive")
	}
	seen := make(map[string]bool, len(c.Chains))
	for i, ch := range c.Chains {
		if ch.ChainID == "" || ch.Prefix == "" || ch.Denom == "" || ch.LCD == "" {
			return xerrors.Errorf("Chains[%d]: ChainID, Prefix, Denom and LCD are required", i)
		}
		if seen[ch.ChainID] {
			return xerrors.Errorf("Chains[%d]: duplicate chain %s", i, ch.ChainID)
		}
		seen[ch.ChainID] = true
	}
	return nil
}

// DBPath 返回展开后的数据库路径，未配置时为空
func (c *Config) DBPath() string {
	return expandPath(c.Database.Path)
}

// expandPath 展开路径中的 ~ 为用户主目录
func expandPath(path string) string {
	if len(path) > 0 && path[0] == '~' {
		homeDir, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(homeDir, path[1:])
		}
	}
	return path
}
