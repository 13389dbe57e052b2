package signlog

import (
	"os"

	logging "github.com/ipfs/go-log/v2"
	"golang.org/x/xerrors"

	appcfg "pyxis-safe/internal/config"
)

// SetupLogLevels 初始化日志等级，未设置 GOLOG_LOG_LEVEL 时默认为 INFO
func SetupLogLevels() {
	if _, set := os.LookupEnv("GOLOG_LOG_LEVEL"); !set {
		_ = logging.SetLogLevel("*", "INFO")
	}
}

// ApplyLevels 按配置设置全局及各子系统的日志等级
// GOLOG_LOG_LEVEL 优先于配置文件中的全局等级
func ApplyLevels(cfg appcfg.Log) error {
	if _, set := os.LookupEnv("GOLOG_LOG_LEVEL"); !set && cfg.Level != "" {
		if err := logging.SetLogLevel("*", cfg.Level); err != nil {
			return xerrors.Errorf("log level %q: %w", cfg.Level, err)
		}
	}
	for name, level := range cfg.Subsystems {
		if err := logging.SetLogLevel(name, level); err != nil {
			return xerrors.Errorf("log level %q for %s: %w", level, name, err)
		}
	}
	return nil
}
