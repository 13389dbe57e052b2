package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	logging "github.com/ipfs/go-log/v2"
	"github.com/urfave/cli/v2"

	cli2 "pyxis-safe/cli"
	"pyxis-safe/lib/signlog"
)

// logger 全局日志记录器
var log = logging.Logger("pyxis-safe")

// main 程序入口函数
func main() {
	// 设置全局日志级别为 INFO
	signlog.SetupLogLevels()

	app := &cli.App{
		Name:    "pyxis-safe",
		Usage:   "多签钱包工具：创建钱包、收集确认、广播交易",
		Version: "1.0.0",

		Before:   cli2.Setup,
		After:    cli2.Teardown,
		Commands: cli2.All(),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.RunContext(ctx, os.Args); err != nil {
		log.Error(err)
		stop()
		os.Exit(1)
	}
}
