package cli

import "github.com/urfave/cli/v2"

// All 返回所有可用的 CLI 命令列表
func All() []*cli.Command {
	return []*cli.Command{
		SafeCmd,      // 多签钱包管理
		TxCmd,        // 多签交易
		KeyCmd,       // 本地密钥管理
		ReconcileCmd, // 链上结果同步
	}
}
