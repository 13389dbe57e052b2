package cli

import (
	"bufio"
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	appcfg "pyxis-safe/internal/config"
	"pyxis-safe/internal/signer"
	"pyxis-safe/internal/ui/tablewriter"
)

// KeyCmd 本地密钥管理命令
// 提供密钥生成、导入、列表、查看、删除等功能
var KeyCmd = &cli.Command{
	Name:  "key",
	Usage: "本地签名密钥管理",
	Subcommands: []*cli.Command{
		keyNew,
		keyImport,
		keyList,
		keyShow,
		keyDelete,
	},
}

var chainFlag = &cli.StringFlag{
	Name:  "chain",
	Usage: "链 ID（默认为配置中的第一条链）",
}

// chainInfo 返回 --chain 指定的链配置
func chainInfo(cctx *cli.Context, e *Env) (appcfg.Chain, error) {
	id := cctx.String("chain")
	if id == "" {
		if len(e.Config.Chains) == 0 {
			return appcfg.Chain{}, fmt.Errorf("未配置任何链")
		}
		return e.Config.Chains[0], nil
	}
	return e.Chains.Info(id)
}

func saveKey(cctx *cli.Context, e *Env, name string, k *signer.Key) error {
	info, err := chainInfo(cctx, e)
	if err != nil {
		return err
	}
	addr, err := k.Address(info.Prefix)
	if err != nil {
		return err
	}
	keys, err := e.Keys()
	if err != nil {
		return err
	}
	if err := keys.Save(cctx.Context, name, addr, k.PubKeyBase64(), k.Bytes()); err != nil {
		return err
	}
	fmt.Printf("%s\t%s\t%s\n", name, addr, k.PubKeyBase64())
	return nil
}

// keyNew 生成新密钥
var keyNew = &cli.Command{
	Name:      "new",
	Usage:     "生成新的 secp256k1 密钥",
	ArgsUsage: "[名称]",
	Flags:     []cli.Flag{chainFlag},
	Action: action(func(cctx *cli.Context, e *Env) error {
		name := cctx.Args().First()
		if name == "" {
			return fmt.Errorf("请指定密钥名称")
		}
		k, err := signer.NewKey()
		if err != nil {
			return err
		}
		return saveKey(cctx, e, name, k)
	}),
}

// keyImport 导入密钥
// 支持助记词和十六进制私钥两种格式
var keyImport = &cli.Command{
	Name:      "import",
	Usage:     "导入密钥",
	ArgsUsage: "[名称] [<路径> (可选，如果省略则从标准输入读取)]",
	Flags: []cli.Flag{
		chainFlag,
		&cli.StringFlag{
			Name:  "format",
			Usage: "指定密钥输入格式：mnemonic 或 hex",
			Value: "mnemonic",
		},
		&cli.UintFlag{
			Name:  "account",
			Usage: "助记词派生路径中的账户序号",
		},
		&cli.UintFlag{
			Name:  "index",
			Usage: "助记词派生路径中的地址序号",
		},
	},
	Action: action(func(cctx *cli.Context, e *Env) error {
		name := cctx.Args().First()
		if name == "" {
			return fmt.Errorf("请指定密钥名称")
		}

		var input []byte
		// 从标准输入或文件读取
		if cctx.Args().Len() < 2 || cctx.Args().Get(1) == "-" {
			line, err := bufio.NewReader(os.Stdin).ReadString('\n')
			if err != nil && line == "" {
				return err
			}
			input = []byte(line)
		} else {
			data, err := os.ReadFile(cctx.Args().Get(1))
			if err != nil {
				return err
			}
			input = data
		}
		text := strings.TrimSpace(string(input))

		var (
			k   *signer.Key
			err error
		)
		switch cctx.String("format") {
		case "mnemonic":
			k, err = signer.FromMnemonic(text, uint32(cctx.Uint("account")), uint32(cctx.Uint("index")))
		case "hex":
			raw, derr := hex.DecodeString(text)
			if derr != nil {
				return fmt.Errorf("无效的十六进制私钥: %w", derr)
			}
			k, err = signer.FromBytes(raw)
		default:
			return fmt.Errorf("unrecognized format: %s", cctx.String("format"))
		}
		if err != nil {
			return err
		}
		return saveKey(cctx, e, name, k)
	}),
}

// keyList 列出本地密钥
var keyList = &cli.Command{
	Name:  "list",
	Usage: "列出本地密钥",
	Action: action(func(cctx *cli.Context, e *Env) error {
		keys, err := e.Keys()
		if err != nil {
			return err
		}
		items, err := keys.List(cctx.Context)
		if err != nil {
			return err
		}
		tw := tablewriter.New(
			tablewriter.Col("Name"),
			tablewriter.Col("Address"),
			tablewriter.Col("PubKey"),
			tablewriter.Col("Created"))
		for _, it := range items {
			tw.Write(map[string]interface{}{
				"Name":    it.Name,
				"Address": it.Address,
				"PubKey":  it.PubKey,
				"Created": it.CreatedAt.Format("2006-01-02 15:04"),
			})
		}
		return tw.Flush(os.Stdout)
	}),
}

// keyShow 显示密钥在指定链上的地址
var keyShow = &cli.Command{
	Name:      "show",
	Usage:     "显示密钥地址和公钥",
	ArgsUsage: "[名称或地址]",
	Flags:     []cli.Flag{chainFlag},
	Action: action(func(cctx *cli.Context, e *Env) error {
		if !cctx.Args().Present() {
			return fmt.Errorf("请指定密钥")
		}
		info, err := chainInfo(cctx, e)
		if err != nil {
			return err
		}
		keys, err := e.Keys()
		if err != nil {
			return err
		}
		item, raw, err := keys.Get(cctx.Context, cctx.Args().First())
		if err != nil {
			return err
		}
		k, err := signer.FromBytes(raw)
		if err != nil {
			return err
		}
		addr, err := k.Address(info.Prefix)
		if err != nil {
			return err
		}
		fmt.Printf("Name:    %s\n", item.Name)
		fmt.Printf("Address: %s\n", addr)
		fmt.Printf("PubKey:  %s\n", k.PubKeyBase64())
		return nil
	}),
}

// keyDelete 删除密钥
var keyDelete = &cli.Command{
	Name:      "del",
	Usage:     "删除本地密钥",
	ArgsUsage: "[名称]",
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:  "force",
			Usage: "强制删除，不需要确认",
		},
	},
	Action: action(func(cctx *cli.Context, e *Env) error {
		name := cctx.Args().First()
		if name == "" {
			return fmt.Errorf("请指定要删除的密钥名称")
		}
		keys, err := e.Keys()
		if err != nil {
			return err
		}

		// 如果没有 --force 标志，请求确认
		if !cctx.Bool("force") {
			fmt.Printf("确定要删除密钥 %s 吗？此操作不可恢复！\n", name)
			fmt.Print("输入 'yes' 确认: ")
			confirm, _ := bufio.NewReader(os.Stdin).ReadString('\n')
			if strings.TrimSpace(confirm) != "yes" {
				fmt.Println("已取消删除操作")
				return nil
			}
		}

		if err := keys.Delete(cctx.Context, name); err != nil {
			return fmt.Errorf("删除密钥失败: %w", err)
		}
		fmt.Printf("已成功删除密钥 %s\n", name)
		return nil
	}),
}
