package cli

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"pyxis-safe/internal/models"
	"pyxis-safe/internal/safe"
	"pyxis-safe/internal/ui/tablewriter"
)

// SafeCmd 多签钱包管理命令
var SafeCmd = &cli.Command{
	Name:  "safe",
	Usage: "多签钱包管理",
	Subcommands: []*cli.Command{
		safeCreate,
		safeConfirm,
		safeDelete,
		safeShow,
		safeList,
	},
}

// safeCreate 创建多签钱包，创建者的公钥来自本地密钥
var safeCreate = &cli.Command{
	Name:  "create",
	Usage: "创建多签钱包",
	Flags: []cli.Flag{
		chainFlag,
		keyFlag,
		&cli.StringSliceFlag{
			Name:  "other-owner",
			Usage: "其他所有者地址，可重复指定",
		},
		&cli.IntFlag{
			Name:  "threshold",
			Usage: "执行交易所需的确认数",
			Value: 1,
		},
	},
	Action: action(func(cctx *cli.Context, e *Env) error {
		info, err := chainInfo(cctx, e)
		if err != nil {
			return err
		}
		k, err := signingKey(cctx, e)
		if err != nil {
			return err
		}
		creator, err := k.Address(info.Prefix)
		if err != nil {
			return err
		}

		s, err := e.Safe.CreateWallet(cctx.Context, safe.CreateWalletRequest{
			ChainID:        info.ChainID,
			CreatorAddress: creator,
			CreatorPubkey:  k.PubKeyBase64(),
			OtherOwners:    cctx.StringSlice("other-owner"),
			Threshold:      cctx.Int("threshold"),
		})
		if err != nil {
			return err
		}
		printSafe(s)
		return nil
	}),
}

// safeConfirm 所有者提交公钥加入钱包，最后一位加入后生成多签地址
var safeConfirm = &cli.Command{
	Name:      "confirm",
	Usage:     "以所有者身份加入待创建的多签钱包",
	ArgsUsage: "[钱包ID]",
	Flags:     []cli.Flag{keyFlag},
	Action: action(func(cctx *cli.Context, e *Env) error {
		id, err := idArg(cctx, 0, "钱包ID")
		if err != nil {
			return err
		}
		s, err := e.Safe.GetWallet(cctx.Context, id)
		if err != nil {
			return err
		}
		info, err := e.Chains.Info(s.ChainID)
		if err != nil {
			return err
		}
		k, err := signingKey(cctx, e)
		if err != nil {
			return err
		}
		owner, err := k.Address(info.Prefix)
		if err != nil {
			return err
		}

		s, err = e.Safe.ConfirmWallet(cctx.Context, safe.ConfirmWalletRequest{
			SafeID:       id,
			OwnerAddress: owner,
			OwnerPubkey:  k.PubKeyBase64(),
		})
		if err != nil {
			return err
		}
		printSafe(s)
		return nil
	}),
}

// safeDelete 创建者删除待创建的钱包
var safeDelete = &cli.Command{
	Name:      "del",
	Usage:     "删除待创建的多签钱包（仅创建者）",
	ArgsUsage: "[钱包ID]",
	Flags:     []cli.Flag{keyFlag, ownerFlag},
	Action: action(func(cctx *cli.Context, e *Env) error {
		id, err := idArg(cctx, 0, "钱包ID")
		if err != nil {
			return err
		}
		s, err := e.Safe.GetWallet(cctx.Context, id)
		if err != nil {
			return err
		}
		info, err := e.Chains.Info(s.ChainID)
		if err != nil {
			return err
		}
		requester, err := actor(cctx, e, info.Prefix)
		if err != nil {
			return err
		}
		if _, err := e.Safe.DeleteWallet(cctx.Context, safe.DeleteWalletRequest{SafeID: id, RequesterAddress: requester}); err != nil {
			return err
		}
		fmt.Printf("已删除钱包 %d\n", id)
		return nil
	}),
}

// safeShow 显示钱包详情、所有者及余额
var safeShow = &cli.Command{
	Name:      "show",
	Usage:     "查看多签钱包",
	ArgsUsage: "[钱包ID]",
	Action: action(func(cctx *cli.Context, e *Env) error {
		id, err := idArg(cctx, 0, "钱包ID")
		if err != nil {
			return err
		}
		s, err := e.Safe.GetWallet(cctx.Context, id)
		if err != nil {
			return err
		}
		printSafe(s)

		if s.Status == models.SafeStatusCreated {
			info, err := e.Chains.Info(s.ChainID)
			if err != nil {
				return err
			}
			bal, err := e.Chains.GetBalance(cctx.Context, s.ChainID, s.Address(), info.Denom)
			if err != nil {
				fmt.Printf("Balance:   %s\n", errColor.Sprint(err))
			} else {
				fmt.Printf("Balance:   %s\n", formatAmount(bal.String(), info.Denom, info))
			}
		}

		tw := tablewriter.New(tablewriter.Col("Owner"), tablewriter.Col("Joined"), tablewriter.NewLineCol("PubKey"))
		for _, o := range s.Owners {
			row := map[string]interface{}{"Owner": o.OwnerAddress, "Joined": o.OwnerPubkey != nil}
			if o.OwnerPubkey != nil {
				row["PubKey"] = *o.OwnerPubkey
			}
			tw.Write(row)
		}
		fmt.Println()
		return tw.Flush(os.Stdout)
	}),
}

// safeList 列出所有者所在的钱包
var safeList = &cli.Command{
	Name:  "list",
	Usage: "列出所有者参与的多签钱包",
	Flags: []cli.Flag{chainFlag, keyFlag, ownerFlag},
	Action: action(func(cctx *cli.Context, e *Env) error {
		info, err := chainInfo(cctx, e)
		if err != nil {
			return err
		}
		owner, err := actor(cctx, e, info.Prefix)
		if err != nil {
			return err
		}
		safes, err := e.Safe.ListWallets(cctx.Context, owner, info.ChainID)
		if err != nil {
			return err
		}

		tw := tablewriter.New(
			tablewriter.Col("ID", tablewriter.RightAlign()),
			tablewriter.Col("Address"),
			tablewriter.Col("Threshold", tablewriter.RightAlign()),
			tablewriter.Col("Owners", tablewriter.RightAlign()),
			tablewriter.Col("Status"),
			tablewriter.Col("Creator"))
		for _, s := range safes {
			tw.Write(map[string]interface{}{
				"ID":        s.ID,
				"Address":   s.Address(),
				"Threshold": s.Threshold,
				"Owners":    len(s.Owners),
				"Status":    colorStatus(string(s.Status)),
				"Creator":   s.CreatorAddress,
			})
		}
		return tw.Flush(os.Stdout)
	}),
}

func printSafe(s *models.Safe) {
	fmt.Printf("ID:        %d\n", s.ID)
	fmt.Printf("Chain:     %s\n", s.ChainID)
	fmt.Printf("Status:    %s\n", colorStatus(string(s.Status)))
	fmt.Printf("Threshold: %d of %d\n", s.Threshold, len(s.Owners))
	if addr := s.Address(); addr != "" {
		fmt.Printf("Address:   %s\n", addr)
	}
	fmt.Printf("Creator:   %s\n", s.CreatorAddress)
}
