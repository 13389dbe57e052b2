package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"pyxis-safe/internal/models"
	"pyxis-safe/internal/safe"
	"pyxis-safe/internal/signer"
	"pyxis-safe/internal/ui/tablewriter"
)

// TxCmd 多签交易命令
var TxCmd = &cli.Command{
	Name:  "tx",
	Usage: "多签交易：发起、确认、拒绝、广播、取消、查询",
	Subcommands: []*cli.Command{
		txPropose,
		txConfirm,
		txReject,
		txSend,
		txCancel,
		txShow,
		txList,
	},
}

// txPropose 发起转账，发起者用本地密钥签名
var txPropose = &cli.Command{
	Name:      "propose",
	Usage:     "从多签钱包发起转账",
	ArgsUsage: "[钱包ID] [目标地址] [金额]",
	Flags: []cli.Flag{
		keyFlag,
		&cli.Uint64Flag{
			Name:  "gas-limit",
			Usage: "指定 Gas 限制",
			Value: 200000,
		},
		&cli.StringFlag{
			Name:  "fee",
			Usage: "手续费（最小单位，默认按配置的 GasPrice 计算）",
		},
		&cli.StringFlag{
			Name:  "memo",
			Usage: "交易备注",
		},
	},
	Action: action(func(cctx *cli.Context, e *Env) error {
		safeID, err := idArg(cctx, 0, "钱包ID")
		if err != nil {
			return err
		}
		to := cctx.Args().Get(1)
		if to == "" {
			return fmt.Errorf("请指定目标地址")
		}
		s, err := e.Safe.GetWallet(cctx.Context, safeID)
		if err != nil {
			return err
		}
		info, err := e.Chains.Info(s.ChainID)
		if err != nil {
			return err
		}
		amount, denom, err := parseAmount(cctx.Args().Get(2), info)
		if err != nil {
			return err
		}
		gas := cctx.Uint64("gas-limit")
		fee := cctx.String("fee")
		if fee == "" {
			if fee, err = signer.SuggestFee(info.GasPrice, gas); err != nil {
				return err
			}
		}

		k, err := signingKey(cctx, e)
		if err != nil {
			return err
		}
		creator, err := k.Address(info.Prefix)
		if err != nil {
			return err
		}
		acct, err := e.Chains.GetAccount(cctx.Context, s.ChainID, s.Address())
		if err != nil {
			return err
		}

		doc := signer.SendDoc{
			ChainID:       s.ChainID,
			AccountNumber: acct.AccountNumber,
			Sequence:      acct.Sequence,
			From:          s.Address(),
			To:            to,
			Amount:        amount,
			Denom:         denom,
			Fee:           fee,
			FeeDenom:      info.Denom,
			GasLimit:      gas,
			Memo:          cctx.String("memo"),
		}
		body, err := doc.BodyBytes()
		if err != nil {
			return err
		}
		sig, err := k.Sign(doc)
		if err != nil {
			return err
		}

		t, err := e.Safe.CreateTransaction(cctx.Context, safe.CreateTransactionRequest{
			SafeID:         safeID,
			CreatorAddress: creator,
			ToAddress:      to,
			Amount:         amount,
			Denom:          denom,
			Fee:            fee,
			GasLimit:       gas,
			Memo:           doc.Memo,
			Signature:      sig,
			BodyBytes:      body,
		})
		if err != nil {
			return err
		}
		fmt.Printf("交易 %d 已创建，状态 %s\n", t.ID, colorStatus(string(t.Status)))
		return nil
	}),
}

// txConfirm 对交易签名确认
var txConfirm = &cli.Command{
	Name:      "confirm",
	Usage:     "签名确认交易",
	ArgsUsage: "[交易ID]",
	Flags:     []cli.Flag{keyFlag},
	Action: action(func(cctx *cli.Context, e *Env) error {
		id, err := idArg(cctx, 0, "交易ID")
		if err != nil {
			return err
		}
		d, err := e.Safe.GetTransaction(cctx.Context, id)
		if err != nil {
			return err
		}
		info, err := e.Chains.Info(d.Transaction.ChainID)
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

		// 按已存储的交易重建签名文档，保证与发起者签名的内容一致
		doc := signer.DocFromTransaction(&d.Transaction, info.Denom)
		body, err := doc.BodyBytes()
		if err != nil {
			return err
		}
		sig, err := k.Sign(doc)
		if err != nil {
			return err
		}

		t, err := e.Safe.ConfirmTransaction(cctx.Context, safe.ConfirmTransactionRequest{
			TransactionID: id,
			OwnerAddress:  owner,
			Signature:     sig,
			BodyBytes:     body,
		})
		if err != nil {
			return err
		}
		fmt.Printf("交易 %d 已确认，状态 %s\n", t.ID, colorStatus(string(t.Status)))
		return nil
	}),
}

// simpleAction 无需签名的交易操作共用的流程
func simpleAction(verb string, run func(*safe.Service, context.Context, safe.ActionRequest) (*models.MultisigTransaction, error)) cli.ActionFunc {
	return action(func(cctx *cli.Context, e *Env) error {
		id, err := idArg(cctx, 0, "交易ID")
		if err != nil {
			return err
		}
		d, err := e.Safe.GetTransaction(cctx.Context, id)
		if err != nil {
			return err
		}
		info, err := e.Chains.Info(d.Transaction.ChainID)
		if err != nil {
			return err
		}
		owner, err := actor(cctx, e, info.Prefix)
		if err != nil {
			return err
		}
		t, err := run(e.Safe, cctx.Context, safe.ActionRequest{TransactionID: id, OwnerAddress: owner})
		if err != nil {
			return err
		}
		fmt.Printf("交易 %d 已%s，状态 %s\n", t.ID, verb, colorStatus(string(t.Status)))
		if h := t.Hash(); h != "" {
			fmt.Printf("TxHash: %s\n", h)
		}
		return nil
	})
}

var txReject = &cli.Command{
	Name:      "reject",
	Usage:     "拒绝交易",
	ArgsUsage: "[交易ID]",
	Flags:     []cli.Flag{keyFlag, ownerFlag},
	Action: simpleAction("拒绝", (*safe.Service).RejectTransaction),
}

var txSend = &cli.Command{
	Name:      "send",
	Usage:     "广播已达到确认数的交易",
	ArgsUsage: "[交易ID]",
	Flags:     []cli.Flag{keyFlag, ownerFlag},
	Action: simpleAction("广播", (*safe.Service).SendTransaction),
}

var txCancel = &cli.Command{
	Name:      "cancel",
	Usage:     "取消交易（仅发起者）",
	ArgsUsage: "[交易ID]",
	Flags:     []cli.Flag{keyFlag, ownerFlag},
	Action: simpleAction("取消", (*safe.Service).CancelTransaction),
}

// txShow 交易详情
var txShow = &cli.Command{
	Name:      "show",
	Usage:     "查看交易详情",
	ArgsUsage: "[交易ID]",
	Action: action(func(cctx *cli.Context, e *Env) error {
		id, err := idArg(cctx, 0, "交易ID")
		if err != nil {
			return err
		}
		d, err := e.Safe.GetTransaction(cctx.Context, id)
		if err != nil {
			return err
		}
		info, err := e.Chains.Info(d.Transaction.ChainID)
		if err != nil {
			return err
		}
		t := d.Transaction
		fmt.Printf("ID:        %d\n", t.ID)
		fmt.Printf("Safe:      %d (%s)\n", t.SafeID, d.SafeAddress)
		fmt.Printf("Status:    %s\n", colorStatus(string(t.Status)))
		fmt.Printf("Direction: %s\n", d.Direction)
		fmt.Printf("From:      %s\n", t.FromAddress)
		fmt.Printf("To:        %s\n", t.ToAddress)
		fmt.Printf("Amount:    %s\n", formatAmount(t.Amount, t.Denom, info))
		fmt.Printf("Fee:       %s\n", formatAmount(t.Fee, info.Denom, info))
		fmt.Printf("Gas:       %d\n", t.GasLimit)
		fmt.Printf("Sequence:  %d (account %d)\n", t.Sequence, t.AccountNumber)
		if t.Memo != "" {
			fmt.Printf("Memo:      %s\n", t.Memo)
		}
		fmt.Printf("Confirmed: %d/%d %s\n", len(d.Confirmations), d.ConfirmationsRequired, owners(d.Confirmations))
		if len(d.Rejections) > 0 {
			fmt.Printf("Rejected:  %d %s\n", len(d.Rejections), owners(d.Rejections))
		}
		if d.Executor != nil {
			fmt.Printf("Executor:  %s\n", d.Executor.OwnerAddress)
		}
		if h := t.Hash(); h != "" {
			fmt.Printf("TxHash:    %s\n", h)
		}
		return nil
	}),
}

func owners(cs []models.MultisigConfirm) string {
	if len(cs) == 0 {
		return ""
	}
	addrs := make([]string, len(cs))
	for i, c := range cs {
		addrs[i] = c.OwnerAddress
	}
	return "[" + strings.Join(addrs, ", ") + "]"
}

// txList 列出钱包交易
var txList = &cli.Command{
	Name:      "list",
	Usage:     "列出多签钱包的交易",
	ArgsUsage: "[钱包ID]",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "filter",
			Usage: "queue（待处理）或 history（已完成），默认全部",
		},
		&cli.IntFlag{
			Name:  "page",
			Value: 1,
		},
		&cli.IntFlag{
			Name:  "size",
			Value: 20,
		},
	},
	Action: action(func(cctx *cli.Context, e *Env) error {
		safeID, err := idArg(cctx, 0, "钱包ID")
		if err != nil {
			return err
		}
		s, err := e.Safe.GetWallet(cctx.Context, safeID)
		if err != nil {
			return err
		}
		info, err := e.Chains.Info(s.ChainID)
		if err != nil {
			return err
		}
		rows, total, err := e.Safe.ListTransactions(cctx.Context, safe.ListTransactionsRequest{
			SafeID:    safeID,
			Filter:    safe.ListFilter(cctx.String("filter")),
			PageIndex: cctx.Int("page"),
			PageSize:  cctx.Int("size"),
		})
		if err != nil {
			return err
		}

		tw := tablewriter.New(
			tablewriter.Col("ID", tablewriter.RightAlign()),
			tablewriter.Col("To"),
			tablewriter.Col("Amount", tablewriter.RightAlign()),
			tablewriter.Col("Confirmed", tablewriter.RightAlign()),
			tablewriter.Col("Rejected", tablewriter.RightAlign()),
			tablewriter.Col("Status"),
			tablewriter.Col("Created"))
		for _, r := range rows {
			tw.Write(map[string]interface{}{
				"ID":        r.Transaction.ID,
				"To":        r.Transaction.ToAddress,
				"Amount":    formatAmount(r.Transaction.Amount, r.Transaction.Denom, info),
				"Confirmed": fmt.Sprintf("%d/%d", r.Confirmations, r.ConfirmationsRequired),
				"Rejected":  r.Rejections,
				"Status":    colorStatus(string(r.Transaction.Status)),
				"Created":   r.Transaction.CreatedAt.Format("2006-01-02 15:04"),
			})
		}
		if err := tw.Flush(os.Stdout); err != nil {
			return err
		}
		fmt.Printf("共 %d 笔\n", total)
		return nil
	}),
}
