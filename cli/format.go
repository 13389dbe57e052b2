package cli

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/shopspring/decimal"
	"github.com/urfave/cli/v2"

	appcfg "pyxis-safe/internal/config"
	"pyxis-safe/internal/models"
	"pyxis-safe/internal/multisig"
	"pyxis-safe/internal/signer"
)

var (
	keyFlag = &cli.StringFlag{
		Name:  "key",
		Usage: "本地密钥名称或地址",
	}
	ownerFlag = &cli.StringFlag{
		Name:  "owner",
		Usage: "操作者地址（不需要签名的操作可替代 --key）",
	}
)

// formatAmount 将最小单位金额转换为展示单位，例如 1500000utaura -> 1.5 TAURA
func formatAmount(amount, denom string, chain appcfg.Chain) string {
	if amount == "" {
		return ""
	}
	if denom != chain.Denom || chain.Symbol == "" {
		return amount + denom
	}
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return amount + denom
	}
	return d.Shift(-chain.CoinDecimals).String() + " " + chain.Symbol
}

// parseAmount 将展示单位金额转换为最小单位，带 denom 后缀时按原样使用
func parseAmount(s string, chain appcfg.Chain) (amount, denom string, err error) {
	d, err := decimal.NewFromString(s)
	if err == nil {
		base := d.Shift(chain.CoinDecimals)
		if !base.Equal(base.Truncate(0)) {
			return "", "", fmt.Errorf("金额 %s 超出精度 %d", s, chain.CoinDecimals)
		}
		return base.String(), chain.Denom, nil
	}
	coin, cerr := splitCoin(s)
	if cerr != nil {
		return "", "", fmt.Errorf("无效的金额: %q", s)
	}
	return coin[0], coin[1], nil
}

func splitCoin(s string) ([2]string, error) {
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	if i == 0 || i == len(s) {
		return [2]string{}, fmt.Errorf("not a coin: %q", s)
	}
	return [2]string{s[:i], s[i:]}, nil
}

// statusColors 交易与钱包状态的颜色，PENDING 两者共用
var statusColors = map[string]*color.Color{
	string(models.TxAwaitingConfirmations): color.New(color.FgYellow),
	string(models.TxAwaitingExecution):     color.New(color.FgCyan),
	string(models.TxPending):               color.New(color.FgBlue),
	string(models.TxSuccess):               color.New(color.FgGreen),
	string(models.TxFailed):                color.New(color.FgRed),
	string(models.TxCancel):                color.New(color.FgHiBlack),
	string(models.SafeStatusCreated):       color.New(color.FgGreen),
	string(models.SafeStatusDeleted):       color.New(color.FgHiBlack),
}

func colorStatus(s string) string {
	if c, ok := statusColors[s]; ok {
		return c.Sprint(s)
	}
	return s
}

// signingKey 从本地密钥库加载 --key 指定的密钥
func signingKey(cctx *cli.Context, e *Env) (*signer.Key, error) {
	name := cctx.String("key")
	if name == "" {
		return nil, fmt.Errorf("请通过 --key 指定签名密钥")
	}
	keys, err := e.Keys()
	if err != nil {
		return nil, err
	}
	_, raw, err := keys.Get(cctx.Context, name)
	if err != nil {
		return nil, err
	}
	return signer.FromBytes(raw)
}

// actor 返回操作者地址：优先 --owner，否则按链前缀由 --key 的公钥推导
func actor(cctx *cli.Context, e *Env, prefix string) (string, error) {
	if owner := cctx.String("owner"); owner != "" {
		return owner, nil
	}
	name := cctx.String("key")
	if name == "" {
		return "", fmt.Errorf("请通过 --key 或 --owner 指定操作者")
	}
	keys, err := e.Keys()
	if err != nil {
		return "", err
	}
	item, _, err := keys.Get(cctx.Context, name)
	if err != nil {
		return "", err
	}
	pk, err := multisig.DecodePubKey(item.PubKey)
	if err != nil {
		return "", err
	}
	return multisig.AccountAddress(pk, prefix)
}
