// Package chain 各链 LCD 客户端
// 提供多签服务所需的余额、账户、广播和交易查询
package chain

import (
	"context"
	"errors"
	"net/http"

	errorsmod "cosmossdk.io/errors"
	sdkmath "cosmossdk.io/math"
	"github.com/puzpuzpuz/xsync/v2"

	appcfg "pyxis-safe/internal/config"
	"pyxis-safe/internal/safeerr"
)

// Registry 按链 ID 查找链配置，并按需创建客户端
// 网络错误返回 safeerr.ErrChainUnavailable，节点拒绝交易返回
// safeerr.ErrBroadcastRejected，地址没有链上账户返回 safeerr.ErrInsufficientBalance
type Registry struct {
	chains  map[string]appcfg.Chain
	clients *xsync.MapOf[string, *Client]
	http    *http.Client
}

// NewRegistry 创建链注册表
// 参数：
//   - chains: 已配置的链
//   - httpClient: 所有客户端共用的 HTTP 客户端
//
// 返回：Registry 实例
func NewRegistry(chains []appcfg.Chain, httpClient *http.Client) *Registry {
	m := make(map[string]appcfg.Chain, len(chains))
	for _, c := range chains {
		m[c.ChainID] = c
	}
	return &Registry{
		chains:  m,
		clients: xsync.NewMapOf[*Client](),
		http:    httpClient,
	}
}

// Info 返回链配置，未配置的链返回 ErrInvalidRequest
func (r *Registry) Info(chainID string) (appcfg.Chain, error) {
	info, ok := r.chains[chainID]
	if !ok {
		return appcfg.Chain{}, errorsmod.Wrapf(safeerr.ErrInvalidRequest, "unknown chain %q", chainID)
	}
	return info, nil
}

// Chains 列出已配置的链
func (r *Registry) Chains() []appcfg.Chain {
	out := make([]appcfg.Chain, 0, len(r.chains))
	for _, c := range r.chains {
		out = append(out, c)
	}
	return out
}

// Client 返回链客户端，首次使用时创建
func (r *Registry) Client(chainID string) (*Client, error) {
	if c, ok := r.clients.Load(chainID); ok {
		return c, nil
	}
	info, err := r.Info(chainID)
	if err != nil {
		return nil, err
	}
	c, _ := r.clients.LoadOrStore(chainID, NewClient(info, r.http))
	return c, nil
}

func unavailable(chainID string, err error) error {
	return errorsmod.Wrapf(safeerr.ErrChainUnavailable, "%s: %v", chainID, err)
}

// GetBalance 查询地址余额
func (r *Registry) GetBalance(ctx context.Context, chainID, address, denom string) (sdkmath.Int, error) {
	c, err := r.Client(chainID)
	if err != nil {
		return sdkmath.Int{}, err
	}
	amt, err := c.Balance(ctx, address, denom)
	if err != nil {
		return sdkmath.Int{}, unavailable(chainID, err)
	}
	return amt, nil
}

// GetAccount 查询多签账户的账户编号和序列号
func (r *Registry) GetAccount(ctx context.Context, chainID, address string) (Account, error) {
	c, err := r.Client(chainID)
	if err != nil {
		return Account{}, err
	}
	acc, err := c.Account(ctx, address)
	if errors.Is(err, ErrAccountNotFound) {
		// 地址从未收到过转账
		return Account{}, errorsmod.Wrapf(safeerr.ErrInsufficientBalance, "%s: %s has no account", chainID, address)
	}
	if err != nil {
		return Account{}, unavailable(chainID, err)
	}
	return acc, nil
}

// Broadcast 广播已签名交易，返回交易哈希
func (r *Registry) Broadcast(ctx context.Context, chainID string, txBytes []byte) (string, error) {
	c, err := r.Client(chainID)
	if err != nil {
		return "", err
	}
	res, err := c.Broadcast(ctx, txBytes)
	var rejected *RejectedError
	if errors.As(err, &rejected) {
		return "", errorsmod.Wrapf(safeerr.ErrBroadcastRejected, "%s: code %d: %s", chainID, rejected.Code, rejected.RawLog)
	}
	if err != nil {
		return "", unavailable(chainID, err)
	}
	return res.TxHash, nil
}

// GetTx 查询交易结果
// ErrTxNotFound 原样返回，调用方可以继续轮询
func (r *Registry) GetTx(ctx context.Context, chainID, hash string) (TxResult, error) {
	c, err := r.Client(chainID)
	if err != nil {
		return TxResult{}, err
	}
	res, err := c.GetTx(ctx, hash)
	if errors.Is(err, ErrTxNotFound) {
		return TxResult{}, err
	}
	if err != nil {
		return TxResult{}, unavailable(chainID, err)
	}
	return res, nil
}
