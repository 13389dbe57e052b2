package chain

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	sdkmath "cosmossdk.io/math"
	logging "github.com/ipfs/go-log/v2"
	"golang.org/x/xerrors"

	appcfg "pyxis-safe/internal/config"
)

var log = logging.Logger("chain")

var (
	ErrAccountNotFound = errors.New("account not found")
	ErrTxNotFound      = errors.New("transaction not found")
)

// Client 单条链的 LCD (REST) 客户端
type Client struct {
	info   appcfg.Chain
	base   string
	client *http.Client
}

// Account 多签账户签名所需的链上账户信息
type Account struct {
	Address       string
	AccountNumber uint64
	Sequence      uint64
}

// BroadcastResult 同步广播的节点返回
type BroadcastResult struct {
	TxHash string
	Code   uint32
	RawLog string
}

// TxResult 已上链交易的执行结果
type TxResult struct {
	TxHash string
	Height int64
	Code   uint32
	RawLog string
}

// RejectedError 节点在 CheckTx 阶段拒绝交易时返回
type RejectedError struct {
	Code   uint32
	RawLog string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("rejected with code %d: %s", e.Code, e.RawLog)
}

// httpError 非 2xx 响应
type httpError struct {
	Status int
	Body   string
}

func (e *httpError) Error() string {
	return fmt.Sprintf("HTTP error %d: %s", e.Status, e.Body)
}

// NewClient 创建链客户端
// 参数：
//   - info: 链配置
//   - httpClient: HTTP 客户端，超时由调用方设置
//
// 返回：Client 实例
func NewClient(info appcfg.Chain, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	log.Infof("NewClient: %s via %s", info.ChainID, info.LCD)
	return &Client{
		info:   info,
		base:   strings.TrimRight(info.LCD, "/"),
		client: httpClient,
	}
}

// Info 返回链配置
func (c *Client) Info() appcfg.Chain { return c.info }

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	u := c.base + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	log.Debugf("do: %s %s", method, u)

	var reader io.Reader
	if body != nil {
		bz, err := json.Marshal(body)
		if err != nil {
			return xerrors.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(bz)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return xerrors.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		log.Errorf("do: request to %s failed: %v", u, err)
		return xerrors.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return xerrors.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		log.Warnf("do: %s %s returned %d", method, path, resp.StatusCode)
		return &httpError{Status: resp.StatusCode, Body: string(respBody)}
	}
	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return xerrors.Errorf("unmarshal response: %w", err)
		}
	}
	return nil
}

func isNotFound(err error) bool {
	var he *httpError
	return errors.As(err, &he) && he.Status == http.StatusNotFound
}

// Balance 查询地址持有的某一 denom 余额
func (c *Client) Balance(ctx context.Context, address, denom string) (sdkmath.Int, error) {
	var resp struct {
		Balance struct {
			Denom  string `json:"denom"`
			Amount string `json:"amount"`
		} `json:"balance"`
	}
	q := url.Values{"denom": []string{denom}}
	if err := c.do(ctx, http.MethodGet, "/cosmos/bank/v1beta1/balances/"+url.PathEscape(address)+"/by_denom", q, nil, &resp); err != nil {
		return sdkmath.Int{}, err
	}
	if resp.Balance.Amount == "" {
		return sdkmath.ZeroInt(), nil
	}
	amt, ok := sdkmath.NewIntFromString(resp.Balance.Amount)
	if !ok {
		return sdkmath.Int{}, xerrors.Errorf("malformed balance %q", resp.Balance.Amount)
	}
	return amt, nil
}

// Account 查询地址的账户编号和序列号
// 账户不存在时返回 ErrAccountNotFound
func (c *Client) Account(ctx context.Context, address string) (Account, error) {
	var resp struct {
		Account struct {
			Address       string `json:"address"`
			AccountNumber string `json:"account_number"`
			Sequence      string `json:"sequence"`
		} `json:"account"`
	}
	err := c.do(ctx, http.MethodGet, "/cosmos/auth/v1beta1/accounts/"+url.PathEscape(address), nil, nil, &resp)
	if isNotFound(err) {
		return Account{}, xerrors.Errorf("%s: %w", address, ErrAccountNotFound)
	}
	if err != nil {
		return Account{}, err
	}
	num, err := strconv.ParseUint(resp.Account.AccountNumber, 10, 64)
	if err != nil {
		return Account{}, xerrors.Errorf("account number %q: %w", resp.Account.AccountNumber, err)
	}
	seq, err := parseOptionalUint(resp.Account.Sequence)
	if err != nil {
		return Account{}, xerrors.Errorf("sequence %q: %w", resp.Account.Sequence, err)
	}
	return Account{Address: address, AccountNumber: num, Sequence: seq}, nil
}

// 新账户没有 sequence 字段
func parseOptionalUint(s string) (uint64, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.ParseUint(s, 10, 64)
}

// Broadcast 以 sync 模式广播交易并返回哈希
// check 返回非零 code 时错误为 *RejectedError
func (c *Client) Broadcast(ctx context.Context, txBytes []byte) (BroadcastResult, error) {
	body := map[string]string{
		"tx_bytes": base64.StdEncoding.EncodeToString(txBytes),
		"mode":     "BROADCAST_MODE_SYNC",
	}
	var resp struct {
		TxResponse struct {
			TxHash string `json:"txhash"`
			Code   uint32 `json:"code"`
			RawLog string `json:"raw_log"`
		} `json:"tx_response"`
	}
	if err := c.do(ctx, http.MethodPost, "/cosmos/tx/v1beta1/txs", nil, body, &resp); err != nil {
		return BroadcastResult{}, err
	}
	res := BroadcastResult{
		TxHash: resp.TxResponse.TxHash,
		Code:   resp.TxResponse.Code,
		RawLog: resp.TxResponse.RawLog,
	}
	if res.Code != 0 {
		log.Warnf("Broadcast: %s rejected with code %d", res.TxHash, res.Code)
		return res, &RejectedError{Code: res.Code, RawLog: res.RawLog}
	}
	log.Infof("Broadcast: accepted %s", res.TxHash)
	return res, nil
}

// GetTx 按哈希查询已上链交易，未找到时返回 ErrTxNotFound
func (c *Client) GetTx(ctx context.Context, hash string) (TxResult, error) {
	var resp struct {
		TxResponse struct {
			TxHash string `json:"txhash"`
			Height string `json:"height"`
			Code   uint32 `json:"code"`
			RawLog string `json:"raw_log"`
		} `json:"tx_response"`
	}
	err := c.do(ctx, http.MethodGet, "/cosmos/tx/v1beta1/txs/"+url.PathEscape(hash), nil, nil, &resp)
	if isNotFound(err) {
		return TxResult{}, xerrors.Errorf("%s: %w", hash, ErrTxNotFound)
	}
	if err != nil {
		return TxResult{}, err
	}
	height, err := strconv.ParseInt(resp.TxResponse.Height, 10, 64)
	if err != nil {
		return TxResult{}, xerrors.Errorf("height %q: %w", resp.TxResponse.Height, err)
	}
	return TxResult{
		TxHash: resp.TxResponse.TxHash,
		Height: height,
		Code:   resp.TxResponse.Code,
		RawLog: resp.TxResponse.RawLog,
	}, nil
}
