package cli

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync"

	"github.com/fatih/color"
	logging "github.com/ipfs/go-log/v2"
	"github.com/urfave/cli/v2"
	"golang.org/x/xerrors"

	"pyxis-safe/internal/chain"
	appcfg "pyxis-safe/internal/config"
	"pyxis-safe/internal/keyseal"
	"pyxis-safe/internal/repository"
	"pyxis-safe/internal/safe"
	"pyxis-safe/internal/safeerr"
	"pyxis-safe/lib/signlog"
)

var log = logging.Logger("cli")

type ctxKey string

const ctxEnv ctxKey = "env"

// Env 命令运行环境，由 Setup 注入到 Context
type Env struct {
	Config *appcfg.Config
	Store  *repository.Store
	Chains *chain.Registry
	Safe   *safe.Service

	sealerOnce sync.Once
	sealer     *keyseal.Sealer
	sealerErr  error
}

// Setup 加载配置、打开数据库并创建服务
func Setup(cctx *cli.Context) error {
	cfg, err := appcfg.Load()
	if err != nil {
		return err
	}
	if err := signlog.ApplyLevels(cfg.Log); err != nil {
		return err
	}

	store, err := repository.OpenStore(cfg.DBPath())
	if err != nil {
		return xerrors.Errorf("open database: %w", err)
	}

	chains := chain.NewRegistry(cfg.Chains, &http.Client{Timeout: cfg.Service.ChainTimeout})
	svc := safe.NewService(safe.NewGormBackend(store), chains, chains, chains, safe.OptionsFromConfig(cfg.Service))

	cctx.Context = context.WithValue(cctx.Context, ctxEnv, &Env{
		Config: cfg,
		Store:  store,
		Chains: chains,
		Safe:   svc,
	})
	return nil
}

// Teardown 关闭数据库
func Teardown(cctx *cli.Context) error {
	if e, ok := cctx.Context.Value(ctxEnv).(*Env); ok && e.Store != nil {
		return e.Store.Close()
	}
	return nil
}

func envFrom(cctx *cli.Context) *Env {
	return cctx.Context.Value(ctxEnv).(*Env)
}

// Keys 返回本地密钥库，首次调用时根据种子派生加密密钥
func (e *Env) Keys() (*repository.KeyRepo, error) {
	e.sealerOnce.Do(func() {
		e.sealer, e.sealerErr = keyseal.NewSealer(e.Config.Security.Seed)
	})
	if e.sealerErr != nil {
		return nil, xerrors.Errorf("key store unavailable (set SAFE_SEED): %w", e.sealerErr)
	}
	return e.Store.Keys(e.sealer), nil
}

// action 注入运行环境并把业务错误转换为带错误码的退出
func action(fn func(cctx *cli.Context, e *Env) error) cli.ActionFunc {
	return func(cctx *cli.Context) error {
		return exitError(fn(cctx, envFrom(cctx)))
	}
}

var errColor = color.New(color.FgRed, color.Bold)

func exitError(err error) error {
	if err == nil {
		return nil
	}
	space, code := safeerr.Code(err)
	if space != safeerr.Codespace {
		return err
	}
	log.Debugf("exitError: %s/%d: %v", space, code, err)
	return cli.Exit(errColor.Sprintf("错误 [%s:%d] %v", space, code, err), int(code))
}

// idArg 解析第 n 个参数为 ID
func idArg(cctx *cli.Context, n int, what string) (uint, error) {
	s := cctx.Args().Get(n)
	if s == "" {
		return 0, fmt.Errorf("请指定%s", what)
	}
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("无效的%s: %q", what, s)
	}
	return uint(id), nil
}
