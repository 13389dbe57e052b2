// Package safe is the multisig wallet service: wallet creation and owner
// join, and the transaction coordinator that collects confirmations, moves
// transactions through their statuses and broadcasts assembled
// transactions.
package safe

import (
	"context"
	"errors"
	"time"

	errorsmod "cosmossdk.io/errors"
	sdkmath "cosmossdk.io/math"
	logging "github.com/ipfs/go-log/v2"

	"pyxis-safe/internal/chain"
	appcfg "pyxis-safe/internal/config"
	"pyxis-safe/internal/models"
	"pyxis-safe/internal/safeerr"
)

var log = logging.Logger("safe")

// ChainDirectory resolves chain ids to their configuration.
type ChainDirectory interface {
	Info(chainID string) (appcfg.Chain, error)
}

// ChainQuerier reads account state.
type ChainQuerier interface {
	GetBalance(ctx context.Context, chainID, address, denom string) (sdkmath.Int, error)
	GetAccount(ctx context.Context, chainID, address string) (chain.Account, error)
}

// Broadcaster submits assembled transactions and returns their hash.
type Broadcaster interface {
	Broadcast(ctx context.Context, chainID string, txBytes []byte) (string, error)
}

type Options struct {
	// ChainTimeout bounds every chain call unless the caller's context
	// expires first.
	ChainTimeout    time.Duration
	RosterCacheTTL  time.Duration
	RosterCacheSize int
	LockStripes     int
}

func (o Options) withDefaults() Options {
	if o.ChainTimeout <= 0 {
		o.ChainTimeout = 15 * time.Second
	}
	if o.RosterCacheSize <= 0 {
		o.RosterCacheSize = 1024
	}
	if o.LockStripes <= 0 {
		o.LockStripes = 64
	}
	return o
}

// OptionsFromConfig maps the [Service] section.
func OptionsFromConfig(c appcfg.Service) Options {
	return Options{
		ChainTimeout:    c.ChainTimeout,
		RosterCacheTTL:  c.RosterCacheTTL,
		RosterCacheSize: c.RosterCacheSize,
		LockStripes:     c.LockStripes,
	}
}

type Service struct {
	backend     Backend
	stores      Stores
	chains      ChainDirectory
	querier     ChainQuerier
	broadcaster Broadcaster
	roster      *RosterCache
	locks       *lockStripes
	opts        Options
}

func NewService(backend Backend, chains ChainDirectory, querier ChainQuerier, broadcaster Broadcaster, opts Options) *Service {
	opts = opts.withDefaults()
	stores := backend.Stores()
	return &Service{
		backend:     backend,
		stores:      stores,
		chains:      chains,
		querier:     querier,
		broadcaster: broadcaster,
		roster:      NewRosterCache(stores.Owners, opts.RosterCacheSize, opts.RosterCacheTTL),
		locks:       newLockStripes(opts.LockStripes),
		opts:        opts,
	}
}

func (s *Service) chainCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.opts.ChainTimeout)
}

// chainErr keeps typed chain errors and files everything else under
// ErrChainUnavailable.
func chainErr(err error) error {
	for _, kind := range []error{safeerr.ErrChainUnavailable, safeerr.ErrBroadcastRejected, safeerr.ErrInvalidRequest, safeerr.ErrInsufficientBalance} {
		if errors.Is(err, kind) {
			return err
		}
	}
	return errorsmod.Wrap(safeerr.ErrChainUnavailable, err.Error())
}

// requireOwner fails with ErrPermissionDenied unless owner is on the roster
// of safe.
func (s *Service) requireOwner(ctx context.Context, safe *models.Safe, owner string) error {
	ok, err := s.roster.IsOwner(ctx, owner, safe.ChainID, safe.ID)
	if err != nil {
		return err
	}
	if !ok {
		return errorsmod.Wrapf(safeerr.ErrPermissionDenied, "%s is not an owner of safe %d", owner, safe.ID)
	}
	return nil
}
