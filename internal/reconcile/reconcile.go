// Package reconcile moves broadcast transactions to their final state once
// the chain reports a result. It runs outside the coordinator: the only
// writes it makes are PENDING -> SUCCESS and PENDING -> FAILED.
package reconcile

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/avast/retry-go"
	logging "github.com/ipfs/go-log/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"pyxis-safe/internal/chain"
	appcfg "pyxis-safe/internal/config"
	"pyxis-safe/internal/models"
	"pyxis-safe/internal/safeerr"
)

var log = logging.Logger("reconcile")

var outcomes = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "safe_reconcile_outcomes_total",
	Help: "Reconciled transactions by outcome",
}, []string{"outcome"})

// Store is the part of the transaction store the reconciler needs.
type Store interface {
	FindByStatus(ctx context.Context, status models.TxStatus, afterID uint, limit int) ([]models.MultisigTransaction, error)
	UpdateStatus(ctx context.Context, id uint, next models.TxStatus) error
}

// TxLookup finds included transactions by hash.
type TxLookup interface {
	GetTx(ctx context.Context, chainID, hash string) (chain.TxResult, error)
}

// Reconciler polls the chain for PENDING transactions. Each pass takes the
// next batch after the last one it checked and wraps around at the end, so
// rows that never resolve do not starve newer ones.
type Reconciler struct {
	store  Store
	lookup TxLookup
	cfg    appcfg.Reconcile

	mu     sync.Mutex
	cursor uint
}

// Result summarizes one pass.
type Result struct {
	Checked    int
	Succeeded  int
	Failed     int
	Unresolved int
}

func New(store Store, lookup TxLookup, cfg appcfg.Reconcile) *Reconciler {
	if cfg.Attempts == 0 {
		cfg.Attempts = 1
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	return &Reconciler{store: store, lookup: lookup, cfg: cfg}
}

// RunOnce checks the next batch of PENDING transactions once. A transaction
// the chain does not know yet is left PENDING for a later pass.
func (r *Reconciler) RunOnce(ctx context.Context) (Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var res Result
	pending, err := r.store.FindByStatus(ctx, models.TxPending, r.cursor, r.cfg.BatchSize)
	if err != nil {
		log.Errorf("RunOnce: failed to list pending transactions: %v", err)
		return res, err
	}
	log.Debugf("RunOnce: %d pending transactions after %d", len(pending), r.cursor)
	if len(pending) < r.cfg.BatchSize {
		r.cursor = 0
	} else {
		r.cursor = pending[len(pending)-1].ID
	}

	for i := range pending {
		t := &pending[i]
		if err := ctx.Err(); err != nil {
			return res, err
		}
		res.Checked++
		if t.TxHash == nil || *t.TxHash == "" {
			log.Warnf("RunOnce: transaction %d is pending without a hash", t.ID)
			res.Unresolved++
			continue
		}

		result, err := r.lookupTx(ctx, t.ChainID, *t.TxHash)
		if err != nil {
			if errors.Is(err, chain.ErrTxNotFound) {
				log.Debugf("RunOnce: %s not included yet", *t.TxHash)
			} else {
				log.Warnf("RunOnce: lookup of %s failed: %v", *t.TxHash, err)
			}
			outcomes.WithLabelValues("unresolved").Inc()
			res.Unresolved++
			continue
		}

		next := models.TxSuccess
		if result.Code != 0 {
			next = models.TxFailed
		}
		if err := r.store.UpdateStatus(ctx, t.ID, next); err != nil {
			if errors.Is(err, safeerr.ErrInvalidTransition) {
				log.Warnf("RunOnce: transaction %d already left PENDING", t.ID)
				res.Unresolved++
				continue
			}
			log.Errorf("RunOnce: failed to update transaction %d: %v", t.ID, err)
			return res, err
		}

		if next == models.TxSuccess {
			res.Succeeded++
			outcomes.WithLabelValues("success").Inc()
			log.Infof("RunOnce: transaction %d succeeded at height %d", t.ID, result.Height)
		} else {
			res.Failed++
			outcomes.WithLabelValues("failed").Inc()
			log.Infof("RunOnce: transaction %d failed with code %d: %s", t.ID, result.Code, result.RawLog)
		}
	}
	return res, nil
}

func (r *Reconciler) lookupTx(ctx context.Context, chainID, hash string) (chain.TxResult, error) {
	var result chain.TxResult
	err := retry.Do(func() error {
		var err error
		result, err = r.lookup.GetTx(ctx, chainID, hash)
		return err
	},
		retry.Attempts(r.cfg.Attempts),
		retry.Delay(r.cfg.Delay),
		retry.DelayType(retry.FixedDelay),
		retry.Context(ctx),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool { return errors.Is(err, chain.ErrTxNotFound) }),
	)
	return result, err
}

// Watch runs a pass every interval until ctx is done.
func (r *Reconciler) Watch(ctx context.Context) error {
	interval := r.cfg.Interval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	log.Infof("Watch: reconciling every %s", interval)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		res, err := r.RunOnce(ctx)
		if err != nil && ctx.Err() == nil {
			log.Errorf("Watch: pass failed: %v", err)
		} else if res.Checked > 0 {
			log.Infof("Watch: checked %d, succeeded %d, failed %d, unresolved %d",
				res.Checked, res.Succeeded, res.Failed, res.Unresolved)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
