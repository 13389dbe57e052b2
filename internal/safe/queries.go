package safe

import (
	"context"

	"github.com/sourcegraph/conc/iter"

	"pyxis-safe/internal/models"
	"pyxis-safe/internal/repository"
)

// Direction of a transaction relative to the safe it is listed under.
type Direction string

const (
	DirectionOutgoing Direction = "outgoing"
	DirectionIncoming Direction = "incoming"
)

func directionOf(t *models.MultisigTransaction, safeAddress string) Direction {
	if t.FromAddress == safeAddress {
		return DirectionOutgoing
	}
	return DirectionIncoming
}

// TransactionDetail is a transaction with everything owners act on.
type TransactionDetail struct {
	Transaction           models.MultisigTransaction
	SafeAddress           string
	ConfirmationsRequired int
	Confirmations         []models.MultisigConfirm
	Rejections            []models.MultisigConfirm
	// Executor is the owner that broadcast the transaction, if any.
	Executor  *models.MultisigConfirm
	Direction Direction
}

// TransactionSummary is one row of a transaction listing.
type TransactionSummary struct {
	Transaction           models.MultisigTransaction
	Confirmations         int64
	Rejections            int64
	ConfirmationsRequired int
	Direction             Direction
}

func (s *Service) GetTransaction(ctx context.Context, id uint) (*TransactionDetail, error) {
	log.Debugf("GetTransaction: loading transaction %d", id)

	t, err := s.stores.Transactions.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	safe, err := s.stores.Wallets.FindByID(ctx, t.SafeID)
	if err != nil {
		return nil, err
	}
	actions, err := s.stores.Confirmations.ListByTransaction(ctx, id)
	if err != nil {
		return nil, err
	}

	d := &TransactionDetail{
		Transaction:           *t,
		SafeAddress:           safe.Address(),
		ConfirmationsRequired: safe.Threshold,
		Direction:             directionOf(t, safe.Address()),
	}
	for i := range actions {
		switch actions[i].Status {
		case models.ConfirmStatusConfirm:
			d.Confirmations = append(d.Confirmations, actions[i])
		case models.ConfirmStatusReject:
			d.Rejections = append(d.Rejections, actions[i])
		case models.ConfirmStatusSend:
			if d.Executor == nil {
				d.Executor = &actions[i]
			}
		}
	}
	return d, nil
}

// ListTransactions pages through a safe's transactions with per-row
// confirmation and rejection counts.
func (s *Service) ListTransactions(ctx context.Context, req ListTransactionsRequest) ([]TransactionSummary, int64, error) {
	log.Debugf("ListTransactions: safe %d filter %q page %d/%d", req.SafeID, req.Filter, req.PageIndex, req.PageSize)

	if err := req.Validate(); err != nil {
		return nil, 0, err
	}
	safe, err := s.stores.Wallets.FindByID(ctx, req.SafeID)
	if err != nil {
		return nil, 0, err
	}
	txs, total, err := s.stores.Transactions.FindBySafe(ctx, safe.ID, repository.TxFilter{
		Statuses:  req.statuses(),
		PageIndex: req.PageIndex,
		PageSize:  req.PageSize,
	})
	if err != nil {
		return nil, 0, err
	}

	rows, err := iter.MapErr(txs, func(t *models.MultisigTransaction) (TransactionSummary, error) {
		confirms, err := s.stores.Confirmations.CountByStatus(ctx, t.ID, models.ConfirmStatusConfirm)
		if err != nil {
			return TransactionSummary{}, err
		}
		rejects, err := s.stores.Confirmations.CountByStatus(ctx, t.ID, models.ConfirmStatusReject)
		if err != nil {
			return TransactionSummary{}, err
		}
		return TransactionSummary{
			Transaction:           *t,
			Confirmations:         confirms,
			Rejections:            rejects,
			ConfirmationsRequired: safe.Threshold,
			Direction:             directionOf(t, safe.Address()),
		}, nil
	})
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// ListConfirmations returns the actions taken on a transaction, optionally
// only those with the given statuses.
func (s *Service) ListConfirmations(ctx context.Context, txID uint, statuses ...models.ConfirmStatus) ([]models.MultisigConfirm, error) {
	for _, st := range statuses {
		if !st.Valid() {
			return nil, invalid("unknown confirmation status %q", st)
		}
	}
	if _, err := s.stores.Transactions.FindByID(ctx, txID); err != nil {
		return nil, err
	}
	return s.stores.Confirmations.ListByTransaction(ctx, txID, statuses...)
}
