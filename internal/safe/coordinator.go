package safe

import (
	"bytes"
	"context"
	"time"

	errorsmod "cosmossdk.io/errors"
	sdkmath "cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"
	"golang.org/x/xerrors"

	"pyxis-safe/internal/models"
	"pyxis-safe/internal/multisig"
	"pyxis-safe/internal/safeerr"
)

// CreateTransaction stores a new transaction from the safe and applies the
// creator's signature as its first confirmation. The account sequence is
// read once here and kept for the life of the transaction.
func (s *Service) CreateTransaction(ctx context.Context, req CreateTransactionRequest) (*models.MultisigTransaction, error) {
	log.Infof("CreateTransaction: %s proposing %s from safe %d", req.CreatorAddress, req.typeURL(), req.SafeID)

	if err := req.Validate(); err != nil {
		return nil, err
	}
	safe, err := s.stores.Wallets.FindByID(ctx, req.SafeID)
	if err != nil {
		return nil, err
	}
	if safe.Status != models.SafeStatusCreated {
		return nil, errorsmod.Wrapf(safeerr.ErrWalletNotReady, "safe %d is %s", safe.ID, safe.Status)
	}
	if err := s.requireOwner(ctx, safe, req.CreatorAddress); err != nil {
		return nil, err
	}
	info, err := s.chains.Info(safe.ChainID)
	if err != nil {
		return nil, err
	}
	if req.ToAddress != "" {
		if err := multisig.ValidateAddress(req.ToAddress, info.Prefix); err != nil {
			return nil, err
		}
	}
	denom := req.Denom
	if denom == "" {
		denom = info.Denom
	}
	amount, _ := req.amount()
	fee, _ := req.fee()

	if amount.IsPositive() {
		balance, err := s.balance(ctx, safe.ChainID, safe.Address(), denom)
		if err != nil {
			return nil, err
		}
		if balance.LT(amount) {
			return nil, errorsmod.Wrapf(safeerr.ErrInsufficientBalance, "balance %s%s is below %s%s", balance, denom, amount, denom)
		}
	}

	cctx, cancel := s.chainCtx(ctx)
	acc, err := s.querier.GetAccount(cctx, safe.ChainID, safe.Address())
	cancel()
	if err != nil {
		log.Errorf("CreateTransaction: account lookup for %s failed: %v", safe.Address(), err)
		return nil, chainErr(err)
	}

	t := &models.MultisigTransaction{
		SafeID:         safe.ID,
		ChainID:        safe.ChainID,
		CreatorAddress: req.CreatorAddress,
		FromAddress:    safe.Address(),
		ToAddress:      req.ToAddress,
		Amount:         amount.String(),
		Denom:          denom,
		TypeURL:        req.typeURL(),
		Fee:            fee.String(),
		GasLimit:       req.GasLimit,
		Memo:           req.Memo,
		AccountNumber:  acc.AccountNumber,
		Sequence:       acc.Sequence,
	}
	var reached bool
	err = s.backend.Atomic(ctx, func(st Stores) error {
		if err := st.Transactions.Create(ctx, t); err != nil {
			return err
		}
		reached, err = s.applyVote(ctx, st, t, &models.MultisigConfirm{
			MultisigTransactionID: t.ID,
			OwnerAddress:          req.CreatorAddress,
			Status:                models.ConfirmStatusConfirm,
			Signature:             req.Signature,
			BodyBytes:             req.BodyBytes,
		})
		return err
	})
	if err != nil {
		log.Errorf("CreateTransaction: %v", err)
		return nil, err
	}
	transactionEvents.WithLabelValues("created").Inc()
	if reached {
		quorumReached.Inc()
	}
	log.Infof("CreateTransaction: transaction %d stored with sequence %d", t.ID, t.Sequence)
	return s.stores.Transactions.FindByID(ctx, t.ID)
}

func (s *Service) balance(ctx context.Context, chainID, address, denom string) (sdkmath.Int, error) {
	cctx, cancel := s.chainCtx(ctx)
	defer cancel()
	bal, err := s.querier.GetBalance(cctx, chainID, address, denom)
	if err != nil {
		log.Errorf("balance: lookup for %s failed: %v", address, err)
		return sdkmath.Int{}, chainErr(err)
	}
	return bal, nil
}

// ConfirmTransaction records an owner's signature. The confirmation that
// reaches the safe threshold moves the transaction to AWAITING_EXECUTION.
func (s *Service) ConfirmTransaction(ctx context.Context, req ConfirmTransactionRequest) (*models.MultisigTransaction, error) {
	log.Infof("ConfirmTransaction: %s confirming transaction %d", req.OwnerAddress, req.TransactionID)

	if err := req.Validate(); err != nil {
		return nil, err
	}
	return s.vote(ctx, req.TransactionID, &models.MultisigConfirm{
		MultisigTransactionID: req.TransactionID,
		OwnerAddress:          req.OwnerAddress,
		Status:                models.ConfirmStatusConfirm,
		Signature:             req.Signature,
		BodyBytes:             req.BodyBytes,
	})
}

// RejectTransaction records an owner's rejection. Rejections are kept for
// the record only; they never cancel the transaction or block quorum.
func (s *Service) RejectTransaction(ctx context.Context, req ActionRequest) (*models.MultisigTransaction, error) {
	log.Infof("RejectTransaction: %s rejecting transaction %d", req.OwnerAddress, req.TransactionID)

	if err := req.Validate(); err != nil {
		return nil, err
	}
	return s.vote(ctx, req.TransactionID, &models.MultisigConfirm{
		MultisigTransactionID: req.TransactionID,
		OwnerAddress:          req.OwnerAddress,
		Status:                models.ConfirmStatusReject,
	})
}

func (s *Service) vote(ctx context.Context, txID uint, c *models.MultisigConfirm) (*models.MultisigTransaction, error) {
	t, err := s.stores.Transactions.FindByID(ctx, txID)
	if err != nil {
		return nil, err
	}
	safe, err := s.stores.Wallets.FindByID(ctx, t.SafeID)
	if err != nil {
		return nil, err
	}
	if err := s.requireOwner(ctx, safe, c.OwnerAddress); err != nil {
		return nil, err
	}

	unlock := s.locks.lock(txLockKey(txID))
	defer unlock()

	var reached bool
	err = s.backend.Atomic(ctx, func(st Stores) error {
		cur, err := st.Transactions.LockByID(ctx, txID)
		if err != nil {
			return err
		}
		reached, err = s.applyVote(ctx, st, cur, c)
		return err
	})
	if err != nil {
		log.Errorf("vote: %s %s on transaction %d failed: %v", c.OwnerAddress, c.Status, txID, err)
		return nil, err
	}
	transactionEvents.WithLabelValues(string(c.Status)).Inc()
	if reached {
		quorumReached.Inc()
		log.Infof("vote: transaction %d reached its threshold", txID)
	}
	return s.stores.Transactions.FindByID(ctx, txID)
}

// applyVote records c and recounts confirmations. It must run inside the
// transaction's critical section with t freshly read. It reports whether
// this vote moved t to AWAITING_EXECUTION.
func (s *Service) applyVote(ctx context.Context, st Stores, t *models.MultisigTransaction, c *models.MultisigConfirm) (bool, error) {
	if !t.Status.AcceptsActions() {
		return false, errorsmod.Wrapf(safeerr.ErrInvalidTransition, "transaction %d is %s and no longer accepts confirmations", t.ID, t.Status)
	}
	if c.Status == models.ConfirmStatusConfirm {
		if err := sameBody(ctx, st, t.ID, c); err != nil {
			return false, err
		}
	}
	if err := st.Confirmations.Record(ctx, c); err != nil {
		return false, err
	}
	if c.Status != models.ConfirmStatusConfirm || t.Status != models.TxAwaitingConfirmations {
		return false, nil
	}

	threshold, err := st.Wallets.Threshold(ctx, t.FromAddress)
	if err != nil {
		return false, err
	}
	n, err := st.Confirmations.CountByStatus(ctx, t.ID, models.ConfirmStatusConfirm)
	if err != nil {
		return false, err
	}
	log.Debugf("applyVote: transaction %d has %d of %d confirmations", t.ID, n, threshold)
	if n < int64(threshold) {
		return false, nil
	}
	if err := st.Transactions.UpdateStatus(ctx, t.ID, models.TxAwaitingExecution); err != nil {
		return false, err
	}
	t.Status = models.TxAwaitingExecution
	return true, nil
}

// sameBody refuses a confirmation over a body other than the one the first
// confirmation signed. The creator's confirmation fixes the body.
func sameBody(ctx context.Context, st Stores, txID uint, c *models.MultisigConfirm) error {
	confirms, err := st.Confirmations.ListByTransaction(ctx, txID, models.ConfirmStatusConfirm)
	if err != nil {
		return err
	}
	if len(confirms) == 0 || bytes.Equal(confirms[0].BodyBytes, c.BodyBytes) {
		return nil
	}
	return errorsmod.Wrapf(safeerr.ErrInvalidRequest, "%s signed a different body than transaction %d was proposed with", c.OwnerAddress, txID)
}

// SendTransaction assembles the multi-signed transaction and submits it.
// Only an acknowledged submission moves the transaction to PENDING and
// records the sender; any failure leaves it AWAITING_EXECUTION so the call
// can be repeated.
func (s *Service) SendTransaction(ctx context.Context, req ActionRequest) (*models.MultisigTransaction, error) {
	log.Infof("SendTransaction: %s sending transaction %d", req.OwnerAddress, req.TransactionID)

	if err := req.Validate(); err != nil {
		return nil, err
	}
	t, err := s.stores.Transactions.FindByID(ctx, req.TransactionID)
	if err != nil {
		return nil, err
	}
	safe, err := s.stores.Wallets.FindByID(ctx, t.SafeID)
	if err != nil {
		return nil, err
	}
	if err := s.requireOwner(ctx, safe, req.OwnerAddress); err != nil {
		return nil, err
	}

	unlock := s.locks.lock(txLockKey(t.ID))
	defer unlock()

	t, err = s.stores.Transactions.FindByID(ctx, t.ID)
	if err != nil {
		return nil, err
	}
	if t.Status != models.TxAwaitingExecution {
		return nil, errorsmod.Wrapf(safeerr.ErrNotReadyForExecution, "transaction %d is %s", t.ID, t.Status)
	}
	confirms, err := s.stores.Confirmations.ListByTransaction(ctx, t.ID, models.ConfirmStatusConfirm)
	if err != nil {
		return nil, err
	}
	txBytes, err := s.assemble(safe, t, confirms)
	if err != nil {
		log.Errorf("SendTransaction: assembling transaction %d: %v", t.ID, err)
		return nil, err
	}

	cctx, cancel := s.chainCtx(ctx)
	start := time.Now()
	hash, err := s.broadcaster.Broadcast(cctx, t.ChainID, txBytes)
	cancel()
	if err != nil {
		broadcastDuration.WithLabelValues("error").Observe(time.Since(start).Seconds())
		log.Errorf("SendTransaction: broadcast of transaction %d failed: %v", t.ID, err)
		return nil, chainErr(err)
	}
	broadcastDuration.WithLabelValues("accepted").Observe(time.Since(start).Seconds())

	err = s.backend.Atomic(ctx, func(st Stores) error {
		if err := st.Transactions.MarkBroadcast(ctx, t.ID, hash); err != nil {
			return err
		}
		return st.Confirmations.Record(ctx, &models.MultisigConfirm{
			MultisigTransactionID: t.ID,
			OwnerAddress:          req.OwnerAddress,
			Status:                models.ConfirmStatusSend,
		})
	})
	if err != nil {
		storageInvariantViolations.Inc()
		log.Errorf("SendTransaction: transaction %d accepted by chain as %s but could not be recorded: %v", t.ID, hash, err)
		return nil, xerrors.Errorf("record broadcast %s of transaction %d: %s", hash, t.ID, err.Error())
	}
	transactionEvents.WithLabelValues(string(models.ConfirmStatusSend)).Inc()
	log.Infof("SendTransaction: transaction %d broadcast as %s", t.ID, hash)
	return s.stores.Transactions.FindByID(ctx, t.ID)
}

// assemble builds the signed envelope from the stored confirmations. All
// signers must have signed the same body; strays are left out.
func (s *Service) assemble(safe *models.Safe, t *models.MultisigTransaction, confirms []models.MultisigConfirm) ([]byte, error) {
	if safe.SafePubkey == nil {
		return nil, errorsmod.Wrapf(safeerr.ErrWalletNotReady, "safe %d has no key", safe.ID)
	}
	if len(confirms) == 0 {
		return nil, errorsmod.Wrapf(safeerr.ErrNotReadyForExecution, "transaction %d has no confirmations", t.ID)
	}
	pk, err := multisig.ParseAggregate(*safe.SafePubkey)
	if err != nil {
		return nil, err
	}
	info, err := s.chains.Info(t.ChainID)
	if err != nil {
		return nil, err
	}

	body := confirms[0].BodyBytes
	sigs := make(map[string][]byte, len(confirms))
	for _, c := range confirms {
		if !bytes.Equal(c.BodyBytes, body) {
			log.Warnf("assemble: %s signed a different body for transaction %d, leaving it out", c.OwnerAddress, t.ID)
			continue
		}
		sigs[c.OwnerAddress] = c.Signature
	}

	fee, err := parseAmount("fee", t.Fee)
	if err != nil {
		return nil, err
	}
	var feeCoins sdk.Coins
	if fee.IsPositive() {
		feeCoins = sdk.Coins{sdk.NewCoin(info.Denom, fee)}
	}
	return multisig.Envelope{
		PubKey:     pk,
		Prefix:     info.Prefix,
		Sequence:   t.Sequence,
		Fee:        feeCoins,
		GasLimit:   t.GasLimit,
		BodyBytes:  body,
		Signatures: sigs,
	}.Assemble()
}

// CancelTransaction withdraws a transaction that has not been broadcast.
// Only its creator may cancel it.
func (s *Service) CancelTransaction(ctx context.Context, req ActionRequest) (*models.MultisigTransaction, error) {
	log.Infof("CancelTransaction: %s cancelling transaction %d", req.OwnerAddress, req.TransactionID)

	if err := req.Validate(); err != nil {
		return nil, err
	}
	t, err := s.stores.Transactions.FindByID(ctx, req.TransactionID)
	if err != nil {
		return nil, err
	}
	if t.CreatorAddress != req.OwnerAddress {
		return nil, errorsmod.Wrapf(safeerr.ErrNotCreator, "%s did not create transaction %d", req.OwnerAddress, t.ID)
	}

	unlock := s.locks.lock(txLockKey(t.ID))
	defer unlock()

	if err := s.stores.Transactions.UpdateStatus(ctx, t.ID, models.TxCancel); err != nil {
		return nil, err
	}
	transactionEvents.WithLabelValues(string(models.TxCancel)).Inc()
	return s.stores.Transactions.FindByID(ctx, t.ID)
}
