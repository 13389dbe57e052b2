package safe

import (
	"context"

	errorsmod "cosmossdk.io/errors"

	"pyxis-safe/internal/models"
	"pyxis-safe/internal/multisig"
	"pyxis-safe/internal/safeerr"
)

// CreateWallet stores a new safe. A safe without other owners is derived and
// CREATED at once; otherwise it stays PENDING until every owner has joined.
func (s *Service) CreateWallet(ctx context.Context, req CreateWalletRequest) (*models.Safe, error) {
	log.Infof("CreateWallet: %s proposing %d-of-%d safe on %s", req.CreatorAddress, req.Threshold, len(req.OtherOwners)+1, req.ChainID)

	if err := req.Validate(); err != nil {
		return nil, err
	}
	info, err := s.chains.Info(req.ChainID)
	if err != nil {
		return nil, err
	}
	creatorKey, err := multisig.DecodePubKey(req.CreatorPubkey)
	if err != nil {
		return nil, err
	}
	creatorAddr, err := multisig.AccountAddress(creatorKey, info.Prefix)
	if err != nil {
		return nil, err
	}
	if creatorAddr != req.CreatorAddress {
		return nil, errorsmod.Wrapf(safeerr.ErrInvalidKeyMaterial, "pubkey belongs to %s, not %s", creatorAddr, req.CreatorAddress)
	}
	for _, o := range req.OtherOwners {
		if err := multisig.ValidateAddress(o, info.Prefix); err != nil {
			return nil, err
		}
	}

	owners := req.Owners()
	safe := &models.Safe{
		ChainID:        req.ChainID,
		CreatorAddress: req.CreatorAddress,
		CreatorPubkey:  req.CreatorPubkey,
		Threshold:      req.Threshold,
		Status:         models.SafeStatusPending,
		AddressHash:    multisig.Fingerprint(req.ChainID, owners, req.Threshold),
	}
	if len(req.OtherOwners) == 0 {
		d, err := multisig.Derive([][]byte{creatorKey.Bytes()}, req.Threshold, info.Prefix)
		if err != nil {
			return nil, err
		}
		safe.SafeAddress = &d.Address
		safe.SafePubkey = &d.PubKey
		safe.Status = models.SafeStatusCreated
	}

	creatorPubkey := req.CreatorPubkey
	rows := make([]models.SafeOwner, 0, len(owners))
	rows = append(rows, models.SafeOwner{OwnerAddress: req.CreatorAddress, OwnerPubkey: &creatorPubkey})
	for _, o := range req.OtherOwners {
		rows = append(rows, models.SafeOwner{OwnerAddress: o})
	}

	if err := s.stores.Wallets.InsertPending(ctx, safe, rows); err != nil {
		log.Errorf("CreateWallet: %v", err)
		return nil, err
	}
	s.roster.Invalidate(req.ChainID, owners...)
	walletEvents.WithLabelValues("proposed").Inc()
	if safe.Status == models.SafeStatusCreated {
		walletEvents.WithLabelValues("created").Inc()
	}
	log.Infof("CreateWallet: safe %d is %s", safe.ID, safe.Status)
	return s.stores.Wallets.FindByID(ctx, safe.ID)
}

// ConfirmWallet records an owner's pubkey on a PENDING safe. The owner that
// completes the roster triggers derivation and the safe becomes CREATED.
func (s *Service) ConfirmWallet(ctx context.Context, req ConfirmWalletRequest) (*models.Safe, error) {
	log.Infof("ConfirmWallet: %s joining safe %d", req.OwnerAddress, req.SafeID)

	if err := req.Validate(); err != nil {
		return nil, err
	}
	key, err := multisig.DecodePubKey(req.OwnerPubkey)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.lock(safeLockKey(req.SafeID))
	defer unlock()

	var created bool
	err = s.backend.Atomic(ctx, func(st Stores) error {
		safe, err := st.Wallets.LockByID(ctx, req.SafeID)
		if err != nil {
			return err
		}
		if safe.Status != models.SafeStatusPending {
			return errorsmod.Wrapf(safeerr.ErrNotPending, "safe %d is %s", safe.ID, safe.Status)
		}
		info, err := s.chains.Info(safe.ChainID)
		if err != nil {
			return err
		}
		addr, err := multisig.AccountAddress(key, info.Prefix)
		if err != nil {
			return err
		}
		if addr != req.OwnerAddress {
			return errorsmod.Wrapf(safeerr.ErrInvalidKeyMaterial, "pubkey belongs to %s, not %s", addr, req.OwnerAddress)
		}
		if err := st.Owners.SetPubkey(ctx, safe.ID, req.OwnerAddress, req.OwnerPubkey); err != nil {
			return err
		}

		roster, err := st.Owners.ListBySafe(ctx, safe.ID)
		if err != nil {
			return err
		}
		keys := make([][]byte, 0, len(roster))
		for _, o := range roster {
			if o.OwnerPubkey == nil {
				log.Debugf("ConfirmWallet: safe %d still waiting on %s", safe.ID, o.OwnerAddress)
				return nil
			}
			pk, err := multisig.DecodePubKey(*o.OwnerPubkey)
			if err != nil {
				return err
			}
			keys = append(keys, pk.Bytes())
		}
		d, err := multisig.Derive(keys, safe.Threshold, info.Prefix)
		if err != nil {
			return err
		}
		if err := st.Wallets.MarkCreated(ctx, safe.ID, d.Address, d.PubKey); err != nil {
			return err
		}
		created = true
		return nil
	})
	if err != nil {
		log.Errorf("ConfirmWallet: %v", err)
		return nil, err
	}

	safe, err := s.stores.Wallets.FindByID(ctx, req.SafeID)
	if err != nil {
		return nil, err
	}
	s.invalidateRoster(safe)
	walletEvents.WithLabelValues("joined").Inc()
	if created {
		walletEvents.WithLabelValues("created").Inc()
		log.Infof("ConfirmWallet: safe %d created as %s", safe.ID, safe.Address())
	}
	return safe, nil
}

// DeleteWallet soft-deletes a PENDING safe. Only its creator may do so.
func (s *Service) DeleteWallet(ctx context.Context, req DeleteWalletRequest) (*models.Safe, error) {
	log.Infof("DeleteWallet: %s deleting safe %d", req.RequesterAddress, req.SafeID)

	if err := req.Validate(); err != nil {
		return nil, err
	}
	unlock := s.locks.lock(safeLockKey(req.SafeID))
	defer unlock()

	if _, err := s.stores.Wallets.MarkDeleted(ctx, req.SafeID, req.RequesterAddress); err != nil {
		return nil, err
	}
	safe, err := s.stores.Wallets.FindByID(ctx, req.SafeID)
	if err != nil {
		return nil, err
	}
	s.invalidateRoster(safe)
	walletEvents.WithLabelValues("deleted").Inc()
	return safe, nil
}

func (s *Service) GetWallet(ctx context.Context, id uint) (*models.Safe, error) {
	return s.stores.Wallets.FindByID(ctx, id)
}

// ListWallets returns the live safes owner belongs to on chainID.
func (s *Service) ListWallets(ctx context.Context, owner, chainID string) ([]models.Safe, error) {
	if owner == "" || chainID == "" {
		return nil, invalid("owner and chain id are required")
	}
	log.Debugf("ListWallets: %s on %s", owner, chainID)
	return s.stores.Wallets.FindByOwnerAndChain(ctx, owner, chainID)
}

func (s *Service) invalidateRoster(safe *models.Safe) {
	owners := make([]string, len(safe.Owners))
	for i, o := range safe.Owners {
		owners[i] = o.OwnerAddress
	}
	s.roster.Invalidate(safe.ChainID, owners...)
}
