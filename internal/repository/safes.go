package repository

import (
	"context"
	"errors"

	errorsmod "cosmossdk.io/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"pyxis-safe/internal/models"
	"pyxis-safe/internal/safeerr"
)

// SafeRepo 多签钱包仓库
// 未删除的钱包之间指纹唯一
type SafeRepo struct {
	db *gorm.DB
}

// InsertPending 保存钱包及其所有者列表
// 只有一个所有者时钱包可以直接是 CREATED 状态
// 参数：
//   - safe: 钱包记录
//   - owners: 所有者列表
//
// 返回：错误信息（指纹冲突时为 ErrDuplicateWallet）
func (r *SafeRepo) InsertPending(ctx context.Context, safe *models.Safe, owners []models.SafeOwner) error {
	log.Infof("InsertPending: inserting %s safe for creator %s on %s", safe.Status, safe.CreatorAddress, safe.ChainID)

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var live int64
		if err := tx.Model(&models.Safe{}).
			Where("address_hash = ? AND status <> ?", safe.AddressHash, models.SafeStatusDeleted).
			Count(&live).Error; err != nil {
			return err
		}
		if live > 0 {
			return errorsmod.Wrapf(safeerr.ErrDuplicateWallet, "fingerprint %s", safe.AddressHash)
		}
		if err := tx.Omit(clause.Associations).Create(safe).Error; err != nil {
			return err
		}
		for i := range owners {
			owners[i].SafeID = safe.ID
			owners[i].ChainID = safe.ChainID
		}
		if len(owners) == 0 {
			return nil
		}
		return tx.Create(&owners).Error
	})
	if isUniqueViolation(err) {
		err = errorsmod.Wrapf(safeerr.ErrDuplicateWallet, "fingerprint %s", safe.AddressHash)
	}
	if err != nil {
		log.Errorf("InsertPending: failed to insert safe: %v", err)
		return err
	}
	log.Infof("InsertPending: safe %d stored", safe.ID)
	return nil
}

// MarkCreated 将 PENDING 钱包改为 CREATED，并写入派生出的地址和公钥
func (r *SafeRepo) MarkCreated(ctx context.Context, id uint, address, pubkey string) error {
	log.Infof("MarkCreated: safe %d derived as %s", id, address)

	res := r.db.WithContext(ctx).Model(&models.Safe{}).
		Where("id = ? AND status = ?", id, models.SafeStatusPending).
		Updates(map[string]any{
			"safe_address": address,
			"safe_pubkey":  pubkey,
			"status":       models.SafeStatusCreated,
		})
	if isUniqueViolation(res.Error) {
		return errorsmod.Wrapf(safeerr.ErrDuplicateWallet, "address %s already in use", address)
	}
	if res.Error != nil {
		log.Errorf("MarkCreated: update failed: %v", res.Error)
		return res.Error
	}
	if res.RowsAffected == 0 {
		if _, err := r.FindByID(ctx, id); err != nil {
			return err
		}
		return errorsmod.Wrapf(safeerr.ErrNotPending, "safe %d", id)
	}
	return nil
}

// MarkDeleted 由创建者软删除 PENDING 状态的钱包
// 参数：
//   - id: 钱包 ID
//   - requester: 请求者地址，必须是创建者
//
// 返回：删除后的钱包或错误
func (r *SafeRepo) MarkDeleted(ctx context.Context, id uint, requester string) (*models.Safe, error) {
	log.Infof("MarkDeleted: %s deleting safe %d", requester, id)

	var safe models.Safe
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockRow(tx).First(&safe, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errorsmod.Wrapf(safeerr.ErrWalletNotFound, "safe %d", id)
			}
			return err
		}
		if safe.CreatorAddress != requester {
			return errorsmod.Wrapf(safeerr.ErrNotCreator, "%s did not create safe %d", requester, id)
		}
		if safe.Status != models.SafeStatusPending {
			return errorsmod.Wrapf(safeerr.ErrNotPending, "safe %d is %s", id, safe.Status)
		}
		safe.Status = models.SafeStatusDeleted
		return tx.Model(&safe).Update("status", models.SafeStatusDeleted).Error
	})
	if err != nil {
		log.Errorf("MarkDeleted: %v", err)
		return nil, err
	}
	return &safe, nil
}

// FindByFingerprint 返回指纹相同的有效钱包
func (r *SafeRepo) FindByFingerprint(ctx context.Context, hash string) ([]models.Safe, error) {
	var safes []models.Safe
	err := r.db.WithContext(ctx).
		Where("address_hash = ? AND status <> ?", hash, models.SafeStatusDeleted).
		Find(&safes).Error
	return safes, err
}

// FindByID 按 ID 加载钱包及其所有者
func (r *SafeRepo) FindByID(ctx context.Context, id uint) (*models.Safe, error) {
	log.Debugf("FindByID: loading safe %d", id)

	var safe models.Safe
	err := r.db.WithContext(ctx).
		Preload("Owners", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		First(&safe, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errorsmod.Wrapf(safeerr.ErrWalletNotFound, "safe %d", id)
	}
	if err != nil {
		return nil, err
	}
	return &safe, nil
}

// LockByID 加载钱包，数据库支持时在当前事务内加行锁
func (r *SafeRepo) LockByID(ctx context.Context, id uint) (*models.Safe, error) {
	var safe models.Safe
	err := lockRow(r.db.WithContext(ctx)).First(&safe, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errorsmod.Wrapf(safeerr.ErrWalletNotFound, "safe %d", id)
	}
	if err != nil {
		return nil, err
	}
	return &safe, nil
}

// FindByAddress 按多签地址加载已创建的钱包
func (r *SafeRepo) FindByAddress(ctx context.Context, address string) (*models.Safe, error) {
	var safe models.Safe
	err := r.db.WithContext(ctx).Where("safe_address = ?", address).First(&safe).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errorsmod.Wrapf(safeerr.ErrWalletNotFound, "safe %s", address)
	}
	if err != nil {
		return nil, err
	}
	return &safe, nil
}

// Threshold 返回多签地址对应钱包的签名门限
func (r *SafeRepo) Threshold(ctx context.Context, address string) (int, error) {
	safe, err := r.FindByAddress(ctx, address)
	if err != nil {
		return 0, err
	}
	return safe.Threshold, nil
}

// FindByOwnerAndChain 列出所有者在某条链上的有效钱包
func (r *SafeRepo) FindByOwnerAndChain(ctx context.Context, owner, chainID string) ([]models.Safe, error) {
	var safes []models.Safe
	err := r.db.WithContext(ctx).
		Joins("JOIN safe_owners ON safe_owners.safe_id = safes.id").
		Where("safe_owners.owner_address = ? AND safes.chain_id = ? AND safes.status <> ?", owner, chainID, models.SafeStatusDeleted).
		Preload("Owners", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		Order("safes.id").
		Find(&safes).Error
	return safes, err
}
