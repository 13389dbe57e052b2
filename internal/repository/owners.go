package repository

import (
	"context"

	errorsmod "cosmossdk.io/errors"
	"gorm.io/gorm"

	"pyxis-safe/internal/models"
	"pyxis-safe/internal/safeerr"
)

// OwnerRepo 多签所有者仓库
type OwnerRepo struct {
	db *gorm.DB
}

// ListWalletsForOwner 列出所有者在某条链上加入的有效多签钱包
// 参数：
//   - owner: 所有者地址
//   - chainID: 链 ID
//
// 返回：钱包列表或错误
func (r *OwnerRepo) ListWalletsForOwner(ctx context.Context, owner, chainID string) ([]models.OwnerWallet, error) {
	log.Debugf("ListWalletsForOwner: %s on %s", owner, chainID)

	var rows []models.OwnerWallet
	err := r.db.WithContext(ctx).
		Table("safe_owners").
		Select("safes.id AS safe_id, safes.safe_address, safes.creator_address, safes.threshold, safes.status, "+
			"safe_owners.owner_address, safe_owners.owner_pubkey, safe_owners.chain_id").
		Joins("JOIN safes ON safes.id = safe_owners.safe_id").
		Where("safe_owners.owner_address = ? AND safe_owners.chain_id = ? AND safes.status <> ?", owner, chainID, models.SafeStatusDeleted).
		Order("safes.id").
		Scan(&rows).Error
	return rows, err
}

// ListBySafe 按加入顺序返回多签钱包的所有者列表
func (r *OwnerRepo) ListBySafe(ctx context.Context, safeID uint) ([]models.SafeOwner, error) {
	var owners []models.SafeOwner
	err := r.db.WithContext(ctx).Where("safe_id = ?", safeID).Order("id").Find(&owners).Error
	return owners, err
}

// SetPubkey 记录所有者加入时提交的公钥
// 每个所有者只能加入一次
func (r *OwnerRepo) SetPubkey(ctx context.Context, safeID uint, owner, pubkey string) error {
	log.Infof("SetPubkey: %s joining safe %d", owner, safeID)

	res := r.db.WithContext(ctx).Model(&models.SafeOwner{}).
		Where("safe_id = ? AND owner_address = ? AND owner_pubkey IS NULL", safeID, owner).
		Update("owner_pubkey", pubkey)
	if res.Error != nil {
		log.Errorf("SetPubkey: update failed: %v", res.Error)
		return res.Error
	}
	if res.RowsAffected == 1 {
		return nil
	}

	var n int64
	if err := r.db.WithContext(ctx).Model(&models.SafeOwner{}).
		Where("safe_id = ? AND owner_address = ?", safeID, owner).
		Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return errorsmod.Wrapf(safeerr.ErrPermissionDenied, "%s is not an owner of safe %d", owner, safeID)
	}
	return errorsmod.Wrapf(safeerr.ErrAlreadyActed, "%s already joined safe %d", owner, safeID)
}
