package repository

import (
	"context"
	"errors"

	errorsmod "cosmossdk.io/errors"
	"gorm.io/gorm"

	"pyxis-safe/internal/models"
	"pyxis-safe/internal/safeerr"
)

// ConfirmRepo 所有者操作记录仓库
// 保存所有者对交易的确认、拒绝与发送记录
type ConfirmRepo struct {
	db *gorm.DB
}

// Record 保存一条所有者操作
// 同一所有者对同一交易只能 CONFIRM 或 REJECT 一次，重复时返回 ErrAlreadyActed
// 参数：
//   - c: 操作记录，写入后回填 ID
//
// 返回：错误信息
func (r *ConfirmRepo) Record(ctx context.Context, c *models.MultisigConfirm) error {
	log.Infof("Record: %s %s on transaction %d", c.OwnerAddress, c.Status, c.MultisigTransactionID)

	if c.Status != models.ConfirmStatusSend {
		prev, err := r.FindVote(ctx, c.MultisigTransactionID, c.OwnerAddress)
		if err != nil {
			return err
		}
		if prev != nil {
			return errorsmod.Wrapf(safeerr.ErrAlreadyActed, "%s already sent %s on transaction %d", c.OwnerAddress, prev.Status, c.MultisigTransactionID)
		}
	}

	err := r.db.WithContext(ctx).Create(c).Error
	if isUniqueViolation(err) {
		return errorsmod.Wrapf(safeerr.ErrAlreadyActed, "%s on transaction %d", c.OwnerAddress, c.MultisigTransactionID)
	}
	if err != nil {
		log.Errorf("Record: failed to store action: %v", err)
	}
	return err
}

// FindVote 查询所有者在交易上的 CONFIRM 或 REJECT，没有时返回 nil
func (r *ConfirmRepo) FindVote(ctx context.Context, txID uint, owner string) (*models.MultisigConfirm, error) {
	var c models.MultisigConfirm
	err := r.db.WithContext(ctx).
		Where("multisig_transaction_id = ? AND owner_address = ? AND status <> ?", txID, owner, models.ConfirmStatusSend).
		First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ListByTransaction 按操作先后列出交易上的操作记录
// 参数：
//   - txID: 交易 ID
//   - statuses: 可选，只返回这些状态的记录
//
// 返回：操作记录列表或错误
func (r *ConfirmRepo) ListByTransaction(ctx context.Context, txID uint, statuses ...models.ConfirmStatus) ([]models.MultisigConfirm, error) {
	q := r.db.WithContext(ctx).Where("multisig_transaction_id = ?", txID)
	if len(statuses) > 0 {
		q = q.Where("status IN ?", statuses)
	}
	var out []models.MultisigConfirm
	err := q.Order("created_at, id").Find(&out).Error
	return out, err
}

// CountByStatus 统计交易上某一状态的操作数量
func (r *ConfirmRepo) CountByStatus(ctx context.Context, txID uint, status models.ConfirmStatus) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.MultisigConfirm{}).
		Where("multisig_transaction_id = ? AND status = ?", txID, status).
		Count(&n).Error
	return n, err
}
