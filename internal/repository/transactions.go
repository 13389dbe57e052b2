package repository

import (
	"context"
	"errors"

	errorsmod "cosmossdk.io/errors"
	"gorm.io/gorm"

	"pyxis-safe/internal/models"
	"pyxis-safe/internal/safeerr"
)

// TransactionRepo 多签交易仓库
// 状态只能按 models.TxStatus.CanTransition 向前推进
type TransactionRepo struct {
	db *gorm.DB
}

// TxFilter FindBySafe 的过滤条件，Statuses 为空表示不限状态
type TxFilter struct {
	Statuses []models.TxStatus
	// PageIndex 从 1 开始
	PageIndex int
	PageSize  int
}

// Create 以 AWAITING_CONFIRMATIONS 状态保存交易，钱包必须已创建
func (r *TransactionRepo) Create(ctx context.Context, t *models.MultisigTransaction) error {
	log.Infof("Create: new %s transaction from safe %d", t.TypeURL, t.SafeID)

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var safe models.Safe
		if err := tx.Select("id", "status").First(&safe, t.SafeID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errorsmod.Wrapf(safeerr.ErrWalletNotFound, "safe %d", t.SafeID)
			}
			return err
		}
		if safe.Status != models.SafeStatusCreated {
			return errorsmod.Wrapf(safeerr.ErrWalletNotReady, "safe %d is %s", t.SafeID, safe.Status)
		}
		t.Status = models.TxAwaitingConfirmations
		t.TxHash = nil
		return tx.Create(t).Error
	})
	if err != nil {
		log.Errorf("Create: failed to store transaction: %v", err)
		return err
	}
	log.Infof("Create: transaction %d stored", t.ID)
	return nil
}

// FindByID 按 ID 加载交易，不存在时返回 ErrTransactionNotFound
func (r *TransactionRepo) FindByID(ctx context.Context, id uint) (*models.MultisigTransaction, error) {
	log.Debugf("FindByID: loading transaction %d", id)
	return r.load(r.db.WithContext(ctx), id)
}

// LockByID 加载交易，数据库支持时在当前事务内加行锁
func (r *TransactionRepo) LockByID(ctx context.Context, id uint) (*models.MultisigTransaction, error) {
	return r.load(lockRow(r.db.WithContext(ctx)), id)
}

func (r *TransactionRepo) load(db *gorm.DB, id uint) (*models.MultisigTransaction, error) {
	var t models.MultisigTransaction
	err := db.First(&t, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errorsmod.Wrapf(safeerr.ErrTransactionNotFound, "transaction %d", id)
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// UpdateStatus 修改交易状态
// 以读取到的状态为条件写入，并发修改时本次调用失败而不是覆盖
// 参数：
//   - id: 交易 ID
//   - next: 目标状态
//
// 返回：错误信息（不允许的转换为 ErrInvalidTransition）
func (r *TransactionRepo) UpdateStatus(ctx context.Context, id uint, next models.TxStatus) error {
	log.Infof("UpdateStatus: transaction %d -> %s", id, next)

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cur, err := r.load(lockRow(tx), id)
		if err != nil {
			return err
		}
		if !cur.Status.CanTransition(next) {
			return errorsmod.Wrapf(safeerr.ErrInvalidTransition, "transaction %d: %s -> %s", id, cur.Status, next)
		}
		res := tx.Model(&models.MultisigTransaction{}).
			Where("id = ? AND status = ?", id, cur.Status).
			Update("status", next)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errorsmod.Wrapf(safeerr.ErrInvalidTransition, "transaction %d changed concurrently", id)
		}
		return nil
	})
	if err != nil {
		log.Errorf("UpdateStatus: %v", err)
	}
	return err
}

// MarkBroadcast 记录交易哈希，并在一次条件写入中将 AWAITING_EXECUTION 改为 PENDING
func (r *TransactionRepo) MarkBroadcast(ctx context.Context, id uint, hash string) error {
	log.Infof("MarkBroadcast: transaction %d broadcast as %s", id, hash)

	res := r.db.WithContext(ctx).Model(&models.MultisigTransaction{}).
		Where("id = ? AND status = ?", id, models.TxAwaitingExecution).
		Updates(map[string]any{"status": models.TxPending, "tx_hash": hash})
	if res.Error != nil {
		log.Errorf("MarkBroadcast: update failed: %v", res.Error)
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errorsmod.Wrapf(safeerr.ErrInvalidTransition, "transaction %d is not awaiting execution", id)
	}
	return nil
}

// FindBySafe 分页查询钱包的交易，新的在前
// 参数：
//   - safeID: 钱包 ID
//   - f: 过滤与分页条件
//
// 返回：交易列表、匹配总数或错误
func (r *TransactionRepo) FindBySafe(ctx context.Context, safeID uint, f TxFilter) ([]models.MultisigTransaction, int64, error) {
	q := r.db.WithContext(ctx).Model(&models.MultisigTransaction{}).Where("safe_id = ?", safeID)
	if len(f.Statuses) > 0 {
		q = q.Where("status IN ?", f.Statuses)
	}
	q = q.Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if f.PageSize > 0 {
		page := f.PageIndex
		if page < 1 {
			page = 1
		}
		q = q.Offset((page - 1) * f.PageSize).Limit(f.PageSize)
	}
	var txs []models.MultisigTransaction
	if err := q.Order("created_at DESC, id DESC").Find(&txs).Error; err != nil {
		return nil, 0, err
	}
	return txs, total, nil
}

// FindByStatus 按 ID 升序返回 ID 大于 afterID 的指定状态交易，最多 limit 条
func (r *TransactionRepo) FindByStatus(ctx context.Context, status models.TxStatus, afterID uint, limit int) ([]models.MultisigTransaction, error) {
	q := r.db.WithContext(ctx).Where("status = ? AND id > ?", status, afterID).Order("id")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var txs []models.MultisigTransaction
	err := q.Find(&txs).Error
	return txs, err
}
