package repository

import (
	"context"
	"errors"

	"golang.org/x/xerrors"
	"gorm.io/gorm"

	"pyxis-safe/internal/models"
)

// ErrKeyNotFound 本地没有对应的所有者密钥
var ErrKeyNotFound = errors.New("owner key not found")

// Sealer 密钥加密接口，私钥落盘前必须加密
type Sealer interface {
	Seal(plaintext []byte) ([]byte, error)
	Open(sealed []byte) ([]byte, error)
}

// KeyRepo 本地所有者密钥仓库
// 私钥以加密形式存储
type KeyRepo struct {
	db     *gorm.DB
	sealer Sealer
}

// Save 加密并保存私钥，同名密钥会被替换
// 参数：
//   - name: 密钥名称
//   - address: 所有者地址
//   - pubKey: base64 编码的公钥
//   - priv: 私钥明文
//
// 返回：错误信息
func (r *KeyRepo) Save(ctx context.Context, name, address, pubKey string, priv []byte) error {
	log.Infof("Save: saving key %s for address %s", name, address)

	enc, err := r.sealer.Seal(priv)
	if err != nil {
		log.Errorf("Save: failed to seal key: %v", err)
		return err
	}

	var existing models.OwnerKey
	err = r.db.WithContext(ctx).Where("name = ?", name).First(&existing).Error
	switch {
	case err == nil:
		log.Infof("Save: replacing existing key %s", name)
		existing.Address = address
		existing.PubKey = pubKey
		existing.EncryptedKey = enc
		if err := r.db.WithContext(ctx).Save(&existing).Error; err != nil {
			log.Errorf("Save: failed to update key: %v", err)
			return err
		}
		return nil
	case !errors.Is(err, gorm.ErrRecordNotFound):
		log.Errorf("Save: database error when checking existing key: %v", err)
		return err
	}

	item := &models.OwnerKey{
		Name:         name,
		Address:      address,
		PubKey:       pubKey,
		EncryptedKey: enc,
	}
	if err := r.db.WithContext(ctx).Create(item).Error; err != nil {
		if isUniqueViolation(err) {
			return xerrors.Errorf("address %s is already stored under another name", address)
		}
		log.Errorf("Save: failed to create key: %v", err)
		return err
	}
	log.Infof("Save: successfully saved key %s", name)
	return nil
}

// Get 按名称或地址读取密钥，并解密私钥
// 返回：密钥记录、私钥明文或错误（不存在时为 ErrKeyNotFound）
func (r *KeyRepo) Get(ctx context.Context, nameOrAddress string) (*models.OwnerKey, []byte, error) {
	log.Debugf("Get: retrieving key %s", nameOrAddress)

	var item models.OwnerKey
	err := r.db.WithContext(ctx).Where("name = ? OR address = ?", nameOrAddress, nameOrAddress).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, xerrors.Errorf("%s: %w", nameOrAddress, ErrKeyNotFound)
	}
	if err != nil {
		return nil, nil, err
	}
	priv, err := r.sealer.Open(item.EncryptedKey)
	if err != nil {
		log.Errorf("Get: failed to open key %s: %v", item.Name, err)
		return nil, nil, err
	}
	return &item, priv, nil
}

// List 列出所有密钥，不含私钥
func (r *KeyRepo) List(ctx context.Context) ([]models.OwnerKey, error) {
	var items []models.OwnerKey
	if err := r.db.WithContext(ctx).Omit("encrypted_key").Order("name").Find(&items).Error; err != nil {
		log.Errorf("List: failed to query keys: %v", err)
		return nil, err
	}
	return items, nil
}

// Delete 删除指定名称的密钥
func (r *KeyRepo) Delete(ctx context.Context, name string) error {
	log.Infof("Delete: deleting key %s", name)

	res := r.db.WithContext(ctx).Where("name = ?", name).Delete(&models.OwnerKey{})
	if res.Error != nil {
		log.Errorf("Delete: failed to delete key %s: %v", name, res.Error)
		return res.Error
	}
	if res.RowsAffected == 0 {
		return xerrors.Errorf("%s: %w", name, ErrKeyNotFound)
	}
	return nil
}
