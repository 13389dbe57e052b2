package repository

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"

	logging "github.com/ipfs/go-log/v2"
	"golang.org/x/xerrors"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"pyxis-safe/internal/models"
)

var log = logging.Logger("repository")

const (
	// InMemoryDSN 内存数据库，测试使用
	InMemoryDSN = ":memory:"

	defaultDirName = ".pyxis-safe"
	defaultDBName  = "safe.db"
)

var schemaModels = []any{
	&models.Safe{},
	&models.SafeOwner{},
	&models.MultisigTransaction{},
	&models.MultisigConfirm{},
	&models.OwnerKey{},
}

// partialIndexes AutoMigrate 无法表达的部分唯一索引
// 已删除的钱包释放其指纹，SEND 记录不算作所有者的投票
var partialIndexes = []string{
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_safes_live_address_hash ON safes (address_hash) WHERE status <> 'DELETED'`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_confirms_owner_vote ON multisig_confirms (multisig_transaction_id, owner_address) WHERE status <> 'SEND'`,
}

// Store 数据存储结构
// 封装 GORM 数据库连接，在 Transaction 内绑定到当前数据库事务
type Store struct {
	DB *gorm.DB
}

// DefaultPath 默认数据库路径 ~/.pyxis-safe/safe.db
func DefaultPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, defaultDirName, defaultDBName), nil
}

// OpenStore 打开数据库存储
// 使用 SQLite 数据库，自动创建数据库文件并迁移表结构
// 参数：
//   - dbPath: SQLite 数据库文件路径，为空时使用 DefaultPath
//
// 返回：Store 实例或错误
func OpenStore(dbPath string) (*Store, error) {
	log.Debug("OpenStore: opening SQLite database connection")

	if dbPath == "" {
		p, err := DefaultPath()
		if err != nil {
			log.Errorf("OpenStore: failed to get home directory: %v", err)
			return nil, err
		}
		dbPath = p
	}

	dsn := dbPath
	if dbPath != InMemoryDSN {
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0o750); err != nil {
			log.Errorf("OpenStore: failed to create directory %s: %v", dir, err)
			return nil, err
		}
		if !strings.Contains(dsn, "?") {
			dsn += "?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on"
		}
	}

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		log.Errorf("OpenStore: failed to open database: %v", err)
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, xerrors.Errorf("get sql.DB: %w", err)
	}
	// 只用一个连接：SQLite 写入本身串行，内存数据库按连接隔离
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(0)

	if err := migrate(db); err != nil {
		log.Errorf("OpenStore: auto migration failed: %v", err)
		_ = sqlDB.Close()
		return nil, err
	}

	log.Debugf("OpenStore: SQLite database opened successfully at %s", dbPath)
	return &Store{DB: db}, nil
}

// OpenInMemory 打开已迁移的内存数据库
func OpenInMemory() (*Store, error) {
	return OpenStore(InMemoryDSN)
}

func migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(schemaModels...); err != nil {
		return xerrors.Errorf("auto migrate: %w", err)
	}
	for _, stmt := range partialIndexes {
		if err := db.Exec(stmt).Error; err != nil {
			return xerrors.Errorf("create index: %w", err)
		}
	}
	return nil
}

// Close 关闭数据库连接
func (s *Store) Close() error {
	sqlDB, err := s.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Transaction 在一个数据库事务内执行 fn
// fn 只能使用传入的 tx，外层 Store 与其共用唯一的连接
// 参数：
//   - fn: 事务内的操作，返回错误时回滚
//
// 返回：错误信息
func (s *Store) Transaction(ctx context.Context, fn func(tx *Store) error) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{DB: tx})
	})
}

// 各数据表仓库
func (s *Store) Safes() *SafeRepo               { return &SafeRepo{db: s.DB} }
func (s *Store) Owners() *OwnerRepo             { return &OwnerRepo{db: s.DB} }
func (s *Store) Transactions() *TransactionRepo { return &TransactionRepo{db: s.DB} }
func (s *Store) Confirms() *ConfirmRepo         { return &ConfirmRepo{db: s.DB} }
func (s *Store) Keys(sealer Sealer) *KeyRepo    { return &KeyRepo{db: s.DB, sealer: sealer} }

// isUniqueViolation 同时匹配 gorm 转换后的错误和驱动原始错误信息
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, gorm.ErrDuplicatedKey) || strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// lockRow 在支持行锁的数据库上追加 SELECT ... FOR UPDATE
func lockRow(db *gorm.DB) *gorm.DB {
	if db.Dialector.Name() == "sqlite" {
		return db
	}
	return db.Clauses(clause.Locking{Strength: "UPDATE"})
}
