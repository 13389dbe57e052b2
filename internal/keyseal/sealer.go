// Package keyseal 所有者私钥落盘加密
// 加密密钥由配置的种子先经 scrypt 再经 argon2id 派生，数据用 AES-256-GCM 加密
package keyseal

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"io"

	logging "github.com/ipfs/go-log/v2"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/scrypt"
	"golang.org/x/xerrors"
)

var log = logging.Logger("keyseal")

var (
	ErrEmptySeed         = errors.New("security seed is empty")
	ErrInvalidCiphertext = errors.New("invalid ciphertext")
	ErrDecryptionFailed  = errors.New("decryption failed: authentication error")
)

// Params 密钥派生的计算参数
type Params struct {
	ScryptN       int
	ScryptR       int
	ScryptP       int
	Argon2Time    uint32
	Argon2Memory  uint32 // KiB
	Argon2Threads uint8
}

// DefaultParams 生产环境参数：scrypt N=2^17，argon2id 64 MiB
var DefaultParams = Params{
	ScryptN:       1 << 17,
	ScryptR:       8,
	ScryptP:       1,
	Argon2Time:    3,
	Argon2Memory:  64 * 1024,
	Argon2Threads: 4,
}

const keyLen = 32

// Sealer 使用种子派生的密钥加密和解密数据
type Sealer struct {
	aead cipher.AEAD
}

// NewSealer 使用 DefaultParams 创建 Sealer
// 参数：
//   - seed: 安全种子，不能为空
//
// 返回：Sealer 实例或错误
func NewSealer(seed string) (*Sealer, error) {
	return NewSealerWithParams(seed, DefaultParams)
}

// NewSealerWithParams 使用指定参数创建 Sealer
func NewSealerWithParams(seed string, p Params) (*Sealer, error) {
	if seed == "" {
		return nil, ErrEmptySeed
	}
	log.Debug("NewSealer: deriving sealing key")

	salt := sha256.Sum256([]byte(seed))
	stretched, err := scrypt.Key([]byte(seed), salt[:], p.ScryptN, p.ScryptR, p.ScryptP, keyLen)
	if err != nil {
		return nil, xerrors.Errorf("scrypt: %w", err)
	}
	key := argon2.IDKey(stretched, salt[:], p.Argon2Time, p.Argon2Memory, p.Argon2Threads, keyLen)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &Sealer{aead: aead}, nil
}

// Seal 加密数据
// 返回：nonce || 密文 || tag
func (s *Sealer) Seal(plaintext []byte) ([]byte, error) {
	nonce := make([]byte, s.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	return s.aead.Seal(nonce, nonce, plaintext, nil), nil
}

// Open 解密 Seal 的输出，认证失败时返回 ErrDecryptionFailed
func (s *Sealer) Open(sealed []byte) ([]byte, error) {
	ns := s.aead.NonceSize()
	if len(sealed) < ns+s.aead.Overhead() {
		return nil, ErrInvalidCiphertext
	}
	plaintext, err := s.aead.Open(nil, sealed[:ns], sealed[ns:], nil)
	if err != nil {
		return nil, ErrDecryptionFailed
	}
	return plaintext, nil
}
