package keystore

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/pbkdf2"
)

// DefaultKDFIterations PBKDF2 默认迭代次数
const DefaultKDFIterations = 262144

// KeyFileV1 加密密钥文件格式
type KeyFileV1 struct {
	Version   string     `json:"version"` // "1.0.0"
	ID        string     `json:"id"`      // UUID
	NetworkID string     `json:"network_id"`
	AccountID string     `json:"account_id"`
	PublicKey string     `json:"public_key"`
	Crypto    CryptoJSON `json:"crypto"`
	CreatedAt string     `json:"created_at"`
}

// CryptoJSON 加密参数
type CryptoJSON struct {
	Cipher       string       `json:"cipher"`     // "aes-256-gcm"
	Ciphertext   string       `json:"ciphertext"` // hex
	CipherParams CipherParams `json:"cipherparams"`
	KDF          string       `json:"kdf"` // "pbkdf2"
	KDFParams    KDFParams    `json:"kdfparams"`
}

// CipherParams 密码参数
type CipherParams struct {
	IV string `json:"iv"`
}

// KDFParams PBKDF2 参数
type KDFParams struct {
	DKLen int    `json:"dklen"`
	Salt  string `json:"salt"`
	C     int    `json:"c"`
	PRF   string `json:"prf"` // "hmac-sha256"
}

// FileKeyStore 口令加密的文件密钥仓库
//
// 目录结构：<dir>/<networkID>/<accountID>.json，文件权限 0600。
type FileKeyStore struct {
	dir        string
	password   []byte
	iterations int
	mu         sync.Mutex
}

// FileKeyStoreOption 文件仓库选项
type FileKeyStoreOption func(*FileKeyStore)

// WithKDFIterations 设置新写入文件的 PBKDF2 迭代次数
func WithKDFIterations(n int) FileKeyStoreOption {
	return func(s *FileKeyStore) {
		if n > 0 {
			s.iterations = n
		}
	}
}

// NewFileKeyStore 创建加密文件仓库
func NewFileKeyStore(dir, password string, opts ...FileKeyStoreOption) (*FileKeyStore, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("keystore dir is empty")
	}
	if password == "" {
		return nil, fmt.Errorf("keystore password is empty")
	}
	s := &FileKeyStore{
		dir:        dir,
		password:   []byte(password),
		iterations: DefaultKDFIterations,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Dir 返回仓库根目录
func (s *FileKeyStore) Dir() string { return s.dir }

func (s *FileKeyStore) SetKey(networkID, accountID string, key KeyPair) error {
	if err := validateEntry(networkID, accountID); err != nil {
		return err
	}
	if key == nil {
		return fmt.Errorf("nil key for %s/%s", networkID, accountID)
	}

	crypto, err := encrypt([]byte(key.String()), s.password, s.iterations)
	if err != nil {
		return fmt.Errorf("encrypt: %w", err)
	}

	file := KeyFileV1{
		Version:   "1.0.0",
		ID:        uuid.New().String(),
		NetworkID: networkID,
		AccountID: accountID,
		PublicKey: key.PublicKey().String(),
		Crypto:    crypto,
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
	}
	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return writeKeyFile(s.dir, networkID, accountID, data)
}

func (s *FileKeyStore) GetKey(networkID, accountID string) (KeyPair, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(keyFilePath(s.dir, networkID, accountID))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read keystore: %w", err)
	}

	var file KeyFileV1
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse keystore: %w", err)
	}
	derived, err := deriveKey(s.password, file.Crypto)
	if err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}
	plaintext, err := decrypt(file.Crypto, derived)
	if err != nil {
		return nil, fmt.Errorf("decrypt: %w", err)
	}
	key, err := ParseKeyPair(string(plaintext))
	if err != nil {
		return nil, fmt.Errorf("parse stored key: %w", err)
	}
	if file.PublicKey != "" && key.PublicKey().String() != file.PublicKey {
		return nil, fmt.Errorf("stored key does not match public key %s", file.PublicKey)
	}
	return key, nil
}

func (s *FileKeyStore) RemoveKey(networkID, accountID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return removeKeyFile(s.dir, networkID, accountID)
}

func (s *FileKeyStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return clearDir(s.dir)
}

func (s *FileKeyStore) GetNetworks() ([]string, error) {
	return listNetworks(s.dir)
}

func (s *FileKeyStore) GetAccounts(networkID string) ([]string, error) {
	return listAccounts(s.dir, networkID)
}

var _ KeyStore = (*FileKeyStore)(nil)

// ===== 加解密辅助函数 =====

func deriveKey(password []byte, crypto CryptoJSON) ([]byte, error) {
	salt, err := hex.DecodeString(crypto.KDFParams.Salt)
	if err != nil {
		return nil, fmt.Errorf("decode salt: %w", err)
	}
	switch crypto.KDF {
	case "pbkdf2":
		if crypto.KDFParams.C <= 0 || crypto.KDFParams.DKLen != 32 {
			return nil, fmt.Errorf("invalid pbkdf2 params")
		}
		return pbkdf2.Key(password, salt, crypto.KDFParams.C, crypto.KDFParams.DKLen, sha256.New), nil
	default:
		return nil, fmt.Errorf("unsupported KDF: %s", crypto.KDF)
	}
}

func decrypt(crypto CryptoJSON, key []byte) ([]byte, error) {
	if crypto.Cipher != "aes-256-gcm" {
		return nil, fmt.Errorf("unsupported cipher: %s", crypto.Cipher)
	}
	ciphertext, err := hex.DecodeString(crypto.Ciphertext)
	if err != nil {
		return nil, fmt.Errorf("decode ciphertext: %w", err)
	}
	iv, err := hex.DecodeString(crypto.CipherParams.IV)
	if err != nil {
		return nil, fmt.Errorf("decode iv: %w", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("new cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("new gcm: %w", err)
	}
	if len(iv) != gcm.NonceSize() {
		return nil, fmt.Errorf("invalid iv length %d", len(iv))
	}
	plaintext, err := gcm.Open(nil, iv, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("gcm decrypt: %w (wrong password?)", err)
	}
	return plaintext, nil
}

func encrypt(plaintext, password []byte, iterations int) (CryptoJSON, error) {
	salt := make([]byte, 32)
	if _, err := rand.Read(salt); err != nil {
		return CryptoJSON{}, fmt.Errorf("generate salt: %w", err)
	}
	key := pbkdf2.Key(password, salt, iterations, 32, sha256.New)

	block, err := aes.NewCipher(key)
	if err != nil {
		return CryptoJSON{}, fmt.Errorf("new cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return CryptoJSON{}, fmt.Errorf("new gcm: %w", err)
	}
	iv := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return CryptoJSON{}, fmt.Errorf("generate iv: %w", err)
	}

	return CryptoJSON{
		Cipher:       "aes-256-gcm",
		Ciphertext:   hex.EncodeToString(gcm.Seal(nil, iv, plaintext, nil)),
		CipherParams: CipherParams{IV: hex.EncodeToString(iv)},
		KDF:          "pbkdf2",
		KDFParams: KDFParams{
			DKLen: 32,
			Salt:  hex.EncodeToString(salt),
			C:     iterations,
			PRF:   "hmac-sha256",
		},
	}, nil
}

// KeyFileInfo 密钥文件中的明文字段
type KeyFileInfo struct {
	NetworkID string `json:"network_id"`
	AccountID string `json:"account_id"`
	PublicKey string `json:"public_key"`
	CreatedAt string `json:"created_at"`
}

// ListKeyFiles 列出加密仓库中的全部密钥，只读明文字段，不需要密码
func ListKeyFiles(dir string) ([]KeyFileInfo, error) {
	networks, err := listNetworks(dir)
	if err != nil {
		return nil, err
	}
	out := make([]KeyFileInfo, 0)
	for _, n := range networks {
		accounts, err := listAccounts(dir, n)
		if err != nil {
			return nil, err
		}
		for _, a := range accounts {
			data, err := os.ReadFile(keyFilePath(dir, n, a))
			if err != nil {
				return nil, fmt.Errorf("read keystore file: %w", err)
			}
			var file KeyFileV1
			if err := json.Unmarshal(data, &file); err != nil {
				return nil, fmt.Errorf("parse keystore file %s/%s: %w", n, a, err)
			}
			out = append(out, KeyFileInfo{NetworkID: n, AccountID: a, PublicKey: file.PublicKey, CreatedAt: file.CreatedAt})
		}
	}
	return out, nil
}

// ===== 目录布局辅助函数，加密与明文仓库共用 =====

func keyFilePath(dir, networkID, accountID string) string {
	return filepath.Join(dir, networkID, accountID+".json")
}

func writeKeyFile(dir, networkID, accountID string, data []byte) error {
	if strings.ContainsAny(accountID, `/\`) || strings.ContainsAny(networkID, `/\`) {
		return fmt.Errorf("invalid path component in %s/%s", networkID, accountID)
	}
	if err := os.MkdirAll(filepath.Join(dir, networkID), 0700); err != nil {
		return fmt.Errorf("create keystore dir: %w", err)
	}
	if err := os.WriteFile(keyFilePath(dir, networkID, accountID), data, 0600); err != nil {
		return fmt.Errorf("write keystore file: %w", err)
	}
	return nil
}

func removeKeyFile(dir, networkID, accountID string) error {
	err := os.Remove(keyFilePath(dir, networkID, accountID))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove keystore file: %w", err)
	}
	return nil
}

func clearDir(dir string) error {
	networks, err := listNetworks(dir)
	if err != nil {
		return err
	}
	for _, n := range networks {
		accounts, err := listAccounts(dir, n)
		if err != nil {
			return err
		}
		for _, a := range accounts {
			if err := removeKeyFile(dir, n, a); err != nil {
				return err
			}
		}
	}
	return nil
}

func listNetworks(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read keystore dir: %w", err)
	}
	seen := make(map[string]struct{})
	for _, e := range entries {
		if e.IsDir() {
			seen[e.Name()] = struct{}{}
		}
	}
	return sortedKeys(seen), nil
}

func listAccounts(dir, networkID string) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(dir, networkID))
	if errors.Is(err, os.ErrNotExist) {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read network dir: %w", err)
	}
	seen := make(map[string]struct{})
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		seen[strings.TrimSuffix(e.Name(), ".json")] = struct{}{}
	}
	return sortedKeys(seen), nil
}
