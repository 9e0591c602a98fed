package keystore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// CredentialsFile near-cli 明文凭据文件格式
type CredentialsFile struct {
	AccountID  string `json:"account_id"`
	PublicKey  string `json:"public_key"`
	PrivateKey string `json:"private_key"`
}

// CredentialsKeyStore 只读访问 near-cli 的明文凭据目录（默认 ~/.near-credentials）
//
// 写入与删除一律返回 ErrReadOnly。
type CredentialsKeyStore struct {
	dir string
}

// DefaultCredentialsDir 返回 ~/.near-credentials
func DefaultCredentialsDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	return filepath.Join(home, ".near-credentials"), nil
}

// NewCredentialsKeyStore 创建凭据目录仓库，不要求目录存在
func NewCredentialsKeyStore(dir string) *CredentialsKeyStore {
	return &CredentialsKeyStore{dir: dir}
}

// SetKey 凭据目录由 near-cli 维护，本仓库只读
func (s *CredentialsKeyStore) SetKey(networkID, accountID string, key KeyPair) error {
	return fmt.Errorf("set %s/%s in %s: %w", networkID, accountID, s.dir, ErrReadOnly)
}

func (s *CredentialsKeyStore) GetKey(networkID, accountID string) (KeyPair, error) {
	data, err := os.ReadFile(keyFilePath(s.dir, networkID, accountID))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read credentials: %w", err)
	}
	var file CredentialsFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse credentials: %w", err)
	}
	if file.PrivateKey == "" {
		return nil, fmt.Errorf("credentials for %s/%s carry no private key", networkID, accountID)
	}
	return ParseKeyPair(file.PrivateKey)
}

func (s *CredentialsKeyStore) RemoveKey(networkID, accountID string) error {
	return fmt.Errorf("remove %s/%s in %s: %w", networkID, accountID, s.dir, ErrReadOnly)
}

func (s *CredentialsKeyStore) Clear() error {
	return fmt.Errorf("clear %s: %w", s.dir, ErrReadOnly)
}

func (s *CredentialsKeyStore) GetNetworks() ([]string, error) {
	return listNetworks(s.dir)
}

func (s *CredentialsKeyStore) GetAccounts(networkID string) ([]string, error) {
	return listAccounts(s.dir, networkID)
}

var _ KeyStore = (*CredentialsKeyStore)(nil)
