package keystore

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// KeyStore 按 (networkID, accountID) 保存签名密钥
//
// GetKey 在密钥不存在时返回 (nil, nil)，由上层决定是否视为错误。
type KeyStore interface {
	SetKey(networkID, accountID string, key KeyPair) error
	GetKey(networkID, accountID string) (KeyPair, error)
	RemoveKey(networkID, accountID string) error
	Clear() error
	GetNetworks() ([]string, error)
	GetAccounts(networkID string) ([]string, error)
}

// ErrReadOnly 仓库不接受写入或删除
var ErrReadOnly = errors.New("keystore is read-only")

type entryKey struct {
	network string
	account string
}

// InMemoryKeyStore 进程内密钥仓库，进程退出即丢弃
type InMemoryKeyStore struct {
	mu   sync.RWMutex
	keys map[entryKey]KeyPair
}

// NewInMemoryKeyStore 创建空的内存密钥仓库
func NewInMemoryKeyStore() *InMemoryKeyStore {
	return &InMemoryKeyStore{keys: make(map[entryKey]KeyPair)}
}

// SetKey 登记密钥，同一 (network, account) 再次登记时覆盖
func (s *InMemoryKeyStore) SetKey(networkID, accountID string, key KeyPair) error {
	if err := validateEntry(networkID, accountID); err != nil {
		return err
	}
	if key == nil {
		return fmt.Errorf("nil key for %s/%s", networkID, accountID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys[entryKey{networkID, accountID}] = key
	return nil
}

func (s *InMemoryKeyStore) GetKey(networkID, accountID string) (KeyPair, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.keys[entryKey{networkID, accountID}], nil
}

func (s *InMemoryKeyStore) RemoveKey(networkID, accountID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.keys, entryKey{networkID, accountID})
	return nil
}

func (s *InMemoryKeyStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys = make(map[entryKey]KeyPair)
	return nil
}

func (s *InMemoryKeyStore) GetNetworks() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]struct{})
	for k := range s.keys {
		seen[k.network] = struct{}{}
	}
	return sortedKeys(seen), nil
}

func (s *InMemoryKeyStore) GetAccounts(networkID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]struct{})
	for k := range s.keys {
		if k.network == networkID {
			seen[k.account] = struct{}{}
		}
	}
	return sortedKeys(seen), nil
}

// String 不输出任何密钥内容
func (s *InMemoryKeyStore) String() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fmt.Sprintf("InMemoryKeyStore(%d keys)", len(s.keys))
}

var _ KeyStore = (*InMemoryKeyStore)(nil)

func validateEntry(networkID, accountID string) error {
	if strings.TrimSpace(networkID) == "" {
		return fmt.Errorf("network id is empty")
	}
	if strings.TrimSpace(accountID) == "" {
		return fmt.Errorf("account id is empty")
	}
	return nil
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
