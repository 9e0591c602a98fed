package keystore

import (
	"errors"
	"fmt"
)

// MergeKeyStore 按顺序查找多个仓库，写入只落到第一个仓库
//
// 删除与清空跳过只读仓库。
type MergeKeyStore struct {
	stores []KeyStore
}

// NewMergeKeyStore 创建组合仓库，stores 至少一个
func NewMergeKeyStore(stores ...KeyStore) (*MergeKeyStore, error) {
	if len(stores) == 0 {
		return nil, fmt.Errorf("merge keystore needs at least one store")
	}
	return &MergeKeyStore{stores: stores}, nil
}

func (m *MergeKeyStore) SetKey(networkID, accountID string, key KeyPair) error {
	return m.stores[0].SetKey(networkID, accountID, key)
}

func (m *MergeKeyStore) GetKey(networkID, accountID string) (KeyPair, error) {
	for _, s := range m.stores {
		key, err := s.GetKey(networkID, accountID)
		if err != nil {
			return nil, err
		}
		if key != nil {
			return key, nil
		}
	}
	return nil, nil
}

func (m *MergeKeyStore) RemoveKey(networkID, accountID string) error {
	for _, s := range m.stores {
		if err := s.RemoveKey(networkID, accountID); err != nil && !errors.Is(err, ErrReadOnly) {
			return err
		}
	}
	return nil
}

func (m *MergeKeyStore) Clear() error {
	for _, s := range m.stores {
		if err := s.Clear(); err != nil && !errors.Is(err, ErrReadOnly) {
			return err
		}
	}
	return nil
}

func (m *MergeKeyStore) GetNetworks() ([]string, error) {
	return m.union(func(s KeyStore) ([]string, error) { return s.GetNetworks() })
}

func (m *MergeKeyStore) GetAccounts(networkID string) ([]string, error) {
	return m.union(func(s KeyStore) ([]string, error) { return s.GetAccounts(networkID) })
}

func (m *MergeKeyStore) union(list func(KeyStore) ([]string, error)) ([]string, error) {
	seen := make(map[string]struct{})
	for _, s := range m.stores {
		items, err := list(s)
		if err != nil {
			return nil, err
		}
		for _, it := range items {
			seen[it] = struct{}{}
		}
	}
	return sortedKeys(seen), nil
}

var _ KeyStore = (*MergeKeyStore)(nil)
