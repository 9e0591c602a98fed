package keystore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustKey(t *testing.T) KeyPair {
	t.Helper()
	kp, err := GenerateKeyPair(KeyTypeED25519)
	require.NoError(t, err)
	return kp
}

func TestInMemoryKeyStore(t *testing.T) {
	ks := NewInMemoryKeyStore()

	t.Run("未登记返回nil", func(t *testing.T) {
		got, err := ks.GetKey("testnet", "viernear.testnet")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("再次登记覆盖旧密钥", func(t *testing.T) {
		first, second := mustKey(t), mustKey(t)
		require.NoError(t, ks.SetKey("testnet", "viernear.testnet", first))
		require.NoError(t, ks.SetKey("testnet", "viernear.testnet", second))

		got, err := ks.GetKey("testnet", "viernear.testnet")
		require.NoError(t, err)
		assert.Equal(t, second.String(), got.String())
	})

	t.Run("按网络隔离", func(t *testing.T) {
		got, err := ks.GetKey("mainnet", "viernear.testnet")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("列出网络与账户", func(t *testing.T) {
		require.NoError(t, ks.SetKey("mainnet", "alice.near", mustKey(t)))
		networks, err := ks.GetNetworks()
		require.NoError(t, err)
		assert.Equal(t, []string{"mainnet", "testnet"}, networks)

		accounts, err := ks.GetAccounts("testnet")
		require.NoError(t, err)
		assert.Equal(t, []string{"viernear.testnet"}, accounts)
	})

	t.Run("参数校验", func(t *testing.T) {
		assert.Error(t, ks.SetKey("", "a", mustKey(t)))
		assert.Error(t, ks.SetKey("testnet", " ", mustKey(t)))
		assert.Error(t, ks.SetKey("testnet", "a", nil))
	})

	t.Run("删除与清空", func(t *testing.T) {
		require.NoError(t, ks.RemoveKey("mainnet", "alice.near"))
		got, _ := ks.GetKey("mainnet", "alice.near")
		assert.Nil(t, got)

		require.NoError(t, ks.Clear())
		networks, _ := ks.GetNetworks()
		assert.Empty(t, networks)
	})

	assert.NotContains(t, ks.String(), "ed25519:")
}

func TestFileKeyStore(t *testing.T) {
	dir := t.TempDir()
	ks, err := NewFileKeyStore(dir, "correct horse", WithKDFIterations(1000))
	require.NoError(t, err)

	kp := mustKey(t)
	require.NoError(t, ks.SetKey("testnet", "viernear.testnet", kp))

	path := filepath.Join(dir, "testnet", "viernear.testnet.json")
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), kp.String())
	assert.Contains(t, string(raw), kp.PublicKey().String())

	got, err := ks.GetKey("testnet", "viernear.testnet")
	require.NoError(t, err)
	assert.Equal(t, kp.String(), got.String())

	t.Run("口令错误", func(t *testing.T) {
		wrong, err := NewFileKeyStore(dir, "battery staple", WithKDFIterations(1000))
		require.NoError(t, err)
		_, err = wrong.GetKey("testnet", "viernear.testnet")
		assert.Error(t, err)
	})

	t.Run("缺失文件返回nil", func(t *testing.T) {
		got, err := ks.GetKey("testnet", "nobody.testnet")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("无口令列出公钥", func(t *testing.T) {
		infos, err := ListKeyFiles(dir)
		require.NoError(t, err)
		require.Len(t, infos, 1)
		assert.Equal(t, "viernear.testnet", infos[0].AccountID)
		assert.Equal(t, kp.PublicKey().String(), infos[0].PublicKey)

		empty, err := ListKeyFiles(filepath.Join(dir, "missing"))
		require.NoError(t, err)
		assert.Empty(t, empty)
	})

	t.Run("列出与删除", func(t *testing.T) {
		accounts, err := ks.GetAccounts("testnet")
		require.NoError(t, err)
		assert.Equal(t, []string{"viernear.testnet"}, accounts)

		require.NoError(t, ks.RemoveKey("testnet", "viernear.testnet"))
		got, err := ks.GetKey("testnet", "viernear.testnet")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("拒绝路径分隔符", func(t *testing.T) {
		assert.Error(t, ks.SetKey("testnet", "../evil", kp))
	})
}

func TestNewFileKeyStoreValidation(t *testing.T) {
	_, err := NewFileKeyStore("", "pw")
	assert.Error(t, err)
	_, err = NewFileKeyStore(t.TempDir(), "")
	assert.Error(t, err)
}

func TestCredentialsKeyStoreReadsNearCLIFormat(t *testing.T) {
	dir := t.TempDir()
	kp := mustKey(t)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "testnet"), 0700))
	content := `{"account_id":"viernear.testnet","public_key":"` + kp.PublicKey().String() +
		`","private_key":"` + kp.String() + `"}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "testnet", "viernear.testnet.json"), []byte(content), 0600))

	ks := NewCredentialsKeyStore(dir)
	got, err := ks.GetKey("testnet", "viernear.testnet")
	require.NoError(t, err)
	assert.Equal(t, kp.String(), got.String())

	missing, err := NewCredentialsKeyStore(filepath.Join(dir, "absent")).GetNetworks()
	require.NoError(t, err)
	assert.Empty(t, missing)
}

func TestCredentialsKeyStoreIsReadOnly(t *testing.T) {
	dir := t.TempDir()
	kp := mustKey(t)
	path := filepath.Join(dir, "testnet", "viernear.testnet.json")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0700))
	content := `{"account_id":"viernear.testnet","private_key":"` + kp.String() + `"}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	ks := NewCredentialsKeyStore(dir)

	err := ks.SetKey("testnet", "bob.testnet", mustKey(t))
	assert.ErrorIs(t, err, ErrReadOnly)
	_, statErr := os.Stat(filepath.Join(dir, "testnet", "bob.testnet.json"))
	assert.True(t, os.IsNotExist(statErr), "不得写入明文凭据")

	assert.ErrorIs(t, ks.RemoveKey("testnet", "viernear.testnet"), ErrReadOnly)
	assert.ErrorIs(t, ks.Clear(), ErrReadOnly)
	_, statErr = os.Stat(path)
	assert.NoError(t, statErr, "凭据文件应保留")

	t.Run("组合仓库跳过只读仓库", func(t *testing.T) {
		primary := NewInMemoryKeyStore()
		require.NoError(t, primary.SetKey("testnet", "viernear.testnet", mustKey(t)))
		merged, err := NewMergeKeyStore(primary, ks)
		require.NoError(t, err)

		require.NoError(t, merged.RemoveKey("testnet", "viernear.testnet"))
		got, err := merged.GetKey("testnet", "viernear.testnet")
		require.NoError(t, err)
		assert.Equal(t, kp.String(), got.String(), "删除后回落到 near-cli 凭据")

		require.NoError(t, merged.Clear())
		_, statErr := os.Stat(path)
		assert.NoError(t, statErr)
	})
}

func TestMergeKeyStore(t *testing.T) {
	primary := NewInMemoryKeyStore()
	fallback := NewInMemoryKeyStore()
	kp := mustKey(t)
	require.NoError(t, fallback.SetKey("testnet", "bob.testnet", kp))

	merged, err := NewMergeKeyStore(primary, fallback)
	require.NoError(t, err)

	got, err := merged.GetKey("testnet", "bob.testnet")
	require.NoError(t, err)
	assert.Equal(t, kp.String(), got.String())

	newKey := mustKey(t)
	require.NoError(t, merged.SetKey("testnet", "carol.testnet", newKey))
	inPrimary, _ := primary.GetKey("testnet", "carol.testnet")
	assert.NotNil(t, inPrimary)

	accounts, err := merged.GetAccounts("testnet")
	require.NoError(t, err)
	assert.Equal(t, []string{"bob.testnet", "carol.testnet"}, accounts)

	_, err = NewMergeKeyStore()
	assert.Error(t, err)
}
