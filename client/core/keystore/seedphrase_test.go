package keystore

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testPhrase = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"

func TestDeriveED25519(t *testing.T) {
	// SLIP-0010 ed25519 测试向量 1
	seed, _ := hex.DecodeString("000102030405060708090a0b0c0d0e0f")

	key, chain := deriveED25519(seed, nil)
	assert.Equal(t, "2b4be7f19ee27bbf30c667b642d5f4aa69fd169872f8fc3059c08ebae2eb19e7", hex.EncodeToString(key))
	assert.Equal(t, "90046a93de5380a72b5e45010748567d5ea02bbf6522f979e05c0d8d8ca9fffb", hex.EncodeToString(chain))

	key, chain = deriveED25519(seed, []uint32{hardenedOffset})
	assert.Equal(t, "68e0fe46dfb67e368c75379acec591dad19df3cde26e63b93a8e704f1dade7a3", hex.EncodeToString(key))
	assert.Equal(t, "8b59aa11380b624e81507a27fedda59fea6d0b779a778918a2fd3590e16e9c69", hex.EncodeToString(chain))
}

func TestKeyPairFromSeedPhrase(t *testing.T) {
	kp, err := KeyPairFromSeedPhrase(testPhrase, "")
	require.NoError(t, err)
	assert.Equal(t, KeyTypeED25519, kp.Type())

	t.Run("空白与大小写不影响结果", func(t *testing.T) {
		again, err := KeyPairFromSeedPhrase("  ABANDON abandon abandon abandon abandon abandon\n abandon abandon abandon abandon abandon about ", DefaultSeedPhrasePath)
		require.NoError(t, err)
		assert.Equal(t, kp.String(), again.String())
	})

	t.Run("不同路径得到不同密钥", func(t *testing.T) {
		other, err := KeyPairFromSeedPhrase(testPhrase, "m/44'/397'/1'")
		require.NoError(t, err)
		assert.False(t, kp.PublicKey().Equal(other.PublicKey()))
	})

	t.Run("派生密钥可签名", func(t *testing.T) {
		msg := []byte("nft_mint")
		sig, err := kp.Sign(msg)
		require.NoError(t, err)
		assert.True(t, kp.PublicKey().Verify(msg, sig))
	})

	t.Run("往返解析", func(t *testing.T) {
		parsed, err := ParseKeyPair(kp.String())
		require.NoError(t, err)
		assert.True(t, parsed.PublicKey().Equal(kp.PublicKey()))
	})

	errCases := []struct {
		name   string
		phrase string
		path   string
	}{
		{"校验和错误", "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon", ""},
		{"非硬化路径", testPhrase, "m/44'/397'/0"},
		{"路径缺少根", testPhrase, "44'/397'/0'"},
		{"路径非数字", testPhrase, "m/x'"},
	}
	for _, tt := range errCases {
		t.Run(tt.name, func(t *testing.T) {
			_, err := KeyPairFromSeedPhrase(tt.phrase, tt.path)
			assert.Error(t, err)
		})
	}
}
