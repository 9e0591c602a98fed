package keystore

import (
	"crypto/ed25519"
	"crypto/sha256"
	"testing"

	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSeed(b byte) []byte {
	seed := make([]byte, ed25519.SeedSize)
	for i := range seed {
		seed[i] = b + byte(i)
	}
	return seed
}

func TestParseKeyPairED25519(t *testing.T) {
	seed := testSeed(1)
	full := ed25519.NewKeyFromSeed(seed)

	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"64字节私钥", "ed25519:" + base58.Encode(full), false},
		{"32字节种子", "ed25519:" + base58.Encode(seed), false},
		{"无前缀默认ed25519", base58.Encode(full), false},
		{"大写曲线名", "ED25519:" + base58.Encode(full), false},
		{"空串", "", true},
		{"未知曲线", "rsa:" + base58.Encode(full), true},
		{"长度错误", "ed25519:" + base58.Encode([]byte{1, 2, 3}), true},
		{"非base58", "ed25519:0OIl", true},
		{"多余分段", "ed25519:a:b", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kp, err := ParseKeyPair(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, KeyTypeED25519, kp.Type())
			assert.Equal(t, []byte(full.Public().(ed25519.PublicKey)), kp.PublicKey().Data)
			assert.Equal(t, "ed25519:"+base58.Encode(full), kp.String())
		})
	}
}

func TestParseKeyPairRejectsMismatchedPublicHalf(t *testing.T) {
	full := ed25519.NewKeyFromSeed(testSeed(1))
	tampered := append([]byte{}, full...)
	tampered[63] ^= 0xff
	_, err := ParseKeyPair("ed25519:" + base58.Encode(tampered))
	assert.Error(t, err)
}

func TestSignAndVerify(t *testing.T) {
	hash := sha256.Sum256([]byte("transaction bytes"))

	for _, keyType := range []KeyType{KeyTypeED25519, KeyTypeSECP256K1} {
		t.Run(keyType.String(), func(t *testing.T) {
			kp, err := GenerateKeyPair(keyType)
			require.NoError(t, err)

			sig, err := kp.Sign(hash[:])
			require.NoError(t, err)
			if keyType == KeyTypeED25519 {
				assert.Len(t, sig, 64)
			} else {
				assert.Len(t, sig, 65)
				assert.Len(t, kp.PublicKey().Data, 64)
			}

			assert.True(t, kp.PublicKey().Verify(hash[:], sig))

			other := sha256.Sum256([]byte("other"))
			assert.False(t, kp.PublicKey().Verify(other[:], sig))

			// 私钥串往返
			again, err := ParseKeyPair(kp.String())
			require.NoError(t, err)
			assert.True(t, again.PublicKey().Equal(kp.PublicKey()))

			// 公钥串往返
			pub, err := ParsePublicKey(kp.PublicKey().String())
			require.NoError(t, err)
			assert.True(t, pub.Equal(kp.PublicKey()))
		})
	}
}

func TestSecp256k1SignRequiresHash(t *testing.T) {
	kp, err := GenerateKeyPair(KeyTypeSECP256K1)
	require.NoError(t, err)
	_, err = kp.Sign([]byte("short"))
	assert.Error(t, err)
}

func TestParsePublicKey(t *testing.T) {
	_, err := ParsePublicKey("ed25519:" + base58.Encode([]byte{1, 2}))
	assert.Error(t, err)

	_, err = ParsePublicKey("secp256k1:" + base58.Encode(make([]byte, 32)))
	assert.Error(t, err)
}
