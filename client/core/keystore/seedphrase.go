package keystore

import (
	"crypto/ed25519"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"

	"github.com/tyler-smith/go-bip39"
)

// DefaultSeedPhrasePath near-cli 与钱包使用的派生路径
const DefaultSeedPhrasePath = "m/44'/397'/0'"

const hardenedOffset uint32 = 0x80000000

// KeyPairFromSeedPhrase 由 BIP39 助记词按 SLIP-0010 派生 ed25519 密钥
//
// path 为空时使用 DefaultSeedPhrasePath。ed25519 只支持硬化派生。
func KeyPairFromSeedPhrase(phrase, path string) (KeyPair, error) {
	phrase = NormalizeSeedPhrase(phrase)
	if !bip39.IsMnemonicValid(phrase) {
		return nil, fmt.Errorf("invalid seed phrase")
	}
	if path == "" {
		path = DefaultSeedPhrasePath
	}
	indexes, err := parseDerivationPath(path)
	if err != nil {
		return nil, err
	}

	seed, err := bip39.NewSeedWithErrorChecking(phrase, "")
	if err != nil {
		return nil, fmt.Errorf("seed phrase: %w", err)
	}
	key, _ := deriveED25519(seed, indexes)
	return &ed25519KeyPair{priv: ed25519.NewKeyFromSeed(key)}, nil
}

// NormalizeSeedPhrase 去掉多余空白并转小写
func NormalizeSeedPhrase(phrase string) string {
	return strings.ToLower(strings.Join(strings.Fields(phrase), " "))
}

func parseDerivationPath(path string) ([]uint32, error) {
	parts := strings.Split(path, "/")
	if len(parts) < 2 || parts[0] != "m" {
		return nil, fmt.Errorf("invalid derivation path %q", path)
	}
	out := make([]uint32, 0, len(parts)-1)
	for _, p := range parts[1:] {
		trimmed := strings.TrimRight(p, "'H")
		if trimmed == p {
			return nil, fmt.Errorf("derivation path %q: segment %q must be hardened", path, p)
		}
		n, err := strconv.ParseUint(trimmed, 10, 31)
		if err != nil {
			return nil, fmt.Errorf("derivation path %q: %w", path, err)
		}
		out = append(out, uint32(n)+hardenedOffset)
	}
	return out, nil
}

// deriveED25519 返回派生出的 32 字节私钥种子与链码
func deriveED25519(seed []byte, indexes []uint32) (key, chainCode []byte) {
	mac := hmac.New(sha512.New, []byte("ed25519 seed"))
	mac.Write(seed)
	sum := mac.Sum(nil)
	key, chainCode = sum[:32], sum[32:]

	for _, index := range indexes {
		data := make([]byte, 0, 37)
		data = append(data, 0x00)
		data = append(data, key...)
		data = binary.BigEndian.AppendUint32(data, index)

		mac = hmac.New(sha512.New, chainCode)
		mac.Write(data)
		sum = mac.Sum(nil)
		key, chainCode = sum[:32], sum[32:]
	}
	return key, chainCode
}
