// Package keystore 管理 NEAR 账户签名密钥
//
// 密钥串格式为 "<curve>:<base58>"，支持 ed25519 与 secp256k1。
// KeyStore 按 (networkID, accountID) 保存 KeyPair。
package keystore

import (
	"bytes"
	"crypto/ed25519"
	"crypto/rand"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcec/v2"
	btcec_ecdsa "github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/mr-tron/base58"
)

// KeyType 曲线类型，取值即 borsh 编码中的枚举序号
type KeyType byte

const (
	KeyTypeED25519   KeyType = 0
	KeyTypeSECP256K1 KeyType = 1
)

const (
	secp256k1PublicKeyLen = 64
	secp256k1SignatureLen = 65
)

// String 返回曲线名
func (t KeyType) String() string {
	switch t {
	case KeyTypeED25519:
		return "ed25519"
	case KeyTypeSECP256K1:
		return "secp256k1"
	default:
		return fmt.Sprintf("unknown(%d)", byte(t))
	}
}

// ParseKeyType 解析曲线名（大小写不敏感）
func ParseKeyType(s string) (KeyType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "ed25519":
		return KeyTypeED25519, nil
	case "secp256k1":
		return KeyTypeSECP256K1, nil
	default:
		return 0, fmt.Errorf("unknown key type %q", s)
	}
}

// PublicKey 公钥
type PublicKey struct {
	Type KeyType
	Data []byte
}

// String 返回 "<curve>:<base58>" 形式
func (p PublicKey) String() string {
	return p.Type.String() + ":" + base58.Encode(p.Data)
}

// Equal 比较两个公钥
func (p PublicKey) Equal(o PublicKey) bool {
	return p.Type == o.Type && bytes.Equal(p.Data, o.Data)
}

// Verify 校验签名，message 与 Sign 时传入的内容一致
func (p PublicKey) Verify(message, signature []byte) bool {
	switch p.Type {
	case KeyTypeED25519:
		if len(p.Data) != ed25519.PublicKeySize {
			return false
		}
		return ed25519.Verify(ed25519.PublicKey(p.Data), message, signature)
	case KeyTypeSECP256K1:
		if len(signature) != secp256k1SignatureLen || len(message) != 32 {
			return false
		}
		compact := make([]byte, secp256k1SignatureLen)
		compact[0] = 27 + signature[64]
		copy(compact[1:], signature[:64])
		recovered, _, err := btcec_ecdsa.RecoverCompact(compact, message)
		if err != nil {
			return false
		}
		return bytes.Equal(recovered.SerializeUncompressed()[1:], p.Data)
	default:
		return false
	}
}

// ParsePublicKey 解析 "<curve>:<base58>"，缺省前缀视为 ed25519
func ParsePublicKey(s string) (PublicKey, error) {
	keyType, encoded, err := splitKeyString(s)
	if err != nil {
		return PublicKey{}, err
	}
	data, err := base58.Decode(encoded)
	if err != nil {
		return PublicKey{}, fmt.Errorf("decode public key: %w", err)
	}
	want := ed25519.PublicKeySize
	if keyType == KeyTypeSECP256K1 {
		want = secp256k1PublicKeyLen
	}
	if len(data) != want {
		return PublicKey{}, fmt.Errorf("invalid %s public key length: expected %d bytes, got %d", keyType, want, len(data))
	}
	return PublicKey{Type: keyType, Data: data}, nil
}

// KeyPair 签名密钥对
type KeyPair interface {
	Type() KeyType
	PublicKey() PublicKey
	// Sign 对 message 签名；交易签名时 message 为 32 字节交易哈希
	Sign(message []byte) ([]byte, error)
	// String 返回可重新解析的私钥串
	String() string
}

// ParseKeyPair 解析 "ed25519:<base58>" 或 "secp256k1:<base58>" 私钥串
//
// ed25519 接受 64 字节 (seed||pub) 或 32 字节 seed；secp256k1 接受 32 字节私钥。
func ParseKeyPair(s string) (KeyPair, error) {
	keyType, encoded, err := splitKeyString(s)
	if err != nil {
		return nil, err
	}
	data, err := base58.Decode(encoded)
	if err != nil {
		return nil, fmt.Errorf("decode secret key: %w", err)
	}

	switch keyType {
	case KeyTypeED25519:
		switch len(data) {
		case ed25519.PrivateKeySize:
			priv := ed25519.NewKeyFromSeed(data[:ed25519.SeedSize])
			if !bytes.Equal(priv[ed25519.SeedSize:], data[ed25519.SeedSize:]) {
				return nil, fmt.Errorf("ed25519 secret key does not match its embedded public key")
			}
			return &ed25519KeyPair{priv: priv}, nil
		case ed25519.SeedSize:
			return &ed25519KeyPair{priv: ed25519.NewKeyFromSeed(data)}, nil
		default:
			return nil, fmt.Errorf("invalid ed25519 secret key length: %d", len(data))
		}
	case KeyTypeSECP256K1:
		if len(data) != 32 {
			return nil, fmt.Errorf("invalid secp256k1 secret key length: expected 32 bytes, got %d", len(data))
		}
		priv, _ := btcec.PrivKeyFromBytes(data)
		return &secp256k1KeyPair{priv: priv}, nil
	}
	return nil, fmt.Errorf("unsupported key type %s", keyType)
}

// GenerateKeyPair 生成随机密钥对
func GenerateKeyPair(keyType KeyType) (KeyPair, error) {
	switch keyType {
	case KeyTypeED25519:
		_, priv, err := ed25519.GenerateKey(rand.Reader)
		if err != nil {
			return nil, fmt.Errorf("generate ed25519 key: %w", err)
		}
		return &ed25519KeyPair{priv: priv}, nil
	case KeyTypeSECP256K1:
		priv, err := btcec.NewPrivateKey()
		if err != nil {
			return nil, fmt.Errorf("generate secp256k1 key: %w", err)
		}
		return &secp256k1KeyPair{priv: priv}, nil
	default:
		return nil, fmt.Errorf("unsupported key type %s", keyType)
	}
}

func splitKeyString(s string) (KeyType, string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, "", fmt.Errorf("empty key string")
	}
	parts := strings.Split(s, ":")
	switch len(parts) {
	case 1:
		return KeyTypeED25519, parts[0], nil
	case 2:
		keyType, err := ParseKeyType(parts[0])
		if err != nil {
			return 0, "", err
		}
		if parts[1] == "" {
			return 0, "", fmt.Errorf("empty key data")
		}
		return keyType, parts[1], nil
	default:
		return 0, "", fmt.Errorf("invalid key string format")
	}
}

type ed25519KeyPair struct {
	priv ed25519.PrivateKey
}

func (k *ed25519KeyPair) Type() KeyType { return KeyTypeED25519 }

func (k *ed25519KeyPair) PublicKey() PublicKey {
	pub := make([]byte, ed25519.PublicKeySize)
	copy(pub, k.priv[ed25519.SeedSize:])
	return PublicKey{Type: KeyTypeED25519, Data: pub}
}

func (k *ed25519KeyPair) Sign(message []byte) ([]byte, error) {
	return ed25519.Sign(k.priv, message), nil
}

func (k *ed25519KeyPair) String() string {
	return "ed25519:" + base58.Encode(k.priv)
}

type secp256k1KeyPair struct {
	priv *btcec.PrivateKey
}

func (k *secp256k1KeyPair) Type() KeyType { return KeyTypeSECP256K1 }

func (k *secp256k1KeyPair) PublicKey() PublicKey {
	// 去掉 0x04 前缀的 64 字节未压缩公钥
	return PublicKey{Type: KeyTypeSECP256K1, Data: k.priv.PubKey().SerializeUncompressed()[1:]}
}

// Sign 生成 r||s||v 的 65 字节可恢复签名
func (k *secp256k1KeyPair) Sign(message []byte) ([]byte, error) {
	if len(message) != 32 {
		return nil, fmt.Errorf("secp256k1 sign: expected 32-byte hash, got %d bytes", len(message))
	}
	compact := btcec_ecdsa.SignCompact(k.priv, message, false)
	if len(compact) != secp256k1SignatureLen {
		return nil, fmt.Errorf("secp256k1 sign: unexpected compact signature length %d", len(compact))
	}
	out := make([]byte, secp256k1SignatureLen)
	copy(out[:64], compact[1:])
	out[64] = (compact[0] - 27) & 0x03
	return out, nil
}

func (k *secp256k1KeyPair) String() string {
	return "secp256k1:" + base58.Encode(k.priv.Serialize())
}
