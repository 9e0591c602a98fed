package tx

import (
	"fmt"
	"math/big"

	"github.com/near/borsh-go"

	"github.com/weisyn/nearnft/client/core/keystore"
)

// 以下为链上 borsh 布局，字段顺序即编码顺序；枚举的变体字段必须是结构体

type wirePublicKey struct {
	Enum      borsh.Enum `borsh_enum:"true"`
	ED25519   struct{ Data [32]byte }
	SECP256K1 struct{ Data [64]byte }
}

type wireSignature struct {
	Enum      borsh.Enum `borsh_enum:"true"`
	ED25519   struct{ Data [64]byte }
	SECP256K1 struct{ Data [65]byte }
}

type wireFunctionCall struct {
	MethodName string
	Args       []byte
	Gas        uint64
	Deposit    big.Int
}

type wireAction struct {
	Enum           borsh.Enum `borsh_enum:"true"`
	CreateAccount  struct{}
	DeployContract struct{ Code []byte }
	FunctionCall   wireFunctionCall
}

type wireTransaction struct {
	SignerID   string
	PublicKey  wirePublicKey
	Nonce      uint64
	ReceiverID string
	BlockHash  [32]byte
	Actions    []wireAction
}

type wireSignedTransaction struct {
	Transaction wireTransaction
	Signature   wireSignature
}

var maxU128 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 128), big.NewInt(1))

// toU128 nil 视为 0，负数或超过 128 位报错
func toU128(v *big.Int) (big.Int, error) {
	var out big.Int
	if v == nil {
		return out, nil
	}
	if v.Sign() < 0 || v.Cmp(maxU128) > 0 {
		return out, fmt.Errorf("u128 out of range: %s", v.String())
	}
	out.Set(v)
	return out, nil
}

func toWirePublicKey(pk keystore.PublicKey) (wirePublicKey, error) {
	var w wirePublicKey
	switch pk.Type {
	case keystore.KeyTypeED25519:
		if len(pk.Data) != len(w.ED25519.Data) {
			return w, fmt.Errorf("ed25519 public key must be %d bytes, got %d", len(w.ED25519.Data), len(pk.Data))
		}
		copy(w.ED25519.Data[:], pk.Data)
	case keystore.KeyTypeSECP256K1:
		if len(pk.Data) != len(w.SECP256K1.Data) {
			return w, fmt.Errorf("secp256k1 public key must be %d bytes, got %d", len(w.SECP256K1.Data), len(pk.Data))
		}
		copy(w.SECP256K1.Data[:], pk.Data)
	default:
		return w, fmt.Errorf("unsupported key type %d", pk.Type)
	}
	w.Enum = borsh.Enum(pk.Type)
	return w, nil
}

func fromWirePublicKey(w wirePublicKey) keystore.PublicKey {
	if keystore.KeyType(w.Enum) == keystore.KeyTypeSECP256K1 {
		return keystore.PublicKey{Type: keystore.KeyTypeSECP256K1, Data: append([]byte(nil), w.SECP256K1.Data[:]...)}
	}
	return keystore.PublicKey{Type: keystore.KeyTypeED25519, Data: append([]byte(nil), w.ED25519.Data[:]...)}
}

func toWireSignature(sig Signature) (wireSignature, error) {
	var w wireSignature
	switch sig.Type {
	case keystore.KeyTypeED25519:
		if len(sig.Data) != len(w.ED25519.Data) {
			return w, fmt.Errorf("ed25519 signature must be %d bytes, got %d", len(w.ED25519.Data), len(sig.Data))
		}
		copy(w.ED25519.Data[:], sig.Data)
	case keystore.KeyTypeSECP256K1:
		if len(sig.Data) != len(w.SECP256K1.Data) {
			return w, fmt.Errorf("secp256k1 signature must be %d bytes, got %d", len(w.SECP256K1.Data), len(sig.Data))
		}
		copy(w.SECP256K1.Data[:], sig.Data)
	default:
		return w, fmt.Errorf("unsupported signature type %d", sig.Type)
	}
	w.Enum = borsh.Enum(sig.Type)
	return w, nil
}

func fromWireSignature(w wireSignature) Signature {
	if keystore.KeyType(w.Enum) == keystore.KeyTypeSECP256K1 {
		return Signature{Type: keystore.KeyTypeSECP256K1, Data: append([]byte(nil), w.SECP256K1.Data[:]...)}
	}
	return Signature{Type: keystore.KeyTypeED25519, Data: append([]byte(nil), w.ED25519.Data[:]...)}
}

func fromWireAction(w wireAction) (Action, error) {
	if w.Enum != actionFunctionCall {
		return nil, fmt.Errorf("unsupported action %d", w.Enum)
	}
	deposit := new(big.Int).Set(&w.FunctionCall.Deposit)
	return &FunctionCall{
		MethodName: w.FunctionCall.MethodName,
		Args:       w.FunctionCall.Args,
		Gas:        w.FunctionCall.Gas,
		Deposit:    deposit,
	}, nil
}
