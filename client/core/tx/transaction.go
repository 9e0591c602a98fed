// Package tx 构建并签名 NEAR 交易
//
// 交易以 borsh 编码，签名对象为 sha256(borsh(Transaction))。
package tx

import (
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"math/big"

	"github.com/mr-tron/base58"
	"github.com/near/borsh-go"

	"github.com/weisyn/nearnft/client/core/keystore"
)

// 动作枚举序号
const (
	actionFunctionCall borsh.Enum = 2
)

// Action 交易动作
type Action interface {
	Name() string
	wire() (wireAction, error)
}

// FunctionCall 合约方法调用动作
type FunctionCall struct {
	MethodName string
	Args       []byte
	Gas        uint64
	Deposit    *big.Int // yoctoNEAR，nil 视为 0
}

func (a *FunctionCall) Name() string { return "FunctionCall" }

func (a *FunctionCall) wire() (wireAction, error) {
	deposit, err := toU128(a.Deposit)
	if err != nil {
		return wireAction{}, fmt.Errorf("deposit: %w", err)
	}
	return wireAction{
		Enum: actionFunctionCall,
		FunctionCall: wireFunctionCall{
			MethodName: a.MethodName,
			Args:       a.Args,
			Gas:        a.Gas,
			Deposit:    deposit,
		},
	}, nil
}

// Transaction 未签名交易
type Transaction struct {
	SignerID   string
	PublicKey  keystore.PublicKey
	Nonce      uint64
	ReceiverID string
	BlockHash  [32]byte
	Actions    []Action
}

// DecodeBlockHash 解析 base58 区块哈希
func DecodeBlockHash(s string) ([32]byte, error) {
	var out [32]byte
	raw, err := base58.Decode(s)
	if err != nil {
		return out, fmt.Errorf("decode block hash: %w", err)
	}
	if len(raw) != 32 {
		return out, fmt.Errorf("invalid block hash length %d", len(raw))
	}
	copy(out[:], raw)
	return out, nil
}

func (t *Transaction) validate() error {
	if t.SignerID == "" {
		return fmt.Errorf("signer_id is empty")
	}
	if t.ReceiverID == "" {
		return fmt.Errorf("receiver_id is empty")
	}
	if len(t.PublicKey.Data) == 0 {
		return fmt.Errorf("public key is empty")
	}
	if len(t.Actions) == 0 {
		return fmt.Errorf("transaction has no actions")
	}
	return nil
}

func (t *Transaction) wire() (wireTransaction, error) {
	if err := t.validate(); err != nil {
		return wireTransaction{}, err
	}
	pk, err := toWirePublicKey(t.PublicKey)
	if err != nil {
		return wireTransaction{}, err
	}
	actions := make([]wireAction, 0, len(t.Actions))
	for _, a := range t.Actions {
		wa, err := a.wire()
		if err != nil {
			return wireTransaction{}, fmt.Errorf("%s: %w", a.Name(), err)
		}
		actions = append(actions, wa)
	}
	return wireTransaction{
		SignerID:   t.SignerID,
		PublicKey:  pk,
		Nonce:      t.Nonce,
		ReceiverID: t.ReceiverID,
		BlockHash:  t.BlockHash,
		Actions:    actions,
	}, nil
}

// Encode 返回 borsh 编码
func (t *Transaction) Encode() ([]byte, error) {
	w, err := t.wire()
	if err != nil {
		return nil, err
	}
	return borsh.Serialize(w)
}

// Hash 返回 sha256(borsh(tx))，即交易哈希
func (t *Transaction) Hash() ([32]byte, error) {
	data, err := t.Encode()
	if err != nil {
		return [32]byte{}, err
	}
	return sha256.Sum256(data), nil
}

// Signature 交易签名
type Signature struct {
	Type keystore.KeyType
	Data []byte
}

// SignedTransaction 已签名交易
type SignedTransaction struct {
	Transaction *Transaction
	Signature   Signature
	hash        [32]byte
}

// Sign 用 key 对交易签名，key 的公钥必须与交易中的公钥一致
func Sign(t *Transaction, key keystore.KeyPair) (*SignedTransaction, error) {
	if key == nil {
		return nil, fmt.Errorf("nil signing key")
	}
	if !key.PublicKey().Equal(t.PublicKey) {
		return nil, fmt.Errorf("signing key %s does not match transaction public key %s",
			key.PublicKey(), t.PublicKey)
	}
	hash, err := t.Hash()
	if err != nil {
		return nil, fmt.Errorf("hash transaction: %w", err)
	}
	sig, err := key.Sign(hash[:])
	if err != nil {
		return nil, fmt.Errorf("sign transaction: %w", err)
	}
	return &SignedTransaction{
		Transaction: t,
		Signature:   Signature{Type: key.Type(), Data: sig},
		hash:        hash,
	}, nil
}

// Hash 返回 base58 交易哈希
func (s *SignedTransaction) Hash() string {
	return base58.Encode(s.hash[:])
}

// Encode 返回 borsh 编码
func (s *SignedTransaction) Encode() ([]byte, error) {
	tx, err := s.Transaction.wire()
	if err != nil {
		return nil, err
	}
	sig, err := toWireSignature(s.Signature)
	if err != nil {
		return nil, err
	}
	return borsh.Serialize(wireSignedTransaction{Transaction: tx, Signature: sig})
}

// EncodeBase64 返回 broadcast_tx_commit 所需的 base64 编码
func (s *SignedTransaction) EncodeBase64() (string, error) {
	data, err := s.Encode()
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

// DecodeSignedTransaction 解析 borsh 编码的已签名交易
func DecodeSignedTransaction(data []byte) (*SignedTransaction, error) {
	var w wireSignedTransaction
	if err := borsh.Deserialize(&w, data); err != nil {
		return nil, fmt.Errorf("decode signed transaction: %w", err)
	}
	t := &Transaction{
		SignerID:   w.Transaction.SignerID,
		PublicKey:  fromWirePublicKey(w.Transaction.PublicKey),
		Nonce:      w.Transaction.Nonce,
		ReceiverID: w.Transaction.ReceiverID,
		BlockHash:  w.Transaction.BlockHash,
	}
	for _, wa := range w.Transaction.Actions {
		a, err := fromWireAction(wa)
		if err != nil {
			return nil, err
		}
		t.Actions = append(t.Actions, a)
	}
	hash, err := t.Hash()
	if err != nil {
		return nil, err
	}
	return &SignedTransaction{Transaction: t, Signature: fromWireSignature(w.Signature), hash: hash}, nil
}
