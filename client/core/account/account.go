package account

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/weisyn/nearnft/client/core/errs"
	"github.com/weisyn/nearnft/client/core/keystore"
	"github.com/weisyn/nearnft/client/core/transport"
	"github.com/weisyn/nearnft/client/core/tx"
)

// Account 已解析的账户句柄，签名密钥从连接的密钥仓库按需读取
type Account struct {
	conn      *Connection
	accountID string
	state     *transport.AccountView

	mu        sync.Mutex
	lastNonce uint64
}

// AccountID 账户名
func (a *Account) AccountID() string { return a.accountID }

// Connection 所属连接
func (a *Account) Connection() *Connection { return a.conn }

// CachedState 最近一次查询到的账户状态，解析账户时即已填充
func (a *Account) CachedState() *transport.AccountView {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// State 重新查询账户状态并更新缓存
func (a *Account) State(ctx context.Context) (*transport.AccountView, error) {
	view, err := a.conn.provider.ViewAccount(ctx, a.accountID, transport.FinalBlock)
	if err != nil {
		return nil, errs.Wrap(errs.KindQuery, "view_account", err)
	}
	a.mu.Lock()
	a.state = view
	a.mu.Unlock()
	return view, nil
}

// FunctionCallRequest 变更调用参数
type FunctionCallRequest struct {
	ContractID string
	MethodName string
	Args       []byte
	Gas        uint64
	Deposit    *big.Int
}

// FunctionCall 签名并发送单个 FunctionCall 交易，等待执行完成
//
// 链上执行失败、节点拒绝交易或等待超时都返回 TransactionError；不会重试。
func (a *Account) FunctionCall(ctx context.Context, req FunctionCallRequest) (*transport.FinalExecutionOutcome, error) {
	if req.Gas == 0 {
		req.Gas = tx.DefaultFunctionCallGas
	}
	if req.Deposit == nil {
		req.Deposit = new(big.Int)
	}
	return a.signAndSend(ctx, req.ContractID, &tx.FunctionCall{
		MethodName: req.MethodName,
		Args:       req.Args,
		Gas:        req.Gas,
		Deposit:    req.Deposit,
	})
}

func (a *Account) signingKey() (keystore.KeyPair, error) {
	key, err := a.conn.keyStore.GetKey(a.conn.config.NetworkID, a.accountID)
	if err != nil {
		return nil, errs.Wrap(errs.KindAccountResolution, "get_key", err)
	}
	if key == nil {
		return nil, errs.New(errs.KindAccountResolution, "get_key",
			"no key registered for %s on %s", a.accountID, a.conn.config.NetworkID)
	}
	return key, nil
}

// nextNonce 取链上 nonce 与本地已用 nonce 的较大者加一
func (a *Account) nextNonce(onChain uint64) uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	if onChain > a.lastNonce {
		a.lastNonce = onChain
	}
	a.lastNonce++
	return a.lastNonce
}

func (a *Account) signAndSend(ctx context.Context, receiverID string, actions ...tx.Action) (*transport.FinalExecutionOutcome, error) {
	op := "sign_and_send"
	if len(actions) == 1 {
		if fc, ok := actions[0].(*tx.FunctionCall); ok {
			op = fc.MethodName
		}
	}

	key, err := a.signingKey()
	if err != nil {
		return nil, err
	}
	pub := key.PublicKey()

	accessKey, err := a.conn.provider.ViewAccessKey(ctx, a.accountID, pub.String(), transport.FinalBlock)
	if err != nil {
		if transport.IsUnknownAccessKey(err) {
			e := errs.New(errs.KindAccountResolution, "view_access_key",
				"key %s is not an access key of %s", pub, a.accountID)
			e.Cause = err
			return nil, e
		}
		return nil, errs.Wrap(errs.KindTransaction, op, fmt.Errorf("fetch access key: %w", err))
	}

	block, err := a.conn.provider.Block(ctx, transport.FinalBlock)
	if err != nil {
		return nil, errs.Wrap(errs.KindTransaction, op, fmt.Errorf("fetch block: %w", err))
	}
	blockHash, err := tx.DecodeBlockHash(block.Header.Hash)
	if err != nil {
		return nil, errs.Wrap(errs.KindTransaction, op, err)
	}

	unsigned := &tx.Transaction{
		SignerID:   a.accountID,
		PublicKey:  pub,
		Nonce:      a.nextNonce(accessKey.Nonce),
		ReceiverID: receiverID,
		BlockHash:  blockHash,
		Actions:    actions,
	}
	signed, err := tx.Sign(unsigned, key)
	if err != nil {
		return nil, errs.Wrap(errs.KindTransaction, op, err)
	}
	encoded, err := signed.EncodeBase64()
	if err != nil {
		return nil, errs.Wrap(errs.KindTransaction, op, err)
	}

	logger := a.conn.logger.With("signer", a.accountID, "receiver", receiverID, "tx", signed.Hash())
	logger.Infof("sending %s nonce=%d", op, unsigned.Nonce)

	outcome, err := a.conn.provider.SendTransactionCommit(ctx, encoded)
	if err != nil {
		return nil, errs.Wrap(errs.KindTransaction, op, err)
	}

	for _, line := range outcome.Logs() {
		logger.Infof("log: %s", line)
	}

	if outcome.Status.IsFailure() {
		e := errs.New(errs.KindTransaction, op, "transaction %s failed: %s", signed.Hash(), string(outcome.Status.Failure))
		e.Name = transport.FailureName(outcome.Status.Failure)
		return nil, e
	}

	logger.Infof("%s done, gas burnt %d", op, outcome.GasBurnt())
	return outcome, nil
}

// ViewFunction 只读调用合约方法
func (a *Account) ViewFunction(ctx context.Context, contractID, method string, args []byte) (*transport.CallFunctionResult, error) {
	res, err := a.conn.provider.CallFunction(ctx, contractID, method, args, transport.FinalBlock)
	if err != nil {
		return nil, errs.Wrap(errs.KindQuery, method, err)
	}
	for _, line := range res.Logs {
		a.conn.logger.Infof("%s log: %s", method, line)
	}
	return res, nil
}
