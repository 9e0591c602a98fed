// Package errs 定义合约调用器的错误分类
//
// 每个对外暴露的失败都属于以下之一：
//   - config: 网络配置或操作描述不合法
//   - account_resolution: 账户不存在或缺少签名密钥
//   - transaction: 变更调用被链拒绝、超时或余额不足
//   - query: 只读调用失败
//   - unknown_method: 方法未在合约绑定中声明
//
// 错误在多层 fmt.Errorf("...: %w") 包装后仍可通过 errors.Is / errors.As / KindOf 识别。
package errs

import (
	"errors"
	"fmt"
	"strings"
)

// Kind 错误类别
type Kind string

const (
	KindConfig            Kind = "config"
	KindAccountResolution Kind = "account_resolution"
	KindTransaction       Kind = "transaction"
	KindQuery             Kind = "query"
	KindUnknownMethod     Kind = "unknown_method"
)

// Error 带类别的调用器错误
type Error struct {
	Kind    Kind
	Op      string // 出错的操作，例如 "view_account"、"nft_mint"
	Name    string // 链上错误名，例如 "NotEnoughBalance"、"TIMEOUT_ERROR"
	Message string
	Cause   error
}

// 哨兵错误，仅用于 errors.Is 按类别匹配
var (
	ErrConfig            = &Error{Kind: KindConfig}
	ErrAccountResolution = &Error{Kind: KindAccountResolution}
	ErrTransaction       = &Error{Kind: KindTransaction}
	ErrQuery             = &Error{Kind: KindQuery}
	ErrUnknownMethod     = &Error{Kind: KindUnknownMethod}
)

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Kind))
	if e.Op != "" {
		b.WriteString(" [")
		b.WriteString(e.Op)
		b.WriteString("]")
	}
	if e.Name != "" {
		b.WriteString(" ")
		b.WriteString(e.Name)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Cause }

// Is 同类别的 *Error 视为匹配
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// New 创建错误
func New(kind Kind, op string, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Op: op, Message: fmt.Sprintf(format, args...)}
}

// Wrap 用指定类别包装底层错误，cause 为 nil 时返回 nil
func Wrap(kind Kind, op string, cause error) error {
	if cause == nil {
		return nil
	}
	var existing *Error
	if errors.As(cause, &existing) && existing.Kind == kind {
		return cause
	}
	e := &Error{Kind: kind, Op: op, Cause: cause}
	var named interface{ ErrorName() string }
	if errors.As(cause, &named) {
		e.Name = named.ErrorName()
	}
	return e
}

// WithName 设置链上错误名
func (e *Error) WithName(name string) *Error {
	e.Name = name
	return e
}

// KindOf 返回错误链上第一个 *Error 的类别，没有时返回空串
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Is 判断 err 是否属于指定类别
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}
