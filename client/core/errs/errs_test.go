package errs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type namedErr struct{ name string }

func (n namedErr) Error() string     { return "rpc: " + n.name }
func (n namedErr) ErrorName() string { return n.name }

func TestKindSurvivesWrapping(t *testing.T) {
	base := New(KindTransaction, "nft_mint", "execution failed")
	wrapped := fmt.Errorf("invoke: %w", fmt.Errorf("sign and send: %w", base))

	assert.True(t, errors.Is(wrapped, ErrTransaction))
	assert.False(t, errors.Is(wrapped, ErrQuery))
	assert.Equal(t, KindTransaction, KindOf(wrapped))

	var e *Error
	require.True(t, errors.As(wrapped, &e))
	assert.Equal(t, "nft_mint", e.Op)
}

func TestWrap(t *testing.T) {
	t.Run("nil 原样返回", func(t *testing.T) {
		assert.NoError(t, Wrap(KindQuery, "view", nil))
	})

	t.Run("带错误名的底层错误", func(t *testing.T) {
		err := Wrap(KindTransaction, "broadcast_tx_commit", namedErr{name: "TIMEOUT_ERROR"})
		var e *Error
		require.True(t, errors.As(err, &e))
		assert.Equal(t, "TIMEOUT_ERROR", e.Name)
		assert.Contains(t, err.Error(), "TIMEOUT_ERROR")
		assert.True(t, errors.As(err, new(namedErr)))
	})

	t.Run("同类别不重复包装", func(t *testing.T) {
		inner := New(KindAccountResolution, "view_account", "missing")
		assert.Same(t, inner, Wrap(KindAccountResolution, "other", inner))
	})

	t.Run("不同类别保留内层", func(t *testing.T) {
		inner := New(KindQuery, "call_function", "boom")
		outer := Wrap(KindTransaction, "nft_buy", inner)
		assert.Equal(t, KindTransaction, KindOf(outer))
		assert.True(t, errors.Is(outer, ErrQuery))
	})
}

func TestKindOfPlainError(t *testing.T) {
	assert.Equal(t, Kind(""), KindOf(errors.New("plain")))
	assert.False(t, Is(errors.New("plain"), KindConfig))
}
