package tx

import (
	"errors"
	"fmt"
	"math/big"
	"strings"
)

const (
	// NearNominationExp 1 NEAR = 10^24 yoctoNEAR
	NearNominationExp = 24

	// TGas 10^12 gas
	TGas uint64 = 1_000_000_000_000

	// DefaultFunctionCallGas 变更调用默认附加 gas（30 Tgas）
	DefaultFunctionCallGas = 30 * TGas

	// MaxFunctionCallGas 单次调用可附加的 gas 上限（300 Tgas）
	MaxFunctionCallGas = 300 * TGas
)

var (
	// ErrInvalidAmount 无效金额
	ErrInvalidAmount = errors.New("invalid amount")

	nearNomination = new(big.Int).Exp(big.NewInt(10), big.NewInt(NearNominationExp), nil)
)

// ParseYocto 解析十进制 yoctoNEAR 整数串，空串视为 0
func ParseYocto(s string) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return new(big.Int), nil
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	if v.Sign() < 0 {
		return nil, fmt.Errorf("%w: negative amount %s", ErrInvalidAmount, s)
	}
	if v.BitLen() > 128 {
		return nil, fmt.Errorf("%w: amount exceeds u128", ErrInvalidAmount)
	}
	return v, nil
}

// ParseNearAmount 将 NEAR 数额（如 "1.5"、"1,000"）换算为 yoctoNEAR
//
// 示例：
//
//	ParseNearAmount("1.5")   → 1500000000000000000000000
//	ParseNearAmount("0.001") → 1000000000000000000000
func ParseNearAmount(s string) (*big.Int, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return nil, fmt.Errorf("%w: empty string", ErrInvalidAmount)
	}
	whole, frac, _ := strings.Cut(s, ".")
	if whole == "" {
		whole = "0"
	}
	if len(frac) > NearNominationExp {
		return nil, fmt.Errorf("%w: more than %d fractional digits", ErrInvalidAmount, NearNominationExp)
	}
	digits := whole + frac + strings.Repeat("0", NearNominationExp-len(frac))
	for _, c := range digits {
		if c < '0' || c > '9' {
			return nil, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
		}
	}
	v, _ := new(big.Int).SetString(digits, 10)
	return v, nil
}

// FormatNearAmount 将 yoctoNEAR 格式化为 NEAR，去掉多余的尾零
func FormatNearAmount(yocto *big.Int) string {
	if yocto == nil || yocto.Sign() == 0 {
		return "0"
	}
	if yocto.Sign() < 0 {
		return "-" + FormatNearAmount(new(big.Int).Neg(yocto))
	}
	q, r := new(big.Int).QuoRem(yocto, nearNomination, new(big.Int))
	if r.Sign() == 0 {
		return q.String()
	}
	frac := r.String()
	frac = strings.Repeat("0", NearNominationExp-len(frac)) + frac
	return q.String() + "." + strings.TrimRight(frac, "0")
}
