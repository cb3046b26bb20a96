package reconcile

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Expectation decides whether a read result is already correct.
type Expectation func(out []interface{}) bool

// Equals expects the first output to be addr.
func Equals(addr common.Address) Expectation {
	return func(out []interface{}) bool {
		if len(out) == 0 {
			return false
		}
		got, ok := out[0].(common.Address)
		return ok && got == addr
	}
}

// EqualsBig expects the first output to be the integer v.
func EqualsBig(v *big.Int) Expectation {
	return func(out []interface{}) bool {
		if len(out) == 0 {
			return false
		}
		got, ok := out[0].(*big.Int)
		return ok && got != nil && got.Cmp(v) == 0
	}
}

// EqualsBool expects the first output to be v.
func EqualsBool(v bool) Expectation {
	return func(out []interface{}) bool {
		if len(out) == 0 {
			return false
		}
		got, ok := out[0].(bool)
		return ok && got == v
	}
}

// IsTrue expects the first output to be true.
var IsTrue = EqualsBool(true)

// IsSet expects the first output to differ from its zero value. It backs
// one-shot initialization: a value anyone already set is left alone.
func IsSet(out []interface{}) bool {
	if len(out) == 0 {
		return false
	}
	switch v := out[0].(type) {
	case *big.Int:
		return v != nil && v.Sign() != 0
	case common.Address:
		return v != (common.Address{})
	case bool:
		return v
	case uint8:
		return v != 0
	case uint64:
		return v != 0
	default:
		return false
	}
}

// AnyOf is met when any of exps is.
func AnyOf(exps ...Expectation) Expectation {
	return func(out []interface{}) bool {
		for _, exp := range exps {
			if exp(out) {
				return true
			}
		}
		return false
	}
}
