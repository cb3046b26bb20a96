package reconcile

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

func TestExpectations(t *testing.T) {
	require := require.New(t)
	addr := common.HexToAddress("0x0000000000000000000000000000000000000a02")

	tests := []struct {
		desc     string
		expect   Expectation
		out      []interface{}
		expected bool
	}{
		{desc: "equal address", expect: Equals(addr), out: []interface{}{addr}, expected: true},
		{desc: "other address", expect: Equals(addr), out: []interface{}{common.Address{}}, expected: false},
		{desc: "no output", expect: Equals(addr), out: nil, expected: false},
		{desc: "equal big", expect: EqualsBig(big.NewInt(180)), out: []interface{}{big.NewInt(180)}, expected: true},
		{desc: "nil big", expect: EqualsBig(big.NewInt(0)), out: []interface{}{(*big.Int)(nil)}, expected: false},
		{desc: "true", expect: IsTrue, out: []interface{}{true}, expected: true},
		{desc: "false", expect: EqualsBool(false), out: []interface{}{false}, expected: true},
		{desc: "set big", expect: IsSet, out: []interface{}{big.NewInt(1)}, expected: true},
		{desc: "zero big", expect: IsSet, out: []interface{}{new(big.Int)}, expected: false},
		{desc: "zero address", expect: IsSet, out: []interface{}{common.Address{}}, expected: false},
		{desc: "set uint8", expect: IsSet, out: []interface{}{uint8(18)}, expected: true},
		{desc: "unknown type", expect: IsSet, out: []interface{}{"x"}, expected: false},
		{desc: "any of, first met", expect: AnyOf(IsSet, EqualsBool(false)), out: []interface{}{true}, expected: true},
		{desc: "any of, second met", expect: AnyOf(IsSet, EqualsBool(false)), out: []interface{}{false}, expected: true},
		{desc: "any of, none met", expect: AnyOf(IsSet, EqualsBig(big.NewInt(7))), out: []interface{}{new(big.Int)}, expected: false},
		{desc: "any of nothing", expect: AnyOf(), out: []interface{}{true}, expected: false},
	}

	for _, tt := range tests {
		require.Equal(tt.expected, tt.expect(tt.out), tt.desc)
	}
}
