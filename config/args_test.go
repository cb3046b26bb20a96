package config

import (
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

func TestConvertArgument(t *testing.T) {
	require := require.New(t)
	addr := "0x9326BFA02ADD2366b30bacB125260Af641031331"

	tests := []struct {
		desc      string
		arg       string
		argType   string
		expected  interface{}
		expectErr bool
	}{
		{desc: "address", arg: addr, argType: "address", expected: common.HexToAddress(addr)},
		{desc: "bad address", arg: "0x12", argType: "address", expectErr: true},
		{desc: "decimal uint", arg: "42", argType: "uint256", expected: big.NewInt(42)},
		{desc: "hex uint", arg: "0x10", argType: "uint", expected: big.NewInt(16)},
		{desc: "bad uint", arg: "ten", argType: "uint256", expectErr: true},
		{desc: "bool", arg: "true", argType: "bool", expected: true},
		{desc: "string", arg: "hello", argType: "string", expected: "hello"},
		{desc: "short bytes32", arg: "sUSD", argType: "bytes32", expected: [32]byte{'s', 'U', 'S', 'D'}},
		{desc: "address list", arg: addr + ", " + addr, argType: "address[]", expected: []common.Address{common.HexToAddress(addr), common.HexToAddress(addr)}},
		{desc: "unsupported", arg: "1", argType: "uint8[]", expectErr: true},
	}

	for _, tt := range tests {
		v, err := ConvertArgument(tt.arg, tt.argType)
		if tt.expectErr {
			require.Error(err, tt.desc)
			continue
		}
		require.NoError(err, tt.desc)
		require.Equal(tt.expected, v, tt.desc)
	}
}

func TestConvertArgumentsCountMismatch(t *testing.T) {
	require := require.New(t)

	_, err := ConvertArguments([]string{"1"}, []string{"uint256", "bool"})
	require.Error(err)
}

func TestParseAddress(t *testing.T) {
	require := require.New(t)

	_, err := ParseAddress("oracle", "not-an-address")
	var invalid *InvalidInputError
	require.True(errors.As(err, &invalid))
	require.Equal("oracle", invalid.Field)

	addr, err := ParseAddress("oracle", "0x9326BFA02ADD2366b30bacB125260Af641031331")
	require.NoError(err)
	require.Equal(common.HexToAddress("0x9326BFA02ADD2366b30bacB125260Af641031331"), addr)
}

func TestParsePrivateKey(t *testing.T) {
	require := require.New(t)

	key, err := ParsePrivateKey("0x4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318")
	require.NoError(err)
	require.NotNil(key)

	_, err = ParsePrivateKey("")
	require.Error(err)
	_, err = ParsePrivateKey("0x1234")
	require.Error(err)
	_, err = ParsePrivateKey("zz")
	require.Error(err)
}
