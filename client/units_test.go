package client

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestToWei(t *testing.T) {
	require := require.New(t)

	tests := []struct {
		desc      string
		amount    string
		expected  string
		expectErr bool
	}{
		{desc: "whole", amount: "5", expected: "5000000000000000000"},
		{desc: "fraction", amount: "0.125", expected: "125000000000000000"},
		{desc: "padded", amount: " 0.003 ", expected: "3000000000000000"},
		{desc: "one wei", amount: "0.000000000000000001", expected: "1"},
		{desc: "too precise", amount: "0.0000000000000000001", expectErr: true},
		{desc: "garbage", amount: "abc", expectErr: true},
	}

	for _, tt := range tests {
		wei, err := ToWei(tt.amount)
		if tt.expectErr {
			require.Error(err, tt.desc)
			continue
		}
		require.NoError(err, tt.desc)
		require.Equal(tt.expected, wei.String(), tt.desc)
	}
}

func TestFromWei(t *testing.T) {
	require := require.New(t)

	require.Equal("0", FromWei(nil))
	require.Equal("0", FromWei(new(big.Int)))
	require.Equal("5", FromWei(Ether(5)))
	require.Equal("0.125", FromWei(big.NewInt(125_000_000_000_000_000)))
}

func TestFloatToWei(t *testing.T) {
	require := require.New(t)

	wei, err := FloatToWei(0.003)
	require.NoError(err)
	require.Equal("3000000000000000", wei.String())
}

func TestBytes32(t *testing.T) {
	require := require.New(t)

	b := ToBytes32("sUSD")
	require.Equal(byte('s'), b[0])
	require.Equal(byte(0), b[4])
	require.Equal("sUSD", FromBytes32(b))
	require.Equal("", FromBytes32([32]byte{}))
}
