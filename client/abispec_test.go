package client

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseMethodSpecs(t *testing.T) {
	require := require.New(t)

	parsed, err := ParseMethodSpecs(
		"balanceOf(address)->(uint256)",
		"setTarget(address)",
		"owner()->(address)",
	)
	require.NoError(err)

	balanceOf, ok := parsed.Methods["balanceOf"]
	require.True(ok)
	require.Len(balanceOf.Inputs, 1)
	require.Equal("address", balanceOf.Inputs[0].Type.String())
	require.Len(balanceOf.Outputs, 1)
	require.True(balanceOf.IsConstant())

	setTarget := parsed.Methods["setTarget"]
	require.Empty(setTarget.Outputs)
	require.False(setTarget.IsConstant())

	require.Empty(parsed.Methods["owner"].Inputs)
}

func TestParseMethodSpecsErrors(t *testing.T) {
	require := require.New(t)

	tests := []struct {
		desc string
		spec string
	}{
		{desc: "no argument list", spec: "owner"},
		{desc: "unclosed outputs", spec: "owner()->address"},
		{desc: "unknown type", spec: "foo(notatype)"},
	}

	for _, tt := range tests {
		_, err := ParseMethodSpecs(tt.spec)
		require.Error(err, tt.desc)
	}
}

func TestMethodName(t *testing.T) {
	require := require.New(t)

	require.Equal("balanceOf", MethodName("balanceOf(address)->(uint256)"))
	require.Equal("owner", MethodName(" owner "))
}
