package client

import (
	"bytes"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/params"
)

// ToBytes32 right-pads a short UTF-8 string into a bytes32 value, the way
// contract and currency keys are stored on-chain.
func ToBytes32(s string) [32]byte {
	var out [32]byte
	copy(out[:], s)
	return out
}

func FromBytes32(b [32]byte) string {
	return string(bytes.TrimRight(b[:], "\x00"))
}

// Ether converts a whole number of ether to wei.
func Ether(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), big.NewInt(params.Ether))
}

// ToWei converts a decimal ether amount such as "0.125" to wei without
// going through floating point.
func ToWei(amount string) (*big.Int, error) {
	r, ok := new(big.Rat).SetString(strings.TrimSpace(amount))
	if !ok {
		return nil, fmt.Errorf("invalid decimal amount %q", amount)
	}
	r.Mul(r, new(big.Rat).SetInt64(params.Ether))
	if !r.IsInt() {
		return nil, fmt.Errorf("amount %q has more than 18 decimals", amount)
	}
	return new(big.Int).Set(r.Num()), nil
}

// FloatToWei converts a configured decimal number to wei using its
// shortest exact decimal representation.
func FloatToWei(v float64) (*big.Int, error) {
	return ToWei(big.NewFloat(v).Text('f', -1))
}

// FromWei renders a wei amount as a decimal ether string.
func FromWei(wei *big.Int) string {
	if wei == nil {
		return "0"
	}
	r := new(big.Rat).SetFrac(wei, big.NewInt(params.Ether))
	s := r.FloatString(18)
	if strings.Contains(s, ".") {
		s = strings.TrimRight(strings.TrimRight(s, "0"), ".")
	}
	return s
}
