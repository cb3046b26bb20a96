package config

import (
	"crypto/ecdsa"
	"encoding/hex"
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// ParseAddress validates a critical address input.
func ParseAddress(field, value string) (common.Address, error) {
	if !common.IsHexAddress(value) {
		return common.Address{}, &InvalidInputError{Field: field, Value: value}
	}
	return common.HexToAddress(value), nil
}

// ConvertArguments converts CLI strings to ABI values according to types.
func ConvertArguments(args, types []string) ([]interface{}, error) {
	if len(args) != len(types) {
		return nil, fmt.Errorf("argument count mismatch: %d args for %d types", len(args), len(types))
	}

	converted := make([]interface{}, len(args))
	for i, arg := range args {
		convertedArg, err := ConvertArgument(arg, types[i])
		if err != nil {
			return nil, fmt.Errorf("failed to convert arg %d: %w", i, err)
		}
		converted[i] = convertedArg
	}

	return converted, nil
}

func ConvertArgument(arg, argType string) (interface{}, error) {
	switch argType {
	case "address":
		if !common.IsHexAddress(arg) {
			return nil, fmt.Errorf("invalid address value: %s", arg)
		}
		return common.HexToAddress(arg), nil
	case "uint256", "uint", "int256", "int":
		value, ok := new(big.Int).SetString(arg, 0)
		if !ok {
			return nil, fmt.Errorf("invalid %s value: %s", argType, arg)
		}
		return value, nil
	case "bool":
		return strconv.ParseBool(arg)
	case "string":
		return arg, nil
	case "bytes32":
		if strings.HasPrefix(arg, "0x") && len(arg) == 66 {
			return [32]byte(common.HexToHash(arg)), nil
		}
		if len(arg) > 32 {
			return nil, fmt.Errorf("bytes32 value too long: %s", arg)
		}
		var out [32]byte
		copy(out[:], arg)
		return out, nil
	case "address[]":
		var out []common.Address
		for _, part := range splitList(arg) {
			if !common.IsHexAddress(part) {
				return nil, fmt.Errorf("invalid address value: %s", part)
			}
			out = append(out, common.HexToAddress(part))
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported type: %s", argType)
	}
}

func splitList(s string) []string {
	var parts []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return parts
}

func ParsePrivateKey(privateKeyStr string) (*ecdsa.PrivateKey, error) {
	privateKeyStr = strings.TrimPrefix(strings.TrimSpace(privateKeyStr), "0x")
	if privateKeyStr == "" {
		return nil, fmt.Errorf("no private key configured")
	}

	privateKeyBytes, err := hex.DecodeString(privateKeyStr)
	if err != nil {
		return nil, fmt.Errorf("invalid hex format: %w", err)
	}

	if len(privateKeyBytes) != 32 {
		return nil, fmt.Errorf("invalid private key length: got %d bytes, want 32 bytes", len(privateKeyBytes))
	}

	privateKey, err := crypto.ToECDSA(privateKeyBytes)
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}

	return privateKey, nil
}
