package client

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

func removeSurroundingParenthesis(s string) (string, error) {
	s = strings.TrimSpace(s)
	if len(s) > 0 {
		if s[0] != '(' || s[len(s)-1] != ')' {
			return "", fmt.Errorf("expected spec %q to be surrounded by parenthesis", s)
		}
		s = s[1 : len(s)-1]
	}
	return s, nil
}

func argumentList(s string) []map[string]interface{} {
	args := []map[string]interface{}{}
	for _, t := range strings.Split(s, ",") {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		args = append(args, map[string]interface{}{
			"name":         "",
			"type":         t,
			"internalType": t,
		})
	}
	return args
}

func methodEntry(spec string) (map[string]interface{}, error) {
	index := strings.Index(spec, "(")
	if index == -1 {
		return nil, fmt.Errorf("method spec %q has no argument list", spec)
	}
	name := strings.TrimSpace(spec[:index])
	types := spec[index:]

	inputs, outputs := types, ""
	if arrow := strings.Index(types, "->"); arrow != -1 {
		inputs = types[:arrow]
		outputs = types[arrow+2:]
	}

	inputs, err := removeSurroundingParenthesis(inputs)
	if err != nil {
		return nil, err
	}
	outputs, err = removeSurroundingParenthesis(outputs)
	if err != nil {
		return nil, err
	}

	mutability := "nonpayable"
	if outputs != "" {
		mutability = "view"
	}

	return map[string]interface{}{
		"type":            "function",
		"name":            name,
		"inputs":          argumentList(inputs),
		"outputs":         argumentList(outputs),
		"stateMutability": mutability,
	}, nil
}

// MethodSpecsJSON renders compact method specs of the form
// "name(inputTypes)->(outputTypes)", e.g. "balanceOf(address)->(uint256)",
// as a JSON ABI. Methods with outputs are marked view.
func MethodSpecsJSON(specs ...string) ([]byte, error) {
	entries := make([]map[string]interface{}, 0, len(specs))
	for _, spec := range specs {
		entry, err := methodEntry(spec)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return json.Marshal(entries)
}

func ParseMethodSpecs(specs ...string) (*abi.ABI, error) {
	abiJSON, err := MethodSpecsJSON(specs...)
	if err != nil {
		return nil, err
	}
	parsed, err := abi.JSON(strings.NewReader(string(abiJSON)))
	if err != nil {
		return nil, fmt.Errorf("failed to parse method specs: %w", err)
	}
	return &parsed, nil
}

// MethodName returns the name part of a method spec.
func MethodName(spec string) string {
	if index := strings.Index(spec, "("); index != -1 {
		return strings.TrimSpace(spec[:index])
	}
	return strings.TrimSpace(spec)
}
