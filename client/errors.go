package client

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
)

// ErrSimulated is returned when a dry-run placeholder contract is queried.
var ErrSimulated = errors.New("contract is a dry-run placeholder and has no on-chain state")

// NodeCommunicationError means the node could not be reached or answered
// with a transport-level failure.
type NodeCommunicationError struct {
	Op  string
	Err error
}

func (e *NodeCommunicationError) Error() string {
	return fmt.Sprintf("node communication failed (%s): %v", e.Op, e.Err)
}

func (e *NodeCommunicationError) Unwrap() error { return e.Err }

// ContractRevertError means the EVM rejected a call or transaction.
type ContractRevertError struct {
	Contract string
	To       common.Address
	Method   string
	TxHash   common.Hash
	Reason   string
}

func (e *ContractRevertError) Error() string {
	target := e.Contract
	if target == "" {
		target = e.To.Hex()
	}
	msg := fmt.Sprintf("%s.%s reverted: %s", target, e.Method, e.Reason)
	if e.TxHash != (common.Hash{}) {
		msg += fmt.Sprintf(" (tx %s)", e.TxHash.Hex())
	}
	return msg
}

func classify(op string, to common.Address, method string, err error) error {
	if isRevert(err) {
		return &ContractRevertError{To: to, Method: method, Reason: revertReason(err)}
	}
	return &NodeCommunicationError{Op: op, Err: err}
}

func isRevert(err error) bool {
	var dataErr rpc.DataError
	if errors.As(err, &dataErr) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "revert") || strings.Contains(msg, "invalid opcode")
}

func revertReason(err error) string {
	var dataErr rpc.DataError
	if errors.As(err, &dataErr) {
		if encoded, ok := dataErr.ErrorData().(string); ok {
			if data, decodeErr := hexutil.Decode(encoded); decodeErr == nil {
				if reason, unpackErr := abi.UnpackRevert(data); unpackErr == nil {
					return reason
				}
			}
		}
	}
	return err.Error()
}
