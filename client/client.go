package client

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
)

const receiptPollInterval = time.Second

// TxOpts carries the gas settings for a single transaction.
type TxOpts struct {
	GasLimit uint64
	GasPrice *big.Int
	Value    *big.Int
}

// DeployResult is the outcome of a mined contract-creation transaction.
type DeployResult struct {
	Address common.Address
	TxHash  common.Hash
}

// Client is the chain access the deployment engine needs. Every write is
// awaited until mined before returning.
type Client interface {
	Account() common.Address
	Deploy(ctx context.Context, contractABI *abi.ABI, bytecode []byte, args []interface{}, opts TxOpts) (DeployResult, error)
	Call(ctx context.Context, to common.Address, contractABI *abi.ABI, method string, args ...interface{}) ([]interface{}, error)
	Send(ctx context.Context, to common.Address, contractABI *abi.ABI, method string, args []interface{}, opts TxOpts) (common.Hash, error)
	Balance(ctx context.Context, account common.Address) (*big.Int, error)
}

// Node extends Client with operations only a live JSON-RPC endpoint offers.
type Node interface {
	Client
	ChainID() *big.Int
	LatestBlockTime(ctx context.Context) (uint64, error)
	FundFromNode(ctx context.Context, to common.Address, amount *big.Int) (common.Hash, error)
	Close()
}

// EthClient signs with a single deployer key and talks to one JSON-RPC node.
type EthClient struct {
	rpc     *ethclient.Client
	key     *ecdsa.PrivateKey
	account common.Address
	chainID *big.Int
}

var _ Node = (*EthClient)(nil)

// Dial connects to rpcURL and binds the deployer key.
func Dial(ctx context.Context, rpcURL string, key *ecdsa.PrivateKey) (*EthClient, error) {
	if key == nil {
		return nil, fmt.Errorf("private key cannot be nil")
	}

	rpcClient, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, &NodeCommunicationError{Op: "dial " + rpcURL, Err: err}
	}

	chainID, err := rpcClient.ChainID(ctx)
	if err != nil {
		rpcClient.Close()
		return nil, &NodeCommunicationError{Op: "get chain ID", Err: err}
	}

	return &EthClient{
		rpc:     rpcClient,
		key:     key,
		account: crypto.PubkeyToAddress(key.PublicKey),
		chainID: chainID,
	}, nil
}

func (c *EthClient) Account() common.Address { return c.account }

func (c *EthClient) ChainID() *big.Int { return new(big.Int).Set(c.chainID) }

func (c *EthClient) Close() {
	if c.rpc != nil {
		c.rpc.Close()
	}
}

func (c *EthClient) Deploy(ctx context.Context, contractABI *abi.ABI, bytecode []byte, args []interface{}, opts TxOpts) (DeployResult, error) {
	input, err := contractABI.Pack("", args...)
	if err != nil {
		return DeployResult{}, fmt.Errorf("failed to pack constructor arguments: %w", err)
	}

	data := append(append([]byte{}, bytecode...), input...)
	tx, err := c.signAndSend(ctx, nil, data, opts)
	if err != nil {
		return DeployResult{}, err
	}

	receipt, err := c.waitMined(ctx, tx)
	if err != nil {
		return DeployResult{}, err
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return DeployResult{}, &ContractRevertError{
			Method: "constructor",
			TxHash: tx.Hash(),
			Reason: c.replayReason(ctx, nil, data, receipt.BlockNumber),
		}
	}

	return DeployResult{Address: receipt.ContractAddress, TxHash: tx.Hash()}, nil
}

func (c *EthClient) Call(ctx context.Context, to common.Address, contractABI *abi.ABI, method string, args ...interface{}) ([]interface{}, error) {
	data, err := contractABI.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to pack %s arguments: %w", method, err)
	}

	out, err := c.rpc.CallContract(ctx, ethereum.CallMsg{From: c.account, To: &to, Data: data}, nil)
	if err != nil {
		return nil, classify("call "+method, to, method, err)
	}

	values, err := contractABI.Unpack(method, out)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack %s result: %w", method, err)
	}
	return values, nil
}

func (c *EthClient) Send(ctx context.Context, to common.Address, contractABI *abi.ABI, method string, args []interface{}, opts TxOpts) (common.Hash, error) {
	data, err := contractABI.Pack(method, args...)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to pack %s arguments: %w", method, err)
	}

	tx, err := c.signAndSend(ctx, &to, data, opts)
	if err != nil {
		var revert *ContractRevertError
		if errors.As(err, &revert) {
			revert.To = to
			revert.Method = method
		}
		return common.Hash{}, err
	}

	receipt, err := c.waitMined(ctx, tx)
	if err != nil {
		return tx.Hash(), err
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return tx.Hash(), &ContractRevertError{
			To:     to,
			Method: method,
			TxHash: tx.Hash(),
			Reason: c.replayReason(ctx, &to, data, receipt.BlockNumber),
		}
	}
	return tx.Hash(), nil
}

func (c *EthClient) Balance(ctx context.Context, account common.Address) (*big.Int, error) {
	balance, err := c.rpc.BalanceAt(ctx, account, nil)
	if err != nil {
		return nil, &NodeCommunicationError{Op: "get balance", Err: err}
	}
	return balance, nil
}

func (c *EthClient) LatestBlockTime(ctx context.Context) (uint64, error) {
	header, err := c.rpc.HeaderByNumber(ctx, nil)
	if err != nil {
		return 0, &NodeCommunicationError{Op: "get latest block", Err: err}
	}
	return header.Time, nil
}

// FundFromNode moves amount from the node's first unlocked account to the
// given address. Only forked development nodes expose unlocked accounts.
func (c *EthClient) FundFromNode(ctx context.Context, to common.Address, amount *big.Int) (common.Hash, error) {
	var accounts []common.Address
	if err := c.rpc.Client().CallContext(ctx, &accounts, "eth_accounts"); err != nil {
		return common.Hash{}, &NodeCommunicationError{Op: "list node accounts", Err: err}
	}
	if len(accounts) == 0 {
		return common.Hash{}, fmt.Errorf("node has no unlocked accounts to fund %s from", to.Hex())
	}

	var hash common.Hash
	req := map[string]interface{}{
		"from":  accounts[0],
		"to":    to,
		"value": (*hexutil.Big)(amount),
	}
	if err := c.rpc.Client().CallContext(ctx, &hash, "eth_sendTransaction", req); err != nil {
		return common.Hash{}, classify("fund account", to, "", err)
	}

	for {
		receipt, err := c.rpc.TransactionReceipt(ctx, hash)
		if err == nil {
			if receipt.Status != types.ReceiptStatusSuccessful {
				return hash, fmt.Errorf("funding transaction %s failed", hash.Hex())
			}
			return hash, nil
		}
		if !errors.Is(err, ethereum.NotFound) {
			return hash, &NodeCommunicationError{Op: "get receipt", Err: err}
		}
		select {
		case <-ctx.Done():
			return hash, ctx.Err()
		case <-time.After(receiptPollInterval):
		}
	}
}

func (c *EthClient) signAndSend(ctx context.Context, to *common.Address, data []byte, opts TxOpts) (*types.Transaction, error) {
	nonce, err := c.rpc.PendingNonceAt(ctx, c.account)
	if err != nil {
		return nil, &NodeCommunicationError{Op: "get nonce", Err: err}
	}

	gasPrice := opts.GasPrice
	if gasPrice == nil {
		gasPrice, err = c.rpc.SuggestGasPrice(ctx)
		if err != nil {
			return nil, &NodeCommunicationError{Op: "get gas price", Err: err}
		}
	}

	value := opts.Value
	if value == nil {
		value = new(big.Int)
	}

	gasLimit := opts.GasLimit
	if gasLimit == 0 {
		gasLimit, err = c.rpc.EstimateGas(ctx, ethereum.CallMsg{From: c.account, To: to, Value: value, Data: data})
		if err != nil {
			return nil, classify("estimate gas", common.Address{}, "", err)
		}
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		GasPrice: gasPrice,
		Gas:      gasLimit,
		To:       to,
		Value:    value,
		Data:     data,
	})

	signedTx, err := types.SignTx(tx, types.LatestSignerForChainID(c.chainID), c.key)
	if err != nil {
		return nil, fmt.Errorf("failed to sign transaction: %w", err)
	}

	if err := c.rpc.SendTransaction(ctx, signedTx); err != nil {
		return nil, classify("send transaction", common.Address{}, "", err)
	}
	return signedTx, nil
}

func (c *EthClient) waitMined(ctx context.Context, tx *types.Transaction) (*types.Receipt, error) {
	ticker := time.NewTicker(receiptPollInterval)
	defer ticker.Stop()

	for {
		receipt, err := c.rpc.TransactionReceipt(ctx, tx.Hash())
		if err == nil {
			return receipt, nil
		}
		if !errors.Is(err, ethereum.NotFound) {
			return nil, &NodeCommunicationError{Op: "get receipt for " + tx.Hash().Hex(), Err: err}
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// replayReason re-executes a failed transaction as a call at its block to
// recover the revert string the receipt does not carry.
func (c *EthClient) replayReason(ctx context.Context, to *common.Address, data []byte, block *big.Int) string {
	_, err := c.rpc.CallContract(ctx, ethereum.CallMsg{From: c.account, To: to, Data: data}, block)
	if err == nil {
		return "transaction reverted without a reason"
	}
	return revertReason(err)
}
