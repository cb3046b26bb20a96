// Package clienttest provides an in-memory chain client for tests.
package clienttest

import (
	"context"
	"fmt"
	"math/big"
	"reflect"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/parthshah1/synth-publish/client"
)

// ReadFunc answers a view call.
type ReadFunc func(args []interface{}) []interface{}

// WriteFunc applies a transaction's effect; a non-nil error reverts it.
type WriteFunc func(args []interface{}) error

// Tx is a recorded write transaction.
type Tx struct {
	To     common.Address
	Method string
	Args   []interface{}
	Opts   client.TxOpts
	Hash   common.Hash
}

// Deployment is a recorded contract creation.
type Deployment struct {
	Address  common.Address
	Bytecode []byte
	Args     []interface{}
	Opts     client.TxOpts
}

// Fake is a client.Client whose contract state is described by callbacks.
// Reads with no registered callback return zero values for the method's
// outputs.
type Fake struct {
	mu          sync.Mutex
	account     common.Address
	nonce       uint64
	reads       map[common.Address]map[string]ReadFunc
	writes      map[common.Address]map[string]WriteFunc
	balances    map[common.Address]*big.Int
	failing     map[common.Address]error
	failedCalls map[common.Address]map[string]error

	Txs         []Tx
	Deployments []Deployment
	// OnDeploy runs after every deployment, e.g. to install state.
	OnDeploy func(d Deployment)
}

var _ client.Client = (*Fake)(nil)

func New(account common.Address) *Fake {
	return &Fake{
		account:     account,
		reads:       make(map[common.Address]map[string]ReadFunc),
		writes:      make(map[common.Address]map[string]WriteFunc),
		balances:    make(map[common.Address]*big.Int),
		failing:     make(map[common.Address]error),
		failedCalls: make(map[common.Address]map[string]error),
	}
}

func (f *Fake) Account() common.Address { return f.account }

// OnRead registers the answer for method on addr.
func (f *Fake) OnRead(addr common.Address, method string, fn ReadFunc) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.reads[addr] == nil {
		f.reads[addr] = make(map[string]ReadFunc)
	}
	f.reads[addr][method] = fn
}

// Returns registers constant values for method on addr.
func (f *Fake) Returns(addr common.Address, method string, values ...interface{}) {
	f.OnRead(addr, method, func([]interface{}) []interface{} { return values })
}

func (f *Fake) OnWrite(addr common.Address, method string, fn WriteFunc) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writes[addr] == nil {
		f.writes[addr] = make(map[string]WriteFunc)
	}
	f.writes[addr][method] = fn
}

// Store links a setter to a getter: writing setter stores its first
// argument, which getter then returns.
func (f *Fake) Store(addr common.Address, getter, setter string, initial interface{}) {
	var mu sync.Mutex
	value := initial
	f.OnRead(addr, getter, func([]interface{}) []interface{} {
		mu.Lock()
		defer mu.Unlock()
		return []interface{}{value}
	})
	f.OnWrite(addr, setter, func(args []interface{}) error {
		mu.Lock()
		defer mu.Unlock()
		value = args[0]
		return nil
	})
}

// Fail makes every call to addr fail with err.
func (f *Fake) Fail(addr common.Address, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failing[addr] = err
}

// FailCall makes view calls of method on addr fail with err.
func (f *Fake) FailCall(addr common.Address, method string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failedCalls[addr] == nil {
		f.failedCalls[addr] = make(map[string]error)
	}
	f.failedCalls[addr][method] = err
}

func (f *Fake) SetBalance(addr common.Address, amount *big.Int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.balances[addr] = amount
}

// Sent returns the recorded transactions calling method.
func (f *Fake) Sent(method string) []Tx {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Tx
	for _, tx := range f.Txs {
		if tx.Method == method {
			out = append(out, tx)
		}
	}
	return out
}

// TxCount counts writes and deployments.
func (f *Fake) TxCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Txs) + len(f.Deployments)
}

func (f *Fake) Deploy(_ context.Context, _ *abi.ABI, bytecode []byte, args []interface{}, opts client.TxOpts) (client.DeployResult, error) {
	f.mu.Lock()
	addr := crypto.CreateAddress(f.account, f.nonce)
	hash := f.nextHash()
	d := Deployment{Address: addr, Bytecode: bytecode, Args: args, Opts: opts}
	f.Deployments = append(f.Deployments, d)
	onDeploy := f.OnDeploy
	f.mu.Unlock()

	if onDeploy != nil {
		onDeploy(d)
	}
	return client.DeployResult{Address: addr, TxHash: hash}, nil
}

func (f *Fake) Call(_ context.Context, to common.Address, contractABI *abi.ABI, method string, args ...interface{}) ([]interface{}, error) {
	f.mu.Lock()
	if err := f.failing[to]; err != nil {
		f.mu.Unlock()
		return nil, err
	}
	if err := f.failedCalls[to][method]; err != nil {
		f.mu.Unlock()
		return nil, err
	}
	fn := f.reads[to][method]
	f.mu.Unlock()

	if fn != nil {
		return fn(args), nil
	}

	m, ok := contractABI.Methods[method]
	if !ok {
		return nil, fmt.Errorf("no method %s", method)
	}
	out := make([]interface{}, len(m.Outputs))
	for i, arg := range m.Outputs {
		out[i] = zeroValue(arg.Type)
	}
	return out, nil
}

func (f *Fake) Send(_ context.Context, to common.Address, _ *abi.ABI, method string, args []interface{}, opts client.TxOpts) (common.Hash, error) {
	f.mu.Lock()
	if err := f.failing[to]; err != nil {
		f.mu.Unlock()
		return common.Hash{}, err
	}
	fn := f.writes[to][method]
	f.mu.Unlock()

	if fn != nil {
		if err := fn(args); err != nil {
			return common.Hash{}, &client.ContractRevertError{To: to, Method: method, Reason: err.Error()}
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	hash := f.nextHash()
	f.Txs = append(f.Txs, Tx{To: to, Method: method, Args: args, Opts: opts, Hash: hash})
	return hash, nil
}

func (f *Fake) Balance(_ context.Context, account common.Address) (*big.Int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if b, ok := f.balances[account]; ok {
		return new(big.Int).Set(b), nil
	}
	return new(big.Int), nil
}

func (f *Fake) nextHash() common.Hash {
	f.nonce++
	return common.BigToHash(new(big.Int).SetUint64(f.nonce))
}

func zeroValue(t abi.Type) interface{} {
	switch t.T {
	case abi.UintTy, abi.IntTy:
		if t.Size > 64 {
			return new(big.Int)
		}
	case abi.AddressTy:
		return common.Address{}
	}
	return reflect.Zero(t.GetType()).Interface()
}

// Bind returns a handle to address on f whose ABI is built from compact
// method specs such as "owner()->(address)".
func (f *Fake) Bind(name string, address common.Address, specs ...string) *client.Contract {
	parsed, err := client.ParseMethodSpecs(specs...)
	if err != nil {
		panic(err)
	}
	return client.NewContract(f, name, address, parsed)
}
