package ledger

import (
	"context"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

type allowanceKey struct {
	owner   common.Address
	spender common.Address
}

type worldState struct {
	native     map[common.Address]*uint256.Int
	tokens     map[common.Address]*uint256.Int
	allowances map[allowanceKey]*uint256.Int
	accounts   map[common.Address]Account
	transfers  map[string]Transfer
	supply     *uint256.Int
	minter     common.Address
}

func newWorldState() worldState {
	return worldState{
		native:     make(map[common.Address]*uint256.Int),
		tokens:     make(map[common.Address]*uint256.Int),
		allowances: make(map[allowanceKey]*uint256.Int),
		accounts:   make(map[common.Address]Account),
		transfers:  make(map[string]Transfer),
		supply:     new(uint256.Int),
	}
}

type inMemoryLedger struct {
	mu    sync.RWMutex
	state worldState
}

// NewInMemory creates a concurrency-safe in-memory ledger useful for unit tests
// and development mode. Writes are buffered per unit of work and merged on success.
func NewInMemory() Ledger {
	return &inMemoryLedger{state: newWorldState()}
}

func (l *inMemoryLedger) Update(ctx context.Context, fn func(tx Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	tx := newMemTx(&l.state, true)
	if err := fn(tx); err != nil {
		return err
	}
	tx.commit()
	return nil
}

func (l *inMemoryLedger) View(ctx context.Context, fn func(tx Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	return fn(newMemTx(&l.state, false))
}

// memTx overlays pending writes on top of the committed state.
type memTx struct {
	base      *worldState
	writable  bool
	pending   worldState
	supplySet bool
	minterSet bool
}

func newMemTx(base *worldState, writable bool) *memTx {
	return &memTx{base: base, writable: writable, pending: newWorldState()}
}

func (t *memTx) NativeBalance(_ context.Context, addr common.Address) (*uint256.Int, error) {
	return lookupAmount(t.pending.native, t.base.native, addr), nil
}

func (t *memTx) SetNativeBalance(_ context.Context, addr common.Address, amount *uint256.Int) error {
	if !t.writable {
		return ErrReadOnly
	}
	t.pending.native[addr] = cloneAmount(amount)
	return nil
}

func (t *memTx) TokenBalance(_ context.Context, addr common.Address) (*uint256.Int, error) {
	return lookupAmount(t.pending.tokens, t.base.tokens, addr), nil
}

func (t *memTx) SetTokenBalance(_ context.Context, addr common.Address, amount *uint256.Int) error {
	if !t.writable {
		return ErrReadOnly
	}
	t.pending.tokens[addr] = cloneAmount(amount)
	return nil
}

func (t *memTx) Allowance(_ context.Context, owner, spender common.Address) (*uint256.Int, error) {
	return lookupAmount(t.pending.allowances, t.base.allowances, allowanceKey{owner: owner, spender: spender}), nil
}

func (t *memTx) SetAllowance(_ context.Context, owner, spender common.Address, amount *uint256.Int) error {
	if !t.writable {
		return ErrReadOnly
	}
	t.pending.allowances[allowanceKey{owner: owner, spender: spender}] = cloneAmount(amount)
	return nil
}

func (t *memTx) TotalSupply(_ context.Context) (*uint256.Int, error) {
	if t.supplySet {
		return t.pending.supply.Clone(), nil
	}
	return cloneAmount(t.base.supply), nil
}

func (t *memTx) SetTotalSupply(_ context.Context, amount *uint256.Int) error {
	if !t.writable {
		return ErrReadOnly
	}
	t.pending.supply = cloneAmount(amount)
	t.supplySet = true
	return nil
}

func (t *memTx) Minter(_ context.Context) (common.Address, error) {
	if t.minterSet {
		return t.pending.minter, nil
	}
	return t.base.minter, nil
}

func (t *memTx) SetMinter(_ context.Context, minter common.Address) error {
	if !t.writable {
		return ErrReadOnly
	}
	t.pending.minter = minter
	t.minterSet = true
	return nil
}

func (t *memTx) Account(_ context.Context, addr common.Address) (Account, error) {
	if acct, ok := t.pending.accounts[addr]; ok {
		return acct.Clone(), nil
	}
	if acct, ok := t.base.accounts[addr]; ok {
		return acct.Clone(), nil
	}
	acct := ZeroAccount()
	if t.writable {
		t.pending.accounts[addr] = acct.Clone()
	}
	return acct, nil
}

func (t *memTx) PutAccount(_ context.Context, addr common.Address, account Account) error {
	if !t.writable {
		return ErrReadOnly
	}
	t.pending.accounts[addr] = account.Clone()
	return nil
}

func (t *memTx) RecordTransfer(_ context.Context, tr Transfer) error {
	if !t.writable {
		return ErrReadOnly
	}
	if _, ok := t.pending.transfers[tr.Reference]; ok {
		return ErrDuplicateTransaction
	}
	if _, ok := t.base.transfers[tr.Reference]; ok {
		return ErrDuplicateTransaction
	}
	t.pending.transfers[tr.Reference] = tr.Clone()
	return nil
}

func (t *memTx) Transfer(_ context.Context, reference string) (Transfer, bool, error) {
	if tr, ok := t.pending.transfers[reference]; ok {
		return tr.Clone(), true, nil
	}
	if tr, ok := t.base.transfers[reference]; ok {
		return tr.Clone(), true, nil
	}
	return Transfer{}, false, nil
}

func (t *memTx) commit() {
	for k, v := range t.pending.native {
		t.base.native[k] = v
	}
	for k, v := range t.pending.tokens {
		t.base.tokens[k] = v
	}
	for k, v := range t.pending.allowances {
		t.base.allowances[k] = v
	}
	for k, v := range t.pending.accounts {
		t.base.accounts[k] = v
	}
	for k, v := range t.pending.transfers {
		t.base.transfers[k] = v
	}
	if t.supplySet {
		t.base.supply = t.pending.supply
	}
	if t.minterSet {
		t.base.minter = t.pending.minter
	}
}

func lookupAmount[K comparable](pending, base map[K]*uint256.Int, key K) *uint256.Int {
	if v, ok := pending[key]; ok {
		return v.Clone()
	}
	if v, ok := base[key]; ok {
		return v.Clone()
	}
	return new(uint256.Int)
}
