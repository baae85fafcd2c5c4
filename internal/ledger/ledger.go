package ledger

import (
	"context"
	"errors"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

var (
	// ErrInsufficientFunds occurs when the source address lacks the native
	// balance to cover a requested transfer.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrReadOnly is returned when a write is attempted inside View.
	ErrReadOnly = errors.New("ledger: write in read-only unit of work")

	// ErrOverflow is returned when a balance would exceed 256 bits.
	ErrOverflow = errors.New("ledger: amount overflow")
)

// Account is the per-address bank position. Deposit and loan slots are
// independent; Balance/IsDeposited and Collateral/IsBorrowed move together.
type Account struct {
	Balance          *uint256.Int
	DepositTimestamp uint64
	IsDeposited      bool
	Collateral       *uint256.Int
	IsBorrowed       bool
}

// ZeroAccount returns the default-valued account for an address never seen before.
func ZeroAccount() Account {
	return Account{Balance: new(uint256.Int), Collateral: new(uint256.Int)}
}

// Clone returns a deep copy so callers never share amount pointers with the ledger.
func (a Account) Clone() Account {
	out := a
	out.Balance = cloneAmount(a.Balance)
	out.Collateral = cloneAmount(a.Collateral)
	return out
}

// Tx is a unit of work over the world state. Reads of unknown addresses yield
// zero values; writes become visible to other units of work only when the
// enclosing Update returns nil.
type Tx interface {
	NativeBalance(ctx context.Context, addr common.Address) (*uint256.Int, error)
	SetNativeBalance(ctx context.Context, addr common.Address, amount *uint256.Int) error

	TokenBalance(ctx context.Context, addr common.Address) (*uint256.Int, error)
	SetTokenBalance(ctx context.Context, addr common.Address, amount *uint256.Int) error
	Allowance(ctx context.Context, owner, spender common.Address) (*uint256.Int, error)
	SetAllowance(ctx context.Context, owner, spender common.Address, amount *uint256.Int) error
	TotalSupply(ctx context.Context) (*uint256.Int, error)
	SetTotalSupply(ctx context.Context, amount *uint256.Int) error
	Minter(ctx context.Context) (common.Address, error)
	SetMinter(ctx context.Context, minter common.Address) error

	// Account returns the stored position for addr, inserting a zero-valued
	// entry first when none exists.
	Account(ctx context.Context, addr common.Address) (Account, error)
	PutAccount(ctx context.Context, addr common.Address, account Account) error

	// RecordTransfer journals t, failing with ErrDuplicateTransaction when
	// its reference is already present.
	RecordTransfer(ctx context.Context, t Transfer) error
	// Transfer looks up a journaled transfer by reference.
	Transfer(ctx context.Context, reference string) (Transfer, bool, error)
}

// Ledger defines the contract implemented by state backends (in-memory, Postgres).
// Units of work run one at a time in submission order.
type Ledger interface {
	// Update runs fn inside a writable unit of work. Every write made by fn is
	// discarded when fn returns an error.
	Update(ctx context.Context, fn func(tx Tx) error) error
	// View runs fn against a consistent read-only snapshot.
	View(ctx context.Context, fn func(tx Tx) error) error
}

// TransferNative moves native units between two addresses within tx.
func TransferNative(ctx context.Context, tx Tx, from, to common.Address, amount *uint256.Int) error {
	if err := DebitNative(ctx, tx, from, amount); err != nil {
		return err
	}
	return CreditNative(ctx, tx, to, amount)
}

// DebitNative removes amount from the native balance of addr.
func DebitNative(ctx context.Context, tx Tx, addr common.Address, amount *uint256.Int) error {
	balance, err := tx.NativeBalance(ctx, addr)
	if err != nil {
		return err
	}
	if balance.Lt(amount) {
		return ErrInsufficientFunds
	}
	return tx.SetNativeBalance(ctx, addr, new(uint256.Int).Sub(balance, amount))
}

// CreditNative adds amount to the native balance of addr.
func CreditNative(ctx context.Context, tx Tx, addr common.Address, amount *uint256.Int) error {
	balance, err := tx.NativeBalance(ctx, addr)
	if err != nil {
		return err
	}
	sum, overflow := new(uint256.Int).AddOverflow(balance, amount)
	if overflow {
		return ErrOverflow
	}
	return tx.SetNativeBalance(ctx, addr, sum)
}

func cloneAmount(v *uint256.Int) *uint256.Int {
	if v == nil {
		return new(uint256.Int)
	}
	return v.Clone()
}
