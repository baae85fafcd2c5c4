package token

import (
	"context"
	"errors"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/ZeroR0R/LSBank/internal/ledger"
)

var (
	// ErrUnauthorized is returned when a minter-gated operation is called by
	// anyone but the current minter.
	ErrUnauthorized = errors.New("caller is not the minter")

	// ErrInsufficientBalance is returned when a holder cannot cover a debit.
	ErrInsufficientBalance = errors.New("insufficient token balance")

	// ErrInsufficientAllowance is returned when a spender's approved amount
	// is less than requested.
	ErrInsufficientAllowance = errors.New("insufficient allowance")

	// ErrInvalidRecipient is returned for transfers, mints and minter
	// handovers targeting the zero address.
	ErrInvalidRecipient = errors.New("invalid recipient")
)

// Decimals is the number of fractional digits of the credit token.
const Decimals = 18

// MinterChanged records a minter handover.
type MinterChanged struct {
	From common.Address
	To   common.Address
}

// Token is the credit token. Balances, allowances, supply and the minter live
// in the ledger; every method takes the unit of work it must run in so that
// callers can compose token effects with their own.
type Token struct {
	Name    string
	Symbol  string
	Address common.Address
}

// New describes a credit token deployed at addr.
func New(name, symbol string, addr common.Address) *Token {
	return &Token{Name: name, Symbol: symbol, Address: addr}
}

// ChangeMinter hands the minter role from caller to newMinter.
func (t *Token) ChangeMinter(ctx context.Context, tx ledger.Tx, caller, newMinter common.Address) (MinterChanged, error) {
	if err := requireMinter(ctx, tx, caller); err != nil {
		return MinterChanged{}, err
	}
	if newMinter == (common.Address{}) {
		return MinterChanged{}, ErrInvalidRecipient
	}
	if err := tx.SetMinter(ctx, newMinter); err != nil {
		return MinterChanged{}, err
	}
	return MinterChanged{From: caller, To: newMinter}, nil
}

// Mint creates amount tokens for to.
func (t *Token) Mint(ctx context.Context, tx ledger.Tx, caller, to common.Address, amount *uint256.Int) error {
	if err := requireMinter(ctx, tx, caller); err != nil {
		return err
	}
	if to == (common.Address{}) {
		return ErrInvalidRecipient
	}
	supply, err := tx.TotalSupply(ctx)
	if err != nil {
		return err
	}
	newSupply, overflow := new(uint256.Int).AddOverflow(supply, amount)
	if overflow {
		return ledger.ErrOverflow
	}
	if err := credit(ctx, tx, to, amount); err != nil {
		return err
	}
	return tx.SetTotalSupply(ctx, newSupply)
}

// Burn destroys amount tokens held by from.
func (t *Token) Burn(ctx context.Context, tx ledger.Tx, caller, from common.Address, amount *uint256.Int) error {
	if err := requireMinter(ctx, tx, caller); err != nil {
		return err
	}
	return burn(ctx, tx, from, amount)
}

// BurnFrom is the minter burn used for repayments: it spends the allowance
// from granted to caller before destroying the tokens.
func (t *Token) BurnFrom(ctx context.Context, tx ledger.Tx, caller, from common.Address, amount *uint256.Int) error {
	if err := requireMinter(ctx, tx, caller); err != nil {
		return err
	}
	if err := spendAllowance(ctx, tx, from, caller, amount); err != nil {
		return err
	}
	return burn(ctx, tx, from, amount)
}

// Transfer moves amount from caller to to.
func (t *Token) Transfer(ctx context.Context, tx ledger.Tx, caller, to common.Address, amount *uint256.Int) error {
	return move(ctx, tx, caller, to, amount)
}

// Approve sets the amount spender may move out of caller's balance.
func (t *Token) Approve(ctx context.Context, tx ledger.Tx, caller, spender common.Address, amount *uint256.Int) error {
	return tx.SetAllowance(ctx, caller, spender, amount)
}

// TransferFrom moves amount from from to to on behalf of caller.
func (t *Token) TransferFrom(ctx context.Context, tx ledger.Tx, caller, from, to common.Address, amount *uint256.Int) error {
	if err := spendAllowance(ctx, tx, from, caller, amount); err != nil {
		return err
	}
	return move(ctx, tx, from, to, amount)
}

func requireMinter(ctx context.Context, tx ledger.Tx, caller common.Address) error {
	minter, err := tx.Minter(ctx)
	if err != nil {
		return err
	}
	if minter != caller {
		return ErrUnauthorized
	}
	return nil
}

func spendAllowance(ctx context.Context, tx ledger.Tx, owner, spender common.Address, amount *uint256.Int) error {
	allowed, err := tx.Allowance(ctx, owner, spender)
	if err != nil {
		return err
	}
	if allowed.Lt(amount) {
		return ErrInsufficientAllowance
	}
	return tx.SetAllowance(ctx, owner, spender, new(uint256.Int).Sub(allowed, amount))
}

func move(ctx context.Context, tx ledger.Tx, from, to common.Address, amount *uint256.Int) error {
	if to == (common.Address{}) {
		return ErrInvalidRecipient
	}
	if err := debit(ctx, tx, from, amount); err != nil {
		return err
	}
	return credit(ctx, tx, to, amount)
}

func burn(ctx context.Context, tx ledger.Tx, from common.Address, amount *uint256.Int) error {
	if err := debit(ctx, tx, from, amount); err != nil {
		return err
	}
	supply, err := tx.TotalSupply(ctx)
	if err != nil {
		return err
	}
	// sum(balances) == supply, so a successful debit implies supply >= amount.
	return tx.SetTotalSupply(ctx, new(uint256.Int).Sub(supply, amount))
}

func debit(ctx context.Context, tx ledger.Tx, holder common.Address, amount *uint256.Int) error {
	balance, err := tx.TokenBalance(ctx, holder)
	if err != nil {
		return err
	}
	if balance.Lt(amount) {
		return ErrInsufficientBalance
	}
	return tx.SetTokenBalance(ctx, holder, new(uint256.Int).Sub(balance, amount))
}

func credit(ctx context.Context, tx ledger.Tx, holder common.Address, amount *uint256.Int) error {
	balance, err := tx.TokenBalance(ctx, holder)
	if err != nil {
		return err
	}
	sum, overflow := new(uint256.Int).AddOverflow(balance, amount)
	if overflow {
		return ledger.ErrOverflow
	}
	return tx.SetTokenBalance(ctx, holder, sum)
}
