package bank

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/ZeroR0R/LSBank/internal/ledger"
	"github.com/ZeroR0R/LSBank/internal/notification"
	"github.com/ZeroR0R/LSBank/internal/token"
	"github.com/ZeroR0R/LSBank/internal/units"
)

var (
	// ErrInvalidAmount is returned when a deposit or collateral differs from
	// the fixed deposit unit.
	ErrInvalidAmount = errors.New("amount must equal the fixed deposit unit")
	// ErrAlreadyDeposited is returned by a deposit while one is active.
	ErrAlreadyDeposited = errors.New("account already has an active deposit")
	// ErrAlreadyBorrowed is returned by a borrow while a loan is active.
	ErrAlreadyBorrowed = errors.New("account already has an active loan")
	// ErrNoActiveDeposit is returned by a withdraw without a deposit.
	ErrNoActiveDeposit = errors.New("no active deposit")
	// ErrNoActiveLoan is returned by a return without a loan.
	ErrNoActiveLoan = errors.New("no active loan")
	// ErrOverflow is returned when interest arithmetic exceeds 256 bits.
	ErrOverflow = errors.New("interest overflow")
)

const (
	// DefaultDepositUnit is 0.01 ether in wei.
	DefaultDepositUnit uint64 = 10_000_000_000_000_000
	// LoanToValueDivisor: a loan mints collateral/2 credit tokens.
	LoanToValueDivisor uint64 = 2
	// FeeDivisor: repaying a loan keeps collateral/10 as fee.
	FeeDivisor uint64 = 10
)

// Account is the per-address bank position.
type Account = ledger.Account

// DepositResult mirrors the state written by a deposit.
type DepositResult struct {
	Balance     *uint256.Int
	Timestamp   uint64
	IsDeposited bool
}

// WithdrawResult mirrors the reset state and the interest minted.
type WithdrawResult struct {
	Balance     *uint256.Int
	Timestamp   uint64
	IsDeposited bool
	Interest    *uint256.Int
	Returned    *uint256.Int
}

// BorrowResult mirrors the locked collateral and the tokens minted.
type BorrowResult struct {
	Collateral *uint256.Int
	IsBorrowed bool
	Minted     *uint256.Int
}

// ReturnResult mirrors the reset loan slot and the repayment split.
type ReturnResult struct {
	Collateral *uint256.Int
	IsBorrowed bool
	Burned     *uint256.Int
	Fee        *uint256.Int
	Refunded   *uint256.Int
}

// Engine runs the deposit/withdraw/borrow/return state machine. Each
// transition is a single ledger unit of work: account updates, native value
// movements and token mint/burn commit together or not at all.
type Engine struct {
	address  common.Address
	ledger   ledger.Ledger
	token    *token.Token
	unit     *uint256.Int
	interest InterestPolicy
	now      func() time.Time
	notifier notification.Notifier
	logger   *slog.Logger
}

// Option customizes an Engine.
type Option func(*Engine)

// WithClock overrides the time source used for deposit timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithInterest overrides the interest policy.
func WithInterest(p InterestPolicy) Option {
	return func(e *Engine) { e.interest = p }
}

// WithDepositUnit overrides the fixed deposit/collateral size.
func WithDepositUnit(unit *uint256.Int) Option {
	return func(e *Engine) { e.unit = unit.Clone() }
}

// WithNotifier publishes committed transitions.
func WithNotifier(n notification.Notifier) Option {
	return func(e *Engine) { e.notifier = n }
}

// WithLogger sets the engine logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// NewEngine builds the bank deployed at addr, minting and burning through tok.
func NewEngine(addr common.Address, l ledger.Ledger, tok *token.Token, opts ...Option) *Engine {
	e := &Engine{
		address:  addr,
		ledger:   l,
		token:    tok,
		unit:     uint256.NewInt(DefaultDepositUnit),
		interest: DefaultInterest(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Address is the bank's own address; it holds deposits, collateral and fees.
func (e *Engine) Address() common.Address {
	return e.address
}

// DepositUnit is the fixed deposit and collateral size.
func (e *Engine) DepositUnit() *uint256.Int {
	return e.unit.Clone()
}

// Deposit locks value native units for caller and starts accruing interest.
func (e *Engine) Deposit(ctx context.Context, caller common.Address, value *uint256.Int) (DepositResult, error) {
	if !value.Eq(e.unit) {
		return DepositResult{}, ErrInvalidAmount
	}

	var res DepositResult
	err := e.ledger.Update(ctx, func(tx ledger.Tx) error {
		now := e.timestamp()
		acct, err := tx.Account(ctx, caller)
		if err != nil {
			return err
		}
		if acct.IsDeposited {
			return ErrAlreadyDeposited
		}
		acct.Balance = new(uint256.Int).Add(acct.Balance, value)
		acct.DepositTimestamp = now
		acct.IsDeposited = true
		if err := tx.PutAccount(ctx, caller, acct); err != nil {
			return err
		}
		if err := ledger.TransferNative(ctx, tx, caller, e.address, value); err != nil {
			return fmt.Errorf("collect deposit: %w", err)
		}
		res = DepositResult{Balance: acct.Balance, Timestamp: acct.DepositTimestamp, IsDeposited: acct.IsDeposited}
		return nil
	})
	if err != nil {
		return DepositResult{}, err
	}

	e.notify(ctx, notification.Message{
		Kind:        notification.KindDeposit,
		Destination: caller.Hex(),
		Body:        fmt.Sprintf("Deposited %s ETH", units.FormatEther(res.Balance)),
		Attributes:  map[string]string{"balance": res.Balance.Dec(), "timestamp": fmt.Sprint(res.Timestamp)},
	})
	return res, nil
}

// Withdraw returns the whole deposit to caller and mints the accrued interest.
func (e *Engine) Withdraw(ctx context.Context, caller common.Address) (WithdrawResult, error) {
	var res WithdrawResult
	err := e.ledger.Update(ctx, func(tx ledger.Tx) error {
		now := e.timestamp()
		acct, err := tx.Account(ctx, caller)
		if err != nil {
			return err
		}
		if !acct.IsDeposited {
			return ErrNoActiveDeposit
		}

		var elapsed uint64
		if now > acct.DepositTimestamp {
			elapsed = now - acct.DepositTimestamp
		}
		interest, err := e.interest.Interest(acct.Balance, elapsed)
		if err != nil {
			return err
		}
		amount := acct.Balance.Clone()

		acct.Balance = new(uint256.Int)
		acct.DepositTimestamp = 0
		acct.IsDeposited = false
		if err := tx.PutAccount(ctx, caller, acct); err != nil {
			return err
		}
		if err := e.token.Mint(ctx, tx, e.address, caller, interest); err != nil {
			return fmt.Errorf("mint interest: %w", err)
		}
		if err := ledger.TransferNative(ctx, tx, e.address, caller, amount); err != nil {
			return fmt.Errorf("return deposit: %w", err)
		}
		res = WithdrawResult{
			Balance:     acct.Balance,
			Timestamp:   acct.DepositTimestamp,
			IsDeposited: acct.IsDeposited,
			Interest:    interest,
			Returned:    amount,
		}
		return nil
	})
	if err != nil {
		return WithdrawResult{}, err
	}

	e.notify(ctx, notification.Message{
		Kind:        notification.KindWithdraw,
		Destination: caller.Hex(),
		Body:        fmt.Sprintf("Withdrew %s ETH, earned %s %s", units.FormatEther(res.Returned), units.FormatEther(res.Interest), e.token.Symbol),
		Attributes:  map[string]string{"interest": res.Interest.Dec(), "returned": res.Returned.Dec()},
	})
	return res, nil
}

// Borrow locks value as collateral and mints value/2 credit tokens to caller.
func (e *Engine) Borrow(ctx context.Context, caller common.Address, value *uint256.Int) (BorrowResult, error) {
	if !value.Eq(e.unit) {
		return BorrowResult{}, ErrInvalidAmount
	}

	var res BorrowResult
	err := e.ledger.Update(ctx, func(tx ledger.Tx) error {
		acct, err := tx.Account(ctx, caller)
		if err != nil {
			return err
		}
		if acct.IsBorrowed {
			return ErrAlreadyBorrowed
		}
		acct.Collateral = value.Clone()
		acct.IsBorrowed = true
		if err := tx.PutAccount(ctx, caller, acct); err != nil {
			return err
		}
		if err := ledger.TransferNative(ctx, tx, caller, e.address, value); err != nil {
			return fmt.Errorf("collect collateral: %w", err)
		}
		minted := new(uint256.Int).Div(value, uint256.NewInt(LoanToValueDivisor))
		if err := e.token.Mint(ctx, tx, e.address, caller, minted); err != nil {
			return fmt.Errorf("mint loan: %w", err)
		}
		res = BorrowResult{Collateral: acct.Collateral, IsBorrowed: acct.IsBorrowed, Minted: minted}
		return nil
	})
	if err != nil {
		return BorrowResult{}, err
	}

	e.notify(ctx, notification.Message{
		Kind:        notification.KindBorrow,
		Destination: caller.Hex(),
		Body:        fmt.Sprintf("Borrowed %s %s against %s ETH", units.FormatEther(res.Minted), e.token.Symbol, units.FormatEther(res.Collateral)),
		Attributes:  map[string]string{"collateral": res.Collateral.Dec(), "minted": res.Minted.Dec()},
	})
	return res, nil
}

// Return burns collateral/2 credit tokens, which caller must have approved
// for the bank, and refunds the collateral minus a collateral/10 fee.
func (e *Engine) Return(ctx context.Context, caller common.Address) (ReturnResult, error) {
	var res ReturnResult
	err := e.ledger.Update(ctx, func(tx ledger.Tx) error {
		acct, err := tx.Account(ctx, caller)
		if err != nil {
			return err
		}
		if !acct.IsBorrowed {
			return ErrNoActiveLoan
		}
		collateral := acct.Collateral.Clone()
		owed := new(uint256.Int).Div(collateral, uint256.NewInt(LoanToValueDivisor))
		fee := new(uint256.Int).Div(collateral, uint256.NewInt(FeeDivisor))
		refund := new(uint256.Int).Sub(collateral, fee)

		acct.Collateral = new(uint256.Int)
		acct.IsBorrowed = false
		if err := tx.PutAccount(ctx, caller, acct); err != nil {
			return err
		}
		if err := e.token.BurnFrom(ctx, tx, e.address, caller, owed); err != nil {
			return fmt.Errorf("burn repayment: %w", err)
		}
		if err := ledger.TransferNative(ctx, tx, e.address, caller, refund); err != nil {
			return fmt.Errorf("refund collateral: %w", err)
		}
		res = ReturnResult{
			Collateral: acct.Collateral,
			IsBorrowed: acct.IsBorrowed,
			Burned:     owed,
			Fee:        fee,
			Refunded:   refund,
		}
		return nil
	})
	if err != nil {
		return ReturnResult{}, err
	}

	e.notify(ctx, notification.Message{
		Kind:        notification.KindReturn,
		Destination: caller.Hex(),
		Body:        fmt.Sprintf("Loan repaid, %s ETH refunded", units.FormatEther(res.Refunded)),
		Attributes:  map[string]string{"burned": res.Burned.Dec(), "fee": res.Fee.Dec(), "refunded": res.Refunded.Dec()},
	})
	return res, nil
}

// Account returns the position of addr; unknown addresses read as zero.
func (e *Engine) Account(ctx context.Context, addr common.Address) (Account, error) {
	var acct Account
	err := e.ledger.View(ctx, func(tx ledger.Tx) error {
		var err error
		acct, err = tx.Account(ctx, addr)
		return err
	})
	return acct, err
}

// Reserves returns the native balance held by the bank.
func (e *Engine) Reserves(ctx context.Context) (*uint256.Int, error) {
	var out *uint256.Int
	err := e.ledger.View(ctx, func(tx ledger.Tx) error {
		var err error
		out, err = tx.NativeBalance(ctx, e.address)
		return err
	})
	return out, err
}

// timestamp must be read inside the unit of work so a transition queued
// behind the ledger lock is stamped when it actually runs.
func (e *Engine) timestamp() uint64 {
	return uint64(e.now().Unix())
}

func (e *Engine) notify(ctx context.Context, msg notification.Message) {
	if e.logger != nil {
		e.logger.Info("bank transition committed", slog.String("kind", msg.Kind), slog.String("account", msg.Destination))
	}
	if e.notifier == nil {
		return
	}
	msg.At = e.now().UTC()
	if err := e.notifier.Send(ctx, msg); err != nil && e.logger != nil {
		e.logger.Warn("bank notification failed", slog.String("kind", msg.Kind), slog.Any("error", err))
	}
}
