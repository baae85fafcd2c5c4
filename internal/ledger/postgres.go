package ledger

import (
	"context"
	_ "embed"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// advisoryLockKey serializes every writable unit of work across all API instances.
const advisoryLockKey int64 = 0x4c5342616e6b // "LSBank"

//go:embed schema.sql
var schema string

// PostgresLedger persists the world state in PostgreSQL. Each Update is one
// database transaction holding a transaction-scoped advisory lock.
type PostgresLedger struct {
	db *pgxpool.Pool
}

// NewPostgresLedger constructs a Postgres-backed ledger implementation.
func NewPostgresLedger(db *pgxpool.Pool) *PostgresLedger {
	return &PostgresLedger{db: db}
}

// Migrate creates the tables the ledger and identity repositories rely on.
func (l *PostgresLedger) Migrate(ctx context.Context) error {
	if _, err := l.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("apply ledger schema: %w", err)
	}
	return nil
}

// Update runs fn inside a serialized read-write transaction.
func (l *PostgresLedger) Update(ctx context.Context, fn func(tx Tx) error) error {
	return pgx.BeginTxFunc(ctx, l.db, pgx.TxOptions{}, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, advisoryLockKey); err != nil {
			return fmt.Errorf("acquire ledger lock: %w", err)
		}
		return fn(&pgTx{tx: tx, writable: true})
	})
}

// View runs fn inside a read-only repeatable-read transaction.
func (l *PostgresLedger) View(ctx context.Context, fn func(tx Tx) error) error {
	opts := pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly}
	return pgx.BeginTxFunc(ctx, l.db, opts, func(tx pgx.Tx) error {
		return fn(&pgTx{tx: tx})
	})
}

type pgTx struct {
	tx       pgx.Tx
	writable bool
}

func (t *pgTx) NativeBalance(ctx context.Context, addr common.Address) (*uint256.Int, error) {
	return t.amount(ctx, `SELECT amount::text FROM native_balances WHERE address = $1`, addr.Hex())
}

func (t *pgTx) SetNativeBalance(ctx context.Context, addr common.Address, amount *uint256.Int) error {
	return t.exec(ctx, `INSERT INTO native_balances (address, amount) VALUES ($1, $2::text::numeric)
        ON CONFLICT (address) DO UPDATE SET amount = EXCLUDED.amount`, addr.Hex(), amount.Dec())
}

func (t *pgTx) TokenBalance(ctx context.Context, addr common.Address) (*uint256.Int, error) {
	return t.amount(ctx, `SELECT amount::text FROM token_balances WHERE address = $1`, addr.Hex())
}

func (t *pgTx) SetTokenBalance(ctx context.Context, addr common.Address, amount *uint256.Int) error {
	return t.exec(ctx, `INSERT INTO token_balances (address, amount) VALUES ($1, $2::text::numeric)
        ON CONFLICT (address) DO UPDATE SET amount = EXCLUDED.amount`, addr.Hex(), amount.Dec())
}

func (t *pgTx) Allowance(ctx context.Context, owner, spender common.Address) (*uint256.Int, error) {
	return t.amount(ctx, `SELECT amount::text FROM token_allowances WHERE owner = $1 AND spender = $2`,
		owner.Hex(), spender.Hex())
}

func (t *pgTx) SetAllowance(ctx context.Context, owner, spender common.Address, amount *uint256.Int) error {
	return t.exec(ctx, `INSERT INTO token_allowances (owner, spender, amount) VALUES ($1, $2, $3::text::numeric)
        ON CONFLICT (owner, spender) DO UPDATE SET amount = EXCLUDED.amount`, owner.Hex(), spender.Hex(), amount.Dec())
}

func (t *pgTx) TotalSupply(ctx context.Context) (*uint256.Int, error) {
	return t.amount(ctx, `SELECT total_supply::text FROM token_meta WHERE id = 1`)
}

func (t *pgTx) SetTotalSupply(ctx context.Context, amount *uint256.Int) error {
	return t.exec(ctx, `INSERT INTO token_meta (id, total_supply) VALUES (1, $1::text::numeric)
        ON CONFLICT (id) DO UPDATE SET total_supply = EXCLUDED.total_supply`, amount.Dec())
}

func (t *pgTx) Minter(ctx context.Context) (common.Address, error) {
	var minter string
	if err := t.tx.QueryRow(ctx, `SELECT minter FROM token_meta WHERE id = 1`).Scan(&minter); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return common.Address{}, nil
		}
		return common.Address{}, err
	}
	if minter == "" {
		return common.Address{}, nil
	}
	return common.HexToAddress(minter), nil
}

func (t *pgTx) SetMinter(ctx context.Context, minter common.Address) error {
	return t.exec(ctx, `INSERT INTO token_meta (id, minter) VALUES (1, $1)
        ON CONFLICT (id) DO UPDATE SET minter = EXCLUDED.minter`, minter.Hex())
}

func (t *pgTx) Account(ctx context.Context, addr common.Address) (Account, error) {
	const query = `
        SELECT balance::text, deposit_timestamp, is_deposited, collateral::text, is_borrowed
        FROM bank_accounts WHERE address = $1`
	var (
		balance, collateral string
		depositTimestamp    int64
		acct                Account
	)
	err := t.tx.QueryRow(ctx, query, addr.Hex()).Scan(&balance, &depositTimestamp, &acct.IsDeposited, &collateral, &acct.IsBorrowed)
	if errors.Is(err, pgx.ErrNoRows) {
		if t.writable {
			if _, err := t.tx.Exec(ctx, `INSERT INTO bank_accounts (address) VALUES ($1) ON CONFLICT (address) DO NOTHING`, addr.Hex()); err != nil {
				return Account{}, err
			}
		}
		return ZeroAccount(), nil
	}
	if err != nil {
		return Account{}, err
	}
	if acct.Balance, err = parseAmount(balance); err != nil {
		return Account{}, err
	}
	if acct.Collateral, err = parseAmount(collateral); err != nil {
		return Account{}, err
	}
	acct.DepositTimestamp = uint64(depositTimestamp)
	return acct, nil
}

func (t *pgTx) PutAccount(ctx context.Context, addr common.Address, account Account) error {
	return t.exec(ctx, `
        INSERT INTO bank_accounts (address, balance, deposit_timestamp, is_deposited, collateral, is_borrowed)
        VALUES ($1, $2::text::numeric, $3, $4, $5::text::numeric, $6)
        ON CONFLICT (address) DO UPDATE SET
            balance = EXCLUDED.balance,
            deposit_timestamp = EXCLUDED.deposit_timestamp,
            is_deposited = EXCLUDED.is_deposited,
            collateral = EXCLUDED.collateral,
            is_borrowed = EXCLUDED.is_borrowed`,
		addr.Hex(), cloneAmount(account.Balance).Dec(), int64(account.DepositTimestamp), account.IsDeposited,
		cloneAmount(account.Collateral).Dec(), account.IsBorrowed)
}

func (t *pgTx) RecordTransfer(ctx context.Context, tr Transfer) error {
	if !t.writable {
		return ErrReadOnly
	}
	tag, err := t.tx.Exec(ctx, `
        INSERT INTO transfers (reference, kind, from_address, to_address, amount, status, created_at)
        VALUES ($1, $2, $3, $4, $5::text::numeric, $6, $7)
        ON CONFLICT (reference) DO NOTHING`,
		tr.Reference, tr.Kind, tr.From.Hex(), tr.To.Hex(), cloneAmount(tr.Amount).Dec(), tr.Status, tr.CreatedAt.UTC())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrDuplicateTransaction
	}
	return nil
}

func (t *pgTx) Transfer(ctx context.Context, reference string) (Transfer, bool, error) {
	var (
		tr             Transfer
		from, to, amnt string
	)
	err := t.tx.QueryRow(ctx, `
        SELECT reference, kind, from_address, to_address, amount::text, status, created_at
        FROM transfers WHERE reference = $1`, reference).
		Scan(&tr.Reference, &tr.Kind, &from, &to, &amnt, &tr.Status, &tr.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Transfer{}, false, nil
	}
	if err != nil {
		return Transfer{}, false, err
	}
	if tr.Amount, err = parseAmount(amnt); err != nil {
		return Transfer{}, false, err
	}
	tr.From = common.HexToAddress(from)
	tr.To = common.HexToAddress(to)
	tr.CreatedAt = tr.CreatedAt.UTC()
	return tr, true, nil
}

func (t *pgTx) amount(ctx context.Context, query string, args ...any) (*uint256.Int, error) {
	var raw string
	if err := t.tx.QueryRow(ctx, query, args...).Scan(&raw); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return new(uint256.Int), nil
		}
		return nil, err
	}
	return parseAmount(raw)
}

func (t *pgTx) exec(ctx context.Context, query string, args ...any) error {
	if !t.writable {
		return ErrReadOnly
	}
	_, err := t.tx.Exec(ctx, query, args...)
	return err
}

func parseAmount(raw string) (*uint256.Int, error) {
	v, err := uint256.FromDecimal(raw)
	if err != nil {
		return nil, fmt.Errorf("decode stored amount %q: %w", raw, err)
	}
	return v, nil
}
