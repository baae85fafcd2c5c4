package ledger

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

var (
	addrA = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	addrB = common.HexToAddress("0x00000000000000000000000000000000000000b2")
)

func TestInMemoryLedger_TransferMaintainsBalance(t *testing.T) {
	l := NewInMemory()
	ctx := context.Background()

	SeedBalance(l, addrA, 10_000)

	err := l.Update(ctx, func(tx Tx) error {
		return TransferNative(ctx, tx, addrA, addrB, uint256.NewInt(1_500))
	})
	if err != nil {
		t.Fatalf("transfer failed: %v", err)
	}

	if got := NativeBalanceOf(l, addrA).Uint64(); got != 8_500 {
		t.Fatalf("expected from balance 8500, got %d", got)
	}
	if got := NativeBalanceOf(l, addrB).Uint64(); got != 1_500 {
		t.Fatalf("expected to balance 1500, got %d", got)
	}
}

func TestInMemoryLedger_InsufficientFunds(t *testing.T) {
	l := NewInMemory()
	ctx := context.Background()
	SeedBalance(l, addrA, 100)

	err := l.Update(ctx, func(tx Tx) error {
		return TransferNative(ctx, tx, addrA, addrB, uint256.NewInt(101))
	})
	if !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected insufficient funds, got %v", err)
	}
}

func TestInMemoryLedger_RollbackOnError(t *testing.T) {
	l := NewInMemory()
	ctx := context.Background()
	SeedBalance(l, addrA, 1_000)
	boom := errors.New("boom")

	err := l.Update(ctx, func(tx Tx) error {
		if err := TransferNative(ctx, tx, addrA, addrB, uint256.NewInt(400)); err != nil {
			return err
		}
		if err := tx.SetTotalSupply(ctx, uint256.NewInt(77)); err != nil {
			return err
		}
		if err := tx.SetMinter(ctx, addrB); err != nil {
			return err
		}
		acct := ZeroAccount()
		acct.Balance = uint256.NewInt(5)
		acct.IsDeposited = true
		if err := tx.PutAccount(ctx, addrA, acct); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	err = l.View(ctx, func(tx Tx) error {
		if bal, _ := tx.NativeBalance(ctx, addrA); bal.Uint64() != 1_000 {
			t.Errorf("native balance changed: %d", bal.Uint64())
		}
		if bal, _ := tx.NativeBalance(ctx, addrB); !bal.IsZero() {
			t.Errorf("receiver credited: %d", bal.Uint64())
		}
		if supply, _ := tx.TotalSupply(ctx); !supply.IsZero() {
			t.Errorf("supply changed: %d", supply.Uint64())
		}
		if minter, _ := tx.Minter(ctx); minter != (common.Address{}) {
			t.Errorf("minter changed: %s", minter.Hex())
		}
		acct, _ := tx.Account(ctx, addrA)
		if acct.IsDeposited || !acct.Balance.IsZero() {
			t.Errorf("account changed: %+v", acct)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("view: %v", err)
	}
}

func TestInMemoryLedger_ReadYourWrites(t *testing.T) {
	l := NewInMemory()
	ctx := context.Background()

	err := l.Update(ctx, func(tx Tx) error {
		if err := tx.SetTokenBalance(ctx, addrA, uint256.NewInt(9)); err != nil {
			return err
		}
		bal, err := tx.TokenBalance(ctx, addrA)
		if err != nil {
			return err
		}
		if bal.Uint64() != 9 {
			t.Errorf("expected pending balance 9, got %d", bal.Uint64())
		}
		// mutating a returned amount must not leak into the ledger
		bal.SetUint64(1)
		again, _ := tx.TokenBalance(ctx, addrA)
		if again.Uint64() != 9 {
			t.Errorf("returned amount aliases ledger state")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
}

func TestInMemoryLedger_AccountLookupOrInsert(t *testing.T) {
	l := NewInMemory()
	ctx := context.Background()

	err := l.Update(ctx, func(tx Tx) error {
		acct, err := tx.Account(ctx, addrA)
		if err != nil {
			return err
		}
		if acct.Balance == nil || acct.Collateral == nil {
			t.Fatalf("zero account must carry non-nil amounts")
		}
		if acct.IsDeposited || acct.IsBorrowed || acct.DepositTimestamp != 0 {
			t.Fatalf("expected zero account, got %+v", acct)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}

	mem := l.(*inMemoryLedger)
	if _, ok := mem.state.accounts[addrA]; !ok {
		t.Fatalf("expected account entry to be inserted")
	}
}

func TestInMemoryLedger_ViewIsReadOnly(t *testing.T) {
	l := NewInMemory()
	ctx := context.Background()

	err := l.View(ctx, func(tx Tx) error {
		return tx.SetNativeBalance(ctx, addrA, uint256.NewInt(1))
	})
	if !errors.Is(err, ErrReadOnly) {
		t.Fatalf("expected read-only error, got %v", err)
	}
}

func TestInMemoryLedger_ConcurrentTransfers(t *testing.T) {
	l := NewInMemory()
	ctx := context.Background()
	SeedBalance(l, addrA, 100_000)

	const workers = 10
	amount := uint256.NewInt(500)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			err := l.Update(ctx, func(tx Tx) error {
				return TransferNative(ctx, tx, addrA, addrB, amount)
			})
			if err != nil {
				t.Errorf("transfer %d failed: %v", i, err)
			}
		}(i)
	}
	wg.Wait()

	total := NativeBalanceOf(l, addrA).Uint64() + NativeBalanceOf(l, addrB).Uint64()
	if total != 100_000 {
		t.Fatalf("ledger not balanced after concurrency, total=%d", total)
	}
	if got := NativeBalanceOf(l, addrB).Uint64(); got != workers*500 {
		t.Fatalf("expected %d transferred, got %d", workers*500, got)
	}
}

func TestInMemoryLedger_JournalRejectsDuplicates(t *testing.T) {
	l := NewInMemory()
	ctx := context.Background()
	entry := Transfer{Reference: "ref-1", Kind: TransferP2P, From: addrA, To: addrB, Amount: uint256.NewInt(5), Status: StatusPosted}

	if err := l.Update(ctx, func(tx Tx) error { return tx.RecordTransfer(ctx, entry) }); err != nil {
		t.Fatalf("record: %v", err)
	}
	err := l.Update(ctx, func(tx Tx) error { return tx.RecordTransfer(ctx, entry) })
	if !errors.Is(err, ErrDuplicateTransaction) {
		t.Fatalf("expected duplicate, got %v", err)
	}

	err = l.View(ctx, func(tx Tx) error {
		got, ok, err := tx.Transfer(ctx, "ref-1")
		if err != nil {
			return err
		}
		if !ok || got.Amount.Uint64() != 5 || got.To != addrB {
			t.Fatalf("unexpected journal entry %+v", got)
		}
		if _, ok, _ := tx.Transfer(ctx, "missing"); ok {
			t.Fatalf("unexpected entry for unknown reference")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("view: %v", err)
	}
}

func TestInMemoryLedger_JournalRollsBack(t *testing.T) {
	l := NewInMemory()
	ctx := context.Background()
	boom := errors.New("boom")

	err := l.Update(ctx, func(tx Tx) error {
		if err := tx.RecordTransfer(ctx, Transfer{Reference: "ref-2", Amount: uint256.NewInt(1)}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	err = l.Update(ctx, func(tx Tx) error {
		return tx.RecordTransfer(ctx, Transfer{Reference: "ref-2", Amount: uint256.NewInt(1)})
	})
	if err != nil {
		t.Fatalf("reference of a rolled back unit of work must be free, got %v", err)
	}
}
