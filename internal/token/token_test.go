package token

import (
	"context"
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/ZeroR0R/LSBank/internal/ledger"
)

var (
	minter  = common.HexToAddress("0x90F8bf6A479f320ead074411a4B0e7944Ea8c9C1")
	bankAdr = common.HexToAddress("0x00000000000000000000000000000000000b4e4b")
	alice   = common.HexToAddress("0xFFcf8FDEE72ac11b5c542428B35EEF5769C409f0")
	bob     = common.HexToAddress("0x22d491Bde2303f2f43325b2108D26f1eAbA1e32b")
)

func setup(t *testing.T) (*Service, ledger.Ledger) {
	t.Helper()
	l := ledger.NewInMemory()
	ctx := context.Background()
	if err := l.Update(ctx, func(tx ledger.Tx) error { return tx.SetMinter(ctx, minter) }); err != nil {
		t.Fatalf("seed minter: %v", err)
	}
	return NewService(l, New("LS Engine Bank", "LSB", common.HexToAddress("0x01")), nil, nil), l
}

func amount(v uint64) *uint256.Int { return uint256.NewInt(v) }

func balanceOf(t *testing.T, svc *Service, addr common.Address) uint64 {
	t.Helper()
	bal, err := svc.BalanceOf(context.Background(), addr)
	if err != nil {
		t.Fatalf("balanceOf %s: %v", addr.Hex(), err)
	}
	return bal.Uint64()
}

func supplyOf(t *testing.T, svc *Service) uint64 {
	t.Helper()
	info, err := svc.Info(context.Background())
	if err != nil {
		t.Fatalf("info: %v", err)
	}
	return info.TotalSupply.Uint64()
}

func TestMintAndBurnAreMinterOnly(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	if err := svc.Mint(ctx, alice, alice, amount(10)); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected unauthorized mint, got %v", err)
	}
	if err := svc.Mint(ctx, minter, alice, amount(10)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := svc.Burn(ctx, alice, alice, amount(1)); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected unauthorized burn, got %v", err)
	}
	if err := svc.Burn(ctx, minter, alice, amount(11)); !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected insufficient balance, got %v", err)
	}
	if err := svc.Burn(ctx, minter, alice, amount(4)); err != nil {
		t.Fatalf("burn: %v", err)
	}

	if got := balanceOf(t, svc, alice); got != 6 {
		t.Fatalf("expected balance 6, got %d", got)
	}
	if got := supplyOf(t, svc); got != 6 {
		t.Fatalf("expected supply 6, got %d", got)
	}
}

func TestChangeMinter(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	changed, err := svc.ChangeMinter(ctx, minter, bankAdr)
	if err != nil {
		t.Fatalf("change minter: %v", err)
	}
	if changed.From != minter || changed.To != bankAdr {
		t.Fatalf("unexpected event %+v", changed)
	}

	if _, err := svc.ChangeMinter(ctx, minter, bankAdr); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("old minter must not change minter again, got %v", err)
	}
	if err := svc.Mint(ctx, minter, alice, amount(1)); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("old minter must not mint, got %v", err)
	}
	if err := svc.Burn(ctx, minter, alice, amount(0)); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("old minter must not burn, got %v", err)
	}
	if err := svc.Mint(ctx, bankAdr, alice, amount(1)); err != nil {
		t.Fatalf("new minter mint: %v", err)
	}
}

func TestChangeMinterRejectsZeroAddress(t *testing.T) {
	svc, _ := setup(t)
	if _, err := svc.ChangeMinter(context.Background(), minter, common.Address{}); !errors.Is(err, ErrInvalidRecipient) {
		t.Fatalf("expected invalid recipient, got %v", err)
	}
}

func TestTransfer(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()
	if err := svc.Mint(ctx, minter, alice, amount(100)); err != nil {
		t.Fatalf("mint: %v", err)
	}

	if err := svc.Transfer(ctx, alice, bob, amount(101)); !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected insufficient balance, got %v", err)
	}
	if err := svc.Transfer(ctx, alice, common.Address{}, amount(1)); !errors.Is(err, ErrInvalidRecipient) {
		t.Fatalf("expected invalid recipient, got %v", err)
	}
	if err := svc.Transfer(ctx, alice, bob, amount(30)); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if a, b := balanceOf(t, svc, alice), balanceOf(t, svc, bob); a != 70 || b != 30 {
		t.Fatalf("unexpected balances alice=%d bob=%d", a, b)
	}
	if got := supplyOf(t, svc); got != 100 {
		t.Fatalf("transfer must not change supply, got %d", got)
	}
}

func TestApproveAndTransferFrom(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()
	if err := svc.Mint(ctx, minter, alice, amount(50)); err != nil {
		t.Fatalf("mint: %v", err)
	}

	if err := svc.TransferFrom(ctx, bob, alice, bob, amount(10)); !errors.Is(err, ErrInsufficientAllowance) {
		t.Fatalf("expected insufficient allowance, got %v", err)
	}
	if err := svc.Approve(ctx, alice, bob, amount(20)); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if err := svc.TransferFrom(ctx, bob, alice, bob, amount(15)); err != nil {
		t.Fatalf("transferFrom: %v", err)
	}
	left, err := svc.Allowance(ctx, alice, bob)
	if err != nil {
		t.Fatalf("allowance: %v", err)
	}
	if left.Uint64() != 5 {
		t.Fatalf("expected allowance 5, got %d", left.Uint64())
	}
	if err := svc.TransferFrom(ctx, bob, alice, bob, amount(6)); !errors.Is(err, ErrInsufficientAllowance) {
		t.Fatalf("expected insufficient allowance, got %v", err)
	}
	if b := balanceOf(t, svc, bob); b != 15 {
		t.Fatalf("expected bob balance 15, got %d", b)
	}
}

func TestTransferFromFailureKeepsAllowance(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()
	if err := svc.Mint(ctx, minter, alice, amount(5)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := svc.Approve(ctx, alice, bob, amount(10)); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if err := svc.TransferFrom(ctx, bob, alice, bob, amount(8)); !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected insufficient balance, got %v", err)
	}
	left, _ := svc.Allowance(ctx, alice, bob)
	if left.Uint64() != 10 {
		t.Fatalf("failed transferFrom must not spend allowance, got %d", left.Uint64())
	}
}

func TestBurnFrom(t *testing.T) {
	svc, l := setup(t)
	ctx := context.Background()
	tok := svc.Token()
	if err := svc.Mint(ctx, minter, alice, amount(40)); err != nil {
		t.Fatalf("mint: %v", err)
	}

	burnFrom := func(caller common.Address, v uint64) error {
		return l.Update(ctx, func(tx ledger.Tx) error {
			return tok.BurnFrom(ctx, tx, caller, alice, amount(v))
		})
	}

	if err := burnFrom(minter, 10); !errors.Is(err, ErrInsufficientAllowance) {
		t.Fatalf("expected insufficient allowance, got %v", err)
	}
	if err := svc.Approve(ctx, alice, minter, amount(10)); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if err := burnFrom(bob, 10); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
	if err := burnFrom(minter, 10); err != nil {
		t.Fatalf("burnFrom: %v", err)
	}
	if got := balanceOf(t, svc, alice); got != 30 {
		t.Fatalf("expected balance 30, got %d", got)
	}
	if got := supplyOf(t, svc); got != 30 {
		t.Fatalf("expected supply 30, got %d", got)
	}
}

func TestSupplyEqualsSumOfBalances(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	steps := []func() error{
		func() error { return svc.Mint(ctx, minter, alice, amount(1_000)) },
		func() error { return svc.Mint(ctx, minter, bob, amount(250)) },
		func() error { return svc.Transfer(ctx, alice, bob, amount(125)) },
		func() error { return svc.Burn(ctx, minter, bob, amount(75)) },
		func() error { return svc.Burn(ctx, minter, alice, amount(5_000)) },
	}
	for i, step := range steps {
		_ = step()
		sum := balanceOf(t, svc, alice) + balanceOf(t, svc, bob)
		if supply := supplyOf(t, svc); supply != sum {
			t.Fatalf("step %d: supply %d != sum of balances %d", i, supply, sum)
		}
	}
}
