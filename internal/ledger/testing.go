package ledger

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// SeedBalance is a test helper that sets the native balance of an address.
func SeedBalance(l Ledger, addr common.Address, amount uint64) {
	_ = l.Update(context.Background(), func(tx Tx) error {
		return tx.SetNativeBalance(context.Background(), addr, uint256.NewInt(amount))
	})
}

// NativeBalanceOf is a test helper that reads the committed native balance of an address.
func NativeBalanceOf(l Ledger, addr common.Address) *uint256.Int {
	var out *uint256.Int
	_ = l.View(context.Background(), func(tx Tx) error {
		var err error
		out, err = tx.NativeBalance(context.Background(), addr)
		return err
	})
	return out
}
