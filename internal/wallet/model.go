package wallet

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Wallet is everything an address holds: native currency, credit tokens and
// its bank position.
type Wallet struct {
	Address     common.Address
	Native      *uint256.Int
	Credit      *uint256.Int
	Deposit     *uint256.Int
	DepositedAt uint64
	Collateral  *uint256.Int
	AsOf        time.Time
}

// Deposited reports whether the address has an active deposit.
func (w Wallet) Deposited() bool { return !w.Deposit.IsZero() }

// Borrowed reports whether the address has an active loan.
func (w Wallet) Borrowed() bool { return !w.Collateral.IsZero() }
