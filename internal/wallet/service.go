package wallet

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/ZeroR0R/LSBank/internal/ledger"
)

// Service reads wallet snapshots from the ledger.
type Service struct {
	ledger ledger.Ledger
	now    func() time.Time
}

// NewService builds a wallet service instance.
func NewService(l ledger.Ledger) *Service {
	return &Service{ledger: l, now: time.Now}
}

// Get returns a consistent snapshot of addr's holdings.
func (s *Service) Get(ctx context.Context, addr common.Address) (Wallet, error) {
	w := Wallet{Address: addr}
	err := s.ledger.View(ctx, func(tx ledger.Tx) error {
		var err error
		if w.Native, err = tx.NativeBalance(ctx, addr); err != nil {
			return err
		}
		if w.Credit, err = tx.TokenBalance(ctx, addr); err != nil {
			return err
		}
		acct, err := tx.Account(ctx, addr)
		if err != nil {
			return err
		}
		w.Deposit = acct.Balance
		w.DepositedAt = acct.DepositTimestamp
		w.Collateral = acct.Collateral
		return nil
	})
	if err != nil {
		return Wallet{}, err
	}
	w.AsOf = s.now().UTC()
	return w, nil
}
