package token

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/ZeroR0R/LSBank/internal/ledger"
	"github.com/ZeroR0R/LSBank/internal/notification"
	"github.com/ZeroR0R/LSBank/internal/units"
)

// Info is the read-only token surface.
type Info struct {
	Address     common.Address
	Name        string
	Symbol      string
	Decimals    int
	TotalSupply *uint256.Int
	Minter      common.Address
}

// Service exposes the credit token to external callers, running each call in
// its own unit of work.
type Service struct {
	ledger   ledger.Ledger
	token    *Token
	notifier notification.Notifier
	logger   *slog.Logger
}

// NewService builds a token service.
func NewService(l ledger.Ledger, t *Token, notifier notification.Notifier, logger *slog.Logger) *Service {
	return &Service{ledger: l, token: t, notifier: notifier, logger: logger}
}

// Token returns the token metadata the service operates on.
func (s *Service) Token() *Token {
	return s.token
}

// Info returns name, symbol, supply and minter.
func (s *Service) Info(ctx context.Context) (Info, error) {
	info := Info{Address: s.token.Address, Name: s.token.Name, Symbol: s.token.Symbol, Decimals: Decimals}
	err := s.ledger.View(ctx, func(tx ledger.Tx) error {
		var err error
		if info.TotalSupply, err = tx.TotalSupply(ctx); err != nil {
			return err
		}
		info.Minter, err = tx.Minter(ctx)
		return err
	})
	if err != nil {
		return Info{}, err
	}
	return info, nil
}

// BalanceOf returns the token balance of holder.
func (s *Service) BalanceOf(ctx context.Context, holder common.Address) (*uint256.Int, error) {
	var out *uint256.Int
	err := s.ledger.View(ctx, func(tx ledger.Tx) error {
		var err error
		out, err = tx.TokenBalance(ctx, holder)
		return err
	})
	return out, err
}

// Allowance returns how much spender may still move out of owner's balance.
func (s *Service) Allowance(ctx context.Context, owner, spender common.Address) (*uint256.Int, error) {
	var out *uint256.Int
	err := s.ledger.View(ctx, func(tx ledger.Tx) error {
		var err error
		out, err = tx.Allowance(ctx, owner, spender)
		return err
	})
	return out, err
}

// ChangeMinter reassigns the minter role.
func (s *Service) ChangeMinter(ctx context.Context, caller, newMinter common.Address) (MinterChanged, error) {
	var changed MinterChanged
	err := s.ledger.Update(ctx, func(tx ledger.Tx) error {
		var err error
		changed, err = s.token.ChangeMinter(ctx, tx, caller, newMinter)
		return err
	})
	if err != nil {
		return MinterChanged{}, err
	}
	s.notify(ctx, notification.Message{
		Kind:        notification.KindMinterChanged,
		Destination: changed.To.Hex(),
		Body:        fmt.Sprintf("%s minter moved from %s to %s", s.token.Symbol, changed.From.Hex(), changed.To.Hex()),
		Attributes:  map[string]string{"from": changed.From.Hex(), "to": changed.To.Hex()},
	})
	return changed, nil
}

// Mint creates tokens; only the minter may call it.
func (s *Service) Mint(ctx context.Context, caller, to common.Address, amount *uint256.Int) error {
	return s.ledger.Update(ctx, func(tx ledger.Tx) error {
		return s.token.Mint(ctx, tx, caller, to, amount)
	})
}

// Burn destroys tokens; only the minter may call it.
func (s *Service) Burn(ctx context.Context, caller, from common.Address, amount *uint256.Int) error {
	return s.ledger.Update(ctx, func(tx ledger.Tx) error {
		return s.token.Burn(ctx, tx, caller, from, amount)
	})
}

// Transfer moves tokens from caller to to.
func (s *Service) Transfer(ctx context.Context, caller, to common.Address, amount *uint256.Int) error {
	err := s.ledger.Update(ctx, func(tx ledger.Tx) error {
		return s.token.Transfer(ctx, tx, caller, to, amount)
	})
	if err != nil {
		return err
	}
	s.notify(ctx, notification.Message{
		Kind:        notification.KindTokenTransfer,
		Destination: to.Hex(),
		Body:        fmt.Sprintf("You received %s %s from %s", units.FormatEther(amount), s.token.Symbol, caller.Hex()),
	})
	return nil
}

// Approve sets spender's allowance over caller's balance.
func (s *Service) Approve(ctx context.Context, caller, spender common.Address, amount *uint256.Int) error {
	return s.ledger.Update(ctx, func(tx ledger.Tx) error {
		return s.token.Approve(ctx, tx, caller, spender, amount)
	})
}

// TransferFrom spends caller's allowance over from.
func (s *Service) TransferFrom(ctx context.Context, caller, from, to common.Address, amount *uint256.Int) error {
	return s.ledger.Update(ctx, func(tx ledger.Tx) error {
		return s.token.TransferFrom(ctx, tx, caller, from, to, amount)
	})
}

func (s *Service) notify(ctx context.Context, msg notification.Message) {
	if s.notifier == nil {
		return
	}
	msg.At = time.Now().UTC()
	if err := s.notifier.Send(ctx, msg); err != nil && s.logger != nil {
		s.logger.Warn("token notification failed", slog.String("kind", msg.Kind), slog.Any("error", err))
	}
}
