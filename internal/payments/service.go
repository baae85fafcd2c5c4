package payments

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/holiman/uint256"

	"github.com/ZeroR0R/LSBank/internal/ledger"
	"github.com/ZeroR0R/LSBank/internal/notification"
	"github.com/ZeroR0R/LSBank/internal/units"
)

var (
	ErrInvalidAmount    = errors.New("amount must be positive")
	ErrInvalidRecipient = errors.New("invalid recipient")
)

// Service moves native currency between wallets.
type Service struct {
	ledger   ledger.Ledger
	notifier notification.Notifier
	logger   *slog.Logger
	now      func() time.Time
}

// NewService constructs a payment service.
func NewService(l ledger.Ledger, notifier notification.Notifier, logger *slog.Logger) *Service {
	return &Service{ledger: l, notifier: notifier, logger: logger, now: time.Now}
}

// TransferInput captures the data needed to move funds between wallets.
type TransferInput struct {
	From       common.Address
	To         common.Address
	Amount     *uint256.Int
	ClientTxID string
}

// TransferResult describes the ledger outcome of a P2P transfer.
type TransferResult struct {
	TransactionID string
	FromBalance   *uint256.Int
	ToBalance     *uint256.Int
	CompletedAt   time.Time
}

// Transfer journals and applies a P2P payment in one unit of work.
func (s *Service) Transfer(ctx context.Context, input TransferInput) (TransferResult, error) {
	if input.Amount == nil || input.Amount.IsZero() {
		return TransferResult{}, ErrInvalidAmount
	}
	if input.To == (common.Address{}) || input.To == input.From {
		return TransferResult{}, ErrInvalidRecipient
	}
	if input.ClientTxID == "" {
		input.ClientTxID = uuid.New().String()
	}

	now := s.now().UTC()
	res := TransferResult{TransactionID: input.ClientTxID, CompletedAt: now}
	err := s.ledger.Update(ctx, func(tx ledger.Tx) error {
		err := tx.RecordTransfer(ctx, ledger.Transfer{
			Reference: input.ClientTxID,
			Kind:      ledger.TransferP2P,
			From:      input.From,
			To:        input.To,
			Amount:    input.Amount,
			Status:    ledger.StatusPosted,
			CreatedAt: now,
		})
		if err != nil {
			return err
		}
		if err := ledger.TransferNative(ctx, tx, input.From, input.To, input.Amount); err != nil {
			return err
		}
		if res.FromBalance, err = tx.NativeBalance(ctx, input.From); err != nil {
			return err
		}
		res.ToBalance, err = tx.NativeBalance(ctx, input.To)
		return err
	})
	if err != nil {
		return TransferResult{}, err
	}

	if s.notifier != nil {
		err := s.notifier.Send(ctx, notification.Message{
			Kind:        notification.KindP2PTransfer,
			Destination: input.To.Hex(),
			Body:        fmt.Sprintf("You received %s ETH from %s", units.FormatEther(input.Amount), input.From.Hex()),
			Attributes:  map[string]string{"transaction_id": res.TransactionID, "amount_wei": input.Amount.Dec()},
			At:          now,
		})
		if err != nil && s.logger != nil {
			s.logger.Warn("p2p notification failed", slog.String("transaction_id", res.TransactionID), slog.Any("error", err))
		}
	}

	return res, nil
}
