package funding

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/holiman/uint256"

	"github.com/ZeroR0R/LSBank/internal/ledger"
)

var (
	ErrInvalidCard   = errors.New("card number must be 12 to 19 digits")
	ErrInvalidAmount = errors.New("amount must be positive")
	ErrDeclined      = errors.New("card authorization declined")

	// ErrReferenceConflict is returned when a client_tx_id is already
	// journaled for another wallet or the opposite direction.
	ErrReferenceConflict = errors.New("client_tx_id already used by another transaction")
)

// Service moves native currency between cards and wallets. Top-ups credit
// the wallet directly; payouts park the funds at ledger.CardSuspenseAddress
// until the acquirer settles.
type Service struct {
	ledger   ledger.Ledger
	acquirer Acquirer
	now      func() time.Time
}

// NewService prepares a funding service. A nil acquirer approves everything.
func NewService(l ledger.Ledger, acquirer Acquirer) *Service {
	if acquirer == nil {
		acquirer = StaticAcquirer{}
	}
	return &Service{ledger: l, acquirer: acquirer, now: time.Now}
}

// CardInInput captures the required data for a card top-up.
type CardInInput struct {
	Wallet     common.Address
	Amount     *uint256.Int
	ClientTxID string
	CardNumber string
	Expiry     string
	CVV        string
}

// CardOutInput captures the required data for a card withdrawal.
type CardOutInput struct {
	Wallet     common.Address
	Amount     *uint256.Int
	ClientTxID string
	CardNumber string
}

// FundingResult represents the domain outcome of a card operation.
type FundingResult struct {
	TransactionID     string
	Status            string
	Amount            *uint256.Int
	WalletBalance     *uint256.Int
	AcquirerReference string
	CompletedAt       time.Time
}

// CardIn authorizes and records a card top-up into the wallet. Replaying a
// ClientTxID returns the original outcome with ledger.ErrDuplicateTransaction.
func (s *Service) CardIn(ctx context.Context, input CardInInput) (FundingResult, error) {
	if err := validate(input.CardNumber, input.Amount); err != nil {
		return FundingResult{}, err
	}
	ref := reference(input.ClientTxID)
	if prior, ok, err := s.replay(ctx, ref, ledger.TransferCardIn, input.Wallet); ok || err != nil {
		return prior, err
	}

	decision, err := s.acquirer.AuthorizeCardIn(ctx, CardInAuthorization{
		CardNumber: input.CardNumber,
		Expiry:     input.Expiry,
		CVV:        input.CVV,
		AmountWei:  input.Amount,
	})
	if err != nil {
		return FundingResult{}, err
	}
	if decision.Status != decisionApproved {
		return FundingResult{}, ErrDeclined
	}

	entry := ledger.Transfer{
		Reference: ref,
		Kind:      ledger.TransferCardIn,
		From:      ledger.CardIssuerAddress,
		To:        input.Wallet,
		Amount:    input.Amount,
		Status:    ledger.StatusPendingSettlement,
		CreatedAt: s.now().UTC(),
	}
	return s.post(ctx, entry, decision.Reference, func(tx ledger.Tx) error {
		return ledger.CreditNative(ctx, tx, input.Wallet, input.Amount)
	})
}

// CardOut authorizes and records a withdrawal to the provided card.
func (s *Service) CardOut(ctx context.Context, input CardOutInput) (FundingResult, error) {
	if err := validate(input.CardNumber, input.Amount); err != nil {
		return FundingResult{}, err
	}
	ref := reference(input.ClientTxID)
	if prior, ok, err := s.replay(ctx, ref, ledger.TransferCardOut, input.Wallet); ok || err != nil {
		return prior, err
	}

	decision, err := s.acquirer.AuthorizeCardOut(ctx, CardOutAuthorization{
		CardNumber: input.CardNumber,
		AmountWei:  input.Amount,
	})
	if err != nil {
		return FundingResult{}, err
	}
	if decision.Status != decisionApproved {
		return FundingResult{}, ErrDeclined
	}

	entry := ledger.Transfer{
		Reference: ref,
		Kind:      ledger.TransferCardOut,
		From:      input.Wallet,
		To:        ledger.CardSuspenseAddress,
		Amount:    input.Amount,
		Status:    ledger.StatusPendingSettlement,
		CreatedAt: s.now().UTC(),
	}
	return s.post(ctx, entry, decision.Reference, func(tx ledger.Tx) error {
		return ledger.TransferNative(ctx, tx, input.Wallet, ledger.CardSuspenseAddress, input.Amount)
	})
}

func (s *Service) post(ctx context.Context, entry ledger.Transfer, acquirerRef string, move func(ledger.Tx) error) (FundingResult, error) {
	var balance *uint256.Int
	err := s.ledger.Update(ctx, func(tx ledger.Tx) error {
		if err := tx.RecordTransfer(ctx, entry); err != nil {
			return err
		}
		if err := move(tx); err != nil {
			return err
		}
		var err error
		balance, err = tx.NativeBalance(ctx, walletOf(entry))
		return err
	})
	if errors.Is(err, ledger.ErrDuplicateTransaction) {
		// journaled concurrently after replay looked
		return FundingResult{}, ErrReferenceConflict
	}
	if err != nil {
		return FundingResult{}, err
	}
	return FundingResult{
		TransactionID:     entry.Reference,
		Status:            entry.Status,
		Amount:            entry.Amount,
		WalletBalance:     balance,
		AcquirerReference: acquirerRef,
		CompletedAt:       s.now().UTC(),
	}, nil
}

// replay reports the stored outcome of an already journaled reference. The
// entry must be of the same kind and belong to wallet, otherwise the
// reference is in use by someone else and ErrReferenceConflict is returned.
func (s *Service) replay(ctx context.Context, ref, kind string, wallet common.Address) (FundingResult, bool, error) {
	var (
		res   FundingResult
		found bool
	)
	err := s.ledger.View(ctx, func(tx ledger.Tx) error {
		entry, ok, err := tx.Transfer(ctx, ref)
		if err != nil || !ok {
			return err
		}
		if entry.Kind != kind || walletOf(entry) != wallet {
			return ErrReferenceConflict
		}
		found = true
		balance, err := tx.NativeBalance(ctx, wallet)
		if err != nil {
			return err
		}
		res = FundingResult{
			TransactionID: entry.Reference,
			Status:        entry.Status,
			Amount:        entry.Amount,
			WalletBalance: balance,
			CompletedAt:   entry.CreatedAt,
		}
		return nil
	})
	if err != nil {
		return FundingResult{}, false, err
	}
	if found {
		return res, true, ledger.ErrDuplicateTransaction
	}
	return FundingResult{}, false, nil
}

// walletOf is the customer side of a card transfer.
func walletOf(entry ledger.Transfer) common.Address {
	if entry.Kind == ledger.TransferCardOut {
		return entry.From
	}
	return entry.To
}

func reference(clientTxID string) string {
	if id := strings.TrimSpace(clientTxID); id != "" {
		return id
	}
	return uuid.NewString()
}

func validate(card string, amount *uint256.Int) error {
	if amount == nil || amount.IsZero() {
		return ErrInvalidAmount
	}
	digits := strings.ReplaceAll(card, " ", "")
	if len(digits) < 12 || len(digits) > 19 {
		return ErrInvalidCard
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return fmt.Errorf("%w: card number must be numeric", ErrInvalidCard)
		}
	}
	return nil
}
