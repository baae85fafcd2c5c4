package funding

import (
	"context"

	"github.com/google/uuid"
	"github.com/holiman/uint256"
)

const (
	decisionApproved = "approved"
	decisionDeclined = "declined"
)

// Acquirer is the card processor that authorizes top-ups and payouts.
type Acquirer interface {
	AuthorizeCardIn(ctx context.Context, input CardInAuthorization) (AuthorizationDecision, error)
	AuthorizeCardOut(ctx context.Context, input CardOutAuthorization) (AuthorizationDecision, error)
}

// AuthorizationDecision is the processor's verdict. Anything other than
// "approved" rejects the operation.
type AuthorizationDecision struct {
	Reference string
	Status    string
}

// CardInAuthorization asks to pull AmountWei from a card into a wallet.
type CardInAuthorization struct {
	CardNumber string
	Expiry     string
	CVV        string
	AmountWei  *uint256.Int
}

// CardOutAuthorization asks to push AmountWei from a wallet to a card.
type CardOutAuthorization struct {
	CardNumber string
	AmountWei  *uint256.Int
}

// StaticAcquirer approves every request with a random reference.
type StaticAcquirer struct{}

func (StaticAcquirer) AuthorizeCardIn(_ context.Context, _ CardInAuthorization) (AuthorizationDecision, error) {
	return AuthorizationDecision{Reference: uuid.NewString(), Status: decisionApproved}, nil
}

func (StaticAcquirer) AuthorizeCardOut(_ context.Context, _ CardOutAuthorization) (AuthorizationDecision, error) {
	return AuthorizationDecision{Reference: uuid.NewString(), Status: decisionApproved}, nil
}

// LimitAcquirer declines any single authorization above Limit and forwards
// the rest to Next. A nil Limit disables the cap.
type LimitAcquirer struct {
	Limit *uint256.Int
	Next  Acquirer
}

func (a LimitAcquirer) AuthorizeCardIn(ctx context.Context, input CardInAuthorization) (AuthorizationDecision, error) {
	if a.exceeds(input.AmountWei) {
		return AuthorizationDecision{Status: decisionDeclined}, nil
	}
	return a.next().AuthorizeCardIn(ctx, input)
}

func (a LimitAcquirer) AuthorizeCardOut(ctx context.Context, input CardOutAuthorization) (AuthorizationDecision, error) {
	if a.exceeds(input.AmountWei) {
		return AuthorizationDecision{Status: decisionDeclined}, nil
	}
	return a.next().AuthorizeCardOut(ctx, input)
}

func (a LimitAcquirer) exceeds(amount *uint256.Int) bool {
	return a.Limit != nil && amount != nil && amount.Gt(a.Limit)
}

func (a LimitAcquirer) next() Acquirer {
	if a.Next == nil {
		return StaticAcquirer{}
	}
	return a.Next
}
