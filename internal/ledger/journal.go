package ledger

import (
	"errors"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// ErrDuplicateTransaction is returned when a transfer reference was already journaled.
var ErrDuplicateTransaction = errors.New("duplicate transaction")

// Journaled transfer kinds.
const (
	TransferCardIn  = "card_in"
	TransferCardOut = "card_out"
	TransferP2P     = "p2p"
)

// Journaled transfer statuses.
const (
	StatusPosted            = "posted"
	StatusPendingSettlement = "pending_settlement"
)

// CardSuspenseAddress holds native funds paid out to cards until the
// acquirer settles them.
var CardSuspenseAddress = common.HexToAddress("0x00000000000000000000000000000000000ca4d5")

// CardIssuerAddress is the counterparty of card top-ups.
var CardIssuerAddress = common.HexToAddress("0x00000000000000000000000000000000000ca4d0")

// Transfer is a journal entry for a native movement initiated outside the
// bank: card top-ups, card payouts and P2P payments. Reference is the
// client-supplied transaction id and is unique.
type Transfer struct {
	Reference string
	Kind      string
	From      common.Address
	To        common.Address
	Amount    *uint256.Int
	Status    string
	CreatedAt time.Time
}

// Clone returns a deep copy.
func (t Transfer) Clone() Transfer {
	out := t
	out.Amount = cloneAmount(t.Amount)
	return out
}
