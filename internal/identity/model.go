package identity

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// User is a registered principal. Each user owns exactly one address, which
// is the caller identity for every bank and token operation.
type User struct {
	ID           string
	Phone        string
	Address      common.Address
	Tier         string
	PINHash      []byte
	DeviceID     string
	TokenVersion int
	CreatedAt    time.Time
	LastLogin    *time.Time
}

// Credentials request structure.
type Credentials struct {
	Phone    string
	PIN      string
	DeviceID string
}
