package bank

import (
	"errors"

	"github.com/holiman/uint256"
)

const (
	// DefaultRatePerSecond is the interest in wei paid per second for every
	// DefaultRateBase wei on deposit (10% a year).
	DefaultRatePerSecond uint64 = 31_709_791
	// DefaultRateBase is the deposit size DefaultRatePerSecond refers to.
	DefaultRateBase uint64 = 10_000_000_000_000_000
)

// ErrInvalidRate is returned by a misconfigured interest policy.
var ErrInvalidRate = errors.New("interest rate base must be positive")

// InterestPolicy computes the credit tokens earned by balance over elapsed
// seconds. Implementations must be deterministic.
type InterestPolicy interface {
	Interest(balance *uint256.Int, elapsed uint64) (*uint256.Int, error)
}

// LinearRate pays PerSecond wei for every Base wei on deposit per second:
// balance * PerSecond * elapsed / Base, truncated.
type LinearRate struct {
	PerSecond *uint256.Int
	Base      *uint256.Int
}

// DefaultInterest returns the 10% APY linear rate.
func DefaultInterest() LinearRate {
	return LinearRate{PerSecond: uint256.NewInt(DefaultRatePerSecond), Base: uint256.NewInt(DefaultRateBase)}
}

// Interest implements InterestPolicy.
func (r LinearRate) Interest(balance *uint256.Int, elapsed uint64) (*uint256.Int, error) {
	if r.Base == nil || r.Base.IsZero() || r.PerSecond == nil {
		return nil, ErrInvalidRate
	}
	v, overflow := new(uint256.Int).MulOverflow(balance, r.PerSecond)
	if overflow {
		return nil, ErrOverflow
	}
	if _, overflow = v.MulOverflow(v, uint256.NewInt(elapsed)); overflow {
		return nil, ErrOverflow
	}
	return v.Div(v, r.Base), nil
}
