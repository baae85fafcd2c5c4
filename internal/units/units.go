package units

import (
	"errors"
	"fmt"
	"strings"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
)

// EtherDecimals is the number of wei digits in one ether.
const EtherDecimals = 18

var (
	// ErrInvalidAmount is returned for negative, fractional-wei or malformed amounts.
	ErrInvalidAmount = errors.New("invalid amount")
	// ErrAmountOverflow is returned when an amount does not fit in 256 bits.
	ErrAmountOverflow = errors.New("amount overflows 256 bits")
)

// ParseWei parses a base-10 wei amount.
func ParseWei(s string) (*uint256.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, ErrInvalidAmount
	}
	v, err := uint256.FromDecimal(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	return v, nil
}

// ParseEther parses a decimal ether amount (e.g. "0.01") into wei.
func ParseEther(s string) (*uint256.Int, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	wei := d.Shift(EtherDecimals)
	if wei.IsNegative() || !wei.IsInteger() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	v, overflow := uint256.FromBig(wei.BigInt())
	if overflow {
		return nil, ErrAmountOverflow
	}
	return v, nil
}

// Parse accepts either a wei amount or an ether amount, preferring wei.
func Parse(wei, ether string) (*uint256.Int, error) {
	if strings.TrimSpace(wei) != "" {
		return ParseWei(wei)
	}
	return ParseEther(ether)
}

// FormatEther renders a wei amount as an ether decimal string.
func FormatEther(v *uint256.Int) string {
	if v == nil {
		return "0"
	}
	return decimal.NewFromBigInt(v.ToBig(), -EtherDecimals).String()
}

// FormatWei renders a wei amount as a base-10 string.
func FormatWei(v *uint256.Int) string {
	if v == nil {
		return "0"
	}
	return v.Dec()
}
