package deploy

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/ZeroR0R/LSBank/internal/bank"
	"github.com/ZeroR0R/LSBank/internal/ledger"
	"github.com/ZeroR0R/LSBank/internal/token"
)

// ErrUnexpectedMinter is returned when persisted state names a minter that is
// neither the deployer nor the bank.
var ErrUnexpectedMinter = errors.New("credit token minter is neither the deployer nor the bank")

// Addresses are the deterministic locations of the token and the bank: the
// first two contract addresses created by the deployer.
type Addresses struct {
	Deployer common.Address
	Token    common.Address
	Bank     common.Address
}

// AddressesFor derives the contract addresses for deployer.
func AddressesFor(deployer common.Address) Addresses {
	return Addresses{
		Deployer: deployer,
		Token:    crypto.CreateAddress(deployer, 0),
		Bank:     crypto.CreateAddress(deployer, 1),
	}
}

// Params configure a deployment.
type Params struct {
	Deployer    common.Address
	TokenName   string
	TokenSymbol string
	BankOptions []bank.Option
}

// Deployment is the wired token and bank.
type Deployment struct {
	Addresses
	Token *token.Token
	Bank  *bank.Engine
	// MinterChange is nil when the minter already belonged to the bank.
	MinterChange *token.MinterChanged
}

// Run deploys the token with the deployer as minter, deploys the bank bound to
// it and hands the minter role to the bank. Against persisted state the
// handover is skipped once the bank already is the minter.
func Run(ctx context.Context, l ledger.Ledger, p Params) (Deployment, error) {
	addrs := AddressesFor(p.Deployer)
	tok := token.New(p.TokenName, p.TokenSymbol, addrs.Token)
	engine := bank.NewEngine(addrs.Bank, l, tok, p.BankOptions...)

	var changed *token.MinterChanged
	err := l.Update(ctx, func(tx ledger.Tx) error {
		minter, err := tx.Minter(ctx)
		if err != nil {
			return err
		}
		switch minter {
		case addrs.Bank:
			return nil
		case common.Address{}:
			if err := tx.SetMinter(ctx, p.Deployer); err != nil {
				return err
			}
		case p.Deployer:
		default:
			return fmt.Errorf("%w: %s", ErrUnexpectedMinter, minter.Hex())
		}
		c, err := tok.ChangeMinter(ctx, tx, p.Deployer, addrs.Bank)
		if err != nil {
			return fmt.Errorf("hand minter to bank: %w", err)
		}
		changed = &c
		return nil
	})
	if err != nil {
		return Deployment{}, err
	}

	return Deployment{Addresses: addrs, Token: tok, Bank: engine, MinterChange: changed}, nil
}
