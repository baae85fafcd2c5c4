package token

import (
	"errors"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gofiber/fiber/v2"
	"github.com/holiman/uint256"

	"github.com/ZeroR0R/LSBank/internal/ledger"
	"github.com/ZeroR0R/LSBank/internal/middleware"
	"github.com/ZeroR0R/LSBank/internal/units"
)

// Handler exposes the credit token over HTTP.
type Handler struct {
	service *Service
}

// NewHandler constructs a token handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type amountRequest struct {
	To          string `json:"to"`
	From        string `json:"from"`
	Spender     string `json:"spender"`
	NewMinter   string `json:"new_minter"`
	AmountWei   string `json:"amount_wei"`
	AmountEther string `json:"amount_ether"`
}

type infoResponse struct {
	Address          string `json:"address"`
	Name             string `json:"name"`
	Symbol           string `json:"symbol"`
	Decimals         int    `json:"decimals"`
	TotalSupplyWei   string `json:"total_supply_wei"`
	TotalSupplyEther string `json:"total_supply_ether"`
	Minter           string `json:"minter"`
}

// Info returns the token metadata, supply and minter.
func (h *Handler) Info(c *fiber.Ctx) error {
	info, err := h.service.Info(c.UserContext())
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.Status(http.StatusOK).JSON(infoResponse{
		Address:          info.Address.Hex(),
		Name:             info.Name,
		Symbol:           info.Symbol,
		Decimals:         info.Decimals,
		TotalSupplyWei:   units.FormatWei(info.TotalSupply),
		TotalSupplyEther: units.FormatEther(info.TotalSupply),
		Minter:           info.Minter.Hex(),
	})
}

// BalanceOf returns the credit balance of :address.
func (h *Handler) BalanceOf(c *fiber.Ctx) error {
	addr, err := addressParam(c, "address")
	if err != nil {
		return err
	}
	bal, err := h.service.BalanceOf(c.UserContext(), addr)
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"address":       addr.Hex(),
		"balance_wei":   units.FormatWei(bal),
		"balance_ether": units.FormatEther(bal),
	})
}

// Allowance returns allowance[:owner][:spender].
func (h *Handler) Allowance(c *fiber.Ctx) error {
	owner, err := addressParam(c, "owner")
	if err != nil {
		return err
	}
	spender, err := addressParam(c, "spender")
	if err != nil {
		return err
	}
	v, err := h.service.Allowance(c.UserContext(), owner, spender)
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"owner":         owner.Hex(),
		"spender":       spender.Hex(),
		"allowance_wei": units.FormatWei(v),
	})
}

// Transfer moves the caller's tokens.
func (h *Handler) Transfer(c *fiber.Ctx) error {
	caller, req, amount, err := parseAmountRequest(c)
	if err != nil {
		return err
	}
	to, err := parseAddress(req.To, "to")
	if err != nil {
		return err
	}
	if err := h.service.Transfer(c.UserContext(), caller, to, amount); err != nil {
		return mapError(err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"from": caller.Hex(), "to": to.Hex(), "amount_wei": amount.Dec()})
}

// Approve sets the allowance of spender over the caller's tokens.
func (h *Handler) Approve(c *fiber.Ctx) error {
	caller, req, amount, err := parseAmountRequest(c)
	if err != nil {
		return err
	}
	spender, err := parseAddress(req.Spender, "spender")
	if err != nil {
		return err
	}
	if err := h.service.Approve(c.UserContext(), caller, spender, amount); err != nil {
		return mapError(err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"owner": caller.Hex(), "spender": spender.Hex(), "allowance_wei": amount.Dec()})
}

// TransferFrom spends the caller's allowance over from.
func (h *Handler) TransferFrom(c *fiber.Ctx) error {
	caller, req, amount, err := parseAmountRequest(c)
	if err != nil {
		return err
	}
	from, err := parseAddress(req.From, "from")
	if err != nil {
		return err
	}
	to, err := parseAddress(req.To, "to")
	if err != nil {
		return err
	}
	if err := h.service.TransferFrom(c.UserContext(), caller, from, to, amount); err != nil {
		return mapError(err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"from": from.Hex(), "to": to.Hex(), "amount_wei": amount.Dec()})
}

// Mint creates tokens; the caller must be the minter.
func (h *Handler) Mint(c *fiber.Ctx) error {
	caller, req, amount, err := parseAmountRequest(c)
	if err != nil {
		return err
	}
	to, err := parseAddress(req.To, "to")
	if err != nil {
		return err
	}
	if err := h.service.Mint(c.UserContext(), caller, to, amount); err != nil {
		return mapError(err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"to": to.Hex(), "amount_wei": amount.Dec()})
}

// Burn destroys tokens; the caller must be the minter.
func (h *Handler) Burn(c *fiber.Ctx) error {
	caller, req, amount, err := parseAmountRequest(c)
	if err != nil {
		return err
	}
	from, err := parseAddress(req.From, "from")
	if err != nil {
		return err
	}
	if err := h.service.Burn(c.UserContext(), caller, from, amount); err != nil {
		return mapError(err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"from": from.Hex(), "amount_wei": amount.Dec()})
}

// ChangeMinter hands the minter role to new_minter.
func (h *Handler) ChangeMinter(c *fiber.Ctx) error {
	caller, ok := middleware.CallerAddress(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, "unauthenticated")
	}
	var req amountRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	next, err := parseAddress(req.NewMinter, "new_minter")
	if err != nil {
		return err
	}
	changed, err := h.service.ChangeMinter(c.UserContext(), caller, next)
	if err != nil {
		return mapError(err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"from": changed.From.Hex(), "to": changed.To.Hex()})
}

func parseAmountRequest(c *fiber.Ctx) (common.Address, amountRequest, *uint256.Int, error) {
	caller, ok := middleware.CallerAddress(c)
	if !ok {
		return common.Address{}, amountRequest{}, nil, fiber.NewError(http.StatusUnauthorized, "unauthenticated")
	}
	var req amountRequest
	if err := c.BodyParser(&req); err != nil {
		return common.Address{}, amountRequest{}, nil, fiber.NewError(http.StatusBadRequest, err.Error())
	}
	amount, err := units.Parse(req.AmountWei, req.AmountEther)
	if err != nil {
		return common.Address{}, amountRequest{}, nil, fiber.NewError(http.StatusBadRequest, err.Error())
	}
	return caller, req, amount, nil
}

func addressParam(c *fiber.Ctx, name string) (common.Address, error) {
	return parseAddress(c.Params(name), name)
}

func parseAddress(raw, field string) (common.Address, error) {
	if !common.IsHexAddress(raw) {
		return common.Address{}, fiber.NewError(http.StatusBadRequest, "invalid "+field+" address")
	}
	return common.HexToAddress(raw), nil
}

func mapError(err error) error {
	switch {
	case errors.Is(err, ErrUnauthorized):
		return fiber.NewError(http.StatusForbidden, err.Error())
	case errors.Is(err, ErrInvalidRecipient), errors.Is(err, ledger.ErrOverflow):
		return fiber.NewError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrInsufficientBalance), errors.Is(err, ErrInsufficientAllowance):
		return fiber.NewError(http.StatusUnprocessableEntity, err.Error())
	default:
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
}
