package bank

import (
	"errors"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gofiber/fiber/v2"

	"github.com/ZeroR0R/LSBank/internal/ledger"
	"github.com/ZeroR0R/LSBank/internal/middleware"
	"github.com/ZeroR0R/LSBank/internal/token"
	"github.com/ZeroR0R/LSBank/internal/units"
)

// Handler exposes the bank transitions over HTTP. The caller of every
// transition is the authenticated principal's address.
type Handler struct {
	engine *Engine
}

// NewHandler constructs a bank handler.
func NewHandler(engine *Engine) *Handler {
	return &Handler{engine: engine}
}

type valueRequest struct {
	AmountWei   string `json:"amount_wei"`
	AmountEther string `json:"amount_ether"`
}

type accountResponse struct {
	Address          string `json:"address"`
	BalanceWei       string `json:"balance_wei"`
	DepositTimestamp uint64 `json:"deposit_timestamp"`
	IsDeposited      bool   `json:"is_deposited"`
	CollateralWei    string `json:"collateral_wei"`
	IsBorrowed       bool   `json:"is_borrowed"`
}

// Deposit handles depositETH.
func (h *Handler) Deposit(c *fiber.Ctx) error {
	caller, ok := middleware.CallerAddress(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, "unauthenticated")
	}
	var req valueRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	value, err := units.Parse(req.AmountWei, req.AmountEther)
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	res, err := h.engine.Deposit(c.UserContext(), caller, value)
	if err != nil {
		return mapError(err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"balance_wei":       units.FormatWei(res.Balance),
		"deposit_timestamp": res.Timestamp,
		"is_deposited":      res.IsDeposited,
	})
}

// Withdraw handles withdrawETH.
func (h *Handler) Withdraw(c *fiber.Ctx) error {
	caller, ok := middleware.CallerAddress(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, "unauthenticated")
	}
	res, err := h.engine.Withdraw(c.UserContext(), caller)
	if err != nil {
		return mapError(err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"balance_wei":       units.FormatWei(res.Balance),
		"deposit_timestamp": res.Timestamp,
		"is_deposited":      res.IsDeposited,
		"returned_wei":      units.FormatWei(res.Returned),
		"interest_wei":      units.FormatWei(res.Interest),
		"interest_ether":    units.FormatEther(res.Interest),
	})
}

// Borrow handles borrowLSB.
func (h *Handler) Borrow(c *fiber.Ctx) error {
	caller, ok := middleware.CallerAddress(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, "unauthenticated")
	}
	var req valueRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	value, err := units.Parse(req.AmountWei, req.AmountEther)
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	res, err := h.engine.Borrow(c.UserContext(), caller, value)
	if err != nil {
		return mapError(err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"collateral_wei": units.FormatWei(res.Collateral),
		"is_borrowed":    res.IsBorrowed,
		"minted_wei":     units.FormatWei(res.Minted),
	})
}

// Return handles returnLSB. The caller must have approved the bank for the
// repayment beforehand.
func (h *Handler) Return(c *fiber.Ctx) error {
	caller, ok := middleware.CallerAddress(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, "unauthenticated")
	}
	res, err := h.engine.Return(c.UserContext(), caller)
	if err != nil {
		return mapError(err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"collateral_wei": units.FormatWei(res.Collateral),
		"is_borrowed":    res.IsBorrowed,
		"burned_wei":     units.FormatWei(res.Burned),
		"fee_wei":        units.FormatWei(res.Fee),
		"refunded_wei":   units.FormatWei(res.Refunded),
	})
}

// Account returns the bank position of :address.
func (h *Handler) Account(c *fiber.Ctx) error {
	raw := c.Params("address")
	if !common.IsHexAddress(raw) {
		return fiber.NewError(http.StatusBadRequest, "invalid address")
	}
	addr := common.HexToAddress(raw)
	acct, err := h.engine.Account(c.UserContext(), addr)
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.Status(http.StatusOK).JSON(accountResponse{
		Address:          addr.Hex(),
		BalanceWei:       units.FormatWei(acct.Balance),
		DepositTimestamp: acct.DepositTimestamp,
		IsDeposited:      acct.IsDeposited,
		CollateralWei:    units.FormatWei(acct.Collateral),
		IsBorrowed:       acct.IsBorrowed,
	})
}

func mapError(err error) error {
	switch {
	case errors.Is(err, token.ErrUnauthorized):
		return fiber.NewError(http.StatusForbidden, err.Error())
	case errors.Is(err, ErrInvalidAmount), errors.Is(err, token.ErrInvalidRecipient):
		return fiber.NewError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrAlreadyDeposited), errors.Is(err, ErrAlreadyBorrowed),
		errors.Is(err, ErrNoActiveDeposit), errors.Is(err, ErrNoActiveLoan):
		return fiber.NewError(http.StatusConflict, err.Error())
	case errors.Is(err, ledger.ErrInsufficientFunds),
		errors.Is(err, token.ErrInsufficientBalance), errors.Is(err, token.ErrInsufficientAllowance):
		return fiber.NewError(http.StatusUnprocessableEntity, err.Error())
	default:
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
}
