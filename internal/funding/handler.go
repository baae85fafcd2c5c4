package funding

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/ZeroR0R/LSBank/internal/ledger"
	"github.com/ZeroR0R/LSBank/internal/middleware"
	"github.com/ZeroR0R/LSBank/internal/units"
)

// Handler exposes HTTP endpoints for card funding flows.
type Handler struct {
	service *Service
}

// NewHandler constructs a funding handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// CardIn processes wallet top-ups funded by cards.
func (h *Handler) CardIn(c *fiber.Ctx) error {
	addr, ok := middleware.CallerAddress(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, "unauthenticated")
	}
	var req CardInRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	amount, err := units.Parse(req.AmountWei, req.AmountEther)
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	result, err := h.service.CardIn(c.UserContext(), CardInInput{
		Wallet:     addr,
		Amount:     amount,
		ClientTxID: req.ClientTxID,
		CardNumber: req.CardNumber,
		Expiry:     req.Expiry,
		CVV:        req.CVV,
	})
	return respond(c, result, err)
}

// CardOut processes wallet withdrawals to cards.
func (h *Handler) CardOut(c *fiber.Ctx) error {
	addr, ok := middleware.CallerAddress(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, "unauthenticated")
	}
	var req CardOutRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	amount, err := units.Parse(req.AmountWei, req.AmountEther)
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	result, err := h.service.CardOut(c.UserContext(), CardOutInput{
		Wallet:     addr,
		Amount:     amount,
		ClientTxID: req.ClientTxID,
		CardNumber: req.CardNumber,
	})
	return respond(c, result, err)
}

func respond(c *fiber.Ctx, result FundingResult, err error) error {
	switch {
	case err == nil:
		return c.Status(http.StatusCreated).JSON(toResponse(result))
	case errors.Is(err, ledger.ErrDuplicateTransaction):
		return c.Status(http.StatusOK).JSON(toResponse(result))
	case errors.Is(err, ErrReferenceConflict):
		return fiber.NewError(http.StatusConflict, err.Error())
	case errors.Is(err, ledger.ErrInsufficientFunds):
		return fiber.NewError(http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, ErrDeclined):
		return fiber.NewError(http.StatusPaymentRequired, err.Error())
	case errors.Is(err, ErrInvalidCard), errors.Is(err, ErrInvalidAmount):
		return fiber.NewError(http.StatusBadRequest, err.Error())
	default:
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
}

func toResponse(result FundingResult) FundingResponse {
	return FundingResponse{
		TransactionID:     result.TransactionID,
		Status:            result.Status,
		AmountWei:         units.FormatWei(result.Amount),
		WalletBalanceWei:  units.FormatWei(result.WalletBalance),
		WalletBalanceEth:  units.FormatEther(result.WalletBalance),
		AcquirerReference: result.AcquirerReference,
		CompletedAt:       result.CompletedAt,
	}
}
