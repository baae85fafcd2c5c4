package payments

import (
	"errors"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gofiber/fiber/v2"

	"github.com/ZeroR0R/LSBank/internal/ledger"
	"github.com/ZeroR0R/LSBank/internal/middleware"
	"github.com/ZeroR0R/LSBank/internal/units"
)

// Handler exposes payment endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs a payment handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type transferRequest struct {
	To          string `json:"to"`
	AmountWei   string `json:"amount_wei"`
	AmountEther string `json:"amount_ether"`
	ClientTxID  string `json:"client_tx_id"`
}

// P2P sends native currency from the caller's wallet.
func (h *Handler) P2P(c *fiber.Ctx) error {
	from, ok := middleware.CallerAddress(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, "unauthenticated")
	}
	var req transferRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if !common.IsHexAddress(req.To) {
		return fiber.NewError(http.StatusBadRequest, ErrInvalidRecipient.Error())
	}
	amount, err := units.Parse(req.AmountWei, req.AmountEther)
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	res, err := h.service.Transfer(c.UserContext(), TransferInput{
		From:       from,
		To:         common.HexToAddress(req.To),
		Amount:     amount,
		ClientTxID: req.ClientTxID,
	})
	if err != nil {
		switch {
		case errors.Is(err, ledger.ErrInsufficientFunds):
			return fiber.NewError(http.StatusUnprocessableEntity, err.Error())
		case errors.Is(err, ledger.ErrDuplicateTransaction):
			return fiber.NewError(http.StatusConflict, err.Error())
		case errors.Is(err, ErrInvalidAmount), errors.Is(err, ErrInvalidRecipient):
			return fiber.NewError(http.StatusBadRequest, err.Error())
		default:
			return fiber.NewError(http.StatusInternalServerError, err.Error())
		}
	}

	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"transaction_id":   res.TransactionID,
		"from_balance_wei": units.FormatWei(res.FromBalance),
		"to_balance_wei":   units.FormatWei(res.ToBalance),
		"completed_at":     res.CompletedAt,
	})
}
