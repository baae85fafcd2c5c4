package wallet

import (
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/ZeroR0R/LSBank/internal/middleware"
	"github.com/ZeroR0R/LSBank/internal/units"
)

// Handler exposes wallet HTTP endpoints.
type Handler struct {
	service *Service
}

// NewHandler builds a wallet HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type walletResponse struct {
	Address       string    `json:"address"`
	NativeWei     string    `json:"native_wei"`
	NativeEther   string    `json:"native_ether"`
	CreditWei     string    `json:"credit_wei"`
	CreditEther   string    `json:"credit_ether"`
	DepositWei    string    `json:"deposit_wei"`
	DepositedAt   uint64    `json:"deposit_timestamp"`
	IsDeposited   bool      `json:"is_deposited"`
	CollateralWei string    `json:"collateral_wei"`
	IsBorrowed    bool      `json:"is_borrowed"`
	Timestamp     time.Time `json:"timestamp"`
}

// Me returns the authenticated principal's wallet.
func (h *Handler) Me(c *fiber.Ctx) error {
	addr, ok := middleware.CallerAddress(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, "unauthenticated")
	}
	w, err := h.service.Get(c.UserContext(), addr)
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.Status(http.StatusOK).JSON(walletResponse{
		Address:       w.Address.Hex(),
		NativeWei:     units.FormatWei(w.Native),
		NativeEther:   units.FormatEther(w.Native),
		CreditWei:     units.FormatWei(w.Credit),
		CreditEther:   units.FormatEther(w.Credit),
		DepositWei:    units.FormatWei(w.Deposit),
		DepositedAt:   w.DepositedAt,
		IsDeposited:   w.Deposited(),
		CollateralWei: units.FormatWei(w.Collateral),
		IsBorrowed:    w.Borrowed(),
		Timestamp:     w.AsOf,
	})
}
