package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ZeroR0R/LSBank/internal/funding"
)

// RegisterFundingRoutes wires card funding/withdrawal endpoints for the caller's wallet.
func RegisterFundingRoutes(r fiber.Router, h *funding.Handler) {
	r.Post("/wallet/fund/card", h.CardIn)
	r.Post("/wallet/withdraw/card", h.CardOut)
}
