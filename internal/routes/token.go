package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ZeroR0R/LSBank/internal/token"
)

// RegisterTokenQueryRoutes wires read-only credit token endpoints.
func RegisterTokenQueryRoutes(r fiber.Router, h *token.Handler) {
	r.Get("/token", h.Info)
	r.Get("/token/balances/:address", h.BalanceOf)
	r.Get("/token/allowances/:owner/:spender", h.Allowance)
}

// RegisterTokenRoutes wires credit token calls made by the caller.
func RegisterTokenRoutes(r fiber.Router, h *token.Handler) {
	group := r.Group("/token")
	group.Post("/transfer", h.Transfer)
	group.Post("/approve", h.Approve)
	group.Post("/transfer-from", h.TransferFrom)
	group.Post("/mint", h.Mint)
	group.Post("/burn", h.Burn)
	group.Post("/minter", h.ChangeMinter)
}
