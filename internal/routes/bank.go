package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ZeroR0R/LSBank/internal/bank"
)

// RegisterBankQueryRoutes wires the public account lookup.
func RegisterBankQueryRoutes(r fiber.Router, h *bank.Handler) {
	r.Get("/bank/accounts/:address", h.Account)
}

// RegisterBankRoutes wires the caller's bank operations.
func RegisterBankRoutes(r fiber.Router, h *bank.Handler) {
	group := r.Group("/bank")
	group.Post("/deposit", h.Deposit)
	group.Post("/withdraw", h.Withdraw)
	group.Post("/borrow", h.Borrow)
	group.Post("/return", h.Return)
}
