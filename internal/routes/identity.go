package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ZeroR0R/LSBank/internal/identity"
)

// RegisterIdentityRoutes wires onboarding endpoints. Every registered
// principal owns an address, so no wallet provisioning step is needed.
func RegisterIdentityRoutes(r fiber.Router, h *identity.Handler) {
	r.Post("/identity/register", h.Register)
	r.Post("/identity/authenticate", h.Authenticate)
}

// RegisterProfileRoute exposes the authenticated principal.
func RegisterProfileRoute(r fiber.Router, h *identity.Handler) {
	r.Get("/me", h.Me)
}
