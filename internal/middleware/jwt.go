package middleware

import (
	"net/http"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gofiber/fiber/v2"

	"github.com/ZeroR0R/LSBank/internal/auth"
)

const (
	userIDLocal  = "user_id"
	addressLocal = "address"
)

// JWTAuth validates bearer access tokens and stores the principal's id and
// address for downstream handlers.
func JWTAuth(svc *auth.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authz := c.Get(fiber.HeaderAuthorization)
		if !strings.HasPrefix(strings.ToLower(authz), "bearer ") {
			return fiber.NewError(http.StatusUnauthorized, "missing bearer token")
		}
		user, err := svc.Authorize(c.UserContext(), strings.TrimSpace(authz[len("Bearer "):]))
		if err != nil {
			return fiber.NewError(http.StatusUnauthorized, err.Error())
		}

		c.Locals(userIDLocal, user.ID)
		c.Locals(addressLocal, user.Address)
		return c.Next()
	}
}

// CallerAddress returns the authenticated principal's address.
func CallerAddress(c *fiber.Ctx) (common.Address, bool) {
	addr, ok := c.Locals(addressLocal).(common.Address)
	return addr, ok
}

// UserID returns the authenticated principal's id.
func UserID(c *fiber.Ctx) string {
	id, _ := c.Locals(userIDLocal).(string)
	return id
}
