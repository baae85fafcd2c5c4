package report

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
)

// Handler serves the latest reserves report.
type Handler struct {
	reporter *Reporter
}

// NewHandler constructs a report handler.
func NewHandler(reporter *Reporter) *Handler {
	return &Handler{reporter: reporter}
}

// Stats returns the latest snapshot.
func (h *Handler) Stats(c *fiber.Ctx) error {
	snap, err := h.reporter.Latest(c.UserContext())
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.Status(http.StatusOK).JSON(snap)
}
