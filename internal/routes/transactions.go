package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/paystream/paystream/internal/ledger"
)

// RegisterTransactionRoutes wires funding, transfer and history endpoints.
func RegisterTransactionRoutes(r fiber.Router, h *ledger.Handler) {
	group := r.Group("/transactions")
	group.Get("/", h.List)
	group.Post("/fund", h.Fund)
	group.Post("/transfer", h.Transfer)
}
