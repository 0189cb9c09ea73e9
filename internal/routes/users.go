package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/paystream/paystream/internal/user"
)

// RegisterUserRoutes wires public signup/login endpoints.
func RegisterUserRoutes(r fiber.Router, h *user.Handler, rateLimiter fiber.Handler) {
	group := r.Group("/users")
	group.Post("/signup", h.Signup)
	if rateLimiter != nil {
		group.Post("/login", rateLimiter, h.Login)
	} else {
		group.Post("/login", h.Login)
	}
}

// RegisterUserMeRoutes wires endpoints that require an authenticated user.
func RegisterUserMeRoutes(r fiber.Router, h *user.Handler) {
	group := r.Group("/users")
	group.Get("/currentUser", h.CurrentUser)
	group.Get("/balance", h.Balance)
}
