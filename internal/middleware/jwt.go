package middleware

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/paystream/paystream/internal/auth"
	"github.com/paystream/paystream/internal/user"
)

// JWTAuth returns a middleware that validates access tokens and resolves the
// authenticated user, storing the numeric user id in the request locals.
func JWTAuth(tokens *auth.Issuer, repo user.Repository) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authz := c.Get(fiber.HeaderAuthorization)
		if !strings.HasPrefix(strings.ToLower(authz), "bearer ") {
			return fiber.NewError(http.StatusUnauthorized, "missing bearer token")
		}
		tokenStr := strings.TrimSpace(authz[len("Bearer "):])
		uid, err := tokens.Verify(tokenStr)
		if err != nil {
			return fiber.NewError(http.StatusUnauthorized, "invalid token")
		}

		if _, err := repo.FindByID(c.UserContext(), uid); err != nil {
			return fiber.NewError(http.StatusUnauthorized, "user not found")
		}

		c.Locals("user_id", uid)
		return c.Next()
	}
}
