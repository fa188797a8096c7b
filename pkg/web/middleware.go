package web

import (
	"strings"

	"github.com/dukex/wirecat/pkg/auth"
	"github.com/gofiber/fiber/v3"
)

type roleKey struct{}

// RoleResolver turns a bearer token into a Role.
type RoleResolver interface {
	Resolve(token string) (auth.Role, error)
}

// Authenticate resolves the bearer token of every request and stores the caller's role.
func Authenticate(resolver RoleResolver) fiber.Handler {
	return func(c fiber.Ctx) error {
		header := c.Get(fiber.HeaderAuthorization)

		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			return unauthorized(c, "missing bearer token")
		}

		role, err := resolver.Resolve(strings.TrimSpace(token))
		if err != nil {
			return unauthorized(c, "invalid bearer token")
		}

		c.Locals(roleKey{}, role)

		return c.Next()
	}
}

// RoleOf returns the role stored by Authenticate.
func RoleOf(c fiber.Ctx) (auth.Role, bool) {
	role, ok := c.Locals(roleKey{}).(auth.Role)

	return role, ok
}
