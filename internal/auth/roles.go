package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ticket-warehouse/internal/domain"
	apperrors "github.com/spec-kit/ticket-warehouse/pkg/util"
)

// RequireScope ensures the caller's token grants scope.
func RequireScope(scope domain.Scope) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, ok := PrincipalFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		if !claims.HasScope(scope) {
			return apperrors.NewForbidden("insufficient scope")
		}
		return c.Next()
	}
}
