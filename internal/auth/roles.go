package auth

import (
	"slices"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/request-tracker/internal/domain"
	apperrors "github.com/spec-kit/request-tracker/pkg/util/errorutil"
)

// RequireRole admits callers whose agent role is one of allowed. With no
// roles listed any authenticated agent passes.
func RequireRole(allowed ...domain.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		if len(allowed) > 0 && !slices.Contains(allowed, principal.Role) {
			return apperrors.NewForbidden("role " + string(principal.Role) + " may not perform this action")
		}
		return c.Next()
	}
}

// RequireAgent admits any authenticated agent.
func RequireAgent() fiber.Handler {
	return RequireRole()
}

// RequireAdmin admits only administrators.
func RequireAdmin() fiber.Handler {
	return RequireRole(domain.RoleAdmin)
}
