package middleware

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/chulseok-go-api/internal/models"
	"github.com/noah-isme/chulseok-go-api/internal/utils"
)

// Locals keys populated by Authenticated for downstream handlers.
const (
	LocalUserID     = "user_id"
	LocalExternalID = "user_external_id"
	LocalUserRole   = "user_role"
)

// TokenResolver validates a bearer token and re-resolves its subject to a
// current user record. A valid signature alone is not enough; the subject
// must still exist at request time.
type TokenResolver interface {
	ResolveToken(ctx context.Context, tokenString string) (models.User, error)
}

// Authenticated returns a middleware that validates JWT bearer tokens and
// binds the resolved identity to the request.
func Authenticated(tokens TokenResolver) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authorization := c.Get("Authorization")
		if authorization == "" {
			return utils.SendError(c, fiber.StatusUnauthorized, "authorization header missing")
		}

		const bearer = "Bearer "
		if !strings.HasPrefix(strings.ToLower(authorization), strings.ToLower(bearer)) {
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid authorization header")
		}

		tokenString := strings.TrimSpace(authorization[len(bearer):])
		if tokenString == "" {
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid token")
		}

		user, err := tokens.ResolveToken(c.Context(), tokenString)
		if err != nil {
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid or expired token")
		}

		c.Locals(LocalUserID, user.ID)
		c.Locals(LocalExternalID, user.ExternalID)
		c.Locals(LocalUserRole, string(user.Role))

		return c.Next()
	}
}
