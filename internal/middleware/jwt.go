package middleware

import (
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"

	"github.com/noah-isme/sma-portal-api/internal/models"
	"github.com/noah-isme/sma-portal-api/internal/utils"
)

// viewerLocalKey is where the authenticated viewer context is stored on
// the request.
const viewerLocalKey = "viewer"

// JWTProtected returns a middleware that validates JWT bearer tokens and
// binds the caller's identity claims to the request. Tokens carry the
// portal identity as flat claims: role, email, name, person_id, class,
// section.
func JWTProtected(secret string) fiber.Handler {
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

		token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method")
			}
			return []byte(secret), nil
		})
		if err != nil || !token.Valid {
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid token")
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid token claims")
		}

		viewer := viewerFromClaims(claims)
		if viewer.Email == "" {
			return utils.SendError(c, fiber.StatusUnauthorized, "token is missing identity claims")
		}

		c.Locals(viewerLocalKey, viewer)
		c.Locals("user_email", viewer.Email)
		c.Locals("user_role", viewer.Role)

		return c.Next()
	}
}

// ViewerFromRequest returns the identity bound by JWTProtected. The second
// return is false on unauthenticated routes.
func ViewerFromRequest(c *fiber.Ctx) (models.ViewerContext, bool) {
	value := c.Locals(viewerLocalKey)
	if value == nil {
		return models.ViewerContext{}, false
	}
	viewer, ok := value.(models.ViewerContext)
	return viewer, ok
}

func viewerFromClaims(claims jwt.MapClaims) models.ViewerContext {
	return models.ViewerContext{
		Role:        strings.ToLower(claimString(claims, "role")),
		Email:       claimString(claims, "email", "sub"),
		DisplayName: claimString(claims, "name"),
		PersonID:    claimString(claims, "person_id"),
		Class:       claimString(claims, "class"),
		Section:     claimString(claims, "section"),
	}
}

func claimString(claims jwt.MapClaims, keys ...string) string {
	for _, key := range keys {
		if value, ok := claims[key]; ok {
			if str, ok := value.(string); ok {
				trimmed := strings.TrimSpace(str)
				if trimmed != "" {
					return trimmed
				}
			}
		}
	}
	return ""
}
