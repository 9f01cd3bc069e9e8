package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func roleApp(guard fiber.Handler) *fiber.App {
	app := fiber.New()
	app.Post("/announcements", JWTProtected(testSecret), guard, func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusCreated)
	})
	return app
}

func requestWithRole(t *testing.T, app *fiber.App, role string) *http.Response {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/announcements", nil)
	if role != "" {
		token := signToken(t, testSecret, jwt.MapClaims{
			"role":  role,
			"email": role + "@sma-adp.sch.id",
		})
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func TestRequireRoleAllowsListedRoles(t *testing.T) {
	app := roleApp(RequireRole("principal"))

	require.Equal(t, fiber.StatusCreated, requestWithRole(t, app, "principal").StatusCode)
	require.Equal(t, fiber.StatusForbidden, requestWithRole(t, app, "student").StatusCode)
	require.Equal(t, fiber.StatusUnauthorized, requestWithRole(t, app, "").StatusCode)
}

func TestRequireStaffAllowsPrincipalAndTeacher(t *testing.T) {
	app := roleApp(RequireStaff())

	require.Equal(t, fiber.StatusCreated, requestWithRole(t, app, "principal").StatusCode)
	require.Equal(t, fiber.StatusCreated, requestWithRole(t, app, "teacher").StatusCode)
	require.Equal(t, fiber.StatusForbidden, requestWithRole(t, app, "student").StatusCode)
}
