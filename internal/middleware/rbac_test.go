package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
)

func TestRequireRole(t *testing.T) {
	cases := []struct {
		name     string
		role     interface{}
		allowed  []string
		expected int
	}{
		{name: "matching role", role: "teacher", allowed: []string{"teacher"}, expected: http.StatusOK},
		{name: "case insensitive", role: "Teacher", allowed: []string{"teacher"}, expected: http.StatusOK},
		{name: "one of many", role: "admin", allowed: []string{"teacher", "admin"}, expected: http.StatusOK},
		{name: "wrong role", role: "student", allowed: []string{"teacher"}, expected: http.StatusForbidden},
		{name: "missing role", role: nil, allowed: []string{"teacher"}, expected: http.StatusForbidden},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			app := fiber.New()
			app.Get("/", func(c *fiber.Ctx) error {
				if tc.role != nil {
					c.Locals(LocalUserRole, tc.role)
				}
				return c.Next()
			}, RequireRole(tc.allowed...), func(c *fiber.Ctx) error {
				return c.SendStatus(http.StatusOK)
			})

			resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil), -1)
			require.NoError(t, err)
			require.Equal(t, tc.expected, resp.StatusCode)
		})
	}
}

func TestCorrelationID(t *testing.T) {
	app := fiber.New()
	app.Use(CorrelationID())
	app.Get("/", func(c *fiber.Ctx) error {
		return c.SendString(GetCorrelationID(c))
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil), -1)
	require.NoError(t, err)
	require.NotEmpty(t, resp.Header.Get("X-Correlation-ID"))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Correlation-ID", "roster-42")
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, "roster-42", resp.Header.Get("X-Correlation-ID"))
}
