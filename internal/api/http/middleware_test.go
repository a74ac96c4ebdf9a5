package http

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/municipal-service/internal/auth"
	"github.com/spec-kit/municipal-service/internal/observability"
)

type errorEnvelope struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func newGuardedApp() *fiber.App {
	app := fiber.New()
	RegisterMiddlewares(app, zap.NewNop(), observability.NewMetrics(), 0)
	ok := func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"data": "ok"})
	}
	app.Get("/staff", auth.RequireStaffRole(), ok)
	app.Get("/citizen", auth.RequireCitizen(), ok)
	app.Get("/me", auth.RequireAnyRole(), ok)
	return app
}

func performGet(t *testing.T, app *fiber.App, path string) (int, errorEnvelope) {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, path, nil))
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var envelope errorEnvelope
	require.NoError(t, json.Unmarshal(body, &envelope))
	return resp.StatusCode, envelope
}

func TestGuardedRoutesRejectAnonymousWithForbidden(t *testing.T) {
	app := newGuardedApp()

	status, envelope := performGet(t, app, "/staff")
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "FORBIDDEN", envelope.Error.Code)
	assert.Equal(t, "staff role required", envelope.Error.Message)

	status, envelope = performGet(t, app, "/citizen")
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "FORBIDDEN", envelope.Error.Code)
}

func TestAuthenticatedRoutesRejectAnonymousWithUnauthorized(t *testing.T) {
	app := newGuardedApp()

	status, envelope := performGet(t, app, "/me")
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "UNAUTHORIZED", envelope.Error.Code)
}

func TestUnmatchedRouteKeepsErrorTaxonomy(t *testing.T) {
	app := newGuardedApp()

	status, envelope := performGet(t, app, "/does-not-exist")
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", envelope.Error.Code)
}
