package http_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	gojwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apphttp "github.com/jhoicas/stock-replenishment/internal/interfaces/http"
	pkgjwt "github.com/jhoicas/stock-replenishment/pkg/jwt"
)

// ──────────────────────────────────────────────────────────────────────────────
// Helpers de test
// ──────────────────────────────────────────────────────────────────────────────

const (
	testJWTSecret = "test-secret-key-for-unit-tests"
	testUserID    = "00000000-0000-0000-0000-000000000001"
	testCompanyID = "00000000-0000-0000-0000-000000000002"
	testIssuer    = "stock-replenishment-test"
)

var testSigner = mustSigner(testJWTSecret, testIssuer)

func mustSigner(secret, issuer string) *pkgjwt.Signer {
	s, err := pkgjwt.NewSigner(secret, issuer, time.Hour)
	if err != nil {
		panic(err)
	}
	return s
}

// buildTestApp monta AuthMiddleware + RequireRole delante de un handler que responde el rol.
func buildTestApp(allowedRoles ...string) *fiber.App {
	app := fiber.New()
	app.Get("/protected",
		apphttp.AuthMiddleware(testSigner),
		apphttp.RequireRole(allowedRoles...),
		func(c *fiber.Ctx) error {
			return c.JSON(fiber.Map{"role": apphttp.GetRole(c), "company_id": apphttp.GetCompanyID(c)})
		},
	)
	return app
}

// tokenForRole genera un header Bearer para la empresa de prueba con el rol indicado.
func tokenForRole(t *testing.T, role string) string {
	t.Helper()
	tok, err := testSigner.Issue(pkgjwt.Identity{UserID: testUserID, CompanyID: testCompanyID, Role: role})
	require.NoError(t, err)
	return "Bearer " + tok
}

func doRequest(t *testing.T, app *fiber.App, authHeader string) (int, string) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(body)
}

// ──────────────────────────────────────────────────────────────────────────────
// RequireRole
// ──────────────────────────────────────────────────────────────────────────────

func TestRequireRole_Matriz(t *testing.T) {
	cases := []struct {
		name    string
		allowed []string
		role    string
		status  int
	}{
		{"bodeguero en ruta de bodeguero", []string{apphttp.RoleBodeguero}, apphttp.RoleBodeguero, http.StatusOK},
		{"uno de varios roles", []string{apphttp.RoleComprador, apphttp.RoleBodeguero}, apphttp.RoleBodeguero, http.StatusOK},
		{"admin pasa cualquier ruta", []string{apphttp.RoleComprador}, apphttp.RoleAdmin, http.StatusOK},
		{"comprador en ruta de admin", []string{apphttp.RoleAdmin}, apphttp.RoleComprador, http.StatusForbidden},
		{"bodeguero en ruta de comprador", []string{apphttp.RoleComprador}, apphttp.RoleBodeguero, http.StatusForbidden},
		{"token sin rol", []string{apphttp.RoleAdmin}, "", http.StatusUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, body := doRequest(t, buildTestApp(tc.allowed...), tokenForRole(t, tc.role))
			assert.Equal(t, tc.status, status, body)
			switch tc.status {
			case http.StatusForbidden:
				assert.Contains(t, body, "FORBIDDEN")
			case http.StatusUnauthorized:
				assert.Contains(t, body, "MISSING_ROLE")
			}
		})
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// AuthMiddleware
// ──────────────────────────────────────────────────────────────────────────────

func TestAuthMiddleware_DejaIdentidadEnLocals(t *testing.T) {
	app := fiber.New()
	app.Get("/me", apphttp.AuthMiddleware(testSigner), func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"user_id":    apphttp.GetUserID(c),
			"company_id": apphttp.GetCompanyID(c),
			"role":       apphttp.GetRole(c),
		})
	})

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", tokenForRole(t, apphttp.RoleComprador))
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, testUserID, body["user_id"])
	assert.Equal(t, testCompanyID, body["company_id"])
	assert.Equal(t, apphttp.RoleComprador, body["role"])
}

func TestAuthMiddleware_Rechazos(t *testing.T) {
	expired, err := testSigner.IssueFor(pkgjwt.Identity{UserID: testUserID, CompanyID: testCompanyID, Role: "admin"}, -time.Minute)
	require.NoError(t, err)
	otherIssuer, err := mustSigner(testJWTSecret, "otro-emisor").Issue(pkgjwt.Identity{CompanyID: testCompanyID, Role: "admin"})
	require.NoError(t, err)
	otherSecret, err := mustSigner("otro-secret-completamente-distinto", testIssuer).Issue(pkgjwt.Identity{CompanyID: testCompanyID, Role: "admin"})
	require.NoError(t, err)
	// Firmado a mano: el Signer no emite tokens sin empresa.
	noCompany, err := gojwt.NewWithClaims(gojwt.SigningMethodHS256, gojwt.MapClaims{
		"iss": testIssuer, "sub": testUserID, "role": "admin",
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(testJWTSecret))
	require.NoError(t, err)

	cases := []struct {
		name   string
		header string
		code   string
	}{
		{"sin header", "", "MISSING_TOKEN"},
		{"esquema distinto", "Basic abc", "INVALID_TOKEN"},
		{"malformado", "Bearer token.invalido.aqui", "INVALID_TOKEN"},
		{"vencido", "Bearer " + expired, "INVALID_TOKEN"},
		{"otro emisor", "Bearer " + otherIssuer, "INVALID_TOKEN"},
		{"otro secret", "Bearer " + otherSecret, "INVALID_TOKEN"},
		{"sin empresa", "Bearer " + noCompany, "INVALID_TOKEN"},
	}
	app := buildTestApp(apphttp.RoleAdmin)
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, body := doRequest(t, app, tc.header)
			assert.Equal(t, http.StatusUnauthorized, status)
			assert.Contains(t, body, tc.code)
		})
	}
}
