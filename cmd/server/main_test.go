package main

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"mareero-backend/internal/config"
	"mareero-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

func testApp(t *testing.T) *fiber.App {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("secret-pass"), bcrypt.MinCost)
	require.NoError(t, err)

	cfg := &config.Config{
		CORSOrigins:         "http://localhost:5173",
		StoreBackend:        config.StoreBackendMemory,
		StoreCacheTTL:       time.Minute,
		JWTSecret:           "0123456789abcdef0123456789abcdef",
		ManagerPasswordHash: string(hash),
		Catalog:             models.DefaultCatalog(),
		Location:            time.FixedZone("EAT", 3*60*60),
		ReportTitle:         "MAREERO SYSTEM",
		SplitByBranch:       true,
	}
	d, err := openDeps(cfg, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(d.Close)
	return newApp(d)
}

func call(t *testing.T, app *fiber.App, method, path, token, body string) (*http.Response, []byte) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func TestServerFlow(t *testing.T) {
	app := testApp(t)

	resp, body := call(t, app, "POST", "/api/records", "",
		`{"branch":"Head Q","employee":"Ali","category":"alaabta Maqan (Missing)","item":"Pump"}`)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode, string(body))
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))

	resp, _ = call(t, app, "GET", "/api/manager/records", "", "")
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	resp, body = call(t, app, "POST", "/api/auth/login", "", `{"password":"secret-pass"}`)
	require.Equal(t, fiber.StatusOK, resp.StatusCode, string(body))
	var login struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(body, &login))

	resp, body = call(t, app, "GET", "/api/manager/records", login.Token, "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"total":1`)

	resp, body = call(t, app, "GET", "/api/manager/dashboard", login.Token, "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"Missing Stock"`)

	resp, body = call(t, app, "GET", "/api/manager/reports/pdf", login.Token, "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.True(t, bytes.HasPrefix(body, []byte("%PDF-")))
	assert.NotEmpty(t, resp.Header.Get("X-Report-ID"))

	resp, body = call(t, app, "GET", "/api/manager/reports/xlsx", login.Token, "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.True(t, bytes.HasPrefix(body, []byte("PK")))

	// memory backend has no audit log
	resp, body = call(t, app, "GET", "/api/manager/audit-logs", login.Token, "")
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	assert.JSONEq(t, `{"error":"audit log disabled"}`, string(body))
}

func TestServerValidationError(t *testing.T) {
	app := testApp(t)
	resp, body := call(t, app, "POST", "/api/records", "", `{"branch":"Head Q","category":"Maqan","item":"Pump"}`)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.JSONEq(t, `{"error":"employee is required"}`, string(body))
}

func TestHashPasswordCommand(t *testing.T) {
	var out bytes.Buffer
	hashPasswordCmd.SetOut(&out)
	hashPasswordCmd.SetIn(strings.NewReader("mareero2025\n"))
	t.Cleanup(func() {
		hashPasswordCmd.SetOut(nil)
		hashPasswordCmd.SetIn(nil)
	})

	require.NoError(t, runHashPassword(hashPasswordCmd, nil))
	hash := strings.TrimSpace(out.String())
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("mareero2025")))

	assert.Error(t, runHashPassword(hashPasswordCmd, []string{""}))
}

func TestOneShotCommandsNeedPersistentStore(t *testing.T) {
	err := requirePersistentStore(&config.Config{StoreBackend: config.StoreBackendMemory}, "import")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "import needs a persistent store")

	assert.NoError(t, requirePersistentStore(&config.Config{StoreBackend: config.StoreBackendWorkbook}, "export"))
	assert.NoError(t, requirePersistentStore(&config.Config{StoreBackend: config.StoreBackendPostgres}, "export"))
}
