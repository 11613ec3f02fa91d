package inventory

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"mareero-backend/internal/models"
	"mareero-backend/internal/store"
	"mareero-backend/internal/workbook"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newInventoryApp(svc *Service) *fiber.App {
	app := fiber.New()
	app.Get("/api/catalog", CatalogHandler(svc))
	app.Post("/api/records", SubmitHandler(svc))
	app.Get("/api/manager/records", ListHandler(svc))
	app.Put("/api/manager/records", EditHandler(svc))
	app.Post("/api/manager/records/delete", DeleteHandler(svc))
	app.Post("/api/manager/records/import", ImportHandler(svc))
	return app
}

func doJSON(t *testing.T, app *fiber.App, method, path, body string) (*http.Response, []byte) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func TestCatalogHandler(t *testing.T) {
	app := newInventoryApp(newTestService(store.NewMemory()))
	resp, body := doJSON(t, app, "GET", "/api/catalog", "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var catalog models.Catalog
	require.NoError(t, json.Unmarshal(body, &catalog))
	assert.Equal(t, models.DefaultCatalog(), catalog)
}

func TestSubmitHandler(t *testing.T) {
	mem := store.NewMemory()
	app := newInventoryApp(newTestService(mem))

	resp, body := doJSON(t, app, "POST", "/api/records",
		`{"branch":"Head Q","employee":"Ali","category":"alaabta Maqan (Missing)","item":"Pump"}`)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode, string(body))

	var rec models.Record
	require.NoError(t, json.Unmarshal(body, &rec))
	assert.Equal(t, "Maqan", rec.Category)
	assert.Equal(t, 1, mem.Writes)

	resp, _ = doJSON(t, app, "POST", "/api/records", `{"branch":"Head Q","category":"Maqan","item":"Pump"}`)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp, _ = doJSON(t, app, "POST", "/api/records", `{not json`)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, 1, mem.Writes)
}

func TestSubmitHandlerStoreUnavailable(t *testing.T) {
	mem := store.NewMemory()
	mem.WriteErr = errors.New("timeout")
	app := newInventoryApp(newTestService(mem))

	resp, body := doJSON(t, app, "POST", "/api/records", `{"branch":"Head Q","employee":"Ali","category":"Maqan","item":"Pump"}`)
	assert.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)
	assert.Contains(t, string(body), "store unavailable")
}

func TestListHandler(t *testing.T) {
	app := newInventoryApp(newTestService(store.NewMemory(tableRecords()...)))

	resp, body := doJSON(t, app, "GET", "/api/manager/records?q=ali", "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var list ListResponse
	require.NoError(t, json.Unmarshal(body, &list))
	assert.Equal(t, 3, list.Total)
	assert.Equal(t, 2, list.Shown)
	assert.True(t, list.Filtered)

	resp, _ = doJSON(t, app, "GET", "/api/manager/records?window=month", "")
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestEditAndDeleteHandlers(t *testing.T) {
	mem := store.NewMemory(tableRecords()...)
	app := newInventoryApp(newTestService(mem))

	rows, err := json.Marshal(fiber.Map{"records": tableRecords()[:2]})
	require.NoError(t, err)
	resp, body := doJSON(t, app, "PUT", "/api/manager/records", string(rows))
	require.Equal(t, fiber.StatusOK, resp.StatusCode, string(body))
	assert.JSONEq(t, `{"written":2,"discarded":1}`, string(body))

	sel := []SelectableRecord{{Record: tableRecords()[0], Selected: true}, {Record: tableRecords()[1]}}
	rows, err = json.Marshal(fiber.Map{"records": sel})
	require.NoError(t, err)
	resp, body = doJSON(t, app, "POST", "/api/manager/records/delete", string(rows))
	require.Equal(t, fiber.StatusOK, resp.StatusCode, string(body))
	assert.JSONEq(t, `{"deleted":1,"remaining":1,"discarded":0}`, string(body))

	got, err := mem.ReadAll(t.Context())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Filter", got[0].Item)
}

func uploadRequest(t *testing.T, filename string, data []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest("POST", "/api/manager/records/import", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func TestImportHandler(t *testing.T) {
	r, err := (&workbook.Exporter{}).Export(tableRecords())
	require.NoError(t, err)
	data, err := io.ReadAll(r)
	require.NoError(t, err)

	mem := store.NewMemory()
	app := newInventoryApp(newTestService(mem))

	resp, err := app.Test(uploadRequest(t, "upload.xlsx", data), -1)
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.Equal(t, fiber.StatusOK, resp.StatusCode, string(body))
	assert.JSONEq(t, `{"imported":3,"skipped":0}`, string(body))

	got, err := mem.ReadAll(t.Context())
	require.NoError(t, err)
	assert.Len(t, got, 3)

	resp, err = app.Test(uploadRequest(t, "upload.csv", data), -1)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}
