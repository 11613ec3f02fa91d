package audit

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"mareero-backend/internal/models"
	"mareero-backend/internal/store"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(&models.AuditLog{}))

	svc := NewService(db)
	svc.now = func() time.Time { return time.Date(2025, 3, 5, 12, 0, 0, 0, time.UTC) }
	return svc
}

func rec(item string) models.Record {
	return models.Record{
		Timestamp: time.Date(2025, 3, 4, 9, 0, 0, 0, time.UTC),
		Branch:    "Head Q",
		Employee:  "Ali",
		Category:  "Maqan",
		Item:      item,
	}
}

type fakeRestorer struct {
	restored [][]models.Record
	err      error
}

func (f *fakeRestorer) Restore(_ context.Context, records []models.Record) error {
	if f.err != nil {
		return f.err
	}
	f.restored = append(f.restored, records)
	return nil
}

func TestWriteAndList(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.Write(ctx, Entry{Actor: "Ali", Action: models.AuditActionAppend, Description: "first", After: []models.Record{rec("Pump")}}))
	require.NoError(t, svc.Write(ctx, Entry{Actor: "manager", Action: models.AuditActionEdit, Description: "second", Before: []models.Record{rec("Pump")}}))

	logs, err := svc.List(ctx, ListFilter{})
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, "second", logs[0].Description)
	assert.Equal(t, 1, logs[0].RowsBefore)
	assert.Equal(t, 0, logs[0].RowsAfter)
	assert.Equal(t, "[]", logs[0].AfterData)

	logs, err = svc.List(ctx, ListFilter{Action: models.AuditActionAppend, Limit: 10})
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "Ali", logs[0].Actor)

	restored, err := decodeSnapshot(logs[0].AfterData)
	require.NoError(t, err)
	assert.Equal(t, []models.Record{rec("Pump")}, restored)
}

func TestUndoLatestChange(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	before := []models.Record{rec("Pump")}
	after := []models.Record{rec("Pump"), rec("Belt")}

	require.NoError(t, svc.Write(ctx, Entry{Actor: "Ali", Action: models.AuditActionAppend, Before: before, After: after, Description: "added Belt"}))
	logs, err := svc.List(ctx, ListFilter{})
	require.NoError(t, err)

	r := &fakeRestorer{}
	require.NoError(t, svc.Undo(ctx, logs[0].ID, "manager", r))
	require.Len(t, r.restored, 1)
	assert.Equal(t, before, r.restored[0])

	logs, err = svc.List(ctx, ListFilter{})
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, models.AuditActionUndo, logs[0].Action)
	assert.Equal(t, "Undone: added Belt", logs[0].Description)
	assert.Equal(t, 2, logs[0].RowsBefore)
	assert.Equal(t, 1, logs[0].RowsAfter)
	assert.True(t, logs[1].IsUndone)
	require.NotNil(t, logs[1].UndoneAt)

	assert.ErrorIs(t, svc.Undo(ctx, logs[1].ID, "manager", r), ErrAlreadyUndone)
	assert.ErrorIs(t, svc.Undo(ctx, logs[0].ID, "manager", r), ErrNotUndoable)
	assert.ErrorIs(t, svc.Undo(ctx, 999, "manager", r), ErrNotFound)
	assert.Len(t, r.restored, 1)
}

func TestUndoOnlyMostRecent(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	require.NoError(t, svc.Write(ctx, Entry{Action: models.AuditActionAppend, After: []models.Record{rec("A")}}))
	require.NoError(t, svc.Write(ctx, Entry{Action: models.AuditActionAppend, Before: []models.Record{rec("A")}, After: []models.Record{rec("A"), rec("B")}}))

	logs, err := svc.List(ctx, ListFilter{})
	require.NoError(t, err)

	r := &fakeRestorer{}
	assert.ErrorIs(t, svc.Undo(ctx, logs[1].ID, "manager", r), ErrNotUndoable)

	// after undoing the latest, the earlier change becomes undoable
	require.NoError(t, svc.Undo(ctx, logs[0].ID, "manager", r))
	require.NoError(t, svc.Undo(ctx, logs[1].ID, "manager", r))
	assert.Equal(t, []models.Record{}, r.restored[1])
}

func TestUndoRestoreFailureKeepsLog(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	require.NoError(t, svc.Write(ctx, Entry{Action: models.AuditActionDelete, Before: []models.Record{rec("A")}}))
	logs, err := svc.List(ctx, ListFilter{})
	require.NoError(t, err)

	err = svc.Undo(ctx, logs[0].ID, "manager", &fakeRestorer{err: store.ErrUnavailable})
	require.ErrorIs(t, err, store.ErrUnavailable)

	logs, err = svc.List(ctx, ListFilter{})
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.False(t, logs[0].IsUndone)
}

func TestAuditHandlers(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	require.NoError(t, svc.Write(ctx, Entry{Actor: "Ali", Action: models.AuditActionAppend, After: []models.Record{rec("A")}}))
	logs, err := svc.List(ctx, ListFilter{})
	require.NoError(t, err)

	r := &fakeRestorer{}
	app := fiber.New()
	app.Get("/logs", ListAuditLogsHandler(svc))
	app.Post("/logs/:id/undo", UndoAuditLogHandler(svc, r))

	resp, err := app.Test(httptest.NewRequest("GET", "/logs?limit=5", nil), -1)
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var list []AuditLogResponse
	require.NoError(t, json.Unmarshal(body, &list))
	require.Len(t, list, 1)
	assert.Equal(t, "Ali", list[0].Actor)
	assert.Equal(t, 1, list[0].RowsAfter)

	resp, err = app.Test(httptest.NewRequest("GET", "/logs?limit=abc", nil), -1)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	cases := []struct {
		path string
		want int
	}{
		{"/logs/x/undo", fiber.StatusBadRequest},
		{"/logs/42/undo", fiber.StatusNotFound},
		{"/logs/1/undo", fiber.StatusOK},
		{"/logs/1/undo", fiber.StatusConflict},
	}
	for _, tc := range cases {
		resp, err := app.Test(httptest.NewRequest("POST", tc.path, nil), -1)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, tc.want, resp.StatusCode, tc.path)
	}
	assert.Len(t, r.restored, 1)
	assert.Equal(t, uint(1), logs[0].ID)
}

func TestAuditHandlersDisabled(t *testing.T) {
	app := fiber.New()
	app.Get("/logs", ListAuditLogsHandler(nil))
	app.Post("/logs/:id/undo", UndoAuditLogHandler(nil, &fakeRestorer{}))

	for _, req := range []struct{ method, path string }{{"GET", "/logs"}, {"POST", "/logs/1/undo"}} {
		resp, err := app.Test(httptest.NewRequest(req.method, req.path, nil), -1)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	}
}

func TestUndoHandlerStoreUnavailable(t *testing.T) {
	svc := newTestService(t)
	require.NoError(t, svc.Write(context.Background(), Entry{Action: models.AuditActionEdit}))

	app := fiber.New()
	app.Post("/logs/:id/undo", UndoAuditLogHandler(svc, &fakeRestorer{err: errors.Join(store.ErrUnavailable, errors.New("timeout"))}))
	resp, err := app.Test(httptest.NewRequest("POST", "/logs/1/undo", nil), -1)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)
}
