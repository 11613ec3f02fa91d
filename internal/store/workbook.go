package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"mareero-backend/internal/models"
	"mareero-backend/internal/workbook"
)

const workbookSheet = "Sheet1"

// WorkbookFile keeps the shared table in a single .xlsx file on disk. Every
// write produces a fresh file and renames it over the old one.
type WorkbookFile struct {
	path string
	loc  *time.Location
}

func NewWorkbookFile(path string, loc *time.Location) *WorkbookFile {
	if loc == nil {
		loc = time.UTC
	}
	return &WorkbookFile{path: path, loc: loc}
}

func (w *WorkbookFile) ReadAll(ctx context.Context) ([]models.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, unavailable("read workbook", err)
	}
	data, err := os.ReadFile(w.path)
	if errors.Is(err, os.ErrNotExist) {
		return []models.Record{}, nil
	}
	if err != nil {
		return nil, unavailable("read workbook", err)
	}
	if len(data) == 0 {
		return []models.Record{}, nil
	}

	records, err := workbook.ReadXLSX(bytes.NewReader(data), w.loc)
	if err != nil {
		return nil, unavailable("parse workbook", err)
	}
	return records, nil
}

func (w *WorkbookFile) WriteAll(ctx context.Context, records []models.Record) error {
	if err := ctx.Err(); err != nil {
		return unavailable("write workbook", err)
	}
	exp := &workbook.Exporter{SheetName: workbookSheet}
	out, err := exp.Export(records)
	if err != nil {
		return unavailable("encode workbook", err)
	}

	dir := filepath.Dir(w.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return unavailable("write workbook", err)
	}
	tmp, err := os.CreateTemp(dir, ".records-*.xlsx")
	if err != nil {
		return unavailable("write workbook", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, out); err != nil {
		tmp.Close()
		return unavailable("write workbook", err)
	}
	if err := tmp.Close(); err != nil {
		return unavailable("write workbook", err)
	}
	if err := os.Rename(tmp.Name(), w.path); err != nil {
		return unavailable("write workbook", fmt.Errorf("replace %s: %w", w.path, err))
	}
	return nil
}
