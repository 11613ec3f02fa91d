package report

import (
	"context"
	"fmt"
	"time"

	"mareero-backend/internal/models"
	"mareero-backend/internal/workbook"

	"github.com/gofiber/fiber/v2"
)

// Source hands out the current record snapshot.
type Source interface {
	Snapshot(ctx context.Context) ([]models.Record, error)
}

// GET /api/manager/reports/pdf
func PDFHandler(src Source, b *Builder, now func() time.Time) fiber.Handler {
	return func(c *fiber.Ctx) error {
		records, err := src.Snapshot(c.UserContext())
		if err != nil {
			return fiber.NewError(fiber.StatusServiceUnavailable, "store unavailable")
		}

		doc, err := b.Build(records, now())
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "report could not be generated")
		}

		c.Set(fiber.HeaderContentType, ContentType)
		c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", doc.Filename))
		c.Set("X-Report-ID", doc.ReportID)
		return c.Send(doc.Bytes)
	}
}

// GET /api/manager/reports/xlsx
func XLSXHandler(src Source, exp *workbook.Exporter, loc *time.Location, now func() time.Time) fiber.Handler {
	if loc == nil {
		loc = time.UTC
	}
	return func(c *fiber.Ctx) error {
		records, err := src.Snapshot(c.UserContext())
		if err != nil {
			return fiber.NewError(fiber.StatusServiceUnavailable, "store unavailable")
		}

		out, err := exp.Export(records)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "workbook could not be generated")
		}

		filename := "Data_" + now().In(loc).Format("2006-01-02") + ".xlsx"
		c.Set(fiber.HeaderContentType, workbook.ContentType)
		c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))
		return c.SendStream(out, out.Len())
	}
}
