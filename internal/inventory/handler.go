package inventory

import (
	"errors"
	"io"

	"mareero-backend/internal/auth"
	"mareero-backend/internal/models"
	"mareero-backend/internal/store"
	"mareero-backend/internal/workbook"

	"github.com/gofiber/fiber/v2"
)

const maxImportBytes = 10 << 20

type ListResponse struct {
	Records  []models.Record `json:"records"`
	Total    int             `json:"total"`
	Shown    int             `json:"shown"`
	Filtered bool            `json:"filtered"`
}

// GET /api/catalog
func CatalogHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(svc.Catalog())
	}
}

// POST /api/records
func SubmitHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var sub Submission
		if err := c.BodyParser(&sub); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		rec, err := svc.Append(c.UserContext(), sub)
		if err != nil {
			return toHTTPError(err, "report could not be saved")
		}
		return c.Status(fiber.StatusCreated).JSON(rec)
	}
}

// GET /api/manager/records?q=pump&window=7d
func ListHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		window, err := ParseWindow(c.Query("window"))
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		records, err := svc.Snapshot(c.UserContext())
		if err != nil {
			return toHTTPError(err, "records could not be loaded")
		}

		f := Filter{Query: c.Query("q"), Window: window}
		shown := f.Apply(records, svc.Now())
		return c.JSON(ListResponse{
			Records:  shown,
			Total:    len(records),
			Shown:    len(shown),
			Filtered: f.Active(),
		})
	}
}

// PUT /api/manager/records
func EditHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body struct {
			Records []models.Record `json:"records"`
		}
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		res, err := svc.Edit(c.UserContext(), body.Records, auth.Actor(c))
		if err != nil {
			return toHTTPError(err, "records could not be saved")
		}
		return c.JSON(res)
	}
}

// POST /api/manager/records/delete
func DeleteHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body struct {
			Records []SelectableRecord `json:"records"`
		}
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		res, err := svc.Delete(c.UserContext(), body.Records, auth.Actor(c))
		if err != nil {
			return toHTTPError(err, "records could not be deleted")
		}
		return c.JSON(res)
	}
}

// POST /api/manager/records/import (multipart, field "file")
func ImportHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		fileHeader, err := c.FormFile("file")
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "file is required")
		}
		if fileHeader.Size > maxImportBytes {
			return fiber.NewError(fiber.StatusRequestEntityTooLarge, "file is too large")
		}

		file, err := fileHeader.Open()
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "file could not be opened")
		}
		defer file.Close()
		data, err := io.ReadAll(file)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "file could not be read")
		}

		rows, err := workbook.ReadFile(fileHeader.Filename, data, svc.loc)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "workbook could not be read: "+err.Error())
		}
		res, err := svc.Import(c.UserContext(), rows, auth.Actor(c))
		if err != nil {
			var verr *ValidationError
			if errors.As(err, &verr) {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error":   verr.Error(),
					"skipped": res.Skipped,
					"errors":  res.Errors,
				})
			}
			return toHTTPError(err, "records could not be imported")
		}
		return c.JSON(res)
	}
}

func toHTTPError(err error, fallback string) error {
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		return fiber.NewError(fiber.StatusBadRequest, verr.Error())
	case errors.Is(err, store.ErrUnavailable):
		return fiber.NewError(fiber.StatusServiceUnavailable, "store unavailable")
	default:
		return fiber.NewError(fiber.StatusInternalServerError, fallback)
	}
}
