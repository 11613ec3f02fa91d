package audit

import (
	"errors"
	"fmt"

	"mareero-backend/internal/auth"
	"mareero-backend/internal/models"
	"mareero-backend/internal/store"

	"github.com/gofiber/fiber/v2"
)

const maxListLimit = 500

type AuditLogResponse struct {
	ID          uint               `json:"id"`
	CreatedAt   string             `json:"created_at"`
	Actor       string             `json:"actor"`
	Action      models.AuditAction `json:"action"`
	Description string             `json:"description"`
	RowsBefore  int                `json:"rows_before"`
	RowsAfter   int                `json:"rows_after"`
	IsUndone    bool               `json:"is_undone"`
	UndoneAt    *string            `json:"undone_at"`
}

// GET /api/manager/audit-logs?action=edit&limit=50
func ListAuditLogsHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if svc == nil {
			return fiber.NewError(fiber.StatusNotFound, ErrDisabled.Error())
		}

		f := ListFilter{Action: models.AuditAction(c.Query("action")), Limit: 100}
		if v := c.Query("limit"); v != "" {
			if _, err := fmt.Sscan(v, &f.Limit); err != nil || f.Limit <= 0 {
				return fiber.NewError(fiber.StatusBadRequest, "invalid limit")
			}
			if f.Limit > maxListLimit {
				f.Limit = maxListLimit
			}
		}

		logs, err := svc.List(c.UserContext(), f)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "audit logs could not be listed")
		}

		resp := make([]AuditLogResponse, 0, len(logs))
		for _, log := range logs {
			var undoneAt *string
			if log.UndoneAt != nil {
				formatted := log.UndoneAt.Format("2006-01-02 15:04:05")
				undoneAt = &formatted
			}
			resp = append(resp, AuditLogResponse{
				ID:          log.ID,
				CreatedAt:   log.CreatedAt.Format("2006-01-02 15:04:05"),
				Actor:       log.Actor,
				Action:      log.Action,
				Description: log.Description,
				RowsBefore:  log.RowsBefore,
				RowsAfter:   log.RowsAfter,
				IsUndone:    log.IsUndone,
				UndoneAt:    undoneAt,
			})
		}
		return c.JSON(resp)
	}
}

// POST /api/manager/audit-logs/:id/undo
func UndoAuditLogHandler(svc *Service, r Restorer) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if svc == nil {
			return fiber.NewError(fiber.StatusNotFound, ErrDisabled.Error())
		}

		var id uint
		if _, err := fmt.Sscan(c.Params("id"), &id); err != nil || id == 0 {
			return fiber.NewError(fiber.StatusBadRequest, "invalid log id")
		}

		err := svc.Undo(c.UserContext(), id, auth.Actor(c), r)
		switch {
		case err == nil:
		case errors.Is(err, ErrNotFound):
			return fiber.NewError(fiber.StatusNotFound, err.Error())
		case errors.Is(err, ErrAlreadyUndone), errors.Is(err, ErrNotUndoable):
			return fiber.NewError(fiber.StatusConflict, err.Error())
		case errors.Is(err, store.ErrUnavailable):
			return fiber.NewError(fiber.StatusServiceUnavailable, "store unavailable")
		default:
			return fiber.NewError(fiber.StatusInternalServerError, "change could not be undone")
		}

		return c.JSON(fiber.Map{"message": "change undone"})
	}
}
