package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"mareero-backend/internal/models"

	"gorm.io/gorm"
)

var (
	ErrDisabled      = errors.New("audit log disabled")
	ErrNotFound      = errors.New("audit log not found")
	ErrAlreadyUndone = errors.New("this change was already undone")
	ErrNotUndoable   = errors.New("only the most recent change can be undone")
)

// Entry describes one whole-table write.
type Entry struct {
	Actor       string
	Action      models.AuditAction
	Description string
	Before      []models.Record
	After       []models.Record
}

// Restorer writes a table snapshot back to the store.
type Restorer interface {
	Restore(ctx context.Context, records []models.Record) error
}

type Service struct {
	db  *gorm.DB
	now func() time.Time
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db, now: time.Now}
}

func (s *Service) Write(ctx context.Context, e Entry) error {
	before, err := encodeSnapshot(e.Before)
	if err != nil {
		return err
	}
	after, err := encodeSnapshot(e.After)
	if err != nil {
		return err
	}

	log := models.AuditLog{
		Actor:       e.Actor,
		Action:      e.Action,
		Description: e.Description,
		RowsBefore:  len(e.Before),
		RowsAfter:   len(e.After),
		BeforeData:  before,
		AfterData:   after,
	}
	if err := s.db.WithContext(ctx).Create(&log).Error; err != nil {
		return fmt.Errorf("save audit log: %w", err)
	}
	return nil
}

type ListFilter struct {
	Action models.AuditAction
	Limit  int
}

// List returns logs newest first.
func (s *Service) List(ctx context.Context, f ListFilter) ([]models.AuditLog, error) {
	q := s.db.WithContext(ctx).Model(&models.AuditLog{})
	if f.Action != "" {
		q = q.Where("action = ?", f.Action)
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	var logs []models.AuditLog
	if err := q.Order("id DESC").Find(&logs).Error; err != nil {
		return nil, fmt.Errorf("list audit logs: %w", err)
	}
	return logs, nil
}

// Undo restores the table as it was before log id and records the undo.
// Snapshots cover the whole table, so only the latest change that is not
// itself undone can be reverted without discarding later writes.
func (s *Service) Undo(ctx context.Context, id uint, actor string, r Restorer) error {
	db := s.db.WithContext(ctx)

	var log models.AuditLog
	if err := db.First(&log, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("load audit log: %w", err)
	}
	if log.IsUndone {
		return ErrAlreadyUndone
	}
	if log.Action == models.AuditActionUndo {
		return ErrNotUndoable
	}

	var latest models.AuditLog
	err := db.Where("is_undone = ? AND action <> ?", false, models.AuditActionUndo).
		Order("id DESC").First(&latest).Error
	if err != nil {
		return fmt.Errorf("load latest audit log: %w", err)
	}
	if latest.ID != log.ID {
		return ErrNotUndoable
	}

	before, err := decodeSnapshot(log.BeforeData)
	if err != nil {
		return err
	}
	if err := r.Restore(ctx, before); err != nil {
		return err
	}

	now := s.now()
	return db.Transaction(func(tx *gorm.DB) error {
		log.IsUndone = true
		log.UndoneAt = &now
		if err := tx.Save(&log).Error; err != nil {
			return fmt.Errorf("mark audit log undone: %w", err)
		}
		undo := models.AuditLog{
			Actor:       actor,
			Action:      models.AuditActionUndo,
			Description: "Undone: " + log.Description,
			RowsBefore:  log.RowsAfter,
			RowsAfter:   log.RowsBefore,
			BeforeData:  log.AfterData,
			AfterData:   log.BeforeData,
		}
		if err := tx.Create(&undo).Error; err != nil {
			return fmt.Errorf("save undo log: %w", err)
		}
		return nil
	})
}

// Postgres jsonb rejects an empty string, so an empty table is "[]".
func encodeSnapshot(records []models.Record) (string, error) {
	if records == nil {
		records = []models.Record{}
	}
	b, err := json.Marshal(records)
	if err != nil {
		return "", fmt.Errorf("encode snapshot: %w", err)
	}
	return string(b), nil
}

func decodeSnapshot(data string) ([]models.Record, error) {
	out := []models.Record{}
	if data == "" || data == "null" {
		return out, nil
	}
	if err := json.Unmarshal([]byte(data), &out); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return out, nil
}
