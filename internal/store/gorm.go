package store

import (
	"context"

	"mareero-backend/internal/models"

	"gorm.io/gorm"
)

// Table stores the shared table in Postgres. WriteAll deletes every row and
// inserts the new set inside one transaction.
type Table struct {
	db *gorm.DB
}

func NewTable(db *gorm.DB) *Table {
	return &Table{db: db}
}

func (t *Table) ReadAll(ctx context.Context) ([]models.Record, error) {
	var rows []models.RecordRow
	if err := t.db.WithContext(ctx).Order("position ASC").Find(&rows).Error; err != nil {
		return nil, unavailable("read table", err)
	}
	out := make([]models.Record, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.Record())
	}
	return out, nil
}

func (t *Table) WriteAll(ctx context.Context, records []models.Record) error {
	rows := make([]models.RecordRow, 0, len(records))
	for i, r := range records {
		rows = append(rows, models.RowFromRecord(i, r))
	}

	err := t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&models.RecordRow{}).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		return tx.CreateInBatches(&rows, 200).Error
	})
	if err != nil {
		return unavailable("write table", err)
	}
	return nil
}
