package models

import "time"

// RecordRow: durable row of the shared table. Position keeps the sheet order,
// the table has no other identity.
type RecordRow struct {
	ID        uint      `gorm:"primaryKey"`
	Position  int       `gorm:"index;not null"`
	Timestamp time.Time `gorm:"index"`
	Branch    string    `gorm:"size:100"`
	Employee  string    `gorm:"size:100"`
	Category  string    `gorm:"size:100;index"`
	Item      string    `gorm:"size:255"`
	Note      string    `gorm:"size:500"`
}

func (RecordRow) TableName() string {
	return "inventory_records"
}

func RowFromRecord(position int, r Record) RecordRow {
	return RecordRow{
		Position:  position,
		Timestamp: r.Timestamp,
		Branch:    r.Branch,
		Employee:  r.Employee,
		Category:  r.Category,
		Item:      r.Item,
		Note:      r.Note,
	}
}

func (row RecordRow) Record() Record {
	return Record{
		Timestamp: row.Timestamp,
		Branch:    row.Branch,
		Employee:  row.Employee,
		Category:  row.Category,
		Item:      row.Item,
		Note:      row.Note,
	}
}
