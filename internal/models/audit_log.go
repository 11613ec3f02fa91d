package models

import "time"

type AuditAction string

const (
	AuditActionAppend AuditAction = "append"
	AuditActionImport AuditAction = "import"
	AuditActionEdit   AuditAction = "edit"
	AuditActionDelete AuditAction = "delete"
	AuditActionUndo   AuditAction = "undo"
)

// AuditLog: one whole-table write, with the table before and after it
type AuditLog struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	// Who? Employee name for submissions, "manager" for manager actions.
	Actor string `gorm:"size:100" json:"actor"`

	Action      AuditAction `gorm:"size:20;index" json:"action"`
	Description string      `gorm:"size:255" json:"description"`

	RowsBefore int `json:"rows_before"`
	RowsAfter  int `json:"rows_after"`

	// Table snapshots (JSON arrays of Record)
	BeforeData string `gorm:"type:jsonb" json:"-"`
	AfterData  string `gorm:"type:jsonb" json:"-"`

	IsUndone bool       `gorm:"default:false" json:"is_undone"`
	UndoneAt *time.Time `json:"undone_at"`
}
