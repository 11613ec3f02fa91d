package models

import (
	"strings"
	"time"
)

// TimestampLayout is how record timestamps are stored in the shared table.
const TimestampLayout = "2006-01-02 15:04"

// Placeholder is written for blank values in exported tables.
const Placeholder = "-"

// Record: one staff-submitted report line
type Record struct {
	Timestamp time.Time `json:"timestamp"`
	Branch    string    `json:"branch"`
	Employee  string    `json:"employee"`
	Category  string    `json:"category"` // canonical value, not the form label
	Item      string    `json:"item"`
	Note      string    `json:"note"` // optional
}

// IsBlank reports whether every field is empty. Blank rows are dropped on read.
func (r Record) IsBlank() bool {
	return r.Timestamp.IsZero() &&
		strings.TrimSpace(r.Branch) == "" &&
		strings.TrimSpace(r.Employee) == "" &&
		strings.TrimSpace(r.Category) == "" &&
		strings.TrimSpace(r.Item) == "" &&
		strings.TrimSpace(r.Note) == ""
}

// FormatTimestamp renders the timestamp in the stored layout, or the
// placeholder when it is unknown.
func (r Record) FormatTimestamp() string {
	if r.Timestamp.IsZero() {
		return Placeholder
	}
	return r.Timestamp.Format(TimestampLayout)
}

// Fields returns the displayed values in table column order.
func (r Record) Fields() []string {
	return []string{
		r.FormatTimestamp(),
		r.Branch,
		r.Employee,
		r.Category,
		r.Item,
		r.Note,
	}
}

// RecordColumns are the header names of the shared table.
var RecordColumns = []string{"Date", "Branch", "Employee", "Category", "Item", "Note"}

// OrPlaceholder returns s, or the placeholder if s is blank.
func OrPlaceholder(s string) string {
	if strings.TrimSpace(s) == "" {
		return Placeholder
	}
	return s
}

// CloneRecords copies a snapshot so callers can mutate it freely.
func CloneRecords(in []Record) []Record {
	if in == nil {
		return []Record{}
	}
	out := make([]Record, len(in))
	copy(out, in)
	return out
}
