// Package store holds the whole-table gateways to the shared record table.
// There is no partial-row API: every write replaces the entire table.
package store

import (
	"context"
	"errors"
	"fmt"

	"mareero-backend/internal/models"
)

// ErrUnavailable wraps every failure to reach the backing table.
var ErrUnavailable = errors.New("store unavailable")

type Gateway interface {
	// ReadAll returns the whole table. A missing table is an empty slice.
	ReadAll(ctx context.Context) ([]models.Record, error)
	// WriteAll replaces the whole table with records.
	WriteAll(ctx context.Context, records []models.Record) error
}

// Invalidator is implemented by gateways that keep a read cache.
type Invalidator interface {
	Invalidate()
}

// Invalidate drops any cached read held by gw.
func Invalidate(gw Gateway) {
	if inv, ok := gw.(Invalidator); ok {
		inv.Invalidate()
	}
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrUnavailable, op, err)
}
