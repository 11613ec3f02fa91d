package store

import (
	"context"
	"sync"

	"mareero-backend/internal/models"
)

// Memory keeps the table in process memory. The mutex guards the slice
// header only; callers still run unsynchronized read-modify-write cycles.
type Memory struct {
	mu      sync.Mutex
	records []models.Record

	// ReadErr and WriteErr simulate an unreachable backend.
	ReadErr  error
	WriteErr error
	Writes   int
}

func NewMemory(initial ...models.Record) *Memory {
	return &Memory{records: models.CloneRecords(initial)}
}

func (m *Memory) ReadAll(ctx context.Context) ([]models.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ReadErr != nil {
		return nil, unavailable("read", m.ReadErr)
	}
	return models.CloneRecords(m.records), nil
}

func (m *Memory) WriteAll(ctx context.Context, records []models.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.WriteErr != nil {
		return unavailable("write", m.WriteErr)
	}
	m.records = models.CloneRecords(records)
	m.Writes++
	return nil
}
