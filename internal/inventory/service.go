// Package inventory runs the staff and manager flows against the shared
// record table. Every flow reads the whole table, changes it in memory and
// writes the whole table back.
//
// There is no locking around a cycle: two flows that overlap can each write
// a table that lacks the other's change, and the later write wins. This is a
// known limitation of whole-table writes and is not detected.
package inventory

import (
	"context"
	"fmt"
	"time"

	"mareero-backend/internal/audit"
	"mareero-backend/internal/models"
	"mareero-backend/internal/store"

	"go.uber.org/zap"
)

// Auditor records whole-table writes.
type Auditor interface {
	Write(ctx context.Context, e audit.Entry) error
}

type Service struct {
	gw      store.Gateway
	catalog models.Catalog
	loc     *time.Location
	now     func() time.Time
	audit   Auditor
	log     *zap.Logger
}

type Option func(*Service)

func WithAuditor(a Auditor) Option {
	return func(s *Service) { s.audit = a }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithLogger(l *zap.Logger) Option {
	return func(s *Service) { s.log = l }
}

func NewService(gw store.Gateway, catalog models.Catalog, loc *time.Location, opts ...Option) *Service {
	if loc == nil {
		loc = time.UTC
	}
	s := &Service{gw: gw, catalog: catalog, loc: loc, now: time.Now, log: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Catalog() models.Catalog { return s.catalog }

// Now is the current time in the configured timezone.
func (s *Service) Now() time.Time { return s.now().In(s.loc) }

// Snapshot reads the whole table, possibly from the read cache. Fully blank
// rows are dropped and timestamps are shown in the configured timezone.
func (s *Service) Snapshot(ctx context.Context) ([]models.Record, error) {
	records, err := s.gw.ReadAll(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]models.Record, 0, len(records))
	for _, r := range records {
		if r.IsBlank() {
			continue
		}
		if !r.Timestamp.IsZero() {
			r.Timestamp = r.Timestamp.In(s.loc)
		}
		out = append(out, r)
	}
	return out, nil
}

// readForWrite is the read half of a read-modify-write cycle. It always goes
// to the backing table: another process may have written since the cache
// was filled.
func (s *Service) readForWrite(ctx context.Context) ([]models.Record, error) {
	store.Invalidate(s.gw)
	return s.Snapshot(ctx)
}

// Append validates a staff submission, stamps it with the current minute and
// adds it to the end of the table.
func (s *Service) Append(ctx context.Context, sub Submission) (models.Record, error) {
	rec, err := normalize(models.Record{
		Branch:   sub.Branch,
		Employee: sub.Employee,
		Category: sub.Category,
		Item:     sub.Item,
		Note:     sub.Note,
	}, s.catalog, 0, true)
	if err != nil {
		return models.Record{}, err
	}
	rec.Timestamp = s.Now().Truncate(time.Minute)

	current, err := s.readForWrite(ctx)
	if err != nil {
		return models.Record{}, fmt.Errorf("append record: %w", err)
	}
	next := append(models.CloneRecords(current), rec)
	if err := s.write(ctx, next); err != nil {
		return models.Record{}, fmt.Errorf("append record: %w", err)
	}

	s.record(ctx, audit.Entry{
		Actor:       rec.Employee,
		Action:      models.AuditActionAppend,
		Description: fmt.Sprintf("%s reported %s (%s) at %s", rec.Employee, rec.Item, rec.Category, rec.Branch),
		Before:      current,
		After:       next,
	})
	return rec, nil
}

// EditResult reports an edit. Discarded counts table rows that were not part
// of the submitted set and are gone after the write.
type EditResult struct {
	Written   int `json:"written"`
	Discarded int `json:"discarded"`
}

// Edit replaces the whole table with rows. Rows the caller did not submit,
// for example because the edit was made on a filtered view, are dropped;
// the loss is reported in Discarded, not prevented.
func (s *Service) Edit(ctx context.Context, rows []models.Record, actor string) (EditResult, error) {
	next, err := s.normalizeAll(rows)
	if err != nil {
		return EditResult{}, err
	}

	current, err := s.readForWrite(ctx)
	if err != nil {
		return EditResult{}, fmt.Errorf("edit records: %w", err)
	}
	res := EditResult{Written: len(next), Discarded: discarded(current, next)}
	if res.Discarded > 0 {
		s.log.Warn("edit drops rows that were not submitted",
			zap.Int("table_rows", len(current)),
			zap.Int("submitted_rows", len(next)),
		)
	}

	if err := s.write(ctx, next); err != nil {
		return EditResult{}, fmt.Errorf("edit records: %w", err)
	}
	s.record(ctx, audit.Entry{
		Actor:       actor,
		Action:      models.AuditActionEdit,
		Description: fmt.Sprintf("edited table: %d rows written, %d discarded", res.Written, res.Discarded),
		Before:      current,
		After:       next,
	})
	return res, nil
}

// SelectableRecord is a table row as shown in the manager's editor.
type SelectableRecord struct {
	models.Record
	Selected bool `json:"selected"`
}

type DeleteResult struct {
	Deleted   int `json:"deleted"`
	Remaining int `json:"remaining"`
	Discarded int `json:"discarded"`
}

// Delete writes back the rows that are not selected. With nothing selected
// the table is left alone.
func (s *Service) Delete(ctx context.Context, rows []SelectableRecord, actor string) (DeleteResult, error) {
	var keep []models.Record
	deleted := 0
	for _, r := range rows {
		if r.Selected {
			deleted++
			continue
		}
		keep = append(keep, r.Record)
	}
	if deleted == 0 {
		return DeleteResult{Remaining: len(keep)}, nil
	}

	next, err := s.normalizeAll(keep)
	if err != nil {
		return DeleteResult{}, err
	}
	current, err := s.readForWrite(ctx)
	if err != nil {
		return DeleteResult{}, fmt.Errorf("delete records: %w", err)
	}
	res := DeleteResult{
		Deleted:   deleted,
		Remaining: len(next),
		Discarded: discarded(current, next) - deleted,
	}
	if res.Discarded < 0 {
		res.Discarded = 0
	}

	if err := s.write(ctx, next); err != nil {
		return DeleteResult{}, fmt.Errorf("delete records: %w", err)
	}
	s.record(ctx, audit.Entry{
		Actor:       actor,
		Action:      models.AuditActionDelete,
		Description: fmt.Sprintf("deleted %d rows", deleted),
		Before:      current,
		After:       next,
	})
	return res, nil
}

// ImportResult reports a bulk import. Rows that fail validation are
// skipped and listed in Errors.
type ImportResult struct {
	Imported int      `json:"imported"`
	Skipped  int      `json:"skipped"`
	Errors   []string `json:"errors,omitempty"`
}

const maxImportErrors = 20

// Import appends rows read from an uploaded workbook. Rows without a
// timestamp get the current minute.
func (s *Service) Import(ctx context.Context, rows []models.Record, actor string) (ImportResult, error) {
	var res ImportResult
	var valid []models.Record
	stamp := s.Now().Truncate(time.Minute)
	for i, r := range rows {
		if r.IsBlank() {
			continue
		}
		rec, err := normalize(r, s.catalog, i+1, true)
		if err != nil {
			res.Skipped++
			if len(res.Errors) < maxImportErrors {
				res.Errors = append(res.Errors, err.Error())
			}
			continue
		}
		if rec.Timestamp.IsZero() {
			rec.Timestamp = stamp
		}
		valid = append(valid, rec)
	}
	if len(valid) == 0 {
		return res, &ValidationError{Field: "file", Reason: "contains no valid rows"}
	}

	current, err := s.readForWrite(ctx)
	if err != nil {
		return ImportResult{}, fmt.Errorf("import records: %w", err)
	}
	next := append(models.CloneRecords(current), valid...)
	if err := s.write(ctx, next); err != nil {
		return ImportResult{}, fmt.Errorf("import records: %w", err)
	}
	res.Imported = len(valid)

	s.record(ctx, audit.Entry{
		Actor:       actor,
		Action:      models.AuditActionImport,
		Description: fmt.Sprintf("imported %d rows, skipped %d", res.Imported, res.Skipped),
		Before:      current,
		After:       next,
	})
	return res, nil
}

// Restore writes a snapshot back as the whole table.
func (s *Service) Restore(ctx context.Context, records []models.Record) error {
	if err := s.write(ctx, models.CloneRecords(records)); err != nil {
		return fmt.Errorf("restore records: %w", err)
	}
	return nil
}

// write brackets every whole-table write with cache invalidation.
func (s *Service) write(ctx context.Context, records []models.Record) error {
	store.Invalidate(s.gw)
	defer store.Invalidate(s.gw)
	return s.gw.WriteAll(ctx, records)
}

func (s *Service) normalizeAll(rows []models.Record) ([]models.Record, error) {
	out := make([]models.Record, 0, len(rows))
	for i, r := range rows {
		if r.IsBlank() {
			continue
		}
		rec, err := normalize(r, s.catalog, i+1, false)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

// record never fails the flow: the table write already happened.
func (s *Service) record(ctx context.Context, e audit.Entry) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Write(ctx, e); err != nil {
		s.log.Warn("audit log write failed", zap.String("action", string(e.Action)), zap.Error(err))
	}
}

func discarded(current, next []models.Record) int {
	if n := len(current) - len(next); n > 0 {
		return n
	}
	return 0
}
