package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"reports-service/internal/models"

	"github.com/google/uuid"
)

// MemoryReportStore is an in-process CatalogStore. It enforces the same unique
// slug and report code constraints as the Postgres schema.
type MemoryReportStore struct {
	mu      sync.Mutex
	reports []models.Report
	now     func() time.Time
}

func NewMemoryReportStore() *MemoryReportStore {
	return &MemoryReportStore{now: time.Now}
}

// Reports returns a snapshot of stored reports in insertion order
func (s *MemoryReportStore) Reports() []models.Report {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Report, len(s.reports))
	copy(out, s.reports)
	return out
}

// Count returns the number of stored reports
func (s *MemoryReportStore) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.reports)
}

// Seed stores reports directly, bypassing write instructions
func (s *MemoryReportStore) Seed(reports ...models.Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range reports {
		r := reports[i]
		if _, err := s.insert(s.reports, &r); err != nil {
			return err
		}
		s.reports = append(s.reports, r)
	}
	return nil
}

func findIn(reports []models.Report, filter ReportFilter) int {
	if filter.IsZero() {
		return -1
	}
	for i := range reports {
		if filter.Matches(&reports[i]) {
			return i
		}
	}
	return -1
}

func (s *MemoryReportStore) FindOne(ctx context.Context, filter ReportFilter) (*models.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := findIn(s.reports, filter)
	if idx < 0 {
		return nil, ErrNotFound
	}
	report := s.reports[idx]
	return &report, nil
}

func (s *MemoryReportStore) SlugExists(ctx context.Context, slug string, exclude uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.reports {
		if s.reports[i].Slug == slug && s.reports[i].ID != exclude {
			return true, nil
		}
	}
	return false, nil
}

// checkUnique validates r against every stored report except the one at skip
func checkUnique(reports []models.Report, r *models.Report, skip int) error {
	for i := range reports {
		if i == skip {
			continue
		}
		if reports[i].Slug == r.Slug {
			return fmt.Errorf("%w: slug %q already exists", ErrDuplicateKey, r.Slug)
		}
		if r.ReportCode != "" && reports[i].ReportCode == r.ReportCode {
			return fmt.Errorf("%w: report code %q already exists", ErrDuplicateKey, r.ReportCode)
		}
	}
	return nil
}

// insert validates and stamps r; the caller appends it
func (s *MemoryReportStore) insert(reports []models.Report, r *models.Report) (WriteOutcome, error) {
	if r.Slug == "" {
		return WriteOutcome{}, fmt.Errorf("slug is required")
	}
	if err := checkUnique(reports, r, -1); err != nil {
		return WriteOutcome{}, err
	}
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	now := s.now()
	if r.CreatedAt.IsZero() {
		r.CreatedAt = now
	}
	r.UpdatedAt = now
	return WriteOutcome{Result: ResultInserted, ID: r.ID}, nil
}

// apply executes op against reports and returns the resulting slice
func (s *MemoryReportStore) apply(reports []models.Report, op WriteOp) ([]models.Report, WriteOutcome, error) {
	if op.Record == nil {
		return reports, WriteOutcome{}, fmt.Errorf("%s: nil record", op.Kind)
	}

	if op.Kind != OpInsert {
		if idx := findIn(reports, op.Filter); idx >= 0 {
			if op.Kind == OpInsertIfAbsent {
				return reports, WriteOutcome{Result: ResultSkipped, ID: reports[idx].ID}, nil
			}
			mergeForUpdate(&reports[idx], op)
			if err := checkUnique(reports, op.Record, idx); err != nil {
				return reports, WriteOutcome{}, err
			}
			op.Record.UpdatedAt = s.now()
			reports[idx] = *op.Record
			return reports, WriteOutcome{Result: ResultUpdated, ID: op.Record.ID}, nil
		}
	}

	outcome, err := s.insert(reports, op.Record)
	if err != nil {
		return reports, WriteOutcome{}, err
	}
	return append(reports, *op.Record), outcome, nil
}

// BulkWrite applies ops to a copy of the store and commits only if all succeed
func (s *MemoryReportStore) BulkWrite(ctx context.Context, ops []WriteOp) ([]WriteOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	working := make([]models.Report, len(s.reports), len(s.reports)+len(ops))
	copy(working, s.reports)

	outcomes := make([]WriteOutcome, 0, len(ops))
	for i, op := range ops {
		var (
			outcome WriteOutcome
			err     error
		)
		working, outcome, err = s.apply(working, op)
		if err != nil {
			return nil, fmt.Errorf("operation %d (%s): %w", i, op.Kind, err)
		}
		outcomes = append(outcomes, outcome)
	}

	s.reports = working
	return outcomes, nil
}

func (s *MemoryReportStore) Apply(ctx context.Context, op WriteOp) (WriteOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	reports, outcome, err := s.apply(s.reports, op)
	if err != nil {
		return WriteOutcome{}, err
	}
	s.reports = reports
	return outcome, nil
}
