package repository

import (
	"context"
	"errors"
	"fmt"

	"reports-service/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ReportRepository is the Postgres-backed CatalogStore
type ReportRepository struct {
	db *gorm.DB
}

func NewReportRepository(db *gorm.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

func findReport(tx *gorm.DB, filter ReportFilter) (*models.Report, error) {
	query := tx.Model(&models.Report{})
	switch {
	case filter.ReportCode != "":
		query = query.Where("report_code = ?", filter.ReportCode)
	case filter.Slug != "" && filter.Title != "":
		query = query.Where("slug = ? OR title = ?", filter.Slug, filter.Title)
	case filter.Slug != "":
		query = query.Where("slug = ?", filter.Slug)
	case filter.Title != "":
		query = query.Where("title = ?", filter.Title)
	default:
		return nil, ErrNotFound
	}

	var report models.Report
	if err := query.Order("created_at ASC").First(&report).Error; err != nil {
		return nil, translateError(err)
	}
	return &report, nil
}

// FindOne returns the oldest report matching filter
func (r *ReportRepository) FindOne(ctx context.Context, filter ReportFilter) (*models.Report, error) {
	return findReport(r.db.WithContext(ctx), filter)
}

// SlugExists checks whether a slug is used by any report other than exclude
func (r *ReportRepository) SlugExists(ctx context.Context, slug string, exclude uuid.UUID) (bool, error) {
	var count int64
	query := r.db.WithContext(ctx).Model(&models.Report{}).Where("slug = ?", slug)
	if exclude != uuid.Nil {
		query = query.Where("id <> ?", exclude)
	}
	err := query.Count(&count).Error
	return count > 0, err
}

func applyOp(tx *gorm.DB, op WriteOp) (WriteOutcome, error) {
	if op.Record == nil {
		return WriteOutcome{}, fmt.Errorf("%s: nil record", op.Kind)
	}

	if op.Kind != OpInsert && !op.Filter.IsZero() {
		existing, err := findReport(tx, op.Filter)
		switch {
		case err == nil && op.Kind == OpInsertIfAbsent:
			return WriteOutcome{Result: ResultSkipped, ID: existing.ID}, nil
		case err == nil:
			mergeForUpdate(existing, op)
			if err := tx.Save(op.Record).Error; err != nil {
				return WriteOutcome{}, translateError(err)
			}
			return WriteOutcome{Result: ResultUpdated, ID: op.Record.ID}, nil
		case !errors.Is(err, ErrNotFound):
			return WriteOutcome{}, err
		}
	}

	if err := tx.Create(op.Record).Error; err != nil {
		return WriteOutcome{}, translateError(err)
	}
	return WriteOutcome{Result: ResultInserted, ID: op.Record.ID}, nil
}

// BulkWrite applies all ops inside one transaction; any failure rolls the whole batch back
func (r *ReportRepository) BulkWrite(ctx context.Context, ops []WriteOp) ([]WriteOutcome, error) {
	outcomes := make([]WriteOutcome, 0, len(ops))
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i, op := range ops {
			outcome, err := applyOp(tx, op)
			if err != nil {
				return fmt.Errorf("operation %d (%s): %w", i, op.Kind, err)
			}
			outcomes = append(outcomes, outcome)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return outcomes, nil
}

// Apply runs a single op in its own transaction
func (r *ReportRepository) Apply(ctx context.Context, op WriteOp) (WriteOutcome, error) {
	var outcome WriteOutcome
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		outcome, err = applyOp(tx, op)
		return err
	})
	return outcome, err
}
