package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"reports-service/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrNotFound     = errors.New("record not found")
	ErrDuplicateKey = errors.New("duplicate key")
)

// ReportFilter selects an existing report for duplicate matching.
// A non-empty ReportCode matches on the code alone; otherwise Slug OR Title match.
type ReportFilter struct {
	ReportCode string
	Slug       string
	Title      string
}

// IsZero reports whether the filter has no usable key
func (f ReportFilter) IsZero() bool {
	return f.ReportCode == "" && f.Slug == "" && f.Title == ""
}

// Matches reports whether r satisfies the filter
func (f ReportFilter) Matches(r *models.Report) bool {
	if f.ReportCode != "" {
		return r.ReportCode == f.ReportCode
	}
	return (f.Slug != "" && r.Slug == f.Slug) || (f.Title != "" && r.Title == f.Title)
}

// MatchedBy names the key on which r satisfied the filter
func (f ReportFilter) MatchedBy(r *models.Report) models.MatchedBy {
	switch {
	case f.ReportCode != "":
		return models.MatchedByCode
	case f.Slug != "" && r.Slug == f.Slug:
		return models.MatchedBySlug
	default:
		return models.MatchedByTitle
	}
}

func (f ReportFilter) String() string {
	if f.ReportCode != "" {
		return fmt.Sprintf("reportCode=%q", f.ReportCode)
	}
	return fmt.Sprintf("slug=%q|title=%q", f.Slug, f.Title)
}

// OpKind selects the shape of a catalog write
type OpKind int

const (
	// OpInsert always creates a new report
	OpInsert OpKind = iota
	// OpInsertIfAbsent creates the report unless Filter matches an existing one
	OpInsertIfAbsent
	// OpUpsert updates the first report matching Filter in place, or creates one
	OpUpsert
)

func (k OpKind) String() string {
	switch k {
	case OpInsert:
		return "insert"
	case OpInsertIfAbsent:
		return "insertIfAbsent"
	case OpUpsert:
		return "upsert"
	}
	return fmt.Sprintf("OpKind(%d)", int(k))
}

// WriteOp is one write instruction produced by duplicate resolution
type WriteOp struct {
	Kind   OpKind
	Filter ReportFilter
	Record *models.Report

	// KeepPublishDate is set when the row carried no publish date of its own;
	// an update then leaves the stored date alone.
	KeepPublishDate bool
}

// WriteResult is the outcome of a single applied WriteOp
type WriteResult string

const (
	ResultInserted WriteResult = "inserted"
	ResultUpdated  WriteResult = "updated"
	ResultSkipped  WriteResult = "skipped"
)

// WriteOutcome reports what a WriteOp did and the ID of the affected report
type WriteOutcome struct {
	Result WriteResult
	ID     uuid.UUID
}

// CatalogStore is the report persistence contract consumed by the importer
type CatalogStore interface {
	FindOne(ctx context.Context, filter ReportFilter) (*models.Report, error)
	// SlugExists reports whether slug is taken by a report other than exclude.
	SlugExists(ctx context.Context, slug string, exclude uuid.UUID) (bool, error)
	// BulkWrite applies ops in order, atomically. Later ops observe earlier ones.
	BulkWrite(ctx context.Context, ops []WriteOp) ([]WriteOutcome, error)
	Apply(ctx context.Context, op WriteOp) (WriteOutcome, error)
}

// TaxonomyStore is the category/subcategory persistence contract
type TaxonomyStore interface {
	// FindCategoryByName looks a category up case-insensitively with its subcategories.
	FindCategoryByName(ctx context.Context, name string) (*models.Category, error)
	CreateCategory(ctx context.Context, category *models.Category) error
	// AddSubcategory persists sub under category and appends it to category.Subcategories.
	AddSubcategory(ctx context.Context, category *models.Category, sub *models.Subcategory) error
	CategorySlugExists(ctx context.Context, slug string) (bool, error)
	NextCategoryPosition(ctx context.Context) (int, error)
	ListCategories(ctx context.Context) ([]models.Category, error)
	GetCategoryBySlug(ctx context.Context, slug string) (*models.Category, error)
}

// mergeForUpdate copies identity fields of existing onto the op's record so that
// an upsert rewrites the content of a report without changing what it is.
func mergeForUpdate(existing *models.Report, op WriteOp) {
	incoming := op.Record
	incoming.ID = existing.ID
	incoming.CreatedAt = existing.CreatedAt
	incoming.Slug = existing.Slug
	if strings.TrimSpace(incoming.ReportCode) == "" {
		incoming.ReportCode = existing.ReportCode
	}
	if op.KeepPublishDate && !existing.PublishDate.IsZero() {
		incoming.PublishDate = existing.PublishDate
	}
}

// translateError maps driver errors onto the package sentinels
func translateError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%w: %v", ErrDuplicateKey, err)
	}
	return err
}
