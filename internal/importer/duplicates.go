package importer

import (
	"context"
	"errors"
	"strings"

	"reports-service/internal/models"
	"reports-service/internal/repository"

	"github.com/google/uuid"
)

// DuplicateMatch is the existing report a row collides with, if any
type DuplicateMatch struct {
	Existing  *models.Report
	MatchedBy models.MatchedBy
}

// ExistingID returns the matched report ID, or uuid.Nil when there is no match
func (m *DuplicateMatch) ExistingID() uuid.UUID {
	if m == nil || m.Existing == nil {
		return uuid.Nil
	}
	return m.Existing.ID
}

// DuplicateResolver matches rows against the catalog and shapes their writes
type DuplicateResolver struct {
	store    repository.CatalogStore
	strategy models.DuplicateStrategy

	// accepted holds rows of this run queued for insertion under the skip
	// strategy; they may not have reached the catalog yet.
	accepted []models.Report
}

func NewDuplicateResolver(store repository.CatalogStore, strategy models.DuplicateStrategy) *DuplicateResolver {
	return &DuplicateResolver{store: store, strategy: strategy}
}

// MatchFilter is the duplicate key of a record: its report code when present,
// otherwise its base slug or title.
func MatchFilter(title, reportCode, baseSlug string) repository.ReportFilter {
	if code := strings.TrimSpace(reportCode); code != "" {
		return repository.ReportFilter{ReportCode: code}
	}
	return repository.ReportFilter{Slug: baseSlug, Title: strings.TrimSpace(title)}
}

// Find returns the oldest catalog report matching filter, or nil. Under the skip
// strategy a row accepted earlier in the run also counts as a match.
func (d *DuplicateResolver) Find(ctx context.Context, filter repository.ReportFilter) (*DuplicateMatch, error) {
	existing, err := d.store.FindOne(ctx, filter)
	if errors.Is(err, repository.ErrNotFound) {
		return d.findAccepted(filter), nil
	}
	if err != nil {
		return nil, err
	}
	return &DuplicateMatch{Existing: existing, MatchedBy: filter.MatchedBy(existing)}, nil
}

func (d *DuplicateResolver) findAccepted(filter repository.ReportFilter) *DuplicateMatch {
	for i := range d.accepted {
		if filter.Matches(&d.accepted[i]) {
			return &DuplicateMatch{Existing: &d.accepted[i], MatchedBy: filter.MatchedBy(&d.accepted[i])}
		}
	}
	return nil
}

// Accept records a row queued for insertion so later rows of the same run see it
// before its batch is flushed. Only the skip strategy needs this.
func (d *DuplicateResolver) Accept(record *models.Report) {
	if d.strategy != models.StrategySkip {
		return
	}
	d.accepted = append(d.accepted, models.Report{
		Title:      record.Title,
		Slug:       record.Slug,
		ReportCode: record.ReportCode,
	})
}

// NeedsLookup reports whether the strategy consults existing reports before writing
func (d *DuplicateResolver) NeedsLookup() bool {
	return d.strategy != models.StrategyCreate
}

// SlugOwner returns the report whose current slug a row may reuse. Only an
// update rewrites an existing report; other strategies need a fresh slug.
func (d *DuplicateResolver) SlugOwner(match *DuplicateMatch) uuid.UUID {
	if d.strategy != models.StrategyUpdate {
		return uuid.Nil
	}
	return match.ExistingID()
}

// Instruction returns the write for record. skip is true when no write should be
// issued at all because the row already exists under the skip strategy.
func (d *DuplicateResolver) Instruction(record *models.Report, filter repository.ReportFilter, match *DuplicateMatch) (op repository.WriteOp, skip bool) {
	switch d.strategy {
	case models.StrategyCreate:
		return repository.WriteOp{Kind: repository.OpInsert, Record: record}, false
	case models.StrategySkip:
		if match != nil {
			return repository.WriteOp{}, true
		}
		return repository.WriteOp{Kind: repository.OpInsertIfAbsent, Filter: filter, Record: record}, false
	default:
		return repository.WriteOp{Kind: repository.OpUpsert, Filter: filter, Record: record}, false
	}
}
