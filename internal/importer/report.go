package importer

import (
	"math"
	"time"

	"reports-service/internal/models"
	"reports-service/internal/repository"
)

// ReportBuilder accumulates row outcomes into an ImportResult
type ReportBuilder struct {
	result    models.ImportResult
	maxErrors int
	started   time.Time
	now       func() time.Time
}

func NewReportBuilder(runID string, total int, strategy models.DuplicateStrategy, maxErrors int, now func() time.Time) *ReportBuilder {
	if now == nil {
		now = time.Now
	}
	return &ReportBuilder{
		result: models.ImportResult{
			RunID:    runID,
			Strategy: strategy,
			Total:    total,
			Errors:   make([]models.ImportRowError, 0),
		},
		maxErrors: maxErrors,
		started:   now(),
		now:       now,
	}
}

// Record counts a successful write outcome
func (b *ReportBuilder) Record(result repository.WriteResult) {
	switch result {
	case repository.ResultInserted:
		b.result.Inserted++
	case repository.ResultUpdated:
		b.result.Updated++
	case repository.ResultSkipped:
		b.result.Skipped++
	}
}

// Fail counts a failed row and keeps its error while under the cap
func (b *ReportBuilder) Fail(rowErr models.ImportRowError) {
	b.result.Failed++
	b.result.TotalErrors++
	if b.maxErrors > 0 && len(b.result.Errors) >= b.maxErrors {
		b.result.ErrorsTruncated = true
		return
	}
	b.result.Errors = append(b.result.Errors, rowErr)
}

// Taxonomy counts newly created taxonomy nodes
func (b *ReportBuilder) Taxonomy(categoryCreated, subcategoryCreated bool) {
	if categoryCreated {
		b.result.CategoriesCreated++
	}
	if subcategoryCreated {
		b.result.SubcategoriesCreated++
	}
}

// Batches records batch statistics
func (b *ReportBuilder) Batches(size, batches, fallbacks int) {
	b.result.BatchSize = size
	b.result.Batches = batches
	b.result.FallbackBatches = fallbacks
}

// Processed returns the number of rows with a final outcome so far
func (b *ReportBuilder) Processed() int {
	return b.result.Processed()
}

// Elapsed returns the time since the run started
func (b *ReportBuilder) Elapsed() time.Duration {
	return b.now().Sub(b.started)
}

// Build finalizes rates and timings and returns the result
func (b *ReportBuilder) Build() *models.ImportResult {
	r := b.result
	elapsed := b.Elapsed().Seconds()

	r.DurationSeconds = round(elapsed, 3)
	if r.Total > 0 {
		r.SuccessRate = round(float64(r.Succeeded())/float64(r.Total), 4)
	}
	if elapsed > 0 {
		r.RecordsPerSecond = round(float64(r.Processed())/elapsed, 2)
	}
	r.Success = r.Succeeded() > 0
	return &r
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
