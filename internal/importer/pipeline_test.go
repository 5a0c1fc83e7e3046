package importer

import (
	"context"
	"fmt"
	"testing"
	"time"

	"reports-service/internal/models"
	"reports-service/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pipelineFixture struct {
	catalog  *repository.MemoryReportStore
	taxonomy *repository.MemoryCategoryStore
	notifier *recordingNotifier
	pipeline *Pipeline
}

func newFixture(t *testing.T, mutate ...func(*Options)) *pipelineFixture {
	t.Helper()
	opts := DefaultOptions()
	opts.Clock = func() time.Time { return time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC) }
	for _, m := range mutate {
		m(&opts)
	}
	f := &pipelineFixture{
		catalog:  repository.NewMemoryReportStore(),
		taxonomy: repository.NewMemoryCategoryStore(),
		notifier: &recordingNotifier{},
	}
	f.pipeline = NewPipeline(f.catalog, f.taxonomy, f.notifier, opts, testLog())
	return f
}

// newSheet builds a sheet from a header row and data rows, numbered like a spreadsheet
func newSheet(headers []string, rows ...[]string) *Sheet {
	sheet := &Sheet{Name: "test.csv", Format: models.ImportFormatCSV, Headers: headers}
	for i, row := range rows {
		values := make(map[string]string, len(headers))
		for j, h := range headers {
			if j < len(row) {
				values[h] = row[j]
			}
		}
		sheet.Rows = append(sheet.Rows, RawRow{Number: i + 2, Values: values})
	}
	return sheet
}

func (f *pipelineFixture) run(t *testing.T, sheet *Sheet, strategy models.DuplicateStrategy) *models.ImportResult {
	t.Helper()
	result, err := f.pipeline.Run(context.Background(), sheet, strategy)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, result.Total, result.Processed(), "every row has exactly one outcome")
	return result
}

var catalogHeaders = []string{"Title", "Category", "Sub Category"}

func catalogSheet() *Sheet {
	return newSheet(catalogHeaders,
		[]string{"Global EV Market", "Automotive", "EVs"},
		[]string{"Solar Panel Market", "Energy", "Solar"},
		[]string{"Wind Turbine Market", "Energy", "Wind"},
	)
}

func TestPipeline_DuplicateRowsInOneFile(t *testing.T) {
	f := newFixture(t)
	sheet := newSheet(catalogHeaders,
		[]string{"Global EV Market", "Automotive", "EVs"},
		[]string{"Global EV Market", "Automotive", "EVs"},
	)

	result := f.run(t, sheet, models.StrategyUpdate)

	assert.Equal(t, 2, result.Total)
	assert.Equal(t, 1, result.Inserted)
	assert.Equal(t, 1, result.Updated)
	assert.Equal(t, 0, result.Failed)
	assert.Equal(t, 1, result.CategoriesCreated)
	assert.Equal(t, 1, result.SubcategoriesCreated)
	assert.Equal(t, 1.0, result.SuccessRate)

	categories, err := f.taxonomy.ListCategories(context.Background())
	require.NoError(t, err)
	require.Len(t, categories, 1)
	assert.Equal(t, "Automotive", categories[0].Name)
	require.Len(t, categories[0].Subcategories, 1)
	assert.Equal(t, "EVs", categories[0].Subcategories[0].Name)

	reports := f.catalog.Reports()
	require.Len(t, reports, 1)
	assert.Equal(t, "global-ev-market", reports[0].Slug)
	require.NotNil(t, reports[0].CategoryID)
	assert.Equal(t, categories[0].ID, *reports[0].CategoryID)
	require.NotNil(t, reports[0].SubCategoryID)
	assert.Equal(t, categories[0].Subcategories[0].ID, *reports[0].SubCategoryID)
}

func TestPipeline_UpdateIsIdempotent(t *testing.T) {
	f := newFixture(t)

	first := f.run(t, catalogSheet(), models.StrategyUpdate)
	assert.Equal(t, 3, first.Inserted)
	slugs := map[string]bool{}
	for _, r := range f.catalog.Reports() {
		slugs[r.Slug] = true
	}

	second := f.run(t, catalogSheet(), models.StrategyUpdate)
	assert.Equal(t, 0, second.Inserted)
	assert.Equal(t, 3, second.Updated)
	assert.Equal(t, 0, second.CategoriesCreated)
	assert.Equal(t, 0, second.SubcategoriesCreated)

	reports := f.catalog.Reports()
	require.Len(t, reports, 3)
	for _, r := range reports {
		assert.True(t, slugs[r.Slug], "slug %q changed on re-import", r.Slug)
	}
}

func TestPipeline_SkipAfterImport(t *testing.T) {
	f := newFixture(t)
	f.run(t, catalogSheet(), models.StrategyCreate)

	result := f.run(t, catalogSheet(), models.StrategySkip)

	assert.Equal(t, 3, result.Skipped)
	assert.Equal(t, 0, result.Inserted)
	assert.Equal(t, 3, f.catalog.Count())
	assert.Equal(t, 1.0, result.SuccessRate)
}

func TestPipeline_SkipWithinOneBatch(t *testing.T) {
	f := newFixture(t)
	sheet := newSheet(catalogHeaders,
		[]string{"Global EV Market", "Automotive", "EVs"},
		[]string{"Global EV Market", "Automotive", "EVs"},
	)

	result := f.run(t, sheet, models.StrategySkip)

	assert.Equal(t, 1, result.Inserted)
	assert.Equal(t, 1, result.Skipped)
	assert.Equal(t, 1, f.catalog.Count())
}

func TestPipeline_SkipWithinOneBatchCreatesNoTaxonomy(t *testing.T) {
	f := newFixture(t)
	sheet := newSheet(catalogHeaders,
		[]string{"Global EV Market", "Automotive", "EVs"},
		[]string{"Global EV Market", "Energy", "Solar"},
	)

	result := f.run(t, sheet, models.StrategySkip)

	assert.Equal(t, 1, result.Inserted)
	assert.Equal(t, 1, result.Skipped)
	assert.Equal(t, 1, result.CategoriesCreated)
	assert.Equal(t, 1, result.SubcategoriesCreated)

	_, err := f.taxonomy.FindCategoryByName(context.Background(), "Energy")
	assert.ErrorIs(t, err, repository.ErrNotFound, "a skipped row must not create taxonomy")
}

func TestPipeline_CreateAllowsDuplicates(t *testing.T) {
	f := newFixture(t)
	sheet := newSheet([]string{"Title"},
		[]string{"Global EV Market"},
		[]string{"Global EV Market"},
	)

	result := f.run(t, sheet, models.StrategyCreate)

	assert.Equal(t, 2, result.Inserted)
	reports := f.catalog.Reports()
	require.Len(t, reports, 2)
	assert.Equal(t, "global-ev-market", reports[0].Slug)
	assert.Equal(t, "global-ev-market-1", reports[1].Slug)
}

func TestPipeline_CreateWithTakenReportCode(t *testing.T) {
	f := newFixture(t)
	sheet := newSheet([]string{"Title", "Report Code"},
		[]string{"Lithium Battery Market", "MR-100"},
		[]string{"Lithium Battery Market Update", "MR-100"},
		[]string{"Hydrogen Market", "MR-101"},
	)

	result := f.run(t, sheet, models.StrategyCreate)

	assert.Equal(t, 2, result.Inserted)
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, 1, result.FallbackBatches)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, 3, result.Errors[0].Row)
	assert.Equal(t, "MR-100", result.Errors[0].ReportCode)
	assert.Equal(t, CodeDuplicateKey, result.Errors[0].Code)
}

func TestPipeline_ReportCodeTakesPrecedence(t *testing.T) {
	f := newFixture(t)
	headers := []string{"Title", "Report Code"}
	f.run(t, newSheet(headers, []string{"Old Title", "MR-7"}), models.StrategyUpdate)

	result := f.run(t, newSheet(headers, []string{"New Title", "MR-7"}), models.StrategyUpdate)

	assert.Equal(t, 1, result.Updated)
	reports := f.catalog.Reports()
	require.Len(t, reports, 1)
	assert.Equal(t, "New Title", reports[0].Title)
	assert.Equal(t, "old-title", reports[0].Slug)
}

func TestPipeline_InvalidTitleRow(t *testing.T) {
	f := newFixture(t)
	sheet := newSheet(catalogHeaders,
		[]string{"", "Energy", ""},
		[]string{"Global EV Market", "Automotive", ""},
		[]string{"ab", "Mining", ""},
		[]string{"Hydrogen Market", "Automotive", ""},
	)

	result := f.run(t, sheet, models.StrategyUpdate)

	assert.Equal(t, 4, result.Total)
	assert.Equal(t, 2, result.Inserted)
	assert.Equal(t, 2, result.Failed)
	assert.Equal(t, 1, result.CategoriesCreated, "invalid rows never create taxonomy")
	assert.Equal(t, 0.5, result.SuccessRate)
	require.Len(t, result.Errors, 2)
	assert.Equal(t, 2, result.Errors[0].Row)
	assert.Equal(t, CodeValidation, result.Errors[0].Code)
	assert.Contains(t, result.Errors[0].Message, "title is required")
}

func TestPipeline_NoValidRows(t *testing.T) {
	f := newFixture(t)
	sheet := newSheet([]string{"Title"}, []string{""}, []string{"x"})

	result, err := f.pipeline.Run(context.Background(), sheet, models.StrategyUpdate)

	assert.ErrorIs(t, err, ErrNoValidRows)
	require.NotNil(t, result)
	assert.Equal(t, 2, result.Failed)
	assert.False(t, result.Success)
	assert.Empty(t, f.notifier.completed)
}

func TestPipeline_CategoryCreatedOncePerName(t *testing.T) {
	f := newFixture(t, func(o *Options) { o.SmallBatch = 2 })
	var rows [][]string
	for i := 0; i < 5; i++ {
		category := "Energy"
		if i%2 == 1 {
			category = "ENERGY"
		}
		rows = append(rows, []string{fmt.Sprintf("Energy Report %d", i), category, ""})
	}

	result := f.run(t, newSheet(catalogHeaders, rows...), models.StrategyUpdate)

	assert.Equal(t, 5, result.Inserted)
	assert.Equal(t, 1, result.CategoriesCreated)
	assert.Equal(t, 3, result.Batches)
	assert.Equal(t, []string{"Energy"}, f.notifier.categories)
	require.Len(t, f.notifier.completed, 1)
}

func TestPipeline_ErrorListIsBounded(t *testing.T) {
	f := newFixture(t, func(o *Options) { o.MaxErrors = 2 })
	sheet := newSheet([]string{"Title"},
		[]string{""}, []string{""}, []string{""}, []string{""}, []string{"Valid Title"},
	)

	result := f.run(t, sheet, models.StrategyUpdate)

	assert.Equal(t, 4, result.Failed)
	assert.Equal(t, 4, result.TotalErrors)
	assert.Len(t, result.Errors, 2)
	assert.True(t, result.ErrorsTruncated)
}

func TestPipeline_RecordContent(t *testing.T) {
	f := newFixture(t)
	headers := []string{"Report Title", "Overview", "Table of Contents", "Single User Price", "Featured", "Publish Date", "Status", "Keywords"}
	sheet := newSheet(headers, []string{
		"Global EV Market",
		"Key drivers:\n- Subsidies\n- Battery costs",
		"1. Introduction\n1.1 Scope",
		"$3,950.00",
		"Yes",
		"2024-03-15",
		"draft",
		"ev; EV, batteries",
	})

	f.run(t, sheet, models.StrategyUpdate)

	reports := f.catalog.Reports()
	require.Len(t, reports, 1)
	r := reports[0]
	assert.Equal(t, "<h3>Key drivers</h3>\n<ul><li>Subsidies</li><li>Battery costs</li></ul>", r.Overview)
	assert.Equal(t, "<h2>1. Introduction</h2>\n<h3>1.1 Scope</h3>", r.TableOfContents)
	assert.Equal(t, r.Overview, r.SegmentCompanies, "segmentation falls back to the overview")
	assert.Equal(t, 3950.0, r.SingleUserPrice)
	assert.True(t, r.Featured)
	assert.Equal(t, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), r.PublishDate)
	assert.Equal(t, models.ReportStatusDraft, r.Status)
	assert.Equal(t, "ev, batteries", r.Keywords)
}

func TestPipeline_SegmentFallbackNone(t *testing.T) {
	f := newFixture(t, func(o *Options) { o.SegmentFallback = SegmentFallbackNone })
	sheet := newSheet([]string{"Title", "Overview"}, []string{"Global EV Market", "Some overview"})

	f.run(t, sheet, models.StrategyUpdate)

	assert.Equal(t, "", f.catalog.Reports()[0].SegmentCompanies)
}

func TestPipeline_CheckDuplicates(t *testing.T) {
	f := newFixture(t)
	f.run(t, newSheet([]string{"Title", "Report Code"},
		[]string{"Global EV Market", ""},
		[]string{"Solar Panel Market", "MR-9"},
	), models.StrategyUpdate)

	sheet := newSheet([]string{"Title", "Report Code"},
		[]string{"Global EV Market", ""},
		[]string{"Renamed Solar Report", "MR-9"},
		[]string{"Brand New Market", ""},
		[]string{"", ""},
	)
	result, err := f.pipeline.CheckDuplicates(context.Background(), sheet)
	require.NoError(t, err)

	assert.Equal(t, 4, result.TotalRecords)
	assert.Equal(t, 2, result.DuplicateCount)
	require.Len(t, result.Duplicates, 2)
	assert.Equal(t, 2, result.Duplicates[0].Row)
	assert.Equal(t, models.MatchedBySlug, result.Duplicates[0].MatchedBy)
	assert.Equal(t, 3, result.Duplicates[1].Row)
	assert.Equal(t, models.MatchedByCode, result.Duplicates[1].MatchedBy)
	assert.NotEmpty(t, result.Duplicates[1].ExistingID)
	assert.Equal(t, 2, f.catalog.Count(), "duplicate check never writes")
}

func TestPipeline_UpdateKeepsPublishDateWithoutDateColumn(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	f := newFixture(t, func(o *Options) {
		o.Clock = func() time.Time { return now }
	})

	f.run(t, catalogSheet(), models.StrategyUpdate)

	now = now.AddDate(0, 2, 0)
	second := f.run(t, catalogSheet(), models.StrategyUpdate)
	assert.Equal(t, 3, second.Updated)
	for _, r := range f.catalog.Reports() {
		assert.Equal(t, time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC), r.PublishDate, r.Title)
	}

	dated := newSheet([]string{"Title", "Publish Date"}, []string{"Global EV Market", "2024-06-30"})
	f.run(t, dated, models.StrategyUpdate)
	for _, r := range f.catalog.Reports() {
		if r.Title == "Global EV Market" {
			assert.Equal(t, time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC), r.PublishDate)
		}
	}
}
