package repository

import (
	"context"
	"testing"
	"time"

	"reports-service/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testReport(title, slug, code string) *models.Report {
	return &models.Report{Title: title, Slug: slug, ReportCode: code, Status: models.ReportStatusPublished}
}

func TestReportFilter_Matches(t *testing.T) {
	existing := &models.Report{Title: "Global EV Market", Slug: "global-ev-market", ReportCode: "EV-1"}

	t.Run("code takes precedence over title", func(t *testing.T) {
		f := ReportFilter{ReportCode: "EV-2", Title: "Global EV Market"}
		assert.False(t, f.Matches(existing))
	})

	t.Run("slug or title", func(t *testing.T) {
		assert.True(t, ReportFilter{Slug: "global-ev-market", Title: "Other"}.Matches(existing))
		assert.True(t, ReportFilter{Slug: "other", Title: "Global EV Market"}.Matches(existing))
		assert.False(t, ReportFilter{Slug: "other", Title: "Other"}.Matches(existing))
	})

	t.Run("matched by", func(t *testing.T) {
		assert.Equal(t, models.MatchedByCode, ReportFilter{ReportCode: "EV-1"}.MatchedBy(existing))
		assert.Equal(t, models.MatchedBySlug, ReportFilter{Slug: "global-ev-market", Title: "Global EV Market"}.MatchedBy(existing))
		assert.Equal(t, models.MatchedByTitle, ReportFilter{Slug: "x", Title: "Global EV Market"}.MatchedBy(existing))
	})
}

func TestMemoryReportStore_BulkWriteSeesEarlierOps(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryReportStore()

	first := testReport("Global EV Market", "global-ev-market", "")
	second := testReport("Global EV Market", "global-ev-market-1", "")
	outcomes, err := store.BulkWrite(ctx, []WriteOp{
		{Kind: OpUpsert, Filter: ReportFilter{Slug: "global-ev-market", Title: "Global EV Market"}, Record: first},
		{Kind: OpUpsert, Filter: ReportFilter{Slug: "global-ev-market", Title: "Global EV Market"}, Record: second},
	})
	require.NoError(t, err)
	require.Len(t, outcomes, 2)

	assert.Equal(t, ResultInserted, outcomes[0].Result)
	assert.Equal(t, ResultUpdated, outcomes[1].Result)
	assert.Equal(t, outcomes[0].ID, outcomes[1].ID)

	reports := store.Reports()
	require.Len(t, reports, 1)
	assert.Equal(t, "global-ev-market", reports[0].Slug, "update keeps the existing slug")
}

func TestMemoryReportStore_BulkWriteIsAtomic(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryReportStore()
	require.NoError(t, store.Seed(*testReport("Existing", "existing", "CODE-1")))

	_, err := store.BulkWrite(ctx, []WriteOp{
		{Kind: OpInsert, Record: testReport("Fresh", "fresh", "")},
		{Kind: OpInsert, Record: testReport("Clash", "clash", "CODE-1")},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDuplicateKey)
	assert.Equal(t, 1, store.Count(), "failed batch must not leave partial writes")
}

func TestMemoryReportStore_InsertIfAbsent(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryReportStore()
	require.NoError(t, store.Seed(*testReport("Existing", "existing", "")))

	outcome, err := store.Apply(ctx, WriteOp{
		Kind:   OpInsertIfAbsent,
		Filter: ReportFilter{Slug: "existing", Title: "Existing"},
		Record: testReport("Existing", "existing-1", ""),
	})
	require.NoError(t, err)
	assert.Equal(t, ResultSkipped, outcome.Result)
	assert.Equal(t, 1, store.Count())
}

func TestMemoryReportStore_SlugExistsExcludes(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryReportStore()
	require.NoError(t, store.Seed(*testReport("Existing", "existing", "")))
	id := store.Reports()[0].ID

	taken, err := store.SlugExists(ctx, "existing", uuid.Nil)
	require.NoError(t, err)
	assert.True(t, taken)

	taken, err = store.SlugExists(ctx, "existing", id)
	require.NoError(t, err)
	assert.False(t, taken)
}

func TestMemoryReportStore_FindOneNotFound(t *testing.T) {
	store := NewMemoryReportStore()
	_, err := store.FindOne(context.Background(), ReportFilter{Title: "missing"})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = store.FindOne(context.Background(), ReportFilter{})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryCategoryStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryCategoryStore()

	category := &models.Category{Name: "Automotive", Slug: "automotive", Position: 1, IsActive: true}
	require.NoError(t, store.CreateCategory(ctx, category))
	assert.NotEqual(t, uuid.Nil, category.ID)

	t.Run("case-insensitive lookup", func(t *testing.T) {
		found, err := store.FindCategoryByName(ctx, "  AUTOMOTIVE ")
		require.NoError(t, err)
		assert.Equal(t, category.ID, found.ID)
	})

	t.Run("duplicate name rejected", func(t *testing.T) {
		err := store.CreateCategory(ctx, &models.Category{Name: "automotive", Slug: "automotive-1"})
		assert.ErrorIs(t, err, ErrDuplicateKey)
	})

	t.Run("subcategories unique within parent", func(t *testing.T) {
		require.NoError(t, store.AddSubcategory(ctx, category, &models.Subcategory{Name: "EVs", Slug: "evs", Position: 1}))
		assert.Len(t, category.Subcategories, 1)

		err := store.AddSubcategory(ctx, category, &models.Subcategory{Name: "evs", Slug: "evs-1", Position: 2})
		assert.ErrorIs(t, err, ErrDuplicateKey)

		found, err := store.FindCategoryByName(ctx, "automotive")
		require.NoError(t, err)
		require.Len(t, found.Subcategories, 1)
		assert.Equal(t, "EVs", found.Subcategories[0].Name)
	})

	t.Run("next position", func(t *testing.T) {
		pos, err := store.NextCategoryPosition(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, pos)
	})

	t.Run("get by slug", func(t *testing.T) {
		found, err := store.GetCategoryBySlug(ctx, "automotive")
		require.NoError(t, err)
		assert.Equal(t, "Automotive", found.Name)

		_, err = store.GetCategoryBySlug(ctx, "missing")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestMemoryReportStore_UpsertKeepsPublishDate(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryReportStore()
	existing := testReport("Existing", "existing", "MR-1")
	existing.PublishDate = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, store.Seed(*existing))

	incoming := testReport("Existing", "existing", "MR-1")
	incoming.PublishDate = time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC)
	_, err := store.Apply(ctx, WriteOp{Kind: OpUpsert, Filter: ReportFilter{ReportCode: "MR-1"}, Record: incoming, KeepPublishDate: true})
	require.NoError(t, err)
	assert.Equal(t, existing.PublishDate, store.Reports()[0].PublishDate)

	dated := testReport("Existing", "existing", "MR-1")
	dated.PublishDate = time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC)
	_, err = store.Apply(ctx, WriteOp{Kind: OpUpsert, Filter: ReportFilter{ReportCode: "MR-1"}, Record: dated})
	require.NoError(t, err)
	assert.Equal(t, dated.PublishDate, store.Reports()[0].PublishDate)
}
