package importer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"reports-service/internal/models"
	"reports-service/internal/repository"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// ErrNoValidRows is returned with the result when no row passed validation
var ErrNoValidRows = errors.New("no rows with a valid title")

// Options tunes a pipeline run
type Options struct {
	LargeThreshold  int
	MediumThreshold int
	LargeBatch      int
	MediumBatch     int
	SmallBatch      int

	MaxErrors        int
	SegmentFallback  SegmentFallback
	DefaultStatus    models.ReportStatus
	ProgressInterval time.Duration

	// Clock overrides time.Now
	Clock func() time.Time
}

// DefaultOptions returns the stock batch sizing and reporting limits
func DefaultOptions() Options {
	return Options{
		LargeThreshold:   500,
		MediumThreshold:  100,
		LargeBatch:       25,
		MediumBatch:      50,
		SmallBatch:       100,
		MaxErrors:        50,
		SegmentFallback:  SegmentFallbackOverview,
		DefaultStatus:    models.ReportStatusPublished,
		ProgressInterval: 5 * time.Second,
	}
}

func (o Options) now() time.Time {
	if o.Clock != nil {
		return o.Clock()
	}
	return time.Now()
}

// Pipeline imports spreadsheet rows into the report catalog
type Pipeline struct {
	catalog  repository.CatalogStore
	taxonomy repository.TaxonomyStore
	notifier Notifier
	opts     Options
	log      *logrus.Entry
}

func NewPipeline(catalog repository.CatalogStore, taxonomy repository.TaxonomyStore, notifier Notifier, opts Options, log *logrus.Entry) *Pipeline {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Pipeline{
		catalog:  catalog,
		taxonomy: taxonomy,
		notifier: notifier,
		opts:     opts,
		log:      log.WithField("component", "importer"),
	}
}

// run holds the per-invocation state shared by all rows
type run struct {
	log        *logrus.Entry
	fields     *FieldResolver
	duplicates *DuplicateResolver
	slugs      *SlugGenerator
	taxonomy   *TaxonomyResolver
	report     *ReportBuilder
	engine     *BatchEngine
	valid      int
}

// Run imports every row of sheet with the given duplicate strategy. Row-level
// problems are recorded in the result; only a panic aborts the run.
func (p *Pipeline) Run(ctx context.Context, sheet *Sheet, strategy models.DuplicateStrategy) (result *models.ImportResult, err error) {
	runID := uuid.New().String()
	total := len(sheet.Rows)
	batchSize := p.opts.BatchSize(total)
	log := p.log.WithFields(logrus.Fields{
		"run_id":   runID,
		"strategy": strategy,
		"file":     sheet.Name,
		"rows":     total,
	})

	defer func() {
		if rec := recover(); rec != nil {
			log.WithField("panic", rec).Error("Import aborted")
			result, err = nil, &UnexpectedPipelineError{Cause: rec}
		}
	}()

	report := NewReportBuilder(runID, total, strategy, p.opts.MaxErrors, p.opts.Clock)
	r := &run{
		log:        log,
		fields:     NewFieldResolver(sheet.Headers),
		duplicates: NewDuplicateResolver(p.catalog, strategy),
		slugs:      NewSlugGenerator("report"),
		taxonomy:   NewTaxonomyResolver(p.taxonomy, p.notifier, log),
		report:     report,
		engine:     NewBatchEngine(p.catalog, batchSize, report, log),
	}
	if unmapped := r.fields.Unmapped(); len(unmapped) > 0 {
		log.WithField("columns", unmapped).Debug("Ignoring unrecognised columns")
	}
	log.WithField("batch_size", batchSize).Info("Import started")

	progress := rate.Sometimes{Interval: p.opts.ProgressInterval}
	for i := range sheet.Rows {
		p.processRow(ctx, r, sheet.Rows[i])
		progress.Do(func() { p.logProgress(r, i+1, total) })
	}
	r.engine.Flush(ctx)

	batches, fallbacks := r.engine.Stats()
	report.Batches(batchSize, batches, fallbacks)
	result = report.Build()

	log.WithFields(logrus.Fields{
		"inserted":              result.Inserted,
		"updated":               result.Updated,
		"skipped":               result.Skipped,
		"failed":                result.Failed,
		"categories_created":    result.CategoriesCreated,
		"subcategories_created": result.SubcategoriesCreated,
		"batches":               batches,
		"fallback_batches":      fallbacks,
		"duration_seconds":      result.DurationSeconds,
	}).Info("Import finished")

	if r.valid == 0 {
		return result, ErrNoValidRows
	}
	p.notifier.ImportCompleted(ctx, sheet.Name, result)
	return result, nil
}

func (p *Pipeline) logProgress(r *run, done, total int) {
	if done >= total {
		return
	}
	elapsed := r.report.Elapsed()
	percent := float64(done) / float64(total) * 100
	eta := time.Duration(float64(elapsed) / float64(done) * float64(total-done))
	r.log.WithFields(logrus.Fields{
		"done":    done,
		"percent": fmt.Sprintf("%.1f", percent),
		"eta":     eta.Round(time.Second).String(),
	}).Info("Import progress")
}

func (p *Pipeline) failRow(r *run, row int, title, code string, record *models.Report, err error) {
	reportCode := ""
	if record != nil {
		reportCode = record.ReportCode
	}
	r.log.WithFields(logrus.Fields{
		"row":         row,
		"title":       title,
		"report_code": reportCode,
		"error":       err.Error(),
	}).Warn("Row failed")
	r.report.Fail(models.ImportRowError{
		Row:        row,
		Title:      title,
		ReportCode: reportCode,
		Code:       code,
		Message:    err.Error(),
	})
}

func (p *Pipeline) processRow(ctx context.Context, r *run, raw RawRow) {
	fields := r.fields.Resolve(raw)

	record, err := BuildRecord(raw.Number, fields, p.opts)
	if err != nil {
		p.failRow(r, raw.Number, fields.Get(FieldTitle), CodeValidation, nil, err)
		return
	}
	r.valid++

	desiredSlug := fields.Get(FieldSlug)
	baseSlug := Slugify(desiredSlug)
	if baseSlug == "" {
		baseSlug = Slugify(record.Title)
	}
	filter := MatchFilter(record.Title, record.ReportCode, baseSlug)

	var match *DuplicateMatch
	if r.duplicates.NeedsLookup() {
		match, err = r.duplicates.Find(ctx, filter)
		if err != nil {
			p.failRow(r, raw.Number, record.Title, CodeLookupFailed, record, fmt.Errorf("duplicate lookup failed: %w", err))
			return
		}
	}

	op, skip := r.duplicates.Instruction(record, filter, match)
	if skip {
		r.log.WithFields(logrus.Fields{
			"row":         raw.Number,
			"existing_id": match.ExistingID(),
			"matched_by":  match.MatchedBy,
		}).Debug("Skipping existing report")
		r.report.Record(repository.ResultSkipped)
		return
	}

	owner := r.duplicates.SlugOwner(match)
	slug, err := r.slugs.Unique(ctx, record.Title, desiredSlug, func(ctx context.Context, s string) (bool, error) {
		return p.catalog.SlugExists(ctx, s, owner)
	})
	if err != nil {
		p.failRow(r, raw.Number, record.Title, CodeLookupFailed, record, err)
		return
	}
	record.Slug = slug
	r.duplicates.Accept(record)

	p.linkTaxonomy(ctx, r, raw.Number, record)

	r.engine.Add(ctx, pendingWrite{
		row:             raw.Number,
		kind:            op.Kind,
		filter:          op.Filter,
		record:          *record,
		keepPublishDate: !HasPublishDate(fields),
	})
}

// linkTaxonomy resolves the record's category names to taxonomy nodes. Failures
// are logged and leave the free-text names in place.
func (p *Pipeline) linkTaxonomy(ctx context.Context, r *run, row int, record *models.Report) {
	if record.Category == "" {
		return
	}

	res, err := r.taxonomy.EnsureSubcategory(ctx, record.Category, record.SubCategory)
	r.report.Taxonomy(res.CategoryCreated, res.SubcategoryCreated)
	if res.Category != nil {
		id := res.Category.ID
		record.CategoryID = &id
	}
	if res.Subcategory != nil {
		id := res.Subcategory.ID
		record.SubCategoryID = &id
	}
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"row":         row,
			"category":    record.Category,
			"subcategory": record.SubCategory,
			"error":       err.Error(),
		}).Warn("Taxonomy linkage failed")
	}
}

// CheckDuplicates reports which rows already exist in the catalog without writing anything
func (p *Pipeline) CheckDuplicates(ctx context.Context, sheet *Sheet) (*models.DuplicateCheckResult, error) {
	resolver := NewFieldResolver(sheet.Headers)
	duplicates := NewDuplicateResolver(p.catalog, models.StrategyUpdate)

	result := &models.DuplicateCheckResult{
		Success:      true,
		TotalRecords: len(sheet.Rows),
		Duplicates:   make([]models.DuplicateEntry, 0),
	}
	for _, raw := range sheet.Rows {
		fields := resolver.Resolve(raw)
		title, err := ValidateTitle(raw.Number, fields.Get(FieldTitle))
		if err != nil {
			continue
		}
		baseSlug := Slugify(fields.Get(FieldSlug))
		if baseSlug == "" {
			baseSlug = Slugify(title)
		}
		reportCode := fields.Get(FieldReportCode)

		match, err := duplicates.Find(ctx, MatchFilter(title, reportCode, baseSlug))
		if err != nil {
			return nil, fmt.Errorf("row %d: duplicate lookup failed: %w", raw.Number, err)
		}
		if match == nil {
			continue
		}
		result.Duplicates = append(result.Duplicates, models.DuplicateEntry{
			Row:        raw.Number,
			Title:      title,
			ReportCode: reportCode,
			ExistingID: match.ExistingID().String(),
			MatchedBy:  match.MatchedBy,
		})
	}
	result.DuplicateCount = len(result.Duplicates)
	return result, nil
}
