package importer

import (
	"context"
	"errors"

	"reports-service/internal/models"
	"reports-service/internal/repository"

	"github.com/sirupsen/logrus"
)

// BatchSize picks the batch size for total rows: larger files get smaller batches
func (o Options) BatchSize(total int) int {
	switch {
	case total > o.LargeThreshold:
		return o.LargeBatch
	case total > o.MediumThreshold:
		return o.MediumBatch
	default:
		return o.SmallBatch
	}
}

// pendingWrite is a resolved row waiting for its batch to flush. The record is
// held by value so a failed batch can be replayed from a clean copy.
type pendingWrite struct {
	row             int
	kind            repository.OpKind
	filter          repository.ReportFilter
	record          models.Report
	keepPublishDate bool
}

func (p *pendingWrite) op() repository.WriteOp {
	record := p.record
	return repository.WriteOp{Kind: p.kind, Filter: p.filter, Record: &record, KeepPublishDate: p.keepPublishDate}
}

// BatchEngine groups writes into bulk operations and falls back to per-record
// writes when a bulk operation fails
type BatchEngine struct {
	store   repository.CatalogStore
	size    int
	report  *ReportBuilder
	log     *logrus.Entry
	pending []pendingWrite

	batches   int
	fallbacks int
}

func NewBatchEngine(store repository.CatalogStore, size int, report *ReportBuilder, log *logrus.Entry) *BatchEngine {
	if size < 1 {
		size = 1
	}
	return &BatchEngine{
		store:   store,
		size:    size,
		report:  report,
		log:     log,
		pending: make([]pendingWrite, 0, size),
	}
}

// Add queues a write and flushes when the batch is full
func (e *BatchEngine) Add(ctx context.Context, p pendingWrite) {
	e.pending = append(e.pending, p)
	if len(e.pending) >= e.size {
		e.Flush(ctx)
	}
}

// Flush writes the queued batch
func (e *BatchEngine) Flush(ctx context.Context) {
	if len(e.pending) == 0 {
		return
	}
	e.batches++
	batch := e.pending
	e.pending = make([]pendingWrite, 0, e.size)

	ops := make([]repository.WriteOp, len(batch))
	for i := range batch {
		ops[i] = batch[i].op()
	}

	outcomes, err := e.store.BulkWrite(ctx, ops)
	if err == nil && len(outcomes) == len(batch) {
		for _, outcome := range outcomes {
			e.report.Record(outcome.Result)
		}
		return
	}
	if err == nil {
		err = errors.New("bulk write returned a short outcome list")
	}

	e.fallbacks++
	batchErr := &BatchWriteError{Batch: e.batches, Size: len(batch), Err: err}
	e.log.WithFields(logrus.Fields{
		"batch": e.batches,
		"size":  len(batch),
		"error": err.Error(),
	}).Warn("Bulk write failed, retrying records individually")

	for i := range batch {
		e.applyOne(ctx, &batch[i], batchErr)
	}
}

func (e *BatchEngine) applyOne(ctx context.Context, p *pendingWrite, batchErr *BatchWriteError) {
	outcome, err := e.store.Apply(ctx, p.op())
	if err == nil {
		e.report.Record(outcome.Result)
		return
	}

	code := CodeWriteFailed
	var rowErr error = err
	if errors.Is(err, repository.ErrDuplicateKey) {
		code = CodeDuplicateKey
		rowErr = &DuplicateKeyError{Row: p.row, Err: err}
	}
	e.log.WithFields(logrus.Fields{
		"row":         p.row,
		"title":       p.record.Title,
		"report_code": p.record.ReportCode,
		"batch":       batchErr.Batch,
		"error":       rowErr.Error(),
	}).Warn("Record write failed")

	e.report.Fail(models.ImportRowError{
		Row:        p.row,
		Title:      p.record.Title,
		ReportCode: p.record.ReportCode,
		Code:       code,
		Message:    rowErr.Error(),
	})
}

// Stats returns the number of flushed batches and how many needed fallback
func (e *BatchEngine) Stats() (batches, fallbacks int) {
	return e.batches, e.fallbacks
}
