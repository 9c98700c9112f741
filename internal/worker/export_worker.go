// Package worker consumes queued table exports and writes them to a sheet
// sink.
package worker

import (
	"context"
	"fmt"

	"budgetbook/internal/amqp"
	"budgetbook/internal/core"
	"budgetbook/internal/log"
	"budgetbook/internal/sheets"
)

// ExportLog records the outcome of each job.
type ExportLog interface {
	RecordExport(ctx context.Context, job core.ExportJob) error
}

type ExportWorker struct {
	sink   sheets.TableWriter
	store  ExportLog
	logger *log.Logger
}

// NewExportWorker builds a worker. store may be nil.
func NewExportWorker(sink sheets.TableWriter, store ExportLog, logger *log.Logger) *ExportWorker {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &ExportWorker{sink: sink, store: store, logger: logger.WithComponent(log.ComponentWorker)}
}

// HandleExportMessage writes one view into the tab named after the job.
// The tab is overwritten, so a redelivered message is harmless.
func (w *ExportWorker) HandleExportMessage(ctx context.Context, msg *amqp.ExportMessage) error {
	tab := sheets.TabName(msg.Title, msg.JobID)
	w.logger.InfoContext(ctx, "Processing export message",
		log.FieldJobID, msg.JobID,
		log.FieldRows, len(msg.Rows),
		"tab", tab)

	job := core.ExportJob{
		ID:        msg.JobID,
		Title:     msg.Title,
		Rows:      len(msg.Rows),
		CreatedAt: msg.Timestamp,
	}
	ref, err := w.sink.WriteTable(ctx, sheets.Table{Name: tab, Header: msg.Header, Rows: msg.Rows})
	if err != nil {
		job.Status = core.ExportFailed
		w.record(ctx, job)
		return fmt.Errorf("write export %s: %w", msg.JobID, err)
	}

	job.Status, job.Ref = core.ExportWritten, ref
	w.record(ctx, job)
	w.logger.InfoContext(ctx, "Export written", log.FieldJobID, msg.JobID, "ref", ref)
	return nil
}

func (w *ExportWorker) record(ctx context.Context, job core.ExportJob) {
	if w.store == nil {
		return
	}
	if err := w.store.RecordExport(ctx, job); err != nil {
		w.logger.WarnContext(ctx, "Failed to record export outcome", log.FieldJobID, job.ID, log.FieldError, err)
	}
}
