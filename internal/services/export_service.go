// Package services holds the orchestration that spans storage and the
// export queue.
package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"budgetbook/internal/amqp"
	"budgetbook/internal/core"
	"budgetbook/internal/ids"
	"budgetbook/internal/log"
)

// ErrExportDisabled is returned when no queue is configured.
var ErrExportDisabled = errors.New("export is not configured")

type Publisher interface {
	PublishExport(ctx context.Context, msg *amqp.ExportMessage) error
}

// ExportLog is the part of storage that keeps the export history.
type ExportLog interface {
	RecordExport(ctx context.Context, job core.ExportJob) error
	RecentExports(ctx context.Context, limit int) ([]core.ExportJob, error)
}

// ExportService hands rendered table views to the export queue and keeps a
// local record of every job.
type ExportService struct {
	publisher Publisher
	store     ExportLog
	logger    *log.Logger
}

// NewExportService builds the service. A nil publisher disables exports.
func NewExportService(publisher Publisher, store ExportLog, logger *log.Logger) *ExportService {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &ExportService{
		publisher: publisher,
		store:     store,
		logger:    logger.WithComponent(log.ComponentAMQP),
	}
}

func (s *ExportService) Enabled() bool { return s.publisher != nil }

// Export publishes one view. The job is recorded as queued, or as failed
// when the publish fails; a failed record write is logged, not returned.
func (s *ExportService) Export(ctx context.Context, title string, header []string, rows [][]string) (core.ExportJob, error) {
	if s.publisher == nil {
		return core.ExportJob{}, ErrExportDisabled
	}
	now := time.Now()
	job := core.ExportJob{
		ID:        ids.NewAt(now),
		Title:     title,
		Rows:      len(rows),
		Status:    core.ExportQueued,
		CreatedAt: now,
	}

	msg := amqp.NewExportMessage(job.ID, title, header, rows)
	pubErr := s.publisher.PublishExport(ctx, msg)
	if pubErr != nil {
		job.Status = core.ExportFailed
	}
	s.record(ctx, job)

	if pubErr != nil {
		s.logger.ErrorContext(ctx, "Failed to publish export",
			log.FieldJobID, job.ID, log.FieldError, pubErr)
		return job, fmt.Errorf("export %s: %w", title, pubErr)
	}
	s.logger.InfoContext(ctx, "Export queued",
		log.FieldOperation, log.OpExport,
		log.FieldJobID, job.ID,
		log.FieldRows, job.Rows)
	return job, nil
}

func (s *ExportService) record(ctx context.Context, job core.ExportJob) {
	if s.store == nil {
		return
	}
	if err := s.store.RecordExport(ctx, job); err != nil {
		s.logger.WarnContext(ctx, "Failed to record export job", log.FieldJobID, job.ID, log.FieldError, err)
	}
}

// Recent lists the newest export jobs.
func (s *ExportService) Recent(ctx context.Context, limit int) ([]core.ExportJob, error) {
	if s.store == nil {
		return nil, nil
	}
	return s.store.RecentExports(ctx, limit)
}

// Close closes the publisher when it holds a connection.
func (s *ExportService) Close() error {
	if c, ok := s.publisher.(io.Closer); ok {
		if err := c.Close(); err != nil {
			return fmt.Errorf("close export publisher: %w", err)
		}
	}
	return nil
}
