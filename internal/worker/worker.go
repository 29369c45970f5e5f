package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/survey-studio/backend/internal/exports"
	"github.com/survey-studio/backend/internal/models"
	"github.com/survey-studio/backend/pkg/queue"
	"github.com/survey-studio/backend/pkg/storage"
)

// ExportStore is the persistence the processor needs.
type ExportStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Export, error)
	Rows(ctx context.Context, surveyID uuid.UUID) ([]exports.Row, error)
	MarkCompleted(ctx context.Context, id uuid.UUID, key string, size int64) error
	MarkFailed(ctx context.Context, id uuid.UUID, msg string) error
}

// ObjectStore holds rendered exports.
type ObjectStore interface {
	UploadExport(ctx context.Context, key string, body io.Reader) error
	DeleteExport(ctx context.Context, key string) error
}

// JobQueue is the source of export jobs.
type JobQueue interface {
	Dequeue(ctx context.Context) (*queue.Job, error)
	Retry(ctx context.Context, job *queue.Job) (dead bool, err error)
}

// ExportProcessor renders survey answers to CSV and uploads them.
type ExportProcessor struct {
	store   ExportStore
	objects ObjectStore
	queue   JobQueue
	backoff time.Duration
	logger  *zap.Logger
}

// NewExportProcessor creates an export job processor.
func NewExportProcessor(store ExportStore, objects ObjectStore, q JobQueue, logger *zap.Logger) *ExportProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportProcessor{store: store, objects: objects, queue: q, backoff: queue.RetryBackoff, logger: logger}
}

func decodeExport(job *queue.Job) (queue.ExportPayload, error) {
	var payload queue.ExportPayload
	if job.Type != queue.JobTypeExport {
		return payload, fmt.Errorf("unknown job type: %s", job.Type)
	}
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return payload, fmt.Errorf("unmarshal payload: %w", err)
	}
	return payload, nil
}

// Process executes one export job.
func (p *ExportProcessor) Process(ctx context.Context, job *queue.Job) error {
	payload, err := decodeExport(job)
	if err != nil {
		return err
	}

	export, err := p.store.GetByID(ctx, payload.ExportID)
	if err != nil {
		return fmt.Errorf("load export %s: %w", payload.ExportID, err)
	}
	if export.Status == models.ExportStatusCompleted {
		p.logger.Info("export already completed", zap.String("export_id", export.ID.String()))
		return nil
	}

	rows, err := p.store.Rows(ctx, export.SurveyID)
	if err != nil {
		return fmt.Errorf("load answers: %w", err)
	}
	var buf bytes.Buffer
	if err := exports.WriteCSV(&buf, rows); err != nil {
		return fmt.Errorf("render csv: %w", err)
	}
	size := int64(buf.Len())

	key := storage.ExportKey(export.SurveyID.String(), export.ID.String())
	if err := p.objects.UploadExport(ctx, key, &buf); err != nil {
		return fmt.Errorf("s3 upload: %w", err)
	}

	if err := p.store.MarkCompleted(ctx, export.ID, key, size); err != nil {
		p.logger.Error("update export result failed", zap.Error(err), zap.String("export_id", export.ID.String()))
		if delErr := p.objects.DeleteExport(ctx, key); delErr != nil {
			p.logger.Warn("delete orphaned export", zap.String("s3_key", key), zap.Error(delErr))
		}
		return fmt.Errorf("update db: %w", err)
	}

	p.logger.Info("export completed", zap.String("export_id", export.ID.String()), zap.String("s3_key", key), zap.Int("rows", len(rows)))
	return nil
}

// handle processes job and schedules a retry on failure; a job out of
// retries marks its export failed.
func (p *ExportProcessor) handle(ctx context.Context, job *queue.Job) bool {
	p.logger.Debug("processing job", zap.String("job_id", job.ID), zap.String("type", string(job.Type)))
	err := p.Process(ctx, job)
	if err == nil {
		return true
	}
	p.logger.Error("job failed", zap.String("job_id", job.ID), zap.Int("attempt", job.Attempt), zap.Error(err))
	dead, reErr := p.queue.Retry(ctx, job)
	if reErr != nil {
		p.logger.Error("retry enqueue failed", zap.Error(reErr))
		return false
	}
	if dead {
		if payload, dErr := decodeExport(job); dErr == nil {
			if mErr := p.store.MarkFailed(ctx, payload.ExportID, err.Error()); mErr != nil {
				p.logger.Error("mark export failed", zap.String("export_id", payload.ExportID.String()), zap.Error(mErr))
			}
		}
	}
	return false
}

// Run starts the worker loop: dequeue, process, retry on error.
func (p *ExportProcessor) Run(ctx context.Context) {
	p.logger.Info("export worker started")
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("export worker stopping")
			return
		default:
		}

		job, err := p.queue.Dequeue(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				continue
			}
			p.logger.Warn("dequeue error", zap.Error(err))
			p.sleep(ctx)
			continue
		}
		if job == nil {
			continue
		}
		if !p.handle(ctx, job) {
			p.sleep(ctx)
		}
	}
}

func (p *ExportProcessor) sleep(ctx context.Context) {
	t := time.NewTimer(p.backoff)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
