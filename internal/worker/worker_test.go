package worker

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/survey-studio/backend/internal/exports"
	"github.com/survey-studio/backend/internal/models"
	"github.com/survey-studio/backend/pkg/database"
	"github.com/survey-studio/backend/pkg/queue"
)

type memStore struct {
	exports map[uuid.UUID]*models.Export
	rows    []exports.Row
	failed  map[uuid.UUID]string
}

func (s *memStore) GetByID(_ context.Context, id uuid.UUID) (*models.Export, error) {
	if e, ok := s.exports[id]; ok {
		return e, nil
	}
	return nil, database.ErrNotFound
}

func (s *memStore) Rows(context.Context, uuid.UUID) ([]exports.Row, error) {
	return s.rows, nil
}

func (s *memStore) MarkCompleted(_ context.Context, id uuid.UUID, key string, size int64) error {
	e := s.exports[id]
	e.Status, e.S3Key, e.SizeBytes = models.ExportStatusCompleted, key, size
	return nil
}

func (s *memStore) MarkFailed(_ context.Context, id uuid.UUID, msg string) error {
	s.failed[id] = msg
	return nil
}

type memObjects struct {
	objects map[string]string
	err     error
}

func (o *memObjects) UploadExport(_ context.Context, key string, body io.Reader) error {
	if o.err != nil {
		return o.err
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, body); err != nil {
		return err
	}
	o.objects[key] = buf.String()
	return nil
}

func (o *memObjects) DeleteExport(_ context.Context, key string) error {
	delete(o.objects, key)
	return nil
}

type memQueue struct {
	jobs []*queue.Job
}

func (q *memQueue) Dequeue(ctx context.Context) (*queue.Job, error) {
	if len(q.jobs) == 0 {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	job := q.jobs[0]
	q.jobs = q.jobs[1:]
	return job, nil
}

func (q *memQueue) Retry(_ context.Context, job *queue.Job) (bool, error) {
	job.Attempt++
	if job.Attempt >= queue.MaxRetries {
		return true, nil
	}
	q.jobs = append(q.jobs, job)
	return false, nil
}

func setup(t *testing.T) (*ExportProcessor, *memStore, *memObjects, *memQueue, *models.Export) {
	t.Helper()
	e := &models.Export{ID: uuid.New(), SurveyID: uuid.New(), Status: models.ExportStatusPending}
	store := &memStore{
		exports: map[uuid.UUID]*models.Export{e.ID: e},
		rows: []exports.Row{{Question: "Pizza?", Type: models.QuestionTypeMultipleChoice, Respondent: "alice", Answer: "Yes",
			AnsweredAt: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}},
		failed: map[uuid.UUID]string{},
	}
	objects := &memObjects{objects: map[string]string{}}
	q := &memQueue{}
	p := NewExportProcessor(store, objects, q, nil)
	p.backoff = time.Millisecond
	return p, store, objects, q, e
}

func exportJob(t *testing.T, e *models.Export) *queue.Job {
	t.Helper()
	job, err := queue.NewJob(queue.JobTypeExport, queue.ExportPayload{ExportID: e.ID, SurveyID: e.SurveyID})
	require.NoError(t, err)
	return job
}

func TestProcess_UploadsCSV(t *testing.T) {
	p, _, objects, _, e := setup(t)
	require.NoError(t, p.Process(context.Background(), exportJob(t, e)))

	assert.Equal(t, models.ExportStatusCompleted, e.Status)
	key := "exports/" + e.SurveyID.String() + "/" + e.ID.String() + ".csv"
	assert.Equal(t, key, e.S3Key)
	body := objects.objects[key]
	assert.True(t, strings.HasPrefix(body, "question,question_type,respondent,answer,answered_at\n"))
	assert.Contains(t, body, "Pizza?,multiple_choice,alice,Yes,2026-03-01T10:00:00Z")
	assert.Equal(t, int64(len(body)), e.SizeBytes)
}

func TestProcess_UnknownType(t *testing.T) {
	p, _, _, _, _ := setup(t)
	err := p.Process(context.Background(), &queue.Job{ID: "x", Type: "mystery"})
	assert.Error(t, err)
}

func TestRun_RetriesThenFails(t *testing.T) {
	p, store, objects, q, e := setup(t)
	objects.err = errors.New("s3 down")
	q.jobs = []*queue.Job{exportJob(t, e)}

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	p.Run(ctx)

	assert.Contains(t, store.failed[e.ID], "s3 down")
	assert.Equal(t, models.ExportStatusPending, e.Status)
}
