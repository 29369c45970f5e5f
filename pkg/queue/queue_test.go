package queue

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewJob(t *testing.T) {
	payload := ExportPayload{ExportID: uuid.New(), SurveyID: uuid.New()}
	job, err := NewJob(JobTypeExport, payload)
	require.NoError(t, err)

	assert.Equal(t, JobTypeExport, job.Type)
	assert.Zero(t, job.Attempt)
	_, err = uuid.Parse(job.ID)
	assert.NoError(t, err)

	var got ExportPayload
	require.NoError(t, json.Unmarshal(job.Payload, &got))
	assert.Equal(t, payload, got)
}
