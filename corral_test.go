package corral

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corralhq/corral/pkg/errors"
	"github.com/corralhq/corral/pkg/pipeline"
	"github.com/corralhq/corral/pkg/records"
	"github.com/corralhq/corral/pkg/store"
)

func rec(name string) *records.Record {
	return records.FromMap(
		map[string]string{records.FieldName: name},
		[]string{records.FieldName},
	)
}

func TestNewDefaults(t *testing.T) {
	c, err := New()
	require.NoError(t, err)
	assert.NotNil(t, c.Schema())
	assert.Nil(t, c.Buckets())
}

func TestDeduplicatePersists(t *testing.T) {
	mem := store.NewMemory()
	require.NoError(t, mem.Save([]*records.Record{rec("Thala"), rec("thala")}, "aptos"))

	c, err := New(WithStore(mem))
	require.NoError(t, err)

	result, err := c.Deduplicate("aptos")
	require.NoError(t, err)
	assert.Equal(t, 1, result.ExactRemoved)

	recs, err := c.Records("aptos")
	require.NoError(t, err)
	assert.Len(t, recs, 1)
}

func TestExpandRequiresCatalogSource(t *testing.T) {
	c, err := New()
	require.NoError(t, err)

	_, err = c.Expand(context.Background(), "aptos")
	assert.True(t, errors.IsValidationError(err))
}

func TestRunPipelineRoundTrip(t *testing.T) {
	mem := store.NewMemory()
	require.NoError(t, mem.Save([]*records.Record{rec("Thala")}, "aptos"))

	c, err := New(WithStore(mem))
	require.NoError(t, err)

	id, err := c.RunPipeline(context.Background(), "aptos", []pipeline.Step{&pipeline.NotesCleanupStep{}}, pipeline.Options{})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		job, err := c.Job(id)
		require.NoError(t, err)
		return job.Status == pipeline.StatusCompleted
	}, 5*time.Second, 5*time.Millisecond)
}

func TestSessionsShareStore(t *testing.T) {
	c, err := New(WithSessionTTL(time.Minute))
	require.NoError(t, err)

	s := c.Sessions().Create()

	got, err := c.Sessions().Get(s.ID)
	require.NoError(t, err)
	assert.Equal(t, s.ID, got.ID)
}
