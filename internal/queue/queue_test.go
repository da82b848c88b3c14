package queue

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBackupJobStampsPathAndTime(t *testing.T) {
	job := NewBackupJob("my_db.db")

	assert.NotEmpty(t, job.ID)
	assert.Equal(t, "my_db.db", job.DBPath)
	assert.WithinDuration(t, time.Now(), job.RequestedAt, time.Second)
}

func TestInMemoryRoundTrip(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	q := NewInMemory(4)
	sent := NewBackupJob("my_db.db")
	require.NoError(t, q.Publish(ctx, sent))

	jobs, err := q.Consume(ctx)
	require.NoError(t, err)

	select {
	case job := <-jobs:
		assert.Equal(t, sent.ID, job.ID)
		assert.Equal(t, "my_db.db", job.DBPath)
	case <-time.After(time.Second):
		t.Fatal("no job received")
	}
}

func TestInMemoryPublishHonorsContext(t *testing.T) {
	q := NewInMemory(1)
	ctx, cancel := context.WithCancel(context.Background())

	require.NoError(t, q.Publish(ctx, NewBackupJob("my_db.db")))
	cancel()
	err := q.Publish(ctx, NewBackupJob("my_db.db"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestInMemoryAlwaysHealthy(t *testing.T) {
	q := NewInMemory(1)
	assert.True(t, q.Healthy(context.Background()))
}

func TestJobCodecRoundTrip(t *testing.T) {
	sent := NewBackupJob("data/visits.db")

	data, err := encodeJob(sent)
	require.NoError(t, err)

	job, err := decodeJob(data)
	require.NoError(t, err)
	assert.Equal(t, sent.ID, job.ID)
	assert.Equal(t, sent.DBPath, job.DBPath)
	assert.True(t, sent.RequestedAt.Equal(job.RequestedAt))
}

func TestDecodeJobRejectsGarbage(t *testing.T) {
	_, err := decodeJob([]byte("backup|job-1"))
	assert.Error(t, err)
}
