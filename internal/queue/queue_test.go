package queue

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnqueuePreservesOrder(t *testing.T) {
	q := New(4)

	require.True(t, q.Enqueue("job-1"))
	require.True(t, q.Enqueue("job-2"))
	require.True(t, q.Enqueue("job-3"))
	assert.Equal(t, 3, q.Len())

	assert.Equal(t, "job-1", <-q.Wait())
	assert.Equal(t, "job-2", <-q.Wait())
	assert.Equal(t, "job-3", <-q.Wait())
	assert.Zero(t, q.Len())
}

func TestEnqueueFullBufferDoesNotBlock(t *testing.T) {
	q := New(2)

	require.True(t, q.Enqueue("job-1"))
	require.True(t, q.Enqueue("job-2"))

	assert.False(t, q.Enqueue("job-3"))
	assert.Equal(t, 2, q.Len())

	// Draining makes room again.
	<-q.Wait()
	assert.True(t, q.Enqueue("job-3"))
}

func TestNewDefaultSize(t *testing.T) {
	q := New(0)
	for i := 0; i < DefaultSize; i++ {
		require.True(t, q.Enqueue("job"))
	}
	assert.False(t, q.Enqueue("overflow"))
}
