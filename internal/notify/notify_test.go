package notify

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMemoryQueue(t *testing.T) {
	q := NewMemoryQueue(3)

	q.EnqueueNotice(KindUploadRefused, "too few records")
	q.EnqueueNotice(KindEmptyRemote, "remote was empty")

	got := q.Drain()
	assert.Len(t, got, 2)
	assert.Equal(t, KindUploadRefused, got[0].Kind)
	assert.Equal(t, "too few records", got[0].Message)

	assert.Empty(t, q.Drain(), "drain empties the queue")
}

func TestMemoryQueueDropsOldestWhenFull(t *testing.T) {
	q := NewMemoryQueue(2)
	for i := range 3 {
		q.EnqueueNotice(KindEmptyRemote, fmt.Sprintf("n%d", i))
	}

	got := q.Drain()
	assert.Len(t, got, 2)
	assert.Equal(t, "n1", got[0].Message)
	assert.Equal(t, "n2", got[1].Message)
}
