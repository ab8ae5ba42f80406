// Package notify decouples sync-layer warnings from their presentation.
// The sync manager enqueues notices; the UI layer drains and renders them.
package notify

import "sync"

// Kinds of notices the sync layer emits.
const (
	KindUploadRefused  = "upload_refused"
	KindEmptyRemote    = "empty_remote"
	KindDuplicateNames = "duplicate_names"
)

// Notice is one user-visible event.
type Notice struct {
	Kind    string
	Message string
}

// Notifier receives user-visible notices from background operations.
type Notifier interface {
	EnqueueNotice(kind, message string)
}

// MemoryQueue is a bounded in-process notice queue. When full, the oldest
// notice is dropped.
type MemoryQueue struct {
	mu      sync.Mutex
	max     int
	notices []Notice
}

func NewMemoryQueue(max int) *MemoryQueue {
	if max <= 0 {
		max = 100
	}
	return &MemoryQueue{max: max}
}

func (q *MemoryQueue) EnqueueNotice(kind, message string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.notices = append(q.notices, Notice{Kind: kind, Message: message})
	if len(q.notices) > q.max {
		q.notices = q.notices[1:]
	}
}

// Drain returns all pending notices and empties the queue.
func (q *MemoryQueue) Drain() []Notice {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.notices
	q.notices = nil
	return out
}
