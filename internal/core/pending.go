package core

import "sync"

// Pending is a question/response pair awaiting a like or dislike decision.
type Pending struct {
	Question string
	Response string
}

type pendingKey struct {
	userID    int64
	messageID string
}

// PendingTracker maps each emitted response message to its pair until
// feedback arrives. Entries are pure process memory: never persisted,
// never expired, and leaked entries for messages that never get feedback
// are acceptable.
type PendingTracker struct {
	mu      sync.Mutex
	entries map[pendingKey]Pending
}

func NewPendingTracker() *PendingTracker {
	return &PendingTracker{entries: make(map[pendingKey]Pending)}
}

func (t *PendingTracker) Register(userID int64, messageID string, pair Pending) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.entries[pendingKey{userID: userID, messageID: messageID}] = pair
}

// Resolve atomically fetches and removes the pair for the key. The
// check-and-delete is done under one lock so a redelivered callback can
// never be processed twice.
func (t *PendingTracker) Resolve(userID int64, messageID string) (Pending, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	key := pendingKey{userID: userID, messageID: messageID}
	pair, ok := t.entries[key]
	if ok {
		delete(t.entries, key)
	}
	return pair, ok
}
