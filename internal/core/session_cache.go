package core

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/kiraleos/replybot/internal/store"
)

// SessionCap is the maximum rolling-history length per user. Appends
// beyond the cap evict from the front before anything is persisted.
const SessionCap = 20

// SessionStore is the slice of the persistent store the cache needs.
type SessionStore interface {
	LoadLatestSession(userID int64) ([]store.Message, error)
	SaveSession(userID int64, messages []store.Message) error
	DeleteSession(userID int64) error
}

// SessionCache holds the process-local working copy of each user's rolling
// session. Entries are hydrated lazily on first access and never re-read
// from storage afterwards: this process is the single writer, so the
// in-memory copy stays authoritative even if persistence starts failing.
type SessionCache struct {
	store SessionStore

	mu       sync.Mutex
	sessions map[int64]*userSession
}

type userSession struct {
	// flight serializes one user's whole read-generate-append sequence;
	// mu only guards the messages slice for individual operations.
	flight   sync.Mutex
	mu       sync.Mutex
	loaded   bool
	messages []store.Message
}

func NewSessionCache(sessionStore SessionStore) *SessionCache {
	return &SessionCache{
		store:    sessionStore,
		sessions: make(map[int64]*userSession),
	}
}

func (c *SessionCache) entry(userID int64) *userSession {
	c.mu.Lock()
	defer c.mu.Unlock()

	sess, ok := c.sessions[userID]
	if !ok {
		sess = &userSession{}
		c.sessions[userID] = sess
	}
	return sess
}

// Lock takes the per-user flight lock. Callers doing a read-modify-write
// across Get/Append/Persist must hold it so concurrent questions from the
// same user cannot interleave; distinct users are never serialized against
// each other. Clear stays outside this serialization on purpose: an
// explicit reset must not block behind an in-flight generation, at the
// cost that such a generation re-appends its exchange afterwards.
func (c *SessionCache) Lock(userID int64) {
	c.entry(userID).flight.Lock()
}

func (c *SessionCache) Unlock(userID int64) {
	c.entry(userID).flight.Unlock()
}

// Get returns a copy of the user's rolling history, hydrating it from the
// store on the first access in this process lifetime.
func (c *SessionCache) Get(userID int64) []store.Message {
	sess := c.entry(userID)
	sess.mu.Lock()
	defer sess.mu.Unlock()

	c.hydrateLocked(userID, sess)
	return append([]store.Message(nil), sess.messages...)
}

func (c *SessionCache) hydrateLocked(userID int64, sess *userSession) {
	if sess.loaded {
		return
	}
	messages, err := c.store.LoadLatestSession(userID)
	if err != nil {
		// Start from an empty history; the store stays untouched until the
		// next successful persist.
		log.Error().Err(err).Int64("user_id", userID).Msg("failed to load session, starting empty")
		messages = []store.Message{}
	}
	sess.messages = messages
	sess.loaded = true
}

// Append adds a message to the user's history, evicting oldest-first so
// the cap is enforced before the caller persists.
func (c *SessionCache) Append(userID int64, msg store.Message) {
	sess := c.entry(userID)
	sess.mu.Lock()
	defer sess.mu.Unlock()

	c.hydrateLocked(userID, sess)
	sess.messages = append(sess.messages, msg)
	if len(sess.messages) > SessionCap {
		sess.messages = sess.messages[len(sess.messages)-SessionCap:]
	}
}

// Persist writes the in-memory state through to the store. Write failures
// are logged and swallowed: the cache remains the source of truth for the
// rest of the process lifetime, history just may not survive a restart.
func (c *SessionCache) Persist(userID int64) {
	sess := c.entry(userID)
	sess.mu.Lock()
	defer sess.mu.Unlock()

	if err := c.store.SaveSession(userID, sess.messages); err != nil {
		log.Error().Err(err).Int64("user_id", userID).Msg("session persist failed, keeping in-memory state")
	}
}

// Clear empties the user's history and removes the backing record. It
// does not take the flight lock; see Lock.
func (c *SessionCache) Clear(userID int64) {
	sess := c.entry(userID)
	sess.mu.Lock()
	defer sess.mu.Unlock()

	sess.messages = []store.Message{}
	sess.loaded = true
	if err := c.store.DeleteSession(userID); err != nil {
		log.Error().Err(err).Int64("user_id", userID).Msg("failed to delete stored session")
	}
}
