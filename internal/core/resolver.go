package core

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"github.com/kiraleos/replybot/internal/store"
)

// PromptWindow is how many trailing session entries are sent to the
// remote model alongside the new question.
const PromptWindow = 10

// LikedStore is the slice of the persistent store the resolver needs for
// the reuse path.
type LikedStore interface {
	FindLikedResponse(userID int64, question string) (*store.LikedResponse, error)
	IncrementUsage(recordID int64) error
}

// Resolution is the resolver's answer for one question. Text is always
// what the user should see; Err is non-nil when Text describes a failure.
type Resolution struct {
	Text      string
	FromCache bool
	Err       error
}

// Resolver decides, per question, between reusing a previously liked
// response and invoking the remote model.
type Resolver struct {
	likes   LikedStore
	cache   *SessionCache
	gen     Generator // nil when no remote model is configured
	sem     *semaphore.Weighted
	timeout time.Duration
}

func NewResolver(likes LikedStore, cache *SessionCache, gen Generator, workers int, timeout time.Duration) *Resolver {
	if workers < 1 {
		workers = 1
	}
	return &Resolver{
		likes:   likes,
		cache:   cache,
		gen:     gen,
		sem:     semaphore.NewWeighted(int64(workers)),
		timeout: timeout,
	}
}

// Resolve answers the question, preferring an exact-match liked response.
// Liked hits are canonical facts, not conversation turns: they are served
// without touching the rolling session.
func (r *Resolver) Resolve(ctx context.Context, userID int64, question string) Resolution {
	rec, err := r.likes.FindLikedResponse(userID, question)
	if err != nil {
		log.Error().Err(err).Int64("user_id", userID).Msg("liked response lookup failed, falling back to generation")
	} else if rec != nil {
		if err := r.likes.IncrementUsage(rec.ID); err != nil {
			log.Error().Err(err).Int64("record_id", rec.ID).Msg("failed to increment liked response usage")
		}
		log.Debug().Int64("user_id", userID).Int64("record_id", rec.ID).Msg("serving liked response")
		return Resolution{Text: rec.Response, FromCache: true}
	}

	return r.generate(ctx, userID, question)
}

// Regenerate skips the liked-response lookup so a just-disliked answer
// cannot be served right back.
func (r *Resolver) Regenerate(ctx context.Context, userID int64, question string) Resolution {
	return r.generate(ctx, userID, question)
}

func (r *Resolver) generate(ctx context.Context, userID int64, question string) Resolution {
	if r.gen == nil {
		return Resolution{Text: RemoteUnavailable.UserMessage(), Err: ErrRemoteUnavailable}
	}

	// Hold the per-user flight lock across the whole read-generate-append
	// sequence; concurrent questions from one user serialize here while
	// other users' calls stay in flight.
	r.cache.Lock(userID)
	defer r.cache.Unlock(userID)

	turns := r.promptTurns(userID, question)

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if err := r.sem.Acquire(ctx, 1); err != nil {
		// Timed out waiting for a worker slot; the session is untouched.
		return r.failure(userID, err)
	}
	reply, err := r.gen.Generate(ctx, turns)
	r.sem.Release(1)
	if err != nil {
		return r.failure(userID, err)
	}

	r.cache.Append(userID, store.Message{Role: store.RoleUser, Content: question})
	r.cache.Append(userID, store.Message{Role: store.RoleAssistant, Content: reply})
	r.cache.Persist(userID)

	return Resolution{Text: reply}
}

// promptTurns maps the last PromptWindow session entries to the remote
// model's role vocabulary and appends the question as the final user turn.
func (r *Resolver) promptTurns(userID int64, question string) []PromptTurn {
	history := r.cache.Get(userID)
	if len(history) > PromptWindow {
		history = history[len(history)-PromptWindow:]
	}

	turns := make([]PromptTurn, 0, len(history)+1)
	for _, msg := range history {
		role := "user"
		if msg.Role == store.RoleAssistant {
			role = "model"
		}
		turns = append(turns, PromptTurn{Role: role, Text: msg.Content})
	}
	return append(turns, PromptTurn{Role: "user", Text: question})
}

func (r *Resolver) failure(userID int64, err error) Resolution {
	category := ClassifyRemoteError(err)
	log.Error().Err(err).Int64("user_id", userID).Str("category", category.String()).Msg("remote generation failed")
	return Resolution{Text: category.UserMessage(), Err: err}
}
