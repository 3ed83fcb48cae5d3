package bot

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/kiraleos/replybot/internal/core"
	"github.com/kiraleos/replybot/internal/store"
)

const (
	greetingText = "👋 Hi! I'm an AI bot powered by Gemini. I remember our conversation, so you can talk to me like you would to a person 😉"
	clearedText  = "🧹 Conversation history cleared."
	likedAckText = "✅ Saved! I'll reuse this answer next time you ask the same question."
	notFoundText = "🤔 I can't find that response anymore, it may have been handled already."

	// cachedPrefix marks answers served from the liked cache.
	cachedPrefix = "📌 "
)

// UserStore is the slice of the persistent store the dispatcher needs.
type UserStore interface {
	UpsertUser(user store.User) error
	RecordLikedResponse(userID int64, question, response string) error
}

// Responder produces a response for a question; satisfied by *core.Resolver.
type Responder interface {
	Resolve(ctx context.Context, userID int64, question string) core.Resolution
	Regenerate(ctx context.Context, userID int64, question string) core.Resolution
}

// SessionClearer empties a user's rolling history; satisfied by
// *core.SessionCache.
type SessionClearer interface {
	Clear(userID int64)
}

// Dispatcher routes transport events to the resolver and the pending
// tracker and decides what goes back out.
type Dispatcher struct {
	users    UserStore
	resolver Responder
	sessions SessionClearer
	pending  *core.PendingTracker
}

func NewDispatcher(users UserStore, resolver Responder, sessions SessionClearer, pending *core.PendingTracker) *Dispatcher {
	return &Dispatcher{
		users:    users,
		resolver: resolver,
		sessions: sessions,
		pending:  pending,
	}
}

// OnTextMessage handles an inbound chat message and returns the reply.
func (d *Dispatcher) OnTextMessage(ctx context.Context, msg TextMessage) Outgoing {
	eventID := uuid.NewString()
	log.Info().Str("event_id", eventID).Int64("user_id", msg.UserID).Msg("text message received")

	d.upsertUser(msg.UserID, msg.ChatID, msg.Username, msg.FirstName, msg.LastName)

	text := strings.TrimSpace(msg.Text)

	// Commands are matched on the leading token so trailing arguments
	// ("/start hello") do not fall through to the model.
	command, _, _ := strings.Cut(text, " ")
	switch command {
	case "/start":
		d.sessions.Clear(msg.UserID)
		return Outgoing{Text: greetingText}
	case "/clear":
		d.sessions.Clear(msg.UserID)
		return Outgoing{Text: clearedText}
	}

	res := d.resolver.Resolve(ctx, msg.UserID, text)
	if res.Err != nil {
		return Outgoing{Text: res.Text}
	}
	if res.FromCache {
		// Already liked once; no buttons, no pending entry.
		return Outgoing{Text: cachedPrefix + res.Text}
	}
	return Outgoing{
		Text:     res.Text,
		Feedback: &FeedbackPair{Question: text, Response: res.Text},
	}
}

// OnFeedbackCallback reconciles a like/dislike tap against the pending
// tracker. Unknown or already-resolved keys are a non-fatal notice.
func (d *Dispatcher) OnFeedbackCallback(ctx context.Context, cb FeedbackCallback) FeedbackAction {
	eventID := uuid.NewString()
	log.Info().Str("event_id", eventID).Int64("user_id", cb.UserID).Str("message_id", cb.MessageID).Str("payload", cb.Payload).Msg("feedback received")

	d.upsertUser(cb.UserID, cb.ChatID, cb.Username, cb.FirstName, cb.LastName)

	pair, ok := d.pending.Resolve(cb.UserID, cb.MessageID)
	if !ok {
		return FeedbackAction{Kind: ActionSendNew, Text: notFoundText}
	}

	switch cb.Payload {
	case PayloadLike:
		if err := d.users.RecordLikedResponse(cb.UserID, pair.Question, pair.Response); err != nil {
			log.Error().Err(err).Int64("user_id", cb.UserID).Msg("failed to record liked response")
		}
		return FeedbackAction{
			Kind: ActionEditExisting,
			Text: pair.Response + "\n\n" + likedAckText,
		}
	case PayloadDislike:
		res := d.resolver.Regenerate(ctx, cb.UserID, pair.Question)
		if res.Err != nil {
			return FeedbackAction{Kind: ActionSendNew, Text: res.Text}
		}
		return FeedbackAction{
			Kind:     ActionSendNew,
			Text:     res.Text,
			Feedback: &FeedbackPair{Question: pair.Question, Response: res.Text},
		}
	default:
		log.Warn().Str("event_id", eventID).Str("payload", cb.Payload).Msg("unknown feedback payload")
		// The pair is already removed; losing it on a malformed payload is
		// the same outcome as never receiving feedback.
		return FeedbackAction{Kind: ActionSendNew, Text: notFoundText}
	}
}

// TrackOutgoing registers an emitted response under the message id the
// transport assigned to it.
func (d *Dispatcher) TrackOutgoing(userID int64, messageID string, pair FeedbackPair) {
	d.pending.Register(userID, messageID, core.Pending{Question: pair.Question, Response: pair.Response})
}

func (d *Dispatcher) upsertUser(userID, chatID int64, username, firstName, lastName string) {
	user := store.User{
		ID:        userID,
		Username:  username,
		FirstName: firstName,
		LastName:  lastName,
	}
	if chatID != 0 {
		user.PrivateChatID = &chatID
	}
	if err := d.users.UpsertUser(user); err != nil {
		log.Error().Err(err).Int64("user_id", userID).Msg("failed to upsert user")
	}
}
