package bot

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kiraleos/replybot/internal/core"
	"github.com/kiraleos/replybot/internal/store"
)

type fakeUserStore struct {
	upserts []store.User
	liked   []store.LikedResponse
}

func (f *fakeUserStore) UpsertUser(user store.User) error {
	f.upserts = append(f.upserts, user)
	return nil
}

func (f *fakeUserStore) RecordLikedResponse(userID int64, question, response string) error {
	f.liked = append(f.liked, store.LikedResponse{UserID: userID, Question: question, Response: response, Liked: true, UsageCount: 1})
	return nil
}

type fakeResponder struct {
	resolution  core.Resolution
	resolves    int
	regenerates int
}

func (f *fakeResponder) Resolve(ctx context.Context, userID int64, question string) core.Resolution {
	f.resolves++
	return f.resolution
}

func (f *fakeResponder) Regenerate(ctx context.Context, userID int64, question string) core.Resolution {
	f.regenerates++
	return f.resolution
}

type fakeClearer struct {
	cleared []int64
}

func (f *fakeClearer) Clear(userID int64) {
	f.cleared = append(f.cleared, userID)
}

func newTestDispatcher(responder *fakeResponder) (*Dispatcher, *fakeUserStore, *fakeClearer, *core.PendingTracker) {
	users := &fakeUserStore{}
	clearer := &fakeClearer{}
	pending := core.NewPendingTracker()
	return NewDispatcher(users, responder, clearer, pending), users, clearer, pending
}

func TestStartCommandClearsSession(t *testing.T) {
	responder := &fakeResponder{}
	d, users, clearer, _ := newTestDispatcher(responder)

	out := d.OnTextMessage(context.Background(), TextMessage{UserID: 1, ChatID: 10, Text: "/start"})
	require.Equal(t, greetingText, out.Text)
	require.Nil(t, out.Feedback)
	require.Equal(t, []int64{1}, clearer.cleared)
	require.Zero(t, responder.resolves)
	require.Len(t, users.upserts, 1)
}

func TestCommandWithTrailingArguments(t *testing.T) {
	responder := &fakeResponder{}
	d, _, clearer, _ := newTestDispatcher(responder)

	// "/start hello" is still the start command, not a question.
	out := d.OnTextMessage(context.Background(), TextMessage{UserID: 2, Text: "/start hello"})
	require.Equal(t, greetingText, out.Text)
	require.Equal(t, []int64{2}, clearer.cleared)
	require.Zero(t, responder.resolves)
}

func TestClearCommand(t *testing.T) {
	d, _, clearer, _ := newTestDispatcher(&fakeResponder{})

	out := d.OnTextMessage(context.Background(), TextMessage{UserID: 4, Text: "/clear"})
	require.Equal(t, clearedText, out.Text)
	require.Equal(t, []int64{4}, clearer.cleared)
}

func TestTextMessageAttachesFeedback(t *testing.T) {
	responder := &fakeResponder{resolution: core.Resolution{Text: "hi"}}
	d, users, _, _ := newTestDispatcher(responder)

	out := d.OnTextMessage(context.Background(), TextMessage{
		UserID: 1, ChatID: 10, Username: "alice", FirstName: "Alice", Text: "hello",
	})
	require.Equal(t, "hi", out.Text)
	require.NotNil(t, out.Feedback)
	require.Equal(t, "hello", out.Feedback.Question)
	require.Equal(t, "hi", out.Feedback.Response)

	require.Len(t, users.upserts, 1)
	require.Equal(t, "alice", users.upserts[0].Username)
	require.NotNil(t, users.upserts[0].PrivateChatID)
	require.Equal(t, int64(10), *users.upserts[0].PrivateChatID)
}

func TestCachedAnswerIsDecoratedWithoutFeedback(t *testing.T) {
	responder := &fakeResponder{resolution: core.Resolution{Text: "Paris", FromCache: true}}
	d, _, _, _ := newTestDispatcher(responder)

	out := d.OnTextMessage(context.Background(), TextMessage{UserID: 1, Text: "capital?"})
	require.True(t, strings.HasPrefix(out.Text, cachedPrefix))
	require.Contains(t, out.Text, "Paris")
	require.Nil(t, out.Feedback)
}

func TestFailedResolutionHasNoFeedback(t *testing.T) {
	responder := &fakeResponder{resolution: core.Resolution{
		Text: core.RemoteTimeout.UserMessage(),
		Err:  context.DeadlineExceeded,
	}}
	d, _, _, _ := newTestDispatcher(responder)

	out := d.OnTextMessage(context.Background(), TextMessage{UserID: 1, Text: "slow"})
	require.Equal(t, core.RemoteTimeout.UserMessage(), out.Text)
	require.Nil(t, out.Feedback)
}

func TestLikeFlowRecordsOnceAndEdits(t *testing.T) {
	responder := &fakeResponder{}
	d, users, _, _ := newTestDispatcher(responder)

	d.TrackOutgoing(1, "msg-5", FeedbackPair{Question: "q", Response: "r"})

	action := d.OnFeedbackCallback(context.Background(), FeedbackCallback{
		UserID: 1, MessageID: "msg-5", Payload: PayloadLike,
	})
	require.Equal(t, ActionEditExisting, action.Kind)
	require.Contains(t, action.Text, "r")
	require.Contains(t, action.Text, likedAckText)
	require.Nil(t, action.Feedback)

	require.Len(t, users.liked, 1)
	require.Equal(t, "q", users.liked[0].Question)
	require.Equal(t, "r", users.liked[0].Response)
	require.True(t, users.liked[0].Liked)
	require.Equal(t, int64(1), users.liked[0].UsageCount)

	// Redelivered callback: key already resolved, nothing recorded twice.
	action = d.OnFeedbackCallback(context.Background(), FeedbackCallback{
		UserID: 1, MessageID: "msg-5", Payload: PayloadLike,
	})
	require.Equal(t, ActionSendNew, action.Kind)
	require.Equal(t, notFoundText, action.Text)
	require.Len(t, users.liked, 1)
}

func TestDislikeFlowRegeneratesAndReregisters(t *testing.T) {
	responder := &fakeResponder{resolution: core.Resolution{Text: "better answer"}}
	d, users, _, pending := newTestDispatcher(responder)

	d.TrackOutgoing(1, "msg-5", FeedbackPair{Question: "q", Response: "bad answer"})

	action := d.OnFeedbackCallback(context.Background(), FeedbackCallback{
		UserID: 1, MessageID: "msg-5", Payload: PayloadDislike,
	})
	require.Equal(t, ActionSendNew, action.Kind)
	require.Equal(t, "better answer", action.Text)
	require.NotNil(t, action.Feedback)
	require.Equal(t, "q", action.Feedback.Question)
	require.Equal(t, "better answer", action.Feedback.Response)

	require.Equal(t, 1, responder.regenerates)
	require.Zero(t, responder.resolves)
	require.Empty(t, users.liked)

	// Old key is gone; the transport registers the new message separately.
	_, ok := pending.Resolve(1, "msg-5")
	require.False(t, ok)

	d.TrackOutgoing(1, "msg-6", *action.Feedback)
	pair, ok := pending.Resolve(1, "msg-6")
	require.True(t, ok)
	require.Equal(t, "q", pair.Question)
}

func TestDislikeRegenerationFailure(t *testing.T) {
	responder := &fakeResponder{resolution: core.Resolution{
		Text: core.RemoteNetworkError.UserMessage(),
		Err:  context.DeadlineExceeded,
	}}
	d, _, _, _ := newTestDispatcher(responder)

	d.TrackOutgoing(1, "msg-5", FeedbackPair{Question: "q", Response: "bad"})

	action := d.OnFeedbackCallback(context.Background(), FeedbackCallback{
		UserID: 1, MessageID: "msg-5", Payload: PayloadDislike,
	})
	require.Equal(t, ActionSendNew, action.Kind)
	require.Equal(t, core.RemoteNetworkError.UserMessage(), action.Text)
	require.Nil(t, action.Feedback)
}

func TestFeedbackUnknownKey(t *testing.T) {
	d, _, _, _ := newTestDispatcher(&fakeResponder{})

	action := d.OnFeedbackCallback(context.Background(), FeedbackCallback{
		UserID: 1, MessageID: "never-sent", Payload: PayloadLike,
	})
	require.Equal(t, ActionSendNew, action.Kind)
	require.Equal(t, notFoundText, action.Text)
}
