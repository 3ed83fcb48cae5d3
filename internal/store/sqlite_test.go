package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestUpsertUserOverwritesDisplayFields(t *testing.T) {
	s := newTestStore(t)

	chatID := int64(100)
	require.NoError(t, s.UpsertUser(User{ID: 1, Username: "alice", FirstName: "Alice", PrivateChatID: &chatID}))

	first, err := s.GetUserByID(1)
	require.NoError(t, err)
	require.NotNil(t, first)

	// Last write wins for display attributes; created_at is preserved and
	// a nil chat id does not wipe the stored one.
	require.NoError(t, s.UpsertUser(User{ID: 1, Username: "alice2", FirstName: "Alicia", LastName: "A."}))

	updated, err := s.GetUserByID(1)
	require.NoError(t, err)
	require.Equal(t, "alice2", updated.Username)
	require.Equal(t, "Alicia", updated.FirstName)
	require.Equal(t, "A.", updated.LastName)
	require.NotNil(t, updated.PrivateChatID)
	require.Equal(t, chatID, *updated.PrivateChatID)
	require.Equal(t, first.CreatedAt, updated.CreatedAt)
}

func TestGetUserByIDMissing(t *testing.T) {
	s := newTestStore(t)

	user, err := s.GetUserByID(999)
	require.NoError(t, err)
	require.Nil(t, user)
}

func TestSessionRoundTrip(t *testing.T) {
	s := newTestStore(t)

	// No session yet: empty, not an error.
	messages, err := s.LoadLatestSession(1)
	require.NoError(t, err)
	require.Empty(t, messages)

	session := []Message{
		{Role: RoleUser, Content: "hello"},
		{Role: RoleAssistant, Content: "hi"},
	}
	require.NoError(t, s.SaveSession(1, session))

	loaded, err := s.LoadLatestSession(1)
	require.NoError(t, err)
	require.Equal(t, session, loaded)

	// Save replaces wholesale.
	require.NoError(t, s.SaveSession(1, session[:1]))
	loaded, err = s.LoadLatestSession(1)
	require.NoError(t, err)
	require.Equal(t, session[:1], loaded)

	require.NoError(t, s.DeleteSession(1))
	loaded, err = s.LoadLatestSession(1)
	require.NoError(t, err)
	require.Empty(t, loaded)
}

func TestFindLikedResponsePrefersMostUsed(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.RecordLikedResponse(1, "q", "first"))
	require.NoError(t, s.RecordLikedResponse(1, "q", "second"))

	// Bump the second record's counter; it must now win the lookup.
	records, err := s.ListLikedResponses(1)
	require.NoError(t, err)
	require.Len(t, records, 2)

	var secondID int64
	for _, rec := range records {
		if rec.Response == "second" {
			secondID = rec.ID
		}
		require.True(t, rec.Liked)
		require.Equal(t, int64(1), rec.UsageCount)
	}
	require.NoError(t, s.IncrementUsage(secondID))

	match, err := s.FindLikedResponse(1, "q")
	require.NoError(t, err)
	require.NotNil(t, match)
	require.Equal(t, "second", match.Response)
	require.Equal(t, int64(2), match.UsageCount)
}

func TestFindLikedResponseExactMatchOnly(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.RecordLikedResponse(1, "What is Go?", "A language"))

	// Different user, different case, extra whitespace: all misses.
	for _, tc := range []struct {
		userID   int64
		question string
	}{
		{2, "What is Go?"},
		{1, "what is go?"},
		{1, "What is Go? "},
	} {
		match, err := s.FindLikedResponse(tc.userID, tc.question)
		require.NoError(t, err)
		require.Nil(t, match)
	}

	match, err := s.FindLikedResponse(1, "What is Go?")
	require.NoError(t, err)
	require.NotNil(t, match)
	require.Equal(t, "A language", match.Response)
}

func TestRecordLikedResponseNeverDeduplicates(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.RecordLikedResponse(1, "q", "r"))
	require.NoError(t, s.RecordLikedResponse(1, "q", "r"))

	records, err := s.ListLikedResponses(1)
	require.NoError(t, err)
	require.Len(t, records, 2)
}

func TestIncrementUsageUnknownRecord(t *testing.T) {
	s := newTestStore(t)
	require.Error(t, s.IncrementUsage(12345))
}
