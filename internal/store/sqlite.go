package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

type SQLiteStore struct {
	db *sql.DB

	// go-sqlite3 does not tolerate concurrent writers well; all writes are
	// funneled through one mutex so callers never have to coordinate.
	writeMu sync.Mutex
}

func NewSQLiteStore(dataSourceName string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err = db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err = store.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) initSchema() error {
	schema := `
    CREATE TABLE IF NOT EXISTS users (
        id INTEGER PRIMARY KEY, -- platform user id, not autoincrement
        username TEXT,
        first_name TEXT,
        last_name TEXT,
        private_chat_id INTEGER,
        created_at DATETIME DEFAULT CURRENT_TIMESTAMP
    );

    CREATE TABLE IF NOT EXISTS sessions (
        user_id INTEGER PRIMARY KEY,
        messages TEXT NOT NULL, -- JSON-serialized ordered message list
        updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
        FOREIGN KEY (user_id) REFERENCES users (id)
    );

    CREATE TABLE IF NOT EXISTS liked_responses (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        user_id INTEGER NOT NULL,
        question TEXT NOT NULL,
        response TEXT NOT NULL,
        liked BOOLEAN DEFAULT TRUE,
        usage_count INTEGER DEFAULT 1,
        created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
        FOREIGN KEY (user_id) REFERENCES users (id)
    );

    CREATE INDEX IF NOT EXISTS idx_liked_responses_lookup
        ON liked_responses (user_id, question);
    `
	_, err := s.db.Exec(schema)
	return err
}

// User methods

// UpsertUser inserts the user or overwrites their display attributes.
// created_at is preserved across updates.
func (s *SQLiteStore) UpsertUser(user User) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	_, err := s.db.Exec(`
        INSERT INTO users (id, username, first_name, last_name, private_chat_id)
        VALUES (?, ?, ?, ?, ?)
        ON CONFLICT(id) DO UPDATE SET
            username = excluded.username,
            first_name = excluded.first_name,
            last_name = excluded.last_name,
            private_chat_id = COALESCE(excluded.private_chat_id, users.private_chat_id)`,
		user.ID, user.Username, user.FirstName, user.LastName, user.PrivateChatID)
	if err != nil {
		return fmt.Errorf("failed to upsert user: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetUserByID(id int64) (*User, error) {
	var user User
	var privateChatID sql.NullInt64
	err := s.db.QueryRow(
		"SELECT id, username, first_name, last_name, private_chat_id, created_at FROM users WHERE id = ?", id).
		Scan(&user.ID, &user.Username, &user.FirstName, &user.LastName, &privateChatID, &user.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // User not found
		}
		return nil, fmt.Errorf("failed to query user: %w", err)
	}
	if privateChatID.Valid {
		user.PrivateChatID = &privateChatID.Int64
	}
	return &user, nil
}

// Session methods

// LoadLatestSession returns the user's stored rolling history, oldest
// first. A user without a session gets an empty slice, not an error.
func (s *SQLiteStore) LoadLatestSession(userID int64) ([]Message, error) {
	var serialized string
	err := s.db.QueryRow("SELECT messages FROM sessions WHERE user_id = ?", userID).Scan(&serialized)
	if err != nil {
		if err == sql.ErrNoRows {
			return []Message{}, nil
		}
		return nil, fmt.Errorf("failed to query session: %w", err)
	}

	var messages []Message
	if err := json.Unmarshal([]byte(serialized), &messages); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session messages: %w", err)
	}
	return messages, nil
}

// SaveSession replaces the stored session wholesale.
func (s *SQLiteStore) SaveSession(userID int64, messages []Message) error {
	serialized, err := json.Marshal(messages)
	if err != nil {
		return fmt.Errorf("failed to marshal session messages: %w", err)
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	_, err = s.db.Exec(
		"INSERT OR REPLACE INTO sessions (user_id, messages, updated_at) VALUES (?, ?, ?)",
		userID, string(serialized), time.Now())
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

func (s *SQLiteStore) DeleteSession(userID int64) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	_, err := s.db.Exec("DELETE FROM sessions WHERE user_id = ?", userID)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// Liked response methods

// FindLikedResponse returns the liked record matching the exact user and
// question, preferring the most used and then the most recent one. Nil
// means no match.
func (s *SQLiteStore) FindLikedResponse(userID int64, question string) (*LikedResponse, error) {
	var rec LikedResponse
	err := s.db.QueryRow(`
        SELECT id, user_id, question, response, liked, usage_count, created_at
        FROM liked_responses
        WHERE user_id = ? AND question = ? AND liked = TRUE
        ORDER BY usage_count DESC, created_at DESC
        LIMIT 1`, userID, question).
		Scan(&rec.ID, &rec.UserID, &rec.Question, &rec.Response, &rec.Liked, &rec.UsageCount, &rec.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // No liked response for this question
		}
		return nil, fmt.Errorf("failed to query liked response: %w", err)
	}
	return &rec, nil
}

// RecordLikedResponse always inserts a new row with usage_count 1. Each
// like event is its own record; identical pairs are not deduplicated.
func (s *SQLiteStore) RecordLikedResponse(userID int64, question, response string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	_, err := s.db.Exec(
		"INSERT INTO liked_responses (user_id, question, response, liked, usage_count) VALUES (?, ?, ?, TRUE, 1)",
		userID, question, response)
	if err != nil {
		return fmt.Errorf("failed to insert liked response: %w", err)
	}
	return nil
}

func (s *SQLiteStore) IncrementUsage(recordID int64) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	res, err := s.db.Exec("UPDATE liked_responses SET usage_count = usage_count + 1 WHERE id = ?", recordID)
	if err != nil {
		return fmt.Errorf("failed to increment usage count: %w", err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return fmt.Errorf("liked response %d not found, usage not incremented", recordID)
	}
	return nil
}

func (s *SQLiteStore) ListLikedResponses(userID int64) ([]LikedResponse, error) {
	rows, err := s.db.Query(`
        SELECT id, user_id, question, response, liked, usage_count, created_at
        FROM liked_responses
        WHERE user_id = ?
        ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query liked responses: %w", err)
	}
	defer rows.Close()

	var records []LikedResponse
	for rows.Next() {
		var rec LikedResponse
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.Question, &rec.Response, &rec.Liked, &rec.UsageCount, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan liked response row: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
