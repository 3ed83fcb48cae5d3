package store

import "time"

// Role is the author of a session message. It is deliberately a closed
// two-variant type so the mapping to the remote model's role vocabulary
// can be exhaustive.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type User struct {
	ID            int64     `json:"id"` // platform-supplied user id
	Username      string    `json:"username"`
	FirstName     string    `json:"first_name"`
	LastName      string    `json:"last_name"`
	PrivateChatID *int64    `json:"private_chat_id,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// Message is one turn of a user's rolling session. The session is stored
// as a single JSON-serialized ordered list, so Message carries no row id.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

type LikedResponse struct {
	ID         int64     `json:"id"`
	UserID     int64     `json:"user_id"`
	Question   string    `json:"question"`
	Response   string    `json:"response"`
	Liked      bool      `json:"liked"`
	UsageCount int64     `json:"usage_count"`
	CreatedAt  time.Time `json:"created_at"`
}
