package bot

// Transport-neutral event and action types. The transport adapter maps
// its SDK's updates onto these and renders the results back.

// Fixed payload tokens carried by the like/dislike buttons.
const (
	PayloadLike    = "feedback_like"
	PayloadDislike = "feedback_dislike"
)

// TextMessage is an inbound chat message.
type TextMessage struct {
	UserID    int64
	ChatID    int64
	Username  string
	FirstName string
	LastName  string
	Text      string
}

// FeedbackCallback is an inbound button tap on a previously sent message.
type FeedbackCallback struct {
	UserID    int64
	ChatID    int64
	MessageID string // id of the message the buttons were attached to
	Payload   string
	Username  string
	FirstName string
	LastName  string
}

// FeedbackPair is the question/response pair to track once the transport
// knows the id of the message it sent.
type FeedbackPair struct {
	Question string
	Response string
}

// Outgoing is the reply to a text message. When Feedback is non-nil the
// transport attaches the like/dislike buttons and registers the sent
// message id via TrackOutgoing.
type Outgoing struct {
	Text     string
	Feedback *FeedbackPair
}

// ActionKind tells the transport how to render a feedback result.
type ActionKind int

const (
	// ActionEditExisting replaces the text of the message the feedback was
	// attached to, dropping its buttons.
	ActionEditExisting ActionKind = iota
	// ActionSendNew emits a fresh message.
	ActionSendNew
)

// FeedbackAction is the reply to a feedback callback.
type FeedbackAction struct {
	Kind     ActionKind
	Text     string
	Feedback *FeedbackPair // set on regeneration, same contract as Outgoing
}
