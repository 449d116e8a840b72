package model

type MessageRole string

const (
	MessageRoleUser   = MessageRole("user")
	MessageRoleSystem = MessageRole("system")
)

// Message is one entry of a chat session log. ID is a monotonic ordering
// key (unix milliseconds at creation, bumped on collision). Messages are
// never mutated after they are appended to a session.
type Message struct {
	ID      int64
	Role    MessageRole
	Content string
	Avatar  string
}
