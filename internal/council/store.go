package council

import "errors"

// Store is the persistence contract the sequencer commits through. The
// sequencer is the sole writer during a cycle; each method is atomic at
// message-delta granularity, so a crash between two stage commits leaves
// exactly the earlier one persisted.
type Store interface {
	// Get reconstructs the full conversation, including historical model
	// selections and stage payloads.
	Get(id string) (*Conversation, error)

	// AppendUserMessage appends a user turn.
	AppendUserMessage(id, content string) error

	// AppendAssistantMessage appends a fully formed assistant message (the
	// draft-phase checkpoint record).
	AppendAssistantMessage(id string, msg Message) error

	// UpdatePendingAssistant applies fn to the most recent assistant message
	// still awaiting or undergoing execution (clarification_pending or
	// clarification_submitted) and persists the result in one atomic write.
	// Returns ErrNoPendingMessage when no such message exists.
	UpdatePendingAssistant(id string, fn func(*Message) error) error

	// SetTitle updates the conversation title.
	SetTitle(id, title string) error
}

// Store-related sentinel errors shared across implementations.
var (
	ErrNotFound         = errors.New("council: conversation not found")
	ErrNoPendingMessage = errors.New("council: no assistant message awaiting clarification")
)
