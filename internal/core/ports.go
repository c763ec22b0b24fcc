package core

import (
	"context"
)

// LLMClient defines the interface for the model classification tier
type LLMClient interface {
	// ClassifyText assigns one of the candidate labels to the given text
	ClassifyText(ctx context.Context, subject, snippet string, labels []Classification) (*LabelResult, error)
}

// Mailbox defines the interface for the mail store collaborator. A mailbox is
// a scoped resource: Open at the start of a poll cycle, Close on every exit path.
type Mailbox interface {
	// Open establishes the connection and selects the monitored folder
	Open(ctx context.Context) error

	// ListUnseen returns the identifiers of unseen messages
	ListUnseen(ctx context.Context) ([]uint32, error)

	// Fetch retrieves the raw message for an identifier
	Fetch(ctx context.Context, uid uint32) ([]byte, error)

	// MarkSeen flags a message as seen
	MarkSeen(ctx context.Context, uid uint32) error

	// Close releases the connection
	Close() error
}

// Notifier defines the interface for the chat notification collaborator.
// Send accepts pre-escaped markup; failures are retryable at the next cycle.
type Notifier interface {
	Send(ctx context.Context, text string) error
}

// HistoryRepository defines the interface for the processed-message store
type HistoryRepository interface {
	// Record persists a processed message; a duplicate ID is silently ignored
	Record(ctx context.Context, rec *MessageRecord) error

	// CountForDate returns how many messages were recorded for a calendar date
	CountForDate(ctx context.Context, date string) (int, error)

	// Purge removes rows for dates strictly before the given date and
	// returns how many were deleted
	Purge(ctx context.Context, before string) (int64, error)

	// Close releases the store
	Close() error
}
