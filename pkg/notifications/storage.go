package notifications

import "context"

// Storage persists records and their status transitions.
type Storage interface {
	// Create stores a new record and returns its ID. An empty ID is generated.
	Create(ctx context.Context, rec Record) (string, error)

	// Get returns the record or ErrRecordNotFound.
	Get(ctx context.Context, id string) (*Record, error)

	// UpdateStatus moves the record along Lifecycle and stamps the matching
	// timestamp. Disallowed moves return ErrInvalidTransition.
	UpdateStatus(ctx context.Context, id string, status Status, errorMessage string) error

	// MarkRead marks the record read for recipientID. It returns false for
	// unknown records and records of other recipients, and true without
	// changes when the record is already read.
	MarkRead(ctx context.Context, id string, recipientID int64) (bool, error)

	// ListForUser returns the recipient's records, newest first.
	ListForUser(ctx context.Context, recipientID int64, opts ListOptions) ([]Record, error)

	// UnreadCount counts the recipient's records whose status is not read.
	UnreadCount(ctx context.Context, recipientID int64) (int, error)
}

// ListOptions filters and paginates ListForUser.
type ListOptions struct {
	Channel Channel // empty means every channel
	Limit   int     // 0 means no limit
	Offset  int
}

// DefaultListLimit is applied by callers that expose listing to clients.
const DefaultListLimit = 50
