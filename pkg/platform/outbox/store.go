package outbox

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Store persists outbox entries. Implementations must be safe for concurrent use.
type Store interface {
	// Append adds an entry. Call it inside the transaction of the business change.
	Append(ctx context.Context, entry *Entry) error

	// FetchUnprocessed returns up to limit pending entries, oldest first.
	FetchUnprocessed(ctx context.Context, limit int) ([]*Entry, error)

	MarkProcessed(ctx context.Context, id uuid.UUID, processedAt time.Time) error

	// CountPending returns the pending depth and the creation time of the
	// oldest pending entry (zero when none).
	CountPending(ctx context.Context) (int64, time.Time, error)

	// DeleteProcessedBefore prunes processed entries and returns how many went.
	DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error)
}
