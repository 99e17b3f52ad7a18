package repository

import "context"

// InboxRepository is the dedup ledger behind the idempotent consumer. A row
// keyed by (messageID, consumerType) is proof the message was fully
// processed by that consumer. The insert itself is staged on the unit of
// work so ledger and side effects commit or roll back together.
type InboxRepository interface {
	Seen(ctx context.Context, messageID, consumerType string) (bool, error)
}
