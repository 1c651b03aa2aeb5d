package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/task-management-api/internal/model"
	"github.com/iliyamo/task-management-api/internal/queue"
)

// RefreshTokenOps is the set of refresh-token table operations TokenService
// consumes. Every call runs inside the transaction opened by
// RefreshTokenStore.Atomic, so a lookup followed by Link or DeleteChain is one
// atomic unit: two concurrent redemptions of the same token cannot both
// observe it unspent.
type RefreshTokenOps interface {
	// Create persists a new record, assigning its id.
	Create(ctx context.Context, token *model.RefreshToken) error
	// FindLiveByID returns the record with the given id only if it has not
	// expired at `now` and its owner's status is ACTIVE. Returns (nil, nil)
	// when no such record exists. The row is locked for the remainder of the
	// transaction.
	FindLiveByID(ctx context.Context, id uuid.UUID, now time.Time) (*model.RefreshToken, error)
	// FindByID returns the record with the given id without any expiry or
	// owner-status filter, or (nil, nil) when absent. The row is locked for
	// the remainder of the transaction.
	FindByID(ctx context.Context, id uuid.UUID) (*model.RefreshToken, error)
	// Link records that `oldID` was redeemed for `nextID` by setting the old
	// record's next pointer. The pointer is set at most once.
	Link(ctx context.Context, oldID, nextID uuid.UUID) error
	// DeleteChain deletes the record with id `root` and, following next
	// pointers, every descendant. Traversal is iterative.
	DeleteChain(ctx context.Context, root uuid.UUID) error
}

// RefreshTokenStore opens named atomic scopes over the refresh-token table.
// fn returning an error aborts the scope and rolls everything back; business
// outcomes whose side effects must persist (replay containment, chain
// deletion on logout) return nil from fn and report the outcome out of band.
type RefreshTokenStore interface {
	Atomic(ctx context.Context, fn func(ops RefreshTokenOps) error) error
}

// UserDirectory is the slice of the user store the token service needs:
// flipping an account's status when invalidation detects an ownership
// mismatch.
type UserDirectory interface {
	ChangeStatusByUsername(ctx context.Context, username string, status model.UserStatus) error
}

// SecurityEventSink receives security events emitted by token operations.
// Implementations must not block the request for long and must swallow
// delivery failures (the event stream is observability, not control flow).
type SecurityEventSink interface {
	Publish(ctx context.Context, ev queue.SecurityEvent)
}
