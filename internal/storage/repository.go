// Package storage defines the repository interfaces for data persistence.
//
// These interfaces let the service layer remain independent of the storage
// implementation; internal/storage/postgres is the concrete implementation
// used in production, but a test double can satisfy the same interfaces.
package storage

import (
	"context"
	"time"

	"github.com/cauth/cauth/internal/domain"
)

// ListPage describes a page request shared by every list operation.
type ListPage struct {
	Order  string // "asc" or "desc", ordered by name
	Offset int
	Limit  int
}

// PermissionRepository defines operations for permission persistence (C3).
type PermissionRepository interface {
	List(ctx context.Context, page ListPage) ([]domain.Permission, error)
	Retrieve(ctx context.Context, name string) (*domain.Permission, error)

	// Insert stores a new permission. Returns domain.ErrNameConflict on
	// duplicate name or validation failure.
	Insert(ctx context.Context, perm *domain.Permission) error

	// Delete removes the permission and cascades to every
	// groups_permissions row naming it, in one transaction. Returns
	// domain.ErrNotFound if absent.
	Delete(ctx context.Context, name string) error
}

// GroupRepository defines operations for group persistence and
// group<->permission grants (C4).
type GroupRepository interface {
	List(ctx context.Context, page ListPage) ([]domain.Group, error)
	Retrieve(ctx context.Context, name string) (*domain.Group, error)

	// Insert stores a new group together with its initial permission set,
	// atomically: if any referenced permission is missing the whole insert
	// fails with domain.ErrNameError and no row is created.
	Insert(ctx context.Context, group *domain.Group) error

	// Delete removes the group, its users_groups rows, and its
	// groups_permissions rows in one transaction.
	Delete(ctx context.Context, name string) error

	// GrantPermission fails domain.ErrNameError if either side is missing
	// or the association already exists.
	GrantPermission(ctx context.Context, group, permission string) error

	// RevokePermission fails domain.ErrNameError if the association did
	// not exist.
	RevokePermission(ctx context.Context, group, permission string) error
}

// UserRepository defines operations for user persistence, user<->group
// grants, and credential verification (C5).
type UserRepository interface {
	List(ctx context.Context, page ListPage) ([]domain.User, error)
	Retrieve(ctx context.Context, login string) (*domain.User, error)

	// Insert stores a user whose PasswordHash is already computed by C1.
	// Returns domain.ErrNameConflict on duplicate login.
	Insert(ctx context.Context, user *domain.User) error

	// Delete removes the user, its users_groups rows, and every session
	// belonging to it in one transaction.
	Delete(ctx context.Context, login string) error

	// Authenticate retrieves the user and verifies password. Returns
	// domain.ErrNotFound when login does not exist and
	// domain.ErrInvalidCredentials when the password does not verify.
	// Callers must not distinguish these two outcomes externally.
	Authenticate(ctx context.Context, login, password string) (*domain.User, error)

	GrantGroup(ctx context.Context, login, group string) error
	RevokeGroup(ctx context.Context, login, group string) error

	// HasPermission is true iff some group of the user carries a granted
	// permission authorizing required, per the C2 matcher.
	HasPermission(ctx context.Context, login, required string) (bool, error)
}

// SessionRepository defines operations for session issuance, activation,
// revocation, and permission checks (C6).
type SessionRepository interface {
	// Create stores a fresh token with the given status and ttl. status
	// must be OnHold or Active.
	Create(ctx context.Context, userLogin string, status domain.SessionStatus, ttl time.Duration) (*domain.Session, error)

	Retrieve(ctx context.Context, token string) (*domain.Session, error)

	// Activate transitions OnHold -> Active; no-op if already Active;
	// fails domain.ErrNotFound otherwise.
	Activate(ctx context.Context, token string) error

	Revoke(ctx context.Context, token string) error

	// HasPermission returns false when the token is absent, expired,
	// Revoked, or OnHold (I4). Otherwise it delegates to the user's
	// HasPermission.
	HasPermission(ctx context.Context, token, required string) (bool, error)
}

// EventRepository defines operations for the pending-event workflow (C7).
type EventRepository interface {
	Create(ctx context.Context, event *domain.PendingEvent) error
	Retrieve(ctx context.Context, id int64) (*domain.PendingEvent, error)

	// List returns the events still Pending, ordered by id.
	List(ctx context.Context, page ListPage) ([]domain.PendingEvent, error)

	// RetrieveForUpdate loads the event under a row-level lock, for use
	// inside a transaction obtained via Transactor.WithTransaction.
	RetrieveForUpdate(ctx context.Context, id int64) (*domain.PendingEvent, error)

	// UpdateStatus flips the event's status. Callers must hold the lock
	// taken by RetrieveForUpdate when transitioning out of Pending.
	UpdateStatus(ctx context.Context, id int64, status domain.EventStatus) error
}

// Repositories bundles every repository together for convenient injection.
type Repositories struct {
	Permissions PermissionRepository
	Groups      GroupRepository
	Users       UserRepository
	Sessions    SessionRepository
	Events      EventRepository
}

// Transactor provides transaction support for the multi-statement mutations
// §5 requires to run inside a single database transaction.
type Transactor interface {
	// WithTransaction executes fn within a database transaction. If fn
	// returns an error the transaction is rolled back; otherwise it is
	// committed.
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
