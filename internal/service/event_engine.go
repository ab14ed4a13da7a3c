package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/cauth/cauth/internal/auth"
	"github.com/cauth/cauth/internal/domain"
	"github.com/cauth/cauth/internal/event"
	"github.com/cauth/cauth/internal/storage"
)

// EventEngine implements C7, the two-phase workflow: stages mutations as
// typed events, then commits or cancels them.
type EventEngine struct {
	events      storage.EventRepository
	permissions storage.PermissionRepository
	groups      storage.GroupRepository
	users       storage.UserRepository
	sessions    storage.SessionRepository
	tx          storage.Transactor
	publisher   event.Publisher
	validate    *validator.Validate
	sessionTTL  time.Duration

	// requireDistinctCommitter implements the §9 open question's policy
	// flag. false (the spec's stated default) means the creator and the
	// committer may be the same session. true refuses any committer whose
	// user login equals the event's CreatedByLogin, whichever session it
	// uses.
	requireDistinctCommitter bool
}

func NewEventEngine(repos *storage.Repositories, tx storage.Transactor, publisher event.Publisher, sessionTTL time.Duration, requireDistinctCommitter bool) *EventEngine {
	return &EventEngine{
		events:                   repos.Events,
		permissions:              repos.Permissions,
		groups:                   repos.Groups,
		users:                    repos.Users,
		sessions:                 repos.Sessions,
		tx:                       tx,
		publisher:                publisher,
		validate:                 validator.New(),
		sessionTTL:               sessionTTL,
		requireDistinctCommitter: requireDistinctCommitter,
	}
}

func (e *EventEngine) ListPending(ctx context.Context, page storage.ListPage) ([]domain.PendingEvent, error) {
	return e.events.List(ctx, page)
}

func (e *EventEngine) Retrieve(ctx context.Context, id int64) (*domain.PendingEvent, error) {
	return e.events.Retrieve(ctx, id)
}

// requireAction checks the caller's session carries required.
func (e *EventEngine) requireAction(ctx context.Context, token, required string) (*domain.Session, error) {
	ok, err := e.sessions.HasPermission(ctx, token, required)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.ErrUnauthorized
	}
	session, err := e.sessions.Retrieve(ctx, token)
	if err != nil {
		// The permission check already passed; if the session cannot be
		// loaded now, the creator login is simply left blank.
		return nil, nil
	}
	return session, nil
}

func (e *EventEngine) stage(ctx context.Context, creatorLogin string, eventType domain.EventType, payload any) (*domain.PendingEvent, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStorage, err)
	}

	pe := &domain.PendingEvent{
		Type:           eventType,
		Payload:        raw,
		CreatedByLogin: creatorLogin,
	}
	if err := e.events.Create(ctx, pe); err != nil {
		return nil, err
	}

	_ = e.publisher.Publish(ctx, domain.EventCreatedEvent(creatorLogin, pe.ID, eventType))
	return pe, nil
}

// CreateUserRegister stages a UserRegister event. The password is hashed
// here, at creation time, so plaintext never reaches the Pending row (§4.7,
// §9).
func (e *EventEngine) CreateUserRegister(ctx context.Context, login, password string, details json.RawMessage) (*domain.PendingEvent, error) {
	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, domain.ErrHash
	}
	payload := domain.UserRegisterPayload{Login: login, PasswordHash: hash, Details: details}
	if err := e.validate.Struct(payload); err != nil {
		return nil, domain.ValidationError{Field: "payload", Message: err.Error()}
	}
	return e.stage(ctx, "", domain.EventUserRegister, payload)
}

// CreateUserLogin authenticates the credentials immediately (scenario 3:
// a wrong password fails at creation with ErrInvalidCredentials and a
// nonexistent login with ErrNotFound; the HTTP login handler folds both into
// one response), creates an OnHold session, and stages the event
// referencing it.
func (e *EventEngine) CreateUserLogin(ctx context.Context, login, password string) (*domain.PendingEvent, *domain.Session, error) {
	if _, err := e.users.Authenticate(ctx, login, password); err != nil {
		return nil, nil, err
	}

	session, err := e.sessions.Create(ctx, login, domain.SessionOnHold, e.sessionTTL)
	if err != nil {
		return nil, nil, err
	}

	payload := domain.UserLoginPayload{SessionID: session.Token}
	pe, err := e.stage(ctx, "", domain.EventUserLogin, payload)
	if err != nil {
		return nil, nil, err
	}
	return pe, session, nil
}

func (e *EventEngine) CreateUserDelete(ctx context.Context, token, login string) (*domain.PendingEvent, error) {
	payload := domain.UserDeletePayload{Login: login}
	required, _ := domain.ActionPermission(domain.EventUserDelete, &payload)
	session, err := e.requireAction(ctx, token, required)
	if err != nil {
		return nil, err
	}
	return e.stage(ctx, loginOf(session), domain.EventUserDelete, payload)
}

func (e *EventEngine) CreateGroupInsert(ctx context.Context, token, name, description string, permissions []string) (*domain.PendingEvent, error) {
	session, err := e.requireAction(ctx, token, "groups:post")
	if err != nil {
		return nil, err
	}
	payload := domain.GroupInsertPayload{Name: name, Description: description, Permissions: permissions}
	return e.stage(ctx, loginOf(session), domain.EventGroupInsert, payload)
}

func (e *EventEngine) CreateGroupDelete(ctx context.Context, token, name string) (*domain.PendingEvent, error) {
	session, err := e.requireAction(ctx, token, "groups:delete")
	if err != nil {
		return nil, err
	}
	return e.stage(ctx, loginOf(session), domain.EventGroupDelete, domain.GroupDeletePayload{Name: name})
}

func (e *EventEngine) CreateGroupGrantPermission(ctx context.Context, token, group, permission string) (*domain.PendingEvent, error) {
	session, err := e.requireAction(ctx, token, "groups:update")
	if err != nil {
		return nil, err
	}
	return e.stage(ctx, loginOf(session), domain.EventGroupGrantPermission, domain.GroupPermissionPayload{Group: group, Permission: permission})
}

func (e *EventEngine) CreateGroupRevokePermission(ctx context.Context, token, group, permission string) (*domain.PendingEvent, error) {
	session, err := e.requireAction(ctx, token, "groups:update")
	if err != nil {
		return nil, err
	}
	return e.stage(ctx, loginOf(session), domain.EventGroupRevokePermission, domain.GroupPermissionPayload{Group: group, Permission: permission})
}

func (e *EventEngine) CreateUserGrantGroup(ctx context.Context, token, login, group string) (*domain.PendingEvent, error) {
	session, err := e.requireAction(ctx, token, "users:update")
	if err != nil {
		return nil, err
	}
	return e.stage(ctx, loginOf(session), domain.EventUserGrantGroup, domain.UserGroupPayload{Login: login, Group: group})
}

func (e *EventEngine) CreateUserRevokeGroup(ctx context.Context, token, login, group string) (*domain.PendingEvent, error) {
	session, err := e.requireAction(ctx, token, "users:update")
	if err != nil {
		return nil, err
	}
	return e.stage(ctx, loginOf(session), domain.EventUserRevokeGroup, domain.UserGroupPayload{Login: login, Group: group})
}

func (e *EventEngine) CreatePermissionInsert(ctx context.Context, token, name, description string) (*domain.PendingEvent, error) {
	session, err := e.requireAction(ctx, token, "permissions:post")
	if err != nil {
		return nil, err
	}
	return e.stage(ctx, loginOf(session), domain.EventPermissionInsert, domain.PermissionInsertPayload{Name: name, Description: description})
}

func (e *EventEngine) CreatePermissionDelete(ctx context.Context, token, name string) (*domain.PendingEvent, error) {
	session, err := e.requireAction(ctx, token, "permissions:delete")
	if err != nil {
		return nil, err
	}
	return e.stage(ctx, loginOf(session), domain.EventPermissionDelete, domain.PermissionDeletePayload{Name: name})
}

func loginOf(session *domain.Session) string {
	if session == nil {
		return ""
	}
	return session.UserLogin
}

// Commit applies commit semantics §4.7: requires events:commit in addition
// to the action's own permission, loads the event under a row lock,
// re-validates the payload, invokes the corresponding store operation, and
// flips status atomically with it. Committing an already-Committed event
// succeeds without re-applying (P4).
func (e *EventEngine) Commit(ctx context.Context, token string, id int64) error {
	committer, err := e.sessions.Retrieve(ctx, token)
	if err != nil {
		return domain.ErrUnauthorized
	}
	if ok, err := e.sessions.HasPermission(ctx, token, "events:commit"); err != nil {
		return err
	} else if !ok {
		return domain.ErrUnauthorized
	}

	pe, err := e.events.Retrieve(ctx, id)
	if err != nil {
		return err
	}

	if e.requireDistinctCommitter && committer.UserLogin == pe.CreatedByLogin {
		return domain.ErrUnauthorized
	}

	payload := domain.NewPayload(pe.Type)
	if payload == nil {
		return fmt.Errorf("%w: unknown event type %s", domain.ErrStorage, pe.Type)
	}
	if err := json.Unmarshal(pe.Payload, payload); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStorage, err)
	}

	if required, gated := domain.ActionPermission(pe.Type, payload); gated {
		if ok, err := e.sessions.HasPermission(ctx, token, required); err != nil {
			return err
		} else if !ok {
			return domain.ErrUnauthorized
		}
	}

	err = e.tx.WithTransaction(ctx, func(ctx context.Context) error {
		locked, err := e.events.RetrieveForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if locked.IsCommitted() {
			return nil
		}
		if !locked.IsPending() {
			return domain.ErrInvalidState
		}

		if err := e.validate.Struct(payload); err != nil {
			return domain.ValidationError{Field: "payload", Message: err.Error()}
		}

		if err := e.apply(ctx, locked.Type, payload); err != nil {
			return err
		}
		return e.events.UpdateStatus(ctx, id, domain.EventCommitted)
	})
	if err != nil {
		return err
	}

	_ = e.publisher.Publish(ctx, domain.EventCommittedEvent(committer.UserLogin, id))
	return nil
}

// apply invokes the store operation corresponding to the event's type
// (§4.7's "Action at Commit" column).
func (e *EventEngine) apply(ctx context.Context, t domain.EventType, payload any) error {
	switch t {
	case domain.EventUserRegister:
		p := payload.(*domain.UserRegisterPayload)
		return e.users.Insert(ctx, &domain.User{Login: p.Login, PasswordHash: p.PasswordHash, Details: p.Details})
	case domain.EventUserLogin:
		p := payload.(*domain.UserLoginPayload)
		return e.sessions.Activate(ctx, p.SessionID)
	case domain.EventUserDelete:
		p := payload.(*domain.UserDeletePayload)
		return e.users.Delete(ctx, p.Login)
	case domain.EventGroupInsert:
		p := payload.(*domain.GroupInsertPayload)
		return e.groups.Insert(ctx, &domain.Group{Name: p.Name, Description: p.Description, Permissions: p.Permissions})
	case domain.EventGroupDelete:
		p := payload.(*domain.GroupDeletePayload)
		return e.groups.Delete(ctx, p.Name)
	case domain.EventGroupGrantPermission:
		p := payload.(*domain.GroupPermissionPayload)
		return e.groups.GrantPermission(ctx, p.Group, p.Permission)
	case domain.EventGroupRevokePermission:
		p := payload.(*domain.GroupPermissionPayload)
		return e.groups.RevokePermission(ctx, p.Group, p.Permission)
	case domain.EventUserGrantGroup:
		p := payload.(*domain.UserGroupPayload)
		return e.users.GrantGroup(ctx, p.Login, p.Group)
	case domain.EventUserRevokeGroup:
		p := payload.(*domain.UserGroupPayload)
		return e.users.RevokeGroup(ctx, p.Login, p.Group)
	case domain.EventPermissionInsert:
		p := payload.(*domain.PermissionInsertPayload)
		return e.permissions.Insert(ctx, &domain.Permission{Name: p.Name, Description: p.Description})
	case domain.EventPermissionDelete:
		p := payload.(*domain.PermissionDeletePayload)
		return e.permissions.Delete(ctx, p.Name)
	default:
		return fmt.Errorf("%w: unknown event type %s", domain.ErrStorage, t)
	}
}

// Cancel requires either a usable session whose user login equals the
// event's CreatedByLogin or a caller holding events:cancel (§4.7). Cancelling an already-Cancelled event succeeds
// without effect (P4); for UserLogin it additionally revokes the OnHold
// session so no dangling token exists.
func (e *EventEngine) Cancel(ctx context.Context, token string, id int64) error {
	canceller, err := e.sessions.Retrieve(ctx, token)
	if err != nil {
		return domain.ErrUnauthorized
	}

	pe, err := e.events.Retrieve(ctx, id)
	if err != nil {
		return err
	}

	if canceller.UserLogin != pe.CreatedByLogin || !canceller.Usable(time.Now()) {
		ok, err := e.sessions.HasPermission(ctx, token, "events:cancel")
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrUnauthorized
		}
	}

	err = e.tx.WithTransaction(ctx, func(ctx context.Context) error {
		locked, err := e.events.RetrieveForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if locked.IsCancelled() {
			return nil
		}
		if !locked.IsPending() {
			return domain.ErrInvalidState
		}
		if err := e.events.UpdateStatus(ctx, id, domain.EventCancelled); err != nil {
			return err
		}

		if locked.Type == domain.EventUserLogin {
			var p domain.UserLoginPayload
			if err := json.Unmarshal(locked.Payload, &p); err != nil {
				return fmt.Errorf("%w: %v", domain.ErrStorage, err)
			}
			if err := e.sessions.Revoke(ctx, p.SessionID); err != nil && err != domain.ErrNotFound {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	_ = e.publisher.Publish(ctx, domain.EventCancelledEvent(canceller.UserLogin, id))
	return nil
}
