package domain

import (
	"time"

	"github.com/google/uuid"
)

// AuditEvent is an immutable fact published whenever a Store or the Event
// Engine completes a mutation. Distinct from PendingEvent: this is the
// publish/subscribe notification described in §3's expansion, not the
// Pending/Committed/Cancelled workflow entity.
type AuditEvent struct {
	ID        uuid.UUID
	Type      string
	Timestamp time.Time
	ActorLogin string
	Data      map[string]any
}

const (
	AuditPermissionInserted = "permission.inserted"
	AuditPermissionDeleted  = "permission.deleted"
	AuditGroupInserted      = "group.inserted"
	AuditGroupDeleted       = "group.deleted"
	AuditGroupGranted       = "group.permission_granted"
	AuditGroupRevoked       = "group.permission_revoked"
	AuditUserInserted       = "user.inserted"
	AuditUserDeleted        = "user.deleted"
	AuditUserGroupGranted   = "user.group_granted"
	AuditUserGroupRevoked   = "user.group_revoked"
	AuditSessionCreated     = "session.created"
	AuditSessionActivated   = "session.activated"
	AuditSessionRevoked     = "session.revoked"
	AuditEventCreated       = "event.created"
	AuditEventCommitted     = "event.committed"
	AuditEventCancelled     = "event.cancelled"
)

func NewAuditEvent(eventType, actorLogin string, data map[string]any) AuditEvent {
	if data == nil {
		data = make(map[string]any)
	}
	return AuditEvent{
		ID:         uuid.New(),
		Type:       eventType,
		Timestamp:  time.Now().UTC(),
		ActorLogin: actorLogin,
		Data:       data,
	}
}

func PermissionInsertedEvent(actorLogin string, p *Permission) AuditEvent {
	return NewAuditEvent(AuditPermissionInserted, actorLogin, map[string]any{
		"name": p.Name,
	})
}

func PermissionDeletedEvent(actorLogin, name string) AuditEvent {
	return NewAuditEvent(AuditPermissionDeleted, actorLogin, map[string]any{
		"name": name,
	})
}

func GroupInsertedEvent(actorLogin string, g *Group) AuditEvent {
	return NewAuditEvent(AuditGroupInserted, actorLogin, map[string]any{
		"name":        g.Name,
		"permissions": g.Permissions,
	})
}

func GroupDeletedEvent(actorLogin, name string) AuditEvent {
	return NewAuditEvent(AuditGroupDeleted, actorLogin, map[string]any{
		"name": name,
	})
}

func GroupPermissionGrantedEvent(actorLogin, group, permission string) AuditEvent {
	return NewAuditEvent(AuditGroupGranted, actorLogin, map[string]any{
		"group": group, "permission": permission,
	})
}

func GroupPermissionRevokedEvent(actorLogin, group, permission string) AuditEvent {
	return NewAuditEvent(AuditGroupRevoked, actorLogin, map[string]any{
		"group": group, "permission": permission,
	})
}

func UserInsertedEvent(actorLogin string, u *User) AuditEvent {
	return NewAuditEvent(AuditUserInserted, actorLogin, map[string]any{
		"login": u.Login,
	})
}

func UserDeletedEvent(actorLogin, login string) AuditEvent {
	return NewAuditEvent(AuditUserDeleted, actorLogin, map[string]any{
		"login": login,
	})
}

func UserGroupGrantedEvent(actorLogin, login, group string) AuditEvent {
	return NewAuditEvent(AuditUserGroupGranted, actorLogin, map[string]any{
		"login": login, "group": group,
	})
}

func UserGroupRevokedEvent(actorLogin, login, group string) AuditEvent {
	return NewAuditEvent(AuditUserGroupRevoked, actorLogin, map[string]any{
		"login": login, "group": group,
	})
}

func SessionCreatedEvent(actorLogin, userLogin string, status SessionStatus) AuditEvent {
	return NewAuditEvent(AuditSessionCreated, actorLogin, map[string]any{
		"user_login": userLogin, "status": string(status),
	})
}

func SessionActivatedEvent(actorLogin, userLogin string) AuditEvent {
	return NewAuditEvent(AuditSessionActivated, actorLogin, map[string]any{
		"user_login": userLogin,
	})
}

func SessionRevokedEvent(actorLogin, token string) AuditEvent {
	return NewAuditEvent(AuditSessionRevoked, actorLogin, nil)
}

func EventCreatedEvent(actorLogin string, id int64, eventType EventType) AuditEvent {
	return NewAuditEvent(AuditEventCreated, actorLogin, map[string]any{
		"event_id": id, "type": string(eventType),
	})
}

func EventCommittedEvent(actorLogin string, id int64) AuditEvent {
	return NewAuditEvent(AuditEventCommitted, actorLogin, map[string]any{
		"event_id": id,
	})
}

func EventCancelledEvent(actorLogin string, id int64) AuditEvent {
	return NewAuditEvent(AuditEventCancelled, actorLogin, map[string]any{
		"event_id": id,
	})
}
