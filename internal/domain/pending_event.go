package domain

import (
	"encoding/json"
	"time"
)

type EventType string

const (
	EventUserRegister           EventType = "UserRegister"
	EventUserLogin              EventType = "UserLogin"
	EventUserDelete             EventType = "UserDelete"
	EventGroupInsert            EventType = "GroupInsert"
	EventGroupDelete            EventType = "GroupDelete"
	EventGroupGrantPermission   EventType = "GroupGrantPermission"
	EventGroupRevokePermission  EventType = "GroupRevokePermission"
	EventUserGrantGroup         EventType = "UserGrantGroup"
	EventUserRevokeGroup        EventType = "UserRevokeGroup"
	EventPermissionInsert       EventType = "PermissionInsert"
	EventPermissionDelete       EventType = "PermissionDelete"
)

type EventStatus string

const (
	EventPending   EventStatus = "pending"
	EventCommitted EventStatus = "committed"
	EventCancelled EventStatus = "cancelled"
)

// PendingEvent is the persistent record of a staged mutation, per §3/§4.7.
// A single Type-discriminated struct is sufficient (§9 design note): no
// per-entity event types are needed at the Go type level.
type PendingEvent struct {
	ID              int64
	Type            EventType
	Payload         json.RawMessage
	Status          EventStatus
	CreatedAt       time.Time
	CreatedByLogin  string // acting session's user login, for the creator-may-cancel rule
}

func (e *PendingEvent) IsPending() bool   { return e.Status == EventPending }
func (e *PendingEvent) IsCommitted() bool { return e.Status == EventCommitted }
func (e *PendingEvent) IsCancelled() bool { return e.Status == EventCancelled }

// Commit transitions Pending -> Committed. Committing an already-Committed
// event is a no-op success (P4); any other non-Pending state is InvalidState.
func (e *PendingEvent) Commit() error {
	if e.IsCommitted() {
		return nil
	}
	if !e.IsPending() {
		return ErrInvalidState
	}
	e.Status = EventCommitted
	return nil
}

// Cancel transitions Pending -> Cancelled, with the same idempotent-terminal
// behavior as Commit.
func (e *PendingEvent) Cancel() error {
	if e.IsCancelled() {
		return nil
	}
	if !e.IsPending() {
		return ErrInvalidState
	}
	e.Status = EventCancelled
	return nil
}

// Payload types stored at Pending and re-validated structurally at commit
// (§4.7 step 2), via go-playground/validator struct tags.

type UserRegisterPayload struct {
	Login        string          `json:"login" validate:"required,max=255"`
	PasswordHash string          `json:"password_hash" validate:"required"`
	Details      json.RawMessage `json:"details"`
}

type UserLoginPayload struct {
	SessionID string `json:"session_id" validate:"required"`
}

type UserDeletePayload struct {
	Login string `json:"login" validate:"required,max=255"`
}

type GroupInsertPayload struct {
	Name        string   `json:"name" validate:"required,max=255"`
	Description string   `json:"description" validate:"max=3000"`
	Permissions []string `json:"permissions" validate:"dive,required"`
}

type GroupDeletePayload struct {
	Name string `json:"name" validate:"required,max=255"`
}

type GroupPermissionPayload struct {
	Group      string `json:"group" validate:"required,max=255"`
	Permission string `json:"permission" validate:"required,max=255"`
}

type UserGroupPayload struct {
	Login string `json:"login" validate:"required,max=255"`
	Group string `json:"group" validate:"required,max=255"`
}

type PermissionInsertPayload struct {
	Name        string `json:"name" validate:"required,max=255"`
	Description string `json:"description" validate:"max=3000"`
}

type PermissionDeletePayload struct {
	Name string `json:"name" validate:"required,max=255"`
}

// ActionPermission returns the permission that would be required to perform
// t's action directly, given its decoded payload (§4.7's "the permission
// that would be required to perform the action directly"). The second
// return value is false for the two event types spec.md's HTTP table marks
// open (UserRegister, UserLogin): no permission is required to create them.
func ActionPermission(t EventType, payload any) (string, bool) {
	switch t {
	case EventUserRegister, EventUserLogin:
		return "", false
	case EventUserDelete:
		p := payload.(*UserDeletePayload)
		return "users:delete:" + p.Login, true
	case EventGroupInsert:
		return "groups:post", true
	case EventGroupDelete:
		return "groups:delete", true
	case EventGroupGrantPermission, EventGroupRevokePermission:
		return "groups:update", true
	case EventUserGrantGroup, EventUserRevokeGroup:
		return "users:update", true
	case EventPermissionInsert:
		return "permissions:post", true
	case EventPermissionDelete:
		return "permissions:delete", true
	default:
		return "", false
	}
}

// NewPayload returns a zero-valued payload struct for t, for the Event
// Engine to unmarshal Payload into before re-validating it.
func NewPayload(t EventType) any {
	switch t {
	case EventUserRegister:
		return &UserRegisterPayload{}
	case EventUserLogin:
		return &UserLoginPayload{}
	case EventUserDelete:
		return &UserDeletePayload{}
	case EventGroupInsert:
		return &GroupInsertPayload{}
	case EventGroupDelete:
		return &GroupDeletePayload{}
	case EventGroupGrantPermission, EventGroupRevokePermission:
		return &GroupPermissionPayload{}
	case EventUserGrantGroup, EventUserRevokeGroup:
		return &UserGroupPayload{}
	case EventPermissionInsert:
		return &PermissionInsertPayload{}
	case EventPermissionDelete:
		return &PermissionDeletePayload{}
	default:
		return nil
	}
}
