package entity

import (
	"strings"
	"time"

	"authcore/internal/errors"

	"github.com/google/uuid"
)

// Errors returned when a User cannot be constructed.
var (
	ErrInvalidUser = errors.New("invalid user")
)

// User is a locally recognized account bound to exactly one external identity.
// The pair (provider, externalSubject) is unique across all users; email is not.
// Fields are private: a User is either created by NewUser or rehydrated by RestoreUser,
// and afterwards only RecordLogin mutates it.
type User struct {
	id              uuid.UUID
	email           string
	provider        ProviderType
	externalSubject string
	createdAt       time.Time
	lastLoginAt     *time.Time
}

// UserState is the flat representation of a User used by persistence adapters.
type UserState struct {
	ID              uuid.UUID
	Email           string
	Provider        ProviderType
	ExternalSubject string
	CreatedAt       time.Time
	LastLoginAt     *time.Time
}

// NewUser creates the account for a first verified login. The user has never logged in
// before this call returns, so LastLoginAt is nil.
func NewUser(provider ProviderType, externalSubject, email string, now time.Time) (*User, error) {
	if !provider.IsValid() {
		return nil, errors.Wrapf(ErrInvalidUser, "unsupported provider %d", provider)
	}
	if strings.TrimSpace(externalSubject) == "" {
		return nil, errors.Wrap(ErrInvalidUser, "external subject is required")
	}
	if now.IsZero() {
		return nil, errors.Wrap(ErrInvalidUser, "creation time is required")
	}

	return &User{
		id:              uuid.New(),
		email:           email,
		provider:        provider,
		externalSubject: externalSubject,
		createdAt:       now,
	}, nil
}

// RestoreUser rebuilds a User from stored state, enforcing the same invariants as NewUser.
func RestoreUser(state UserState) (*User, error) {
	if state.ID == uuid.Nil {
		return nil, errors.Wrap(ErrInvalidUser, "id is required")
	}
	if !state.Provider.IsValid() {
		return nil, errors.Wrapf(ErrInvalidUser, "unsupported provider %d", state.Provider)
	}
	if state.ExternalSubject == "" {
		return nil, errors.Wrap(ErrInvalidUser, "external subject is required")
	}

	return &User{
		id:              state.ID,
		email:           state.Email,
		provider:        state.Provider,
		externalSubject: state.ExternalSubject,
		createdAt:       state.CreatedAt,
		lastLoginAt:     copyTime(state.LastLoginAt),
	}, nil
}

// State returns a snapshot of the user for persistence.
func (u *User) State() UserState {
	return UserState{
		ID:              u.id,
		Email:           u.email,
		Provider:        u.provider,
		ExternalSubject: u.externalSubject,
		CreatedAt:       u.createdAt,
		LastLoginAt:     copyTime(u.lastLoginAt),
	}
}

// ID returns the internal identifier.
func (u *User) ID() uuid.UUID { return u.id }

// Email returns the email address verified at registration.
func (u *User) Email() string { return u.email }

// Provider returns the identity provider the account is bound to.
func (u *User) Provider() ProviderType { return u.provider }

// ExternalSubject returns the provider-issued subject identifier.
func (u *User) ExternalSubject() string { return u.externalSubject }

// CreatedAt returns when the account was created.
func (u *User) CreatedAt() time.Time { return u.createdAt }

// LastLoginAt returns the time of the last recorded login, or nil.
func (u *User) LastLoginAt() *time.Time { return copyTime(u.lastLoginAt) }

// IsFirstLogin reports whether no login has been recorded yet.
func (u *User) IsFirstLogin() bool { return u.lastLoginAt == nil }

// RecordLogin stamps a successful login and reports whether it was the first one.
// LastLoginAt strictly increases: a clock that did not move forward is nudged by a microsecond.
func (u *User) RecordLogin(now time.Time) bool {
	wasFirst := u.lastLoginAt == nil

	at := now
	if !wasFirst && !at.After(*u.lastLoginAt) {
		at = u.lastLoginAt.Add(time.Microsecond)
	}
	u.lastLoginAt = &at

	return wasFirst
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t

	return &c
}
