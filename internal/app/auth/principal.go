package auth

import (
	"context"
	"errors"
	"strings"
)

var (
	ErrUnauthenticated = errors.New("auth: authentication required")
	ErrForbidden       = errors.New("auth: not allowed")
)

type Role string

const (
	RoleGuest  Role = "guest"
	RoleHost   Role = "host"
	RoleAdmin  Role = "admin"
	RoleSystem Role = "system"
)

// Principal is the caller identity established by the transport layer.
type Principal struct {
	ID    string
	Name  string
	Email string
	Roles []Role
}

func (p Principal) Has(role Role) bool {
	for _, r := range p.Roles {
		if strings.EqualFold(string(r), string(role)) {
			return true
		}
	}
	return false
}

func (p Principal) HasAny(roles ...Role) bool {
	for _, r := range roles {
		if p.Has(r) {
			return true
		}
	}
	return false
}

// System is the principal used by background jobs.
func System() Principal {
	return Principal{ID: "system", Name: "system", Roles: []Role{RoleSystem}}
}

type ctxKey struct{}

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, ctxKey{}, p)
}

func FromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(ctxKey{}).(Principal)
	if !ok || p.ID == "" {
		return Principal{}, false
	}
	return p, true
}

// RoleRestricted is implemented by messages that only some roles may send.
type RoleRestricted interface {
	RequiredRoles() []Role
}

// Authorizer checks RoleRestricted messages against the principal in ctx.
type Authorizer struct{}

func (Authorizer) Authorize(ctx context.Context, message any) error {
	restricted, ok := message.(RoleRestricted)
	if !ok {
		return nil
	}
	roles := restricted.RequiredRoles()
	if len(roles) == 0 {
		return nil
	}
	p, ok := FromContext(ctx)
	if !ok {
		return ErrUnauthenticated
	}
	if !p.HasAny(roles...) {
		return ErrForbidden
	}
	return nil
}
