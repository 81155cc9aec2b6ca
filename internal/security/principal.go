package security

import (
	"context"
	"slices"
	"strings"

	"toolrent-backend/internal/domain"
)

type Role string

const (
	RoleAdmin    Role = "ADMIN"
	RoleEmployee Role = "EMPLOYEE"
)

// ParseRole accepts the canonical names, case-insensitive, with or without
// the ROLE_ prefix some identity providers add.
func ParseRole(s string) (Role, error) {
	s = strings.TrimPrefix(strings.ToUpper(strings.TrimSpace(s)), "ROLE_")
	switch Role(s) {
	case RoleAdmin:
		return RoleAdmin, nil
	case RoleEmployee:
		return RoleEmployee, nil
	}
	return "", domain.Validation("role", "unknown role %q", s)
}

// SystemActor is recorded for operations no person triggered.
const SystemActor = "system"

// Principal is the authenticated caller as supplied by the identity provider.
type Principal struct {
	Subject  string
	Username string
	Roles    []Role
}

func (p Principal) HasRole(r Role) bool {
	return slices.Contains(p.Roles, r)
}

// HasAnyRole reports whether p holds at least one of roles.
func (p Principal) HasAnyRole(roles ...Role) bool {
	for _, r := range roles {
		if p.HasRole(r) {
			return true
		}
	}
	return false
}

type principalKey struct{}

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

func PrincipalFrom(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}

// Actor names whoever is acting in ctx, or SystemActor.
func Actor(ctx context.Context) string {
	if p, ok := PrincipalFrom(ctx); ok && p.Username != "" {
		return p.Username
	}
	return SystemActor
}

// Require fails with a FORBIDDEN error unless the principal in ctx holds one
// of roles.
func Require(ctx context.Context, roles ...Role) error {
	p, ok := PrincipalFrom(ctx)
	if !ok {
		return domain.Forbidden("authentication required")
	}
	if !p.HasAnyRole(roles...) {
		return domain.Forbidden("requires role %v", roles)
	}
	return nil
}
