package auth

import (
	"context"
	"errors"
)

type ctxKey int

const (
	ctxUserID ctxKey = iota
	ctxTenantID
	ctxRole
	ctxPrincipal
)

var errNoIdentity = errors.New("auth: identity not in context")

// WithIdentity attaches a dashboard user (JWT) identity.
func WithIdentity(ctx context.Context, userID, tenantID, role string) context.Context {
	ctx = context.WithValue(ctx, ctxUserID, userID)
	ctx = context.WithValue(ctx, ctxTenantID, tenantID)
	ctx = context.WithValue(ctx, ctxRole, role)
	return ctx
}

// WithPrincipal attaches an API key identity.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	ctx = context.WithValue(ctx, ctxPrincipal, p)
	return context.WithValue(ctx, ctxTenantID, p.TenantID)
}

func UserID(ctx context.Context) (string, error) {
	if s, ok := ctx.Value(ctxUserID).(string); ok && s != "" {
		return s, nil
	}
	return "", errNoIdentity
}

// TenantID is set by both the JWT and the API key middleware.
func TenantID(ctx context.Context) (string, error) {
	if s, ok := ctx.Value(ctxTenantID).(string); ok && s != "" {
		return s, nil
	}
	return "", errNoIdentity
}

func Role(ctx context.Context) (string, error) {
	if s, ok := ctx.Value(ctxRole).(string); ok && s != "" {
		return s, nil
	}
	return "", errNoIdentity
}

func PrincipalFrom(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(ctxPrincipal).(Principal)
	return p, ok
}
