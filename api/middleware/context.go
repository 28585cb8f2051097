package middleware

import (
	"context"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/auth"
)

type contextKey string

const (
	ctxPrincipal  contextKey = "principal"
	ctxCustomerID contextKey = "customer_id"
)

// PrincipalFromContext returns the verified caller, nil for anonymous requests.
func PrincipalFromContext(ctx context.Context) *auth.Principal {
	if ctx == nil {
		return nil
	}
	if v, ok := ctx.Value(ctxPrincipal).(*auth.Principal); ok {
		return v
	}
	return nil
}

func SubjectFromContext(ctx context.Context) string {
	if p := PrincipalFromContext(ctx); p != nil {
		return p.Subject
	}
	return ""
}

func CustomerIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	if ctx == nil {
		return uuid.Nil, false
	}
	id, ok := ctx.Value(ctxCustomerID).(uuid.UUID)
	return id, ok && id != uuid.Nil
}

// WithPrincipal injects the verified caller into the context.
func WithPrincipal(ctx context.Context, principal *auth.Principal) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxPrincipal, principal)
}

// WithCustomerID injects the resolved customer identifier for downstream handlers.
func WithCustomerID(ctx context.Context, customerID uuid.UUID) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxCustomerID, customerID)
}
