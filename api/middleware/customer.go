package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/api/responses"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

// CustomerResolver maps an auth subject to the storefront customer id.
type CustomerResolver interface {
	ResolveCustomerID(ctx context.Context, subject string) (uuid.UUID, error)
}

// RequireCustomer rejects authenticated callers that have not created a customer profile yet.
func RequireCustomer(resolver CustomerResolver, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			subject := SubjectFromContext(r.Context())
			if subject == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			customerID, err := resolver.ResolveCustomerID(r.Context(), subject)
			if err != nil {
				if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
					responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "customer profile required"))
					return
				}
				responses.WriteError(r.Context(), logg, w, err)
				return
			}

			ctx := WithCustomerID(r.Context(), customerID)
			if logg != nil {
				ctx = logg.WithCustomerID(ctx, customerID.String())
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
