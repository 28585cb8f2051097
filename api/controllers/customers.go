package controllers

import (
	"net/http"

	"github.com/angelmondragon/storefront-backend/api/middleware"
	"github.com/angelmondragon/storefront-backend/api/responses"
	"github.com/angelmondragon/storefront-backend/internal/customers"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

// CustomerEnsure creates the storefront profile for the verified caller. It
// answers 201 on first call and 200 once the profile exists.
func CustomerEnsure(svc customers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "customer service unavailable"))
			return
		}

		principal := middleware.PrincipalFromContext(r.Context())
		if principal == nil || principal.Subject == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
			return
		}

		customer, created, err := svc.EnsureCustomer(r.Context(), customers.EnsureCustomerInput{
			Subject: principal.Subject,
			Email:   principal.Email,
			Name:    principal.Name,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if created {
			if logg != nil {
				ctx := logg.WithCustomerID(r.Context(), customer.ID.String())
				logg.Info(ctx, "customer.created")
			}
			responses.WriteSuccessStatus(w, http.StatusCreated, customer)
			return
		}
		responses.WriteSuccess(w, customer)
	}
}

// CustomerMe returns the caller's profile.
func CustomerMe(svc customers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "customer service unavailable"))
			return
		}

		subject, err := subjectFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		customer, err := svc.GetBySubject(r.Context(), subject)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, customer)
	}
}
