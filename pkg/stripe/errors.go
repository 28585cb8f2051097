package stripe

import (
	"errors"
	"net/http"

	"github.com/stripe/stripe-go/v84"

	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

// WrapError maps a Stripe failure onto the API error codes. An open breaker
// surfaces as a dependency outage, a rejected request as a validation error
// and everything else as a payment provider failure.
func WrapError(err error, msg string) *pkgerrors.Error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrUnavailable) {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, msg)
	}
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		switch {
		case stripeErr.HTTPStatusCode == http.StatusNotFound:
			return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, msg)
		case stripeErr.HTTPStatusCode >= 400 && stripeErr.HTTPStatusCode < 500:
			return pkgerrors.Wrap(pkgerrors.CodeValidation, err, msg)
		}
	}
	return pkgerrors.Wrap(pkgerrors.CodePayment, err, msg)
}
