package checkout

import (
	"time"

	"github.com/google/uuid"
	stripego "github.com/stripe/stripe-go/v84"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/pricing"
)

const (
	metadataCustomerID = "customer_id"
	metadataCartID     = "cart_id"
	metadataVariantID  = "variant_id"

	taxLineName = "Sales tax"
)

type paymentSessionInput struct {
	customer   *models.Customer
	cartID     uuid.UUID
	lines      []models.OrderLineItem
	totals     pricing.Totals
	currency   string
	successURL string
	cancelURL  string
	expiresAt  time.Time
}

func paymentSessionParams(in paymentSessionInput) *stripego.CheckoutSessionParams {
	params := &stripego.CheckoutSessionParams{
		Mode:              stripego.String(string(stripego.CheckoutSessionModePayment)),
		SuccessURL:        stripego.String(in.successURL),
		CancelURL:         stripego.String(in.cancelURL),
		ClientReferenceID: stripego.String(in.cartID.String()),
		ExpiresAt:         stripego.Int64(in.expiresAt.Unix()),
		LineItems:         make([]*stripego.CheckoutSessionLineItemParams, 0, len(in.lines)+1),
	}
	if in.customer.StripeCustomerID != nil && *in.customer.StripeCustomerID != "" {
		params.Customer = in.customer.StripeCustomerID
	}
	for _, line := range in.lines {
		name := line.ProductTitle
		if line.VariantTitle != "" {
			name += " (" + line.VariantTitle + ")"
		}
		params.LineItems = append(params.LineItems, &stripego.CheckoutSessionLineItemParams{
			Quantity: stripego.Int64(int64(line.Quantity)),
			PriceData: &stripego.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripego.String(in.currency),
				UnitAmount: stripego.Int64(int64(line.UnitPriceCents)),
				ProductData: &stripego.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripego.String(name),
					Metadata: map[string]string{
						metadataVariantID: line.VariantID.String(),
					},
				},
			},
		})
	}
	if in.totals.TaxCents > 0 {
		params.LineItems = append(params.LineItems, &stripego.CheckoutSessionLineItemParams{
			Quantity: stripego.Int64(1),
			PriceData: &stripego.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripego.String(in.currency),
				UnitAmount: stripego.Int64(in.totals.TaxCents),
				ProductData: &stripego.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripego.String(taxLineName),
				},
			},
		})
	}
	params.AddMetadata(metadataCustomerID, in.customer.ID.String())
	params.AddMetadata(metadataCartID, in.cartID.String())
	return params
}

func setupSessionParams(customer *models.Customer, successURL, cancelURL string) *stripego.CheckoutSessionParams {
	params := &stripego.CheckoutSessionParams{
		Mode:               stripego.String(string(stripego.CheckoutSessionModeSetup)),
		Customer:           customer.StripeCustomerID,
		SuccessURL:         stripego.String(successURL),
		CancelURL:          stripego.String(cancelURL),
		PaymentMethodTypes: stripego.StringSlice([]string{string(stripego.PaymentMethodTypeCard)}),
	}
	params.AddMetadata(metadataCustomerID, customer.ID.String())
	return params
}

func paymentSettled(sess *stripego.CheckoutSession) bool {
	if sess == nil || sess.Status != stripego.CheckoutSessionStatusComplete {
		return false
	}
	return sess.PaymentStatus == stripego.CheckoutSessionPaymentStatusPaid ||
		sess.PaymentStatus == stripego.CheckoutSessionPaymentStatusNoPaymentRequired
}
