package cron

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	stripego "github.com/stripe/stripe-go/v84"
	"go.uber.org/multierr"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
)

type fakeStaleOrders struct {
	orders []models.Order
	cutoff time.Time
	limit  int
}

func (f *fakeStaleOrders) ListStaleOpen(_ context.Context, cutoff time.Time, limit int) ([]models.Order, error) {
	f.cutoff = cutoff
	f.limit = limit
	return f.orders, nil
}

type fakeRecorder struct {
	fulfilled []string
	expired   []string
	sources   []string
	expireErr map[string]error
}

func (f *fakeRecorder) Fulfill(_ context.Context, sessionID, source string) (*models.Order, bool, error) {
	f.fulfilled = append(f.fulfilled, sessionID)
	f.sources = append(f.sources, source)
	return &models.Order{SessionID: sessionID}, true, nil
}

func (f *fakeRecorder) Expire(_ context.Context, sessionID, source string) (bool, error) {
	if err := f.expireErr[sessionID]; err != nil {
		return false, err
	}
	f.expired = append(f.expired, sessionID)
	f.sources = append(f.sources, source)
	return true, nil
}

type fakeProvider struct {
	sessions map[string]*stripego.CheckoutSession
	closed   []string
}

func (f *fakeProvider) GetCheckoutSession(_ context.Context, id string) (*stripego.CheckoutSession, error) {
	sess, ok := f.sessions[id]
	if !ok {
		return nil, &stripego.Error{HTTPStatusCode: http.StatusNotFound}
	}
	return sess, nil
}

func (f *fakeProvider) ExpireCheckoutSession(_ context.Context, id string) (*stripego.CheckoutSession, error) {
	f.closed = append(f.closed, id)
	return f.sessions[id], nil
}

func newSessionExpiryJob(t *testing.T, orders *fakeStaleOrders, recorder *fakeRecorder, provider *fakeProvider) *sessionExpiryJob {
	t.Helper()
	jobIface, err := NewSessionExpiryJob(SessionExpiryJobParams{
		Logger:   logger.Nop(),
		Orders:   orders,
		Checkout: recorder,
		Stripe:   provider,
	})
	if err != nil {
		t.Fatalf("NewSessionExpiryJob: %v", err)
	}
	return jobIface.(*sessionExpiryJob)
}

func TestSessionExpiryJobSettlesEachSession(t *testing.T) {
	orders := &fakeStaleOrders{orders: []models.Order{
		{SessionID: "cs_open"},
		{SessionID: "cs_paid"},
		{SessionID: "cs_gone"},
		{SessionID: "cs_pending"},
	}}
	provider := &fakeProvider{sessions: map[string]*stripego.CheckoutSession{
		"cs_open": {ID: "cs_open", Status: stripego.CheckoutSessionStatusOpen},
		"cs_paid": {ID: "cs_paid", Status: stripego.CheckoutSessionStatusComplete, PaymentStatus: stripego.CheckoutSessionPaymentStatusPaid},
		"cs_pending": {
			ID:            "cs_pending",
			Status:        stripego.CheckoutSessionStatusComplete,
			PaymentStatus: stripego.CheckoutSessionPaymentStatusUnpaid,
		},
	}}
	recorder := &fakeRecorder{}
	job := newSessionExpiryJob(t, orders, recorder, provider)
	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	job.now = func() time.Time { return now }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !orders.cutoff.Equal(now.Add(-defaultExpiryGracePeriod)) || orders.limit != defaultExpiryBatchSize {
		t.Fatalf("unexpected query cutoff=%s limit=%d", orders.cutoff, orders.limit)
	}
	if len(provider.closed) != 1 || provider.closed[0] != "cs_open" {
		t.Fatalf("expected only the open session closed at the provider, got %v", provider.closed)
	}
	if len(recorder.expired) != 2 || recorder.expired[0] != "cs_open" || recorder.expired[1] != "cs_gone" {
		t.Fatalf("unexpected expired sessions %v", recorder.expired)
	}
	if len(recorder.fulfilled) != 1 || recorder.fulfilled[0] != "cs_paid" {
		t.Fatalf("expected missed payment fulfilled, got %v", recorder.fulfilled)
	}
	for _, source := range recorder.sources {
		if source != metrics.SourceSweeper {
			t.Fatalf("expected sweeper source, got %s", source)
		}
	}
}

func TestSessionExpiryJobCollectsFailures(t *testing.T) {
	orders := &fakeStaleOrders{orders: []models.Order{{SessionID: "cs_a"}, {SessionID: "cs_b"}, {SessionID: "cs_c"}}}
	recorder := &fakeRecorder{expireErr: map[string]error{
		"cs_a": errors.New("db down"),
		"cs_c": errors.New("db down"),
	}}
	job := newSessionExpiryJob(t, orders, recorder, &fakeProvider{sessions: map[string]*stripego.CheckoutSession{}})

	err := job.Run(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if got := len(multierr.Errors(err)); got != 2 {
		t.Fatalf("expected 2 collected errors, got %d", got)
	}
	if len(recorder.expired) != 1 || recorder.expired[0] != "cs_b" {
		t.Fatalf("expected remaining session processed, got %v", recorder.expired)
	}
}
