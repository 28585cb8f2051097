package orders

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/dbtest"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

func seedOrder(t *testing.T, conn *gorm.DB, customer *models.Customer, cart *models.Cart, sessionID string, expiresAt *time.Time) *models.Order {
	t.Helper()
	order := &models.Order{
		CustomerID:       customer.ID,
		CartID:           cart.ID,
		SessionID:        sessionID,
		Status:           enums.CheckoutSessionOpen,
		Currency:         "usd",
		SubtotalCents:    2000,
		TotalCents:       2000,
		SessionExpiresAt: expiresAt,
		LineItems: []models.OrderLineItem{{
			VariantID:      uuid.New(),
			ProductTitle:   "Tee",
			VariantTitle:   "M",
			SKU:            "TEE-M",
			UnitPriceCents: 1000,
			Quantity:       2,
			LineTotalCents: 2000,
		}},
	}
	require.NoError(t, NewRepository(conn).Create(context.Background(), order))
	return order
}

func TestMarkFulfilledOnlyOnce(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	customer, cart := dbtest.SeedCustomer(t, conn, "sub-1")
	seedOrder(t, conn, customer, cart, "cs_test_1", nil)
	ctx := context.Background()
	now := time.Now().UTC()

	// An open session has not been paid yet.
	_, changed, err := repo.MarkFulfilled(ctx, "cs_test_1", now)
	require.NoError(t, err)
	assert.False(t, changed)

	require.NoError(t, repo.MarkCompleted(ctx, "cs_test_1", now))
	order, changed, err := repo.MarkFulfilled(ctx, "cs_test_1", now)
	require.NoError(t, err)
	require.True(t, changed)
	assert.True(t, order.Fulfilled)
	assert.Equal(t, enums.CheckoutSessionFulfilled, order.Status)
	require.NotNil(t, order.FulfilledAt)
	require.Len(t, order.LineItems, 1)

	again, changed, err := repo.MarkFulfilled(ctx, "cs_test_1", now)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Nil(t, again)

	_, changed, err = repo.MarkFulfilled(ctx, "cs_unknown", now)
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestMarkExpiredSkipsFulfilled(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	customer, cart := dbtest.SeedCustomer(t, conn, "sub-1")
	seedOrder(t, conn, customer, cart, "cs_paid", nil)
	seedOrder(t, conn, customer, cart, "cs_lapsed", nil)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, repo.MarkCompleted(ctx, "cs_paid", now))
	_, changed, err := repo.MarkFulfilled(ctx, "cs_paid", now)
	require.NoError(t, err)
	require.True(t, changed)

	_, changed, err = repo.MarkExpired(ctx, "cs_paid", now)
	require.NoError(t, err)
	assert.False(t, changed)

	expired, changed, err := repo.MarkExpired(ctx, "cs_lapsed", now)
	require.NoError(t, err)
	require.True(t, changed)
	assert.Equal(t, enums.CheckoutSessionExpired, expired.Status)

	_, changed, err = repo.MarkExpired(ctx, "cs_lapsed", now)
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestMarkFulfilledSkipsExpired(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	customer, cart := dbtest.SeedCustomer(t, conn, "sub-1")
	seedOrder(t, conn, customer, cart, "cs_lapsed", nil)
	ctx := context.Background()
	now := time.Now().UTC()

	_, changed, err := repo.MarkExpired(ctx, "cs_lapsed", now)
	require.NoError(t, err)
	require.True(t, changed)

	require.NoError(t, repo.MarkCompleted(ctx, "cs_lapsed", now))
	_, changed, err = repo.MarkFulfilled(ctx, "cs_lapsed", now)
	require.NoError(t, err)
	assert.False(t, changed)

	stored, err := repo.FindBySessionID(ctx, "cs_lapsed")
	require.NoError(t, err)
	assert.Equal(t, enums.CheckoutSessionExpired, stored.Status)
	assert.False(t, stored.Fulfilled)
}

func TestListStaleOpen(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	customer, cart := dbtest.SeedCustomer(t, conn, "sub-1")
	past := time.Now().Add(-time.Hour).UTC()
	future := time.Now().Add(time.Hour).UTC()
	seedOrder(t, conn, customer, cart, "cs_old", &past)
	seedOrder(t, conn, customer, cart, "cs_new", &future)
	seedOrder(t, conn, customer, cart, "cs_none", nil)

	rows, err := repo.ListStaleOpen(context.Background(), time.Now().UTC(), 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "cs_old", rows[0].SessionID)
}

func TestServiceListsOnlyFulfilledOrders(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	svc, err := NewService(repo)
	require.NoError(t, err)
	customer, cart := dbtest.SeedCustomer(t, conn, "sub-1")
	other, otherCart := dbtest.SeedCustomer(t, conn, "sub-2")
	ctx := context.Background()

	paid := seedOrder(t, conn, customer, cart, "cs_paid", nil)
	seedOrder(t, conn, customer, cart, "cs_open", nil)
	foreign := seedOrder(t, conn, other, otherCart, "cs_foreign", nil)
	for _, session := range []string{"cs_paid", "cs_foreign"} {
		require.NoError(t, repo.MarkCompleted(ctx, session, time.Now().UTC()))
		_, _, err := repo.MarkFulfilled(ctx, session, time.Now().UTC())
		require.NoError(t, err)
	}

	page, err := svc.List(ctx, customer.ID, "", 10)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, paid.ID, page.Items[0].ID)
	require.Len(t, page.Items[0].LineItems, 1)
	assert.Equal(t, int64(2000), page.Items[0].LineItems[0].LineTotalCents)

	detail, err := svc.Get(ctx, customer.ID, paid.ID)
	require.NoError(t, err)
	assert.Equal(t, "cs_paid", detail.SessionID)

	_, err = svc.Get(ctx, customer.ID, foreign.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}
