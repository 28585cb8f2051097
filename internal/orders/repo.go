package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

const (
	markFulfilledSQL = `UPDATE orders
SET fulfilled = ?, status = ?, fulfilled_at = ?, updated_at = ?
WHERE session_id = ? AND fulfilled = ? AND status IN ?
RETURNING id`

	markExpiredSQL = `UPDATE orders
SET status = ?, expired_at = ?, updated_at = ?
WHERE session_id = ? AND fulfilled = ? AND status IN (?, ?)
RETURNING id`

	markCompletedSQL = `UPDATE orders
SET status = ?, updated_at = ?
WHERE session_id = ? AND fulfilled = ? AND status = ?`
)

// Repository persists orders and their line item snapshots.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs an orders repository bound to db.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx binds the repository to a transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// Create inserts the order together with its line items.
func (r *Repository) Create(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Create(order).Error
}

// FindBySessionID loads the order opened for a checkout session.
func (r *Repository) FindBySessionID(ctx context.Context, sessionID string) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("LineItems", orderLineItems).
		Where("session_id = ?", sessionID).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// FindFulfilledForCustomer loads a fulfilled order that belongs to the customer.
func (r *Repository) FindFulfilledForCustomer(ctx context.Context, customerID, orderID uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("LineItems", orderLineItems).
		Where("id = ? AND customer_id = ? AND fulfilled = ?", orderID, customerID, true).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// ListFulfilled returns fulfilled orders newest first with one extra row for paging.
func (r *Repository) ListFulfilled(ctx context.Context, customerID uuid.UUID, cursor *pagination.Cursor, limit int) ([]models.Order, error) {
	var rows []models.Order
	err := r.db.WithContext(ctx).
		Preload("LineItems", orderLineItems).
		Where("customer_id = ? AND fulfilled = ?", customerID, true).
		Scopes(pagination.Before(cursor, "")).
		Limit(pagination.LimitWithBuffer(limit)).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// MarkFulfilled flips the fulfilled flag exactly once per session. The
// boolean is false when the session was already fulfilled or is unknown.
//
// Only orders whose status may move to fulfilled are changed, so an expired
// session is never fulfilled.
func (r *Repository) MarkFulfilled(ctx context.Context, sessionID string, at time.Time) (*models.Order, bool, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Raw(markFulfilledSQL, true, enums.CheckoutSessionFulfilled, at, at, sessionID, false,
			enums.TransitionSources(enums.CheckoutSessionFulfilled)).
		Scan(&ids).Error
	if err != nil || len(ids) == 0 {
		return nil, false, err
	}
	order, err := r.findByID(ctx, ids[0])
	if err != nil {
		return nil, false, err
	}
	return order, true, nil
}

// MarkCompleted records that the provider reported the session complete before fulfillment ran.
func (r *Repository) MarkCompleted(ctx context.Context, sessionID string, at time.Time) error {
	return r.db.WithContext(ctx).
		Exec(markCompletedSQL, enums.CheckoutSessionCompleted, at, sessionID, false, enums.CheckoutSessionOpen).
		Error
}

// MarkExpired moves an unfulfilled open session to expired. The boolean is
// false when nothing changed.
func (r *Repository) MarkExpired(ctx context.Context, sessionID string, at time.Time) (*models.Order, bool, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Raw(markExpiredSQL, enums.CheckoutSessionExpired, at, at, sessionID, false, enums.CheckoutSessionCreated, enums.CheckoutSessionOpen).
		Scan(&ids).Error
	if err != nil || len(ids) == 0 {
		return nil, false, err
	}
	order, err := r.findByID(ctx, ids[0])
	if err != nil {
		return nil, false, err
	}
	return order, true, nil
}

// ListStaleOpen returns open sessions whose provider expiry is before cutoff.
func (r *Repository) ListStaleOpen(ctx context.Context, cutoff time.Time, limit int) ([]models.Order, error) {
	var rows []models.Order
	err := r.db.WithContext(ctx).
		Where("fulfilled = ? AND status IN ? AND session_expires_at IS NOT NULL AND session_expires_at < ?",
			false, []enums.CheckoutSessionStatus{enums.CheckoutSessionCreated, enums.CheckoutSessionOpen}, cutoff).
		Order("session_expires_at ASC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *Repository) findByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).Preload("LineItems", orderLineItems).First(&order, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func orderLineItems(db *gorm.DB) *gorm.DB {
	return db.Order("created_at ASC").Order("id ASC")
}
