// Package dbtest opens throwaway in-memory databases migrated with the storefront models.
package dbtest

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
)

// AllModels lists every persisted model in dependency order.
func AllModels() []any {
	return []any{
		&models.Customer{},
		&models.Product{},
		&models.ProductVariant{},
		&models.ProductImage{},
		&models.Cart{},
		&models.CartItem{},
		&models.Favorite{},
		&models.FavoriteItem{},
		&models.Review{},
		&models.ReviewVote{},
		&models.Order{},
		&models.OrderLineItem{},
		&models.OutboxEvent{},
	}
}

const activeCartIndexSQL = `CREATE UNIQUE INDEX IF NOT EXISTS carts_one_active_per_customer ON carts (customer_id) WHERE status = 'active'`

// Open returns an isolated sqlite database with all models migrated.
func Open(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:storefront_%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
		SkipDefaultTransaction: true,
		NowFunc:                func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := conn.AutoMigrate(AllModels()...); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	// Partial indexes are not expressible as gorm tags.
	if err := conn.Exec(activeCartIndexSQL).Error; err != nil {
		t.Fatalf("create active cart index: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := conn.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return conn
}

// SeedVariant inserts an active product with a single variant and returns both.
func SeedVariant(t *testing.T, conn *gorm.DB, title string, priceCents, stock int) (*models.Product, *models.ProductVariant) {
	t.Helper()
	handle := fmt.Sprintf("%s-%s", title, uuid.NewString()[:8])
	product := &models.Product{
		Handle:   handle,
		Title:    title,
		Category: "apparel",
		IsActive: true,
	}
	if err := conn.Create(product).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}
	variant := &models.ProductVariant{
		ProductID:         product.ID,
		SKU:               "SKU-" + handle,
		Title:             "Default",
		PriceCents:        priceCents,
		Currency:          "usd",
		InventoryQuantity: stock,
		IsActive:          true,
	}
	if err := conn.Create(variant).Error; err != nil {
		t.Fatalf("seed variant: %v", err)
	}
	return product, variant
}

// SeedCustomer inserts a customer with an active cart.
func SeedCustomer(t *testing.T, conn *gorm.DB, subject string) (*models.Customer, *models.Cart) {
	t.Helper()
	stripeID := "cus_" + uuid.NewString()[:12]
	customer := &models.Customer{AuthSubject: subject, StripeCustomerID: &stripeID}
	if err := conn.Create(customer).Error; err != nil {
		t.Fatalf("seed customer: %v", err)
	}
	cart := &models.Cart{CustomerID: customer.ID, Status: "active"}
	if err := conn.Create(cart).Error; err != nil {
		t.Fatalf("seed cart: %v", err)
	}
	return customer, cart
}
