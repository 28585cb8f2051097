package routes

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	stripego "github.com/stripe/stripe-go/v84"

	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/internal/catalog"
	"github.com/angelmondragon/storefront-backend/internal/customers"
	stripewebhook "github.com/angelmondragon/storefront-backend/internal/webhooks/stripe"
	"github.com/angelmondragon/storefront-backend/pkg/auth"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
)

const testBearer = "good-token"

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error {
	return nil
}

type stubRedis struct {
	mu   sync.Mutex
	data map[string]string
}

func newStubRedis() *stubRedis {
	return &stubRedis{data: map[string]string{}}
}

func (s *stubRedis) Get(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data[key], nil
}

func (s *stubRedis) Set(_ context.Context, key string, value any, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = fmt.Sprint(value)
	return nil
}

func (s *stubRedis) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data[key]; ok {
		return false, nil
	}
	s.data[key] = fmt.Sprint(value)
	return true, nil
}

func (s *stubRedis) IdempotencyKey(scope, id string) string {
	return "sf:idempotency:" + scope + ":" + id
}

func (s *stubRedis) Del(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range keys {
		delete(s.data, key)
	}
	return nil
}

func (s *stubRedis) Ping(context.Context) error {
	return nil
}

type stubStripe struct{}

func (stubStripe) BreakerState() string { return "closed" }

func (stubStripe) ConstructEvent([]byte, string) (stripego.Event, error) {
	return stripego.Event{}, fmt.Errorf("bad signature")
}

type stubWebhooks struct{ calls int }

func (s *stubWebhooks) HandleEvent(context.Context, *stripego.Event) error {
	s.calls++
	return nil
}

type stubVerifier struct{}

func (stubVerifier) Verify(_ context.Context, token string) (*auth.Principal, error) {
	if token != testBearer {
		return nil, auth.ErrInvalidToken
	}
	return &auth.Principal{Subject: "user-1"}, nil
}

type stubCustomers struct {
	id uuid.UUID
}

func (s stubCustomers) EnsureCustomer(context.Context, customers.EnsureCustomerInput) (customers.CustomerDTO, bool, error) {
	return customers.CustomerDTO{ID: s.id}, false, nil
}

func (s stubCustomers) GetBySubject(context.Context, string) (customers.CustomerDTO, error) {
	return customers.CustomerDTO{ID: s.id}, nil
}

func (s stubCustomers) ResolveCustomerID(context.Context, string) (uuid.UUID, error) {
	if s.id == uuid.Nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeNotFound, "customer not found")
	}
	return s.id, nil
}

func (s stubCustomers) GetByID(context.Context, uuid.UUID) (*models.Customer, error) {
	return nil, nil
}

func (s stubCustomers) FindByStripeCustomerID(context.Context, string) (*models.Customer, error) {
	return nil, nil
}

type stubCatalog struct{}

func (stubCatalog) ListCategories(context.Context) ([]catalog.CategoryDTO, error) {
	return []catalog.CategoryDTO{}, nil
}

func (stubCatalog) ListProducts(context.Context, catalog.ProductFilters, catalog.PageParams) (catalog.ProductListDTO, error) {
	return catalog.ProductListDTO{Items: []catalog.ProductSummary{}}, nil
}

func (stubCatalog) GetProduct(_ context.Context, ref string) (catalog.ProductDetailDTO, error) {
	return catalog.ProductDetailDTO{Handle: ref}, nil
}

type stubCart struct{}

func (stubCart) GetCart(context.Context, uuid.UUID) (cart.CartDTO, error) {
	return cart.CartDTO{}, nil
}

func (stubCart) AddItem(context.Context, uuid.UUID, uuid.UUID, int) (cart.CartDTO, error) {
	return cart.CartDTO{}, nil
}

func (stubCart) UpdateItem(context.Context, uuid.UUID, uuid.UUID, int) (cart.CartDTO, error) {
	return cart.CartDTO{}, nil
}

func (stubCart) RemoveItem(context.Context, uuid.UUID, uuid.UUID) (cart.CartDTO, error) {
	return cart.CartDTO{}, nil
}

func (stubCart) Clear(context.Context, uuid.UUID) error {
	return nil
}

func (stubCart) Merge(context.Context, uuid.UUID, []cart.MergeItemInput) (cart.MergeResultDTO, error) {
	return cart.MergeResultDTO{}, nil
}

func testConfig() *config.Config {
	return &config.Config{
		App:  config.AppConfig{Env: "dev"},
		CSRF: config.CSRFConfig{Secret: "csrf-secret", TTL: time.Hour},
		CORS: config.CORSConfig{AllowedOrigins: []string{"http://localhost:3000"}},
	}
}

func newTestRouter(t *testing.T, customerID uuid.UUID) (http.Handler, *config.Config) {
	t.Helper()
	cfg := testConfig()
	reg := prometheus.NewRegistry()
	guard, err := stripewebhook.NewIdempotencyGuard(newStubRedis(), time.Minute, "stripe-webhook")
	if err != nil {
		t.Fatalf("guard: %v", err)
	}
	return NewRouter(Dependencies{
		Config:          cfg,
		Gatherer:        reg,
		HTTPMetrics:     metrics.NewHTTPMetrics(reg),
		CheckoutMetrics: metrics.NewCheckoutMetrics(reg),
		DB:              stubPinger{},
		Redis:           newStubRedis(),
		Stripe:          stubStripe{},
		Verifier:        stubVerifier{},
		Customers:       stubCustomers{id: customerID},
		Catalog:         stubCatalog{},
		Cart:            stubCart{},
		StripeWebhooks:  &stubWebhooks{},
		WebhookGuard:    guard,
	}), cfg
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func authed(req *http.Request) *http.Request {
	req.Header.Set("Authorization", "Bearer "+testBearer)
	return req
}

func TestHealthAndMetricsRoutes(t *testing.T) {
	router, _ := newTestRouter(t, uuid.New())

	for _, path := range []string{"/health/live", "/health/ready", "/metrics"} {
		rec := serve(router, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: expected 200 got %d", path, rec.Code)
		}
	}
}

func TestPublicCatalogRoutesSkipAuth(t *testing.T) {
	router, _ := newTestRouter(t, uuid.New())

	for _, path := range []string{"/api/v1/categories", "/api/v1/products", "/api/v1/products/blue-shirt"} {
		rec := serve(router, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: expected 200 got %d (%s)", path, rec.Code, rec.Body.String())
		}
	}
}

func TestProtectedRoutesRequireBearer(t *testing.T) {
	router, _ := newTestRouter(t, uuid.New())

	rec := serve(router, httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	req.Header.Set("Authorization", "Bearer expired")
	if rec := serve(router, req); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for invalid token got %d", rec.Code)
	}
}

func TestCustomerProfileRequired(t *testing.T) {
	router, _ := newTestRouter(t, uuid.Nil)

	rec := serve(router, authed(httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)))
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", rec.Code)
	}

	rec = serve(router, authed(httptest.NewRequest(http.MethodPost, "/api/v1/customers", nil)))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected customer creation route to bypass profile check, got %d", rec.Code)
	}
}

func TestCartMutationsRequireCSRF(t *testing.T) {
	router, cfg := newTestRouter(t, uuid.New())
	body := `{"variant_id":"` + uuid.NewString() + `","quantity":1}`

	rec := serve(router, authed(httptest.NewRequest(http.MethodPost, "/api/v1/cart/items", strings.NewReader(body))))
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 without csrf token got %d", rec.Code)
	}

	token, _, err := auth.MintCSRFToken(cfg.CSRF, time.Now(), "user-1")
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	req := authed(httptest.NewRequest(http.MethodPost, "/api/v1/cart/items", strings.NewReader(body)))
	req.Header.Set("X-CSRF-Token", token)
	if rec := serve(router, req); rec.Code != http.StatusOK {
		t.Fatalf("expected 200 with csrf token got %d (%s)", rec.Code, rec.Body.String())
	}

	if rec := serve(router, authed(httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil))); rec.Code != http.StatusOK {
		t.Fatalf("expected reads to skip csrf, got %d", rec.Code)
	}
}

func TestCheckoutSessionRequiresIdempotencyKey(t *testing.T) {
	router, _ := newTestRouter(t, uuid.New())

	rec := serve(router, authed(httptest.NewRequest(http.MethodPost, "/api/v1/checkout/sessions", nil)))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without Idempotency-Key got %d", rec.Code)
	}
}

func TestStripeWebhookRouteIsPublic(t *testing.T) {
	router, _ := newTestRouter(t, uuid.New())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/stripe", strings.NewReader(`{}`))
	req.Header.Set("Stripe-Signature", "t=1,v1=bad")
	rec := serve(router, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for a bad signature without auth, got %d", rec.Code)
	}
}
