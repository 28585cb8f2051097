package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/api/middleware"
	"github.com/angelmondragon/storefront-backend/internal/catalog"
	"github.com/angelmondragon/storefront-backend/internal/checkout"
	"github.com/angelmondragon/storefront-backend/internal/customers"
	"github.com/angelmondragon/storefront-backend/internal/favorites"
	"github.com/angelmondragon/storefront-backend/pkg/auth"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

type stubPinger struct{ err error }

func (s stubPinger) Ping(context.Context) error { return s.err }

type stubBreaker struct{ state string }

func (s stubBreaker) BreakerState() string { return s.state }

func TestHealthReady(t *testing.T) {
	cfg := &config.Config{App: config.AppConfig{Env: "dev"}}

	cases := []struct {
		name   string
		deps   ReadinessDeps
		status int
	}{
		{"all healthy", ReadinessDeps{DB: stubPinger{}, Redis: stubPinger{}, Stripe: stubBreaker{"closed"}}, http.StatusOK},
		{"database down", ReadinessDeps{DB: stubPinger{err: errors.New("refused")}, Redis: stubPinger{}}, http.StatusServiceUnavailable},
		{"breaker open", ReadinessDeps{DB: stubPinger{}, Redis: stubPinger{}, Stripe: stubBreaker{"open"}}, http.StatusServiceUnavailable},
		{"breaker half open", ReadinessDeps{DB: stubPinger{}, Stripe: stubBreaker{"half-open"}}, http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			HealthReady(cfg, tc.deps, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
			if rec.Code != tc.status {
				t.Fatalf("expected %d got %d (%s)", tc.status, rec.Code, rec.Body.String())
			}
			if rec.Header().Get(envHeader) != "dev" {
				t.Fatalf("expected env header to be set")
			}
		})
	}
}

func TestCSRFToken(t *testing.T) {
	cfg := config.CSRFConfig{Secret: "csrf-secret", TTL: time.Hour}

	rec := httptest.NewRecorder()
	CSRFToken(cfg, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/csrf", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without principal, got %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/csrf", nil)
	req = req.WithContext(middleware.WithPrincipal(req.Context(), &auth.Principal{Subject: "user-1"}))
	rec = httptest.NewRecorder()
	CSRFToken(cfg, nil).ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}

	var envelope struct {
		Data csrfTokenResponse `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if err := auth.ValidateCSRFToken(cfg, envelope.Data.Token, "user-1"); err != nil {
		t.Fatalf("issued token should validate: %v", err)
	}
	if err := auth.ValidateCSRFToken(cfg, envelope.Data.Token, "user-2"); err == nil {
		t.Fatalf("token must be bound to its subject")
	}
}

type stubCatalogService struct {
	filters catalog.ProductFilters
	page    catalog.PageParams
	ref     string
	err     error
}

func (s *stubCatalogService) ListCategories(context.Context) ([]catalog.CategoryDTO, error) {
	return []catalog.CategoryDTO{{Name: "shoes", ProductCount: 2}}, s.err
}

func (s *stubCatalogService) ListProducts(_ context.Context, filters catalog.ProductFilters, page catalog.PageParams) (catalog.ProductListDTO, error) {
	s.filters = filters
	s.page = page
	return catalog.ProductListDTO{Items: []catalog.ProductSummary{}}, s.err
}

func (s *stubCatalogService) GetProduct(_ context.Context, ref string) (catalog.ProductDetailDTO, error) {
	s.ref = ref
	if s.err != nil {
		return catalog.ProductDetailDTO{}, s.err
	}
	return catalog.ProductDetailDTO{Handle: ref}, nil
}

func TestCatalogProductsParsesFilters(t *testing.T) {
	svc := &stubCatalogService{}
	req := httptest.NewRequest(http.MethodGet, "/api/v1/products?category=shoes&q=%20runner%20&min_price=100&max_price=500&in_stock=true&sort=price_asc&page=2&limit=10", nil)
	rec := httptest.NewRecorder()
	CatalogProducts(svc, nil).ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d (%s)", rec.Code, rec.Body.String())
	}

	f := svc.filters
	if f.Category != "shoes" || f.Query != "runner" || !f.InStock || f.Sort != enums.ProductSortPriceAsc {
		t.Fatalf("unexpected filters %+v", f)
	}
	if f.MinPriceCents == nil || *f.MinPriceCents != 100 || f.MaxPriceCents == nil || *f.MaxPriceCents != 500 {
		t.Fatalf("unexpected price range %+v", f)
	}
	if svc.page.Page != 2 || svc.page.Limit != 10 {
		t.Fatalf("unexpected page %+v", svc.page)
	}
}

func TestCatalogProductsRejectsBadQuery(t *testing.T) {
	for _, query := range []string{"sort=random", "min_price=-5", "limit=500", "in_stock=maybe"} {
		rec := httptest.NewRecorder()
		CatalogProducts(&stubCatalogService{}, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/products?"+query, nil))
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400 got %d", query, rec.Code)
		}
	}
}

func TestCatalogProductNotFound(t *testing.T) {
	svc := &stubCatalogService{err: pkgerrors.New(pkgerrors.CodeNotFound, "product not found")}
	req := withURLParam(httptest.NewRequest(http.MethodGet, "/api/v1/products/missing", nil), "productId", "missing")
	rec := httptest.NewRecorder()
	CatalogProduct(svc, nil).ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", rec.Code)
	}
	if svc.ref != "missing" {
		t.Fatalf("expected ref passed through, got %q", svc.ref)
	}
}

type stubCustomerService struct {
	created bool
	input   customers.EnsureCustomerInput
}

func (s *stubCustomerService) EnsureCustomer(_ context.Context, input customers.EnsureCustomerInput) (customers.CustomerDTO, bool, error) {
	s.input = input
	return customers.CustomerDTO{ID: uuid.New()}, s.created, nil
}

func (s *stubCustomerService) GetBySubject(context.Context, string) (customers.CustomerDTO, error) {
	return customers.CustomerDTO{}, pkgerrors.New(pkgerrors.CodeNotFound, "customer not found")
}

func (s *stubCustomerService) ResolveCustomerID(context.Context, string) (uuid.UUID, error) {
	return uuid.Nil, nil
}

func (s *stubCustomerService) GetByID(context.Context, uuid.UUID) (*models.Customer, error) {
	return nil, nil
}

func (s *stubCustomerService) FindByStripeCustomerID(context.Context, string) (*models.Customer, error) {
	return nil, nil
}

func TestCustomerEnsureStatus(t *testing.T) {
	principal := &auth.Principal{Subject: "user-1", Email: "a@example.com", Name: "Ada"}

	for _, created := range []bool{true, false} {
		svc := &stubCustomerService{created: created}
		req := httptest.NewRequest(http.MethodPost, "/api/v1/customers", nil)
		req = req.WithContext(middleware.WithPrincipal(req.Context(), principal))
		rec := httptest.NewRecorder()
		CustomerEnsure(svc, nil).ServeHTTP(rec, req)

		want := http.StatusOK
		if created {
			want = http.StatusCreated
		}
		if rec.Code != want {
			t.Fatalf("created=%v: expected %d got %d", created, want, rec.Code)
		}
		if svc.input.Subject != "user-1" || svc.input.Email != "a@example.com" || svc.input.Name != "Ada" {
			t.Fatalf("unexpected input %+v", svc.input)
		}
	}
}

func TestCustomerMeMissing(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/customers/me", nil)
	req = req.WithContext(middleware.WithPrincipal(req.Context(), &auth.Principal{Subject: "user-1"}))
	rec := httptest.NewRecorder()
	CustomerMe(&stubCustomerService{}, nil).ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", rec.Code)
	}
}

type stubCheckoutService struct {
	input checkout.SessionInput
}

func (s *stubCheckoutService) CreateCheckoutSession(_ context.Context, _ uuid.UUID, input checkout.SessionInput) (checkout.SessionDTO, error) {
	s.input = input
	return checkout.SessionDTO{SessionID: "cs_1", URL: "https://checkout.example/cs_1"}, nil
}

func (s *stubCheckoutService) CreateSetupSession(_ context.Context, _ uuid.UUID, input checkout.SessionInput) (checkout.SetupSessionDTO, error) {
	s.input = input
	return checkout.SetupSessionDTO{SessionID: "cs_setup"}, nil
}

func (s *stubCheckoutService) GetSession(_ context.Context, _ uuid.UUID, sessionID string) (checkout.SessionStatusDTO, error) {
	return checkout.SessionStatusDTO{SessionID: sessionID, Status: enums.CheckoutSessionOpen}, nil
}

func (s *stubCheckoutService) GetSetupSession(_ context.Context, _ uuid.UUID, sessionID string) (checkout.SetupSessionStatusDTO, error) {
	return checkout.SetupSessionStatusDTO{SessionID: sessionID}, nil
}

func (s *stubCheckoutService) Fulfill(context.Context, string, string) (*models.Order, bool, error) {
	return nil, false, nil
}

func (s *stubCheckoutService) Expire(context.Context, string, string) (bool, error) {
	return false, nil
}

func TestCheckoutCreateSession(t *testing.T) {
	customerID := uuid.New()

	t.Run("requires customer", func(t *testing.T) {
		rec := httptest.NewRecorder()
		CheckoutCreateSession(&stubCheckoutService{}, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/checkout/sessions", nil))
		if rec.Code != http.StatusForbidden {
			t.Fatalf("expected 403 got %d", rec.Code)
		}
	})

	t.Run("empty body uses defaults", func(t *testing.T) {
		svc := &stubCheckoutService{}
		req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout/sessions", nil)
		req = req.WithContext(middleware.WithCustomerID(req.Context(), customerID))
		rec := httptest.NewRecorder()
		CheckoutCreateSession(svc, nil).ServeHTTP(rec, req)
		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201 got %d (%s)", rec.Code, rec.Body.String())
		}
		if svc.input != (checkout.SessionInput{}) {
			t.Fatalf("expected empty input, got %+v", svc.input)
		}
	})

	t.Run("explicit redirects", func(t *testing.T) {
		svc := &stubCheckoutService{}
		body := `{"success_url":"https://shop.example/ok","cancel_url":"https://shop.example/cart"}`
		req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout/sessions", strings.NewReader(body))
		req = req.WithContext(middleware.WithCustomerID(req.Context(), customerID))
		rec := httptest.NewRecorder()
		CheckoutCreateSession(svc, nil).ServeHTTP(rec, req)
		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201 got %d", rec.Code)
		}
		if svc.input.SuccessURL != "https://shop.example/ok" || svc.input.CancelURL != "https://shop.example/cart" {
			t.Fatalf("unexpected input %+v", svc.input)
		}
	})

	t.Run("invalid redirect", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout/sessions", strings.NewReader(`{"success_url":"not a url"}`))
		req = req.WithContext(middleware.WithCustomerID(req.Context(), customerID))
		rec := httptest.NewRecorder()
		CheckoutCreateSession(&stubCheckoutService{}, nil).ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400 got %d", rec.Code)
		}
	})
}

func TestCheckoutGetSessionPassesID(t *testing.T) {
	req := withURLParam(httptest.NewRequest(http.MethodGet, "/api/v1/checkout/sessions/cs_42", nil), "sessionId", "cs_42")
	req = req.WithContext(middleware.WithCustomerID(req.Context(), uuid.New()))
	rec := httptest.NewRecorder()
	CheckoutGetSession(&stubCheckoutService{}, nil).ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	var envelope struct {
		Data checkout.SessionStatusDTO `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if envelope.Data.SessionID != "cs_42" || envelope.Data.Status != enums.CheckoutSessionOpen {
		t.Fatalf("unexpected body %+v", envelope.Data)
	}
}

type stubFavoritesService struct {
	quantity int
}

func (s *stubFavoritesService) List(context.Context, uuid.UUID, string, int) (favorites.FavoritesPageDTO, error) {
	return favorites.FavoritesPageDTO{NextCursor: "next"}, nil
}

func (s *stubFavoritesService) Add(_ context.Context, _ uuid.UUID, variantID uuid.UUID, quantity int) (favorites.FavoriteItemDTO, error) {
	s.quantity = quantity
	return favorites.FavoriteItemDTO{VariantID: variantID, Quantity: quantity}, nil
}

func (s *stubFavoritesService) UpdateQuantity(context.Context, uuid.UUID, uuid.UUID, int) (favorites.FavoriteItemDTO, error) {
	return favorites.FavoriteItemDTO{}, pkgerrors.New(pkgerrors.CodeNotFound, "favorite not found")
}

func (s *stubFavoritesService) Remove(context.Context, uuid.UUID, uuid.UUID) error {
	return nil
}

func TestFavoritesAddDefaultsQuantity(t *testing.T) {
	svc := &stubFavoritesService{}
	body := `{"variant_id":"` + uuid.NewString() + `"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/favorites", strings.NewReader(body))
	req = req.WithContext(middleware.WithCustomerID(req.Context(), uuid.New()))
	rec := httptest.NewRecorder()
	FavoritesAdd(svc, nil).ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d (%s)", rec.Code, rec.Body.String())
	}
	if svc.quantity != 1 {
		t.Fatalf("expected default quantity 1, got %d", svc.quantity)
	}
}

func TestFavoritesListWritesCursor(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/favorites", nil)
	req = req.WithContext(middleware.WithCustomerID(req.Context(), uuid.New()))
	rec := httptest.NewRecorder()
	FavoritesList(&stubFavoritesService{}, nil).ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	var envelope struct {
		NextCursor string `json:"next_cursor"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if envelope.NextCursor != "next" {
		t.Fatalf("expected next cursor, got %q", envelope.NextCursor)
	}
}

func TestFavoritesUpdateMissing(t *testing.T) {
	variantID := uuid.NewString()
	req := withURLParam(httptest.NewRequest(http.MethodPatch, "/api/v1/favorites/"+variantID, strings.NewReader(`{"quantity":2}`)), "variantId", variantID)
	req = req.WithContext(middleware.WithCustomerID(req.Context(), uuid.New()))
	rec := httptest.NewRecorder()
	FavoritesUpdate(&stubFavoritesService{}, nil).ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", rec.Code)
	}
}

func withURLParam(req *http.Request, key, value string) *http.Request {
	routeCtx := chi.NewRouteContext()
	routeCtx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))
}
