package orders

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/api/middleware"
	internalorders "github.com/angelmondragon/storefront-backend/internal/orders"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

type stubOrdersService struct {
	page       internalorders.OrdersPageDTO
	order      internalorders.OrderDTO
	err        error
	lastCursor string
	lastLimit  int
	lastID     uuid.UUID
}

func (s *stubOrdersService) List(_ context.Context, _ uuid.UUID, cursor string, limit int) (internalorders.OrdersPageDTO, error) {
	s.lastCursor = cursor
	s.lastLimit = limit
	return s.page, s.err
}

func (s *stubOrdersService) Get(_ context.Context, _ uuid.UUID, orderID uuid.UUID) (internalorders.OrderDTO, error) {
	s.lastID = orderID
	return s.order, s.err
}

func TestCustomerOrderList(t *testing.T) {
	svc := &stubOrdersService{page: internalorders.OrdersPageDTO{
		Items:      []internalorders.OrderDTO{{ID: uuid.New()}},
		NextCursor: "abc",
	}}
	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders?limit=5&cursor=xyz", nil)
	req = req.WithContext(middleware.WithCustomerID(req.Context(), uuid.New()))
	rec := httptest.NewRecorder()
	CustomerOrderList(svc, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	if svc.lastCursor != "xyz" || svc.lastLimit != 5 {
		t.Fatalf("unexpected paging cursor=%q limit=%d", svc.lastCursor, svc.lastLimit)
	}
	var envelope struct {
		Data       []internalorders.OrderDTO `json:"data"`
		NextCursor string                    `json:"next_cursor"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(envelope.Data) != 1 || envelope.NextCursor != "abc" {
		t.Fatalf("unexpected page %+v", envelope)
	}
}

func TestCustomerOrderDetail(t *testing.T) {
	orderID := uuid.New()

	makeRequest := func(svc *stubOrdersService, param string, withCustomer bool) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/orders/"+param, nil)
		routeCtx := chi.NewRouteContext()
		routeCtx.URLParams.Add("orderId", param)
		ctx := context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx)
		if withCustomer {
			ctx = middleware.WithCustomerID(ctx, uuid.New())
		}
		rec := httptest.NewRecorder()
		CustomerOrderDetail(svc, nil).ServeHTTP(rec, req.WithContext(ctx))
		return rec
	}

	t.Run("found", func(t *testing.T) {
		svc := &stubOrdersService{order: internalorders.OrderDTO{ID: orderID}}
		rec := makeRequest(svc, orderID.String(), true)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200 got %d", rec.Code)
		}
		if svc.lastID != orderID {
			t.Fatalf("expected order id forwarded")
		}
	})

	t.Run("other customer", func(t *testing.T) {
		svc := &stubOrdersService{err: pkgerrors.New(pkgerrors.CodeNotFound, "order not found")}
		rec := makeRequest(svc, orderID.String(), true)
		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404 got %d", rec.Code)
		}
	})

	t.Run("invalid id", func(t *testing.T) {
		rec := makeRequest(&stubOrdersService{}, "not-a-uuid", true)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400 got %d", rec.Code)
		}
	})

	t.Run("missing customer", func(t *testing.T) {
		rec := makeRequest(&stubOrdersService{}, orderID.String(), false)
		if rec.Code != http.StatusForbidden {
			t.Fatalf("expected 403 got %d", rec.Code)
		}
	})
}
