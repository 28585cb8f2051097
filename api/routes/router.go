package routes

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	stripego "github.com/stripe/stripe-go/v84"

	"github.com/angelmondragon/storefront-backend/api/controllers"
	cartcontrollers "github.com/angelmondragon/storefront-backend/api/controllers/cart"
	ordercontrollers "github.com/angelmondragon/storefront-backend/api/controllers/orders"
	webhookcontrollers "github.com/angelmondragon/storefront-backend/api/controllers/webhooks"
	"github.com/angelmondragon/storefront-backend/api/middleware"
	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/internal/catalog"
	"github.com/angelmondragon/storefront-backend/internal/checkout"
	"github.com/angelmondragon/storefront-backend/internal/customers"
	"github.com/angelmondragon/storefront-backend/internal/favorites"
	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/internal/paymentmethods"
	"github.com/angelmondragon/storefront-backend/internal/reviews"
	stripewebhook "github.com/angelmondragon/storefront-backend/internal/webhooks/stripe"
	"github.com/angelmondragon/storefront-backend/pkg/auth"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	pkgredis "github.com/angelmondragon/storefront-backend/pkg/redis"
)

// RedisStore is the slice of the redis client the HTTP layer uses.
type RedisStore interface {
	pkgredis.IdempotencyStore
	Ping(ctx context.Context) error
}

// StripeGateway is the slice of the Stripe client the HTTP layer uses.
type StripeGateway interface {
	BreakerState() string
	ConstructEvent(payload []byte, signature string) (stripego.Event, error)
}

// Dependencies carries everything the API router wires into handlers.
type Dependencies struct {
	Config          *config.Config
	Logger          *logger.Logger
	Gatherer        prometheus.Gatherer
	HTTPMetrics     *metrics.HTTPMetrics
	CheckoutMetrics *metrics.CheckoutMetrics
	DB              controllers.Pinger
	Redis           RedisStore
	Stripe          StripeGateway
	Verifier        auth.Verifier

	Customers      customers.Service
	Catalog        catalog.Service
	Cart           cart.Service
	Favorites      favorites.Service
	Orders         orders.Service
	Reviews        reviews.Service
	PaymentMethods paymentmethods.Service
	Checkout       checkout.Service
	StripeWebhooks webhookcontrollers.StripeWebhookService
	WebhookGuard   *stripewebhook.IdempotencyGuard
}

func NewRouter(deps Dependencies) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.RequestID(logg),
		middleware.Recoverer(logg),
		middleware.Logging(logg, deps.HTTPMetrics),
		middleware.CORS(cfg.CORS),
	)

	readiness := controllers.ReadinessDeps{DB: deps.DB}
	if deps.Redis != nil {
		readiness.Redis = deps.Redis
	}
	if deps.Stripe != nil {
		readiness.Stripe = deps.Stripe
	}
	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, readiness, logg))
	})

	if deps.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	var idempotencyStore pkgredis.IdempotencyStore
	if deps.Redis != nil {
		idempotencyStore = deps.Redis
	}
	var eventVerifier interface {
		ConstructEvent(payload []byte, signature string) (stripego.Event, error)
	}
	if deps.Stripe != nil {
		eventVerifier = deps.Stripe
	}
	var webhookGuard webhookcontrollers.WebhookGuard
	if deps.WebhookGuard != nil {
		webhookGuard = deps.WebhookGuard
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/webhooks/stripe", webhookcontrollers.StripeWebhook(deps.StripeWebhooks, eventVerifier, webhookGuard, deps.CheckoutMetrics, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.RateLimit(cfg.RateLimit, logg))

			r.Get("/categories", controllers.CatalogCategories(deps.Catalog, logg))
			r.Get("/products", controllers.CatalogProducts(deps.Catalog, logg))
			r.Get("/products/{productId}", controllers.CatalogProduct(deps.Catalog, logg))
			r.Get("/products/{productId}/reviews", controllers.ReviewsList(deps.Reviews, logg))
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(deps.Verifier, logg))
			r.Use(middleware.RateLimit(cfg.RateLimit, logg))

			r.Get("/csrf", controllers.CSRFToken(cfg.CSRF, logg))
			r.Post("/customers", controllers.CustomerEnsure(deps.Customers, logg))
			r.Get("/customers/me", controllers.CustomerMe(deps.Customers, logg))

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireCustomer(deps.Customers, logg))
				r.Use(middleware.Idempotency(idempotencyStore, logg))

				r.Route("/cart", func(r chi.Router) {
					r.Use(middleware.CSRF(cfg.CSRF, logg))
					r.Get("/", cartcontrollers.CartFetch(deps.Cart, logg))
					r.Delete("/", cartcontrollers.CartClear(deps.Cart, logg))
					r.Post("/items", cartcontrollers.CartAddItem(deps.Cart, logg))
					r.Patch("/items/{variantId}", cartcontrollers.CartUpdateItem(deps.Cart, logg))
					r.Delete("/items/{variantId}", cartcontrollers.CartRemoveItem(deps.Cart, logg))
					r.Post("/merge", cartcontrollers.CartMerge(deps.Cart, logg))
				})

				r.Route("/favorites", func(r chi.Router) {
					r.Get("/", controllers.FavoritesList(deps.Favorites, logg))
					r.Post("/", controllers.FavoritesAdd(deps.Favorites, logg))
					r.Patch("/{variantId}", controllers.FavoritesUpdate(deps.Favorites, logg))
					r.Delete("/{variantId}", controllers.FavoritesRemove(deps.Favorites, logg))
				})

				r.Get("/orders", ordercontrollers.CustomerOrderList(deps.Orders, logg))
				r.Get("/orders/{orderId}", ordercontrollers.CustomerOrderDetail(deps.Orders, logg))

				r.Post("/products/{productId}/reviews", controllers.ReviewsSubmit(deps.Reviews, logg))
				r.Post("/reviews/{reviewId}/votes", controllers.ReviewsVote(deps.Reviews, logg))
				r.Delete("/reviews/{reviewId}/votes", controllers.ReviewsUnvote(deps.Reviews, logg))

				r.Get("/payment-methods", controllers.PaymentMethodsList(deps.PaymentMethods, logg))

				r.Route("/checkout", func(r chi.Router) {
					r.Post("/sessions", controllers.CheckoutCreateSession(deps.Checkout, logg))
					r.Get("/sessions/{sessionId}", controllers.CheckoutGetSession(deps.Checkout, logg))
					r.Post("/setup-sessions", controllers.CheckoutCreateSetupSession(deps.Checkout, logg))
					r.Get("/setup-sessions/{sessionId}", controllers.CheckoutGetSetupSession(deps.Checkout, logg))
				})
			})
		})
	})

	return r
}
