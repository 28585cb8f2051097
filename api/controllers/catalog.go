package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/storefront-backend/api/responses"
	"github.com/angelmondragon/storefront-backend/api/validators"
	"github.com/angelmondragon/storefront-backend/internal/catalog"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

const maxSearchLength = 120

// CatalogCategories lists the categories of active products.
func CatalogCategories(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		categories, err := svc.ListCategories(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, categories)
	}
}

// CatalogProducts lists products with filters, sorting and pagination.
func CatalogProducts(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		filters, page, err := parseProductQuery(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.ListProducts(r.Context(), filters, page)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// CatalogProduct returns a product page by id or handle.
func CatalogProduct(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		ref := strings.TrimSpace(chi.URLParam(r, "productId"))
		if ref == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "product reference is required"))
			return
		}

		product, err := svc.GetProduct(r.Context(), ref)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, product)
	}
}

func parseProductQuery(r *http.Request) (catalog.ProductFilters, catalog.PageParams, error) {
	query := r.URL.Query()

	sort, err := enums.ParseProductSort(strings.TrimSpace(query.Get("sort")))
	if err != nil {
		return catalog.ProductFilters{}, catalog.PageParams{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid sort").
			WithDetails(map[string]any{"field": "sort"})
	}
	minPrice, err := validators.ParseQueryCents(r, "min_price")
	if err != nil {
		return catalog.ProductFilters{}, catalog.PageParams{}, err
	}
	maxPrice, err := validators.ParseQueryCents(r, "max_price")
	if err != nil {
		return catalog.ProductFilters{}, catalog.PageParams{}, err
	}
	inStock, err := validators.ParseQueryBool(r, "in_stock")
	if err != nil {
		return catalog.ProductFilters{}, catalog.PageParams{}, err
	}
	limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
	if err != nil {
		return catalog.ProductFilters{}, catalog.PageParams{}, err
	}
	pageNumber, err := validators.ParseQueryInt(r, "page", 1, 1, 10000)
	if err != nil {
		return catalog.ProductFilters{}, catalog.PageParams{}, err
	}

	filters := catalog.ProductFilters{
		Category:      strings.TrimSpace(query.Get("category")),
		Query:         validators.SanitizeString(query.Get("q"), maxSearchLength),
		MinPriceCents: minPrice,
		MaxPriceCents: maxPrice,
		InStock:       inStock,
		Sort:          sort,
	}
	page := catalog.PageParams{
		Limit:  limit,
		Cursor: strings.TrimSpace(query.Get("cursor")),
		Page:   pageNumber,
	}
	return filters, page, nil
}
