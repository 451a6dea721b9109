package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/maplecart/storefront/internal/domain"
	"github.com/maplecart/storefront/internal/http/response"
)

func (h *Handlers) ListProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	sort, ok := domain.ParseProductSort(q.Get("sort"))
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid sort", response.CodeInvalidInput)
		return
	}

	filter := domain.ProductFilter{
		Category:     q.Get("category"),
		Search:       q.Get("search"),
		FeaturedOnly: q.Get("featured") == "true",
	}
	if v := q.Get("minPrice"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f >= 0 {
			filter.MinPrice = &f
		}
	}
	if v := q.Get("maxPrice"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f >= 0 {
			filter.MaxPrice = &f
		}
	}

	page, limit := parsePagination(r)
	result, err := h.catalogService.List(r.Context(), filter, sort, page, limit)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handlers) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid product id", response.CodeInvalidInput)
		return
	}

	product, err := h.catalogService.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, product)
}

func (h *Handlers) GetProductBySlug(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	if slug == "" {
		writeError(w, http.StatusBadRequest, "invalid slug", response.CodeInvalidInput)
		return
	}

	product, err := h.catalogService.GetBySlug(r.Context(), slug)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, product)
}

func (h *Handlers) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.catalogService.Categories(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"categories": categories})
}

func (h *Handlers) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateProductRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	product, err := h.catalogService.Create(r.Context(), &req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, product)
}

func (h *Handlers) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid product id", response.CodeInvalidInput)
		return
	}

	var patch domain.ProductPatch
	if !decodeJSON(w, r, &patch) {
		return
	}

	product, err := h.catalogService.Update(r.Context(), id, patch)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, product)
}

func (h *Handlers) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid product id", response.CodeInvalidInput)
		return
	}

	if err := h.catalogService.Delete(r.Context(), id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "product deactivated"})
}
