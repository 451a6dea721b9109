package handlers

import (
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/maplecart/storefront/internal/domain"
	"github.com/maplecart/storefront/internal/http/response"
)

const maxWebhookBody = 1 << 16

func (h *Handlers) CreateOrder(w http.ResponseWriter, r *http.Request) {
	claims := getClaims(r)
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "authentication required", response.CodeUnauthorized)
		return
	}

	var req domain.CreateOrderRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	order, err := h.orderService.Create(r.Context(), claims.Sub, &req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, order)
}

func (h *Handlers) MyOrders(w http.ResponseWriter, r *http.Request) {
	claims := getClaims(r)
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "authentication required", response.CodeUnauthorized)
		return
	}

	page, limit := parsePagination(r)
	result, err := h.orderService.ListMine(r.Context(), claims.Sub, page, limit)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handlers) GetOrder(w http.ResponseWriter, r *http.Request) {
	claims := getClaims(r)
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "authentication required", response.CodeUnauthorized)
		return
	}

	id, ok := parseID(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid order id", response.CodeInvalidInput)
		return
	}

	order, err := h.orderService.Get(r.Context(), id, claims.Sub, domain.Role(claims.Role))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

func (h *Handlers) AllOrders(w http.ResponseWriter, r *http.Request) {
	var status *domain.OrderStatus
	if v := r.URL.Query().Get("status"); v != "" {
		parsed, ok := domain.ParseOrderStatus(v)
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid status", response.CodeInvalidInput)
			return
		}
		status = &parsed
	}

	page, limit := parsePagination(r)
	result, err := h.orderService.ListAll(r.Context(), status, page, limit)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type updateOrderStatusRequest struct {
	Status         string  `json:"status"`
	TrackingNumber *string `json:"trackingNumber,omitempty"`
}

func (h *Handlers) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid order id", response.CodeInvalidInput)
		return
	}

	var req updateOrderStatusRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	order, err := h.orderService.UpdateStatus(r.Context(), id, req.Status, req.TrackingNumber)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

type createPaymentIntentRequest struct {
	OrderID int64 `json:"orderId"`
}

func (h *Handlers) CreatePaymentIntent(w http.ResponseWriter, r *http.Request) {
	claims := getClaims(r)
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "authentication required", response.CodeUnauthorized)
		return
	}

	var req createPaymentIntentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.OrderID <= 0 {
		writeError(w, http.StatusBadRequest, "orderId is required", response.CodeInvalidInput)
		return
	}

	resp, err := h.orderService.CreatePaymentIntent(r.Context(), req.OrderID, claims.Sub)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// Webhook receives provider callbacks. The raw body is read before any
// parsing so signature verification sees exactly what was sent.
func (h *Handlers) Webhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read body", response.CodeInvalidInput)
		return
	}

	signature := r.Header.Get("Stripe-Signature")
	if err := h.orderService.HandleGatewayEvent(r.Context(), payload, signature); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"received": true})
}
