// Package api exposes the order-management HTTP surface: order queries,
// order creation, and thin catalog reads. Handlers decode JSON, delegate to
// the domain layer, and map domain errors to HTTP statuses.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/orders-service/internal/domain/order"
	"github.com/xenking/orders-service/internal/domain/product"
)

// Handler holds the dependencies shared by all HTTP handlers.
type Handler struct {
	orders   *order.Service
	products product.Repository
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(orders *order.Service, products product.Repository) *Handler {
	return &Handler{
		orders:   orders,
		products: products,
	}
}

// Router returns the chi router with all API routes mounted.
func (h *Handler) Router() chi.Router {
	r := chi.NewRouter()

	r.Route("/orders", func(r chi.Router) {
		r.Get("/", h.ListOrders)
		r.Post("/", h.CreateOrder)
		r.Get("/status/{status}", h.ListOrdersByStatus)
		r.Get("/user/{userID}", h.ListOrdersByUser)
		r.Get("/date/{date}", h.ListOrdersByDate)
	})

	r.Route("/products", func(r chi.Router) {
		r.Get("/", h.ListProducts)
		r.Get("/{productID}", h.GetProduct)
	})

	return r
}

// messageResponse is the body for not-found and validation failures.
type messageResponse struct {
	Message string `json:"message"`
}

// errorResponse is the body for order-creation failures, matching the
// `{error}` shape of the create contract.
type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, messageResponse{Message: msg})
}

// internalError logs err with the request-scoped logger and responds 500
// without exposing internals to the client.
func internalError(w http.ResponseWriter, r *http.Request, err error) {
	zctx.From(r.Context()).Error("request failed",
		zap.String("path", r.URL.Path),
		zap.Error(err),
	)
	writeMessage(w, http.StatusInternalServerError, "internal server error")
}
