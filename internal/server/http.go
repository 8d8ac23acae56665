package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/lukelai18/ECommerce-API/internal/model"
	"github.com/lukelai18/ECommerce-API/internal/resource"
)

// NewHTTPHandler returns an http.Handler with all routes registered and the
// middleware chain applied. When authToken is non-empty, requests (except
// GET / and GET /health) must include a valid Authorization: Bearer <token>
// header.
func (s *ShopServer) NewHTTPHandler(authToken string) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleRoot)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /database/info", s.handleDatabaseInfo)
	mux.HandleFunc("POST /database/reset", s.handleResetDatabase)
	mux.HandleFunc("DELETE /database/collections/{name}", s.handleClearCollection)
	mux.HandleFunc("GET /events/stream", s.handleEventStream)

	mux.HandleFunc("POST /users", createHandler(s, s.svc.CreateUser))
	mux.HandleFunc("GET /users", listHandler(s, resource.Users, s.svc.ListUsers))
	mux.HandleFunc("GET /users/{id}", getHandler(s, s.svc.GetUser))
	mux.HandleFunc("PUT /users/{id}", updateHandler(s, s.svc.UpdateUser))
	mux.HandleFunc("DELETE /users/{id}", deleteHandler(s, s.svc.DeleteUser))

	mux.HandleFunc("POST /products", createHandler(s, s.svc.CreateProduct))
	mux.HandleFunc("GET /products", listHandler(s, resource.Products, s.svc.ListProducts))
	mux.HandleFunc("GET /products/available", s.handleAvailableProducts)
	mux.HandleFunc("GET /products/{id}", getHandler(s, s.svc.GetProduct))
	mux.HandleFunc("PUT /products/{id}", updateHandler(s, s.svc.UpdateProduct))
	mux.HandleFunc("DELETE /products/{id}", deleteHandler(s, s.svc.DeleteProduct))

	mux.HandleFunc("POST /orders", createHandler(s, s.svc.CreateOrder))
	mux.HandleFunc("GET /orders", listHandler(s, resource.Orders, s.svc.ListOrders))
	mux.HandleFunc("GET /orders/{id}", getHandler(s, s.svc.GetOrder))
	mux.HandleFunc("PUT /orders/{id}", updateHandler(s, s.svc.UpdateOrder))
	mux.HandleFunc("DELETE /orders/{id}", deleteHandler(s, s.svc.DeleteOrder))

	mux.HandleFunc("POST /categories", createHandler(s, s.svc.CreateCategory))
	mux.HandleFunc("GET /categories", listHandler(s, resource.Categories, s.svc.ListCategories))
	mux.HandleFunc("GET /categories/{id}", getHandler(s, s.svc.GetCategory))
	mux.HandleFunc("PUT /categories/{id}", updateHandler(s, s.svc.UpdateCategory))
	mux.HandleFunc("DELETE /categories/{id}", deleteHandler(s, s.svc.DeleteCategory))

	mux.HandleFunc("POST /reviews", createHandler(s, s.svc.CreateReview))
	mux.HandleFunc("GET /reviews", listHandler(s, resource.Reviews, s.svc.ListReviews))
	mux.HandleFunc("GET /reviews/{id}", getHandler(s, s.svc.GetReview))
	mux.HandleFunc("PUT /reviews/{id}", updateHandler(s, s.svc.UpdateReview))
	mux.HandleFunc("DELETE /reviews/{id}", deleteHandler(s, s.svc.DeleteReview))

	mux.HandleFunc("POST /inventories", createHandler(s, s.svc.CreateInventory))
	mux.HandleFunc("GET /inventories", listHandler(s, resource.Inventories, s.svc.ListInventories))
	mux.HandleFunc("GET /inventories/low-stock", s.handleLowStock)
	mux.HandleFunc("GET /inventories/{id}", getHandler(s, s.svc.GetInventory))
	mux.HandleFunc("PUT /inventories/{id}", updateHandler(s, s.svc.UpdateInventory))
	mux.HandleFunc("DELETE /inventories/{id}", deleteHandler(s, s.svc.DeleteInventory))

	mux.HandleFunc("POST /suppliers", createHandler(s, s.svc.CreateSupplier))
	mux.HandleFunc("GET /suppliers", listHandler(s, resource.Suppliers, s.svc.ListSuppliers))
	mux.HandleFunc("GET /suppliers/{id}", getHandler(s, s.svc.GetSupplier))
	mux.HandleFunc("PUT /suppliers/{id}", updateHandler(s, s.svc.UpdateSupplier))
	mux.HandleFunc("DELETE /suppliers/{id}", deleteHandler(s, s.svc.DeleteSupplier))

	var h http.Handler = mux
	h = AuthMiddleware(authToken, h)
	h = LoggingMiddleware(s.logger, h)
	h = RequestIDMiddleware(h)
	h = RecoveryMiddleware(s.logger, h)
	return h
}

// handleRoot handles GET /.
func (s *ShopServer) handleRoot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"message":   "Welcome to the E-Commerce API",
		"resources": resource.Collections,
		"health":    "/health",
	})
}

// handleHealth handles GET /health.
func (s *ShopServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	ts := s.now().UTC().Format(time.RFC3339)
	if err := s.svc.Ping(ctx); err != nil {
		s.logger.Warn("health check failed", "err", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status":    "unhealthy",
			"error":     err.Error(),
			"timestamp": ts,
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy", "timestamp": ts})
}

// handleDatabaseInfo handles GET /database/info.
func (s *ShopServer) handleDatabaseInfo(w http.ResponseWriter, r *http.Request) {
	info, err := s.svc.DatabaseInfo(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// handleResetDatabase handles POST /database/reset.
func (s *ShopServer) handleResetDatabase(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.ResetDatabase(r.Context()); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleClearCollection handles DELETE /database/collections/{name}.
func (s *ShopServer) handleClearCollection(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.ClearCollection(r.Context(), r.PathValue("name")); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleAvailableProducts handles GET /products/available.
func (s *ShopServer) handleAvailableProducts(w http.ResponseWriter, r *http.Request) {
	products, err := s.svc.AvailableProducts(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, products)
}

// handleLowStock handles GET /inventories/low-stock.
func (s *ShopServer) handleLowStock(w http.ResponseWriter, r *http.Request) {
	inventories, err := s.svc.LowStockInventories(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, inventories)
}

// writeServiceError maps resource-layer errors onto status codes:
// not found → 404, conflicts → 400, malformed input → 422, anything else → 500.
func (s *ShopServer) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		nf *resource.NotFoundError
		ce *resource.ConflictError
		ve *model.ValidationError
	)
	switch {
	case errors.As(err, &nf):
		writeError(w, http.StatusNotFound, nf.Error())
	case errors.As(err, &ce):
		writeError(w, http.StatusBadRequest, ce.Error())
	case errors.As(err, &ve):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error":   ve.Error(),
			"details": ve.Errors,
		})
	default:
		s.logger.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", RequestIDFromContext(r.Context()),
			"err", err,
		)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// pathID parses the {id} path segment.
func pathID(r *http.Request) (int64, error) {
	raw := r.PathValue("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, &model.ValidationError{Errors: []model.FieldError{{
			Field:   "id",
			Message: fmt.Sprintf("must be an integer, got %q", raw),
		}}}
	}
	return id, nil
}

// decodeBody decodes a JSON request body into v. Decoding failures are
// reported as validation errors so they surface as 422.
func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		return bodyError("invalid JSON body: " + err.Error())
	}
	if _, err := dec.Token(); err != io.EOF {
		return bodyError("invalid JSON body: unexpected data after the top-level value")
	}
	return nil
}

func bodyError(msg string) *model.ValidationError {
	return &model.ValidationError{Errors: []model.FieldError{{Field: "body", Message: msg}}}
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
