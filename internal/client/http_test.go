package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/lukelai18/ECommerce-API/internal/resource"
	"github.com/lukelai18/ECommerce-API/internal/server"
	"github.com/lukelai18/ECommerce-API/internal/store/memory"
)

// testHandler captures the incoming request details and returns a canned response.
type testHandler struct {
	// captured from the request
	method      string
	path        string
	query       string
	body        string
	contentType string
	auth        string

	// canned response
	statusCode   int
	responseBody string
}

func (h *testHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.method = r.Method
	h.path = r.URL.Path
	h.query = r.URL.RawQuery
	h.contentType = r.Header.Get("Content-Type")
	h.auth = r.Header.Get("Authorization")
	if r.Body != nil {
		data, _ := io.ReadAll(r.Body)
		h.body = string(data)
	}

	w.Header().Set("Content-Type", "application/json")
	if h.statusCode != 0 {
		w.WriteHeader(h.statusCode)
	} else {
		w.WriteHeader(http.StatusOK)
	}
	if h.responseBody != "" {
		_, _ = w.Write([]byte(h.responseBody))
	}
}

// newTestClient creates an HTTPClient pointed at a test server with the given handler.
func newTestClient(t *testing.T, h http.Handler, token string) *HTTPClient {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewHTTPClient(srv.URL+"/", token)
}

func TestHTTPClient_Create(t *testing.T) {
	h := &testHandler{
		statusCode:   http.StatusCreated,
		responseBody: `{"id":1,"username":"alice","email":"alice@example.com","is_active":true}`,
	}
	c := newTestClient(t, h, "")

	got, err := c.Create(context.Background(), "users", Object{"username": "alice", "email": "alice@example.com"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if h.method != http.MethodPost || h.path != "/users" {
		t.Errorf("request = %s %s, want POST /users", h.method, h.path)
	}
	if h.contentType != "application/json" {
		t.Errorf("Content-Type = %q", h.contentType)
	}
	var sent map[string]any
	if err := json.Unmarshal([]byte(h.body), &sent); err != nil {
		t.Fatalf("request body: %v", err)
	}
	if sent["username"] != "alice" {
		t.Errorf("sent body = %v", sent)
	}
	if got["id"] != float64(1) || got["is_active"] != true {
		t.Errorf("unexpected result %v", got)
	}
}

func TestHTTPClient_Paths(t *testing.T) {
	for _, tc := range []struct {
		name       string
		call       func(c *HTTPClient) error
		wantMethod string
		wantPath   string
		wantQuery  string
		response   string
		status     int
	}{
		{
			name:       "get",
			call:       func(c *HTTPClient) error { _, err := c.Get(context.Background(), "products", 7); return err },
			wantMethod: http.MethodGet, wantPath: "/products/7", response: `{"id":7}`,
		},
		{
			name: "list with filter",
			call: func(c *HTTPClient) error {
				_, err := c.List(context.Background(), "orders", url.Values{"status": {"shipped"}})
				return err
			},
			wantMethod: http.MethodGet, wantPath: "/orders", wantQuery: "status=shipped", response: `[]`,
		},
		{
			name: "update",
			call: func(c *HTTPClient) error {
				_, err := c.Update(context.Background(), "orders", 3, Object{"status": "shipped"})
				return err
			},
			wantMethod: http.MethodPut, wantPath: "/orders/3", response: `{"id":3}`,
		},
		{
			name:       "delete",
			call:       func(c *HTTPClient) error { return c.Delete(context.Background(), "reviews", 2) },
			wantMethod: http.MethodDelete, wantPath: "/reviews/2", status: http.StatusNoContent,
		},
		{
			name:       "available products",
			call:       func(c *HTTPClient) error { _, err := c.AvailableProducts(context.Background()); return err },
			wantMethod: http.MethodGet, wantPath: "/products/available", response: `[]`,
		},
		{
			name:       "low stock",
			call:       func(c *HTTPClient) error { _, err := c.LowStockInventories(context.Background()); return err },
			wantMethod: http.MethodGet, wantPath: "/inventories/low-stock", response: `[]`,
		},
		{
			name:       "database info",
			call:       func(c *HTTPClient) error { _, err := c.DatabaseInfo(context.Background()); return err },
			wantMethod: http.MethodGet, wantPath: "/database/info", response: `{"database_name":"ecommerce_db"}`,
		},
		{
			name:       "reset",
			call:       func(c *HTTPClient) error { return c.ResetDatabase(context.Background()) },
			wantMethod: http.MethodPost, wantPath: "/database/reset", response: `{"message":"ok"}`,
		},
		{
			name:       "clear",
			call:       func(c *HTTPClient) error { return c.ClearCollection(context.Background(), "users") },
			wantMethod: http.MethodDelete, wantPath: "/database/collections/users", response: `{"message":"ok"}`,
		},
		{
			name:       "health",
			call:       func(c *HTTPClient) error { _, err := c.Health(context.Background()); return err },
			wantMethod: http.MethodGet, wantPath: "/health", response: `{"status":"healthy"}`,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			h := &testHandler{statusCode: tc.status, responseBody: tc.response}
			c := newTestClient(t, h, "")
			if err := tc.call(c); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if h.method != tc.wantMethod || h.path != tc.wantPath {
				t.Errorf("request = %s %s, want %s %s", h.method, h.path, tc.wantMethod, tc.wantPath)
			}
			if h.query != tc.wantQuery {
				t.Errorf("query = %q, want %q", h.query, tc.wantQuery)
			}
		})
	}
}

func TestHTTPClient_AuthHeader(t *testing.T) {
	h := &testHandler{responseBody: `{"status":"healthy"}`}
	c := newTestClient(t, h, "s3cret")

	if _, err := c.Health(context.Background()); err != nil {
		t.Fatalf("Health: %v", err)
	}
	if h.auth != "Bearer s3cret" {
		t.Fatalf("Authorization = %q", h.auth)
	}

	h2 := &testHandler{responseBody: `{"status":"healthy"}`}
	c2 := newTestClient(t, h2, "")
	if _, err := c2.Health(context.Background()); err != nil {
		t.Fatalf("Health: %v", err)
	}
	if h2.auth != "" {
		t.Fatalf("expected no Authorization header, got %q", h2.auth)
	}
}

func TestHTTPClient_Errors(t *testing.T) {
	for _, tc := range []struct {
		name        string
		status      int
		body        string
		wantMessage string
		wantDetails int
	}{
		{"not found", http.StatusNotFound, `{"error":"user 9 not found"}`, "user 9 not found", 0},
		{"conflict", http.StatusBadRequest, `{"error":"email already registered"}`, "email already registered", 0},
		{
			"validation", http.StatusUnprocessableEntity,
			`{"error":"validation failed","details":[{"field":"email","message":"invalid"},{"field":"username","message":"required"}]}`,
			"validation failed", 2,
		},
		{"plain text", http.StatusBadGateway, "upstream down\n", "upstream down", 0},
	} {
		t.Run(tc.name, func(t *testing.T) {
			c := newTestClient(t, &testHandler{statusCode: tc.status, responseBody: tc.body}, "")

			_, err := c.Get(context.Background(), "users", 9)
			var apiErr *APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("expected *APIError, got %T: %v", err, err)
			}
			if apiErr.StatusCode != tc.status {
				t.Errorf("StatusCode = %d, want %d", apiErr.StatusCode, tc.status)
			}
			if apiErr.Message != tc.wantMessage {
				t.Errorf("Message = %q, want %q", apiErr.Message, tc.wantMessage)
			}
			if len(apiErr.Details) != tc.wantDetails {
				t.Errorf("Details = %v, want %d entries", apiErr.Details, tc.wantDetails)
			}
			if !strings.Contains(err.Error(), fmt.Sprintf("HTTP %d", tc.status)) {
				t.Errorf("Error() = %q", err.Error())
			}
		})
	}
}

func TestHTTPClient_DecodeError(t *testing.T) {
	c := newTestClient(t, &testHandler{responseBody: `not json`}, "")
	if _, err := c.Get(context.Background(), "users", 1); err == nil || !strings.Contains(err.Error(), "decoding response") {
		t.Fatalf("expected decode error, got %v", err)
	}
}

func TestReadSSE(t *testing.T) {
	stream := ": connected\n\n" +
		"id:1\nevent:shop.users.created\ndata:{\"record_id\":1}\n\n" +
		": keepalive\n\n" +
		"id:2\nevent:shop.users.deleted\ndata:{\"a\":1}\ndata:{\"b\":2}\n\n"

	var got []Event
	err := readSSE(strings.NewReader(stream), func(e *Event) error {
		got = append(got, *e)
		return nil
	})
	if err != nil {
		t.Fatalf("readSSE: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 events, got %d: %+v", len(got), got)
	}
	if got[0].ID != "1" || got[0].Topic != "shop.users.created" || string(got[0].Data) != `{"record_id":1}` {
		t.Errorf("unexpected first event %+v", got[0])
	}
	if string(got[1].Data) != "{\"a\":1}\n{\"b\":2}" {
		t.Errorf("expected multi-line data to be joined, got %q", got[1].Data)
	}

	stop := errors.New("stop")
	err = readSSE(strings.NewReader(stream), func(*Event) error { return stop })
	if !errors.Is(err, stop) {
		t.Fatalf("expected callback error, got %v", err)
	}
}

// --- Against a real server ---

func newShopServer(t *testing.T) (*HTTPClient, *server.EventHub) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	hub := server.NewEventHub()
	svc := resource.New(memory.New(), hub, logger)
	if err := svc.Init(context.Background()); err != nil {
		t.Fatalf("init: %v", err)
	}
	srv := httptest.NewServer(server.NewShopServer(svc, hub, logger).NewHTTPHandler("token"))
	t.Cleanup(func() {
		_ = hub.Close()
		srv.Close()
	})
	return NewHTTPClient(srv.URL, "token"), hub
}

func TestHTTPClient_AgainstServer(t *testing.T) {
	c, _ := newShopServer(t)
	ctx := context.Background()

	hs, err := c.Health(ctx)
	if err != nil || hs.Status != "healthy" {
		t.Fatalf("Health = %+v, %v", hs, err)
	}

	user, err := c.Create(ctx, resource.Users, Object{"username": "dana", "email": "dana@example.com"})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if _, err := c.Create(ctx, resource.Products, Object{"name": "Lamp", "price": 20, "stock": 2}); err != nil {
		t.Fatalf("create product: %v", err)
	}
	order, err := c.Create(ctx, resource.Orders, Object{"user_id": user["id"], "product_ids": []int{1}})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	if order["total_amount"] != float64(20) {
		t.Fatalf("total_amount = %v", order["total_amount"])
	}

	orders, err := c.List(ctx, resource.Orders, url.Values{"status": {"pending"}})
	if err != nil || len(orders) != 1 {
		t.Fatalf("List = %v, %v", orders, err)
	}
	available, err := c.AvailableProducts(ctx)
	if err != nil || len(available) != 1 {
		t.Fatalf("AvailableProducts = %v, %v", available, err)
	}

	_, err = c.Create(ctx, resource.Users, Object{"username": "dana2", "email": "dana@example.com"})
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for duplicate email, got %v", err)
	}

	info, err := c.DatabaseInfo(ctx)
	if err != nil {
		t.Fatalf("DatabaseInfo: %v", err)
	}
	if info.TotalRecords != 3 || info.Tables[resource.Orders].Count != 1 {
		t.Fatalf("unexpected info %+v", info)
	}

	if err := c.Delete(ctx, resource.Orders, 1); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := c.Get(ctx, resource.Orders, 1); !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %v", err)
	}

	if err := c.ResetDatabase(ctx); err != nil {
		t.Fatalf("ResetDatabase: %v", err)
	}
	users, err := c.List(ctx, resource.Users, nil)
	if err != nil || len(users) != 0 {
		t.Fatalf("expected no users after reset, got %v, %v", users, err)
	}
}

func TestHTTPClient_Unauthorized(t *testing.T) {
	authed, _ := newShopServer(t)
	c := NewHTTPClient(authed.baseURL, "wrong")

	_, err := c.List(context.Background(), resource.Users, nil)
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %v", err)
	}
}

func TestHTTPClient_StreamEvents(t *testing.T) {
	c, _ := newShopServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	received := make(chan *Event, 4)
	streamDone := make(chan error, 1)
	go func() {
		streamDone <- c.StreamEvents(ctx, &StreamRequest{Collections: []string{resource.Products}}, func(e *Event) error {
			received <- e
			return nil
		})
	}()

	// Give the stream time to subscribe.
	time.Sleep(100 * time.Millisecond)

	if _, err := c.Create(ctx, resource.Users, Object{"username": "erin", "email": "erin@example.com"}); err != nil {
		t.Fatalf("create user: %v", err)
	}
	if _, err := c.Create(ctx, resource.Products, Object{"name": "Desk", "price": 120, "stock": 1}); err != nil {
		t.Fatalf("create product: %v", err)
	}

	select {
	case e := <-received:
		if e.Topic != "shop.products.created" {
			t.Fatalf("expected products event, got %q", e.Topic)
		}
		var payload map[string]any
		if err := json.Unmarshal(e.Data, &payload); err != nil {
			t.Fatalf("event data: %v", err)
		}
		if payload["collection"] != resource.Products {
			t.Fatalf("unexpected payload %v", payload)
		}
	case <-ctx.Done():
		t.Fatal("timed out waiting for event")
	}

	cancel()
	select {
	case err := <-streamDone:
		if err != nil {
			t.Fatalf("StreamEvents returned %v after cancel", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("StreamEvents did not return after cancel")
	}
}
