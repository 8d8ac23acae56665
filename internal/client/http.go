package client

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/lukelai18/ECommerce-API/internal/resource"
)

// HTTPClient implements ShopClient using the shop HTTP/JSON REST API.
type HTTPClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

var _ ShopClient = (*HTTPClient)(nil)

// NewHTTPClient creates a new HTTP client targeting the given base URL
// (e.g. "http://localhost:8000"). When token is non-empty, an Authorization
// header is set on every request.
func NewHTTPClient(baseURL, token string) *HTTPClient {
	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{},
	}
}

// Close is a no-op for the HTTP client.
func (c *HTTPClient) Close() error { return nil }

// --- Resource CRUD ---

func (c *HTTPClient) Create(ctx context.Context, res string, body Object) (Object, error) {
	var out Object
	if err := c.doJSON(ctx, http.MethodPost, "/"+url.PathEscape(res), body, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *HTTPClient) Get(ctx context.Context, res string, id int64) (Object, error) {
	var out Object
	if err := c.doJSON(ctx, http.MethodGet, recordPath(res, id), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *HTTPClient) List(ctx context.Context, res string, filter url.Values) ([]Object, error) {
	path := "/" + url.PathEscape(res)
	if len(filter) > 0 {
		path += "?" + filter.Encode()
	}
	var out []Object
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *HTTPClient) Update(ctx context.Context, res string, id int64, body Object) (Object, error) {
	var out Object
	if err := c.doJSON(ctx, http.MethodPut, recordPath(res, id), body, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *HTTPClient) Delete(ctx context.Context, res string, id int64) error {
	return c.doJSON(ctx, http.MethodDelete, recordPath(res, id), nil, nil)
}

// --- Derived views ---

func (c *HTTPClient) AvailableProducts(ctx context.Context) ([]Object, error) {
	var out []Object
	if err := c.doJSON(ctx, http.MethodGet, "/products/available", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *HTTPClient) LowStockInventories(ctx context.Context) ([]Object, error) {
	var out []Object
	if err := c.doJSON(ctx, http.MethodGet, "/inventories/low-stock", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// --- Database administration ---

func (c *HTTPClient) DatabaseInfo(ctx context.Context) (*resource.DatabaseInfo, error) {
	var info resource.DatabaseInfo
	if err := c.doJSON(ctx, http.MethodGet, "/database/info", nil, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

func (c *HTTPClient) ResetDatabase(ctx context.Context) error {
	return c.doJSON(ctx, http.MethodPost, "/database/reset", nil, nil)
}

func (c *HTTPClient) ClearCollection(ctx context.Context, name string) error {
	return c.doJSON(ctx, http.MethodDelete, "/database/collections/"+url.PathEscape(name), nil, nil)
}

// --- Health ---

// Health returns the server's health report. An unhealthy server yields an
// *APIError with status 503.
func (c *HTTPClient) Health(ctx context.Context) (*HealthStatus, error) {
	var hs HealthStatus
	if err := c.doJSON(ctx, http.MethodGet, "/health", nil, &hs); err != nil {
		return nil, err
	}
	return &hs, nil
}

// --- Events ---

// StreamEvents consumes GET /events/stream and calls fn for every event until
// ctx is cancelled, the server closes the stream, or fn returns an error.
func (c *HTTPClient) StreamEvents(ctx context.Context, req *StreamRequest, fn func(*Event) error) error {
	q := url.Values{}
	if len(req.Topics) > 0 {
		q.Set("topics", strings.Join(req.Topics, ","))
	}
	if len(req.Collections) > 0 {
		q.Set("collections", strings.Join(req.Collections, ","))
	}
	path := "/events/stream"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	httpReq, err := c.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	httpReq.Header.Set("Accept", "text/event-stream")
	if req.LastEventID != "" {
		httpReq.Header.Set("Last-Event-ID", req.LastEventID)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("performing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		return apiError(resp.StatusCode, body)
	}

	err = readSSE(resp.Body, fn)
	if ctx.Err() != nil {
		return nil
	}
	return err
}

// readSSE parses a text/event-stream body. Comment lines are skipped and
// an event is dispatched on each blank line.
func readSSE(r io.Reader, fn func(*Event) error) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)

	var evt Event
	var data bytes.Buffer
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			if data.Len() == 0 && evt.Topic == "" {
				continue
			}
			evt.Data = bytes.Clone(data.Bytes())
			if err := fn(&evt); err != nil {
				return err
			}
			evt = Event{}
			data.Reset()
		case strings.HasPrefix(line, ":"):
		case strings.HasPrefix(line, "id:"):
			evt.ID = strings.TrimSpace(strings.TrimPrefix(line, "id:"))
		case strings.HasPrefix(line, "event:"):
			evt.Topic = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			if data.Len() > 0 {
				data.WriteByte('\n')
			}
			data.WriteString(strings.TrimPrefix(line, "data:"))
		}
	}
	return scanner.Err()
}

// --- internal helpers ---

func recordPath(res string, id int64) string {
	return "/" + url.PathEscape(res) + "/" + strconv.FormatInt(id, 10)
}

// APIError represents an error response from the server.
type APIError struct {
	StatusCode int
	Message    string
	Details    []FieldError
}

// FieldError is one entry of a 422 response's details.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

func apiError(status int, body []byte) *APIError {
	var errResp struct {
		Error   string       `json:"error"`
		Details []FieldError `json:"details"`
	}
	if json.Unmarshal(body, &errResp) == nil && errResp.Error != "" {
		return &APIError{StatusCode: status, Message: errResp.Error, Details: errResp.Details}
	}
	return &APIError{StatusCode: status, Message: strings.TrimSpace(string(body))}
}

func (c *HTTPClient) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshaling request body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return req, nil
}

// doJSON performs an HTTP request with optional JSON body and decodes the JSON response.
// If result is nil, the response body is discarded (for DELETE/204 responses).
func (c *HTTPClient) doJSON(ctx context.Context, method, path string, body any, result any) error {
	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("performing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return nil
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return apiError(resp.StatusCode, respBody)
	}

	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}

	return nil
}
