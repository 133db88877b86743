// Package client talks to the calorie tracker API and holds the view state
// rendered by the terminal client.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cppla/calories/models"
)

const (
	idempotencyKeyHeader = "Idempotency-Key"
	maxResponseBytes     = 4 << 20
)

// API is the subset of the service the view depends on.
type API interface {
	CreateFoodEntry(ctx context.Context, foodName string, calories int, idempotencyKey string) (models.FoodEntry, error)
	GetFoodEntries(ctx context.Context) ([]models.FoodEntry, error)
	GetDailyCalories(ctx context.Context, date string) (models.DailyCalorieSummary, error)
}

// NetworkError means the request never produced a readable response.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string { return e.Op + ": " + e.Err.Error() }

func (e *NetworkError) Unwrap() error { return e.Err }

// APIError is a response whose envelope code is not 0.
type APIError struct {
	Op      string
	Status  int
	Code    int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %d %s (code %d)", e.Op, e.Status, e.Message, e.Code)
}

// Config holds client configuration.
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// Client is a typed client for the /api/v1 routes.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a new Client.
func New(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type createRequest struct {
	FoodName string `json:"food_name"`
	Calories int    `json:"calories"`
}

// CreateFoodEntry logs a food. A non-empty idempotencyKey makes retries safe.
func (c *Client) CreateFoodEntry(ctx context.Context, foodName string, calories int, idempotencyKey string) (models.FoodEntry, error) {
	var entry models.FoodEntry
	body, err := json.Marshal(createRequest{FoodName: foodName, Calories: calories})
	if err != nil {
		return entry, fmt.Errorf("marshal request: %w", err)
	}
	header := http.Header{"Content-Type": []string{"application/json"}}
	if idempotencyKey != "" {
		header.Set(idempotencyKeyHeader, idempotencyKey)
	}
	err = c.do(ctx, "createFoodEntry", http.MethodPost, "/api/v1/food-entries", header, body, &entry)
	return entry, err
}

// GetFoodEntries lists every entry, newest first.
func (c *Client) GetFoodEntries(ctx context.Context) ([]models.FoodEntry, error) {
	entries := []models.FoodEntry{}
	if err := c.do(ctx, "getFoodEntries", http.MethodGet, "/api/v1/food-entries", nil, nil, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// GetDailyCalories returns the total for date (YYYY-MM-DD); empty means
// the server's current UTC day.
func (c *Client) GetDailyCalories(ctx context.Context, date string) (models.DailyCalorieSummary, error) {
	var summary models.DailyCalorieSummary
	path := "/api/v1/daily-calories"
	if date != "" {
		path += "?" + url.Values{"date": []string{date}}.Encode()
	}
	err := c.do(ctx, "getDailyCalories", http.MethodGet, path, nil, nil, &summary)
	return summary, err
}

func (c *Client) do(ctx context.Context, op, method, path string, header http.Header, body []byte, out interface{}) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	for k, v := range header {
		req.Header[k] = v
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &NetworkError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return &NetworkError{Op: op, Err: fmt.Errorf("read response: %w", err)}
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		if resp.StatusCode >= http.StatusBadRequest {
			return &APIError{Op: op, Status: resp.StatusCode, Code: -1, Message: http.StatusText(resp.StatusCode)}
		}
		return &NetworkError{Op: op, Err: fmt.Errorf("decode response: %w", err)}
	}
	if env.Code != 0 || resp.StatusCode >= http.StatusBadRequest {
		return &APIError{Op: op, Status: resp.StatusCode, Code: env.Code, Message: env.Message}
	}
	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return &NetworkError{Op: op, Err: fmt.Errorf("decode data: %w", err)}
	}
	return nil
}
