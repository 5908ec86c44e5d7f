// Package calcom is a thin client for the Cal.com REST API. v1 endpoints
// authenticate with an apiKey query parameter, v2 endpoints with a bearer
// token plus a cal-api-version header; both quirks are preserved here so
// the rest of the system never sees them.
package calcom

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	contractx "github.com/witchaya/calbot/agent/contract"
	timeparsex "github.com/witchaya/calbot/agent/timeparse"
)

const (
	eventTypesAPIVersion = "2024-06-14"
	rescheduleAPIVersion = "2024-08-13"

	maxResponseSizeBytes = 2 << 20
)

type Config struct {
	APIKey            string        `envconfig:"API_KEY" split_words:"true" required:"true"`
	BaseURL           string        `envconfig:"BASE_URL" split_words:"true" default:"https://api.cal.com"`
	Timeout           time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"15s"`
	RequestsPerMinute int           `envconfig:"REQUESTS_PER_MINUTE" split_words:"true" default:"120"`
}

// Client talks to the Cal.com API with a bounded timeout and a
// client-side rate limit.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
	now        func() time.Time
}

var _ contractx.SchedulingProvider = (*Client)(nil)

type Option func(*Client)

func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithClock overrides the uniqueness-token clock used for generated
// event-type slugs.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

func NewClient(cfg Config, opts ...Option) (*Client, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, fmt.Errorf("%w: CALCOM_API_KEY is missing", contractx.ErrConfiguration)
	}

	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("%w: calcom base url is required", contractx.ErrConfiguration)
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("%w: invalid calcom base url: %v", contractx.ErrConfiguration, err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	perMinute := cfg.RequestsPerMinute
	if perMinute <= 0 {
		perMinute = 120
	}

	client := &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		limiter: rate.NewLimiter(rate.Limit(float64(perMinute)/60.0), perMinute/10+1),
		now:     time.Now,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}

	return client, nil
}

func MustNew(cfg Config, opts ...Option) *Client {
	client, err := NewClient(cfg, opts...)
	if err != nil {
		panic(err)
	}
	return client
}

/* ------------------------------ event types ------------------------------ */

type eventType struct {
	ID              int64 `json:"id"`
	LengthInMinutes int64 `json:"lengthInMinutes"`
}

type eventTypesEnvelope struct {
	Status string      `json:"status"`
	Data   []eventType `json:"data"`
}

// GetEventTypes lists all event types for the account.
func (c *Client) GetEventTypes(ctx context.Context) (map[string]any, error) {
	return c.do(ctx, http.MethodGet, "/v2/event-types", nil, v2Auth(eventTypesAPIVersion), "get event types")
}

// CreateEventType creates a new event type with the given duration.
func (c *Client) CreateEventType(ctx context.Context, title, slug string, lengthInMinutes int64) (map[string]any, error) {
	payload := map[string]any{
		"title":           title,
		"slug":            slug,
		"lengthInMinutes": lengthInMinutes,
	}
	return c.do(ctx, http.MethodPost, "/v2/event-types", payload, v2Auth(eventTypesAPIVersion), "create event type")
}

// FindEventTypeByDuration returns the id of an existing event type with
// an exact lengthInMinutes match, or ok=false when none exists.
func (c *Client) FindEventTypeByDuration(ctx context.Context, minutes int64) (int64, bool, error) {
	raw, err := c.GetEventTypes(ctx)
	if err != nil {
		return 0, false, err
	}

	encoded, err := json.Marshal(raw)
	if err != nil {
		return 0, false, fmt.Errorf("encode event types: %w", err)
	}
	var envelope eventTypesEnvelope
	if err := json.Unmarshal(encoded, &envelope); err != nil {
		return 0, false, fmt.Errorf("decode event types: %w", err)
	}

	for _, et := range envelope.Data {
		if et.LengthInMinutes == minutes {
			return et.ID, true, nil
		}
	}
	return 0, false, nil
}

// GetOrCreateEventType resolves an event type id for the duration,
// creating one named "<N>-Minute Meeting" when no exact match exists. The
// slug carries a unix timestamp as a uniqueness token.
func (c *Client) GetOrCreateEventType(ctx context.Context, minutes int64) (int64, error) {
	id, ok, err := c.FindEventTypeByDuration(ctx, minutes)
	if err != nil {
		return 0, err
	}
	if ok {
		return id, nil
	}

	title := fmt.Sprintf("%d-Minute Meeting", minutes)
	slug := fmt.Sprintf("%dmin-meeting-%d", minutes, c.now().Unix())

	created, err := c.CreateEventType(ctx, title, slug, minutes)
	if err != nil {
		return 0, err
	}

	data, _ := created["data"].(map[string]any)
	rawID, ok := data["id"].(float64)
	if !ok {
		return 0, errors.New("failed to find or create event type")
	}
	return int64(rawID), nil
}

/* -------------------------------- bookings ------------------------------- */

// GetAvailableSlots lists open slots for an event type between two dates
// (YYYY-MM-DD, inclusive day bounds).
func (c *Client) GetAvailableSlots(ctx context.Context, eventTypeID int64, startDate, endDate string) (map[string]any, error) {
	query := url.Values{
		"apiKey":      {c.apiKey},
		"eventTypeId": {fmt.Sprint(eventTypeID)},
		"startTime":   {startDate + "T00:00:00Z"},
		"endTime":     {endDate + "T23:59:59Z"},
	}
	return c.do(ctx, http.MethodGet, "/v1/slots?"+query.Encode(), nil, nil, "get available slots")
}

func (c *Client) CreateBooking(ctx context.Context, req contractx.BookingRequest) (map[string]any, error) {
	eventTypeID := req.EventTypeID
	if eventTypeID <= 0 {
		if req.Duration <= 0 {
			return nil, fmt.Errorf("invalid event type ID: %d", eventTypeID)
		}
		resolved, err := c.GetOrCreateEventType(ctx, req.Duration)
		if err != nil {
			return nil, err
		}
		eventTypeID = resolved
	}

	timeZone := timeparsex.ResolveZone(req.TimeZone)

	start := req.Start
	if !timeparsex.LooksCanonical(start) {
		normalized, err := timeparsex.Normalize(start, timeZone, c.now())
		if err != nil {
			return nil, err
		}
		start = normalized
	}

	payload := map[string]any{
		"eventTypeId": eventTypeID,
		"start":       start,
		"responses": map[string]any{
			"name":  req.Name,
			"email": req.Email,
			"location": map[string]any{
				"value":       "inPerson",
				"optionValue": "",
			},
		},
		"timeZone": timeZone,
		"language": "en",
		"metadata": map[string]any{},
	}

	return c.do(ctx, http.MethodPost, "/v1/bookings?"+c.apiKeyQuery(), payload, nil, "create booking")
}

func (c *Client) ListBookings(ctx context.Context) (map[string]any, error) {
	return c.do(ctx, http.MethodGet, "/v1/bookings?"+c.apiKeyQuery(), nil, nil, "list bookings")
}

func (c *Client) CancelBooking(ctx context.Context, bookingID int64) (map[string]any, error) {
	path := fmt.Sprintf("/v1/bookings/%d?%s", bookingID, c.apiKeyQuery())
	if _, err := c.do(ctx, http.MethodDelete, path, nil, nil, "cancel booking"); err != nil {
		return nil, err
	}
	return map[string]any{
		"status":  "success",
		"message": "Booking cancelled successfully",
	}, nil
}

func (c *Client) RescheduleBooking(ctx context.Context, bookingUID string, req contractx.RescheduleRequest) (map[string]any, error) {
	timeZone := timeparsex.ResolveZone(req.TimeZone)

	start := req.Start
	if !timeparsex.LooksCanonical(start) {
		normalized, err := timeparsex.Normalize(start, timeZone, c.now())
		if err != nil {
			return nil, err
		}
		start = normalized
	}

	payload := map[string]any{
		"start":              start,
		"rescheduledBy":      "USER",
		"reschedulingReason": "User wanted to reschedule",
	}

	path := "/v2/bookings/" + url.PathEscape(bookingUID) + "/reschedule"
	return c.do(ctx, http.MethodPost, path, payload, v2Auth(rescheduleAPIVersion), "reschedule booking")
}

/* -------------------------------- plumbing ------------------------------- */

func (c *Client) apiKeyQuery() string {
	return url.Values{"apiKey": {c.apiKey}}.Encode()
}

// v2Auth returns the bearer + versioning headers v2 endpoints require.
func v2Auth(apiVersion string) func(*Client, *http.Request) {
	return func(c *Client, req *http.Request) {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
		req.Header.Set("cal-api-version", apiVersion)
	}
}

func (c *Client) do(
	ctx context.Context,
	method string,
	path string,
	payload any,
	auth func(*Client, *http.Request),
	op string,
) (map[string]any, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("failed to %s: %w", op, err)
	}

	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to %s: marshal payload: %w", op, err)
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to %s: build request: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if auth != nil {
		auth(c, req)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to %s: %w", op, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSizeBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to %s: read response: %w", op, err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("failed to %s - Status: %d, Details: %s", op, resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	if len(bytes.TrimSpace(raw)) == 0 {
		return map[string]any{}, nil
	}

	var parsed map[string]any
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("failed to %s: decode response: %w", op, err)
	}
	return parsed, nil
}
