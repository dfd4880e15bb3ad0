// Package client is the HTTP collaborator for a fairshare server.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
	"golang.org/x/sync/singleflight"

	"github.com/dukerupert/fairshare/internal/apperr"
	"github.com/dukerupert/fairshare/internal/calendar"
	"github.com/dukerupert/fairshare/internal/model"
)

// DefaultRetryDelay is how long to wait after a 429 that does not say.
const DefaultRetryDelay = 15 * time.Second

// Client implements planner.Collaborator over the server's JSON API.
// Identical concurrent GETs share one round trip, and a rate-limited call is
// retried once after the delay the server advertises.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	retryDelay time.Duration
	group      singleflight.Group
	logger     *slog.Logger
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithRetryDelay sets the wait used when a 429 carries no delay.
func WithRetryDelay(d time.Duration) Option {
	return func(c *Client) { c.retryDelay = d }
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

func New(baseURL, token string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		retryDelay: DefaultRetryDelay,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Me(ctx context.Context) (model.Partner, error) {
	var p model.Partner
	err := c.get(ctx, "/api/me", nil, &p)
	return p, err
}

func (c *Client) ListPartners(ctx context.Context) ([]model.Partner, error) {
	var out []model.Partner
	err := c.get(ctx, "/api/partners", nil, &out)
	return out, err
}

func (c *Client) ListTasks(ctx context.Context, from, to calendar.Date) ([]model.Task, error) {
	var out []model.Task
	err := c.get(ctx, "/api/tasks", rangeQuery(from, to), &out)
	return out, err
}

func (c *Client) CreateTask(ctx context.Context, in model.NewTask) ([]model.Task, error) {
	var out []model.Task
	err := c.send(ctx, http.MethodPost, "/api/tasks", in, &out)
	return out, err
}

func (c *Client) UpdateTask(ctx context.Context, id string, patch model.TaskPatch) (model.Task, error) {
	var out model.Task
	err := c.send(ctx, http.MethodPatch, "/api/tasks/"+url.PathEscape(id), patch, &out)
	return out, err
}

func (c *Client) ToggleTask(ctx context.Context, id string) (model.Task, error) {
	var out model.Task
	err := c.send(ctx, http.MethodPatch, "/api/tasks/"+url.PathEscape(id)+"/toggle", nil, &out)
	return out, err
}

func (c *Client) DeleteTask(ctx context.Context, id string) error {
	return c.send(ctx, http.MethodDelete, "/api/tasks/"+url.PathEscape(id), nil, nil)
}

func (c *Client) ListConditions(ctx context.Context, from, to calendar.Date) ([]model.ConditionEntry, error) {
	var out []model.ConditionEntry
	err := c.get(ctx, "/api/conditions", rangeQuery(from, to), &out)
	return out, err
}

func (c *Client) UpsertCondition(ctx context.Context, e model.ConditionEntry) (model.ConditionEntry, error) {
	var out model.ConditionEntry
	err := c.send(ctx, http.MethodPost, "/api/conditions", e, &out)
	return out, err
}

func (c *Client) DeleteCondition(ctx context.Context, id string) error {
	return c.send(ctx, http.MethodDelete, "/api/conditions/"+url.PathEscape(id), nil, nil)
}

func (c *Client) ListRequests(ctx context.Context, status model.RequestStatus) ([]model.AdjustmentRequest, error) {
	q := url.Values{}
	if status != "" {
		q.Set("status", string(status))
	}
	var out []model.AdjustmentRequest
	err := c.get(ctx, "/api/requests", q, &out)
	return out, err
}

func (c *Client) CreateRequest(ctx context.Context, in model.NewAdjustment) (model.AdjustmentRequest, error) {
	var out model.AdjustmentRequest
	err := c.send(ctx, http.MethodPost, "/api/requests", in, &out)
	return out, err
}

func (c *Client) DecideRequest(ctx context.Context, id string, in model.DecisionInput) (model.DecisionResult, error) {
	var out model.DecisionResult
	err := c.send(ctx, http.MethodPatch, "/api/requests/"+url.PathEscape(id)+"/decision", in, &out)
	return out, err
}

// SetPIN sets or, with an empty pin, clears the caller's PIN.
func (c *Client) SetPIN(ctx context.Context, partnerID, pin string) error {
	body := map[string]string{"pin": pin}
	return c.send(ctx, http.MethodPut, "/api/partners/"+url.PathEscape(partnerID)+"/pin", body, nil)
}

func rangeQuery(from, to calendar.Date) url.Values {
	q := url.Values{}
	if !from.IsZero() {
		q.Set("from", from.String())
	}
	if !to.IsZero() {
		q.Set("to", to.String())
	}
	return q
}

// get shares one round trip between concurrent callers asking for the same
// path and query. The shared call runs under the first caller's context.
func (c *Client) get(ctx context.Context, path string, q url.Values, out any) error {
	target := path
	if len(q) > 0 {
		target += "?" + q.Encode()
	}
	v, err, shared := c.group.Do(target, func() (any, error) {
		return c.roundTrip(ctx, http.MethodGet, target, nil)
	})
	if err != nil {
		return err
	}
	if shared {
		c.logger.Debug("shared in-flight request", "path", target)
	}
	return decode(v.([]byte), out)
}

func (c *Client) send(ctx context.Context, method, path string, in, out any) error {
	var payload []byte
	if in != nil {
		var err error
		payload, err = json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
	}
	data, err := c.roundTrip(ctx, method, path, payload)
	if err != nil {
		return err
	}
	return decode(data, out)
}

func decode(data []byte, out any) error {
	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return apperr.Collaborator(fmt.Errorf("decode response: %w", err))
	}
	return nil
}

// roundTrip performs one call, retrying once when the server answers 429.
func (c *Client) roundTrip(ctx context.Context, method, path string, payload []byte) ([]byte, error) {
	var wait time.Duration
	backoff := retry.WithMaxRetries(1, retry.BackoffFunc(func() (time.Duration, bool) {
		return wait, false
	}))

	var body []byte
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		resp, data, err := c.do(ctx, method, path, payload)
		if err != nil {
			return apperr.Collaborator(err)
		}
		if resp.StatusCode == http.StatusTooManyRequests {
			wait = retryAfter(resp.Header, data, c.retryDelay)
			c.logger.Warn("rate limited", "method", method, "path", path, "retry_in", wait)
			return retry.RetryableError(wireError(resp.StatusCode, data))
		}
		if resp.StatusCode >= 400 {
			return wireError(resp.StatusCode, data)
		}
		body = data
		return nil
	})
	if err != nil {
		if ctx.Err() != nil && apperr.KindOf(err) == "" {
			return nil, apperr.Collaborator(err)
		}
		return nil, err
	}
	return body, nil
}

func (c *Client) do(ctx context.Context, method, path string, payload []byte) (*http.Response, []byte, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, nil, fmt.Errorf("create request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("read response: %w", err)
	}
	return resp, data, nil
}

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

var knownKinds = map[apperr.Kind]bool{
	apperr.KindValidation:       true,
	apperr.KindNotEligible:      true,
	apperr.KindAlreadyResolved:  true,
	apperr.KindToggleNotAllowed: true,
	apperr.KindNotFound:         true,
	apperr.KindUnauthorized:     true,
	apperr.KindCollaborator:     true,
}

// wireError rebuilds a categorized error from an error response. Anything the
// server did not categorize is a collaborator failure.
func wireError(status int, data []byte) error {
	var body errorBody
	_ = json.Unmarshal(data, &body)
	if body.Error == "" {
		body.Error = http.StatusText(status)
	}
	if kind := apperr.Kind(body.Code); knownKinds[kind] {
		return apperr.FromWire(kind, body.Error)
	}
	return apperr.Collaborator(fmt.Errorf("server returned %d: %s", status, body.Error))
}

var retryInPattern = regexp.MustCompile(`retry in (\d+)s`)

// retryAfter reads the delay from the Retry-After header, then from a
// "retry in Ns" message, falling back to def.
func retryAfter(h http.Header, data []byte, def time.Duration) time.Duration {
	if secs, err := strconv.Atoi(strings.TrimSpace(h.Get("Retry-After"))); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	var body errorBody
	if json.Unmarshal(data, &body) == nil {
		if m := retryInPattern.FindStringSubmatch(body.Error); m != nil {
			secs, _ := strconv.Atoi(m[1])
			return time.Duration(secs) * time.Second
		}
	}
	return def
}
