// Package servicenow implements an authenticated client for the REST Table
// and script-execution APIs of a single ServiceNow instance.
//
// A Client is bound to one credential. It lazily computes a basic-auth token
// with a fixed time-to-live, verifies it once against a known-stable resource,
// and re-authenticates at most once when a request comes back 401.
package servicenow

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dsavelev/snowchat/internal/common"
	"github.com/dsavelev/snowchat/internal/logging"
)

const (
	tableAPIPath  = "/api/now/v2/table"
	scriptAPIPath = "/api/now/v1/script/execute"

	// verificationTable is a resource every instance exposes; one cheap list
	// call against it confirms that a freshly minted token is accepted.
	verificationTable = "sys_user"

	defaultTokenTTL = time.Hour
	defaultTimeout  = 15 * time.Second
	defaultLimit    = 10
)

// Record is the schema-less shape of a ServiceNow row. Numeric values are
// decoded as json.Number so they survive a round trip unchanged.
type Record map[string]any

// session is the cached authentication state. It is owned by exactly one
// Client and never shared between instances.
type session struct {
	token  string
	expiry time.Time
}

func (s session) valid(now time.Time) bool {
	return s.token != "" && now.Before(s.expiry)
}

// Client performs authenticated calls against one ServiceNow instance.
//
// Concurrent calls on the same Client may race on token refresh; the race is
// benign because authentication is idempotent (the recomputed token is
// identical), so no lock is taken.
type Client struct {
	instanceURL string
	username    string
	password    string

	tokenTTL   time.Duration
	httpClient *http.Client
	log        logging.Logger

	sess session
	now  func() time.Time
}

type Option func(*Client)

// WithHTTPClient replaces the default HTTP client (15s timeout).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTokenTTL overrides the token lifetime (default one hour).
func WithTokenTTL(ttl time.Duration) Option {
	return func(c *Client) { c.tokenTTL = ttl }
}

// WithLogger attaches a logger; every outbound request is logged at debug level.
func WithLogger(l logging.Logger) Option {
	return func(c *Client) { c.log = l }
}

// NewClient constructs an unauthenticated client for the given instance.
// instanceURL is the base URL, e.g. "https://dev12345.service-now.com".
func NewClient(instanceURL, username, password string, opts ...Option) *Client {
	c := &Client{
		instanceURL: strings.TrimRight(strings.TrimSpace(instanceURL), "/"),
		username:    username,
		password:    password,
		tokenTTL:    defaultTokenTTL,
		httpClient:  &http.Client{Timeout: defaultTimeout},
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// InstanceURL returns the base URL the client is bound to.
func (c *Client) InstanceURL() string {
	return c.instanceURL
}

// Authenticate computes a fresh basic-auth token, stamps its expiry, and
// verifies it with one cheap list call. While a cached token is still inside
// its expiry window it is reused as-is, with no network round trip. On
// verification failure the session is cleared and the client stays
// unauthenticated.
func (c *Client) Authenticate(ctx context.Context) error {
	if c.sess.valid(c.now()) {
		return nil
	}
	if c.username == "" || c.password == "" {
		return fmt.Errorf("%w: missing username or password", common.ErrAuthentication)
	}

	token := base64.StdEncoding.EncodeToString([]byte(c.username + ":" + c.password))
	c.sess = session{token: token, expiry: c.now().Add(c.tokenTTL)}

	q := url.Values{}
	q.Set("sysparm_limit", "1")
	status, body, err := c.send(ctx, http.MethodGet, tableAPIPath+"/"+verificationTable, q, nil)
	if err != nil {
		c.sess = session{}
		return fmt.Errorf("%w: verification request failed: %v", common.ErrAuthentication, err)
	}
	if status < 200 || status >= 300 {
		c.sess = session{}
		return fmt.Errorf("%w: %v", common.ErrAuthentication, normalizeError(status, body))
	}

	return nil
}

// ensureSession authenticates when no token is cached or the cached one has
// expired. Expiry is checked lazily here; there is no refresh timer.
func (c *Client) ensureSession(ctx context.Context) error {
	if c.sess.valid(c.now()) {
		return nil
	}
	return c.Authenticate(ctx)
}

// send performs one HTTP round trip with the current token. It returns the
// status code and raw body; transport failures are classified as network
// errors. No authentication or retry logic lives here.
func (c *Client) send(ctx context.Context, method, path string, query url.Values, payload any) (int, []byte, error) {
	u := c.instanceURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, fmt.Errorf("marshal request body: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return 0, nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Basic "+c.sess.token)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if c.log != nil {
		c.log.Debug(ctx, "servicenow request", "method", method, "url", u)
	}

	res, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: %v", common.ErrNetwork, err)
	}
	defer func() { _ = res.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(res.Body, 4<<20))
	if err != nil {
		return 0, nil, fmt.Errorf("%w: read response: %v", common.ErrNetwork, err)
	}

	return res.StatusCode, raw, nil
}

// do dispatches one substantive request. A 401 clears the session and the
// request is retried exactly once end-to-end; a second 401 is surfaced.
// The retry is a bounded loop, not recursion.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, payload any) ([]byte, error) {
	for attempt := 0; attempt < 2; attempt++ {
		if err := c.ensureSession(ctx); err != nil {
			return nil, err
		}

		status, raw, err := c.send(ctx, method, path, query, payload)
		if err != nil {
			return nil, err
		}

		if status == http.StatusUnauthorized {
			c.sess = session{}
			if attempt == 0 {
				continue
			}
			return nil, normalizeError(status, raw)
		}
		if status < 200 || status >= 300 {
			return nil, normalizeError(status, raw)
		}

		return raw, nil
	}

	// unreachable: the loop always returns
	return nil, fmt.Errorf("%w: retries exhausted", common.ErrorInternal)
}

// normalizeError converts a non-2xx response into a RequestError. The
// ServiceNow error envelope {"error":{"message","detail"}} is preferred; an
// unparseable body falls back to the body text or the HTTP status text.
func normalizeError(status int, body []byte) *RequestError {
	var envelope struct {
		Error struct {
			Message string `json:"message"`
			Detail  string `json:"detail"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error.Message != "" {
		return &RequestError{Status: status, Message: envelope.Error.Message, Detail: envelope.Error.Detail}
	}

	msg := strings.TrimSpace(string(body))
	if msg == "" {
		msg = http.StatusText(status)
	}
	return &RequestError{Status: status, Message: msg}
}

func decodeRecord(raw json.RawMessage) (Record, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var rec Record
	if err := dec.Decode(&rec); err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}
	return rec, nil
}

// QueryOptions parameterizes a list request. The zero value means: no filter,
// limit 10, offset 0, all fields, instance-default ordering.
type QueryOptions struct {
	// Query is an encoded sysparm_query filter; empty means no filter.
	Query string
	// Limit caps the page size; values < 1 fall back to 10.
	Limit int
	// Offset is the zero-based row offset.
	Offset int
	// Fields restricts the returned columns.
	Fields []string
	// OrderBy names a column to sort on; ordering params are only emitted
	// when it is set.
	OrderBy string
	// Order is "asc" or "desc"; empty defaults to "desc".
	Order string
}

// QueryRecords lists records from table according to opts.
func (c *Client) QueryRecords(ctx context.Context, table string, opts QueryOptions) ([]Record, error) {
	limit := opts.Limit
	if limit < 1 {
		limit = defaultLimit
	}

	q := url.Values{}
	q.Set("sysparm_limit", strconv.Itoa(limit))
	q.Set("sysparm_offset", strconv.Itoa(opts.Offset))
	if opts.Query != "" {
		q.Set("sysparm_query", opts.Query)
	}
	if len(opts.Fields) > 0 {
		q.Set("sysparm_fields", strings.Join(opts.Fields, ","))
	}
	if opts.OrderBy != "" {
		q.Set("sysparm_order_by", opts.OrderBy)
		order := opts.Order
		if order == "" {
			order = "desc"
		}
		q.Set("sysparm_order", order)
	}

	raw, err := c.do(ctx, http.MethodGet, tableAPIPath+"/"+table, q, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s records: %w", table, err)
	}

	var envelope struct {
		Result []json.RawMessage `json:"result"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("failed to query %s records: decode response: %w", table, err)
	}

	records := make([]Record, 0, len(envelope.Result))
	for _, item := range envelope.Result {
		rec, err := decodeRecord(item)
		if err != nil {
			return nil, fmt.Errorf("failed to query %s records: %w", table, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

// GetRecord fetches a single record by sys_id. An upstream 404 surfaces as a
// RequestError with status 404.
func (c *Client) GetRecord(ctx context.Context, table, sysID string, fields []string) (Record, error) {
	q := url.Values{}
	if len(fields) > 0 {
		q.Set("sysparm_fields", strings.Join(fields, ","))
	}

	raw, err := c.do(ctx, http.MethodGet, tableAPIPath+"/"+table+"/"+sysID, q, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get %s record: %w", table, err)
	}
	return decodeResultRecord(raw, "get", table)
}

// CreateRecord inserts a record and returns the server's representation of it.
func (c *Client) CreateRecord(ctx context.Context, table string, fields Record) (Record, error) {
	raw, err := c.do(ctx, http.MethodPost, tableAPIPath+"/"+table, nil, fields)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s record: %w", table, err)
	}
	return decodeResultRecord(raw, "create", table)
}

// UpdateRecord applies a partial update and returns the resulting record.
func (c *Client) UpdateRecord(ctx context.Context, table, sysID string, fields Record) (Record, error) {
	raw, err := c.do(ctx, http.MethodPatch, tableAPIPath+"/"+table+"/"+sysID, nil, fields)
	if err != nil {
		return nil, fmt.Errorf("failed to update %s record: %w", table, err)
	}
	return decodeResultRecord(raw, "update", table)
}

// DeleteRecord removes a record; success is the absence of an error.
func (c *Client) DeleteRecord(ctx context.Context, table, sysID string) error {
	if _, err := c.do(ctx, http.MethodDelete, tableAPIPath+"/"+table+"/"+sysID, nil, nil); err != nil {
		return fmt.Errorf("failed to delete %s record: %w", table, err)
	}
	return nil
}

func decodeResultRecord(raw []byte, op, table string) (Record, error) {
	var envelope struct {
		Result json.RawMessage `json:"result"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("failed to %s %s record: decode response: %w", op, table, err)
	}
	rec, err := decodeRecord(envelope.Result)
	if err != nil {
		return nil, fmt.Errorf("failed to %s %s record: %w", op, table, err)
	}
	return rec, nil
}

// ExecuteScript submits server-side script text for remote execution and
// returns the result value as-is. The script is not interpreted locally.
func (c *Client) ExecuteScript(ctx context.Context, script string) (any, error) {
	payload := map[string]string{"script": script}

	raw, err := c.do(ctx, http.MethodPost, scriptAPIPath, nil, payload)
	if err != nil {
		return nil, fmt.Errorf("failed to execute script: %w", err)
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var envelope struct {
		Result any `json:"result"`
	}
	if err := dec.Decode(&envelope); err != nil {
		return nil, fmt.Errorf("failed to execute script: decode response: %w", err)
	}
	return envelope.Result, nil
}

// TestConnection authenticates and performs one cheap list call. It never
// returns an error: any failure yields false.
func (c *Client) TestConnection(ctx context.Context) bool {
	if err := c.Authenticate(ctx); err != nil {
		return false
	}
	if _, err := c.QueryRecords(ctx, verificationTable, QueryOptions{Limit: 1}); err != nil {
		return false
	}
	return true
}
