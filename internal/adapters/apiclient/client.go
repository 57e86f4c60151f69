// Package apiclient calls the eventhub HTTP API. Client satisfies the
// clientstate gateways, so views can run against a remote server.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"eventhub/internal/domain"
)

// Client is an authenticated API client. The bearer token identifies the
// caller, so userID arguments of the gateway methods are not sent.
type Client struct {
	baseURL string
	token   string
	client  *http.Client
}

// New returns a client for baseURL. A nil client uses http.DefaultClient.
func New(baseURL, token string, client *http.Client) *Client {
	if client == nil {
		client = http.DefaultClient
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), token: token, client: client}
}

// WithToken returns a copy of c that sends token.
func (c *Client) WithToken(token string) *Client {
	cp := *c
	cp.token = token
	return &cp
}

type apiError struct {
	Code    string              `json:"code"`
	Message string              `json:"message"`
	Fields  []domain.FieldError `json:"fields"`
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *apiError       `json:"error"`
}

// do sends body as JSON and decodes the data half of the response into out.
func (c *Client) do(ctx context.Context, op, method, path string, body, out any) error {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	kind := domain.KindRemoteWrite
	if method == http.MethodGet {
		kind = domain.KindRemoteRead
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return &domain.RemoteError{Op: op, Kind: kind, Err: err}
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return &domain.RemoteError{Op: op, Kind: kind, Err: fmt.Errorf("status %d: failed to decode response: %w", resp.StatusCode, err)}
	}
	if resp.StatusCode >= http.StatusBadRequest || env.Error != nil {
		return statusError(op, kind, resp.StatusCode, env.Error)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return &domain.RemoteError{Op: op, Kind: kind, Err: fmt.Errorf("failed to decode data: %w", err)}
	}
	return nil
}

// statusError maps an error response onto the domain taxonomy.
func statusError(op string, kind domain.ErrorKind, status int, e *apiError) error {
	msg := http.StatusText(status)
	if e != nil && e.Message != "" {
		msg = e.Message
	}
	switch status {
	case http.StatusBadRequest:
		if e != nil && len(e.Fields) > 0 {
			return &domain.ValidationError{Fields: e.Fields}
		}
		return fmt.Errorf("%s: %s: %w", op, msg, domain.ErrInvalidInput)
	case http.StatusUnauthorized:
		return fmt.Errorf("%s: %s: %w", op, msg, domain.ErrUnauthorized)
	case http.StatusForbidden:
		return fmt.Errorf("%s: %s: %w", op, msg, domain.ErrForbidden)
	case http.StatusNotFound:
		kind = domain.KindNotFound
	case http.StatusConflict:
		kind = domain.KindUniqueViolation
	}
	return &domain.RemoteError{Op: op, Kind: kind, Err: fmt.Errorf("status %d: %s", status, msg)}
}

func eventPath(eventID, suffix string) string {
	return "/events/" + url.PathEscape(eventID) + suffix
}

// Login signs in and returns the session. Use WithToken with its token.
func (c *Client) Login(ctx context.Context, email, password string) (*domain.Session, error) {
	var sess domain.Session
	body := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, "auth.login", http.MethodPost, "/auth/login", body, &sess); err != nil {
		return nil, err
	}
	return &sess, nil
}

// FetchEventsFeed reads one feed page. The server clamps the limit.
func (c *Client) FetchEventsFeed(ctx context.Context, f domain.FeedFilters) ([]*domain.EventWithOrg, error) {
	q := url.Values{}
	if f.Search != "" {
		q.Set("search", f.Search)
	}
	if f.Category != nil {
		q.Set("category", string(*f.Category))
	}
	if f.After != nil {
		q.Set("after", f.After.UTC().Format(time.RFC3339Nano))
	}
	if f.Limit != 0 {
		q.Set("limit", strconv.Itoa(f.Limit))
	}
	path := "/events/feed"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var items []*domain.EventWithOrg
	if err := c.do(ctx, "events.feed", http.MethodGet, path, nil, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// LoadEventDetail reads the event with counts and the caller's flags.
func (c *Client) LoadEventDetail(ctx context.Context, eventID, _ string) (*domain.EventDetail, error) {
	var d domain.EventDetail
	if err := c.do(ctx, "events.get", http.MethodGet, eventPath(eventID, ""), nil, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

func (c *Client) JoinEvent(ctx context.Context, eventID, _ string) error {
	return c.do(ctx, "event_participants.insert", http.MethodPost, eventPath(eventID, "/participants"), nil, nil)
}

func (c *Client) UnjoinEvent(ctx context.Context, eventID, _ string) error {
	return c.do(ctx, "event_participants.delete", http.MethodDelete, eventPath(eventID, "/participants"), nil, nil)
}

// ToggleInterested sends desired when set; otherwise the server flips.
func (c *Client) ToggleInterested(ctx context.Context, eventID, _ string, desired *bool) (domain.ToggleResult, error) {
	var out struct {
		Result domain.ToggleResult `json:"result"`
	}
	body := map[string]*bool{"desired": desired}
	if err := c.do(ctx, "event_interests.toggle", http.MethodPut, eventPath(eventID, "/interest"), body, &out); err != nil {
		return "", err
	}
	return out.Result, nil
}

// CountInterested reads the authoritative interest count from the event detail.
func (c *Client) CountInterested(ctx context.Context, eventID string) (int, error) {
	d, err := c.LoadEventDetail(ctx, eventID, "")
	if err != nil {
		return 0, err
	}
	return d.InterestedCount, nil
}

func (c *Client) ListJoinedEventIDs(ctx context.Context, _ string) ([]string, error) {
	var ids []string
	if err := c.do(ctx, "event_participants.list", http.MethodGet, "/me/joined-ids", nil, &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

func (c *Client) ListInterestedEventIDs(ctx context.Context, _ string) ([]string, error) {
	var ids []string
	if err := c.do(ctx, "event_interests.list", http.MethodGet, "/me/interested-ids", nil, &ids); err != nil {
		return nil, err
	}
	return ids, nil
}
