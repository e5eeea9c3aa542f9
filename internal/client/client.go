// Package client talks to the scoreboard HTTP API.
package client

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

	"github.com/jjudge-oj/scoreboard/types"
)

const (
	defaultTimeout = 30 * time.Second
	maxErrorBody   = 64 << 10
)

// Client is a scoreboard API client. The bearer token comes from the
// session store and is cleared when the server rejects it.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	session    SessionStore
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// New builds a client for the API at baseURL. A nil session is an empty
// in-memory session.
func New(baseURL string, session SessionStore, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(strings.TrimSpace(baseURL), "/"))
	if err != nil {
		return nil, fmt.Errorf("parse api url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("api url %q must be http or https", baseURL)
	}
	if session == nil {
		session = NewMemorySession("")
	}

	c := &Client{
		baseURL:    u,
		httpClient: &http.Client{Timeout: defaultTimeout},
		session:    session,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Session returns the client's session store.
func (c *Client) Session() SessionStore {
	return c.session
}

// FetchStandings loads one page of a contest's standings.
func (c *Client) FetchStandings(ctx context.Context, contestID, page int) (types.StandingsSnapshot, error) {
	if contestID <= 0 {
		return types.StandingsSnapshot{}, &Error{Kind: KindInvalid, Message: MsgInvalidContestID}
	}
	if page < 1 {
		page = 1
	}

	query := url.Values{"page": {strconv.Itoa(page)}}
	resp, err := c.do(ctx, http.MethodGet, "/api/standings/"+strconv.Itoa(contestID), query, nil)
	if err != nil {
		return types.StandingsSnapshot{}, &Error{Kind: KindNetwork, Message: MsgLoadFailed, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return types.StandingsSnapshot{}, c.standingsError(resp)
	}

	var snapshot types.StandingsSnapshot
	if err := json.NewDecoder(resp.Body).Decode(&snapshot); err != nil {
		return types.StandingsSnapshot{}, &Error{Kind: KindServer, Status: resp.StatusCode, Message: MsgLoadFailed, Err: err}
	}
	return snapshot, nil
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string     `json:"token"`
	User  types.User `json:"user"`
}

// Login exchanges credentials for a token and stores it in the session.
func (c *Client) Login(ctx context.Context, username, password string) (types.User, error) {
	body, err := json.Marshal(loginRequest{Username: username, Password: password})
	if err != nil {
		return types.User{}, err
	}

	resp, err := c.do(ctx, http.MethodPost, "/auth/login", nil, bytes.NewReader(body))
	if err != nil {
		return types.User{}, &Error{Kind: KindNetwork, Message: MsgLoginFailed, Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return types.User{}, &Error{Kind: KindAuth, Status: resp.StatusCode, Message: MsgBadCredentials}
	case resp.StatusCode != http.StatusOK:
		return types.User{}, &Error{Kind: KindServer, Status: resp.StatusCode, Message: serverMessage(resp)}
	}

	var payload loginResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return types.User{}, &Error{Kind: KindServer, Status: resp.StatusCode, Message: MsgLoginFailed, Err: err}
	}
	if err := c.session.Set(payload.Token); err != nil {
		return types.User{}, fmt.Errorf("store session: %w", err)
	}
	return payload.User, nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body io.Reader) (*http.Response, error) {
	u := c.baseURL.JoinPath(path)
	u.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	token, err := c.session.Get()
	if err != nil {
		return nil, fmt.Errorf("read session: %w", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return c.httpClient.Do(req)
}

func (c *Client) standingsError(resp *http.Response) *Error {
	switch resp.StatusCode {
	case http.StatusUnauthorized:
		_ = c.session.Clear()
		return &Error{Kind: KindAuth, Status: resp.StatusCode, Message: MsgInvalidToken}
	case http.StatusForbidden:
		return &Error{Kind: KindAuth, Status: resp.StatusCode, Message: MsgAccessDenied}
	case http.StatusNotFound:
		return &Error{Kind: KindNotFound, Status: resp.StatusCode, Message: MsgContestNotFound}
	default:
		return &Error{Kind: KindServer, Status: resp.StatusCode, Message: serverMessage(resp)}
	}
}

// serverMessage prefers the message in an error body and falls back to the
// status code.
func serverMessage(resp *http.Response) string {
	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if json.Unmarshal(data, &payload) == nil {
		if payload.Error != "" {
			return payload.Error
		}
		if payload.Message != "" {
			return payload.Message
		}
	}
	return fmt.Sprintf("Server error: %d", resp.StatusCode)
}
