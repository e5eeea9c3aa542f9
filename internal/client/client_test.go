package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jjudge-oj/scoreboard/types"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, session SessionStore) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c, err := New(srv.URL, session)
	require.NoError(t, err)
	return c
}

func asClientError(t *testing.T, err error) *Error {
	t.Helper()
	var clientErr *Error
	require.True(t, errors.As(err, &clientErr), "expected *client.Error, got %T", err)
	return clientErr
}

func TestFetchStandings(t *testing.T) {
	var gotAuth, gotPath, gotPage string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		gotPage = r.URL.Query().Get("page")
		_ = json.NewEncoder(w).Encode(types.StandingsSnapshot{
			ContestID: 7,
			Page:      2,
			Standings: []types.UserStanding{{Rank: 1, UserID: 3, Username: "carol"}},
		})
	}, NewMemorySession("tok"))

	snapshot, err := c.FetchStandings(context.Background(), 7, 2)
	require.NoError(t, err)
	assert.Equal(t, 7, snapshot.ContestID)
	require.Len(t, snapshot.Standings, 1)
	assert.Equal(t, "Bearer tok", gotAuth)
	assert.Equal(t, "/api/standings/7", gotPath)
	assert.Equal(t, "2", gotPage)
}

func TestFetchStandingsAnonymous(t *testing.T) {
	var gotAuth string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(`{"contest_id":7,"standings":[]}`))
	}, nil)

	_, err := c.FetchStandings(context.Background(), 7, 0)
	require.NoError(t, err)
	assert.Empty(t, gotAuth)
}

func TestFetchStandingsErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		kind    Kind
		message string
	}{
		{name: "unauthorized", status: http.StatusUnauthorized, body: `{"error":"unauthorized"}`, kind: KindAuth, message: MsgInvalidToken},
		{name: "forbidden", status: http.StatusForbidden, kind: KindAuth, message: MsgAccessDenied},
		{name: "not found", status: http.StatusNotFound, kind: KindNotFound, message: MsgContestNotFound},
		{name: "server error with body", status: http.StatusServiceUnavailable, body: `{"error":"standings temporarily unavailable"}`, kind: KindServer, message: "standings temporarily unavailable"},
		{name: "server error with message field", status: http.StatusBadGateway, body: `{"message":"upstream down"}`, kind: KindServer, message: "upstream down"},
		{name: "server error without body", status: http.StatusInternalServerError, kind: KindServer, message: "Server error: 500"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}, nil)

			_, err := c.FetchStandings(context.Background(), 7, 1)
			clientErr := asClientError(t, err)
			assert.Equal(t, tt.kind, clientErr.Kind)
			assert.Equal(t, tt.status, clientErr.Status)
			assert.Equal(t, tt.message, err.Error())
		})
	}
}

func TestFetchStandingsClearsSessionOn401(t *testing.T) {
	session := NewMemorySession("stale")
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}, session)

	_, err := c.FetchStandings(context.Background(), 7, 1)
	require.Error(t, err)
	token, _ := session.Get()
	assert.Empty(t, token)
}

func TestFetchStandingsKeepsSessionOn403(t *testing.T) {
	session := NewMemorySession("tok")
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}, session)

	_, err := c.FetchStandings(context.Background(), 7, 1)
	require.Error(t, err)
	token, _ := session.Get()
	assert.Equal(t, "tok", token)
}

func TestFetchStandingsInvalidID(t *testing.T) {
	called := false
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
	}, nil)

	_, err := c.FetchStandings(context.Background(), 0, 1)
	clientErr := asClientError(t, err)
	assert.Equal(t, KindInvalid, clientErr.Kind)
	assert.Equal(t, MsgInvalidContestID, err.Error())
	assert.False(t, called)
}

func TestFetchStandingsNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c, err := New(url, nil)
	require.NoError(t, err)

	_, err = c.FetchStandings(context.Background(), 7, 1)
	clientErr := asClientError(t, err)
	assert.Equal(t, KindNetwork, clientErr.Kind)
	assert.Equal(t, MsgLoadFailed, err.Error())
}

func TestFetchStandingsCancelled(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.FetchStandings(ctx, 7, 1)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLogin(t *testing.T) {
	session := NewMemorySession("")
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Password != "hunter2" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(loginResponse{Token: "fresh", User: types.User{ID: 1, Username: req.Username}})
	}, session)

	_, err := c.Login(context.Background(), "alice", "wrong")
	assert.Equal(t, MsgBadCredentials, asClientError(t, err).Message)

	user, err := c.Login(context.Background(), "alice", "hunter2")
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)
	token, _ := session.Get()
	assert.Equal(t, "fresh", token)
}

func TestNewRejectsBadURL(t *testing.T) {
	_, err := New("ftp://example.com", nil)
	assert.Error(t, err)
}

func TestFileSession(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "session")
	session := NewFileSession(path)

	token, err := session.Get()
	require.NoError(t, err)
	assert.Empty(t, token)

	require.NoError(t, session.Set("abc"))
	token, err = session.Get()
	require.NoError(t, err)
	assert.Equal(t, "abc", token)

	require.NoError(t, session.Clear())
	require.NoError(t, session.Clear())
	token, err = session.Get()
	require.NoError(t, err)
	assert.Empty(t, token)
}
