package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

// ErrSessionNotFound is returned when the server does not know the session.
// Retrying cannot fix it.
var ErrSessionNotFound = errors.New("session not found")

// Transport opens push streams and performs status pulls for one session.
type Transport interface {
	Dial(ctx context.Context) (Stream, error)
	Poll(ctx context.Context) (json.RawMessage, error)
}

// Stream is an open push channel.
type Stream interface {
	Read(ctx context.Context) (json.RawMessage, error)
	Close() error
}

// HTTPTransport talks to a credbridge server over websocket and HTTP.
type HTTPTransport struct {
	baseURL    string
	sessionID  string
	httpClient *http.Client
}

func NewHTTPTransport(baseURL, sessionID string, httpClient *http.Client) *HTTPTransport {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &HTTPTransport{
		baseURL:    strings.TrimRight(baseURL, "/"),
		sessionID:  sessionID,
		httpClient: httpClient,
	}
}

func (t *HTTPTransport) Dial(ctx context.Context) (Stream, error) {
	u, err := url.Parse(t.baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/ws/sessions/" + url.PathEscape(t.sessionID)

	conn, resp, err := websocket.Dial(ctx, u.String(), &websocket.DialOptions{HTTPClient: t.httpClient})
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusNotFound {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("dial push channel: %w", err)
	}
	return &wsStream{conn: conn}, nil
}

func (t *HTTPTransport) Poll(ctx context.Context) (json.RawMessage, error) {
	endpoint := t.baseURL + "/sessions/" + url.PathEscape(t.sessionID) + "/status"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build status request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("poll status: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read status: %w", err)
	}
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrSessionNotFound
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("poll status: unexpected status %d", resp.StatusCode)
	}
	return json.RawMessage(body), nil
}

type wsStream struct {
	conn *websocket.Conn
}

func (s *wsStream) Read(ctx context.Context) (json.RawMessage, error) {
	var msg json.RawMessage
	if err := wsjson.Read(ctx, s.conn, &msg); err != nil {
		return nil, err
	}
	return msg, nil
}

func (s *wsStream) Close() error {
	return s.conn.Close(websocket.StatusNormalClosure, "")
}
