package gameclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/valyala/fasthttp"

	"github.com/kapu/nodechess/internal/gamestore"
)

// APIError is a non-2xx server response. Status carries the HTTP code the
// lifecycle coordinator maps to user-facing notices.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server error: status=%d body=%s", e.Status, truncate(e.Body, 512))
}

// HeaderProvider injects per-request headers (node identity, client id).
type HeaderProvider func() map[string]string

// Client talks to the game server's REST surface. Failed requests are never
// retried here: recovery is user-initiated.
type Client struct {
	baseURL string
	http    *fasthttp.Client
	headers HeaderProvider

	defaultTimeout time.Duration
}

type Option func(*Client)

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.defaultTimeout = d }
}

func WithMaxConnsPerHost(n int) Option {
	return func(c *Client) { c.http.MaxConnsPerHost = n }
}

func WithHeaderProvider(h HeaderProvider) Option {
	return func(c *Client) { c.headers = h }
}

func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:        strings.TrimRight(baseURL, "/"),
		http:           &fasthttp.Client{ReadTimeout: 10 * time.Second, WriteTimeout: 10 * time.Second, MaxConnsPerHost: 16},
		defaultTimeout: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type createRequest struct {
	ID string `json:"id"`
}

type moveRequest struct {
	ID   string `json:"id"`
	Move string `json:"move"`
}

// FetchGames reads the full collection used to seed the store at startup.
func (c *Client) FetchGames(ctx context.Context) (gamestore.Collection, error) {
	var games gamestore.Collection
	if err := c.doJSON(ctx, fasthttp.MethodGet, "/games", nil, &games); err != nil {
		return nil, err
	}
	if games == nil {
		games = make(gamestore.Collection)
	}
	return games, nil
}

// CreateGame asks the server to open a game against opponentID. The server
// keys the game by the opponent's identifier.
func (c *Client) CreateGame(ctx context.Context, opponentID string) (*gamestore.GameRecord, error) {
	var rec gamestore.GameRecord
	if err := c.doJSON(ctx, fasthttp.MethodPost, "/games", createRequest{ID: opponentID}, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// SendMove submits a 4-character from+to square move and returns the
// authoritative record.
func (c *Client) SendMove(ctx context.Context, gameID, move string) (*gamestore.GameRecord, error) {
	var rec gamestore.GameRecord
	if err := c.doJSON(ctx, fasthttp.MethodPut, "/games", moveRequest{ID: gameID, Move: move}, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// Resign terminates the game and returns the ended record.
func (c *Client) Resign(ctx context.Context, gameID string) (*gamestore.GameRecord, error) {
	var rec gamestore.GameRecord
	path := "/games?id=" + url.QueryEscape(gameID)
	if err := c.doJSON(ctx, fasthttp.MethodDelete, path, nil, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, in any, out any) error {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer func() {
		fasthttp.ReleaseRequest(req)
		fasthttp.ReleaseResponse(resp)
	}()

	req.Header.SetMethod(method)
	req.SetRequestURI(c.baseURL + path)
	req.Header.SetContentType("application/json")

	if c.headers != nil {
		for k, v := range c.headers() {
			if strings.TrimSpace(k) != "" && strings.TrimSpace(v) != "" {
				req.Header.Set(k, v)
			}
		}
	}

	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		req.SetBody(payload)
	}

	if err := c.http.DoDeadline(req, resp, c.computeDeadline(ctx)); err != nil {
		return fmt.Errorf("request failed: %w", err)
	}

	status := resp.StatusCode()
	if status < 200 || status >= 300 {
		return &APIError{Status: status, Body: string(resp.Body())}
	}

	if out != nil {
		if err := json.Unmarshal(resp.Body(), out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

func (c *Client) computeDeadline(ctx context.Context) time.Time {
	clientDL := time.Now().Add(c.defaultTimeout)
	if dl, ok := ctx.Deadline(); ok && dl.Before(clientDL) {
		return dl
	}
	return clientDL
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
