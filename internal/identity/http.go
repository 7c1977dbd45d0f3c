package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/valyala/fasthttp"

	"github.com/park285/doljabi-session/internal/board"
)

// HeaderProvider allows injecting per-request headers
type HeaderProvider func() map[string]string

// HTTPProvider fetches a session ticket from the identity service:
// GET {baseURL}{path} → {session_key, room_code, color, board_size}.
type HTTPProvider struct {
	baseURL    string
	path       string
	sessionKey string
	http       *fasthttp.Client
	headers    HeaderProvider

	defaultTimeout time.Duration
	retryMax       int
}

type Option func(*HTTPProvider)

func WithTimeout(d time.Duration) Option {
	return func(p *HTTPProvider) { p.defaultTimeout = d }
}

func WithHeaderProvider(h HeaderProvider) Option {
	return func(p *HTTPProvider) { p.headers = h }
}

func WithRetry(max int) Option {
	return func(p *HTTPProvider) { p.retryMax = max }
}

// WithSessionKey sends an existing key as X-Session-Key so the service can
// resume it instead of issuing a new one.
func WithSessionKey(key string) Option {
	return func(p *HTTPProvider) { p.sessionKey = strings.TrimSpace(key) }
}

// WithHTTPClient replaces the fasthttp client, e.g. to dial an in-memory listener.
func WithHTTPClient(c *fasthttp.Client) Option {
	return func(p *HTTPProvider) { p.http = c }
}

func NewHTTPProvider(baseURL, path string, opts ...Option) *HTTPProvider {
	if path == "" {
		path = "/api/session/ticket"
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	p := &HTTPProvider{
		baseURL:        strings.TrimRight(baseURL, "/"),
		path:           path,
		http:           &fasthttp.Client{ReadTimeout: 10 * time.Second, WriteTimeout: 10 * time.Second, MaxConnsPerHost: 8},
		defaultTimeout: 10 * time.Second,
		retryMax:       3,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

type ticketResponse struct {
	SessionKey string `json:"session_key"`
	RoomCode   string `json:"room_code"`
	Color      string `json:"color"`
	BoardSize  int    `json:"board_size"`
}

func (p *HTTPProvider) Credentials(ctx context.Context) (Credentials, error) {
	if strings.TrimSpace(p.baseURL) == "" {
		return Credentials{}, ErrNoCredentials
	}
	var resp ticketResponse
	if err := p.getJSON(ctx, &resp); err != nil {
		return Credentials{}, err
	}
	c := Credentials{
		SessionKey: strings.TrimSpace(resp.SessionKey),
		RoomCode:   strings.TrimSpace(resp.RoomCode),
		BoardSize:  resp.BoardSize,
	}
	if color, ok := board.ParseColor(resp.Color); ok {
		c.Color = color
	}
	if !c.Complete() {
		return Credentials{}, fmt.Errorf("%w: incomplete ticket", ErrNoCredentials)
	}
	return c, nil
}

func (p *HTTPProvider) getJSON(ctx context.Context, out any) error {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer func() {
		fasthttp.ReleaseRequest(req)
		fasthttp.ReleaseResponse(resp)
	}()

	req.Header.SetMethod(fasthttp.MethodGet)
	req.SetRequestURI(p.baseURL + p.path)
	req.Header.Set("Accept", "application/json")
	if p.sessionKey != "" {
		req.Header.Set("X-Session-Key", p.sessionKey)
	}
	if p.headers != nil {
		for k, v := range p.headers() {
			if strings.TrimSpace(k) != "" && strings.TrimSpace(v) != "" {
				req.Header.Set(k, v)
			}
		}
	}

	attempts := p.retryMax
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		err := p.http.DoDeadline(req, resp, p.computeDeadline(ctx))
		if err != nil {
			lastErr = fmt.Errorf("request failed: %w", err)
		} else {
			status := resp.StatusCode()
			if status >= 200 && status < 300 {
				if err := json.Unmarshal(resp.Body(), out); err != nil {
					return fmt.Errorf("decode ticket: %w", err)
				}
				return nil
			}
			lastErr = fmt.Errorf("identity api error: status=%d body=%s", status, truncate(string(resp.Body()), 512))
			if !shouldRetryStatus(status) {
				return lastErr
			}
		}
		if attempt == attempts {
			break
		}
		if sleepErr := sleepWithContext(ctx, backoffDuration(attempt)); sleepErr != nil {
			return lastErr
		}
	}
	if lastErr == nil {
		lastErr = errors.New("unknown error")
	}
	return lastErr
}

func (p *HTTPProvider) computeDeadline(ctx context.Context) time.Time {
	clientDL := time.Now().Add(p.defaultTimeout)
	if dl, ok := ctx.Deadline(); ok && dl.Before(clientDL) {
		return dl
	}
	return clientDL
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func backoffDuration(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if attempt > 6 {
		attempt = 6
	}
	base := 100 * time.Millisecond
	return time.Duration(1<<uint(attempt-1)) * base // 100ms, 200ms ...
}

func shouldRetryStatus(code int) bool {
	switch code {
	case 500, 502, 503, 504:
		return true
	default:
		return false
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
