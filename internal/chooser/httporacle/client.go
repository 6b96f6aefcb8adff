// Package httporacle asks a remote HTTP service to pick the automated side's move.
//
// The service receives the board snapshot and the rendered list of legal moves and
// answers with either the chosen descriptor text or a from/to coordinate pair.
package httporacle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/park285/cheese-gridchess/internal/board"
	"github.com/park285/cheese-gridchess/internal/chooser"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
)

// HeaderProvider allows injecting per-request headers
type HeaderProvider func() map[string]string

// ChooseRequest is the body POSTed to the oracle.
type ChooseRequest struct {
	Board         [][]string `json:"board"`
	PossibleMoves []string   `json:"possibleMoves"`
	Color         string     `json:"color"`
}

// Coordinate mirrors board.Position on the wire.
type Coordinate struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// ChooseResponse accepts both reply shapes: a descriptor in Move, or From/To coordinates.
type ChooseResponse struct {
	Move   string      `json:"move,omitempty"`
	From   *Coordinate `json:"from,omitempty"`
	To     *Coordinate `json:"to,omitempty"`
	Reason string      `json:"reason,omitempty"`
}

type Client struct {
	url     string
	http    *fasthttp.Client
	headers HeaderProvider
	logger  *zap.Logger

	defaultTimeout time.Duration
	retryMax       int
}

var _ chooser.Chooser = (*Client)(nil)

type Option func(*Client)

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.defaultTimeout = d }
}

func WithHeaderProvider(h HeaderProvider) Option {
	return func(c *Client) { c.headers = h }
}

func WithRetry(max int) Option {
	return func(c *Client) { c.retryMax = max }
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithDial replaces the TCP dialer, e.g. with an in-memory listener.
func WithDial(dial func(addr string) (net.Conn, error)) Option {
	return func(c *Client) { c.http.Dial = dial }
}

// NewClient targets the full oracle endpoint URL (e.g. "http://oracle:8080/api/chess-move").
func NewClient(url string, opts ...Option) *Client {
	c := &Client{
		url:            strings.TrimSpace(url),
		http:           &fasthttp.Client{ReadTimeout: 30 * time.Second, WriteTimeout: 10 * time.Second, MaxConnsPerHost: 16},
		logger:         zap.NewNop(),
		defaultTimeout: 30 * time.Second,
		retryMax:       3,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ChooseMove posts the position and maps the reply back onto a legal descriptor.
func (c *Client) ChooseMove(ctx context.Context, b *board.Board, color board.Color, legal []chooser.Descriptor) (board.Move, error) {
	if len(legal) == 0 {
		return board.Move{}, chooser.ErrNoLegalMoves
	}
	req := ChooseRequest{
		Board:         b.Snapshot().Rows(),
		PossibleMoves: chooser.Texts(legal),
		Color:         string(color),
	}
	var resp ChooseResponse
	if err := c.doJSON(ctx, req, &resp); err != nil {
		return board.Move{}, chooser.MapError(err)
	}

	d, err := decodeChoice(resp, legal)
	if err != nil {
		c.logger.Warn("oracle_reply_rejected",
			zap.String("move", truncate(resp.Move, 80)),
			zap.Error(err),
		)
		return board.Move{}, err
	}
	m := d.Move
	m.Rationale = strings.TrimSpace(resp.Reason)
	c.logger.Debug("oracle_reply_accepted",
		zap.String("move", m.UCI()),
		zap.String("descriptor", d.Text()),
	)
	return m, nil
}

func decodeChoice(resp ChooseResponse, legal []chooser.Descriptor) (chooser.Descriptor, error) {
	if resp.From != nil && resp.To != nil {
		m := board.Move{
			From: board.Pos(resp.From.Row, resp.From.Col),
			To:   board.Pos(resp.To.Row, resp.To.Col),
		}
		return chooser.ParseMove(m, legal)
	}
	if strings.TrimSpace(resp.Move) != "" {
		return chooser.ParseChoice(resp.Move, legal)
	}
	return chooser.Descriptor{}, fmt.Errorf("reply carries neither move nor coordinates: %w", chooser.ErrUnparseableChoice)
}

func (c *Client) doJSON(ctx context.Context, in any, out any) error {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer func() {
		fasthttp.ReleaseRequest(req)
		fasthttp.ReleaseResponse(resp)
	}()

	req.Header.SetMethod(fasthttp.MethodPost)
	req.SetRequestURI(c.url)
	req.Header.SetContentType("application/json")

	if c.headers != nil {
		for k, v := range c.headers() {
			if strings.TrimSpace(k) != "" && strings.TrimSpace(v) != "" {
				req.Header.Set(k, v)
			}
		}
	}

	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	req.SetBody(payload)

	attempts := c.retryMax
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		deadline := c.computeDeadline(ctx)
		err := c.http.DoDeadline(req, resp, deadline)
		if err != nil {
			if attempt == attempts {
				return fmt.Errorf("request failed: %w", err)
			}
			lastErr = err
			if sleepErr := c.sleepWithContext(ctx, backoffDuration(attempt)); sleepErr != nil {
				return lastErr
			}
			continue
		}

		status := resp.StatusCode()
		if status < 200 || status >= 300 {
			body := string(resp.Body())
			err := fmt.Errorf("oracle error: status=%d body=%s", status, truncate(body, 512))
			if attempt == attempts || !shouldRetryStatus(status) {
				return err
			}
			lastErr = err
			c.logger.Debug("oracle_retry", zap.Int("status", status), zap.Int("attempt", attempt))
			if sleepErr := c.sleepWithContext(ctx, backoffDuration(attempt)); sleepErr != nil {
				return lastErr
			}
			continue
		}

		if err := json.Unmarshal(resp.Body(), out); err != nil {
			return fmt.Errorf("decode response: %w: %w", chooser.ErrUnparseableChoice, err)
		}
		return nil
	}

	if lastErr == nil {
		lastErr = errors.New("unknown error")
	}
	return lastErr
}

func (c *Client) computeDeadline(ctx context.Context) time.Time {
	if dl, ok := ctx.Deadline(); ok {
		clientDL := time.Now().Add(c.defaultTimeout)
		if dl.Before(clientDL) {
			return dl
		}
		return clientDL
	}
	return time.Now().Add(c.defaultTimeout)
}

func (c *Client) sleepWithContext(ctx context.Context, d time.Duration) error {
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
