/*
PURPOSE:
  Core client for the agent chat completion API.
  Sends one question per call, reads the event stream incrementally and
  measures the latency until the first content fragment.

REQUIREMENTS:
  User-specified:
  - Stream the answer (with timeout and garbage resilience).
  - Record the time from dispatch to the first non-empty delta.

  Implementation-discovered:
  - Needs http.Client without a global timeout; each call carries its own deadline.
  - Resilience against "garbage" JSON (invalid data lines are skipped).
  - A stream that never carries text is a success with an empty answer.
  - Bearer API key or HMAC AK/SK signing.

ARCHITECTURE INTEGRATION:
  - Called by: internal/engine (Invoker), internal/cli (ask)
  - Uses: internal/model, internal/output

ERROR HANDLING:
  - Never returns a Go error; failures are folded into model.CompletionResult.Err.
  - Non-2xx: HTTPStatusError with a truncated body excerpt.
  - Deadline: ErrTimeout. Connection or mid-stream read failure: ErrNetwork.
  - Retries are handled at a higher level (Invoker).

IMPLEMENTATION RULES:
  - Use net/http.
  - Enforce timeouts through the request context.
  - Parse the stream line-by-line through StreamDecoder.
  - T0 is taken immediately before the request is sent.

USAGE:
  c := engine.NewClient(cfg.Endpoint)
  res := c.Send(ctx, model.CompletionRequest{...})

SELF-HEALING INSTRUCTIONS:
  - If the agent API changes its chunk shape, update chunk in stream.go.

RELATED FILES:
  - internal/engine/stream.go
  - internal/engine/signer.go
  - internal/engine/retry.go

MAINTENANCE:
  - Update for new agent API features.
*/

package engine

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptrace"
	"time"

	"github.com/daryltucker/sheet-runner/internal/model"
	"github.com/daryltucker/sheet-runner/internal/output"
)

const maxLineSize = 4 << 20

// Client handles agent completion calls.
type Client struct {
	Endpoint   string
	HTTPClient *http.Client
	Signer     *Signer
	now        func() time.Time
}

// ClientOption customizes a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.HTTPClient = hc }
}

// WithSigner switches authentication from bearer token to AK/SK signing.
func WithSigner(s *Signer) ClientOption {
	return func(c *Client) { c.Signer = s }
}

// WithClock overrides the time source used for latency measurement.
func WithClock(now func() time.Time) ClientOption {
	return func(c *Client) { c.now = now }
}

// NewClient creates a new Client.
func NewClient(endpoint string, opts ...ClientOption) *Client {
	c := &Client{
		Endpoint:   endpoint,
		HTTPClient: &http.Client{Transport: http.DefaultTransport.(*http.Transport).Clone()},
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	BotID       string        `json:"bot_id"`
	Messages    []chatMessage `json:"messages"`
	Stream      bool          `json:"stream"`
	Temperature *float64      `json:"temperature,omitempty"`
}

// Send performs one streaming call. It blocks until the stream ends or
// the request timeout elapses.
func (c *Client) Send(ctx context.Context, req model.CompletionRequest) model.CompletionResult {
	body, err := json.Marshal(chatRequest{
		BotID:       req.BotID,
		Messages:    []chatMessage{{Role: "user", Content: req.Question}},
		Stream:      true,
		Temperature: req.Temperature,
	})
	if err != nil {
		return model.CompletionResult{Err: fmt.Errorf("failed to marshal request: %w", err)}
	}

	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	trace := &httptrace.ClientTrace{
		GotConn: func(info httptrace.GotConnInfo) {
			output.Logger.Debug("Network: Connected", "remote", info.Conn.RemoteAddr(), "reused", info.Reused)
		},
		WroteRequest: func(httptrace.WroteRequestInfo) {
			output.Logger.Debug("Network: Request Sent", "bot", req.BotID)
		},
		GotFirstResponseByte: func() {
			output.Logger.Debug("Network: First Byte Received", "bot", req.BotID)
		},
	}
	ctx = httptrace.WithClientTrace(ctx, trace)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint, bytes.NewReader(body))
	if err != nil {
		return model.CompletionResult{Err: fmt.Errorf("failed to create HTTP request: %w", err)}
	}
	httpReq.Header.Set("Content-Type", jsonContentType)
	httpReq.Header.Set("Accept", "text/event-stream")
	if c.Signer != nil {
		if err := c.Signer.Sign(httpReq, body); err != nil {
			return model.CompletionResult{Err: err}
		}
	} else {
		httpReq.Header.Set("Authorization", "Bearer "+req.APIKey)
	}

	start := c.now()
	resp, err := c.HTTPClient.Do(httpReq)
	if err != nil {
		return model.CompletionResult{Err: classify(ctx, err, req.Timeout)}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return model.CompletionResult{Err: &HTTPStatusError{StatusCode: resp.StatusCode, Body: excerpt(string(data), bodyExcerptLimit)}}
	}

	answer := newAnswerBuilder(start, c.now)
	decoder := &StreamDecoder{}
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for scanner.Scan() {
		ev, ok, err := decoder.Feed(scanner.Text())
		if err != nil {
			return model.CompletionResult{Err: err}
		}
		if !ok {
			continue
		}
		if ev.Done {
			break
		}
		answer.add(ev.Delta)
	}
	if err := scanner.Err(); err != nil {
		return model.CompletionResult{Err: classify(ctx, err, req.Timeout)}
	}
	if decoder.Malformed > 0 {
		output.Logger.Debug("Skipped invalid stream lines", "count", decoder.Malformed)
	}

	latency, seen := answer.firstFragment()
	return model.CompletionResult{
		Answer:     answer.text.String(),
		Latency:    latency,
		HasLatency: seen,
	}
}

// classify maps transport errors to ErrTimeout or ErrNetwork.
func classify(ctx context.Context, err error, timeout time.Duration) error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) ||
		(errors.As(err, &netErr) && netErr.Timeout()) {
		return fmt.Errorf("%w after %s: %v", ErrTimeout, timeout, err)
	}
	return fmt.Errorf("%w: %v", ErrNetwork, err)
}
