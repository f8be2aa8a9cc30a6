package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daryltucker/sheet-runner/internal/model"
)

// scriptedCompleter replays results in order, repeating the last one.
type scriptedCompleter struct {
	results []model.CompletionResult
	calls   []model.CompletionRequest
}

func (s *scriptedCompleter) Send(_ context.Context, req model.CompletionRequest) model.CompletionResult {
	s.calls = append(s.calls, req)
	idx := len(s.calls) - 1
	if idx >= len(s.results) {
		idx = len(s.results) - 1
	}
	return s.results[idx]
}

// sleepRecorder records requested waits without blocking.
type sleepRecorder struct {
	waits []time.Duration
}

func (r *sleepRecorder) sleep(d time.Duration) {
	r.waits = append(r.waits, d)
}

func failure(msg string) model.CompletionResult {
	return model.CompletionResult{Err: errors.New(msg)}
}

func TestInvoker_Invoke(t *testing.T) {
	ok := model.CompletionResult{Answer: "Hello", Latency: 350 * time.Millisecond, HasLatency: true}
	testCases := []struct {
		description  string
		maxRetries   int
		results      []model.CompletionResult
		expectCalls  int
		expectWaits  []time.Duration
		expectErr    string
		expectAnswer string
	}{
		{
			description:  "first attempt succeeds",
			maxRetries:   3,
			results:      []model.CompletionResult{ok},
			expectCalls:  1,
			expectAnswer: "Hello",
		},
		{
			description: "empty success is not retried",
			maxRetries:  3,
			results:     []model.CompletionResult{{}},
			expectCalls: 1,
		},
		{
			description:  "recovers on second attempt",
			maxRetries:   3,
			results:      []model.CompletionResult{failure("HTTP 500"), ok},
			expectCalls:  2,
			expectWaits:  []time.Duration{2 * time.Second},
			expectAnswer: "Hello",
		},
		{
			description: "exhausted returns last failure without trailing wait",
			maxRetries:  3,
			results:     []model.CompletionResult{failure("HTTP 429: one"), failure("HTTP 429: two"), failure("HTTP 429: three")},
			expectCalls: 3,
			expectWaits: []time.Duration{2 * time.Second, 2 * time.Second},
			expectErr:   "HTTP 429: three",
		},
		{
			description: "single attempt",
			maxRetries:  1,
			results:     []model.CompletionResult{failure("boom")},
			expectCalls: 1,
			expectErr:   "boom",
		},
		{
			description: "zero retries clamps to one attempt",
			maxRetries:  0,
			results:     []model.CompletionResult{failure("boom")},
			expectCalls: 1,
			expectErr:   "boom",
		},
	}
	for _, tc := range testCases {
		t.Run(tc.description, func(t *testing.T) {
			completer := &scriptedCompleter{results: tc.results}
			rec := &sleepRecorder{}
			inv := NewInvoker(completer, tc.maxRetries, 2*time.Second)
			inv.Sleep = rec.sleep

			res := inv.Invoke(context.Background(), model.CompletionRequest{Question: "q"})

			assert.Len(t, completer.calls, tc.expectCalls)
			assert.Equal(t, tc.expectCalls, res.Attempts)
			assert.Equal(t, tc.expectWaits, rec.waits)
			if tc.expectErr != "" {
				require.True(t, res.Failed())
				assert.EqualError(t, res.Err, tc.expectErr)
				return
			}
			require.False(t, res.Failed())
			assert.Equal(t, tc.expectAnswer, res.Answer)
		})
	}
}

func TestInvoker_ZeroWait(t *testing.T) {
	completer := &scriptedCompleter{results: []model.CompletionResult{failure("x")}}
	rec := &sleepRecorder{}
	inv := NewInvoker(completer, 2, 0)
	inv.Sleep = rec.sleep

	res := inv.Invoke(context.Background(), model.CompletionRequest{})
	assert.True(t, res.Failed())
	assert.Len(t, completer.calls, 2)
	assert.Equal(t, []time.Duration{0}, rec.waits)
}

func TestInvoker_StopsWhenContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	completer := &scriptedCompleter{results: []model.CompletionResult{failure("down")}}
	inv := NewInvoker(completer, 5, time.Second)
	inv.Sleep = func(time.Duration) { cancel() }

	res := inv.Invoke(ctx, model.CompletionRequest{})
	assert.True(t, res.Failed())
	assert.EqualError(t, res.Err, "down")
	// the timer and the cancelled context race once; never more than that
	assert.LessOrEqual(t, len(completer.calls), 2)
}
