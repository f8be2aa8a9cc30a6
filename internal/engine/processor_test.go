package engine

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daryltucker/sheet-runner/internal/model"
)

func newTestProcessor(c Completer, skip bool) *Processor {
	inv := NewInvoker(c, 3, time.Second)
	inv.Sleep = func(time.Duration) {}
	temp := 0.5
	return &Processor{
		Invoker: inv,
		Settings: RowSettings{
			BotID:         "bot",
			APIKey:        "key",
			Temperature:   &temp,
			Timeout:       30 * time.Second,
			SkipCompleted: skip,
		},
	}
}

func TestProcessor_Process(t *testing.T) {
	testCases := []struct {
		description   string
		skip          bool
		row           model.Row
		results       []model.CompletionResult
		expectOutcome model.Outcome
		expectCalls   int
		expectAnswer  string
		expectLatency string
	}{
		{
			description:   "skip completed row",
			skip:          true,
			row:           model.Row{Index: 2, Question: "Q", Answer: "done before", Latency: "1.000"},
			expectOutcome: model.Skipped,
			expectAnswer:  "done before",
			expectLatency: "1.000",
		},
		{
			description:   "answered row reprocessed when skip disabled",
			row:           model.Row{Index: 2, Question: "Q", Answer: "old", Latency: "1.000"},
			results:       []model.CompletionResult{{Answer: "new", Latency: 1234567 * time.Microsecond, HasLatency: true}},
			expectOutcome: model.Processed,
			expectCalls:   1,
			expectAnswer:  "new",
			expectLatency: "1.235",
		},
		{
			description:   "empty answer success",
			skip:          true,
			row:           model.Row{Index: 3, Question: "Q"},
			results:       []model.CompletionResult{{}},
			expectOutcome: model.Processed,
			expectCalls:   1,
		},
		{
			description:   "failure writes marker and clears latency",
			row:           model.Row{Index: 4, Question: "Q", Latency: "0.100"},
			results:       []model.CompletionResult{failure("HTTP 429: slow down")},
			expectOutcome: model.Failed,
			expectCalls:   3,
			expectAnswer:  "[ERROR] HTTP 429: slow down",
		},
	}
	for _, tc := range testCases {
		t.Run(tc.description, func(t *testing.T) {
			completer := &scriptedCompleter{results: tc.results}
			p := newTestProcessor(completer, tc.skip)
			original := tc.row

			res := p.Process(context.Background(), tc.row)

			assert.Equal(t, original, tc.row, "input row must not be mutated")
			assert.Equal(t, tc.expectOutcome, res.Outcome)
			assert.Len(t, completer.calls, tc.expectCalls)
			assert.Equal(t, tc.expectCalls > 0, res.Called)
			assert.Equal(t, tc.expectAnswer, res.Row.Answer)
			assert.Equal(t, tc.expectLatency, res.Row.Latency)
			assert.Equal(t, tc.row.Question, res.Row.Question)
			assert.Equal(t, tc.row.Index, res.Row.Index)
		})
	}
}

func TestProcessor_BuildsRequestFromSettings(t *testing.T) {
	completer := &scriptedCompleter{results: []model.CompletionResult{{Answer: "a"}}}
	p := newTestProcessor(completer, false)

	p.Process(context.Background(), model.Row{Index: 5, Question: "What is Go?"})

	require.Len(t, completer.calls, 1)
	req := completer.calls[0]
	assert.Equal(t, "bot", req.BotID)
	assert.Equal(t, "key", req.APIKey)
	assert.Equal(t, "What is Go?", req.Question)
	assert.Equal(t, 30*time.Second, req.Timeout)
	require.NotNil(t, req.Temperature)
	assert.Equal(t, 0.5, *req.Temperature)
	assert.True(t, strings.HasPrefix(model.ErrorMarker, "[ERROR]"))
}
