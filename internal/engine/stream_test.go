package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStreamDecoder_Feed(t *testing.T) {
	testCases := []struct {
		description string
		line        string
		expectOK    bool
		expected    StreamEvent
		malformed   int
		expectErr   bool
	}{
		{description: "delta", line: `data: {"choices":[{"delta":{"content":"Hel"}}]}`, expectOK: true, expected: StreamEvent{Delta: "Hel"}},
		{description: "no space after marker", line: `data:{"choices":[{"delta":{"content":"lo"}}]}`, expectOK: true, expected: StreamEvent{Delta: "lo"}},
		{description: "empty delta", line: `data: {"choices":[{"delta":{}}]}`, expectOK: true, expected: StreamEvent{}},
		{description: "no choices", line: `data: {"usage":{"total_tokens":3}}`, expectOK: true, expected: StreamEvent{}},
		{description: "blank line", line: "", expectOK: false},
		{description: "comment", line: ": keep-alive", expectOK: false},
		{description: "event name", line: "event: message", expectOK: false},
		{description: "malformed json", line: "data: {not json", expectOK: false, malformed: 1},
		{description: "done sentinel", line: "data: [DONE]", expectOK: true, expected: StreamEvent{Done: true}},
		{description: "lower done sentinel", line: "data: done", expectOK: true, expected: StreamEvent{Done: true}},
		{description: "invalid request notice", line: `{"error":{"code":"invalid_request","message":"bad bot"}}`, expectErr: true},
	}
	for _, tc := range testCases {
		t.Run(tc.description, func(t *testing.T) {
			d := &StreamDecoder{}
			ev, ok, err := d.Feed(tc.line)
			if tc.expectErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrInvalidRequest)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expectOK, ok)
			assert.Equal(t, tc.expected, ev)
			assert.Equal(t, tc.malformed, d.Malformed)
		})
	}
}

func TestStreamDecoder_StopsAfterDone(t *testing.T) {
	d := &StreamDecoder{}
	_, ok, err := d.Feed("data: [DONE]")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, d.Done())

	_, ok, err = d.Feed(`data: {"choices":[{"delta":{"content":"late"}}]}`)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStreamDecoder_RecoversAfterMalformed(t *testing.T) {
	d := &StreamDecoder{}
	lines := []string{
		"data: {broken",
		"data: also broken}",
		`data: {"choices":[{"delta":{"content":"ok"}}]}`,
	}
	var got []string
	for _, line := range lines {
		ev, ok, err := d.Feed(line)
		require.NoError(t, err)
		if ok {
			got = append(got, ev.Delta)
		}
	}
	assert.Equal(t, []string{"ok"}, got)
	assert.Equal(t, 2, d.Malformed)
	assert.False(t, d.Done())
}

func TestAnswerBuilder_FirstNonEmptyDelta(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	ticks := []time.Duration{350 * time.Millisecond, 900 * time.Millisecond}
	calls := 0
	now := func() time.Time {
		d := ticks[calls]
		calls++
		return start.Add(d)
	}

	b := newAnswerBuilder(start, now)
	b.add("")
	_, seen := b.firstFragment()
	assert.False(t, seen, "empty delta must not start the clock")

	b.add("Hel")
	b.add("lo")
	b.add("")
	latency, seen := b.firstFragment()
	assert.True(t, seen)
	assert.Equal(t, 350*time.Millisecond, latency)
	assert.Equal(t, "Hello", b.text.String())
	assert.Equal(t, 1, calls, "only the first non-empty delta reads the clock")
}
