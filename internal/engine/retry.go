/*
PURPOSE:
  Retries failed completions with a fixed wait between attempts.

REQUIREMENTS:
  User-specified:
  - Bounded attempts, fixed wait, last failure wins.

  Implementation-discovered:
  - Empty successes are final, never retried.
  - Waits must be observable in tests.

ARCHITECTURE INTEGRATION:
  - Called by: internal/engine/processor.go, internal/cli/ask.go
  - Calls: Completer (internal/engine/client.go)

ERROR HANDLING:
  - Never returns an error itself; the failure travels in CompletionResult.Err.

IMPLEMENTATION RULES:
  - backoff.ConstantBackOff + WithMaxRetries + WithContext.
  - Sleeps go through Sleeper via a backoff.Timer adapter.

USAGE:
    inv := NewInvoker(client, 3, 2*time.Second)
  res := inv.Invoke(ctx, req)

SELF-HEALING INSTRUCTIONS:
  - If waits stop firing, check sleepTimer sends on its channel after sleeping.

RELATED FILES:
  - internal/engine/client.go

MAINTENANCE:
  - None.
*/

package engine

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/daryltucker/sheet-runner/internal/model"
	"github.com/daryltucker/sheet-runner/internal/output"
)

// Completer sends one completion request.
type Completer interface {
	Send(ctx context.Context, req model.CompletionRequest) model.CompletionResult
}

// Sleeper blocks for d.
type Sleeper func(d time.Duration)

// Invoker retries failed completions a bounded number of times with a
// fixed wait between attempts. Successes, including empty ones, are final.
type Invoker struct {
	Completer  Completer
	MaxRetries int
	RetryWait  time.Duration
	Sleep      Sleeper
}

// NewInvoker creates an Invoker; maxRetries below 1 is treated as 1.
func NewInvoker(c Completer, maxRetries int, retryWait time.Duration) *Invoker {
	return &Invoker{Completer: c, MaxRetries: maxRetries, RetryWait: retryWait, Sleep: time.Sleep}
}

// Invoke returns the first success or the last failure. Attempts is set on the result.
func (i *Invoker) Invoke(ctx context.Context, req model.CompletionRequest) model.CompletionResult {
	attempts := i.MaxRetries
	if attempts < 1 {
		attempts = 1
	}
	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(i.RetryWait), uint64(attempts-1)),
		ctx,
	)

	var last model.CompletionResult
	n := 0
	operation := func() error {
		n++
		last = i.Completer.Send(ctx, req)
		return last.Err
	}
	notify := func(err error, wait time.Duration) {
		output.Logger.Warn("Attempt failed", "attempt", n, "of", attempts, "retry_in", wait, "error", err)
	}
	_ = backoff.RetryNotifyWithTimer(operation, policy, notify, &sleepTimer{sleep: i.Sleep})

	last.Attempts = n
	return last
}

// sleepTimer adapts a Sleeper to backoff.Timer so waits stay plain blocking calls.
type sleepTimer struct {
	sleep Sleeper
	c     chan time.Time
}

func (t *sleepTimer) Start(d time.Duration) {
	if t.c == nil {
		t.c = make(chan time.Time, 1)
	}
	sleep := t.sleep
	if sleep == nil {
		sleep = time.Sleep
	}
	sleep(d)
	t.c <- time.Now()
}

func (t *sleepTimer) Stop() {}

func (t *sleepTimer) C() <-chan time.Time {
	return t.c
}
