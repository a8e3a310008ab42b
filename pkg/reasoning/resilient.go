package reasoning

import (
	"context"
	"errors"
	"time"

	"github.com/felixgeelhaar/fortify/retry"
	"github.com/felixgeelhaar/fortify/timeout"
	"github.com/verdictlabs/verdict/pkg/domain/reasoning"
)

// Defaults for the resilience envelope around every reasoning call.
const (
	DefaultCallTimeout = 120 * time.Second
	DefaultMaxAttempts = 3
	defaultInitialWait = time.Second
)

// ResilientProvider wraps a provider with a per-call deadline and a small
// bounded retry budget with exponential backoff. Timeouts count as failed
// attempts; once the budget is spent the last error surfaces as a typed
// fault.
type ResilientProvider struct {
	inner       reasoning.Provider
	callTimeout time.Duration
	maxAttempts int
}

func NewResilientProvider(inner reasoning.Provider) *ResilientProvider {
	return &ResilientProvider{
		inner:       inner,
		callTimeout: DefaultCallTimeout,
		maxAttempts: DefaultMaxAttempts,
	}
}

// WithCallTimeout overrides the per-call deadline.
func (p *ResilientProvider) WithCallTimeout(d time.Duration) *ResilientProvider {
	if d > 0 {
		p.callTimeout = d
	}
	return p
}

// WithMaxAttempts overrides the retry budget.
func (p *ResilientProvider) WithMaxAttempts(n int) *ResilientProvider {
	if n > 0 {
		p.maxAttempts = n
	}
	return p
}

func (p *ResilientProvider) ID() string {
	return p.inner.ID()
}

func (p *ResilientProvider) Complete(ctx context.Context, req reasoning.Request) (*reasoning.Response, error) {
	r := retry.New[*reasoning.Response](retry.Config{
		MaxAttempts:   p.maxAttempts,
		InitialDelay:  defaultInitialWait,
		BackoffPolicy: retry.BackoffExponential,
		Jitter:        true,
	})

	t := timeout.New[*reasoning.Response](timeout.Config{
		DefaultTimeout: p.callTimeout,
	})

	resp, err := r.Do(ctx, func(ctx context.Context) (*reasoning.Response, error) {
		return t.Execute(ctx, p.callTimeout, func(ctx context.Context) (*reasoning.Response, error) {
			return p.inner.Complete(ctx, req)
		})
	})
	if err != nil {
		return nil, asFault(err)
	}
	return resp, nil
}

// asFault maps transport errors onto the reasoning fault taxonomy. Parse and
// validation faults are produced further up by the structured-call layer and
// pass through untouched.
func asFault(err error) error {
	var f *reasoning.Fault
	if errors.As(err, &f) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return reasoning.NewFault(reasoning.FaultTimeout, err)
	}
	return reasoning.NewFault(reasoning.FaultAPI, err)
}
