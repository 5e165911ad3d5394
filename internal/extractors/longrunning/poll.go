// Package longrunning waits on remote operations that finish asynchronously.
package longrunning

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/markdave123-py/Dossier/internal/core"
)

// DefaultInterval is the poll interval used when a Poller has none.
const DefaultInterval = 5 * time.Second

// CheckFunc reports whether the operation has finished. A non-nil error
// aborts the wait.
type CheckFunc func(ctx context.Context) (done bool, err error)

// Poller repeatedly checks an operation until it completes or MaxWait elapses.
type Poller struct {
	Interval time.Duration
	MaxWait  time.Duration

	// after is replaced in tests to avoid sleeping.
	after func(time.Duration) <-chan time.Time
}

// Wait calls check until it reports done. Exceeding MaxWait returns an error
// matching both core.ErrExtractionFailed and core.ErrTimeout; the remote
// operation is abandoned, not cancelled.
func (p *Poller) Wait(ctx context.Context, op string, check CheckFunc) error {
	interval := p.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	after := p.after
	if after == nil {
		after = time.After
	}

	waitCtx := ctx
	if p.MaxWait > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, p.MaxWait)
		defer cancel()
	}

	for {
		done, err := check(waitCtx)
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
				return timeout(op, p.MaxWait)
			}
			return core.ExtractionFailed(op, err)
		}
		if done {
			return nil
		}

		select {
		case <-waitCtx.Done():
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return timeout(op, p.MaxWait)
		case <-after(interval):
		}
	}
}

func timeout(op string, wait time.Duration) error {
	return core.ExtractionFailed(op, fmt.Errorf("%w after %s", core.ErrTimeout, wait))
}
