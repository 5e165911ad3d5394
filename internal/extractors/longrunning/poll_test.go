package longrunning

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markdave123-py/Dossier/internal/core"
)

func immediate(time.Duration) <-chan time.Time {
	ch := make(chan time.Time, 1)
	ch <- time.Now()
	return ch
}

func TestWait_CompletesAfterPolling(t *testing.T) {
	p := &Poller{Interval: time.Second, after: immediate}
	calls := 0

	err := p.Wait(context.Background(), "speech", func(context.Context) (bool, error) {
		calls++
		return calls == 3, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestWait_CheckError(t *testing.T) {
	p := &Poller{after: immediate}
	boom := errors.New("quota exceeded")

	err := p.Wait(context.Background(), "video", func(context.Context) (bool, error) {
		return false, boom
	})
	assert.ErrorIs(t, err, core.ErrExtractionFailed)
	assert.ErrorIs(t, err, boom)
}

func TestWait_TimesOut(t *testing.T) {
	p := &Poller{Interval: time.Millisecond, MaxWait: 20 * time.Millisecond}

	err := p.Wait(context.Background(), "speech", func(context.Context) (bool, error) {
		return false, nil
	})
	assert.ErrorIs(t, err, core.ErrExtractionFailed)
	assert.ErrorIs(t, err, core.ErrTimeout)
}

func TestWait_TimeoutInsideCheck(t *testing.T) {
	p := &Poller{Interval: time.Millisecond, MaxWait: 10 * time.Millisecond}

	err := p.Wait(context.Background(), "speech", func(ctx context.Context) (bool, error) {
		<-ctx.Done()
		return false, ctx.Err()
	})
	assert.ErrorIs(t, err, core.ErrTimeout)
}

func TestWait_CallerCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := &Poller{Interval: time.Hour}

	err := p.Wait(ctx, "speech", func(context.Context) (bool, error) {
		cancel()
		return false, nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, core.ErrTimeout)
}
