package session

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kenlau666/tg-bulk-invite-next/internal/platform/messaging"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
}

type countingClient struct {
	messaging.Client
	closes atomic.Int32
}

func (c *countingClient) Close() error {
	c.closes.Add(1)
	return c.Client.Close()
}

func newCountingClient(t *testing.T) *countingClient {
	t.Helper()
	c, err := messaging.NewPlatform().NewClient(context.Background(), messaging.Credentials{})
	require.NoError(t, err)
	return &countingClient{Client: c}
}

type fakeJob struct {
	once      sync.Once
	cancelled chan struct{}
	done      chan struct{}
}

func newFakeJob() *fakeJob {
	return &fakeJob{cancelled: make(chan struct{}), done: make(chan struct{})}
}

func (j *fakeJob) Cancel() {
	j.once.Do(func() { close(j.cancelled) })
}

func (j *fakeJob) Done() <-chan struct{} {
	return j.done
}

func (j *fakeJob) isCancelled() bool {
	select {
	case <-j.cancelled:
		return true
	default:
		return false
	}
}

type fakeClock struct {
	nanos atomic.Int64
}

func newFakeClock() *fakeClock {
	c := &fakeClock{}
	c.nanos.Store(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).UnixNano())
	return c
}

func (c *fakeClock) Now() time.Time {
	return time.Unix(0, c.nanos.Load()).UTC()
}

func (c *fakeClock) Advance(d time.Duration) {
	c.nanos.Add(int64(d))
}
