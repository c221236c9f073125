package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTransport struct {
	calls      int
	failures   int
	failErr    error
	resp       Response
	recordedAt []time.Time
}

func (f *fakeTransport) Send(ctx context.Context, req Request) (Response, error) {
	f.calls++
	f.recordedAt = append(f.recordedAt, time.Now())
	if f.calls <= f.failures {
		return Response{}, f.failErr
	}
	return f.resp, nil
}

var errRateLimited = errors.New("429 rate limited")
var errOverloaded = errors.New("503 overloaded")
var errPermanent = errors.New("400 bad request")

func classifyTest(err error) ErrKind {
	switch {
	case errors.Is(err, errRateLimited):
		return ErrRateLimited
	case errors.Is(err, errOverloaded):
		return ErrOverloaded
	default:
		return ErrUnknown
	}
}

func newFastClient(transport Transport) *Client {
	c := NewClient(transport, classifyTest, 1000, 1000)
	c.rateSchedule = []time.Duration{time.Millisecond, 2 * time.Millisecond}
	c.serverSchedule = []time.Duration{time.Millisecond}
	return c
}

func TestCreateMessageSucceedsWithoutRetry(t *testing.T) {
	transport := &fakeTransport{resp: Response{Content: "hi", StopReason: StopEndOfTurn}}
	client := newFastClient(transport)

	resp, err := client.CreateMessage(context.Background(), Request{Model: "sonnet"})
	require.NoError(t, err)
	assert.Equal(t, "hi", resp.Content)
	assert.Equal(t, 1, transport.calls)
}

func TestCreateMessageRetriesRateLimitedThenSucceeds(t *testing.T) {
	transport := &fakeTransport{failures: 2, failErr: errRateLimited, resp: Response{Content: "ok"}}
	client := newFastClient(transport)

	resp, err := client.CreateMessage(context.Background(), Request{})
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Content)
	assert.Equal(t, 3, transport.calls)
}

func TestCreateMessageExhaustsRateLimitSchedule(t *testing.T) {
	transport := &fakeTransport{failures: 100, failErr: errRateLimited}
	client := newFastClient(transport)

	_, err := client.CreateMessage(context.Background(), Request{})
	require.Error(t, err)
	assert.Equal(t, len(client.rateSchedule)+1, transport.calls)
}

func TestCreateMessageNonRetryableFailsImmediately(t *testing.T) {
	transport := &fakeTransport{failures: 100, failErr: errPermanent}
	client := newFastClient(transport)

	_, err := client.CreateMessage(context.Background(), Request{})
	require.Error(t, err)
	assert.Equal(t, 1, transport.calls)
}

func TestCreateMessageRespectsCancellationDuringBackoff(t *testing.T) {
	transport := &fakeTransport{failures: 100, failErr: errOverloaded}
	client := NewClient(transport, classifyTest, 1000, 1000)
	client.serverSchedule = []time.Duration{time.Hour}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(5 * time.Millisecond)
		cancel()
	}()

	_, err := client.CreateMessage(ctx, Request{})
	require.Error(t, err)
}

func TestScheduleDelayBounds(t *testing.T) {
	sched := durations(2, 4, 8)
	d, ok := scheduleDelay(sched, 0)
	assert.True(t, ok)
	assert.Equal(t, 2*time.Second, d)

	_, ok = scheduleDelay(sched, 3)
	assert.False(t, ok)
}
