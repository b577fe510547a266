package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	llmclient "leadengine/internal/llm/client"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedSleep struct{ delays []time.Duration }

func (r *recordedSleep) sleep(ctx context.Context, d time.Duration) error {
	r.delays = append(r.delays, d)
	return ctx.Err()
}

func TestRetry_ExhaustsBudgetWithLinearBackoff(t *testing.T) {
	boom := errors.New("upstream down")
	fake := llmclient.NewFakeClient("p", llmclient.FakeReply{Err: boom})
	rec := &recordedSleep{}
	cli := Wrap(fake, Retry(3, 100*time.Millisecond, WithSleep(rec.sleep)))

	_, err := cli.Complete(context.Background(), llmclient.Request{Prompt: "x"})
	require.ErrorIs(t, err, boom)
	assert.Len(t, fake.Calls(), 3)
	assert.Equal(t, []time.Duration{100 * time.Millisecond, 200 * time.Millisecond, 300 * time.Millisecond}, rec.delays)
}

func TestRetry_SucceedsAfterTransientFailure(t *testing.T) {
	fake := llmclient.NewFakeClient("p",
		llmclient.FakeReply{Err: errors.New("503")},
		llmclient.FakeReply{Text: "ok"},
	)
	rec := &recordedSleep{}
	cli := Wrap(fake, Retry(3, time.Second, WithSleep(rec.sleep)))

	resp, err := cli.Complete(context.Background(), llmclient.Request{Prompt: "x"})
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Text)
	assert.Equal(t, []time.Duration{time.Second}, rec.delays)
}

func TestRetry_PermanentErrorIsNotRetried(t *testing.T) {
	fake := llmclient.NewFakeClient("p", llmclient.FakeReply{Err: llmclient.NewPermanentError(errors.New("bad key"))})
	rec := &recordedSleep{}
	cli := Wrap(fake, Retry(3, time.Second, WithSleep(rec.sleep)))

	_, err := cli.Complete(context.Background(), llmclient.Request{Prompt: "x"})
	require.True(t, llmclient.IsPermanent(err))
	assert.Len(t, fake.Calls(), 1)
	assert.Empty(t, rec.delays)
}

func TestRetry_CancelledDuringWait(t *testing.T) {
	fake := llmclient.NewFakeClient("p", llmclient.FakeReply{Err: errors.New("503")})
	ctx, cancel := context.WithCancel(context.Background())
	cli := Wrap(fake, Retry(3, time.Hour, WithSleep(func(ctx context.Context, d time.Duration) error {
		cancel()
		return ctx.Err()
	})))

	_, err := cli.Complete(ctx, llmclient.Request{Prompt: "x"})
	require.ErrorIs(t, err, context.Canceled)
	assert.Len(t, fake.Calls(), 1)
}

func TestRetry_StreamIsSingleAttempt(t *testing.T) {
	broken := errors.New("connection reset")
	fake := llmclient.NewFakeClient("p",
		llmclient.FakeReply{Err: broken},
		llmclient.FakeReply{Chunks: []string{"a", "b"}},
	)
	rec := &recordedSleep{}
	cli := Wrap(fake, Retry(3, time.Millisecond, WithSleep(rec.sleep)))

	_, err := cli.CompleteStream(context.Background(), llmclient.Request{Prompt: "x"}, nil)
	require.ErrorIs(t, err, broken)
	assert.Len(t, fake.Calls(), 1)
	assert.Empty(t, rec.delays)
}
