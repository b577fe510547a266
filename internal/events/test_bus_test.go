package events

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBus_FanOut(t *testing.T) {
	bus := NewBus()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, _ := bus.Subscribe(ctx, 4)
	b, _ := bus.Subscribe(ctx, 4)
	bus.Publish(Event{Kind: KindUsage, Model: "m", PromptTokens: 3})

	for _, ch := range []<-chan Event{a, b} {
		select {
		case e := <-ch:
			assert.Equal(t, KindUsage, e.Kind)
			assert.Equal(t, 3, e.PromptTokens)
			assert.False(t, e.At.IsZero())
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for event")
		}
	}
}

func TestBus_SlowSubscriberDropsOldest(t *testing.T) {
	bus := NewBus()
	sub, cancel := bus.Subscribe(context.Background(), 2)
	defer cancel()

	bus.Publish(Event{Kind: KindStageStarted, Stage: "1"})
	bus.Publish(Event{Kind: KindStageStarted, Stage: "2"})
	bus.Publish(Event{Kind: KindStageStarted, Stage: "3"})

	got := []string{(<-sub).Stage, (<-sub).Stage}
	assert.Equal(t, []string{"2", "3"}, got)
}

func TestBus_CancelClosesChannel(t *testing.T) {
	bus := NewBus()
	sub, cancel := bus.Subscribe(context.Background(), 1)
	cancel()
	cancel()
	_, ok := <-sub
	require.False(t, ok)
	bus.Publish(Event{Kind: KindUsage})
}

func TestBus_NilIsNoop(t *testing.T) {
	var bus *Bus
	bus.Publish(Event{Kind: KindUsage})
	sub, _ := bus.Subscribe(context.Background(), 1)
	_, ok := <-sub
	assert.False(t, ok)
}
