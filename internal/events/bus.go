package events

import (
	"context"
	"sync"
	"time"
)

type Kind string

const (
	KindUsage          Kind = "usage"
	KindLeadScouted    Kind = "lead_scouted"
	KindStageStarted   Kind = "stage_started"
	KindStageCompleted Kind = "stage_completed"
	KindStageFailed    Kind = "stage_failed"
	KindAgentSwitched  Kind = "agent_switched"
	KindStatusChanged  Kind = "status_changed"
	KindPersistFailed  Kind = "persist_failed"
	KindOutreachSent   Kind = "outreach_sent"
)

// Event is one progress or accounting notification. Only the fields relevant
// to Kind are set.
type Event struct {
	Kind   Kind      `json:"kind"`
	At     time.Time `json:"at"`
	LeadID string    `json:"leadId,omitempty"`
	Stage  string    `json:"stage,omitempty"`
	Agent  string    `json:"agent,omitempty"`
	Status string    `json:"status,omitempty"`
	Model  string    `json:"model,omitempty"`

	PromptTokens     int `json:"promptTokens,omitempty"`
	CompletionTokens int `json:"completionTokens,omitempty"`

	Message string `json:"message,omitempty"`
}

// Bus fans events out to subscribers. It is owned by the caller that builds
// the session; a nil *Bus discards everything.
type Bus struct {
	mu     sync.RWMutex
	nextID int
	subs   map[int]chan Event
	now    func() time.Time
}

func NewBus() *Bus {
	return &Bus{subs: map[int]chan Event{}, now: time.Now}
}

// Publish never blocks. A subscriber that falls behind loses its oldest
// pending event.
func (b *Bus) Publish(e Event) {
	if b == nil {
		return
	}
	if e.At.IsZero() {
		e.At = b.now()
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subs {
		push(ch, e)
	}
}

// Subscribe returns a buffered channel of events that is closed when ctx ends
// or the returned cancel func is called.
func (b *Bus) Subscribe(ctx context.Context, buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = 64
	}
	ch := make(chan Event, buffer)
	if b == nil {
		close(ch)
		return ch, func() {}
	}
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = ch
	b.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
			close(ch)
		})
	}
	go func() {
		<-ctx.Done()
		cancel()
	}()
	return ch, cancel
}

func push(ch chan Event, e Event) {
	select {
	case ch <- e:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- e:
	default:
	}
}
