package pipeline

import (
	"context"
	"log"
	"time"

	agentdir "leadengine/internal/agent"
	"leadengine/internal/events"
	"leadengine/internal/types/agent"
)

// Dispatcher decides which agent runs the next stage. After a stage
// completes it follows the active agent's chain link for that stage's
// trigger, refusing self links and links that close a cycle.
type Dispatcher struct {
	dir    *agentdir.Directory
	delay  time.Duration
	sleep  func(ctx context.Context, d time.Duration) error
	logger *log.Logger
	bus    *events.Bus
}

// After returns the agent for the stages following completed. switched is
// false when the active agent stays. The error is non-nil only when ctx
// ends during the hand-off pause.
func (d *Dispatcher) After(ctx context.Context, leadID string, active agent.Profile, completed Stage) (next agent.Profile, switched bool, err error) {
	if d == nil || d.dir == nil || active.ID == "" {
		return active, false, nil
	}
	next, ok, err := d.dir.Next(active, completed.Trigger())
	if err != nil {
		d.logger.Printf("pipeline: lead %s: ignoring chain link after %s: %v", leadID, completed, err)
		return active, false, nil
	}
	if !ok {
		return active, false, nil
	}
	if err := d.sleep(ctx, d.delay); err != nil {
		return active, false, err
	}
	d.bus.Publish(events.Event{
		Kind:    events.KindAgentSwitched,
		LeadID:  leadID,
		Stage:   string(completed),
		Agent:   next.ID,
		Message: active.ID + " -> " + next.ID,
	})
	return next, true, nil
}
