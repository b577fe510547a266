package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	agentdir "leadengine/internal/agent"
	"leadengine/internal/events"
	"leadengine/internal/leadstatus"
	"leadengine/internal/llm"
	llmclient "leadengine/internal/llm/client"
	"leadengine/internal/store"
	"leadengine/internal/types/agent"
	"leadengine/internal/types/lead"
)

const DefaultChainDelay = 1500 * time.Millisecond

// LeadSaver persists a lead after each merge.
type LeadSaver interface {
	UpsertLead(ctx context.Context, l lead.Lead) error
}

// LeadLoader returns the stored copy of a lead.
type LeadLoader interface {
	GetLead(ctx context.Context, id string) (lead.Lead, error)
}

// SiteUploader stores generated site files.
type SiteUploader interface {
	PutSite(ctx context.Context, leadID string, files map[string]string) error
}

type Options struct {
	// DisableSafeDefaults makes every stage fail instead of substituting
	// its safe default.
	DisableSafeDefaults bool
	// ChainDelay is the pause before switching agents.
	ChainDelay time.Duration
	// Sleep overrides the chain pause (tests).
	Sleep func(ctx context.Context, d time.Duration) error
	// Parallelism bounds RunBatch; 0 means 4.
	Parallelism int

	Store LeadSaver
	// Loader, when set, is read under the per-lead lock so a run starts from
	// the latest stored lead rather than the caller's snapshot.
	Loader    LeadLoader
	Artifacts SiteUploader
	Logger    *log.Logger
	Bus       *events.Bus
	Now       func() time.Time
	Runners   map[Stage]Runner
}

// StageResult is the outcome of one stage for one lead.
type StageResult struct {
	Stage    Stage         `json:"stage"`
	Agent    string        `json:"agent,omitempty"`
	Success  bool          `json:"success"`
	Delta    lead.Delta    `json:"delta"`
	Elapsed  time.Duration `json:"elapsed"`
	FellBack bool          `json:"fell_back,omitempty"`
	Err      error         `json:"-"`
}

// Orchestrator runs stages for leads. Runs for different leads may proceed
// concurrently; runs for the same lead id are serialized.
type Orchestrator struct {
	llm        Completer
	opts       Options
	dispatcher *Dispatcher
	locks      *keyedMutex
}

func New(completer Completer, dir *agentdir.Directory, opts Options) *Orchestrator {
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard, "", 0)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Sleep == nil {
		opts.Sleep = sleepCtx
	}
	if opts.ChainDelay < 0 {
		opts.ChainDelay = 0
	}
	if opts.Parallelism <= 0 {
		opts.Parallelism = 4
	}
	if opts.Runners == nil {
		opts.Runners = DefaultRunners()
	}
	return &Orchestrator{
		llm:  completer,
		opts: opts,
		dispatcher: &Dispatcher{
			dir:    dir,
			delay:  opts.ChainDelay,
			sleep:  opts.Sleep,
			logger: opts.Logger,
			bus:    opts.Bus,
		},
		locks: newKeyedMutex(),
	}
}

// RunStage runs one stage for l on behalf of a (zero Profile for none).
// On failure the returned lead is l unchanged and err is a *StageError.
func (o *Orchestrator) RunStage(ctx context.Context, l lead.Lead, stage Stage, a agent.Profile) (lead.Lead, StageResult, error) {
	unlock := o.locks.Lock(l.ID)
	defer unlock()
	l, err := o.current(ctx, l)
	if err != nil {
		return l, StageResult{Stage: stage, Agent: a.ID, Err: err}, &StageError{LeadID: l.ID, Stage: stage, Err: err}
	}
	return o.runStage(ctx, l, stage, a)
}

// RunFullPipeline runs every stage in Sequence. A stage failure stops the
// run; the returned lead keeps everything merged before it. Cancellation is
// checked between stages and during the chain pause.
func (o *Orchestrator) RunFullPipeline(ctx context.Context, l lead.Lead, a agent.Profile) (lead.Lead, []StageResult, error) {
	unlock := o.locks.Lock(l.ID)
	defer unlock()
	l, err := o.current(ctx, l)
	if err != nil {
		return l, nil, &StageError{LeadID: l.ID, Stage: Sequence[0], Err: err}
	}

	results := make([]StageResult, 0, len(Sequence))
	active := a
	for _, stage := range Sequence {
		var res StageResult
		var err error
		l, res, err = o.runStage(ctx, l, stage, active)
		results = append(results, res)
		if err != nil {
			return l, results, err
		}
		next, _, err := o.dispatcher.After(ctx, l.ID, active, stage)
		if err != nil {
			return l, results, &StageError{LeadID: l.ID, Stage: stage, Err: err}
		}
		active = next
	}
	return l, results, nil
}

func (o *Orchestrator) runStage(ctx context.Context, l lead.Lead, stage Stage, a agent.Profile) (lead.Lead, StageResult, error) {
	res := StageResult{Stage: stage, Agent: a.ID}
	fail := func(err error) (lead.Lead, StageResult, error) {
		res.Err = err
		o.opts.Bus.Publish(events.Event{Kind: events.KindStageFailed, LeadID: l.ID, Stage: string(stage), Agent: a.ID, Message: err.Error()})
		o.opts.Logger.Printf("pipeline: lead %s: stage %s failed: %v", l.ID, stage, err)
		return l, res, &StageError{LeadID: l.ID, Stage: stage, Err: err}
	}

	if err := ctx.Err(); err != nil {
		return fail(err)
	}
	if l.Status.IsTerminal() {
		return fail(fmt.Errorf("%w: %s", ErrLeadClosed, l.Status))
	}
	runner, ok := o.opts.Runners[stage]
	if !ok {
		return fail(fmt.Errorf("pipeline: no runner for stage %q", stage))
	}

	start := o.opts.Now()
	o.opts.Bus.Publish(events.Event{Kind: events.KindStageStarted, LeadID: l.ID, Stage: string(stage), Agent: a.ID})

	in := Input{Lead: l}
	if a.ID != "" || a.Name != "" {
		in.System = agentdir.Compile(a)
		in.Temperature = llmclient.Temp(a.Behavior.Creativity)
	}
	sctx := llm.WithLeadID(llm.WithStage(ctx, string(stage)), l.ID)
	delta, err := runner.Run(sctx, o.llm, in)
	if err != nil {
		if ctx.Err() != nil {
			return fail(ctx.Err())
		}
		strict := o.opts.DisableSafeDefaults || a.HasBlockingRule()
		def, hasDefault := runner.SafeDefault(l)
		if strict || !hasDefault {
			return fail(err)
		}
		o.opts.Logger.Printf("pipeline: lead %s: stage %s using safe default: %v", l.ID, stage, err)
		delta, res.FellBack = def, true
	}

	merged := l.Apply(delta)
	prev := l.Status
	merged.Status, err = leadstatus.Advance(l.Status, stage.Status())
	if err != nil {
		return fail(err)
	}
	merged.UpdatedAt = o.opts.Now()

	res.Success = true
	res.Delta = delta
	res.Elapsed = o.opts.Now().Sub(start)

	// A stage that changed nothing (an untouched safe default on an
	// already-advanced lead) is not written back.
	if !delta.IsEmpty() || merged.Status != prev {
		o.persist(ctx, merged)
	}
	if stage == StageBuild && len(delta.Site) > 0 {
		o.upload(ctx, merged)
	}
	if merged.Status != prev {
		o.opts.Bus.Publish(events.Event{Kind: events.KindStatusChanged, LeadID: l.ID, Stage: string(stage), Status: string(merged.Status)})
	}
	o.opts.Bus.Publish(events.Event{Kind: events.KindStageCompleted, LeadID: l.ID, Stage: string(stage), Agent: a.ID, Status: string(merged.Status)})
	return merged, res, nil
}

// current swaps l for its stored copy. The caller holds l's lock. A lead
// that was never stored runs from the snapshot.
func (o *Orchestrator) current(ctx context.Context, l lead.Lead) (lead.Lead, error) {
	if o.opts.Loader == nil || l.ID == "" {
		return l, nil
	}
	stored, err := o.opts.Loader.GetLead(ctx, l.ID)
	switch {
	case err == nil:
		return stored, nil
	case errors.Is(err, store.ErrNotFound):
		return l, nil
	default:
		return l, fmt.Errorf("pipeline: reload lead %s: %w", l.ID, err)
	}
}

// persist never fails the run; errors are logged and published.
func (o *Orchestrator) persist(ctx context.Context, l lead.Lead) {
	if o.opts.Store == nil {
		return
	}
	if err := o.opts.Store.UpsertLead(ctx, l); err != nil {
		o.opts.Logger.Printf("pipeline: lead %s: persist failed: %v", l.ID, err)
		o.opts.Bus.Publish(events.Event{Kind: events.KindPersistFailed, LeadID: l.ID, Message: err.Error()})
	}
}

func (o *Orchestrator) upload(ctx context.Context, l lead.Lead) {
	if o.opts.Artifacts == nil {
		return
	}
	if err := o.opts.Artifacts.PutSite(ctx, l.ID, l.Site); err != nil {
		o.opts.Logger.Printf("pipeline: lead %s: site upload failed: %v", l.ID, err)
		o.opts.Bus.Publish(events.Event{Kind: events.KindPersistFailed, LeadID: l.ID, Stage: string(StageBuild), Message: "site upload: " + err.Error()})
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
