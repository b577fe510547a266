package scout

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log"
	"strings"

	"leadengine/internal/events"
	llmclient "leadengine/internal/llm/client"
	"leadengine/internal/llmtool"
	"leadengine/internal/types/lead"
)

const DefaultMaxAttempts = 3

// Streamer is the incremental completion channel; *llm.Client satisfies it.
type Streamer interface {
	Stream(ctx context.Context, req llmclient.Request, onChunk func(chunk string)) (llmclient.Response, error)
}

// Query describes which businesses to look for.
type Query struct {
	Niche    string
	Location string
	// Limit stops the sequence after this many leads; 0 means no limit.
	Limit int
	// Exclude lists business names that are already known.
	Exclude []string
	// System is the compiled instruction of the scouting agent, if any.
	System string
}

type Config struct {
	MaxAttempts int
	Delimiter   string
	Logger      *log.Logger
	Bus         *events.Bus
}

type Scout struct {
	llm Streamer
	cfg Config
}

func New(s Streamer, cfg Config) *Scout {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.Delimiter == "" {
		cfg.Delimiter = DefaultDelimiter
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}
	return &Scout{llm: s, cfg: cfg}
}

// Leads streams accepted leads for q. Every call starts a fresh upstream
// request. A failed stream is retried with a new request and a new parser
// until MaxAttempts is spent; leads already yielded are not yielded again.
// Breaking out of the range cancels the upstream request. An error is
// yielded at most once, as the final element.
func (s *Scout) Leads(ctx context.Context, q Query) iter.Seq2[lead.Lead, error] {
	return func(yield func(lead.Lead, error) bool) {
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		seen := map[string]struct{}{}
		for _, name := range q.Exclude {
			if name = strings.ToLower(strings.TrimSpace(name)); name != "" {
				seen["name:"+name] = struct{}{}
			}
		}
		var names []string
		emitted := 0
		stopped := false

		emit := func(l lead.Lead) {
			if stopped {
				return
			}
			if _, dup := seen["name:"+strings.ToLower(l.Name)]; dup {
				return
			}
			k := dedupeKey(l)
			if _, dup := seen[k]; dup {
				return
			}
			seen[k] = struct{}{}
			names = append(names, l.Name)
			s.cfg.Bus.Publish(events.Event{Kind: events.KindLeadScouted, LeadID: l.ID, Status: string(l.Status), Message: l.Name})
			emitted++
			if !yield(l, nil) || (q.Limit > 0 && emitted >= q.Limit) {
				stopped = true
				cancel()
			}
		}

		var lastErr error
		for attempt := 1; attempt <= s.cfg.MaxAttempts; attempt++ {
			p := NewParser(s.cfg.Delimiter, WithParserLogger(s.cfg.Logger))
			req := buildRequest(q, names, s.cfg.Delimiter)
			_, err := s.llm.Stream(ctx, req, func(chunk string) {
				for _, l := range p.Write(chunk) {
					emit(l)
				}
			})
			if stopped {
				return
			}
			if err == nil {
				for _, l := range p.Flush() {
					emit(l)
				}
				return
			}
			lastErr = err
			if ctx.Err() != nil || llmclient.IsPermanent(err) {
				break
			}
			s.cfg.Logger.Printf("scout: stream attempt %d/%d failed after %d leads: %v", attempt, s.cfg.MaxAttempts, emitted, err)
		}
		if ctx.Err() != nil && !errors.Is(lastErr, ctx.Err()) {
			lastErr = ctx.Err()
		}
		yield(lead.Lead{}, fmt.Errorf("scout: %w", lastErr))
	}
}

// Collect drains Leads into a slice, returning what was gathered alongside
// any terminal error.
func (s *Scout) Collect(ctx context.Context, q Query) ([]lead.Lead, error) {
	var out []lead.Lead
	for l, err := range s.Leads(ctx, q) {
		if err != nil {
			return out, err
		}
		out = append(out, l)
	}
	return out, nil
}

func dedupeKey(l lead.Lead) string {
	return strings.ToLower(strings.TrimSpace(l.Name)) + "|" + digitsOnly(l.Phone) + "|" + strings.ToLower(strings.TrimSpace(l.Email))
}

var recordFields = llmtool.MustFieldsFromStruct(record{})

func buildRequest(q Query, found []string, delim string) llmclient.Request {
	target := "local businesses"
	if n := strings.TrimSpace(q.Niche); n != "" {
		target = n + " businesses"
	}
	if loc := strings.TrimSpace(q.Location); loc != "" {
		target += " in " + loc
	}
	count := "as many as you can find"
	if q.Limit > 0 {
		count = fmt.Sprintf("up to %d", q.Limit)
	}
	skip := append(append([]string(nil), q.Exclude...), found...)

	spec := llmtool.ApplyPresets(llmtool.StructuredPromptSpec{
		Purpose:      fmt.Sprintf("Find %s %s that are likely to need a better website or online presence.", count, target),
		Background:   "Use web search. Prefer businesses with no website, an outdated website, or few reviews.",
		OutputFields: recordFields,
		Rules: []string{
			"Emit one JSON object per business.",
			"Write the delimiter " + delim + " immediately after each object.",
			`Use "not found" for a phone or email you cannot confirm.`,
		},
		OutputFormat: `{"name":"...","type":"...","address":"...","rating":"...","website":"...","phone":"...","email":"..."}` + delim,
	}, llmtool.PresetNoInvent())
	if len(skip) > 0 {
		spec.Constraints = append(spec.Constraints, "Skip these businesses: "+strings.Join(skip, ", ")+".")
	}
	return llmclient.Request{
		Prompt:    llmtool.MustBuild(spec, nil),
		System:    q.System,
		WebSearch: true,
	}
}
