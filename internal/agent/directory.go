package agent

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"leadengine/internal/types/agent"
)

var (
	ErrUnknownAgent = errors.New("agent: unknown agent")
	ErrSelfLink     = errors.New("agent: chain link points at itself")
	ErrChainCycle   = errors.New("agent: chain link closes a cycle")
)

// Directory resolves agent ids to profiles. It is immutable after creation.
type Directory struct {
	byID map[string]agent.Profile
}

func NewDirectory(profiles ...agent.Profile) *Directory {
	d := &Directory{byID: make(map[string]agent.Profile, len(profiles))}
	for _, p := range profiles {
		if id := strings.TrimSpace(p.ID); id != "" {
			d.byID[id] = p
		}
	}
	return d
}

func (d *Directory) Get(id string) (agent.Profile, bool) {
	if d == nil {
		return agent.Profile{}, false
	}
	p, ok := d.byID[strings.TrimSpace(id)]
	return p, ok
}

// All returns every profile ordered by id.
func (d *Directory) All() []agent.Profile {
	if d == nil {
		return nil
	}
	out := make([]agent.Profile, 0, len(d.byID))
	for _, p := range d.byID {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Next returns the agent that from hands off to when trigger fires. ok is
// false when from has no link for trigger. A link that points at from
// itself, at an unknown agent, or into a chain that returns to from on the
// same trigger is refused with an error.
func (d *Directory) Next(from agent.Profile, trigger string) (next agent.Profile, ok bool, err error) {
	link, found := from.LinkFor(trigger)
	if !found {
		return agent.Profile{}, false, nil
	}
	target := strings.TrimSpace(link.NextAgentID)
	if target == strings.TrimSpace(from.ID) {
		return agent.Profile{}, false, fmt.Errorf("%w: %s on %q", ErrSelfLink, from.ID, trigger)
	}
	next, found = d.Get(target)
	if !found {
		return agent.Profile{}, false, fmt.Errorf("%w: %s (linked from %s on %q)", ErrUnknownAgent, target, from.ID, trigger)
	}
	if path := d.cycleFrom(from.ID, trigger); path != nil {
		return agent.Profile{}, false, fmt.Errorf("%w: %s", ErrChainCycle, strings.Join(path, " -> "))
	}
	return next, true, nil
}

// cycleFrom follows trigger links starting at id and returns the path if it
// revisits an agent.
func (d *Directory) cycleFrom(id, trigger string) []string {
	seen := map[string]bool{id: true}
	path := []string{id}
	cur := id
	for {
		p, ok := d.Get(cur)
		if !ok {
			return nil
		}
		link, ok := p.LinkFor(trigger)
		if !ok {
			return nil
		}
		nxt := strings.TrimSpace(link.NextAgentID)
		path = append(path, nxt)
		if seen[nxt] {
			return path
		}
		seen[nxt] = true
		cur = nxt
	}
}

// Issue is one problem found by Validate.
type Issue struct {
	AgentID string
	Trigger string
	Err     error
}

func (i Issue) String() string {
	if i.Trigger == "" {
		return fmt.Sprintf("%s: %v", i.AgentID, i.Err)
	}
	return fmt.Sprintf("%s on %q: %v", i.AgentID, i.Trigger, i.Err)
}

// Validate checks roles and every chain link in the directory. Each cycle is
// reported once.
func (d *Directory) Validate() []Issue {
	var issues []Issue
	reported := map[string]bool{}
	for _, p := range d.All() {
		if !p.Role.Valid() {
			issues = append(issues, Issue{AgentID: p.ID, Err: fmt.Errorf("agent: invalid role %q", p.Role)})
		}
		for _, l := range p.Chain {
			_, _, err := d.Next(p, l.Trigger)
			if err == nil {
				continue
			}
			if errors.Is(err, ErrChainCycle) {
				key := cycleKey(d.cycleFrom(p.ID, l.Trigger), l.Trigger)
				if reported[key] {
					continue
				}
				reported[key] = true
			}
			issues = append(issues, Issue{AgentID: p.ID, Trigger: l.Trigger, Err: err})
		}
	}
	return issues
}

// cycleKey identifies the cycle part of path regardless of entry point.
func cycleKey(path []string, trigger string) string {
	if len(path) == 0 {
		return ""
	}
	last := path[len(path)-1]
	start := 0
	for i, id := range path {
		if id == last {
			start = i
			break
		}
	}
	ring := append([]string(nil), path[start:len(path)-1]...)
	sort.Strings(ring)
	return strings.ToLower(strings.TrimSpace(trigger)) + "|" + strings.Join(ring, ",")
}
