// Package leadstatus holds the lead lifecycle states and the transitions the
// pipeline and the user are allowed to make between them.
package leadstatus

import (
	"errors"
	"fmt"
	"strings"
)

// Status is the workflow position of a lead.
type Status string

const (
	Scouted       Status = "SCOUTED"
	Analyzing     Status = "ANALYZING"
	DossierReady  Status = "DOSSIER_READY"
	StrategyReady Status = "STRATEGY_READY"
	SiteBuilt     Status = "SITE_BUILT"
	OutreachReady Status = "OUTREACH_READY"
	Contacted     Status = "CONTACTED"
	Called        Status = "CALLED"
	Replied       Status = "REPLIED"
	ClosedWon     Status = "CLOSED_WON"
	ClosedLost    Status = "CLOSED_LOST"
)

var ErrIllegalTransition = errors.New("leadstatus: illegal transition")

// Initial is assigned to every lead produced by the scout parser.
const Initial = Scouted

// CONTACTED and CALLED share a rank: they are siblings reached through
// different channels and never block one another.
var rank = map[Status]int{
	Scouted:       0,
	Analyzing:     1,
	DossierReady:  2,
	StrategyReady: 3,
	SiteBuilt:     4,
	OutreachReady: 5,
	Contacted:     6,
	Called:        6,
	Replied:       7,
	ClosedWon:     8,
	ClosedLost:    8,
}

// All returns every state in lifecycle order.
func All() []Status {
	return []Status{
		Scouted, Analyzing, DossierReady, StrategyReady, SiteBuilt,
		OutreachReady, Contacted, Called, Replied, ClosedWon, ClosedLost,
	}
}

// Parse normalizes s (case-insensitive, dashes or spaces allowed) into a Status.
func Parse(s string) (Status, error) {
	norm := strings.ToUpper(strings.TrimSpace(s))
	norm = strings.NewReplacer("-", "_", " ", "_").Replace(norm)
	st := Status(norm)
	if !st.Valid() {
		return "", fmt.Errorf("leadstatus: unknown status %q", s)
	}
	return st, nil
}

func (s Status) Valid() bool {
	_, ok := rank[s]
	return ok
}

// Rank orders states along the lifecycle. Unknown states rank -1.
func (s Status) Rank() int {
	if r, ok := rank[s]; ok {
		return r
	}
	return -1
}

// IsTerminal reports whether s closes the lead.
func (s Status) IsTerminal() bool { return s == ClosedWon || s == ClosedLost }

// IsOutreach reports whether s belongs to the delivery channels.
func (s Status) IsOutreach() bool { return s == Contacted || s == Called }

func (s Status) String() string { return string(s) }

// CanAdvance reports whether the automated pipeline may move a lead from one
// state to another.
func CanAdvance(from, to Status) bool {
	if !from.Valid() || !to.Valid() {
		return false
	}
	if from.IsTerminal() || to.IsTerminal() {
		return false
	}
	if to.IsOutreach() {
		return from == OutreachReady || from.IsOutreach()
	}
	if to == Replied {
		return from.IsOutreach() || from == Replied
	}
	return to.Rank() >= from.Rank()
}

// Advance applies an automated transition. A target that ranks below the
// current state leaves the lead where it is, so re-running an earlier stage
// never moves a lead backwards.
func Advance(from, to Status) (Status, error) {
	if !from.Valid() {
		from = Initial
	}
	if from.IsTerminal() {
		return from, fmt.Errorf("%w: %s is terminal", ErrIllegalTransition, from)
	}
	if !to.Valid() {
		return from, fmt.Errorf("%w: unknown target %q", ErrIllegalTransition, to)
	}
	if to.Rank() < from.Rank() && !to.IsTerminal() {
		return from, nil
	}
	if !CanAdvance(from, to) {
		return from, fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, from, to)
	}
	return to, nil
}

// SetByUser applies a manual edit. Users may reset a lead to any earlier
// state or close it; only unknown targets are refused.
func SetByUser(from, to Status) (Status, error) {
	if !to.Valid() {
		return from, fmt.Errorf("%w: unknown target %q", ErrIllegalTransition, to)
	}
	return to, nil
}
