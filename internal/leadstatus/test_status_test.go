package leadstatus

import (
	"errors"
	"testing"
)

func TestAdvance_ForwardChain(t *testing.T) {
	chain := []Status{Scouted, DossierReady, StrategyReady, SiteBuilt, OutreachReady, Contacted, Called, Replied}
	cur := Scouted
	for _, next := range chain[1:] {
		got, err := Advance(cur, next)
		if err != nil {
			t.Fatalf("advance %s -> %s: %v", cur, next, err)
		}
		if got != next {
			t.Fatalf("advance %s -> %s: got %s", cur, next, got)
		}
		cur = got
	}
}

func TestAdvance_NeverMovesBackwards(t *testing.T) {
	got, err := Advance(StrategyReady, DossierReady)
	if err != nil {
		t.Fatalf("advance: %v", err)
	}
	if got != StrategyReady {
		t.Fatalf("expected StrategyReady to be kept, got %s", got)
	}
}

func TestAdvance_OutreachRequiresReady(t *testing.T) {
	if _, err := Advance(DossierReady, Contacted); !errors.Is(err, ErrIllegalTransition) {
		t.Fatalf("expected illegal transition, got %v", err)
	}
	if _, err := Advance(Scouted, Replied); !errors.Is(err, ErrIllegalTransition) {
		t.Fatalf("expected illegal transition for reply before contact, got %v", err)
	}
}

func TestAdvance_SiblingsDoNotBlock(t *testing.T) {
	got, err := Advance(Contacted, Called)
	if err != nil || got != Called {
		t.Fatalf("contacted -> called: got %s err %v", got, err)
	}
	got, err = Advance(Called, Contacted)
	if err != nil || got != Contacted {
		t.Fatalf("called -> contacted: got %s err %v", got, err)
	}
}

func TestAdvance_TerminalOnlyByUser(t *testing.T) {
	if _, err := Advance(Replied, ClosedWon); !errors.Is(err, ErrIllegalTransition) {
		t.Fatalf("pipeline must not close a lead, got %v", err)
	}
	if _, err := Advance(ClosedLost, OutreachReady); !errors.Is(err, ErrIllegalTransition) {
		t.Fatalf("closed lead must stay closed, got %v", err)
	}
	got, err := SetByUser(Replied, ClosedWon)
	if err != nil || got != ClosedWon {
		t.Fatalf("user close: got %s err %v", got, err)
	}
	got, err = SetByUser(ClosedWon, Scouted)
	if err != nil || got != Scouted {
		t.Fatalf("user reset: got %s err %v", got, err)
	}
}

func TestParse(t *testing.T) {
	st, err := Parse("outreach-ready")
	if err != nil || st != OutreachReady {
		t.Fatalf("parse: got %s err %v", st, err)
	}
	if _, err := Parse("shipped"); err == nil {
		t.Fatalf("expected error for unknown status")
	}
}

func TestRankCoversAll(t *testing.T) {
	prev := -1
	for _, s := range All() {
		if s.Rank() < prev {
			t.Fatalf("All() out of order at %s", s)
		}
		prev = s.Rank()
	}
}
