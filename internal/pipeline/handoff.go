package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"leadengine/internal/events"
	"leadengine/internal/leadstatus"
	"leadengine/internal/outreach"
	"leadengine/internal/types/lead"
)

// Handoff delivers generated outreach through external channels. It shares
// the orchestrator's per-lead locks, loader, store and bus.
type Handoff struct {
	o     *Orchestrator
	email outreach.EmailSender
	voice outreach.VoiceCaller
}

// Handoff returns the delivery side of o. Either channel may be nil.
func (o *Orchestrator) Handoff(email outreach.EmailSender, voice outreach.VoiceCaller) *Handoff {
	return &Handoff{o: o, email: email, voice: voice}
}

// SendEmail mails the lead's outreach copy to OwnerEmail, or Email when the
// owner address is unknown. On success the lead moves to CONTACTED and a
// Message is appended; a failed delivery is recorded with OK=false and the
// status is left alone.
func (h *Handoff) SendEmail(ctx context.Context, l lead.Lead) (lead.Lead, error) {
	if h.email == nil {
		return l, fmt.Errorf("pipeline: no email sender configured")
	}
	unlock := h.o.locks.Lock(l.ID)
	defer unlock()
	l, err := h.o.current(ctx, l)
	if err != nil {
		return l, err
	}

	if err := ready(l, leadstatus.Contacted); err != nil {
		return l, err
	}
	to := firstNonEmpty(l.OwnerEmail, l.Email)
	if to == "" {
		return l, ErrNoRecipient
	}
	msg := outreach.Email{To: to, Subject: l.Outreach.Subject, Body: l.Outreach.Body}
	sendErr := h.email.SendEmail(ctx, msg)

	out := l.Clone()
	rec := lead.Message{
		ID:      uuid.NewString(),
		Channel: "email",
		To:      to,
		Subject: msg.Subject,
		Body:    msg.Body,
		SentAt:  h.o.opts.Now(),
		OK:      sendErr == nil,
	}
	if sendErr != nil {
		rec.Error = sendErr.Error()
	}
	out.Messages = append(out.Messages, rec)
	return h.finish(ctx, l, out, leadstatus.Contacted, "email", sendErr)
}

// Call places a scripted call to the lead's phone. The script is the SMS copy
// when present, else the email body.
func (h *Handoff) Call(ctx context.Context, l lead.Lead) (lead.Lead, error) {
	if h.voice == nil {
		return l, fmt.Errorf("pipeline: no voice caller configured")
	}
	unlock := h.o.locks.Lock(l.ID)
	defer unlock()
	l, err := h.o.current(ctx, l)
	if err != nil {
		return l, err
	}

	if err := ready(l, leadstatus.Called); err != nil {
		return l, err
	}
	to := strings.TrimSpace(l.Phone)
	if to == "" {
		return l, ErrNoRecipient
	}
	script := firstNonEmpty(l.Outreach.SMS, l.Outreach.Body)
	callErr := h.voice.Call(ctx, outreach.Call{To: to, Script: script})

	out := l.Clone()
	rec := lead.CallLog{
		ID:       uuid.NewString(),
		To:       to,
		Script:   script,
		CalledAt: h.o.opts.Now(),
		OK:       callErr == nil,
	}
	if callErr != nil {
		rec.Error = callErr.Error()
	}
	out.Calls = append(out.Calls, rec)
	return h.finish(ctx, l, out, leadstatus.Called, "voice", callErr)
}

func (h *Handoff) finish(ctx context.Context, before, out lead.Lead, target leadstatus.Status, channel string, deliveryErr error) (lead.Lead, error) {
	if deliveryErr == nil {
		st, err := leadstatus.Advance(before.Status, target)
		if err != nil {
			return before, err
		}
		out.Status = st
	}
	out.UpdatedAt = h.o.opts.Now()
	h.o.persist(ctx, out)

	ev := events.Event{Kind: events.KindOutreachSent, LeadID: out.ID, Status: string(out.Status), Message: channel}
	if deliveryErr != nil {
		ev.Message = channel + ": " + deliveryErr.Error()
		h.o.opts.Logger.Printf("pipeline: lead %s: %s delivery failed: %v", out.ID, channel, deliveryErr)
		h.o.opts.Bus.Publish(ev)
		return out, fmt.Errorf("pipeline: %s delivery: %w", channel, deliveryErr)
	}
	h.o.opts.Bus.Publish(ev)
	if out.Status != before.Status {
		h.o.opts.Bus.Publish(events.Event{Kind: events.KindStatusChanged, LeadID: out.ID, Status: string(out.Status)})
	}
	return out, nil
}

func ready(l lead.Lead, target leadstatus.Status) error {
	if l.Status.IsTerminal() {
		return fmt.Errorf("%w: %s", ErrLeadClosed, l.Status)
	}
	if !leadstatus.CanAdvance(l.Status, target) {
		return fmt.Errorf("%w: status %s", ErrNotReady, l.Status)
	}
	return nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
