package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"leadengine/internal/leadstatus"
	"leadengine/internal/outreach"
	"leadengine/internal/types/lead"
)

func readyLead() lead.Lead {
	l := aceLead()
	l.Status = leadstatus.OutreachReady
	l.OwnerEmail = "dana@ace.test"
	l.Outreach = lead.Outreach{Subject: "A site for Ace", Body: "We built you a site.", SMS: "Built you a site"}
	return l
}

func TestHandoff_SendEmailAdvancesToContacted(t *testing.T) {
	rec := &outreach.Recorder{}
	saver := &memSaver{}
	h := New(newStageLLM(), nil, Options{Store: saver}).Handoff(rec, nil)

	out, err := h.SendEmail(context.Background(), readyLead())
	require.NoError(t, err)
	assert.Equal(t, leadstatus.Contacted, out.Status)
	require.Len(t, rec.Emails, 1)
	assert.Equal(t, "dana@ace.test", rec.Emails[0].To)
	require.Len(t, out.Messages, 1)
	assert.True(t, out.Messages[0].OK)
	assert.NotEmpty(t, out.Messages[0].ID)
	assert.Equal(t, "email", out.Messages[0].Channel)
	require.Len(t, saver.saved, 1)
}

func TestHandoff_FallsBackToBusinessEmail(t *testing.T) {
	rec := &outreach.Recorder{}
	h := New(newStageLLM(), nil, Options{}).Handoff(rec, nil)
	l := readyLead()
	l.OwnerEmail = ""

	_, err := h.SendEmail(context.Background(), l)
	require.NoError(t, err)
	assert.Equal(t, "info@ace.test", rec.Emails[0].To)
}

func TestHandoff_FailedDeliveryKeepsStatus(t *testing.T) {
	rec := &outreach.Recorder{Err: errors.New("smtp down")}
	h := New(newStageLLM(), nil, Options{}).Handoff(rec, rec)

	out, err := h.SendEmail(context.Background(), readyLead())
	require.Error(t, err)
	assert.Equal(t, leadstatus.OutreachReady, out.Status)
	require.Len(t, out.Messages, 1)
	assert.False(t, out.Messages[0].OK)
	assert.Equal(t, "smtp down", out.Messages[0].Error)

	out, err = h.Call(context.Background(), out)
	require.Error(t, err)
	assert.Equal(t, leadstatus.OutreachReady, out.Status)
	require.Len(t, out.Calls, 1)
	assert.False(t, out.Calls[0].OK)
}

func TestHandoff_RefusesEarlyOrUnreachableLeads(t *testing.T) {
	rec := &outreach.Recorder{}
	h := New(newStageLLM(), nil, Options{}).Handoff(rec, rec)

	early := readyLead()
	early.Status = leadstatus.SiteBuilt
	_, err := h.SendEmail(context.Background(), early)
	require.ErrorIs(t, err, ErrNotReady)

	closed := readyLead()
	closed.Status = leadstatus.ClosedLost
	_, err = h.Call(context.Background(), closed)
	require.ErrorIs(t, err, ErrLeadClosed)

	noPhone := readyLead()
	noPhone.Phone = ""
	_, err = h.Call(context.Background(), noPhone)
	require.ErrorIs(t, err, ErrNoRecipient)

	assert.Empty(t, rec.Emails)
	assert.Empty(t, rec.Calls)
}

func TestHandoff_CallAfterEmail(t *testing.T) {
	rec := &outreach.Recorder{}
	h := New(newStageLLM(), nil, Options{}).Handoff(rec, rec)

	out, err := h.SendEmail(context.Background(), readyLead())
	require.NoError(t, err)
	out, err = h.Call(context.Background(), out)
	require.NoError(t, err)
	assert.Equal(t, leadstatus.Called, out.Status)
	require.Len(t, rec.Calls, 1)
	assert.Equal(t, "Built you a site", rec.Calls[0].Script)
	assert.Len(t, out.Messages, 1)
	assert.Len(t, out.Calls, 1)
}
