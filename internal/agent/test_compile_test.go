package agent

import (
	"strings"
	"testing"

	"leadengine/internal/types/agent"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fullProfile() agent.Profile {
	return agent.Profile{
		ID:           "closer",
		Name:         "Closer",
		Role:         agent.RoleCloser,
		Capabilities: []string{"email_copy", "sms_copy"},
		Mandate: agent.Mandate{
			Objective: "Book a call.",
			NonGoals:  []string{"Discounts"},
			Authority: agent.AuthorityDecide,
		},
		Responsibilities: []agent.Responsibility{
			{Rule: "Mention a pain point.", Priority: agent.PriorityHigh, Severity: agent.SeverityWarn},
			{Rule: "Disabled rule.", Priority: agent.PriorityLow, Severity: agent.SeverityBlock, Disabled: true},
			{Rule: "Never promise rankings.", Priority: agent.PriorityCritical, Severity: agent.SeverityBlock},
		},
		Contract: agent.OutputContract{Formats: []string{"json"}, ForbiddenPatterns: []string{"lorem ipsum"}},
		Behavior: agent.Behavior{Creativity: 0.5, Verbosity: agent.VerbosityConcise, Tone: "friendly"},
		Chain:    []agent.ChainLink{{Trigger: "On Outreach Ready", NextAgentID: "followup"}},
	}
}

func TestCompile_FixedSectionOrder(t *testing.T) {
	out := Compile(fullProfile())
	order := []string{
		"[IDENTITY]",
		"[CAPABILITY MATRIX]",
		"[CHAINING]",
		"[PRIMARY MANDATE]",
		"[NON-GOALS]",
		"[RESPONSIBILITY MATRIX]",
		"[OUTPUT CONTRACT]",
		"[BEHAVIORAL PARAMETERS]",
	}
	last := -1
	for _, sec := range order {
		i := strings.Index(out, sec)
		require.GreaterOrEqual(t, i, 0, "missing %s in:\n%s", sec, out)
		require.Greater(t, i, last, "%s out of order", sec)
		last = i
	}
}

func TestCompile_ResponsibilitiesEnabledInDeclarationOrder(t *testing.T) {
	out := Compile(fullProfile())
	assert.NotContains(t, out, "Disabled rule.")
	first := strings.Index(out, "1. [high/warn] Mention a pain point.")
	second := strings.Index(out, "2. [critical/block] Never promise rankings.")
	require.GreaterOrEqual(t, first, 0, out)
	require.Greater(t, second, first, out)
}

func TestCompile_IsDeterministic(t *testing.T) {
	assert.Equal(t, Compile(fullProfile()), Compile(fullProfile()))
}

func TestCompile_NoMandateFallsBackToIdentityLine(t *testing.T) {
	p := fullProfile()
	p.Mandate = agent.Mandate{}
	out := Compile(p)
	assert.Equal(t, "You are Closer, the closer agent.\n", out)

	assert.Equal(t, "You are Unnamed Agent, the custom agent.\n", Compile(agent.Profile{}))
}

func TestCompile_BareMandateKeepsIdentity(t *testing.T) {
	out := Compile(agent.Profile{ID: "a", Name: "Ava", Role: agent.RoleResearcher, Mandate: agent.Mandate{Objective: "Dig."}})
	require.NotEmpty(t, out)
	assert.Contains(t, out, "[IDENTITY]\nName: Ava\nRole: researcher\n")
	assert.Contains(t, out, "[PRIMARY MANDATE]")
	for _, absent := range []string{"[NON-GOALS]", "[RESPONSIBILITY MATRIX]", "[CAPABILITY MATRIX]", "[CHAINING]", "[OUTPUT CONTRACT]"} {
		assert.NotContains(t, out, absent)
	}
}
