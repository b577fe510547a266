package agent

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"leadengine/internal/types/agent"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func link(trigger, next string) []agent.ChainLink {
	return []agent.ChainLink{{Trigger: trigger, NextAgentID: next}}
}

func TestDirectory_NextFollowsLinkCaseInsensitively(t *testing.T) {
	a := agent.Profile{ID: "a", Role: agent.RoleResearcher, Chain: link("On Deep Dive Completion", "b")}
	b := agent.Profile{ID: "b", Role: agent.RoleStrategist}
	d := NewDirectory(a, b)

	next, ok, err := d.Next(a, "  on deep dive completion ")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "b", next.ID)

	_, ok, err = d.Next(a, "On Strategy Completion")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDirectory_RefusesBadLinks(t *testing.T) {
	self := agent.Profile{ID: "self", Chain: link("T", "self")}
	dangling := agent.Profile{ID: "dangling", Chain: link("T", "ghost")}
	x := agent.Profile{ID: "x", Chain: link("T", "y")}
	y := agent.Profile{ID: "y", Chain: link("T", "x")}
	d := NewDirectory(self, dangling, x, y)

	_, _, err := d.Next(self, "T")
	assert.True(t, errors.Is(err, ErrSelfLink))
	_, _, err = d.Next(dangling, "T")
	assert.True(t, errors.Is(err, ErrUnknownAgent))
	_, _, err = d.Next(x, "T")
	assert.True(t, errors.Is(err, ErrChainCycle))
}

func TestDirectory_ValidateReportsEachCycleOnce(t *testing.T) {
	x := agent.Profile{ID: "x", Role: agent.RoleCustom, Chain: link("T", "y")}
	y := agent.Profile{ID: "y", Role: agent.RoleCustom, Chain: link("T", "x")}
	other := agent.Profile{ID: "z", Role: agent.RoleCustom, Chain: link("U", "x")}
	issues := NewDirectory(x, y, other).Validate()
	require.Len(t, issues, 1)
	assert.Equal(t, "x", issues[0].AgentID)
	assert.ErrorIs(t, issues[0].Err, ErrChainCycle)
}

func TestDefaults_AreValid(t *testing.T) {
	profiles := Defaults()
	require.Len(t, profiles, 5)
	assert.Empty(t, NewDirectory(profiles...).Validate())
	for _, p := range profiles {
		assert.NotEmpty(t, Compile(p))
	}
}

func TestLoadFile_NormalizesAndRejects(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "agents.yaml")
	require.NoError(t, os.WriteFile(good, []byte(`
agents:
  - id: " a "
    name: Ava
    role: Researcher
    responsibilities:
      - rule: Check facts
    behavior:
      creativity: 3
`), 0o644))
	profiles, err := LoadFile(good)
	require.NoError(t, err)
	require.Len(t, profiles, 1)
	p := profiles[0]
	assert.Equal(t, "a", p.ID)
	assert.Equal(t, agent.RoleResearcher, p.Role)
	assert.Equal(t, agent.PriorityMedium, p.Responsibilities[0].Priority)
	assert.Equal(t, agent.SeverityWarn, p.Responsibilities[0].Severity)
	assert.Equal(t, 1.0, p.Behavior.Creativity)

	_, err = Parse([]byte("agents:\n  - id: a\n    role: wizard\n"))
	assert.Error(t, err)
	_, err = Parse([]byte("agents:\n  - id: a\n  - id: a\n"))
	assert.Error(t, err)
	_, err = Parse([]byte("  "))
	assert.Error(t, err)
}
