package lead

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApply_IsAdditive(t *testing.T) {
	score := 72
	base := Lead{ID: "l1", Name: "Ace Plumbing"}
	first := base.Apply(Delta{
		OwnerName:       "Dana",
		PainPoints:      []string{"no website", " "},
		PropensityScore: &score,
		Site:            map[string]string{"index.html": "<h1>Ace</h1>"},
	})
	require.Equal(t, "Dana", first.OwnerName)
	require.Equal(t, []string{"no website"}, first.PainPoints)
	require.Equal(t, 72, first.PropensityScore)

	// An empty delta never clears what an earlier stage produced.
	second := first.Apply(Delta{Site: map[string]string{"styles.css": "body{}"}})
	assert.Equal(t, "Dana", second.OwnerName)
	assert.Equal(t, []string{"no website"}, second.PainPoints)
	assert.Equal(t, 72, second.PropensityScore)
	assert.Len(t, second.Site, 2)

	// Non-empty values overwrite.
	third := second.Apply(Delta{OwnerName: "Dana Ruiz", PainPoints: []string{"slow quotes"}})
	assert.Equal(t, "Dana Ruiz", third.OwnerName)
	assert.Equal(t, []string{"slow quotes"}, third.PainPoints)
}

func TestApply_DoesNotAliasInput(t *testing.T) {
	base := Lead{PainPoints: []string{"a"}, Site: map[string]string{"index.html": "x"}}
	out := base.Apply(Delta{Site: map[string]string{"about.html": "y"}})
	out.PainPoints[0] = "changed"
	assert.Equal(t, "a", base.PainPoints[0])
	assert.Len(t, base.Site, 1)
}

func TestApply_ClampsScore(t *testing.T) {
	over := 140
	out := Lead{}.Apply(Delta{PropensityScore: &over})
	assert.Equal(t, 100, out.PropensityScore)
}

func TestDelta_IsEmpty(t *testing.T) {
	assert.True(t, Delta{}.IsEmpty())
	assert.True(t, Delta{Outreach: Outreach{}}.IsEmpty())

	zero := 0
	assert.False(t, Delta{PropensityScore: &zero}.IsEmpty())
	assert.False(t, Delta{Site: map[string]string{"index.html": "x"}}.IsEmpty())
	assert.False(t, Delta{Outreach: Outreach{SMS: "hi"}}.IsEmpty())
}
