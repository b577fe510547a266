package scout

import (
	"testing"

	"leadengine/internal/leadstatus"
	"leadengine/internal/types/lead"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const aceStream = `{"name":"Ace Plumbing","phone":"555-0100"}|||{"name":"No Contact Co"}|||`

func names(ls []lead.Lead) []string {
	out := make([]string, 0, len(ls))
	for _, l := range ls {
		out = append(out, l.Name+"/"+l.Phone+"/"+l.Email)
	}
	return out
}

func TestParser_AcePlumbingScenario(t *testing.T) {
	p := NewParser("")
	got := p.Write(aceStream)
	got = append(got, p.Flush()...)

	require.Len(t, got, 1)
	ace := got[0]
	assert.Equal(t, "Ace Plumbing", ace.Name)
	assert.Equal(t, "555-0100", ace.Phone)
	assert.Equal(t, leadstatus.Scouted, ace.Status)
	assert.NotEmpty(t, ace.ID)
	assert.False(t, ace.CreatedAt.IsZero())
	assert.Equal(t, DefaultType, ace.Type)
	assert.Equal(t, DefaultLocation, ace.Address)
	assert.Equal(t, DefaultRating, ace.Rating)
}

func TestParser_SplitAtAnyOffsetMatchesSingleWrite(t *testing.T) {
	stream := "```json\n" + `{"name":"Ace Plumbing","phone":"555-0100"}` + "\n```|||" +
		`{"name":"Bright Dental","email":"hi@bright.example","rating":4.7}|||` +
		`not json at all|||` +
		`{"name":"Split | Pipe","phone":"(555) 010-2000"}`

	whole := NewParser("")
	want := names(append(whole.Write(stream), whole.Flush()...))
	require.Len(t, want, 3)

	for i := 0; i <= len(stream); i++ {
		p := NewParser("")
		got := p.Write(stream[:i])
		got = append(got, p.Write(stream[i:])...)
		got = append(got, p.Flush()...)
		assert.Equal(t, want, names(got), "split at offset %d", i)
	}
}

func TestParser_NormalizesSentinelsAndDefaults(t *testing.T) {
	p := NewParser("")
	got := p.Write(`{"name":"","phone":"NOT FOUND","email":"owner@shop.example","website":"Not Found","category":"Florist"}|||`)
	require.Len(t, got, 1)
	l := got[0]
	assert.Equal(t, DefaultName, l.Name)
	assert.Empty(t, l.Phone)
	assert.Empty(t, l.Website)
	assert.Equal(t, "Florist", l.Type)
}

func TestParser_DropsMalformedAndNonObjects(t *testing.T) {
	p := NewParser("")
	got := p.Write(`{"name": "Broken"|||[1,2,3]|||{"name":{"nested":true},"phone":"5550100200"}|||{}|||`)
	assert.Empty(t, got)
	assert.Empty(t, p.Pending())
}

func TestParser_KeepsOnlyRemainder(t *testing.T) {
	p := NewParser("##")
	assert.Empty(t, p.Write(`{"name":"A","phone":"1234567"}#`))
	assert.Equal(t, `{"name":"A","phone":"1234567"}#`, p.Pending())
	got := p.Write(`#{"name":"B"`)
	require.Len(t, got, 1)
	assert.Equal(t, `{"name":"B"`, p.Pending())
}

func TestParser_QuotedRecord(t *testing.T) {
	p := NewParser("")
	got := p.Write(`"{\"name\":\"Quoted Cafe\",\"phone\":\"555-123-4567\"}"|||`)
	require.Len(t, got, 1)
	assert.Equal(t, "Quoted Cafe", got[0].Name)
}
