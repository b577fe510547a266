package llmtool

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type label string

type base struct {
	ID string `json:"id" prompt_desc:"stable identifier."`
}

type fieldsOut struct {
	base
	DisplayName string                  `prompt:"optional"`
	Tag         label                   `json:"tag"`
	Scores      map[string]int          `json:"scores"`
	Items       []struct{ A, B string } `json:"items"`
	Hidden      string                  `json:"hidden" prompt:"-"`
	Debug       string                  `json:"-"`
	Custom      []byte                  `json:"custom" prompt_type:"base64"`
	internal    string
}

func TestFieldsFromStruct(t *testing.T) {
	fields, err := FieldsFromStruct(&fieldsOut{})
	require.NoError(t, err)

	byName := map[string]PromptField{}
	var names []string
	for _, f := range fields {
		byName[f.Name] = f
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{"id", "display_name", "tag", "scores", "items", "custom"}, names)
	assert.Equal(t, "stable identifier.", byName["id"].Description)
	assert.False(t, byName["display_name"].Required)
	assert.True(t, byName["tag"].Required)
	assert.Equal(t, "string", byName["tag"].Type)
	assert.Equal(t, "map[string]int", byName["scores"].Type)
	assert.Equal(t, "[]{a,b}", byName["items"].Type)
	assert.Equal(t, "base64", byName["custom"].Type)
}

func TestFieldsFromStruct_RejectsNonStruct(t *testing.T) {
	_, err := FieldsFromStruct(42)
	assert.Error(t, err)
	_, err = FieldsFromStruct(nil)
	assert.Error(t, err)
	assert.Panics(t, func() { MustFieldsFromStruct("x") })
}

func TestSnake(t *testing.T) {
	assert.Equal(t, "owner_email", snake("OwnerEmail"))
	assert.Equal(t, "site_url", snake("SiteURL"))
	assert.Equal(t, "http_status", snake("HTTPStatus"))
	assert.Equal(t, "a", snake("A"))
}
