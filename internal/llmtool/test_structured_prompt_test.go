package llmtool

import (
	"strings"
	"testing"
)

type scoreOut struct {
	Score   int      `json:"propensity_score" prompt_desc:"0-100 likelihood to buy."`
	Reasons []string `json:"reasons,omitempty" prompt:"optional"`
	Debug   string   `json:"-"`
}

func TestBuild_RendersSectionsInOrder(t *testing.T) {
	spec := ApplyPresets(StructuredPromptSpec{
		Purpose:      "Score the lead.",
		Background:   "Local service business.",
		OutputFields: MustFieldsFromStruct(scoreOut{}),
		Rules:        []string{"Be concise."},
		OutputFormat: "JSON object.",
		Examples:     []PromptExample{{InputJSON: `{"name":"x"}`, OutputJSON: `{"propensity_score":50}`}},
	}, PresetStrictJSON())

	out, err := Build(spec, map[string]any{"name": "Ace Plumbing"})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	order := []string{"[PURPOSE]", "[BACKGROUND]", "[INPUT]", "[OUTPUT]", "[CONSTRAINTS]", "[RULES]", "[OUTPUT_FORMAT]", "[EXAMPLES]"}
	last := -1
	for _, sec := range order {
		i := strings.Index(out, sec)
		if i < 0 {
			t.Fatalf("missing section %s in:\n%s", sec, out)
		}
		if i < last {
			t.Fatalf("section %s out of order", sec)
		}
		last = i
	}
	if strings.Contains(out, "[ASSUMPTIONS]") || strings.Contains(out, "[LANGUAGE]") {
		t.Fatalf("empty sections must be omitted:\n%s", out)
	}
	if !strings.Contains(out, "- propensity_score (int, required): 0-100 likelihood to buy.") {
		t.Fatalf("field line missing:\n%s", out)
	}
	if !strings.Contains(out, "- reasons ([]string, optional)") {
		t.Fatalf("optional field line missing:\n%s", out)
	}
	if strings.Contains(out, "Debug") || strings.Contains(out, "debug") {
		t.Fatalf("json:\"-\" field leaked:\n%s", out)
	}
	if !strings.Contains(out, `"name": "Ace Plumbing"`) {
		t.Fatalf("input not rendered:\n%s", out)
	}
}

func TestBuild_StringInputVerbatim(t *testing.T) {
	out, err := Build(StructuredPromptSpec{Purpose: "p"}, "raw text")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "[INPUT]\nraw text\n") {
		t.Fatalf("unexpected:\n%s", out)
	}
}

func TestBuild_RequiresPurpose(t *testing.T) {
	if _, err := Build(StructuredPromptSpec{}, nil); err == nil {
		t.Fatal("expected error for empty purpose")
	}
}
