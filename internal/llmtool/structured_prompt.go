package llmtool

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// PromptField describes a single output field in a simple schema.
type PromptField struct {
	Name        string
	Type        string
	Required    bool
	Description string
}

// PromptExample captures an optional input/output example.
type PromptExample struct {
	InputJSON  string
	OutputJSON string
}

// StructuredPromptSpec defines the sections for a structured prompt.
type StructuredPromptSpec struct {
	Purpose      string
	Background   string
	OutputFields []PromptField
	Constraints  []string
	Rules        []string
	Assumptions  []string
	OutputFormat string
	Language     string
	Examples     []PromptExample
}

// Build renders spec around input as bracketed sections. Input is encoded
// as indented JSON unless it is already a string. Empty sections are left out.
func Build(spec StructuredPromptSpec, input any) (string, error) {
	if strings.TrimSpace(spec.Purpose) == "" {
		return "", fmt.Errorf("llmtool: purpose is empty")
	}
	inputText, err := formatInput(input)
	if err != nil {
		return "", fmt.Errorf("llmtool: encode input: %w", err)
	}

	sections := []struct{ title, body string }{
		{"PURPOSE", spec.Purpose},
		{"BACKGROUND", spec.Background},
		{"INPUT", inputText},
		{"OUTPUT", formatFields(spec.OutputFields)},
		{"CONSTRAINTS", bullets(spec.Constraints)},
		{"RULES", bullets(spec.Rules)},
		{"ASSUMPTIONS", bullets(spec.Assumptions)},
		{"OUTPUT_FORMAT", spec.OutputFormat},
		{"LANGUAGE", spec.Language},
		{"EXAMPLES", formatExamples(spec.Examples)},
	}
	var b strings.Builder
	for _, sec := range sections {
		if strings.TrimSpace(sec.body) == "" {
			continue
		}
		fmt.Fprintf(&b, "[%s]\n%s\n\n", sec.title, strings.TrimRight(sec.body, "\n"))
	}
	return strings.TrimSpace(b.String()) + "\n", nil
}

// MustBuild panics on error; for prompts assembled from literals.
func MustBuild(spec StructuredPromptSpec, input any) string {
	out, err := Build(spec, input)
	if err != nil {
		panic(err)
	}
	return out
}

func formatInput(v any) (string, error) {
	switch t := v.(type) {
	case nil:
		return "", nil
	case string:
		return t, nil
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func formatFields(fields []PromptField) string {
	lines := make([]string, 0, len(fields))
	for _, f := range fields {
		name := strings.TrimSpace(f.Name)
		if name == "" {
			continue
		}
		req := "optional"
		if f.Required {
			req = "required"
		}
		line := fmt.Sprintf("- %s (%s, %s)", name, f.Type, req)
		if f.Description != "" {
			line += ": " + f.Description
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func bullets(items []string) string {
	lines := make([]string, 0, len(items))
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			lines = append(lines, "- "+item)
		}
	}
	return strings.Join(lines, "\n")
}

func formatExamples(examples []PromptExample) string {
	blocks := make([]string, 0, len(examples))
	for i, ex := range examples {
		block := fmt.Sprintf("Example %d:", i+1)
		if in := strings.TrimSpace(ex.InputJSON); in != "" {
			block += "\nINPUT:\n" + in
		}
		if out := strings.TrimSpace(ex.OutputJSON); out != "" {
			block += "\nOUTPUT:\n" + out
		}
		blocks = append(blocks, block)
	}
	return strings.Join(blocks, "\n\n")
}
