package llmtool

// PromptPreset holds reusable constraints and rules for structured prompts.
type PromptPreset struct {
	Constraints []string
	Rules       []string
}

// ApplyPresets prepends preset constraints/rules to a structured prompt spec.
func ApplyPresets(spec StructuredPromptSpec, presets ...PromptPreset) StructuredPromptSpec {
	if len(presets) == 0 {
		return spec
	}
	var merged PromptPreset
	for _, p := range presets {
		merged.Constraints = append(merged.Constraints, p.Constraints...)
		merged.Rules = append(merged.Rules, p.Rules...)
	}
	spec.Constraints = append(merged.Constraints, spec.Constraints...)
	spec.Rules = append(merged.Rules, spec.Rules...)
	return spec
}

// PresetStrictJSON enforces JSON-only output.
func PresetStrictJSON() PromptPreset {
	return PromptPreset{
		Constraints: []string{
			"Return strict JSON only.",
			"Match the schema exactly; no extra fields.",
			"No markdown, comments, or trailing commas.",
		},
	}
}

// PresetNoInvent keeps contact details and figures grounded in the input or
// in search results.
func PresetNoInvent() PromptPreset {
	return PromptPreset{
		Constraints: []string{
			"Do not invent phone numbers, email addresses, owner names, or revenue figures.",
		},
	}
}

// PresetCautious encourages explicit uncertainty.
func PresetCautious() PromptPreset {
	return PromptPreset{
		Rules: []string{
			"If a value cannot be found, use an empty string or empty list rather than guessing.",
		},
	}
}

// PresetPersuasive is for copy aimed at the business owner.
func PresetPersuasive() PromptPreset {
	return PromptPreset{
		Rules: []string{
			"Address the owner's stated pain points directly.",
			"Keep claims specific and verifiable; no generic marketing filler.",
		},
	}
}
