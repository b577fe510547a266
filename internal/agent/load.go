package agent

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"strings"

	"leadengine/internal/types/agent"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

type file struct {
	Agents []agent.Profile `yaml:"agents"`
}

// Parse decodes an agents document and normalizes every profile.
func Parse(data []byte) ([]agent.Profile, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("agent: definition payload is empty")
	}
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("agent: decode definitions: %w", err)
	}
	seen := map[string]bool{}
	out := make([]agent.Profile, 0, len(f.Agents))
	for i, p := range f.Agents {
		p, err := Normalize(p)
		if err != nil {
			return nil, fmt.Errorf("agent: entry %d: %w", i, err)
		}
		if seen[p.ID] {
			return nil, fmt.Errorf("agent: duplicate id %q", p.ID)
		}
		seen[p.ID] = true
		out = append(out, p)
	}
	return out, nil
}

func LoadFile(path string) ([]agent.Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("agent: read %s: %w", path, err)
	}
	profiles, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("agent: %s: %w", path, err)
	}
	return profiles, nil
}

// Defaults returns the built-in roster: one agent per pipeline role.
func Defaults() []agent.Profile {
	profiles, err := Parse(defaultsYAML)
	if err != nil {
		panic(err)
	}
	return profiles
}

// Normalize trims fields, fills enum defaults and rejects values outside the
// closed sets.
func Normalize(p agent.Profile) (agent.Profile, error) {
	p.ID = strings.TrimSpace(p.ID)
	p.Name = strings.TrimSpace(p.Name)
	if p.ID == "" {
		return p, fmt.Errorf("id is required")
	}
	p.Role = agent.Role(strings.ToLower(strings.TrimSpace(string(p.Role))))
	if p.Role == "" {
		p.Role = agent.RoleCustom
	}
	if !p.Role.Valid() {
		return p, fmt.Errorf("%s: invalid role %q", p.ID, p.Role)
	}
	switch p.Mandate.Authority = agent.Authority(strings.ToLower(string(p.Mandate.Authority))); p.Mandate.Authority {
	case "", agent.AuthorityAdvise, agent.AuthorityDecide, agent.AuthorityExecute:
	default:
		return p, fmt.Errorf("%s: invalid authority %q", p.ID, p.Mandate.Authority)
	}
	rs := make([]agent.Responsibility, len(p.Responsibilities))
	for i, r := range p.Responsibilities {
		r.Priority = agent.Priority(strings.ToLower(strings.TrimSpace(string(r.Priority))))
		switch r.Priority {
		case "":
			r.Priority = agent.PriorityMedium
		case agent.PriorityLow, agent.PriorityMedium, agent.PriorityHigh, agent.PriorityCritical:
		default:
			return p, fmt.Errorf("%s: responsibility %d: invalid priority %q", p.ID, i, r.Priority)
		}
		r.Severity = agent.Severity(strings.ToLower(strings.TrimSpace(string(r.Severity))))
		switch r.Severity {
		case "":
			r.Severity = agent.SeverityWarn
		case agent.SeverityWarn, agent.SeverityBlock:
		default:
			return p, fmt.Errorf("%s: responsibility %d: invalid severity %q", p.ID, i, r.Severity)
		}
		rs[i] = r
	}
	p.Responsibilities = rs
	switch p.Behavior.Verbosity = agent.Verbosity(strings.ToLower(string(p.Behavior.Verbosity))); p.Behavior.Verbosity {
	case "", agent.VerbosityConcise, agent.VerbosityBalanced, agent.VerbosityDetailed:
	default:
		return p, fmt.Errorf("%s: invalid verbosity %q", p.ID, p.Behavior.Verbosity)
	}
	p.Behavior.Creativity = clamp01(p.Behavior.Creativity)
	return p, nil
}
