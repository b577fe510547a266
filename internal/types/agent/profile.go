package agent

import "strings"

type Role string

const (
	RoleScout      Role = "scout"
	RoleResearcher Role = "researcher"
	RoleStrategist Role = "strategist"
	RoleBuilder    Role = "builder"
	RoleCloser     Role = "closer"
	RoleCustom     Role = "custom"
)

func (r Role) Valid() bool {
	switch r {
	case RoleScout, RoleResearcher, RoleStrategist, RoleBuilder, RoleCloser, RoleCustom:
		return true
	}
	return false
}

type Authority string

const (
	AuthorityAdvise  Authority = "advise"
	AuthorityDecide  Authority = "decide"
	AuthorityExecute Authority = "execute"
)

type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// Severity decides what a violated responsibility means for a stage.
type Severity string

const (
	// SeverityWarn lets the stage proceed and flag the issue.
	SeverityWarn Severity = "warn"
	// SeverityBlock means the stage must not report success.
	SeverityBlock Severity = "block"
)

type Verbosity string

const (
	VerbosityConcise  Verbosity = "concise"
	VerbosityBalanced Verbosity = "balanced"
	VerbosityDetailed Verbosity = "detailed"
)

// Profile is a declarative agent persona. It is configuration, not runtime state.
type Profile struct {
	ID               string           `json:"id" yaml:"id"`
	Name             string           `json:"name" yaml:"name"`
	Role             Role             `json:"role" yaml:"role"`
	Capabilities     []string         `json:"capabilities,omitempty" yaml:"capabilities,omitempty"`
	Mandate          Mandate          `json:"mandate" yaml:"mandate"`
	Responsibilities []Responsibility `json:"responsibilities,omitempty" yaml:"responsibilities,omitempty"`
	Contract         OutputContract   `json:"contract" yaml:"contract"`
	Behavior         Behavior         `json:"behavior" yaml:"behavior"`
	Chain            []ChainLink      `json:"chain,omitempty" yaml:"chain,omitempty"`
}

type Mandate struct {
	Objective string    `json:"objective" yaml:"objective"`
	NonGoals  []string  `json:"non_goals,omitempty" yaml:"non_goals,omitempty"`
	Authority Authority `json:"authority,omitempty" yaml:"authority,omitempty"`
}

type Responsibility struct {
	Rule     string   `json:"rule" yaml:"rule"`
	Priority Priority `json:"priority" yaml:"priority"`
	Severity Severity `json:"severity" yaml:"severity"`
	// Disabled rather than Enabled so a missing YAML key keeps the rule on.
	Disabled bool `json:"disabled,omitempty" yaml:"disabled,omitempty"`
}

func (r Responsibility) Enabled() bool { return !r.Disabled && strings.TrimSpace(r.Rule) != "" }

// OutputContract is rendered into instructions; it is not enforced on output.
type OutputContract struct {
	Formats           []string `json:"formats,omitempty" yaml:"formats,omitempty"`
	RequiredSections  []string `json:"required_sections,omitempty" yaml:"required_sections,omitempty"`
	ForbiddenPatterns []string `json:"forbidden_patterns,omitempty" yaml:"forbidden_patterns,omitempty"`
}

func (c OutputContract) IsZero() bool {
	return len(c.Formats) == 0 && len(c.RequiredSections) == 0 && len(c.ForbiddenPatterns) == 0
}

type Behavior struct {
	Creativity float64   `json:"creativity" yaml:"creativity"` // 0..1
	Verbosity  Verbosity `json:"verbosity,omitempty" yaml:"verbosity,omitempty"`
	Tone       string    `json:"tone,omitempty" yaml:"tone,omitempty"`
}

// ChainLink hands control to NextAgentID once the stage named by Trigger completes.
type ChainLink struct {
	Trigger     string `json:"trigger" yaml:"trigger"`
	NextAgentID string `json:"next_agent_id" yaml:"next_agent_id"`
}

// HasBlockingRule reports whether any enabled responsibility is block-severity.
func (p Profile) HasBlockingRule() bool {
	for _, r := range p.Responsibilities {
		if r.Enabled() && r.Severity == SeverityBlock {
			return true
		}
	}
	return false
}

// LinkFor returns the chain link whose trigger matches, ignoring case and
// surrounding whitespace.
func (p Profile) LinkFor(trigger string) (ChainLink, bool) {
	want := strings.TrimSpace(trigger)
	for _, l := range p.Chain {
		if strings.EqualFold(strings.TrimSpace(l.Trigger), want) && strings.TrimSpace(l.NextAgentID) != "" {
			return l, true
		}
	}
	return ChainLink{}, false
}
