package agent

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"leadengine/internal/types/agent"
)

// Compile renders p as system instruction text. Sections appear in a fixed
// order and empty ones are left out, except identity. A profile without a
// mandate objective compiles to a single identity line.
func Compile(p agent.Profile) string {
	if strings.TrimSpace(p.Mandate.Objective) == "" {
		return identityLine(p)
	}

	var buf bytes.Buffer
	writeSection(&buf, "IDENTITY", identityBlock(p))
	writeSection(&buf, "CAPABILITY MATRIX", capabilityMatrix(p))
	writeSection(&buf, "CHAINING", chainTable(p))
	writeSection(&buf, "PRIMARY MANDATE", mandate(p.Mandate))
	writeSection(&buf, "NON-GOALS", bullets(p.Mandate.NonGoals))
	writeSection(&buf, "RESPONSIBILITY MATRIX", responsibilityMatrix(p.Responsibilities))
	writeSection(&buf, "OUTPUT CONTRACT", contract(p.Contract))
	writeSection(&buf, "BEHAVIORAL PARAMETERS", behavior(p.Behavior))
	return strings.TrimSpace(buf.String()) + "\n"
}

func displayName(p agent.Profile) string {
	if n := strings.TrimSpace(p.Name); n != "" {
		return n
	}
	if id := strings.TrimSpace(p.ID); id != "" {
		return id
	}
	return "Unnamed Agent"
}

func displayRole(p agent.Profile) agent.Role {
	if p.Role == "" {
		return agent.RoleCustom
	}
	return p.Role
}

func identityLine(p agent.Profile) string {
	return fmt.Sprintf("You are %s, the %s agent.\n", displayName(p), displayRole(p))
}

func identityBlock(p agent.Profile) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Name: %s\n", displayName(p))
	fmt.Fprintf(&b, "Role: %s\n", displayRole(p))
	if id := strings.TrimSpace(p.ID); id != "" {
		fmt.Fprintf(&b, "Agent ID: %s\n", id)
	}
	return b.String()
}

func capabilityMatrix(p agent.Profile) string {
	var b strings.Builder
	for _, c := range p.Capabilities {
		if c = strings.TrimSpace(c); c != "" {
			fmt.Fprintf(&b, "| %s | enabled |\n", c)
		}
	}
	if b.Len() == 0 {
		return ""
	}
	return "| capability | state |\n|---|---|\n" + b.String()
}

func chainTable(p agent.Profile) string {
	var b strings.Builder
	for _, l := range p.Chain {
		trigger, next := strings.TrimSpace(l.Trigger), strings.TrimSpace(l.NextAgentID)
		if trigger == "" || next == "" {
			continue
		}
		fmt.Fprintf(&b, "- %s -> hand off to %s\n", trigger, next)
	}
	return b.String()
}

func mandate(m agent.Mandate) string {
	s := "Objective: " + strings.TrimSpace(m.Objective) + "\n"
	if m.Authority != "" {
		s += "Authority: " + string(m.Authority) + "\n"
	}
	return s
}

func responsibilityMatrix(rs []agent.Responsibility) string {
	var b strings.Builder
	n := 0
	for _, r := range rs {
		if !r.Enabled() {
			continue
		}
		n++
		pr, sev := r.Priority, r.Severity
		if pr == "" {
			pr = agent.PriorityMedium
		}
		if sev == "" {
			sev = agent.SeverityWarn
		}
		fmt.Fprintf(&b, "%d. [%s/%s] %s\n", n, pr, sev, strings.TrimSpace(r.Rule))
	}
	if n == 0 {
		return ""
	}
	return b.String() + "Rules marked block must be satisfied before the work counts as done.\n"
}

func contract(c agent.OutputContract) string {
	if c.IsZero() {
		return ""
	}
	var b strings.Builder
	if s := joinTrimmed(c.Formats); s != "" {
		fmt.Fprintf(&b, "Formats: %s\n", s)
	}
	if s := joinTrimmed(c.RequiredSections); s != "" {
		fmt.Fprintf(&b, "Required sections: %s\n", s)
	}
	if s := joinTrimmed(c.ForbiddenPatterns); s != "" {
		fmt.Fprintf(&b, "Never include: %s\n", s)
	}
	return b.String()
}

func behavior(bh agent.Behavior) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Creativity: %s\n", strconv.FormatFloat(clamp01(bh.Creativity), 'f', 2, 64))
	if bh.Verbosity != "" {
		fmt.Fprintf(&b, "Verbosity: %s\n", bh.Verbosity)
	}
	if t := strings.TrimSpace(bh.Tone); t != "" {
		fmt.Fprintf(&b, "Tone: %s\n", t)
	}
	return b.String()
}

func bullets(items []string) string {
	var b strings.Builder
	for _, it := range items {
		if it = strings.TrimSpace(it); it != "" {
			fmt.Fprintf(&b, "- %s\n", it)
		}
	}
	return b.String()
}

func joinTrimmed(items []string) string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		if it = strings.TrimSpace(it); it != "" {
			out = append(out, it)
		}
	}
	return strings.Join(out, ", ")
}

func clamp01(f float64) float64 {
	switch {
	case f < 0:
		return 0
	case f > 1:
		return 1
	}
	return f
}

func writeSection(buf *bytes.Buffer, title, body string) {
	if strings.TrimSpace(body) == "" {
		return
	}
	buf.WriteString("[")
	buf.WriteString(title)
	buf.WriteString("]\n")
	buf.WriteString(body)
	if !strings.HasSuffix(body, "\n") {
		buf.WriteString("\n")
	}
	buf.WriteString("\n")
}
