package lead

import "strings"

// Delta is a partial update produced by one pipeline stage. Zero values mean
// "no change".
type Delta struct {
	OwnerName         string       `json:"owner_name,omitempty"`
	OwnerEmail        string       `json:"owner_email,omitempty"`
	PainPoints        []string     `json:"pain_points,omitempty"`
	RevenueEstimate   string       `json:"revenue_estimate,omitempty"`
	TechStack         []string     `json:"tech_stack,omitempty"`
	PropensityScore   *int         `json:"propensity_score,omitempty"`
	PsychologyProfile string       `json:"psychology_profile,omitempty"`
	Competitors       []Competitor `json:"competitors,omitempty"`

	Strategy  string            `json:"strategy,omitempty"`
	Site      map[string]string `json:"site,omitempty"`
	Outreach  Outreach          `json:"outreach,omitempty"`
	Proposal  string            `json:"proposal,omitempty"`
	DealValue int64             `json:"deal_value,omitempty"`
}

// IsEmpty reports whether applying d would change nothing.
func (d Delta) IsEmpty() bool {
	return d.OwnerName == "" && d.OwnerEmail == "" && len(d.PainPoints) == 0 &&
		d.RevenueEstimate == "" && len(d.TechStack) == 0 && d.PropensityScore == nil &&
		d.PsychologyProfile == "" && len(d.Competitors) == 0 && d.Strategy == "" &&
		len(d.Site) == 0 && d.Outreach.IsZero() && d.Proposal == "" && d.DealValue == 0
}

// Apply merges d into a copy of l. Enrichment is additive: a field that is
// already populated is overwritten by a non-empty value and never cleared.
// Status is not part of a delta; status changes go through leadstatus.
func (l Lead) Apply(d Delta) Lead {
	out := l.Clone()
	setStr(&out.OwnerName, d.OwnerName)
	setStr(&out.OwnerEmail, d.OwnerEmail)
	setStr(&out.RevenueEstimate, d.RevenueEstimate)
	setStr(&out.PsychologyProfile, d.PsychologyProfile)
	setStr(&out.Strategy, d.Strategy)
	setStr(&out.Proposal, d.Proposal)
	if pp := compact(d.PainPoints); len(pp) > 0 {
		out.PainPoints = pp
	}
	if ts := compact(d.TechStack); len(ts) > 0 {
		out.TechStack = ts
	}
	if d.PropensityScore != nil {
		out.PropensityScore = ClampScore(*d.PropensityScore)
	}
	if len(d.Competitors) > 0 {
		out.Competitors = append([]Competitor(nil), d.Competitors...)
	}
	if len(d.Site) > 0 {
		if out.Site == nil {
			out.Site = make(map[string]string, len(d.Site))
		}
		for name, content := range d.Site {
			name = strings.TrimSpace(name)
			if name == "" || content == "" {
				continue
			}
			out.Site[name] = content
		}
	}
	setStr(&out.Outreach.Subject, d.Outreach.Subject)
	setStr(&out.Outreach.Body, d.Outreach.Body)
	setStr(&out.Outreach.SMS, d.Outreach.SMS)
	if d.DealValue > 0 {
		out.DealValue = d.DealValue
	}
	return out
}

// Clone returns a deep copy so stage code can never alias the caller's slices.
func (l Lead) Clone() Lead {
	out := l
	out.PainPoints = append([]string(nil), l.PainPoints...)
	out.TechStack = append([]string(nil), l.TechStack...)
	out.Competitors = append([]Competitor(nil), l.Competitors...)
	out.Messages = append([]Message(nil), l.Messages...)
	out.Calls = append([]CallLog(nil), l.Calls...)
	if l.Site != nil {
		out.Site = make(map[string]string, len(l.Site))
		for k, v := range l.Site {
			out.Site[k] = v
		}
	}
	return out
}

func setStr(dst *string, v string) {
	if strings.TrimSpace(v) != "" {
		*dst = v
	}
}

func compact(in []string) []string {
	var out []string
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
