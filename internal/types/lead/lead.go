package lead

import (
	"time"

	"leadengine/internal/leadstatus"
)

// Lead is a prospect business moving through the pipeline.
type Lead struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`

	Name    string `json:"name"`
	Type    string `json:"type,omitempty"`
	Address string `json:"address,omitempty"`
	Rating  string `json:"rating,omitempty"`
	Website string `json:"website,omitempty"`
	Phone   string `json:"phone,omitempty"`
	Email   string `json:"email,omitempty"`

	OwnerName         string       `json:"owner_name,omitempty"`
	OwnerEmail        string       `json:"owner_email,omitempty"`
	PainPoints        []string     `json:"pain_points,omitempty"`
	RevenueEstimate   string       `json:"revenue_estimate,omitempty"`
	TechStack         []string     `json:"tech_stack,omitempty"`
	PropensityScore   int          `json:"propensity_score,omitempty"` // 0-100
	PsychologyProfile string       `json:"psychology_profile,omitempty"`
	Competitors       []Competitor `json:"competitors,omitempty"`

	Strategy  string            `json:"strategy,omitempty"` // markdown
	Site      map[string]string `json:"site,omitempty"`     // filename -> content
	Outreach  Outreach          `json:"outreach,omitempty"`
	Proposal  string            `json:"proposal,omitempty"`
	Status    leadstatus.Status `json:"status"`
	DealValue int64             `json:"deal_value,omitempty"`
	Messages  []Message         `json:"messages,omitempty"`
	Calls     []CallLog         `json:"calls,omitempty"`
}

type Competitor struct {
	Name       string `json:"name"`
	Website    string `json:"website,omitempty"`
	Strengths  string `json:"strengths,omitempty"`
	Weaknesses string `json:"weaknesses,omitempty"`
	WhyWinning string `json:"why_winning,omitempty"`
}

// Outreach is the generated first-contact copy.
type Outreach struct {
	Subject string `json:"subject,omitempty"`
	Body    string `json:"body,omitempty"`
	SMS     string `json:"sms,omitempty"`
}

func (o Outreach) IsZero() bool { return o.Subject == "" && o.Body == "" && o.SMS == "" }

type Message struct {
	ID      string    `json:"id"`
	Channel string    `json:"channel"` // email | sms
	To      string    `json:"to"`
	Subject string    `json:"subject,omitempty"`
	Body    string    `json:"body"`
	SentAt  time.Time `json:"sent_at"`
	OK      bool      `json:"ok"`
	Error   string    `json:"error,omitempty"`
}

type CallLog struct {
	ID       string    `json:"id"`
	To       string    `json:"to"`
	Script   string    `json:"script"`
	CalledAt time.Time `json:"called_at"`
	OK       bool      `json:"ok"`
	Error    string    `json:"error,omitempty"`
}

// ClampScore bounds a propensity score to 0..100.
func ClampScore(n int) int {
	if n < 0 {
		return 0
	}
	if n > 100 {
		return 100
	}
	return n
}
