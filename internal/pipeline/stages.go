package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	llmclient "leadengine/internal/llm/client"
	"leadengine/internal/llmtool"
	"leadengine/internal/types/lead"
)

// Completer is the completion channel stages call; *llm.Client satisfies it.
type Completer interface {
	CompleteWithFallback(ctx context.Context, req llmclient.Request) (llmclient.Response, error)
	Structured(ctx context.Context, req llmclient.Request, out any) (llmclient.Response, error)
}

// Input is what a stage sees. System is the compiled instruction of the
// active agent and is empty when no agent is supplied.
type Input struct {
	Lead        lead.Lead
	System      string
	Temperature *float64
}

// Runner is one enrichment step.
type Runner interface {
	Stage() Stage
	Run(ctx context.Context, llm Completer, in Input) (lead.Delta, error)
	// SafeDefault returns the documented fallback delta. ok is false when
	// the stage has none and its failure must be reported.
	SafeDefault(l lead.Lead) (d lead.Delta, ok bool)
}

// DefaultRunners returns one runner per stage in Sequence.
func DefaultRunners() map[Stage]Runner {
	return map[Stage]Runner{
		StageResearch:    Research{},
		StageCompetitors: Competitors{},
		StageStrategy:    Strategy{},
		StageBuild:       Build{},
		StageOutreach:    OutreachCopy{},
		StageAssets:      Assets{},
	}
}

// number decodes a JSON number or a numeric string such as "75" or "$4,500".
type number int64

func (n *number) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	s := string(b)
	if len(b) > 0 && b[0] == '"' {
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		s = strings.NewReplacer("$", "", ",", "", "%", "").Replace(strings.TrimSpace(s))
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("pipeline: not a number: %s", b)
	}
	*n = number(f)
	return nil
}

type leadBrief struct {
	Name              string   `json:"name"`
	Type              string   `json:"type,omitempty"`
	Address           string   `json:"address,omitempty"`
	Rating            string   `json:"rating,omitempty"`
	Website           string   `json:"website,omitempty"`
	Phone             string   `json:"phone,omitempty"`
	Email             string   `json:"email,omitempty"`
	OwnerName         string   `json:"owner_name,omitempty"`
	PainPoints        []string `json:"pain_points,omitempty"`
	RevenueEstimate   string   `json:"revenue_estimate,omitempty"`
	TechStack         []string `json:"tech_stack,omitempty"`
	PropensityScore   int      `json:"propensity_score,omitempty"`
	PsychologyProfile string   `json:"psychology_profile,omitempty"`
	Competitors       []string `json:"competitors,omitempty"`
	SitePages         []string `json:"site_pages,omitempty"`
}

func briefOf(l lead.Lead) leadBrief {
	b := leadBrief{
		Name: l.Name, Type: l.Type, Address: l.Address, Rating: l.Rating,
		Website: l.Website, Phone: l.Phone, Email: l.Email,
		OwnerName: l.OwnerName, PainPoints: l.PainPoints, RevenueEstimate: l.RevenueEstimate,
		TechStack: l.TechStack, PropensityScore: l.PropensityScore, PsychologyProfile: l.PsychologyProfile,
	}
	for _, c := range l.Competitors {
		b.Competitors = append(b.Competitors, c.Name)
	}
	for name := range l.Site {
		b.SitePages = append(b.SitePages, name)
	}
	sort.Strings(b.SitePages)
	return b
}

func request(spec llmtool.StructuredPromptSpec, input any, in Input, webSearch bool) (llmclient.Request, error) {
	prompt, err := llmtool.Build(spec, input)
	if err != nil {
		return llmclient.Request{}, err
	}
	return llmclient.Request{Prompt: prompt, System: in.System, WebSearch: webSearch, Temperature: in.Temperature}, nil
}

// ---- research ----

type researchOut struct {
	OwnerName         string   `json:"owner_name" prompt:"optional" prompt_desc:"Owner or manager name."`
	OwnerEmail        string   `json:"owner_email" prompt:"optional" prompt_desc:"Owner's direct email."`
	PainPoints        []string `json:"pain_points" prompt_desc:"Concrete problems visible online (reviews, site, listings)."`
	RevenueEstimate   string   `json:"revenue_estimate" prompt:"optional" prompt_desc:"Annual revenue range."`
	TechStack         []string `json:"tech_stack" prompt:"optional" prompt_desc:"Website platform and tools in use."`
	PropensityScore   *number  `json:"propensity_score" prompt_type:"int" prompt_desc:"0-100 likelihood to buy a new website."`
	PsychologyProfile string   `json:"psychology_profile" prompt:"optional" prompt_desc:"How the owner makes decisions."`
}

// Research builds the owner dossier and scores the lead.
type Research struct{}

func (Research) Stage() Stage { return StageResearch }

func (Research) Run(ctx context.Context, llm Completer, in Input) (lead.Delta, error) {
	spec := llmtool.ApplyPresets(llmtool.StructuredPromptSpec{
		Purpose:      "Research this business and its owner, then score how likely they are to buy a new website.",
		Background:   "We build demo websites for local businesses and pitch them to the owner.",
		OutputFields: llmtool.MustFieldsFromStruct(researchOut{}),
		OutputFormat: "JSON object.",
	}, llmtool.PresetStrictJSON(), llmtool.PresetNoInvent(), llmtool.PresetCautious())
	req, err := request(spec, briefOf(in.Lead), in, true)
	if err != nil {
		return lead.Delta{}, err
	}
	var out researchOut
	if _, err := llm.Structured(ctx, req, &out); err != nil {
		return lead.Delta{}, err
	}
	d := lead.Delta{
		OwnerName:         out.OwnerName,
		OwnerEmail:        out.OwnerEmail,
		PainPoints:        out.PainPoints,
		RevenueEstimate:   out.RevenueEstimate,
		TechStack:         out.TechStack,
		PsychologyProfile: out.PsychologyProfile,
	}
	// An omitted score leaves any earlier one alone.
	if out.PropensityScore != nil {
		score := int(*out.PropensityScore)
		d.PropensityScore = &score
	}
	return d, nil
}

// SafeDefault fills only what earlier research left empty.
func (Research) SafeDefault(l lead.Lead) (lead.Delta, bool) {
	var d lead.Delta
	if len(l.PainPoints) == 0 {
		d.PainPoints = []string{DefaultPainPoint}
	}
	if l.PropensityScore == 0 {
		score := DefaultPropensityScore
		d.PropensityScore = &score
	}
	if strings.TrimSpace(l.PsychologyProfile) == "" {
		d.PsychologyProfile = DefaultPsychologyProfile
	}
	return d, true
}

// ---- competitors ----

type competitorsOut struct {
	Competitors []lead.Competitor `json:"competitors" prompt_type:"[]{name,website,strengths,weaknesses,why_winning}" prompt_desc:"Up to three nearby competitors."`
}

type Competitors struct{}

func (Competitors) Stage() Stage { return StageCompetitors }

func (Competitors) Run(ctx context.Context, llm Completer, in Input) (lead.Delta, error) {
	spec := llmtool.ApplyPresets(llmtool.StructuredPromptSpec{
		Purpose:      "Identify the nearby competitors winning the customers this business should be getting, and why.",
		OutputFields: llmtool.MustFieldsFromStruct(competitorsOut{}),
		OutputFormat: "JSON object.",
	}, llmtool.PresetStrictJSON(), llmtool.PresetNoInvent())
	req, err := request(spec, briefOf(in.Lead), in, true)
	if err != nil {
		return lead.Delta{}, err
	}
	var out competitorsOut
	if _, err := llm.Structured(ctx, req, &out); err != nil {
		return lead.Delta{}, err
	}
	var cs []lead.Competitor
	for _, c := range out.Competitors {
		if strings.TrimSpace(c.Name) != "" {
			cs = append(cs, c)
		}
	}
	return lead.Delta{Competitors: cs}, nil
}

// SafeDefault leaves competitors untouched.
func (Competitors) SafeDefault(lead.Lead) (lead.Delta, bool) { return lead.Delta{}, true }

// ---- strategy ----

// Strategy writes the markdown strategy document. The primary tier is
// retried, then the fallback tier gets one attempt. There is no safe default.
type Strategy struct{}

func (Strategy) Stage() Stage { return StageStrategy }

func (Strategy) Run(ctx context.Context, llm Completer, in Input) (lead.Delta, error) {
	spec := llmtool.StructuredPromptSpec{
		Purpose:    "Write the website and sales strategy for this business.",
		Background: "The strategy drives the demo site build and the outreach copy that follow.",
		Rules: []string{
			"Open with a one-paragraph positioning statement.",
			"Include a site plan listing each page and its goal.",
			"End with the offer and the price anchor.",
		},
		OutputFormat: "Markdown document.",
	}
	req, err := request(spec, briefOf(in.Lead), in, false)
	if err != nil {
		return lead.Delta{}, err
	}
	resp, err := llm.CompleteWithFallback(ctx, req)
	if err != nil {
		return lead.Delta{}, err
	}
	doc := strings.TrimSpace(resp.Text)
	if doc == "" {
		return lead.Delta{}, llmclient.ErrEmptyResponse
	}
	return lead.Delta{Strategy: doc}, nil
}

func (Strategy) SafeDefault(lead.Lead) (lead.Delta, bool) { return lead.Delta{}, false }

// ---- build ----

type buildOut struct {
	Files map[string]string `json:"files" prompt_type:"map[filename]content" prompt_desc:"index.html plus any styles.css or extra pages."`
}

type Build struct{}

func (Build) Stage() Stage { return StageBuild }

func (Build) Run(ctx context.Context, llm Completer, in Input) (lead.Delta, error) {
	spec := llmtool.ApplyPresets(llmtool.StructuredPromptSpec{
		Purpose:      "Build a complete, responsive demo website for this business following the strategy.",
		Background:   in.Lead.Strategy,
		OutputFields: llmtool.MustFieldsFromStruct(buildOut{}),
		Constraints:  []string{"Plain HTML and CSS only.", "index.html is required."},
		OutputFormat: "JSON object.",
	}, llmtool.PresetStrictJSON())
	req, err := request(spec, briefOf(in.Lead), in, false)
	if err != nil {
		return lead.Delta{}, err
	}
	var out buildOut
	if _, err := llm.Structured(ctx, req, &out); err != nil {
		return lead.Delta{}, err
	}
	if strings.TrimSpace(out.Files["index.html"]) == "" {
		return lead.Delta{}, fmt.Errorf("build: reply has no index.html")
	}
	return lead.Delta{Site: out.Files}, nil
}

func (Build) SafeDefault(l lead.Lead) (lead.Delta, bool) {
	if strings.TrimSpace(l.Site["index.html"]) != "" {
		return lead.Delta{}, true
	}
	page, err := renderDefaultSite(l)
	if err != nil {
		return lead.Delta{}, false
	}
	return lead.Delta{Site: map[string]string{"index.html": page}}, true
}

// ---- outreach ----

type outreachOut struct {
	Subject string `json:"subject" prompt_desc:"Email subject line."`
	Body    string `json:"body" prompt_desc:"Email body, plain text."`
	SMS     string `json:"sms" prompt_desc:"SMS under 160 characters."`
}

type OutreachCopy struct{}

func (OutreachCopy) Stage() Stage { return StageOutreach }

func (OutreachCopy) Run(ctx context.Context, llm Completer, in Input) (lead.Delta, error) {
	spec := llmtool.ApplyPresets(llmtool.StructuredPromptSpec{
		Purpose:      "Write first-contact outreach inviting the owner to look at the demo site we built for them.",
		OutputFields: llmtool.MustFieldsFromStruct(outreachOut{}),
		OutputFormat: "JSON object.",
	}, llmtool.PresetStrictJSON(), llmtool.PresetPersuasive())
	req, err := request(spec, briefOf(in.Lead), in, false)
	if err != nil {
		return lead.Delta{}, err
	}
	var out outreachOut
	if _, err := llm.Structured(ctx, req, &out); err != nil {
		return lead.Delta{}, err
	}
	return lead.Delta{Outreach: lead.Outreach{Subject: out.Subject, Body: out.Body, SMS: out.SMS}}, nil
}

func (OutreachCopy) SafeDefault(l lead.Lead) (lead.Delta, bool) {
	def := defaultOutreach(l)
	var o lead.Outreach
	if strings.TrimSpace(l.Outreach.Subject) == "" {
		o.Subject = def.Subject
	}
	if strings.TrimSpace(l.Outreach.Body) == "" {
		o.Body = def.Body
	}
	if strings.TrimSpace(l.Outreach.SMS) == "" {
		o.SMS = def.SMS
	}
	return lead.Delta{Outreach: o}, true
}

// ---- assets ----

type assetsOut struct {
	Proposal  string `json:"proposal" prompt_desc:"One-page proposal in markdown."`
	DealValue number `json:"deal_value" prompt_type:"int" prompt_desc:"Proposed price in whole dollars."`
}

// Assets produces the commercial proposal and deal value.
type Assets struct{}

func (Assets) Stage() Stage { return StageAssets }

func (Assets) Run(ctx context.Context, llm Completer, in Input) (lead.Delta, error) {
	spec := llmtool.ApplyPresets(llmtool.StructuredPromptSpec{
		Purpose:      "Write the commercial proposal for the website and price it.",
		Background:   in.Lead.Strategy,
		OutputFields: llmtool.MustFieldsFromStruct(assetsOut{}),
		OutputFormat: "JSON object.",
	}, llmtool.PresetStrictJSON())
	req, err := request(spec, briefOf(in.Lead), in, false)
	if err != nil {
		return lead.Delta{}, err
	}
	var out assetsOut
	if _, err := llm.Structured(ctx, req, &out); err != nil {
		return lead.Delta{}, err
	}
	return lead.Delta{Proposal: out.Proposal, DealValue: int64(out.DealValue)}, nil
}

func (Assets) SafeDefault(l lead.Lead) (lead.Delta, bool) {
	if strings.TrimSpace(l.Proposal) != "" {
		return lead.Delta{}, true
	}
	return lead.Delta{Proposal: defaultProposal(l), DealValue: DefaultDealValue}, true
}
