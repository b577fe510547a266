package pipeline

import (
	"fmt"
	"strings"

	"leadengine/internal/leadstatus"
)

type Stage string

const (
	StageResearch    Stage = "research"
	StageCompetitors Stage = "competitors"
	StageStrategy    Stage = "strategy"
	StageBuild       Stage = "build"
	StageOutreach    Stage = "outreach"
	StageAssets      Stage = "assets"
)

// Sequence is the full-auto stage order.
var Sequence = []Stage{StageResearch, StageCompetitors, StageStrategy, StageBuild, StageOutreach, StageAssets}

var stageMeta = map[Stage]struct {
	trigger string
	status  leadstatus.Status
}{
	StageResearch:    {"On Deep Dive Completion", leadstatus.DossierReady},
	StageCompetitors: {"On Competitor Analysis Completion", leadstatus.DossierReady},
	StageStrategy:    {"On Strategy Completion", leadstatus.StrategyReady},
	StageBuild:       {"On Site Build Completion", leadstatus.SiteBuilt},
	StageOutreach:    {"On Outreach Ready", leadstatus.OutreachReady},
	StageAssets:      {"On Asset Generation Completion", leadstatus.OutreachReady},
}

// Trigger is the chain-link trigger name fired when the stage completes.
func (s Stage) Trigger() string { return stageMeta[s].trigger }

// Status is the lead status a successful run of the stage implies.
func (s Stage) Status() leadstatus.Status { return stageMeta[s].status }

func (s Stage) Valid() bool {
	_, ok := stageMeta[s]
	return ok
}

func ParseStage(s string) (Stage, error) {
	st := Stage(strings.ToLower(strings.TrimSpace(s)))
	if !st.Valid() {
		return "", fmt.Errorf("pipeline: unknown stage %q", s)
	}
	return st, nil
}
