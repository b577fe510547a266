package pipeline

import (
	"errors"
	"fmt"
)

var (
	ErrLeadClosed  = errors.New("pipeline: lead is closed")
	ErrNotReady    = errors.New("pipeline: lead is not ready for outreach")
	ErrNoRecipient = errors.New("pipeline: lead has no recipient for this channel")
)

// StageError reports the stage that stopped a lead. Progress merged before
// the failing stage is kept on the returned lead.
type StageError struct {
	LeadID string
	Stage  Stage
	Err    error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("pipeline execution error: lead %s: stage %s: %v", e.LeadID, e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }
