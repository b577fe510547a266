package outreach

import (
	"context"
	"sync"
)

type Email struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

type Call struct {
	To     string `json:"to"`
	Script string `json:"script"`
}

// EmailSender delivers one email. A nil error means the provider accepted it.
type EmailSender interface {
	SendEmail(ctx context.Context, msg Email) error
}

// VoiceCaller places one scripted call.
type VoiceCaller interface {
	Call(ctx context.Context, c Call) error
}

// Recorder keeps everything it is asked to send. It backs dry runs and
// tests; Err, when set, fails every delivery.
type Recorder struct {
	mu     sync.Mutex
	Emails []Email
	Calls  []Call
	Err    error
}

func (r *Recorder) SendEmail(ctx context.Context, msg Email) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.Emails = append(r.Emails, msg)
	return nil
}

func (r *Recorder) Call(ctx context.Context, c Call) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.Calls = append(r.Calls, c)
	return nil
}
