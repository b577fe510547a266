package scout

import (
	"io"
	"log"
	"strings"
	"time"

	"leadengine/internal/leadstatus"
	"leadengine/internal/types/lead"
	"leadengine/internal/util/jsonutil"

	"github.com/google/uuid"
)

const DefaultDelimiter = "|||"

// Parser turns a delimited stream of JSON records into accepted leads. It
// holds only the text after the last delimiter seen.
type Parser struct {
	delim  string
	buf    string
	logger *log.Logger
	now    func() time.Time
	newID  func() string
}

type ParserOption func(*Parser)

func WithParserLogger(l *log.Logger) ParserOption {
	return func(p *Parser) {
		if l != nil {
			p.logger = l
		}
	}
}

func WithClock(now func() time.Time) ParserOption {
	return func(p *Parser) {
		if now != nil {
			p.now = now
		}
	}
}

func NewParser(delim string, opts ...ParserOption) *Parser {
	if delim == "" {
		delim = DefaultDelimiter
	}
	p := &Parser{
		delim:  delim,
		logger: log.New(io.Discard, "", 0),
		now:    time.Now,
		newID:  uuid.NewString,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Write appends chunk and returns the accepted leads of every segment it
// completed.
func (p *Parser) Write(chunk string) []lead.Lead {
	p.buf += chunk
	var out []lead.Lead
	for {
		i := strings.Index(p.buf, p.delim)
		if i < 0 {
			return out
		}
		seg := p.buf[:i]
		p.buf = p.buf[i+len(p.delim):]
		if l, ok := p.segment(seg); ok {
			out = append(out, l)
		}
	}
}

// Flush parses whatever trails the last delimiter. Call it once at stream end.
func (p *Parser) Flush() []lead.Lead {
	seg := p.buf
	p.buf = ""
	if l, ok := p.segment(seg); ok {
		return []lead.Lead{l}
	}
	return nil
}

// Pending returns the undelimited remainder.
func (p *Parser) Pending() string { return p.buf }

func (p *Parser) segment(seg string) (lead.Lead, bool) {
	seg = jsonutil.StripFences(seg)
	if seg == "" {
		return lead.Lead{}, false
	}
	var rec record
	if err := jsonutil.UnmarshalFlex([]byte(seg), &rec); err != nil {
		p.logger.Printf("scout: dropping malformed segment (%d bytes): %v", len(seg), err)
		return lead.Lead{}, false
	}
	if err := rec.validate(); err != nil {
		p.logger.Printf("scout: dropping segment: %v", err)
		return lead.Lead{}, false
	}
	n := rec.normalize()
	l := lead.Lead{
		ID:        p.newID(),
		CreatedAt: p.now(),
		Name:      n.Name,
		Type:      n.Type,
		Address:   n.Address,
		Rating:    n.Rating,
		Website:   n.Website,
		Phone:     n.Phone,
		Email:     n.Email,
		Status:    leadstatus.Initial,
	}
	if !Accepts(l) {
		p.logger.Printf("scout: rejected %q: no reachable contact", l.Name)
		return lead.Lead{}, false
	}
	return l, true
}
