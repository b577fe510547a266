package pipeline

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"leadengine/internal/types/lead"
)

// Safe defaults substituted when a structured stage cannot get a usable
// reply and the active agent does not forbid it.
const (
	DefaultPropensityScore   = 50
	DefaultPainPoint         = "Limited online presence"
	DefaultPsychologyProfile = "Unknown. Treat as a busy owner-operator who values saved time."
	DefaultDealValue         = 0
)

var defaultSite = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.Name}}</title>
<style>
body{font-family:system-ui,sans-serif;margin:0;color:#1f2933}
header{background:#0b3d91;color:#fff;padding:3rem 1.5rem;text-align:center}
main{max-width:48rem;margin:0 auto;padding:2rem 1.5rem}
a.cta{display:inline-block;background:#f5a623;color:#1f2933;padding:.75rem 1.5rem;border-radius:.375rem;text-decoration:none}
</style>
</head>
<body>
<header>
<h1>{{.Name}}</h1>
<p>{{.Type}}{{if .Address}} in {{.Address}}{{end}}</p>
{{if .Phone}}<a class="cta" href="tel:{{.Phone}}">Call {{.Phone}}</a>{{end}}
</header>
<main>
<h2>Why customers choose us</h2>
<p>Trusted local service with a rating of {{.Rating}}.</p>
{{if .Email}}<p>Email us at <a href="mailto:{{.Email}}">{{.Email}}</a>.</p>{{end}}
</main>
</body>
</html>
`))

func renderDefaultSite(l lead.Lead) (string, error) {
	var buf bytes.Buffer
	if err := defaultSite.Execute(&buf, l); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func greeting(l lead.Lead) string {
	if n := strings.TrimSpace(l.OwnerName); n != "" {
		return "Hi " + strings.Fields(n)[0]
	}
	return "Hi there"
}

func defaultOutreach(l lead.Lead) lead.Outreach {
	return lead.Outreach{
		Subject: fmt.Sprintf("A new website for %s", l.Name),
		Body: fmt.Sprintf("%s,\n\nI put together a free demo website for %s. "+
			"It is mobile friendly and built to turn searches into calls.\n\n"+
			"Would you like a quick look this week?\n", greeting(l), l.Name),
		SMS: fmt.Sprintf("%s, I built a free demo site for %s. Want the link?", greeting(l), l.Name),
	}
}

func defaultProposal(l lead.Lead) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Website proposal for %s\n\n", l.Name)
	b.WriteString("## Scope\n- Responsive website based on the demo\n- Click-to-call and contact form\n- Local search setup\n\n")
	if len(l.PainPoints) > 0 {
		b.WriteString("## Problems this solves\n")
		for _, p := range l.PainPoints {
			fmt.Fprintf(&b, "- %s\n", p)
		}
		b.WriteString("\n")
	}
	b.WriteString("## Next step\nReply to schedule a 15 minute walkthrough.\n")
	return b.String()
}
