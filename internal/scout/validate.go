package scout

import (
	"strings"

	"leadengine/internal/types/lead"
)

// NotFound is the placeholder models emit for missing contact details.
const NotFound = "not found"

func isSentinel(s string) bool {
	return strings.EqualFold(strings.TrimSpace(s), NotFound)
}

// Accepts reports whether l carries a reachable contact: a phone with more
// than five digits, or an email containing "@". Only Phone and Email are read.
func Accepts(l lead.Lead) bool {
	if p := strings.TrimSpace(l.Phone); p != "" && !isSentinel(p) && countDigits(p) > 5 {
		return true
	}
	if e := strings.TrimSpace(l.Email); e != "" && !isSentinel(e) && strings.Contains(e, "@") {
		return true
	}
	return false
}

func countDigits(s string) int {
	n := 0
	for _, r := range s {
		if r >= '0' && r <= '9' {
			n++
		}
	}
	return n
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
