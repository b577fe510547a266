package jsonutil

import (
	"encoding/json"
	"errors"
	"strings"
)

var ErrNoJSON = errors.New("jsonutil: no JSON object or array in text")

// ExtractSpan returns the first bracket-balanced object or array found in
// text. Brackets inside string literals are ignored. A span that does not
// decode is skipped and the search continues after its opening bracket.
func ExtractSpan(text string) (string, bool) {
	for start := 0; start < len(text); start++ {
		c := text[start]
		if c != '{' && c != '[' {
			continue
		}
		end := matchClose(text, start)
		if end < 0 {
			continue
		}
		span := text[start : end+1]
		if json.Valid([]byte(span)) {
			return span, true
		}
	}
	return "", false
}

// DecodeEmbedded extracts the first JSON span from free-form model output and
// decodes it into v.
func DecodeEmbedded(text string, v any) error {
	text = StripFences(text)
	if err := UnmarshalFlex([]byte(text), v); err == nil {
		return nil
	}
	span, ok := ExtractSpan(text)
	if !ok {
		return ErrNoJSON
	}
	return UnmarshalFlex([]byte(span), v)
}

// StripFences removes a markdown code fence wrapping s: an opening fence
// line such as ```json and a closing ``` at the end. Fences inside the
// payload are left alone.
func StripFences(s string) string {
	s = strings.TrimSpace(s)
	if rest, ok := strings.CutPrefix(s, "```"); ok {
		if nl := strings.IndexByte(rest, '\n'); nl >= 0 && !strings.ContainsAny(rest[:nl], "{[\"") {
			rest = rest[nl+1:]
		} else if len(rest) >= 4 && strings.EqualFold(rest[:4], "json") {
			rest = rest[4:]
		}
		s = rest
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func matchClose(text string, start int) int {
	var stack []byte
	inStr := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inStr {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inStr = false
			}
			continue
		}
		switch c {
		case '"':
			inStr = true
		case '{':
			stack = append(stack, '}')
		case '[':
			stack = append(stack, ']')
		case '}', ']':
			if len(stack) == 0 || stack[len(stack)-1] != c {
				return -1
			}
			stack = stack[:len(stack)-1]
			if len(stack) == 0 {
				return i
			}
		}
	}
	return -1
}
