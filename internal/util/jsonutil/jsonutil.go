package jsonutil

import (
	"encoding/json"
	"regexp"
	"strconv"
)

// Models sometimes double-escape text, leaving a backslash-u sequence inside a
// decoded string.
var literalEscape = regexp.MustCompile(`\\u([0-9a-fA-F]{4})`)

// UnmarshalFlex decodes raw into v. When a plain decode fails it retries
// after unwrapping a document that arrived as a quoted JSON string and
// resolving literal \uXXXX sequences left in string values. The first
// decode error is returned if the retry also fails.
func UnmarshalFlex(raw []byte, v any) error {
	err := json.Unmarshal(raw, v)
	if err == nil {
		return nil
	}
	var generic any
	if json.Unmarshal(raw, &generic) != nil {
		return err
	}
	if s, ok := generic.(string); ok {
		if json.Unmarshal([]byte(s), &generic) != nil {
			return err
		}
	}
	cleaned, merr := json.Marshal(unescapeAll(generic))
	if merr != nil {
		return err
	}
	if json.Unmarshal(cleaned, v) != nil {
		return err
	}
	return nil
}

func unescapeAll(v any) any {
	switch x := v.(type) {
	case string:
		return literalEscape.ReplaceAllStringFunc(x, func(m string) string {
			n, err := strconv.ParseUint(m[2:], 16, 32)
			if err != nil {
				return m
			}
			return string(rune(n))
		})
	case []any:
		for i := range x {
			x[i] = unescapeAll(x[i])
		}
		return x
	case map[string]any:
		for k := range x {
			x[k] = unescapeAll(x[k])
		}
		return x
	}
	return v
}
