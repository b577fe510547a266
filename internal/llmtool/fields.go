package llmtool

import (
	"fmt"
	"reflect"
	"strings"
	"unicode"
)

// Struct tags read by FieldsFromStruct:
//
//	json:"name"          field name ("-" skips the field)
//	prompt_desc:"..."    description shown to the model
//	prompt_type:"..."    overrides the derived type
//	prompt:"optional"    marks the field optional ("required" is the default,
//	                     "-" or "omit" hides it from the prompt)
const (
	tagDesc   = "prompt_desc"
	tagType   = "prompt_type"
	tagPrompt = "prompt"
)

// FieldsFromStruct derives output fields from the struct a stage decodes its
// reply into, so the prompt and the decoder cannot drift apart. Embedded
// structs are flattened.
func FieldsFromStruct(v any) ([]PromptField, error) {
	if v == nil {
		return nil, fmt.Errorf("llmtool: struct is nil")
	}
	t := deref(reflect.TypeOf(v))
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("llmtool: expected struct, got %s", t.Kind())
	}
	return collectFields(t), nil
}

// MustFieldsFromStruct is FieldsFromStruct for package-level literals.
func MustFieldsFromStruct(v any) []PromptField {
	fields, err := FieldsFromStruct(v)
	if err != nil {
		panic(err)
	}
	return fields
}

func collectFields(t reflect.Type) []PromptField {
	var out []PromptField
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if f.Anonymous && deref(f.Type).Kind() == reflect.Struct && f.Tag.Get("json") == "" {
			out = append(out, collectFields(deref(f.Type))...)
			continue
		}
		if !f.IsExported() {
			continue
		}
		name := jsonName(f)
		opts := tagSet(f.Tag.Get(tagPrompt))
		if name == "" || opts["-"] || opts["omit"] {
			continue
		}
		typ := strings.TrimSpace(f.Tag.Get(tagType))
		if typ == "" {
			typ = typeString(f.Type)
		}
		out = append(out, PromptField{
			Name:        name,
			Type:        typ,
			Required:    !opts["optional"],
			Description: strings.TrimSpace(f.Tag.Get(tagDesc)),
		})
	}
	return out
}

func tagSet(tag string) map[string]bool {
	set := map[string]bool{}
	for _, part := range strings.Split(tag, ",") {
		if part = strings.TrimSpace(part); part != "" {
			set[part] = true
		}
	}
	return set
}

func jsonName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
	switch strings.TrimSpace(name) {
	case "-":
		return ""
	case "":
		return snake(f.Name)
	default:
		return strings.TrimSpace(name)
	}
}

func deref(t reflect.Type) reflect.Type {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t
}

// typeString renders t in the loose notation used in prompts: int, string,
// []string, map[string]int, {name,website}.
func typeString(t reflect.Type) string {
	t = deref(t)
	switch t.Kind() {
	case reflect.String:
		return "string"
	case reflect.Bool:
		return "bool"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return "int"
	case reflect.Float32, reflect.Float64:
		return "number"
	case reflect.Slice, reflect.Array:
		return "[]" + typeString(t.Elem())
	case reflect.Map:
		return "map[" + typeString(t.Key()) + "]" + typeString(t.Elem())
	case reflect.Struct:
		names := make([]string, 0, t.NumField())
		for _, f := range collectFields(t) {
			names = append(names, f.Name)
		}
		return "{" + strings.Join(names, ",") + "}"
	default:
		return "any"
	}
}

func snake(s string) string {
	rs := []rune(s)
	var b strings.Builder
	for i, r := range rs {
		if i > 0 && unicode.IsUpper(r) {
			prevLower := unicode.IsLower(rs[i-1])
			nextLower := i+1 < len(rs) && unicode.IsLower(rs[i+1])
			if prevLower || nextLower {
				b.WriteByte('_')
			}
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}
