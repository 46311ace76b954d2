// Package structured pulls JSON objects out of freeform language-model output.
package structured

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Policy decides what happens when the response holds no JSON object at all.
type Policy int

const (
	// Strict treats every problem as a failure.
	Strict Policy = iota
	// Degrade reports a missing JSON span as OutcomeDegraded instead of an error.
	// Malformed JSON is still an error.
	Degrade
)

// Outcome describes how a decode attempt ended.
type Outcome int

const (
	OutcomeFailed Outcome = iota
	OutcomeParsed
	OutcomeDegraded
)

var (
	ErrNoJSON      = errors.New("response contains no JSON object")
	ErrMalformed   = errors.New("malformed JSON object")
	ErrMissingKeys = errors.New("JSON object is missing required keys")
)

// maxCandidates bounds how many balanced spans are tried. Past the cap the
// first balanced span is returned, so the caller sees its parse error.
const maxCandidates = 32

// Decoder applies the extraction protocol with a failure policy.
type Decoder struct {
	Policy       Policy
	RequiredKeys []string
}

// Decode extracts the first usable JSON object from text into v.
func (d Decoder) Decode(text string, v any) (Outcome, error) {
	span, ok := Extract(text)
	if !ok {
		if d.Policy == Degrade {
			return OutcomeDegraded, nil
		}
		return OutcomeFailed, ErrNoJSON
	}

	raw := []byte(span)
	if len(d.RequiredKeys) > 0 {
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(raw, &fields); err != nil {
			return OutcomeFailed, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		if missing := missingKeys(fields, d.RequiredKeys); len(missing) > 0 {
			return OutcomeFailed, fmt.Errorf("%w: %s", ErrMissingKeys, strings.Join(missing, ", "))
		}
	}

	if err := json.Unmarshal(raw, v); err != nil {
		return OutcomeFailed, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return OutcomeParsed, nil
}

// Extract returns the cleaned text of the first JSON object found in text.
// Balanced spans are tried in order and the first one that is valid JSON wins;
// when none is valid the first balanced span is returned so the caller sees the
// parse error. Without any balanced span the widest brace pair is used.
func Extract(text string) (string, bool) {
	text = stripFences(text)
	var first string
	tried := 0
	for i := 0; i < len(text) && tried < maxCandidates; i++ {
		if text[i] != '{' {
			continue
		}
		end := balancedEnd(text, i)
		if end < 0 {
			continue
		}
		tried++
		candidate := clean(text[i : end+1])
		if json.Valid([]byte(candidate)) {
			return candidate, true
		}
		if first == "" {
			first = candidate
		}
	}
	if first != "" {
		return first, true
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return "", false
	}
	return clean(text[start : end+1]), true
}

// stripFences removes a markdown code fence wrapped around the whole answer.
// Fences inside the text are left for the span scan to skip.
func stripFences(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "```") {
		return text
	}
	if nl := strings.IndexByte(trimmed, '\n'); nl >= 0 {
		trimmed = trimmed[nl+1:]
	} else {
		trimmed = strings.TrimPrefix(trimmed, "```")
	}
	trimmed = strings.TrimSpace(trimmed)
	return strings.TrimSpace(strings.TrimSuffix(trimmed, "```"))
}

var fenceReplacer = strings.NewReplacer("```markdown", "", "```text", "", "```", "")

// PlainText strips markdown code fences around a plain-text answer.
func PlainText(text string) string {
	return strings.TrimSpace(fenceReplacer.Replace(text))
}

func balancedEnd(s string, start int) int {
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// clean drops control characters and escapes raw line breaks and tabs that
// appear inside string literals.
func clean(span string) string {
	var b strings.Builder
	b.Grow(len(span))
	inString := false
	escaped := false
	for _, r := range span {
		if stripped(r) {
			continue
		}
		if inString {
			switch {
			case escaped:
				escaped = false
			case r == '\\':
				escaped = true
			case r == '"':
				inString = false
			case r == '\n':
				b.WriteString(`\n`)
				continue
			case r == '\r':
				b.WriteString(`\r`)
				continue
			case r == '\t':
				b.WriteString(`\t`)
				continue
			}
		} else if r == '"' {
			inString = true
		}
		b.WriteRune(r)
	}
	return b.String()
}

func stripped(r rune) bool {
	switch {
	case r <= 0x08, r == 0x0B, r == 0x0C:
		return true
	case r >= 0x0E && r <= 0x1F:
		return true
	case r >= 0x7F && r <= 0x9F:
		return true
	case r == 0x2028, r == 0x2029:
		return true
	}
	return false
}

func missingKeys(fields map[string]json.RawMessage, required []string) []string {
	var missing []string
	for _, key := range required {
		if _, ok := fields[key]; !ok {
			missing = append(missing, key)
		}
	}
	sort.Strings(missing)
	return missing
}
