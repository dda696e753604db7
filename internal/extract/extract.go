// Package extract pulls structured payloads out of free-form model output.
// Model text usually contains a JSON block or a known markdown heading, but
// neither is guaranteed to be well-formed or unwrapped from code fences.
// Malformed input is the expected case here: every function reports absence
// with an ok bool and never panics, so callers branch and apply their own
// documented fallback.
package extract

import (
	"encoding/json"
	"strings"
	"unicode"
)

// JSON returns the first balanced {...} or [...] span in text, after
// stripping surrounding code fences, verified to be valid JSON. Leading and
// trailing prose around the span is tolerated.
func JSON(text string) ([]byte, bool) {
	text = StripFences(text)

	for i := 0; i < len(text); i++ {
		open := text[i]
		if open != '{' && open != '[' {
			continue
		}
		if span, ok := balancedSpan(text[i:], open); ok {
			if json.Valid([]byte(span)) {
				return []byte(span), true
			}
		}
		// A balanced but invalid span (or unbalanced opener) is skipped;
		// a later opener may still carry the payload.
	}
	return nil, false
}

// JSONInto extracts the first JSON span and unmarshals it into v.
func JSONInto(text string, v any) bool {
	raw, ok := JSON(text)
	if !ok {
		return false
	}
	return json.Unmarshal(raw, v) == nil
}

// balancedSpan scans text (which begins with open) and returns the shortest
// prefix where every brace/bracket is balanced, honoring JSON string
// literals and escapes.
func balancedSpan(text string, open byte) (string, bool) {
	var close byte = '}'
	if open == '[' {
		close = ']'
	}
	depth := 0
	inString := false
	escaped := false
	for i := 0; i < len(text); i++ {
		ch := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				return text[:i+1], true
			}
		}
	}
	return "", false
}

// StripFences removes a surrounding markdown code fence (``` or ```lang)
// from text, if present. Text without a fence is returned trimmed.
func StripFences(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	rest := trimmed[3:]
	// Drop a language tag on the opening fence line.
	if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
		rest = rest[nl+1:]
	} else {
		return trimmed
	}
	if idx := strings.LastIndex(rest, "```"); idx >= 0 {
		rest = rest[:idx]
	}
	return strings.TrimSpace(rest)
}

// Section returns the body of the markdown section whose heading matches
// phrase, up to (not including) the next heading of equal or higher level.
// Matching is case-insensitive and tolerates leading emoji or symbol
// decoration on the heading line.
func Section(text, phrase string) (string, bool) {
	lines := strings.Split(text, "\n")
	want := strings.ToLower(strings.TrimSpace(phrase))

	for i, line := range lines {
		level, title := headingOf(line)
		if level == 0 {
			continue
		}
		if !strings.Contains(strings.ToLower(title), want) {
			continue
		}
		var body []string
		for _, next := range lines[i+1:] {
			nextLevel, _ := headingOf(next)
			if nextLevel != 0 && nextLevel <= level {
				break
			}
			body = append(body, next)
		}
		return strings.TrimSpace(strings.Join(body, "\n")), true
	}
	return "", false
}

// headingOf parses a markdown heading line, returning its level (1-6) and
// the title with leading emoji/symbol decoration removed. Non-heading lines
// return level 0.
func headingOf(line string) (int, string) {
	trimmed := strings.TrimSpace(line)
	level := 0
	for level < len(trimmed) && level < 6 && trimmed[level] == '#' {
		level++
	}
	if level == 0 || level >= len(trimmed) || trimmed[level] != ' ' {
		return 0, ""
	}
	title := strings.TrimSpace(trimmed[level+1:])
	return level, trimDecoration(title)
}

// trimDecoration drops leading non-letter, non-digit runes (emoji, bullets,
// arrows) from a heading title.
func trimDecoration(s string) string {
	return strings.TrimLeftFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
