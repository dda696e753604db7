package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONPlainObject(t *testing.T) {
	raw, ok := JSON(`{"queries": ["a", "b"]}`)
	require.True(t, ok)
	assert.JSONEq(t, `{"queries": ["a", "b"]}`, string(raw))
}

func TestJSONSurroundedByProse(t *testing.T) {
	text := `Sure! Here is the team you asked for:

{"experts": [{"role": "Analyst", "order": 1}]}

Let me know if you need changes.`
	raw, ok := JSON(text)
	require.True(t, ok)
	assert.JSONEq(t, `{"experts": [{"role": "Analyst", "order": 1}]}`, string(raw))
}

func TestJSONInsideCodeFence(t *testing.T) {
	text := "```json\n{\"questions\": []}\n```"
	raw, ok := JSON(text)
	require.True(t, ok)
	assert.JSONEq(t, `{"questions": []}`, string(raw))
}

func TestJSONBracesInsideStrings(t *testing.T) {
	text := `{"note": "braces like } and { inside strings must not confuse the scanner"}`
	raw, ok := JSON(text)
	require.True(t, ok)
	assert.Contains(t, string(raw), "must not confuse")
}

func TestJSONEscapedQuotes(t *testing.T) {
	text := `prefix {"q": "she said \"hi\" loudly"} suffix`
	raw, ok := JSON(text)
	require.True(t, ok)
	assert.JSONEq(t, `{"q": "she said \"hi\" loudly"}`, string(raw))
}

func TestJSONSkipsInvalidSpanForLaterValid(t *testing.T) {
	// The first balanced span is not valid JSON; the second is.
	text := `{bad json} then {"ok": true}`
	raw, ok := JSON(text)
	require.True(t, ok)
	assert.JSONEq(t, `{"ok": true}`, string(raw))
}

func TestJSONArray(t *testing.T) {
	raw, ok := JSON(`the list: [1, 2, 3] done`)
	require.True(t, ok)
	assert.JSONEq(t, `[1, 2, 3]`, string(raw))
}

func TestJSONAbsent(t *testing.T) {
	for _, text := range []string{
		"no structured payload here",
		"unbalanced {\"a\": ",
		"",
	} {
		_, ok := JSON(text)
		assert.False(t, ok, "input %q", text)
	}
}

func TestJSONInto(t *testing.T) {
	var parsed struct {
		Queries []string `json:"queries"`
	}
	ok := JSONInto("```\n{\"queries\": [\"x\"]}\n```", &parsed)
	require.True(t, ok)
	assert.Equal(t, []string{"x"}, parsed.Queries)

	assert.False(t, JSONInto("nothing here", &parsed))
}

func TestJSONIdempotentOnCleanInput(t *testing.T) {
	raw, ok := JSON(`{"a": [1, 2]}`)
	require.True(t, ok)
	again, ok := JSON(string(raw))
	require.True(t, ok)
	assert.Equal(t, string(raw), string(again))
}

func TestStripFences(t *testing.T) {
	assert.Equal(t, `{"a":1}`, StripFences("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, StripFences("```\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, StripFences(`  {"a":1}  `))
	// A bare fence with no newline is left alone.
	assert.Equal(t, "```{", StripFences("```{"))
}

func TestSectionBasic(t *testing.T) {
	text := `## Intro

hello

## Key Assumptions

1. first
2. second

## Next

other`
	body, ok := Section(text, "key assumptions")
	require.True(t, ok)
	assert.Equal(t, "1. first\n2. second", body)
}

func TestSectionEmojiDecoration(t *testing.T) {
	text := `### 🎯 Core Intent

the goal

### ✅ Success Criteria

- ship it`
	body, ok := Section(text, "Core Intent")
	require.True(t, ok)
	assert.Equal(t, "the goal", body)
}

func TestSectionIncludesSubsections(t *testing.T) {
	text := `## Plan

intro

### Detail

nested

## After`
	body, ok := Section(text, "plan")
	require.True(t, ok)
	assert.Contains(t, body, "### Detail")
	assert.Contains(t, body, "nested")
	assert.NotContains(t, body, "After")
}

func TestSectionRunsToEndOfText(t *testing.T) {
	body, ok := Section("# Only\n\ntail content", "only")
	require.True(t, ok)
	assert.Equal(t, "tail content", body)
}

func TestSectionMissing(t *testing.T) {
	_, ok := Section("## Something Else\n\nbody", "verification")
	assert.False(t, ok)
}
