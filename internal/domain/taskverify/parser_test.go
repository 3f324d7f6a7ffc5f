package taskverify

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func Test_parseAdjudication_strictJSON(t *testing.T) {
	verdict, ok := parseAdjudication(`{"decision": "approve", "confidence": 0.9, "reason": "looks right"}`)
	require.True(t, ok)
	require.Equal(t, verdictApprove, verdict.Decision)
	require.Equal(t, 0.9, verdict.Confidence)
	require.Equal(t, "looks right", verdict.Reason)
}

func Test_parseAdjudication_markdownFence(t *testing.T) {
	raw := "```json\n{\"decision\": \"retry\", \"confidence\": 0.4, \"reason\": \"image is blurry\"}\n```"
	verdict, ok := parseAdjudication(raw)
	require.True(t, ok)
	require.Equal(t, verdictRetry, verdict.Decision)
	require.Equal(t, "image is blurry", verdict.Reason)
}

func Test_parseAdjudication_embeddedObject(t *testing.T) {
	raw := `Sure, here is my verdict: {"decision": "defer", "confidence": 0.5, "reason": "cannot tell"} hope this helps`
	verdict, ok := parseAdjudication(raw)
	require.True(t, ok)
	require.Equal(t, verdictDefer, verdict.Decision)
}

func Test_parseAdjudication_bracesInsideStrings(t *testing.T) {
	raw := `{"decision": "approve", "confidence": 1, "reason": "shows {all} required items"}`
	verdict, ok := parseAdjudication(raw)
	require.True(t, ok)
	require.Equal(t, "shows {all} required items", verdict.Reason)
}

func Test_parseAdjudication_caseInsensitiveDecision(t *testing.T) {
	verdict, ok := parseAdjudication(`{"decision": "Approve", "confidence": 0.8}`)
	require.True(t, ok)
	require.Equal(t, verdictApprove, verdict.Decision)
}

func Test_parseAdjudication_legacyVerified(t *testing.T) {
	verdict, ok := parseAdjudication(`{"verified": true, "reason": "ok"}`)
	require.True(t, ok)
	require.Equal(t, verdictApprove, verdict.Decision)

	verdict, ok = parseAdjudication(`{"verified": false, "reason": "not ok"}`)
	require.True(t, ok)
	require.Equal(t, verdictDefer, verdict.Decision)
	require.Equal(t, "not ok", verdict.Reason)
}

func Test_parseAdjudication_unparseable(t *testing.T) {
	for _, raw := range []string{
		"",
		"I think this looks fine.",
		`{"decision": "maybe"}`,
		"{unbalanced",
	} {
		_, ok := parseAdjudication(raw)
		require.False(t, ok, "should not parse %q", raw)
	}
}
