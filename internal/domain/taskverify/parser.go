package taskverify

import (
	"encoding/json"
	"strings"

	"golang.org/x/exp/slices"
)

const (
	verdictApprove = "approve"
	verdictRetry   = "retry"
	verdictDefer   = "defer"
)

// adjudication is the structured verdict the vision model is instructed to
// return.
type adjudication struct {
	Decision   string  `json:"decision"`
	Confidence float64 `json:"confidence"`
	Reason     string  `json:"reason"`
}

// legacyAdjudication is the old boolean format some deployed prompts still
// produce.
type legacyAdjudication struct {
	Verified *bool  `json:"verified"`
	Reason   string `json:"reason"`
}

func (a adjudication) valid() bool {
	return slices.Contains(
		[]string{verdictApprove, verdictRetry, verdictDefer}, a.Decision)
}

// parseAdjudication recovers a structured verdict from whatever text the
// model produced. Models wrap JSON in markdown fences or prose often enough
// that a strict parse alone loses real verdicts, so parsing is layered:
// strict JSON first, then fence stripping, then the first balanced object in
// the text, then the legacy boolean format. Anything still unparseable is
// reported as such rather than guessed at.
func parseAdjudication(raw string) (adjudication, bool) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return adjudication{}, false
	}

	candidates := []string{text}
	if stripped := stripFences(text); stripped != text {
		candidates = append(candidates, stripped)
	}
	if extracted, ok := extractObject(text); ok {
		candidates = append(candidates, extracted)
	}

	for _, candidate := range candidates {
		var verdict adjudication
		if err := json.Unmarshal([]byte(candidate), &verdict); err == nil {
			verdict.Decision = strings.ToLower(strings.TrimSpace(verdict.Decision))
			if verdict.valid() {
				return verdict, true
			}
		}
	}

	for _, candidate := range candidates {
		var legacy legacyAdjudication
		if err := json.Unmarshal([]byte(candidate), &legacy); err == nil && legacy.Verified != nil {
			verdict := adjudication{Decision: verdictDefer, Confidence: 1, Reason: legacy.Reason}
			if *legacy.Verified {
				verdict.Decision = verdictApprove
			}
			return verdict, true
		}
	}

	return adjudication{}, false
}

// stripFences removes a surrounding markdown code fence, with or without a
// language tag.
func stripFences(text string) string {
	if !strings.HasPrefix(text, "```") {
		return text
	}

	body := strings.TrimPrefix(text, "```")
	if newline := strings.IndexByte(body, '\n'); newline >= 0 {
		body = body[newline+1:]
	}

	if end := strings.LastIndex(body, "```"); end >= 0 {
		body = body[:end]
	}

	return strings.TrimSpace(body)
}

// extractObject returns the first balanced top-level JSON object embedded in
// the text. Brace counting ignores braces inside string literals.
func extractObject(text string) (string, bool) {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
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
				return text[start : i+1], true
			}
		}
	}

	return "", false
}
