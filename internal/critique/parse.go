package critique

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"
)

const (
	yesThreshold     = 70
	defaultScore     = 50
	defaultCritique  = "Analysis completed"
	fallbackCritique = "Analysis completed - parsing failed. The hand shows average potential for modeling with some areas for improvement. Overall proportions appear balanced with room for enhancement in presentation and care."
)

var (
	fallbackStrengths    = []string{"Hand structure analyzed", "Good proportions", "Clean appearance", "Natural skin tone", "Well-defined features"}
	fallbackImprovements = []string{"Nail care needed", "Better lighting", "Professional styling", "Skin texture improvement", "Hand positioning"}
)

// Result is a normalized critique ready to be stored and returned.
type Result struct {
	Score        int      `json:"score"`
	Critique     string   `json:"critique"`
	Strengths    []string `json:"strengths"`
	Improvements []string `json:"improvements"`
	Verdict      string   `json:"verdict"`
	Fallback     bool     `json:"fallback,omitempty"`
}

// Parse normalizes raw model output. It tries a ```json fenced block, the
// whole text, then the first balanced {...} object. When none of them decodes
// it returns the fixed fallback critique and false.
func Parse(raw, lang string, verdicts *Verdicts) (Result, bool) {
	lang = NormalizeLanguage(lang)
	m, ok := extractObject(raw)
	if !ok {
		return Fallback(verdicts, lang), false
	}

	score := clampScore(m["score"])
	text, _ := m["critique"].(string)
	text = stripAnswer(strings.TrimSpace(text))
	if text == "" {
		text = defaultCritique
	}

	return Result{
		Score:        score,
		Critique:     Answer(score, lang) + " - " + text,
		Strengths:    stringList(m["strengths"]),
		Improvements: stringList(m["improvements"]),
		Verdict:      verdicts.Pick(score, lang),
	}, true
}

// Fallback is the critique returned when the model output cannot be parsed.
func Fallback(verdicts *Verdicts, lang string) Result {
	return Result{
		Score:        defaultScore,
		Critique:     fallbackCritique,
		Strengths:    append([]string(nil), fallbackStrengths...),
		Improvements: append([]string(nil), fallbackImprovements...),
		Verdict:      verdicts.Pick(defaultScore, NormalizeLanguage(lang)),
		Fallback:     true,
	}
}

var rxFence = regexp.MustCompile("(?is)```(?:json)?\\s*(\\{[\\s\\S]*?\\})\\s*```")

func extractObject(raw string) (map[string]any, bool) {
	candidates := make([]string, 0, 3)
	if m := rxFence.FindStringSubmatch(raw); len(m) > 1 {
		candidates = append(candidates, m[1])
	}
	candidates = append(candidates, strings.TrimSpace(raw))
	if s := firstJSONObject(raw); s != "" {
		candidates = append(candidates, s)
	}

	for _, c := range candidates {
		var m map[string]any
		if json.Unmarshal([]byte(c), &m) == nil && m != nil {
			return m, true
		}
	}
	return nil, false
}

// firstJSONObject returns the first balanced {...} span, skipping braces inside strings.
func firstJSONObject(s string) string {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return ""
	}
	depth := 0
	inString, escaped := false, false
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
				return s[start : i+1]
			}
		}
	}
	return ""
}

func clampScore(v any) int {
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return defaultScore
		}
		f = parsed
	default:
		return defaultScore
	}
	if f == 0 || math.IsNaN(f) {
		return defaultScore
	}
	f = math.Max(1, math.Min(100, f))
	return int(math.Round(f))
}

var rxAnswerPrefix = regexp.MustCompile(`(?i)^(?:YES|NO|SÍ|SI|OUI|NON)(?:[\s\-,:.!]+|$)`)

func stripAnswer(text string) string {
	return strings.TrimSpace(rxAnswerPrefix.ReplaceAllString(text, ""))
}

func stringList(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return []string{}
	}
	out := make([]string, 0, len(items))
	for _, it := range items {
		if s, ok := it.(string); ok && strings.TrimSpace(s) != "" {
			out = append(out, strings.TrimSpace(s))
		}
	}
	return out
}
