// Package extract pulls structured fields out of free-text LLM output.
// Model responses are routinely wrapped in markdown fences or prose, so
// every parser here tolerates surrounding noise before giving up.
package extract

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/protaige/outreach-cli/internal/model"
	"github.com/protaige/outreach-cli/internal/resilience"
)

// Object extracts a JSON object from text and verifies the required
// fields are present and non-blank. It accepts clean JSON, JSON inside
// markdown code fences, and JSON embedded in surrounding prose (the
// first-{ to last-} span is tried as a fallback before failing).
func Object(text string, required ...string) (map[string]string, error) {
	cleaned := CleanJSON(text)

	fields, err := decodeObject(cleaned)
	if err != nil {
		// Fallback: the fence strip may have left prose around the
		// object; retry on the brace span alone.
		start := strings.Index(text, "{")
		end := strings.LastIndex(text, "}")
		if start < 0 || end <= start {
			return nil, &resilience.ExtractionError{Reason: "no JSON object found in response"}
		}
		fields, err = decodeObject(text[start : end+1])
		if err != nil {
			return nil, &resilience.ExtractionError{Reason: "response is not valid JSON: " + err.Error()}
		}
	}

	var missing []string
	for _, name := range required {
		if strings.TrimSpace(fields[name]) == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, &resilience.ExtractionError{Reason: "missing required fields: " + strings.Join(missing, ", ")}
	}

	return fields, nil
}

func decodeObject(s string) (map[string]string, error) {
	var raw map[string]any
	if err := json.Unmarshal([]byte(s), &raw); err != nil {
		return nil, err
	}

	fields := make(map[string]string, len(raw))
	for k, v := range raw {
		switch t := v.(type) {
		case string:
			fields[k] = t
		case nil:
			fields[k] = ""
		default:
			// Non-string leaves (numbers, nested objects) are kept as
			// their JSON rendering so nothing is silently dropped.
			b, err := json.Marshal(v)
			if err != nil {
				return nil, err
			}
			fields[k] = string(b)
		}
	}
	return fields, nil
}

// CleanJSON strips markdown code fences and trims the text down to the
// outermost JSON object span, if one exists.
func CleanJSON(text string) string {
	text = strings.TrimSpace(text)

	if strings.HasPrefix(text, "```json") {
		text = strings.TrimPrefix(text, "```json")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	} else if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		text = text[start : end+1]
	}

	return strings.TrimSpace(text)
}

var (
	scoreRe     = regexp.MustCompile(`(?i)score:\s*(-?\d+)`)
	reasoningRe = regexp.MustCompile(`(?i)reasoning:\s*([^\n]+)`)
)

// ScoreReasoning parses the labeled-line response convention:
//
//	Score: <number>
//	Reasoning: <free text>
//
// The score is clamped to [0,100] after parsing; out-of-range numbers
// are clamped, not rejected. A missing label is an ExtractionError.
func ScoreReasoning(text string) (int, string, error) {
	scoreMatch := scoreRe.FindStringSubmatch(text)
	reasoningMatch := reasoningRe.FindStringSubmatch(text)

	if scoreMatch == nil || reasoningMatch == nil {
		return 0, "", &resilience.ExtractionError{Reason: "could not extract score or reasoning from response"}
	}

	score, err := strconv.Atoi(scoreMatch[1])
	if err != nil {
		return 0, "", &resilience.ExtractionError{Reason: "score is not numeric: " + scoreMatch[1]}
	}

	return ClampScore(score), strings.TrimSpace(reasoningMatch[1]), nil
}

// ClampScore bounds a score to [0,100].
func ClampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

var (
	profilesBlockRe = regexp.MustCompile(`(?s)PROFILES_START(.*?)PROFILES_END`)
	profileNameRe   = regexp.MustCompile(`name:\s*([^\n]+)`)
	profileURLRe    = regexp.MustCompile(`linkedin:\s*([^\n]+)`)
)

// Profiles parses the PROFILES_START / PROFILES_END block returned by
// the discovery prompt into seeds. Entries missing a name or URL are
// dropped; an absent block yields an empty slice, never an error, since
// discovery finding nothing is a normal outcome.
func Profiles(text string) []model.Seed {
	block := profilesBlockRe.FindStringSubmatch(text)
	if block == nil {
		return nil
	}

	var seeds []model.Seed
	for _, entry := range strings.Split(block[1], "name:") {
		entry = "name:" + entry
		nameMatch := profileNameRe.FindStringSubmatch(entry)
		urlMatch := profileURLRe.FindStringSubmatch(entry)
		if nameMatch == nil || urlMatch == nil {
			continue
		}
		seeds = append(seeds, model.Seed{
			Name: strings.TrimSpace(nameMatch[1]),
			URL:  strings.TrimSpace(urlMatch[1]),
		})
	}
	return seeds
}
