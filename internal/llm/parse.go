package llm

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/kaptinlin/jsonrepair"

	"stock-analyst/internal/types"
)

// ParseSignal reads a signal object out of model text. Code fences and chatter around
// the JSON are ignored, and slightly broken JSON is repaired. The action may be given
// under "action" or "signal"; confidence may be a fraction, a percentage or a string
// like "67%".
func ParseSignal(text string) (types.Signal, error) {
	body := extractObject(text)
	if body == "" {
		return types.Signal{}, fmt.Errorf("%w: no JSON object in reply", ErrCompletionFailed)
	}

	var raw map[string]any
	if err := json.Unmarshal([]byte(body), &raw); err != nil {
		repaired, repairErr := jsonrepair.JSONRepair(body)
		if repairErr != nil {
			return types.Signal{}, fmt.Errorf("%w: unparseable reply: %v", ErrCompletionFailed, err)
		}
		if err := json.Unmarshal([]byte(repaired), &raw); err != nil {
			return types.Signal{}, fmt.Errorf("%w: unparseable reply after repair: %v", ErrCompletionFailed, err)
		}
	}

	actionText, _ := firstString(raw, "action", "signal")
	action, ok := types.ParseAction(actionText)
	if !ok {
		return types.Signal{}, fmt.Errorf("%w: unknown action %q", ErrCompletionFailed, actionText)
	}

	conf, err := confidence(raw["confidence"])
	if err != nil {
		return types.Signal{}, fmt.Errorf("%w: %v", ErrCompletionFailed, err)
	}

	return types.Signal{
		Action:     action,
		Confidence: conf,
		Reasoning:  reasoning(raw["reasoning"]),
	}, nil
}

func extractObject(text string) string {
	text = strings.TrimSpace(text)
	if i := strings.Index(text, "```"); i >= 0 {
		rest := text[i+3:]
		// skip the language tag
		if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
			rest = rest[nl+1:]
		}
		if j := strings.Index(rest, "```"); j >= 0 {
			rest = rest[:j]
		}
		text = strings.TrimSpace(rest)
	}
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return ""
	}
	end := strings.LastIndexByte(text, '}')
	if end < start {
		// truncated reply; let the repair pass close it
		return text[start:]
	}
	return text[start : end+1]
}

func firstString(m map[string]any, keys ...string) (string, bool) {
	for _, k := range keys {
		if s, ok := m[k].(string); ok && s != "" {
			return s, true
		}
	}
	return "", false
}

func confidence(v any) (float64, error) {
	var f float64
	pct := false
	switch c := v.(type) {
	case nil:
		return 0.5, nil
	case float64:
		f = c
	case string:
		s := strings.TrimSpace(c)
		pct = strings.HasSuffix(s, "%")
		parsed, err := strconv.ParseFloat(strings.TrimSuffix(s, "%"), 64)
		if err != nil {
			return 0, fmt.Errorf("confidence %q is not a number", c)
		}
		f = parsed
	default:
		return 0, fmt.Errorf("confidence has type %T", v)
	}
	// A bare number from 2 up is read as a percentage; 1.5 is an overshoot, not 1.5%.
	if pct || (f >= 2 && f <= 100) {
		f /= 100
	}
	return min(max(f, 0), 1), nil
}

func reasoning(v any) string {
	switch r := v.(type) {
	case nil:
		return ""
	case string:
		return r
	default:
		b, err := json.Marshal(r)
		if err != nil {
			return fmt.Sprint(r)
		}
		return string(b)
	}
}
