package quiz

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strings"
)

// Payload is one multiple-choice question as the model is asked to return it
type Payload struct {
	Question     string   `json:"question"`
	Options      []string `json:"options"`
	CorrectIndex int      `json:"correct_index"`
	Explanation  string   `json:"explanation"`
}

var (
	fenceOpenRe  = regexp.MustCompile("(?i)^```(?:json)?\\s*")
	fenceCloseRe = regexp.MustCompile("\\s*```$")
	objectSpanRe = regexp.MustCompile(`\{[\s\S]*\}`)
)

// ExtractObject finds a JSON object in model output. It strips code fences
// and tries a direct parse, then falls back to the span from the first "{"
// to the last "}".
func ExtractObject(text string) map[string]any {
	t := strings.TrimSpace(text)
	if t == "" {
		return nil
	}
	t = strings.TrimSpace(fenceOpenRe.ReplaceAllString(t, ""))
	t = strings.TrimSpace(fenceCloseRe.ReplaceAllString(t, ""))

	var obj map[string]any
	if err := json.Unmarshal([]byte(t), &obj); err == nil {
		return obj
	}
	span := objectSpanRe.FindString(t)
	if span == "" {
		return nil
	}
	obj = nil
	if err := json.Unmarshal([]byte(span), &obj); err != nil {
		return nil
	}
	return obj
}

// Validate converts a decoded object into a Payload. The question must be
// non-empty, options must be exactly four non-blank values and
// correct_index an integral number in 0..3.
func Validate(obj map[string]any) (Payload, error) {
	if obj == nil {
		return Payload{}, fmt.Errorf("no JSON object")
	}
	q := strings.TrimSpace(scalar(obj["question"]))
	if q == "" {
		return Payload{}, fmt.Errorf("empty question")
	}
	raw, ok := obj["options"].([]any)
	if !ok || len(raw) != 4 {
		return Payload{}, fmt.Errorf("options must be a list of 4")
	}
	opts := make([]string, len(raw))
	for i, o := range raw {
		opts[i] = scalar(o)
		if strings.TrimSpace(opts[i]) == "" {
			return Payload{}, fmt.Errorf("option %d is blank", i)
		}
	}
	ci, ok := obj["correct_index"].(float64)
	if !ok || ci != math.Trunc(ci) || ci < 0 || ci > 3 {
		return Payload{}, fmt.Errorf("correct_index must be 0..3, got %v", obj["correct_index"])
	}
	return Payload{
		Question:     q,
		Options:      opts,
		CorrectIndex: int(ci),
		Explanation:  scalar(obj["explanation"]),
	}, nil
}

// Parse is ExtractObject followed by Validate
func Parse(text string) (Payload, error) {
	return Validate(ExtractObject(text))
}

// valid reports whether a payload may be committed
func (p Payload) valid() bool {
	return strings.TrimSpace(p.Question) != "" && len(p.Options) == 4 &&
		p.CorrectIndex >= 0 && p.CorrectIndex <= 3
}

func scalar(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	default:
		return fmt.Sprint(x)
	}
}
