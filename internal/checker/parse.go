package checker

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"verifhir/internal/llm"
	"verifhir/internal/report"
)

var errMalformed = errors.New("malformed llm response")

// normalizeBool maps a boolean-like JSON value to evidence: true or "true"
// is Pass, false or "false" is Fail, anything else is Indeterminate.
func normalizeBool(v any) report.Value {
	switch b := v.(type) {
	case bool:
		return report.ValueOf(b)
	case string:
		switch strings.ToLower(strings.TrimSpace(b)) {
		case "true":
			return report.Pass
		case "false":
			return report.Fail
		}
	}
	return report.Indeterminate
}

// parseObject decodes a response that must be a single JSON object.
func parseObject(resp string) (map[string]any, error) {
	var obj map[string]any
	if err := json.Unmarshal([]byte(llm.StripFences(resp)), &obj); err != nil {
		return nil, fmt.Errorf("%w: %v", errMalformed, err)
	}
	if obj == nil {
		return nil, fmt.Errorf("%w: not an object", errMalformed)
	}
	return obj, nil
}

// lookup finds label in obj, falling back to a case-insensitive match.
func lookup(obj map[string]any, label string) (any, bool) {
	if v, ok := obj[label]; ok {
		return v, true
	}
	for k, v := range obj {
		if strings.EqualFold(strings.TrimSpace(k), label) {
			return v, true
		}
	}
	return nil, false
}

type extract struct {
	ID   string
	Text string
}

// parseExtracts decodes a {"responses": [{id, extract}]} reply and returns
// the entries that carry an actual excerpt. Entries missing a key or whose
// excerpt is empty, "none" or "null" are not evidence. Anything that is not
// the expected shape invalidates the whole reply.
func parseExtracts(resp string) ([]extract, error) {
	var root any
	if err := json.Unmarshal([]byte(llm.StripFences(resp)), &root); err != nil {
		return nil, fmt.Errorf("%w: %v", errMalformed, err)
	}
	if obj, ok := root.(map[string]any); ok {
		var found bool
		if root, found = obj["responses"]; !found {
			return nil, fmt.Errorf("%w: no responses field", errMalformed)
		}
	}
	list, ok := root.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: responses is not a list", errMalformed)
	}

	var out []extract
	for i, raw := range list {
		item, ok := raw.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: item %d is not an object", errMalformed, i)
		}
		rawID, hasID := item["id"]
		rawExtract, hasExtract := item["extract"]
		if !hasID || !hasExtract {
			continue
		}
		id, ok := rawID.(string)
		if !ok {
			return nil, fmt.Errorf("%w: item %d id is not a string", errMalformed, i)
		}
		if rawExtract == nil {
			continue
		}
		text, ok := rawExtract.(string)
		if !ok {
			return nil, fmt.Errorf("%w: item %d extract is not a string", errMalformed, i)
		}
		if isNoEvidence(text) {
			continue
		}
		out = append(out, extract{ID: strings.TrimSpace(id), Text: strings.TrimSpace(text)})
	}
	return out, nil
}

func isNoEvidence(text string) bool {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case "", "none", "null":
		return true
	}
	return false
}

// parseRole reads a page classification. It accepts {"type": ...}, a bare
// JSON string or plain text. ok is false when the reply is unusable; an
// empty role with ok true means "matches no type".
func parseRole(resp string) (role string, ok bool) {
	s := llm.StripFences(resp)
	if s == "" {
		return "", false
	}
	var root any
	if err := json.Unmarshal([]byte(s), &root); err == nil {
		switch v := root.(type) {
		case nil:
			return "", true
		case string:
			s = v
		case map[string]any:
			t, found := lookup(v, "type")
			if !found {
				return "", false
			}
			if t == nil {
				return "", true
			}
			str, isString := t.(string)
			if !isString {
				return "", false
			}
			s = str
		default:
			return "", false
		}
	}
	s = cleanLabel(s)
	if isNoEvidence(s) {
		return "", true
	}
	return s, true
}

// parsePageName reads the disambiguation reply: a page name as plain text,
// a JSON string, or an object with a "page" field.
func parsePageName(resp string) string {
	s := llm.StripFences(resp)
	var root any
	if err := json.Unmarshal([]byte(s), &root); err == nil {
		switch v := root.(type) {
		case string:
			s = v
		case map[string]any:
			if p, ok := lookup(v, "page"); ok {
				s, _ = p.(string)
			}
		}
	}
	return cleanLabel(s)
}

func cleanLabel(s string) string {
	return strings.ToLower(strings.Trim(strings.TrimSpace(s), "\"'`."))
}
