package report

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Value is the tri-state outcome of a check.
type Value int

const (
	// Indeterminate means the check does not apply or had nothing to inspect.
	Indeterminate Value = iota
	Pass
	Fail
)

func (v Value) String() string {
	switch v {
	case Pass:
		return "pass"
	case Fail:
		return "fail"
	default:
		return "indeterminate"
	}
}

// Symbol is the glyph shown in the report table.
func (v Value) Symbol() string {
	switch v {
	case Pass:
		return "✅"
	case Fail:
		return "❌"
	default:
		return "➖"
	}
}

func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.String())
}

// ValueOf maps a boolean verdict onto Pass or Fail.
func ValueOf(ok bool) Value {
	if ok {
		return Pass
	}
	return Fail
}

// ProofItem is one bullet of evidence: a bare label, a label with a value,
// or a label with a nested list.
type ProofItem struct {
	Label    string   `json:"label"`
	Value    string   `json:"value,omitempty"`
	Children []string `json:"children,omitempty"`
}

// Proof is human-readable evidence attached to a check.
type Proof struct {
	Title string      `json:"title,omitempty"`
	Note  string      `json:"note,omitempty"`
	Items []ProofItem `json:"items,omitempty"`
}

// Note returns a single-sentence proof.
func Note(text string) *Proof {
	return &Proof{Note: text}
}

// String renders the proof as indented plain text.
func (p *Proof) String() string {
	if p == nil {
		return ""
	}
	var b strings.Builder
	if p.Title != "" {
		b.WriteString(p.Title)
		b.WriteString(":")
	}
	if p.Note != "" {
		if b.Len() > 0 {
			b.WriteString(" ")
		}
		b.WriteString(p.Note)
	}
	for _, it := range p.Items {
		b.WriteString("\n- ")
		b.WriteString(it.Label)
		if it.Value != "" {
			fmt.Fprintf(&b, ": %s", it.Value)
		}
		if len(it.Children) > 0 {
			b.WriteString(":")
			for _, c := range it.Children {
				b.WriteString("\n  - ")
				b.WriteString(c)
			}
		}
	}
	return b.String()
}

// Check is one checklist result. Checks are values: once created by a
// checker they are only copied, never modified.
type Check struct {
	Name   string `json:"name"`
	Value  Value  `json:"value"`
	Proof  *Proof `json:"proof,omitempty"`
	Domain string `json:"domain"`
}

// NewCheck builds a check result.
func NewCheck(name string, value Value, proof *Proof, domain string) Check {
	return Check{Name: name, Value: value, Proof: proof, Domain: domain}
}
