package llm

import (
	"context"
	"errors"
	"strings"
)

// ErrEmptyResponse is returned when the provider answers without content.
var ErrEmptyResponse = errors.New("llm: empty response")

// ResponseFormat asks the provider for structured output. A nil Schema
// requests a bare JSON object; otherwise the schema is enforced strictly.
type ResponseFormat struct {
	Name   string
	Schema map[string]any
}

// Request is one chat completion: a fixed system prompt plus the material to evaluate.
type Request struct {
	System string
	User   string
	Format *ResponseFormat
}

// Client is a minimal LLM interface to allow pluggable providers.
type Client interface {
	// Complete performs one blocking round-trip and returns the raw text.
	Complete(ctx context.Context, req Request) (string, error)
}

// JSONObject is the response format for plain JSON object replies.
var JSONObject = &ResponseFormat{Name: "json_object"}

// StripFences removes a surrounding markdown code fence, which some models
// emit even when told not to.
func StripFences(content string) string {
	s := strings.TrimSpace(content)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	} else {
		s = ""
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
