package checker

import (
	"fmt"
	"strings"

	"verifhir/internal/llm"
)

func pageTypePrompt(roles []string) string {
	return fmt.Sprintf(`Given the name and content of a FHIR implementation guide page, determine which type it matches.
Return only one type, or null if it does not match any.
Page types: %s
**Output format:** Produce a single valid JSON object {"type": <page type or null>}.
**Constraints:**
    - Do not include explanations, comments, or Markdown formatting.
    - Output only valid JSON.`, strings.Join(roles, ", "))
}

const disambiguationPrompt = `Which of the following page names best matches the given type? Return only the exact page name.`

const completenessPrompt = `Given the content of a FHIR Implementation Guide page and a list of information, identify for each piece of information whether it appears in the page.
    - If the information appears, return true.
    - If it does not appear, return false.
**Output format:** Produce a single valid JSON object where each key is the exact information label and each value is either true or false.
**Constraints:**
    - Do not include explanations, comments, or Markdown formatting.
    - Output only valid JSON.`

const narrativePrompt = "Given the content of a FHIR Implementation Guide page and a list of elements (each with a unique `id` and a `description`), identify for each element whether it appears in the page.\n" +
	"    - If the element appears, return a short excerpt showing where and how the element appears in the page.\n" +
	"    - If it does not appear, return `null`.\n" +
	"**Output format:** For each element, produce an object containing the element id (`id`) and the excerpt string, if found, or null (`extract`). " +
	"The output must be a single valid JSON object with a field `responses` containing an array of such objects.\n" +
	"**Constraints:**\n" +
	"    - The excerpt must be taken directly from the page text without any modifications, paraphrasing, or additions.\n" +
	"    - Do not include explanations, comments, or Markdown formatting.\n" +
	"    - Output only valid JSON."

var narrativeFormat = &llm.ResponseFormat{
	Name: "responses",
	Schema: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"responses": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"id":      map[string]any{"type": "string"},
						"extract": map[string]any{"type": []string{"string", "null"}},
					},
					"required":             []string{"id", "extract"},
					"additionalProperties": false,
				},
			},
		},
		"required":             []string{"responses"},
		"additionalProperties": false,
	},
}

// itemsPrompt is the user message shared by the batched checkers.
func itemsPrompt(items []string, pageText string) string {
	return fmt.Sprintf("\nElements:\n* %s\nPage content: %s", strings.Join(items, "\n* "), pageText)
}
