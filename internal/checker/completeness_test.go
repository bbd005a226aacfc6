package checker

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"verifhir/internal/ig"
	"verifhir/internal/llm"
	"verifhir/internal/report"
)

func aboutPage(text string) any {
	return mock.MatchedBy(func(r llm.Request) bool {
		return strings.HasSuffix(r.User, "Page content: "+text)
	})
}

func textPages(texts ...string) []ig.Page {
	out := make([]ig.Page, len(texts))
	for i, text := range texts {
		out[i] = ig.Page{Name: text + ".html", Text: text}
	}
	return out
}

func TestCompleteness(t *testing.T) {
	g := &ig.Guide{Pages: textPages("alpha", "beta", "gamma")}

	client := new(llm.MockClient)
	client.On("Complete", mock.Anything, aboutPage("alpha")).Return(`{"FHIR version": true, "IG version": "TRUE"}`, nil)
	client.On("Complete", mock.Anything, aboutPage("beta")).Return(`{"fhir version": "true"}`, nil)
	client.On("Complete", mock.Anything, aboutPage("gamma")).Return("The page mentions both.", nil)

	checks, err := NewCompleteness(nil, client, 0).Check(context.Background(), g)
	require.NoError(t, err)
	require.Len(t, checks, 2)

	assert.Equal(t, "Presence of FHIR version in all pages", checks[0].Name)
	assert.Equal(t, report.Pass, checks[0].Value)
	assert.Nil(t, checks[0].Proof)

	// beta does not confirm the IG version; gamma's prose reply is not evidence
	assert.Equal(t, "Presence of IG version in all pages", checks[1].Name)
	assert.Equal(t, report.Fail, checks[1].Value)
	assert.Equal(t, "Missing information IG version in pages", checks[1].Proof.Title)
	assert.Equal(t, []report.ProofItem{{Label: "beta.html"}}, checks[1].Proof.Items)
	assert.Equal(t, DomainPages, checks[1].Domain)
}

func TestCompletenessRequestShape(t *testing.T) {
	g := &ig.Guide{Pages: textPages("alpha")}

	client := new(llm.MockClient)
	client.On("Complete", mock.Anything, mock.MatchedBy(func(r llm.Request) bool {
		return r.System == completenessPrompt &&
			r.Format == llm.JSONObject &&
			r.User == "\nElements:\n* FHIR version\n* IG version\nPage content: alpha"
	})).Return(`{"FHIR version": true, "IG version": true}`, nil)

	_, err := NewCompleteness(nil, client, 0).Check(context.Background(), g)
	require.NoError(t, err)
	client.AssertExpectations(t)
}

func TestCompletenessBatches(t *testing.T) {
	g := &ig.Guide{Pages: textPages("alpha")}

	client := new(llm.MockClient)
	client.On("Complete", mock.Anything, mock.Anything).Return(`{"FHIR version": true, "IG version": true}`, nil)

	checks, err := NewCompleteness(nil, client, 1).Check(context.Background(), g)
	require.NoError(t, err)
	assert.Len(t, checks, 2)
	client.AssertNumberOfCalls(t, "Complete", 2)
}

func TestCompletenessNoUsableReplies(t *testing.T) {
	g := &ig.Guide{Pages: textPages("alpha", "beta")}

	client := new(llm.MockClient)
	client.On("Complete", mock.Anything, aboutPage("alpha")).Return("not json", nil)
	client.On("Complete", mock.Anything, aboutPage("beta")).Return(`["FHIR version"]`, nil)

	checks, err := NewCompleteness(nil, client, 0).Check(context.Background(), g)
	require.NoError(t, err)
	assert.Empty(t, checks)
}

func TestCompletenessFatalError(t *testing.T) {
	g := &ig.Guide{Pages: textPages("alpha")}

	client := new(llm.MockClient)
	client.On("Complete", mock.Anything, mock.Anything).Return("", context.DeadlineExceeded)

	_, err := NewCompleteness(nil, client, 0).Check(context.Background(), g)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
