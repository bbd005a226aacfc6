package checker

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"verifhir/internal/ig"
	"verifhir/internal/llm"
	"verifhir/internal/report"
)

var testItems = []NarrativeItem{
	{"prior", "prior reading"},
	{MustSupportItem, "mustSupport meaning"},
	{"community", "community engagement"},
}

func TestNarrative(t *testing.T) {
	g := &ig.Guide{Pages: textPages("alpha", "beta", "gamma")}

	client := new(llm.MockClient)
	client.On("Complete", mock.Anything, aboutPage("alpha")).Return(
		`{"responses": [{"id": "prior", "extract": "Read this first"}, {"id": "community", "extract": "None"}]}`, nil)
	client.On("Complete", mock.Anything, aboutPage("beta")).Return(
		"```json\n{\"responses\": [{\"id\": \"prior\", \"extract\": \"See also the base standard\"}, {\"id\": \"community\", \"extract\": null}]}\n```", nil)
	client.On("Complete", mock.Anything, aboutPage("gamma")).Return("garbage", nil)

	checks, err := NewNarrative(nil, client, 0, testItems...).Check(context.Background(), g)
	require.NoError(t, err)
	require.Len(t, checks, 3)

	assert.Equal(t, "Presence of prior reading", checks[0].Name)
	assert.Equal(t, report.Pass, checks[0].Value)
	assert.Equal(t, "Extract per page", checks[0].Proof.Title)
	assert.Equal(t, []report.ProofItem{
		{Label: "alpha.html", Value: "Read this first"},
		{Label: "beta.html", Value: "See also the base standard"},
	}, checks[0].Proof.Items)

	assert.Equal(t, report.Indeterminate, checks[1].Value)
	assert.Equal(t, "mustSupport not used.", checks[1].Proof.Note)

	assert.Equal(t, report.Fail, checks[2].Value)
	assert.Nil(t, checks[2].Proof)
	for _, c := range checks {
		assert.Equal(t, DomainNarrative, c.Domain)
	}
}

func TestNarrativeMustSupportPrompted(t *testing.T) {
	g := &ig.Guide{Pages: textPages("alpha"), MustSupport: true}

	client := new(llm.MockClient)
	client.On("Complete", mock.Anything, mock.MatchedBy(func(r llm.Request) bool {
		return r.Format == narrativeFormat && strings.Contains(r.User, "* ms: mustSupport meaning\n")
	})).Return(`{"responses": [{"id": "ms", "extract": "SHALL be able to populate"}]}`, nil)

	checks, err := NewNarrative(nil, client, 0, testItems...).Check(context.Background(), g)
	require.NoError(t, err)
	require.Len(t, checks, 3)
	assert.Equal(t, report.Pass, checks[1].Value)
	assert.Equal(t, report.Fail, checks[0].Value)
}

func TestNarrativeMustSupportNotPrompted(t *testing.T) {
	g := &ig.Guide{Pages: textPages("alpha")}

	client := new(llm.MockClient)
	client.On("Complete", mock.Anything, mock.MatchedBy(func(r llm.Request) bool {
		return !strings.Contains(r.User, "* ms:")
	})).Return(`{"responses": []}`, nil)

	_, err := NewNarrative(nil, client, 0, testItems...).Check(context.Background(), g)
	require.NoError(t, err)
	client.AssertNumberOfCalls(t, "Complete", 1)
}

// An excerpt for an item outside the batch it was asked about is ignored.
func TestNarrativeBatchesIgnoreForeignIDs(t *testing.T) {
	g := &ig.Guide{Pages: textPages("alpha"), MustSupport: true}

	client := new(llm.MockClient)
	client.On("Complete", mock.Anything, mock.Anything).Return(
		`{"responses": [{"id": "community", "extract": "Join the chat"}]}`, nil)

	checks, err := NewNarrative(nil, client, 1, testItems...).Check(context.Background(), g)
	require.NoError(t, err)
	client.AssertNumberOfCalls(t, "Complete", 3)
	require.Len(t, checks, 3)
	assert.Equal(t, report.Fail, checks[0].Value)
	assert.Equal(t, report.Fail, checks[1].Value)
	require.Equal(t, report.Pass, checks[2].Value)
	assert.Len(t, checks[2].Proof.Items, 1)
}

func TestNarrativeRecoverableErrorsOmitChecks(t *testing.T) {
	g := &ig.Guide{Pages: textPages("alpha")}

	client := new(llm.MockClient)
	client.On("Complete", mock.Anything, mock.Anything).Return("", errors.New("bad gateway"))

	checks, err := NewNarrative(nil, client, 0, testItems...).Check(context.Background(), g)
	require.NoError(t, err)
	require.Len(t, checks, 1)
	assert.Equal(t, report.Indeterminate, checks[0].Value)
}

func TestNarrativeDefaults(t *testing.T) {
	c := NewNarrative(nil, nil, 0)
	assert.Len(t, c.items, 7)
	assert.Equal(t, "narrative", c.Name())
	assert.Equal(t, DomainNarrative, c.Domain())
}
