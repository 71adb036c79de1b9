package analysis

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"NewsflashAnalyzer/internal/domain"
	"NewsflashAnalyzer/internal/ports"
)

type fakeCompleter struct {
	reply      string
	structured map[string]any
	err        error
	lastReq    ports.CompletionRequest
}

func (f *fakeCompleter) Generate(_ context.Context, req ports.CompletionRequest) (*ports.CompletionResult, error) {
	f.lastReq = req
	if f.err != nil {
		return nil, f.err
	}
	return &ports.CompletionResult{Text: f.reply, Structured: f.structured}, nil
}

func TestClassifyAttribute(t *testing.T) {
	t.Parallel()

	cases := []struct {
		reply string
		want  domain.Attribute
	}{
		{reply: "fact", want: domain.AttributeFact},
		{reply: "Fact.", want: domain.AttributeFact},
		{reply: "'opinion'", want: domain.AttributeOpinion},
		{reply: `"OPINION"`, want: domain.AttributeOpinion},
		{reply: "This is clearly a fact statement", want: domain.AttributeFact},
		{reply: "unclear", want: domain.AttributeUnknown},
		{reply: "", want: domain.AttributeUnknown},
	}

	for _, tc := range cases {
		completer := &fakeCompleter{reply: tc.reply}
		classifier := NewNewsClassifier(completer, nil)

		got, err := classifier.ClassifyAttribute(context.Background(), "some snippet")
		require.NoError(t, err, "reply %q", tc.reply)
		assert.Equal(t, tc.want, got, "reply %q", tc.reply)
	}
}

func TestClassifyAttributeCallFailure(t *testing.T) {
	t.Parallel()

	completer := &fakeCompleter{err: errors.New("endpoint down")}
	classifier := NewNewsClassifier(completer, nil)

	got, err := classifier.ClassifyAttribute(context.Background(), "some snippet")
	require.Error(t, err)
	assert.Equal(t, domain.AttributeUnknown, got)
}

func TestClassifyCategoryFact(t *testing.T) {
	t.Parallel()

	cases := []struct {
		reply string
		want  string
	}{
		{reply: "market_dynamics", want: "market_dynamics"},
		{reply: "I'd say market_dynamics news", want: "market_dynamics"},
		{reply: "'corporate_news'", want: "corporate_news"},
		{reply: "something else entirely", want: ""},
	}

	for _, tc := range cases {
		completer := &fakeCompleter{reply: tc.reply}
		classifier := NewNewsClassifier(completer, nil)

		got, err := classifier.ClassifyCategory(context.Background(), "rates move", domain.AttributeFact)
		require.NoError(t, err, "reply %q", tc.reply)
		assert.Equal(t, tc.want, got, "reply %q", tc.reply)
	}
}

func TestClassifyCategoryOpinionSet(t *testing.T) {
	t.Parallel()

	completer := &fakeCompleter{reply: "investor_sentiment"}
	classifier := NewNewsClassifier(completer, nil)

	got, err := classifier.ClassifyCategory(context.Background(), "analysts believe...", domain.AttributeOpinion)
	require.NoError(t, err)
	assert.Equal(t, "investor_sentiment", got)

	// The prompt must enumerate exactly the opinion categories.
	for _, cat := range domain.OpinionCategories {
		assert.Contains(t, completer.lastReq.System, cat)
	}
	for _, cat := range domain.FactCategories {
		assert.NotContains(t, completer.lastReq.System, cat)
	}
}

func TestClassifyCategorySubstringTieBreak(t *testing.T) {
	t.Parallel()

	// A reply containing two category names resolves to the first in
	// enumeration order.
	completer := &fakeCompleter{reply: "could be market_analysis or risk_assessment"}
	classifier := NewNewsClassifier(completer, nil)

	got, err := classifier.ClassifyCategory(context.Background(), "snippet", domain.AttributeOpinion)
	require.NoError(t, err)
	assert.Equal(t, "market_analysis", got)
}

func TestClassifyCategoryUnknownAttribute(t *testing.T) {
	t.Parallel()

	classifier := NewNewsClassifier(&fakeCompleter{}, nil)
	_, err := classifier.ClassifyCategory(context.Background(), "snippet", domain.AttributeUnknown)
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "no category set"))
}
