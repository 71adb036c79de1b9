package analysis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"NewsflashAnalyzer/internal/domain"
)

func TestExtractValidRecord(t *testing.T) {
	t.Parallel()

	completer := &fakeCompleter{structured: map[string]any{
		"event_time":         "2023-10-27 09:00:00",
		"bearish_industries": []any{"airlines"},
		"bullish_industries": []any{"semiconductors", "ai_software"},
		"related_stocks": []any{
			map[string]any{"code": "QLI", "name": "QuantumLeap Inc."},
		},
		"related_cryptos":           []any{"BTC", "ETH"},
		"industry_impact_certainty": "是",
		"industry_impact_strength":  "强",
	}}
	analyzer := NewImpactAnalyzer(completer, nil)

	record, err := analyzer.Extract(context.Background(), "chip breakthrough")
	require.NoError(t, err)
	require.True(t, completer.lastReq.StructuredJSON)

	require.NotNil(t, record.EventTime)
	assert.Equal(t, time.Date(2023, time.October, 27, 9, 0, 0, 0, time.UTC), *record.EventTime)
	assert.Equal(t, []string{"airlines"}, record.BearishIndustries)
	assert.Equal(t, []string{"semiconductors", "ai_software"}, record.BullishIndustries)
	assert.Equal(t, []domain.StockRef{{Code: "QLI", Name: "QuantumLeap Inc."}}, record.RelatedStocks)
	assert.Equal(t, []string{"BTC", "ETH"}, record.RelatedCryptos)
	assert.Equal(t, domain.CertaintyYes, record.Certainty)
	assert.Equal(t, domain.StrengthStrong, record.Strength)
}

func TestExtractInvalidFieldsCollapse(t *testing.T) {
	t.Parallel()

	completer := &fakeCompleter{structured: map[string]any{
		"event_time":                "not-a-date",
		"bullish_industries":        "semiconductors",
		"related_stocks":            "QLI",
		"industry_impact_certainty": "maybe",
		"industry_impact_strength":  "extreme",
	}}
	analyzer := NewImpactAnalyzer(completer, nil)

	record, err := analyzer.Extract(context.Background(), "ambiguous news")
	require.NoError(t, err)

	assert.Nil(t, record.EventTime)
	assert.Equal(t, []string{}, record.BullishIndustries)
	assert.Equal(t, []string{}, record.BearishIndustries)
	assert.Equal(t, []domain.StockRef{}, record.RelatedStocks)
	assert.Equal(t, []string{}, record.RelatedCryptos)
	assert.Empty(t, record.Certainty)
	assert.Empty(t, record.Strength)
}

func TestExtractMissingFieldsDefault(t *testing.T) {
	t.Parallel()

	completer := &fakeCompleter{structured: map[string]any{}}
	analyzer := NewImpactAnalyzer(completer, nil)

	record, err := analyzer.Extract(context.Background(), "sparse reply")
	require.NoError(t, err)

	assert.Nil(t, record.EventTime)
	assert.NotNil(t, record.BearishIndustries)
	assert.NotNil(t, record.BullishIndustries)
	assert.NotNil(t, record.RelatedStocks)
	assert.NotNil(t, record.RelatedCryptos)
	assert.Len(t, record.BearishIndustries, 0)
}

func TestExtractDropsNonStringListElements(t *testing.T) {
	t.Parallel()

	completer := &fakeCompleter{structured: map[string]any{
		"bearish_industries": []any{"banks", 42, nil, "insurers"},
		"related_stocks":     []any{map[string]any{"code": "X", "name": "X Corp"}, "loose string"},
	}}
	analyzer := NewImpactAnalyzer(completer, nil)

	record, err := analyzer.Extract(context.Background(), "mixed types")
	require.NoError(t, err)

	assert.Equal(t, []string{"banks", "insurers"}, record.BearishIndustries)
	assert.Equal(t, []domain.StockRef{{Code: "X", Name: "X Corp"}}, record.RelatedStocks)
}

func TestExtractCallFailure(t *testing.T) {
	t.Parallel()

	completer := &fakeCompleter{err: errors.New("timeout")}
	analyzer := NewImpactAnalyzer(completer, nil)

	record, err := analyzer.Extract(context.Background(), "whatever")
	require.Error(t, err)
	assert.Nil(t, record)
}

func TestValidateEventTime(t *testing.T) {
	t.Parallel()

	got := validateEventTime("2024-01-02 15:04:05")
	require.NotNil(t, got)
	assert.Equal(t, time.Date(2024, time.January, 2, 15, 4, 5, 0, time.UTC), *got)

	assert.Nil(t, validateEventTime("2024-01-02T15:04:05Z"))
	assert.Nil(t, validateEventTime(1700000000))
	assert.Nil(t, validateEventTime(nil))
}
