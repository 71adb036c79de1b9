package analysis

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"NewsflashAnalyzer/internal/domain"
	"NewsflashAnalyzer/internal/infrastructure/llm"
	"NewsflashAnalyzer/internal/ports"
)

const eventTimeLayout = "2006-01-02 15:04:05"

const impactSystemPrompt = "You are an expert financial analyst. Based on the provided news snippet, " +
	"extract the following information. If a field is not applicable or cannot be determined, use null or an empty list. " +
	"Respond in JSON format with the following keys: " +
	"'event_time' (estimated actual time of the event, if discernible, as YYYY-MM-DD HH:MM:SS, otherwise null), " +
	"'bearish_industries' (list of industry names/codes that might be negatively impacted), " +
	"'bullish_industries' (list of industry names/codes that might be positively impacted), " +
	"'related_stocks' (list of objects, each with 'code' and 'name', e.g., [{\"code\": \"AAPL\", \"name\": \"Apple Inc.\"}]), " +
	"'related_cryptos' (list of crypto symbols, e.g., [\"BTC\", \"ETH\"]), " +
	"'industry_impact_certainty' (string: '是' for Yes, '否' for No, based on if the impact is direct and certain), " +
	"'industry_impact_strength' (string: '强' for Strong, '一般' for Moderate, '弱' for Weak, or null if not applicable)."

// ImpactAnalyzer asks the model for a structured impact record and validates
// every field against its domain before letting it near the store.
type ImpactAnalyzer struct {
	completer ports.Completer
	logger    *slog.Logger
}

var _ ports.ImpactExtractor = (*ImpactAnalyzer)(nil)

// NewImpactAnalyzer wires the completion client.
func NewImpactAnalyzer(completer ports.Completer, logger *slog.Logger) *ImpactAnalyzer {
	return &ImpactAnalyzer{completer: completer, logger: logger}
}

// Extract returns a validated impact record, or an error only when the
// completion call itself produced nothing. Once a structured value arrives,
// extraction always succeeds with best-effort field values; anything outside
// a field's domain collapses to its null/empty default.
func (a *ImpactAnalyzer) Extract(ctx context.Context, content string) (*domain.ImpactRecord, error) {
	res, err := a.completer.Generate(ctx, ports.CompletionRequest{
		Prompt:         fmt.Sprintf("Analyze the financial impact of this news: %q", content),
		System:         impactSystemPrompt,
		StructuredJSON: true,
		Timeout:        llm.ExtractTimeout,
	})
	if err != nil {
		return nil, err
	}

	raw := res.Structured
	record := &domain.ImpactRecord{
		EventTime:         validateEventTime(raw["event_time"]),
		BearishIndustries: validateStringList(raw["bearish_industries"]),
		BullishIndustries: validateStringList(raw["bullish_industries"]),
		RelatedStocks:     validateStockList(raw["related_stocks"]),
		RelatedCryptos:    validateStringList(raw["related_cryptos"]),
		Certainty:         validateCertainty(raw["industry_impact_certainty"]),
		Strength:          validateStrength(raw["industry_impact_strength"]),
	}
	return record, nil
}

// validateEventTime accepts only a string in YYYY-MM-DD HH:MM:SS form.
func validateEventTime(v any) *time.Time {
	s, ok := v.(string)
	if !ok {
		return nil
	}
	t, err := time.Parse(eventTimeLayout, s)
	if err != nil {
		return nil
	}
	return &t
}

// validateStringList coerces anything that is not a sequence to an empty
// list and drops non-string elements from sequences.
func validateStringList(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return []string{}
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// validateStockList keeps only {code, name} objects.
func validateStockList(v any) []domain.StockRef {
	items, ok := v.([]any)
	if !ok {
		return []domain.StockRef{}
	}
	out := make([]domain.StockRef, 0, len(items))
	for _, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		code, _ := obj["code"].(string)
		name, _ := obj["name"].(string)
		if code == "" && name == "" {
			continue
		}
		out = append(out, domain.StockRef{Code: code, Name: name})
	}
	return out
}

func validateCertainty(v any) string {
	s, ok := v.(string)
	if ok && (s == domain.CertaintyYes || s == domain.CertaintyNo) {
		return s
	}
	return ""
}

func validateStrength(v any) string {
	s, ok := v.(string)
	if ok && (s == domain.StrengthStrong || s == domain.StrengthModerate || s == domain.StrengthWeak) {
		return s
	}
	return ""
}
