package domain

import "time"

// Attribute is the fact/opinion label assigned by the classifier.
type Attribute string

const (
	AttributeUnknown Attribute = ""
	AttributeFact    Attribute = "fact"
	AttributeOpinion Attribute = "opinion"
)

// Valid reports whether the attribute is one of the two storable labels.
func (a Attribute) Valid() bool {
	return a == AttributeFact || a == AttributeOpinion
}

// AnalysisStage marks pipeline progress for a persisted news item.
type AnalysisStage int

const (
	StageIngested   AnalysisStage = 1
	StageClassified AnalysisStage = 2
	StageAnalyzed   AnalysisStage = 3
)

// Impact certainty and strength keep the upstream model's localized labels.
const (
	CertaintyYes = "是"
	CertaintyNo  = "否"

	StrengthStrong   = "强"
	StrengthModerate = "一般"
	StrengthWeak     = "弱"
)

// FactCategories enumerates sub-categories valid for factual items.
// Order matters: the category classifier uses it as substring-fallback
// tie-break order.
var FactCategories = []string{
	"political_policies",
	"data_indicators",
	"technology_news",
	"market_dynamics",
	"corporate_news",
	"geopolitical_conflicts",
	"financial_innovation",
	"risk_events",
	"event_plan",
}

// OpinionCategories enumerates sub-categories valid for opinion items.
var OpinionCategories = []string{
	"economic_interpretation",
	"market_analysis",
	"policy_interpretation",
	"expert_opinions",
	"investor_sentiment",
	"future_trends_prediction",
	"risk_assessment",
}

// CategoriesFor returns the category set valid for the given attribute,
// or nil when the attribute itself is unknown.
func CategoriesFor(attr Attribute) []string {
	switch attr {
	case AttributeFact:
		return FactCategories
	case AttributeOpinion:
		return OpinionCategories
	default:
		return nil
	}
}

// FlashCandidate is a raw news flash surviving the fetcher's filters.
type FlashCandidate struct {
	Content     string
	ExtractTime time.Time
	EventTime   *time.Time
	SourceURL   string
}

// StockRef identifies an instrument mentioned by the impact extractor.
type StockRef struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// ImpactRecord carries the validated financial-impact fields for one item.
// List fields are never nil; absent data is an empty slice.
type ImpactRecord struct {
	EventTime         *time.Time
	BearishIndustries []string
	BullishIndustries []string
	RelatedStocks     []StockRef
	RelatedCryptos    []string
	Certainty         string
	Strength          string
}

// NewsItem is the persisted pipeline record.
type NewsItem struct {
	ID          int64
	Content     string
	ExtractTime time.Time
	EventTime   *time.Time
	Stage       AnalysisStage
	Attribute   Attribute
	Category    string
	Impact      ImpactRecord
	UpdatedAt   time.Time
}
