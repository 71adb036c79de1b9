package ports

import (
	"context"
	"time"

	"NewsflashAnalyzer/internal/domain"
)

// CompletionRequest describes a single call to the generation endpoint.
// StructuredJSON asks the endpoint for machine-parseable output instead of
// free text; Timeout bounds the call (a zero value falls back to the
// classification deadline).
type CompletionRequest struct {
	Prompt         string
	System         string
	StructuredJSON bool
	Timeout        time.Duration
}

// CompletionResult carries either trimmed free text or the normalized
// structured object, depending on what the request asked for.
type CompletionResult struct {
	Text       string
	Structured map[string]any
}

// Completer sends prompts to a text-generation model.
type Completer interface {
	Generate(ctx context.Context, req CompletionRequest) (*CompletionResult, error)
}

// FlashSource pulls fresh news-flash candidates from upstream pages.
type FlashSource interface {
	FetchBatch(ctx context.Context, now time.Time) ([]domain.FlashCandidate, error)
}

// Classifier labels a snippet as fact or opinion and picks its sub-category.
// An unrecognizable model reply yields the zero value, not an error; errors
// mean the completion call itself failed.
type Classifier interface {
	ClassifyAttribute(ctx context.Context, content string) (domain.Attribute, error)
	ClassifyCategory(ctx context.Context, content string, attr domain.Attribute) (string, error)
}

// ImpactExtractor produces the validated financial-impact record for a
// factual snippet.
type ImpactExtractor interface {
	Extract(ctx context.Context, content string) (*domain.ImpactRecord, error)
}

// NewsStore records pipeline progress per news item.
type NewsStore interface {
	InsertNews(ctx context.Context, content string, extractTime time.Time) (int64, error)
	AdvanceClassification(ctx context.Context, id int64, attr domain.Attribute, category string) error
	AdvanceImpact(ctx context.Context, id int64, rec domain.ImpactRecord) error
	PendingNews(ctx context.Context, maxStage domain.AnalysisStage) ([]domain.NewsItem, error)
}

// Notifier streams batch digests to Telegram or other channels.
type Notifier interface {
	PublishDigest(ctx context.Context, digest string) error
}

// Scheduler controls when batches execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
