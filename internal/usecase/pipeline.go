package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"NewsflashAnalyzer/internal/domain"
	"NewsflashAnalyzer/internal/infrastructure/storage"
	"NewsflashAnalyzer/internal/ports"
)

// PipelineDeps wires all driven adapters into the orchestration pipeline.
type PipelineDeps struct {
	Source     ports.FlashSource
	Store      ports.NewsStore
	Classifier ports.Classifier
	Extractor  ports.ImpactExtractor
	Notifier   ports.Notifier
	Logger     *slog.Logger
}

// Pipeline implements the three-stage flash-analysis workflow: ingest (1),
// classify (2), analyze impact (3). Every remote failure stops the affected
// item at its current stage and the batch moves on; a later batch picks such
// items up again via ReprocessPending.
type Pipeline struct {
	source     ports.FlashSource
	store      ports.NewsStore
	classifier ports.Classifier
	extractor  ports.ImpactExtractor
	notifier   ports.Notifier
	logger     *slog.Logger
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	return &Pipeline{
		source:     deps.Source,
		store:      deps.Store,
		classifier: deps.Classifier,
		extractor:  deps.Extractor,
		notifier:   deps.Notifier,
		logger:     deps.Logger,
	}
}

type analyzedItem struct {
	content  string
	category string
}

// ProcessBatch fetches the current flash window, ingests each candidate, and
// advances it as far as the model allows.
func (p *Pipeline) ProcessBatch(ctx context.Context, now time.Time) error {
	if p.source == nil {
		return nil
	}

	candidates, err := p.source.FetchBatch(ctx, now)
	if err != nil {
		return fmt.Errorf("fetch batch: %w", err)
	}
	p.debug("batch fetched", "candidates", len(candidates))

	var analyzed []analyzedItem
	for _, cand := range candidates {
		id, err := p.store.InsertNews(ctx, cand.Content, cand.ExtractTime)
		if errors.Is(err, storage.ErrDuplicateContent) {
			p.debug("skipping duplicate flash", "content", snippet(cand.Content))
			continue
		}
		if err != nil {
			p.warn("insert flash failed", "error", err, "content", snippet(cand.Content))
			continue
		}

		if item, ok := p.classifyAndAnalyze(ctx, id, cand.Content); ok {
			analyzed = append(analyzed, item)
		}
	}

	p.publishDigest(ctx, analyzed)
	return nil
}

// ReprocessPending re-runs the unfinished stages for records left behind by
// earlier batches: stage-1 records restart at classification, stage-2 facts
// retry impact extraction. Stage-2 opinions are terminal and skipped.
func (p *Pipeline) ReprocessPending(ctx context.Context) error {
	items, err := p.store.PendingNews(ctx, domain.StageClassified)
	if err != nil {
		return fmt.Errorf("load pending: %w", err)
	}
	if len(items) == 0 {
		return nil
	}
	p.debug("reprocessing pending records", "count", len(items))

	for _, item := range items {
		switch {
		case item.Stage == domain.StageIngested:
			p.classifyAndAnalyze(ctx, item.ID, item.Content)
		case item.Stage == domain.StageClassified && item.Attribute == domain.AttributeFact:
			p.analyzeImpact(ctx, item.ID, item.Content)
		}
	}
	return nil
}

// classifyAndAnalyze runs stages 2 and 3 for one record. The bool reports
// whether the record reached stage 3 in this call.
func (p *Pipeline) classifyAndAnalyze(ctx context.Context, id int64, content string) (analyzedItem, bool) {
	attr, err := p.classifier.ClassifyAttribute(ctx, content)
	if err != nil {
		p.warn("attribute classification failed", "id", id, "error", err)
		return analyzedItem{}, false
	}
	if !attr.Valid() {
		p.warn("attribute unknown, leaving at stage 1", "id", id, "content", snippet(content))
		return analyzedItem{}, false
	}

	category, err := p.classifier.ClassifyCategory(ctx, content, attr)
	if err != nil {
		p.warn("category classification failed", "id", id, "error", err)
		return analyzedItem{}, false
	}
	if category == "" {
		p.warn("category unknown, leaving at stage 1", "id", id, "content", snippet(content))
		return analyzedItem{}, false
	}

	if err := p.store.AdvanceClassification(ctx, id, attr, category); err != nil {
		p.warn("advance classification failed", "id", id, "error", err)
		return analyzedItem{}, false
	}

	if attr != domain.AttributeFact {
		return analyzedItem{}, false
	}
	if !p.analyzeImpact(ctx, id, content) {
		return analyzedItem{}, false
	}
	return analyzedItem{content: content, category: category}, true
}

func (p *Pipeline) analyzeImpact(ctx context.Context, id int64, content string) bool {
	record, err := p.extractor.Extract(ctx, content)
	if err != nil {
		p.warn("impact extraction failed", "id", id, "error", err)
		return false
	}

	if err := p.store.AdvanceImpact(ctx, id, *record); err != nil {
		p.warn("advance impact failed", "id", id, "error", err)
		return false
	}
	return true
}

func (p *Pipeline) publishDigest(ctx context.Context, analyzed []analyzedItem) {
	if p.notifier == nil || len(analyzed) == 0 {
		return
	}
	if err := p.notifier.PublishDigest(ctx, buildDigestMessage(analyzed)); err != nil {
		p.warn("publish digest failed", "error", err)
	}
}

func buildDigestMessage(items []analyzedItem) string {
	message := fmt.Sprintf("Analyzed %d factual flashes:\n", len(items))
	for _, item := range items {
		message += fmt.Sprintf("- [%s] %s\n", item.category, snippet(item.content))
	}
	return message
}

func snippet(content string) string {
	runes := []rune(content)
	if len(runes) <= 80 {
		return content
	}
	return string(runes[:80]) + "..."
}

func (p *Pipeline) debug(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Debug(msg, args...)
	}
}

func (p *Pipeline) warn(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Warn(msg, args...)
	}
}
