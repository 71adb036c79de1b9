package analysis

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"NewsflashAnalyzer/internal/domain"
	"NewsflashAnalyzer/internal/infrastructure/llm"
	"NewsflashAnalyzer/internal/ports"
)

const attributeSystemPrompt = "You are an expert news analyst. Your task is to classify the provided news snippet. " +
	"Respond with a single word: either 'fact' if the snippet primarily states objective events or information, " +
	"or 'opinion' if it primarily expresses views, beliefs, interpretations, or sentiments. " +
	"Do not provide any explanation or additional text."

// NewsClassifier labels snippets via single-word completion prompts.
type NewsClassifier struct {
	completer ports.Completer
	logger    *slog.Logger
}

var _ ports.Classifier = (*NewsClassifier)(nil)

// NewNewsClassifier wires the completion client.
func NewNewsClassifier(completer ports.Completer, logger *slog.Logger) *NewsClassifier {
	return &NewsClassifier{completer: completer, logger: logger}
}

// ClassifyAttribute decides whether a snippet states fact or opinion.
// A reply matching neither label, even by substring, yields
// domain.AttributeUnknown with a nil error.
func (c *NewsClassifier) ClassifyAttribute(ctx context.Context, content string) (domain.Attribute, error) {
	res, err := c.completer.Generate(ctx, ports.CompletionRequest{
		Prompt:  fmt.Sprintf("Classify the following news snippet: %q", content),
		System:  attributeSystemPrompt,
		Timeout: llm.ClassifyTimeout,
	})
	if err != nil {
		return domain.AttributeUnknown, err
	}

	reply := normalizeReply(res.Text)
	switch reply {
	case "fact":
		return domain.AttributeFact, nil
	case "opinion":
		return domain.AttributeOpinion, nil
	}

	// Models love to editorialize; salvage the label when it is buried in
	// the reply.
	if strings.Contains(reply, "fact") {
		c.warn("attribute recovered by substring", "reply", reply)
		return domain.AttributeFact, nil
	}
	if strings.Contains(reply, "opinion") {
		c.warn("attribute recovered by substring", "reply", reply)
		return domain.AttributeOpinion, nil
	}

	c.warn("attribute reply unrecognized", "reply", reply)
	return domain.AttributeUnknown, nil
}

// ClassifyCategory picks one sub-category from the set valid for the given
// attribute. Exact match wins, then the first substring match in enumeration
// order; no match yields an empty category with a nil error.
func (c *NewsClassifier) ClassifyCategory(ctx context.Context, content string, attr domain.Attribute) (string, error) {
	categories := domain.CategoriesFor(attr)
	if categories == nil {
		return "", fmt.Errorf("no category set for attribute %q", attr)
	}

	res, err := c.completer.Generate(ctx, ports.CompletionRequest{
		Prompt:  categoryUserPrompt(content, attr),
		System:  categorySystemPrompt(attr, categories),
		Timeout: llm.ClassifyTimeout,
	})
	if err != nil {
		return "", err
	}

	reply := normalizeReply(res.Text)
	for _, cat := range categories {
		if reply == cat {
			return cat, nil
		}
	}
	for _, cat := range categories {
		if strings.Contains(reply, cat) {
			c.warn("category recovered by substring", "reply", reply, "category", cat)
			return cat, nil
		}
	}

	c.warn("category reply unrecognized", "reply", reply, "attribute", string(attr))
	return "", nil
}

func categorySystemPrompt(attr domain.Attribute, categories []string) string {
	kind := "a statement of fact"
	if attr == domain.AttributeOpinion {
		kind = "an opinion"
	}
	return fmt.Sprintf("You are an expert news analyst. Given a news snippet that is %s, "+
		"classify it into one of the following categories. Respond with only the category name. "+
		"Do not add any explanation or other text.\n\nCategories: %s",
		kind, strings.Join(categories, ", "))
}

func categoryUserPrompt(content string, attr domain.Attribute) string {
	if attr == domain.AttributeOpinion {
		return fmt.Sprintf("Classify this opinion-based news snippet: %q", content)
	}
	return fmt.Sprintf("Classify this factual news snippet: %q", content)
}

// normalizeReply trims, lower-cases, and strips quote characters so that
// replies like "'Fact'" still match their label.
func normalizeReply(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, "'", "")
	s = strings.ReplaceAll(s, `"`, "")
	return s
}

func (c *NewsClassifier) warn(msg string, args ...any) {
	if c.logger != nil {
		c.logger.Warn(msg, args...)
	}
}
