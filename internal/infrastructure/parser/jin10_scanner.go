package parser

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"NewsflashAnalyzer/internal/domain"
	"NewsflashAnalyzer/internal/scanner"
)

const browserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) " +
	"AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

// Items carrying this marker are restricted content and never ingested.
const restrictedMarker = "VIP"

// Jin10Scanner extracts timestamped news flashes from a jin10-style page.
type Jin10Scanner struct {
	client *http.Client
	logger *slog.Logger
}

// NewJin10Scanner wires an HTTP client; the default carries a 10s timeout.
func NewJin10Scanner(client *http.Client, logger *slog.Logger) *Jin10Scanner {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &Jin10Scanner{client: client, logger: logger}
}

// Name identifies the strategy inside the registry.
func (j *Jin10Scanner) Name() string {
	return "jin10"
}

// Scan fetches the flash page and returns candidates inside the trailing
// time window. A network failure is logged and produces an empty batch
// rather than an error; the next batch simply tries again.
func (j *Jin10Scanner) Scan(ctx context.Context, req scanner.Request) ([]domain.FlashCandidate, error) {
	doc, err := j.fetchDocument(ctx, req.URL)
	if err != nil {
		j.warn("fetch flash page failed", "url", req.URL, "error", err)
		return nil, nil
	}

	return extractCandidates(doc, req), nil
}

func (j *Jin10Scanner) fetchDocument(ctx context.Context, pageURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", browserUserAgent)

	resp, err := j.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request document: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("source returned %s", resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}

	return doc, nil
}

type flashPair struct {
	timeText  string
	flashText string
}

// extractPairs tries the primary container selector first. When the markup
// has drifted and no containers match, it falls back to pairing the
// standalone time and text lists positionally, truncated to the shorter
// list. The fallback can misalign when the lists diverge for reasons other
// than trailing truncation; it is best-effort only.
func extractPairs(doc *goquery.Document) []flashPair {
	var pairs []flashPair

	doc.Find("div.jin10-flash-item").Each(func(_ int, item *goquery.Selection) {
		timeEl := item.Find(".jin10-flash-date-time").First()
		if timeEl.Length() == 0 {
			timeEl = item.Find("div.item-time").First()
		}
		textEl := item.Find(".right-flash").First()
		if textEl.Length() == 0 {
			textEl = item.Find("div.flash-text").First()
		}
		pairs = append(pairs, flashPair{
			timeText:  strings.TrimSpace(timeEl.Text()),
			flashText: strings.TrimSpace(textEl.Text()),
		})
	})
	if len(pairs) > 0 {
		return pairs
	}

	times := doc.Find("div.item-time")
	texts := doc.Find("div.flash-text")
	n := min(times.Length(), texts.Length())
	for i := 0; i < n; i++ {
		pairs = append(pairs, flashPair{
			timeText:  strings.TrimSpace(times.Eq(i).Text()),
			flashText: strings.TrimSpace(texts.Eq(i).Text()),
		})
	}
	return pairs
}

func extractCandidates(doc *goquery.Document, req scanner.Request) []domain.FlashCandidate {
	now := req.Now.UTC()

	var windowStart time.Time
	windowed := req.WindowMinutes > 0
	if windowed {
		windowStart = now.Add(-time.Duration(req.WindowMinutes) * time.Minute)
	}

	var candidates []domain.FlashCandidate
	for _, pair := range extractPairs(doc) {
		if pair.timeText == "" || pair.flashText == "" {
			continue
		}
		if strings.Contains(pair.flashText, restrictedMarker) {
			continue
		}

		eventTime := parseFlashTime(pair.timeText, now)

		if windowed {
			if eventTime == nil {
				continue
			}
			if eventTime.Before(windowStart) || eventTime.After(now) {
				continue
			}
		}

		candidates = append(candidates, domain.FlashCandidate{
			Content:     pair.flashText,
			ExtractTime: now,
			EventTime:   eventTime,
			SourceURL:   req.URL,
		})
	}

	return candidates
}

// parseFlashTime resolves a bare HH:MM or HH:MM:SS clock reading against the
// given day's UTC date. Anything else leaves the event time unknown.
func parseFlashTime(timeText string, day time.Time) *time.Time {
	for _, layout := range []string{"15:04:05", "15:04"} {
		parsed, err := time.Parse(layout, timeText)
		if err != nil {
			continue
		}
		combined := time.Date(day.Year(), day.Month(), day.Day(),
			parsed.Hour(), parsed.Minute(), parsed.Second(), 0, time.UTC)
		return &combined
	}
	return nil
}

func (j *Jin10Scanner) warn(msg string, args ...any) {
	if j.logger != nil {
		j.logger.Warn(msg, args...)
	}
}
