package rss

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gogs/chardet"
	"github.com/mmcdole/gofeed"
	"golang.org/x/text/encoding/htmlindex"

	"github.com/sportlens/sportlens-backend/internal/logger"
)

const defaultFetchTimeout = 10 * time.Second

// FeedMetadata is what a fetch learned about the feed itself.
type FeedMetadata struct {
	URL         string
	Title       string
	Description string
}

// CandidateItem is a parsed, cleaned feed entry that has not yet been checked
// against storage for duplication.
type CandidateItem struct {
	Title       string
	Link        string
	Fingerprint string
	Content     string
	Summary     string
	Author      string
	PublishedAt *time.Time
	FetchedAt   time.Time
	RawJSON     []byte
}

// FetchResult is the complete outcome of one feed fetch: metadata plus the
// ordered candidate items. The pipeline persists nothing; that is the
// orchestrator's job.
type FetchResult struct {
	Feed  FeedMetadata
	Items []CandidateItem
}

type Service struct {
	log    *logger.Logger
	client *http.Client
}

func NewService(log *logger.Logger) *Service {
	return &Service{
		log: log.With("service", "RSSService"),
		client: &http.Client{
			Timeout: defaultFetchTimeout,
		},
	}
}

// FetchFeed retrieves and parses a feed. Network, decode, and parse failures
// all surface as a single wrapped error with no partial items.
func (s *Service) FetchFeed(ctx context.Context, url string) (*FetchResult, error) {
	body, err := s.retrieve(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("fetch feed %s: %w", url, err)
	}

	text, err := decodeToUTF8(body)
	if err != nil {
		return nil, fmt.Errorf("decode feed %s: %w", url, err)
	}

	parsed, err := gofeed.NewParser().ParseString(text)
	if err != nil {
		return nil, fmt.Errorf("parse feed %s: %w", url, err)
	}

	now := time.Now()
	result := &FetchResult{
		Feed: FeedMetadata{
			URL:         url,
			Title:       CleanText(parsed.Title),
			Description: CleanText(parsed.Description),
		},
	}
	if result.Feed.Title == "" {
		result.Feed.Title = "Unknown Feed"
	}

	result.Items = make([]CandidateItem, 0, len(parsed.Items))
	for i, entry := range parsed.Items {
		title := CleanText(entry.Title)
		if title == "" {
			title = fmt.Sprintf("Article %d", i+1)
		}

		published := entry.PublishedParsed
		if published == nil {
			published = entry.UpdatedParsed
		}
		ts := now
		if published != nil {
			ts = *published
		}

		author := ""
		if len(entry.Authors) > 0 && entry.Authors[0] != nil {
			author = entry.Authors[0].Name
		} else if entry.Author != nil {
			author = entry.Author.Name
		}

		raw, err := json.Marshal(entry)
		if err != nil {
			raw = nil
		}

		result.Items = append(result.Items, CandidateItem{
			Title:       title,
			Link:        entry.Link,
			Fingerprint: Fingerprint(entry.Link, ts.UTC().Format(time.RFC3339)),
			Content:     CleanText(entry.Content),
			Summary:     CleanText(entry.Description),
			Author:      CleanText(author),
			PublishedAt: published,
			FetchedAt:   now,
			RawJSON:     raw,
		})
	}

	s.log.Debug("Fetched feed", "url", url, "items", len(result.Items))
	return result, nil
}

// ValidateFeed performs a fetch-and-parse without persisting anything,
// swallowing every failure into false.
func (s *Service) ValidateFeed(ctx context.Context, url string) bool {
	if _, err := s.FetchFeed(ctx, url); err != nil {
		s.log.Debug("Feed validation failed", "url", url, "error", err)
		return false
	}
	return true
}

func (s *Service) retrieve(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "sportlens-backend/1.0")
	req.Header.Set("Accept", "application/rss+xml, application/xml, text/xml, */*")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// decodeToUTF8 sniffs the byte-level charset and converts to UTF-8. Unknown
// or already-UTF-8 input passes through unchanged.
func decodeToUTF8(body []byte) (string, error) {
	det, err := chardet.NewTextDetector().DetectBest(body)
	if err != nil || det == nil || det.Charset == "" {
		return string(body), nil
	}
	enc, err := htmlindex.Get(det.Charset)
	if err != nil || enc == nil {
		return string(body), nil
	}
	decoded, err := io.ReadAll(enc.NewDecoder().Reader(bytes.NewReader(body)))
	if err != nil {
		return "", err
	}
	return string(decoded), nil
}
