package rss

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sportlens/sportlens-backend/internal/logger"
)

const testFeedXML = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>Test Sports Wire</title>
    <description>Scores &amp; signings</description>
    <item>
      <title>Article A</title>
      <link>https://x/a</link>
      <description>First story</description>
      <pubDate>Mon, 01 Jan 2024 10:00:00 GMT</pubDate>
    </item>
    <item>
      <title>Article B</title>
      <link>https://x/b</link>
      <description>Second story</description>
      <pubDate>Mon, 01 Jan 2024 11:00:00 GMT</pubDate>
    </item>
    <item>
      <title>Article C</title>
      <link>https://x/c</link>
      <description>Third story</description>
      <pubDate>Mon, 01 Jan 2024 12:00:00 GMT</pubDate>
    </item>
  </channel>
</rss>`

func mustTestLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	t.Cleanup(log.Sync)
	return log
}

func TestFetchFeedParsesAndFingerprints(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte(testFeedXML))
	}))
	defer srv.Close()

	svc := NewService(mustTestLogger(t))
	got, err := svc.FetchFeed(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("FetchFeed: %v", err)
	}
	if got.Feed.Title != "Test Sports Wire" {
		t.Fatalf("feed title=%q", got.Feed.Title)
	}
	if got.Feed.Description != "Scores & signings" {
		t.Fatalf("feed description=%q", got.Feed.Description)
	}
	if len(got.Items) != 3 {
		t.Fatalf("items=%d, want 3", len(got.Items))
	}

	seen := make(map[string]bool)
	for _, item := range got.Items {
		if item.Fingerprint == "" {
			t.Fatalf("item %q has empty fingerprint", item.Link)
		}
		if seen[item.Fingerprint] {
			t.Fatalf("duplicate fingerprint in one fetch: %s", item.Fingerprint)
		}
		seen[item.Fingerprint] = true
		if item.PublishedAt == nil {
			t.Fatalf("item %q missing published time", item.Link)
		}
		if len(item.RawJSON) == 0 {
			t.Fatalf("item %q missing raw payload", item.Link)
		}
	}
}

func TestFetchFeedRefetchIsStable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(testFeedXML))
	}))
	defer srv.Close()

	svc := NewService(mustTestLogger(t))
	first, err := svc.FetchFeed(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("first fetch: %v", err)
	}
	second, err := svc.FetchFeed(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("second fetch: %v", err)
	}
	for i := range first.Items {
		if first.Items[i].Fingerprint != second.Items[i].Fingerprint {
			t.Fatalf("fingerprint changed across fetches for %s", first.Items[i].Link)
		}
	}
}

func TestFetchFeedErrors(t *testing.T) {
	t.Run("http_error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "nope", http.StatusInternalServerError)
		}))
		defer srv.Close()

		svc := NewService(mustTestLogger(t))
		if _, err := svc.FetchFeed(context.Background(), srv.URL); err == nil {
			t.Fatalf("expected error for HTTP 500")
		}
	})

	t.Run("malformed_body", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("this is not a feed"))
		}))
		defer srv.Close()

		svc := NewService(mustTestLogger(t))
		if _, err := svc.FetchFeed(context.Background(), srv.URL); err == nil {
			t.Fatalf("expected parse error for non-feed body")
		}
	})
}

func TestValidateFeedSwallowsErrors(t *testing.T) {
	svc := NewService(mustTestLogger(t))
	if svc.ValidateFeed(context.Background(), "http://127.0.0.1:1/unreachable") {
		t.Fatalf("expected false for unreachable feed")
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(testFeedXML))
	}))
	defer srv.Close()
	if !svc.ValidateFeed(context.Background(), srv.URL) {
		t.Fatalf("expected true for valid feed")
	}
}
