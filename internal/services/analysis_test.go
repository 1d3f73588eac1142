package services

import (
	"context"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/sportlens/sportlens-backend/internal/logger"
	"github.com/sportlens/sportlens-backend/internal/types"
)

func newAnalysisService(t *testing.T, ollama OllamaClient) *AnalysisService {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return NewAnalysisService(log, ollama)
}

func TestSelectModel(t *testing.T) {
	tests := []struct {
		name       string
		healthy    bool
		models     []string
		designated string
		want       string
		wantErr    string
	}{
		{
			name:       "designated model present",
			healthy:    true,
			models:     []string{"llava:13b", "mistral:7b"},
			designated: "mistral:7b",
			want:       "mistral:7b",
		},
		{
			name:       "falls back to first available",
			healthy:    true,
			models:     []string{"mistral:7b"},
			designated: "llava:13b",
			want:       "mistral:7b",
		},
		{
			name:       "service down",
			healthy:    false,
			designated: "llava:13b",
			wantErr:    "unavailable",
		},
		{
			name:       "no models installed",
			healthy:    true,
			models:     []string{},
			designated: "llava:13b",
			wantErr:    "no ollama models",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newAnalysisService(t, &fakeOllama{healthy: tt.healthy, models: tt.models})
			got, err := svc.SelectModel(context.Background(), tt.designated)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("err = %v, want containing %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("model = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseSportsAnalysisStrictJSON(t *testing.T) {
	svc := newAnalysisService(t, &fakeOllama{})

	raw := `Here is my analysis:
` + "```json" + `
{
  "tags": ["nba", "injury"],
  "entities": {"teams": ["Lakers"], "players": ["A. Davis"], "injuries": ["ankle"], "odds_related": []},
  "summary": "Davis questionable.",
  "score": 0.9,
  "metadata": {"confidence": 0.8, "key_insights": ["monitor"], "betting_signals": []}
}
` + "```" + `
Hope that helps.`

	result := svc.ParseSportsAnalysis(raw)
	if result.Score != 0.9 {
		t.Fatalf("score = %v, want 0.9", result.Score)
	}
	if len(result.Tags) != 2 || result.Tags[0] != "nba" {
		t.Fatalf("tags = %v", result.Tags)
	}
	if len(result.Entities.Teams) != 1 || result.Entities.Teams[0] != "Lakers" {
		t.Fatalf("teams = %v", result.Entities.Teams)
	}
	if result.Metadata.Fallback {
		t.Fatal("strict parse marked as fallback")
	}
}

func TestParseSportsAnalysisInlineJSON(t *testing.T) {
	svc := newAnalysisService(t, &fakeOllama{})

	raw := `Sure. {"tags":["nfl"],"entities":{"teams":["Chiefs"]},"summary":"Preview.","score":0.7} Done.`
	result := svc.ParseSportsAnalysis(raw)
	if result.Score != 0.7 {
		t.Fatalf("score = %v, want 0.7", result.Score)
	}
	// Absent entity lists come back as empty slices, not nil.
	if result.Entities.Players == nil || result.Entities.Injuries == nil {
		t.Fatal("entity lists not normalized")
	}
}

func TestParseSportsAnalysisEmptyResponse(t *testing.T) {
	svc := newAnalysisService(t, &fakeOllama{})

	result := svc.ParseSportsAnalysis("")
	if result.Score != 0 {
		t.Fatalf("score = %v, want 0", result.Score)
	}
	if !result.Metadata.Fallback {
		t.Fatal("empty response not marked fallback")
	}
	if len(result.Tags) != 2 || result.Tags[1] != "analysis_failed" {
		t.Fatalf("tags = %v", result.Tags)
	}
}

func TestParseSportsAnalysisProseFallback(t *testing.T) {
	svc := newAnalysisService(t, &fakeOllama{})

	raw := "The basketball game between the Lakers and Celtics should be close. Boston has home advantage."
	result := svc.ParseSportsAnalysis(raw)
	if !result.Metadata.Fallback {
		t.Fatal("prose response not marked fallback")
	}
	if result.Score != 0.5 {
		t.Fatalf("score = %v, want 0.5", result.Score)
	}
	if result.Metadata.Confidence != 0.3 {
		t.Fatalf("confidence = %v, want 0.3", result.Metadata.Confidence)
	}
	found := false
	for _, tag := range result.Tags {
		if tag == "basketball" {
			found = true
		}
	}
	if !found {
		t.Fatalf("sport keyword missing from tags %v", result.Tags)
	}
	if len(result.Entities.Teams) == 0 {
		t.Fatal("no capitalized entities extracted")
	}
}

func TestParseSportsAnalysisTruncatedJSON(t *testing.T) {
	svc := newAnalysisService(t, &fakeOllama{})

	raw := `{"tags":["nba"],"summary":"cut off mid`
	result := svc.ParseSportsAnalysis(raw)
	if !result.Metadata.Fallback {
		t.Fatal("truncated JSON not handled via fallback")
	}
	if result.Summary == "" {
		t.Fatal("fallback summary empty")
	}
}

func TestParseSportsAnalysisLongFallbackSummaryTruncated(t *testing.T) {
	svc := newAnalysisService(t, &fakeOllama{})

	raw := strings.Repeat("football analysis ", 100)
	result := svc.ParseSportsAnalysis(raw)
	if len(result.Summary) > 503 {
		t.Fatalf("summary length = %d, want <= 503", len(result.Summary))
	}
	if !strings.HasSuffix(result.Summary, "...") {
		t.Fatal("truncated summary missing ellipsis")
	}
}

func TestTruncateKeepsRunesWhole(t *testing.T) {
	// 3-byte runes; 500 is not a multiple of 3, so a byte-index cut would
	// split the rune at the boundary.
	raw := strings.Repeat("⚽", 200)
	got := truncate(raw, 500)
	if !utf8.ValidString(got) {
		t.Fatalf("truncated string is not valid UTF-8: %q", got[len(got)-6:])
	}
	if !strings.HasSuffix(got, "...") {
		t.Fatal("truncated string missing ellipsis")
	}
	if len(got) > 503 {
		t.Fatalf("length = %d, want <= 503", len(got))
	}

	if short := truncate("plain", 500); short != "plain" {
		t.Fatalf("short input altered: %q", short)
	}
}

func TestParseReasoningAnalysis(t *testing.T) {
	svc := newAnalysisService(t, &fakeOllama{})

	raw := `The home side is in better form.

Key factor: their defense has allowed 12 points per game.
Important: the visiting quarterback is listed as questionable.

Estimated odds are 2:1 in favor of the home team.
Recommendation: back the home side on the moneyline.`

	result := svc.ParseReasoningAnalysis(raw)
	if result.Reasoning != raw {
		t.Fatal("reasoning text not kept verbatim")
	}
	if result.EstimatedOdds == nil {
		t.Fatal("odds not extracted")
	}
	if result.EstimatedOdds.OddsA != 2 || result.EstimatedOdds.OddsB != 1 {
		t.Fatalf("odds = %v:%v", result.EstimatedOdds.OddsA, result.EstimatedOdds.OddsB)
	}
	if len(result.Factors) != 2 {
		t.Fatalf("factors = %v", result.Factors)
	}
	if result.Recommendation != "back the home side on the moneyline" {
		t.Fatalf("recommendation = %q", result.Recommendation)
	}
}

func TestParseReasoningAnalysisPlainText(t *testing.T) {
	svc := newAnalysisService(t, &fakeOllama{})

	result := svc.ParseReasoningAnalysis("Hard to say without more data.")
	if result.EstimatedOdds != nil {
		t.Fatalf("odds = %v, want nil", result.EstimatedOdds)
	}
	if result.Recommendation != "" {
		t.Fatalf("recommendation = %q, want empty", result.Recommendation)
	}
}

func TestBuildContextBlock(t *testing.T) {
	svc := newAnalysisService(t, &fakeOllama{})

	block := svc.BuildContextBlock([]*types.Article{
		{Title: "Game one", Summary: "Close win."},
		nil,
		{Title: "Game two", Content: "A long recap of the second game."},
	})
	if !strings.Contains(block, "Article: Game one") || !strings.Contains(block, "Close win.") {
		t.Fatalf("block missing first article: %q", block)
	}
	if !strings.Contains(block, "A long recap") {
		t.Fatalf("block missing content fallback: %q", block)
	}
}

func TestRenderConversation(t *testing.T) {
	tests := []struct {
		name     string
		messages []ChatMessage
		want     string
		wantErr  bool
	}{
		{
			name: "single user turn",
			messages: []ChatMessage{
				{Role: "user", Content: "Who wins tonight?"},
			},
			want: "User: Who wins tonight?\nAssistant:",
		},
		{
			name: "multi turn",
			messages: []ChatMessage{
				{Role: "user", Content: "Hi"},
				{Role: "assistant", Content: "Hello"},
				{Role: "user", Content: "Odds?"},
			},
			want: "User: Hi\nAssistant: Hello\nUser: Odds?\nAssistant:",
		},
		{
			name:     "empty conversation",
			messages: nil,
			wantErr:  true,
		},
		{
			name: "ends with assistant",
			messages: []ChatMessage{
				{Role: "user", Content: "Hi"},
				{Role: "assistant", Content: "Hello"},
			},
			wantErr: true,
		},
		{
			name: "unknown role",
			messages: []ChatMessage{
				{Role: "system", Content: "x"},
				{Role: "user", Content: "Hi"},
			},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := renderConversation(tt.messages)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("prompt = %q, want %q", got, tt.want)
			}
		})
	}
}
