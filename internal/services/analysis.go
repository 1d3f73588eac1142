package services

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sportlens/sportlens-backend/internal/logger"
	"github.com/sportlens/sportlens-backend/internal/types"
	"github.com/sportlens/sportlens-backend/internal/utils"
)

const sportsAgentName = "sports_specialist"

// AnalysisService owns prompt construction, model selection, and the parsing
// of raw model output into structured results. It performs no job tracking
// itself; the JobManager drives it.
type AnalysisService struct {
	log            *logger.Logger
	ollama         OllamaClient
	sportsModel    string
	reasoningModel string
}

func NewAnalysisService(log *logger.Logger, ollama OllamaClient) *AnalysisService {
	return &AnalysisService{
		log:            log.With("service", "AnalysisService"),
		ollama:         ollama,
		sportsModel:    utils.GetEnv("SPORTS_AGENT_MODEL", "llava:13b", log),
		reasoningModel: utils.GetEnv("REASONING_AGENT_MODEL", "hir0rameel/qwen-claude:latest", log),
	}
}

func (s *AnalysisService) SportsModel() string    { return s.sportsModel }
func (s *AnalysisService) ReasoningModel() string { return s.reasoningModel }

// SelectModel verifies the inference service is reachable and resolves the
// designated model, falling back to the first available one. It fails only
// when the service is down or truly no model exists.
func (s *AnalysisService) SelectModel(ctx context.Context, designated string) (string, error) {
	if !s.ollama.CheckHealth(ctx) {
		return "", fmt.Errorf("ollama service unavailable")
	}
	available, err := s.ollama.ListModels(ctx)
	if err != nil {
		return "", fmt.Errorf("ollama service unavailable: %w", err)
	}
	for _, name := range available {
		if name == designated {
			return designated, nil
		}
	}
	if len(available) == 0 {
		return "", fmt.Errorf("no ollama models available")
	}
	s.log.Warn("Designated model not found, falling back", "designated", designated, "fallback", available[0])
	return available[0], nil
}

func (s *AnalysisService) BuildSportsPrompt(article *types.Article) string {
	content := article.Content
	if content == "" {
		content = article.Summary
	}
	author := article.Author
	if author == "" {
		author = "Unknown"
	}
	published := ""
	if article.PublishedAt != nil {
		published = article.PublishedAt.Format(time.RFC3339)
	}
	return strings.TrimSpace(fmt.Sprintf(`
Analyze the following sports article and extract key insights:

Title: %s
Content: %s
Author: %s
Published: %s

Please provide a structured analysis including:
1. Relevant tags (sports, teams, events, etc.)
2. Extracted entities (teams, players, injuries, odds-related info)
3. Summary of key points
4. Confidence score (0-1)
5. Betting signals and insights

Respond in JSON format with the following structure:
{
  "tags": ["tag1", "tag2"],
  "entities": {
    "teams": ["team1", "team2"],
    "players": ["player1", "player2"],
    "injuries": ["injury1"],
    "odds_related": ["odds_info1"]
  },
  "summary": "Brief summary",
  "score": 0.85,
  "metadata": {
    "confidence": 0.85,
    "key_insights": ["insight1", "insight2"],
    "betting_signals": ["signal1", "signal2"]
  }
}
`, article.Title, content, author, published))
}

func (s *AnalysisService) BuildReasoningPrompt(prompt, contextBlock string) string {
	return strings.TrimSpace(fmt.Sprintf(`
Context from recent sports articles:
%s

User Question: %s

Please provide a comprehensive analysis including:
1. Detailed reasoning based on the context
2. Estimated odds if applicable
3. Key factors influencing the analysis
4. Recommendations

Respond in a clear, structured format.
`, contextBlock, prompt))
}

func (s *AnalysisService) BuildContextBlock(articles []*types.Article) string {
	blocks := make([]string, 0, len(articles))
	for _, article := range articles {
		if article == nil {
			continue
		}
		summary := article.Summary
		if summary == "" {
			summary = truncate(article.Content, 200)
		}
		if summary == "" {
			summary = "No summary available"
		}
		published := ""
		if article.PublishedAt != nil {
			published = article.PublishedAt.Format(time.RFC3339)
		}
		blocks = append(blocks, strings.TrimSpace(fmt.Sprintf(
			"Article: %s\nSummary: %s\nPublished: %s", article.Title, summary, published)))
	}
	return strings.Join(blocks, "\n\n")
}

func (s *AnalysisService) SportsSystemPrompt() string {
	return `You are a sports analysis specialist with expertise in:
- Team performance analysis
- Player statistics and form
- Injury impact assessment
- Betting odds analysis
- Sports news interpretation

Your role is to analyze sports articles and extract structured insights that can be used for betting analysis and predictions. Always respond in the requested JSON format.`
}

func (s *AnalysisService) ReasoningSystemPrompt() string {
	return `You are an advanced sports reasoning agent with expertise in:
- Statistical analysis
- Probability assessment
- Betting odds calculation
- Risk evaluation
- Pattern recognition in sports data

Your role is to provide comprehensive analysis and reasoning for sports-related questions, particularly focusing on betting scenarios and odds estimation. Provide clear, well-reasoned responses with supporting evidence.`
}

// ParseSportsAnalysis turns raw model output into a structured result. It
// first tries a strict JSON decode (unwrapping fenced or inline JSON), and on
// any failure degrades to a heuristic extraction. It never returns an error.
func (s *AnalysisService) ParseSportsAnalysis(raw string) types.SportsAnalysisResult {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return types.SportsAnalysisResult{
			Tags:     []string{"sports", "analysis_failed"},
			Entities: emptyEntities(),
			Summary:  "Analysis completed but no response received from AI model",
			Score:    0,
			Metadata: types.AnalysisMetadata{
				KeyInsights: []string{"Analysis failed - no AI response"},
				Fallback:    true,
				Error:       "No response from model",
			},
		}
	}

	jsonContent := extractJSON(trimmed)
	var parsed struct {
		Tags     []string                `json:"tags"`
		Entities *types.AnalysisEntities `json:"entities"`
		Summary  string                  `json:"summary"`
		Score    *float64                `json:"score"`
		Metadata *types.AnalysisMetadata `json:"metadata"`
	}
	if err := json.Unmarshal([]byte(jsonContent), &parsed); err != nil {
		s.log.Debug("Structured decode failed, using heuristic fallback", "error", err)
		return s.fallbackAnalysis(trimmed)
	}

	result := types.SportsAnalysisResult{
		Tags:     parsed.Tags,
		Entities: emptyEntities(),
		Summary:  parsed.Summary,
		Score:    0.5,
	}
	if result.Tags == nil {
		result.Tags = []string{}
	}
	if parsed.Entities != nil {
		result.Entities = normalizeEntities(*parsed.Entities)
	}
	if parsed.Score != nil {
		result.Score = *parsed.Score
	}
	if parsed.Metadata != nil {
		result.Metadata = *parsed.Metadata
	}
	return result
}

// fallbackAnalysis derives a structured result directly from the text:
// heuristic, never authoritative, and marked as such.
func (s *AnalysisService) fallbackAnalysis(raw string) types.SportsAnalysisResult {
	return types.SportsAnalysisResult{
		Tags:     extractSportTags(raw),
		Entities: extractEntitiesFromText(raw),
		Summary:  truncate(raw, 500),
		Score:    0.5,
		Metadata: types.AnalysisMetadata{
			Confidence:     0.3,
			KeyInsights:    []string{"Analysis completed with text fallback"},
			BettingSignals: []string{},
			Fallback:       true,
		},
	}
}

// ParseReasoningAnalysis always succeeds structurally: the full text is kept
// verbatim and the auxiliary fields are best-effort pattern extractions.
func (s *AnalysisService) ParseReasoningAnalysis(raw string) types.ReasoningAnalysisResult {
	return types.ReasoningAnalysisResult{
		Reasoning:      raw,
		EstimatedOdds:  extractOdds(raw),
		Factors:        extractFactors(raw),
		Recommendation: extractRecommendation(raw),
	}
}

var fencedJSONRe = regexp.MustCompile("```(?:json)?\\s*")

// extractJSON unwraps model prose around a JSON object: fenced blocks first,
// then the first balanced top-level object found by brace scanning.
func extractJSON(text string) string {
	if idx := fencedJSONRe.FindStringIndex(text); idx != nil {
		rest := text[idx[1]:]
		if end := strings.Index(rest, "```"); end >= 0 {
			rest = rest[:end]
		}
		if candidate := balancedObject(rest); candidate != "" {
			return candidate
		}
	}
	if candidate := balancedObject(text); candidate != "" {
		return candidate
	}
	return text
}

func balancedObject(text string) string {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return ""
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		ch := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1]
			}
		}
	}
	return ""
}

func emptyEntities() types.AnalysisEntities {
	return types.AnalysisEntities{
		Teams:       []string{},
		Players:     []string{},
		Injuries:    []string{},
		OddsRelated: []string{},
	}
}

func normalizeEntities(e types.AnalysisEntities) types.AnalysisEntities {
	if e.Teams == nil {
		e.Teams = []string{}
	}
	if e.Players == nil {
		e.Players = []string{}
	}
	if e.Injuries == nil {
		e.Injuries = []string{}
	}
	if e.OddsRelated == nil {
		e.OddsRelated = []string{}
	}
	return e
}

var sportKeywords = []string{"football", "soccer", "basketball", "tennis", "baseball", "hockey", "golf", "racing"}

func extractSportTags(text string) []string {
	lower := strings.ToLower(text)
	tags := make([]string, 0, 5)
	for _, keyword := range sportKeywords {
		if strings.Contains(lower, keyword) {
			tags = append(tags, keyword)
			if len(tags) == 5 {
				break
			}
		}
	}
	if len(tags) == 0 {
		return []string{"sports", "general"}
	}
	return tags
}

var capitalizedWordRe = regexp.MustCompile(`^[A-Z][a-z]+`)

func extractEntitiesFromText(text string) types.AnalysisEntities {
	entities := emptyEntities()
	for _, word := range strings.Fields(text) {
		if len(word) > 2 && capitalizedWordRe.MatchString(word) {
			entities.Teams = append(entities.Teams, word)
			if len(entities.Teams) == 3 {
				break
			}
		}
	}
	return entities
}

var oddsRe = regexp.MustCompile(`(\d+(?:\.\d+)?):(\d+(?:\.\d+)?)|(\d+(?:\.\d+)?)/(\d+(?:\.\d+)?)`)

func extractOdds(text string) *types.EstimatedOdds {
	m := oddsRe.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	a, b := m[1], m[2]
	if a == "" {
		a, b = m[3], m[4]
	}
	oddsA, _ := strconv.ParseFloat(a, 64)
	oddsB, _ := strconv.ParseFloat(b, 64)
	return &types.EstimatedOdds{
		TeamA:      "Team A",
		TeamB:      "Team B",
		OddsA:      oddsA,
		OddsB:      oddsB,
		Confidence: 0.7,
	}
}

var bulletPrefixRe = regexp.MustCompile(`^[-*\x{2022}]\s*`)

func extractFactors(text string) []string {
	factors := make([]string, 0, 5)
	for _, line := range strings.Split(text, "\n") {
		lower := strings.ToLower(line)
		if strings.Contains(lower, "factor") || strings.Contains(lower, "key") || strings.Contains(lower, "important") {
			factor := strings.TrimSpace(bulletPrefixRe.ReplaceAllString(strings.TrimSpace(line), ""))
			if len(factor) > 10 {
				factors = append(factors, factor)
				if len(factors) == 5 {
					break
				}
			}
		}
	}
	return factors
}

var recommendationRe = regexp.MustCompile(`(?i)(?:recommendation|suggestion|advice)[:\s]+([^.\n]+)`)

func extractRecommendation(text string) string {
	m := recommendationRe.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}

// truncate cuts on a rune boundary so a multi-byte character is never split.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	cut := maxLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
