package types

// SportsAnalysisResult is the structured form of a sports-specialist model
// response. When the model output cannot be decoded the parser fills this in
// heuristically and marks Metadata.Fallback.
type SportsAnalysisResult struct {
	Tags     []string         `json:"tags"`
	Entities AnalysisEntities `json:"entities"`
	Summary  string           `json:"summary"`
	Score    float64          `json:"score"`
	Metadata AnalysisMetadata `json:"metadata"`
}

type AnalysisEntities struct {
	Teams       []string `json:"teams"`
	Players     []string `json:"players"`
	Injuries    []string `json:"injuries"`
	OddsRelated []string `json:"odds_related"`
}

type AnalysisMetadata struct {
	Confidence     float64  `json:"confidence"`
	KeyInsights    []string `json:"key_insights"`
	BettingSignals []string `json:"betting_signals"`
	Fallback       bool     `json:"fallback,omitempty"`
	Error          string   `json:"error,omitempty"`
}

// ReasoningAnalysisResult retains the full reasoning text verbatim; the
// auxiliary fields are best-effort extractions and stay empty when nothing
// matches.
type ReasoningAnalysisResult struct {
	Reasoning      string         `json:"reasoning"`
	EstimatedOdds  *EstimatedOdds `json:"estimated_odds,omitempty"`
	Factors        []string       `json:"factors"`
	Recommendation string         `json:"recommendation,omitempty"`
}

type EstimatedOdds struct {
	TeamA      string  `json:"team_a"`
	TeamB      string  `json:"team_b"`
	OddsA      float64 `json:"odds_a"`
	OddsB      float64 `json:"odds_b"`
	Confidence float64 `json:"confidence"`
}
