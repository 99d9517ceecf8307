package models

import "time"

const (
	ScoreMin = 1
	ScoreMax = 10
)

// Score holds one judge's evaluation of one entry. At most one row exists
// per (entry_id, judge_id); re-submitting replaces the previous values.
type Score struct {
	EntryID    int       `json:"entry_id"`
	JudgeID    int       `json:"judge_id"`
	Creativity int       `json:"creativity_score"`
	Execution  int       `json:"execution_score"`
	Impact     int       `json:"impact_score"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (s Score) Total() int {
	return s.Creativity + s.Execution + s.Impact
}

// EntrySummary aggregates scores for one entry on the admin dashboard.
type EntrySummary struct {
	EntryID       int     `json:"entry_id"`
	EntryNumber   int     `json:"entry_number"`
	ScoreCount    int     `json:"score_count"`
	AvgCreativity float64 `json:"avg_creativity"`
	AvgExecution  float64 `json:"avg_execution"`
	AvgImpact     float64 `json:"avg_impact"`
	AvgTotal      float64 `json:"avg_total"`
}
