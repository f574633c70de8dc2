package models

// EvaluationReport is the structured answer-quality score produced by the
// evaluator. Sub-score ceilings: accuracy 30, relevance 25, completeness 20,
// clarity 15, format 10; total is their sum.
type EvaluationReport struct {
	AccuracyScore     int      `json:"accuracy_score"`
	RelevanceScore    int      `json:"relevance_score"`
	CompletenessScore int      `json:"completeness_score"`
	ClarityScore      int      `json:"clarity_score"`
	FormatScore       int      `json:"format_score"`
	TotalScore        int      `json:"total_score"`
	Strengths         []string `json:"strengths"`
	Weaknesses        []string `json:"weaknesses"`
	Suggestions       []string `json:"suggestions"`
	OptimizedPrompt   string   `json:"optimized_prompt"`
}

// DefaultEvaluationReport is the all-zero fallback returned when the model
// never produces parseable JSON.
func DefaultEvaluationReport() EvaluationReport {
	return EvaluationReport{
		Strengths:   []string{"evaluation failed"},
		Weaknesses:  []string{"no valid evaluation result could be obtained"},
		Suggestions: []string{"check the evaluation prompt or model configuration"},
	}
}
