package models

// Metric names reported by the judging capability. All scores are on a
// 1-10 scale. MetricOracleAgreement is reported only for questions that
// carry a reference answer.
const (
	MetricRelevancy       = "relevancy"
	MetricFaithfulness    = "faithfulness"
	MetricCompleteness    = "completeness"
	MetricClarity         = "clarity"
	MetricCorrectness     = "correctness"
	MetricOracleAgreement = "oracle_agreement"
)

// AllMetrics lists every metric an evaluation run may report
var AllMetrics = []string{
	MetricRelevancy,
	MetricFaithfulness,
	MetricCompleteness,
	MetricClarity,
	MetricCorrectness,
	MetricOracleAgreement,
}

// EvaluationQuestion is one entry of the evaluation question set.
// Reference, when set, is the ground-truth answer used for the
// oracle_agreement metric.
type EvaluationQuestion struct {
	Question  string `json:"question"`
	Reference string `json:"reference,omitempty"`
}

// QuestionResult holds the answer and judge scores for one question.
// Scores contains only the metrics the judge reported for this question.
type QuestionResult struct {
	Question  string             `json:"question"`
	Answer    string             `json:"answer"`
	Reference string             `json:"reference,omitempty"`
	Scores    map[string]float64 `json:"scores"`
	Error     string             `json:"error,omitempty"`
}

// EvaluationResult is the self-contained outcome of one evaluation run.
// Aggregate maps each metric to its arithmetic mean across the questions
// that reported it; metrics no question reported are absent rather than
// zero. Results are returned to the caller and never persisted.
type EvaluationResult struct {
	JobID       string             `json:"job_id"`
	Mode        ChatMode           `json:"mode"`
	PerQuestion []QuestionResult   `json:"per_question"`
	Aggregate   map[string]float64 `json:"aggregate"`
}
