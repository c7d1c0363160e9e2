package evaluation

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/echodoc/internal/interfaces"
	"github.com/ternarybob/echodoc/internal/models"
)

// Judge scores answers with the default chat model. It asks for a JSON
// object of 1-10 scores; correctness and oracle_agreement are requested
// only when a reference answer exists.
type Judge struct {
	llm    interfaces.LLMService
	logger arbor.ILogger
}

// NewJudge creates an LLM-backed judge
func NewJudge(llm interfaces.LLMService, logger arbor.ILogger) interfaces.JudgeService {
	return &Judge{
		llm:    llm,
		logger: logger,
	}
}

func (j *Judge) Judge(ctx context.Context, question, answer, contextText, reference string) (map[string]float64, error) {
	prompt := j.buildPrompt(question, answer, contextText, reference)

	text, err := j.llm.Generate(ctx, []interfaces.Message{
		{Role: "user", Content: prompt},
	}, "")
	if err != nil {
		return nil, err
	}

	scores, err := parseScores(text, reference != "")
	if err != nil {
		return nil, models.NewCapabilityError(err, "judge returned unusable scores")
	}
	return scores, nil
}

func (j *Judge) buildPrompt(question, answer, contextText, reference string) string {
	var sb strings.Builder

	sb.WriteString("Evaluate the following answer based on the question and context. ")
	sb.WriteString("Provide a JSON object with the following keys: 'relevancy', 'faithfulness', 'completeness', and 'clarity'.")
	if reference != "" {
		sb.WriteString(" Also, compare the answer with the provided ground truth and rate its correctness (1-10).")
		sb.WriteString(" Additionally, compare the answer with the oracle answer and rate their agreement (1-10).")
	}

	sb.WriteString(fmt.Sprintf("\n\nQuestion: %s\nAnswer: %s\nContext: %s\n", question, answer, contextText))
	if reference != "" {
		sb.WriteString(fmt.Sprintf("Ground truth: %s\nOracle answer: %s\n", reference, reference))
	}

	sb.WriteString("\nYour output must be a valid JSON object only. For example: ")
	sb.WriteString(`{"relevancy": 8, "faithfulness": 7, "completeness": 6, "clarity": 9`)
	if reference != "" {
		sb.WriteString(`, "correctness": 8, "oracle_agreement": 7`)
	}
	sb.WriteString("}")

	return sb.String()
}

// parseScores extracts the metric map from judge output. The four base
// metrics are required; correctness and oracle_agreement are required
// exactly when a reference was supplied.
func parseScores(text string, hasReference bool) (map[string]float64, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no JSON object in judge response")
	}

	var raw map[string]float64
	if err := json.Unmarshal([]byte(text[start:end+1]), &raw); err != nil {
		return nil, fmt.Errorf("invalid judge JSON: %w", err)
	}

	required := []string{
		models.MetricRelevancy,
		models.MetricFaithfulness,
		models.MetricCompleteness,
		models.MetricClarity,
	}
	if hasReference {
		required = append(required, models.MetricCorrectness, models.MetricOracleAgreement)
	}

	scores := make(map[string]float64, len(required))
	for _, metric := range required {
		value, ok := raw[metric]
		if !ok {
			return nil, fmt.Errorf("metric %q missing from judge response", metric)
		}
		if value < 1 || value > 10 {
			return nil, fmt.Errorf("metric %q out of range: %v", metric, value)
		}
		scores[metric] = value
	}
	return scores, nil
}
