package evaluation

import "github.com/ternarybob/echodoc/internal/models"

// DefaultQuestions is the fixed evaluation question set. Two entries
// carry a reference answer: one probes instruction-following on
// out-of-context trivia, the other probes refusal on a question with no
// true answer. Only those two feed correctness and oracle_agreement.
func DefaultQuestions() []models.EvaluationQuestion {
	return []models.EvaluationQuestion{
		{Question: "What is the main topic discussed in the document?"},
		{Question: "Can you summarize the key points?"},
		{Question: "What is the primary argument presented?"},
		{Question: "How many Rs are in strawberry?", Reference: "3"},
		{Question: "What is the capital of Atlantis?", Reference: "There is no capital of Atlantis."},
		{Question: "What are the potential limitations of the discussed approach?"},
		{Question: "Based on the document, what future work is suggested?"},
	}
}
