package models

// ChatMode selects the generation strategy for a chat request
type ChatMode string

const (
	// ChatModeRAG retrieves context and answers with the default chat model
	ChatModeRAG ChatMode = "rag"
	// ChatModeRAFT retrieves context and answers with the job's fine-tuned model
	ChatModeRAFT ChatMode = "raft"
	// ChatModeFineTunedOnly answers with the fine-tuned model, no retrieval
	ChatModeFineTunedOnly ChatMode = "fine_tuned_only"
)

// ParseChatMode validates a mode string. An empty mode defaults to rag.
func ParseChatMode(s string) (ChatMode, error) {
	switch ChatMode(s) {
	case "":
		return ChatModeRAG, nil
	case ChatModeRAG, ChatModeRAFT, ChatModeFineTunedOnly:
		return ChatMode(s), nil
	default:
		return "", NewValidationError("unknown chat mode %q (expected rag, raft or fine_tuned_only)", s)
	}
}

// RequiresFineTune returns true for modes that target the fine-tuned model
func (m ChatMode) RequiresFineTune() bool {
	return m == ChatModeRAFT || m == ChatModeFineTunedOnly
}

// UsesRetrieval returns true for modes that inject retrieved context
func (m ChatMode) UsesRetrieval() bool {
	return m == ChatModeRAG || m == ChatModeRAFT
}

// ChatResponse is the result of one generation request
type ChatResponse struct {
	JobID         string   `json:"job_id"`
	Mode          ChatMode `json:"mode"`
	Answer        string   `json:"answer"`
	Model         string   `json:"model"`
	ContextChunks int      `json:"context_chunks"`
}
