// Package aireview reviews inspection documents: an Ollama-backed
// reviewer with a deterministic keyword fallback, plus the compliance
// evaluator for reference-bundle checks.
package aireview

// Review statuses, mirrored by the document model.
const (
	StatusCheck  = "check"
	StatusAlerta = "alerta"
	StatusError  = "error"
)

// ReviewResult is the verdict for one document.
type ReviewResult struct {
	Status   string   `json:"status"`
	Summary  string   `json:"summary"`
	Alerts   []string `json:"alerts"`
	Missing  []string `json:"missing"`
	Evidence []string `json:"evidence"`
}

func normalizeStatus(status string) string {
	switch status {
	case StatusCheck, StatusAlerta, StatusError:
		return status
	}
	return StatusCheck
}

// Recommendation suggests resources for a visit based on document text.
type Recommendation struct {
	Type     string `json:"type"`
	Quantity int    `json:"quantity"`
	Reason   string `json:"reason"`
}

// ChatMessage is one turn of the assistant conversation.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}
