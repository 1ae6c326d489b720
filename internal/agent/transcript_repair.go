package agent

import "github.com/4ug-aug/envoy-v2/pkg/models"

// repairHistory drops tool-result entries that don't match a pending
// tool-call id from the immediately preceding assistant entry. A provider
// or storage round-trip can otherwise leave a tool turn referencing a call
// id the model never issued, which a strict provider SDK rejects outright.
func repairHistory(history []models.ConversationEntry) []models.ConversationEntry {
	if len(history) == 0 {
		return history
	}

	pending := make(map[string]struct{})
	repaired := make([]models.ConversationEntry, 0, len(history))

	for _, entry := range history {
		switch entry.Role {
		case models.RoleAssistant:
			pending = make(map[string]struct{})
			for _, part := range entry.Parts {
				if part.ToolCall != nil && part.ToolCall.ID != "" {
					pending[part.ToolCall.ID] = struct{}{}
				}
			}
			repaired = append(repaired, entry)
		case models.RoleTool:
			fixed := make([]models.ToolTurnResult, 0, len(entry.Results))
			for _, result := range entry.Results {
				if _, ok := pending[result.ToolCallID]; !ok {
					continue
				}
				delete(pending, result.ToolCallID)
				fixed = append(fixed, result)
			}
			if len(fixed) == 0 {
				continue
			}
			repaired = append(repaired, models.ConversationEntry{Role: models.RoleTool, Results: fixed})
		default:
			pending = make(map[string]struct{})
			repaired = append(repaired, entry)
		}
	}

	return repaired
}
