package models

import "time"

// CustomTool is a user-authored, sandbox-executed tool persisted by the
// catalog (spec §3, §4.D). A nil IntegrationID makes it a standalone tool,
// exposed as custom_<name>; a non-nil one groups it under an Integration,
// exposed as <integration_name>_<name>.
type CustomTool struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Description   string    `json:"description"`
	InputSchema   string    `json:"input_schema"`
	Code          string    `json:"code"`
	Enabled       bool      `json:"enabled"`
	IntegrationID *string   `json:"integration_id,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}
