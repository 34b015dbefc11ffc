package store

import "time"

// ContractSummary is a row of contract_summaries, written by the contract
// analysis workflow.
type ContractSummary struct {
	ID         string     `json:"id"`
	Resume     string     `json:"resume"`
	FileName   *string    `json:"file_name,omitempty"`
	ContractID *string    `json:"contract_id,omitempty"`
	CreatedAt  *time.Time `json:"created_at,omitempty"`
}

// Email is a row of emails, synced from Gmail by an external job.
type Email struct {
	ID             string     `json:"id"`
	FromAddress    *string    `json:"from_address,omitempty"`
	FromName       *string    `json:"from_name,omitempty"`
	Subject        *string    `json:"subject,omitempty"`
	Snippet        *string    `json:"snippet,omitempty"`
	BodyText       *string    `json:"body_text,omitempty"`
	LabelIDs       []string   `json:"label_ids"`
	IsRead         bool       `json:"is_read"`
	IsStarred      bool       `json:"is_starred"`
	IsImportant    bool       `json:"is_important"`
	HasAttachments bool       `json:"has_attachments"`
	Category       *string    `json:"category,omitempty"`
	ReceivedAt     *time.Time `json:"received_at,omitempty"`
	UpdatedAt      *time.Time `json:"updated_at,omitempty"`
}
