package domain

import "time"

// DisputeStatus is the review state of a dispute.
type DisputeStatus string

const (
	DisputeOpen        DisputeStatus = "open"
	DisputeUnderReview DisputeStatus = "under_review"
	DisputeResolved    DisputeStatus = "resolved"
)

// DisputeOutcome decides where the escrowed funds go.
type DisputeOutcome string

const (
	OutcomeRefund  DisputeOutcome = "refund"
	OutcomeRelease DisputeOutcome = "release"
)

// Valid reports whether o is a known outcome.
func (o DisputeOutcome) Valid() bool {
	return o == OutcomeRefund || o == OutcomeRelease
}

// Dispute Model
type Dispute struct {
	ID         uint              `gorm:"primaryKey" json:"id"`
	OrderID    uint              `gorm:"uniqueIndex;not null" json:"order_id"`
	Order      *Order            `json:"order,omitempty"`
	BuyerID    uint              `gorm:"index;not null" json:"buyer_id"`
	Reason     string            `gorm:"type:text;not null" json:"reason"`
	Status     DisputeStatus     `gorm:"size:16;index;not null" json:"status"`
	Outcome    DisputeOutcome    `gorm:"size:16" json:"outcome,omitempty"`
	ResolvedBy *uint             `json:"resolved_by,omitempty"`
	ResolvedAt *time.Time        `json:"resolved_at,omitempty"`
	Evidence   []DisputeEvidence `gorm:"constraint:OnDelete:CASCADE;" json:"evidence,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at"`
}

// DisputeEvidence Model
type DisputeEvidence struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	DisputeID     uint      `gorm:"index;not null" json:"dispute_id"`
	SubmittedBy   uint      `gorm:"not null" json:"submitted_by"`
	Note          string    `gorm:"type:text" json:"note"`
	AttachmentURL string    `gorm:"size:1024" json:"attachment_url,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}
