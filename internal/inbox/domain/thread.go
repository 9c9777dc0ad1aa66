package domain

import (
	"time"

	"nexus-backend/pkg/utils/dbtype"
)

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// IsElevated reports whether the thread deserves triage attention
func (p Priority) IsElevated() bool {
	return p == PriorityHigh || p == PriorityUrgent
}

type ThreadStatus string

const (
	ThreadStatusActive   ThreadStatus = "active"
	ThreadStatusArchived ThreadStatus = "archived"
)

type Direction string

const (
	DirectionInbound  Direction = "inbound"
	DirectionOutbound Direction = "outbound"
)

// Thread is one conversation imported from a mailbox
type Thread struct {
	ID            string             `json:"id" gorm:"primaryKey"`
	UserID        string             `json:"user_id" gorm:"index;uniqueIndex:idx_thread_external;not null"`
	ExternalID    string             `json:"external_id,omitempty" gorm:"uniqueIndex:idx_thread_external"`
	Channel       string             `json:"channel" gorm:"default:email"`
	Subject       string             `json:"subject"`
	Snippet       string             `json:"snippet" gorm:"type:text"`
	Participants  dbtype.StringArray `json:"participants" gorm:"type:text"`
	Priority      Priority           `json:"priority" gorm:"default:normal"`
	Status        ThreadStatus       `json:"status" gorm:"default:active;index"`
	IsUnread      bool               `json:"is_unread"`
	HasDraft      bool               `json:"has_draft"`
	LastMessageAt time.Time          `json:"last_message_at" gorm:"index"`
	CreatedAt     time.Time          `json:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at"`
}

// Message belongs to a Thread
type Message struct {
	ID         string             `json:"id" gorm:"primaryKey"`
	ThreadID   string             `json:"thread_id" gorm:"index;not null"`
	UserID     string             `json:"user_id" gorm:"index;uniqueIndex:idx_message_external;not null"`
	ExternalID string             `json:"external_id,omitempty" gorm:"uniqueIndex:idx_message_external"`
	FromEmail  string             `json:"from_email"`
	FromName   string             `json:"from_name,omitempty"`
	To         dbtype.StringArray `json:"to" gorm:"type:text"`
	Subject    string             `json:"subject"`
	Body       string             `json:"body" gorm:"type:text"`
	Direction  Direction          `json:"direction"`
	SentAt     time.Time          `json:"sent_at" gorm:"index"`
	CreatedAt  time.Time          `json:"created_at"`
}

// Draft is a reply prepared for a thread, either by the assistant or the user
type Draft struct {
	ID         string             `json:"id" gorm:"primaryKey"`
	UserID     string             `json:"user_id" gorm:"index;not null"`
	ThreadID   string             `json:"thread_id" gorm:"index"`
	To         dbtype.StringArray `json:"to" gorm:"type:text"`
	Subject    string             `json:"subject"`
	Body       string             `json:"body" gorm:"type:text"`
	Confidence float64            `json:"confidence"`
	Source     string             `json:"source"`
	CreatedAt  time.Time          `json:"created_at"`
}

// Contact is a known correspondent
type Contact struct {
	ID                string    `json:"id" gorm:"primaryKey"`
	UserID            string    `json:"user_id" gorm:"uniqueIndex:idx_contact_email;not null"`
	Email             string    `json:"email" gorm:"uniqueIndex:idx_contact_email;not null"`
	Name              string    `json:"name"`
	Company           string    `json:"company,omitempty"`
	Phone             string    `json:"phone,omitempty"`
	Notes             string    `json:"notes,omitempty" gorm:"type:text"`
	LastInteractionAt time.Time `json:"last_interaction_at"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// Order is a storefront order synced for the user's shop
type Order struct {
	ID                string    `json:"id" gorm:"primaryKey"`
	UserID            string    `json:"user_id" gorm:"index;not null"`
	OrderNumber       string    `json:"order_number" gorm:"index"`
	CustomerEmail     string    `json:"customer_email" gorm:"index"`
	CustomerName      string    `json:"customer_name"`
	TotalPrice        float64   `json:"total_price"`
	Currency          string    `json:"currency"`
	FinancialStatus   string    `json:"financial_status"`
	FulfillmentStatus string    `json:"fulfillment_status"`
	PlacedAt          time.Time `json:"placed_at"`
	CreatedAt         time.Time `json:"created_at"`
}

// ThreadFilter narrows ListThreads
type ThreadFilter struct {
	Since           *time.Time
	IncludeArchived bool
	Limit           int
}
