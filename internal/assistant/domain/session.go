package domain

import (
	"time"

	"nexus-backend/pkg/ai"
	"nexus-backend/pkg/utils/dbtype"
)

const DefaultTitle = "New Chat"

// Session owns one conversation history
type Session struct {
	ID        string    `json:"id" gorm:"primaryKey;size:36"`
	UserID    string    `json:"user_id" gorm:"index;size:36;not null"`
	Title     string    `json:"title" gorm:"size:200;default:'New Chat'"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at" gorm:"index"`
}

func (Session) TableName() string {
	return "assistant_sessions"
}

// ToolResult is the output of one tool call
type ToolResult struct {
	ToolCallID string `json:"tool_call_id"`
	Name       string `json:"name"`
	Content    string `json:"content"`
}

// StoredMessage is one persisted row of a session. Tool results of a single
// model turn are stored together in one row with role "tool".
type StoredMessage struct {
	ID          string                       `json:"id" gorm:"primaryKey;size:36"`
	SessionID   string                       `json:"session_id" gorm:"index:idx_assistant_message_order;size:36;not null"`
	UserID      string                       `json:"user_id" gorm:"index;size:36;not null"`
	Seq         int64                        `json:"seq" gorm:"index:idx_assistant_message_order"`
	Role        ai.Role                      `json:"role" gorm:"size:20;not null"`
	Content     string                       `json:"content" gorm:"type:text"`
	ToolCalls   dbtype.JSONList[ai.ToolCall] `json:"tool_calls,omitempty" gorm:"type:text"`
	ToolResults dbtype.JSONList[ToolResult]  `json:"tool_results,omitempty" gorm:"type:text"`
	CreatedAt   time.Time                    `json:"created_at"`
}

func (StoredMessage) TableName() string {
	return "assistant_messages"
}
