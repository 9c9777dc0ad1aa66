package domain

import (
	"nexus-backend/pkg/ai"
)

func NewUserMessage(sessionID, userID, content string) *StoredMessage {
	return &StoredMessage{SessionID: sessionID, UserID: userID, Role: ai.RoleUser, Content: content}
}

func NewAssistantMessage(sessionID, userID, content string, calls []ai.ToolCall) *StoredMessage {
	return &StoredMessage{SessionID: sessionID, UserID: userID, Role: ai.RoleAssistant, Content: content, ToolCalls: calls}
}

// NewToolResultsMessage batches every result of one model turn into a single row
func NewToolResultsMessage(sessionID, userID string, results []ToolResult) *StoredMessage {
	return &StoredMessage{SessionID: sessionID, UserID: userID, Role: ai.RoleTool, ToolResults: results}
}

// ToChatMessages expands stored rows into the message list sent to the model.
// Each batched tool row becomes one message per result. Leading rows before the
// first user message are dropped so a truncated window never starts with tool
// results whose request fell outside it.
func ToChatMessages(rows []*StoredMessage) []ai.Message {
	start := len(rows)
	for i, row := range rows {
		if row.Role == ai.RoleUser {
			start = i
			break
		}
	}

	msgs := make([]ai.Message, 0, len(rows)-start)
	for _, row := range rows[start:] {
		switch row.Role {
		case ai.RoleTool:
			for _, r := range row.ToolResults {
				msgs = append(msgs, ai.Message{
					Role:       ai.RoleTool,
					Content:    r.Content,
					ToolCallID: r.ToolCallID,
					Name:       r.Name,
				})
			}
		case ai.RoleAssistant:
			msgs = append(msgs, ai.Message{Role: ai.RoleAssistant, Content: row.Content, ToolCalls: row.ToolCalls})
		case ai.RoleUser:
			msgs = append(msgs, ai.Message{Role: ai.RoleUser, Content: row.Content})
		}
	}
	return msgs
}
