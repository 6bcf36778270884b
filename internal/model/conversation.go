// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// MaxMessages is the maximum number of messages kept in conversation history.
// When exceeded, old messages are pruned to prevent unbounded memory growth.
const MaxMessages = 1000

// =============================================================================
// CONVERSATION TYPE
// =============================================================================

// Conversation holds a chat conversation with history and metadata.
//
// ServerConversationID correlates to the backend's session state. It is
// empty until the backend assigns one in the first terminal frame, after
// which it is threaded into every subsequent request for continuity.
type Conversation struct {
	// Identity
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Messages, in insertion order
	Messages []*Message `json:"messages"`

	// Backend session correlation
	ServerConversationID string `json:"server_conversation_id,omitempty"`

	// Summary of the retrieval context used for the latest answer
	ContextSummary string `json:"context_summary,omitempty"`
}

// NewConversation creates a new conversation with a generated ID.
func NewConversation() *Conversation {
	now := time.Now()
	return &Conversation{
		ID:        uuid.NewString(),
		CreatedAt: now,
		UpdatedAt: now,
		Messages:  make([]*Message, 0),
	}
}

// =============================================================================
// MESSAGE MANAGEMENT
// =============================================================================

// AddMessage adds a message to the conversation.
func (c *Conversation) AddMessage(msg *Message) {
	c.Messages = append(c.Messages, msg)
	c.UpdatedAt = time.Now()
	c.updateTitle()
	c.pruneOldMessages()
}

// AddUserMessage creates and adds a user message.
func (c *Conversation) AddUserMessage(content string) *Message {
	msg := NewUserMessage(content)
	c.AddMessage(msg)
	return msg
}

// AddAssistantMessage creates and adds a streaming assistant message.
func (c *Conversation) AddAssistantMessage() *Message {
	msg := NewAssistantMessage()
	c.AddMessage(msg)
	return msg
}

// AddErrorMessage creates and adds an assistant-role error message.
func (c *Conversation) AddErrorMessage(content string) *Message {
	msg := NewErrorMessage(content)
	c.AddMessage(msg)
	return msg
}

// GetLastMessage returns the most recent message, or nil if empty.
func (c *Conversation) GetLastMessage() *Message {
	if len(c.Messages) == 0 {
		return nil
	}
	return c.Messages[len(c.Messages)-1]
}

// InFlightMessage returns the streaming assistant message, or nil when no
// stream is active. At most one message can be in flight at a time.
func (c *Conversation) InFlightMessage() *Message {
	last := c.GetLastMessage()
	if last != nil && last.IsStreaming {
		return last
	}
	return nil
}

// AppendToLast appends a content delta to the in-flight message.
func (c *Conversation) AppendToLast(token string) {
	if msg := c.InFlightMessage(); msg != nil {
		msg.AppendToken(token)
	}
}

// FinalizeLast finalizes the in-flight message.
func (c *Conversation) FinalizeLast() {
	if msg := c.InFlightMessage(); msg != nil {
		msg.FinalizeStream()
		c.UpdatedAt = time.Now()
	}
}

// ReplaceLastWith swaps the in-flight placeholder for a finalized message.
// Used when a chart frame supersedes the text answer for the turn.
func (c *Conversation) ReplaceLastWith(msg *Message) {
	if len(c.Messages) == 0 {
		c.AddMessage(msg)
		return
	}
	c.Messages[len(c.Messages)-1] = msg
	c.UpdatedAt = time.Now()
}

// DropInFlight removes the streaming assistant message, discarding any
// partial content it accumulated. Used when a new send supersedes an
// active stream. Returns true when a message was removed.
func (c *Conversation) DropInFlight() bool {
	if c.InFlightMessage() == nil {
		return false
	}
	c.Messages = c.Messages[:len(c.Messages)-1]
	return true
}

// DropLastIfEmpty removes the trailing message when it carries nothing.
// Used on the error path to strip the empty in-flight placeholder before
// appending a visible error message.
func (c *Conversation) DropLastIfEmpty() bool {
	last := c.GetLastMessage()
	if last == nil || !last.IsEmpty() {
		return false
	}
	c.Messages = c.Messages[:len(c.Messages)-1]
	return true
}

// MessageCount returns the number of messages.
func (c *Conversation) MessageCount() int {
	return len(c.Messages)
}

// IsEmpty returns true if there are no messages.
func (c *Conversation) IsEmpty() bool {
	return len(c.Messages) == 0
}

// ClearHistory removes all messages and the backend session correlation.
func (c *Conversation) ClearHistory() {
	c.Messages = make([]*Message, 0)
	c.ServerConversationID = ""
	c.ContextSummary = ""
	c.UpdatedAt = time.Now()
}

// =============================================================================
// TITLE MANAGEMENT
// =============================================================================

// updateTitle auto-generates a title from the first user message if not set.
func (c *Conversation) updateTitle() {
	if c.Title != "" {
		return
	}
	for _, msg := range c.Messages {
		if msg.Role == RoleUser {
			title := strings.ReplaceAll(msg.Preview(50), "\n", " ")
			c.Title = strings.TrimSpace(title)
			return
		}
	}
}

// SetTitle manually sets the conversation title.
func (c *Conversation) SetTitle(title string) {
	c.Title = title
	c.UpdatedAt = time.Now()
}

// GetTitle returns the conversation title or a default.
func (c *Conversation) GetTitle() string {
	if c.Title != "" {
		return c.Title
	}
	return "New Conversation"
}

// =============================================================================
// METADATA
// =============================================================================

// ConversationMeta holds lightweight metadata for listing.
type ConversationMeta struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	MessageCount int       `json:"message_count"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	Preview      string    `json:"preview"`
}

// Preview returns a short preview of the conversation.
func (c *Conversation) Preview() string {
	if len(c.Messages) == 0 {
		return "Empty conversation"
	}
	for _, msg := range c.Messages {
		if msg.Role == RoleUser {
			return msg.Preview(100)
		}
	}
	return c.Messages[0].Preview(100)
}

// GetMeta returns metadata about the conversation.
func (c *Conversation) GetMeta() ConversationMeta {
	return ConversationMeta{
		ID:           c.ID,
		Title:        c.GetTitle(),
		MessageCount: len(c.Messages),
		CreatedAt:    c.CreatedAt,
		UpdatedAt:    c.UpdatedAt,
		Preview:      c.Preview(),
	}
}

// Clone creates a deep copy of the conversation.
func (c *Conversation) Clone() *Conversation {
	clone := &Conversation{
		ID:                   c.ID,
		Title:                c.Title,
		CreatedAt:            c.CreatedAt,
		UpdatedAt:            c.UpdatedAt,
		ServerConversationID: c.ServerConversationID,
		ContextSummary:       c.ContextSummary,
		Messages:             make([]*Message, len(c.Messages)),
	}
	for i, msg := range c.Messages {
		clone.Messages[i] = msg.Clone()
	}
	return clone
}

// pruneOldMessages removes old messages when history exceeds MaxMessages.
func (c *Conversation) pruneOldMessages() {
	if len(c.Messages) <= MaxMessages {
		return
	}
	c.Messages = c.Messages[len(c.Messages)-MaxMessages:]
}
