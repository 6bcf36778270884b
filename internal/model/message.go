// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations and messages.
package model

import (
	"crypto/rand"
	"encoding/hex"
	"strings"
	"time"

	"github.com/morganforge/treq-tui/internal/api"
	"github.com/morganforge/treq-tui/internal/util"
)

// =============================================================================
// ROLE TYPE
// =============================================================================

// Role represents the sender of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// DisplayName returns a human-readable name for the role.
func (r Role) DisplayName() string {
	switch r {
	case RoleUser:
		return "You"
	case RoleAssistant:
		return "Treq"
	case RoleSystem:
		return "System"
	default:
		return string(r)
	}
}

// =============================================================================
// MESSAGE TYPE
// =============================================================================

// Message represents a single message in a conversation.
//
// Finalized messages are immutable. The one exception is the in-progress
// assistant message, whose content accumulates while a stream is active.
type Message struct {
	// Identity
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Timestamp time.Time `json:"timestamp"`

	// Content
	Content string `json:"content"`

	// Optional payloads attached by the backend
	Chart    *api.ChartPayload  `json:"chart,omitempty"`
	Plan     *api.ReasoningPlan `json:"plan,omitempty"`
	Sources  []string           `json:"sources,omitempty"`
	ImageURL string             `json:"image_url,omitempty"`

	// Error presentation
	IsError     bool `json:"is_error,omitempty"`
	Interrupted bool `json:"interrupted,omitempty"`

	// Streaming state (not persisted)
	// PERFORMANCE: strings.Builder avoids quadratic allocations during streaming
	IsStreaming   bool            `json:"-"`
	streamContent strings.Builder `json:"-"`
}

// NewMessage creates a new message with a generated ID.
func NewMessage(role Role, content string) *Message {
	return &Message{
		ID:        generateID(),
		Role:      role,
		Content:   content,
		Timestamp: time.Now(),
	}
}

// NewUserMessage creates a new user message.
func NewUserMessage(content string) *Message {
	return NewMessage(RoleUser, content)
}

// NewAssistantMessage creates a new streaming assistant message.
func NewAssistantMessage() *Message {
	return &Message{
		ID:          generateID(),
		Role:        RoleAssistant,
		Timestamp:   time.Now(),
		IsStreaming: true,
	}
}

// NewErrorMessage creates a finalized assistant message rendered as an error.
func NewErrorMessage(content string) *Message {
	msg := NewMessage(RoleAssistant, content)
	msg.IsError = true
	return msg
}

// NewChartMessage creates a finalized assistant message carrying a chart.
// The content is the chart title so plain-text surfaces still show something.
func NewChartMessage(chart *api.ChartPayload) *Message {
	msg := NewMessage(RoleAssistant, chart.Title)
	msg.Chart = chart
	return msg
}

// =============================================================================
// MESSAGE METHODS
// =============================================================================

// AppendToken appends a content delta to a streaming message.
func (m *Message) AppendToken(token string) {
	if m.IsStreaming {
		m.streamContent.WriteString(token)
	}
}

// AttachPlan attaches or replaces the reasoning plan. Content is untouched.
func (m *Message) AttachPlan(plan *api.ReasoningPlan) {
	m.Plan = plan
}

// FinalizeStream completes streaming, merging accumulated content.
func (m *Message) FinalizeStream() {
	if !m.IsStreaming {
		return
	}
	m.Content = m.streamContent.String()
	m.streamContent.Reset()
	m.IsStreaming = false
}

// FinalizeInterrupted completes streaming but marks the message as cut off,
// keeping whatever content arrived before the stream failed.
func (m *Message) FinalizeInterrupted() {
	m.FinalizeStream()
	m.Interrupted = true
}

// Clone returns a deep copy of the message. The accumulator of an
// in-flight message is rebuilt rather than copied; a strings.Builder
// must never be copied by value after its first write.
func (m *Message) Clone() *Message {
	clone := &Message{
		ID:          m.ID,
		Role:        m.Role,
		Timestamp:   m.Timestamp,
		Content:     m.Content,
		Chart:       m.Chart,
		Plan:        m.Plan,
		ImageURL:    m.ImageURL,
		IsError:     m.IsError,
		Interrupted: m.Interrupted,
		IsStreaming: m.IsStreaming,
	}
	if len(m.Sources) > 0 {
		clone.Sources = append([]string(nil), m.Sources...)
	}
	if m.IsStreaming {
		clone.streamContent.WriteString(m.streamContent.String())
	}
	return clone
}

// GetDisplayContent returns the content to display (streaming or final).
func (m *Message) GetDisplayContent() string {
	if m.IsStreaming {
		return m.streamContent.String()
	}
	return m.Content
}

// HasChart reports whether the message carries a chart payload.
func (m *Message) HasChart() bool {
	return m.Chart != nil
}

// Preview returns a truncated preview of the message content.
// Uses rune-based truncation to handle Unicode correctly.
func (m *Message) Preview(maxLen int) string {
	return util.TruncateRunes(m.GetDisplayContent(), maxLen)
}

// IsEmpty returns true if the message has no content and no chart.
func (m *Message) IsEmpty() bool {
	return len(m.Content) == 0 && m.streamContent.Len() == 0 && m.Chart == nil
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// generateID creates a unique message ID.
func generateID() string {
	bytes := make([]byte, 8)
	rand.Read(bytes)
	return "msg_" + hex.EncodeToString(bytes)
}
