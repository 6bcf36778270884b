// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"strings"
	"testing"

	"github.com/morganforge/treq-tui/internal/api"
)

// =============================================================================
// MESSAGE TESTS
// =============================================================================

func TestMessage_StreamingAccumulation(t *testing.T) {
	msg := NewAssistantMessage()
	if !msg.IsStreaming {
		t.Fatal("New assistant message should be streaming")
	}

	msg.AppendToken("Ol")
	msg.AppendToken("á!")

	if msg.GetDisplayContent() != "Olá!" {
		t.Errorf("Expected display content 'Olá!', got %q", msg.GetDisplayContent())
	}
	if msg.Content != "" {
		t.Error("Content should stay empty until finalized")
	}

	msg.FinalizeStream()
	if msg.IsStreaming {
		t.Error("Message should not be streaming after finalize")
	}
	if msg.Content != "Olá!" {
		t.Errorf("Expected final content 'Olá!', got %q", msg.Content)
	}
}

func TestMessage_AppendAfterFinalizeIgnored(t *testing.T) {
	msg := NewAssistantMessage()
	msg.AppendToken("done")
	msg.FinalizeStream()

	msg.AppendToken(" more")
	if msg.GetDisplayContent() != "done" {
		t.Errorf("Finalized message must be immutable, got %q", msg.GetDisplayContent())
	}
}

func TestMessage_FinalizeInterrupted(t *testing.T) {
	msg := NewAssistantMessage()
	msg.AppendToken("partial answer")
	msg.FinalizeInterrupted()

	if !msg.Interrupted {
		t.Error("Interrupted flag not set")
	}
	if msg.Content != "partial answer" {
		t.Errorf("Partial content lost on interruption: %q", msg.Content)
	}
}

func TestMessage_Preview_Unicode(t *testing.T) {
	msg := NewUserMessage(strings.Repeat("ç", 100))
	preview := msg.Preview(10)
	if len([]rune(preview)) != 10 {
		t.Errorf("Expected 10-rune preview, got %d runes", len([]rune(preview)))
	}
	if !strings.HasSuffix(preview, "...") {
		t.Errorf("Truncated preview should end with ellipsis: %q", preview)
	}
}

func TestMessage_IsEmpty(t *testing.T) {
	msg := NewAssistantMessage()
	if !msg.IsEmpty() {
		t.Error("Fresh streaming message should be empty")
	}

	msg.AppendToken("x")
	if msg.IsEmpty() {
		t.Error("Message with streamed content should not be empty")
	}

	chart := NewChartMessage(&api.ChartPayload{Type: "bar", Title: ""})
	if chart.IsEmpty() {
		t.Error("Chart message should not be empty even without text")
	}
}

func TestNewErrorMessage(t *testing.T) {
	msg := NewErrorMessage("Streaming interrompido devido a erros de formato.")
	if msg.Role != RoleAssistant {
		t.Errorf("Error messages render with assistant role, got %s", msg.Role)
	}
	if !msg.IsError {
		t.Error("IsError flag not set")
	}
}

// =============================================================================
// CONVERSATION TESTS
// =============================================================================

func TestConversation_SingleInFlightMessage(t *testing.T) {
	conv := NewConversation()
	conv.AddUserMessage("oi")

	if conv.InFlightMessage() != nil {
		t.Error("No in-flight message expected before assistant reply starts")
	}

	msg := conv.AddAssistantMessage()
	if conv.InFlightMessage() != msg {
		t.Error("In-flight message should be the streaming assistant message")
	}

	conv.FinalizeLast()
	if conv.InFlightMessage() != nil {
		t.Error("No in-flight message expected after finalization")
	}
}

func TestConversation_TitleFromFirstUserMessage(t *testing.T) {
	conv := NewConversation()
	conv.AddUserMessage("qual o status da bomba 3?")

	if conv.GetTitle() != "qual o status da bomba 3?" {
		t.Errorf("Title should derive from first user message, got %q", conv.GetTitle())
	}

	// Later messages don't change the title
	conv.AddUserMessage("e a bomba 4?")
	if conv.GetTitle() != "qual o status da bomba 3?" {
		t.Errorf("Title changed by later message: %q", conv.GetTitle())
	}
}

func TestConversation_ReplaceLastWith(t *testing.T) {
	conv := NewConversation()
	conv.AddUserMessage("mostra um gráfico")
	conv.AddAssistantMessage()

	chart := NewChartMessage(&api.ChartPayload{Type: "bar", Title: "Volume"})
	conv.ReplaceLastWith(chart)

	if conv.MessageCount() != 2 {
		t.Fatalf("Replace must not grow history, got %d messages", conv.MessageCount())
	}
	last := conv.GetLastMessage()
	if !last.HasChart() {
		t.Error("Chart message did not replace the placeholder")
	}
	if last.Content != "Volume" {
		t.Errorf("Chart message content should be the title, got %q", last.Content)
	}
}

func TestConversation_DropLastIfEmpty(t *testing.T) {
	conv := NewConversation()
	conv.AddUserMessage("oi")
	conv.AddAssistantMessage()

	if !conv.DropLastIfEmpty() {
		t.Error("Empty placeholder should be dropped")
	}
	if conv.MessageCount() != 1 {
		t.Errorf("Expected 1 message after drop, got %d", conv.MessageCount())
	}

	// A message with content stays
	conv.AddAssistantMessage().AppendToken("text")
	if conv.DropLastIfEmpty() {
		t.Error("Message with content must not be dropped")
	}
}

func TestConversation_ClearHistory(t *testing.T) {
	conv := NewConversation()
	conv.AddUserMessage("oi")
	conv.ServerConversationID = "c1"
	conv.ContextSummary = "greeting"

	conv.ClearHistory()

	if !conv.IsEmpty() {
		t.Error("History not cleared")
	}
	if conv.ServerConversationID != "" {
		t.Error("Server conversation id must be dropped with history")
	}
}

func TestConversation_PruneOldMessages(t *testing.T) {
	conv := NewConversation()
	for i := 0; i < MaxMessages+25; i++ {
		conv.AddMessage(NewUserMessage("m"))
	}
	if conv.MessageCount() != MaxMessages {
		t.Errorf("Expected history capped at %d, got %d", MaxMessages, conv.MessageCount())
	}
}

func TestConversation_Clone(t *testing.T) {
	conv := NewConversation()
	conv.AddUserMessage("original")
	conv.ServerConversationID = "c1"

	clone := conv.Clone()
	clone.Messages[0].Content = "mutated"
	clone.ServerConversationID = "c2"

	if conv.Messages[0].Content != "original" {
		t.Error("Clone shares message memory with original")
	}
	if conv.ServerConversationID != "c1" {
		t.Error("Clone shares metadata with original")
	}
}

func TestMessage_Clone_InFlight(t *testing.T) {
	msg := NewAssistantMessage()
	msg.AppendToken("partial ")
	msg.Sources = []string{"a.pdf"}

	clone := msg.Clone()

	if clone.GetDisplayContent() != "partial " {
		t.Errorf("Clone display content = %q, want %q", clone.GetDisplayContent(), "partial ")
	}
	if !clone.IsStreaming {
		t.Error("Clone of an in-flight message must still be streaming")
	}

	// Appending to the original after cloning must not leak into the clone.
	msg.AppendToken("answer")
	if clone.GetDisplayContent() != "partial " {
		t.Error("Clone shares the stream accumulator with the original")
	}

	clone.Sources[0] = "b.pdf"
	if msg.Sources[0] != "a.pdf" {
		t.Error("Clone shares the sources slice with the original")
	}
}

func TestConversation_Clone_InFlightMessage(t *testing.T) {
	conv := NewConversation()
	conv.AddUserMessage("pergunta")
	asst := conv.AddAssistantMessage()
	asst.AppendToken("resposta ")

	clone := conv.Clone()

	inFlight := clone.InFlightMessage()
	if inFlight == nil {
		t.Fatal("Clone lost the in-flight message")
	}
	if inFlight.GetDisplayContent() != "resposta " {
		t.Errorf("Cloned in-flight content = %q, want %q", inFlight.GetDisplayContent(), "resposta ")
	}

	asst.AppendToken("parcial")
	if inFlight.GetDisplayContent() != "resposta " {
		t.Error("Cloned in-flight message shares the accumulator with the original")
	}
}
