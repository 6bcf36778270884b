// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/morganforge/treq-tui/internal/api"
	"github.com/morganforge/treq-tui/internal/model"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

// sseServer serves the given frames as one SSE stream per request.
func sseServer(frames ...string) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		for _, frame := range frames {
			io.WriteString(w, "data: "+frame+"\n\n")
			flusher.Flush()
		}
	}))
}

func newTestController(serverURL string) *Controller {
	client := api.NewClientWithBaseURL(serverURL).WithUserID("u-test")
	return NewController(client, model.NewConversation())
}

// =============================================================================
// SCENARIO TESTS
// =============================================================================

func TestSend_ChunksAssembleInOrder(t *testing.T) {
	server := sseServer(
		`{"chunk":"Ol"}`,
		`{"chunk":"á!"}`,
		`{"done":true,"conversation_id":"c1","context_summary":"greeting"}`,
	)
	defer server.Close()

	ctrl := newTestController(server.URL)

	msg, err := ctrl.Send(context.Background(), "oi", SendOptions{})
	if err != nil {
		t.Fatalf("Send error: %v", err)
	}

	if msg.Content != "Olá!" {
		t.Errorf("Expected content 'Olá!', got %q", msg.Content)
	}
	if msg.IsStreaming {
		t.Error("Final message must be sealed")
	}

	conv := ctrl.Conversation()
	if conv.ServerConversationID != "c1" {
		t.Errorf("Expected server conversation id 'c1', got %q", conv.ServerConversationID)
	}
	if conv.ContextSummary != "greeting" {
		t.Errorf("Context summary lost: %q", conv.ContextSummary)
	}
	if conv.MessageCount() != 2 {
		t.Errorf("Expected user + assistant message, got %d", conv.MessageCount())
	}
	if ctrl.State() != StateIdle {
		t.Errorf("Expected idle state after send, got %s", ctrl.State())
	}
}

func TestSend_GuardClearsAfterEveryOutcome(t *testing.T) {
	// Success
	okServer := sseServer(`{"chunk":"hi"}`, `{"done":true}`)
	defer okServer.Close()

	ctrl := newTestController(okServer.URL)
	if _, err := ctrl.Send(context.Background(), "a", SendOptions{}); err != nil {
		t.Fatalf("Send error: %v", err)
	}
	if ctrl.InFlight() {
		t.Error("Guard still set after success")
	}

	// Error frame
	errServer := sseServer(`{"error":"boom"}`)
	defer errServer.Close()

	ctrl = newTestController(errServer.URL)
	if _, err := ctrl.Send(context.Background(), "a", SendOptions{}); err == nil {
		t.Fatal("Expected error from error frame")
	}
	if ctrl.InFlight() {
		t.Error("Guard still set after error")
	}

	// A new send is accepted afterwards
	if _, err := ctrl.Send(context.Background(), "b", SendOptions{}); err == nil {
		t.Fatal("Expected error (same server), but send must have been accepted")
	}

	// Abort
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	ctrl = newTestController(okServer.URL)
	if _, err := ctrl.Send(ctx, "a", SendOptions{}); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
	if ctrl.InFlight() {
		t.Error("Guard still set after abort")
	}
}

func TestSend_ParseFailureAbortPreservesPartial(t *testing.T) {
	frames := []string{`{"chunk":"texto parcial"}`}
	for i := 0; i < api.MaxParseFailures+1; i++ {
		frames = append(frames, `{corrupted`)
	}

	server := sseServer(frames...)
	defer server.Close()

	ctrl := newTestController(server.URL)

	_, err := ctrl.Send(context.Background(), "oi", SendOptions{})
	if !errors.Is(err, api.ErrStreamCorrupted) {
		t.Fatalf("Expected ErrStreamCorrupted, got %v", err)
	}
	if ctrl.State() != StateError {
		t.Errorf("Expected error state, got %s", ctrl.State())
	}

	conv := ctrl.Conversation()
	// user message, interrupted partial, visible error message
	if conv.MessageCount() != 3 {
		t.Fatalf("Expected 3 messages, got %d", conv.MessageCount())
	}

	partial := conv.Messages[1]
	if partial.Content != "texto parcial" {
		t.Errorf("Partial text not preserved: %q", partial.Content)
	}
	if !partial.Interrupted {
		t.Error("Preserved partial must be labeled interrupted")
	}

	errMsg := conv.Messages[2]
	if !errMsg.IsError {
		t.Error("Error message not flagged")
	}
	if !strings.HasPrefix(errMsg.Content, "Streaming interrompido") {
		t.Errorf("Unexpected error text: %q", errMsg.Content)
	}
}

func TestSend_ErrorFrameStripsEmptyPlaceholder(t *testing.T) {
	server := sseServer(`{"error":"modelo sobrecarregado"}`)
	defer server.Close()

	ctrl := newTestController(server.URL)

	_, err := ctrl.Send(context.Background(), "oi", SendOptions{})
	var respErr *api.ResponseError
	if !errors.As(err, &respErr) {
		t.Fatalf("Expected ResponseError, got %v", err)
	}

	conv := ctrl.Conversation()
	// user message + error message; the empty placeholder is gone
	if conv.MessageCount() != 2 {
		t.Fatalf("Expected 2 messages, got %d", conv.MessageCount())
	}
	if !conv.Messages[1].IsError {
		t.Error("Expected visible error message")
	}
	if !strings.Contains(conv.Messages[1].Content, "modelo sobrecarregado") {
		t.Errorf("Backend error text lost: %q", conv.Messages[1].Content)
	}
}

func TestSend_ChartReplacesPlaceholder(t *testing.T) {
	server := sseServer(
		`{"chunk":"gerando"}`,
		`{"chart_data":{"type":"bar","title":"Volume diário","series":[{"name":"v","values":[3,1,4]}]},"done":true,"conversation_id":"c7"}`,
	)
	defer server.Close()

	ctrl := newTestController(server.URL)

	msg, err := ctrl.Send(context.Background(), "mostra o volume", SendOptions{Visualization: true})
	if err != nil {
		t.Fatalf("Send error: %v", err)
	}

	if !msg.HasChart() {
		t.Fatal("Expected chart message")
	}
	if msg.Content != "Volume diário" {
		t.Errorf("Chart message content should be the title, got %q", msg.Content)
	}

	conv := ctrl.Conversation()
	// Never both a text message and a chart message for the same turn
	if conv.MessageCount() != 2 {
		t.Errorf("Expected user + chart only, got %d messages", conv.MessageCount())
	}
	if conv.ServerConversationID != "c7" {
		t.Errorf("Conversation id from terminal chart frame lost: %q", conv.ServerConversationID)
	}
}

func TestSend_EmptyChartBecomesError(t *testing.T) {
	server := sseServer(`{"chart_data":{"type":"bar","title":"vazio","series":[]},"done":true}`)
	defer server.Close()

	ctrl := newTestController(server.URL)

	ctrl.Send(context.Background(), "gráfico?", SendOptions{Visualization: true})

	conv := ctrl.Conversation()
	last := conv.GetLastMessage()
	if last == nil || !last.IsError {
		t.Fatal("Degenerate chart should surface as an error message")
	}
	if last.HasChart() {
		t.Error("No chart message expected for empty payload")
	}
}

func TestSend_ReasoningAttachesWithoutContentChange(t *testing.T) {
	server := sseServer(
		`{"chunk":"resposta"}`,
		`{"type":"reasoning","plan":{"goal":"responder","steps":["buscar","resumir"]}}`,
		`{"done":true}`,
	)
	defer server.Close()

	ctrl := newTestController(server.URL)

	msg, err := ctrl.Send(context.Background(), "oi", SendOptions{})
	if err != nil {
		t.Fatalf("Send error: %v", err)
	}
	if msg.Content != "resposta" {
		t.Errorf("Reasoning frame must not change content: %q", msg.Content)
	}
	if msg.Plan == nil || len(msg.Plan.Steps) != 2 {
		t.Errorf("Reasoning plan not attached: %+v", msg.Plan)
	}
}

// =============================================================================
// SINGLE-FLIGHT AND CANCELLATION TESTS
// =============================================================================

func TestSend_SupersedeDiscardsPreviousPartial(t *testing.T) {
	firstStarted := make(chan struct{})
	release := make(chan struct{})

	var requests int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)

		if requests == 1 {
			io.WriteString(w, "data: {\"chunk\":\"primeira \"}\n\n")
			flusher.Flush()
			close(firstStarted)
			// Hold the first stream open until it gets aborted
			<-r.Context().Done()
			return
		}

		<-release
		io.WriteString(w, "data: {\"chunk\":\"segunda\"}\n\n")
		io.WriteString(w, "data: {\"done\":true}\n\n")
		flusher.Flush()
	}))
	defer server.Close()

	ctrl := newTestController(server.URL)

	firstDone := make(chan error, 1)
	go func() {
		_, err := ctrl.Send(context.Background(), "primeira pergunta", SendOptions{})
		firstDone <- err
	}()

	<-firstStarted
	close(release)

	msg, err := ctrl.Send(context.Background(), "segunda pergunta", SendOptions{})
	if err != nil {
		t.Fatalf("Superseding send error: %v", err)
	}

	if err := <-firstDone; !errors.Is(err, context.Canceled) {
		t.Errorf("Superseded send should see context.Canceled, got %v", err)
	}

	// No interleaving: the final message carries only the second stream's text
	if msg.Content != "segunda" {
		t.Errorf("Expected 'segunda', got %q", msg.Content)
	}

	conv := ctrl.Conversation()
	for _, m := range conv.Messages {
		if strings.Contains(m.Content, "primeira ") && m.Role == model.RoleAssistant {
			t.Errorf("Discarded partial leaked into history: %q", m.Content)
		}
		if m.IsError {
			t.Errorf("Intentional abort must not produce an error message: %q", m.Content)
		}
	}

	// A fresh send is accepted after everything settled
	if ctrl.InFlight() {
		t.Error("Guard still set after supersede settled")
	}
}

func TestStop_SilentAbortKeepsPartialInterrupted(t *testing.T) {
	started := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		io.WriteString(w, "data: {\"chunk\":\"resposta parcial\"}\n\n")
		flusher.Flush()
		close(started)
		<-r.Context().Done()
	}))
	defer server.Close()

	ctrl := newTestController(server.URL)

	done := make(chan error, 1)
	go func() {
		_, err := ctrl.Send(context.Background(), "oi", SendOptions{})
		done <- err
	}()

	<-started
	// Give the chunk frame time to be applied before stopping
	deadline := time.After(2 * time.Second)
	for ctrl.State() != StateStreaming {
		select {
		case <-deadline:
			t.Fatal("Stream never reached streaming state")
		case <-time.After(5 * time.Millisecond):
		}
	}
	ctrl.Stop()

	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("Expected context.Canceled, got %v", err)
	}

	conv := ctrl.Conversation()
	last := conv.GetLastMessage()
	if last.IsError {
		t.Error("Intentional abort must not append an error message")
	}
	if last.Content != "resposta parcial" {
		t.Errorf("Partial content lost on stop: %q", last.Content)
	}
	if !last.Interrupted {
		t.Error("Stopped message should be labeled interrupted")
	}
	if ctrl.State() != StateIdle {
		t.Errorf("Expected idle after abort, got %s", ctrl.State())
	}
}

func TestClose_RejectsFurtherSends(t *testing.T) {
	ctrl := newTestController("http://127.0.0.1:1")
	ctrl.Close()

	if _, err := ctrl.Send(context.Background(), "oi", SendOptions{}); !errors.Is(err, ErrClosed) {
		t.Errorf("Expected ErrClosed, got %v", err)
	}
}

// =============================================================================
// NON-STREAMING FALLBACK TESTS
// =============================================================================

func TestSend_NonStreamingFallback(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"response":"resposta completa","conversation_id":"c5","context_summary":"s","sources":["kb/a.md"]}`))
	}))
	defer server.Close()

	ctrl := newTestController(server.URL)

	msg, err := ctrl.Send(context.Background(), "oi", SendOptions{NoStream: true})
	if err != nil {
		t.Fatalf("Send error: %v", err)
	}
	if msg.Content != "resposta completa" {
		t.Errorf("Unexpected content: %q", msg.Content)
	}
	if msg.IsStreaming {
		t.Error("Fallback path must append a finalized message")
	}
	if len(msg.Sources) != 1 {
		t.Errorf("Sources lost: %v", msg.Sources)
	}
	if ctrl.Conversation().ServerConversationID != "c5" {
		t.Error("Conversation id not recorded on fallback path")
	}
	// user + assistant only, no placeholder artifacts
	if ctrl.Conversation().MessageCount() != 2 {
		t.Errorf("Expected 2 messages, got %d", ctrl.Conversation().MessageCount())
	}
}

// =============================================================================
// CHANGE NOTIFICATION TESTS
// =============================================================================

func TestSend_NotifiesPersistenceHook(t *testing.T) {
	server := sseServer(`{"chunk":"x"}`, `{"done":true}`)
	defer server.Close()

	ctrl := newTestController(server.URL)

	var notifications int
	ctrl.SetOnChange(func() { notifications++ })

	if _, err := ctrl.Send(context.Background(), "oi", SendOptions{}); err != nil {
		t.Fatalf("Send error: %v", err)
	}
	// Once for the optimistic user message, once at the terminal outcome
	if notifications < 2 {
		t.Errorf("Expected at least 2 change notifications, got %d", notifications)
	}
}

// =============================================================================
// SNAPSHOT TESTS
// =============================================================================

func TestSnapshot_SafeToReadDuringSend(t *testing.T) {
	frames := make([]string, 0, 201)
	for i := 0; i < 200; i++ {
		frames = append(frames, `{"chunk":"token "}`)
	}
	frames = append(frames, `{"done":true}`)

	server := sseServer(frames...)
	defer server.Close()

	ctrl := newTestController(server.URL)

	// A reader goroutine renders from snapshots while frames mutate the
	// live conversation, the same shape as the TUI repaint loop and the
	// debounced saver.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 500; i++ {
			snap := ctrl.Snapshot()
			for _, msg := range snap.Messages {
				_ = msg.GetDisplayContent()
			}
			_ = snap.GetTitle()
		}
	}()

	msg, err := ctrl.Send(context.Background(), "oi", SendOptions{})
	if err != nil {
		t.Fatalf("Send error: %v", err)
	}
	<-done

	if len(msg.Content) == 0 {
		t.Error("Streamed content lost")
	}
}

func TestSnapshot_IndependentOfLiveConversation(t *testing.T) {
	server := sseServer(`{"chunk":"resposta"}`, `{"done":true}`)
	defer server.Close()

	ctrl := newTestController(server.URL)
	if _, err := ctrl.Send(context.Background(), "oi", SendOptions{}); err != nil {
		t.Fatalf("Send error: %v", err)
	}

	snap := ctrl.Snapshot()
	ctrl.ClearHistory()

	if snap.MessageCount() != 2 {
		t.Errorf("Snapshot changed with the live conversation: %d messages", snap.MessageCount())
	}
	if !ctrl.Conversation().IsEmpty() {
		t.Error("ClearHistory left messages behind")
	}
}
