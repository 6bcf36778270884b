// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/morganforge/treq-tui/internal/api"
	"github.com/morganforge/treq-tui/internal/model"
)

// =============================================================================
// ERRORS AND USER-FACING TEXT
// =============================================================================

// ErrClosed indicates the controller was shut down.
var ErrClosed = errors.New("session controller closed")

// User-facing error text, in the product language.
const (
	textStreamInterrupted = "Streaming interrompido devido a erros de formato. Tente novamente."
	textEmptyChart        = "Nenhum dado disponível para visualização."
	textUnreachable       = "Não foi possível conectar ao servidor Treq."
)

// =============================================================================
// SEND OPTIONS
// =============================================================================

// SendOptions carries the per-send flags of a chat request.
type SendOptions struct {
	// Visualization asks the backend for a chart answer when applicable.
	Visualization bool

	// ActionID identifies a predefined quick action, when the message
	// originated from one.
	ActionID string

	// NoStream uses the single-reply request path instead of SSE.
	NoStream bool

	// OnFrame, when set, observes each frame after it was applied to the
	// conversation. Used by interactive surfaces for live rendering.
	OnFrame api.FrameCallback
}

// =============================================================================
// CONTROLLER
// =============================================================================

// Controller drives the message pipeline for a single conversation.
//
// All in-flight request state lives here: the single-flight guard, the
// dispatcher state, and the cancel handle of the active stream. A send
// that arrives while a stream is active supersedes it; the old stream is
// aborted and its partial message discarded before the new request starts,
// so two streams can never interleave text into one message.
type Controller struct {
	mu sync.Mutex

	client *api.Client
	conv   *model.Conversation

	state      State
	inFlight   bool
	generation uint64
	closed     bool

	cancelMgr *cancelManager

	// onChange fires after every conversation mutation that should reach
	// persistence. Invoked outside the controller lock.
	onChange func()
}

// NewController creates a controller for the given conversation.
func NewController(client *api.Client, conv *model.Conversation) *Controller {
	return &Controller{
		client:    client,
		conv:      conv,
		state:     StateIdle,
		cancelMgr: newCancelManager(),
	}
}

// SetOnChange registers the persistence notification hook.
func (c *Controller) SetOnChange(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onChange = fn
}

// State returns the current dispatcher state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// InFlight reports whether a request is currently active.
func (c *Controller) InFlight() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inFlight
}

// Conversation returns the conversation this controller drives.
//
// The live conversation mutates under the controller lock while a send
// is active. Callers on other goroutines must render and persist from
// Snapshot instead.
func (c *Controller) Conversation() *model.Conversation {
	return c.conv
}

// Snapshot returns a deep copy of the conversation, taken under the
// controller lock. The copy is safe to read from any goroutine while
// frames keep mutating the live conversation.
func (c *Controller) Snapshot() *model.Conversation {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conv.Clone()
}

// ClearHistory clears the conversation under the controller lock.
func (c *Controller) ClearHistory() {
	c.mu.Lock()
	c.conv.ClearHistory()
	c.mu.Unlock()
	c.notifyChange()
}

// Stop aborts the active stream, if any. The abort is intentional and
// therefore silent: no error message is appended to the conversation.
func (c *Controller) Stop() {
	c.cancelMgr.cancel()
}

// Close aborts any active stream and rejects further sends.
// Meant for surface teardown.
func (c *Controller) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	c.cancelMgr.clear()
}

// =============================================================================
// SEND
// =============================================================================

// Send submits a user message and blocks until the reply reaches a
// terminal outcome, returning the final assistant message.
//
// The user message is appended optimistically before the request goes out.
// On intentional aborts Send returns context.Canceled with no error
// message appended; every other failure appends a visible assistant-role
// error message, preserving any partial streamed text on the message that
// remains, labeled interrupted.
func (c *Controller) Send(ctx context.Context, text string, opts SendOptions) (*model.Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, api.ErrEmptyMessage
	}

	gen, sendCtx, err := c.begin(ctx, text, opts)
	if err != nil {
		return nil, err
	}
	c.notifyChange()

	var finalErr error
	defer func() {
		c.finish(gen, finalErr)
		c.notifyChange()
	}()

	req := api.ChatRequest{
		Message:        text,
		ConversationID: c.conv.ServerConversationID,
		Visualization:  opts.Visualization,
		ActionID:       opts.ActionID,
	}

	if opts.NoStream {
		finalErr = c.sendBlocking(sendCtx, gen, req)
	} else {
		finalErr = c.client.ChatStream(sendCtx, req, func(frame *api.Frame) {
			c.apply(gen, sendCtx, frame)
			if opts.OnFrame != nil {
				opts.OnFrame(frame)
			}
		})
		if finalErr == nil {
			c.seal(gen)
		}
	}

	if finalErr != nil {
		finalErr = c.handleFailure(gen, finalErr)
	}
	if finalErr != nil {
		return nil, finalErr
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conv.GetLastMessage(), nil
}

// begin acquires the pipeline for a new send. An active stream is aborted
// and its partial message discarded; the user message and the assistant
// placeholder are appended under the lock.
func (c *Controller) begin(ctx context.Context, text string, opts SendOptions) (uint64, context.Context, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return 0, nil, ErrClosed
	}

	// Supersede: invalidate the old stream's generation so late frames
	// are ignored, and discard its partial placeholder.
	c.generation++
	gen := c.generation
	if c.inFlight {
		c.conv.DropInFlight()
	}

	c.inFlight = true
	c.state = StateSending
	c.conv.AddUserMessage(text)
	if !opts.NoStream {
		c.conv.AddAssistantMessage()
	}

	sendCtx, cancel := context.WithCancel(ctx)
	// set aborts the superseded stream before registering the new handle
	c.cancelMgr.set(cancel)

	return gen, sendCtx, nil
}

// finish releases the single-flight guard. Runs on every exit path.
func (c *Controller) finish(gen uint64, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// A newer send owns the pipeline now; leave its state alone.
	if gen != c.generation {
		return
	}

	c.inFlight = false
	switch {
	case err == nil, errors.Is(err, context.Canceled):
		c.state = StateIdle
	default:
		c.state = StateError
	}
	c.cancelMgr.clear()
}

// apply routes one decoded frame to its conversation mutation.
func (c *Controller) apply(gen uint64, ctx context.Context, frame *api.Frame) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Never mutate after cancellation was observed or after supersession
	if gen != c.generation || ctx.Err() != nil {
		return
	}

	switch frame.Kind {
	case api.FrameChunk:
		c.state = StateStreaming
		c.conv.AppendToLast(frame.Chunk)

	case api.FrameReasoning:
		c.state = StateStreaming
		if msg := c.conv.InFlightMessage(); msg != nil {
			msg.AttachPlan(frame.Plan)
		}

	case api.FrameChart:
		if frame.Chart.IsEmpty() {
			// Degenerate payload: nothing to plot
			c.conv.DropLastIfEmpty()
			c.conv.AddErrorMessage(textEmptyChart)
			c.state = StateError
			return
		}
		// Exactly one chart message per turn, replacing the placeholder
		c.conv.ReplaceLastWith(model.NewChartMessage(frame.Chart))
		if frame.Completion != nil {
			c.recordCompletion(frame.Completion)
			c.state = StateFinalizing
		} else {
			c.state = StateStreaming
		}

	case api.FrameDone:
		c.state = StateFinalizing
		c.recordCompletion(frame.Completion)
		if msg := c.conv.InFlightMessage(); msg != nil && frame.Completion != nil {
			msg.Sources = frame.Completion.Sources
		}
		c.conv.FinalizeLast()
	}
}

// recordCompletion threads the backend session metadata into the conversation.
func (c *Controller) recordCompletion(cmp *api.Completion) {
	if cmp == nil {
		return
	}
	if cmp.ConversationID != "" {
		c.conv.ServerConversationID = cmp.ConversationID
	}
	if cmp.ContextSummary != "" {
		c.conv.ContextSummary = cmp.ContextSummary
	}
}

// seal finalizes a leftover in-flight message after a clean stream end.
// Normally the done frame already finalized it; a stream that ended at
// EOF without a terminal frame is sealed here so content is never lost.
func (c *Controller) seal(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.generation {
		return
	}
	if !c.conv.DropLastIfEmpty() {
		c.conv.FinalizeLast()
	}
}

// sendBlocking is the non-streaming fallback path: one request, one JSON
// reply, one finalized assistant message.
func (c *Controller) sendBlocking(ctx context.Context, gen uint64, req api.ChatRequest) error {
	resp, err := c.client.Ask(ctx, req)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.generation {
		return nil
	}

	msg := model.NewMessage(model.RoleAssistant, resp.Response)
	msg.Sources = resp.Sources
	c.conv.AddMessage(msg)
	c.recordCompletion(&api.Completion{
		ConversationID: resp.ConversationID,
		ContextSummary: resp.ContextSummary,
	})
	c.state = StateFinalizing
	return nil
}

// handleFailure converts a pipeline error into conversation state.
//
// Intentional aborts stay silent. Everything else preserves partial
// streamed text on the interrupted message and appends a visible error
// message describing what happened.
func (c *Controller) handleFailure(gen uint64, err error) error {
	if errors.Is(err, context.Canceled) {
		c.mu.Lock()
		if gen == c.generation {
			if msg := c.conv.InFlightMessage(); msg != nil {
				if msg.IsEmpty() {
					c.conv.DropInFlight()
				} else {
					msg.FinalizeInterrupted()
				}
			}
		}
		c.mu.Unlock()
		return context.Canceled
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.generation {
		return err
	}

	if msg := c.conv.InFlightMessage(); msg != nil {
		if msg.IsEmpty() {
			c.conv.DropInFlight()
		} else {
			msg.FinalizeInterrupted()
		}
	}
	c.conv.AddErrorMessage(userMessageFor(err))
	return err
}

// userMessageFor maps a pipeline error to the text shown in the conversation.
func userMessageFor(err error) string {
	var streamErr *api.StreamError
	if errors.As(err, &streamErr) {
		err = streamErr.Err
	}

	var respErr *api.ResponseError
	var apiErr *api.APIError
	switch {
	case errors.Is(err, api.ErrStreamCorrupted):
		return textStreamInterrupted
	case errors.As(err, &respErr):
		return "Erro: " + respErr.Message
	case errors.As(err, &apiErr):
		return fmt.Sprintf("Erro na API (HTTP %d): %s", apiErr.Status, apiErr.Message)
	case errors.Is(err, api.ErrUnavailable):
		return textUnreachable
	default:
		return "Erro de conexão: " + err.Error()
	}
}

// notifyChange invokes the persistence hook outside the lock.
func (c *Controller) notifyChange() {
	c.mu.Lock()
	fn := c.onChange
	c.mu.Unlock()
	if fn != nil {
		fn()
	}
}
