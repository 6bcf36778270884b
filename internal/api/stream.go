// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// STREAMING: Robust SSE parsing with bounded error tolerance

// =============================================================================
// STREAMING CONSTANTS
// =============================================================================

// MaxFrameSize is the maximum allowed size for a single SSE frame (64KB).
const MaxFrameSize = 64 * 1024

// MaxParseFailures is the number of consecutive malformed frames tolerated
// before the stream is cancelled. The counter resets on every good frame.
const MaxParseFailures = 5

// =============================================================================
// STREAMING ERRORS
// =============================================================================

// ErrStreamCorrupted indicates the malformed-frame limit was exceeded and
// the stream was abandoned.
var ErrStreamCorrupted = errors.New("stream corrupted: too many malformed frames")

// StreamError represents an error that occurred during streaming,
// preserving any partial content received before the failure.
type StreamError struct {
	Partial string // Content received before the error
	Err     error
}

// Error implements the error interface.
func (e *StreamError) Error() string {
	if e.Partial != "" {
		return fmt.Sprintf("stream error (partial content received: %d chars): %v", len(e.Partial), e.Err)
	}
	return fmt.Sprintf("stream error: %v", e.Err)
}

// Unwrap returns the underlying error.
func (e *StreamError) Unwrap() error {
	return e.Err
}

// FrameCallback is the function type called for each decoded frame.
type FrameCallback func(frame *Frame)

// =============================================================================
// SSE READER
// =============================================================================

// SSEReader parses Server-Sent Events from a response body.
//
// UNICODE: The body passes through a streaming UTF-8 decoder before line
// splitting, so a multi-byte sequence split across two network reads is
// reassembled instead of surfacing as garbage or an error.
type SSEReader struct {
	reader *bufio.Reader
}

// NewSSEReader creates a new SSE reader from an io.Reader.
func NewSSEReader(r io.Reader) *SSEReader {
	decoded := transform.NewReader(r, unicode.UTF8.NewDecoder())
	return &SSEReader{
		reader: bufio.NewReader(decoded),
	}
}

// ReadEvent reads the next SSE event and returns its data payload.
//
// Frames are `data: <payload>` lines terminated by a blank line.
// Multi-line data fields are joined with newlines. Other fields
// (event:, id:, retry:, comments) are ignored. On EOF any buffered
// partial event is returned best-effort before io.EOF is reported.
func (s *SSEReader) ReadEvent() ([]byte, error) {
	var dataLines [][]byte
	var eventLen int

	for {
		line, err := s.reader.ReadBytes('\n')
		if err != nil {
			if err == io.EOF {
				// Return a trailing unterminated event before EOF
				if len(dataLines) > 0 {
					return bytes.Join(dataLines, []byte("\n")), nil
				}
				return nil, io.EOF
			}
			return nil, err
		}

		line = bytes.TrimRight(line, "\r\n")

		// Blank line ends the event
		if len(line) == 0 {
			if len(dataLines) > 0 {
				return bytes.Join(dataLines, []byte("\n")), nil
			}
			continue
		}

		eventLen += len(line)
		if eventLen > MaxFrameSize {
			return nil, fmt.Errorf("frame too large: %d bytes", eventLen)
		}

		if bytes.HasPrefix(line, []byte("data:")) {
			data := bytes.TrimSpace(line[5:])
			dataLines = append(dataLines, data)
		}
	}
}

// =============================================================================
// STREAMING CHAT
// =============================================================================

// ChatStream performs a streaming chat request, invoking callback for each
// decoded frame in receive order.
//
// The returned error is nil after a clean terminal frame. Stream failures
// after partial content arrive wrapped in a StreamError so the caller can
// keep what was received. An error frame from the backend is returned as a
// ResponseError. Context cancellation is returned as ctx.Err() untouched.
func (c *Client) ChatStream(ctx context.Context, req ChatRequest, callback FrameCallback) error {
	if strings.TrimSpace(req.Message) == "" {
		return ErrEmptyMessage
	}
	if req.UserID == "" {
		req.UserID = c.userID
	}
	if req.UserID == "" {
		return ErrNoUserID
	}
	req.Stream = true

	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	bodyBytes, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/", bytes.NewReader(bodyBytes))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	c.setHeaders(httpReq)
	httpReq.Header.Set("Accept", "text/event-stream")
	httpReq.Header.Set("Cache-Control", "no-cache")

	// PERFORMANCE: Shared streaming client, timeout handled via context
	resp, err := sharedStreamingClient.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize))
		return c.handleErrorResponse(resp.StatusCode, body)
	}

	return processStream(ctx, resp.Body, callback)
}

// processStream reads SSE events and dispatches decoded frames until a
// terminal frame, EOF, error, or cancellation.
func processStream(ctx context.Context, body io.Reader, callback FrameCallback) error {
	reader := NewSSEReader(body)

	var accumulated strings.Builder
	parseFailures := 0

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		data, err := reader.ReadEvent()
		if err != nil {
			if err == io.EOF {
				return nil
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return streamFailure(accumulated.String(), err)
		}

		// Terminal sentinel used by some proxies
		if bytes.Equal(data, []byte("[DONE]")) {
			return nil
		}

		frame, err := DecodeFrame(data)
		if err != nil {
			parseFailures++
			if parseFailures > MaxParseFailures {
				return streamFailure(accumulated.String(), ErrStreamCorrupted)
			}
			continue
		}
		parseFailures = 0

		if frame.Kind == FrameChunk {
			accumulated.WriteString(frame.Chunk)
		}

		if frame.Kind == FrameError {
			return streamFailure(accumulated.String(), &ResponseError{Message: frame.ErrorMessage})
		}

		callback(frame)

		if frame.IsTerminal() {
			return nil
		}
	}
}

// streamFailure wraps err in a StreamError when partial content exists.
func streamFailure(partial string, err error) error {
	if partial == "" {
		return err
	}
	return &StreamError{Partial: partial, Err: err}
}

// =============================================================================
// CHANNEL-BASED STREAMING
// =============================================================================

// ChatStreamChan performs a streaming chat and returns a channel of frames.
// The frame channel is closed when streaming completes; a terminal failure
// is delivered on the error channel.
func (c *Client) ChatStreamChan(ctx context.Context, req ChatRequest) (<-chan *Frame, <-chan error) {
	frameChan := make(chan *Frame, 64)
	errChan := make(chan error, 1)

	go func() {
		defer close(frameChan)
		defer close(errChan)

		err := c.ChatStream(ctx, req, func(frame *Frame) {
			select {
			case frameChan <- frame:
			case <-ctx.Done():
			}
		})

		if err != nil {
			select {
			case errChan <- err:
			case <-ctx.Done():
			}
		}
	}()

	return frameChan, errChan
}

// ChatStreamAccumulate performs a streaming chat but returns the full text
// at the end. Useful when streaming is wanted for liveness but only the
// complete answer matters.
func (c *Client) ChatStreamAccumulate(ctx context.Context, req ChatRequest) (string, error) {
	var accumulated strings.Builder

	err := c.ChatStream(ctx, req, func(frame *Frame) {
		if frame.Kind == FrameChunk {
			accumulated.WriteString(frame.Chunk)
		}
	})

	if err != nil {
		var streamErr *StreamError
		if errors.As(err, &streamErr) && streamErr.Partial != "" {
			return streamErr.Partial, err
		}
		return accumulated.String(), err
	}

	return accumulated.String(), nil
}
