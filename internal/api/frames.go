// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"encoding/json"
	"errors"
)

// =============================================================================
// STREAM FRAME TYPES
// =============================================================================

// FrameKind identifies the variant of a decoded stream frame.
type FrameKind int

const (
	// FrameChunk carries an incremental text delta.
	FrameChunk FrameKind = iota

	// FrameReasoning carries a reasoning plan for the in-progress answer.
	FrameReasoning

	// FrameChart carries a chart payload replacing the text answer.
	// May additionally carry a Completion when the stream ends with it.
	FrameChart

	// FrameDone is the terminal frame with the completion metadata.
	FrameDone

	// FrameError carries an application error raised by the backend.
	FrameError
)

// String returns the frame kind name for logs and test output.
func (k FrameKind) String() string {
	switch k {
	case FrameChunk:
		return "chunk"
	case FrameReasoning:
		return "reasoning"
	case FrameChart:
		return "chart"
	case FrameDone:
		return "done"
	case FrameError:
		return "error"
	default:
		return "unknown"
	}
}

// ReasoningPlan is the structured chain-of-thought payload the backend may
// attach to an answer, separate from the rendered text.
type ReasoningPlan struct {
	Goal  string   `json:"goal,omitempty"`
	Steps []string `json:"steps"`
}

// ChartSeries is one named series of a chart payload.
type ChartSeries struct {
	Name   string    `json:"name"`
	Values []float64 `json:"values"`
}

// ChartPayload is the visualization payload delivered by chart frames.
type ChartPayload struct {
	Type   string        `json:"type"`
	Title  string        `json:"title"`
	Labels []string      `json:"labels"`
	Series []ChartSeries `json:"series"`
}

// IsEmpty reports whether the payload has no plottable data.
func (p *ChartPayload) IsEmpty() bool {
	if p == nil {
		return true
	}
	for _, s := range p.Series {
		if len(s.Values) > 0 {
			return false
		}
	}
	return true
}

// Completion is the metadata carried by a terminal done frame.
type Completion struct {
	ConversationID string   `json:"conversation_id"`
	ContextSummary string   `json:"context_summary"`
	Sources        []string `json:"sources"`
}

// Frame is one decoded stream event. Exactly one variant is populated,
// selected by Kind; the only permitted co-occurrence is a chart frame that
// also carries the terminal Completion.
type Frame struct {
	Kind FrameKind

	// FrameChunk
	Chunk string

	// FrameReasoning
	Plan *ReasoningPlan

	// FrameChart
	Chart *ChartPayload

	// FrameDone, or FrameChart when the chart ends the stream
	Completion *Completion

	// FrameError
	ErrorMessage string
}

// IsTerminal reports whether this frame ends the stream.
func (f *Frame) IsTerminal() bool {
	switch f.Kind {
	case FrameDone, FrameError:
		return true
	case FrameChart:
		return f.Completion != nil
	default:
		return false
	}
}

// ErrUnknownFrame indicates a frame that matches no known variant.
// It counts toward the malformed-frame limit like unparseable JSON.
var ErrUnknownFrame = errors.New("unknown frame shape")

// rawFrame mirrors the wire shape before classification. Pointer fields
// distinguish absent from empty for the presence checks below.
type rawFrame struct {
	Chunk          *string        `json:"chunk"`
	Type           string         `json:"type"`
	Plan           *ReasoningPlan `json:"plan"`
	ChartData      *ChartPayload  `json:"chart_data"`
	Done           bool           `json:"done"`
	ConversationID string         `json:"conversation_id"`
	ContextSummary string         `json:"context_summary"`
	Sources        []string       `json:"sources"`
	Error          *string        `json:"error"`
}

// DecodeFrame parses one SSE data payload into a classified Frame.
//
// Classification is exclusive and ordered: error, chart, done, reasoning,
// chunk. A payload setting multiple variant fields is resolved by that
// order rather than producing two frames; a payload setting none of them
// is ErrUnknownFrame.
func DecodeFrame(data []byte) (*Frame, error) {
	var raw rawFrame
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}

	switch {
	case raw.Error != nil:
		return &Frame{Kind: FrameError, ErrorMessage: *raw.Error}, nil

	case raw.ChartData != nil:
		f := &Frame{Kind: FrameChart, Chart: raw.ChartData}
		if raw.Done {
			f.Completion = raw.completion()
		}
		return f, nil

	case raw.Done:
		return &Frame{Kind: FrameDone, Completion: raw.completion()}, nil

	case raw.Type == "reasoning" && raw.Plan != nil:
		return &Frame{Kind: FrameReasoning, Plan: raw.Plan}, nil

	case raw.Chunk != nil:
		return &Frame{Kind: FrameChunk, Chunk: *raw.Chunk}, nil

	default:
		return nil, ErrUnknownFrame
	}
}

// completion builds the Completion metadata from the raw frame fields.
func (r *rawFrame) completion() *Completion {
	return &Completion{
		ConversationID: r.ConversationID,
		ContextSummary: r.ContextSummary,
		Sources:        r.Sources,
	}
}
