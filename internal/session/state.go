// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

// =============================================================================
// DISPATCHER STATE
// =============================================================================

// State is the dispatcher state of a controller.
//
// The normal lifecycle is idle -> sending -> streaming -> finalizing -> idle.
// A terminal failure passes through StateError before settling back on idle
// when the next send begins.
type State int

const (
	// StateIdle means no request is active.
	StateIdle State = iota

	// StateSending means the request was initiated but no frame arrived yet.
	StateSending

	// StateStreaming means frames are being applied to the conversation.
	StateStreaming

	// StateFinalizing means a terminal frame arrived and the in-flight
	// message is being sealed.
	StateFinalizing

	// StateError means the last send ended in a visible failure.
	StateError
)

// String returns the state name for logs and test output.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSending:
		return "sending"
	case StateStreaming:
		return "streaming"
	case StateFinalizing:
		return "finalizing"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}
