// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session drives the message pipeline for one conversation.
//
// A Controller owns the in-flight request state the browser client kept in
// module-scoped refs: the single-flight guard, the cancel handle for the
// active stream, and the dispatcher state machine that applies decoded
// frames to the conversation. Two conversations get two controllers and
// never collide.
//
// # Key Types
//
//   - Controller: per-conversation pipeline with Send / Stop / Close
//   - State: dispatcher state (idle, sending, streaming, finalizing, error)
//   - SendOptions: per-send flags (visualization, streaming toggle, action id)
//
// # Usage
//
//	ctrl := session.NewController(client, conv)
//	msg, err := ctrl.Send(ctx, "oi", session.SendOptions{})
//
// Send blocks until the stream reaches a terminal outcome. Regardless of
// which path ends it, the single-flight guard is clear afterwards and the
// next Send is accepted.
package session
