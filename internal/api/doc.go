// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package api implements the HTTP client for the Treq assistant backend.
//
// The backend exposes a REST API plus a Server-Sent Events chat stream.
// This package owns the wire formats (chat requests, stream frames, the
// auxiliary audio/document/vision endpoints) and the streaming decoder
// that turns a chunked response body into typed frames.
//
// # Key Types
//
//   - Client: configured HTTP client for all backend endpoints
//   - ChatRequest / ChatResponse: the /chat/ request and non-streaming reply
//   - Frame: one decoded stream event (chunk, reasoning, chart, done, error)
//   - SSEReader: incremental event reader over a response body
//   - StreamError: stream failure carrying any partial content received
//
// # Usage
//
//	client := api.NewClient().WithUserID("ops-7")
//	err := client.ChatStream(ctx, api.ChatRequest{Message: "oi"}, func(f *api.Frame) {
//		if f.Kind == api.FrameChunk {
//			fmt.Print(f.Chunk)
//		}
//	})
package api
