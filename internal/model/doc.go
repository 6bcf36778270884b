// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations and messages.
//
// This package defines the core domain types used throughout the application
// for representing chat conversations and their messages, including the
// streaming accumulation state of the single in-flight assistant message.
//
// # Key Types
//
//   - Conversation: Container for a chat session with messages and the
//     backend session correlation id
//   - Message: Single message with role, content, timestamp, and optional
//     chart / reasoning payloads
//   - Role: Message role enumeration (user, assistant, system)
//
// # Usage
//
// Create a new conversation and stream into it:
//
//	conv := model.NewConversation()
//	conv.AddUserMessage("oi")
//	msg := conv.AddAssistantMessage()
//	msg.AppendToken("Olá!")
//	conv.FinalizeLast()
package model
