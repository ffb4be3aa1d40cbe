// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for chat sessions and messages.
//
// This package defines the core domain types used throughout the application
// for representing backend chat sessions, exchanged messages, and the
// retrieval sources attached to assistant answers.
//
// # Key Types
//
//   - Session: A persisted conversation thread owned by the backend
//   - Message: Single message with role, content, delivery state and sources
//   - Source: A normalized retrieval hit supporting an assistant answer
//   - Role: Message role enumeration (user, assistant)
//   - DeliveryState: Pending / Delivered / Failed tag for optimistic entries
//
// Message delivery is modeled as an explicit tagged state rather than a
// boolean flag so the "at most one pending message per session" invariant
// is visible in the type, not just in controller convention.
package model
