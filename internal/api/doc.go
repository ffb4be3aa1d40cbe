// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package api implements the HTTP client for the RAG backend REST API.
//
// The backend exposes authentication, chat session management, retrieval
// ("ask"), document upload, and feedback endpoints. This package wraps each
// of them in a typed method on Client and normalizes the backend's loosely
// typed response shapes (aliased source fields, mixed timestamp formats)
// into the canonical structures from internal/model at the wire boundary.
//
// # Error Handling
//
// HTTP error responses are converted into sentinel errors (ErrUnauthorized,
// ErrForbidden, ErrNotFound) or an *APIError carrying the status code and
// the server-provided detail message, so callers can prefer the backend's
// own wording when surfacing failures.
//
// # Retry Policy
//
// Idempotent GET requests are retried with exponential backoff on 5xx and
// transport errors. POST /ask is never retried: the backend persists both
// halves of an exchange on success, so a blind retry after an ambiguous
// failure could duplicate messages in the session.
package api
