// ragchat - terminal client for a RAG chat backend.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import "github.com/akjha-17/ragchat-tui/internal/cli"

func main() {
	cli.Execute()
}
