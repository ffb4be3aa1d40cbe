// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Title synthesis constants.
const (
	// DefaultTitle is used when the cleaned query text comes out empty.
	DefaultTitle = "New chat"

	// maxTitleRunes is the truncation budget for synthesized titles.
	maxTitleRunes = 40

	// minBreakRunes is the earliest word boundary truncation may cut at.
	minBreakRunes = 20
)

// interrogativePrefixes are stripped from the front of a query before it
// becomes a session title. Longest-match-first; only one prefix is
// stripped so "how do I do what I want" keeps its tail intact.
var interrogativePrefixes = []string{
	"what is the difference between",
	"can you tell me about",
	"could you tell me",
	"can you explain",
	"tell me about",
	"how do i",
	"how does",
	"how can i",
	"how do",
	"how to",
	"what are",
	"what is",
	"what was",
	"what's",
	"why does",
	"why is",
	"why do",
	"where is",
	"where can i",
	"when is",
	"when does",
	"who is",
	"which",
	"does",
	"do",
	"is",
	"are",
	"can",
	"please",
	"explain",
}

// SynthesizeTitle derives a short session title from the first query of a
// fresh conversation: strips one leading interrogative phrase, drops
// trailing punctuation, truncates at a word boundary around 40 characters,
// and capitalizes the first letter. Never returns an empty string.
func SynthesizeTitle(query string) string {
	// Normalize first so rune counting and prefix matching behave the
	// same regardless of how the terminal composed the input.
	text := strings.TrimSpace(norm.NFC.String(query))
	if text == "" {
		return DefaultTitle
	}

	text = stripInterrogative(text)
	text = strings.TrimRight(text, "?!. \t")
	text = strings.TrimSpace(text)
	if text == "" {
		return DefaultTitle
	}

	text = truncateAtWord(text)
	return capitalize(text)
}

// stripInterrogative removes a single leading interrogative phrase when it
// is followed by more text. A query that IS just the phrase stays intact.
func stripInterrogative(text string) string {
	lower := strings.ToLower(text)
	for _, prefix := range interrogativePrefixes {
		if !strings.HasPrefix(lower, prefix) {
			continue
		}
		rest := text[len(prefix):]
		// Must break at a word boundary: "what is" must not match "whatever".
		if rest == "" || !strings.HasPrefix(rest, " ") {
			continue
		}
		if trimmed := strings.TrimSpace(rest); trimmed != "" {
			return trimmed
		}
	}
	return text
}

// truncateAtWord cuts text to at most maxTitleRunes runes, preferring the
// last word boundary at or after minBreakRunes, and appends an ellipsis
// when anything was cut.
func truncateAtWord(text string) string {
	runes := []rune(text)
	if len(runes) <= maxTitleRunes {
		return text
	}

	cut := maxTitleRunes
	for i := maxTitleRunes; i >= minBreakRunes; i-- {
		if unicode.IsSpace(runes[i-1]) {
			cut = i - 1
			break
		}
	}
	return strings.TrimSpace(string(runes[:cut])) + "..."
}

// capitalize upper-cases the first rune.
func capitalize(text string) string {
	runes := []rune(text)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
