// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package styles provides the visual styling system for the ragchat TUI.

All colors use Lip Gloss AdaptiveColor for automatic light/dark terminal
detection.

# Color System (colors.go)

Primary accents:

  - Purple - assistant messages and selections
  - Cyan - brand color, user highlights
  - Emerald - success states
  - Amber - pending states and warnings
  - Rose - errors

Hierarchical text colors:

	TextPrimary   - Main content text
	TextSecondary - Supporting text
	TextMuted     - De-emphasized text
	TextInverse   - Text on colored backgrounds

# Theme System (theme.go)

The Theme struct provides runtime color adaptation and every style the
chat view renders with:

	theme := styles.NewTheme(cfg.UI.Theme)
	if theme.IsDark {
		// Dark terminal detected or configured
	}

# Usage Example

	import "github.com/akjha-17/ragchat-tui/internal/ui/styles"

	headerStyle := lipgloss.NewStyle().
		Background(styles.SurfaceDim).
		Foreground(styles.TextPrimary)
*/
package styles
