// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package content

import (
	"strings"

	"github.com/mileusna/useragent"
)

// summarizeUserAgent condenses a user agent string to
// "Browser on OS (device)", or "" when nothing is recognised.
func summarizeUserAgent(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return ""
	}
	ua := useragent.Parse(raw)

	browser := ua.Name
	if browser == "" {
		browser = "Unknown"
	}
	os := ua.OS
	if os == "" {
		os = "Unknown"
	}

	var device string
	switch {
	case ua.Bot:
		device = "bot"
	case ua.Mobile:
		device = "mobile"
	case ua.Tablet:
		device = "tablet"
	default:
		device = "desktop"
	}
	return browser + " on " + os + " (" + device + ")"
}
