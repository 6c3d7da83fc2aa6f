// Package device turns the User-Agent recorded with a refresh token into
// the label shown in session listings.
package device

import (
	"strings"

	"github.com/mssola/useragent"
)

const (
	unknownDevice  = "Unknown Device"
	unknownBrowser = "Unknown Browser"
	unknownOS      = "Unknown OS"
)

// Label returns "Browser on OS", e.g. "Chrome on macOS" or "Safari on iPhone".
// Mobile agents use the platform name, crawlers and API clients keep their
// product name.
func Label(userAgent string) string {
	userAgent = strings.TrimSpace(userAgent)
	if userAgent == "" {
		return unknownDevice
	}

	ua := useragent.New(userAgent)
	browser, _ := ua.Browser()

	if ua.Bot() {
		if browser == "" {
			return unknownDevice
		}
		return browser
	}

	if ua.Mobile() {
		if platform := ua.Platform(); platform != "" {
			return strings.TrimSpace(nonEmpty(browser, unknownBrowser) + " on " + platform)
		}
	}

	return strings.TrimSpace(nonEmpty(browser, unknownBrowser) + " on " + nonEmpty(ua.OS(), unknownOS))
}

func nonEmpty(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}
