package fetch

import (
	"net/url"
	"strings"
)

// Platform represents a known profile hosting site.
type Platform string

const (
	// PlatformLinkedIn is the LinkedIn professional network
	PlatformLinkedIn Platform = "linkedin"
	// PlatformXing is the Xing professional network
	PlatformXing Platform = "xing"
	// PlatformGitHub is a GitHub user page
	PlatformGitHub Platform = "github"
	// PlatformUnknown is a personal site or unrecognized host
	PlatformUnknown Platform = "unknown"
)

// DetectPlatform identifies the profile platform from a URL.
func DetectPlatform(urlStr string) Platform {
	parsed, err := url.Parse(urlStr)
	if err != nil {
		return PlatformUnknown
	}

	host := strings.TrimPrefix(strings.ToLower(parsed.Hostname()), "www.")
	switch {
	case host == "linkedin.com" || strings.HasSuffix(host, ".linkedin.com"):
		return PlatformLinkedIn
	case host == "xing.com" || strings.HasSuffix(host, ".xing.com"):
		return PlatformXing
	case host == "github.com":
		return PlatformGitHub
	}
	return PlatformUnknown
}

// RequiresBrowser reports whether the platform renders profiles client-side.
func (p Platform) RequiresBrowser() bool {
	return p == PlatformLinkedIn || p == PlatformXing
}

// PlatformContentSelectors returns content selectors for a platform's profile page.
func PlatformContentSelectors(platform Platform) []string {
	switch platform {
	case PlatformLinkedIn:
		return []string{
			".pv-profile-section",
			".core-section-container",
			"main.scaffold-layout__main",
			"main",
		}
	case PlatformXing:
		return []string{
			"[data-xds='ProfileContent']",
			"#profile-content",
			"main",
		}
	case PlatformGitHub:
		return []string{
			".js-profile-editable-area",
			"[itemtype='http://schema.org/Person']",
			"main",
		}
	default:
		return DefaultTextSelectors()
	}
}

// PlatformNoiseSelectors returns noise exclusion selectors for a platform.
func PlatformNoiseSelectors(platform Platform) []string {
	common := []string{
		"form",
		".social-share",
		".share-buttons",
		".cookie-consent",
		".gdpr-notice",
		"[role='dialog']",
	}

	switch platform {
	case PlatformLinkedIn:
		return append(common,
			".pv-browsemap-section",
			".people-also-viewed",
			".authwall",
			".contextual-sign-in-modal",
			".msg-overlay-list-bubble",
		)
	case PlatformXing:
		return append(common,
			"[data-xds='Banner']",
			".similar-profiles",
		)
	case PlatformGitHub:
		return append(common,
			".js-yearly-contributions",
			".pinned-item-list-item-content .d-flex",
		)
	default:
		return common
	}
}
