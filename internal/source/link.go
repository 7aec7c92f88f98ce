package source

import (
	"fmt"
	"strings"

	"github.com/dontdude/tiobot/internal/domain"
)

// LinkMarker prefixes a trailing token that points at code on a paste host.
const LinkMarker = "link="

// DefaultAllowedHosts are the paste hosts code may be fetched from.
var DefaultAllowedHosts = []string{
	"https://hastebin.com",
	"https://gist.github.com",
	"https://gist.githubusercontent.com",
}

// TrailingLink returns the URL of a trailing link= token, if there is one.
func TrailingLink(text string) (string, bool) {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return "", false
	}
	last := fields[len(fields)-1]
	if !strings.HasPrefix(last, LinkMarker) {
		return "", false
	}
	return strings.TrimPrefix(last, LinkMarker), true
}

// RawURL checks link against the allow-list and rewrites it to the host's raw-content URL.
func RawURL(link string, allowed []string) (string, error) {
	link = strings.Trim(link, "<>/")

	if !allowedLink(link, allowed) {
		return "", fmt.Errorf("%w: only links from %s are accepted", domain.ErrUnauthorizedSource, strings.Join(allowed, ", "))
	}

	parts := strings.Split(link, "/")
	if len(parts) < 3 {
		return "", fmt.Errorf("%w: %q is not a URL", domain.ErrUnauthorizedSource, link)
	}
	host := parts[2]

	if host == "hastebin.com" {
		if strings.Contains(link, "/raw/") {
			return link, nil
		}
		id := parts[len(parts)-1]
		if i := strings.LastIndex(id, "."); i >= 0 {
			id = id[:i]
		}
		return "https://hastebin.com/raw/" + id, nil
	}

	// Gists redirect between the html and raw hosts, so a link may already be raw.
	if strings.Contains(link, "/raw") {
		return link, nil
	}
	return link + "/raw", nil
}

// allowedLink matches whole hosts only, so https://hastebin.com.example.org is refused.
func allowedLink(link string, allowed []string) bool {
	for _, prefix := range allowed {
		if !strings.HasPrefix(link, prefix) {
			continue
		}
		if len(link) == len(prefix) || link[len(prefix)] == '/' {
			return true
		}
	}
	return false
}
