package match

import (
	"net/url"
	"regexp"
	"strings"
)

var (
	schemePrefix = regexp.MustCompile(`^https?://`)
	wwwPrefix    = regexp.MustCompile(`^www\.`)
)

// Domain extracts the normalized host from a URL for equality comparison:
// lowercased, www. and port stripped. Returns "" when no host can be parsed.
//
//	"https://www.aurora.dev/"  -> "aurora.dev"
//	"auroraswap.net"           -> "auroraswap.net"
func Domain(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	host := strings.ToLower(parsed.Host)
	if host == "" {
		// Bare domains parse into the path when the input had no scheme
		// marker we recognize.
		host = strings.ToLower(strings.SplitN(parsed.Path, "/", 2)[0])
	}
	host = wwwPrefix.ReplaceAllString(host, "")
	host = strings.SplitN(host, ":", 2)[0]
	return host
}

// NormalizeURL canonicalizes a full URL for exact comparison: lowercased,
// scheme, www. prefix, trailing slash, and query string stripped.
func NormalizeURL(raw string) string {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if raw == "" {
		return ""
	}
	raw = schemePrefix.ReplaceAllString(raw, "")
	raw = wwwPrefix.ReplaceAllString(raw, "")
	if i := strings.IndexByte(raw, '?'); i >= 0 {
		raw = raw[:i]
	}
	return strings.TrimRight(raw, "/")
}
