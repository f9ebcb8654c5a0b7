package auth

import (
	"net/url"
	"strings"
)

// ValidateAudience reports whether any of the token's audience values match
// the deployment's base URL. Both sides are normalized by stripping one
// trailing slash. For http(s) URLs the scheme, host, and port compare
// case-insensitively while the path compares case-sensitively; audiences
// that are not URLs compare case-insensitively in full.
//
// The check is wired behind SessionConfig.ValidateAudience and disabled by
// default: enabling it changes which tokens a deployment accepts, so it must
// be an explicit operator decision.
func ValidateAudience(baseURL string, audiences []string) bool {
	for _, aud := range audiences {
		if audienceMatches(baseURL, aud) {
			return true
		}
	}
	return false
}

func audienceMatches(baseURL, audience string) bool {
	base := strings.TrimSuffix(baseURL, "/")
	aud := strings.TrimSuffix(audience, "/")

	bu, berr := url.Parse(base)
	au, aerr := url.Parse(aud)
	if berr == nil && aerr == nil && isHTTPURL(bu) && isHTTPURL(au) {
		return strings.EqualFold(bu.Scheme, au.Scheme) &&
			strings.EqualFold(bu.Host, au.Host) &&
			bu.Path == au.Path
	}

	return strings.EqualFold(base, aud)
}

func isHTTPURL(u *url.URL) bool {
	return strings.EqualFold(u.Scheme, "http") || strings.EqualFold(u.Scheme, "https")
}
