package usecase

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"trustmark/internal/domain"
)

// Platform patterns are matched against the lower-cased, trimmed URL in fixed
// priority order before falling back to generic URI canonicalization. A
// platform URL would otherwise parse as a perfectly valid generic URI.
var (
	youtubeVideoRe = regexp.MustCompile(`(?:youtube\.com/watch\?v=|youtu\.be/)([a-zA-Z0-9_-]{11})`)
	tiktokVideoRe  = regexp.MustCompile(`tiktok\.com/@([^/]+)/video/(\d+)`)
)

// Canonicalize derives the dedup identity for a URL. Canonicalization of the
// same logical video always yields the same identity regardless of
// query-string noise, case, or trailing slash; for generic URLs the identity
// is scheme://host+path with query and fragment dropped.
func Canonicalize(rawURL string) (domain.CanonicalIdentity, error) {
	normalized := strings.ToLower(strings.TrimSpace(rawURL))
	if normalized == "" {
		return domain.CanonicalIdentity{}, fmt.Errorf("%w: url is empty", domain.ErrInvalidInput)
	}

	if m := youtubeVideoRe.FindStringSubmatch(normalized); m != nil {
		return domain.CanonicalIdentity{
			Platform:    domain.PlatformYouTube,
			CanonicalID: "yt:" + m[1],
		}, nil
	}

	if m := tiktokVideoRe.FindStringSubmatch(normalized); m != nil {
		return domain.CanonicalIdentity{
			Platform:    domain.PlatformTikTok,
			CanonicalID: "tt:" + m[1] + ":" + m[2],
		}, nil
	}

	u, err := url.Parse(normalized)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return domain.CanonicalIdentity{}, fmt.Errorf("%w: unparsable url %q", domain.ErrInvalidInput, rawURL)
	}
	path := strings.TrimSuffix(u.Path, "/")
	return domain.CanonicalIdentity{
		Platform:    domain.PlatformGeneric,
		CanonicalID: u.Scheme + "://" + u.Host + path,
	}, nil
}
