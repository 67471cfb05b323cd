package domain

// Platform identifies the video platform a URL was recognized as.
type Platform string

const (
	PlatformYouTube Platform = "youtube"
	PlatformTikTok  Platform = "tiktok"
	PlatformGeneric Platform = "generic"
)

// CanonicalIdentity is the dedup key derived from a URL. Two URLs pointing at
// the same logical content canonicalize to the same identity.
type CanonicalIdentity struct {
	Platform    Platform `json:"platform"`
	CanonicalID string   `json:"canonical_id"`
}
