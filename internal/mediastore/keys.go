package mediastore

import (
	"regexp"
	"strings"
)

// Object key layout inside the bucket. Keys derive from stable identifiers,
// never from the source URL, so the same media maps to the same object no
// matter how often its signed upstream URL rotates.
const (
	thumbnailPrefix = "ig_thumbnails/"
	videoPrefix     = "ig_videos/"
	profilePrefix   = "ig_profiles/"
)

// ThumbnailKey returns the object key for a reel's thumbnail.
func ThumbnailKey(shortcode string) string {
	return thumbnailPrefix + shortcode + ".jpg"
}

// VideoKey returns the object key for a reel's video.
func VideoKey(shortcode string) string {
	return videoPrefix + shortcode + ".mp4"
}

// ProfileKey returns the object key for an account's avatar, keeping the
// source file extension when one is recognizable.
func ProfileKey(userID, sourceURL string) string {
	return profilePrefix + userID + "." + ExtFromURL(sourceURL)
}

var extPattern = regexp.MustCompile(`\.([a-z]{3,4})(?:\?|$)`)

// ExtFromURL extracts a lowercase file extension from a URL path, defaulting
// to jpg when none is recognizable.
func ExtFromURL(rawURL string) string {
	if m := extPattern.FindStringSubmatch(rawURL); m != nil {
		return m[1]
	}
	return "jpg"
}

// Upstream CDN hosts. URLs pointing at these expire and need mirroring.
var upstreamDomains = []string{
	"instagram.com",
	"cdninstagram.com",
	"fbcdn.net",
	"scontent",
}

// IsUpstreamHosted reports whether a URL still points at the upstream CDN
// rather than at the mirror.
func IsUpstreamHosted(rawURL string) bool {
	if rawURL == "" {
		return false
	}
	for _, domain := range upstreamDomains {
		if strings.Contains(rawURL, domain) {
			return true
		}
	}
	return false
}
