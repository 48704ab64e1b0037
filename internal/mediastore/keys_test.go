package mediastore

import "testing"

func TestKeys(t *testing.T) {
	if got := ThumbnailKey("DA1bc23"); got != "ig_thumbnails/DA1bc23.jpg" {
		t.Errorf("ThumbnailKey = %q", got)
	}
	if got := VideoKey("DA1bc23"); got != "ig_videos/DA1bc23.mp4" {
		t.Errorf("VideoKey = %q", got)
	}
}

func TestProfileKey(t *testing.T) {
	tests := []struct {
		name      string
		userID    string
		sourceURL string
		expected  string
	}{
		{
			name:      "jpg with query string",
			userID:    "12345",
			sourceURL: "https://scontent.cdninstagram.com/v/t51/profile.jpg?stp=dst-jpg&sig=abc",
			expected:  "ig_profiles/12345.jpg",
		},
		{
			name:      "png at end of path",
			userID:    "12345",
			sourceURL: "https://scontent.cdninstagram.com/avatar.png",
			expected:  "ig_profiles/12345.png",
		},
		{
			name:      "four letter extension",
			userID:    "77",
			sourceURL: "https://scontent.cdninstagram.com/avatar.webp?x=1",
			expected:  "ig_profiles/77.webp",
		},
		{
			name:      "no recognizable extension defaults to jpg",
			userID:    "99",
			sourceURL: "https://scontent.cdninstagram.com/avatar",
			expected:  "ig_profiles/99.jpg",
		},
		{
			name:      "uppercase extension not matched",
			userID:    "42",
			sourceURL: "https://scontent.cdninstagram.com/AVATAR.JPG",
			expected:  "ig_profiles/42.jpg",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ProfileKey(tt.userID, tt.sourceURL); got != tt.expected {
				t.Errorf("ProfileKey(%q, %q) = %q, expected %q", tt.userID, tt.sourceURL, got, tt.expected)
			}
		})
	}
}

func TestIsUpstreamHosted(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		expected bool
	}{
		{"instagram cdn", "https://scontent-lax3-1.cdninstagram.com/v/t51/video.mp4?sig=x", true},
		{"facebook cdn", "https://video-lax3-1.xx.fbcdn.net/v/clip.mp4", true},
		{"instagram web", "https://www.instagram.com/reel/DA1bc23/media", true},
		{"scontent host", "https://scontent-iad3-2.example.net/clip.mp4", true},
		{"mirror url", "https://cdn.drissea.com/ig_videos/DA1bc23.mp4", false},
		{"empty url", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsUpstreamHosted(tt.url); got != tt.expected {
				t.Errorf("IsUpstreamHosted(%q) = %v, expected %v", tt.url, got, tt.expected)
			}
		})
	}
}
