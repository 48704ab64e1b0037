package instagram

import (
	"fmt"
	"time"

	"github.com/drissea/reelsync/internal/models"
)

// postFromMedia converts one upstream media object into the domain post.
// Validation and classification happen here, at ingress; downstream code
// trusts the resulting value.
func postFromMedia(m *RawMedia) models.Post {
	audio := ClassifyAudio(m)
	collaborators := ExtractCollaborators(m)

	// Upstream reports views inconsistently across endpoints; play_count is
	// the authoritative number when present.
	views := m.PlayCount
	if views == 0 {
		views = m.ViewCount
	}

	post := models.Post{
		Shortcode: m.Code,
		MediaID:   m.ID.String(),
		// The author always comes from the media's user object, never from
		// the caption attribution.
		UserID:       m.User.UserID(),
		Caption:      captionText(m),
		Permalink:    permalink(m.Code),
		ViewCount:    views,
		PlayCount:    views,
		LikeCount:    m.LikeCount,
		CommentCount: m.CommentCount,

		AudioType:       audio.Type,
		AudioTitle:      audio.Title,
		AudioArtist:     audio.Artist,
		AudioID:         audio.ID,
		IsOriginalAudio: audio.IsOriginal,

		Collaborators:     collaborators,
		HasCollaborators:  len(collaborators) > 0,
		CollaboratorCount: len(collaborators),
	}

	if m.User != nil {
		post.Username = m.User.Username
	}
	if len(m.VideoVersions) > 0 {
		post.VideoURL = m.VideoVersions[0].URL
	}
	if len(m.ImageVersions.Candidates) > 0 {
		post.ThumbnailURL = m.ImageVersions.Candidates[0].URL
	}
	if m.TakenAt > 0 {
		post.TakenAt = time.Unix(m.TakenAt, 0).UTC()
	}

	return post
}

func captionText(m *RawMedia) string {
	if m.Caption == nil {
		return ""
	}
	return m.Caption.Text
}

func permalink(code string) string {
	if code == "" {
		return ""
	}
	return fmt.Sprintf("https://www.instagram.com/reel/%s/", code)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func firstNonZero(values ...int64) int64 {
	for _, v := range values {
		if v != 0 {
			return v
		}
	}
	return 0
}
