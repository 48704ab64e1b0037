package vecindex

import (
	"strings"

	"github.com/drissea/reelsync/internal/models"
)

// BuildText assembles the blob the embedding is computed from: caption,
// transcript, audio title and collaborator names, space-joined with empty
// parts dropped. An empty result means the reel has nothing to index.
func BuildText(post *models.Post) string {
	parts := make([]string, 0, 4+len(post.Collaborators))
	for _, part := range []string{post.Caption, post.Transcription, post.AudioTitle} {
		if part = strings.TrimSpace(part); part != "" {
			parts = append(parts, part)
		}
	}
	for _, collab := range post.Collaborators {
		if label := strings.TrimSpace(collab.Label()); label != "" {
			parts = append(parts, label)
		}
	}
	return strings.Join(parts, " ")
}
