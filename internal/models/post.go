package models

import (
	"time"
)

// AudioType classifies the audio a reel was published with. The values are
// the upstream vocabulary and are stored verbatim.
type AudioType string

const (
	AudioOriginal       AudioType = "original"
	AudioReusedOriginal AudioType = "reused_original_audio"
	AudioLicensedMusic  AudioType = "instagram_music"
	AudioMashup         AudioType = "mashup"
	AudioMuted          AudioType = "no_audio"
	AudioShared         AudioType = "shared_audio"
)

// Post represents a single reel keyed by its shortcode. The numeric media ID
// is carried when upstream provides one but nothing depends on it.
type Post struct {
	Shortcode string `gorm:"type:varchar(32);primaryKey;column:shortcode"`
	MediaID   string `gorm:"type:varchar(64);not null;default:'';column:media_id"`
	UserID    string `gorm:"type:varchar(64);not null;index:ig_reels_user_ix;column:user_id"`
	Username  string `gorm:"type:varchar(64);not null;default:'';column:username"`
	Caption   string `gorm:"type:text;column:caption"`

	// Media references. URLs point at the CDN mirror once the media store
	// has accepted the object, otherwise at the upstream host.
	VideoURL     string `gorm:"type:varchar(2048);not null;default:'';column:video_url"`
	ThumbnailURL string `gorm:"type:varchar(2048);not null;default:'';column:thumbnail_url"`
	Permalink    string `gorm:"type:varchar(255);not null;default:'';column:permalink"`

	// Engagement counts
	ViewCount    int64 `gorm:"not null;default:0;column:view_count"`
	LikeCount    int64 `gorm:"not null;default:0;column:like_count"`
	CommentCount int64 `gorm:"not null;default:0;column:comment_count"`
	PlayCount    int64 `gorm:"not null;default:0;column:play_count"`

	TakenAt time.Time `gorm:"column:taken_at"`

	// Audio classification
	AudioType       AudioType `gorm:"type:varchar(32);not null;default:'original';column:audio_type"`
	AudioTitle      string    `gorm:"type:varchar(255);not null;default:'';column:audio_title"`
	AudioArtist     string    `gorm:"type:varchar(255);not null;default:'';column:audio_artist"`
	AudioID         string    `gorm:"type:varchar(64);not null;default:'';column:audio_id"`
	IsOriginalAudio bool      `gorm:"not null;default:true;column:is_original_audio"`

	// Collaborators
	Collaborators     CollaboratorList `gorm:"type:jsonb;column:collaborators"`
	HasCollaborators  bool             `gorm:"not null;default:false;column:has_collaborators"`
	CollaboratorCount int              `gorm:"not null;default:0;column:collaborator_count"`

	// Enrichment
	Transcription  string `gorm:"type:text;column:transcription"`
	IsTranscribed  bool   `gorm:"not null;default:false;column:is_transcribed"`
	Framewatch     string `gorm:"type:text;column:framewatch"`
	IsFramewatched bool   `gorm:"not null;default:false;column:is_framewatched"`

	CreatedAt time.Time `gorm:"not null;column:created_at"`
	UpdatedAt time.Time `gorm:"not null;column:updated_at"`
}

// TableName specifies the table name for Post
func (Post) TableName() string {
	return "ig_reels"
}
