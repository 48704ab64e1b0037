package instagram

import (
	"encoding/json"

	"github.com/drissea/reelsync/internal/models"
)

// FlexID decodes upstream identifiers that arrive as either JSON numbers or
// strings depending on the endpoint.
type FlexID string

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexID) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = FlexID(n.String())
	return nil
}

func (f FlexID) String() string { return string(f) }

// RawUser is a user reference as it appears inside media payloads.
type RawUser struct {
	PK            FlexID `json:"pk"`
	ID            FlexID `json:"id"`
	Username      string `json:"username"`
	FullName      string `json:"full_name"`
	ProfilePicURL string `json:"profile_pic_url"`
	IsVerified    bool   `json:"is_verified"`
}

// UserID returns the stable identifier, preferring pk over id.
func (u *RawUser) UserID() string {
	if u == nil {
		return ""
	}
	if u.PK != "" {
		return u.PK.String()
	}
	return u.ID.String()
}

type rawCaption struct {
	Text string   `json:"text"`
	User *RawUser `json:"user"`
}

type videoVersion struct {
	URL string `json:"url"`
}

type imageCandidate struct {
	URL string `json:"url"`
}

type imageVersions struct {
	Candidates []imageCandidate `json:"candidates"`
}

type musicInfo struct {
	SongName       string `json:"song_name"`
	DisplayArtist  string `json:"display_artist"`
	ArtistName     string `json:"artist_name"`
	AudioClusterID FlexID `json:"audio_cluster_id"`
	ID             FlexID `json:"id"`
}

type musicMetadata struct {
	MusicInfo *musicInfo `json:"music_info"`
}

type originalSoundInfo struct {
	AudioAssetID         FlexID `json:"audio_asset_id"`
	OriginalAudioTitle   string `json:"original_audio_title"`
	IsReusedAudio        bool   `json:"is_reused_audio"`
	CanRemixBeSharedToFB bool   `json:"can_remix_be_shared_to_fb"`
}

type mashupInfo struct {
	MashupsAllowed  bool `json:"mashups_allowed"`
	HasBeenMashedUp bool `json:"has_been_mashed_up"`
}

type clipsMetadata struct {
	MusicInfo         *musicInfo         `json:"music_info"`
	OriginalSoundInfo *originalSoundInfo `json:"original_sound_info"`
	MashupInfo        *mashupInfo        `json:"mashup_info"`
	IsAudioMuted      bool               `json:"is_audio_muted"`
}

type sponsorTag struct {
	Sponsor *RawUser `json:"sponsor"`
}

type usertagItem struct {
	User *RawUser `json:"user"`
}

type usertags struct {
	In []usertagItem `json:"in"`
}

// RawMedia is one media object from the clips listing or tag search payloads.
type RawMedia struct {
	ID        FlexID      `json:"id"`
	Code      string      `json:"code"`
	MediaType int         `json:"media_type"`
	TakenAt   int64       `json:"taken_at"`
	Caption   *rawCaption `json:"caption"`
	User      *RawUser    `json:"user"`

	VideoVersions []videoVersion `json:"video_versions"`
	ImageVersions imageVersions  `json:"image_versions2"`

	ViewCount    int64 `json:"view_count"`
	PlayCount    int64 `json:"play_count"`
	LikeCount    int64 `json:"like_count"`
	CommentCount int64 `json:"comment_count"`

	MusicMetadata *musicMetadata `json:"music_metadata"`
	ClipsMetadata *clipsMetadata `json:"clips_metadata"`

	InvitedCoauthorProducers []RawUser    `json:"invited_coauthor_producers"`
	CoauthorProducers        []RawUser    `json:"coauthor_producers"`
	SponsorTags              []sponsorTag `json:"sponsor_tags"`
	Usertags                 *usertags    `json:"usertags"`
}

type clipItem struct {
	Media RawMedia `json:"media"`
}

type pagingInfo struct {
	MaxID         string `json:"max_id"`
	MoreAvailable bool   `json:"more_available"`
}

type clipsResponse struct {
	Items      []clipItem `json:"items"`
	PagingInfo pagingInfo `json:"paging_info"`
	Status     string     `json:"status"`
}

type edgeCount struct {
	Count int64 `json:"count"`
}

type rawProfile struct {
	ID                FlexID    `json:"id"`
	Username          string    `json:"username"`
	FullName          string    `json:"full_name"`
	Biography         string    `json:"biography"`
	CategoryName      string    `json:"category_name"`
	Category          string    `json:"category"`
	ProfilePicURL     string    `json:"profile_pic_url"`
	ProfilePicURLHD   string    `json:"profile_pic_url_hd"`
	BusinessEmail     string    `json:"business_email"`
	PublicEmail       string    `json:"public_email"`
	EdgeFollowedBy    edgeCount `json:"edge_followed_by"`
	EdgeFollow        edgeCount `json:"edge_follow"`
	EdgeTimelineMedia edgeCount `json:"edge_owner_to_timeline_media"`
}

type profileResponse struct {
	Data struct {
		User *rawProfile `json:"user"`
	} `json:"data"`
	Status string `json:"status"`
}

type topsearchUser struct {
	PK            FlexID `json:"pk"`
	Username      string `json:"username"`
	FullName      string `json:"full_name"`
	ProfilePicURL string `json:"profile_pic_url"`
	IsVerified    bool   `json:"is_verified"`
	FollowerCount int64  `json:"follower_count"`
}

type topsearchResponse struct {
	Users []struct {
		User *topsearchUser `json:"user"`
	} `json:"users"`
}

type tagSectionsResponse struct {
	Sections []struct {
		LayoutContent struct {
			Medias []struct {
				Media RawMedia `json:"media"`
			} `json:"medias"`
		} `json:"layout_content"`
	} `json:"sections"`
}

type graphqlMedia struct {
	VideoURL           string    `json:"video_url"`
	DisplayURL         string    `json:"display_url"`
	ThumbnailSrc       string    `json:"thumbnail_src"`
	VideoViewCount     int64     `json:"video_view_count"`
	VideoPlayCount     int64     `json:"video_play_count"`
	EdgeLike           edgeCount `json:"edge_media_preview_like"`
	EdgePreviewComment edgeCount `json:"edge_media_preview_comment"`
	EdgeParentComment  edgeCount `json:"edge_media_to_parent_comment"`
}

type graphqlResponse struct {
	Data struct {
		Media *graphqlMedia `json:"xdt_shortcode_media"`
	} `json:"data"`
}

// Profile is the resolved identity of a creator account.
type Profile struct {
	UserID         string
	Username       string
	FullName       string
	Biography      string
	Category       string
	FollowerCount  int64
	FollowingCount int64
	MediaCount     int64
	ProfilePicURL  string
	PublicEmail    string
}

// ClipPage is one page of a reels listing, newest first.
type ClipPage struct {
	Posts      []models.Post
	NextCursor string
	HasMore    bool
}

// ClipDetail carries fresh engagement counts and media URLs for one reel.
type ClipDetail struct {
	Shortcode    string
	ViewCount    int64
	LikeCount    int64
	CommentCount int64
	VideoURL     string
	ThumbnailURL string
}

// AccountHit is one upstream account search result.
type AccountHit struct {
	UserID        string
	Username      string
	FullName      string
	ProfilePicURL string
	IsVerified    bool
	FollowerCount int64
}
