package instagram

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/drissea/reelsync/internal/models"
	"github.com/drissea/reelsync/pkg/telemetry"
)

// ResolveProfile fetches the public profile for a username.
func (c *Client) ResolveProfile(ctx context.Context, username string) (*Profile, error) {
	ctx, span := telemetry.StartSpan(ctx, "instagram.resolve_profile")
	defer span.End()

	query := url.Values{"username": {username}}
	var resp profileResponse
	if err := c.doJSON(ctx, http.MethodGet, "/api/v1/users/web_profile_info/", query, nil, &resp); err != nil {
		return nil, fmt.Errorf("failed to resolve profile %s: %w", username, err)
	}

	user := resp.Data.User
	if user == nil || user.ID == "" {
		return nil, ErrNotFound
	}

	profile := &Profile{
		UserID:         user.ID.String(),
		Username:       firstNonEmpty(user.Username, username),
		FullName:       user.FullName,
		Biography:      user.Biography,
		Category:       firstNonEmpty(user.CategoryName, user.Category),
		FollowerCount:  user.EdgeFollowedBy.Count,
		FollowingCount: user.EdgeFollow.Count,
		MediaCount:     user.EdgeTimelineMedia.Count,
		ProfilePicURL:  firstNonEmpty(user.ProfilePicURLHD, user.ProfilePicURL),
		PublicEmail:    firstNonEmpty(user.BusinessEmail, user.PublicEmail),
	}
	return profile, nil
}

// ListClips fetches one page of a creator's reels, newest first.
func (c *Client) ListClips(ctx context.Context, userID string, pageSize int, cursor string) (*ClipPage, error) {
	ctx, span := telemetry.StartSpan(ctx, "instagram.list_clips")
	defer span.End()

	if pageSize <= 0 {
		pageSize = 12
	}
	form := url.Values{
		"target_user_id":     {userID},
		"page_size":          {strconv.Itoa(pageSize)},
		"include_feed_video": {"true"},
	}
	if cursor != "" {
		form.Set("max_id", cursor)
	}

	var resp clipsResponse
	if err := c.doJSON(ctx, http.MethodPost, "/api/v1/clips/user/", nil, form, &resp); err != nil {
		return nil, fmt.Errorf("failed to list clips for user %s: %w", userID, err)
	}

	page := &ClipPage{
		Posts:      make([]models.Post, 0, len(resp.Items)),
		NextCursor: resp.PagingInfo.MaxID,
		HasMore:    resp.PagingInfo.MoreAvailable,
	}
	for i := range resp.Items {
		page.Posts = append(page.Posts, postFromMedia(&resp.Items[i].Media))
	}
	return page, nil
}

// GetClipDetail fetches fresh engagement counts and media URLs for one reel.
func (c *Client) GetClipDetail(ctx context.Context, shortcode string) (*ClipDetail, error) {
	ctx, span := telemetry.StartSpan(ctx, "instagram.get_clip_detail")
	defer span.End()

	variables, err := json.Marshal(map[string]interface{}{
		"shortcode":               shortcode,
		"fetch_tagged_user_count": nil,
		"hoisted_comment_id":      nil,
		"hoisted_reply_id":        nil,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal detail variables: %w", err)
	}
	form := url.Values{
		"variables": {string(variables)},
		"doc_id":    {c.docID},
	}

	var resp graphqlResponse
	if err := c.doJSON(ctx, http.MethodPost, "/graphql/query", nil, form, &resp); err != nil {
		return nil, fmt.Errorf("failed to fetch detail for %s: %w", shortcode, err)
	}

	media := resp.Data.Media
	if media == nil {
		return nil, ErrNotFound
	}

	detail := &ClipDetail{
		Shortcode:    shortcode,
		ViewCount:    firstNonZero(media.VideoViewCount, media.VideoPlayCount),
		LikeCount:    media.EdgeLike.Count,
		CommentCount: firstNonZero(media.EdgePreviewComment.Count, media.EdgeParentComment.Count),
		VideoURL:     media.VideoURL,
		ThumbnailURL: firstNonEmpty(media.DisplayURL, media.ThumbnailSrc),
	}
	return detail, nil
}

// SearchAccounts looks up creator accounts by name via the blended search.
func (c *Client) SearchAccounts(ctx context.Context, query string, limit int) ([]AccountHit, error) {
	ctx, span := telemetry.StartSpan(ctx, "instagram.search_accounts")
	defer span.End()

	params := url.Values{
		"query":   {query},
		"context": {"blended"},
	}
	var resp topsearchResponse
	if err := c.doJSON(ctx, http.MethodGet, "/api/v1/web/search/topsearch/", params, nil, &resp); err != nil {
		return nil, fmt.Errorf("failed to search accounts for %q: %w", query, err)
	}

	hits := make([]AccountHit, 0, limit)
	for _, item := range resp.Users {
		if item.User == nil {
			continue
		}
		hits = append(hits, AccountHit{
			UserID:        item.User.PK.String(),
			Username:      item.User.Username,
			FullName:      item.User.FullName,
			ProfilePicURL: item.User.ProfilePicURL,
			IsVerified:    item.User.IsVerified,
			FollowerCount: item.User.FollowerCount,
		})
		if limit > 0 && len(hits) >= limit {
			break
		}
	}
	return hits, nil
}

// SearchClips fetches recent reels published under a hashtag. The leading
// "#" and interior spaces are stripped from the tag.
func (c *Client) SearchClips(ctx context.Context, tag string, limit int) ([]models.Post, error) {
	ctx, span := telemetry.StartSpan(ctx, "instagram.search_clips")
	defer span.End()

	tag = strings.ReplaceAll(strings.TrimPrefix(tag, "#"), " ", "")
	if tag == "" {
		return nil, fmt.Errorf("empty tag")
	}

	var resp tagSectionsResponse
	path := "/api/v1/tags/" + url.PathEscape(tag) + "/sections/"
	if err := c.doJSON(ctx, http.MethodGet, path, nil, nil, &resp); err != nil {
		return nil, fmt.Errorf("failed to search clips for #%s: %w", tag, err)
	}

	posts := make([]models.Post, 0, limit)
	for _, section := range resp.Sections {
		for i := range section.LayoutContent.Medias {
			media := &section.LayoutContent.Medias[i].Media
			// media_type 2 is video; everything else is not a reel
			if media.MediaType != 2 {
				continue
			}
			posts = append(posts, postFromMedia(media))
			if limit > 0 && len(posts) >= limit {
				return posts, nil
			}
		}
	}
	return posts, nil
}
