package instagram

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/drissea/reelsync/internal/models"
	"github.com/drissea/reelsync/pkg/config"
)

func testClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	cfg := &config.InstagramConfig{
		SessionID:      "test-session",
		CSRFToken:      "test-csrf",
		BaseURL:        baseURL,
		DocID:          "9510064595728286",
		PageSize:       50,
		MaxRetries:     2,
		RetryBaseDelay: 5 * time.Millisecond,
		Timeout:        5 * time.Second,
	}
	client, err := New(cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	return client
}

const clipsPageJSON = `{
  "items": [
    {
      "media": {
        "id": "3351001122_555",
        "code": "Cxy123AbCd1",
        "media_type": 2,
        "taken_at": 1700000000,
        "caption": {"text": "morning routine", "user": {"pk": 999, "username": "not_the_author"}},
        "user": {"pk": 555, "username": "creator", "full_name": "The Creator"},
        "video_versions": [{"url": "https://scontent.cdninstagram.com/v/video1.mp4"}],
        "image_versions2": {"candidates": [{"url": "https://scontent.cdninstagram.com/v/thumb1.jpg"}]},
        "play_count": 1200,
        "view_count": 800,
        "like_count": 45,
        "comment_count": 7,
        "clips_metadata": {
          "original_sound_info": {"audio_asset_id": 31337, "original_audio_title": "Original audio"}
        },
        "coauthor_producers": [{"pk": 777, "username": "partner"}]
      }
    },
    {
      "media": {
        "id": "3351001122_556",
        "code": "Cxy456EfGh2",
        "media_type": 2,
        "taken_at": 1699990000,
        "user": {"pk": 555, "username": "creator"},
        "music_metadata": {"music_info": {"song_name": "Flowers", "artist_name": "Miley Cyrus", "audio_cluster_id": "441"}}
      }
    }
  ],
  "paging_info": {"max_id": "cursor-page-2", "more_available": true},
  "status": "ok"
}`

func TestListClips(t *testing.T) {
	var gotAppID, gotCookie, gotTarget string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/clips/user/" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		gotAppID = r.Header.Get("X-IG-App-ID")
		gotCookie = r.Header.Get("Cookie")
		gotTarget = r.PostForm.Get("target_user_id")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(clipsPageJSON))
	}))
	defer srv.Close()

	client := testClient(t, srv.URL)
	page, err := client.ListClips(context.Background(), "555", 50, "")
	if err != nil {
		t.Fatalf("ListClips() error: %v", err)
	}

	if gotAppID != appID {
		t.Errorf("X-IG-App-ID = %q, want %q", gotAppID, appID)
	}
	if gotCookie == "" || gotTarget != "555" {
		t.Errorf("auth plumbing missing: cookie=%q target=%q", gotCookie, gotTarget)
	}

	if !page.HasMore || page.NextCursor != "cursor-page-2" {
		t.Errorf("pagination = (%v, %q), want (true, cursor-page-2)", page.HasMore, page.NextCursor)
	}
	if len(page.Posts) != 2 {
		t.Fatalf("got %d posts, want 2", len(page.Posts))
	}

	first := page.Posts[0]
	if first.Shortcode != "Cxy123AbCd1" {
		t.Errorf("Shortcode = %q", first.Shortcode)
	}
	if first.UserID != "555" || first.Username != "creator" {
		t.Errorf("author = (%q, %q), want it taken from the media user, not the caption", first.UserID, first.Username)
	}
	if first.ViewCount != 1200 || first.PlayCount != 1200 {
		t.Errorf("view counts = (%d, %d), want play_count to win", first.ViewCount, first.PlayCount)
	}
	if first.AudioType != models.AudioOriginal || !first.IsOriginalAudio {
		t.Errorf("audio = (%q, %v), want original", first.AudioType, first.IsOriginalAudio)
	}
	if first.CollaboratorCount != 1 || first.Collaborators[0].Username != "partner" {
		t.Errorf("collaborators = %+v", first.Collaborators)
	}
	if first.Permalink != "https://www.instagram.com/reel/Cxy123AbCd1/" {
		t.Errorf("Permalink = %q", first.Permalink)
	}
	if first.TakenAt.Unix() != 1700000000 {
		t.Errorf("TakenAt = %v", first.TakenAt)
	}

	second := page.Posts[1]
	if second.AudioType != models.AudioLicensedMusic || second.IsOriginalAudio {
		t.Errorf("second audio = (%q, %v), want licensed music", second.AudioType, second.IsOriginalAudio)
	}
	if second.AudioTitle != "Flowers" || second.AudioID != "441" {
		t.Errorf("second audio details = (%q, %q)", second.AudioTitle, second.AudioID)
	}
}

func TestListClipsRetriesRateLimit(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) <= 2 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`{"items": [], "paging_info": {"more_available": false}}`))
	}))
	defer srv.Close()

	client := testClient(t, srv.URL)
	page, err := client.ListClips(context.Background(), "555", 50, "")
	if err != nil {
		t.Fatalf("ListClips() error after retries: %v", err)
	}
	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Errorf("made %d requests, want 3", got)
	}
	if len(page.Posts) != 0 || page.HasMore {
		t.Errorf("unexpected page: %+v", page)
	}
}

func TestListClipsRateLimitExhausted(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client := testClient(t, srv.URL)
	_, err := client.ListClips(context.Background(), "555", 50, "")
	if !errors.Is(err, ErrRateLimited) {
		t.Fatalf("err = %v, want ErrRateLimited", err)
	}
	if !IsTransient(err) {
		t.Error("rate-limit exhaustion should be transient")
	}
}

func TestListClipsRetriesServerError(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"items": [], "paging_info": {}}`))
	}))
	defer srv.Close()

	client := testClient(t, srv.URL)
	if _, err := client.ListClips(context.Background(), "555", 50, ""); err != nil {
		t.Fatalf("ListClips() error: %v", err)
	}
	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Errorf("made %d requests, want 2", got)
	}
}

func TestResolveProfile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/users/web_profile_info/" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("username"); got != "creator" {
			t.Errorf("username param = %q", got)
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"data": map[string]interface{}{
				"user": map[string]interface{}{
					"id":                           "555",
					"username":                     "creator",
					"full_name":                    "The Creator",
					"biography":                    "making things",
					"category_name":                "Artist",
					"profile_pic_url":              "https://scontent.cdninstagram.com/pic.jpg",
					"profile_pic_url_hd":           "https://scontent.cdninstagram.com/pic_hd.jpg",
					"business_email":               "hi@creator.example",
					"edge_followed_by":             map[string]int{"count": 12000},
					"edge_follow":                  map[string]int{"count": 300},
					"edge_owner_to_timeline_media": map[string]int{"count": 480},
				},
			},
		})
	}))
	defer srv.Close()

	client := testClient(t, srv.URL)
	profile, err := client.ResolveProfile(context.Background(), "creator")
	if err != nil {
		t.Fatalf("ResolveProfile() error: %v", err)
	}
	if profile.UserID != "555" || profile.Username != "creator" {
		t.Errorf("identity = (%q, %q)", profile.UserID, profile.Username)
	}
	if profile.ProfilePicURL != "https://scontent.cdninstagram.com/pic_hd.jpg" {
		t.Errorf("ProfilePicURL = %q, want the HD variant", profile.ProfilePicURL)
	}
	if profile.Category != "Artist" || profile.PublicEmail != "hi@creator.example" {
		t.Errorf("category/email = (%q, %q)", profile.Category, profile.PublicEmail)
	}
	if profile.FollowerCount != 12000 || profile.FollowingCount != 300 || profile.MediaCount != 480 {
		t.Errorf("counts = (%d, %d, %d)", profile.FollowerCount, profile.FollowingCount, profile.MediaCount)
	}
}

func TestResolveProfileNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	client := testClient(t, srv.URL)
	if _, err := client.ResolveProfile(context.Background(), "nobody"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestGetClipDetail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/graphql/query" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		if got := r.PostForm.Get("doc_id"); got != "9510064595728286" {
			t.Errorf("doc_id = %q", got)
		}
		w.Write([]byte(`{
		  "data": {
		    "xdt_shortcode_media": {
		      "video_url": "https://scontent.cdninstagram.com/fresh.mp4",
		      "display_url": "https://scontent.cdninstagram.com/fresh.jpg",
		      "video_view_count": 0,
		      "video_play_count": 5400,
		      "edge_media_preview_like": {"count": 210},
		      "edge_media_preview_comment": {"count": 0},
		      "edge_media_to_parent_comment": {"count": 33}
		    }
		  }
		}`))
	}))
	defer srv.Close()

	client := testClient(t, srv.URL)
	detail, err := client.GetClipDetail(context.Background(), "Cxy123AbCd1")
	if err != nil {
		t.Fatalf("GetClipDetail() error: %v", err)
	}
	if detail.ViewCount != 5400 {
		t.Errorf("ViewCount = %d, want the play-count fallback", detail.ViewCount)
	}
	if detail.CommentCount != 33 {
		t.Errorf("CommentCount = %d, want the parent-comment fallback", detail.CommentCount)
	}
	if detail.VideoURL != "https://scontent.cdninstagram.com/fresh.mp4" {
		t.Errorf("VideoURL = %q", detail.VideoURL)
	}
}

func TestGetClipDetailMissingMedia(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data": {"xdt_shortcode_media": null}}`))
	}))
	defer srv.Close()

	client := testClient(t, srv.URL)
	if _, err := client.GetClipDetail(context.Background(), "expired"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestFlexID(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"number", `{"pk": 123456}`, "123456"},
		{"string", `{"pk": "123456"}`, "123456"},
		{"large number", `{"pk": 3351001122000}`, "3351001122000"},
		{"null", `{"pk": null}`, ""},
		{"absent", `{}`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var user RawUser
			if err := json.Unmarshal([]byte(tt.input), &user); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if user.PK.String() != tt.want {
				t.Errorf("PK = %q, want %q", user.PK, tt.want)
			}
		})
	}
}
