package enrich

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/drissea/reelsync/internal/models"
)

// fakeTranscriber maps received media bytes to canned transcripts.
type fakeTranscriber struct {
	transcripts map[string]string
	calls       int
	lastFile    string
}

func (f *fakeTranscriber) Transcribe(ctx context.Context, media io.Reader, filename string) (string, error) {
	f.calls++
	f.lastFile = filename
	data, err := io.ReadAll(media)
	if err != nil {
		return "", err
	}
	text, ok := f.transcripts[string(data)]
	if !ok {
		return "", errors.New("unrecognized audio")
	}
	return text, nil
}

func mediaServer(t *testing.T, clips map[string]string) (*httptest.Server, *int) {
	t.Helper()
	downloads := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		downloads++
		clip, ok := clips[r.URL.Path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write([]byte(clip))
	}))
	t.Cleanup(srv.Close)
	return srv, &downloads
}

func TestEnrich(t *testing.T) {
	srv, downloads := mediaServer(t, map[string]string{"/clip.mp4": "clip bytes"})
	fake := &fakeTranscriber{transcripts: map[string]string{"clip bytes": "hello from the kitchen"}}
	pipeline := NewPipeline(fake, 5*time.Second, zap.NewNop())

	post := &models.Post{Shortcode: "DA1bc23", VideoURL: srv.URL + "/clip.mp4"}
	enriched, err := pipeline.Enrich(context.Background(), post)
	if err != nil {
		t.Fatalf("Enrich failed: %v", err)
	}
	if !enriched {
		t.Fatal("expected transcript to be attached")
	}
	if post.Transcription != "hello from the kitchen" {
		t.Errorf("transcription = %q", post.Transcription)
	}
	if !post.IsTranscribed {
		t.Error("expected IsTranscribed to be set")
	}
	if *downloads != 1 || fake.calls != 1 {
		t.Errorf("expected one download and one transcription, got %d and %d", *downloads, fake.calls)
	}
	if fake.lastFile != "input.mp4" {
		t.Errorf("filename = %q", fake.lastFile)
	}
}

func TestEnrichSkipsMissingVideo(t *testing.T) {
	fake := &fakeTranscriber{}
	pipeline := NewPipeline(fake, 5*time.Second, zap.NewNop())

	post := &models.Post{Shortcode: "DA1bc23"}
	enriched, err := pipeline.Enrich(context.Background(), post)
	if err != nil {
		t.Fatalf("Enrich failed: %v", err)
	}
	if enriched {
		t.Error("expected reel without video to be skipped")
	}
	if fake.calls != 0 {
		t.Errorf("expected no transcription calls, got %d", fake.calls)
	}
}

func TestEnrichTranscriberFailure(t *testing.T) {
	srv, _ := mediaServer(t, map[string]string{"/clip.mp4": "garbled"})
	fake := &fakeTranscriber{transcripts: map[string]string{}}
	pipeline := NewPipeline(fake, 5*time.Second, zap.NewNop())

	post := &models.Post{
		Shortcode:     "DA1bc23",
		VideoURL:      srv.URL + "/clip.mp4",
		Transcription: "earlier transcript",
	}
	enriched, err := pipeline.Enrich(context.Background(), post)
	if err == nil {
		t.Fatal("expected transcription error")
	}
	if enriched {
		t.Error("expected no transcript on failure")
	}
	if post.IsTranscribed {
		t.Error("IsTranscribed must stay false on failure")
	}
	if post.Transcription != "earlier transcript" {
		t.Errorf("prior transcript was clobbered: %q", post.Transcription)
	}
}

func TestEnrichDownloadFailure(t *testing.T) {
	srv, _ := mediaServer(t, map[string]string{})
	fake := &fakeTranscriber{}
	pipeline := NewPipeline(fake, 5*time.Second, zap.NewNop())

	post := &models.Post{Shortcode: "DA1bc23", VideoURL: srv.URL + "/gone.mp4"}
	if _, err := pipeline.Enrich(context.Background(), post); err == nil {
		t.Fatal("expected download error")
	}
	if fake.calls != 0 {
		t.Errorf("expected no transcription after failed download, got %d", fake.calls)
	}
}

func TestEnrichAll(t *testing.T) {
	srv, _ := mediaServer(t, map[string]string{
		"/good.mp4": "good bytes",
		"/bad.mp4":  "bad bytes",
	})
	fake := &fakeTranscriber{transcripts: map[string]string{"good bytes": "a transcript"}}
	pipeline := NewPipeline(fake, 5*time.Second, zap.NewNop())

	posts := []*models.Post{
		{Shortcode: "good", VideoURL: srv.URL + "/good.mp4"},
		{Shortcode: "bad", VideoURL: srv.URL + "/bad.mp4"},
		{Shortcode: "silent"},
	}
	ok, failed := pipeline.EnrichAll(context.Background(), posts)
	if ok != 1 || failed != 1 {
		t.Errorf("EnrichAll = %d ok, %d failed; expected 1 and 1", ok, failed)
	}
	if !posts[0].IsTranscribed || posts[1].IsTranscribed || posts[2].IsTranscribed {
		t.Error("unexpected transcription flags")
	}
}

func TestEnrichAllCancelled(t *testing.T) {
	fake := &fakeTranscriber{}
	pipeline := NewPipeline(fake, 5*time.Second, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	posts := []*models.Post{{Shortcode: "a", VideoURL: "http://unreachable.invalid/a.mp4"}}
	ok, failed := pipeline.EnrichAll(ctx, posts)
	if ok != 0 || failed != 0 {
		t.Errorf("EnrichAll after cancel = %d ok, %d failed", ok, failed)
	}
	if fake.calls != 0 {
		t.Errorf("expected no work after cancellation, got %d calls", fake.calls)
	}
}
