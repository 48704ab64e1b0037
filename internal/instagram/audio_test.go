package instagram

import (
	"testing"

	"github.com/drissea/reelsync/internal/models"
)

func TestClassifyAudio(t *testing.T) {
	tests := []struct {
		name         string
		media        RawMedia
		wantType     models.AudioType
		wantOriginal bool
		wantTitle    string
		wantArtist   string
		wantID       string
	}{
		{
			name: "licensed track from music metadata",
			media: RawMedia{
				MusicMetadata: &musicMetadata{
					MusicInfo: &musicInfo{
						SongName:       "Flowers",
						ArtistName:     "Miley Cyrus",
						AudioClusterID: "441002233",
					},
				},
			},
			wantType:     models.AudioLicensedMusic,
			wantOriginal: false,
			wantTitle:    "Flowers",
			wantArtist:   "Miley Cyrus",
			wantID:       "441002233",
		},
		{
			name: "music metadata without track details",
			media: RawMedia{
				MusicMetadata: &musicMetadata{},
			},
			wantType:     models.AudioLicensedMusic,
			wantOriginal: false,
		},
		{
			name: "clips music info with display artist fallback",
			media: RawMedia{
				ClipsMetadata: &clipsMetadata{
					MusicInfo: &musicInfo{
						DisplayArtist: "dj okawari",
						ArtistName:    "DJ Okawari",
						ID:            "99881100",
					},
				},
			},
			wantType:     models.AudioLicensedMusic,
			wantOriginal: false,
			wantTitle:    "dj okawari",
			wantArtist:   "DJ Okawari",
			wantID:       "99881100",
		},
		{
			name: "own original sound",
			media: RawMedia{
				ClipsMetadata: &clipsMetadata{
					OriginalSoundInfo: &originalSoundInfo{
						AudioAssetID:       "777001",
						OriginalAudioTitle: "Original audio",
					},
				},
			},
			wantType:     models.AudioOriginal,
			wantOriginal: true,
			wantTitle:    "Original audio",
			wantID:       "777001",
		},
		{
			name: "reused original sound",
			media: RawMedia{
				ClipsMetadata: &clipsMetadata{
					OriginalSoundInfo: &originalSoundInfo{
						AudioAssetID:  "777002",
						IsReusedAudio: true,
					},
				},
			},
			wantType:     models.AudioReusedOriginal,
			wantOriginal: false,
			wantID:       "777002",
		},
		{
			name: "remix-shareable original sound counts as reused",
			media: RawMedia{
				ClipsMetadata: &clipsMetadata{
					OriginalSoundInfo: &originalSoundInfo{
						AudioAssetID:         "777003",
						CanRemixBeSharedToFB: true,
					},
				},
			},
			wantType:     models.AudioReusedOriginal,
			wantOriginal: false,
			wantID:       "777003",
		},
		{
			name: "mashup",
			media: RawMedia{
				ClipsMetadata: &clipsMetadata{
					MashupInfo: &mashupInfo{MashupsAllowed: true},
				},
			},
			wantType:     models.AudioMashup,
			wantOriginal: false,
		},
		{
			name: "muted audio",
			media: RawMedia{
				ClipsMetadata: &clipsMetadata{IsAudioMuted: true},
			},
			wantType:     models.AudioMuted,
			wantOriginal: true,
		},
		{
			name:         "no audio structures defaults to original",
			media:        RawMedia{},
			wantType:     models.AudioOriginal,
			wantOriginal: true,
		},
		{
			name: "music metadata wins over clips metadata",
			media: RawMedia{
				MusicMetadata: &musicMetadata{
					MusicInfo: &musicInfo{SongName: "Top Track", AudioClusterID: "1"},
				},
				ClipsMetadata: &clipsMetadata{
					OriginalSoundInfo: &originalSoundInfo{AudioAssetID: "2"},
				},
			},
			wantType:     models.AudioLicensedMusic,
			wantOriginal: false,
			wantTitle:    "Top Track",
			wantID:       "1",
		},
		{
			name: "original sound wins over mashup and mute flags",
			media: RawMedia{
				ClipsMetadata: &clipsMetadata{
					OriginalSoundInfo: &originalSoundInfo{AudioAssetID: "3"},
					MashupInfo:        &mashupInfo{HasBeenMashedUp: true},
					IsAudioMuted:      true,
				},
			},
			wantType:     models.AudioOriginal,
			wantOriginal: true,
			wantID:       "3",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClassifyAudio(&tt.media)
			if got.Type != tt.wantType {
				t.Errorf("Type = %q, want %q", got.Type, tt.wantType)
			}
			if got.IsOriginal != tt.wantOriginal {
				t.Errorf("IsOriginal = %v, want %v", got.IsOriginal, tt.wantOriginal)
			}
			if got.Title != tt.wantTitle {
				t.Errorf("Title = %q, want %q", got.Title, tt.wantTitle)
			}
			if got.Artist != tt.wantArtist {
				t.Errorf("Artist = %q, want %q", got.Artist, tt.wantArtist)
			}
			if got.ID != tt.wantID {
				t.Errorf("ID = %q, want %q", got.ID, tt.wantID)
			}
		})
	}
}
