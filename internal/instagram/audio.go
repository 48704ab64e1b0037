package instagram

import (
	"github.com/drissea/reelsync/internal/models"
)

// AudioInfo is the result of classifying a reel's soundtrack.
type AudioInfo struct {
	Type       models.AudioType
	Title      string
	Artist     string
	ID         string
	IsOriginal bool
}

// ClassifyAudio determines how a reel's audio was sourced. The checks run in
// a fixed order and the first structure present wins; absent or partial
// structures fall through to the next check. A post with no recognizable
// audio structure counts as original.
func ClassifyAudio(m *RawMedia) AudioInfo {
	info := AudioInfo{Type: models.AudioOriginal, IsOriginal: true}

	// Licensed track attached from the music library.
	if m.MusicMetadata != nil {
		info.Type = models.AudioLicensedMusic
		info.IsOriginal = false
		if mi := m.MusicMetadata.MusicInfo; mi != nil {
			info.Title = mi.SongName
			info.Artist = mi.ArtistName
			info.ID = mi.AudioClusterID.String()
		}
		return info
	}

	var clips clipsMetadata
	if m.ClipsMetadata != nil {
		clips = *m.ClipsMetadata
	}

	if mi := clips.MusicInfo; mi != nil {
		info.Type = models.AudioLicensedMusic
		info.IsOriginal = false
		info.Title = firstNonEmpty(mi.SongName, mi.DisplayArtist)
		info.Artist = mi.ArtistName
		info.ID = firstNonEmpty(mi.AudioClusterID.String(), mi.ID.String())
		return info
	}

	if sound := clips.OriginalSoundInfo; sound != nil {
		info.ID = sound.AudioAssetID.String()
		info.Title = sound.OriginalAudioTitle
		// A sound first published on another reel is original audio but not
		// this creator's own.
		if sound.IsReusedAudio || sound.CanRemixBeSharedToFB {
			info.Type = models.AudioReusedOriginal
			info.IsOriginal = false
		}
		return info
	}

	if clips.MashupInfo != nil {
		info.Type = models.AudioMashup
		info.IsOriginal = false
		return info
	}

	if clips.IsAudioMuted {
		// Muted still counts as original: nothing was borrowed.
		info.Type = models.AudioMuted
		return info
	}

	return info
}
