// Package projection builds the denormalized, client-facing shapes of
// catalog records. Every read path (track list, track detail, album detail,
// playlist detail, favorites list) goes through the same functions so the
// album-name and image fallback rules exist in exactly one place.
package projection

import (
	"time"

	"github.com/media-library-system/pkg/models"
)

const (
	UnknownAlbum = "Unknown Album"
	DefaultImage = "/default-album.jpg"
)

type TrackView struct {
	ID         string  `json:"id"`
	Title      string  `json:"title"`
	Artist     string  `json:"artist"`
	Album      string  `json:"album"`
	Image      string  `json:"image"`
	Duration   int     `json:"duration"`
	AudioURL   string  `json:"audioUrl"`
	AlbumID    *string `json:"albumId,omitempty"`
	IsFavorite bool    `json:"isFavorite"`
}

type AlbumView struct {
	ID         string      `json:"id"`
	Title      string      `json:"title"`
	Artist     string      `json:"artist"`
	Image      string      `json:"image"`
	Year       *int        `json:"year"`
	TrackCount int         `json:"trackCount"`
	Tracks     []TrackView `json:"tracks,omitempty"`
}

type PlaylistSummary struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	TrackCount int       `json:"trackCount"`
	CreatedAt  time.Time `json:"createdAt"`
}

type PlaylistDetail struct {
	ID         string      `json:"id"`
	Name       string      `json:"name"`
	TrackCount int         `json:"trackCount"`
	CreatedAt  time.Time   `json:"createdAt"`
	Tracks     []TrackView `json:"tracks"`
}

// Track projects a catalog track for the given caller. The album name falls
// back to UnknownAlbum and the image falls back track image -> album image ->
// DefaultImage. t.Album must be preloaded when the track belongs to one.
func Track(t models.Track, isFavorite bool) TrackView {
	v := TrackView{
		ID:         t.ID.String(),
		Title:      t.Title,
		Artist:     t.Artist,
		Album:      UnknownAlbum,
		Image:      t.ImageURL,
		Duration:   t.Duration,
		AudioURL:   t.AudioURL,
		IsFavorite: isFavorite,
	}
	if t.Album != nil {
		v.Album = t.Album.Title
		if v.Image == "" {
			v.Image = t.Album.ImageURL
		}
	}
	if v.Image == "" {
		v.Image = DefaultImage
	}
	if t.AlbumID != nil {
		id := t.AlbumID.String()
		v.AlbumID = &id
	}
	return v
}

// Tracks projects a slice of tracks, resolving favorite status against the
// caller's favorite id set. A nil set means an anonymous caller.
func Tracks(tracks []models.Track, favorites map[string]bool) []TrackView {
	views := make([]TrackView, 0, len(tracks))
	for _, t := range tracks {
		views = append(views, Track(t, favorites[t.ID.String()]))
	}
	return views
}

func Album(a models.Album, trackCount int, tracks []TrackView) AlbumView {
	image := a.ImageURL
	if image == "" {
		image = DefaultImage
	}
	return AlbumView{
		ID:         a.ID.String(),
		Title:      a.Title,
		Artist:     a.Artist,
		Image:      image,
		Year:       a.Year,
		TrackCount: trackCount,
		Tracks:     tracks,
	}
}

func Playlist(p models.Playlist, trackCount int) PlaylistSummary {
	return PlaylistSummary{
		ID:         p.ID.String(),
		Name:       p.Name,
		TrackCount: trackCount,
		CreatedAt:  p.CreatedAt,
	}
}

func PlaylistWithTracks(p models.Playlist, tracks []TrackView) PlaylistDetail {
	return PlaylistDetail{
		ID:         p.ID.String(),
		Name:       p.Name,
		TrackCount: len(tracks),
		CreatedAt:  p.CreatedAt,
		Tracks:     tracks,
	}
}
