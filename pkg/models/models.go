package models

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID           uuid.UUID `json:"id" gorm:"primaryKey"`
	Username     string    `json:"username" gorm:"size:50;uniqueIndex"`
	Email        string    `json:"email" gorm:"size:100;uniqueIndex"`
	PasswordHash string    `json:"-" gorm:"size:255"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type Album struct {
	ID        uuid.UUID `json:"id" gorm:"primaryKey"`
	Title     string    `json:"title" gorm:"size:255"`
	Artist    string    `json:"artist" gorm:"size:255"`
	ImageURL  string    `json:"image_url" gorm:"size:500"`
	Year      *int      `json:"year"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Tracks []Track `json:"-" gorm:"constraint:OnDelete:CASCADE"`
}

type Track struct {
	ID        uuid.UUID  `json:"id" gorm:"primaryKey"`
	Title     string     `json:"title" gorm:"size:255"`
	Artist    string     `json:"artist" gorm:"size:255"`
	AlbumID   *uuid.UUID `json:"album_id" gorm:"index"`
	Duration  int        `json:"duration"` // seconds
	AudioURL  string     `json:"audio_url" gorm:"size:500"`
	ImageURL  string     `json:"image_url" gorm:"size:500"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`

	Album     *Album          `json:"-"`
	Entries   []PlaylistEntry `json:"-" gorm:"constraint:OnDelete:CASCADE"`
	Favorites []Favorite      `json:"-" gorm:"constraint:OnDelete:CASCADE"`
}

type Playlist struct {
	ID        uuid.UUID `json:"id" gorm:"primaryKey"`
	UserID    uuid.UUID `json:"user_id" gorm:"index"`
	Name      string    `json:"name" gorm:"size:255"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Entries []PlaylistEntry `json:"-" gorm:"constraint:OnDelete:CASCADE"`
}

// PlaylistEntry binds a track to a playlist at an integer position.
// Positions are gap-tolerant: removal never renumbers, and a new entry
// always takes 1 + max(position) within the playlist.
type PlaylistEntry struct {
	ID         uuid.UUID `json:"id" gorm:"primaryKey"`
	PlaylistID uuid.UUID `json:"playlist_id" gorm:"uniqueIndex:idx_entry_playlist_track;uniqueIndex:idx_entry_playlist_position"`
	TrackID    uuid.UUID `json:"track_id" gorm:"uniqueIndex:idx_entry_playlist_track"`
	Position   int       `json:"position" gorm:"uniqueIndex:idx_entry_playlist_position"`
	CreatedAt  time.Time `json:"created_at"`
}

// Favorite is a (user, track) pair; the composite unique index enforces
// at most one row per pair. The integer key is insertion-ordered, so it
// breaks created_at ties in the favorites listing.
type Favorite struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	UserID    uuid.UUID `json:"user_id" gorm:"uniqueIndex:idx_favorite_user_track"`
	TrackID   uuid.UUID `json:"track_id" gorm:"uniqueIndex:idx_favorite_user_track"`
	CreatedAt time.Time `json:"created_at"`
}
