package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/media-library-system/pkg/apperrors"
	"github.com/media-library-system/pkg/database"
	"github.com/media-library-system/pkg/events"
	"github.com/media-library-system/pkg/models"
	"github.com/media-library-system/pkg/projection"
	"github.com/media-library-system/pkg/storage"
)

// MediaStore is the file-storage surface the catalog needs; satisfied by
// *storage.LocalStore.
type MediaStore interface {
	Store(kind storage.Kind, originalName string, r io.Reader) (string, error)
	Delete(publicURL string) error
}

type Service struct {
	db     *database.DB
	store  MediaStore
	events events.Publisher
}

func NewService(db *database.DB, store MediaStore, events events.Publisher) *Service {
	return &Service{
		db:     db,
		store:  store,
		events: events,
	}
}

func (s *Service) ListTracks(ctx context.Context, search string, limit, offset int, userID *uuid.UUID) ([]projection.TrackView, error) {
	tracks, err := s.db.ListTracks(search, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list tracks: %w", err)
	}

	favorites, err := s.favoriteSet(userID)
	if err != nil {
		return nil, err
	}
	return projection.Tracks(tracks, favorites), nil
}

func (s *Service) GetTrack(ctx context.Context, id uuid.UUID, userID *uuid.UUID) (*projection.TrackView, error) {
	track, err := s.db.GetTrackByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("track not found")
		}
		return nil, fmt.Errorf("failed to load track: %w", err)
	}

	favorites, err := s.favoriteSet(userID)
	if err != nil {
		return nil, err
	}
	view := projection.Track(*track, favorites[track.ID.String()])
	return &view, nil
}

type CreateTrackInput struct {
	Title     string
	Artist    string
	AlbumID   *uuid.UUID
	Duration  int
	Audio     io.Reader
	AudioName string
	Image     io.Reader // optional
	ImageName string
}

func (s *Service) CreateTrack(ctx context.Context, in CreateTrackInput) (*projection.TrackView, error) {
	if in.Title == "" || in.Artist == "" {
		return nil, apperrors.Validation("title and artist are required")
	}
	if in.Audio == nil {
		return nil, apperrors.Validation("audio file is required")
	}
	if in.Duration < 0 {
		return nil, apperrors.Validation("duration must not be negative")
	}
	if in.AlbumID != nil {
		if _, err := s.db.GetAlbumByID(*in.AlbumID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, apperrors.NotFound("album not found")
			}
			return nil, fmt.Errorf("failed to load album: %w", err)
		}
	}

	audioURL, err := s.store.Store(storage.KindAudio, in.AudioName, in.Audio)
	if err != nil {
		return nil, fmt.Errorf("failed to store audio: %w", err)
	}

	imageURL := ""
	if in.Image != nil {
		imageURL, err = s.store.Store(storage.KindImage, in.ImageName, in.Image)
		if err != nil {
			s.removeFiles(audioURL)
			return nil, fmt.Errorf("failed to store image: %w", err)
		}
	}

	track := &models.Track{
		ID:       uuid.New(),
		Title:    in.Title,
		Artist:   in.Artist,
		AlbumID:  in.AlbumID,
		Duration: in.Duration,
		AudioURL: audioURL,
		ImageURL: imageURL,
	}
	if err := s.db.CreateTrack(track); err != nil {
		s.removeFiles(audioURL, imageURL)
		return nil, fmt.Errorf("failed to create track: %w", err)
	}

	s.publish(ctx, events.EventTypeTrackUploaded, "", events.TrackPayload{
		TrackID: track.ID.String(),
		Title:   track.Title,
		Artist:  track.Artist,
	})

	created, err := s.db.GetTrackByID(track.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload track: %w", err)
	}
	view := projection.Track(*created, false)
	return &view, nil
}

// DeleteTrack removes a track and, in the same transaction, every playlist
// entry and favorite that references it. No dangling membership rows survive.
func (s *Service) DeleteTrack(ctx context.Context, id uuid.UUID) error {
	track, err := s.db.GetTrackByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.NotFound("track not found")
		}
		return fmt.Errorf("failed to load track: %w", err)
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("track_id = ?", id).Delete(&models.PlaylistEntry{}).Error; err != nil {
			return fmt.Errorf("failed to delete playlist entries: %w", err)
		}
		if err := tx.Where("track_id = ?", id).Delete(&models.Favorite{}).Error; err != nil {
			return fmt.Errorf("failed to delete favorites: %w", err)
		}
		if err := tx.Delete(&models.Track{}, "id = ?", id).Error; err != nil {
			return fmt.Errorf("failed to delete track: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.removeFiles(track.AudioURL, track.ImageURL)
	s.publish(ctx, events.EventTypeTrackDeleted, "", events.TrackPayload{
		TrackID: track.ID.String(),
		Title:   track.Title,
		Artist:  track.Artist,
	})
	return nil
}

func (s *Service) ListAlbums(ctx context.Context, limit, offset int) ([]projection.AlbumView, error) {
	albums, err := s.db.ListAlbums(limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list albums: %w", err)
	}

	counts, err := s.db.AlbumTrackCounts()
	if err != nil {
		return nil, fmt.Errorf("failed to count album tracks: %w", err)
	}

	views := make([]projection.AlbumView, 0, len(albums))
	for _, a := range albums {
		views = append(views, projection.Album(a, counts[a.ID], nil))
	}
	return views, nil
}

func (s *Service) GetAlbum(ctx context.Context, id uuid.UUID, userID *uuid.UUID) (*projection.AlbumView, error) {
	album, err := s.db.GetAlbumByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("album not found")
		}
		return nil, fmt.Errorf("failed to load album: %w", err)
	}

	tracks, err := s.db.TracksByAlbum(id)
	if err != nil {
		return nil, fmt.Errorf("failed to load album tracks: %w", err)
	}

	favorites, err := s.favoriteSet(userID)
	if err != nil {
		return nil, err
	}

	view := projection.Album(*album, len(tracks), projection.Tracks(tracks, favorites))
	return &view, nil
}

type CreateAlbumInput struct {
	Title     string
	Artist    string
	Year      *int
	Image     io.Reader // optional
	ImageName string
}

func (s *Service) CreateAlbum(ctx context.Context, in CreateAlbumInput) (*projection.AlbumView, error) {
	if in.Title == "" || in.Artist == "" {
		return nil, apperrors.Validation("title and artist are required")
	}

	imageURL := ""
	if in.Image != nil {
		var err error
		imageURL, err = s.store.Store(storage.KindImage, in.ImageName, in.Image)
		if err != nil {
			return nil, fmt.Errorf("failed to store image: %w", err)
		}
	}

	album := &models.Album{
		ID:       uuid.New(),
		Title:    in.Title,
		Artist:   in.Artist,
		ImageURL: imageURL,
		Year:     in.Year,
	}
	if err := s.db.CreateAlbum(album); err != nil {
		s.removeFiles(imageURL)
		return nil, fmt.Errorf("failed to create album: %w", err)
	}

	view := projection.Album(*album, 0, nil)
	return &view, nil
}

type UpdateAlbumInput struct {
	Title     *string
	Artist    *string
	Year      *int
	Image     io.Reader // optional replacement cover
	ImageName string
}

func (s *Service) UpdateAlbum(ctx context.Context, id uuid.UUID, in UpdateAlbumInput) (*projection.AlbumView, error) {
	album, err := s.db.GetAlbumByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("album not found")
		}
		return nil, fmt.Errorf("failed to load album: %w", err)
	}

	oldImage := ""
	if in.Title != nil && *in.Title != "" {
		album.Title = *in.Title
	}
	if in.Artist != nil && *in.Artist != "" {
		album.Artist = *in.Artist
	}
	if in.Year != nil {
		album.Year = in.Year
	}
	if in.Image != nil {
		imageURL, err := s.store.Store(storage.KindImage, in.ImageName, in.Image)
		if err != nil {
			return nil, fmt.Errorf("failed to store image: %w", err)
		}
		oldImage = album.ImageURL
		album.ImageURL = imageURL
	}

	if err := s.db.WithContext(ctx).Save(album).Error; err != nil {
		return nil, fmt.Errorf("failed to update album: %w", err)
	}
	s.removeFiles(oldImage)

	counts, err := s.db.AlbumTrackCounts()
	if err != nil {
		return nil, fmt.Errorf("failed to count album tracks: %w", err)
	}
	view := projection.Album(*album, counts[album.ID], nil)
	return &view, nil
}

// DeleteAlbum cascades: the album's tracks go, and with them every playlist
// entry and favorite referencing those tracks.
func (s *Service) DeleteAlbum(ctx context.Context, id uuid.UUID) error {
	album, err := s.db.GetAlbumByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.NotFound("album not found")
		}
		return fmt.Errorf("failed to load album: %w", err)
	}

	tracks, err := s.db.TracksByAlbum(id)
	if err != nil {
		return fmt.Errorf("failed to load album tracks: %w", err)
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, t := range tracks {
			if err := tx.Where("track_id = ?", t.ID).Delete(&models.PlaylistEntry{}).Error; err != nil {
				return fmt.Errorf("failed to delete playlist entries: %w", err)
			}
			if err := tx.Where("track_id = ?", t.ID).Delete(&models.Favorite{}).Error; err != nil {
				return fmt.Errorf("failed to delete favorites: %w", err)
			}
		}
		if err := tx.Where("album_id = ?", id).Delete(&models.Track{}).Error; err != nil {
			return fmt.Errorf("failed to delete tracks: %w", err)
		}
		if err := tx.Delete(&models.Album{}, "id = ?", id).Error; err != nil {
			return fmt.Errorf("failed to delete album: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	for _, t := range tracks {
		s.removeFiles(t.AudioURL, t.ImageURL)
	}
	s.removeFiles(album.ImageURL)
	s.publish(ctx, events.EventTypeAlbumDeleted, "", events.TrackPayload{TrackID: album.ID.String(), Title: album.Title, Artist: album.Artist})
	return nil
}

// favoriteSet loads the caller's favorite index; anonymous callers get an
// empty set so every isFavorite resolves false.
func (s *Service) favoriteSet(userID *uuid.UUID) (map[string]bool, error) {
	if userID == nil {
		return nil, nil
	}
	set, err := s.db.FavoriteTrackIDs(*userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load favorites: %w", err)
	}
	return set, nil
}

func (s *Service) removeFiles(urls ...string) {
	for _, u := range urls {
		if u == "" {
			continue
		}
		if err := s.store.Delete(u); err != nil {
			log.Printf("catalog: delete file: %v", err)
		}
	}
}

func (s *Service) publish(ctx context.Context, eventType events.EventType, userID string, payload interface{}) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishEvent(ctx, eventType, userID, payload); err != nil {
		log.Printf("catalog: publish event: %v", err)
	}
}
