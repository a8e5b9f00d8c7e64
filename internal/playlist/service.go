package playlist

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/media-library-system/pkg/apperrors"
	"github.com/media-library-system/pkg/database"
	"github.com/media-library-system/pkg/events"
	"github.com/media-library-system/pkg/models"
	"github.com/media-library-system/pkg/projection"
)

// Service owns playlists, their membership and the ordering of tracks within
// them. Every operation takes the caller as owner; a playlist that exists but
// belongs to someone else is reported exactly like one that does not exist.
type Service struct {
	db     *database.DB
	events events.Publisher
}

func NewService(db *database.DB, events events.Publisher) *Service {
	return &Service{
		db:     db,
		events: events,
	}
}

func (s *Service) Create(ctx context.Context, ownerID uuid.UUID, name string) (*projection.PlaylistSummary, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.Validation("playlist name is required")
	}

	pl := &models.Playlist{
		ID:     uuid.New(),
		UserID: ownerID,
		Name:   name,
	}
	if err := s.db.WithContext(ctx).Create(pl).Error; err != nil {
		return nil, fmt.Errorf("failed to create playlist: %w", err)
	}

	s.publish(ctx, events.EventTypePlaylistCreated, ownerID, events.PlaylistPayload{
		PlaylistID: pl.ID.String(),
		Name:       pl.Name,
	})

	summary := projection.Playlist(*pl, 0)
	return &summary, nil
}

func (s *Service) List(ctx context.Context, ownerID uuid.UUID) ([]projection.PlaylistSummary, error) {
	var playlists []models.Playlist
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", ownerID).
		Order("created_at DESC").
		Find(&playlists).Error; err != nil {
		return nil, fmt.Errorf("failed to list playlists: %w", err)
	}

	counts, err := s.db.PlaylistEntryCounts(ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to count playlist entries: %w", err)
	}

	summaries := make([]projection.PlaylistSummary, 0, len(playlists))
	for _, pl := range playlists {
		summaries = append(summaries, projection.Playlist(pl, counts[pl.ID]))
	}
	return summaries, nil
}

func (s *Service) Get(ctx context.Context, ownerID, playlistID uuid.UUID) (*projection.PlaylistDetail, error) {
	pl, err := s.findOwned(ctx, s.db.DB, ownerID, playlistID)
	if err != nil {
		return nil, err
	}

	// Ascending position defines playback order; created_at then id break
	// ties so the order is stable.
	var entries []models.PlaylistEntry
	if err := s.db.WithContext(ctx).
		Where("playlist_id = ?", playlistID).
		Order("position ASC, created_at ASC, id ASC").
		Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("failed to load playlist entries: %w", err)
	}

	views, err := s.resolveEntries(ctx, ownerID, entries)
	if err != nil {
		return nil, err
	}

	detail := projection.PlaylistWithTracks(*pl, views)
	return &detail, nil
}

func (s *Service) Rename(ctx context.Context, ownerID, playlistID uuid.UUID, newName string) (*projection.PlaylistSummary, error) {
	newName = strings.TrimSpace(newName)
	if newName == "" {
		return nil, apperrors.Validation("playlist name is required")
	}

	pl, err := s.findOwned(ctx, s.db.DB, ownerID, playlistID)
	if err != nil {
		return nil, err
	}

	pl.Name = newName
	if err := s.db.WithContext(ctx).Save(pl).Error; err != nil {
		return nil, fmt.Errorf("failed to rename playlist: %w", err)
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.PlaylistEntry{}).
		Where("playlist_id = ?", playlistID).
		Count(&count).Error; err != nil {
		return nil, fmt.Errorf("failed to count playlist entries: %w", err)
	}

	s.publish(ctx, events.EventTypePlaylistRenamed, ownerID, events.PlaylistPayload{
		PlaylistID: pl.ID.String(),
		Name:       pl.Name,
	})

	summary := projection.Playlist(*pl, int(count))
	return &summary, nil
}

func (s *Service) Delete(ctx context.Context, ownerID, playlistID uuid.UUID) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		pl, err := s.findOwned(ctx, tx, ownerID, playlistID)
		if err != nil {
			return err
		}
		if err := tx.Where("playlist_id = ?", playlistID).Delete(&models.PlaylistEntry{}).Error; err != nil {
			return fmt.Errorf("failed to delete playlist entries: %w", err)
		}
		if err := tx.Delete(pl).Error; err != nil {
			return fmt.Errorf("failed to delete playlist: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.publish(ctx, events.EventTypePlaylistDeleted, ownerID, events.PlaylistPayload{
		PlaylistID: playlistID.String(),
	})
	return nil
}

// AddTrack appends a track to the end of a playlist. The ownership check,
// track existence check, duplicate check, position computation and insert run
// in one transaction so concurrent adds to the same playlist cannot collide.
func (s *Service) AddTrack(ctx context.Context, ownerID, playlistID, trackID uuid.UUID) (*projection.TrackView, error) {
	var track models.Track
	var entry models.PlaylistEntry

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.findOwned(ctx, tx, ownerID, playlistID); err != nil {
			return err
		}

		if err := tx.Preload("Album").First(&track, "id = ?", trackID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.NotFound("track not found")
			}
			return fmt.Errorf("failed to load track: %w", err)
		}

		var count int64
		if err := tx.Model(&models.PlaylistEntry{}).
			Where("playlist_id = ? AND track_id = ?", playlistID, trackID).
			Count(&count).Error; err != nil {
			return fmt.Errorf("failed to check membership: %w", err)
		}
		if count > 0 {
			return apperrors.Conflict("track is already in playlist")
		}

		inserted, err := insertAtTail(tx, playlistID, trackID)
		if err == nil {
			entry = *inserted
			return nil
		}
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("failed to insert entry: %w", err)
		}

		// A concurrent add won a uniqueness race. A position collision is
		// resolved by recomputing the tail once; if the same track was
		// inserted concurrently the retry trips the membership constraint
		// and the conflict surfaces to the caller.
		inserted, err = insertAtTail(tx, playlistID, trackID)
		if err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return apperrors.Conflict("track is already in playlist")
			}
			return fmt.Errorf("failed to insert entry: %w", err)
		}
		entry = *inserted
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.EventTypePlaylistTrackAdded, ownerID, events.PlaylistTrackPayload{
		PlaylistID: playlistID.String(),
		TrackID:    trackID.String(),
		Position:   entry.Position,
	})

	isFavorite, err := s.isFavorite(ctx, ownerID, trackID)
	if err != nil {
		return nil, err
	}
	view := projection.Track(track, isFavorite)
	return &view, nil
}

// RemoveTrack deletes the matching entry if present. Removing a track that is
// not a member succeeds without changing anything, and remaining entries keep
// their positions (gaps are expected).
func (s *Service) RemoveTrack(ctx context.Context, ownerID, playlistID, trackID uuid.UUID) error {
	if _, err := s.findOwned(ctx, s.db.DB, ownerID, playlistID); err != nil {
		return err
	}

	if err := s.db.WithContext(ctx).
		Where("playlist_id = ? AND track_id = ?", playlistID, trackID).
		Delete(&models.PlaylistEntry{}).Error; err != nil {
		return fmt.Errorf("failed to remove entry: %w", err)
	}

	s.publish(ctx, events.EventTypePlaylistTrackRemoved, ownerID, events.PlaylistTrackPayload{
		PlaylistID: playlistID.String(),
		TrackID:    trackID.String(),
	})
	return nil
}

// insertAtTail assigns 1 + max(position) within the playlist, or 1 when the
// playlist is empty. Gaps left by removals are never reused.
func insertAtTail(tx *gorm.DB, playlistID, trackID uuid.UUID) (*models.PlaylistEntry, error) {
	var maxPos int
	if err := tx.Model(&models.PlaylistEntry{}).
		Where("playlist_id = ?", playlistID).
		Select("COALESCE(MAX(position), 0)").
		Scan(&maxPos).Error; err != nil {
		return nil, fmt.Errorf("failed to compute position: %w", err)
	}

	entry := &models.PlaylistEntry{
		ID:         uuid.New(),
		PlaylistID: playlistID,
		TrackID:    trackID,
		Position:   maxPos + 1,
	}
	if err := tx.Create(entry).Error; err != nil {
		return nil, err
	}
	return entry, nil
}

// findOwned resolves a playlist under the ownership check. An ownership miss
// and an existence miss are deliberately indistinguishable.
func (s *Service) findOwned(ctx context.Context, tx *gorm.DB, ownerID, playlistID uuid.UUID) (*models.Playlist, error) {
	var pl models.Playlist
	err := tx.WithContext(ctx).
		Where("id = ? AND user_id = ?", playlistID, ownerID).
		First(&pl).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NotFound("playlist not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load playlist: %w", err)
	}
	return &pl, nil
}

// resolveEntries projects playlist entries in order, joining each track
// against the catalog and the caller's favorites index.
func (s *Service) resolveEntries(ctx context.Context, ownerID uuid.UUID, entries []models.PlaylistEntry) ([]projection.TrackView, error) {
	views := make([]projection.TrackView, 0, len(entries))
	if len(entries) == 0 {
		return views, nil
	}

	trackIDs := make([]uuid.UUID, 0, len(entries))
	for _, e := range entries {
		trackIDs = append(trackIDs, e.TrackID)
	}

	var tracks []models.Track
	if err := s.db.WithContext(ctx).
		Preload("Album").
		Where("id IN ?", trackIDs).
		Find(&tracks).Error; err != nil {
		return nil, fmt.Errorf("failed to load tracks: %w", err)
	}
	byID := make(map[uuid.UUID]models.Track, len(tracks))
	for _, t := range tracks {
		byID[t.ID] = t
	}

	favorites, err := s.db.FavoriteTrackIDs(ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load favorites: %w", err)
	}

	for _, e := range entries {
		t, ok := byID[e.TrackID]
		if !ok {
			continue
		}
		views = append(views, projection.Track(t, favorites[t.ID.String()]))
	}
	return views, nil
}

func (s *Service) isFavorite(ctx context.Context, userID, trackID uuid.UUID) (bool, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Favorite{}).
		Where("user_id = ? AND track_id = ?", userID, trackID).
		Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check favorite: %w", err)
	}
	return count > 0, nil
}

func (s *Service) publish(ctx context.Context, eventType events.EventType, userID uuid.UUID, payload interface{}) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishEvent(ctx, eventType, userID.String(), payload); err != nil {
		log.Printf("playlist: publish event: %v", err)
	}
}
