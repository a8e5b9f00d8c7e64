package favorites

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/media-library-system/pkg/apperrors"
	"github.com/media-library-system/pkg/database"
	"github.com/media-library-system/pkg/events"
	"github.com/media-library-system/pkg/models"
	"github.com/media-library-system/pkg/projection"
)

// Service maintains the (user, track) favorites index. The index is the only
// source of truth for favorite status; read paths join against it and the
// track row never caches the flag.
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

// Toggle strictly flips the favorite state of (user, track) and reports the
// new state. Callers cannot set a target state, only flip.
func (s *Service) Toggle(ctx context.Context, userID, trackID uuid.UUID) (bool, error) {
	var isFavorite bool
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Existence check and flip share the transaction so a concurrent
		// track delete cannot slip between them.
		var count int64
		if err := tx.Model(&models.Track{}).
			Where("id = ?", trackID).
			Count(&count).Error; err != nil {
			return fmt.Errorf("failed to check track: %w", err)
		}
		if count == 0 {
			return apperrors.NotFound("track not found")
		}

		var fav models.Favorite
		err := tx.Where("user_id = ? AND track_id = ?", userID, trackID).First(&fav).Error
		if err == nil {
			if err := tx.Delete(&fav).Error; err != nil {
				return fmt.Errorf("failed to remove favorite: %w", err)
			}
			isFavorite = false
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("failed to check favorite: %w", err)
		}

		fav = models.Favorite{
			UserID:  userID,
			TrackID: trackID,
		}
		if err := tx.Create(&fav).Error; err != nil {
			// Two concurrent toggles both observed "absent"; the
			// uniqueness constraint rejected the loser, whose flip now
			// lands as a delete of the winner's row.
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				if err := tx.Where("user_id = ? AND track_id = ?", userID, trackID).
					Delete(&models.Favorite{}).Error; err != nil {
					return fmt.Errorf("failed to remove favorite: %w", err)
				}
				isFavorite = false
				return nil
			}
			return fmt.Errorf("failed to add favorite: %w", err)
		}
		isFavorite = true
		return nil
	})
	if err != nil {
		return false, err
	}

	s.publish(ctx, userID, events.FavoritePayload{
		TrackID:    trackID.String(),
		IsFavorite: isFavorite,
	})
	return isFavorite, nil
}

// List returns the user's favorited tracks, fully resolved, most recently
// favorited first. The id tiebreak is insertion order, so favorites landing
// on the same timestamp still list newest-first.
func (s *Service) List(ctx context.Context, userID uuid.UUID) ([]projection.TrackView, error) {
	var favs []models.Favorite
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Find(&favs).Error; err != nil {
		return nil, fmt.Errorf("failed to list favorites: %w", err)
	}

	views := make([]projection.TrackView, 0, len(favs))
	if len(favs) == 0 {
		return views, nil
	}

	trackIDs := make([]uuid.UUID, 0, len(favs))
	for _, f := range favs {
		trackIDs = append(trackIDs, f.TrackID)
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

	for _, f := range favs {
		t, ok := byID[f.TrackID]
		if !ok {
			continue
		}
		views = append(views, projection.Track(t, true))
	}
	return views, nil
}

func (s *Service) publish(ctx context.Context, userID uuid.UUID, payload events.FavoritePayload) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishEvent(ctx, events.EventTypeFavoriteToggled, userID.String(), payload); err != nil {
		log.Printf("favorites: publish event: %v", err)
	}
}
