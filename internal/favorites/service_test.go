package favorites

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/media-library-system/pkg/apperrors"
	"github.com/media-library-system/pkg/database"
	"github.com/media-library-system/pkg/models"
	"github.com/media-library-system/pkg/projection"
)

func newTestDB(t *testing.T) *database.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := database.NewSQLite(dsn)
	require.NoError(t, err)
	return db
}

func seedUser(t *testing.T, db *database.DB, username string) uuid.UUID {
	t.Helper()
	user := &models.User{
		ID:       uuid.New(),
		Username: username,
		Email:    username + "@example.com",
	}
	require.NoError(t, db.CreateUser(user))
	return user.ID
}

func seedTrack(t *testing.T, db *database.DB, title string, album *models.Album) uuid.UUID {
	t.Helper()
	track := &models.Track{
		ID:       uuid.New(),
		Title:    title,
		Artist:   "Test Artist",
		Duration: 200,
		AudioURL: "/uploads/tracks/" + title + ".mp3",
	}
	if album != nil {
		track.AlbumID = &album.ID
	}
	require.NoError(t, db.CreateTrack(track))
	return track.ID
}

func TestToggle_FlipAndFlipBack(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db, nil)
	ctx := context.Background()
	userID := seedUser(t, db, "u1")
	trackID := seedTrack(t, db, "song", nil)

	on, err := svc.Toggle(ctx, userID, trackID)
	require.NoError(t, err)
	assert.True(t, on)

	list, err := svc.List(ctx, userID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, trackID.String(), list[0].ID)
	assert.True(t, list[0].IsFavorite)

	off, err := svc.Toggle(ctx, userID, trackID)
	require.NoError(t, err)
	assert.False(t, off)

	list, err = svc.List(ctx, userID)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestToggle_UnknownTrack(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db, nil)
	userID := seedUser(t, db, "u1")

	_, err := svc.Toggle(context.Background(), userID, uuid.New())
	require.Error(t, err)
	assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(err))
}

func TestToggle_PerUser(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db, nil)
	ctx := context.Background()
	alice := seedUser(t, db, "alice")
	bob := seedUser(t, db, "bob")
	trackID := seedTrack(t, db, "shared", nil)

	_, err := svc.Toggle(ctx, alice, trackID)
	require.NoError(t, err)

	aliceList, err := svc.List(ctx, alice)
	require.NoError(t, err)
	assert.Len(t, aliceList, 1)

	bobList, err := svc.List(ctx, bob)
	require.NoError(t, err)
	assert.Empty(t, bobList)
}

func TestList_MostRecentFirst(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db, nil)
	ctx := context.Background()
	userID := seedUser(t, db, "u1")
	first := seedTrack(t, db, "first", nil)
	second := seedTrack(t, db, "second", nil)
	third := seedTrack(t, db, "third", nil)

	for _, id := range []uuid.UUID{first, second, third} {
		_, err := svc.Toggle(ctx, userID, id)
		require.NoError(t, err)
	}

	list, err := svc.List(ctx, userID)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, third.String(), list[0].ID)
	assert.Equal(t, second.String(), list[1].ID)
	assert.Equal(t, first.String(), list[2].ID)
}

func TestList_ResolvesAlbumAndImage(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db, nil)
	ctx := context.Background()
	userID := seedUser(t, db, "u1")

	album := &models.Album{
		ID:       uuid.New(),
		Title:    "Night Drive",
		Artist:   "Test Artist",
		ImageURL: "/uploads/images/night-drive.jpg",
	}
	require.NoError(t, db.CreateAlbum(album))

	withAlbum := seedTrack(t, db, "on-album", album)
	orphan := seedTrack(t, db, "orphan", nil)

	_, err := svc.Toggle(ctx, userID, withAlbum)
	require.NoError(t, err)
	_, err = svc.Toggle(ctx, userID, orphan)
	require.NoError(t, err)

	list, err := svc.List(ctx, userID)
	require.NoError(t, err)
	require.Len(t, list, 2)

	byID := make(map[string]projection.TrackView)
	for _, v := range list {
		byID[v.ID] = v
	}

	assert.Equal(t, "Night Drive", byID[withAlbum.String()].Album)
	assert.Equal(t, "/uploads/images/night-drive.jpg", byID[withAlbum.String()].Image)
	assert.Equal(t, projection.UnknownAlbum, byID[orphan.String()].Album)
	assert.Equal(t, projection.DefaultImage, byID[orphan.String()].Image)
}

func TestToggle_ConcurrentInsertLoserRemoves(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db, nil)
	ctx := context.Background()
	userID := seedUser(t, db, "u1")
	trackID := seedTrack(t, db, "song", nil)

	// Land a competing favorite right before the service's own insert, as a
	// concurrent toggle of the same pair would. Both toggles observed
	// "absent"; the loser must flip as a delete and report false.
	injected := false
	err := db.Callback().Create().Before("gorm:create").Register("test_rival_favorite", func(tx *gorm.DB) {
		fav, ok := tx.Statement.Dest.(*models.Favorite)
		if !ok || injected {
			return
		}
		injected = true
		err := tx.Session(&gorm.Session{NewDB: true}).Create(&models.Favorite{
			UserID:  fav.UserID,
			TrackID: fav.TrackID,
		}).Error
		require.NoError(t, err)
	})
	require.NoError(t, err)
	defer func() {
		require.NoError(t, db.Callback().Create().Remove("test_rival_favorite"))
	}()

	on, err := svc.Toggle(ctx, userID, trackID)
	require.NoError(t, err)
	assert.True(t, injected)
	assert.False(t, on)

	// Two toggles from the absent state net out to absent again.
	var count int64
	require.NoError(t, db.Model(&models.Favorite{}).
		Where("user_id = ? AND track_id = ?", userID, trackID).
		Count(&count).Error)
	assert.Zero(t, count)

	list, err := svc.List(ctx, userID)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestList_InsertionOrderOnTimestampTies(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db, nil)
	ctx := context.Background()
	userID := seedUser(t, db, "u1")
	first := seedTrack(t, db, "first", nil)
	second := seedTrack(t, db, "second", nil)

	// Timestamps truncated to the same instant, as on a store with coarse
	// datetime precision; insertion order must still decide.
	ts := time.Now().Truncate(time.Second)
	require.NoError(t, db.Create(&models.Favorite{UserID: userID, TrackID: first, CreatedAt: ts}).Error)
	require.NoError(t, db.Create(&models.Favorite{UserID: userID, TrackID: second, CreatedAt: ts}).Error)

	list, err := svc.List(ctx, userID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.String(), list[0].ID)
	assert.Equal(t, first.String(), list[1].ID)
}

func TestToggle_TrackGone(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db, nil)
	ctx := context.Background()
	userID := seedUser(t, db, "u1")
	trackID := seedTrack(t, db, "doomed", nil)

	_, err := svc.Toggle(ctx, userID, trackID)
	require.NoError(t, err)

	// The track is removed with its favorites, as a catalog delete cascades.
	require.NoError(t, db.Where("track_id = ?", trackID).Delete(&models.Favorite{}).Error)
	require.NoError(t, db.Delete(&models.Track{}, "id = ?", trackID).Error)

	_, err = svc.Toggle(ctx, userID, trackID)
	require.Error(t, err)
	assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(err))

	// No favorite row was stranded for the vanished track.
	var count int64
	require.NoError(t, db.Model(&models.Favorite{}).
		Where("track_id = ?", trackID).
		Count(&count).Error)
	assert.Zero(t, count)
}

func TestToggle_RestoredAfterRemoval(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db, nil)
	ctx := context.Background()
	userID := seedUser(t, db, "u1")
	trackID := seedTrack(t, db, "song", nil)

	for _, want := range []bool{true, false, true} {
		got, err := svc.Toggle(ctx, userID, trackID)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	var count int64
	require.NoError(t, db.Model(&models.Favorite{}).
		Where("user_id = ? AND track_id = ?", userID, trackID).
		Count(&count).Error)
	assert.EqualValues(t, 1, count)
}
