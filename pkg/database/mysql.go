package database

import (
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/media-library-system/pkg/models"
)

// DB wraps the gorm handle with typed per-entity helpers. Uniqueness
// violations are translated to gorm.ErrDuplicatedKey so services can detect
// constraint races without driver-specific error sniffing.
type DB struct {
	*gorm.DB
}

func NewMySQL(host, port, user, password, dbname string) (*DB, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		user, password, host, port, dbname)

	gormConfig := &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true,
	}

	db, err := gorm.Open(mysql.Open(dsn), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Set connection pool settings
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := autoMigrate(db); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &DB{DB: db}, nil
}

func autoMigrate(db *gorm.DB) error {
	log.Println("Running database migrations...")

	return db.AutoMigrate(
		&models.User{},
		&models.Album{},
		&models.Track{},
		&models.Playlist{},
		&models.PlaylistEntry{},
		&models.Favorite{},
	)
}

// User operations
func (db *DB) CreateUser(user *models.User) error {
	return db.Create(user).Error
}

func (db *DB) GetUserByID(id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := db.First(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (db *DB) GetUserByEmail(email string) (*models.User, error) {
	var user models.User
	if err := db.First(&user, "email = ?", email).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (db *DB) UserExists(username, email string) (bool, error) {
	var count int64
	if err := db.Model(&models.User{}).
		Where("username = ? OR email = ?", username, email).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Track operations
func (db *DB) CreateTrack(track *models.Track) error {
	return db.Create(track).Error
}

func (db *DB) GetTrackByID(id uuid.UUID) (*models.Track, error) {
	var track models.Track
	if err := db.Preload("Album").First(&track, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &track, nil
}

func (db *DB) ListTracks(search string, limit, offset int) ([]models.Track, error) {
	query := db.Model(&models.Track{}).Preload("Album").Order("tracks.created_at DESC")
	if search != "" {
		pattern := "%" + search + "%"
		query = query.
			Joins("LEFT JOIN albums ON albums.id = tracks.album_id").
			Where("tracks.title LIKE ? OR tracks.artist LIKE ? OR albums.title LIKE ?",
				pattern, pattern, pattern)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	var tracks []models.Track
	if err := query.Find(&tracks).Error; err != nil {
		return nil, err
	}
	return tracks, nil
}

// Album operations
func (db *DB) CreateAlbum(album *models.Album) error {
	return db.Create(album).Error
}

func (db *DB) GetAlbumByID(id uuid.UUID) (*models.Album, error) {
	var album models.Album
	if err := db.First(&album, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &album, nil
}

func (db *DB) ListAlbums(limit, offset int) ([]models.Album, error) {
	query := db.Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	var albums []models.Album
	if err := query.Find(&albums).Error; err != nil {
		return nil, err
	}
	return albums, nil
}

func (db *DB) TracksByAlbum(albumID uuid.UUID) ([]models.Track, error) {
	var tracks []models.Track
	if err := db.Preload("Album").
		Where("album_id = ?", albumID).
		Order("created_at ASC, id ASC").
		Find(&tracks).Error; err != nil {
		return nil, err
	}
	return tracks, nil
}

// AlbumTrackCounts returns the number of tracks per album id.
func (db *DB) AlbumTrackCounts() (map[uuid.UUID]int, error) {
	var rows []struct {
		AlbumID uuid.UUID
		Count   int
	}
	if err := db.Model(&models.Track{}).
		Select("album_id, COUNT(*) as count").
		Where("album_id IS NOT NULL").
		Group("album_id").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	counts := make(map[uuid.UUID]int, len(rows))
	for _, row := range rows {
		counts[row.AlbumID] = row.Count
	}
	return counts, nil
}

// FavoriteTrackIDs returns the set of track ids the user has favorited,
// keyed by the id's string form. The favorite flag on every read path is
// computed from this index, never cached on the track row.
func (db *DB) FavoriteTrackIDs(userID uuid.UUID) (map[string]bool, error) {
	var ids []uuid.UUID
	if err := db.Model(&models.Favorite{}).
		Where("user_id = ?", userID).
		Pluck("track_id", &ids).Error; err != nil {
		return nil, err
	}

	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id.String()] = true
	}
	return set, nil
}

// PlaylistEntryCounts returns the entry count per playlist for an owner.
func (db *DB) PlaylistEntryCounts(ownerID uuid.UUID) (map[uuid.UUID]int, error) {
	var rows []struct {
		PlaylistID uuid.UUID
		Count      int
	}
	if err := db.Model(&models.PlaylistEntry{}).
		Select("playlist_entries.playlist_id, COUNT(*) as count").
		Joins("JOIN playlists ON playlists.id = playlist_entries.playlist_id").
		Where("playlists.user_id = ?", ownerID).
		Group("playlist_entries.playlist_id").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	counts := make(map[uuid.UUID]int, len(rows))
	for _, row := range rows {
		counts[row.PlaylistID] = row.Count
	}
	return counts, nil
}
