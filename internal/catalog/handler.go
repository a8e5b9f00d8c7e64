package catalog

import (
	"log"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/media-library-system/internal/auth"
	"github.com/media-library-system/pkg/apperrors"
)

const (
	defaultTrackLimit = 50
	defaultAlbumLimit = 20
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterPublicRoutes mounts the read endpoints. The group carries optional
// auth: anonymous callers see isFavorite=false everywhere.
func (h *Handler) RegisterPublicRoutes(r *gin.RouterGroup) {
	r.GET("/tracks", h.listTracks)
	r.GET("/tracks/:id", h.getTrack)
	r.GET("/albums", h.listAlbums)
	r.GET("/albums/:id", h.getAlbum)
}

// RegisterProtectedRoutes mounts the catalog mutations.
func (h *Handler) RegisterProtectedRoutes(r *gin.RouterGroup) {
	r.POST("/tracks", h.createTrack)
	r.DELETE("/tracks/:id", h.deleteTrack)
	r.POST("/albums", h.createAlbum)
	r.PUT("/albums/:id", h.updateAlbum)
	r.DELETE("/albums/:id", h.deleteAlbum)
}

func (h *Handler) listTracks(c *gin.Context) {
	search := c.Query("search")
	limit := intQuery(c, "limit", defaultTrackLimit)
	offset := intQuery(c, "offset", 0)

	tracks, err := h.service.ListTracks(c.Request.Context(), search, limit, offset, callerID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"tracks": tracks})
}

func (h *Handler) getTrack(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "track not found"})
		return
	}

	track, err := h.service.GetTrack(c.Request.Context(), id, callerID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"track": track})
}

func (h *Handler) createTrack(c *gin.Context) {
	title := strings.TrimSpace(c.PostForm("title"))
	artist := strings.TrimSpace(c.PostForm("artist"))
	duration, _ := strconv.Atoi(c.PostForm("duration"))

	var albumID *uuid.UUID
	if raw := c.PostForm("albumId"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid album id"})
			return
		}
		albumID = &id
	}

	audioFile, err := c.FormFile("audio")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "audio file is required"})
		return
	}
	audio, err := audioFile.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "audio file is required"})
		return
	}
	defer audio.Close()

	in := CreateTrackInput{
		Title:     title,
		Artist:    artist,
		AlbumID:   albumID,
		Duration:  duration,
		Audio:     audio,
		AudioName: audioFile.Filename,
	}

	if image, name, ok := openOptionalFile(c, "image"); ok {
		defer image.Close()
		in.Image = image
		in.ImageName = name
	}

	track, err := h.service.CreateTrack(c.Request.Context(), in)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "track uploaded", "track": track})
}

func (h *Handler) deleteTrack(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "track not found"})
		return
	}

	if err := h.service.DeleteTrack(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "track deleted"})
}

func (h *Handler) listAlbums(c *gin.Context) {
	limit := intQuery(c, "limit", defaultAlbumLimit)
	offset := intQuery(c, "offset", 0)

	albums, err := h.service.ListAlbums(c.Request.Context(), limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"albums": albums})
}

func (h *Handler) getAlbum(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "album not found"})
		return
	}

	album, err := h.service.GetAlbum(c.Request.Context(), id, callerID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"album": album, "tracks": album.Tracks})
}

func (h *Handler) createAlbum(c *gin.Context) {
	in := CreateAlbumInput{
		Title:  strings.TrimSpace(c.PostForm("title")),
		Artist: strings.TrimSpace(c.PostForm("artist")),
	}
	if raw := c.PostForm("year"); raw != "" {
		year, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid year"})
			return
		}
		in.Year = &year
	}

	if image, name, ok := openOptionalFile(c, "image"); ok {
		defer image.Close()
		in.Image = image
		in.ImageName = name
	}

	album, err := h.service.CreateAlbum(c.Request.Context(), in)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "album created", "album": album})
}

func (h *Handler) updateAlbum(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "album not found"})
		return
	}

	var in UpdateAlbumInput
	if raw, ok := c.GetPostForm("title"); ok {
		in.Title = &raw
	}
	if raw, ok := c.GetPostForm("artist"); ok {
		in.Artist = &raw
	}
	if raw, ok := c.GetPostForm("year"); ok && raw != "" {
		year, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid year"})
			return
		}
		in.Year = &year
	}

	if image, name, ok := openOptionalFile(c, "image"); ok {
		defer image.Close()
		in.Image = image
		in.ImageName = name
	}

	album, err := h.service.UpdateAlbum(c.Request.Context(), id, in)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "album updated", "album": album})
}

func (h *Handler) deleteAlbum(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "album not found"})
		return
	}

	if err := h.service.DeleteAlbum(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "album deleted"})
}

// callerID returns the optional caller identity set by the auth middleware.
func callerID(c *gin.Context) *uuid.UUID {
	id, ok := auth.UserID(c)
	if !ok {
		return nil
	}
	return &id
}

func openOptionalFile(c *gin.Context, field string) (multipart.File, string, bool) {
	header, err := c.FormFile(field)
	if err != nil {
		return nil, "", false
	}
	f, err := header.Open()
	if err != nil {
		return nil, "", false
	}
	return f, header.Filename, true
}

func intQuery(c *gin.Context, name string, fallback int) int {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return fallback
	}
	return v
}

func respondError(c *gin.Context, err error) {
	if apperrors.KindOf(err) == apperrors.KindInternal {
		log.Printf("catalog: %v", err)
	}
	c.JSON(apperrors.Status(err), gin.H{"error": apperrors.Message(err)})
}
