package playlist

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/media-library-system/internal/auth"
	"github.com/media-library-system/pkg/apperrors"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	playlists := r.Group("/playlists")
	{
		playlists.POST("", h.create)
		playlists.GET("", h.list)
		playlists.GET("/:id", h.get)
		playlists.PUT("/:id", h.rename)
		playlists.DELETE("/:id", h.delete)
		playlists.POST("/:id/tracks", h.addTrack)
		playlists.DELETE("/:id/tracks/:trackId", h.removeTrack)
	}
}

type CreatePlaylistRequest struct {
	Name string `json:"name" binding:"required"`
}

func (h *Handler) create(c *gin.Context) {
	ownerID, ok := auth.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or missing token"})
		return
	}

	var req CreatePlaylistRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "playlist name is required"})
		return
	}

	summary, err := h.service.Create(c.Request.Context(), ownerID, req.Name)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"playlist": summary})
}

func (h *Handler) list(c *gin.Context) {
	ownerID, ok := auth.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or missing token"})
		return
	}

	summaries, err := h.service.List(c.Request.Context(), ownerID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"playlists": summaries})
}

func (h *Handler) get(c *gin.Context) {
	ownerID, ok := auth.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or missing token"})
		return
	}

	playlistID, ok := pathID(c, "id")
	if !ok {
		return
	}

	detail, err := h.service.Get(c.Request.Context(), ownerID, playlistID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"playlist": detail, "tracks": detail.Tracks})
}

type RenamePlaylistRequest struct {
	Name string `json:"name" binding:"required"`
}

func (h *Handler) rename(c *gin.Context) {
	ownerID, ok := auth.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or missing token"})
		return
	}

	playlistID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req RenamePlaylistRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "playlist name is required"})
		return
	}

	summary, err := h.service.Rename(c.Request.Context(), ownerID, playlistID, req.Name)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"playlist": summary})
}

func (h *Handler) delete(c *gin.Context) {
	ownerID, ok := auth.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or missing token"})
		return
	}

	playlistID, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.service.Delete(c.Request.Context(), ownerID, playlistID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "playlist deleted"})
}

type AddTrackRequest struct {
	TrackID string `json:"trackId" binding:"required"`
}

func (h *Handler) addTrack(c *gin.Context) {
	ownerID, ok := auth.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or missing token"})
		return
	}

	playlistID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req AddTrackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "track id is required"})
		return
	}
	trackID, err := uuid.Parse(req.TrackID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid track id"})
		return
	}

	track, err := h.service.AddTrack(c.Request.Context(), ownerID, playlistID, trackID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "track added to playlist", "track": track})
}

func (h *Handler) removeTrack(c *gin.Context) {
	ownerID, ok := auth.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or missing token"})
		return
	}

	playlistID, ok := pathID(c, "id")
	if !ok {
		return
	}

	// Removal is idempotent: an id that cannot name a member, malformed
	// included, leaves the playlist unchanged and succeeds. The ownership
	// check still applies either way.
	trackID, err := uuid.Parse(c.Param("trackId"))
	if err != nil {
		trackID = uuid.Nil
	}
	if err := h.service.RemoveTrack(c.Request.Context(), ownerID, playlistID, trackID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "track removed from playlist"})
}

// pathID parses a uuid path param. A malformed playlist id is reported as
// not-found, the same as any other miss.
func pathID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "playlist not found"})
		return uuid.UUID{}, false
	}
	return id, true
}

func respondError(c *gin.Context, err error) {
	if apperrors.KindOf(err) == apperrors.KindInternal {
		log.Printf("playlist: %v", err)
	}
	c.JSON(apperrors.Status(err), gin.H{"error": apperrors.Message(err)})
}
