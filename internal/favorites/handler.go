package favorites

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
	r.POST("/tracks/:id/favorite", h.toggle)
	r.GET("/me/favorites", h.list)
}

func (h *Handler) toggle(c *gin.Context) {
	userID, ok := auth.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or missing token"})
		return
	}

	trackID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "track not found"})
		return
	}

	isFavorite, err := h.service.Toggle(c.Request.Context(), userID, trackID)
	if err != nil {
		respondError(c, err)
		return
	}

	message := "removed from favorites"
	if isFavorite {
		message = "added to favorites"
	}
	c.JSON(http.StatusOK, gin.H{"message": message, "isFavorite": isFavorite})
}

func (h *Handler) list(c *gin.Context) {
	userID, ok := auth.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or missing token"})
		return
	}

	tracks, err := h.service.List(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"tracks": tracks})
}

func respondError(c *gin.Context, err error) {
	if apperrors.KindOf(err) == apperrors.KindInternal {
		log.Printf("favorites: %v", err)
	}
	c.JSON(apperrors.Status(err), gin.H{"error": apperrors.Message(err)})
}
