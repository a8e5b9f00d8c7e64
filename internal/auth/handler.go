package auth

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/media-library-system/pkg/database"
	"github.com/media-library-system/pkg/jwt"
	"github.com/media-library-system/pkg/models"
	"github.com/media-library-system/pkg/redis"
)

const bcryptCost = 12

type Handler struct {
	db       *database.DB
	sessions SessionStore
}

func NewHandler(db *database.DB, sessions SessionStore) *Handler {
	return &Handler{
		db:       db,
		sessions: sessions,
	}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	auth := r.Group("/auth")
	{
		// Public routes
		auth.POST("/register", h.register)
		auth.POST("/login", h.login)

		// Protected routes (require authentication)
		protected := auth.Group("", AuthRequired(h.sessions))
		protected.GET("/me", h.me)
		protected.POST("/logout", h.logout)
	}
}

type RegisterRequest struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type userResponse struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

func (h *Handler) register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username, email and password are required"})
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if len(req.Password) < 6 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "password must be at least 6 characters"})
		return
	}

	exists, err := h.db.UserExists(req.Username, req.Email)
	if err != nil {
		log.Printf("auth: register lookup: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	if exists {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username or email already exists"})
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcryptCost)
	if err != nil {
		log.Printf("auth: hash password: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	user := &models.User{
		ID:           uuid.New(),
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: string(hash),
	}
	if err := h.db.CreateUser(user); err != nil {
		// A concurrent register can win the uniqueness race after the
		// existence check above.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "username or email already exists"})
			return
		}
		log.Printf("auth: create user: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	token, ok := h.issueSession(c, user)
	if !ok {
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"token": token,
		"user":  userResponse{ID: user.ID.String(), Username: user.Username, Email: user.Email},
	})
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *Handler) login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email and password are required"})
		return
	}

	user, err := h.db.GetUserByEmail(strings.TrimSpace(strings.ToLower(req.Email)))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
			return
		}
		log.Printf("auth: login lookup: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	token, ok := h.issueSession(c, user)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token": token,
		"user":  userResponse{ID: user.ID.String(), Username: user.Username, Email: user.Email},
	})
}

func (h *Handler) me(c *gin.Context) {
	userID, ok := UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or missing token"})
		return
	}

	user, err := h.db.GetUserByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		log.Printf("auth: me lookup: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user": userResponse{ID: user.ID.String(), Username: user.Username, Email: user.Email},
	})
}

func (h *Handler) logout(c *gin.Context) {
	userID := c.GetString("user_id")
	if err := h.sessions.Revoke(c.Request.Context(), userID); err != nil {
		log.Printf("auth: revoke session: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

// issueSession generates a bearer token and records it as the user's live
// session. Writes its own error response on failure.
func (h *Handler) issueSession(c *gin.Context, user *models.User) (string, bool) {
	token, expiresAt, err := jwt.GenerateToken(user.ID.String(), user.Username)
	if err != nil {
		log.Printf("auth: generate token: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return "", false
	}

	session := &redis.Session{Token: token, ExpiresAt: expiresAt}
	if err := h.sessions.Save(c.Request.Context(), user.ID.String(), session); err != nil {
		log.Printf("auth: store session: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return "", false
	}

	return token, true
}
