package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/warbler/warbler/internal/metrics"
	"github.com/warbler/warbler/internal/middleware"
	"github.com/warbler/warbler/internal/services"
	"github.com/warbler/warbler/pkg/logger"
)

// APIHandler serves the JSON API. Callers authenticate with a bearer token
// from Token instead of the session cookie.
type APIHandler struct {
	userService *services.UserService
	likeService *services.LikeService
	jwtSecret   string
	tokenTTL    time.Duration
	metrics     *metrics.Metrics
	logger      *logger.Logger
}

func NewAPIHandler(userService *services.UserService, likeService *services.LikeService, jwtSecret string, tokenTTL time.Duration, metrics *metrics.Metrics, logger *logger.Logger) *APIHandler {
	return &APIHandler{
		userService: userService,
		likeService: likeService,
		jwtSecret:   jwtSecret,
		tokenTTL:    tokenTTL,
		metrics:     metrics,
		logger:      logger,
	}
}

func (h *APIHandler) Token(c *gin.Context) {
	var req services.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.userService.Authenticate(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		h.logger.WithError(err).Error("Failed to authenticate")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	if user == nil {
		h.metrics.Logins.WithLabelValues("failure").Inc()
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}
	h.metrics.Logins.WithLabelValues("success").Inc()

	// 生成JWT token
	token, err := middleware.GenerateToken(user.ID, user.Username, h.jwtSecret, h.tokenTTL)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token": token,
		"user":  user,
	})
}

func (h *APIHandler) GetProfile(c *gin.Context) {
	userID, ok := paramID(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
		return
	}

	profile, err := h.userService.Profile(c.Request.Context(), userID)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, profile)
}

func (h *APIHandler) GetFollowing(c *gin.Context) {
	userID, ok := paramID(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
		return
	}

	users, err := h.userService.Following(c.Request.Context(), userID, 0, pageSize)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"following": users})
}

func (h *APIHandler) GetFollowers(c *gin.Context) {
	userID, ok := paramID(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
		return
	}

	users, err := h.userService.Followers(c.Request.Context(), userID, 0, pageSize)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"followers": users})
}

func (h *APIHandler) ToggleLike(c *gin.Context) {
	userID := middleware.GetUserID(c)
	messageID, ok := paramID(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid message ID"})
		return
	}

	liked, err := h.likeService.ToggleLike(c.Request.Context(), userID, messageID)
	if err != nil {
		h.writeError(c, err)
		return
	}

	action := "unlike"
	if liked {
		action = "like"
	}
	h.metrics.Likes.WithLabelValues(action).Inc()

	c.JSON(http.StatusOK, gin.H{"liked": liked})
}

func (h *APIHandler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrUserNotFound), errors.Is(err, services.ErrMessageNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		h.logger.WithError(err).Error("API request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
