package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/warbler/warbler/internal/metrics"
	"github.com/warbler/warbler/internal/middleware"
	"github.com/warbler/warbler/internal/services"
	"github.com/warbler/warbler/pkg/logger"
)

type AuthHandler struct {
	userService *services.UserService
	sessions    *middleware.SessionManager
	pages       *Pages
	metrics     *metrics.Metrics
	logger      *logger.Logger
}

func NewAuthHandler(userService *services.UserService, sessions *middleware.SessionManager, pages *Pages, metrics *metrics.Metrics, logger *logger.Logger) *AuthHandler {
	return &AuthHandler{
		userService: userService,
		sessions:    sessions,
		pages:       pages,
		metrics:     metrics,
		logger:      logger,
	}
}

func (h *AuthHandler) SignupForm(c *gin.Context) {
	h.pages.Render(c, http.StatusOK, "signup.html", nil)
}

func (h *AuthHandler) Signup(c *gin.Context) {
	var req services.SignupRequest
	if err := c.ShouldBind(&req); err != nil {
		h.pages.Render(c, http.StatusBadRequest, "signup.html", gin.H{
			"Form":  req,
			"Error": "Please fill in a username, a valid email and a password of at least 6 characters.",
		})
		return
	}

	user, err := h.userService.Register(c.Request.Context(), &req)
	if err != nil {
		if services.IsTaken(err) {
			h.pages.Flash(c, "danger", "Username already taken")
			h.pages.Render(c, http.StatusOK, "signup.html", gin.H{"Form": req})
			return
		}
		h.logger.WithError(err).Error("Failed to register user")
		h.pages.Error(c)
		return
	}
	h.metrics.Signups.Inc()

	if err := h.sessions.Login(c, user.ID); err != nil {
		h.logger.WithError(err).Error("Failed to save session")
		h.pages.Error(c)
		return
	}
	c.Redirect(http.StatusFound, "/")
}

func (h *AuthHandler) LoginForm(c *gin.Context) {
	h.pages.Render(c, http.StatusOK, "login.html", nil)
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req services.LoginRequest
	if err := c.ShouldBind(&req); err != nil {
		h.metrics.Logins.WithLabelValues("invalid").Inc()
		h.pages.Flash(c, "danger", "Invalid credentials.")
		h.pages.Render(c, http.StatusOK, "login.html", nil)
		return
	}

	user, err := h.userService.Authenticate(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		h.logger.WithError(err).Error("Failed to authenticate")
		h.pages.Error(c)
		return
	}
	if user == nil {
		h.metrics.Logins.WithLabelValues("failure").Inc()
		h.pages.Flash(c, "danger", "Invalid credentials.")
		h.pages.Render(c, http.StatusOK, "login.html", gin.H{"Username": req.Username})
		return
	}
	h.metrics.Logins.WithLabelValues("success").Inc()

	if err := h.sessions.Login(c, user.ID); err != nil {
		h.logger.WithError(err).Error("Failed to save session")
		h.pages.Error(c)
		return
	}
	h.pages.Flash(c, "success", "Hello, "+user.Username+"!")
	c.Redirect(http.StatusFound, "/")
}

func (h *AuthHandler) Logout(c *gin.Context) {
	if err := h.sessions.Logout(c); err != nil {
		h.logger.WithError(err).Error("Failed to clear session")
	}
	h.pages.Flash(c, "success", "You have successfully logged out.")
	c.Redirect(http.StatusFound, "/login")
}
