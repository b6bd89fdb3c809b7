package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/warbler/warbler/internal/metrics"
	"github.com/warbler/warbler/internal/middleware"
	"github.com/warbler/warbler/internal/models"
	"github.com/warbler/warbler/internal/services"
	"github.com/warbler/warbler/pkg/logger"
)

const pageSize = 100

type UserHandler struct {
	userService    *services.UserService
	messageService *services.MessageService
	likeService    *services.LikeService
	sessions       *middleware.SessionManager
	pages          *Pages
	metrics        *metrics.Metrics
	logger         *logger.Logger
}

func NewUserHandler(
	userService *services.UserService,
	messageService *services.MessageService,
	likeService *services.LikeService,
	sessions *middleware.SessionManager,
	pages *Pages,
	metrics *metrics.Metrics,
	logger *logger.Logger,
) *UserHandler {
	return &UserHandler{
		userService:    userService,
		messageService: messageService,
		likeService:    likeService,
		sessions:       sessions,
		pages:          pages,
		metrics:        metrics,
		logger:         logger,
	}
}

func (h *UserHandler) List(c *gin.Context) {
	query := c.Query("q")
	users, err := h.userService.Search(c.Request.Context(), query, 0, pageSize)
	if err != nil {
		h.logger.WithError(err).Error("Failed to search users")
		h.pages.Error(c)
		return
	}

	data := gin.H{
		"Users": users,
		"Query": query,
	}
	if curr := middleware.CurrentUser(c); curr != nil {
		followingIDs, err := h.userService.FollowingIDs(c.Request.Context(), curr.ID)
		if err != nil {
			h.logger.WithError(err).Error("Failed to load following ids")
			h.pages.Error(c)
			return
		}
		data["FollowingIDs"] = followingIDs
	}

	h.pages.Render(c, http.StatusOK, "users.html", data)
}

// profile loads the page owner and the data every profile tab shows.
func (h *UserHandler) profile(c *gin.Context) (gin.H, bool) {
	userID, ok := paramID(c, "id")
	if !ok {
		h.pages.NotFound(c)
		return nil, false
	}

	ctx := c.Request.Context()
	profile, err := h.userService.Profile(ctx, userID)
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			h.pages.NotFound(c)
		} else {
			h.logger.WithError(err).WithField("user_id", userID).Error("Failed to load profile")
			h.pages.Error(c)
		}
		return nil, false
	}

	data := gin.H{
		"User":  profile.User,
		"Stats": profile.Stats,
	}
	if curr := middleware.CurrentUser(c); curr != nil {
		following, err := h.userService.IsFollowing(ctx, curr, profile.User)
		if err != nil {
			h.logger.WithError(err).Error("Failed to check follow status")
			h.pages.Error(c)
			return nil, false
		}
		followingIDs, err := h.userService.FollowingIDs(ctx, curr.ID)
		if err != nil {
			h.logger.WithError(err).Error("Failed to load following ids")
			h.pages.Error(c)
			return nil, false
		}
		liked, err := h.likeService.LikedMessageIDs(ctx, curr.ID)
		if err != nil {
			h.logger.WithError(err).Error("Failed to load likes")
			h.pages.Error(c)
			return nil, false
		}
		data["IsFollowing"] = following
		data["FollowingIDs"] = followingIDs
		data["Liked"] = liked
	}
	return data, true
}

func (h *UserHandler) Show(c *gin.Context) {
	data, ok := h.profile(c)
	if !ok {
		return
	}

	user := data["User"].(*models.User)
	messages, err := h.messageService.UserMessages(c.Request.Context(), user.ID, 0, pageSize)
	if err != nil {
		h.logger.WithError(err).Error("Failed to load messages")
		h.pages.Error(c)
		return
	}
	data["Messages"] = messages

	h.pages.Render(c, http.StatusOK, "user_show.html", data)
}

func (h *UserHandler) Following(c *gin.Context) {
	data, ok := h.profile(c)
	if !ok {
		return
	}

	user := data["User"].(*models.User)
	users, err := h.userService.Following(c.Request.Context(), user.ID, 0, pageSize)
	if err != nil {
		h.logger.WithError(err).Error("Failed to load following")
		h.pages.Error(c)
		return
	}
	data["Users"] = users

	h.pages.Render(c, http.StatusOK, "following.html", data)
}

func (h *UserHandler) Followers(c *gin.Context) {
	data, ok := h.profile(c)
	if !ok {
		return
	}

	user := data["User"].(*models.User)
	users, err := h.userService.Followers(c.Request.Context(), user.ID, 0, pageSize)
	if err != nil {
		h.logger.WithError(err).Error("Failed to load followers")
		h.pages.Error(c)
		return
	}
	data["Users"] = users

	h.pages.Render(c, http.StatusOK, "followers.html", data)
}

func (h *UserHandler) Likes(c *gin.Context) {
	data, ok := h.profile(c)
	if !ok {
		return
	}

	user := data["User"].(*models.User)
	messages, err := h.likeService.LikedMessages(c.Request.Context(), user.ID, 0, pageSize)
	if err != nil {
		h.logger.WithError(err).Error("Failed to load liked messages")
		h.pages.Error(c)
		return
	}
	data["Messages"] = messages

	h.pages.Render(c, http.StatusOK, "likes.html", data)
}

func (h *UserHandler) Follow(c *gin.Context) {
	curr := middleware.CurrentUser(c)
	followedID, ok := paramID(c, "id")
	if !ok {
		h.pages.NotFound(c)
		return
	}

	err := h.userService.Follow(c.Request.Context(), curr.ID, followedID)
	switch {
	case err == nil:
		h.metrics.Follows.WithLabelValues("follow").Inc()
	case errors.Is(err, services.ErrUserNotFound):
		h.pages.NotFound(c)
		return
	case errors.Is(err, services.ErrCannotFollowSelf), errors.Is(err, services.ErrAlreadyFollowing):
		h.pages.Flash(c, "warning", "You cannot follow that user.")
	default:
		h.logger.WithError(err).Error("Failed to follow user")
		h.pages.Error(c)
		return
	}

	c.Redirect(http.StatusFound, userPath(curr.ID, "/following"))
}

func (h *UserHandler) StopFollowing(c *gin.Context) {
	curr := middleware.CurrentUser(c)
	followedID, ok := paramID(c, "id")
	if !ok {
		h.pages.NotFound(c)
		return
	}

	err := h.userService.Unfollow(c.Request.Context(), curr.ID, followedID)
	switch {
	case err == nil:
		h.metrics.Follows.WithLabelValues("unfollow").Inc()
	case errors.Is(err, services.ErrUserNotFound):
		h.pages.NotFound(c)
		return
	case errors.Is(err, services.ErrNotFollowing):
		// nothing to undo
	default:
		h.logger.WithError(err).Error("Failed to unfollow user")
		h.pages.Error(c)
		return
	}

	c.Redirect(http.StatusFound, userPath(curr.ID, "/following"))
}

// AddLike toggles the current user's like on a message.
func (h *UserHandler) AddLike(c *gin.Context) {
	curr := middleware.CurrentUser(c)
	messageID, ok := paramID(c, "message_id")
	if !ok {
		h.pages.NotFound(c)
		return
	}

	liked, err := h.likeService.ToggleLike(c.Request.Context(), curr.ID, messageID)
	if err != nil {
		if errors.Is(err, services.ErrMessageNotFound) {
			h.pages.NotFound(c)
			return
		}
		h.logger.WithError(err).Error("Failed to toggle like")
		h.pages.Error(c)
		return
	}

	action := "unlike"
	if liked {
		action = "like"
	}
	h.metrics.Likes.WithLabelValues(action).Inc()

	c.Redirect(http.StatusFound, "/")
}

func (h *UserHandler) EditForm(c *gin.Context) {
	h.pages.Render(c, http.StatusOK, "user_edit.html", gin.H{
		"User": middleware.CurrentUser(c),
	})
}

func (h *UserHandler) Update(c *gin.Context) {
	curr := middleware.CurrentUser(c)

	var req services.UpdateProfileRequest
	if err := c.ShouldBind(&req); err != nil {
		h.pages.Render(c, http.StatusBadRequest, "user_edit.html", gin.H{
			"User":  curr,
			"Error": err.Error(),
		})
		return
	}

	user, err := h.userService.UpdateProfile(c.Request.Context(), curr.ID, &req)
	switch {
	case err == nil:
	case errors.Is(err, services.ErrInvalidCredentials):
		h.pages.Flash(c, "danger", "Wrong password, please try again.")
		c.Redirect(http.StatusFound, "/")
		return
	case errors.Is(err, services.ErrUserNotFound):
		h.pages.NotFound(c)
		return
	case services.IsTaken(err):
		h.pages.Flash(c, "danger", "Username or email already taken")
		c.Redirect(http.StatusFound, "/users/profile")
		return
	default:
		h.logger.WithError(err).Error("Failed to update profile")
		h.pages.Error(c)
		return
	}

	c.Redirect(http.StatusFound, userPath(user.ID, ""))
}

func (h *UserHandler) Delete(c *gin.Context) {
	curr := middleware.CurrentUser(c)

	if err := h.userService.DeleteAccount(c.Request.Context(), curr.ID); err != nil {
		h.logger.WithError(err).Error("Failed to delete account")
		h.pages.Error(c)
		return
	}
	if err := h.sessions.Logout(c); err != nil {
		h.logger.WithError(err).Error("Failed to clear session")
	}

	c.Redirect(http.StatusFound, "/signup")
}
