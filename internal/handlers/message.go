package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/warbler/warbler/internal/metrics"
	"github.com/warbler/warbler/internal/middleware"
	"github.com/warbler/warbler/internal/services"
	"github.com/warbler/warbler/pkg/logger"
)

type MessageHandler struct {
	messageService *services.MessageService
	likeService    *services.LikeService
	pages          *Pages
	metrics        *metrics.Metrics
	logger         *logger.Logger
}

func NewMessageHandler(messageService *services.MessageService, likeService *services.LikeService, pages *Pages, metrics *metrics.Metrics, logger *logger.Logger) *MessageHandler {
	return &MessageHandler{
		messageService: messageService,
		likeService:    likeService,
		pages:          pages,
		metrics:        metrics,
		logger:         logger,
	}
}

// Home shows the logged in user's timeline, or the landing page.
func (h *MessageHandler) Home(c *gin.Context) {
	curr := middleware.CurrentUser(c)
	if curr == nil {
		h.pages.Render(c, http.StatusOK, "home_anon.html", nil)
		return
	}

	ctx := c.Request.Context()
	messages, err := h.messageService.HomeTimeline(ctx, curr.ID, pageSize)
	if err != nil {
		h.logger.WithError(err).Error("Failed to load timeline")
		h.pages.Error(c)
		return
	}
	liked, err := h.likeService.LikedMessageIDs(ctx, curr.ID)
	if err != nil {
		h.logger.WithError(err).Error("Failed to load likes")
		h.pages.Error(c)
		return
	}

	h.pages.Render(c, http.StatusOK, "home.html", gin.H{
		"Messages": messages,
		"Liked":    liked,
	})
}

func (h *MessageHandler) NewForm(c *gin.Context) {
	h.pages.Render(c, http.StatusOK, "message_new.html", nil)
}

func (h *MessageHandler) Create(c *gin.Context) {
	curr := middleware.CurrentUser(c)

	var req services.CreateMessageRequest
	if err := c.ShouldBind(&req); err != nil {
		h.pages.Render(c, http.StatusBadRequest, "message_new.html", gin.H{
			"Text":  req.Text,
			"Error": "Messages must be between 1 and 140 characters.",
		})
		return
	}

	if _, err := h.messageService.Create(c.Request.Context(), curr.ID, req.Text); err != nil {
		h.logger.WithError(err).Error("Failed to create message")
		h.pages.Error(c)
		return
	}
	h.metrics.Messages.WithLabelValues("create").Inc()

	c.Redirect(http.StatusFound, userPath(curr.ID, ""))
}

func (h *MessageHandler) Show(c *gin.Context) {
	messageID, ok := paramID(c, "id")
	if !ok {
		h.pages.NotFound(c)
		return
	}

	message, err := h.messageService.Get(c.Request.Context(), messageID)
	if err != nil {
		if errors.Is(err, services.ErrMessageNotFound) {
			h.pages.NotFound(c)
			return
		}
		h.logger.WithError(err).Error("Failed to load message")
		h.pages.Error(c)
		return
	}

	h.pages.Render(c, http.StatusOK, "message_show.html", gin.H{
		"Message": message,
	})
}

func (h *MessageHandler) Delete(c *gin.Context) {
	curr := middleware.CurrentUser(c)
	messageID, ok := paramID(c, "id")
	if !ok {
		h.pages.NotFound(c)
		return
	}

	err := h.messageService.Delete(c.Request.Context(), curr.ID, messageID)
	switch {
	case err == nil:
		h.metrics.Messages.WithLabelValues("delete").Inc()
	case errors.Is(err, services.ErrMessageNotFound):
		h.pages.NotFound(c)
		return
	case errors.Is(err, services.ErrForbidden):
		h.pages.Flash(c, "danger", middleware.UnauthorizedMessage)
		c.Redirect(http.StatusFound, "/")
		return
	default:
		h.logger.WithError(err).Error("Failed to delete message")
		h.pages.Error(c)
		return
	}

	c.Redirect(http.StatusFound, userPath(curr.ID, ""))
}
