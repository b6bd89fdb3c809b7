package middleware

import (
	"encoding/gob"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/sessions"
	"github.com/warbler/warbler/internal/config"
	"github.com/warbler/warbler/internal/metrics"
	"github.com/warbler/warbler/internal/models"
	"github.com/warbler/warbler/internal/repository"
	"github.com/warbler/warbler/pkg/logger"
)

const (
	SessionName = "warbler"

	// CurrUserKey is the session key holding the logged in user's id.
	CurrUserKey = "curr_user"

	currentUserContextKey = "current_user"
	flashesContextKey     = "flashes"
)

const UnauthorizedMessage = "Access unauthorized."

// Flash is a one-shot notice shown on the next rendered page. Category is a
// bootstrap alert suffix such as "danger" or "success".
type Flash struct {
	Category string
	Message  string
}

func init() {
	gob.Register(Flash{})
}

type SessionManager struct {
	store  sessions.Store
	logger *logger.Logger
}

func NewSessionManager(cfg *config.SessionConfig, logger *logger.Logger) *SessionManager {
	store := sessions.NewCookieStore([]byte(cfg.Secret))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   int(cfg.MaxAge.Seconds()),
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	}
	return &SessionManager{store: store, logger: logger}
}

// session returns the request's session. A cookie that fails to decode
// yields a fresh session.
func (m *SessionManager) session(c *gin.Context) *sessions.Session {
	sess, err := m.store.Get(c.Request, SessionName)
	if err != nil {
		m.logger.WithError(err).Debug("Discarding unreadable session cookie")
	}
	return sess
}

func (m *SessionManager) save(c *gin.Context, sess *sessions.Session) error {
	return sess.Save(c.Request, c.Writer)
}

// Login stores userID as the current user.
func (m *SessionManager) Login(c *gin.Context, userID uint) error {
	sess := m.session(c)
	sess.Values[CurrUserKey] = userID
	return m.save(c, sess)
}

func (m *SessionManager) Logout(c *gin.Context) error {
	sess := m.session(c)
	delete(sess.Values, CurrUserKey)
	return m.save(c, sess)
}

// UserID returns the id stored by Login, if any.
func (m *SessionManager) UserID(c *gin.Context) (uint, bool) {
	id, ok := m.session(c).Values[CurrUserKey].(uint)
	return id, ok
}

func (m *SessionManager) AddFlash(c *gin.Context, category, message string) {
	sess := m.session(c)
	sess.AddFlash(Flash{Category: category, Message: message})
	if err := m.save(c, sess); err != nil {
		m.logger.WithError(err).Error("Failed to save flash")
	}
}

// Flashes pops the pending flashes. Within one request the popped flashes
// are remembered, so rendering twice shows them twice.
func (m *SessionManager) Flashes(c *gin.Context) []Flash {
	if cached, ok := c.Get(flashesContextKey); ok {
		return cached.([]Flash)
	}

	sess := m.session(c)
	raw := sess.Flashes()
	flashes := make([]Flash, 0, len(raw))
	for _, f := range raw {
		if flash, ok := f.(Flash); ok {
			flashes = append(flashes, flash)
		}
	}
	if len(raw) > 0 {
		if err := m.save(c, sess); err != nil {
			m.logger.WithError(err).Error("Failed to save session")
		}
	}
	c.Set(flashesContextKey, flashes)
	return flashes
}

// LoadCurrentUser resolves the session's user for every request. A session
// pointing at a deleted account is logged out.
func (m *SessionManager) LoadCurrentUser(users *repository.UserRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := m.UserID(c)
		if !ok {
			c.Next()
			return
		}

		user, err := users.GetByID(c.Request.Context(), id)
		if err != nil {
			m.logger.WithError(err).WithField("user_id", id).Error("Failed to load current user")
			c.AbortWithStatus(http.StatusInternalServerError)
			return
		}
		if user == nil {
			if err := m.Logout(c); err != nil {
				m.logger.WithError(err).Error("Failed to clear stale session")
			}
		} else {
			c.Set(currentUserContextKey, user)
		}
		c.Next()
	}
}

// RequireUser rejects anonymous requests with a flash and a redirect home.
func (m *SessionManager) RequireUser(mtr *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		if CurrentUser(c) != nil {
			c.Next()
			return
		}

		mtr.Unauthorized.WithLabelValues(c.FullPath()).Inc()
		m.AddFlash(c, "danger", UnauthorizedMessage)
		c.Redirect(http.StatusFound, "/")
		c.Abort()
	}
}

// CurrentUser returns the logged in user, or nil.
func CurrentUser(c *gin.Context) *models.User {
	if v, ok := c.Get(currentUserContextKey); ok {
		if user, ok := v.(*models.User); ok {
			return user
		}
	}
	return nil
}
