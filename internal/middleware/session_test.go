package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warbler/warbler/internal/config"
	"github.com/warbler/warbler/pkg/logger"
)

func newTestSessions() *SessionManager {
	return NewSessionManager(&config.SessionConfig{Secret: "secret", MaxAge: time.Hour}, logger.NewNopLogger())
}

// serve runs one request through router, replaying cookies.
func serve(router *gin.Engine, path string, cookies []*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

// lastCookies keeps the final value of each cookie set by a response.
func lastCookies(w *httptest.ResponseRecorder) []*http.Cookie {
	byName := map[string]*http.Cookie{}
	for _, c := range w.Result().Cookies() {
		byName[c.Name] = c
	}
	cookies := make([]*http.Cookie, 0, len(byName))
	for _, c := range byName {
		cookies = append(cookies, c)
	}
	return cookies
}

func TestSessionManager_LoginLogoutFlashes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := newTestSessions()

	router := gin.New()
	router.GET("/login", func(c *gin.Context) {
		require.NoError(t, m.Login(c, 12))
		m.AddFlash(c, "success", "Hello")
		c.Status(http.StatusNoContent)
	})
	router.GET("/whoami", func(c *gin.Context) {
		id, ok := m.UserID(c)
		flashes := m.Flashes(c)
		c.JSON(http.StatusOK, gin.H{"id": id, "ok": ok, "flashes": len(flashes)})
	})
	router.GET("/logout", func(c *gin.Context) {
		require.NoError(t, m.Logout(c))
		c.Status(http.StatusNoContent)
	})

	w := serve(router, "/whoami", nil)
	assert.JSONEq(t, `{"id":0,"ok":false,"flashes":0}`, w.Body.String())

	cookies := lastCookies(serve(router, "/login", nil))
	require.NotEmpty(t, cookies)

	w = serve(router, "/whoami", cookies)
	assert.JSONEq(t, `{"id":12,"ok":true,"flashes":1}`, w.Body.String())
	cookies = lastCookies(w)

	w = serve(router, "/whoami", cookies)
	assert.JSONEq(t, `{"id":12,"ok":true,"flashes":0}`, w.Body.String())

	cookies = lastCookies(serve(router, "/logout", cookies))
	w = serve(router, "/whoami", cookies)
	assert.JSONEq(t, `{"id":0,"ok":false,"flashes":0}`, w.Body.String())
}

func TestSessionManager_TamperedCookieIsIgnored(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := newTestSessions()

	router := gin.New()
	router.GET("/whoami", func(c *gin.Context) {
		_, ok := m.UserID(c)
		c.JSON(http.StatusOK, gin.H{"ok": ok})
	})

	w := serve(router, "/whoami", []*http.Cookie{{Name: SessionName, Value: "forged"}})
	assert.JSONEq(t, `{"ok":false}`, w.Body.String())
}

func TestCurrentUser_Empty(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	assert.Nil(t, CurrentUser(c))
	assert.Zero(t, GetUserID(c))
}
