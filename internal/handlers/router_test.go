package handlers_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"github.com/warbler/warbler/internal/config"
	"github.com/warbler/warbler/internal/handlers"
	"github.com/warbler/warbler/internal/metrics"
	"github.com/warbler/warbler/internal/middleware"
	"github.com/warbler/warbler/internal/models"
	"github.com/warbler/warbler/internal/repository"
	"github.com/warbler/warbler/internal/services"
	"github.com/warbler/warbler/internal/testsupport"
	"github.com/warbler/warbler/internal/workers"
	"github.com/warbler/warbler/pkg/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type app struct {
	t        *testing.T
	db       *repository.Database
	router   *gin.Engine
	users    *services.UserService
	messages *services.MessageService
}

func newApp(t *testing.T) *app {
	t.Helper()

	db := testsupport.NewDatabase(t)
	_, redisClient := testsupport.NewRedis(t)
	log := logger.NewNopLogger()

	stats := services.NewStatsCache(redisClient, time.Hour)
	publisher := workers.NewInlinePublisher(workers.NewStatsWorker(stats, nil, log))

	userRepo := repository.NewUserRepository(db.DB)
	messageRepo := repository.NewMessageRepository(db.DB)
	followRepo := repository.NewFollowRepository(db.DB)
	likeRepo := repository.NewLikeRepository(db.DB)

	userService := services.NewUserService(db.DB, userRepo, followRepo, messageRepo, likeRepo, stats, publisher, log)
	messageService := services.NewMessageService(db.DB, messageRepo, followRepo, likeRepo, userRepo, publisher, log)
	likeService := services.NewLikeService(db.DB, messageRepo, likeRepo, userRepo, publisher, log)

	reg := prometheus.NewRegistry()
	router := handlers.NewRouter(&handlers.RouterDeps{
		UserRepo:       userRepo,
		UserService:    userService,
		MessageService: messageService,
		LikeService:    likeService,
		Sessions:       middleware.NewSessionManager(&config.SessionConfig{Secret: "test-secret", MaxAge: time.Hour}, log),
		Metrics:        metrics.New(reg),
		Gatherer:       reg,
		JWT:            config.JWTConfig{Secret: "test-secret", ExpireTime: time.Hour},
		Logger:         log,
	})

	return &app{t: t, db: db, router: router, users: userService, messages: messageService}
}

func (a *app) register(username string) *models.User {
	a.t.Helper()

	user, err := a.users.Register(context.Background(), &services.SignupRequest{
		Username: username,
		Email:    username + "@test.com",
		Password: "password",
	})
	require.NoError(a.t, err)
	return user
}

// client is a browser stand-in that keeps cookies between requests.
type client struct {
	app *app
	jar *cookiejar.Jar
}

var siteURL = &url.URL{Scheme: "http", Host: "example.com", Path: "/"}

func (a *app) client() *client {
	jar, err := cookiejar.New(nil)
	require.NoError(a.t, err)
	return &client{app: a, jar: jar}
}

func (c *client) do(req *http.Request) *httptest.ResponseRecorder {
	for _, cookie := range c.jar.Cookies(siteURL) {
		req.AddCookie(cookie)
	}
	w := httptest.NewRecorder()
	c.app.router.ServeHTTP(w, req)
	c.jar.SetCookies(siteURL, w.Result().Cookies())
	return w
}

func (c *client) get(path string) *httptest.ResponseRecorder {
	return c.do(httptest.NewRequest(http.MethodGet, path, nil))
}

func (c *client) post(path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(req)
}

func (c *client) login(username string) {
	c.app.t.Helper()

	w := c.post("/login", url.Values{"username": {username}, "password": {"password"}})
	require.Equal(c.app.t, http.StatusFound, w.Code)
}

func (a *app) postJSON(path, token string, body interface{}) *httptest.ResponseRecorder {
	a.t.Helper()

	raw, err := json.Marshal(body)
	require.NoError(a.t, err)
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(string(raw)))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func (a *app) getJSON(path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}
