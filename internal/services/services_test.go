package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/warbler/warbler/internal/models"
	"github.com/warbler/warbler/internal/repository"
	"github.com/warbler/warbler/internal/services"
	"github.com/warbler/warbler/internal/testsupport"
	"github.com/warbler/warbler/pkg/cache"
	"github.com/warbler/warbler/pkg/logger"
)

type fixture struct {
	db        *repository.Database
	redis     *cache.RedisClient
	stats     *services.StatsCache
	publisher *testsupport.RecordingPublisher
	users     *services.UserService
	messages  *services.MessageService
	likes     *services.LikeService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := testsupport.NewDatabase(t)
	_, redisClient := testsupport.NewRedis(t)
	stats := services.NewStatsCache(redisClient, time.Hour)
	publisher := &testsupport.RecordingPublisher{}
	log := logger.NewNopLogger()

	userRepo := repository.NewUserRepository(db.DB)
	messageRepo := repository.NewMessageRepository(db.DB)
	followRepo := repository.NewFollowRepository(db.DB)
	likeRepo := repository.NewLikeRepository(db.DB)

	return &fixture{
		db:        db,
		redis:     redisClient,
		stats:     stats,
		publisher: publisher,
		users:     services.NewUserService(db.DB, userRepo, followRepo, messageRepo, likeRepo, stats, publisher, log),
		messages:  services.NewMessageService(db.DB, messageRepo, followRepo, likeRepo, userRepo, publisher, log),
		likes:     services.NewLikeService(db.DB, messageRepo, likeRepo, userRepo, publisher, log),
	}
}

// register signs a user up with password "password".
func (f *fixture) register(t *testing.T, username string) *models.User {
	t.Helper()

	user, err := f.users.Register(context.Background(), &services.SignupRequest{
		Username: username,
		Email:    username + "@test.com",
		Password: "password",
	})
	require.NoError(t, err)
	return user
}
