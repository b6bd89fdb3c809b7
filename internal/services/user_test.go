package services_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warbler/warbler/internal/models"
	"github.com/warbler/warbler/internal/repository"
	"github.com/warbler/warbler/internal/services"
	"github.com/warbler/warbler/pkg/logger"
	"github.com/warbler/warbler/pkg/queue"
)

func TestUserService_SignupAuthenticate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	session := repository.NewSession(f.db.DB)
	bob, err := f.users.Signup(session, "bob", "bob123@aol.com", "bob123", "/static/images/default-pic.png")
	require.NoError(t, err)
	require.NoError(t, session.Commit(ctx))
	require.NotZero(t, bob.ID)
	assert.NotEqual(t, "bob123", bob.Password)

	got, err := f.users.Authenticate(ctx, "bob", "bob123")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, bob.ID, got.ID)
	assert.Equal(t, "bob123@aol.com", got.Email)

	got, err = f.users.Authenticate(ctx, "bob1", "bob123")
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = f.users.Authenticate(ctx, "bob", "bob234")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestUserService_Signup_StagesOnly(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	session := repository.NewSession(f.db.DB)
	user, err := f.users.Signup(session, "alice", "alice@test.com", "secret", "")
	require.NoError(t, err)
	assert.Equal(t, models.DefaultImageURL, user.ImageURL)
	assert.Equal(t, 1, session.Pending())

	got, err := f.users.Authenticate(ctx, "alice", "secret")
	require.NoError(t, err)
	assert.Nil(t, got)

	session.Rollback()
	require.NoError(t, session.Commit(ctx))
	got, err = f.users.Authenticate(ctx, "alice", "secret")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestUserService_Register_DuplicateUsername(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.register(t, "bob")

	_, err := f.users.Register(ctx, &services.SignupRequest{
		Username: "bob",
		Email:    "other@test.com",
		Password: "password",
	})
	require.Error(t, err)
	assert.True(t, services.IsTaken(err))
	assert.Equal(t, []queue.EventType{queue.EventUserCreated}, f.publisher.Types())
}

func TestUserService_FollowScenario(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	a := f.register(t, "usera")
	b := f.register(t, "userb")

	require.NoError(t, f.users.Follow(ctx, a.ID, b.ID))

	ok, err := f.users.IsFollowing(ctx, a, b)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = f.users.IsFollowing(ctx, b, a)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = f.users.IsFollowedBy(ctx, b, a)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = f.users.IsFollowedBy(ctx, a, b)
	require.NoError(t, err)
	assert.False(t, ok)

	following, err := f.users.Following(ctx, a.ID, 0, 10)
	require.NoError(t, err)
	require.Len(t, following, 1)
	assert.Equal(t, b.ID, following[0].ID)

	followers, err := f.users.Followers(ctx, b.ID, 0, 10)
	require.NoError(t, err)
	require.Len(t, followers, 1)
	assert.Equal(t, a.ID, followers[0].ID)
}

func TestUserService_FollowErrors(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	a := f.register(t, "usera")
	b := f.register(t, "userb")

	assert.ErrorIs(t, f.users.Follow(ctx, a.ID, a.ID), services.ErrCannotFollowSelf)
	assert.ErrorIs(t, f.users.Follow(ctx, a.ID, 9999), services.ErrUserNotFound)
	assert.ErrorIs(t, f.users.Unfollow(ctx, a.ID, b.ID), services.ErrNotFollowing)

	require.NoError(t, f.users.Follow(ctx, a.ID, b.ID))
	assert.ErrorIs(t, f.users.Follow(ctx, a.ID, b.ID), services.ErrAlreadyFollowing)

	require.NoError(t, f.users.Unfollow(ctx, a.ID, b.ID))
	ok, err := f.users.IsFollowing(ctx, a, b)
	require.NoError(t, err)
	assert.False(t, ok)

	assert.Equal(t, []queue.EventType{
		queue.EventUserCreated,
		queue.EventUserCreated,
		queue.EventFollowCreated,
		queue.EventFollowDeleted,
	}, f.publisher.Types())
}

func TestUserService_Profile_ReadsThroughCache(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	a := f.register(t, "usera")
	b := f.register(t, "userb")
	require.NoError(t, f.users.Follow(ctx, a.ID, b.ID))
	msg, err := f.messages.Create(ctx, a.ID, "hello")
	require.NoError(t, err)
	_, err = f.likes.ToggleLike(ctx, a.ID, msg.ID)
	require.NoError(t, err)

	profile, err := f.users.Profile(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, &services.Stats{Messages: 1, Following: 1, Followers: 0, Likes: 1}, profile.Stats)

	cached, hit, err := f.stats.Get(ctx, a.ID)
	require.NoError(t, err)
	require.True(t, hit)
	assert.Equal(t, profile.Stats, cached)

	// nothing invalidates the cache here, so a new message is not counted yet
	_, err = f.messages.Create(ctx, a.ID, "again")
	require.NoError(t, err)
	profile, err = f.users.Profile(ctx, a.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, profile.Stats.Messages)

	require.NoError(t, f.stats.Invalidate(ctx, a.ID))
	profile, err = f.users.Profile(ctx, a.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, profile.Stats.Messages)
}

func TestUserService_Profile_WithoutCache(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	a := f.register(t, "usera")

	users := services.NewUserService(f.db.DB,
		repository.NewUserRepository(f.db.DB),
		repository.NewFollowRepository(f.db.DB),
		repository.NewMessageRepository(f.db.DB),
		repository.NewLikeRepository(f.db.DB),
		nil, f.publisher, logger.NewNopLogger())

	profile, err := users.Profile(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, &services.Stats{}, profile.Stats)

	_, err = users.Profile(ctx, 9999)
	assert.ErrorIs(t, err, services.ErrUserNotFound)
}

func TestUserService_UpdateProfile(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	a := f.register(t, "usera")
	f.register(t, "userb")

	_, err := f.users.UpdateProfile(ctx, a.ID, &services.UpdateProfileRequest{Bio: "hi", Password: "wrong"})
	assert.ErrorIs(t, err, services.ErrInvalidCredentials)

	updated, err := f.users.UpdateProfile(ctx, a.ID, &services.UpdateProfileRequest{
		Bio:      "hi",
		Location: "Earth",
		Password: "password",
	})
	require.NoError(t, err)
	assert.Equal(t, "hi", updated.Bio)

	got, err := f.users.GetByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "Earth", got.Location)
	assert.Equal(t, "usera", got.Username)

	_, err = f.users.UpdateProfile(ctx, a.ID, &services.UpdateProfileRequest{Username: "userb", Password: "password"})
	require.Error(t, err)
	assert.True(t, services.IsTaken(err))
}

func TestUserService_DeleteAccount(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	a := f.register(t, "usera")
	b := f.register(t, "userb")
	c := f.register(t, "userc")
	require.NoError(t, f.users.Follow(ctx, a.ID, b.ID))
	require.NoError(t, f.users.Follow(ctx, c.ID, a.ID))
	msg, err := f.messages.Create(ctx, a.ID, "still here")
	require.NoError(t, err)

	require.NoError(t, f.users.DeleteAccount(ctx, a.ID))

	_, err = f.users.GetByID(ctx, a.ID)
	assert.ErrorIs(t, err, services.ErrUserNotFound)

	kept, err := f.messages.Get(ctx, msg.ID)
	require.NoError(t, err)
	assert.Nil(t, kept.UserID)

	followers, err := f.users.Followers(ctx, b.ID, 0, 10)
	require.NoError(t, err)
	assert.Empty(t, followers)

	events := f.publisher.Events()
	last := events[len(events)-1]
	require.Equal(t, queue.EventUserDeleted, last.Type)
	var data queue.UserEventData
	require.NoError(t, last.Decode(&data))
	assert.Equal(t, a.ID, data.UserID)
	assert.ElementsMatch(t, []uint{b.ID, c.ID}, data.Related)
}

func TestUserService_Search(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.register(t, "zane")
	f.register(t, "nick")
	f.register(t, "nicole")

	all, err := f.users.Search(ctx, "", 0, 10)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	found, err := f.users.Search(ctx, "nic", 0, 10)
	require.NoError(t, err)
	require.Len(t, found, 2)
	assert.Equal(t, "nick", found[0].Username)
	assert.Equal(t, "nicole", found[1].Username)
}
