package services_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warbler/warbler/internal/services"
	"github.com/warbler/warbler/pkg/queue"
)

func TestLikeService_ToggleLike(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	a := f.register(t, "usera")
	b := f.register(t, "userb")
	msg, err := f.messages.Create(ctx, a.ID, "likeable")
	require.NoError(t, err)

	liked, err := f.likes.ToggleLike(ctx, b.ID, msg.ID)
	require.NoError(t, err)
	assert.True(t, liked)

	ids, err := f.likes.LikedMessageIDs(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, map[uint]bool{msg.ID: true}, ids)

	messages, err := f.likes.LikedMessages(ctx, b.ID, 0, 10)
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, msg.ID, messages[0].ID)

	liked, err = f.likes.ToggleLike(ctx, b.ID, msg.ID)
	require.NoError(t, err)
	assert.False(t, liked)

	ids, err = f.likes.LikedMessageIDs(ctx, b.ID)
	require.NoError(t, err)
	assert.Empty(t, ids)

	types := f.publisher.Types()
	assert.Equal(t, []queue.EventType{queue.EventLikeCreated, queue.EventLikeDeleted}, types[len(types)-2:])
}

func TestLikeService_OwnMessage(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	a := f.register(t, "usera")
	msg, err := f.messages.Create(ctx, a.ID, "self love")
	require.NoError(t, err)

	liked, err := f.likes.ToggleLike(ctx, a.ID, msg.ID)
	require.NoError(t, err)
	assert.True(t, liked)
}

func TestLikeService_NotFound(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	a := f.register(t, "usera")

	_, err := f.likes.ToggleLike(ctx, a.ID, 9999)
	assert.ErrorIs(t, err, services.ErrMessageNotFound)

	_, err = f.likes.ToggleLike(ctx, 9999, 1)
	assert.ErrorIs(t, err, services.ErrUserNotFound)
}
