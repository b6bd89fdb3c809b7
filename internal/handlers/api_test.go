package handlers_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (a *app) token(username string) string {
	a.t.Helper()

	w := a.postJSON("/api/v1/token", "", map[string]string{"username": username, "password": "password"})
	require.Equal(a.t, http.StatusOK, w.Code)

	var resp struct {
		Token string `json:"token"`
	}
	require.NoError(a.t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(a.t, resp.Token)
	return resp.Token
}

func TestAPI_Token(t *testing.T) {
	a := newApp(t)
	a.register("testuser")

	w := a.postJSON("/api/v1/token", "", map[string]string{"username": "testuser", "password": "bad"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = a.postJSON("/api/v1/token", "", map[string]string{"username": "testuser", "password": "password"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), `"password"`)
}

func TestAPI_RequiresToken(t *testing.T) {
	a := newApp(t)
	u := a.register("testuser")

	assert.Equal(t, http.StatusUnauthorized, a.getJSON(fmt.Sprintf("/api/v1/users/%d/following", u.ID), "").Code)
	assert.Equal(t, http.StatusUnauthorized, a.getJSON(fmt.Sprintf("/api/v1/users/%d/following", u.ID), "garbage").Code)
}

func TestAPI_FollowingFollowersAndLike(t *testing.T) {
	ctx := context.Background()
	a := newApp(t)
	me := a.register("testuser")
	zane := a.register("zane")
	require.NoError(t, a.users.Follow(ctx, me.ID, zane.ID))
	msg, err := a.messages.Create(ctx, zane.ID, "api message")
	require.NoError(t, err)

	token := a.token("testuser")

	w := a.getJSON(fmt.Sprintf("/api/v1/users/%d/following", me.ID), token)
	require.Equal(t, http.StatusOK, w.Code)
	var following struct {
		Following []struct {
			Username string `json:"username"`
		} `json:"following"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &following))
	require.Len(t, following.Following, 1)
	assert.Equal(t, "zane", following.Following[0].Username)

	w = a.getJSON(fmt.Sprintf("/api/v1/users/%d/followers", zane.ID), token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"username":"testuser"`)

	w = a.postJSON(fmt.Sprintf("/api/v1/messages/%d/like", msg.ID), token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"liked":true}`, w.Body.String())

	w = a.getJSON(fmt.Sprintf("/api/v1/users/%d", me.ID), token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"likes":1`)

	w = a.postJSON(fmt.Sprintf("/api/v1/messages/%d/like", msg.ID), token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"liked":false}`, w.Body.String())

	assert.Equal(t, http.StatusNotFound, a.getJSON("/api/v1/users/9999/followers", token).Code)
}
