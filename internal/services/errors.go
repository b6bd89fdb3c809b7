package services

import "errors"

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrMessageNotFound    = errors.New("message not found")
	ErrCannotFollowSelf   = errors.New("cannot follow yourself")
	ErrAlreadyFollowing   = errors.New("already following")
	ErrNotFollowing       = errors.New("not following")
	ErrForbidden          = errors.New("access unauthorized")
	ErrInvalidCredentials = errors.New("invalid username or password")
)
