package account

import "errors"

var (
	ErrUserNotFound      = errors.New("user not found")
	ErrUserAlreadyExists = errors.New("user already exists")
	ErrProfileNotFound   = errors.New("profile not found")

	ErrTokenNotFound = errors.New("security token not found")
	ErrTokenExists   = errors.New("security token already exists")

	ErrLinkNotFound = errors.New("oauth link not found")
	ErrLinkExists   = errors.New("oauth link already exists")
)
