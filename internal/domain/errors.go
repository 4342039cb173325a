package domain

import "errors"

var (
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrSessionExpired   = errors.New("session expired")
	ErrProfileNotFound  = errors.New("profile not found")
)
