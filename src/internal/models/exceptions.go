package models

import "errors"

var (
	ErrRedisConnection  = errors.New("redis connection error")
	ErrKeyNotFound      = errors.New("redis key not found")
	ErrStoreUnavailable = errors.New("key-value store unavailable")
)

var (
	ErrSessionNotFound    = errors.New("session not found")
	ErrSessionInvalid     = errors.New("session invalid")
	ErrInvalidCredentials = errors.New("invalid credentials or inactive user")
)

var (
	ErrUserNotFound  = errors.New("user not found")
	ErrInvalidParams = errors.New("invalid parameters")
	ErrInvalidToken  = errors.New("invalid token")
)

var (
	ErrDatabaseConnection = errors.New("database connection error")
	ErrDatabaseQuery      = errors.New("database query error")
	ErrDatabaseUpdate     = errors.New("database update error")
	ErrDatabaseDelete     = errors.New("database delete error")
)
