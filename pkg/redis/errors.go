package redis

import "errors"

var (
	ErrEmptyConnectionURL           = errors.New("redis: empty connection URL, use REDIS_URL env var")
	ErrFailedToParseRedisConnString = errors.New("redis: invalid connection URL")
	// ErrRedisNotReady is returned when every connection attempt failed or the
	// context ended first.
	ErrRedisNotReady     = errors.New("redis: not ready after retrying")
	ErrHealthcheckFailed = errors.New("redis: healthcheck failed")
)
