package runlog

import "errors"

var (
	ErrNotFound       = errors.New("run report not found")
	ErrFailedToSave   = errors.New("failed to save run report")
	ErrFailedToLoad   = errors.New("failed to load run report")
	ErrFailedToEncode = errors.New("failed to encode run report")
	ErrFailedToDecode = errors.New("failed to decode run report")
	ErrMissingPeriod  = errors.New("run report has no period")
	ErrNilRedisClient = errors.New("redis client is nil")
)
