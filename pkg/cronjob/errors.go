package cronjob

import "errors"

var (
	ErrInvalidSchedule = errors.New("invalid cron schedule")
	ErrAlreadyRunning  = errors.New("scheduler already running")
	ErrDuplicateJob    = errors.New("job already registered")
)
