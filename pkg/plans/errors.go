package plans

import "errors"

var (
	ErrPlanNotFound      = errors.New("plan not found")
	ErrNoPlans           = errors.New("no plans defined")
	ErrInvalidPlan       = errors.New("invalid plan definition")
	ErrDuplicatePlan     = errors.New("duplicate plan id")
	ErrFailedToReadPlans = errors.New("failed to read plans file")
	ErrFailedToParseYAML = errors.New("failed to parse plans yaml")
	ErrLoadCancelled     = errors.New("plans loading cancelled")
)
