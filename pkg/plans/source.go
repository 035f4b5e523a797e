package plans

import (
	"context"
	"maps"
)

// Source loads plan definitions keyed by plan id.
type Source interface {
	Load(ctx context.Context) (map[string]Plan, error)
}

type inMemSource struct {
	plans map[string]Plan
}

// NewInMemSource returns a Source serving a copy of the given plans.
func NewInMemSource(plans map[string]Plan) Source {
	return &inMemSource{plans: maps.Clone(plans)}
}

func (s *inMemSource) Load(ctx context.Context) (map[string]Plan, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return maps.Clone(s.plans), nil
}

// Default returns the built-in catalog source: a single free plan with 100
// monthly credits.
func Default() Source {
	return NewInMemSource(map[string]Plan{
		"free": {ID: "free", Name: "Free", MonthlyCredits: 100, Public: true},
	})
}
