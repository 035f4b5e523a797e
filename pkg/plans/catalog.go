package plans

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
)

// Catalog is an immutable, validated set of plans.
type Catalog struct {
	plans map[string]Plan
}

// NewCatalog loads and validates the plans of src.
func NewCatalog(ctx context.Context, src Source) (*Catalog, error) {
	if src == nil {
		panic("plans: source is required")
	}
	loaded, err := src.Load(ctx)
	if err != nil {
		return nil, err
	}
	if err := validate(loaded); err != nil {
		return nil, err
	}
	return &Catalog{plans: loaded}, nil
}

func validate(plans map[string]Plan) error {
	if len(plans) == 0 {
		return ErrNoPlans
	}
	for key, p := range plans {
		switch {
		case p.ID == "":
			return errors.Join(ErrInvalidPlan, fmt.Errorf("plan %q has empty id", key))
		case p.ID != key:
			return errors.Join(ErrInvalidPlan, fmt.Errorf("plan key %q does not match id %q", key, p.ID))
		case p.MonthlyCredits < 0:
			return errors.Join(ErrInvalidPlan, fmt.Errorf("plan %q has negative monthly credits", key))
		}
	}
	return nil
}

// Plan returns the plan with the given id.
func (c *Catalog) Plan(id string) (Plan, error) {
	p, ok := c.plans[id]
	if !ok {
		return Plan{}, ErrPlanNotFound
	}
	return p, nil
}

// MonthlyCredits returns the monthly free-credit amount of a plan.
// The second value is false for unknown plans.
func (c *Catalog) MonthlyCredits(id string) (int64, bool) {
	p, ok := c.plans[id]
	if !ok {
		return 0, false
	}
	return p.MonthlyCredits, true
}

// IDs returns the sorted plan ids.
func (c *Catalog) IDs() []string {
	return slices.Sorted(maps.Keys(c.plans))
}
