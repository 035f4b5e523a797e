package credits

import (
	"context"
	"errors"
	"slices"
)

// selectEligible returns free users not yet credited for referenceID, in
// store order, along with the number of distinct free users found.
func (s *Service) selectEligible(ctx context.Context, referenceID string) ([]string, int, error) {
	free, err := s.store.ListFreeUserIDs(ctx, ActiveStatuses)
	if err != nil {
		return nil, 0, errors.Join(ErrSelectFreeUsers, err)
	}
	free = distinct(free)
	if len(free) == 0 {
		return nil, 0, nil
	}

	credited := make(map[string]struct{})
	for chunk := range slices.Chunk(free, s.grantBatchSize) {
		ids, err := s.store.ListCreditedUserIDs(ctx, referenceID, chunk)
		if err != nil {
			return nil, 0, errors.Join(ErrSelectCreditedUsers, err)
		}
		for _, id := range ids {
			credited[id] = struct{}{}
		}
	}

	eligible := make([]string, 0, len(free))
	for _, id := range free {
		if _, ok := credited[id]; !ok {
			eligible = append(eligible, id)
		}
	}
	return eligible, len(free), nil
}

func distinct(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := ids[:0:0]
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// difference returns the elements of a missing from b, preserving order of a.
func difference(a, b []string) []string {
	if len(b) == 0 {
		return a
	}
	in := make(map[string]struct{}, len(b))
	for _, id := range b {
		in[id] = struct{}{}
	}
	var out []string
	for _, id := range a {
		if _, ok := in[id]; !ok {
			out = append(out, id)
		}
	}
	return out
}
