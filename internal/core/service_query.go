package core

import (
	"context"
	"fmt"
)

// ListQuery carries the optional listing filters taken from the request.
type ListQuery struct {
	Status        string
	PoliceStation string
	Category      string
	Search        string
}

// ListApplications returns the records visible to the caller, narrowed by
// the query. Filters compose with AND; Search matches name, dairy_no, or
// contact case-insensitively.
func (s *Service) ListApplications(ctx context.Context, caller *User, q ListQuery) ([]ApplicationRecord, error) {
	f := ApplicationFilter{
		Scope:         ScopeFor(caller),
		PoliceStation: q.PoliceStation,
		Category:      q.Category,
		Search:        q.Search,
	}

	if q.Status != "" {
		st := Status(q.Status)
		if !st.Valid() {
			return nil, InvalidInput("Invalid status")
		}
		f.Status = st
	}

	recs, err := s.store.ListApplications(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list applications: %w", err)
	}
	if recs == nil {
		recs = []ApplicationRecord{}
	}
	return recs, nil
}

// PoliceStations returns the distinct station names across all records.
func (s *Service) PoliceStations(ctx context.Context) ([]string, error) {
	stations, err := s.store.DistinctStations(ctx)
	if err != nil {
		return nil, fmt.Errorf("list police stations: %w", err)
	}
	if stations == nil {
		stations = []string{}
	}
	return stations, nil
}

// Categories returns the distinct category names across all records.
func (s *Service) Categories(ctx context.Context) ([]string, error) {
	categories, err := s.store.DistinctCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	if categories == nil {
		categories = []string{}
	}
	return categories, nil
}
