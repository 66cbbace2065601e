package core

import (
	"context"
	"fmt"
)

// TopStatsLimit caps the category and station breakdowns.
const TopStatsLimit = 10

// DashboardStats computes the aggregate dashboard object for the caller.
// Overall, category, and division numbers respect the caller's scope; the
// station breakdown covers the entire record set but is only populated for
// ADMIN callers.
func (s *Service) DashboardStats(ctx context.Context, caller *User) (*DashboardStats, error) {
	scope := ScopeFor(caller)

	overall, err := s.store.OverallCounts(ctx, scope)
	if err != nil {
		return nil, fmt.Errorf("overall counts: %w", err)
	}

	categories, err := s.store.CategoryCounts(ctx, scope, TopStatsLimit)
	if err != nil {
		return nil, fmt.Errorf("category counts: %w", err)
	}
	if categories == nil {
		categories = []CategoryCount{}
	}

	stations := []StationCount{}
	if caller.Role == RoleAdmin {
		stations, err = s.store.StationCounts(ctx, TopStatsLimit)
		if err != nil {
			return nil, fmt.Errorf("station counts: %w", err)
		}
		if stations == nil {
			stations = []StationCount{}
		}
	}

	divisions, err := s.store.DivisionCounts(ctx, scope)
	if err != nil {
		return nil, fmt.Errorf("division counts: %w", err)
	}
	if divisions == nil {
		divisions = []DivisionCount{}
	}

	return &DashboardStats{
		Overall:        overall,
		Categories:     categories,
		PoliceStations: stations,
		Divisions:      divisions,
	}, nil
}
