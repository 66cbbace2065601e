package store

import (
	"context"
	"sort"
	"strings"
	"sync"

	"opencourt/internal/core"
)

// Memory implements core.Store with mutex-guarded maps. It mirrors the
// Postgres semantics closely enough for the service and handler tests to
// run against it, and doubles as a reference for those semantics.
type Memory struct {
	mu           sync.RWMutex
	applications map[string]*core.ApplicationRecord // by ID
	users        map[string]*core.User              // by ID
	sessions     map[string]*core.Session           // by ID
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		applications: make(map[string]*core.ApplicationRecord),
		users:        make(map[string]*core.User),
		sessions:     make(map[string]*core.Session),
	}
}

func matchesFilter(rec *core.ApplicationRecord, f core.ApplicationFilter) bool {
	if !f.Scope.Allows(rec) {
		return false
	}
	if f.Status != "" && rec.Status != f.Status {
		return false
	}
	if f.PoliceStation != "" && rec.PoliceStation != f.PoliceStation {
		return false
	}
	if f.Category != "" && rec.Category != f.Category {
		return false
	}
	if f.Search != "" {
		needle := strings.ToLower(strings.TrimSpace(f.Search))
		if !strings.Contains(strings.ToLower(rec.Name), needle) &&
			!strings.Contains(strings.ToLower(rec.DairyNo), needle) &&
			!strings.Contains(strings.ToLower(rec.Contact), needle) {
			return false
		}
	}
	return true
}

// ListApplications returns matching records, newest first.
func (m *Memory) ListApplications(_ context.Context, f core.ApplicationFilter) ([]core.ApplicationRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []core.ApplicationRecord
	for _, rec := range m.applications {
		if matchesFilter(rec, f) {
			out = append(out, *rec)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].SrNo < out[j].SrNo
	})
	return out, nil
}

// GetApplication returns a copy of a record by ID.
func (m *Memory) GetApplication(_ context.Context, id string) (*core.ApplicationRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.applications[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

// GetApplicationBySrNo returns a copy of a record by serial number.
func (m *Memory) GetApplicationBySrNo(_ context.Context, srNo string) (*core.ApplicationRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, rec := range m.applications {
		if rec.SrNo == srNo {
			cp := *rec
			return &cp, nil
		}
	}
	return nil, core.ErrNotFound
}

// CreateApplication inserts a copy of the record. Serial numbers are
// unique, as the applications table enforces.
func (m *Memory) CreateApplication(_ context.Context, rec *core.ApplicationRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.srNoTaken(rec.SrNo, rec.ID) {
		return core.InvalidInput("sr_no already exists")
	}
	cp := *rec
	m.applications[rec.ID] = &cp
	return nil
}

// UpdateApplication overwrites a record by ID.
func (m *Memory) UpdateApplication(_ context.Context, rec *core.ApplicationRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.applications[rec.ID]; !ok {
		return core.ErrNotFound
	}
	if m.srNoTaken(rec.SrNo, rec.ID) {
		return core.InvalidInput("sr_no already exists")
	}
	cp := *rec
	m.applications[rec.ID] = &cp
	return nil
}

// srNoTaken reports whether another record already holds the serial.
// Callers must hold the lock.
func (m *Memory) srNoTaken(srNo, selfID string) bool {
	for _, rec := range m.applications {
		if rec.SrNo == srNo && rec.ID != selfID {
			return true
		}
	}
	return false
}

// DeleteApplication removes a record by ID.
func (m *Memory) DeleteApplication(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.applications[id]; !ok {
		return core.ErrNotFound
	}
	delete(m.applications, id)
	return nil
}

// OverallCounts computes the headline counters for the scope.
func (m *Memory) OverallCounts(_ context.Context, scope core.Scope) (core.OverallStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var st core.OverallStats
	for _, rec := range m.applications {
		if !scope.Allows(rec) {
			continue
		}
		st.Total++
		switch rec.Status {
		case core.StatusPending:
			st.Pending++
		case core.StatusHeard:
			st.Heard++
		case core.StatusReferred:
			st.Referred++
		case core.StatusClosed:
			st.Closed++
		}
		switch rec.Feedback {
		case core.FeedbackPositive:
			st.PositiveFeedback++
		case core.FeedbackNegative:
			st.NegativeFeedback++
		}
	}
	return st, nil
}

// CategoryCounts returns up to limit categories by descending count.
func (m *Memory) CategoryCounts(_ context.Context, scope core.Scope, limit int) ([]core.CategoryCount, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	counts := make(map[string]int)
	for _, rec := range m.applications {
		if scope.Allows(rec) {
			counts[rec.Category]++
		}
	}

	out := make([]core.CategoryCount, 0, len(counts))
	for category, n := range counts {
		out = append(out, core.CategoryCount{Category: category, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Category < out[j].Category
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// StationCounts returns up to limit stations by descending count over the
// entire record set.
func (m *Memory) StationCounts(_ context.Context, limit int) ([]core.StationCount, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	byStation := make(map[string]*core.StationCount)
	for _, rec := range m.applications {
		c, ok := byStation[rec.PoliceStation]
		if !ok {
			c = &core.StationCount{PoliceStation: rec.PoliceStation}
			byStation[rec.PoliceStation] = c
		}
		c.Count++
		switch rec.Status {
		case core.StatusPending:
			c.Pending++
		case core.StatusHeard:
			c.Heard++
		}
	}

	out := make([]core.StationCount, 0, len(byStation))
	for _, c := range byStation {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].PoliceStation < out[j].PoliceStation
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// DivisionCounts returns all divisions by descending count.
func (m *Memory) DivisionCounts(_ context.Context, scope core.Scope) ([]core.DivisionCount, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	counts := make(map[string]int)
	for _, rec := range m.applications {
		if scope.Allows(rec) {
			counts[rec.Division]++
		}
	}

	out := make([]core.DivisionCount, 0, len(counts))
	for division, n := range counts {
		out = append(out, core.DivisionCount{Division: division, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Division < out[j].Division
	})
	return out, nil
}

// DistinctStations returns the distinct police station names, sorted.
func (m *Memory) DistinctStations(_ context.Context) ([]string, error) {
	return m.distinct(func(rec *core.ApplicationRecord) string { return rec.PoliceStation })
}

// DistinctCategories returns the distinct category names, sorted.
func (m *Memory) DistinctCategories(_ context.Context) ([]string, error) {
	return m.distinct(func(rec *core.ApplicationRecord) string { return rec.Category })
}

func (m *Memory) distinct(field func(*core.ApplicationRecord) string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	seen := make(map[string]struct{})
	for _, rec := range m.applications {
		seen[field(rec)] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for v := range seen {
		out = append(out, v)
	}
	sort.Strings(out)
	return out, nil
}

// GetUser returns a copy of a user by ID.
func (m *Memory) GetUser(_ context.Context, id string) (*core.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.users[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

// GetUserByUsername returns a copy of a user by username.
func (m *Memory) GetUserByUsername(_ context.Context, username string) (*core.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, u := range m.users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, core.ErrNotFound
}

// CreateUser inserts a copy of the user.
func (m *Memory) CreateUser(_ context.Context, u *core.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.users {
		if existing.Username == u.Username {
			return core.InvalidInput("username already exists")
		}
	}
	cp := *u
	m.users[u.ID] = &cp
	return nil
}

// CreateSession inserts a copy of the session.
func (m *Memory) CreateSession(_ context.Context, s *core.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *s
	m.sessions[s.ID] = &cp
	return nil
}

// GetSessionByAccessHash returns a copy of a session by access digest.
func (m *Memory) GetSessionByAccessHash(_ context.Context, hash string) (*core.Session, error) {
	return m.findSession(func(s *core.Session) bool { return s.AccessHash == hash })
}

// GetSessionByRefreshHash returns a copy of a session by refresh digest.
func (m *Memory) GetSessionByRefreshHash(_ context.Context, hash string) (*core.Session, error) {
	return m.findSession(func(s *core.Session) bool { return s.RefreshHash == hash })
}

func (m *Memory) findSession(match func(*core.Session) bool) (*core.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, s := range m.sessions {
		if match(s) {
			cp := *s
			return &cp, nil
		}
	}
	return nil, core.ErrNotFound
}

// UpdateSessionAccess rotates the access digest and expiry.
func (m *Memory) UpdateSessionAccess(_ context.Context, s *core.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.sessions[s.ID]
	if !ok {
		return core.ErrNotFound
	}
	existing.AccessHash = s.AccessHash
	existing.AccessExpiresAt = s.AccessExpiresAt
	return nil
}

// DeleteSession removes a session by ID.
func (m *Memory) DeleteSession(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[id]; !ok {
		return core.ErrNotFound
	}
	delete(m.sessions, id)
	return nil
}
