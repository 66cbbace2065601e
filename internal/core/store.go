package core

import "context"

// Store is the persistence surface the service is built on. It is
// implemented by store.Postgres for production and store.Memory for tests.
type Store interface {
	ApplicationStore
	UserStore
	SessionStore
}

// ApplicationStore persists and aggregates application records.
type ApplicationStore interface {
	// ListApplications returns records matching the filter, newest first.
	ListApplications(ctx context.Context, f ApplicationFilter) ([]ApplicationRecord, error)

	// GetApplication returns a record by ID, or ErrNotFound.
	GetApplication(ctx context.Context, id string) (*ApplicationRecord, error)

	// GetApplicationBySrNo returns a record by serial number, or ErrNotFound.
	GetApplicationBySrNo(ctx context.Context, srNo string) (*ApplicationRecord, error)

	// CreateApplication inserts a new record.
	CreateApplication(ctx context.Context, rec *ApplicationRecord) error

	// UpdateApplication overwrites an existing record by ID.
	UpdateApplication(ctx context.Context, rec *ApplicationRecord) error

	// DeleteApplication removes a record by ID, or ErrNotFound.
	DeleteApplication(ctx context.Context, id string) error

	// OverallCounts returns the headline counters for the scope.
	OverallCounts(ctx context.Context, scope Scope) (OverallStats, error)

	// CategoryCounts returns up to limit categories by descending count.
	CategoryCounts(ctx context.Context, scope Scope, limit int) ([]CategoryCount, error)

	// StationCounts returns up to limit stations by descending count over
	// the entire record set, each with pending/heard sub-counts.
	StationCounts(ctx context.Context, limit int) ([]StationCount, error)

	// DivisionCounts returns all divisions by descending count.
	DivisionCounts(ctx context.Context, scope Scope) ([]DivisionCount, error)

	// DistinctStations returns the distinct police station names.
	DistinctStations(ctx context.Context) ([]string, error)

	// DistinctCategories returns the distinct category names.
	DistinctCategories(ctx context.Context) ([]string, error)
}

// UserStore persists users.
type UserStore interface {
	// GetUser returns a user by ID, or ErrNotFound.
	GetUser(ctx context.Context, id string) (*User, error)

	// GetUserByUsername returns a user by username, or ErrNotFound.
	GetUserByUsername(ctx context.Context, username string) (*User, error)

	// CreateUser inserts a new user.
	CreateUser(ctx context.Context, u *User) error
}

// SessionStore persists issued token pairs.
type SessionStore interface {
	// CreateSession inserts a new session.
	CreateSession(ctx context.Context, s *Session) error

	// GetSessionByAccessHash returns a session by access token digest,
	// or ErrNotFound.
	GetSessionByAccessHash(ctx context.Context, hash string) (*Session, error)

	// GetSessionByRefreshHash returns a session by refresh token digest,
	// or ErrNotFound.
	GetSessionByRefreshHash(ctx context.Context, hash string) (*Session, error)

	// UpdateSessionAccess replaces the access digest and expiry of a
	// session, used for refresh rotation.
	UpdateSessionAccess(ctx context.Context, s *Session) error

	// DeleteSession removes a session by ID, or ErrNotFound.
	DeleteSession(ctx context.Context, id string) error
}
