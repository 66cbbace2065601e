// Package core provides the business logic for open court application
// records: role-scoped querying, Excel import with per-row error isolation,
// status/feedback workflow transitions, and dashboard statistics.
// This package has no HTTP dependencies and is backed by a store.Store.
package core

import (
	"time"
)

// Role identifies what a user may see and do.
type Role string

const (
	// RoleStaff users are restricted to records of their own police station.
	RoleStaff Role = "STAFF"
	// RoleAdmin users see every record and the station-level statistics.
	RoleAdmin Role = "ADMIN"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleStaff || r == RoleAdmin
}

// Status is the review lifecycle state of an application.
type Status string

const (
	StatusPending  Status = "PENDING"
	StatusHeard    Status = "HEARD"
	StatusReferred Status = "REFERRED"
	StatusClosed   Status = "CLOSED"
)

// Valid reports whether s is one of the four lifecycle states.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusHeard, StatusReferred, StatusClosed:
		return true
	}
	return false
}

// Feedback is the outcome reported after a hearing.
type Feedback string

const (
	FeedbackPending  Feedback = "PENDING"
	FeedbackPositive Feedback = "POSITIVE"
	FeedbackNegative Feedback = "NEGATIVE"
)

// Valid reports whether f is a known feedback value.
func (f Feedback) Valid() bool {
	switch f {
	case FeedbackPending, FeedbackPositive, FeedbackNegative:
		return true
	}
	return false
}

// User is an authenticated principal.
type User struct {
	ID            string    `json:"id"`
	Username      string    `json:"username"`
	PasswordHash  string    `json:"-"`
	Role          Role      `json:"role"`
	PoliceStation string    `json:"police_station"`
	CreatedAt     time.Time `json:"created_at"`
}

// ApplicationRecord is one filed open court application.
// SrNo is the serial number assigned by the source spreadsheet and is the
// identity key for import upserts.
type ApplicationRecord struct {
	ID            string     `json:"id"`
	SrNo          string     `json:"sr_no"`
	DairyNo       string     `json:"dairy_no"`
	Name          string     `json:"name"`
	Contact       string     `json:"contact"`
	MarkedTo      string     `json:"marked_to"`
	Date          *time.Time `json:"date"`
	MarkedBy      string     `json:"marked_by"`
	Timeline      string     `json:"timeline"`
	PoliceStation string     `json:"police_station"`
	Division      string     `json:"division"`
	Category      string     `json:"category"`
	Status        Status     `json:"status"`
	Days          *int       `json:"days"`
	Feedback      Feedback   `json:"feedback"`
	Remarks       string     `json:"remarks"`
	DairyPs       string     `json:"dairy_ps"`
	CreatedBy     string     `json:"created_by,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// Session is one issued access/refresh token pair. Tokens themselves are
// never stored; only their sha256 digests are.
type Session struct {
	ID               string
	UserID           string
	AccessHash       string
	RefreshHash      string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
	CreatedAt        time.Time
}

// Scope restricts record visibility to a single police station.
// The zero value is unrestricted.
type Scope struct {
	PoliceStation string
}

// ScopeFor derives the visibility scope for a caller. STAFF users with a
// station are pinned to it; everyone else sees everything.
func ScopeFor(u *User) Scope {
	if u != nil && u.Role == RoleStaff && u.PoliceStation != "" {
		return Scope{PoliceStation: u.PoliceStation}
	}
	return Scope{}
}

// All reports whether the scope places no restriction.
func (s Scope) All() bool {
	return s.PoliceStation == ""
}

// Allows reports whether a record is visible under the scope.
func (s Scope) Allows(rec *ApplicationRecord) bool {
	return s.All() || rec.PoliceStation == s.PoliceStation
}

// ApplicationFilter narrows a listing. All present filters compose with
// AND; Search matches name, dairy_no, or contact as a case-insensitive
// substring.
type ApplicationFilter struct {
	Scope         Scope
	Status        Status
	PoliceStation string
	Category      string
	Search        string
}

// OverallStats holds the headline dashboard counters.
type OverallStats struct {
	Total            int `json:"total_applications"`
	Pending          int `json:"pending"`
	Heard            int `json:"heard"`
	Referred         int `json:"referred"`
	Closed           int `json:"closed"`
	PositiveFeedback int `json:"positive_feedback"`
	NegativeFeedback int `json:"negative_feedback"`
}

// CategoryCount is one row of the category breakdown.
type CategoryCount struct {
	Category string `json:"category"`
	Count    int    `json:"count"`
}

// StationCount is one row of the per-station breakdown, including
// pending/heard sub-counts.
type StationCount struct {
	PoliceStation string `json:"police_station"`
	Count         int    `json:"count"`
	Pending       int    `json:"pending"`
	Heard         int    `json:"heard"`
}

// DivisionCount is one row of the division breakdown.
type DivisionCount struct {
	Division string `json:"division"`
	Count    int    `json:"count"`
}

// DashboardStats is the aggregate object served to the dashboard.
// PoliceStations is populated only for ADMIN callers and is computed over
// the full unscoped record set; everything else respects the caller scope.
type DashboardStats struct {
	Overall        OverallStats    `json:"overall_stats"`
	Categories     []CategoryCount `json:"category_stats"`
	PoliceStations []StationCount  `json:"police_station_stats"`
	Divisions      []DivisionCount `json:"division_stats"`
}

// ImportResult summarizes one spreadsheet import. Row-level failures are
// collected in Errors and never fail the batch.
type ImportResult struct {
	Message string   `json:"message"`
	Created int      `json:"created"`
	Updated int      `json:"updated"`
	Errors  []string `json:"errors"`
}
