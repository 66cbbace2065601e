// Package store provides the persistence implementations behind
// core.Store: Postgres for production and an in-memory variant used by
// tests.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"opencourt/internal/core"
)

// Postgres implements core.Store over a pgx connection pool.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres creates a Postgres store.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// Connect opens a pgx pool from the DSN with the given pool sizing.
func Connect(ctx context.Context, dsn string, maxConns, minConns int, maxLifetime, maxIdle time.Duration) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}
	cfg.MaxConns = int32(maxConns)
	cfg.MinConns = int32(minConns)
	cfg.MaxConnLifetime = maxLifetime
	cfg.MaxConnIdleTime = maxIdle

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

const appColumns = `id, sr_no, dairy_no, name, contact, marked_to, date, marked_by,
	timeline, police_station, division, category, status, days, feedback,
	remarks, dairy_ps, created_by, created_at, updated_at`

func scanApplication(row pgx.Row) (*core.ApplicationRecord, error) {
	var rec core.ApplicationRecord
	var createdBy *string
	err := row.Scan(
		&rec.ID, &rec.SrNo, &rec.DairyNo, &rec.Name, &rec.Contact,
		&rec.MarkedTo, &rec.Date, &rec.MarkedBy, &rec.Timeline,
		&rec.PoliceStation, &rec.Division, &rec.Category, &rec.Status,
		&rec.Days, &rec.Feedback, &rec.Remarks, &rec.DairyPs,
		&createdBy, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, core.ErrNotFound
		}
		return nil, fmt.Errorf("scan application: %w", err)
	}
	if createdBy != nil {
		rec.CreatedBy = *createdBy
	}
	return &rec, nil
}

// nullable maps "" to NULL for the created_by foreign key.
func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// ListApplications returns records matching the filter, newest first.
func (p *Postgres) ListApplications(ctx context.Context, f core.ApplicationFilter) ([]core.ApplicationRecord, error) {
	where, args := buildApplicationWhere(f)
	query := fmt.Sprintf(
		"SELECT %s FROM applications%s ORDER BY created_at DESC, sr_no",
		appColumns, where,
	)

	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list applications: %w", err)
	}
	defer rows.Close()

	var recs []core.ApplicationRecord
	for rows.Next() {
		rec, err := scanApplication(rows)
		if err != nil {
			return nil, err
		}
		recs = append(recs, *rec)
	}
	return recs, rows.Err()
}

// GetApplication returns a record by ID.
func (p *Postgres) GetApplication(ctx context.Context, id string) (*core.ApplicationRecord, error) {
	query := fmt.Sprintf("SELECT %s FROM applications WHERE id = $1", appColumns)
	return scanApplication(p.pool.QueryRow(ctx, query, id))
}

// GetApplicationBySrNo returns a record by serial number.
func (p *Postgres) GetApplicationBySrNo(ctx context.Context, srNo string) (*core.ApplicationRecord, error) {
	query := fmt.Sprintf("SELECT %s FROM applications WHERE sr_no = $1", appColumns)
	return scanApplication(p.pool.QueryRow(ctx, query, srNo))
}

// CreateApplication inserts a record.
func (p *Postgres) CreateApplication(ctx context.Context, rec *core.ApplicationRecord) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO applications (
			id, sr_no, dairy_no, name, contact, marked_to, date, marked_by,
			timeline, police_station, division, category, status, days,
			feedback, remarks, dairy_ps, created_by, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20)`,
		rec.ID, rec.SrNo, rec.DairyNo, rec.Name, rec.Contact, rec.MarkedTo,
		rec.Date, rec.MarkedBy, rec.Timeline, rec.PoliceStation, rec.Division,
		rec.Category, rec.Status, rec.Days, rec.Feedback, rec.Remarks,
		rec.DairyPs, nullable(rec.CreatedBy), rec.CreatedAt, rec.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("sr_no %q already exists: %w", rec.SrNo, core.ErrInvalidInput)
		}
		return fmt.Errorf("insert application: %w", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// UpdateApplication overwrites a record by ID.
func (p *Postgres) UpdateApplication(ctx context.Context, rec *core.ApplicationRecord) error {
	tag, err := p.pool.Exec(ctx, `
		UPDATE applications SET
			sr_no=$2, dairy_no=$3, name=$4, contact=$5, marked_to=$6, date=$7,
			marked_by=$8, timeline=$9, police_station=$10, division=$11,
			category=$12, status=$13, days=$14, feedback=$15, remarks=$16,
			dairy_ps=$17, created_by=$18, updated_at=$19
		WHERE id=$1`,
		rec.ID, rec.SrNo, rec.DairyNo, rec.Name, rec.Contact, rec.MarkedTo,
		rec.Date, rec.MarkedBy, rec.Timeline, rec.PoliceStation, rec.Division,
		rec.Category, rec.Status, rec.Days, rec.Feedback, rec.Remarks,
		rec.DairyPs, nullable(rec.CreatedBy), rec.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("sr_no %q already exists: %w", rec.SrNo, core.ErrInvalidInput)
		}
		return fmt.Errorf("update application: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return core.ErrNotFound
	}
	return nil
}

// DeleteApplication removes a record by ID.
func (p *Postgres) DeleteApplication(ctx context.Context, id string) error {
	tag, err := p.pool.Exec(ctx, "DELETE FROM applications WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete application: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return core.ErrNotFound
	}
	return nil
}

// OverallCounts computes the headline counters in one pass using FILTER.
func (p *Postgres) OverallCounts(ctx context.Context, scope core.Scope) (core.OverallStats, error) {
	where, args := buildScopeWhere(scope)
	query := fmt.Sprintf(`
		SELECT COUNT(*),
			COUNT(*) FILTER (WHERE status = 'PENDING'),
			COUNT(*) FILTER (WHERE status = 'HEARD'),
			COUNT(*) FILTER (WHERE status = 'REFERRED'),
			COUNT(*) FILTER (WHERE status = 'CLOSED'),
			COUNT(*) FILTER (WHERE feedback = 'POSITIVE'),
			COUNT(*) FILTER (WHERE feedback = 'NEGATIVE')
		FROM applications%s`, where)

	var st core.OverallStats
	err := p.pool.QueryRow(ctx, query, args...).Scan(
		&st.Total, &st.Pending, &st.Heard, &st.Referred, &st.Closed,
		&st.PositiveFeedback, &st.NegativeFeedback,
	)
	if err != nil {
		return core.OverallStats{}, fmt.Errorf("overall counts: %w", err)
	}
	return st, nil
}

// CategoryCounts returns the top categories by record count.
func (p *Postgres) CategoryCounts(ctx context.Context, scope core.Scope, limit int) ([]core.CategoryCount, error) {
	where, args := buildScopeWhere(scope)
	query := fmt.Sprintf(`
		SELECT category, COUNT(*) FROM applications%s
		GROUP BY category ORDER BY COUNT(*) DESC, category LIMIT $%d`,
		where, len(args)+1)
	args = append(args, limit)

	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("category counts: %w", err)
	}
	defer rows.Close()

	var out []core.CategoryCount
	for rows.Next() {
		var c core.CategoryCount
		if err := rows.Scan(&c.Category, &c.Count); err != nil {
			return nil, fmt.Errorf("scan category count: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// StationCounts returns the top stations with pending/heard sub-counts
// over the entire record set.
func (p *Postgres) StationCounts(ctx context.Context, limit int) ([]core.StationCount, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT police_station, COUNT(*),
			COUNT(*) FILTER (WHERE status = 'PENDING'),
			COUNT(*) FILTER (WHERE status = 'HEARD')
		FROM applications
		GROUP BY police_station ORDER BY COUNT(*) DESC, police_station LIMIT $1`,
		limit)
	if err != nil {
		return nil, fmt.Errorf("station counts: %w", err)
	}
	defer rows.Close()

	var out []core.StationCount
	for rows.Next() {
		var c core.StationCount
		if err := rows.Scan(&c.PoliceStation, &c.Count, &c.Pending, &c.Heard); err != nil {
			return nil, fmt.Errorf("scan station count: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// DivisionCounts returns all divisions by descending count.
func (p *Postgres) DivisionCounts(ctx context.Context, scope core.Scope) ([]core.DivisionCount, error) {
	where, args := buildScopeWhere(scope)
	query := fmt.Sprintf(`
		SELECT division, COUNT(*) FROM applications%s
		GROUP BY division ORDER BY COUNT(*) DESC, division`, where)

	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("division counts: %w", err)
	}
	defer rows.Close()

	var out []core.DivisionCount
	for rows.Next() {
		var c core.DivisionCount
		if err := rows.Scan(&c.Division, &c.Count); err != nil {
			return nil, fmt.Errorf("scan division count: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// DistinctStations returns the distinct police station names.
func (p *Postgres) DistinctStations(ctx context.Context) ([]string, error) {
	return p.distinct(ctx, "police_station")
}

// DistinctCategories returns the distinct category names.
func (p *Postgres) DistinctCategories(ctx context.Context) ([]string, error) {
	return p.distinct(ctx, "category")
}

func (p *Postgres) distinct(ctx context.Context, column string) ([]string, error) {
	query := fmt.Sprintf("SELECT DISTINCT %s FROM applications ORDER BY %s", column, column)
	rows, err := p.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("distinct %s: %w", column, err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan %s: %w", column, err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// GetUser returns a user by ID.
func (p *Postgres) GetUser(ctx context.Context, id string) (*core.User, error) {
	return scanUser(p.pool.QueryRow(ctx,
		"SELECT id, username, password_hash, role, police_station, created_at FROM users WHERE id = $1", id))
}

// GetUserByUsername returns a user by username.
func (p *Postgres) GetUserByUsername(ctx context.Context, username string) (*core.User, error) {
	return scanUser(p.pool.QueryRow(ctx,
		"SELECT id, username, password_hash, role, police_station, created_at FROM users WHERE username = $1", username))
}

func scanUser(row pgx.Row) (*core.User, error) {
	var u core.User
	err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Role, &u.PoliceStation, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, core.ErrNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	return &u, nil
}

// CreateUser inserts a user.
func (p *Postgres) CreateUser(ctx context.Context, u *core.User) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO users (id, username, password_hash, role, police_station, created_at)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		u.ID, u.Username, u.PasswordHash, u.Role, u.PoliceStation, u.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("username %q already exists: %w", u.Username, core.ErrInvalidInput)
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// CreateSession inserts a session.
func (p *Postgres) CreateSession(ctx context.Context, s *core.Session) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO sessions (id, user_id, access_hash, refresh_hash,
			access_expires_at, refresh_expires_at, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		s.ID, s.UserID, s.AccessHash, s.RefreshHash,
		s.AccessExpiresAt, s.RefreshExpiresAt, s.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// GetSessionByAccessHash returns a session by access token digest.
func (p *Postgres) GetSessionByAccessHash(ctx context.Context, hash string) (*core.Session, error) {
	return scanSession(p.pool.QueryRow(ctx,
		sessionSelect+" WHERE access_hash = $1", hash))
}

// GetSessionByRefreshHash returns a session by refresh token digest.
func (p *Postgres) GetSessionByRefreshHash(ctx context.Context, hash string) (*core.Session, error) {
	return scanSession(p.pool.QueryRow(ctx,
		sessionSelect+" WHERE refresh_hash = $1", hash))
}

const sessionSelect = `SELECT id, user_id, access_hash, refresh_hash,
	access_expires_at, refresh_expires_at, created_at FROM sessions`

func scanSession(row pgx.Row) (*core.Session, error) {
	var s core.Session
	err := row.Scan(&s.ID, &s.UserID, &s.AccessHash, &s.RefreshHash,
		&s.AccessExpiresAt, &s.RefreshExpiresAt, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, core.ErrNotFound
		}
		return nil, fmt.Errorf("scan session: %w", err)
	}
	return &s, nil
}

// UpdateSessionAccess rotates the access digest and expiry.
func (p *Postgres) UpdateSessionAccess(ctx context.Context, s *core.Session) error {
	tag, err := p.pool.Exec(ctx,
		"UPDATE sessions SET access_hash=$2, access_expires_at=$3 WHERE id=$1",
		s.ID, s.AccessHash, s.AccessExpiresAt)
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return core.ErrNotFound
	}
	return nil
}

// DeleteSession removes a session by ID.
func (p *Postgres) DeleteSession(ctx context.Context, id string) error {
	tag, err := p.pool.Exec(ctx, "DELETE FROM sessions WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return core.ErrNotFound
	}
	return nil
}
