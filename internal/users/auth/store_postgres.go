// Copyright (c) 2026 Edura. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taibuivan/edura/internal/platform/dberr"
	"github.com/taibuivan/edura/internal/platform/sec"
	"github.com/taibuivan/edura/pkg/uuid"
)

// # User Repository

// PostgresUserRepository implements the UserRepository interface over users.account.
type PostgresUserRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresUserRepository creates a new PostgreSQL implementation of the UserRepository.
func NewPostgresUserRepository(pool *pgxpool.Pool) *PostgresUserRepository {
	return &PostgresUserRepository{pool: pool}
}

const (
	// userColumns is the projection shared by every identity query, in scanUser order.
	userColumns = "id, name, email, passwordhash, role, isverified, verificationcodehash, createdat, updatedat"

	// emailConstraint is the unique index on lower(email).
	emailConstraint = "account_email_lower_key"
)

// scanUser hydrates a User from one row of [userColumns].
func scanUser(row pgx.Row) (*User, error) {
	var (
		user User
		role string
	)

	err := row.Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.PasswordHash,
		&role,
		&user.IsVerified,
		&user.VerificationCodeHash,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	user.Role = sec.ParseRole(role)
	return &user, nil
}

// findOne runs a single-row identity query and maps the empty result to ErrUserNotFound.
func (repository *PostgresUserRepository) findOne(context context.Context, op, query string, args ...any) (*User, error) {
	user, err := scanUser(repository.pool.QueryRow(context, query, args...))
	if err != nil {
		if dberr.IsNotFound(err) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("postgres_user_repo_%s_failed: %w", op, err)
	}
	return user, nil
}

/*
Create persists a new identity into users.account.

Parameters:
  - context: context.Context
  - user: *User (Entity to persist, timestamps are filled by the database)

Returns:
  - error: ErrDuplicateEmail or connectivity errors
*/
func (repository *PostgresUserRepository) Create(context context.Context, user *User) error {
	const query = `
		INSERT INTO users.account (id, name, email, passwordhash, role, isverified, verificationcodehash)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING createdat, updatedat`

	err := repository.pool.QueryRow(context, query,
		user.ID,
		user.Name,
		user.Email,
		user.PasswordHash,
		user.Role.String(),
		user.IsVerified,
		user.VerificationCodeHash,
	).Scan(&user.CreatedAt, &user.UpdatedAt)

	if err != nil {
		if dberr.IsUniqueViolation(err, emailConstraint) {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("postgres_user_repo_create_failed: %w", err)
	}

	return nil
}

// FindByID retrieves an identity by primary key. A malformed id is simply not found.
func (repository *PostgresUserRepository) FindByID(context context.Context, id string) (*User, error) {
	if !uuid.Valid(id) {
		return nil, ErrUserNotFound
	}
	return repository.findOne(context, "find_by_id",
		"SELECT "+userColumns+" FROM users.account WHERE id = $1", id)
}

// FindByEmail retrieves an identity by address, case-insensitively.
func (repository *PostgresUserRepository) FindByEmail(context context.Context, email string) (*User, error) {
	return repository.findOne(context, "find_by_email",
		"SELECT "+userColumns+" FROM users.account WHERE lower(email) = lower($1)", email)
}

/*
List returns a page of identities ordered newest first.

Parameters:
  - context: context.Context
  - filter: ListFilter (optional role, limit, offset)

Returns:
  - []*User: The page
  - int: Total rows matching the filter
  - error: Query failures
*/
func (repository *PostgresUserRepository) List(context context.Context, filter ListFilter) ([]*User, int, error) {
	var (
		where []string
		args  []any
	)

	if filter.Role != nil {
		args = append(args, filter.Role.String())
		where = append(where, fmt.Sprintf("role = $%d", len(args)))
	}

	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := repository.pool.QueryRow(context, "SELECT count(*) FROM users.account"+clause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("postgres_user_repo_count_failed: %w", err)
	}

	args = append(args, filter.Limit, filter.Offset)
	query := fmt.Sprintf("SELECT %s FROM users.account%s ORDER BY createdat DESC, id DESC LIMIT $%d OFFSET $%d",
		userColumns, clause, len(args)-1, len(args))

	rows, err := repository.pool.Query(context, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("postgres_user_repo_list_failed: %w", err)
	}
	defer rows.Close()

	users := make([]*User, 0, filter.Limit)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("postgres_user_repo_list_scan_failed: %w", err)
		}
		users = append(users, user)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("postgres_user_repo_list_failed: %w", err)
	}

	return users, total, nil
}

/*
UpdateProfile applies the non-nil fields of update in one statement.

A changed email drops the verified flag and stores the fresh code hash.
An unchanged email (compared case-insensitively) keeps both.
*/
func (repository *PostgresUserRepository) UpdateProfile(context context.Context, id string, update ProfileUpdate) (*User, error) {
	const query = `
		UPDATE users.account SET
			name = COALESCE($2, name),
			isverified = CASE WHEN $3::text IS NOT NULL AND lower($3) <> lower(email) THEN FALSE ELSE isverified END,
			verificationcodehash = CASE WHEN $3::text IS NOT NULL AND lower($3) <> lower(email) THEN $4 ELSE verificationcodehash END,
			email = COALESCE($3, email),
			updatedat = now()
		WHERE id = $1
		RETURNING ` + userColumns

	user, err := scanUser(repository.pool.QueryRow(context, query, id, update.Name, update.Email, update.VerificationCodeHash))
	if err != nil {
		switch {
		case dberr.IsNotFound(err):
			return nil, ErrUserNotFound
		case dberr.IsUniqueViolation(err, emailConstraint):
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("postgres_user_repo_update_profile_failed: %w", err)
	}

	return user, nil
}

// UpdatePassword replaces only the password hash.
func (repository *PostgresUserRepository) UpdatePassword(context context.Context, id, passwordHash string) error {
	const query = "UPDATE users.account SET passwordhash = $2, updatedat = now() WHERE id = $1"

	tag, err := repository.pool.Exec(context, query, id, passwordHash)
	if err != nil {
		return fmt.Errorf("postgres_user_repo_update_password_failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

// UpdateRole replaces only the role and returns the updated identity.
func (repository *PostgresUserRepository) UpdateRole(context context.Context, id string, role sec.Role) (*User, error) {
	if !uuid.Valid(id) {
		return nil, ErrUserNotFound
	}
	return repository.findOne(context, "update_role",
		"UPDATE users.account SET role = $2, updatedat = now() WHERE id = $1 RETURNING "+userColumns,
		id, role.String())
}

// SetVerificationCode stores a fresh code hash for an unverified identity.
func (repository *PostgresUserRepository) SetVerificationCode(context context.Context, id, codeHash string) error {
	const query = `
		UPDATE users.account SET verificationcodehash = $2, updatedat = now()
		WHERE id = $1 AND isverified = FALSE`

	tag, err := repository.pool.Exec(context, query, id, codeHash)
	if err != nil {
		return fmt.Errorf("postgres_user_repo_set_verification_code_failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

/*
ConsumeVerificationCode verifies the identity holding codeHash.

The UPDATE both matches and clears the hash, so under concurrent calls
Postgres row locking lets exactly one statement return the row.

Returns:
  - *User: The verified identity
  - error: ErrInvalidOrExpiredCode when no row matched
*/
func (repository *PostgresUserRepository) ConsumeVerificationCode(context context.Context, codeHash string) (*User, error) {
	const query = `
		UPDATE users.account
		SET isverified = TRUE, verificationcodehash = NULL, updatedat = now()
		WHERE verificationcodehash = $1
		RETURNING ` + userColumns

	user, err := scanUser(repository.pool.QueryRow(context, query, codeHash))
	if err != nil {
		if dberr.IsNotFound(err) {
			return nil, ErrInvalidOrExpiredCode
		}
		return nil, fmt.Errorf("postgres_user_repo_consume_verification_code_failed: %w", err)
	}
	return user, nil
}

// Delete hard-deletes the identity. Sessions go with it through ON DELETE CASCADE.
func (repository *PostgresUserRepository) Delete(context context.Context, id string) error {
	if !uuid.Valid(id) {
		return ErrUserNotFound
	}
	tag, err := repository.pool.Exec(context, "DELETE FROM users.account WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("postgres_user_repo_delete_failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

// # Session Repository

// PostgresSessionRepository implements the SessionRepository interface over users.session.
type PostgresSessionRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresSessionRepository creates a new PostgreSQL implementation of SessionRepository.
func NewPostgresSessionRepository(pool *pgxpool.Pool) *PostgresSessionRepository {
	return &PostgresSessionRepository{pool: pool}
}

/*
Create persists a new session record into the users.session table.

Parameters:
  - context: context.Context
  - session: *Session

Returns:
  - error: Storage failures (including a missing owner row)
*/
func (repository *PostgresSessionRepository) Create(context context.Context, session *Session) error {
	const query = `
		INSERT INTO users.session (id, userid, useragent, ipaddress, createdat, expiresat)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := repository.pool.Exec(context, query,
		session.ID,
		session.UserID,
		session.UserAgent,
		session.IPAddress,
		session.CreatedAt,
		session.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("postgres_session_repo_create_failed: %w", err)
	}

	return nil
}

// FindActive returns a non-revoked, unexpired session.
func (repository *PostgresSessionRepository) FindActive(context context.Context, id string) (*Session, error) {
	if !uuid.Valid(id) {
		return nil, ErrSessionNotFound
	}
	const query = `
		SELECT id, userid, useragent, ipaddress, createdat, expiresat, revokedat
		FROM users.session
		WHERE id = $1 AND revokedat IS NULL AND expiresat > now()`

	session := &Session{}
	err := repository.pool.QueryRow(context, query, id).Scan(
		&session.ID,
		&session.UserID,
		&session.UserAgent,
		&session.IPAddress,
		&session.CreatedAt,
		&session.ExpiresAt,
		&session.RevokedAt,
	)
	if err != nil {
		if dberr.IsNotFound(err) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("postgres_session_repo_find_failed: %w", err)
	}

	return session, nil
}

/*
ListActive returns every active session of userID, newest first.

Parameters:
  - context: context.Context
  - userID: string (UUID)

Returns:
  - []*Session: Possibly empty, never nil
  - error: Storage failures
*/
func (repository *PostgresSessionRepository) ListActive(context context.Context, userID string) ([]*Session, error) {
	sessions := make([]*Session, 0)
	if !uuid.Valid(userID) {
		return sessions, nil
	}

	const query = `
		SELECT id, userid, useragent, ipaddress, createdat, expiresat, revokedat
		FROM users.session
		WHERE userid = $1 AND revokedat IS NULL AND expiresat > now()
		ORDER BY createdat DESC, id DESC`

	rows, err := repository.pool.Query(context, query, userID)
	if err != nil {
		return nil, fmt.Errorf("postgres_session_repo_list_failed: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		session := &Session{}
		if err := rows.Scan(
			&session.ID,
			&session.UserID,
			&session.UserAgent,
			&session.IPAddress,
			&session.CreatedAt,
			&session.ExpiresAt,
			&session.RevokedAt,
		); err != nil {
			return nil, fmt.Errorf("postgres_session_repo_list_scan_failed: %w", err)
		}
		sessions = append(sessions, session)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres_session_repo_list_rows_failed: %w", err)
	}

	return sessions, nil
}

// RevokeOwned stamps revokedat on an active session of userID.
func (repository *PostgresSessionRepository) RevokeOwned(context context.Context, userID, id string) error {
	if !uuid.Valid(userID) || !uuid.Valid(id) {
		return ErrSessionNotFound
	}

	const query = `
		UPDATE users.session SET revokedat = now()
		WHERE id = $1 AND userid = $2 AND revokedat IS NULL AND expiresat > now()`

	tag, err := repository.pool.Exec(context, query, id, userID)
	if err != nil {
		return fmt.Errorf("postgres_session_repo_revoke_owned_failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// Revoke stamps revokedat on one session. Already revoked rows keep their first stamp.
func (repository *PostgresSessionRepository) Revoke(context context.Context, id string) error {
	if !uuid.Valid(id) {
		return nil
	}
	const query = "UPDATE users.session SET revokedat = now() WHERE id = $1 AND revokedat IS NULL"
	if _, err := repository.pool.Exec(context, query, id); err != nil {
		return fmt.Errorf("postgres_session_repo_revoke_failed: %w", err)
	}
	return nil
}

// RevokeAll revokes every active session of userID.
func (repository *PostgresSessionRepository) RevokeAll(context context.Context, userID string) error {
	const query = "UPDATE users.session SET revokedat = now() WHERE userid = $1 AND revokedat IS NULL"
	if _, err := repository.pool.Exec(context, query, userID); err != nil {
		return fmt.Errorf("postgres_session_repo_revoke_all_failed: %w", err)
	}
	return nil
}

// RevokeOthers revokes every active session of userID except keepID.
func (repository *PostgresSessionRepository) RevokeOthers(context context.Context, userID, keepID string) error {
	if !uuid.Valid(keepID) {
		return repository.RevokeAll(context, userID)
	}
	const query = "UPDATE users.session SET revokedat = now() WHERE userid = $1 AND id <> $2 AND revokedat IS NULL"
	if _, err := repository.pool.Exec(context, query, userID, keepID); err != nil {
		return fmt.Errorf("postgres_session_repo_revoke_others_failed: %w", err)
	}
	return nil
}

// DeleteExpired physically removes expired and revoked sessions.
func (repository *PostgresSessionRepository) DeleteExpired(context context.Context) (int64, error) {
	const query = "DELETE FROM users.session WHERE expiresat <= now() OR revokedat IS NOT NULL"

	tag, err := repository.pool.Exec(context, query)
	if err != nil {
		return 0, fmt.Errorf("postgres_session_repo_delete_expired_failed: %w", err)
	}
	return tag.RowsAffected(), nil
}
