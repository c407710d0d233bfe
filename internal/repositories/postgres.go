package repositories

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/eduguide/backend/internal/models"
	"github.com/lib/pq"
)

const accountColumns = `id, name, surname, email, phone, role, password_hash,
	is_email_verified, is_phone_verified,
	email_verification_token, email_verification_expires,
	phone_verification_code, phone_verification_expires,
	password_reset_token, password_reset_expires,
	two_factor_secret, is_two_factor_enabled,
	login_attempts, lock_until, linked_users, profile, preferences,
	last_login, created_at, updated_at`

const uniqueViolation = "23505"

// PostgresAccountRepository stores accounts in the accounts table.
// Profile and preferences are JSONB columns, linked users a TEXT[] column.
type PostgresAccountRepository struct {
	db *sql.DB
}

func NewPostgresAccountRepository(db *sql.DB) *PostgresAccountRepository {
	return &PostgresAccountRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*models.Account, error) {
	acc := &models.Account{}
	err := row.Scan(
		&acc.ID, &acc.Name, &acc.Surname, &acc.Email, &acc.Phone, &acc.Role, &acc.Password,
		&acc.IsEmailVerified, &acc.IsPhoneVerified,
		&acc.EmailVerificationToken, &acc.EmailVerificationExpires,
		&acc.PhoneVerificationCode, &acc.PhoneVerificationExpires,
		&acc.PasswordResetToken, &acc.PasswordResetExpires,
		&acc.TwoFactorSecret, &acc.IsTwoFactorEnabled,
		&acc.LoginAttempts, &acc.LockUntil, pq.Array(&acc.LinkedUsers), &acc.Profile, &acc.Preferences,
		&acc.LastLogin, &acc.CreatedAt, &acc.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if acc.LinkedUsers == nil {
		acc.LinkedUsers = []string{}
	}
	return acc, nil
}

func accountArgs(acc *models.Account) []any {
	return []any{
		acc.ID, acc.Name, acc.Surname, normalizeEmail(acc.Email), acc.Phone, acc.Role, acc.Password,
		acc.IsEmailVerified, acc.IsPhoneVerified,
		acc.EmailVerificationToken, acc.EmailVerificationExpires,
		acc.PhoneVerificationCode, acc.PhoneVerificationExpires,
		acc.PasswordResetToken, acc.PasswordResetExpires,
		acc.TwoFactorSecret, acc.IsTwoFactorEnabled,
		acc.LoginAttempts, acc.LockUntil, pq.Array(linkedOrEmpty(acc.LinkedUsers)), acc.Profile, acc.Preferences,
		acc.LastLogin, acc.CreatedAt, acc.UpdatedAt,
	}
}

func linkedOrEmpty(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

func (r *PostgresAccountRepository) Create(ctx context.Context, acc *models.Account) error {
	query := `INSERT INTO accounts (` + accountColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13,
			$14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25)`

	if _, err := r.db.ExecContext(ctx, query, accountArgs(acc)...); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateEmail
		}
		return storageErr("create account", err)
	}
	acc.Email = normalizeEmail(acc.Email)
	return nil
}

func (r *PostgresAccountRepository) findOne(ctx context.Context, op, where string, args ...any) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE ` + where

	acc, err := scanAccount(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, storageErr(op, err)
	}
	return acc, nil
}

func (r *PostgresAccountRepository) FindByEmail(ctx context.Context, email string) (*models.Account, error) {
	return r.findOne(ctx, "find by email", `email = $1`, normalizeEmail(email))
}

func (r *PostgresAccountRepository) FindByID(ctx context.Context, id string) (*models.Account, error) {
	return r.findOne(ctx, "find by id", `id = $1`, id)
}

func (r *PostgresAccountRepository) FindByResetToken(ctx context.Context, tokenHash string, now time.Time) (*models.Account, error) {
	if tokenHash == "" {
		return nil, nil
	}
	return r.findOne(ctx, "find by reset token",
		`password_reset_token = $1 AND password_reset_expires > $2`, tokenHash, now)
}

func (r *PostgresAccountRepository) FindByEmailVerificationToken(ctx context.Context, tokenHash string, now time.Time) (*models.Account, error) {
	if tokenHash == "" {
		return nil, nil
	}
	return r.findOne(ctx, "find by verification token",
		`email_verification_token = $1 AND email_verification_expires > $2`, tokenHash, now)
}

func (r *PostgresAccountRepository) findMany(ctx context.Context, op, query string, args ...any) ([]*models.Account, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storageErr(op, err)
	}
	defer rows.Close()

	var out []*models.Account
	for rows.Next() {
		acc, err := scanAccount(rows)
		if err != nil {
			return nil, storageErr(op, err)
		}
		out = append(out, acc)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr(op, err)
	}
	return out, nil
}

func (r *PostgresAccountRepository) FindByIDs(ctx context.Context, ids []string) ([]*models.Account, error) {
	if len(ids) == 0 {
		return []*models.Account{}, nil
	}
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = ANY($1)`
	return r.findMany(ctx, "find by ids", query, pq.Array(ids))
}

// saveAccountQuery leaves login_attempts, lock_until, linked_users and
// last_login untouched on conflict.
const saveAccountQuery = `INSERT INTO accounts (` + accountColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13,
		$14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25)
	ON CONFLICT (id) DO UPDATE SET
		name = EXCLUDED.name,
		surname = EXCLUDED.surname,
		email = EXCLUDED.email,
		phone = EXCLUDED.phone,
		role = EXCLUDED.role,
		password_hash = EXCLUDED.password_hash,
		is_email_verified = EXCLUDED.is_email_verified,
		is_phone_verified = EXCLUDED.is_phone_verified,
		email_verification_token = EXCLUDED.email_verification_token,
		email_verification_expires = EXCLUDED.email_verification_expires,
		phone_verification_code = EXCLUDED.phone_verification_code,
		phone_verification_expires = EXCLUDED.phone_verification_expires,
		password_reset_token = EXCLUDED.password_reset_token,
		password_reset_expires = EXCLUDED.password_reset_expires,
		two_factor_secret = EXCLUDED.two_factor_secret,
		is_two_factor_enabled = EXCLUDED.is_two_factor_enabled,
		profile = EXCLUDED.profile,
		preferences = EXCLUDED.preferences,
		updated_at = EXCLUDED.updated_at`

func (r *PostgresAccountRepository) Save(ctx context.Context, acc *models.Account) error {
	acc.UpdatedAt = time.Now().UTC()

	if _, err := r.db.ExecContext(ctx, saveAccountQuery, accountArgs(acc)...); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateEmail
		}
		return storageErr("save account", err)
	}
	return nil
}

func (r *PostgresAccountRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM accounts WHERE id = $1`, id)
	if err != nil {
		return storageErr("delete account", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return storageErr("delete account", err)
	}
	if n == 0 {
		return ErrAccountNotFound
	}
	return nil
}

// escapeLike makes user input literal inside an ILIKE pattern.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func (r *PostgresAccountRepository) SearchByName(ctx context.Context, q SearchQuery) ([]*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts
		WHERE name ILIKE $1 AND surname ILIKE $2 AND id <> $3 AND ($4 = '' OR role = $4)
		ORDER BY created_at
		LIMIT $5`

	out, err := r.findMany(ctx, "search accounts", query,
		"%"+escapeLike(q.Name)+"%", "%"+escapeLike(q.Surname)+"%", q.ExcludeID, string(q.Role), q.limit())
	if err != nil {
		return nil, err
	}
	return out, nil
}

// RecordFailedLogin evaluates the lockout rule inside one UPDATE so that
// concurrent failures cannot lose increments.
func (r *PostgresAccountRepository) RecordFailedLogin(ctx context.Context, id string, threshold int, lockFor time.Duration, now time.Time) (LockoutState, error) {
	query := `UPDATE accounts SET
			login_attempts = CASE
				WHEN lock_until IS NOT NULL AND lock_until <= $2 THEN 1
				ELSE login_attempts + 1
			END,
			lock_until = CASE
				WHEN lock_until IS NOT NULL AND lock_until <= $2 THEN
					CASE WHEN $3::int <= 1 THEN $4::timestamptz ELSE NULL END
				WHEN lock_until IS NULL AND login_attempts + 1 >= $3::int THEN $4::timestamptz
				ELSE lock_until
			END,
			updated_at = $2
		WHERE id = $1
		RETURNING login_attempts, lock_until`

	var state LockoutState
	err := r.db.QueryRowContext(ctx, query, id, now, threshold, now.Add(lockFor)).
		Scan(&state.LoginAttempts, &state.LockUntil)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return LockoutState{}, ErrAccountNotFound
		}
		return LockoutState{}, storageErr("record failed login", err)
	}
	return state, nil
}

func (r *PostgresAccountRepository) ResetLoginAttempts(ctx context.Context, id string, now time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE accounts SET login_attempts = 0, lock_until = NULL, last_login = $2, updated_at = $2 WHERE id = $1`,
		id, now)
	if err != nil {
		return storageErr("reset login attempts", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return storageErr("reset login attempts", err)
	}
	if n == 0 {
		return ErrAccountNotFound
	}
	return nil
}

func (r *PostgresAccountRepository) ClearLockout(ctx context.Context, id string, now time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE accounts SET login_attempts = 0, lock_until = NULL, updated_at = $2 WHERE id = $1`,
		id, now)
	if err != nil {
		return storageErr("clear lockout", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return storageErr("clear lockout", err)
	}
	if n == 0 {
		return ErrAccountNotFound
	}
	return nil
}

const addLinkQuery = `UPDATE accounts SET
		linked_users = CASE WHEN $2 = ANY(linked_users) THEN linked_users ELSE array_append(linked_users, $2) END,
		updated_at = $3
	WHERE id = $1`

func (r *PostgresAccountRepository) AddLink(ctx context.Context, a, b string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return storageErr("add link", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	for _, pair := range [][2]string{{a, b}, {b, a}} {
		res, err := tx.ExecContext(ctx, addLinkQuery, pair[0], pair[1], now)
		if err != nil {
			return storageErr("add link", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return storageErr("add link", err)
		}
		if n == 0 {
			return ErrAccountNotFound
		}
	}

	if err := tx.Commit(); err != nil {
		return storageErr("add link", err)
	}
	return nil
}

func (r *PostgresAccountRepository) RemoveLinksTo(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE accounts SET linked_users = array_remove(linked_users, $1), updated_at = $2 WHERE $1 = ANY(linked_users)`,
		id, time.Now().UTC())
	if err != nil {
		return storageErr("remove links", err)
	}
	return nil
}
