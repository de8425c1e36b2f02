package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/globalbi/admin-api/internal/core/domain"
)

const (
	selectUser = `
		SELECT u.id, u.name, u.username, u.email, r.id, r.name, r.staff_status, u.created_at, u.updated_at
		FROM users u
		JOIN roles r ON r.id = u.role_id`

	selectCredentials = `
		SELECT u.id, u.name, u.username, u.email, r.id, r.name, r.staff_status, u.created_at, u.updated_at,
		       u.password_hash, u.refresh_token_hash
		FROM users u
		JOIN roles r ON r.id = u.role_id`

	insertUser = `
		INSERT INTO users (id, name, username, email, password_hash, role_id)
		VALUES ($1, $2, $3, $4, $5, $6)`

	// bootstrapLockKey names the advisory lock held while creating the
	// first user.
	bootstrapLockKey int64 = 0x61646d696e
)

type rowScanner interface {
	Scan(dest ...any) error
}

// UserRepository implements ports.UserRepository.
type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

func userFields(u *domain.SafeUser) []any {
	return []any{
		&u.ID, &u.Name, &u.Username, &u.Email,
		&u.Role.ID, &u.Role.Name, &u.Role.StaffStatus,
		&u.CreatedAt, &u.UpdatedAt,
	}
}

func scanUser(row rowScanner) (*domain.SafeUser, error) {
	u := &domain.SafeUser{}
	if err := row.Scan(userFields(u)...); err != nil {
		return nil, err
	}
	return u, nil
}

func (r *UserRepository) Create(ctx context.Context, user domain.NewUser) (*domain.SafeUser, error) {
	id := uuid.NewString()
	if _, err := r.db.ExecContext(ctx, insertUser,
		id, user.Name, user.Username, user.Email, user.PasswordHash, user.RoleID); err != nil {
		return nil, translate("create user", err)
	}
	return r.FindByID(ctx, id)
}

// CreateFirst holds a transaction-scoped advisory lock across the emptiness
// check and the insert, so concurrent first registrations queue behind it.
func (r *UserRepository) CreateFirst(ctx context.Context, user domain.NewUser) (*domain.SafeUser, error) {
	id := uuid.NewString()
	err := withTx(ctx, r.db, func(tx DBTX) error {
		if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, bootstrapLockKey); err != nil {
			return errFailed("lock first user", err)
		}
		var exists bool
		if err := tx.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM users)`).Scan(&exists); err != nil {
			return errFailed("check users", err)
		}
		if exists {
			return domain.ErrAlreadyBootstrapped
		}
		if _, err := tx.ExecContext(ctx, insertUser,
			id, user.Name, user.Username, user.Email, user.PasswordHash, user.RoleID); err != nil {
			return translate("create first user", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return r.FindByID(ctx, id)
}

func (r *UserRepository) findOne(ctx context.Context, where string, arg any) (*domain.SafeUser, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx, selectUser+" WHERE "+where, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, translate("get user", err)
	}
	return u, nil
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*domain.SafeUser, error) {
	return r.findOne(ctx, "u.id = $1", id)
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*domain.SafeUser, error) {
	return r.findOne(ctx, "u.email = $1", email)
}

func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*domain.SafeUser, error) {
	return r.findOne(ctx, "u.username = $1", username)
}

func (r *UserRepository) List(ctx context.Context) ([]domain.SafeUser, error) {
	rows, err := r.db.QueryContext(ctx, selectUser+" ORDER BY u.created_at DESC")
	if err != nil {
		return nil, errFailed("list users", err)
	}
	defer rows.Close()

	users := make([]domain.SafeUser, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, errFailed("scan user", err)
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, errFailed("iterate users", err)
	}
	return users, nil
}

func (r *UserRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return 0, errFailed("count users", err)
	}
	return n, nil
}

func (r *UserRepository) Update(ctx context.Context, id string, patch domain.UserPatch) (*domain.SafeUser, error) {
	query := "UPDATE users SET updated_at = NOW()"
	args := []any{id}

	set := func(column string, value *string) {
		if value == nil {
			return
		}
		args = append(args, *value)
		query += fmt.Sprintf(", %s = $%d", column, len(args))
	}
	set("name", patch.Name)
	set("username", patch.Username)
	set("email", patch.Email)
	set("password_hash", patch.PasswordHash)
	set("role_id", patch.RoleID)
	query += " WHERE id = $1"

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, translate("update user", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, domain.ErrNotFound
	}
	return r.FindByID(ctx, id)
}

// Delete removes the user; memberships go with it through ON DELETE CASCADE.
func (r *UserRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return translate("delete user", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *UserRepository) credentials(ctx context.Context, where string, arg any) (*domain.Credentials, error) {
	c := &domain.Credentials{}
	var refresh sql.NullString
	fields := append(userFields(&c.User), &c.PasswordHash, &refresh)

	if err := r.db.QueryRowContext(ctx, selectCredentials+" WHERE "+where, arg).Scan(fields...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, translate("get credentials", err)
	}
	if refresh.Valid {
		c.RefreshTokenHash = &refresh.String
	}
	return c, nil
}

func (r *UserRepository) CredentialsByEmail(ctx context.Context, email string) (*domain.Credentials, error) {
	return r.credentials(ctx, "u.email = $1", email)
}

func (r *UserRepository) CredentialsByUsername(ctx context.Context, username string) (*domain.Credentials, error) {
	return r.credentials(ctx, "u.username = $1", username)
}

func (r *UserRepository) CredentialsByID(ctx context.Context, id string) (*domain.Credentials, error) {
	return r.credentials(ctx, "u.id = $1", id)
}

func (r *UserRepository) SetRefreshTokenHash(ctx context.Context, userID string, hash *string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE users SET refresh_token_hash = $2 WHERE id = $1`, userID, hash)
	if err != nil {
		return translate("set refresh token", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}
