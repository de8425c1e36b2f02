package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/globalbi/admin-api/internal/core/domain"
)

const selectRole = `
		SELECT r.id, r.name, r.description, r.is_deletable, r.staff_status,
		       (SELECT COUNT(*) FROM users u WHERE u.role_id = r.id),
		       r.created_at, r.updated_at
		FROM roles r`

// RoleRepository implements ports.RoleRepository.
type RoleRepository struct {
	db *sql.DB
}

func NewRoleRepository(db *sql.DB) *RoleRepository {
	return &RoleRepository{db: db}
}

func scanRole(row rowScanner) (*domain.Role, error) {
	r := &domain.Role{}
	if err := row.Scan(&r.ID, &r.Name, &r.Description, &r.IsDeletable, &r.StaffStatus,
		&r.UserCount, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *RoleRepository) Create(ctx context.Context, role domain.Role) (*domain.Role, error) {
	query := `
		INSERT INTO roles (id, name, description, is_deletable, staff_status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, name, description, is_deletable, staff_status, 0, created_at, updated_at`

	created, err := scanRole(r.db.QueryRowContext(ctx, query,
		uuid.NewString(), role.Name, role.Description, role.IsDeletable, role.StaffStatus))
	if err != nil {
		return nil, translate("create role", err)
	}
	return created, nil
}

func (r *RoleRepository) findOne(ctx context.Context, where string, arg any) (*domain.Role, error) {
	role, err := scanRole(r.db.QueryRowContext(ctx, selectRole+" WHERE "+where, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, translate("get role", err)
	}
	return role, nil
}

func (r *RoleRepository) FindByID(ctx context.Context, id string) (*domain.Role, error) {
	return r.findOne(ctx, "r.id = $1", id)
}

func (r *RoleRepository) FindByName(ctx context.Context, name string) (*domain.Role, error) {
	return r.findOne(ctx, "r.name = $1", name)
}

func (r *RoleRepository) List(ctx context.Context) ([]domain.Role, error) {
	rows, err := r.db.QueryContext(ctx, selectRole+" ORDER BY r.created_at ASC")
	if err != nil {
		return nil, errFailed("list roles", err)
	}
	defer rows.Close()

	roles := make([]domain.Role, 0)
	for rows.Next() {
		role, err := scanRole(rows)
		if err != nil {
			return nil, errFailed("scan role", err)
		}
		roles = append(roles, *role)
	}
	if err := rows.Err(); err != nil {
		return nil, errFailed("iterate roles", err)
	}
	return roles, nil
}

func (r *RoleRepository) Update(ctx context.Context, id string, patch domain.RolePatch) (*domain.Role, error) {
	query := "UPDATE roles SET updated_at = NOW()"
	args := []any{id}

	if patch.Name != nil {
		args = append(args, *patch.Name)
		query += fmt.Sprintf(", name = $%d", len(args))
	}
	if patch.Description != nil {
		args = append(args, *patch.Description)
		query += fmt.Sprintf(", description = $%d", len(args))
	}
	if patch.StaffStatus != nil {
		args = append(args, *patch.StaffStatus)
		query += fmt.Sprintf(", staff_status = $%d", len(args))
	}
	query += " WHERE id = $1"

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, translate("update role", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, domain.ErrNotFound
	}
	return r.FindByID(ctx, id)
}

// Delete removes a role. Users still referencing it block the delete through
// ON DELETE RESTRICT, reported as a conflict.
func (r *RoleRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM roles WHERE id = $1`, id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return domain.Errorf(domain.ErrConflict, "role still has assigned users")
		}
		return translate("delete role", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *RoleRepository) CountUsers(ctx context.Context, roleID string) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users WHERE role_id = $1`, roleID).Scan(&n)
	if err != nil {
		return 0, translate("count role users", err)
	}
	return n, nil
}

// MigrateUsers locks both roles for the duration of the move so neither can
// be deleted underneath it.
func (r *RoleRepository) MigrateUsers(ctx context.Context, from, to string) (int64, error) {
	var moved int64
	err := withTx(ctx, r.db, func(tx DBTX) error {
		var locked int
		err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM (SELECT id FROM roles WHERE id IN ($1, $2) FOR UPDATE) locked`,
			from, to).Scan(&locked)
		if err != nil {
			return translate("lock roles", err)
		}
		if locked != 2 {
			return domain.ErrRoleNotFound
		}

		res, err := tx.ExecContext(ctx,
			`UPDATE users SET role_id = $2, updated_at = NOW() WHERE role_id = $1`, from, to)
		if err != nil {
			return translate("migrate users", err)
		}
		moved, _ = res.RowsAffected()
		return nil
	})
	if err != nil {
		return 0, err
	}
	return moved, nil
}
