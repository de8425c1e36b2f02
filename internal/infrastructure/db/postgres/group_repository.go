package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/globalbi/admin-api/internal/core/domain"
)

const selectGroup = `
		SELECT g.id, g.name, g.description,
		       (SELECT COUNT(*) FROM user_groups m WHERE m.group_id = g.id),
		       g.created_at, g.updated_at
		FROM groups g`

// GroupRepository implements ports.GroupRepository.
type GroupRepository struct {
	db DBTX
}

func NewGroupRepository(db DBTX) *GroupRepository {
	return &GroupRepository{db: db}
}

func scanGroup(row rowScanner) (*domain.Group, error) {
	g := &domain.Group{}
	if err := row.Scan(&g.ID, &g.Name, &g.Description, &g.MemberCount, &g.CreatedAt, &g.UpdatedAt); err != nil {
		return nil, err
	}
	return g, nil
}

func (r *GroupRepository) Create(ctx context.Context, name, description string) (*domain.Group, error) {
	query := `
		INSERT INTO groups (id, name, description)
		VALUES ($1, $2, $3)
		RETURNING id, name, description, 0, created_at, updated_at`

	g, err := scanGroup(r.db.QueryRowContext(ctx, query, uuid.NewString(), name, description))
	if err != nil {
		return nil, translate("create group", err)
	}
	return g, nil
}

func (r *GroupRepository) findOne(ctx context.Context, where string, arg any) (*domain.Group, error) {
	g, err := scanGroup(r.db.QueryRowContext(ctx, selectGroup+" WHERE "+where, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, translate("get group", err)
	}
	return g, nil
}

func (r *GroupRepository) FindByID(ctx context.Context, id string) (*domain.Group, error) {
	return r.findOne(ctx, "g.id = $1", id)
}

func (r *GroupRepository) FindByName(ctx context.Context, name string) (*domain.Group, error) {
	return r.findOne(ctx, "g.name = $1", name)
}

func (r *GroupRepository) list(ctx context.Context, query string, args ...any) ([]domain.Group, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, translate("list groups", err)
	}
	defer rows.Close()

	groups := make([]domain.Group, 0)
	for rows.Next() {
		g, err := scanGroup(rows)
		if err != nil {
			return nil, errFailed("scan group", err)
		}
		groups = append(groups, *g)
	}
	if err := rows.Err(); err != nil {
		return nil, errFailed("iterate groups", err)
	}
	return groups, nil
}

func (r *GroupRepository) List(ctx context.Context) ([]domain.Group, error) {
	return r.list(ctx, selectGroup+" ORDER BY g.created_at DESC")
}

func (r *GroupRepository) ListByMember(ctx context.Context, userID string) ([]domain.Group, error) {
	return r.list(ctx, selectGroup+`
		JOIN user_groups mine ON mine.group_id = g.id
		WHERE mine.user_id = $1
		ORDER BY g.created_at DESC`, userID)
}

func (r *GroupRepository) Update(ctx context.Context, id string, patch domain.GroupPatch) (*domain.Group, error) {
	query := "UPDATE groups SET updated_at = NOW()"
	args := []any{id}

	if patch.Name != nil {
		args = append(args, *patch.Name)
		query += fmt.Sprintf(", name = $%d", len(args))
	}
	if patch.Description != nil {
		args = append(args, *patch.Description)
		query += fmt.Sprintf(", description = $%d", len(args))
	}
	query += " WHERE id = $1"

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, translate("update group", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, domain.ErrNotFound
	}
	return r.FindByID(ctx, id)
}

// Delete removes the group; memberships go with it through ON DELETE CASCADE.
func (r *GroupRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM groups WHERE id = $1`, id)
	if err != nil {
		return translate("delete group", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *GroupRepository) AddMember(ctx context.Context, groupID, userID string) (*domain.Membership, error) {
	query := `
		INSERT INTO user_groups (id, user_id, group_id)
		VALUES ($1, $2, $3)
		RETURNING id, user_id, group_id, created_at`

	m := &domain.Membership{}
	err := r.db.QueryRowContext(ctx, query, uuid.NewString(), userID, groupID).
		Scan(&m.ID, &m.UserID, &m.GroupID, &m.CreatedAt)
	if err != nil {
		return nil, translate("add member", err)
	}
	return m, nil
}

func (r *GroupRepository) RemoveMember(ctx context.Context, groupID, userID string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM user_groups WHERE group_id = $1 AND user_id = $2`, groupID, userID)
	if err != nil {
		return translate("remove member", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotGroupMember
	}
	return nil
}

// IsMember treats a malformed id as "not a member" so callers can answer
// Forbidden without revealing anything about the group.
func (r *GroupRepository) IsMember(ctx context.Context, groupID, userID string) (bool, error) {
	var ok bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM user_groups WHERE group_id = $1 AND user_id = $2)`,
		groupID, userID).Scan(&ok)
	if err != nil {
		if isInvalidID(err) {
			return false, nil
		}
		return false, errFailed("check membership", err)
	}
	return ok, nil
}

func (r *GroupRepository) Members(ctx context.Context, groupID string) ([]domain.GroupMember, error) {
	query := `
		SELECT u.id, u.name, u.username, u.email, r.id, r.name, r.staff_status, u.created_at, u.updated_at,
		       m.created_at
		FROM user_groups m
		JOIN users u ON u.id = m.user_id
		JOIN roles r ON r.id = u.role_id
		WHERE m.group_id = $1
		ORDER BY m.created_at ASC`

	rows, err := r.db.QueryContext(ctx, query, groupID)
	if err != nil {
		return nil, translate("list members", err)
	}
	defer rows.Close()

	members := make([]domain.GroupMember, 0)
	for rows.Next() {
		var m domain.GroupMember
		if err := rows.Scan(append(userFields(&m.SafeUser), &m.JoinedAt)...); err != nil {
			return nil, errFailed("scan member", err)
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, errFailed("iterate members", err)
	}
	return members, nil
}
