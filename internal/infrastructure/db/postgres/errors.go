package postgres

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/globalbi/admin-api/internal/core/domain"
)

const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
	codeInvalidText         = "22P02"
)

// uniqueConstraints maps constraint names from the migrations to the
// conflict each one signals.
var uniqueConstraints = map[string]error{
	"users_email_key":            domain.ErrEmailTaken,
	"users_username_key":         domain.ErrUsernameTaken,
	"roles_name_key":             domain.ErrRoleNameTaken,
	"groups_name_key":            domain.ErrGroupNameTaken,
	"user_groups_user_group_key": domain.ErrAlreadyMember,
}

var foreignKeys = map[string]error{
	"users_role_id_fkey":        domain.ErrRoleNotFound,
	"user_groups_user_id_fkey":  domain.ErrUserNotFound,
	"user_groups_group_id_fkey": domain.ErrGroupNotFound,
}

func pgError(err error) *pgconn.PgError {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr
	}
	return nil
}

// isInvalidID reports whether Postgres rejected a malformed uuid literal.
func isInvalidID(err error) bool {
	pgErr := pgError(err)
	return pgErr != nil && pgErr.Code == codeInvalidText
}

func isForeignKeyViolation(err error) bool {
	pgErr := pgError(err)
	return pgErr != nil && pgErr.Code == codeForeignKeyViolation
}

// translate maps driver errors to domain errors. Unknown errors are wrapped
// with op for context.
func translate(op string, err error) error {
	if pgErr := pgError(err); pgErr != nil {
		switch pgErr.Code {
		case codeUniqueViolation:
			if mapped, ok := uniqueConstraints[pgErr.ConstraintName]; ok {
				return mapped
			}
			return domain.Errorf(domain.ErrConflict, "duplicate value violates %s", pgErr.ConstraintName)
		case codeForeignKeyViolation:
			if mapped, ok := foreignKeys[pgErr.ConstraintName]; ok {
				return mapped
			}
			return domain.Errorf(domain.ErrNotFound, "referenced record not found")
		case codeInvalidText:
			return domain.ErrNotFound
		}
	}
	return errFailed(op, err)
}

func errFailed(op string, err error) error {
	return fmt.Errorf("db error: %s: %w", op, err)
}
