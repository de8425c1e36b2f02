package postgres

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/globalbi/admin-api/internal/core/ports"
)

const defaultTimeout = 5 * time.Second

//go:embed migrations/*.sql
var migrations embed.FS

// Config captures the settings for a PostgreSQL connection.
type Config struct {
	DSN     string
	Timeout time.Duration
}

// Connect opens a pgx-backed *sql.DB and verifies it with a ping.
func Connect(ctx context.Context, cfg Config) (*sql.DB, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	db, err := sql.Open("pgx", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("postgres open: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres ping: %w", err)
	}
	return db, nil
}

// Migrate applies the embedded goose migrations.
func Migrate(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return fmt.Errorf("goose dialect: %w", err)
	}
	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}
	return nil
}

// Store is the PostgreSQL implementation of ports.Store.
type Store struct {
	db     *sql.DB
	users  *UserRepository
	roles  *RoleRepository
	groups *GroupRepository
}

var _ ports.Store = (*Store)(nil)

func NewStore(db *sql.DB) *Store {
	return &Store{
		db:     db,
		users:  NewUserRepository(db),
		roles:  NewRoleRepository(db),
		groups: NewGroupRepository(db),
	}
}

func (s *Store) Users() ports.UserRepository   { return s.users }
func (s *Store) Roles() ports.RoleRepository   { return s.roles }
func (s *Store) Groups() ports.GroupRepository { return s.groups }

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close(context.Context) error {
	return s.db.Close()
}
