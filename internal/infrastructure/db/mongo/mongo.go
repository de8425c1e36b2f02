package mongo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/globalbi/admin-api/internal/core/domain"
	"github.com/globalbi/admin-api/internal/core/ports"
)

const defaultTimeout = 10 * time.Second

const (
	collectionUsers       = "users"
	collectionRoles       = "roles"
	collectionGroups      = "groups"
	collectionMemberships = "user_groups"
	collectionMarkers     = "markers"

	markerFirstUser = "first_user"
)

// Config captures the minimal settings required to establish a MongoDB connection.
type Config struct {
	URI      string
	Database string
	Timeout  time.Duration
}

// Connect establishes a MongoDB client, verifies connectivity with a ping, and
// returns both the client and the selected database. A default timeout is
// applied when none is provided.
func Connect(ctx context.Context, cfg Config) (*mongo.Client, *mongo.Database, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	connectCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, nil, fmt.Errorf("mongo connect: %w", err)
	}

	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(connectCtx)
		return nil, nil, fmt.Errorf("mongo ping: %w", err)
	}

	db := client.Database(cfg.Database)
	return client, db, nil
}

// Store is the MongoDB implementation of ports.Store.
type Store struct {
	client *mongo.Client
	users  *UserRepository
	roles  *RoleRepository
	groups *GroupRepository
}

var _ ports.Store = (*Store)(nil)

func NewStore(client *mongo.Client, db *mongo.Database) *Store {
	return &Store{
		client: client,
		users:  NewUserRepository(db),
		roles:  NewRoleRepository(db),
		groups: NewGroupRepository(db),
	}
}

func (s *Store) Users() ports.UserRepository   { return s.users }
func (s *Store) Roles() ports.RoleRepository   { return s.roles }
func (s *Store) Groups() ports.GroupRepository { return s.groups }

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// EnsureIndexes creates the unique indexes the repositories rely on for
// conflict detection.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	unique := func(name string, keys bson.D) mongo.IndexModel {
		return mongo.IndexModel{Keys: keys, Options: options.Index().SetName(name).SetUnique(true)}
	}

	specs := map[string][]mongo.IndexModel{
		collectionUsers: {
			unique(indexUserEmail, bson.D{{Key: "email", Value: 1}}),
			unique(indexUserUsername, bson.D{{Key: "username", Value: 1}}),
			{Keys: bson.D{{Key: "role_id", Value: 1}}},
		},
		collectionRoles: {
			unique(indexRoleName, bson.D{{Key: "name", Value: 1}}),
		},
		collectionGroups: {
			unique(indexGroupName, bson.D{{Key: "name", Value: 1}}),
		},
		collectionMemberships: {
			unique(indexMembership, bson.D{{Key: "group_id", Value: 1}, {Key: "user_id", Value: 1}}),
			{Keys: bson.D{{Key: "user_id", Value: 1}}},
		},
	}
	for coll, models := range specs {
		if _, err := db.Collection(coll).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("create indexes on %s: %w", coll, err)
		}
	}
	return nil
}

const (
	indexUserEmail    = "users_email_unique"
	indexUserUsername = "users_username_unique"
	indexRoleName     = "roles_name_unique"
	indexGroupName    = "groups_name_unique"
	indexMembership   = "user_groups_pair_unique"
)

var duplicateIndexes = map[string]error{
	indexUserEmail:    domain.ErrEmailTaken,
	indexUserUsername: domain.ErrUsernameTaken,
	indexRoleName:     domain.ErrRoleNameTaken,
	indexGroupName:    domain.ErrGroupNameTaken,
	indexMembership:   domain.ErrAlreadyMember,
}

// translate maps driver errors to domain errors. Duplicate key errors name
// the violated index in their message.
func translate(op string, err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.ErrNotFound
	}
	if mongo.IsDuplicateKeyError(err) {
		for index, mapped := range duplicateIndexes {
			if strings.Contains(err.Error(), index) {
				return mapped
			}
		}
		return domain.Errorf(domain.ErrConflict, "duplicate key")
	}
	return fmt.Errorf("mongo %s: %w", op, err)
}
