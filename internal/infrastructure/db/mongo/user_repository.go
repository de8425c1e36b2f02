package mongo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/globalbi/admin-api/internal/core/domain"
)

type userDocument struct {
	ID               string    `bson:"_id"`
	Name             string    `bson:"name"`
	Username         string    `bson:"username"`
	Email            string    `bson:"email"`
	PasswordHash     string    `bson:"password_hash"`
	RefreshTokenHash *string   `bson:"refresh_token_hash"`
	RoleID           string    `bson:"role_id"`
	CreatedAt        time.Time `bson:"created_at"`
	UpdatedAt        time.Time `bson:"updated_at"`
}

// UserRepository implements ports.UserRepository. Role summaries are
// resolved from the roles collection on read.
type UserRepository struct {
	col         *mongo.Collection
	roles       *mongo.Collection
	memberships *mongo.Collection
	markers     *mongo.Collection
}

func NewUserRepository(db *mongo.Database) *UserRepository {
	return &UserRepository{
		col:         db.Collection(collectionUsers),
		roles:       db.Collection(collectionRoles),
		memberships: db.Collection(collectionMemberships),
		markers:     db.Collection(collectionMarkers),
	}
}

func (r *UserRepository) roleRef(ctx context.Context, id string) (domain.RoleRef, error) {
	var doc roleDocument
	if err := r.roles.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		return domain.RoleRef{}, translate("find role", err)
	}
	return domain.RoleRef{ID: doc.ID, Name: doc.Name, StaffStatus: doc.StaffStatus}, nil
}

func (r *UserRepository) safeUser(ctx context.Context, doc *userDocument) (*domain.SafeUser, error) {
	ref, err := r.roleRef(ctx, doc.RoleID)
	if err != nil {
		return nil, err
	}
	return &domain.SafeUser{
		ID:        doc.ID,
		Name:      doc.Name,
		Username:  doc.Username,
		Email:     doc.Email,
		Role:      ref,
		CreatedAt: doc.CreatedAt,
		UpdatedAt: doc.UpdatedAt,
	}, nil
}

func (r *UserRepository) Create(ctx context.Context, user domain.NewUser) (*domain.SafeUser, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if _, err := r.roleRef(ctx, user.RoleID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrRoleNotFound
		}
		return nil, err
	}

	now := time.Now().UTC()
	doc := userDocument{
		ID:           uuid.NewString(),
		Name:         user.Name,
		Username:     user.Username,
		Email:        user.Email,
		PasswordHash: user.PasswordHash,
		RoleID:       user.RoleID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if _, err := r.col.InsertOne(ctx, doc); err != nil {
		return nil, translate("insert user", err)
	}

	u, err := r.safeUser(ctx, &doc)
	if errors.Is(err, domain.ErrNotFound) {
		// The role was deleted after the check above.
		if _, derr := r.col.DeleteOne(ctx, bson.M{"_id": doc.ID}); derr != nil {
			return nil, translate("undo insert user", derr)
		}
		return nil, domain.ErrRoleNotFound
	}
	return u, err
}

// CreateFirst claims a singleton marker document before inserting. The
// marker's _id is unique, so only one concurrent caller gets past it.
func (r *UserRepository) CreateFirst(ctx context.Context, user domain.NewUser) (*domain.SafeUser, error) {
	n, err := r.Count(ctx)
	if err != nil {
		return nil, err
	}
	if n > 0 {
		return nil, domain.ErrAlreadyBootstrapped
	}

	claimCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()
	marker := bson.M{"_id": markerFirstUser, "claimed_at": time.Now().UTC()}
	if _, err := r.markers.InsertOne(claimCtx, marker); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, domain.ErrAlreadyBootstrapped
		}
		return nil, translate("claim first user", err)
	}

	u, err := r.Create(ctx, user)
	if err != nil {
		_, _ = r.markers.DeleteOne(claimCtx, bson.M{"_id": markerFirstUser})
		return nil, err
	}
	return u, nil
}

func (r *UserRepository) findDoc(ctx context.Context, filter bson.M) (*userDocument, error) {
	var doc userDocument
	if err := r.col.FindOne(ctx, filter).Decode(&doc); err != nil {
		return nil, translate("find user", err)
	}
	return &doc, nil
}

func (r *UserRepository) findSafe(ctx context.Context, filter bson.M) (*domain.SafeUser, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc, err := r.findDoc(ctx, filter)
	if err != nil {
		return nil, err
	}
	return r.safeUser(ctx, doc)
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*domain.SafeUser, error) {
	return r.findSafe(ctx, bson.M{"_id": id})
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*domain.SafeUser, error) {
	return r.findSafe(ctx, bson.M{"email": email})
}

func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*domain.SafeUser, error) {
	return r.findSafe(ctx, bson.M{"username": username})
}

func (r *UserRepository) List(ctx context.Context) ([]domain.SafeUser, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	cur, err := r.col.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, translate("list users", err)
	}
	var docs []userDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, translate("decode users", err)
	}

	refs := make(map[string]domain.RoleRef)
	users := make([]domain.SafeUser, 0, len(docs))
	for i := range docs {
		ref, ok := refs[docs[i].RoleID]
		if !ok {
			if ref, err = r.roleRef(ctx, docs[i].RoleID); err != nil {
				return nil, err
			}
			refs[docs[i].RoleID] = ref
		}
		users = append(users, domain.SafeUser{
			ID:        docs[i].ID,
			Name:      docs[i].Name,
			Username:  docs[i].Username,
			Email:     docs[i].Email,
			Role:      ref,
			CreatedAt: docs[i].CreatedAt,
			UpdatedAt: docs[i].UpdatedAt,
		})
	}
	return users, nil
}

func (r *UserRepository) Count(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	n, err := r.col.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, translate("count users", err)
	}
	return n, nil
}

func (r *UserRepository) Update(ctx context.Context, id string, patch domain.UserPatch) (*domain.SafeUser, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	set := bson.M{"updated_at": time.Now().UTC()}
	if patch.Name != nil {
		set["name"] = *patch.Name
	}
	if patch.Username != nil {
		set["username"] = *patch.Username
	}
	if patch.Email != nil {
		set["email"] = *patch.Email
	}
	if patch.PasswordHash != nil {
		set["password_hash"] = *patch.PasswordHash
	}
	var prevRoleID string
	if patch.RoleID != nil {
		prev, err := r.findDoc(ctx, bson.M{"_id": id})
		if err != nil {
			return nil, err
		}
		prevRoleID = prev.RoleID
		if _, err := r.roleRef(ctx, *patch.RoleID); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, domain.ErrRoleNotFound
			}
			return nil, err
		}
		set["role_id"] = *patch.RoleID
	}

	var doc userDocument
	err := r.col.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&doc)
	if err != nil {
		return nil, translate("update user", err)
	}

	u, err := r.safeUser(ctx, &doc)
	if errors.Is(err, domain.ErrNotFound) && patch.RoleID != nil {
		// The new role was deleted after the check above.
		_, rerr := r.col.UpdateOne(ctx,
			bson.M{"_id": id, "role_id": *patch.RoleID},
			bson.M{"$set": bson.M{"role_id": prevRoleID}})
		if rerr != nil {
			return nil, translate("revert user role", rerr)
		}
		return nil, domain.ErrRoleNotFound
	}
	return u, err
}

// Delete removes the user and then its memberships.
func (r *UserRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return translate("delete user", err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrNotFound
	}
	if _, err := r.memberships.DeleteMany(ctx, bson.M{"user_id": id}); err != nil {
		return translate("delete user memberships", err)
	}
	return nil
}

func (r *UserRepository) credentials(ctx context.Context, filter bson.M) (*domain.Credentials, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc, err := r.findDoc(ctx, filter)
	if err != nil {
		return nil, err
	}
	u, err := r.safeUser(ctx, doc)
	if err != nil {
		return nil, err
	}
	return &domain.Credentials{User: *u, PasswordHash: doc.PasswordHash, RefreshTokenHash: doc.RefreshTokenHash}, nil
}

func (r *UserRepository) CredentialsByEmail(ctx context.Context, email string) (*domain.Credentials, error) {
	return r.credentials(ctx, bson.M{"email": email})
}

func (r *UserRepository) CredentialsByUsername(ctx context.Context, username string) (*domain.Credentials, error) {
	return r.credentials(ctx, bson.M{"username": username})
}

func (r *UserRepository) CredentialsByID(ctx context.Context, id string) (*domain.Credentials, error) {
	return r.credentials(ctx, bson.M{"_id": id})
}

func (r *UserRepository) SetRefreshTokenHash(ctx context.Context, userID string, hash *string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.UpdateOne(ctx, bson.M{"_id": userID}, bson.M{"$set": bson.M{"refresh_token_hash": hash}})
	if err != nil {
		return translate("set refresh token", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}
