package mongo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/globalbi/admin-api/internal/core/domain"
)

type roleDocument struct {
	ID          string    `bson:"_id"`
	Name        string    `bson:"name"`
	Description string    `bson:"description"`
	IsDeletable bool      `bson:"is_deletable"`
	StaffStatus bool      `bson:"staff_status"`
	CreatedAt   time.Time `bson:"created_at"`
	UpdatedAt   time.Time `bson:"updated_at"`
}

func (d *roleDocument) toDomain(userCount int64) *domain.Role {
	return &domain.Role{
		ID:          d.ID,
		Name:        d.Name,
		Description: d.Description,
		IsDeletable: d.IsDeletable,
		StaffStatus: d.StaffStatus,
		UserCount:   userCount,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
}

// RoleRepository implements ports.RoleRepository.
type RoleRepository struct {
	col   *mongo.Collection
	users *mongo.Collection
}

func NewRoleRepository(db *mongo.Database) *RoleRepository {
	return &RoleRepository{
		col:   db.Collection(collectionRoles),
		users: db.Collection(collectionUsers),
	}
}

func (r *RoleRepository) Create(ctx context.Context, role domain.Role) (*domain.Role, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	now := time.Now().UTC()
	doc := roleDocument{
		ID:          uuid.NewString(),
		Name:        role.Name,
		Description: role.Description,
		IsDeletable: role.IsDeletable,
		StaffStatus: role.StaffStatus,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if _, err := r.col.InsertOne(ctx, doc); err != nil {
		return nil, translate("insert role", err)
	}
	return doc.toDomain(0), nil
}

func (r *RoleRepository) withCount(ctx context.Context, doc *roleDocument) (*domain.Role, error) {
	n, err := r.CountUsers(ctx, doc.ID)
	if err != nil {
		return nil, err
	}
	return doc.toDomain(n), nil
}

func (r *RoleRepository) findOne(ctx context.Context, filter bson.M) (*domain.Role, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc roleDocument
	if err := r.col.FindOne(ctx, filter).Decode(&doc); err != nil {
		return nil, translate("find role", err)
	}
	return r.withCount(ctx, &doc)
}

func (r *RoleRepository) FindByID(ctx context.Context, id string) (*domain.Role, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *RoleRepository) FindByName(ctx context.Context, name string) (*domain.Role, error) {
	return r.findOne(ctx, bson.M{"name": name})
}

func (r *RoleRepository) List(ctx context.Context) ([]domain.Role, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	cur, err := r.col.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
	if err != nil {
		return nil, translate("list roles", err)
	}
	var docs []roleDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, translate("decode roles", err)
	}

	counts, err := r.userCounts(ctx)
	if err != nil {
		return nil, err
	}
	roles := make([]domain.Role, 0, len(docs))
	for i := range docs {
		roles = append(roles, *docs[i].toDomain(counts[docs[i].ID]))
	}
	return roles, nil
}

// userCounts groups users by role in one aggregation.
func (r *RoleRepository) userCounts(ctx context.Context) (map[string]int64, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.D{{Key: "_id", Value: "$role_id"}, {Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}}}}},
	}
	cur, err := r.users.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, translate("count users by role", err)
	}
	var rows []struct {
		RoleID string `bson:"_id"`
		Count  int64  `bson:"count"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return nil, translate("decode role counts", err)
	}
	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.RoleID] = row.Count
	}
	return counts, nil
}

func (r *RoleRepository) Update(ctx context.Context, id string, patch domain.RolePatch) (*domain.Role, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	set := bson.M{"updated_at": time.Now().UTC()}
	if patch.Name != nil {
		set["name"] = *patch.Name
	}
	if patch.Description != nil {
		set["description"] = *patch.Description
	}
	if patch.StaffStatus != nil {
		set["staff_status"] = *patch.StaffStatus
	}

	var doc roleDocument
	err := r.col.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&doc)
	if err != nil {
		return nil, translate("update role", err)
	}
	return r.withCount(ctx, &doc)
}

// Delete removes the role and then re-counts its users. A user assigned
// between the caller's check and the delete puts the role back and the
// delete fails with a conflict.
func (r *RoleRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc roleDocument
	if err := r.col.FindOneAndDelete(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		return translate("delete role", err)
	}

	n, err := r.CountUsers(ctx, id)
	if err == nil && n == 0 {
		return nil
	}
	if _, rerr := r.col.InsertOne(ctx, doc); rerr != nil {
		return translate("restore role", rerr)
	}
	if err != nil {
		return err
	}
	return domain.Errorf(domain.ErrConflict, "role %q has %d assigned user(s)", doc.Name, n)
}

func (r *RoleRepository) CountUsers(ctx context.Context, roleID string) (int64, error) {
	n, err := r.users.CountDocuments(ctx, bson.M{"role_id": roleID})
	if err != nil {
		return 0, translate("count role users", err)
	}
	return n, nil
}

// MigrateUsers reassigns users with a single UpdateMany.
func (r *RoleRepository) MigrateUsers(ctx context.Context, from, to string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.users.UpdateMany(ctx,
		bson.M{"role_id": from},
		bson.M{"$set": bson.M{"role_id": to, "updated_at": time.Now().UTC()}})
	if err != nil {
		return 0, translate("migrate users", err)
	}
	return res.ModifiedCount, nil
}
