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

type groupDocument struct {
	ID          string    `bson:"_id"`
	Name        string    `bson:"name"`
	Description string    `bson:"description"`
	CreatedAt   time.Time `bson:"created_at"`
	UpdatedAt   time.Time `bson:"updated_at"`
}

type membershipDocument struct {
	ID        string    `bson:"_id"`
	UserID    string    `bson:"user_id"`
	GroupID   string    `bson:"group_id"`
	CreatedAt time.Time `bson:"created_at"`
}

// GroupRepository implements ports.GroupRepository.
type GroupRepository struct {
	col         *mongo.Collection
	memberships *mongo.Collection
	users       *UserRepository
}

func NewGroupRepository(db *mongo.Database) *GroupRepository {
	return &GroupRepository{
		col:         db.Collection(collectionGroups),
		memberships: db.Collection(collectionMemberships),
		users:       NewUserRepository(db),
	}
}

func (r *GroupRepository) toDomain(ctx context.Context, doc *groupDocument) (*domain.Group, error) {
	n, err := r.memberships.CountDocuments(ctx, bson.M{"group_id": doc.ID})
	if err != nil {
		return nil, translate("count members", err)
	}
	return &domain.Group{
		ID:          doc.ID,
		Name:        doc.Name,
		Description: doc.Description,
		MemberCount: n,
		CreatedAt:   doc.CreatedAt,
		UpdatedAt:   doc.UpdatedAt,
	}, nil
}

func (r *GroupRepository) Create(ctx context.Context, name, description string) (*domain.Group, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	now := time.Now().UTC()
	doc := groupDocument{ID: uuid.NewString(), Name: name, Description: description, CreatedAt: now, UpdatedAt: now}
	if _, err := r.col.InsertOne(ctx, doc); err != nil {
		return nil, translate("insert group", err)
	}
	return &domain.Group{ID: doc.ID, Name: name, Description: description, CreatedAt: now, UpdatedAt: now}, nil
}

func (r *GroupRepository) findOne(ctx context.Context, filter bson.M) (*domain.Group, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc groupDocument
	if err := r.col.FindOne(ctx, filter).Decode(&doc); err != nil {
		return nil, translate("find group", err)
	}
	return r.toDomain(ctx, &doc)
}

func (r *GroupRepository) FindByID(ctx context.Context, id string) (*domain.Group, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *GroupRepository) FindByName(ctx context.Context, name string) (*domain.Group, error) {
	return r.findOne(ctx, bson.M{"name": name})
}

func (r *GroupRepository) list(ctx context.Context, filter bson.M) ([]domain.Group, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	cur, err := r.col.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, translate("list groups", err)
	}
	var docs []groupDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, translate("decode groups", err)
	}

	groups := make([]domain.Group, 0, len(docs))
	for i := range docs {
		g, err := r.toDomain(ctx, &docs[i])
		if err != nil {
			return nil, err
		}
		groups = append(groups, *g)
	}
	return groups, nil
}

func (r *GroupRepository) List(ctx context.Context) ([]domain.Group, error) {
	return r.list(ctx, bson.M{})
}

func (r *GroupRepository) ListByMember(ctx context.Context, userID string) ([]domain.Group, error) {
	ids, err := r.memberships.Distinct(ctx, "group_id", bson.M{"user_id": userID})
	if err != nil {
		return nil, translate("list user memberships", err)
	}
	if len(ids) == 0 {
		return []domain.Group{}, nil
	}
	return r.list(ctx, bson.M{"_id": bson.M{"$in": ids}})
}

func (r *GroupRepository) Update(ctx context.Context, id string, patch domain.GroupPatch) (*domain.Group, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	set := bson.M{"updated_at": time.Now().UTC()}
	if patch.Name != nil {
		set["name"] = *patch.Name
	}
	if patch.Description != nil {
		set["description"] = *patch.Description
	}

	var doc groupDocument
	err := r.col.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&doc)
	if err != nil {
		return nil, translate("update group", err)
	}
	return r.toDomain(ctx, &doc)
}

// Delete removes the group and then its memberships.
func (r *GroupRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return translate("delete group", err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrNotFound
	}
	if _, err := r.memberships.DeleteMany(ctx, bson.M{"group_id": id}); err != nil {
		return translate("delete group memberships", err)
	}
	return nil
}

func (r *GroupRepository) AddMember(ctx context.Context, groupID, userID string) (*domain.Membership, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := membershipDocument{ID: uuid.NewString(), UserID: userID, GroupID: groupID, CreatedAt: time.Now().UTC()}
	if _, err := r.memberships.InsertOne(ctx, doc); err != nil {
		return nil, translate("insert membership", err)
	}
	return &domain.Membership{ID: doc.ID, UserID: userID, GroupID: groupID, CreatedAt: doc.CreatedAt}, nil
}

func (r *GroupRepository) RemoveMember(ctx context.Context, groupID, userID string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.memberships.DeleteOne(ctx, bson.M{"group_id": groupID, "user_id": userID})
	if err != nil {
		return translate("delete membership", err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrNotGroupMember
	}
	return nil
}

func (r *GroupRepository) IsMember(ctx context.Context, groupID, userID string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	n, err := r.memberships.CountDocuments(ctx, bson.M{"group_id": groupID, "user_id": userID},
		options.Count().SetLimit(1))
	if err != nil {
		return false, translate("check membership", err)
	}
	return n > 0, nil
}

func (r *GroupRepository) Members(ctx context.Context, groupID string) ([]domain.GroupMember, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	cur, err := r.memberships.Find(ctx, bson.M{"group_id": groupID},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
	if err != nil {
		return nil, translate("list members", err)
	}
	var docs []membershipDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, translate("decode members", err)
	}

	members := make([]domain.GroupMember, 0, len(docs))
	for _, m := range docs {
		u, err := r.users.FindByID(ctx, m.UserID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				continue
			}
			return nil, err
		}
		members = append(members, domain.GroupMember{SafeUser: *u, JoinedAt: m.CreatedAt})
	}
	return members, nil
}
