package service

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/globalbi/admin-api/internal/core/domain"
	"github.com/globalbi/admin-api/internal/core/ports"
)

// GroupService applies row-level security around groups and memberships.
// Staff manage everything; members may only read their own groups.
type GroupService struct {
	groups ports.GroupRepository
	users  ports.UserRepository
	policy accessPolicy
	log    zerolog.Logger
}

func NewGroupService(groups ports.GroupRepository, users ports.UserRepository, log zerolog.Logger) *GroupService {
	return &GroupService{
		groups: groups,
		users:  users,
		policy: accessPolicy{users: users, groups: groups},
		log:    log,
	}
}

func (s *GroupService) Create(ctx context.Context, actorID, name, description string) (*domain.Group, error) {
	if _, err := s.policy.requireStaff(ctx, actorID); err != nil {
		return nil, err
	}
	if err := s.ensureUniqueName(ctx, name, ""); err != nil {
		return nil, err
	}

	g, err := s.groups.Create(ctx, name, description)
	if err != nil {
		return nil, err
	}
	s.log.Info().Str("actor_id", actorID).Str("group_id", g.ID).Msg("group created")
	return g, nil
}

// List returns all groups to staff and only joined groups to everyone else.
func (s *GroupService) List(ctx context.Context, actorID string) ([]domain.Group, error) {
	actor, err := s.policy.actor(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if actor.IsStaff() {
		return s.groups.List(ctx)
	}
	return s.groups.ListByMember(ctx, actor.ID)
}

func (s *GroupService) Get(ctx context.Context, actorID, id string) (*domain.GroupDetail, error) {
	actor, err := s.policy.actor(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if err := s.policy.canReadGroup(ctx, actor, id); err != nil {
		return nil, err
	}

	g, err := s.findGroup(ctx, id)
	if err != nil {
		return nil, err
	}
	members, err := s.groups.Members(ctx, id)
	if err != nil {
		return nil, err
	}
	return &domain.GroupDetail{Group: *g, Members: members}, nil
}

func (s *GroupService) Update(ctx context.Context, actorID, id string, patch domain.GroupPatch) (*domain.Group, error) {
	if _, err := s.policy.requireStaff(ctx, actorID); err != nil {
		return nil, err
	}
	g, err := s.findGroup(ctx, id)
	if err != nil {
		return nil, err
	}
	if patch.Name != nil && *patch.Name != g.Name {
		if err := s.ensureUniqueName(ctx, *patch.Name, g.ID); err != nil {
			return nil, err
		}
	}
	if patch.Name == nil && patch.Description == nil {
		return g, nil
	}

	updated, err := s.groups.Update(ctx, id, patch)
	if err != nil {
		return nil, err
	}
	s.log.Info().Str("actor_id", actorID).Str("group_id", id).Msg("group updated")
	return updated, nil
}

func (s *GroupService) Delete(ctx context.Context, actorID, id string) (*domain.Group, error) {
	if _, err := s.policy.requireStaff(ctx, actorID); err != nil {
		return nil, err
	}
	g, err := s.findGroup(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.groups.Delete(ctx, id); err != nil {
		return nil, err
	}
	s.log.Info().Str("actor_id", actorID).Str("group_id", id).Msg("group deleted")
	return g, nil
}

// AddMember requires staff regardless of the caller's own memberships.
func (s *GroupService) AddMember(ctx context.Context, actorID, groupID, userID string) (*domain.Membership, error) {
	if _, err := s.policy.requireStaff(ctx, actorID); err != nil {
		return nil, err
	}
	if err := s.ensureGroupAndUser(ctx, groupID, userID); err != nil {
		return nil, err
	}
	member, err := s.groups.IsMember(ctx, groupID, userID)
	if err != nil {
		return nil, err
	}
	if member {
		return nil, domain.ErrAlreadyMember
	}

	m, err := s.groups.AddMember(ctx, groupID, userID)
	if err != nil {
		return nil, err
	}
	s.log.Info().Str("actor_id", actorID).Str("group_id", groupID).Str("user_id", userID).Msg("member added")
	return m, nil
}

func (s *GroupService) RemoveMember(ctx context.Context, actorID, groupID, userID string) error {
	if _, err := s.policy.requireStaff(ctx, actorID); err != nil {
		return err
	}
	if err := s.ensureGroupAndUser(ctx, groupID, userID); err != nil {
		return err
	}
	member, err := s.groups.IsMember(ctx, groupID, userID)
	if err != nil {
		return err
	}
	if !member {
		return domain.ErrNotGroupMember
	}

	if err := s.groups.RemoveMember(ctx, groupID, userID); err != nil {
		return err
	}
	s.log.Info().Str("actor_id", actorID).Str("group_id", groupID).Str("user_id", userID).Msg("member removed")
	return nil
}

// Members lists a group's members under the same rule as Get.
func (s *GroupService) Members(ctx context.Context, actorID, groupID string) ([]domain.GroupMember, error) {
	actor, err := s.policy.actor(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if err := s.policy.canReadGroup(ctx, actor, groupID); err != nil {
		return nil, err
	}
	if _, err := s.findGroup(ctx, groupID); err != nil {
		return nil, err
	}
	return s.groups.Members(ctx, groupID)
}

func (s *GroupService) findGroup(ctx context.Context, id string) (*domain.Group, error) {
	g, err := s.groups.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrGroupNotFound
		}
		return nil, err
	}
	return g, nil
}

func (s *GroupService) ensureUniqueName(ctx context.Context, name, selfID string) error {
	g, err := s.groups.FindByName(ctx, name)
	if err == nil && g.ID != selfID {
		return domain.ErrGroupNameTaken
	}
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return err
	}
	return nil
}

func (s *GroupService) ensureGroupAndUser(ctx context.Context, groupID, userID string) error {
	if _, err := s.findGroup(ctx, groupID); err != nil {
		return err
	}
	if _, err := s.users.FindByID(ctx, userID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrUserNotFound
		}
		return err
	}
	return nil
}
