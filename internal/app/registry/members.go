package registry

import (
	"context"
	"fmt"
	"sort"

	"github.com/dalemusser/mdregistry/internal/app/policy/workgrouppolicy"
	"github.com/dalemusser/mdregistry/internal/domain/models"
	"github.com/dalemusser/mdregistry/internal/domain/roles"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

func checkRoles(rs ...roles.Role) error {
	for _, r := range rs {
		if !r.Valid() {
			return fmt.Errorf("%w: %q", models.ErrInvalidRole, string(r))
		}
	}
	return nil
}

// addRoleTx grants one role. It must run inside a transaction: the archived
// flag is re-read (and the workgroup locked) immediately before the write.
func (s *Service) addRoleTx(ctx context.Context, workgroupID, userID primitive.ObjectID, role roles.Role) error {
	wg, err := s.workgroups.Lock(ctx, workgroupID)
	if err != nil {
		return err
	}
	if wg.Archived {
		return fmt.Errorf("%w: cannot grant %s in workgroup %s", models.ErrWorkgroupArchived, role, workgroupID.Hex())
	}
	return s.members.Add(ctx, workgroupID, userID, role)
}

func (s *Service) requireUsers(ctx context.Context, ids ...primitive.ObjectID) error {
	found, err := s.users.GetByIDs(ctx, ids)
	if err != nil {
		return err
	}
	have := make(map[primitive.ObjectID]bool, len(found))
	for _, u := range found {
		have[u.ID] = true
	}
	for _, id := range ids {
		if !have[id] {
			return fmt.Errorf("%w: user %s", models.ErrNotFound, id.Hex())
		}
	}
	return nil
}

// AddRole grants role to the user. Granting a held role is a no-op. It fails
// with ErrInvalidRole for a role outside the closed set, ErrNotFound for an
// unknown workgroup or user, and ErrWorkgroupArchived while archived.
func (s *Service) AddRole(ctx context.Context, workgroupID, userID primitive.ObjectID, role roles.Role) error {
	if err := checkRoles(role); err != nil {
		return err
	}
	return s.tx.Run(ctx, func(ctx context.Context) error {
		if err := s.requireUsers(ctx, userID); err != nil {
			return err
		}
		return s.addRoleTx(ctx, workgroupID, userID, role)
	})
}

// RemoveRole revokes role. Revoking a role the user does not hold is a no-op.
func (s *Service) RemoveRole(ctx context.Context, workgroupID, userID primitive.ObjectID, role roles.Role) error {
	if err := checkRoles(role); err != nil {
		return err
	}
	return s.tx.Run(ctx, func(ctx context.Context) error {
		if _, err := s.workgroups.Lock(ctx, workgroupID); err != nil {
			return err
		}
		return s.members.Remove(ctx, workgroupID, userID, role)
	})
}

// RemoveUser revokes every role the user holds in the workgroup. A user with
// no roles there is left alone.
func (s *Service) RemoveUser(ctx context.Context, workgroupID, userID primitive.ObjectID) error {
	return s.tx.Run(ctx, func(ctx context.Context) error {
		if _, err := s.workgroups.Lock(ctx, workgroupID); err != nil {
			return err
		}
		_, err := s.members.RemoveUser(ctx, workgroupID, userID)
		return err
	})
}

// RolesOf returns the roles the user holds in the workgroup, possibly none.
func (s *Service) RolesOf(ctx context.Context, workgroupID, userID primitive.ObjectID) (roles.Set, error) {
	return s.members.RolesOf(ctx, workgroupID, userID)
}

// MembersWithRoles lists every user holding at least one role, ordered by
// display name (English collation, so case and accents sort the way a reader
// expects) and then by user id.
func (s *Service) MembersWithRoles(ctx context.Context, workgroupID primitive.ObjectID) ([]models.MemberRoles, error) {
	if _, err := s.workgroups.GetByID(ctx, workgroupID); err != nil {
		return nil, err
	}
	ms, err := s.members.ListByWorkgroup(ctx, workgroupID)
	if err != nil {
		return nil, err
	}

	held := map[primitive.ObjectID]roles.Set{}
	var ids []primitive.ObjectID
	for _, m := range ms {
		set, ok := held[m.UserID]
		if !ok {
			set = roles.NewSet()
			held[m.UserID] = set
			ids = append(ids, m.UserID)
		}
		set.Add(m.Role)
	}
	if len(ids) == 0 {
		return []models.MemberRoles{}, nil
	}

	users, err := s.users.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	if len(users) < len(ids) {
		s.log.Warn("memberships reference missing users",
			zap.String("workgroup_id", workgroupID.Hex()),
			zap.Int("missing", len(ids)-len(users)))
	}

	out := make([]models.MemberRoles, 0, len(users))
	for _, u := range users {
		out = append(out, models.MemberRoles{User: u, Roles: held[u.ID]})
	}
	sortMembers(out)
	return out, nil
}

func sortMembers(ms []models.MemberRoles) {
	// Collators keep scratch buffers, so each sort gets its own.
	c := collate.New(language.English)
	sort.SliceStable(ms, func(i, j int) bool {
		if r := c.CompareString(ms[i].User.FullName, ms[j].User.FullName); r != 0 {
			return r < 0
		}
		return ms[i].User.ID.Hex() < ms[j].User.ID.Hex()
	})
}

// Members is MembersWithRoles for an actor who must be able to view the
// workgroup.
func (s *Service) Members(ctx context.Context, actor workgrouppolicy.Actor, workgroupID primitive.ObjectID) ([]models.MemberRoles, error) {
	wg, err := s.workgroups.GetByID(ctx, workgroupID)
	if err != nil {
		return nil, err
	}
	if _, err := s.authorize(ctx, actor, wg, workgrouppolicy.ActionView); err != nil {
		s.denied(ctx, actor, &wg.ID, workgrouppolicy.ActionView, err)
		return nil, err
	}
	return s.MembersWithRoles(ctx, workgroupID)
}

// dedupeIDs drops repeats and keeps first-seen order.
func dedupeIDs(ids []primitive.ObjectID) []primitive.ObjectID {
	seen := make(map[primitive.ObjectID]bool, len(ids))
	out := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

// AddMembersWithRoles grants every role in rs to every user in userIDs.
// The actor must be able to manage members. Either every grant commits or
// none does: if the workgroup is found archived before the last grant, the
// whole operation fails with ErrWorkgroupArchived.
func (s *Service) AddMembersWithRoles(ctx context.Context, actor workgrouppolicy.Actor, workgroupID primitive.ObjectID, userIDs []primitive.ObjectID, rs []roles.Role) error {
	if err := checkRoles(rs...); err != nil {
		return err
	}
	want := roles.NewSet(rs...)
	userIDs = dedupeIDs(userIDs)
	if len(userIDs) == 0 || want.Empty() {
		return fmt.Errorf("%w: at least one user and one role are required", models.ErrInvalidArgument)
	}

	err := s.tx.Run(ctx, func(ctx context.Context) error {
		wg, err := s.workgroups.Lock(ctx, workgroupID)
		if err != nil {
			return err
		}
		if _, err := s.authorize(ctx, actor, wg, workgrouppolicy.ActionManageMembers); err != nil {
			return err
		}
		if err := s.requireUsers(ctx, userIDs...); err != nil {
			return err
		}
		for _, uid := range userIDs {
			for _, r := range want.Roles() {
				if err := s.addRoleTx(ctx, workgroupID, uid, r); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		s.denied(ctx, actor, &workgroupID, workgrouppolicy.ActionManageMembers, err)
		return err
	}

	for _, uid := range userIDs {
		s.audit.MemberRolesAdded(ctx, actor.UserID, workgroupID, uid, want.String())
	}
	s.log.Info("members added",
		zap.String("workgroup_id", workgroupID.Hex()),
		zap.Int("users", len(userIDs)),
		zap.String("roles", want.String()))
	return nil
}

// ChangeUserRoles replaces the user's role set with rs. Roles missing from
// the current set are granted and extra ones revoked, atomically. An empty
// rs removes the user from the workgroup.
func (s *Service) ChangeUserRoles(ctx context.Context, actor workgrouppolicy.Actor, workgroupID, userID primitive.ObjectID, rs []roles.Role) error {
	if err := checkRoles(rs...); err != nil {
		return err
	}
	want := roles.NewSet(rs...)

	var before roles.Set
	err := s.tx.Run(ctx, func(ctx context.Context) error {
		wg, err := s.workgroups.Lock(ctx, workgroupID)
		if err != nil {
			return err
		}
		if _, err := s.authorize(ctx, actor, wg, workgrouppolicy.ActionManageMembers); err != nil {
			return err
		}
		if err := s.requireUsers(ctx, userID); err != nil {
			return err
		}
		before, err = s.members.RolesOf(ctx, workgroupID, userID)
		if err != nil {
			return err
		}
		add, remove := before.Diff(want)
		for _, r := range remove {
			if err := s.members.Remove(ctx, workgroupID, userID, r); err != nil {
				return err
			}
		}
		for _, r := range add {
			if err := s.addRoleTx(ctx, workgroupID, userID, r); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		s.denied(ctx, actor, &workgroupID, workgrouppolicy.ActionManageMembers, err)
		return err
	}

	if !before.Equal(want) {
		s.audit.MemberRolesChanged(ctx, actor.UserID, workgroupID, userID, before.String(), want.String())
	}
	return nil
}

// RemoveMember removes every role the user holds. The actor must be able to
// manage members, which an archived workgroup refuses.
func (s *Service) RemoveMember(ctx context.Context, actor workgrouppolicy.Actor, workgroupID, userID primitive.ObjectID) error {
	var removed int64
	err := s.tx.Run(ctx, func(ctx context.Context) error {
		wg, err := s.workgroups.Lock(ctx, workgroupID)
		if err != nil {
			return err
		}
		if _, err := s.authorize(ctx, actor, wg, workgrouppolicy.ActionManageMembers); err != nil {
			return err
		}
		removed, err = s.members.RemoveUser(ctx, workgroupID, userID)
		return err
	})
	if err != nil {
		s.denied(ctx, actor, &workgroupID, workgrouppolicy.ActionManageMembers, err)
		return err
	}
	if removed > 0 {
		s.audit.MemberRemoved(ctx, actor.UserID, workgroupID, userID)
	}
	return nil
}

// Leave removes the actor from the workgroup. Any role is enough, and an
// archived workgroup still lets members leave.
func (s *Service) Leave(ctx context.Context, actor workgrouppolicy.Actor, workgroupID primitive.ObjectID) error {
	err := s.tx.Run(ctx, func(ctx context.Context) error {
		wg, err := s.workgroups.Lock(ctx, workgroupID)
		if err != nil {
			return err
		}
		if _, err := s.authorize(ctx, actor, wg, workgrouppolicy.ActionLeave); err != nil {
			return err
		}
		_, err = s.members.RemoveUser(ctx, workgroupID, actor.UserID)
		return err
	})
	if err != nil {
		s.denied(ctx, actor, &workgroupID, workgrouppolicy.ActionLeave, err)
		return err
	}
	s.audit.MemberLeft(ctx, workgroupID, actor.UserID)
	return nil
}
