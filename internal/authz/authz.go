// Package authz holds the pure authorization predicates for shared memory
// groups. Predicates operate on an in-memory Snapshot so they stay
// side-effect-free and unit-testable without a live store; the only
// external capability, the social graph, is injected as an interface.
package authz

import (
	"context"
	"errors"

	"github.com/keepsake-app/keepsake/internal/model"
)

// ErrNoGroup is returned when a predicate that cannot degrade to false is
// handed a snapshot without a group.
var ErrNoGroup = errors.New("authz: snapshot has no group")

// FollowGraph answers "does follower follow following". Consumed, never
// owned, by this package.
type FollowGraph interface {
	Exists(ctx context.Context, followerID, followingID string) (bool, error)
}

// Snapshot is a point-in-time view of a group's authorization-relevant
// state. Invitations are keyed by user id for O(1) idempotence checks.
type Snapshot struct {
	Group        *model.SharedMemoryGroup
	contributors map[string]struct{}
	invitations  map[string]*model.GroupInvitation
}

// NewSnapshot builds a Snapshot from a group and its associated rows.
func NewSnapshot(group *model.SharedMemoryGroup, contributors []*model.GroupContributor, invitations []*model.GroupInvitation) *Snapshot {
	s := &Snapshot{
		Group:        group,
		contributors: make(map[string]struct{}, len(contributors)),
		invitations:  make(map[string]*model.GroupInvitation, len(invitations)),
	}
	for _, c := range contributors {
		s.contributors[c.UserID] = struct{}{}
	}
	for _, inv := range invitations {
		s.invitations[inv.UserID] = inv
	}
	return s
}

// Invitation returns the invitation record for userID, or nil.
func (s *Snapshot) Invitation(userID string) *model.GroupInvitation {
	return s.invitations[userID]
}

// ContributorIDs returns the current contributor set as a slice.
func (s *Snapshot) ContributorIDs() []string {
	ids := make([]string, 0, len(s.contributors))
	for id := range s.contributors {
		ids = append(ids, id)
	}
	return ids
}

// IsOwner reports whether userID created the group.
func (s *Snapshot) IsOwner(userID string) bool {
	return s.Group != nil && s.Group.OwnerID == userID
}

// IsContributor reports whether userID holds a live entry right.
func (s *Snapshot) IsContributor(userID string) bool {
	_, ok := s.contributors[userID]
	return ok
}

// IsInvited reports whether userID has a pending, unanswered invitation.
func (s *Snapshot) IsInvited(userID string) bool {
	inv := s.invitations[userID]
	return inv != nil && inv.Status == model.InviteStatusPending
}

// CanContribute reports whether userID may add an entry right now. The
// group must be active and accepting contributions, and the user must be
// the owner or a contributor.
func (s *Snapshot) CanContribute(userID string) bool {
	if s.Group == nil {
		return false
	}
	if s.Group.Status != model.GroupStatusActive || !s.Group.AllowNewContributions {
		return false
	}
	return s.IsOwner(userID) || s.IsContributor(userID)
}

// CanView reports whether userID may read the group and its published
// entries. public groups are visible to anyone; owner and contributors
// always see their group; followers_only additionally admits followers of
// the owner. private and collaborators_only both deny everyone else.
func (s *Snapshot) CanView(ctx context.Context, follows FollowGraph, userID string) (bool, error) {
	if s.Group == nil {
		return false, ErrNoGroup
	}
	if s.Group.Privacy == model.PrivacyPublic {
		return true, nil
	}
	if s.IsOwner(userID) || s.IsContributor(userID) {
		return true, nil
	}
	if s.Group.Privacy == model.PrivacyFollowersOnly {
		return follows.Exists(ctx, userID, s.Group.OwnerID)
	}
	return false, nil
}
