package domain

import "strings"

// Role is the closed set of caller roles. Roles form a partial order for
// contest access: admin > vip > user > guest.
type Role string

const (
	RoleGuest Role = "guest"
	RoleUser  Role = "user"
	RoleVIP   Role = "vip"
	RoleAdmin Role = "admin"
)

var roleRank = map[Role]int{
	RoleGuest: 0,
	RoleUser:  1,
	RoleVIP:   2,
	RoleAdmin: 3,
}

// ParseRole normalizes a raw role string; anything unrecognized (including
// an absent principal) is a guest.
func ParseRole(raw string) Role {
	switch Role(strings.ToLower(strings.TrimSpace(raw))) {
	case RoleUser:
		return RoleUser
	case RoleVIP:
		return RoleVIP
	case RoleAdmin:
		return RoleAdmin
	default:
		return RoleGuest
	}
}

// AtLeast reports whether r sits at or above other in the hierarchy, so a
// vip caller satisfies any check that accepts user, and admin satisfies all.
func (r Role) AtLeast(other Role) bool {
	return roleRank[r] >= roleRank[other]
}

// CanParticipate reports whether the role may join or submit at all.
// Guests may never participate regardless of contest tier.
func (r Role) CanParticipate() bool {
	return r.AtLeast(RoleUser)
}

// CanViewTier reports whether the role may see contests of the given tier.
// Guests get read-only preview of normal contests.
func (r Role) CanViewTier(tier AccessTier) bool {
	if tier == TierVIP {
		return r.AtLeast(RoleVIP)
	}
	return true
}

// Principal is the caller identity attached to each request by the
// authentication collaborator.
type Principal struct {
	UserID string
	Role   Role
}
