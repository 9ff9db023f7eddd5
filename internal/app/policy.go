package app

import (
	"time"

	"contest-platform-service/internal/domain"
)

// checkParticipation gates join/submit: the role must be allowed to
// participate at all, must see the contest's tier, and the contest must be
// inside its time window. Time gating applies to admins too.
func checkParticipation(p domain.Principal, contest domain.Contest, now time.Time) error {
	if !p.Role.CanParticipate() {
		return domain.ErrNotEligible
	}
	if !p.Role.CanViewTier(contest.AccessTier) {
		return domain.ErrVIPOnly
	}
	if !contest.ActiveAt(now) {
		return domain.ErrContestNotActive
	}
	return nil
}

// checkDetailAccess gates the contest detail read path. Admins bypass the
// tier gate but not the time gate.
func checkDetailAccess(p domain.Principal, contest domain.Contest, now time.Time) error {
	if !contest.ActiveAt(now) {
		return domain.ErrContestNotActive
	}
	if !p.Role.CanViewTier(contest.AccessTier) {
		return domain.ErrVIPOnly
	}
	return nil
}
