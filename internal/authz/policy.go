// Package authz decides what an authenticated user may do.
//
// Three pieces compose into the Gate:
//   - Policy: verified users are unlimited; unverified users may own at most
//     one utility and one throwing point, recounted live on every call.
//   - Resolver: walks a resource's relationship chain to its owner.
//   - Gate: authenticate, then authorize creation (quota) or a target
//     (existence, then ownership), recording every decision.
//
// Nothing here caches across calls. Each decision reads current rows.
package authz

import (
	"context"
	"fmt"

	"github.com/sakif/utility-lineups/internal/model"
	"github.com/sakif/utility-lineups/internal/repository"
)

const (
	// UnverifiedUtilityCap is the lifetime utility count an unverified
	// account may hold.
	UnverifiedUtilityCap = 1
	// UnverifiedThrowingPointCap is the same cap for throwing points, counted
	// across all of the user's utilities.
	UnverifiedThrowingPointCap = 1
)

// Limits is what the limits endpoint reports. Counts of -1 mean no cap
// applies, distinct from a real count of zero.
type Limits struct {
	CanCreateUtility       bool `json:"canCreateUtility"`
	CanCreateThrowingPoint bool `json:"canCreateThrowingPoint"`
	UtilityCount           int  `json:"utilityCount"`
	ThrowingPointCount     int  `json:"throwingPointCount"`
}

// UnlimitedLimits is returned for every verified user.
var UnlimitedLimits = Limits{
	CanCreateUtility:       true,
	CanCreateThrowingPoint: true,
	UtilityCount:           repository.Unlimited,
	ThrowingPointCount:     repository.Unlimited,
}

// Classification is either verified-unlimited or unverified with live counts.
type Classification struct {
	Verified bool
	Limits   Limits
}

type UserLookup interface {
	GetUserByID(ctx context.Context, id string) (*model.User, error)
}

// CreationCounter counts the rows a user has created of one kind.
type CreationCounter interface {
	CountByCreator(ctx context.Context, createdBy string) (int, error)
}

type Policy struct {
	users     UserLookup
	utilities CreationCounter
	points    CreationCounter
}

func NewPolicy(users UserLookup, utilities, throwingPoints CreationCounter) *Policy {
	return &Policy{users: users, utilities: utilities, points: throwingPoints}
}

// Classify places user in a tier. Verified users return immediately without
// touching the counters.
func (p *Policy) Classify(ctx context.Context, user *model.User) (Classification, error) {
	if user.EmailVerified {
		return Classification{Verified: true, Limits: UnlimitedLimits}, nil
	}

	utilities, err := p.utilities.CountByCreator(ctx, user.ID)
	if err != nil {
		return Classification{}, fmt.Errorf("authz: counting utilities: %w", err)
	}
	points, err := p.points.CountByCreator(ctx, user.ID)
	if err != nil {
		return Classification{}, fmt.Errorf("authz: counting throwing points: %w", err)
	}

	return Classification{
		Limits: Limits{
			CanCreateUtility:       utilities < UnverifiedUtilityCap,
			CanCreateThrowingPoint: points < UnverifiedThrowingPointCap,
			UtilityCount:           utilities,
			ThrowingPointCount:     points,
		},
	}, nil
}

// CheckUnverifiedUserLimits loads the user and classifies them.
func (p *Policy) CheckUnverifiedUserLimits(ctx context.Context, userID string) (Limits, error) {
	user, err := p.users.GetUserByID(ctx, userID)
	if err != nil {
		return Limits{}, fmt.Errorf("authz: loading user %s: %w", userID, err)
	}
	c, err := p.Classify(ctx, user)
	if err != nil {
		return Limits{}, err
	}
	return c.Limits, nil
}

// Quota is the cap to pass to a CreateWithinQuota insert for user and kind.
// The insert re-checks the count atomically, closing the window between the
// gate's check and the write.
func Quota(user *model.User, kind ResourceKind) int {
	if user.EmailVerified {
		return repository.Unlimited
	}
	switch kind {
	case KindUtility:
		return UnverifiedUtilityCap
	case KindThrowingPoint:
		return UnverifiedThrowingPointCap
	}
	return repository.Unlimited
}
