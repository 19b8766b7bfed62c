// Package repository declares the persistence contracts the services depend
// on. internal/repository/sqlite implements them; service tests use fakes.
package repository

import (
	"context"
	"time"

	"github.com/sakif/utility-lineups/internal/model"
)

// Unlimited passed as a quota to a CreateWithinQuota method disables the cap.
const Unlimited = -1

type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	// UpsertGitHub creates or refreshes the account linked to user.GitHubID.
	UpsertGitHub(ctx context.Context, user *model.User) error
	// MarkEmailVerified flips email_verified to true. It reports whether this
	// call performed the flip (false if the account was already verified).
	MarkEmailVerified(ctx context.Context, id string) (bool, error)
}

type SessionRepository interface {
	Create(ctx context.Context, session *model.Session) error
	// GetValid returns the session and its user only if the token exists and
	// has not expired at now. Any other case is apperror.ErrNotFound.
	GetValid(ctx context.Context, token string, now time.Time) (*model.Session, *model.User, error)
	Delete(ctx context.Context, token string) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

type MapRepository interface {
	List(ctx context.Context) ([]model.Map, error)
	GetByID(ctx context.Context, id string) (*model.Map, error)
}

// UtilityFilter narrows ListByMap.
type UtilityFilter struct {
	Team        model.Team
	UtilityType model.UtilityType
}

type UtilityRepository interface {
	// CreateWithinQuota inserts the utility only if its creator currently
	// owns fewer than quota utilities, checked and inserted atomically.
	// quota == Unlimited skips the check. Over quota returns
	// apperror.ErrVerificationRequired.
	CreateWithinQuota(ctx context.Context, utility *model.Utility, quota int) error
	GetByID(ctx context.Context, id string) (*model.Utility, error)
	ListByMap(ctx context.Context, createdBy, mapID string, filter UtilityFilter) ([]model.Utility, error)
	Update(ctx context.Context, utility *model.Utility) error
	Delete(ctx context.Context, id string) error
	CountByCreator(ctx context.Context, createdBy string) (int, error)
}

type ThrowingPointRepository interface {
	// CreateWithinQuota is the throwing-point twin of
	// UtilityRepository.CreateWithinQuota; the count is over every throwing
	// point under utilities created by owner.
	CreateWithinQuota(ctx context.Context, tp *model.ThrowingPoint, owner string, quota int) error
	GetByID(ctx context.Context, id string) (*model.ThrowingPoint, error)
	ListByUtility(ctx context.Context, utilityID string) ([]model.ThrowingPoint, error)
	Update(ctx context.Context, tp *model.ThrowingPoint) error
	Delete(ctx context.Context, id string) error
	CountByCreator(ctx context.Context, createdBy string) (int, error)
}

type MediaRepository interface {
	Create(ctx context.Context, media *model.Media) error
	GetByID(ctx context.Context, id string) (*model.Media, error)
	ListByUtility(ctx context.Context, utilityID string) ([]model.Media, error)
	ListByThrowingPoint(ctx context.Context, throwingPointID string) ([]model.Media, error)
	Update(ctx context.Context, media *model.Media) error
	// SetAttachment rewrites user_id, utility_id and throwing_point_id together.
	SetAttachment(ctx context.Context, media *model.Media) error
	Delete(ctx context.Context, id string) error
}

// OwnershipRepository answers "who owns this?" with one query per resource
// kind. Every method returns apperror.ErrNotFound when the row is absent.
type OwnershipRepository interface {
	UtilityOwner(ctx context.Context, id string) (string, error)
	ThrowingPointOwner(ctx context.Context, id string) (string, error)
	MediaOwnership(ctx context.Context, id string) (*model.MediaOwnership, error)
}

// Store bundles every repository and can run a function inside one
// transaction against a Store bound to that transaction.
type Store interface {
	Users() UserRepository
	Sessions() SessionRepository
	Maps() MapRepository
	Utilities() UtilityRepository
	ThrowingPoints() ThrowingPointRepository
	Media() MediaRepository
	Ownership() OwnershipRepository
	InTx(ctx context.Context, fn func(tx Store) error) error
}
