package authz

import (
	"context"
	"fmt"

	"github.com/sakif/utility-lineups/internal/model"
	"github.com/sakif/utility-lineups/internal/repository"
)

// ResourceKind tags which table a Resource points into.
type ResourceKind string

const (
	KindUtility       ResourceKind = "utility"
	KindThrowingPoint ResourceKind = "throwing_point"
	KindMedia         ResourceKind = "media"
)

// Label is the capitalised noun used in user-facing messages.
func (k ResourceKind) Label() string {
	switch k {
	case KindUtility:
		return "Utility"
	case KindThrowingPoint:
		return "Throwing point"
	case KindMedia:
		return "Media"
	}
	return string(k)
}

// Resource identifies one row whose ownership can be resolved.
type Resource struct {
	Kind ResourceKind
	ID   string
}

func Utility(id string) Resource       { return Resource{Kind: KindUtility, ID: id} }
func ThrowingPoint(id string) Resource { return Resource{Kind: KindThrowingPoint, ID: id} }
func Media(id string) Resource         { return Resource{Kind: KindMedia, ID: id} }

// OwnerPath says which relationship an owner was reached through.
type OwnerPath int

const (
	PathNone OwnerPath = iota
	PathCreator
	PathUtilityCreator
	PathMediaDirect
	PathMediaUtility
	PathMediaThrowingPoint
)

func (p OwnerPath) String() string {
	switch p {
	case PathCreator:
		return "utility.created_by"
	case PathUtilityCreator:
		return "throwing_point.utility.created_by"
	case PathMediaDirect:
		return "media.user_id"
	case PathMediaUtility:
		return "media.utility.created_by"
	case PathMediaThrowingPoint:
		return "media.throwing_point.utility.created_by"
	}
	return "none"
}

// ownerCandidate is one way to reach an owner. For media there are up to
// three, checked in order.
type ownerCandidate struct {
	Path   OwnerPath
	UserID string
}

// Resolver maps resources to owners through OwnershipRepository.
type Resolver struct {
	owners repository.OwnershipRepository
}

func NewResolver(owners repository.OwnershipRepository) *Resolver {
	return &Resolver{owners: owners}
}

// candidates returns the populated owner paths of res in precedence order.
// A missing row is apperror.ErrNotFound from the repository.
func (r *Resolver) candidates(ctx context.Context, res Resource) ([]ownerCandidate, error) {
	switch res.Kind {
	case KindUtility:
		owner, err := r.owners.UtilityOwner(ctx, res.ID)
		if err != nil {
			return nil, err
		}
		return []ownerCandidate{{PathCreator, owner}}, nil

	case KindThrowingPoint:
		owner, err := r.owners.ThrowingPointOwner(ctx, res.ID)
		if err != nil {
			return nil, err
		}
		return []ownerCandidate{{PathUtilityCreator, owner}}, nil

	case KindMedia:
		m, err := r.owners.MediaOwnership(ctx, res.ID)
		if err != nil {
			return nil, err
		}
		return mediaCandidates(m), nil
	}
	return nil, fmt.Errorf("authz: unknown resource kind %q", res.Kind)
}

// mediaCandidates orders media owner paths: direct owner, then the attached
// utility's creator, then the attached throwing point's utility creator.
func mediaCandidates(m *model.MediaOwnership) []ownerCandidate {
	var out []ownerCandidate
	if m.DirectOwner != "" {
		out = append(out, ownerCandidate{PathMediaDirect, m.DirectOwner})
	}
	if m.UtilityOwner != "" {
		out = append(out, ownerCandidate{PathMediaUtility, m.UtilityOwner})
	}
	if m.ThrowingPointOwner != "" {
		out = append(out, ownerCandidate{PathMediaThrowingPoint, m.ThrowingPointOwner})
	}
	return out
}

// OwnerOf returns the owner reached through the first populated path, and
// which path that was. Media with no populated path returns ("", PathNone).
func (r *Resolver) OwnerOf(ctx context.Context, res Resource) (string, OwnerPath, error) {
	cands, err := r.candidates(ctx, res)
	if err != nil {
		return "", PathNone, err
	}
	if len(cands) == 0 {
		return "", PathNone, nil
	}
	return cands[0].UserID, cands[0].Path, nil
}

// IsOwnedBy walks the owner paths in order and reports the first that
// matches userID. An orphaned media row matches nobody.
func (r *Resolver) IsOwnedBy(ctx context.Context, res Resource, userID string) (bool, OwnerPath, error) {
	cands, err := r.candidates(ctx, res)
	if err != nil {
		return false, PathNone, err
	}
	if userID == "" {
		return false, PathNone, nil
	}
	for _, c := range cands {
		if c.UserID == userID {
			return true, c.Path, nil
		}
	}
	return false, PathNone, nil
}
