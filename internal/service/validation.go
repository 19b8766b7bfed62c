package service

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/sakif/utility-lineups/internal/apperror"
	"github.com/sakif/utility-lineups/internal/authz"
	"github.com/sakif/utility-lineups/internal/model"
	"github.com/sakif/utility-lineups/internal/repository"
)

const (
	MaxTitleLength       = 100
	MaxDescriptionLength = 2000
	MaxMediaURLLength    = 2048
)

// Authorizer is the slice of *authz.Gate the services call before touching
// storage.
type Authorizer interface {
	AuthorizeCreate(ctx context.Context, user *model.User, kind authz.ResourceKind) error
	AuthorizeTarget(ctx context.Context, user *model.User, res authz.Resource) error
}

func validateTitle(title string) error {
	if strings.TrimSpace(title) == "" {
		return apperror.ValidationFailed("title", "Title is required")
	}
	if utf8.RuneCountInString(title) > MaxTitleLength {
		return apperror.ValidationFailed("title", "Title is too long")
	}
	return nil
}

func validateDescription(description string) error {
	if utf8.RuneCountInString(description) > MaxDescriptionLength {
		return apperror.ValidationFailed("description", "Description is too long")
	}
	return nil
}

func validatePosition(p model.Position) error {
	if !p.Valid() {
		return apperror.ValidationFailed("position", "Position must be within 0 to 100 on both axes")
	}
	return nil
}

// validateMediaURL accepts absolute http(s) URLs only.
func validateMediaURL(raw string) error {
	if raw == "" {
		return apperror.ValidationFailed("url", "URL is required")
	}
	if len(raw) > MaxMediaURLLength {
		return apperror.ValidationFailed("url", "URL is too long")
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return apperror.ValidationFailed("url", "URL must be an absolute http or https URL")
	}
	return nil
}

// requireMap turns an unknown map ID into a validation error instead of a
// foreign key failure at insert time.
func requireMap(ctx context.Context, maps repository.MapRepository, mapID string) error {
	if mapID == "" {
		return apperror.ValidationFailed("mapId", "Map is required")
	}
	if _, err := maps.GetByID(ctx, mapID); err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return apperror.ValidationFailed("mapId", "Unknown map")
		}
		return err
	}
	return nil
}

// quotaError maps the repository's guarded-insert refusal onto the same
// user-facing denial the gate returns.
func quotaError(err error, kind authz.ResourceKind) error {
	if errors.Is(err, apperror.ErrVerificationRequired) {
		return authz.QuotaExceeded(kind)
	}
	return err
}
