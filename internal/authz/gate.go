package authz

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sakif/utility-lineups/internal/apperror"
	"github.com/sakif/utility-lineups/internal/auth"
	"github.com/sakif/utility-lineups/internal/model"
)

var _ auth.Authenticator = (*Gate)(nil)

// SessionValidator is the part of auth.SessionStore the gate needs.
type SessionValidator interface {
	Validate(ctx context.Context, token string) (auth.SessionResult, error)
}

// Gate is the per-request decision point:
//
//	Unauthenticated → Authenticated → Authorized
//	                                ↘ QuotaExceeded (create on a capped kind)
//	                                ↘ Forbidden     (target owned by someone else)
//
// Every method returns nil to allow or an *apperror.AppError whose kind is the
// denial reason. Storage faults come back wrapped but untyped and surface as
// 500s. Nothing is retried.
type Gate struct {
	sessions SessionValidator
	policy   *Policy
	resolver *Resolver
	metrics  *Metrics
	logger   *slog.Logger
}

func NewGate(sessions SessionValidator, policy *Policy, resolver *Resolver, metrics *Metrics, logger *slog.Logger) *Gate {
	return &Gate{
		sessions: sessions,
		policy:   policy,
		resolver: resolver,
		metrics:  metrics,
		logger:   logger,
	}
}

// Authenticate resolves a session token to its user. Any invalid token is
// apperror.ErrUnauthenticated.
func (g *Gate) Authenticate(ctx context.Context, token string) (*model.User, error) {
	res, err := g.sessions.Validate(ctx, token)
	if err == nil && !res.Success {
		err = apperror.Unauthenticated()
	}
	g.metrics.observe("authenticate", err)
	if err != nil {
		return nil, err
	}
	return res.User, nil
}

// AuthorizeCreate applies the unverified quota to creating a utility or a
// throwing point. Verified users always pass without any count query.
func (g *Gate) AuthorizeCreate(ctx context.Context, user *model.User, kind ResourceKind) error {
	err := g.authorizeCreate(ctx, user, kind)
	g.metrics.observe("create_"+string(kind), err)
	if apperror.KindOf(err) == apperror.KindVerificationRequired {
		g.logger.Info("creation blocked pending verification",
			slog.String("userID", user.ID),
			slog.String("kind", string(kind)),
		)
	}
	return err
}

func (g *Gate) authorizeCreate(ctx context.Context, user *model.User, kind ResourceKind) error {
	if user == nil {
		return apperror.Unauthenticated()
	}

	c, err := g.policy.Classify(ctx, user)
	if err != nil {
		return err
	}
	if c.Verified {
		return nil
	}

	switch kind {
	case KindUtility:
		if !c.Limits.CanCreateUtility {
			return QuotaExceeded(KindUtility)
		}
	case KindThrowingPoint:
		if !c.Limits.CanCreateThrowingPoint {
			return QuotaExceeded(KindThrowingPoint)
		}
	default:
		return fmt.Errorf("authz: no creation quota for %q", kind)
	}
	return nil
}

// AuthorizeTarget allows user to act on an existing resource they own.
// Existence is checked first: a missing row is NOT_FOUND (404) for every
// kind, an existing row owned by someone else is ACCESS_DENIED (403). Both
// carry the same "<Kind> not found or access denied" message.
func (g *Gate) AuthorizeTarget(ctx context.Context, user *model.User, res Resource) error {
	err := g.authorizeTarget(ctx, user, res)
	g.metrics.observe("target_"+string(res.Kind), err)
	if apperror.KindOf(err) == apperror.KindAccessDenied {
		g.logger.Warn("ownership check denied",
			slog.String("userID", user.ID),
			slog.String("kind", string(res.Kind)),
			slog.String("id", res.ID),
		)
	}
	return err
}

func (g *Gate) authorizeTarget(ctx context.Context, user *model.User, res Resource) error {
	if user == nil {
		return apperror.Unauthenticated()
	}

	message := TargetDeniedMessage(res.Kind)
	owned, _, err := g.resolver.IsOwnedBy(ctx, res, user.ID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return apperror.NotFoundMessage(message)
		}
		return fmt.Errorf("authz: resolving owner of %s %s: %w", res.Kind, res.ID, err)
	}
	if !owned {
		return apperror.Forbidden(message)
	}
	return nil
}

// TargetDeniedMessage is the message for both missing and foreign targets.
func TargetDeniedMessage(kind ResourceKind) string {
	return kind.Label() + " not found or access denied"
}

// QuotaExceeded is the denial for an unverified user at the cap for kind.
func QuotaExceeded(kind ResourceKind) *apperror.AppError {
	switch kind {
	case KindThrowingPoint:
		return apperror.VerificationRequired("Please verify your email to create more than one throwing point")
	default:
		return apperror.VerificationRequired("Please verify your email to create more than one utility")
	}
}
