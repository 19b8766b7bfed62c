package service

import (
	"context"
	"testing"

	"github.com/sakif/utility-lineups/internal/apperror"
	"github.com/sakif/utility-lineups/internal/model"
)

func TestThrowingPointCreate_UnverifiedCapAcrossUtilities(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.user(t, "alice@example.com", false)
	u := env.utility(t, alice)

	env.throwingPoint(t, alice, u.ID)

	_, err := env.points.Create(ctx, alice, u.ID, validThrowingPointInput())
	wantKind(t, err, apperror.KindVerificationRequired)
	wantMessage(t, err, "Please verify your email to create more than one throwing point")
}

func TestThrowingPointCreate_QuotaIndependentOfUtilityQuota(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.user(t, "alice@example.com", false)
	u := env.utility(t, alice)

	// At the utility cap, a throwing point is still allowed.
	if _, err := env.points.Create(ctx, alice, u.ID, validThrowingPointInput()); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
}

func TestThrowingPointCreate_ForeignParentBeforeQuota(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.user(t, "alice@example.com", true)
	mallory := env.user(t, "mallory@example.com", false)
	u := env.utility(t, alice)

	// Mallory's own throwing point quota is used up...
	mu := env.utility(t, mallory)
	env.throwingPoint(t, mallory, mu.ID)

	// ...but a foreign parent must be reported as such, not as a quota issue.
	_, err := env.points.Create(ctx, mallory, u.ID, validThrowingPointInput())
	wantKind(t, err, apperror.KindAccessDenied)
	wantMessage(t, err, "Utility not found or access denied")

	_, err = env.points.Create(ctx, mallory, "missing", validThrowingPointInput())
	wantKind(t, err, apperror.KindNotFound)
}

func TestThrowingPoint_MissingIsNotFoundForeignIsForbidden(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.user(t, "alice@example.com", true)
	mallory := env.user(t, "mallory@example.com", true)
	u := env.utility(t, alice)
	tp := env.throwingPoint(t, alice, u.ID)

	title := "mine now"
	ops := map[string]func(id string) error{
		"get": func(id string) error { _, err := env.points.Get(ctx, mallory, id); return err },
		"update": func(id string) error {
			_, err := env.points.Update(ctx, mallory, id, ThrowingPointUpdate{Title: &title})
			return err
		},
		"delete": func(id string) error { return env.points.Delete(ctx, mallory, id) },
	}
	for name, op := range ops {
		t.Run(name, func(t *testing.T) {
			err := op(tp.ID)
			wantKind(t, err, apperror.KindAccessDenied)
			wantMessage(t, err, "Throwing point not found or access denied")

			err = op("missing")
			wantKind(t, err, apperror.KindNotFound)
			wantMessage(t, err, "Throwing point not found or access denied")
		})
	}
}

func TestThrowingPointUpdateAndList(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.user(t, "alice@example.com", true)
	u := env.utility(t, alice)
	tp := env.throwingPoint(t, alice, u.ID)

	pos := model.Position{X: 33, Y: 44}
	got, err := env.points.Update(ctx, alice, tp.ID, ThrowingPointUpdate{Position: &pos})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if got.Position != pos || got.Title != tp.Title {
		t.Errorf("Update() = %+v", got)
	}

	empty := ""
	_, err = env.points.Update(ctx, alice, tp.ID, ThrowingPointUpdate{Title: &empty})
	wantKind(t, err, apperror.KindValidation)

	list, err := env.points.ListByUtility(ctx, alice, u.ID)
	if err != nil {
		t.Fatalf("ListByUtility() error = %v", err)
	}
	if len(list) != 1 || list[0].Position != pos {
		t.Errorf("ListByUtility() = %+v", list)
	}
}

func TestThrowingPointDelete_FreesSlot(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.user(t, "alice@example.com", false)
	u := env.utility(t, alice)
	tp := env.throwingPoint(t, alice, u.ID)

	if err := env.points.Delete(ctx, alice, tp.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	env.throwingPoint(t, alice, u.ID)
}
