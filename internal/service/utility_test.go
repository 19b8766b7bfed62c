package service

import (
	"context"
	"sync"
	"testing"

	"github.com/sakif/utility-lineups/internal/apperror"
	"github.com/sakif/utility-lineups/internal/model"
	"github.com/sakif/utility-lineups/internal/repository"
)

// =========================================================================
// Create
// =========================================================================

func TestUtilityCreate_UnverifiedUserCappedAtOne(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.user(t, "alice@example.com", false)

	if _, err := env.utilities.Create(ctx, alice, validUtilityInput()); err != nil {
		t.Fatalf("first Create() error = %v", err)
	}

	_, err := env.utilities.Create(ctx, alice, validUtilityInput())
	wantKind(t, err, apperror.KindVerificationRequired)
	wantMessage(t, err, "Please verify your email to create more than one utility")

	n, _ := env.db.Utilities().CountByCreator(ctx, alice.ID)
	if n != 1 {
		t.Errorf("utility count = %d, want 1", n)
	}
}

func TestUtilityCreate_DeleteFreesTheSlot(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.user(t, "alice@example.com", false)

	first := env.utility(t, alice)
	if err := env.utilities.Delete(ctx, alice, first.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := env.utilities.Create(ctx, alice, validUtilityInput()); err != nil {
		t.Fatalf("Create() after delete error = %v", err)
	}
}

func TestUtilityCreate_VerifiedUserUnlimited(t *testing.T) {
	env := newTestEnv(t)
	bob := env.user(t, "bob@example.com", true)

	for i := 0; i < 5; i++ {
		env.utility(t, bob)
	}
}

func TestUtilityCreate_ConcurrentRequestsFromUnverifiedUser(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.user(t, "alice@example.com", false)

	const workers = 8
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		ok      int
		blocked int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.utilities.Create(ctx, alice, validUtilityInput())
			mu.Lock()
			defer mu.Unlock()
			switch apperror.KindOf(err) {
			case "":
				ok++
			case apperror.KindVerificationRequired:
				blocked++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if ok != 1 || blocked != workers-1 {
		t.Errorf("ok=%d blocked=%d, want ok=1 blocked=%d", ok, blocked, workers-1)
	}
}

func TestUtilityCreate_Validation(t *testing.T) {
	env := newTestEnv(t)
	bob := env.user(t, "bob@example.com", true)

	tests := []struct {
		name   string
		mutate func(*UtilityInput)
		field  string
	}{
		{"unknown type", func(in *UtilityInput) { in.UtilityType = "decoy" }, "utilityType"},
		{"unknown team", func(in *UtilityInput) { in.Team = "spectator" }, "team"},
		{"x out of range", func(in *UtilityInput) { in.Position.X = 100.5 }, "position"},
		{"negative y", func(in *UtilityInput) { in.Position.Y = -1 }, "position"},
		{"blank title", func(in *UtilityInput) { in.Title = "   " }, "title"},
		{"unknown map", func(in *UtilityInput) { in.MapID = "de_nowhere" }, "mapId"},
		{"missing map", func(in *UtilityInput) { in.MapID = "" }, "mapId"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validUtilityInput()
			tt.mutate(&in)
			_, err := env.utilities.Create(context.Background(), bob, in)
			wantKind(t, err, apperror.KindValidation)
			if appErr, ok := err.(*apperror.AppError); ok && appErr.Field != tt.field {
				t.Errorf("Field = %q, want %q", appErr.Field, tt.field)
			}
		})
	}
}

func TestUtilityCreate_BoundaryPositionsAccepted(t *testing.T) {
	env := newTestEnv(t)
	bob := env.user(t, "bob@example.com", true)

	in := validUtilityInput()
	in.Position = model.Position{X: 0, Y: 100}
	if _, err := env.utilities.Create(context.Background(), bob, in); err != nil {
		t.Fatalf("Create() at the edge of the map error = %v", err)
	}
}

func TestUtilityCreate_NilUser(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.utilities.Create(context.Background(), nil, validUtilityInput())
	wantKind(t, err, apperror.KindNotAuthenticated)
}

// =========================================================================
// Ownership
// =========================================================================

func TestUtility_MissingIsNotFoundForeignIsForbidden(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.user(t, "alice@example.com", true)
	mallory := env.user(t, "mallory@example.com", true)
	u := env.utility(t, alice)

	title := "stolen"
	ops := map[string]func(id string) error{
		"get": func(id string) error { _, err := env.utilities.Get(ctx, mallory, id); return err },
		"update": func(id string) error {
			_, err := env.utilities.Update(ctx, mallory, id, UtilityUpdate{Title: &title})
			return err
		},
		"delete": func(id string) error { return env.utilities.Delete(ctx, mallory, id) },
	}
	for name, op := range ops {
		t.Run(name, func(t *testing.T) {
			err := op(u.ID)
			wantKind(t, err, apperror.KindAccessDenied)
			wantMessage(t, err, "Utility not found or access denied")

			err = op("does-not-exist")
			wantKind(t, err, apperror.KindNotFound)
			wantMessage(t, err, "Utility not found or access denied")
		})
	}

	got, err := env.utilities.Get(ctx, alice, u.ID)
	if err != nil {
		t.Fatalf("owner Get() error = %v", err)
	}
	if got.Title != "Window smoke" {
		t.Errorf("foreign update leaked through: title = %q", got.Title)
	}
}

// =========================================================================
// Read / Update / List
// =========================================================================

func TestUtilityGet_LoadsThrowingPointsAndMedia(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.user(t, "alice@example.com", true)
	u := env.utility(t, alice)
	tp := env.throwingPoint(t, alice, u.ID)

	if _, err := env.media.Create(ctx, alice, MediaInput{URL: "https://cdn.example.com/a.png", Type: model.MediaImage, UtilityID: &u.ID}); err != nil {
		t.Fatalf("creating utility media: %v", err)
	}
	if _, err := env.media.Create(ctx, alice, MediaInput{URL: "https://cdn.example.com/b.mp4", Type: model.MediaVideo, ThrowingPointID: &tp.ID}); err != nil {
		t.Fatalf("creating throwing point media: %v", err)
	}

	got, err := env.utilities.Get(ctx, alice, u.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if len(got.ThrowingPoints) != 1 || len(got.ThrowingPoints[0].Media) != 1 {
		t.Fatalf("throwing points = %+v, want one with one media", got.ThrowingPoints)
	}
	if len(got.Media) != 1 || got.Media[0].Type != model.MediaImage {
		t.Errorf("utility media = %+v, want one image", got.Media)
	}
}

func TestUtilityUpdate_PartialAndValidated(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.user(t, "alice@example.com", true)
	u := env.utility(t, alice)

	team := model.TeamCT
	got, err := env.utilities.Update(ctx, alice, u.ID, UtilityUpdate{Team: &team})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if got.Team != model.TeamCT || got.Title != u.Title {
		t.Errorf("Update() = %+v, want team CT and title unchanged", got)
	}

	bad := model.Position{X: 150, Y: 0}
	_, err = env.utilities.Update(ctx, alice, u.ID, UtilityUpdate{Position: &bad})
	wantKind(t, err, apperror.KindValidation)
}

func TestUtilityListByMap_OnlyOwnAndFiltered(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.user(t, "alice@example.com", true)
	bob := env.user(t, "bob@example.com", true)

	env.utility(t, alice)
	flash := validUtilityInput()
	flash.UtilityType = model.UtilityFlash
	flash.Team = model.TeamCT
	if _, err := env.utilities.Create(ctx, alice, flash); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	env.utility(t, bob)

	all, err := env.utilities.ListByMap(ctx, alice, "de_mirage", repository.UtilityFilter{})
	if err != nil {
		t.Fatalf("ListByMap() error = %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("ListByMap() returned %d utilities, want 2", len(all))
	}
	for _, u := range all {
		if u.CreatedBy != alice.ID {
			t.Errorf("listed utility %s belongs to %s", u.ID, u.CreatedBy)
		}
	}

	cts, err := env.utilities.ListByMap(ctx, alice, "de_mirage", repository.UtilityFilter{Team: model.TeamCT})
	if err != nil {
		t.Fatalf("ListByMap(CT) error = %v", err)
	}
	if len(cts) != 1 || cts[0].UtilityType != model.UtilityFlash {
		t.Errorf("ListByMap(CT) = %+v, want the flash only", cts)
	}

	_, err = env.utilities.ListByMap(ctx, alice, "de_mirage", repository.UtilityFilter{Team: "X"})
	wantKind(t, err, apperror.KindValidation)
}
