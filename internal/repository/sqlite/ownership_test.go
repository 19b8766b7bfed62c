package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/sakif/utility-lineups/internal/apperror"
	"github.com/sakif/utility-lineups/internal/model"
)

func TestOwnership_UtilityAndThrowingPoint(t *testing.T) {
	db := newTestDB(t)
	owner := createTestUser(t, db, "owner@example.com", true)
	u := createTestUtility(t, db, owner.ID)
	tp := createTestThrowingPoint(t, db, u)

	got, err := db.Ownership().UtilityOwner(context.Background(), u.ID)
	if err != nil {
		t.Fatalf("UtilityOwner() error = %v", err)
	}
	if got != owner.ID {
		t.Errorf("UtilityOwner() = %q, want %q", got, owner.ID)
	}

	got, err = db.Ownership().ThrowingPointOwner(context.Background(), tp.ID)
	if err != nil {
		t.Fatalf("ThrowingPointOwner() error = %v", err)
	}
	if got != owner.ID {
		t.Errorf("ThrowingPointOwner() = %q, want %q", got, owner.ID)
	}
}

func TestOwnership_NotFound(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	if _, err := db.Ownership().UtilityOwner(ctx, "missing"); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("UtilityOwner() error = %v, want ErrNotFound", err)
	}
	if _, err := db.Ownership().ThrowingPointOwner(ctx, "missing"); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("ThrowingPointOwner() error = %v, want ErrNotFound", err)
	}
	if _, err := db.Ownership().MediaOwnership(ctx, "missing"); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("MediaOwnership() error = %v, want ErrNotFound", err)
	}
}

func TestOwnership_MediaPaths(t *testing.T) {
	db := newTestDB(t)
	owner := createTestUser(t, db, "paths@example.com", true)
	u := createTestUtility(t, db, owner.ID)
	tp := createTestThrowingPoint(t, db, u)

	direct := createTestMedia(t, db, &model.Media{UserID: &owner.ID})
	viaUtility := createTestMedia(t, db, &model.Media{UtilityID: &u.ID})
	viaPoint := createTestMedia(t, db, &model.Media{ThrowingPointID: &tp.ID})
	orphan := createTestMedia(t, db, &model.Media{})

	tests := []struct {
		name string
		id   string
		want model.MediaOwnership
	}{
		{"direct", direct.ID, model.MediaOwnership{DirectOwner: owner.ID}},
		{"via utility", viaUtility.ID, model.MediaOwnership{UtilityOwner: owner.ID}},
		{"via throwing point", viaPoint.ID, model.MediaOwnership{ThrowingPointOwner: owner.ID}},
		{"no path", orphan.ID, model.MediaOwnership{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := db.Ownership().MediaOwnership(context.Background(), tt.id)
			if err != nil {
				t.Fatalf("MediaOwnership() error = %v", err)
			}
			tt.want.MediaID = tt.id
			if *got != tt.want {
				t.Errorf("MediaOwnership() = %+v, want %+v", *got, tt.want)
			}
		})
	}
}
