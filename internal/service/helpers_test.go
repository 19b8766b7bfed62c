package service

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/sakif/utility-lineups/internal/apperror"
	"github.com/sakif/utility-lineups/internal/auth"
	"github.com/sakif/utility-lineups/internal/authz"
	"github.com/sakif/utility-lineups/internal/model"
	"github.com/sakif/utility-lineups/internal/repository/sqlite"
)

// =========================================================================
// TEST ENVIRONMENT
// =========================================================================

// testEnv wires every service against one in-memory database and a real
// gate, so quota and ownership decisions run the production queries.
type testEnv struct {
	db        *sqlite.DB
	sessions  *auth.SessionStore
	gate      *authz.Gate
	utilities *UtilityService
	points    *ThrowingPointService
	media     *MediaService
	share     *ShareService
	accounts  *AccountService
	tokens    *auth.VerificationTokens
	mailer    *recordingMailer
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := sqlite.New(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("sqlite.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	logger := testLogger()
	sessions := auth.NewSessionStore(db.Sessions(), logger)
	policy := authz.NewPolicy(db.Users(), db.Utilities(), db.ThrowingPoints())
	gate := authz.NewGate(sessions, policy, authz.NewResolver(db.Ownership()), authz.NewMetrics(prometheus.NewRegistry()), logger)

	tokens, err := auth.NewVerificationTokens("test-secret-at-least-16-chars!!")
	if err != nil {
		t.Fatalf("NewVerificationTokens: %v", err)
	}
	mailer := &recordingMailer{}

	return &testEnv{
		db:        db,
		sessions:  sessions,
		gate:      gate,
		utilities: NewUtilityService(db, gate, logger),
		points:    NewThrowingPointService(db, gate, logger),
		media:     NewMediaService(db, gate, nil, logger),
		share:     NewShareService(db, gate, logger),
		// Cost 4 is the bcrypt minimum, which keeps tests fast.
		accounts: NewAccountService(db.Users(), sessions, auth.NewPasswordServiceWithCost(4), tokens, mailer, "http://localhost:8080/", logger),
		tokens:   tokens,
		mailer:   mailer,
	}
}

func (e *testEnv) user(t *testing.T, email string, verified bool) *model.User {
	t.Helper()
	u := &model.User{Email: email, Name: "tester", EmailVerified: verified}
	if err := e.db.Users().Create(context.Background(), u); err != nil {
		t.Fatalf("creating user: %v", err)
	}
	return u
}

func (e *testEnv) utility(t *testing.T, owner *model.User) *model.Utility {
	t.Helper()
	u, err := e.utilities.Create(context.Background(), owner, validUtilityInput())
	if err != nil {
		t.Fatalf("creating utility: %v", err)
	}
	return u
}

func (e *testEnv) throwingPoint(t *testing.T, owner *model.User, utilityID string) *model.ThrowingPoint {
	t.Helper()
	tp, err := e.points.Create(context.Background(), owner, utilityID, validThrowingPointInput())
	if err != nil {
		t.Fatalf("creating throwing point: %v", err)
	}
	return tp
}

func validUtilityInput() UtilityInput {
	return UtilityInput{
		MapID:       "de_mirage",
		UtilityType: model.UtilitySmoke,
		Team:        model.TeamT,
		Position:    model.Position{X: 52.5, Y: 31},
		Title:       "Window smoke",
		Description: "From T spawn, jump throw",
	}
}

func validThrowingPointInput() ThrowingPointInput {
	return ThrowingPointInput{Position: model.Position{X: 10, Y: 90}, Title: "T spawn corner"}
}

// wantKind fails the test unless err classifies as want.
func wantKind(t *testing.T, err error, want apperror.Kind) {
	t.Helper()
	if got := apperror.KindOf(err); got != want {
		t.Fatalf("error kind = %q (%v), want %q", got, err, want)
	}
}

func wantMessage(t *testing.T, err error, want string) {
	t.Helper()
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("error %v is not an *apperror.AppError", err)
	}
	if appErr.Message != want {
		t.Errorf("message = %q, want %q", appErr.Message, want)
	}
}

// =========================================================================
// FAKES
// =========================================================================

type recordingMailer struct {
	mu    sync.Mutex
	sent  []sentMail
	fails error
}

type sentMail struct{ to, link string }

func (m *recordingMailer) SendVerification(_ context.Context, to, link string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fails != nil {
		return m.fails
	}
	m.sent = append(m.sent, sentMail{to, link})
	return nil
}

func (m *recordingMailer) last(t *testing.T) sentMail {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		t.Fatal("no verification mail was sent")
	}
	return m.sent[len(m.sent)-1]
}
