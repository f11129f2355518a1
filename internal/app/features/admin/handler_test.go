package admin_test

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/dalemusser/meraki/internal/app/features/admin"
	attendancestore "github.com/dalemusser/meraki/internal/app/store/attendance"
	userstore "github.com/dalemusser/meraki/internal/app/store/users"
	"github.com/dalemusser/meraki/internal/app/system/auth"
	"github.com/dalemusser/meraki/internal/app/system/roster"
	"github.com/dalemusser/meraki/internal/domain/models"
	"github.com/dalemusser/meraki/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type fakeUsers struct {
	byID map[string]models.User
}

func (f *fakeUsers) GetByHexID(_ context.Context, hex string) (*models.User, error) {
	u, ok := f.byID[hex]
	if !ok {
		return nil, userstore.ErrNotFound
	}
	return &u, nil
}

func (f *fakeUsers) ListAll(context.Context) ([]models.User, error) {
	out := make([]models.User, 0, len(f.byID))
	for _, u := range f.byID {
		out = append(out, u)
	}
	return out, nil
}

type fakeResets struct {
	sent []string
	err  error
}

func (f *fakeResets) Send(_ context.Context, u models.User, _ string) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, u.Email)
	return nil
}

type fixture struct {
	h         *admin.Handler
	users     *fakeUsers
	resets    *fakeResets
	member    models.User
	president models.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	pw := "hash"
	member := models.User{ID: primitive.NewObjectID(), Name: "Mia", Email: "mia@example.com", Position: "member", AuthProvider: models.ProviderCredentials, PasswordHash: &pw}
	president := models.User{ID: primitive.NewObjectID(), Name: "Pat", Email: "pat@example.com", Position: "president", AuthProvider: models.ProviderCredentials}
	google := models.User{ID: primitive.NewObjectID(), Name: "Gus", Email: "gus@example.com", AuthProvider: models.ProviderGoogle}

	users := &fakeUsers{byID: map[string]models.User{
		member.ID.Hex():    member,
		president.ID.Hex(): president,
		google.ID.Hex():    google,
	}}
	att := attendancestore.NewMemory()
	_, _ = att.InsertTimeIn(context.Background(), models.AttendanceRecord{
		UserID: member.ID.Hex(), Date: "2026-03-02", TimeIn: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC),
	})

	rs := roster.New(users, att, func() string { return "2026-03-02" })
	resets := &fakeResets{}
	return &fixture{
		h:         admin.NewHandler(rs, users, resets, nil, zap.NewNop()),
		users:     users,
		resets:    resets,
		member:    member,
		president: president,
	}
}

func asUser(u models.User) testutil.TestUser {
	return testutil.TestUser{ID: u.ID.Hex(), Name: u.Name, Email: u.Email, Position: u.Position}
}

func TestServeUsers_President(t *testing.T) {
	f := newFixture(t)

	rec := testutil.NewRecorder()
	f.h.ServeUsers(rec, testutil.NewAuthenticatedRequest("GET", "/admin/users", nil, asUser(f.president)))
	rec.AssertStatus(t, http.StatusOK)

	var resp struct {
		Users []roster.UserSummary `json:"users"`
	}
	rec.DecodeJSON(t, &resp)
	if len(resp.Users) != 3 {
		t.Fatalf("got %d users, want 3", len(resp.Users))
	}
	if resp.Users[0].Name != "Gus" || resp.Users[1].Name != "Mia" || resp.Users[2].Name != "Pat" {
		t.Errorf("unexpected order: %s, %s, %s", resp.Users[0].Name, resp.Users[1].Name, resp.Users[2].Name)
	}
	if !resp.Users[1].TimedInToday {
		t.Error("Mia should be timed in today")
	}
}

func TestServeUsers_MemberDenied(t *testing.T) {
	f := newFixture(t)

	rec := testutil.NewRecorder()
	f.h.ServeUsers(rec, testutil.NewAuthenticatedRequest("GET", "/admin/users", nil, asUser(f.member)))
	rec.AssertStatus(t, http.StatusForbidden)
}

func TestServeUsers_StaleSessionPosition(t *testing.T) {
	f := newFixture(t)

	// The session claims president but the stored record says member.
	claims := asUser(f.member)
	claims.Position = "president"

	rec := testutil.NewRecorder()
	f.h.ServeUsers(rec, testutil.NewAuthenticatedRequest("GET", "/admin/users", nil, claims))
	rec.AssertStatus(t, http.StatusForbidden)
}

func TestRoutes_RequireElevated(t *testing.T) {
	f := newFixture(t)
	sm, err := auth.NewSessionManager("test-session-key-for-testing-only-32b", "test-session", "", time.Hour, false, zap.NewNop())
	if err != nil {
		t.Fatalf("NewSessionManager: %v", err)
	}
	router := admin.Routes(f.h, sm)

	rec := testutil.NewRecorder()
	router.ServeHTTP(rec, testutil.NewJSONRequest("GET", "/users", nil))
	rec.AssertStatus(t, http.StatusUnauthorized)

	rec = testutil.NewRecorder()
	router.ServeHTTP(rec, testutil.NewAuthenticatedRequest("GET", "/users", nil, asUser(f.member)))
	rec.AssertStatus(t, http.StatusForbidden)

	rec = testutil.NewRecorder()
	router.ServeHTTP(rec, testutil.NewAuthenticatedRequest("GET", "/users", nil, asUser(f.president)))
	rec.AssertStatus(t, http.StatusOK)
}

func TestHandleResetPassword(t *testing.T) {
	f := newFixture(t)

	req := testutil.NewAuthenticatedRequest("POST", "/admin/users/x/reset-password", nil, asUser(f.president))
	req = testutil.WithChiURLParam(req, "id", f.member.ID.Hex())
	rec := testutil.NewRecorder()
	f.h.HandleResetPassword(rec, req)

	rec.AssertStatus(t, http.StatusOK)
	if len(f.resets.sent) != 1 || f.resets.sent[0] != f.member.Email {
		t.Errorf("sent = %v", f.resets.sent)
	}
}

func TestHandleResetPassword_Errors(t *testing.T) {
	f := newFixture(t)
	var gus models.User
	for _, u := range f.users.byID {
		if u.Name == "Gus" {
			gus = u
		}
	}

	tests := []struct {
		name   string
		actor  models.User
		target string
		want   int
	}{
		{"unknown target", f.president, primitive.NewObjectID().Hex(), http.StatusNotFound},
		{"google account", f.president, gus.ID.Hex(), http.StatusBadRequest},
		{"member for other", f.member, f.president.ID.Hex(), http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := testutil.WithChiURLParam(
				testutil.NewAuthenticatedRequest("POST", "/admin/users/x/reset-password", nil, asUser(tt.actor)), "id", tt.target)

			rec := testutil.NewRecorder()
			f.h.HandleResetPassword(rec, req)
			rec.AssertStatus(t, tt.want)
		})
	}

	f.resets.err = errors.New("smtp down")
	req := testutil.WithChiURLParam(
		testutil.NewAuthenticatedRequest("POST", "/", nil, asUser(f.president)), "id", f.member.ID.Hex())
	rec := testutil.NewRecorder()
	f.h.HandleResetPassword(rec, req)
	rec.AssertStatus(t, http.StatusInternalServerError)
}
