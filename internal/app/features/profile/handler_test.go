package profile_test

import (
	"net/http"
	"strings"
	"testing"

	"github.com/dalemusser/meraki/internal/app/features/profile"
	userstore "github.com/dalemusser/meraki/internal/app/store/users"
	"github.com/dalemusser/meraki/internal/domain/models"
	"github.com/dalemusser/meraki/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

func newTestHandler(t *testing.T) (*profile.Handler, *testutil.Fixtures) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	return profile.NewHandler(userstore.New(db), nil, zap.NewNop()), testutil.NewFixtures(t, db)
}

func asUser(u models.User) testutil.TestUser {
	return testutil.TestUser{ID: u.ID.Hex(), Name: u.Name, Email: u.Email, Position: u.Position}
}

func TestServeProfile_Unauthenticated(t *testing.T) {
	h, _ := newTestHandler(t)

	rec := testutil.NewRecorder()
	h.ServeProfile(rec, testutil.NewJSONRequest("GET", "/profile", nil))
	rec.AssertStatus(t, http.StatusUnauthorized)
}

func TestServeProfile_Defaults(t *testing.T) {
	h, fixtures := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	u := fixtures.CreateUser(ctx, "Ana", "ana@example.com", "")

	rec := testutil.NewRecorder()
	h.ServeProfile(rec, testutil.NewAuthenticatedRequest("GET", "/profile", nil, asUser(u)))
	rec.AssertStatus(t, http.StatusOK)

	var resp map[string]any
	rec.DecodeJSON(t, &resp)
	if resp["department"] != models.DefaultDepartment || resp["position"] != models.DefaultPosition || resp["color"] != "blue" {
		t.Errorf("defaults not applied: %v", resp)
	}
	if _, ok := resp["passwordHash"]; ok {
		t.Error("response must not include secrets")
	}
}

func TestServeProfile_UnknownUser(t *testing.T) {
	h, _ := newTestHandler(t)

	ghost := testutil.TestUser{ID: primitive.NewObjectID().Hex(), Name: "Ghost"}
	rec := testutil.NewRecorder()
	h.ServeProfile(rec, testutil.NewAuthenticatedRequest("GET", "/profile", nil, ghost))
	rec.AssertStatus(t, http.StatusNotFound)
}

func TestHandleUpdate_RecomputesColor(t *testing.T) {
	h, fixtures := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	tests := []struct {
		name       string
		position   string
		department string
		wantColor  string
	}{
		{"department mapping", "", "Multimedia", "purple"},
		{"position wins", "president", "Crafting", "green"},
		{"unmapped falls back", "", "Finance", "blue"},
	}
	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := fixtures.CreateUser(ctx, "User", "u"+string(rune('a'+i))+"@example.com", tt.position)

			rec := testutil.NewRecorder()
			h.HandleUpdate(rec, testutil.NewAuthenticatedRequest("PUT", "/profile",
				map[string]string{"name": "  New <b>Name</b> ", "department": tt.department}, asUser(u)))
			rec.AssertStatus(t, http.StatusOK)

			var resp map[string]any
			rec.DecodeJSON(t, &resp)
			if resp["color"] != tt.wantColor {
				t.Errorf("color = %v, want %s", resp["color"], tt.wantColor)
			}
			if resp["name"] != "New Name" {
				t.Errorf("name = %v, want sanitized", resp["name"])
			}
		})
	}
}

func TestHandleUpdate_DefaultDepartment(t *testing.T) {
	h, fixtures := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	u := fixtures.CreateMember(ctx, "Ana", "ana@example.com")

	rec := testutil.NewRecorder()
	h.HandleUpdate(rec, testutil.NewAuthenticatedRequest("PUT", "/profile",
		map[string]string{"name": "Ana Lee"}, asUser(u)))
	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, `"department":"Unassigned"`)
}

func TestHandleUpdate_Validation(t *testing.T) {
	h, fixtures := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	u := fixtures.CreateMember(ctx, "Ana", "ana@example.com")

	tests := []struct {
		name string
		body map[string]string
	}{
		{"empty name", map[string]string{"name": "   "}},
		{"markup only", map[string]string{"name": "<script></script>"}},
		{"name too long", map[string]string{"name": strings.Repeat("a", 101)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := testutil.NewRecorder()
			h.HandleUpdate(rec, testutil.NewAuthenticatedRequest("PUT", "/profile", tt.body, asUser(u)))
			rec.AssertStatus(t, http.StatusBadRequest)
		})
	}
}

func TestHandleUpdate_CannotChangePosition(t *testing.T) {
	h, fixtures := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	u := fixtures.CreateMember(ctx, "Ana", "ana@example.com")

	rec := testutil.NewRecorder()
	h.HandleUpdate(rec, testutil.NewAuthenticatedRequest("PUT", "/profile",
		map[string]string{"name": "Ana", "position": "president"}, asUser(u)))
	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, `"position":"member"`)
}
