package userstore_test

import (
	"context"
	"errors"
	"testing"
	"time"

	userstore "github.com/dalemusser/meraki/internal/app/store/users"
	"github.com/dalemusser/meraki/internal/app/system/authutil"
	"github.com/dalemusser/meraki/internal/domain/models"
	"github.com/dalemusser/meraki/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

func newStore(t *testing.T) (*userstore.Store, *mongo.Database) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	s := userstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	if err := s.EnsureIndexes(ctx); err != nil {
		t.Fatalf("EnsureIndexes: %v", err)
	}
	return s, db
}

func TestStore_CreateCredentials(t *testing.T) {
	store, _ := newStore(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	u, err := store.CreateCredentials(ctx, "  Ana  Cruz ", "Ana@Example.com", "hash")
	if err != nil {
		t.Fatalf("CreateCredentials: %v", err)
	}
	if u.ID == primitive.NilObjectID {
		t.Error("expected ID to be assigned")
	}
	if u.Name != "Ana Cruz" || u.Email != "ana@example.com" {
		t.Errorf("normalized name/email = %q / %q", u.Name, u.Email)
	}
	if u.AuthProvider != models.ProviderCredentials {
		t.Errorf("provider = %q", u.AuthProvider)
	}
	if u.Department != models.DefaultDepartment || u.ColorKey != models.DefaultColor {
		t.Errorf("defaults not applied: %q / %q", u.Department, u.ColorKey)
	}

	_, err = store.CreateCredentials(ctx, "Other", "ANA@example.com", "hash")
	if !errors.Is(err, userstore.ErrDuplicateEmail) {
		t.Errorf("duplicate email err = %v, want ErrDuplicateEmail", err)
	}
}

func TestStore_GetByEmail_CaseInsensitive(t *testing.T) {
	store, _ := newStore(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	created, _ := store.CreateCredentials(ctx, "Ana", "ana@example.com", "hash")

	got, err := store.GetByEmail(ctx, " ANA@EXAMPLE.COM ")
	if err != nil {
		t.Fatalf("GetByEmail: %v", err)
	}
	if got.ID != created.ID {
		t.Error("expected the same user")
	}

	if _, err := store.GetByEmail(ctx, "nobody@example.com"); !errors.Is(err, userstore.ErrNotFound) {
		t.Errorf("missing user err = %v, want ErrNotFound", err)
	}
	if _, err := store.GetByHexID(ctx, "not-hex"); !errors.Is(err, userstore.ErrNotFound) {
		t.Errorf("bad hex err = %v, want ErrNotFound", err)
	}
}

func TestStore_UpsertGoogle(t *testing.T) {
	store, _ := newStore(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	p := userstore.GoogleProfile{ID: "g-123", Email: "Ben@Example.com", Name: "Ben", Picture: "https://img/1"}
	u, created, err := store.UpsertGoogle(ctx, p)
	if err != nil {
		t.Fatalf("first UpsertGoogle: %v", err)
	}
	if !created {
		t.Error("expected first sign-in to create the user")
	}
	if u.AuthProvider != models.ProviderGoogle || u.GoogleID != "g-123" || u.Email != "ben@example.com" {
		t.Errorf("created user = %+v", u)
	}

	p.Picture = "https://img/2"
	again, created, err := store.UpsertGoogle(ctx, p)
	if err != nil {
		t.Fatalf("second UpsertGoogle: %v", err)
	}
	if created {
		t.Error("expected second sign-in to reuse the user")
	}
	if again.ID != u.ID || again.Image != "https://img/2" {
		t.Errorf("second sign-in user = %+v", again)
	}
}

func TestStore_UpsertGoogle_LinksCredentialsUser(t *testing.T) {
	store, _ := newStore(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	existing, _ := store.CreateCredentials(ctx, "Cy", "cy@example.com", "hash")

	u, created, err := store.UpsertGoogle(ctx, userstore.GoogleProfile{ID: "g-9", Email: "cy@example.com", Name: "Cy"})
	if err != nil {
		t.Fatalf("UpsertGoogle: %v", err)
	}
	if created || u.ID != existing.ID {
		t.Errorf("expected link to existing user, created=%v id=%s", created, u.ID.Hex())
	}
	if u.GoogleID != "g-9" {
		t.Errorf("google id = %q, want g-9", u.GoogleID)
	}
}

func TestStore_UpdateProfile(t *testing.T) {
	store, _ := newStore(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	u, _ := store.CreateCredentials(ctx, "Dee", "dee@example.com", "hash")

	out, err := store.UpdateProfile(ctx, u.ID, userstore.ProfileUpdate{Name: "Dee Dee", Department: "Multimedia", ColorKey: "purple"})
	if err != nil {
		t.Fatalf("UpdateProfile: %v", err)
	}
	if out.Name != "Dee Dee" || out.Department != "Multimedia" || out.ColorKey != "purple" {
		t.Errorf("updated = %+v", out)
	}
	if out.UpdatedAt.Before(u.UpdatedAt) {
		t.Error("expected UpdatedAt not to move backwards")
	}

	if _, err := store.UpdateProfile(ctx, primitive.NewObjectID(), userstore.ProfileUpdate{Name: "x"}); !errors.Is(err, userstore.ErrNotFound) {
		t.Errorf("missing user err = %v, want ErrNotFound", err)
	}
}

func TestStore_SetPosition_RecomputesColor(t *testing.T) {
	store, _ := newStore(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	_, _ = store.CreateCredentials(ctx, "Eve", "eve@example.com", "hash")
	out, err := store.SetPosition(ctx, "eve@example.com", "advisor")
	if err != nil {
		t.Fatalf("SetPosition: %v", err)
	}
	if out.Position != "advisor" || out.ColorKey != "green" {
		t.Errorf("position/color = %q / %q", out.Position, out.ColorKey)
	}
}

func TestStore_ResetPassword_SingleUse(t *testing.T) {
	store, _ := newStore(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	u, _ := store.CreateCredentials(ctx, "Fay", "fay@example.com", "old")
	token, digest, _ := authutil.NewResetToken()
	now := time.Now().UTC()
	if err := store.SetResetToken(ctx, u.ID, digest, now.Add(time.Hour)); err != nil {
		t.Fatalf("SetResetToken: %v", err)
	}

	out, err := store.ResetPassword(ctx, authutil.HashToken(token), "new", now)
	if err != nil {
		t.Fatalf("ResetPassword: %v", err)
	}
	if out.PasswordHash == nil || *out.PasswordHash != "new" {
		t.Error("expected password to be replaced")
	}
	if out.ResetTokenHash != "" || out.ResetTokenExpiry != nil {
		t.Error("expected token to be cleared")
	}

	if _, err := store.ResetPassword(ctx, digest, "again", now); !errors.Is(err, userstore.ErrInvalidResetToken) {
		t.Errorf("reuse err = %v, want ErrInvalidResetToken", err)
	}
}

func TestStore_ResetPassword_Expired(t *testing.T) {
	store, _ := newStore(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	u, _ := store.CreateCredentials(ctx, "Gus", "gus@example.com", "old")
	_, digest, _ := authutil.NewResetToken()
	now := time.Now().UTC()
	_ = store.SetResetToken(ctx, u.ID, digest, now.Add(-time.Minute))

	if _, err := store.ResetPassword(ctx, digest, "new", now); !errors.Is(err, userstore.ErrInvalidResetToken) {
		t.Errorf("expired err = %v, want ErrInvalidResetToken", err)
	}

	n, err := store.PurgeExpiredResetTokens(ctx, now)
	if err != nil {
		t.Fatalf("PurgeExpiredResetTokens: %v", err)
	}
	if n != 1 {
		t.Errorf("purged %d, want 1", n)
	}
}

func TestStore_ListAll_SortedByName(t *testing.T) {
	store, db := newStore(t)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	fx.CreateMember(ctx, "charlie", "c@example.com")
	fx.CreateMember(ctx, "Alice", "a@example.com")
	fx.CreatePresident(ctx, "bob", "b@example.com")

	users, err := store.ListAll(ctx)
	if err != nil {
		t.Fatalf("ListAll: %v", err)
	}
	want := []string{"Alice", "bob", "charlie"}
	if len(users) != len(want) {
		t.Fatalf("got %d users, want %d", len(users), len(want))
	}
	for i, name := range want {
		if users[i].Name != name {
			t.Errorf("users[%d] = %q, want %q", i, users[i].Name, name)
		}
	}
}

func TestFetcher_FetchUser(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	u := fx.CreatePresident(ctx, "Hana", "hana@example.com")
	f := userstore.NewFetcher(db)

	su := f.FetchUser(ctx, u.ID.Hex())
	if su == nil {
		t.Fatal("expected a session user")
	}
	if su.Position != "president" || su.Email != "hana@example.com" {
		t.Errorf("session user = %+v", su)
	}
	if f.FetchUser(ctx, primitive.NewObjectID().Hex()) != nil {
		t.Error("expected nil for unknown user")
	}
	if f.FetchUser(context.Background(), "bogus") != nil {
		t.Error("expected nil for malformed id")
	}
}
