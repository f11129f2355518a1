package testutil

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/dalemusser/meraki/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// WithChiURLParam adds a chi URL parameter to the request context.
// Use this in handler tests that need to access chi.URLParam values.
func WithChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// Fixtures provides helper methods for creating test data.
type Fixtures struct {
	db *mongo.Database
	t  *testing.T
}

// NewFixtures creates a new Fixtures instance for the given test database.
func NewFixtures(t *testing.T, db *mongo.Database) *Fixtures {
	t.Helper()
	return &Fixtures{db: db, t: t}
}

// DB returns the underlying database for direct access in tests.
func (f *Fixtures) DB() *mongo.Database {
	return f.db
}

// CreateUser inserts a Google-provider user with the given position.
func (f *Fixtures) CreateUser(ctx context.Context, name, email, position string) models.User {
	f.t.Helper()

	now := time.Now().UTC()
	u := models.User{
		ID:           primitive.NewObjectID(),
		Name:         name,
		NameCI:       text.Fold(name),
		Email:        email,
		AuthProvider: models.ProviderGoogle,
		Position:     position,
		ColorKey:     models.ColorFor(position, ""),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if _, err := f.db.Collection("users").InsertOne(ctx, u); err != nil {
		f.t.Fatalf("failed to create test user: %v", err)
	}
	return u
}

// CreateMember creates a user with the member position.
func (f *Fixtures) CreateMember(ctx context.Context, name, email string) models.User {
	f.t.Helper()
	return f.CreateUser(ctx, name, email, "member")
}

// CreatePresident creates a user with an elevated position.
func (f *Fixtures) CreatePresident(ctx context.Context, name, email string) models.User {
	f.t.Helper()
	return f.CreateUser(ctx, name, email, "president")
}

// CreateAttendance inserts a record directly, bypassing the ledger.
// A nil timeOut leaves the record open.
func (f *Fixtures) CreateAttendance(ctx context.Context, u models.User, date string, timeIn time.Time, timeOut *time.Time) models.AttendanceRecord {
	f.t.Helper()

	rec := models.AttendanceRecord{
		ID:        primitive.NewObjectID(),
		UserID:    u.ID.Hex(),
		UserName:  u.Name,
		UserEmail: u.Email,
		Date:      date,
		TimeIn:    timeIn.UTC().Truncate(time.Millisecond),
		CreatedAt: timeIn.UTC().Truncate(time.Millisecond),
		UpdatedAt: timeIn.UTC().Truncate(time.Millisecond),
	}
	if timeOut != nil {
		out := timeOut.UTC().Truncate(time.Millisecond)
		rec.TimeOut = &out
		rec.UpdatedAt = out
	}
	if _, err := f.db.Collection("attendance").InsertOne(ctx, rec); err != nil {
		f.t.Fatalf("failed to create test attendance: %v", err)
	}
	return rec
}
