package audit_test

import (
	"testing"
	"time"

	"github.com/dalemusser/meraki/internal/app/store/audit"
	"github.com/dalemusser/meraki/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestStore_Log(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := audit.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	userID := primitive.NewObjectID()
	event := audit.Event{
		Category:  audit.CategoryAuth,
		EventType: audit.EventLoginSuccess,
		UserID:    &userID,
		IP:        "192.168.1.1",
		UserAgent: "TestBrowser/1.0",
		Success:   true,
	}

	if err := store.Log(ctx, event); err != nil {
		t.Fatalf("Log failed: %v", err)
	}

	events, err := store.GetByUser(ctx, userID, 10)
	if err != nil {
		t.Fatalf("GetByUser failed: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].ID.IsZero() || events[0].Timestamp.IsZero() {
		t.Error("expected ID and Timestamp to be generated")
	}
}

func TestStore_Query_Filters(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := audit.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	userID := primitive.NewObjectID()
	base := time.Now().UTC().Add(-time.Hour)
	events := []audit.Event{
		{Category: audit.CategoryAttendance, EventType: audit.EventTimeIn, UserID: &userID, Success: true, Timestamp: base},
		{Category: audit.CategoryAttendance, EventType: audit.EventTimeOut, UserID: &userID, Success: true, Timestamp: base.Add(8 * time.Hour)},
		{Category: audit.CategoryAuth, EventType: audit.EventLogout, UserID: &userID, Success: true, Timestamp: base.Add(9 * time.Hour)},
	}
	for _, e := range events {
		if err := store.Log(ctx, e); err != nil {
			t.Fatalf("Log: %v", err)
		}
	}

	got, err := store.Query(ctx, audit.QueryFilter{Category: audit.CategoryAttendance})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 attendance events, got %d", len(got))
	}
	if got[0].EventType != audit.EventTimeOut {
		t.Errorf("expected newest first, got %s", got[0].EventType)
	}

	n, err := store.CountByFilter(ctx, audit.QueryFilter{UserID: &userID, EventType: audit.EventLogout})
	if err != nil {
		t.Fatalf("CountByFilter: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 logout, got %d", n)
	}
}

func TestStore_GetFailedLogins(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := audit.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	since := time.Now().UTC().Add(-time.Minute)
	_ = store.Log(ctx, audit.Event{Category: audit.CategoryAuth, EventType: audit.EventLoginFailedWrongPassword})
	_ = store.Log(ctx, audit.Event{Category: audit.CategoryAuth, EventType: audit.EventLoginFailedWrongProvider})
	_ = store.Log(ctx, audit.Event{Category: audit.CategoryAuth, EventType: audit.EventLoginSuccess, Success: true})

	got, err := store.GetFailedLogins(ctx, since, 10)
	if err != nil {
		t.Fatalf("GetFailedLogins: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("expected 2 failed logins, got %d", len(got))
	}
}
