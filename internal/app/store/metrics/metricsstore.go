package metricsstore

import (
	"context"

	"github.com/dalemusser/meraki/internal/app/system/timeouts"
	"github.com/dalemusser/meraki/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// Counts is the set of totals exported as gauges.
type Counts struct {
	Users          int64
	TimedInToday   int64
	CompletedToday int64
}

// DayLister lists the attendance records of one day. attendancestore.Memory
// implements it.
type DayLister interface {
	ListByDate(ctx context.Context, date string) ([]models.AttendanceRecord, error)
}

// FetchAttendanceCounts returns the headline counts for date (YYYY-MM-DD).
// Users are always counted in db. Attendance is counted from days when it is
// non-nil and from the attendance collection otherwise.
// Intentionally tolerant: on error it returns 0 for that counter.
func FetchAttendanceCounts(ctx context.Context, db *mongo.Database, days DayLister, date string) Counts {
	ctx, cancel := context.WithTimeout(ctx, timeouts.Medium())
	defer cancel()

	var out Counts

	if n, err := db.Collection("users").CountDocuments(ctx, bson.M{}); err == nil {
		out.Users = n
	}

	if days != nil {
		if recs, err := days.ListByDate(ctx, date); err == nil {
			for _, r := range recs {
				out.TimedInToday++
				if r.TimeOut != nil {
					out.CompletedToday++
				}
			}
		}
		return out
	}

	// every record for the day has a time-in
	if n, err := db.Collection("attendance").CountDocuments(ctx, bson.M{"date": date}); err == nil {
		out.TimedInToday = n
	}

	completed := bson.M{"date": date, "time_out": bson.M{"$exists": true}}
	if n, err := db.Collection("attendance").CountDocuments(ctx, completed); err == nil {
		out.CompletedToday = n
	}

	return out
}
