// internal/app/store/attendance/store.go
package attendancestore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dalemusser/meraki/internal/app/system/timeouts"
	"github.com/dalemusser/meraki/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	// ErrDuplicateDay is returned when a record already exists for (user, date).
	ErrDuplicateDay = errors.New("attendance already recorded for this day")
	// ErrNoOpenRecord is returned when there is no timed-in, not-yet-timed-out
	// record for (user, date).
	ErrNoOpenRecord = errors.New("no open attendance record for this day")
)

// Collection is the MongoDB collection holding attendance records.
const Collection = "attendance"

// Store persists attendance records in MongoDB.
//
// One-record-per-day is enforced by the unique {user_id, date} index, and
// time-out is a single conditional update; neither relies on a prior read.
type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection(Collection)}
}

// EnsureIndexes creates the unique day index and the per-user history index.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.c.Indexes().CreateMany(ctx, IndexModels())
	return err
}

// IndexModels returns the indexes the collection depends on.
func IndexModels() []mongo.IndexModel {
	return []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "date", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_attendance_user_date"),
		},
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "date", Value: -1}},
			Options: options.Index().SetName("idx_attendance_user_date_desc"),
		},
		{
			Keys:    bson.D{{Key: "date", Value: 1}},
			Options: options.Index().SetName("idx_attendance_date"),
		},
	}
}

// FindDay returns the record for (userID, date), or nil when none exists.
func (s *Store) FindDay(ctx context.Context, userID, date string) (*models.AttendanceRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, timeouts.Short())
	defer cancel()

	var rec models.AttendanceRecord
	err := s.c.FindOne(ctx, bson.M{"user_id": userID, "date": date}).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find attendance day: %w", err)
	}
	return &rec, nil
}

// InsertTimeIn inserts a new open record. A second insert for the same
// (user, date) fails with ErrDuplicateDay.
func (s *Store) InsertTimeIn(ctx context.Context, rec models.AttendanceRecord) (models.AttendanceRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, timeouts.Short())
	defer cancel()

	if rec.ID.IsZero() {
		rec.ID = primitive.NewObjectID()
	}
	rec.TimeOut = nil
	rec.TimeOutImage = nil

	if _, err := s.c.InsertOne(ctx, rec); err != nil {
		if wafflemongo.IsDup(err) {
			return models.AttendanceRecord{}, ErrDuplicateDay
		}
		return models.AttendanceRecord{}, fmt.Errorf("insert attendance: %w", err)
	}
	return rec, nil
}

// CloseTimeOut sets time_out on the open record for (userID, date). The
// filter is the precondition, so a record that is missing or already
// closed matches nothing and yields ErrNoOpenRecord.
func (s *Store) CloseTimeOut(ctx context.Context, userID, date string, at time.Time, img *models.MediaRef) (models.AttendanceRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, timeouts.Short())
	defer cancel()

	filter := bson.M{
		"user_id":  userID,
		"date":     date,
		"time_in":  bson.M{"$exists": true},
		"time_out": bson.M{"$exists": false},
	}
	set := bson.M{"time_out": at, "updated_at": at}
	if img != nil {
		set["time_out_image"] = img
	}

	var rec models.AttendanceRecord
	err := s.c.FindOneAndUpdate(ctx, filter, bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.AttendanceRecord{}, ErrNoOpenRecord
	}
	if err != nil {
		return models.AttendanceRecord{}, fmt.Errorf("close attendance: %w", err)
	}
	return rec, nil
}

// ListByUser returns the user's records, newest date first.
func (s *Store) ListByUser(ctx context.Context, userID string, limit int64) ([]models.AttendanceRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, timeouts.Medium())
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "date", Value: -1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}
	return s.find(ctx, bson.M{"user_id": userID}, opts)
}

// ListByDate returns every record for one calendar day.
func (s *Store) ListByDate(ctx context.Context, date string) ([]models.AttendanceRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, timeouts.Medium())
	defer cancel()

	return s.find(ctx, bson.M{"date": date}, options.Find())
}

// LatestTimeIns returns, per user_id, the most recent time_in across all
// days.
func (s *Store) LatestTimeIns(ctx context.Context) (map[string]time.Time, error) {
	ctx, cancel := context.WithTimeout(ctx, timeouts.Medium())
	defer cancel()

	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$user_id"},
			{Key: "last", Value: bson.D{{Key: "$max", Value: "$time_in"}}},
		}}},
	}
	cur, err := s.c.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("aggregate latest time-ins: %w", err)
	}
	defer cur.Close(ctx)

	out := make(map[string]time.Time)
	for cur.Next(ctx) {
		var row struct {
			UserID string    `bson:"_id"`
			Last   time.Time `bson:"last"`
		}
		if err := cur.Decode(&row); err != nil {
			return nil, fmt.Errorf("decode latest time-in: %w", err)
		}
		out[row.UserID] = row.Last
	}
	return out, cur.Err()
}

func (s *Store) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]models.AttendanceRecord, error) {
	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find attendance: %w", err)
	}
	defer cur.Close(ctx)

	out := make([]models.AttendanceRecord, 0)
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode attendance: %w", err)
	}
	return out, nil
}
