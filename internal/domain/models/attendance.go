// internal/domain/models/attendance.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DateLayout is the calendar-day key format of an AttendanceRecord.
const DateLayout = "2006-01-02"

// MediaRef points at a captured photo in the object store.
//
// Only PublicRef is persisted. URL and ThumbnailURL are time-limited links
// that are resolved again every time the record is read.
type MediaRef struct {
	PublicRef    string `bson:"public_ref" json:"publicRef"`
	URL          string `bson:"-" json:"url,omitempty"`
	ThumbnailURL string `bson:"-" json:"thumbnail,omitempty"`
}

// AttendanceRecord is one user's attendance for one calendar day.
//
// At most one record exists per (UserID, Date); a unique index enforces it.
// TimeOut is only ever set on a record that already has TimeIn, and is
// strictly later than it.
type AttendanceRecord struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID    string             `bson:"user_id" json:"userId"`
	UserName  string             `bson:"user_name" json:"userName"`
	UserEmail string             `bson:"user_email" json:"userEmail"`
	Date      string             `bson:"date" json:"date"` // YYYY-MM-DD, server assigned

	TimeIn       time.Time  `bson:"time_in" json:"timeIn"`
	TimeInImage  *MediaRef  `bson:"time_in_image,omitempty" json:"timeInImage,omitempty"`
	TimeOut      *time.Time `bson:"time_out,omitempty" json:"timeOut,omitempty"`
	TimeOutImage *MediaRef  `bson:"time_out_image,omitempty" json:"timeOutImage,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
}

// AttendanceStatus is the state of a record in the day's state machine.
type AttendanceStatus string

const (
	StatusAbsent     AttendanceStatus = "absent"      // no record for the day
	StatusInProgress AttendanceStatus = "in_progress" // timed in, not out
	StatusComplete   AttendanceStatus = "complete"    // timed in and out; terminal
)

// Status reports where the record sits in the day's state machine.
// A nil record is absent.
func (r *AttendanceRecord) Status() AttendanceStatus {
	switch {
	case r == nil:
		return StatusAbsent
	case r.TimeOut != nil:
		return StatusComplete
	default:
		return StatusInProgress
	}
}
