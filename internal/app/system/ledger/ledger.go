// Package ledger owns the attendance state machine.
//
// Each user has at most one record per calendar day:
//
//	[no record] --SubmitTimeIn--> in progress --SubmitTimeOut--> complete
//
// Complete is terminal. The day key is always computed here from the
// server clock in the configured location; clients never supply it.
// Atomicity comes from the Store: InsertTimeIn is guarded by a unique
// (user, date) index and CloseTimeOut is a single conditional update.
package ledger

import (
	"context"
	"errors"
	"time"

	attendancestore "github.com/dalemusser/meraki/internal/app/store/attendance"
	"github.com/dalemusser/meraki/internal/app/system/apperr"
	"github.com/dalemusser/meraki/internal/app/system/auth"
	"github.com/dalemusser/meraki/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// MaxListLimit bounds ListForUser.
const MaxListLimit = 50

// Image folders, one per transition.
const (
	FolderTimeIn  = "attendance/time-in"
	FolderTimeOut = "attendance/time-out"
)

// Store is the persistence the ledger needs. attendancestore.Store and
// attendancestore.Memory implement it.
type Store interface {
	FindDay(ctx context.Context, userID, date string) (*models.AttendanceRecord, error)
	InsertTimeIn(ctx context.Context, rec models.AttendanceRecord) (models.AttendanceRecord, error)
	CloseTimeOut(ctx context.Context, userID, date string, at time.Time, img *models.MediaRef) (models.AttendanceRecord, error)
	ListByUser(ctx context.Context, userID string, limit int64) ([]models.AttendanceRecord, error)
}

// MediaStore stores captured photos, resolves their links and removes photos
// whose transition was rejected after upload. media.Adapter implements it.
type MediaStore interface {
	Store(ctx context.Context, payload, folder string) (models.MediaRef, error)
	Resolve(ctx context.Context, ref *models.MediaRef) error
	Delete(ctx context.Context, publicRef string) error
}

// Recorder observes completed and rejected transitions.
type Recorder interface {
	AttendanceTransition(transition, outcome string)
}

// Options configure a Service. Zero values pick sensible defaults.
type Options struct {
	Location *time.Location   // calendar-day zone; UTC when nil
	Now      func() time.Time // clock; time.Now when nil
	Recorder Recorder
	Logger   *zap.Logger
}

// Service is the attendance ledger.
type Service struct {
	store Store
	media MediaStore
	loc   *time.Location
	now   func() time.Time
	rec   Recorder
	log   *zap.Logger
}

// New returns a ledger over store. media may be nil when photos are disabled;
// submissions carrying an image then fail with MediaUploadFailed.
func New(store Store, media MediaStore, opts Options) *Service {
	s := &Service{store: store, media: media, loc: opts.Location, now: opts.Now, rec: opts.Recorder, log: opts.Logger}
	if s.loc == nil {
		s.loc = time.UTC
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	return s
}

// Today returns the current calendar-day key.
func (s *Service) Today() string {
	return s.now().In(s.loc).Format(models.DateLayout)
}

// clock returns now at the store's millisecond precision.
func (s *Service) clock() time.Time {
	return s.now().UTC().Truncate(time.Millisecond)
}

/*─────────────────────────────────────────────────────────────────────────────*
| Transitions                                                                 |
*─────────────────────────────────────────────────────────────────────────────*/

// SubmitTimeIn opens today's record for p.
//
// Fails with DuplicateTimeIn when a record for today already exists and
// with MediaUploadFailed when the photo cannot be stored; in both cases
// nothing is written.
func (s *Service) SubmitTimeIn(ctx context.Context, p auth.Principal, image string) (models.AttendanceRecord, error) {
	rec, err := s.submitTimeIn(ctx, p, image)
	s.observe("time_in", err)
	return rec, err
}

func (s *Service) submitTimeIn(ctx context.Context, p auth.Principal, image string) (models.AttendanceRecord, error) {
	if p.UserID == "" {
		return models.AttendanceRecord{}, apperr.ErrUnauthenticated
	}
	date := s.Today()

	// Reject the obvious duplicate before uploading anything. The unique
	// index below is what actually guarantees one record per day.
	existing, err := s.store.FindDay(ctx, p.UserID, date)
	if err != nil {
		return models.AttendanceRecord{}, apperr.Wrap(apperr.Internal, "failed to load attendance", err)
	}
	if existing != nil {
		return models.AttendanceRecord{}, apperr.ErrDuplicateTimeIn
	}

	img, err := s.storeImage(ctx, image, FolderTimeIn)
	if err != nil {
		return models.AttendanceRecord{}, err
	}

	now := s.clock()
	rec := models.AttendanceRecord{
		ID:          primitive.NewObjectID(),
		UserID:      p.UserID,
		UserName:    p.Name,
		UserEmail:   p.Email,
		Date:        date,
		TimeIn:      now,
		TimeInImage: img,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	out, err := s.store.InsertTimeIn(ctx, rec)
	if err != nil {
		s.discardImage(ctx, img)
	}
	if errors.Is(err, attendancestore.ErrDuplicateDay) {
		s.log.Info("concurrent time-in rejected by unique index",
			zap.String("user_id", p.UserID), zap.String("date", date))
		return models.AttendanceRecord{}, apperr.ErrDuplicateTimeIn
	}
	if err != nil {
		return models.AttendanceRecord{}, apperr.Wrap(apperr.Internal, "failed to record time-in", err)
	}
	s.resolve(ctx, &out)
	return out, nil
}

// SubmitTimeOut closes today's open record for userID.
//
// Fails with NoOpenTimeIn when there is no record for today or it is
// already closed, and with MediaUploadFailed when the photo cannot be
// stored; in both cases nothing is written.
func (s *Service) SubmitTimeOut(ctx context.Context, userID, image string) (models.AttendanceRecord, error) {
	rec, err := s.submitTimeOut(ctx, userID, image)
	s.observe("time_out", err)
	return rec, err
}

func (s *Service) submitTimeOut(ctx context.Context, userID, image string) (models.AttendanceRecord, error) {
	if userID == "" {
		return models.AttendanceRecord{}, apperr.ErrUnauthenticated
	}
	date := s.Today()

	open, err := s.store.FindDay(ctx, userID, date)
	if err != nil {
		return models.AttendanceRecord{}, apperr.Wrap(apperr.Internal, "failed to load attendance", err)
	}
	if open == nil || open.TimeOut != nil {
		return models.AttendanceRecord{}, apperr.ErrNoOpenTimeIn
	}

	img, err := s.storeImage(ctx, image, FolderTimeOut)
	if err != nil {
		return models.AttendanceRecord{}, err
	}

	at := s.clock()
	if !at.After(open.TimeIn) {
		at = open.TimeIn.Add(time.Millisecond)
	}

	out, err := s.store.CloseTimeOut(ctx, userID, date, at, img)
	if err != nil {
		s.discardImage(ctx, img)
	}
	if errors.Is(err, attendancestore.ErrNoOpenRecord) {
		return models.AttendanceRecord{}, apperr.ErrNoOpenTimeIn
	}
	if err != nil {
		return models.AttendanceRecord{}, apperr.Wrap(apperr.Internal, "failed to record time-out", err)
	}
	s.resolve(ctx, &out)
	return out, nil
}

func (s *Service) storeImage(ctx context.Context, image, folder string) (*models.MediaRef, error) {
	if image == "" {
		return nil, nil
	}
	if s.media == nil {
		return nil, apperr.New(apperr.MediaUploadFailed, "photo storage is not configured")
	}
	ref, err := s.media.Store(ctx, image, folder)
	if err != nil {
		var ae *apperr.Error
		if errors.As(err, &ae) {
			return nil, err
		}
		return nil, apperr.Wrap(apperr.MediaUploadFailed, apperr.ErrMediaUploadFailed.Message, err)
	}
	return &ref, nil
}

// discardImage removes a photo uploaded for a transition the store then
// rejected. Failures are logged and otherwise ignored.
func (s *Service) discardImage(ctx context.Context, img *models.MediaRef) {
	if img == nil || s.media == nil {
		return
	}
	if err := s.media.Delete(context.WithoutCancel(ctx), img.PublicRef); err != nil {
		s.log.Warn("failed to remove photo for rejected transition",
			zap.String("ref", img.PublicRef), zap.Error(err))
	}
}

func (s *Service) observe(transition string, err error) {
	if s.rec == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = string(apperr.KindOf(err))
	}
	s.rec.AttendanceTransition(transition, outcome)
}

/*─────────────────────────────────────────────────────────────────────────────*
| Reads                                                                       |
*─────────────────────────────────────────────────────────────────────────────*/

// ListForUser returns the user's records, newest first, with fresh image
// links. limit <= 0 means MaxListLimit; larger values are capped to it.
func (s *Service) ListForUser(ctx context.Context, userID string, limit int) ([]models.AttendanceRecord, error) {
	if userID == "" {
		return nil, apperr.ErrUnauthenticated
	}
	if limit <= 0 || limit > MaxListLimit {
		limit = MaxListLimit
	}
	recs, err := s.store.ListByUser(ctx, userID, int64(limit))
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "failed to load attendance", err)
	}
	for i := range recs {
		s.resolve(ctx, &recs[i])
	}
	return recs, nil
}

// GetTodayFor returns today's record for userID, or nil when there is none.
func (s *Service) GetTodayFor(ctx context.Context, userID string) (*models.AttendanceRecord, error) {
	if userID == "" {
		return nil, apperr.ErrUnauthenticated
	}
	rec, err := s.store.FindDay(ctx, userID, s.Today())
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "failed to load attendance", err)
	}
	if rec != nil {
		s.resolve(ctx, rec)
	}
	return rec, nil
}

// TodayStatus summarizes where the user is in today's state machine.
type TodayStatus struct {
	Record      *models.AttendanceRecord `json:"record"`
	Status      models.AttendanceStatus  `json:"status"`
	HasTimedIn  bool                     `json:"hasTimedIn"`
	HasTimedOut bool                     `json:"hasTimedOut"`
}

// TodayStatus returns today's record and its derived flags.
func (s *Service) TodayStatus(ctx context.Context, userID string) (TodayStatus, error) {
	rec, err := s.GetTodayFor(ctx, userID)
	if err != nil {
		return TodayStatus{}, err
	}
	status := rec.Status()
	return TodayStatus{
		Record:      rec,
		Status:      status,
		HasTimedIn:  status != models.StatusAbsent,
		HasTimedOut: status == models.StatusComplete,
	}, nil
}

// resolve refreshes image links. A failed resolution leaves the links
// empty and is logged; the record itself is still returned.
func (s *Service) resolve(ctx context.Context, rec *models.AttendanceRecord) {
	if s.media == nil {
		return
	}
	for _, ref := range []*models.MediaRef{rec.TimeInImage, rec.TimeOutImage} {
		if ref == nil {
			continue
		}
		if err := s.media.Resolve(ctx, ref); err != nil {
			s.log.Warn("failed to resolve media link",
				zap.String("record_id", rec.ID.Hex()),
				zap.String("ref", ref.PublicRef),
				zap.Error(err))
		}
	}
}
