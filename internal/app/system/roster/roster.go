// Package roster builds the administrator's view of every user joined with
// their attendance for today.
package roster

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/dalemusser/meraki/internal/app/policy/accesspolicy"
	"github.com/dalemusser/meraki/internal/app/system/apperr"
	"github.com/dalemusser/meraki/internal/domain/models"
)

// UserLister returns every user. userstore.Store implements it.
type UserLister interface {
	ListAll(ctx context.Context) ([]models.User, error)
}

// AttendanceReader is the read side of the attendance store.
type AttendanceReader interface {
	ListByDate(ctx context.Context, date string) ([]models.AttendanceRecord, error)
	LatestTimeIns(ctx context.Context) (map[string]time.Time, error)
}

// UserSummary is one row of the roster.
type UserSummary struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Email        string     `json:"email"`
	Image        string     `json:"image,omitempty"`
	Provider     string     `json:"provider"`
	Department   string     `json:"department"`
	Position     string     `json:"position"`
	Color        string     `json:"color"`
	CreatedAt    time.Time  `json:"createdAt"`
	TimedInToday bool       `json:"timedInToday"`
	TimeInToday  *time.Time `json:"timeInToday"`
	TimeOutToday *time.Time `json:"timeOutToday"`
	LastTimeIn   *time.Time `json:"lastTimeIn"`
}

// Service answers roster queries.
type Service struct {
	users      UserLister
	attendance AttendanceReader
	today      func() string
}

// New returns a roster Service. today yields the current day key and
// should be the ledger's Today so both agree on the calendar day.
func New(users UserLister, attendance AttendanceReader, today func() string) *Service {
	return &Service{users: users, attendance: attendance, today: today}
}

// ListAllUsersWithStatus returns every user with today's attendance and
// their most recent time-in, sorted by name. Only elevated users may call
// it; everyone else gets AccessDenied.
func (s *Service) ListAllUsersWithStatus(ctx context.Context, acting models.User) ([]UserSummary, error) {
	if !accesspolicy.CanListAllUsers(acting) {
		return nil, apperr.ErrAccessDenied
	}

	users, err := s.users.ListAll(ctx)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "failed to load users", err)
	}
	todays, err := s.attendance.ListByDate(ctx, s.today())
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "failed to load attendance", err)
	}
	latest, err := s.attendance.LatestTimeIns(ctx)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "failed to load attendance", err)
	}

	byUser := make(map[string]models.AttendanceRecord, len(todays))
	for _, rec := range todays {
		byUser[rec.UserID] = rec
	}

	out := make([]UserSummary, 0, len(users))
	for _, u := range users {
		id := u.ID.Hex()
		sum := UserSummary{
			ID:         id,
			Name:       u.Name,
			Email:      u.Email,
			Image:      u.Image,
			Provider:   u.AuthProvider,
			Department: orDefault(u.Department, models.DefaultDepartment),
			Position:   orDefault(u.Position, models.DefaultPosition),
			Color:      orDefault(u.ColorKey, models.DefaultColor),
			CreatedAt:  u.CreatedAt,
		}
		if rec, ok := byUser[id]; ok {
			in := rec.TimeIn
			sum.TimedInToday = true
			sum.TimeInToday = &in
			if rec.TimeOut != nil {
				t := *rec.TimeOut
				sum.TimeOutToday = &t
			}
		}
		if t, ok := latest[id]; ok {
			sum.LastTimeIn = &t
		}
		out = append(out, sum)
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := strings.ToLower(out[i].Name), strings.ToLower(out[j].Name)
		if a != b {
			return a < b
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}
