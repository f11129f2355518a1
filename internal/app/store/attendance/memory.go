// internal/app/store/attendance/memory.go
package attendancestore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/dalemusser/meraki/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Memory is an in-process attendance store for development and tests.
//
// It has no unique index or conditional update to lean on, so every
// check-and-write for a user runs under that user's lock. Locks for
// different users never contend.
type Memory struct {
	mu      sync.RWMutex
	records map[string]map[string]models.AttendanceRecord // user_id -> date -> record

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

// NewMemory returns an empty Memory store.
func NewMemory() *Memory {
	return &Memory{
		records: make(map[string]map[string]models.AttendanceRecord),
		locks:   make(map[string]*sync.Mutex),
	}
}

func (m *Memory) userLock(userID string) *sync.Mutex {
	m.locksMu.Lock()
	defer m.locksMu.Unlock()
	l, ok := m.locks[userID]
	if !ok {
		l = &sync.Mutex{}
		m.locks[userID] = l
	}
	return l
}

func (m *Memory) FindDay(_ context.Context, userID, date string) (*models.AttendanceRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.records[userID][date]
	if !ok {
		return nil, nil
	}
	return cloneRecord(rec), nil
}

func (m *Memory) InsertTimeIn(_ context.Context, rec models.AttendanceRecord) (models.AttendanceRecord, error) {
	l := m.userLock(rec.UserID)
	l.Lock()
	defer l.Unlock()

	m.mu.Lock()
	defer m.mu.Unlock()

	days, ok := m.records[rec.UserID]
	if !ok {
		days = make(map[string]models.AttendanceRecord)
		m.records[rec.UserID] = days
	}
	if _, exists := days[rec.Date]; exists {
		return models.AttendanceRecord{}, ErrDuplicateDay
	}
	if rec.ID.IsZero() {
		rec.ID = primitive.NewObjectID()
	}
	rec.TimeOut = nil
	rec.TimeOutImage = nil
	days[rec.Date] = *cloneRecord(rec)
	return *cloneRecord(rec), nil
}

func (m *Memory) CloseTimeOut(_ context.Context, userID, date string, at time.Time, img *models.MediaRef) (models.AttendanceRecord, error) {
	l := m.userLock(userID)
	l.Lock()
	defer l.Unlock()

	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[userID][date]
	if !ok || rec.TimeOut != nil {
		return models.AttendanceRecord{}, ErrNoOpenRecord
	}
	rec.TimeOut = &at
	rec.UpdatedAt = at
	if img != nil {
		ref := *img
		rec.TimeOutImage = &ref
	}
	m.records[userID][date] = rec
	return *cloneRecord(rec), nil
}

func (m *Memory) ListByUser(_ context.Context, userID string, limit int64) ([]models.AttendanceRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]models.AttendanceRecord, 0, len(m.records[userID]))
	for _, rec := range m.records[userID] {
		out = append(out, *cloneRecord(rec))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date > out[j].Date })
	if limit > 0 && int64(len(out)) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *Memory) ListByDate(_ context.Context, date string) ([]models.AttendanceRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]models.AttendanceRecord, 0)
	for _, days := range m.records {
		if rec, ok := days[date]; ok {
			out = append(out, *cloneRecord(rec))
		}
	}
	return out, nil
}

func (m *Memory) LatestTimeIns(_ context.Context) (map[string]time.Time, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string]time.Time, len(m.records))
	for userID, days := range m.records {
		for _, rec := range days {
			if last, ok := out[userID]; !ok || rec.TimeIn.After(last) {
				out[userID] = rec.TimeIn
			}
		}
	}
	return out, nil
}

// cloneRecord copies the pointer fields so callers cannot mutate stored state.
func cloneRecord(rec models.AttendanceRecord) *models.AttendanceRecord {
	c := rec
	if rec.TimeOut != nil {
		t := *rec.TimeOut
		c.TimeOut = &t
	}
	if rec.TimeInImage != nil {
		ref := *rec.TimeInImage
		c.TimeInImage = &ref
	}
	if rec.TimeOutImage != nil {
		ref := *rec.TimeOutImage
		c.TimeOutImage = &ref
	}
	return &c
}
