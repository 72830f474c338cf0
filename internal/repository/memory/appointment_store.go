package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/sykkeldel/locker-server/internal/model"
	"github.com/sykkeldel/locker-server/internal/repository"
)

type AppointmentStore struct {
	mu     sync.RWMutex
	nextID int64
	appts  map[int64]model.Appointment
}

var _ repository.AppointmentRepository = (*AppointmentStore)(nil)

func NewAppointmentStore() *AppointmentStore {
	return &AppointmentStore{appts: make(map[int64]model.Appointment)}
}

// Add stores an appointment, assigning the next id when ID is zero.
func (s *AppointmentStore) Add(appt model.Appointment) model.Appointment {
	s.mu.Lock()
	defer s.mu.Unlock()

	if appt.ID == 0 {
		s.nextID++
		appt.ID = s.nextID
	} else if appt.ID > s.nextID {
		s.nextID = appt.ID
	}
	s.appts[appt.ID] = appt
	return appt
}

// Get returns a copy of the stored appointment.
func (s *AppointmentStore) Get(id int64) (model.Appointment, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.appts[id]
	return a, ok
}

func (s *AppointmentStore) FindLatest(_ context.Context, serviceID, staffID int64) (*model.Appointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest *model.Appointment
	for _, a := range s.appts {
		if a.ServiceID != serviceID || a.StaffID != staffID {
			continue
		}
		if latest == nil || a.ID > latest.ID {
			a := a
			latest = &a
		}
	}
	return latest, nil
}

func (s *AppointmentStore) FindSiblings(_ context.Context, serviceID, staffID, excludeID int64) ([]model.Appointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []model.Appointment
	for _, a := range s.appts {
		if a.ServiceID == serviceID && a.StaffID == staffID && a.ID != excludeID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartAt.Before(out[j].StartAt) })
	return out, nil
}

func (s *AppointmentStore) UpdateStart(_ context.Context, id int64, startAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.appts[id]
	if !ok {
		return repository.ErrNoRowsAffected
	}
	a.StartAt = startAt
	s.appts[id] = a
	return nil
}

func (s *AppointmentStore) CountOverlapping(_ context.Context, serviceID, staffID int64, from, to time.Time) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, a := range s.appts {
		if a.ServiceID != serviceID || a.StaffID != staffID {
			continue
		}
		if !a.StartAt.After(to) && !a.EndAt.Before(from) {
			n++
		}
	}
	return n, nil
}
