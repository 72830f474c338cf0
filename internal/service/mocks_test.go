package service

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/sykkeldel/locker-server/internal/model"
	"github.com/sykkeldel/locker-server/internal/sse"
)

type mockAppointmentRepo struct {
	mock.Mock
}

func (m *mockAppointmentRepo) FindLatest(ctx context.Context, serviceID, staffID int64) (*model.Appointment, error) {
	args := m.Called(ctx, serviceID, staffID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Appointment), args.Error(1)
}

func (m *mockAppointmentRepo) FindSiblings(ctx context.Context, serviceID, staffID, excludeID int64) ([]model.Appointment, error) {
	args := m.Called(ctx, serviceID, staffID, excludeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Appointment), args.Error(1)
}

func (m *mockAppointmentRepo) UpdateStart(ctx context.Context, id int64, startAt time.Time) error {
	args := m.Called(ctx, id, startAt)
	return args.Error(0)
}

func (m *mockAppointmentRepo) CountOverlapping(ctx context.Context, serviceID, staffID int64, from, to time.Time) (int, error) {
	args := m.Called(ctx, serviceID, staffID, from, to)
	return args.Int(0), args.Error(1)
}

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) NotifyAccess(ctx context.Context, n AccessNotification) error {
	args := m.Called(ctx, n)
	return args.Error(0)
}

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) Publish(ctx context.Context, topic string, event sse.Event) error {
	args := m.Called(ctx, topic, event)
	return args.Error(0)
}
