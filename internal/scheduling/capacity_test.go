package scheduling

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/bolttesting/Bookly-sub001/internal/domain"
)

func TestEnsureCapacity_ExactSeatCount(t *testing.T) {
	m := newMemStore()
	svc := m.addService(multiService(60, 3))
	g := NewCapacityGuard(m)
	check := CapacityCheck{
		BusinessID:        bizID,
		ServiceID:         svc.ID,
		Start:             at(10, 0),
		End:               at(11, 0),
		MaxClientsPerSlot: svc.MaxClientsPerSlot,
	}

	var booked []domain.Appointment
	for i := 0; i < 3; i++ {
		if err := g.EnsureCapacity(context.Background(), check); err != nil {
			t.Fatalf("booking %d: EnsureCapacity error: %v", i+1, err)
		}
		booked = append(booked, m.book(domain.Appointment{ServiceID: svc.ID, CustomerID: uuid.New(), StartTime: at(10, 0), EndTime: at(11, 0)}))
	}

	if err := g.EnsureCapacity(context.Background(), check); !errors.Is(err, ErrSeatsExhausted) {
		t.Fatalf("fourth booking error = %v, want ErrSeatsExhausted", err)
	}

	m.setStatus(booked[1].ID, domain.AppointmentStatusCancelled)
	if err := g.EnsureCapacity(context.Background(), check); err != nil {
		t.Fatalf("after cancellation: EnsureCapacity error: %v", err)
	}
}

func TestEnsureCapacity_OnlyCountsOverlappingBookingsOfTheService(t *testing.T) {
	m := newMemStore()
	svc := m.addService(multiService(60, 1))
	other := m.addService(multiService(60, 1))
	m.book(domain.Appointment{ServiceID: svc.ID, StartTime: at(9, 0), EndTime: at(10, 0)})
	m.book(domain.Appointment{ServiceID: svc.ID, StartTime: at(11, 0), EndTime: at(12, 0)})
	m.book(domain.Appointment{ServiceID: other.ID, StartTime: at(10, 0), EndTime: at(11, 0)})

	err := NewCapacityGuard(m).EnsureCapacity(context.Background(), CapacityCheck{
		BusinessID:        bizID,
		ServiceID:         svc.ID,
		Start:             at(10, 0),
		End:               at(11, 0),
		MaxClientsPerSlot: 1,
	})
	if err != nil {
		t.Fatalf("EnsureCapacity error: %v", err)
	}
}

func TestEnsureCapacity_InvalidConfiguration(t *testing.T) {
	for _, max := range []int{0, -2} {
		err := NewCapacityGuard(panicReader{}).EnsureCapacity(context.Background(), CapacityCheck{
			BusinessID:        bizID,
			ServiceID:         uuid.New(),
			Start:             at(10, 0),
			End:               at(11, 0),
			MaxClientsPerSlot: max,
		})
		if !errors.Is(err, ErrInvalidCapacityConfiguration) {
			t.Fatalf("max=%d: error = %v, want ErrInvalidCapacityConfiguration", max, err)
		}
	}
}
