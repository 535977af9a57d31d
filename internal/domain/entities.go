package domain

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID        uuid.UUID
	Name      string
	Email     string
	CreatedAt time.Time
}

type Event struct {
	ID               uuid.UUID
	Title            string
	Location         string
	Description      string
	StartAt          time.Time
	EndAt            time.Time
	TotalTickets     int
	AvailableTickets int
	OwnerID          uuid.UUID
	CreatedAt        time.Time
}

type Ticket struct {
	ID        uuid.UUID
	EventID   uuid.UUID
	UserID    uuid.UUID
	CreatedAt time.Time
}

// WaitingListEntry rows are promoted strictly in created_at order.
type WaitingListEntry struct {
	ID        uuid.UUID
	EventID   uuid.UUID
	UserID    uuid.UUID
	CreatedAt time.Time
}

type Notification struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Message   string
	CreatedAt time.Time
}

func NewEvent(title, location, description string, startAt, endAt time.Time, totalTickets int, ownerID uuid.UUID) Event {
	return Event{
		ID:               uuid.New(),
		Title:            title,
		Location:         location,
		Description:      description,
		StartAt:          startAt,
		EndAt:            endAt,
		TotalTickets:     totalTickets,
		AvailableTickets: totalTickets,
		OwnerID:          ownerID,
	}
}

func NewTicket(eventID, userID uuid.UUID) Ticket {
	return Ticket{
		ID:      uuid.New(),
		EventID: eventID,
		UserID:  userID,
	}
}

func NewNotification(userID uuid.UUID, message string) Notification {
	return Notification{
		ID:      uuid.New(),
		UserID:  userID,
		Message: message,
	}
}
