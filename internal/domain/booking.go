package domain

import (
	"fmt"

	"github.com/google/uuid"
)

// The booking state machine. Pure decision logic: given a snapshot of the
// event and the facts the processor looked up (does the user hold a ticket,
// who is at the head of the waiting list), it computes the full set of
// writes and notifications for one intent. It performs no I/O; the
// processor applies the returned decision inside a single transaction.

type BookOutcome int

const (
	BookOutcomeTicketIssued BookOutcome = iota + 1
	BookOutcomeWaitlisted
	BookOutcomeAlreadyBooked
	BookOutcomeAlreadyWaiting
)

type BookDecision struct {
	Outcome BookOutcome

	// Ticket is set when Outcome is BookOutcomeTicketIssued.
	Ticket *Ticket
	// WaitingEntry is set when Outcome is BookOutcomeWaitlisted.
	WaitingEntry *WaitingListEntry
	// AvailableDelta is applied to the event's available_tickets.
	AvailableDelta int
	Notification   Notification
}

// DecideBook computes the transition for a booking intent. alreadyBooked
// reports whether the user currently holds an active ticket for the event,
// alreadyWaiting whether they already have a waiting-list entry; either way
// a repeated booking is a successful no-op, not an error. A user appears at
// most once across tickets and the waiting list of an event.
func DecideBook(event Event, userID uuid.UUID, alreadyBooked, alreadyWaiting bool) BookDecision {
	if alreadyBooked {
		return BookDecision{
			Outcome:      BookOutcomeAlreadyBooked,
			Notification: NewNotification(userID, fmt.Sprintf("You already have a ticket for the event %s", event.Title)),
		}
	}

	if alreadyWaiting {
		return BookDecision{
			Outcome:      BookOutcomeAlreadyWaiting,
			Notification: NewNotification(userID, fmt.Sprintf("You are already on the waiting list for the event %s", event.Title)),
		}
	}

	if event.AvailableTickets <= 0 {
		entry := WaitingListEntry{ID: uuid.New(), EventID: event.ID, UserID: userID}
		return BookDecision{
			Outcome:      BookOutcomeWaitlisted,
			WaitingEntry: &entry,
			Notification: NewNotification(userID, fmt.Sprintf("There are no available tickets for the event %s. You have been added to the waiting list.", event.Title)),
		}
	}

	ticket := NewTicket(event.ID, userID)
	return BookDecision{
		Outcome:        BookOutcomeTicketIssued,
		Ticket:         &ticket,
		AvailableDelta: -1,
		Notification:   NewNotification(userID, fmt.Sprintf("You have successfully booked a ticket for the event %s", event.Title)),
	}
}

type CancelOutcome int

const (
	CancelOutcomeCancelled CancelOutcome = iota + 1
	CancelOutcomeNoTicket
)

type CancelDecision struct {
	Outcome CancelOutcome

	// DeleteTicketID is the ticket to destroy when Outcome is
	// CancelOutcomeCancelled.
	DeleteTicketID uuid.UUID
	// AvailableDelta is the net change to available_tickets: +1 for a
	// plain cancellation, 0 when the freed seat is immediately consumed
	// by a promotion.
	AvailableDelta int
	Notification   Notification

	// Promotion is set when the waiting list head takes the freed seat.
	Promotion *PromotionDecision
}

// PromotionDecision converts the earliest waiting-list entry into a ticket
// inside the same transaction as the cancellation that freed the seat.
type PromotionDecision struct {
	Ticket             Ticket
	DeleteWaitingEntry uuid.UUID
	Notification       Notification
}

// DecideCancel computes the transition for a cancellation intent. ticket is
// the user's active ticket for the event, nil if none; waitingHead is the
// earliest waiting-list entry for the event, nil if the list is empty.
func DecideCancel(event Event, userID uuid.UUID, ticket *Ticket, waitingHead *WaitingListEntry) CancelDecision {
	if ticket == nil {
		return CancelDecision{
			Outcome:      CancelOutcomeNoTicket,
			Notification: NewNotification(userID, fmt.Sprintf("You do not have a ticket for the event %s", event.Title)),
		}
	}

	decision := CancelDecision{
		Outcome:        CancelOutcomeCancelled,
		DeleteTicketID: ticket.ID,
		AvailableDelta: +1,
		Notification:   NewNotification(userID, fmt.Sprintf("You have successfully cancelled your booking for the event %s", event.Title)),
	}

	if waitingHead != nil {
		decision.AvailableDelta = 0
		decision.Promotion = &PromotionDecision{
			Ticket:             NewTicket(event.ID, waitingHead.UserID),
			DeleteWaitingEntry: waitingHead.ID,
			Notification:       NewNotification(waitingHead.UserID, fmt.Sprintf("You have successfully booked a ticket for the event %s, based on the waiting list.", event.Title)),
		}
	}

	return decision
}
