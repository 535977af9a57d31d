package domain

import (
	"encoding/json"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
)

// Action is a closed set: every intent is either a booking or a
// cancellation. Anything else on the wire is rejected at decode time so
// the processor's switch stays exhaustive.
type Action int

const (
	ActionBook Action = iota + 1
	ActionCancel
)

const (
	wireActionBook   = "event.bookings.create"
	wireActionCancel = "event.bookings.cancel"
)

func (a Action) String() string {
	switch a {
	case ActionBook:
		return wireActionBook
	case ActionCancel:
		return wireActionCancel
	}
	return "unknown"
}

func ParseAction(s string) (Action, error) {
	switch s {
	case wireActionBook:
		return ActionBook, nil
	case wireActionCancel:
		return ActionCancel, nil
	}
	return 0, errors.Wrapf(ErrInvalidAction, "%q", s)
}

// Intent is the queued request to book or cancel. It lives only on the
// queue between enqueue and ack; it is not a persisted entity.
type Intent struct {
	UserID  uuid.UUID
	EventID uuid.UUID
	Action  Action
}

type intentWire struct {
	UserID  uuid.UUID `json:"user_id"`
	EventID uuid.UUID `json:"event_id"`
	Action  string    `json:"action"`
}

func (i Intent) MarshalJSON() ([]byte, error) {
	return json.Marshal(intentWire{UserID: i.UserID, EventID: i.EventID, Action: i.Action.String()})
}

func (i *Intent) UnmarshalJSON(data []byte) error {
	var w intentWire
	if err := json.Unmarshal(data, &w); err != nil {
		return errors.Wrap(ErrInvalidInput, err.Error())
	}
	action, err := ParseAction(w.Action)
	if err != nil {
		return err
	}
	i.UserID = w.UserID
	i.EventID = w.EventID
	i.Action = action
	return nil
}
