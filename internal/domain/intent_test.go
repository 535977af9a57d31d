package domain_test

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/tixmill/event-booking/internal/domain"
)

func TestIntent_RoundTrip(t *testing.T) {
	intent := domain.Intent{
		UserID:  uuid.New(),
		EventID: uuid.New(),
		Action:  domain.ActionCancel,
	}

	data, err := json.Marshal(intent)
	if err != nil {
		t.Fatal(err)
	}

	var decoded domain.Intent
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded != intent {
		t.Fatalf("got %+v, want %+v", decoded, intent)
	}
}

func TestIntent_UnknownActionIsFatal(t *testing.T) {
	body := []byte(`{"user_id":"` + uuid.NewString() + `","event_id":"` + uuid.NewString() + `","action":"event.bookings.upgrade"}`)

	var intent domain.Intent
	err := json.Unmarshal(body, &intent)
	if !errors.Is(err, domain.ErrInvalidAction) {
		t.Fatalf("expected ErrInvalidAction, got %v", err)
	}
}

func TestParseAction(t *testing.T) {
	for _, wire := range []string{"event.bookings.create", "event.bookings.cancel"} {
		action, err := domain.ParseAction(wire)
		if err != nil {
			t.Fatalf("parse %q: %v", wire, err)
		}
		if action.String() != wire {
			t.Fatalf("round trip %q -> %q", wire, action.String())
		}
	}
	if _, err := domain.ParseAction("delete-everything"); !errors.Is(err, domain.ErrInvalidAction) {
		t.Fatalf("expected ErrInvalidAction, got %v", err)
	}
}
