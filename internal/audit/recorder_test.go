package audit

import (
	"context"
	"errors"
	"testing"
)

type failingSink struct{}

func (failingSink) Append(context.Context, *Event) error {
	return errors.New("sink unavailable")
}

func (failingSink) List(context.Context, int) ([]Event, error) {
	return nil, errors.New("sink unavailable")
}

type failingPublisher struct{}

func (failingPublisher) Publish(context.Context, Event) error {
	return errors.New("broker unavailable")
}

func TestRecordFillsIDAndTimestamp(t *testing.T) {
	sink := NewInMemoryEventSink()
	rec := NewRecorder(sink, nil)

	rec.Record(context.Background(), Event{Type: EventLogin, ActorID: "u1"})

	events, err := sink.List(context.Background(), 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("events = %d, want 1", len(events))
	}
	e := events[0]
	if e.ID == "" || e.OccurredAt.IsZero() {
		t.Fatalf("recorder left id/timestamp unset: %+v", e)
	}
	if e.Type != EventLogin || e.ActorID != "u1" {
		t.Fatalf("unexpected event: %+v", e)
	}
}

// System event logging is best-effort: neither a failing sink nor a failing
// publisher may surface to the caller.
func TestRecordSwallowsSinkAndPublisherFailures(t *testing.T) {
	rec := NewRecorder(failingSink{}, failingPublisher{})
	rec.Record(context.Background(), Event{Type: EventRoleChange})

	// Nil sink and publisher are also fine.
	NewRecorder(nil, nil).Record(context.Background(), Event{Type: EventLogout})
}

func TestTrailListNewestFirstWithLimit(t *testing.T) {
	trail := NewInMemoryTrail()
	ctx := context.Background()
	for _, role := range []string{"executive", "admin", "member"} {
		if err := trail.Append(ctx, &Entry{TargetUserID: "u1", ChangedBy: "adm", OldRole: "member", NewRole: role}); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	entries, err := trail.List(ctx, 2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(entries))
	}
	if entries[0].NewRole != "member" {
		t.Fatalf("newest entry role = %s, want member", entries[0].NewRole)
	}
}
