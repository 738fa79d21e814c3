package directory

import (
	"context"
	"errors"
	"testing"
)

func TestPutMergeAndIdempotence(t *testing.T) {
	m := NewInMemory()
	ctx := context.Background()

	full := Profile{
		UID:        "u1",
		Email:      "u1@org.test",
		FirstName:  "Aruzhan",
		LastName:   "Seitkali",
		Role:       "member",
		Department: "Events & Logistics",
		IsActive:   true,
	}
	if err := m.Put(ctx, full); err != nil {
		t.Fatalf("Put: %v", err)
	}

	// Repeating the same write must not duplicate or clobber anything.
	if err := m.Put(ctx, full); err != nil {
		t.Fatalf("second Put: %v", err)
	}
	all, err := m.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("idempotent Put produced %d records", len(all))
	}

	// A partial record merges: blank fields keep their stored values.
	if err := m.Put(ctx, Profile{UID: "u1", Role: "executive", IsActive: true}); err != nil {
		t.Fatalf("merge Put: %v", err)
	}
	p, err := m.Get(ctx, "u1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if p.Role != "executive" {
		t.Fatalf("role = %s, want executive", p.Role)
	}
	if p.FirstName != "Aruzhan" || p.Email != "u1@org.test" || p.Department != "Events & Logistics" {
		t.Fatalf("merge clobbered unrelated fields: %+v", p)
	}
}

func TestSetRoleUnknownUID(t *testing.T) {
	m := NewInMemory()
	if err := m.SetRole(context.Background(), "ghost", "admin"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestUpdateAppliesOnlySetFields(t *testing.T) {
	m := NewInMemory()
	ctx := context.Background()
	if err := m.Put(ctx, Profile{UID: "u1", FirstName: "Dana", Role: "member", IsActive: true}); err != nil {
		t.Fatalf("Put: %v", err)
	}

	last := "Nurlan"
	inactive := false
	p, err := m.Update(ctx, "u1", ProfileUpdate{LastName: &last, IsActive: &inactive})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if p.LastName != "Nurlan" || p.IsActive {
		t.Fatalf("update not applied: %+v", p)
	}
	if p.FirstName != "Dana" || p.Role != "member" {
		t.Fatalf("update touched unset fields: %+v", p)
	}

	if _, err := m.Update(ctx, "ghost", ProfileUpdate{LastName: &last}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestDeleteAbsentIsNoError(t *testing.T) {
	m := NewInMemory()
	if err := m.Delete(context.Background(), "ghost"); err != nil {
		t.Fatalf("deleting absent uid: %v", err)
	}
}

func TestValidDepartment(t *testing.T) {
	if !ValidDepartment("") {
		t.Fatal("empty department rejected")
	}
	for _, d := range Departments {
		if !ValidDepartment(d) {
			t.Fatalf("%q rejected", d)
		}
	}
	if ValidDepartment("Finance") {
		t.Fatal("unknown department accepted")
	}
}
