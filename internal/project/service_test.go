package project

import (
	"context"
	"errors"
	"testing"
	"time"

	"memberhub.org/internal/audit"
	"memberhub.org/internal/directory"
	"memberhub.org/internal/rbac"
)

func newTestService(t *testing.T) (*Service, *directory.InMemory) {
	t.Helper()
	dir := directory.NewInMemory()
	svc := NewService(rbac.NewAuthority(dir), NewInMemory(), audit.NewRecorder(audit.NewInMemoryEventSink(), nil), nil,
		WithClock(func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }))
	return svc, dir
}

func seedActor(t *testing.T, dir *directory.InMemory, uid, role string) rbac.Actor {
	t.Helper()
	if err := dir.Put(context.Background(), directory.Profile{UID: uid, Role: role, IsActive: true}); err != nil {
		t.Fatalf("seed %s: %v", uid, err)
	}
	return rbac.Actor{ID: uid}
}

func TestCreateDefaultsAndValidation(t *testing.T) {
	svc, dir := newTestService(t)
	exec := seedActor(t, dir, "exec", "executive")

	p, err := svc.Create(context.Background(), exec, CreateRequest{Name: "Spring Fair"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if p.Status != StatusPlanning || p.Progress != 0 || p.CreatedBy != "exec" {
		t.Fatalf("unexpected project: %+v", p)
	}

	cases := []CreateRequest{
		{},
		{Name: "x", Status: "archived"},
		{Name: "x", Progress: 150},
		{Name: "x", Department: "Nonexistent"},
	}
	for _, req := range cases {
		if _, err := svc.Create(context.Background(), exec, req); !errors.Is(err, rbac.ErrInvalidArgument) {
			t.Fatalf("req %+v: err = %v, want ErrInvalidArgument", req, err)
		}
	}
}

func TestMutationsRequireExecutiveOrAdmin(t *testing.T) {
	svc, dir := newTestService(t)
	member := seedActor(t, dir, "m1", "member")

	if _, err := svc.Create(context.Background(), member, CreateRequest{Name: "x"}); !errors.Is(err, rbac.ErrPermissionDenied) {
		t.Fatalf("create: err = %v, want ErrPermissionDenied", err)
	}
	if _, err := svc.Update(context.Background(), member, "p1", Update{}); !errors.Is(err, rbac.ErrPermissionDenied) {
		t.Fatalf("update: err = %v, want ErrPermissionDenied", err)
	}
	if err := svc.Delete(context.Background(), member, "p1"); !errors.Is(err, rbac.ErrPermissionDenied) {
		t.Fatalf("delete: err = %v, want ErrPermissionDenied", err)
	}
	if _, err := svc.Create(context.Background(), rbac.Actor{}, CreateRequest{Name: "x"}); !errors.Is(err, rbac.ErrUnauthenticated) {
		t.Fatalf("anonymous create: err = %v, want ErrUnauthenticated", err)
	}
}

func TestUpdateAndDelete(t *testing.T) {
	svc, dir := newTestService(t)
	admin := seedActor(t, dir, "adm", "admin")

	p, err := svc.Create(context.Background(), admin, CreateRequest{Name: "Fair", Status: StatusActive, Progress: 10})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	progress := 55
	status := StatusOnHold
	updated, err := svc.Update(context.Background(), admin, p.ID, Update{Progress: &progress, Status: &status})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Progress != 55 || updated.Status != StatusOnHold || updated.Name != "Fair" {
		t.Fatalf("unexpected update result: %+v", updated)
	}

	bad := 101
	if _, err := svc.Update(context.Background(), admin, p.ID, Update{Progress: &bad}); !errors.Is(err, rbac.ErrInvalidArgument) {
		t.Fatalf("bad progress: err = %v, want ErrInvalidArgument", err)
	}

	if err := svc.Delete(context.Background(), admin, p.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := svc.Delete(context.Background(), admin, p.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("double delete: err = %v, want ErrNotFound", err)
	}
}

func TestListVisibleToAnyMember(t *testing.T) {
	svc, dir := newTestService(t)
	admin := seedActor(t, dir, "adm", "admin")
	member := seedActor(t, dir, "m1", "member")

	if _, err := svc.Create(context.Background(), admin, CreateRequest{Name: "Fair"}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	items, err := svc.List(context.Background(), member)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("listed %d projects, want 1", len(items))
	}
	if _, err := svc.List(context.Background(), rbac.Actor{}); !errors.Is(err, rbac.ErrUnauthenticated) {
		t.Fatalf("anonymous list: err = %v, want ErrUnauthenticated", err)
	}
}
