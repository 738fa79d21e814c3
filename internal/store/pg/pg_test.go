package pg

import (
	"errors"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"

	"memberhub.org/internal/audit"
	"memberhub.org/internal/directory"
	"memberhub.org/internal/identity"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewStore(db), mock
}

func expectationsMet(t *testing.T, mock sqlmock.Sqlmock) {
	t.Helper()
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestDirectoryGet(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now()

	cols := []string{"uid", "email", "first_name", "last_name", "role",
		"department", "photo_url", "is_active", "created_at", "updated_at"}
	mock.ExpectQuery("select (.+) from users where uid").
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow("u1", "a@b.test", "Ann", "Bell", "executive", "", "", true, now, now))

	p, err := store.Directory().Get(t.Context(), "u1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if p.UID != "u1" || p.Role != "executive" || !p.IsActive {
		t.Fatalf("unexpected profile: %+v", p)
	}
	expectationsMet(t, mock)
}

func TestDirectoryGetNotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("select (.+) from users where uid").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"uid"}))

	_, err := store.Directory().Get(t.Context(), "missing")
	if !errors.Is(err, directory.ErrNotFound) {
		t.Fatalf("err = %v, want directory.ErrNotFound", err)
	}
	expectationsMet(t, mock)
}

func TestDirectorySetRoleUnknownUID(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("update users set role").
		WithArgs("missing", "admin").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.Directory().SetRole(t.Context(), "missing", "admin")
	if !errors.Is(err, directory.ErrNotFound) {
		t.Fatalf("err = %v, want directory.ErrNotFound", err)
	}
	expectationsMet(t, mock)
}

func TestDirectoryDeleteAbsentIsNoError(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("delete from users where uid").
		WithArgs("ghost").
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := store.Directory().Delete(t.Context(), "ghost"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	expectationsMet(t, mock)
}

func TestIdentitiesCreateDuplicateEmail(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("insert into identities").
		WillReturnError(&pgconn.PgError{Code: pgErrUniqueViolation})

	_, err := store.Identities().Create(t.Context(), identity.NewAccount{
		Email:        "dup@org.test",
		PasswordHash: "x",
		RoleClaim:    "member",
	})
	if !errors.Is(err, identity.ErrEmailTaken) {
		t.Fatalf("err = %v, want identity.ErrEmailTaken", err)
	}
	expectationsMet(t, mock)
}

func TestIdentitiesSetRoleClaimUnknownID(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("update identities set role_claim").
		WithArgs("missing", "admin").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.Identities().SetRoleClaim(t.Context(), "missing", "admin")
	if !errors.Is(err, identity.ErrNotFound) {
		t.Fatalf("err = %v, want identity.ErrNotFound", err)
	}
	expectationsMet(t, mock)
}

func TestRoleTrailAppendFillsID(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("insert into role_audit").
		WillReturnResult(sqlmock.NewResult(0, 1))

	e := audit.Entry{
		TargetUserID:   "u1",
		ChangedBy:      "admin-1",
		ChangedByEmail: "admin@org.test",
		OldRole:        "member",
		NewRole:        "executive",
		OccurredAt:     time.Now(),
	}
	if err := store.RoleTrail().Append(t.Context(), &e); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if e.ID == "" {
		t.Fatal("Append left the entry id empty")
	}
	expectationsMet(t, mock)
}

func TestRoleTrailList(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now()

	cols := []string{"id", "target_user_id", "changed_by", "changed_by_email",
		"old_role", "new_role", "note", "occurred_at"}
	mock.ExpectQuery("select (.+) from role_audit order by occurred_at desc").
		WithArgs(2).
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow("e2", "u1", "admin-1", "admin@org.test", "executive", "admin", "", now).
			AddRow("e1", "u1", "admin-1", "admin@org.test", "member", "executive", "", now.Add(-time.Minute)))

	entries, err := store.RoleTrail().List(t.Context(), 2)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 2 || entries[0].NewRole != "admin" {
		t.Fatalf("unexpected entries: %+v", entries)
	}
	expectationsMet(t, mock)
}

func TestSystemLogAppend(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("insert into system_logs").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := store.SystemLog().Append(t.Context(), &audit.Event{
		ID:         "ev1",
		Type:       "login",
		ActorID:    "u1",
		ActorEmail: "a@b.test",
		OccurredAt: time.Now(),
	})
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	expectationsMet(t, mock)
}
