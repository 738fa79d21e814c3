// grant-admin bootstraps the first administrator: it flips the role claim and
// directory record for an existing account and appends a role audit entry
// attributed to the system.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"time"

	"memberhub.org/internal/audit"
	"memberhub.org/internal/directory"
	"memberhub.org/internal/rbac"
	"memberhub.org/internal/store/pg"
)

func main() {
	log.SetFlags(0)
	var (
		dsn   = flag.String("dsn", os.Getenv("MEMBERHUB_PG_DSN"), "PostgreSQL DSN")
		email = flag.String("email", "", "Email of the account to promote")
	)
	flag.Parse()

	if *dsn == "" {
		log.Fatal("missing DSN: provide via -dsn or MEMBERHUB_PG_DSN")
	}
	if *email == "" {
		log.Fatal("usage: grant-admin -email user@example.org")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	store, err := pg.Open(*dsn)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer store.Close()

	accounts := store.Identities()
	dir := store.Directory()
	trail := store.RoleTrail()

	acct, err := accounts.FindByEmail(ctx, *email)
	if err != nil {
		log.Fatalf("find account %s: %v", *email, err)
	}

	oldRole := audit.RoleUnknown
	if prior, err := dir.Get(ctx, acct.ID); err == nil && prior.Role != "" {
		oldRole = prior.Role
	}

	if err := accounts.SetRoleClaim(ctx, acct.ID, rbac.RoleAdmin.String()); err != nil {
		log.Fatalf("set role claim: %v", err)
	}
	if err := dir.SetRole(ctx, acct.ID, rbac.RoleAdmin.String()); err != nil {
		if !errors.Is(err, directory.ErrNotFound) {
			log.Fatalf("set directory role: %v", err)
		}
		if err := dir.Put(ctx, directory.Profile{
			UID:      acct.ID,
			Email:    acct.Email,
			Role:     rbac.RoleAdmin.String(),
			IsActive: true,
		}); err != nil {
			log.Fatalf("create directory record: %v", err)
		}
	}

	entry := audit.Entry{
		TargetUserID:   acct.ID,
		ChangedBy:      "system",
		ChangedByEmail: "setup-script",
		OldRole:        oldRole,
		NewRole:        rbac.RoleAdmin.String(),
		Note:           "initial admin grant",
		OccurredAt:     time.Now().UTC(),
	}
	if err := trail.Append(ctx, &entry); err != nil {
		log.Fatalf("append audit entry: %v", err)
	}

	log.Printf("granted admin to %s (%s), previous role %s", acct.Email, acct.ID, oldRole)
}
