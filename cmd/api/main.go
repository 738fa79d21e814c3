package main

import (
	"context"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"google.golang.org/grpc"

	"memberhub.org/internal/announce"
	"memberhub.org/internal/audit"
	"memberhub.org/internal/config"
	"memberhub.org/internal/directory"
	"memberhub.org/internal/httpapi"
	"memberhub.org/internal/identity"
	"memberhub.org/internal/obs"
	"memberhub.org/internal/project"
	"memberhub.org/internal/rbac"
	"memberhub.org/internal/store/pg"
	"memberhub.org/internal/stream"
)

var (
	version = "0.3.1"
	commit  = "dev"
)

func main() {
	obs.Init()
	obs.InitBuildInfo(version, commit)

	cfg := config.Load().MustSecrets()

	// Storage: Postgres when a DSN is configured, in-memory otherwise.
	var (
		dir      directory.Store
		accounts identity.Provider
		refresh  identity.RefreshTokenStore
		trail    audit.Trail
		sink     audit.EventSink
		board    announce.Store
		notes    announce.NotificationStore
		projects project.Store
		pgStore  *pg.Store
	)
	if cfg.PGDSN != "" {
		var err error
		pgStore, err = pg.Open(cfg.PGDSN)
		if err != nil {
			log.Fatalf("open db: %v", err)
		}
		dir = pgStore.Directory()
		accounts = pgStore.Identities()
		refresh = pgStore.RefreshTokens()
		trail = pgStore.RoleTrail()
		sink = pgStore.SystemLog()
		board = pgStore.Announcements()
		notes = pgStore.Notifications()
		projects = pgStore.Projects()
	} else {
		log.Printf("no MEMBERHUB_PG_DSN set, using in-memory stores")
		dir = directory.NewInMemory()
		accounts = identity.NewInMemoryProvider()
		refresh = identity.NewInMemoryRefreshStore()
		trail = audit.NewInMemoryTrail()
		sink = audit.NewInMemoryEventSink()
		board = announce.NewInMemory()
		notes = announce.NewInMemoryNotifications()
		projects = project.NewInMemory()
	}

	var pub audit.Publisher
	if cfg.AMQPURL != "" {
		pub = audit.NewAMQPPublisher(cfg.AMQPURL, "")
	}
	events := audit.NewRecorder(sink, pub)

	tokens, err := identity.NewService(accounts, refresh, cfg.AuthSecret,
		identity.WithAccessTTL(cfg.AccessTTL),
		identity.WithRefreshTTL(cfg.RefreshTTL),
	)
	if err != nil {
		log.Fatalf("token service: %v", err)
	}

	users := rbac.NewService(dir, accounts, trail, events)
	live := stream.New()
	gate := identity.NewGate(cfg.InviteToken)
	boardSvc := announce.NewService(users.Authority(), dir, board, notes, events, live)
	projectSvc := project.NewService(users.Authority(), projects, events, live)

	var probe httpapi.ReadyProbe
	if pgStore != nil {
		probe = httpapi.ReadyProbe{DB: pgStore.DB()}
	}
	api := httpapi.New(httpapi.Deps{
		Ready:    probe,
		Version:  version,
		Gate:     gate,
		Tokens:   tokens,
		Accounts: accounts,
		Dir:      dir,
		Users:    users,
		Board:    boardSvc,
		Projects: projectSvc,
		Trail:    trail,
		Sink:     sink,
		Events:   events,
		Live:     live,
	})

	handler := api.Handler()
	handler = httpapi.MaxBodyBytes(handler, 1<<20)
	handler = httpapi.RateLimit(handler, cfg.RateBurst, cfg.RatePerSec)
	handler = httpapi.CORS(handler)
	handler = httpapi.SecurityHeaders(handler)
	handler = httpapi.LoggingJSON(handler)
	handler = httpapi.RequestID(handler)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("Starting memberhub-api %s on %s", version, srv.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	var grpcSrv *grpc.Server
	if cfg.GRPCAddr != "" {
		lis, err := net.Listen("tcp", cfg.GRPCAddr)
		if err != nil {
			log.Fatalf("grpc listen: %v", err)
		}
		grpcSrv = grpc.NewServer()
		httpapi.RegisterHealth(grpcSrv, httpapi.NewHealthServer(probe))
		go func() {
			log.Printf("Starting gRPC health on %s", cfg.GRPCAddr)
			if err := grpcSrv.Serve(lis); err != nil {
				log.Fatalf("grpc serve: %v", err)
			}
		}()
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = srv.Shutdown(ctx)
	if grpcSrv != nil {
		grpcSrv.GracefulStop()
	}
	if pgStore != nil {
		_ = pgStore.Close()
	}
	log.Println("Stopped")
}
