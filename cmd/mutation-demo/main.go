// Command mutation-demo wires the full kit together: an in-process HTTP
// mutation server, an optimistic controller over a memory store, a SQLite
// audit journal and Prometheus metrics. It applies a handful of mutations,
// including one the server rejects, and prints how each resolved.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/c0deZ3R0/go-mutation-kit/audit/sqliteaudit"
	"github.com/c0deZ3R0/go-mutation-kit/codec"
	"github.com/c0deZ3R0/go-mutation-kit/logging"
	"github.com/c0deZ3R0/go-mutation-kit/metrics/prom"
	"github.com/c0deZ3R0/go-mutation-kit/mutationkit"
	"github.com/c0deZ3R0/go-mutation-kit/remote/httpremote"
)

// User is the demo entity.
type User struct {
	UserID string `json:"user_id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Status string `json:"status"`
}

func (u *User) ID() string { return u.UserID }

func (u *User) Clone() mutationkit.Entity {
	c := *u
	return &c
}

const (
	kindSetStatus mutationkit.MutationKind = "set_status"
	kindCreate    mutationkit.MutationKind = "create_user"
	kindDelete    mutationkit.MutationKind = "delete_user"
)

func demoKinds() []mutationkit.KindSpec {
	return []mutationkit.KindSpec{
		{
			Kind: kindSetStatus,
			Transform: func(current mutationkit.Entity, req mutationkit.MutationRequest) (mutationkit.Entity, error) {
				status, ok := req.Payload.(string)
				if !ok {
					return nil, fmt.Errorf("set_status payload must be a string, got %T", req.Payload)
				}
				next := current.Clone().(*User)
				next.Status = status
				return next, nil
			},
		},
		{
			Kind:    kindCreate,
			Creates: true,
			Transform: func(_ mutationkit.Entity, req mutationkit.MutationRequest) (mutationkit.Entity, error) {
				u, ok := req.Payload.(*User)
				if !ok {
					return nil, fmt.Errorf("create_user payload must be *User, got %T", req.Payload)
				}
				next := u.Clone().(*User)
				next.UserID = req.EntityID
				return next, nil
			},
		},
		{
			Kind: kindDelete,
			Transform: func(_ mutationkit.Entity, _ mutationkit.MutationRequest) (mutationkit.Entity, error) {
				return nil, nil
			},
		},
	}
}

// authority is the server-side source of truth behind the HTTP endpoint.
type authority struct {
	mu    sync.Mutex
	users map[string]*User
}

func (a *authority) apply(_ *http.Request, req mutationkit.MutationRequest) (mutationkit.Outcome, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	switch req.Kind {
	case kindSetStatus:
		status, _ := req.Payload.(string)
		u, ok := a.users[req.EntityID]
		if !ok {
			return mutationkit.Rejected("user does not exist"), nil
		}
		if status == "banned" {
			return mutationkit.Rejected("status transitions to banned require review"), nil
		}
		u.Status = status
		return mutationkit.Confirmed(u.Clone()), nil

	case kindCreate:
		// The handler decodes payloads to plain JSON values.
		fields, _ := req.Payload.(map[string]any)
		u := &User{
			UserID: "user-" + uuid.NewString(),
			Status: "active",
		}
		if name, ok := fields["name"].(string); ok {
			u.Name = name
		}
		if email, ok := fields["email"].(string); ok {
			u.Email = email
		}
		a.users[u.UserID] = u
		return mutationkit.Confirmed(u.Clone()), nil

	case kindDelete:
		delete(a.users, req.EntityID)
		return mutationkit.Confirmed(nil), nil

	default:
		return mutationkit.Rejected(fmt.Sprintf("unsupported mutation kind %q", req.Kind)), nil
	}
}

func main() {
	logging.Init(logging.GetConfigFromEnv())

	ctx := context.Background()
	registry := codec.NewRegistry()
	registry.Register(codec.JSONCodec{
		Type:    "user",
		Factory: func() any { return &User{} },
	})

	// Server half.
	seed := &User{UserID: "user-1", Name: gofakeit.Name(), Email: gofakeit.Email(), Status: "active"}
	auth := &authority{users: map[string]*User{seed.UserID: seed.Clone().(*User)}}
	handler := httpremote.NewHandler(httpremote.ApplierFunc(auth.apply), "user", registry)

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		logging.Fatal("Failed to listen", slog.String("error", err.Error()))
	}
	server := &http.Server{Handler: httpremote.NewRouter(handler)}
	go server.Serve(listener)
	defer server.Shutdown(ctx)

	endpoint := "http://" + listener.Addr().String() + "/mutations"
	logging.Info("Mutation server listening", slog.String("endpoint", endpoint))

	// Client half.
	store := mutationkit.NewMemoryStore()
	if err := store.Set(ctx, seed.UserID, seed); err != nil {
		logging.Fatal("Failed to seed store", slog.String("error", err.Error()))
	}

	journalPath := filepath.Join(os.TempDir(), "mutation-demo-audit.db")
	journal, err := sqliteaudit.NewWithDataSource("file:" + journalPath)
	if err != nil {
		logging.Fatal("Failed to open audit journal", slog.String("error", err.Error()))
	}

	collector := prom.NewCollector(prometheus.NewRegistry())

	controller, err := mutationkit.NewController(
		mutationkit.WithStore(store),
		mutationkit.WithRemote(httpremote.NewClient(endpoint, httpremote.WithCodecRegistry(registry))),
		mutationkit.WithKinds(demoKinds()...),
		mutationkit.WithAuditor(journal),
		mutationkit.WithMetricsCollector(collector),
		mutationkit.WithNotifier(mutationkit.NotifierFunc(func(message string, severity mutationkit.Severity) {
			logging.Warn("User notification",
				slog.String("severity", string(severity)),
				slog.String("message", message),
			)
		})),
		mutationkit.WithSubmitTimeout(5*time.Second),
	)
	if err != nil {
		logging.Fatal("Failed to build controller", slog.String("error", err.Error()))
	}

	requests := []mutationkit.MutationRequest{
		{EntityID: seed.UserID, Kind: kindSetStatus, Payload: "away", Actor: "demo"},
		{Kind: kindCreate, Payload: &User{Name: gofakeit.Name(), Email: gofakeit.Email()}, Actor: "demo"},
		{EntityID: seed.UserID, Kind: kindSetStatus, Payload: "banned", Actor: "demo"},
	}
	for _, req := range requests {
		result, err := controller.ApplyAndWait(ctx, req)
		if err != nil {
			logging.Error("Mutation failed to apply",
				slog.String("kind", string(req.Kind)),
				slog.String("error", err.Error()),
			)
			continue
		}
		logging.Info("Mutation resolved",
			slog.String("kind", string(result.Request.Kind)),
			slog.String("entity_id", result.Request.EntityID),
			slog.String("status", string(result.Status)),
			slog.Duration("round_trip", result.Duration),
		)
	}

	entities, err := store.List(ctx)
	if err != nil {
		logging.Error("Failed to list store entities", slog.String("error", err.Error()))
	}
	for _, e := range entities {
		u := e.(*User)
		logging.Info("Store entity",
			slog.String("id", u.UserID),
			slog.String("name", u.Name),
			slog.String("status", u.Status),
		)
	}

	trail, err := journal.Recent(ctx, 10)
	if err != nil {
		logging.Error("Failed to read audit trail", slog.String("error", err.Error()))
	}
	logging.Info("Audit trail recorded", slog.Int("entries", len(trail)))

	if err := controller.Close(); err != nil {
		logging.Error("Controller close failed", slog.String("error", err.Error()))
	}
}
