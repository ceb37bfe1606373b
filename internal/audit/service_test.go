package audit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestService_AppendRequiresTenantAndType(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo)

	if err := svc.Append(context.Background(), Event{Type: EventTypeNumberPurchased}); !errors.Is(err, ErrInvalidEvent) {
		t.Fatalf("expected ErrInvalidEvent, got %v", err)
	}
	if err := svc.Append(context.Background(), Event{TenantID: "t1"}); !errors.Is(err, ErrInvalidEvent) {
		t.Fatalf("expected ErrInvalidEvent, got %v", err)
	}
}

func TestService_LogNumberEvent(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo)
	svc.clock = func() time.Time { return time.Unix(1700000000, 0) }

	svc.LogNumberEvent(context.Background(), "t1", EventTypeNumberAssigned, "n1", "b1", "assigned")

	evs := repo.Events()
	if len(evs) != 1 {
		t.Fatalf("expected 1 event, got %d", len(evs))
	}
	if evs[0].ID == "" || evs[0].CreatedAt.IsZero() {
		t.Fatalf("expected id and timestamp filled")
	}
	if evs[0].NumberID != "n1" || evs[0].BotID != "b1" || evs[0].Type != EventTypeNumberAssigned {
		t.Fatalf("unexpected event: %+v", evs[0])
	}
}

func TestService_RecordSwallowsErrors(t *testing.T) {
	var nilSvc *Service
	nilSvc.Record(context.Background(), Event{TenantID: "t1", Type: EventTypeBotActivation})

	svc := NewService(nil)
	svc.LogBotEvent(context.Background(), "t1", EventTypeBotActivation, "b1", "paused")
}

func TestPostgresRepo_Append(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	now := time.Unix(1700000000, 0).UTC()
	mock.ExpectExec("INSERT INTO audit_events").
		WithArgs("e1", "t1", EventTypeNumberReleased, "", "", "n1", "", "", "released", "", now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	repo := NewPostgresRepo(db)
	err = repo.Append(context.Background(), Event{
		ID:        "e1",
		TenantID:  "t1",
		Type:      EventTypeNumberReleased,
		NumberID:  "n1",
		Message:   "released",
		CreatedAt: now,
	})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestService_AppendFillsActorFromContext(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo)
	ctx := WithActor(context.Background(), "virtual_numbers", "203.0.113.7")

	svc.LogBotEvent(ctx, "t1", EventTypeBotActivation, "b1", "active")
	if err := svc.Append(ctx, Event{TenantID: "t1", Type: EventTypeAPIKeyIssued, ActorKind: "dashboard"}); err != nil {
		t.Fatalf("append: %v", err)
	}

	evs := repo.Events()
	if len(evs) != 2 {
		t.Fatalf("expected 2 events, got %d", len(evs))
	}
	if evs[0].ActorKind != "virtual_numbers" || evs[0].IPAddress != "203.0.113.7" {
		t.Fatalf("actor not filled: %+v", evs[0])
	}
	if evs[1].ActorKind != "dashboard" || evs[1].IPAddress != "203.0.113.7" {
		t.Fatalf("explicit actor kind must win: %+v", evs[1])
	}
}

func TestMemoryRepoFilters(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo)
	ctx := context.Background()

	svc.LogNumberEvent(ctx, "t1", EventTypeNumberPurchased, "n1", "", "+14155550001")
	svc.LogBotEvent(ctx, "t1", EventTypeBotActivation, "b1", "active")
	svc.LogNumberEvent(ctx, "t2", EventTypeNumberPurchased, "n2", "", "+14155550002")

	if got := repo.ForTenant("t1"); len(got) != 2 || got[0].Type != EventTypeNumberPurchased {
		t.Fatalf("unexpected tenant events %+v", got)
	}
	if got := repo.OfType(EventTypeNumberPurchased); len(got) != 2 || got[1].TenantID != "t2" {
		t.Fatalf("unexpected typed events %+v", got)
	}
	if got := repo.Events(); len(got) != 3 {
		t.Fatalf("expected 3 events, got %d", len(got))
	}
}
