package calls

import (
	"context"
	"errors"
	"testing"

	"voice-platform/internal/bots"
	"voice-platform/internal/numbers"
	"voice-platform/internal/telephony"
	"voice-platform/internal/transcripts"
)

type orchestratorFixture struct {
	orch     *Orchestrator
	provider *telephony.SandboxProvider
	numbers  *stubNumbers
	sessions *transcripts.Store
	limiter  *countingLimiter
}

func newOrchestratorFixture(t *testing.T, limit int) orchestratorFixture {
	t.Helper()
	bl := stubBots{
		"b1":     {ID: "b1", TenantID: "t1", Name: "Ava", CompanyName: "Acme", IsActive: true, OutboundGreeting: "Hi from Acme"},
		"paused": {ID: "paused", TenantID: "t1"},
	}
	nums := &stubNumbers{number: numbers.PhoneNumber{ID: "n1", TenantID: "t1", Number: "+14155550100"}}
	provider := telephony.NewSandboxProvider()
	sessions := transcripts.New(transcripts.Options{})
	t.Cleanup(sessions.Close)
	lim := newCountingLimiter(limit)
	orch := NewOrchestrator(bl, nums, provider, sessions, lim, Webhooks{BaseURL: "https://voice.example.com/"}, nil)
	return orchestratorFixture{orch: orch, provider: provider, numbers: nums, sessions: sessions, limiter: lim}
}

func TestMakeCallHappyPath(t *testing.T) {
	fx := newOrchestratorFixture(t, 5)
	ctx := context.Background()

	res, err := fx.orch.MakeCall(ctx, "t1", "b1", CallRequest{
		Recipient: Recipient{Name: " Ann ", Number: "0014155550001"},
		From:      "14155550100",
		Message:   "Special offer",
	})
	if err != nil {
		t.Fatalf("make call: %v", err)
	}
	if res.State != StateProviderAccepted || res.From != "+14155550100" || res.Recipient.Number != "+14155550001" {
		t.Fatalf("unexpected result %+v", res)
	}

	calls := fx.provider.Calls()
	if len(calls) != 1 {
		t.Fatalf("expected one provider call, got %d", len(calls))
	}
	if calls[0].AnswerURL != "https://voice.example.com/webhooks/voice/b1/answer" ||
		calls[0].HangupURL != "https://voice.example.com/webhooks/voice/b1/call-ended" {
		t.Fatalf("unexpected urls %+v", calls[0])
	}
	if fx.numbers.explicit[0] != "14155550100" {
		t.Fatalf("explicit caller id not passed through: %q", fx.numbers.explicit[0])
	}
	if len(fx.numbers.outcomes) != 1 || fx.numbers.outcomes[0] != (outcome{"n1", 1, 1}) {
		t.Fatalf("unexpected usage %+v", fx.numbers.outcomes)
	}

	s, ok := fx.sessions.Get(res.CallUUID)
	if !ok {
		t.Fatalf("expected session for %s", res.CallUUID)
	}
	if s.Greeting != "Special offer" || s.Recipient.Name != "Ann" || !s.SlotHeld || s.TenantID != "t1" {
		t.Fatalf("unexpected session %+v", s.SessionInfo)
	}
	if fx.limiter.held("t1") != 1 {
		t.Fatalf("expected one slot held")
	}
}

func TestMakeCallGate(t *testing.T) {
	fx := newOrchestratorFixture(t, 5)
	ctx := context.Background()
	req := CallRequest{Recipient: Recipient{Number: "+14155550001"}}

	if _, err := fx.orch.MakeCall(ctx, "t1", "paused", req); !errors.Is(err, bots.ErrBotInactive) {
		t.Fatalf("expected ErrBotInactive, got %v", err)
	}
	if _, err := fx.orch.MakeCall(ctx, "t2", "b1", req); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if _, err := fx.orch.MakeCall(ctx, "t1", "missing", req); !errors.Is(err, bots.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := fx.orch.MakeCall(ctx, "t1", "b1", CallRequest{Recipient: Recipient{Number: " 0 "}}); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if n := len(fx.provider.Calls()); n != 0 {
		t.Fatalf("gate failures must not reach provider, got %d calls", n)
	}
	if len(fx.numbers.outcomes) != 0 {
		t.Fatalf("gate failures must not touch usage")
	}
}

func TestMakeCallNoPhoneNumber(t *testing.T) {
	fx := newOrchestratorFixture(t, 5)
	fx.numbers.err = numbers.ErrNoPhoneNumber

	_, err := fx.orch.MakeCall(context.Background(), "t1", "b1", CallRequest{Recipient: Recipient{Number: "+14155550001"}})
	if !errors.Is(err, numbers.ErrNoPhoneNumber) {
		t.Fatalf("expected ErrNoPhoneNumber, got %v", err)
	}
	if fx.limiter.held("t1") != 0 {
		t.Fatalf("no slot may be taken before caller id resolves")
	}
}

func TestMakeCallUnusableCallerIDIsRejected(t *testing.T) {
	fx := newOrchestratorFixture(t, 5)
	fx.numbers.err = numbers.ErrNumberNotOwned

	_, err := fx.orch.MakeCall(context.Background(), "t1", "b1", CallRequest{
		Recipient: Recipient{Number: "+14155550001"},
		From:      "  not-my-number ",
	})
	if !errors.Is(err, numbers.ErrNumberNotOwned) {
		t.Fatalf("expected ErrNumberNotOwned, got %v", err)
	}
	if len(fx.numbers.explicit) != 1 || fx.numbers.explicit[0] != "not-my-number" {
		t.Fatalf("explicit caller id dropped before resolution: %q", fx.numbers.explicit)
	}
	if len(fx.provider.Calls()) != 0 || fx.limiter.held("t1") != 0 {
		t.Fatalf("no call or slot may be taken for an unusable caller id")
	}
}

func TestMakeCallProviderRejectedReleasesSlot(t *testing.T) {
	fx := newOrchestratorFixture(t, 5)
	fx.provider.RejectCalls = true

	_, err := fx.orch.MakeCall(context.Background(), "t1", "b1", CallRequest{Recipient: Recipient{Number: "+14155550001"}})
	if !errors.Is(err, telephony.ErrProviderRejected) {
		t.Fatalf("expected ErrProviderRejected, got %v", err)
	}
	if fx.limiter.held("t1") != 0 || fx.limiter.released != 1 {
		t.Fatalf("slot must be released on rejection")
	}
	if len(fx.numbers.outcomes) != 1 || fx.numbers.outcomes[0] != (outcome{"n1", 1, 0}) {
		t.Fatalf("expected one failed outcome, got %+v", fx.numbers.outcomes)
	}
	if fx.sessions.Len() != 0 {
		t.Fatalf("no session for a rejected call")
	}
}

func TestMakeCallConcurrencyLimit(t *testing.T) {
	fx := newOrchestratorFixture(t, 1)
	ctx := context.Background()
	req := CallRequest{Recipient: Recipient{Number: "+14155550001"}}

	if _, err := fx.orch.MakeCall(ctx, "t1", "b1", req); err != nil {
		t.Fatalf("first call: %v", err)
	}
	if _, err := fx.orch.MakeCall(ctx, "t1", "b1", req); !errors.Is(err, ErrConcurrencyLimit) {
		t.Fatalf("expected ErrConcurrencyLimit, got %v", err)
	}
	if n := len(fx.provider.Calls()); n != 1 {
		t.Fatalf("capped call must not reach provider, got %d", n)
	}
}

func TestMakeCallLimiterOutageFailsOpen(t *testing.T) {
	fx := newOrchestratorFixture(t, 1)
	fx.limiter.err = errors.New("redis down")

	res, err := fx.orch.MakeCall(context.Background(), "t1", "b1", CallRequest{Recipient: Recipient{Number: "+14155550001"}})
	if err != nil {
		t.Fatalf("make call: %v", err)
	}
	s, _ := fx.sessions.Get(res.CallUUID)
	if s.SlotHeld {
		t.Fatalf("no slot is held when the limiter is unavailable")
	}
}

func TestMakeBulkCall(t *testing.T) {
	fx := newOrchestratorFixture(t, 10)
	ctx := context.Background()

	res, err := fx.orch.MakeBulkCall(ctx, "t1", "b1", BulkRequest{Intake: Intake{Manual: []Recipient{
		{Name: "Ann", Number: "+14155550001"},
		{Name: "Nobody", Number: ""},
		{Name: "Bob", Number: "14155550002"},
	}}})
	if err != nil {
		t.Fatalf("bulk: %v", err)
	}
	if res.SpokenMessage != "Hi from Acme" {
		t.Fatalf("expected bot greeting, got %q", res.SpokenMessage)
	}
	if len(res.Calls) != 2 || res.Calls[0].Recipient.Name != "Ann" || res.Calls[1].Recipient.Number != "+14155550002" {
		t.Fatalf("unexpected calls %+v", res.Calls)
	}

	calls := fx.provider.Calls()
	if len(calls) != 1 || len(calls[0].To) != 2 {
		t.Fatalf("expected one provider request with two destinations, got %+v", calls)
	}
	if len(fx.numbers.outcomes) != 1 || fx.numbers.outcomes[0] != (outcome{"n1", 2, 2}) {
		t.Fatalf("unexpected usage %+v", fx.numbers.outcomes)
	}
	for _, c := range res.Calls {
		s, ok := fx.sessions.Get(c.CallUUID)
		if !ok || s.Recipient != c.Recipient || s.Greeting != "Hi from Acme" {
			t.Fatalf("session mismatch for %s: %+v", c.CallUUID, s)
		}
	}
	if fx.limiter.held("t1") != 2 {
		t.Fatalf("expected two slots held, got %d", fx.limiter.held("t1"))
	}
}

func TestMakeBulkCallCapIsAllOrNothing(t *testing.T) {
	fx := newOrchestratorFixture(t, 1)
	_, err := fx.orch.MakeBulkCall(context.Background(), "t1", "b1", BulkRequest{Intake: Intake{Manual: []Recipient{
		{Number: "+14155550001"}, {Number: "+14155550002"},
	}}})
	if !errors.Is(err, ErrConcurrencyLimit) {
		t.Fatalf("expected ErrConcurrencyLimit, got %v", err)
	}
	if fx.limiter.held("t1") != 0 {
		t.Fatalf("partial slots must be returned")
	}
}

func TestMakeBulkCallIntakeErrors(t *testing.T) {
	fx := newOrchestratorFixture(t, 10)
	ctx := context.Background()

	if _, err := fx.orch.MakeBulkCall(ctx, "t1", "b1", BulkRequest{}); !errors.Is(err, ErrNoRecipients) {
		t.Fatalf("expected ErrNoRecipients, got %v", err)
	}
	if _, err := fx.orch.MakeBulkCall(ctx, "t1", "paused", BulkRequest{}); !errors.Is(err, bots.ErrBotInactive) {
		t.Fatalf("gate must run before intake, got %v", err)
	}
}
