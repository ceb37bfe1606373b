package calls

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"voice-platform/internal/bots"
	"voice-platform/internal/numbers"
	"voice-platform/internal/telephony"
	"voice-platform/internal/transcripts"
)

// BotDirectory is the tenant-scoped bot read used to gate calls.
type BotDirectory interface {
	Get(ctx context.Context, tenantID, id string) (bots.Meta, error)
}

// CallerIDs picks caller ids and tracks their usage.
type CallerIDs interface {
	ResolveCallerID(ctx context.Context, tenantID, botID, explicit string) (numbers.PhoneNumber, error)
	RecordOutcomes(ctx context.Context, id string, total, successful int) (numbers.UsageStats, error)
}

// Orchestrator places outbound calls.
//
// Order per call: gate, normalize, resolve caller id, take slots, create the
// provider call, record usage, then open sessions (or give slots back).
type Orchestrator struct {
	bots     BotDirectory
	numbers  CallerIDs
	provider telephony.Provider
	sessions *transcripts.Store
	limiter  Limiter
	hooks    Webhooks
	log      *slog.Logger
}

func NewOrchestrator(bd BotDirectory, ids CallerIDs, provider telephony.Provider, sessions *transcripts.Store, limiter Limiter, hooks Webhooks, log *slog.Logger) *Orchestrator {
	if log == nil {
		log = slog.Default()
	}
	return &Orchestrator{
		bots:     bd,
		numbers:  ids,
		provider: provider,
		sessions: sessions,
		limiter:  limiter,
		hooks:    hooks,
		log:      log,
	}
}

// gate returns the bot if it is owned by tenantID and active.
func (o *Orchestrator) gate(ctx context.Context, tenantID, botID string) (bots.Meta, error) {
	m, err := o.bots.Get(ctx, tenantID, botID)
	if errors.Is(err, bots.ErrUnauthorized) {
		return bots.Meta{}, ErrUnauthorized
	}
	if err != nil {
		return bots.Meta{}, err
	}
	if err := bots.RequireActive(m); err != nil {
		return bots.Meta{}, err
	}
	return m, nil
}

func (o *Orchestrator) MakeCall(ctx context.Context, tenantID, botID string, req CallRequest) (CallResult, error) {
	m, err := o.gate(ctx, tenantID, botID)
	if err != nil {
		return CallResult{}, err
	}
	to := NormalizeNumber(req.Recipient.Number)
	if to == "" {
		return CallResult{}, fmt.Errorf("%w: recipient number required", ErrValidation)
	}
	from, err := o.numbers.ResolveCallerID(ctx, tenantID, m.ID, strings.TrimSpace(req.From))
	if err != nil {
		return CallResult{}, err
	}

	held, err := o.takeSlots(ctx, tenantID, 1)
	if err != nil {
		return CallResult{}, err
	}

	res, err := o.provider.CreateCall(ctx, telephony.CreateCallRequest{
		From:      from.Number,
		To:        []string{to},
		AnswerURL: o.hooks.Answer(m.ID),
		HangupURL: o.hooks.CallEnded(m.ID),
	})
	if err == nil && len(res.CallIDs) == 0 {
		err = fmt.Errorf("%w: no call id returned", telephony.ErrProviderRejected)
	}
	o.recordUsage(ctx, from.ID, err == nil, len(res.CallIDs))
	if err != nil {
		o.releaseSlots(tenantID, held)
		o.log.Warn("outbound call rejected",
			"tenant_id", tenantID, "bot_id", m.ID, "state", StateProviderRejected, "err", err)
		return CallResult{}, err
	}

	rcpt := Recipient{Name: strings.TrimSpace(req.Recipient.Name), Number: to}
	callID := res.CallIDs[0]
	o.open(callID, transcripts.SessionInfo{
		BotID:     m.ID,
		TenantID:  tenantID,
		Recipient: rcpt,
		CallerID:  from.Number,
		Greeting:  strings.TrimSpace(req.Message),
		SlotHeld:  held > 0,
	})
	o.log.Info("outbound call placed",
		"tenant_id", tenantID, "bot_id", m.ID, "call_uuid", callID, "state", StateProviderAccepted)

	return CallResult{
		CallUUID:  callID,
		BotID:     m.ID,
		From:      from.Number,
		Recipient: rcpt,
		State:     StateProviderAccepted,
	}, nil
}

// MakeBulkCall places one provider request for every recipient, with one caller id for the batch.
// Without a message override the bot's outbound greeting is spoken.
func (o *Orchestrator) MakeBulkCall(ctx context.Context, tenantID, botID string, req BulkRequest) (BulkResult, error) {
	m, err := o.gate(ctx, tenantID, botID)
	if err != nil {
		return BulkResult{}, err
	}
	recipients, err := ParseRecipients(req.Intake)
	if err != nil {
		return BulkResult{}, err
	}
	from, err := o.numbers.ResolveCallerID(ctx, tenantID, m.ID, strings.TrimSpace(req.From))
	if err != nil {
		return BulkResult{}, err
	}

	held, err := o.takeSlots(ctx, tenantID, len(recipients))
	if err != nil {
		return BulkResult{}, err
	}

	dest := make([]string, len(recipients))
	for i, r := range recipients {
		dest[i] = r.Number
	}
	res, err := o.provider.CreateCall(ctx, telephony.CreateCallRequest{
		From:      from.Number,
		To:        dest,
		AnswerURL: o.hooks.Answer(m.ID),
		HangupURL: o.hooks.CallEnded(m.ID),
	})
	if err == nil && len(res.CallIDs) == 0 {
		err = fmt.Errorf("%w: no call ids returned", telephony.ErrProviderRejected)
	}
	o.recordUsage(ctx, from.ID, err == nil, len(res.CallIDs))
	if err != nil {
		o.releaseSlots(tenantID, held)
		o.log.Warn("bulk call rejected",
			"tenant_id", tenantID, "bot_id", m.ID, "recipients", len(recipients), "err", err)
		return BulkResult{}, err
	}

	message := strings.TrimSpace(req.Message)
	if message == "" {
		message = m.OutboundGreeting
	}
	out := BulkResult{BotID: m.ID, From: from.Number, SpokenMessage: message}

	// Call ids map to recipients by position.
	for i, r := range recipients {
		if i >= len(res.CallIDs) {
			out.Unplaced = append(out.Unplaced, r)
			continue
		}
		callID := res.CallIDs[i]
		o.open(callID, transcripts.SessionInfo{
			BotID:     m.ID,
			TenantID:  tenantID,
			Recipient: r,
			CallerID:  from.Number,
			Greeting:  message,
			SlotHeld:  i < held,
		})
		out.Calls = append(out.Calls, CallResult{
			CallUUID:  callID,
			BotID:     m.ID,
			From:      from.Number,
			Recipient: r,
			State:     StateProviderAccepted,
		})
	}
	if extra := held - len(out.Calls); extra > 0 {
		o.releaseSlots(tenantID, extra)
	}
	o.log.Info("bulk call placed",
		"tenant_id", tenantID, "bot_id", m.ID, "placed", len(out.Calls), "unplaced", len(out.Unplaced))
	return out, nil
}

// takeSlots reserves n slots or none. It returns how many slots are held,
// which is 0 without a limiter or when redis is unreachable.
func (o *Orchestrator) takeSlots(ctx context.Context, tenantID string, n int) (int, error) {
	if o.limiter == nil {
		return 0, nil
	}
	for i := 0; i < n; i++ {
		ok, err := o.limiter.Acquire(ctx, tenantID)
		if err != nil {
			// Redis trouble must not stop calling; the cap is best effort.
			o.log.Warn("concurrency cap unavailable", "tenant_id", tenantID, "err", err)
			o.releaseSlots(tenantID, i)
			return 0, nil
		}
		if !ok {
			o.releaseSlots(tenantID, i)
			return 0, ErrConcurrencyLimit
		}
	}
	return n, nil
}

func (o *Orchestrator) releaseSlots(tenantID string, n int) {
	for i := 0; i < n; i++ {
		if err := o.limiter.Release(context.Background(), tenantID); err != nil {
			o.log.Warn("concurrency slot release failed", "tenant_id", tenantID, "err", err)
			return
		}
	}
}

func (o *Orchestrator) recordUsage(ctx context.Context, numberID string, ok bool, placed int) {
	total, successful := 1, 0
	if ok {
		total, successful = placed, placed
	}
	if _, err := o.numbers.RecordOutcomes(ctx, numberID, total, successful); err != nil {
		o.log.Warn("usage update failed", "number_id", numberID, "err", err)
	}
}

func (o *Orchestrator) open(callID string, info transcripts.SessionInfo) {
	if err := o.sessions.Open(callID, info); err != nil {
		o.log.Warn("session open failed", "call_uuid", callID, "err", err)
	}
}
