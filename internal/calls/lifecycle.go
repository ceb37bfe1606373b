package calls

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"voice-platform/internal/analytics"
	"voice-platform/internal/bots"
	"voice-platform/internal/llm"
	"voice-platform/internal/routing"
	"voice-platform/internal/sentiment"
	"voice-platform/internal/telephony"
	"voice-platform/internal/transcripts"
)

// BotResolver looks bots up by id alone; provider callbacks carry no tenant.
type BotResolver interface {
	Lookup(ctx context.Context, id string) (bots.Meta, error)
}

type Chatter interface {
	Chat(ctx context.Context, botID string, p llm.Persona, message string) string
}

type Classifier interface {
	Classify(ctx context.Context, transcript string) sentiment.Result
}

type Recorder interface {
	Record(ctx context.Context, rec analytics.Record) (analytics.Record, error)
}

// Lifecycle drives calls from provider callbacks. It implements telephony.CallFlow.
type Lifecycle struct {
	bots       BotResolver
	sessions   *transcripts.Store
	chat       Chatter
	classifier Classifier
	analytics  Recorder
	router     routing.Engine
	limiter    Limiter
	hooks      Webhooks
	log        *slog.Logger
}

type LifecycleDeps struct {
	Bots       BotResolver
	Sessions   *transcripts.Store
	Chat       Chatter
	Classifier Classifier
	Analytics  Recorder
	Router     routing.Engine
	Limiter    Limiter
	Hooks      Webhooks
}

func NewLifecycle(d LifecycleDeps, log *slog.Logger) *Lifecycle {
	if log == nil {
		log = slog.Default()
	}
	return &Lifecycle{
		bots:       d.Bots,
		sessions:   d.Sessions,
		chat:       d.Chat,
		classifier: d.Classifier,
		analytics:  d.Analytics,
		router:     d.Router,
		limiter:    d.Limiter,
		hooks:      d.Hooks,
		log:        log,
	}
}

var _ telephony.CallFlow = (*Lifecycle)(nil)

func (l *Lifecycle) bot(ctx context.Context, id string) (bots.Meta, error) {
	m, err := l.bots.Lookup(ctx, id)
	if errors.Is(err, bots.ErrNotFound) {
		return bots.Meta{}, fmt.Errorf("%w: bot %q", telephony.ErrUnknownTarget, id)
	}
	return m, err
}

func DefaultGreeting(m bots.Meta) string {
	return fmt.Sprintf("Hello! I am %s from %s company. How can I help you today?", m.Name, m.CompanyName)
}

// turn speaks text and records the caller's reply.
func (l *Lifecycle) turn(m bots.Meta, text string) telephony.Script {
	return telephony.Script{
		Say:      text,
		Voice:    m.Voice,
		Language: m.Language,
		Record: &telephony.RecordStep{
			ActionURL:        l.hooks.Transcript(m.ID),
			TranscriptionURL: l.hooks.Transcript(m.ID),
			MaxLengthSeconds: telephony.DefaultRecordSeconds,
		},
	}
}

// Answer greets the callee. An outbound session's message override wins over the bot greeting.
func (l *Lifecycle) Answer(ctx context.Context, ev telephony.AnswerEvent) (telephony.Script, error) {
	m, err := l.bot(ctx, ev.BotID)
	if err != nil {
		return telephony.Script{}, err
	}
	greeting := DefaultGreeting(m)
	if s, ok := l.sessions.Get(ev.CallUUID); ok && s.Greeting != "" {
		greeting = s.Greeting
	}
	l.log.Debug("call answered", "bot_id", m.ID, "call_uuid", ev.CallUUID, "state", StateRecording)
	return l.turn(m, greeting), nil
}

// Transcript stores the segment and answers it. A segment for a closed call is
// dropped but the caller still gets a reply.
func (l *Lifecycle) Transcript(ctx context.Context, ev telephony.TranscriptEvent) (telephony.Script, error) {
	m, err := l.bot(ctx, ev.BotID)
	if err != nil {
		return telephony.Script{}, err
	}
	text := strings.TrimSpace(ev.Transcription)

	if text != "" && ev.CallUUID != "" {
		err := l.sessions.Append(ev.CallUUID, text)
		switch {
		case errors.Is(err, transcripts.ErrSessionClosed):
			l.log.Info("segment for closed call dropped", "bot_id", m.ID, "call_uuid", ev.CallUUID)
		case err != nil:
			l.log.Warn("segment append failed", "bot_id", m.ID, "call_uuid", ev.CallUUID, "err", err)
		default:
			l.log.Debug("segment captured", "bot_id", m.ID, "call_uuid", ev.CallUUID, "state", StateSegmentCaptured)
		}
	}

	reply := m.FallbackResponse
	if text != "" {
		reply = l.chat.Chat(ctx, m.ID, llm.Persona{
			Name:     m.Name,
			Company:  m.CompanyName,
			Fallback: m.FallbackResponse,
		}, text)
	}
	return l.turn(m, reply), nil
}

// CallEnded classifies the transcript, records the verdict, then purges the session.
// If recording fails for any reason but a duplicate, the session stays open so a
// redelivered callback can retry.
func (l *Lifecycle) CallEnded(ctx context.Context, ev telephony.HangupEvent) (telephony.CallEndedResult, error) {
	sess, open := l.sessions.Get(ev.CallUUID)
	botID := ev.BotID
	if botID == "" {
		botID = sess.BotID
	}
	if botID == "" {
		return telephony.CallEndedResult{}, fmt.Errorf("%w: call %q", telephony.ErrUnknownTarget, ev.CallUUID)
	}
	m, err := l.bot(ctx, botID)
	if err != nil {
		return telephony.CallEndedResult{}, err
	}
	log := l.log.With("bot_id", m.ID, "call_uuid", ev.CallUUID)

	if !open && l.sessions.Closed(ev.CallUUID) {
		log.Info("call end redelivered after purge")
		return telephony.CallEndedResult{CallUUID: ev.CallUUID, Duplicate: true}, nil
	}

	tenantID := sess.TenantID
	if tenantID == "" {
		tenantID = m.TenantID
	}
	number := sess.Recipient.Number
	if number == "" {
		number = ev.To
	}
	log.Debug("call ended", "state", StateEnded, "segments", len(sess.Segments))

	verdict := l.classifier.Classify(ctx, l.sessions.FullTranscript(ev.CallUUID))
	out := telephony.CallEndedResult{
		CallUUID:   ev.CallUUID,
		Category:   string(verdict.Category),
		Confidence: verdict.Confidence,
	}

	_, err = l.analytics.Record(ctx, analytics.Record{
		TenantID:        tenantID,
		BotID:           m.ID,
		CallUUID:        ev.CallUUID,
		RecipientName:   sess.Recipient.Name,
		RecipientNumber: number,
		Category:        verdict.Category,
		Confidence:      verdict.Confidence,
		Reason:          verdict.Reason,
		FollowUpAction:  verdict.FollowUpAction,
		DurationSeconds: ev.DurationSeconds,
	})
	switch {
	case errors.Is(err, analytics.ErrDuplicateRecord):
		log.Info("call already analyzed")
		out.Duplicate = true
	case err != nil:
		log.Error("analytics record failed; session kept", "err", err)
		return telephony.CallEndedResult{}, err
	default:
		log.Info("call analyzed", "state", StateAnalyzed, "category", verdict.Category)
	}

	if purged, ok := l.sessions.Purge(ev.CallUUID); ok {
		l.releaseSlot(purged)
	}
	log.Debug("call purged", "state", StatePurged)
	return out, nil
}

// Abandon releases what a session held when its call-ended callback never came.
func (l *Lifecycle) Abandon(s transcripts.Session) {
	l.log.Warn("call session abandoned", "bot_id", s.BotID, "call_uuid", s.CallID, "segments", len(s.Segments))
	l.releaseSlot(s)
}

func (l *Lifecycle) releaseSlot(s transcripts.Session) {
	if !s.SlotHeld || l.limiter == nil {
		return
	}
	if err := l.limiter.Release(context.Background(), s.TenantID); err != nil {
		l.log.Warn("concurrency slot release failed", "tenant_id", s.TenantID, "call_uuid", s.CallID, "err", err)
	}
}

// Inbound answers a call to a tenant number with the bot dedicated to it.
func (l *Lifecycle) Inbound(ctx context.Context, ev telephony.AnswerEvent) (telephony.Script, error) {
	if l.router == nil {
		return telephony.Script{HangupReason: "rejected"}, nil
	}
	d, err := l.router.RouteInbound(ctx, routing.InboundRequest{CallUUID: ev.CallUUID, From: ev.From, To: ev.To})
	if err != nil {
		return telephony.Script{}, err
	}
	log := l.log.With("call_uuid", ev.CallUUID, "tenant_id", d.TenantID, "reason", d.Reason)

	switch d.Action {
	case routing.ActionReject:
		log.Info("inbound call rejected")
		return telephony.Script{HangupReason: "rejected"}, nil
	case routing.ActionHangup:
		log.Info("inbound call not routed")
		return telephony.Script{HangupReason: "rejected"}, nil
	case routing.ActionAnswer:
	default:
		return telephony.Script{}, fmt.Errorf("calls: unknown routing action %q", d.Action)
	}

	m, err := l.bot(ctx, d.BotID)
	if err != nil {
		return telephony.Script{}, err
	}

	held := false
	if l.limiter != nil {
		ok, err := l.limiter.Acquire(ctx, d.TenantID)
		switch {
		case err != nil:
			log.Warn("concurrency cap unavailable", "err", err)
		case !ok:
			log.Info("inbound call over tenant cap")
			return telephony.Script{HangupReason: "busy"}, nil
		default:
			held = true
		}
	}

	info := transcripts.SessionInfo{
		BotID:     m.ID,
		TenantID:  d.TenantID,
		Recipient: Recipient{Number: ev.From},
		CallerID:  ev.To,
		SlotHeld:  held,
	}
	if err := l.sessions.Open(ev.CallUUID, info); err != nil {
		if held {
			l.releaseSlot(transcripts.Session{SessionInfo: info, CallID: ev.CallUUID})
		}
		return telephony.Script{}, err
	}
	log.Info("inbound call answered", "bot_id", m.ID)
	return l.turn(m, DefaultGreeting(m)), nil
}
