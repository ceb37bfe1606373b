package routing

import (
	"context"
	"errors"
	"strings"

	"voice-platform/internal/bots"
	"voice-platform/internal/numbers"
)

// InboundRequest is a provider-agnostic inbound call.
type InboundRequest struct {
	CallUUID string
	From     string
	To       string
}

// Engine decides what to do with an inbound call.
// It returns a Decision only: no provider calls and no writes.
type Engine interface {
	RouteInbound(ctx context.Context, req InboundRequest) (Decision, error)
}

// NumberLookup resolves a dialed number to its live inventory record.
type NumberLookup interface {
	LookupLive(ctx context.Context, number string) (numbers.PhoneNumber, error)
}

// BotLookup resolves a bot without a tenant check.
type BotLookup interface {
	Lookup(ctx context.Context, id string) (bots.Meta, error)
}

var ErrInvalidRequest = errors.New("routing: dialed number required")

// NumberEngine routes by the dialed number.
//
// Priority:
//  1. The number must be live, active and voice enabled.
//  2. It must be dedicated to a bot.
//  3. That bot must belong to the number's tenant and be active.
type NumberEngine struct {
	Numbers NumberLookup
	Bots    BotLookup
}

func NewNumberEngine(nums NumberLookup, bl BotLookup) *NumberEngine {
	return &NumberEngine{Numbers: nums, Bots: bl}
}

func (e *NumberEngine) RouteInbound(ctx context.Context, req InboundRequest) (Decision, error) {
	to := strings.TrimSpace(req.To)
	if to == "" {
		return Decision{}, ErrInvalidRequest
	}
	if e.Numbers == nil || e.Bots == nil {
		return Decision{}, errors.New("routing: engine not configured")
	}

	n, err := e.Numbers.LookupLive(ctx, to)
	if errors.Is(err, numbers.ErrNotFound) {
		return Decision{Action: ActionReject, Reason: ReasonNumberUnknown}, nil
	}
	if err != nil {
		return Decision{}, err
	}
	d := Decision{TenantID: n.TenantID, NumberID: n.ID}

	if !n.Callable() {
		d.Action, d.Reason = ActionReject, ReasonNumberInactive
		return d, nil
	}
	if n.Assignment != numbers.AssignmentDedicated || n.DedicatedBotID == "" {
		d.Action, d.Reason = ActionHangup, ReasonNotAssigned
		return d, nil
	}

	m, err := e.Bots.Lookup(ctx, n.DedicatedBotID)
	if errors.Is(err, bots.ErrNotFound) {
		d.Action, d.Reason = ActionHangup, ReasonBotMissing
		return d, nil
	}
	if err != nil {
		return Decision{}, err
	}
	// A dedicated link across tenants is a data error; treat the bot as absent.
	if m.TenantID != n.TenantID {
		d.Action, d.Reason = ActionHangup, ReasonBotMissing
		return d, nil
	}
	d.BotID = m.ID
	if err := bots.RequireActive(m); err != nil {
		d.Action, d.Reason = ActionReject, ReasonBotInactive
		return d, nil
	}

	d.Action, d.Reason = ActionAnswer, ReasonDedicated
	return d, nil
}
