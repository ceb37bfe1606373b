package numbers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"
	"time"

	"voice-platform/internal/audit"
	"voice-platform/internal/telephony"

	"github.com/google/uuid"
)

// BotOwnership answers whether a bot belongs to a tenant. Missing bots report false.
type BotOwnership interface {
	OwnsBot(ctx context.Context, tenantID, botID string) (bool, error)
}

// Service owns number inventory, caller-id resolution and usage tracking.
//
// Tenancy invariant:
// - tenant_id is required on every tenant-facing operation and enforced in every repo query.
type Service struct {
	repo     Repository
	provider telephony.Provider
	bots     BotOwnership
	audit    *audit.Service
	log      *slog.Logger
	// clock is injectable for deterministic tests.
	clock func() time.Time
}

func NewService(repo Repository, provider telephony.Provider, bots BotOwnership, auditSvc *audit.Service, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		repo:     repo,
		provider: provider,
		bots:     bots,
		audit:    auditSvc,
		log:      log,
		clock:    time.Now,
	}
}

var e164 = regexp.MustCompile(`^\+[0-9]+$`)

// ValidE164 reports whether s is "+" followed by digits.
func ValidE164(s string) bool { return e164.MatchString(s) }

// SearchAvailable lists numbers the provider can sell.
func (s *Service) SearchAvailable(ctx context.Context, req telephony.SearchRequest) ([]telephony.Listing, error) {
	if strings.TrimSpace(req.CountryISO) == "" {
		return nil, fmt.Errorf("%w: country_iso required", ErrValidation)
	}
	if req.Type != "" && !req.Type.Valid() {
		return nil, fmt.Errorf("%w: unknown number type %q", ErrValidation, req.Type)
	}
	return s.provider.SearchNumbers(ctx, req)
}

// Purchase buys number from the provider and records it for tenantID.
// The tenant's first live number becomes its default.
func (s *Service) Purchase(ctx context.Context, tenantID, number, alias string) (PhoneNumber, error) {
	number = strings.TrimSpace(number)
	if tenantID == "" {
		return PhoneNumber{}, fmt.Errorf("%w: tenant required", ErrValidation)
	}
	if !ValidE164(number) {
		return PhoneNumber{}, fmt.Errorf("%w: number must be E.164 (+ followed by digits)", ErrValidation)
	}

	bought, err := s.provider.BuyNumber(ctx, telephony.BuyNumberRequest{Number: number})
	if err != nil {
		s.log.Warn("number purchase failed", "tenant_id", tenantID, "number", number, "err", err)
		return PhoneNumber{}, err
	}

	live, err := s.repo.CountLive(ctx, tenantID)
	if err != nil {
		return PhoneNumber{}, err
	}
	alias = strings.TrimSpace(alias)
	if alias == "" {
		alias = fmt.Sprintf("My Number %d", live+1)
	}

	now := s.clock().UTC()
	status := StatusActive
	if bought.Pending {
		status = StatusPending
	}
	typ := bought.Type
	if !typ.Valid() {
		typ = telephony.NumberTypeLocal
	}
	n := PhoneNumber{
		ID:               uuid.NewString(),
		TenantID:         tenantID,
		Number:           number,
		ProviderNumberID: bought.ProviderNumberID,
		Alias:            alias,
		NumberType:       typ,
		Country:          bought.Country,
		MonthlyCost:      bought.MonthlyCost,
		VoiceEnabled:     bought.VoiceEnabled,
		SMSEnabled:       bought.SMSEnabled,
		Status:           status,
		Assignment:       AssignmentPooled,
		IsDefault:        live == 0,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	err = s.repo.Insert(ctx, n)
	if errors.Is(err, errDefaultTaken) {
		// A concurrent purchase claimed the default first.
		n.IsDefault = false
		err = s.repo.Insert(ctx, n)
	}
	if err != nil {
		// The provider already rented the number; surface loudly so ops can reconcile.
		s.log.Error("number bought but not recorded", "tenant_id", tenantID, "number", number, "err", err)
		return PhoneNumber{}, err
	}

	s.audit.LogNumberEvent(ctx, tenantID, audit.EventTypeNumberPurchased, n.ID, "", number)
	s.log.Info("number purchased", "tenant_id", tenantID, "number_id", n.ID, "status", n.Status, "default", n.IsDefault)
	return n, nil
}

// ListForTenant returns live numbers, default first then newest first.
func (s *Service) ListForTenant(ctx context.Context, tenantID string, f ListFilter) ([]PhoneNumber, error) {
	all, err := s.repo.ListByTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	out := make([]PhoneNumber, 0, len(all))
	for _, n := range all {
		if f.ActiveOnly && n.Status != StatusActive {
			continue
		}
		if f.Type != "" && n.NumberType != f.Type {
			continue
		}
		out = append(out, n)
	}
	return out, nil
}

// Get returns a live number owned by tenantID.
func (s *Service) Get(ctx context.Context, tenantID, id string) (PhoneNumber, error) {
	n, err := s.repo.Get(ctx, tenantID, id)
	if err != nil {
		return PhoneNumber{}, err
	}
	if !n.Live() {
		return PhoneNumber{}, ErrNotFound
	}
	return n, nil
}

// Usage returns the number's typed usage view.
func (s *Service) Usage(ctx context.Context, tenantID, id string) (UsageStats, error) {
	n, err := s.Get(ctx, tenantID, id)
	if err != nil {
		return UsageStats{}, err
	}
	return n.Usage.View(), nil
}

func (s *Service) SetDefault(ctx context.Context, tenantID, id string) error {
	if err := s.repo.SetDefault(ctx, tenantID, id, s.clock().UTC()); err != nil {
		return err
	}
	s.audit.LogNumberEvent(ctx, tenantID, audit.EventTypeDefaultChanged, id, "", "")
	return nil
}

// AssignToBot dedicates a number to a bot; both must belong to tenantID.
func (s *Service) AssignToBot(ctx context.Context, tenantID, id, botID string) error {
	if botID == "" {
		return fmt.Errorf("%w: bot_id required", ErrValidation)
	}
	if _, err := s.Get(ctx, tenantID, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrUnauthorized
		}
		return err
	}
	owns, err := s.bots.OwnsBot(ctx, tenantID, botID)
	if err != nil {
		return err
	}
	if !owns {
		return ErrUnauthorized
	}
	if err := s.repo.SetAssignment(ctx, tenantID, id, AssignmentDedicated, botID, s.clock().UTC()); err != nil {
		return err
	}
	s.audit.LogNumberEvent(ctx, tenantID, audit.EventTypeNumberAssigned, id, botID, "")
	return nil
}

// ReleaseFromBot clears a dedicated link and returns the number to the pool.
func (s *Service) ReleaseFromBot(ctx context.Context, tenantID, id string) error {
	n, err := s.Get(ctx, tenantID, id)
	if err != nil {
		return err
	}
	if err := s.repo.SetAssignment(ctx, tenantID, id, AssignmentPooled, "", s.clock().UTC()); err != nil {
		return err
	}
	s.audit.LogNumberEvent(ctx, tenantID, audit.EventTypeNumberUnassigned, id, n.DedicatedBotID, "")
	return nil
}

// Release returns the number to the provider. Released numbers are terminal.
func (s *Service) Release(ctx context.Context, tenantID, id string) error {
	n, err := s.Get(ctx, tenantID, id)
	if err != nil {
		return err
	}
	if err := s.provider.ReleaseNumber(ctx, telephony.ReleaseNumberRequest{
		Number:           n.Number,
		ProviderNumberID: n.ProviderNumberID,
	}); err != nil {
		s.log.Warn("provider release failed", "tenant_id", tenantID, "number_id", id, "err", err)
		return err
	}
	if err := s.repo.MarkReleased(ctx, tenantID, id, s.clock().UTC()); err != nil {
		return err
	}
	s.audit.LogNumberEvent(ctx, tenantID, audit.EventTypeNumberReleased, id, "", n.Number)
	return nil
}

func (s *Service) UpdateAlias(ctx context.Context, tenantID, id, alias string) (PhoneNumber, error) {
	alias = strings.TrimSpace(alias)
	if alias == "" {
		return PhoneNumber{}, fmt.Errorf("%w: alias required", ErrValidation)
	}
	if err := s.repo.UpdateAlias(ctx, tenantID, id, alias, s.clock().UTC()); err != nil {
		return PhoneNumber{}, err
	}
	return s.Get(ctx, tenantID, id)
}

// ResolveCallerID picks the number used as caller id for botID.
//
// Order: explicit (must be owned, active, voice) > dedicated to bot > tenant default > oldest pooled.
// explicit may be a number record id or a phone number with or without the leading '+'.
// A non-empty explicit value that matches nothing is ErrNumberNotOwned, never a fallback.
func (s *Service) ResolveCallerID(ctx context.Context, tenantID, botID, explicit string) (PhoneNumber, error) {
	all, err := s.repo.ListByTenant(ctx, tenantID)
	if err != nil {
		return PhoneNumber{}, err
	}

	if explicit = strings.TrimSpace(explicit); explicit != "" {
		want := explicit
		if !strings.HasPrefix(want, "+") {
			want = "+" + strings.TrimLeft(want, "0")
		}
		if !ValidE164(want) {
			want = ""
		}
		for _, n := range all {
			if ((want != "" && n.Number == want) || n.ID == explicit) && n.Callable() {
				return n, nil
			}
		}
		return PhoneNumber{}, ErrNumberNotOwned
	}

	callable := make([]PhoneNumber, 0, len(all))
	for _, n := range all {
		if n.Callable() {
			callable = append(callable, n)
		}
	}
	sort.SliceStable(callable, func(i, j int) bool {
		return callable[i].CreatedAt.Before(callable[j].CreatedAt)
	})

	if botID != "" {
		for _, n := range callable {
			if n.Assignment == AssignmentDedicated && n.DedicatedBotID == botID {
				return n, nil
			}
		}
	}
	for _, n := range callable {
		if n.IsDefault {
			return n, nil
		}
	}
	for _, n := range callable {
		if n.Assignment == AssignmentPooled {
			return n, nil
		}
	}
	return PhoneNumber{}, ErrNoPhoneNumber
}

// RecordOutcome adds one call outcome to the number's usage counters.
func (s *Service) RecordOutcome(ctx context.Context, id string, success bool) (UsageStats, error) {
	ok := 0
	if success {
		ok = 1
	}
	return s.RecordOutcomes(ctx, id, 1, ok)
}

// RecordOutcomes adds total outcomes, successful of them successes, in one atomic update.
func (s *Service) RecordOutcomes(ctx context.Context, id string, total, successful int) (UsageStats, error) {
	if total <= 0 || successful < 0 || successful > total {
		return UsageStats{}, fmt.Errorf("%w: bad outcome counts %d/%d", ErrValidation, successful, total)
	}
	return s.repo.RecordOutcomes(ctx, id, total, successful, s.clock().UTC())
}

// ForBot lists caller ids selectable for botID: default first, then numbers dedicated
// to the bot, then pooled numbers. Numbers dedicated to other bots are excluded unless default.
func (s *Service) ForBot(ctx context.Context, tenantID, botID string) ([]DropdownEntry, error) {
	all, err := s.repo.ListByTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	rank := func(n PhoneNumber) int {
		switch {
		case n.IsDefault:
			return 0
		case n.Assignment == AssignmentDedicated:
			return 1
		default:
			return 2
		}
	}
	var usable []PhoneNumber
	for _, n := range all {
		if !n.Callable() {
			continue
		}
		if n.Assignment == AssignmentDedicated && n.DedicatedBotID != botID && !n.IsDefault {
			continue
		}
		usable = append(usable, n)
	}
	sort.SliceStable(usable, func(i, j int) bool { return rank(usable[i]) < rank(usable[j]) })

	out := make([]DropdownEntry, 0, len(usable))
	for _, n := range usable {
		label := fmt.Sprintf("%s (%s)", n.Alias, n.Number)
		dedicated := n.Assignment == AssignmentDedicated
		switch {
		case n.IsDefault:
			label += " - Default"
		case dedicated:
			label += " - Dedicated"
		}
		out = append(out, DropdownEntry{
			ID:          n.ID,
			Number:      n.Number,
			Label:       label,
			IsDefault:   n.IsDefault,
			Dedicated:   dedicated,
			SuccessRate: n.Usage.View().SuccessRate,
		})
	}
	return out, nil
}

// LookupLive returns the live record for an E.164 number, regardless of tenant.
// Used by inbound routing only.
func (s *Service) LookupLive(ctx context.Context, number string) (PhoneNumber, error) {
	return s.repo.GetByNumber(ctx, number)
}
