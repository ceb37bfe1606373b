package telephony

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// SandboxProvider is an in-process provider for local and dev environments.
//
// It never leaves the process:
// - SearchNumbers synthesizes listings for the requested country.
// - BuyNumber succeeds unless the number was already bought here.
// - CreateCall returns fresh uuids and remembers the request.
// - Speak returns a short silent WAV sized to the text.
type SandboxProvider struct {
	mu sync.Mutex

	owned map[string]bool
	calls []CreateCallRequest

	// PendingCountries lists dial prefixes (e.g. "+91") whose purchases need compliance.
	PendingCountries []string
	// RejectCalls makes CreateCall fail with ErrProviderRejected.
	RejectCalls bool
}

func NewSandboxProvider() *SandboxProvider {
	return &SandboxProvider{owned: map[string]bool{}}
}

func (p *SandboxProvider) Name() string { return "sandbox" }

func (p *SandboxProvider) HealthCheck(ctx context.Context) error { return ctx.Err() }

var sandboxCountryPrefix = map[string]string{
	"US": "+1415555",
	"CA": "+1604555",
	"GB": "+44207946",
	"IN": "+9180000",
	"AU": "+6128000",
}

func (p *SandboxProvider) SearchNumbers(ctx context.Context, req SearchRequest) ([]Listing, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	iso := strings.ToUpper(req.CountryISO)
	prefix, ok := sandboxCountryPrefix[iso]
	if !ok {
		return nil, fmt.Errorf("%w: sandbox has no inventory for %q", ErrProviderRejected, req.CountryISO)
	}
	typ := req.Type
	if typ == "" {
		typ = NumberTypeLocal
	}
	limit := req.Limit
	if limit <= 0 || limit > 20 {
		limit = 5
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]Listing, 0, limit)
	for i := 0; len(out) < limit && i < 1000; i++ {
		n := fmt.Sprintf("%s%04d", prefix, i)
		if p.owned[n] {
			continue
		}
		if req.Pattern != "" && !strings.Contains(strings.TrimPrefix(n, "+"), req.Pattern) {
			continue
		}
		out = append(out, Listing{
			Number:             n,
			Type:               typ,
			Country:            iso,
			Region:             req.Region,
			MonthlyCost:        0.8,
			VoiceEnabled:       true,
			SMSEnabled:         typ != NumberTypeTollFree,
			ComplianceRequired: p.pendingLocked(n),
		})
	}
	return out, nil
}

func (p *SandboxProvider) BuyNumber(ctx context.Context, req BuyNumberRequest) (BuyNumberResult, error) {
	if err := ctx.Err(); err != nil {
		return BuyNumberResult{}, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.owned[req.Number] {
		return BuyNumberResult{}, fmt.Errorf("%w: %s is not available", ErrProviderRejected, req.Number)
	}
	p.owned[req.Number] = true
	return BuyNumberResult{
		Number:           req.Number,
		ProviderNumberID: fromE164(req.Number),
		Type:             NumberTypeLocal,
		MonthlyCost:      0.8,
		VoiceEnabled:     true,
		SMSEnabled:       true,
		Pending:          p.pendingLocked(req.Number),
	}, nil
}

func (p *SandboxProvider) pendingLocked(number string) bool {
	for _, pre := range p.PendingCountries {
		if strings.HasPrefix(number, pre) {
			return true
		}
	}
	return false
}

func (p *SandboxProvider) ReleaseNumber(ctx context.Context, req ReleaseNumberRequest) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.owned, req.Number)
	return nil
}

func (p *SandboxProvider) CreateCall(ctx context.Context, req CreateCallRequest) (CreateCallResult, error) {
	if err := ctx.Err(); err != nil {
		return CreateCallResult{}, fmt.Errorf("%w: %v", ErrProviderTimeout, err)
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.RejectCalls {
		return CreateCallResult{}, fmt.Errorf("%w: sandbox configured to reject calls", ErrProviderRejected)
	}
	if req.From == "" || len(req.To) == 0 || req.AnswerURL == "" {
		return CreateCallResult{}, fmt.Errorf("%w: from, to and answer_url required", ErrProviderRejected)
	}
	p.calls = append(p.calls, req)

	ids := make([]string, len(req.To))
	for i := range req.To {
		ids[i] = uuid.NewString()
	}
	return CreateCallResult{CallIDs: ids}, nil
}

// Calls returns a copy of every accepted call request.
func (p *SandboxProvider) Calls() []CreateCallRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]CreateCallRequest, len(p.calls))
	copy(out, p.calls)
	return out
}

const sandboxSampleRate = 8000

func (p *SandboxProvider) Speak(ctx context.Context, req SpeakRequest) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Text) == "" {
		return nil, fmt.Errorf("%w: text required", ErrProviderRejected)
	}
	// Roughly 60ms of audio per character, 8kHz mono 8-bit PCM.
	samples := len(req.Text) * sandboxSampleRate * 60 / 1000
	return silentWAV(samples), nil
}

func silentWAV(samples int) []byte {
	var b bytes.Buffer
	b.WriteString("RIFF")
	_ = binary.Write(&b, binary.LittleEndian, uint32(36+samples))
	b.WriteString("WAVEfmt ")
	_ = binary.Write(&b, binary.LittleEndian, uint32(16))
	_ = binary.Write(&b, binary.LittleEndian, uint16(1)) // PCM
	_ = binary.Write(&b, binary.LittleEndian, uint16(1)) // mono
	_ = binary.Write(&b, binary.LittleEndian, uint32(sandboxSampleRate))
	_ = binary.Write(&b, binary.LittleEndian, uint32(sandboxSampleRate))
	_ = binary.Write(&b, binary.LittleEndian, uint16(1))
	_ = binary.Write(&b, binary.LittleEndian, uint16(8))
	b.WriteString("data")
	_ = binary.Write(&b, binary.LittleEndian, uint32(samples))
	// 8-bit PCM silence is the midpoint value.
	b.Write(bytes.Repeat([]byte{0x80}, samples))
	return b.Bytes()
}
