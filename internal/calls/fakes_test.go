package calls

import (
	"context"
	"errors"
	"sync"

	"voice-platform/internal/analytics"
	"voice-platform/internal/bots"
	"voice-platform/internal/llm"
	"voice-platform/internal/numbers"
	"voice-platform/internal/sentiment"
)

type stubBots map[string]bots.Meta

func (s stubBots) Lookup(ctx context.Context, id string) (bots.Meta, error) {
	m, ok := s[id]
	if !ok {
		return bots.Meta{}, bots.ErrNotFound
	}
	return m, nil
}

func (s stubBots) Get(ctx context.Context, tenantID, id string) (bots.Meta, error) {
	m, err := s.Lookup(ctx, id)
	if err != nil {
		return bots.Meta{}, err
	}
	if m.TenantID != tenantID {
		return bots.Meta{}, bots.ErrUnauthorized
	}
	return m, nil
}

type outcome struct {
	id                string
	total, successful int
}

type stubNumbers struct {
	mu       sync.Mutex
	number   numbers.PhoneNumber
	err      error
	explicit []string
	outcomes []outcome
}

func (s *stubNumbers) ResolveCallerID(ctx context.Context, tenantID, botID, explicit string) (numbers.PhoneNumber, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.explicit = append(s.explicit, explicit)
	return s.number, s.err
}

func (s *stubNumbers) RecordOutcomes(ctx context.Context, id string, total, successful int) (numbers.UsageStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.outcomes = append(s.outcomes, outcome{id, total, successful})
	return numbers.UsageStats{}, nil
}

type countingLimiter struct {
	mu       sync.Mutex
	limit    int
	inflight map[string]int
	err      error
	released int
}

func newCountingLimiter(limit int) *countingLimiter {
	return &countingLimiter{limit: limit, inflight: map[string]int{}}
}

func (l *countingLimiter) Acquire(ctx context.Context, tenantID string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return false, l.err
	}
	if l.inflight[tenantID] >= l.limit {
		return false, nil
	}
	l.inflight[tenantID]++
	return true, nil
}

func (l *countingLimiter) Release(ctx context.Context, tenantID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.inflight[tenantID]--
	l.released++
	return nil
}

func (l *countingLimiter) held(tenantID string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.inflight[tenantID]
}

type stubChat struct{ got []string }

func (s *stubChat) Chat(ctx context.Context, botID string, p llm.Persona, message string) string {
	s.got = append(s.got, message)
	return "reply from " + p.Name
}

type stubClassifier struct {
	result sentiment.Result
	got    []string
}

func (s *stubClassifier) Classify(ctx context.Context, transcript string) sentiment.Result {
	s.got = append(s.got, transcript)
	return s.result
}

// flakyRecorder fails the first n records with err, then delegates.
type flakyRecorder struct {
	next Recorder
	err  error
	n    int
}

func (f *flakyRecorder) Record(ctx context.Context, rec analytics.Record) (analytics.Record, error) {
	if f.n > 0 {
		f.n--
		return analytics.Record{}, f.err
	}
	return f.next.Record(ctx, rec)
}

var errStorage = errors.New("storage down")
