package transcripts

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"
)

// ErrSessionClosed is returned for a call id that has already been purged.
// A purged call id is never reopened, even by a late provider callback.
var ErrSessionClosed = errors.New("transcripts: session closed")

type Recipient struct {
	Name   string `json:"name"`
	Number string `json:"number"`
}

// SessionInfo is attached when the orchestrator opens a session.
type SessionInfo struct {
	BotID     string
	TenantID  string
	Recipient Recipient
	CallerID  string
	// Greeting overrides the bot greeting for this call when set.
	Greeting string
	// SlotHeld marks that a concurrency slot was taken for this call.
	SlotHeld bool
}

// Session is a snapshot of one in-progress call.
type Session struct {
	SessionInfo
	CallID   string
	Segments []string
	OpenedAt time.Time
}

type Options struct {
	// TombstoneTTL is how long a purged call id keeps rejecting appends.
	TombstoneTTL time.Duration
	// MaxSessionAge drops sessions whose call-ended callback never arrived.
	MaxSessionAge time.Duration
	// SweepInterval is the janitor period for Run.
	SweepInterval time.Duration
	Clock         func() time.Time
}

func (o Options) withDefaults() Options {
	if o.TombstoneTTL <= 0 {
		o.TombstoneTTL = 30 * time.Minute
	}
	if o.MaxSessionAge <= 0 {
		o.MaxSessionAge = 6 * time.Hour
	}
	if o.SweepInterval <= 0 {
		o.SweepInterval = time.Minute
	}
	if o.Clock == nil {
		o.Clock = time.Now
	}
	return o
}

type entry struct {
	mu     sync.Mutex
	s      Session
	closed bool
}

// Store accumulates transcript segments per call id.
//
// State per call id: OPEN (on Open or first Append) -> CLOSED (on Purge). No way back.
// Operations on one call id are serialized by the entry lock; the map has its own lock.
type Store struct {
	opts Options

	mu       sync.Mutex
	sessions map[string]*entry
	closed   map[string]time.Time

	stop      chan struct{}
	closeOnce sync.Once
}

func New(opts Options) *Store {
	return &Store{
		opts:     opts.withDefaults(),
		sessions: map[string]*entry{},
		closed:   map[string]time.Time{},
		stop:     make(chan struct{}),
	}
}

// acquire returns the live entry for callID, creating it when create is set.
func (s *Store) acquire(callID string, create bool) (*entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, gone := s.closed[callID]; gone {
		return nil, ErrSessionClosed
	}
	e, ok := s.sessions[callID]
	if !ok {
		if !create {
			return nil, nil
		}
		e = &entry{s: Session{CallID: callID, OpenedAt: s.opts.Clock()}}
		s.sessions[callID] = e
	}
	return e, nil
}

// Open registers a session at call creation. If an early callback already
// created the session, info is merged into it.
func (s *Store) Open(callID string, info SessionInfo) error {
	if callID == "" {
		return errors.New("transcripts: call id required")
	}
	e, err := s.acquire(callID, true)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrSessionClosed
	}
	e.s.SessionInfo = info
	return nil
}

// Append adds one segment, creating the session if absent (inbound calls).
// Blank segments are ignored.
func (s *Store) Append(callID, segment string) error {
	if callID == "" {
		return errors.New("transcripts: call id required")
	}
	segment = strings.TrimSpace(segment)
	e, err := s.acquire(callID, true)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrSessionClosed
	}
	if segment != "" {
		e.s.Segments = append(e.s.Segments, segment)
	}
	return nil
}

// FullTranscript returns the segments joined by single spaces, or "".
func (s *Store) FullTranscript(callID string) string {
	sess, ok := s.Get(callID)
	if !ok {
		return ""
	}
	return strings.Join(sess.Segments, " ")
}

// Get returns a snapshot of an open session.
func (s *Store) Get(callID string) (Session, bool) {
	e, err := s.acquire(callID, false)
	if err != nil || e == nil {
		return Session{}, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return Session{}, false
	}
	return e.snapshot(), true
}

func (e *entry) snapshot() Session {
	out := e.s
	out.Segments = append([]string(nil), e.s.Segments...)
	return out
}

// Purge closes the session and returns its final snapshot.
// ok is false if the call id was unknown or already purged.
func (s *Store) Purge(callID string) (Session, bool) {
	s.mu.Lock()
	e, ok := s.sessions[callID]
	_, already := s.closed[callID]
	delete(s.sessions, callID)
	if !already {
		s.closed[callID] = s.opts.Clock()
	}
	s.mu.Unlock()

	if !ok {
		return Session{}, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	return e.snapshot(), true
}

// Closed reports whether callID has been purged and is still tombstoned.
func (s *Store) Closed(callID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.closed[callID]
	return ok
}

// Len returns the number of open sessions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Sweep drops expired tombstones and abandoned sessions and returns the abandoned ones.
func (s *Store) Sweep() []Session {
	now := s.opts.Clock()
	s.mu.Lock()
	for id, at := range s.closed {
		if now.Sub(at) >= s.opts.TombstoneTTL {
			delete(s.closed, id)
		}
	}
	var stale []*entry
	for id, e := range s.sessions {
		e.mu.Lock()
		old := now.Sub(e.s.OpenedAt) >= s.opts.MaxSessionAge
		e.mu.Unlock()
		if old {
			delete(s.sessions, id)
			s.closed[id] = now
			stale = append(stale, e)
		}
	}
	s.mu.Unlock()

	out := make([]Session, 0, len(stale))
	for _, e := range stale {
		e.mu.Lock()
		e.closed = true
		out = append(out, e.snapshot())
		e.mu.Unlock()
	}
	return out
}

// Run sweeps periodically until ctx is done or Close is called.
// onAbandon, if set, receives sessions dropped for age.
func (s *Store) Run(ctx context.Context, onAbandon func(Session)) {
	t := time.NewTicker(s.opts.SweepInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stop:
			return
		case <-t.C:
			for _, sess := range s.Sweep() {
				if onAbandon != nil {
					onAbandon(sess)
				}
			}
		}
	}
}

// Close stops Run. Safe to call more than once.
func (s *Store) Close() {
	s.closeOnce.Do(func() { close(s.stop) })
}
