package bus

import (
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"github.com/uiprobe/uiprobe/internal/events"
)

// Transport is one live push-delivery channel bound to a session: one SSE
// connection, one WebSocket, or a test double. Implementations must be
// comparable (pointer types) because the bus removes them by identity.
//
// Send must not block on a slow consumer; a transport that cannot accept
// the write returns an error and is removed from its session by the caller.
// Send and Close may be invoked from unrelated goroutines.
type Transport interface {
	Send(ev events.Event) error
	Close() error
}

// How many drained session ids to remember. Only used to classify stray
// publishes in logs, never for delivery.
const completedCacheSize = 512

type session struct {
	id         string
	createdAt  time.Time
	transports []Transport // registration order
}

// Bus owns the session → transports mapping and is the only place it is
// mutated. One explicitly-constructed instance is shared by injection;
// there is no package-level bus.
//
// Publish never blocks Register for an unrelated session: the lock is held
// only to snapshot or mutate the map, never across transport writes.
type Bus struct {
	mu        sync.RWMutex
	sessions  map[string]*session
	completed *lru.Cache[string, time.Time]
	log       *zap.Logger
	metrics   *Metrics
}

// New builds a Bus. metrics may be nil.
func New(log *zap.Logger, metrics *Metrics) *Bus {
	// lru.New only fails on a non-positive size.
	completed, _ := lru.New[string, time.Time](completedCacheSize)
	return &Bus{
		sessions:  make(map[string]*session),
		completed: completed,
		log:       log,
		metrics:   metrics,
	}
}

// Register attaches t to sessionID, creating the session entry if absent.
// The synthetic connected acknowledgement is delivered before t joins the
// live set; when that first write fails the transport is discarded, no
// session entry is created for it, and the error is returned so the caller
// can drop the connection.
func (b *Bus) Register(sessionID string, t Transport) error {
	ack := events.Connected{
		SessionID: sessionID,
		Status:    "connected",
		Timestamp: time.Now(),
	}
	if err := t.Send(ack); err != nil {
		b.log.Warn("connected ack failed, discarding transport",
			zap.String("session", sessionID), zap.Error(err))
		return err
	}

	b.mu.Lock()
	s, ok := b.sessions[sessionID]
	if !ok {
		s = &session{id: sessionID, createdAt: time.Now()}
		b.sessions[sessionID] = s
		b.metrics.sessionOpened()
	}
	s.transports = append(s.transports, t)
	live := len(s.transports)
	b.mu.Unlock()

	// A fresh registration revives an id that previously drained.
	b.completed.Remove(sessionID)
	b.metrics.registration()
	b.log.Debug("transport registered",
		zap.String("session", sessionID), zap.Int("transports", live))
	return nil
}

// Deregister detaches t from sessionID and closes it. The session entry
// survives, even with zero transports left: only Complete or Fail destroys
// a session. Unknown sessions and already-removed transports are no-ops.
func (b *Bus) Deregister(sessionID string, t Transport) {
	b.mu.Lock()
	s, ok := b.sessions[sessionID]
	removed := false
	if ok {
		s.transports, removed = without(s.transports, t)
	}
	b.mu.Unlock()

	if !removed {
		return
	}
	_ = t.Close()
	b.metrics.transportsRemoved(1)
	b.log.Debug("transport deregistered", zap.String("session", sessionID))
}

// Publish fans ev out to every live transport of sessionID. Unknown
// sessions are a silent no-op: workflows may emit stray status events after
// their session drains. A transport whose write fails is removed as part of
// this call; the remaining transports still receive the event.
func (b *Bus) Publish(sessionID string, ev events.Event) {
	b.mu.RLock()
	s, ok := b.sessions[sessionID]
	var targets []Transport
	if ok {
		targets = append([]Transport(nil), s.transports...)
	}
	b.mu.RUnlock()

	if !ok {
		b.metrics.strayPublish()
		if b.completed.Contains(sessionID) {
			b.log.Debug("publish after session drained",
				zap.String("session", sessionID), zap.String("event", string(ev.Type())))
		} else {
			b.log.Warn("publish to unknown session",
				zap.String("session", sessionID), zap.String("event", string(ev.Type())))
		}
		return
	}

	b.metrics.published(string(ev.Type()))

	var failed []Transport
	for _, t := range targets {
		if err := t.Send(ev); err != nil {
			b.log.Warn("transport write failed, removing",
				zap.String("session", sessionID),
				zap.String("event", string(ev.Type())),
				zap.Error(err))
			b.metrics.writeFailure()
			failed = append(failed, t)
		}
	}
	if len(failed) > 0 {
		b.removeFailed(sessionID, failed)
	}
}

// Complete delivers finalEv to all live transports, then tears the session
// down: every transport is closed and removed, and the session entry is
// deleted. Calling it again for an already-removed session is a silent
// no-op, as is a subsequent Publish to the same id.
func (b *Bus) Complete(sessionID string, finalEv events.Event) {
	b.terminate(sessionID, finalEv, "completed")
}

// Fail is Complete for the error path: same delivery and teardown, recorded
// as a failed outcome.
func (b *Bus) Fail(sessionID string, finalEv events.Event) {
	b.terminate(sessionID, finalEv, "failed")
}

func (b *Bus) terminate(sessionID string, finalEv events.Event, outcome string) {
	b.mu.Lock()
	s, ok := b.sessions[sessionID]
	if !ok {
		b.mu.Unlock()
		return
	}
	delete(b.sessions, sessionID)
	targets := s.transports
	s.transports = nil
	b.mu.Unlock()

	b.completed.Add(sessionID, time.Now())

	for _, t := range targets {
		if err := t.Send(finalEv); err != nil {
			b.log.Warn("final event write failed",
				zap.String("session", sessionID), zap.Error(err))
		}
		_ = t.Close()
	}

	b.metrics.published(string(finalEv.Type()))
	b.metrics.sessionClosed(outcome, len(targets))
	b.log.Info("session closed",
		zap.String("session", sessionID),
		zap.String("outcome", outcome),
		zap.Int("transports", len(targets)),
		zap.Duration("lifetime", time.Since(s.createdAt)))
}

// removeFailed drops the given transports from the session, if both still
// exist, and closes them. Runs after the fan-out writes so delivery to
// healthy siblings is never held up.
func (b *Bus) removeFailed(sessionID string, failed []Transport) {
	b.mu.Lock()
	s, ok := b.sessions[sessionID]
	removed := 0
	if ok {
		for _, t := range failed {
			var one bool
			if s.transports, one = without(s.transports, t); one {
				removed++
			}
		}
	}
	b.mu.Unlock()

	for _, t := range failed {
		_ = t.Close()
	}
	if removed > 0 {
		b.metrics.transportsRemoved(removed)
	}
}

// Counts reports how many sessions and transports are live, for health
// output and tests.
func (b *Bus) Counts() (sessions, transports int) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	sessions = len(b.sessions)
	for _, s := range b.sessions {
		transports += len(s.transports)
	}
	return sessions, transports
}

// without returns ts with the first identity match of t removed, preserving
// order, and whether a match was found.
func without(ts []Transport, t Transport) ([]Transport, bool) {
	for i, cur := range ts {
		if cur == t {
			return append(ts[:i:i], ts[i+1:]...), true
		}
	}
	return ts, false
}
